// Package result provides the taxonomy of typed failures shared by every
// other package in the fabric, and a Result[T] type that carries either a
// value or an error without relying on panics for ordinary control flow.
package result

import (
	"fmt"
	"runtime"
)

// ErrorKind enumerates the failure categories recognized across the fabric.
// Result-returning operations report failures as an *Error carrying one of
// these, so callers can branch on its Kind field uniformly. Some plain error
// returns elsewhere (for example reliability.ErrCircuitOpen) are sentinel
// errors instead.
type ErrorKind string

const (
	KindSuccess ErrorKind = "success"
	KindUnknown ErrorKind = "unknown"

	// flow control
	KindCancelled ErrorKind = "cancelled"
	KindTimeout   ErrorKind = "timeout"

	// lifecycle
	KindAlreadyRunning ErrorKind = "already_running"
	KindNotRunning     ErrorKind = "not_running"
	KindStartFailure   ErrorKind = "start_failure"

	// validation / execution
	KindInvalidArgument   ErrorKind = "invalid_argument"
	KindNotImplemented    ErrorKind = "not_implemented"
	KindJobInvalid        ErrorKind = "job_invalid"
	KindJobExecutionFailed ErrorKind = "job_execution_failed"

	// queue
	KindQueueFull    ErrorKind = "queue_full"
	KindQueueEmpty   ErrorKind = "queue_empty"
	KindQueueStopped ErrorKind = "queue_stopped"

	// resource
	KindResourceExhausted ErrorKind = "resource_exhausted"

	// sync
	KindMutexError ErrorKind = "mutex_error"
	KindDeadlock   ErrorKind = "deadlock"

	// io / network / payload
	KindIOError             ErrorKind = "io_error"
	KindNetworkError        ErrorKind = "network_error"
	KindSerializationError  ErrorKind = "serialization_error"
	KindInvalidMessage      ErrorKind = "invalid_message"
)

// Error is the structured failure value carried by a Result. It satisfies
// the standard error interface so it can cross package boundaries that only
// know about `error`, while still exposing its Kind for callers that branch
// on failure category.
type Error struct {
	Kind    ErrorKind
	Message string
	cause   error
	frame   string
}

// New creates an Error of the given kind with a formatted message.
func New(kind ErrorKind, format string, args ...any) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		frame:   callerFrame(2),
	}
}

// Wrap creates an Error of the given kind that records an underlying cause.
func Wrap(cause error, kind ErrorKind, format string, args ...any) *Error {
	if cause == nil {
		return nil
	}
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		cause:   cause,
		frame:   callerFrame(2),
	}
}

func callerFrame(skip int) string {
	pc, file, line, ok := runtime.Caller(skip)
	if !ok {
		return ""
	}
	fn := runtime.FuncForPC(pc)
	name := "unknown"
	if fn != nil {
		name = fn.Name()
	}
	return fmt.Sprintf("%s (%s:%d)", name, file, line)
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap lets errors.Is/errors.As see through to the underlying cause.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target is an *Error with the same Kind. This lets
// callers write errors.Is(err, &result.Error{Kind: result.KindTimeout}).
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == other.Kind
}
