// Package executor defines the contract every job execution backend must
// satisfy, so that routers, buses, and pools can depend on an abstraction
// instead of a concrete worker pool.
package executor

import (
	"time"

	"github.com/kcenon/messaging-fabric/pkg/job"
)

// Executor runs submitted work, either as plain callbacks or as fully
// formed jobs, and reports its own load and lifecycle state.
type Executor interface {
	// Submit runs fn on the executor and returns a channel closed once fn
	// returns.
	Submit(fn func()) <-chan struct{}

	// SubmitDelayed runs fn after d elapses. Implementations must enqueue
	// the delayed call onto their own bounded backing queue rather than
	// spawning a detached goroutine, so a flood of delayed submissions is
	// subject to the same backpressure as immediate ones.
	SubmitDelayed(fn func(), d time.Duration) <-chan struct{}

	// Execute runs a fully formed job and returns a channel closed once it
	// completes, or an error if the executor cannot currently accept it.
	Execute(j job.Job) (<-chan struct{}, error)

	// WorkerCount reports the number of workers backing the executor.
	WorkerCount() int

	// IsRunning reports whether the executor is currently accepting and
	// processing work.
	IsRunning() bool

	// PendingTasks reports how many submissions are queued but not yet
	// started.
	PendingTasks() int

	// Shutdown stops the executor. If waitForCompletion is true, pending
	// work already queued is allowed to drain first; otherwise it is
	// discarded.
	Shutdown(waitForCompletion bool)
}
