// Package trace implements the fabric's per-task trace-id propagation: a
// 12-hex-digit timestamp plus 8-hex-digit random suffix that travels with a
// publish/dispatch chain so producer and subscriber log lines can be
// correlated. The idiomatic Go carrier is context.Context; goroutineLocal
// below serves call sites that have no context to carry it: the bus's
// dispatch hook (ScopedTrace around every subscriber callback) and tests.
// It matches the one-trace-id-per-worker-goroutine model a dedicated
// worker thread would have.
package trace

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"
)

type ctxKey struct{}

// Generate mints a new trace id: 12 hex digits of Unix-nanosecond timestamp
// truncated to 48 bits, followed by 8 hex digits of crypto-random suffix.
func Generate() string {
	var ts [6]byte
	now := uint64(time.Now().UnixNano())
	for i := 5; i >= 0; i-- {
		ts[i] = byte(now)
		now >>= 8
	}
	var suffix [4]byte
	_, _ = rand.Read(suffix[:])
	return hex.EncodeToString(ts[:]) + hex.EncodeToString(suffix[:])
}

// WithTraceID returns a context carrying id, for call sites that already
// have a context in hand.
func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the trace id carried by ctx, if any.
func FromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ctxKey{}).(string)
	return id, ok && id != ""
}

var goroutineLocal sync.Map // goroutine id (string) -> trace id (string)

func currentGoroutineID() string {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	// "goroutine 123 [running]:\n..." — the id is the second field.
	var id uint64
	fmt.Sscanf(string(buf[:n]), "goroutine %d ", &id)
	return strconv.FormatUint(id, 10)
}

// SetTraceID installs id as the current goroutine's trace id, for code that
// has no context to thread it through.
func SetTraceID(id string) {
	goroutineLocal.Store(currentGoroutineID(), id)
}

// GetTraceID returns the current goroutine's trace id, or "" if unset.
func GetTraceID() string {
	v, ok := goroutineLocal.Load(currentGoroutineID())
	if !ok {
		return ""
	}
	return v.(string)
}

// Clear removes the current goroutine's trace id.
func Clear() {
	goroutineLocal.Delete(currentGoroutineID())
}

// ScopedTrace installs id as the current goroutine's trace id and returns a
// restore function that puts back whatever was set before (or clears it, if
// nothing was). Intended to bracket a single callback invocation:
//
//	restore := trace.ScopedTrace(msg.TraceID)
//	defer restore()
func ScopedTrace(id string) func() {
	gid := currentGoroutineID()
	prev, hadPrev := goroutineLocal.Load(gid)
	goroutineLocal.Store(gid, id)
	return func() {
		if hadPrev {
			goroutineLocal.Store(gid, prev)
		} else {
			goroutineLocal.Delete(gid)
		}
	}
}

// tracer is used only to open a correlating span; the fabric's own trace id
// remains the source of truth for cross-log correlation.
var tracer = otel.Tracer("messaging-fabric")

// StartSpan opens an OpenTelemetry span named name, tags it with the fabric
// trace id carried by ctx (if any), and installs that id into the returned
// context so nested work can recover it via FromContext.
func StartSpan(ctx context.Context, name string) (context.Context, oteltrace.Span) {
	ctx, span := tracer.Start(ctx, name)
	if id, ok := FromContext(ctx); ok {
		span.SetAttributes(attribute.String("fabric.trace_id", id))
	}
	return ctx, span
}
