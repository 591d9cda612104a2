package bus

import (
	"context"
	"sync"

	"github.com/go-logr/logr"

	"github.com/kcenon/messaging-fabric/pkg/container"
	"github.com/kcenon/messaging-fabric/pkg/executor"
	"github.com/kcenon/messaging-fabric/pkg/logging"
	"github.com/kcenon/messaging-fabric/pkg/performance"
	"github.com/kcenon/messaging-fabric/pkg/result"
	"github.com/kcenon/messaging-fabric/pkg/router"
	"github.com/kcenon/messaging-fabric/pkg/trace"
)

var _ Bus = (*MemoryBus)(nil)

// MemoryBus is the default, in-process Bus implementation. It never leaves
// the current process: publishing and subscribing are purely local,
// dispatched through ioExec (routing work) and workerExec (subscriber
// callbacks).
type MemoryBus struct {
	router     *router.Router
	ioExec     executor.Executor
	workerExec executor.Executor
	log        logr.Logger
	perf       *performance.Metrics

	mu      sync.RWMutex
	running bool
}

// New builds a MemoryBus. Both executors must already be constructed (and,
// for a *workerpool.Pool, started) by the caller — the bus never starts
// them, but Stop shuts both down after draining pending dispatches.
func New(ioExec, workerExec executor.Executor) *MemoryBus {
	b := &MemoryBus{
		router:     router.New(workerExec),
		ioExec:     ioExec,
		workerExec: workerExec,
		log:        logging.For(logging.ComponentBus),
		perf:       performance.NewMetrics(),
	}
	b.router.SetAroundDispatch(func(msg *container.Container, run func()) {
		restore := trace.ScopedTrace(msg.TraceID)
		defer restore()
		run()
	})
	return b
}

// Router exposes the bus's router for components (the monitor, tests) that
// need subscription counts or routed-message totals directly.
func (b *MemoryBus) Router() *router.Router { return b.router }

// Stats returns per-operation dispatch latency percentiles ("publish_sync",
// "publish_async") for callers wiring the bus into an external metrics
// exporter.
func (b *MemoryBus) Stats() map[string]performance.OperationStats {
	return b.perf.GetStats()
}

func (b *MemoryBus) Start(_ context.Context) result.Result[result.Unit] {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.running {
		return result.Err[result.Unit](result.New(result.KindAlreadyRunning, "bus already running"))
	}
	b.running = true
	return result.OkVoid()
}

func (b *MemoryBus) Stop(_ context.Context) result.Result[result.Unit] {
	b.mu.Lock()
	if !b.running {
		b.mu.Unlock()
		return result.Err[result.Unit](result.New(result.KindNotRunning, "bus not running"))
	}
	b.running = false
	b.mu.Unlock()

	// Drain pending dispatches before tearing executors down. The I/O
	// executor goes first because its queued async publishes still
	// dispatch into the worker executor.
	b.ioExec.Shutdown(true)
	b.workerExec.Shutdown(true)
	return result.OkVoid()
}

func (b *MemoryBus) IsRunning() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.running
}

func (b *MemoryBus) PublishSync(msg *container.Container) result.Result[result.Unit] {
	timer := b.perf.StartTimer("publish_sync")
	if !b.IsRunning() {
		timer.StopWithError()
		return result.Err[result.Unit](result.New(result.KindQueueStopped, "publish_sync on a stopped bus"))
	}

	handles, err := b.router.Dispatch(msg)
	if err != nil {
		timer.StopWithError()
		return result.Err[result.Unit](result.Wrap(err, result.KindJobExecutionFailed, "publish_sync dispatch failed"))
	}

	var first error
	for _, h := range handles {
		<-h.Done
		if *h.Err == nil {
			continue
		}
		if first == nil {
			first = *h.Err
		} else {
			b.log.Error(*h.Err, "subscriber callback failed", "topic", msg.Topic, "trace_id", msg.TraceID)
		}
	}
	if first != nil {
		timer.StopWithError()
		return result.Err[result.Unit](result.Wrap(first, result.KindJobExecutionFailed, "subscriber callback failed"))
	}
	timer.Stop()
	return result.OkVoid()
}

func (b *MemoryBus) PublishAsync(msg *container.Container) result.Result[result.Unit] {
	if !b.IsRunning() {
		return result.Err[result.Unit](result.New(result.KindQueueStopped, "publish_async on a stopped bus"))
	}

	b.ioExec.Submit(func() {
		timer := b.perf.StartTimer("publish_async")
		handles, err := b.router.Dispatch(msg)
		if err != nil {
			timer.StopWithError()
			b.log.Error(err, "publish_async dispatch failed", "topic", msg.Topic, "trace_id", msg.TraceID)
			return
		}
		failed := false
		for _, h := range handles {
			<-h.Done
			if *h.Err != nil {
				failed = true
				b.log.Error(*h.Err, "subscriber callback failed", "topic", msg.Topic, "trace_id", msg.TraceID)
			}
		}
		if failed {
			timer.StopWithError()
		} else {
			timer.Stop()
		}
	})
	return result.OkVoid()
}

func (b *MemoryBus) Subscribe(pattern string, cb router.Callback, opts ...router.SubscribeOption) result.Result[uint64] {
	if !b.IsRunning() {
		return result.Err[uint64](result.New(result.KindNotRunning, "subscribe on a bus that isn't running"))
	}
	return result.Ok(b.router.Subscribe(pattern, cb, opts...))
}

func (b *MemoryBus) Unsubscribe(id uint64) result.Result[result.Unit] {
	b.router.Unsubscribe(id)
	return result.OkVoid()
}
