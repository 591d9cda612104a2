// Package workerpool implements the worker lifecycle state machine and the
// fixed-size pool of workers bound to a single job queue.
package workerpool

import (
	"context"
	"sync"
	"time"

	"github.com/go-logr/logr"

	"github.com/kcenon/messaging-fabric/pkg/job"
	"github.com/kcenon/messaging-fabric/pkg/logging"
	"github.com/kcenon/messaging-fabric/pkg/result"
)

// State is a worker's position in its lifecycle.
type State int

const (
	StateCreated State = iota
	StateWaiting
	StateWorking
	StateStopping
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateWaiting:
		return "waiting"
	case StateWorking:
		return "working"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Hooks customizes a Worker's lifecycle without subclassing.
type Hooks struct {
	// BeforeStart runs once, before the worker enters its main loop.
	BeforeStart func(ctx context.Context)
	// AfterStop runs once, after the worker has left its main loop.
	AfterStop func()
	// ShouldContinueWork, if set, keeps the worker looping even after Stop
	// has been requested, until it reports false.
	ShouldContinueWork func() bool
}

// Worker pulls jobs from a shared queue and executes them one at a time,
// cycling through Created -> Waiting <-> Working -> Stopping -> Stopped.
type Worker struct {
	name  string
	queue *job.Queue
	hooks Hooks
	log   logr.Logger

	stateMu sync.RWMutex
	state   State

	wakeMu   sync.Mutex
	wakeIntv time.Duration // 0 means block indefinitely

	stopCh   chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewWorker creates a worker bound to q. The worker does not start pulling
// jobs until Start is called.
func NewWorker(name string, q *job.Queue, hooks Hooks, log logr.Logger) *Worker {
	if log.GetSink() == nil {
		log = logging.For(logging.ComponentWorkerPool)
	}
	return &Worker{
		name:   name,
		queue:  q,
		hooks:  hooks,
		log:    log,
		state:  StateCreated,
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
}

func (w *Worker) setState(s State) {
	w.stateMu.Lock()
	w.state = s
	w.stateMu.Unlock()
}

// State reports the worker's current lifecycle state.
func (w *Worker) State() State {
	w.stateMu.RLock()
	defer w.stateMu.RUnlock()
	return w.state
}

// IsRunning reports whether the worker is actively waiting for or
// executing work, i.e. state is Waiting or Working.
func (w *Worker) IsRunning() bool {
	s := w.State()
	return s == StateWaiting || s == StateWorking
}

// SetWakeInterval configures how long the worker waits on an empty queue
// before regaining control to re-check its stop/continue conditions. A
// zero duration means wait indefinitely for the next job. Guarded by its
// own mutex, independent of the queue's internal lock, so callers can
// reconfigure it freely without contending with in-flight dequeues.
func (w *Worker) SetWakeInterval(d time.Duration) {
	w.wakeMu.Lock()
	w.wakeIntv = d
	w.wakeMu.Unlock()
}

// WakeInterval returns the currently configured wake interval.
func (w *Worker) WakeInterval() time.Duration {
	w.wakeMu.Lock()
	defer w.wakeMu.Unlock()
	return w.wakeIntv
}

// Start spawns the worker's background goroutine. Calling Start twice on
// the same Worker is a programmer error; callers must construct a new
// Worker to restart one that has stopped.
func (w *Worker) Start(ctx context.Context) result.Result[result.Unit] {
	if w.State() != StateCreated {
		return result.Err[result.Unit](result.New(result.KindAlreadyRunning, "worker %q already started", w.name))
	}
	go w.run(ctx)
	return result.OkVoid()
}

// Stop requests the worker to finish its current job and exit its loop.
// It does not block; wait on Done() to observe full termination.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
	})
}

// Done returns a channel closed once the worker has reached StateStopped.
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

func (w *Worker) stopRequestedFlag() bool {
	select {
	case <-w.stopCh:
		return true
	default:
		return false
	}
}

func (w *Worker) run(ctx context.Context) {
	if w.hooks.BeforeStart != nil {
		w.hooks.BeforeStart(ctx)
	}

	for {
		stopReq := w.stopRequestedFlag()
		if stopReq {
			if w.hooks.ShouldContinueWork == nil || !w.hooks.ShouldContinueWork() {
				break
			}
		}

		w.setState(StateWaiting)
		r := w.awaitJob(ctx)

		if r.IsErr() {
			if r.Error().Kind == result.KindQueueStopped {
				break
			}
			// Timeout: loop back around to re-check stop/continue state.
			continue
		}

		w.setState(StateWorking)
		j, _ := r.Value()
		w.execute(ctx, j)
	}

	w.setState(StateStopping)
	if w.hooks.AfterStop != nil {
		w.hooks.AfterStop()
	}
	w.setState(StateStopped)
	close(w.done)
}

func (w *Worker) awaitJob(ctx context.Context) result.Result[job.Job] {
	interval := w.WakeInterval()
	if interval <= 0 {
		return w.queue.Dequeue()
	}
	return w.queue.DequeueTimeout(interval)
}

func (w *Worker) execute(ctx context.Context, j job.Job) {
	defer func() {
		if rec := recover(); rec != nil {
			w.log.Error(nil, "job panicked", "worker", w.name, "job", j.Name(), "panic", rec)
		}
	}()

	if tok := j.Token(); tok != nil && tok.IsCancelled() {
		w.log.V(logging.LevelDebug).Info("skipping cancelled job", "worker", w.name, "job", j.Name())
		return
	}
	if err := j.DoWork(ctx); err != nil {
		w.log.Error(err, "job failed", "worker", w.name, "job", j.Name())
	}
}
