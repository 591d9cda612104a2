// Package typedpool implements a worker pool with independent per-type
// lanes: submitting work of type T only ever competes with other work of
// type T, and workers declare which types they service in a preference
// order used when more than one of their lanes has work waiting. The pool
// is generic over its lane key so the same implementation serves a fixed
// RealTime/Batch/Background vocabulary or any caller-defined enum.
package typedpool

import (
	"context"
	"sync"
	"time"

	"github.com/go-logr/logr"

	"github.com/kcenon/messaging-fabric/pkg/job"
	"github.com/kcenon/messaging-fabric/pkg/logging"
	"github.com/kcenon/messaging-fabric/pkg/result"
	"github.com/kcenon/messaging-fabric/pkg/workerpool"
)

// JobType is the default lane-key vocabulary, usable directly with
// Pool[JobType] wherever callers don't need their own enum.
type JobType string

const (
	TypeRealTime   JobType = "realtime"
	TypeBatch      JobType = "batch"
	TypeBackground JobType = "background"
)

type lane[T comparable] struct {
	items []job.Job
}

// Pool dispatches jobs keyed by T to independent lanes, serviced by
// workers that each declare a preference order over a subset of T values.
type Pool[T comparable] struct {
	mu         sync.Mutex
	cond       *sync.Cond
	lanes      map[T]*lane[T]
	registered map[T]int
	stopping   bool
	log        logr.Logger

	workers []*Worker[T]
}

// New creates an empty typed pool keyed by T.
func New[T comparable]() *Pool[T] {
	p := &Pool[T]{
		lanes:      make(map[T]*lane[T]),
		registered: make(map[T]int),
		log:        logging.For(logging.ComponentTypedPool),
	}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// Submit enqueues a job onto type t's lane. Fails with ResourceExhausted
// if no worker has declared a preference for t — submission only ever
// succeeds into a lane at least one worker services.
func (p *Pool[T]) Submit(t T, j job.Job) result.Result[result.Unit] {
	p.mu.Lock()
	defer func() { p.mu.Unlock(); p.cond.Broadcast() }()

	if p.stopping {
		return result.Err[result.Unit](result.New(result.KindQueueStopped, "typed pool is stopped"))
	}
	if p.registered[t] == 0 {
		return result.Err[result.Unit](result.New(result.KindResourceExhausted, "no worker services this job type"))
	}
	l := p.lanes[t]
	if l == nil {
		l = &lane[T]{}
		p.lanes[t] = l
	}
	l.items = append(l.items, j)
	return result.OkVoid()
}

// LaneSize reports how many jobs of type t are currently pending.
func (p *Pool[T]) LaneSize(t T) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if l, ok := p.lanes[t]; ok {
		return len(l.items)
	}
	return 0
}

// Sizes reports the pending count of every registered lane.
func (p *Pool[T]) Sizes() map[T]int {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[T]int, len(p.lanes))
	for t, l := range p.lanes {
		out[t] = len(l.items)
	}
	return out
}

// AddWorker creates and registers a worker that services the given types
// in descending preference order, ensuring each of those lanes exists.
func (p *Pool[T]) AddWorker(name string, preferences []T, hooks workerpool.Hooks) *Worker[T] {
	p.mu.Lock()
	for _, t := range preferences {
		if _, ok := p.lanes[t]; !ok {
			p.lanes[t] = &lane[T]{}
		}
		p.registered[t]++
	}
	p.mu.Unlock()

	w := &Worker[T]{
		name:        name,
		pool:        p,
		preferences: preferences,
		hooks:       hooks,
		state:       workerpool.StateCreated,
		stopCh:      make(chan struct{}),
		done:        make(chan struct{}),
	}
	p.workers = append(p.workers, w)
	return w
}

// Start launches every registered worker.
func (p *Pool[T]) Start(ctx context.Context) result.Result[result.Unit] {
	for _, w := range p.workers {
		if r := w.Start(ctx); r.IsErr() {
			return r
		}
	}
	return result.OkVoid()
}

// Stop marks the pool stopping, wakes every blocked worker, and waits for
// them all to exit or ctx to be done.
func (p *Pool[T]) Stop(ctx context.Context) result.Result[result.Unit] {
	p.mu.Lock()
	p.stopping = true
	p.mu.Unlock()
	p.cond.Broadcast()

	for _, w := range p.workers {
		w.Stop()
		select {
		case <-w.Done():
		case <-ctx.Done():
			return result.Err[result.Unit](result.New(result.KindTimeout, "typed pool stop timed out"))
		}
	}
	return result.OkVoid()
}

// popPreferred returns the first pending job found by scanning prefs in
// order, or (nil, false) if all are empty. Caller must hold p.mu.
func (p *Pool[T]) popPreferred(prefs []T) (job.Job, bool) {
	for _, t := range prefs {
		l := p.lanes[t]
		if l == nil || len(l.items) == 0 {
			continue
		}
		j := l.items[0]
		l.items = l.items[1:]
		return j, true
	}
	return nil, false
}

// Worker services a declared subset of a Pool's lanes in preference
// order, falling back to idle-wait when every declared lane is empty.
type Worker[T comparable] struct {
	name        string
	pool        *Pool[T]
	preferences []T
	hooks       workerpool.Hooks

	stateMu sync.RWMutex
	state   workerpool.State

	wakeMu   sync.Mutex
	wakeIntv time.Duration

	stopCh   chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// SetWakeInterval bounds how long the worker idles before re-checking its
// stop condition even with no work in any of its lanes.
func (w *Worker[T]) SetWakeInterval(d time.Duration) {
	w.wakeMu.Lock()
	w.wakeIntv = d
	w.wakeMu.Unlock()
}

func (w *Worker[T]) wakeInterval() time.Duration {
	w.wakeMu.Lock()
	defer w.wakeMu.Unlock()
	return w.wakeIntv
}

func (w *Worker[T]) setState(s workerpool.State) {
	w.stateMu.Lock()
	w.state = s
	w.stateMu.Unlock()
}

// State reports the worker's current lifecycle state.
func (w *Worker[T]) State() workerpool.State {
	w.stateMu.RLock()
	defer w.stateMu.RUnlock()
	return w.state
}

// IsRunning reports whether the worker is in Waiting or Working.
func (w *Worker[T]) IsRunning() bool {
	s := w.State()
	return s == workerpool.StateWaiting || s == workerpool.StateWorking
}

// Start spawns the worker's background goroutine.
func (w *Worker[T]) Start(ctx context.Context) result.Result[result.Unit] {
	if w.State() != workerpool.StateCreated {
		return result.Err[result.Unit](result.New(result.KindAlreadyRunning, "typed worker %q already started", w.name))
	}
	go w.run(ctx)
	return result.OkVoid()
}

// Stop requests the worker to exit after finishing any in-flight job.
func (w *Worker[T]) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
}

// Done reports worker termination.
func (w *Worker[T]) Done() <-chan struct{} { return w.done }

func (w *Worker[T]) stopRequested() bool {
	select {
	case <-w.stopCh:
		return true
	default:
		return false
	}
}

func (w *Worker[T]) run(ctx context.Context) {
	if w.hooks.BeforeStart != nil {
		w.hooks.BeforeStart(ctx)
	}

	p := w.pool
	for {
		if w.stopRequested() {
			if w.hooks.ShouldContinueWork == nil || !w.hooks.ShouldContinueWork() {
				break
			}
		}

		w.setState(workerpool.StateWaiting)
		p.mu.Lock()
		j, found := p.popPreferred(w.preferences)
		for !found && !p.stopping && !w.stopRequested() {
			w.waitForWork(p)
			j, found = p.popPreferred(w.preferences)
		}
		p.mu.Unlock()

		if !found {
			if p.stopping || w.stopRequested() {
				break
			}
			continue
		}

		w.setState(workerpool.StateWorking)
		w.execute(ctx, j)
	}

	w.setState(workerpool.StateStopping)
	if w.hooks.AfterStop != nil {
		w.hooks.AfterStop()
	}
	w.setState(workerpool.StateStopped)
	close(w.done)
}

// waitForWork blocks on the pool's shared condition variable, bounded by
// the worker's wake interval if one is set. Caller must hold p.mu; it is
// released during the wait and re-acquired on return.
func (w *Worker[T]) waitForWork(p *Pool[T]) {
	interval := w.wakeInterval()
	if interval <= 0 {
		p.cond.Wait()
		return
	}
	timer := time.AfterFunc(interval, func() { p.cond.Broadcast() })
	p.cond.Wait()
	timer.Stop()
}

func (w *Worker[T]) execute(ctx context.Context, j job.Job) {
	defer func() {
		if rec := recover(); rec != nil {
			w.pool.log.Error(nil, "typed job panicked", "worker", w.name, "job", j.Name(), "panic", rec)
		}
	}()

	if tok := j.Token(); tok != nil && tok.IsCancelled() {
		return
	}
	if err := j.DoWork(ctx); err != nil {
		w.pool.log.Error(err, "typed job failed", "worker", w.name, "job", j.Name())
	}
}
