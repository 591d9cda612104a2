package workerpool

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-logr/logr"

	"github.com/kcenon/messaging-fabric/pkg/cancel"
	"github.com/kcenon/messaging-fabric/pkg/executor"
	"github.com/kcenon/messaging-fabric/pkg/job"
	"github.com/kcenon/messaging-fabric/pkg/logging"
	"github.com/kcenon/messaging-fabric/pkg/result"
)

var _ executor.Executor = (*Pool)(nil)

// Pool owns a fixed set of workers draining one shared job.Queue. It is the
// default Executor implementation the rest of the fabric submits work to.
type Pool struct {
	queue   *job.Queue
	workers []*Worker
	log     logr.Logger

	mu      sync.Mutex
	started bool
	running int32
}

// Option configures a Pool at construction time.
type Option func(*Pool)

// WithWakeInterval sets the wake interval applied to every worker in the
// pool once started.
func WithWakeInterval(d time.Duration) Option {
	return func(p *Pool) {
		for _, w := range p.workers {
			w.SetWakeInterval(d)
		}
	}
}

// WithHooks applies the same lifecycle hooks to every worker in the pool.
func WithHooks(h Hooks) Option {
	return func(p *Pool) {
		for _, w := range p.workers {
			w.hooks = h
		}
	}
}

// NewPool creates a pool of size workers sharing a freshly constructed
// queue.
func NewPool(name string, size int, opts ...Option) *Pool {
	if size < 1 {
		size = 1
	}
	q := job.NewQueue()
	p := &Pool{
		queue: q,
		log:   logging.For(logging.ComponentWorkerPool),
	}
	for i := 0; i < size; i++ {
		wname := fmt.Sprintf("%s-%d", name, i)
		p.workers = append(p.workers, NewWorker(wname, q, Hooks{}, p.log))
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start launches every worker in the pool. Safe to call once; a second
// call returns AlreadyRunning.
func (p *Pool) Start(ctx context.Context) result.Result[result.Unit] {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return result.Err[result.Unit](result.New(result.KindAlreadyRunning, "pool already started"))
	}
	p.started = true
	for _, w := range p.workers {
		if r := w.Start(ctx); r.IsErr() {
			return r
		}
	}
	atomic.StoreInt32(&p.running, 1)
	return result.OkVoid()
}

// Stop requests every worker to stop and blocks until all have exited or
// the context is done.
func (p *Pool) Stop(ctx context.Context) result.Result[result.Unit] {
	p.queue.StopWaitingDequeue()
	for _, w := range p.workers {
		w.Stop()
	}
	for _, w := range p.workers {
		select {
		case <-w.Done():
		case <-ctx.Done():
			return result.Err[result.Unit](result.New(result.KindTimeout, "pool stop timed out waiting for %s", w.name))
		}
	}
	atomic.StoreInt32(&p.running, 0)
	return result.OkVoid()
}

// SubmitJob enqueues an already-constructed job.Job for the next available
// worker, without the completion-signaling wrapper Execute adds.
func (p *Pool) SubmitJob(j job.Job) result.Result[result.Unit] {
	return p.queue.Enqueue(j)
}

// WorkerCount reports the number of workers in the pool.
func (p *Pool) WorkerCount() int {
	return len(p.workers)
}

// PendingJobs reports how many jobs are currently queued and not yet
// picked up by a worker.
func (p *Pool) PendingJobs() int {
	return p.queue.Size()
}

// RunningWorkers reports how many workers are currently in the Waiting or
// Working state.
func (p *Pool) RunningWorkers() int {
	n := 0
	for _, w := range p.workers {
		if w.IsRunning() {
			n++
		}
	}
	return n
}

// execJob adapts a plain func() into a job.Job that closes done once the
// callback returns, satisfying the executor.Executor completion signal
// contract.
type execJob struct {
	name string
	fn   func()
	done chan struct{}
}

func (c *execJob) Name() string             { return c.name }
func (c *execJob) Token() *cancel.Token      { return nil }
func (c *execJob) DoWork(ctx context.Context) error {
	defer close(c.done)
	c.fn()
	return nil
}

// execWrap adapts an already-constructed job.Job so that executing it
// through Execute also signals completion on the channel Execute returned
// to its caller.
type execWrap struct {
	inner job.Job
	done  chan struct{}
}

func (w *execWrap) Name() string        { return w.inner.Name() }
func (w *execWrap) Token() *cancel.Token { return w.inner.Token() }
func (w *execWrap) DoWork(ctx context.Context) error {
	defer close(w.done)
	return w.inner.DoWork(ctx)
}

// Submit implements executor.Executor.
func (p *Pool) Submit(fn func()) <-chan struct{} {
	done := make(chan struct{})
	j := &execJob{name: "callback", fn: fn, done: done}
	p.queue.Enqueue(j)
	return done
}

// SubmitDelayed implements executor.Executor. The callback is pushed onto
// this pool's own queue once d elapses, via time.AfterFunc, rather than a
// raw detached goroutine, so delayed work is still subject to the queue's
// backpressure and FIFO ordering once it lands.
func (p *Pool) SubmitDelayed(fn func(), d time.Duration) <-chan struct{} {
	done := make(chan struct{})
	time.AfterFunc(d, func() {
		j := &execJob{name: "delayed-callback", fn: fn, done: done}
		p.queue.Enqueue(j)
	})
	return done
}

// Execute implements executor.Executor, running a fully formed job and
// signaling completion on the returned channel.
func (p *Pool) Execute(j job.Job) (<-chan struct{}, error) {
	done := make(chan struct{})
	wrapped := &execWrap{inner: j, done: done}
	if r := p.queue.Enqueue(wrapped); r.IsErr() {
		return nil, r.Error()
	}
	return done, nil
}

// IsRunning implements executor.Executor.
func (p *Pool) IsRunning() bool {
	return atomic.LoadInt32(&p.running) == 1
}

// PendingTasks implements executor.Executor.
func (p *Pool) PendingTasks() int {
	return p.PendingJobs()
}

// Shutdown implements executor.Executor. When waitForCompletion is false,
// jobs still sitting in the queue are dropped before workers are told to
// stop; when true, Shutdown first waits (while the pool is running) until
// the workers have taken every queued job, and Stop then waits for the
// jobs in flight to finish.
func (p *Pool) Shutdown(waitForCompletion bool) {
	if !waitForCompletion {
		p.queue.Clear()
	} else {
		for p.IsRunning() && p.queue.Size() > 0 {
			time.Sleep(time.Millisecond)
		}
	}
	p.Stop(context.Background())
}
