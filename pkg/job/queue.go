package job

import (
	"sync"
	"time"

	"github.com/kcenon/messaging-fabric/pkg/result"
)

// Queue is an ordered, thread-safe FIFO sequence of jobs. Size() is always
// derived from the backing slice's length under the same lock as every
// mutation, so there is exactly one source of truth for queue size instead
// of a sibling counter that can drift out of sync with the slice.
type Queue struct {
	mu       sync.Mutex
	cond     *sync.Cond
	items    []Job
	stopping bool
}

// NewQueue creates an empty, running job queue.
func NewQueue() *Queue {
	q := &Queue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Enqueue appends a job to the tail of the queue. Fails with QueueStopped
// if the queue has been stopped.
func (q *Queue) Enqueue(j Job) result.Result[result.Unit] {
	q.mu.Lock()
	if q.stopping {
		q.mu.Unlock()
		return result.Err[result.Unit](result.New(result.KindQueueStopped, "queue is stopped"))
	}
	q.items = append(q.items, j)
	q.mu.Unlock()
	q.cond.Signal()
	return result.OkVoid()
}

// EnqueueBatch appends multiple jobs atomically, preserving their relative
// order at the tail of the queue.
func (q *Queue) EnqueueBatch(jobs []Job) result.Result[result.Unit] {
	q.mu.Lock()
	if q.stopping {
		q.mu.Unlock()
		return result.Err[result.Unit](result.New(result.KindQueueStopped, "queue is stopped"))
	}
	q.items = append(q.items, jobs...)
	q.mu.Unlock()
	q.cond.Broadcast()
	return result.OkVoid()
}

// Dequeue blocks until a job is available or the queue is stopped. A
// stopped queue with no pending jobs returns QueueStopped; a stopped queue
// that still has pending jobs continues returning them in FIFO order until
// drained, after which it too returns QueueStopped.
func (q *Queue) Dequeue() result.Result[Job] {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.items) == 0 && !q.stopping {
		q.cond.Wait()
	}
	if len(q.items) == 0 {
		return result.Err[Job](result.New(result.KindQueueStopped, "queue is stopped"))
	}

	j := q.items[0]
	q.items = q.items[1:]
	return result.Ok(j)
}

// DequeueTimeout blocks like Dequeue but gives up after d, returning a
// Timeout error if no job arrives and the queue is never stopped in that
// window. Workers with a configured wake-interval use this instead of
// Dequeue so they periodically regain control even with no pending work.
func (q *Queue) DequeueTimeout(d time.Duration) result.Result[Job] {
	deadline := time.Now().Add(d)

	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.items) == 0 && !q.stopping {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return result.Err[Job](result.New(result.KindTimeout, "dequeue timed out"))
		}
		timer := time.AfterFunc(remaining, func() { q.cond.Broadcast() })
		q.cond.Wait()
		timer.Stop()
	}
	if len(q.items) == 0 {
		return result.Err[Job](result.New(result.KindQueueStopped, "queue is stopped"))
	}

	j := q.items[0]
	q.items = q.items[1:]
	return result.Ok(j)
}

// DequeueBatch drains every currently pending job without blocking.
func (q *Queue) DequeueBatch() []Job {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return nil
	}
	drained := q.items
	q.items = nil
	return drained
}

// Clear discards every pending job without executing it.
func (q *Queue) Clear() {
	q.mu.Lock()
	q.items = nil
	q.mu.Unlock()
}

// Size reports the number of pending jobs. Size()==0 iff Empty()==true at
// every external observation, by construction (both read len(q.items)).
func (q *Queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Empty reports whether the queue currently holds no pending jobs.
func (q *Queue) Empty() bool {
	return q.Size() == 0
}

// StopWaitingDequeue flips the queue to stopping and wakes every blocked
// Dequeue call, which then observes QueueStopped once drained. Idempotent.
func (q *Queue) StopWaitingDequeue() {
	q.mu.Lock()
	q.stopping = true
	q.mu.Unlock()
	q.cond.Broadcast()
}

// Stopping reports whether the queue has been asked to stop.
func (q *Queue) Stopping() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.stopping
}

// Reopen clears the stopping flag, allowing the queue to accept new work
// after a drained stop. Pools that never restart simply never call it.
func (q *Queue) Reopen() {
	q.mu.Lock()
	q.stopping = false
	q.mu.Unlock()
}
