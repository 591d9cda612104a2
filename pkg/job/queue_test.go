package job

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kcenon/messaging-fabric/pkg/result"
)

func noopJob(name string) *Func {
	return &Func{JobName: name, Fn: func(ctx context.Context) error { return nil }}
}

func TestQueueFIFOOrder(t *testing.T) {
	q := NewQueue()
	require.True(t, q.Enqueue(noopJob("a")).IsOk())
	require.True(t, q.Enqueue(noopJob("b")).IsOk())
	require.True(t, q.Enqueue(noopJob("c")).IsOk())

	for _, want := range []string{"a", "b", "c"} {
		r := q.Dequeue()
		require.True(t, r.IsOk())
		j, _ := r.Value()
		assert.Equal(t, want, j.Name())
	}
}

func TestQueueDequeueBlocksUntilEnqueued(t *testing.T) {
	q := NewQueue()
	done := make(chan string, 1)

	go func() {
		r := q.Dequeue()
		if r.IsOk() {
			j, _ := r.Value()
			done <- j.Name()
		} else {
			done <- "<err>"
		}
	}()

	time.Sleep(20 * time.Millisecond)
	select {
	case <-done:
		t.Fatal("dequeue returned before any job was enqueued")
	default:
	}

	require.True(t, q.Enqueue(noopJob("late")).IsOk())

	select {
	case name := <-done:
		assert.Equal(t, "late", name)
	case <-time.After(time.Second):
		t.Fatal("dequeue did not wake after enqueue")
	}
}

func TestQueueStopWakesWaiters(t *testing.T) {
	q := NewQueue()
	var wg sync.WaitGroup
	errs := make([]*result.Error, 4)

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			r := q.Dequeue()
			if r.IsErr() {
				errs[idx] = r.Error()
			}
		}(i)
	}

	time.Sleep(20 * time.Millisecond)
	q.StopWaitingDequeue()

	waitTimeout(t, &wg, time.Second, "stopped queue did not wake all waiters")
	for _, e := range errs {
		require.NotNil(t, e)
		assert.Equal(t, result.KindQueueStopped, e.Kind)
	}
}

func TestQueueEnqueueAfterStopFails(t *testing.T) {
	q := NewQueue()
	q.StopWaitingDequeue()

	r := q.Enqueue(noopJob("late"))
	require.True(t, r.IsErr())
	assert.Equal(t, result.KindQueueStopped, r.Error().Kind)
}

func TestQueueDrainsPendingBeforeStopError(t *testing.T) {
	q := NewQueue()
	require.True(t, q.Enqueue(noopJob("first")).IsOk())
	q.StopWaitingDequeue()

	r := q.Dequeue()
	require.True(t, r.IsOk())
	j, _ := r.Value()
	assert.Equal(t, "first", j.Name())

	r = q.Dequeue()
	require.True(t, r.IsErr())
	assert.Equal(t, result.KindQueueStopped, r.Error().Kind)
}

func TestQueueSizeEmptyInvariantUnderConcurrency(t *testing.T) {
	q := NewQueue()
	var wg sync.WaitGroup
	var enqueued int64

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.Enqueue(noopJob("x"))
			atomic.AddInt64(&enqueued, 1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int(atomic.LoadInt64(&enqueued)), q.Size())
	assert.False(t, q.Empty())

	drained := q.DequeueBatch()
	assert.Len(t, drained, 100)
	assert.Equal(t, 0, q.Size())
	assert.True(t, q.Empty())
}

func TestQueueClearDropsWithoutExecuting(t *testing.T) {
	q := NewQueue()
	var ran int32
	job := &Func{JobName: "tracked", Fn: func(ctx context.Context) error {
		atomic.AddInt32(&ran, 1)
		return nil
	}}
	require.True(t, q.Enqueue(job).IsOk())
	q.Clear()

	assert.Equal(t, 0, q.Size())
	assert.Equal(t, int32(0), atomic.LoadInt32(&ran))
}

func waitTimeout(t *testing.T, wg *sync.WaitGroup, d time.Duration, msg string) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(d):
		t.Fatal(msg)
	}
}
