package bus

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kcenon/messaging-fabric/pkg/container"
	"github.com/kcenon/messaging-fabric/pkg/result"
	"github.com/kcenon/messaging-fabric/pkg/router"
	"github.com/kcenon/messaging-fabric/pkg/trace"
	"github.com/kcenon/messaging-fabric/pkg/workerpool"
)

func newTestBus(t *testing.T) *MemoryBus {
	t.Helper()
	io := workerpool.NewPool("bus-io", 2)
	worker := workerpool.NewPool("bus-worker", 4)
	require.True(t, io.Start(context.Background()).IsOk())
	require.True(t, worker.Start(context.Background()).IsOk())
	t.Cleanup(func() {
		io.Stop(context.Background())
		worker.Stop(context.Background())
	})
	b := New(io, worker)
	require.True(t, b.Start(context.Background()).IsOk())
	return b
}

func msg(t *testing.T, topic string) *container.Container {
	t.Helper()
	r := container.Create("src", "tgt", topic)
	require.True(t, r.IsOk())
	c, _ := r.Value()
	return c
}

func TestPublishSyncWildcardMatchS1(t *testing.T) {
	b := newTestBus(t)

	var a, b2, c int32
	track := func(counter *int32) router.Callback {
		return func(_ *container.Container) error {
			atomic.AddInt32(counter, 1)
			return nil
		}
	}
	require.True(t, b.Subscribe("event.#", track(&a)).IsOk())
	require.True(t, b.Subscribe("event.user.*", track(&b2)).IsOk())
	require.True(t, b.Subscribe("event.user.login", track(&c)).IsOk())

	topics := []string{
		"event.user.login",
		"event.user.logout",
		"event.order.placed",
		"event.system.startup.complete",
	}
	for _, topic := range topics {
		require.True(t, b.PublishSync(msg(t, topic)).IsOk())
	}

	assert.Equal(t, int32(4), atomic.LoadInt32(&a))
	assert.Equal(t, int32(2), atomic.LoadInt32(&b2))
	assert.Equal(t, int32(1), atomic.LoadInt32(&c))
}

func TestPublishSyncAggregatesFirstCallbackError(t *testing.T) {
	b := newTestBus(t)
	boom := errors.New("boom")

	require.True(t, b.Subscribe("t", func(_ *container.Container) error { return boom }).IsOk())
	require.True(t, b.Subscribe("t", func(_ *container.Container) error { return nil }).IsOk())

	res := b.PublishSync(msg(t, "t"))
	require.True(t, res.IsErr())
	assert.Equal(t, result.KindJobExecutionFailed, res.Error().Kind)
}

func TestPublishAsyncDoesNotPropagateCallbackErrors(t *testing.T) {
	b := newTestBus(t)
	var wg sync.WaitGroup
	wg.Add(1)

	require.True(t, b.Subscribe("t", func(_ *container.Container) error {
		defer wg.Done()
		return errors.New("boom")
	}).IsOk())

	res := b.PublishAsync(msg(t, "t"))
	require.True(t, res.IsOk())

	waitOrFail(t, &wg, time.Second)
}

func TestPublishOnStoppedBusFailsQueueStopped(t *testing.T) {
	b := newTestBus(t)
	require.True(t, b.Stop(context.Background()).IsOk())

	res := b.PublishSync(msg(t, "t"))
	require.True(t, res.IsErr())
	assert.Equal(t, result.KindQueueStopped, res.Error().Kind)
}

func TestSubscribeOnStoppedBusFailsNotRunning(t *testing.T) {
	b := newTestBus(t)
	require.True(t, b.Stop(context.Background()).IsOk())

	res := b.Subscribe("t", func(_ *container.Container) error { return nil })
	require.True(t, res.IsErr())
	assert.Equal(t, result.KindNotRunning, res.Error().Kind)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := newTestBus(t)
	var called int32
	idRes := b.Subscribe("x.y", func(_ *container.Container) error {
		atomic.AddInt32(&called, 1)
		return nil
	})
	require.True(t, idRes.IsOk())
	id, _ := idRes.Value()

	require.True(t, b.Unsubscribe(id).IsOk())
	require.True(t, b.PublishSync(msg(t, "x.y")).IsOk())
	assert.Equal(t, int32(0), atomic.LoadInt32(&called))
}

// TestTraceIDPropagationS3 mirrors S3: the bus captures a trace id into the
// message at creation time; the subscriber's callback (running on a worker
// goroutine distinct from the publisher) must observe the same id via the
// goroutine-scoped fallback. Restoring the worker's previous id after the
// callback is not checked here.
func TestTraceIDPropagationS3(t *testing.T) {
	b := newTestBus(t)

	r := container.Create("src", "tgt", "traced")
	require.True(t, r.IsOk())
	m, _ := r.Value()
	m.TraceID = "T1"

	seen := make(chan string, 1)
	require.True(t, b.Subscribe("traced", func(_ *container.Container) error {
		seen <- trace.GetTraceID()
		return nil
	}).IsOk())

	require.True(t, b.PublishSync(m).IsOk())
	select {
	case got := <-seen:
		assert.Equal(t, "T1", got)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for subscriber callback")
	}
}

func waitOrFail(t *testing.T, wg *sync.WaitGroup, d time.Duration) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(d):
		t.Fatal("timed out waiting for callbacks")
	}
}
