package router

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kcenon/messaging-fabric/pkg/container"
	"github.com/kcenon/messaging-fabric/pkg/workerpool"
)

func newTestRouter(t *testing.T) (*Router, *workerpool.Pool) {
	t.Helper()
	pool := workerpool.NewPool("router-test", 4)
	require.True(t, pool.Start(context.Background()).IsOk())
	t.Cleanup(func() { pool.Stop(context.Background()) })
	return New(pool), pool
}

func msg(topic string) *container.Container {
	r := container.Create("src", "tgt", topic)
	c, _ := r.Value()
	return c
}

func TestWildcardMatchS1(t *testing.T) {
	r, _ := newTestRouter(t)

	var a, b, c int32
	var wg sync.WaitGroup
	track := func(counter *int32) Callback {
		return func(_ *container.Container) error {
			atomic.AddInt32(counter, 1)
			wg.Done()
			return nil
		}
	}

	r.Subscribe("event.#", track(&a))
	r.Subscribe("event.user.*", track(&b))
	r.Subscribe("event.user.login", track(&c))

	topics := []string{
		"event.user.login",
		"event.user.logout",
		"event.order.placed",
		"event.system.startup.complete",
	}
	// Expected total callback invocations: A=4, B=2, C=1 => 7
	wg.Add(7)
	for _, topic := range topics {
		require.True(t, r.Route(msg(topic)).IsOk())
	}

	waitOrFail(t, &wg, 2*time.Second)
	assert.Equal(t, int32(4), atomic.LoadInt32(&a))
	assert.Equal(t, int32(2), atomic.LoadInt32(&b))
	assert.Equal(t, int32(1), atomic.LoadInt32(&c))
}

func TestRouteWithNoSubscribersSucceeds(t *testing.T) {
	r, _ := newTestRouter(t)
	res := r.Route(msg("nobody.listens"))
	assert.True(t, res.IsOk())
}

func TestFilterPredicateExcludesNonMatching(t *testing.T) {
	r, _ := newTestRouter(t)
	var wg sync.WaitGroup
	wg.Add(1)
	var got *container.Container
	var mu sync.Mutex

	r.Subscribe("orders.created", func(m *container.Container) error {
		mu.Lock()
		got = m
		mu.Unlock()
		wg.Done()
		return nil
	}, WithFilter(func(m *container.Container) bool {
		v, _ := m.Values["region"].AsString()
		return v == "us"
	}))

	us := container.NewBuilder("a", "b", "orders.created").WithValue("region", container.String("us")).Build()
	usMsg, _ := us.Value()
	eu := container.NewBuilder("a", "b", "orders.created").WithValue("region", container.String("eu")).Build()
	euMsg, _ := eu.Value()

	require.True(t, r.Route(euMsg).IsOk())
	require.True(t, r.Route(usMsg).IsOk())

	waitOrFail(t, &wg, time.Second)
	mu.Lock()
	defer mu.Unlock()
	require.NotNil(t, got)
	region, _ := got.Values["region"].AsString()
	assert.Equal(t, "us", region)
}

func TestPriorityOrdering(t *testing.T) {
	// A single worker is required here: priority only governs submission
	// order into the executor's queue, so actual start times can still
	// interleave across multiple concurrent workers.
	pool := workerpool.NewPool("priority-test", 1)
	require.True(t, pool.Start(context.Background()).IsOk())
	t.Cleanup(func() { pool.Stop(context.Background()) })
	r := New(pool)

	var mu sync.Mutex
	var order []string
	var wg sync.WaitGroup
	wg.Add(2)

	record := func(name string) Callback {
		return func(_ *container.Container) error {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			wg.Done()
			return nil
		}
	}

	r.Subscribe("priority.test", record("low"), WithPriority(1))
	r.Subscribe("priority.test", record("high"), WithPriority(9))

	require.True(t, r.Route(msg("priority.test")).IsOk())
	waitOrFail(t, &wg, time.Second)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"high", "low"}, order)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	r, _ := newTestRouter(t)
	var called int32
	id := r.Subscribe("x.y", func(_ *container.Container) error { atomic.AddInt32(&called, 1); return nil })
	r.Unsubscribe(id)

	require.True(t, r.Route(msg("x.y")).IsOk())
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(0), atomic.LoadInt32(&called))
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
		t.Fatal("timed out waiting for expected callbacks")
	}
}
