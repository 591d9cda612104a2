package storage

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingRoundsUpToPowerOfTwo(t *testing.T) {
	r := NewRing(10)
	assert.Equal(t, 16, r.Cap())
}

func TestRingEnqueueDequeueFIFO(t *testing.T) {
	r := NewRing(4)
	now := time.Now()
	for i := 0; i < 4; i++ {
		require.True(t, r.Enqueue(MetricsSnapshot{CaptureTime: now.Add(time.Duration(i) * time.Second)}))
	}
	assert.False(t, r.Enqueue(MetricsSnapshot{})) // full

	for i := 0; i < 4; i++ {
		v, ok := r.Dequeue()
		require.True(t, ok)
		assert.Equal(t, now.Add(time.Duration(i)*time.Second), v.CaptureTime)
	}
	_, ok := r.Dequeue()
	assert.False(t, ok) // empty
}

func TestRingConcurrentProducersConsumers(t *testing.T) {
	r := NewRing(64)
	const n = 2000
	var wg sync.WaitGroup
	wg.Add(4)
	for p := 0; p < 2; p++ {
		go func() {
			defer wg.Done()
			for i := 0; i < n/2; i++ {
				for !r.Enqueue(MetricsSnapshot{}) {
				}
			}
		}()
	}
	received := make(chan int, n)
	for c := 0; c < 2; c++ {
		go func() {
			defer wg.Done()
			count := 0
			for count < n/2 {
				if _, ok := r.Dequeue(); ok {
					count++
				}
			}
			received <- count
		}()
	}
	wg.Wait()
	close(received)
	total := 0
	for c := range received {
		total += c
	}
	assert.Equal(t, n, total)
}
