// Package optimizer implements the adaptive sampler/optimizer, the
// autoscaler, and the distributed aggregator (C14). The optimizer applies
// its decisions to its own sampling rates, its batch processor's batch size
// and its tiered store's aging; the autoscaler only returns ScalingDecisions
// to its caller. Nothing in this package resizes or reconfigures a worker
// pool.
package optimizer

import (
	"math"
	"sync"
	"time"

	"github.com/go-logr/logr"

	"github.com/kcenon/messaging-fabric/pkg/logging"
	"github.com/kcenon/messaging-fabric/pkg/storage"
)

// processSampler holds one process's adaptive sampling state.
type processSampler struct {
	rate           float64
	samplesSkipped uint64
	samplesTaken   uint64
}

// Optimizer owns tiered storage, a batch processor, and per-process
// adaptive sampling state. optimize_metric is the single ingestion entry
// point: it consults the sampler first, skipping the snapshot entirely
// when declined.
type Optimizer struct {
	log logr.Logger

	mu       sync.Mutex
	samplers map[int]*processSampler
	tiered   *storage.Tiered
	batch    *storage.BatchProcessor

	batchSizeBase int
}

// NewOptimizer builds an Optimizer over an existing tiered store and batch
// processor (both owned by the caller's runtime/DI graph).
func NewOptimizer(tiered *storage.Tiered, batch *storage.BatchProcessor) *Optimizer {
	return &Optimizer{
		log:           logging.For(logging.ComponentOptimizer),
		samplers:      make(map[int]*processSampler),
		tiered:        tiered,
		batch:         batch,
		batchSizeBase: storage.DefaultBatchConfig().BatchSize,
	}
}

func (o *Optimizer) sampler(pid int) *processSampler {
	s, ok := o.samplers[pid]
	if !ok {
		s = &processSampler{rate: 1.0}
		o.samplers[pid] = s
	}
	return s
}

// OptimizeMetric is the ingestion entry point: given pid's snapshot, it
// samples according to the process's current rate (implemented
// deterministically below — a fraction rate of the snapshots is kept,
// spread evenly, so behavior is reproducible in tests) and forwards kept
// samples to the batch processor.
func (o *Optimizer) OptimizeMetric(pid int, snap storage.MetricsSnapshot) bool {
	o.mu.Lock()
	s := o.sampler(pid)
	keep := shouldSample(s)
	if !keep {
		s.samplesSkipped++
		o.mu.Unlock()
		return false
	}
	s.samplesTaken++
	o.mu.Unlock()

	if o.batch != nil {
		o.batch.Submit(snap)
	} else if o.tiered != nil {
		o.tiered.Ingest(snap)
	}
	return true
}

// shouldSample implements deterministic rate sampling: sample n (counted
// via samplesTaken+samplesSkipped, from 0) is kept when ceil((n+1)*rate)
// exceeds ceil(n*rate), so the first sample is always kept and a rate of
// 0.8 keeps 8 of every 10.
func shouldSample(s *processSampler) bool {
	if s.rate >= 1.0 {
		return true
	}
	if s.rate <= 0 {
		return false
	}
	n := float64(s.samplesTaken + s.samplesSkipped)
	return math.Ceil((n+1)*s.rate) > math.Ceil(n*s.rate)
}

// AdjustSamplingRate scales pid's sampling rate by load: 0.8x above 80,
// 1.2x below 30, clamped to [0.1, 1.0].
func (o *Optimizer) AdjustSamplingRate(pid int, load float64) float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	s := o.sampler(pid)
	switch {
	case load > 80:
		s.rate *= 0.8
	case load < 30:
		s.rate *= 1.2
	}
	s.rate = clamp(s.rate, 0.1, 1.0)
	return s.rate
}

// SamplingRate returns pid's current sampling rate (1.0 if never adjusted).
func (o *Optimizer) SamplingRate(pid int) float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.sampler(pid).rate
}

// SamplesSkipped returns how many snapshots for pid were declined by the
// sampler so far.
func (o *Optimizer) SamplesSkipped(pid int) uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.sampler(pid).samplesSkipped
}

// AdaptToMemoryPressure halves the batch size and triggers tier aging
// when p exceeds 0.8, doubles the batch size when p is below 0.3.
func (o *Optimizer) AdaptToMemoryPressure(p float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	switch {
	case p > 0.8:
		o.batchSizeBase = maxInt(1, o.batchSizeBase/2)
		if o.batch != nil {
			o.batch.SetBatchSize(o.batchSizeBase)
		}
		if o.tiered != nil {
			o.tiered.PerformAging()
		}
	case p < 0.3:
		o.batchSizeBase *= 2
		if o.batch != nil {
			o.batch.SetBatchSize(o.batchSizeBase)
		}
	}
}

// AdaptToCPULoad grows the batch flush interval by 1.5x (capped at 1s)
// when c exceeds 80, shrinks it by 0.8x (floored at 10ms) when c is
// below 30. Returns the resulting interval; callers apply it to their
// batch processor's configuration on their next construction since
// BatchProcessor's interval isn't mutable in place.
func (o *Optimizer) AdaptToCPULoad(current time.Duration, c float64) time.Duration {
	switch {
	case c > 80:
		next := time.Duration(float64(current) * 1.5)
		if next > time.Second {
			next = time.Second
		}
		return next
	case c < 30:
		next := time.Duration(float64(current) * 0.8)
		if next < 10*time.Millisecond {
			next = 10 * time.Millisecond
		}
		return next
	default:
		return current
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
