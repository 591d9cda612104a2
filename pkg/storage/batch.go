package storage

import (
	"context"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"golang.org/x/time/rate"

	"github.com/kcenon/messaging-fabric/pkg/logging"
)

// BatchConfig configures a BatchProcessor's batching/rate-limiting policy.
type BatchConfig struct {
	BatchSize     int
	FlushInterval time.Duration
	RateLimit     int // snapshots/sec; 0 disables rate limiting
}

// DefaultBatchConfig mirrors the batching defaults the fabric's telemetry
// path has always used.
func DefaultBatchConfig() BatchConfig {
	return BatchConfig{
		BatchSize:     100,
		FlushInterval: 100 * time.Millisecond,
		RateLimit:     1000,
	}
}

// BatchProcessor accumulates MetricsSnapshots and flushes them to onFlush
// either once BatchSize is reached or every FlushInterval, whichever comes
// first, with an optional rate limit in front of the batch, all delivered
// to a single downstream sink (typically a Tiered store's Ingest).
type BatchProcessor struct {
	cfg     BatchConfig
	onFlush func([]MetricsSnapshot)
	log     logr.Logger

	limiter *rate.Limiter
	in      chan MetricsSnapshot

	mu    sync.Mutex
	batch []MetricsSnapshot

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	skipped uint64
}

// NewBatchProcessor starts the processor's flush loop immediately; call
// Stop to drain and shut it down.
func NewBatchProcessor(cfg BatchConfig, onFlush func([]MetricsSnapshot)) *BatchProcessor {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchConfig().BatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = DefaultBatchConfig().FlushInterval
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimit)
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &BatchProcessor{
		cfg:     cfg,
		onFlush: onFlush,
		log:     logging.For(logging.ComponentStorage),
		limiter: limiter,
		in:      make(chan MetricsSnapshot, cfg.BatchSize*4),
		batch:   make([]MetricsSnapshot, 0, cfg.BatchSize),
		ctx:     ctx,
		cancel:  cancel,
	}
	p.wg.Add(1)
	go p.run()
	return p
}

// Submit enqueues snap for batching. Returns false (non-blocking, snapshot
// dropped) if the internal queue is full.
func (p *BatchProcessor) Submit(snap MetricsSnapshot) bool {
	select {
	case p.in <- snap:
		return true
	default:
		return false
	}
}

func (p *BatchProcessor) run() {
	defer p.wg.Done()
	ticker := time.NewTicker(p.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			for len(p.in) > 0 {
				p.accept(<-p.in)
			}
			p.flush()
			return
		case snap := <-p.in:
			p.accept(snap)
		case <-ticker.C:
			p.flush()
		}
	}
}

func (p *BatchProcessor) accept(snap MetricsSnapshot) {
	if p.limiter != nil && !p.limiter.Allow() {
		p.skipped++
		return
	}
	p.mu.Lock()
	p.batch = append(p.batch, snap)
	shouldFlush := len(p.batch) >= p.cfg.BatchSize
	p.mu.Unlock()
	if shouldFlush {
		p.flush()
	}
}

func (p *BatchProcessor) flush() {
	p.mu.Lock()
	if len(p.batch) == 0 {
		p.mu.Unlock()
		return
	}
	batch := p.batch
	p.batch = make([]MetricsSnapshot, 0, p.cfg.BatchSize)
	p.mu.Unlock()

	p.onFlush(batch)
}

// SkippedCount reports how many snapshots the rate limiter has dropped.
func (p *BatchProcessor) SkippedCount() uint64 { return p.skipped }

// SetBatchSize lets the optimizer's memory-pressure response halve/double
// the effective batch size at runtime.
func (p *BatchProcessor) SetBatchSize(n int) {
	if n < 1 {
		n = 1
	}
	p.mu.Lock()
	p.cfg.BatchSize = n
	p.mu.Unlock()
}

// Stop drains pending snapshots, flushes, and stops the background loop.
func (p *BatchProcessor) Stop() {
	p.cancel()
	p.wg.Wait()
}
