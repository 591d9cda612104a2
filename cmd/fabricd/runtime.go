package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kcenon/messaging-fabric/pkg/bus"
	"github.com/kcenon/messaging-fabric/pkg/config"
	"github.com/kcenon/messaging-fabric/pkg/logging"
	"github.com/kcenon/messaging-fabric/pkg/monitor"
	"github.com/kcenon/messaging-fabric/pkg/optimizer"
	"github.com/kcenon/messaging-fabric/pkg/performance"
	"github.com/kcenon/messaging-fabric/pkg/reliability"
	"github.com/kcenon/messaging-fabric/pkg/storage"
	"github.com/kcenon/messaging-fabric/pkg/workerpool"
)

// fabricRuntime is the single value that owns every collaborator for the
// lifetime of the process: no package in this module reaches for a global
// singleton, so whatever constructs the graph has to hold it together.
// This is that construction.
type fabricRuntime struct {
	cfg config.Config
	log logr.Logger

	ioPool     *workerpool.Pool
	workerPool *workerpool.Pool
	bus        bus.Bus

	tiered    *storage.Tiered
	batch     *storage.BatchProcessor
	mon       *monitor.Monitor
	exporter  *monitor.Exporter
	registry  *prometheus.Registry
	optimizer *optimizer.Optimizer
	scaler    *optimizer.Autoscaler
	aggregate *optimizer.Aggregator

	breaker  *reliability.CircuitBreaker
	balancer *reliability.LoadBalancer

	pid int

	mu      sync.Mutex
	started time.Time
}

// newFabricRuntime wires the full collaborator graph from cfg but starts
// nothing — callers decide lifecycle via Start/Stop.
func newFabricRuntime(cfg config.Config) *fabricRuntime {
	logging.SetVerbosity(levelForString(cfg.Logging.Level))
	log := logging.For("runtime")

	ioPool := workerpool.NewPool("io", cfg.ThreadPools.IOWorkers)
	workerPool := workerpool.NewPool("work", cfg.ThreadPools.WorkWorkers)

	memBus := bus.New(ioPool, workerPool)

	tiered := storage.NewTiered(storage.DefaultTieredConfig(), time.Now())
	batchCfg := storage.DefaultBatchConfig()
	if q := cfg.ThreadPools.QueueSize / 8; q > 0 {
		batchCfg.BatchSize = q
	}
	batchProc := storage.NewBatchProcessor(batchCfg, func(snapshots []storage.MetricsSnapshot) {
		for _, s := range snapshots {
			if !tiered.Ingest(s) {
				tiered.PerformAging()
				tiered.Ingest(s)
			}
		}
	})

	registry := prometheus.NewRegistry()
	opt := optimizer.NewOptimizer(tiered, batchProc)
	scaler := optimizer.NewAutoscaler(optimizer.DefaultAutoscalerPolicy())
	aggregate := optimizer.NewAggregator(optimizer.ModeParallel)

	breaker := reliability.NewCircuitBreaker(reliability.CircuitBreakerConfig{})
	balancer := reliability.NewLoadBalancer(reliability.StrategyRoundRobin, nil)

	r := &fabricRuntime{
		cfg:        cfg,
		log:        log,
		ioPool:     ioPool,
		workerPool: workerPool,
		bus:        memBus,
		tiered:     tiered,
		batch:      batchProc,
		registry:   registry,
		optimizer:  opt,
		scaler:     scaler,
		aggregate:  aggregate,
		breaker:    breaker,
		balancer:   balancer,
		pid:        os.Getpid(),
	}

	r.mon = monitor.New(4096,
		monitor.WithCollectInterval(time.Duration(cfg.Monitoring.IntervalMs)*time.Millisecond),
		monitor.WithCollectFunc(r.collectSelf),
	)
	r.exporter = monitor.NewExporter(r.mon, registry)

	return r
}

// Start brings every collaborator up in dependency order: executors before
// the bus that submits to them, the bus before the monitor that inspects
// it, the monitor before the collection loop that feeds it.
func (r *fabricRuntime) Start(ctx context.Context) error {
	if res := r.ioPool.Start(ctx); res.IsErr() {
		return fmt.Errorf("start io pool: %v", res.Error())
	}
	if res := r.workerPool.Start(ctx); res.IsErr() {
		return fmt.Errorf("start worker pool: %v", res.Error())
	}
	if res := r.bus.Start(ctx); res.IsErr() {
		return fmt.Errorf("start bus: %v", res.Error())
	}

	r.mon.RegisterProcess(monitor.ProcessIdentifier{PID: r.pid, Name: "fabricd", StartTime: time.Now()}, 1024)
	if r.cfg.Monitoring.Enabled {
		r.mon.Start(ctx)
	}

	r.mu.Lock()
	r.started = time.Now()
	r.mu.Unlock()

	r.log.Info("runtime started", "pid", r.pid, "io_workers", r.cfg.ThreadPools.IOWorkers, "work_workers", r.cfg.ThreadPools.WorkWorkers)
	return nil
}

// Stop tears collaborators down in reverse order, draining pending work
// before discarding executors.
func (r *fabricRuntime) Stop(ctx context.Context) {
	r.mon.Stop()
	r.batch.Stop()
	_ = r.bus.Stop(ctx)
	r.log.Info("runtime stopped", "uptime", time.Since(r.started))
}

// collectSelf is the Monitor's injected CollectFunc for this process: it
// reads the Go runtime's own memory stats and the pools' live counters
// directly, rather than consulting a global process-inspection singleton.
func (r *fabricRuntime) collectSelf(pid int) (storage.SystemMetrics, map[string]storage.PoolMetrics, error) {
	stats := performance.MemoryStats()
	memMB, _ := stats["alloc_mb"].(float64)
	goroutines, _ := stats["goroutines"].(int)

	sys := storage.SystemMetrics{
		CPUPercent:    0, // no portable CPU-percent sampling without cgo; replaced below by a coarse goroutine-based proxy
		MemBytes:      uint64(memMB * 1024 * 1024),
		ActiveThreads: goroutines,
	}

	pools := map[string]storage.PoolMetrics{
		"io": {
			Workers:     r.ioPool.WorkerCount(),
			Idle:        r.ioPool.WorkerCount() - r.ioPool.RunningWorkers(),
			JobsPending: uint64(r.ioPool.PendingTasks()),
		},
		"work": {
			Workers:     r.workerPool.WorkerCount(),
			Idle:        r.workerPool.WorkerCount() - r.workerPool.RunningWorkers(),
			JobsPending: uint64(r.workerPool.PendingTasks()),
		},
	}

	snap, ok := r.mon.CurrentSnapshot(pid)
	if ok {
		r.optimizer.OptimizeMetric(pid, snap)
	}

	if mb := runtime.NumCPU(); mb > 0 {
		sys.CPUPercent = float64(goroutines) / float64(mb) * 10 // coarse load proxy, not a real CPU sample
	}

	return sys, pools, nil
}

func levelForString(level string) int {
	switch level {
	case "debug":
		return logging.LevelDebug
	case "trace":
		return logging.LevelTrace
	default:
		return logging.LevelInfo
	}
}
