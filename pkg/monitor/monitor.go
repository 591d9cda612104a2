// Package monitor implements the multi-process monitor (C12): per-process,
// per-pool health tracking backed by the storage package's ring buffers and
// fed by a background collection loop. Its snapshots are read by its
// caller; the analytics and optimizer packages do not reference it.
package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/go-logr/logr"

	"github.com/kcenon/messaging-fabric/pkg/logging"
	"github.com/kcenon/messaging-fabric/pkg/storage"
)

// ProcessIdentifier names one monitored process.
type ProcessIdentifier struct {
	PID       int
	Name      string
	StartTime time.Time
}

// PoolIdentifier names one worker pool within a monitored process.
type PoolIdentifier struct {
	Process    ProcessIdentifier
	PoolName   string
	InstanceID string
}

// processState is the mutex-protected state block for one registered
// process: its latest system metrics, per-pool metrics, per-worker metrics,
// and a ring of recent raw snapshots. Writers are the Update* methods;
// readers are the collection loop and ad-hoc queries — hence RWMutex.
type processState struct {
	mu      sync.RWMutex
	ident   ProcessIdentifier
	enabled bool
	system  storage.SystemMetrics
	pools   map[string]storage.PoolMetrics
	workers map[string]map[string]storage.WorkerMetrics // poolName -> workerID -> metrics
	ring    *storage.Ring
}

// CollectFunc supplies fresh system/pool/worker metrics for pid when the
// collection loop wakes. Monitor has no built-in notion of OS process
// inspection — this is injected so tests and callers decide how metrics
// are actually gathered (replacing a global thread_integration_manager
// singleton with explicit dependency injection).
type CollectFunc func(pid int) (storage.SystemMetrics, map[string]storage.PoolMetrics, error)

// Monitor registers processes and pools and periodically snapshots their
// metrics into per-process and global ring buffers.
type Monitor struct {
	log logr.Logger

	mu         sync.RWMutex
	processes  map[int]*processState
	globalRing *storage.Ring

	interval time.Duration
	collect  CollectFunc

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option configures a Monitor at construction time.
type Option func(*Monitor)

// WithCollectInterval overrides the default 5-second collection cadence.
func WithCollectInterval(d time.Duration) Option {
	return func(m *Monitor) { m.interval = d }
}

// WithCollectFunc installs the function the background loop calls to
// gather fresh metrics for each enabled process.
func WithCollectFunc(fn CollectFunc) Option {
	return func(m *Monitor) { m.collect = fn }
}

// New constructs a Monitor. globalRingSize bounds the cross-process ring
// that every collected snapshot is also pushed into.
func New(globalRingSize int, opts ...Option) *Monitor {
	m := &Monitor{
		log:        logging.For(logging.ComponentMonitor),
		processes:  make(map[int]*processState),
		globalRing: storage.NewRing(globalRingSize),
		interval:   5 * time.Second,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// RegisterProcess adds pid to the monitored set with its own per-process
// ring, enabled by default.
func (m *Monitor) RegisterProcess(ident ProcessIdentifier, ringSize int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.processes[ident.PID] = &processState{
		ident:   ident,
		enabled: true,
		pools:   make(map[string]storage.PoolMetrics),
		workers: make(map[string]map[string]storage.WorkerMetrics),
		ring:    storage.NewRing(ringSize),
	}
}

// SetEnabled controls whether pid is snapshotted by the collection loop.
func (m *Monitor) SetEnabled(pid int, enabled bool) {
	m.mu.RLock()
	ps, ok := m.processes[pid]
	m.mu.RUnlock()
	if !ok {
		return
	}
	ps.mu.Lock()
	ps.enabled = enabled
	ps.mu.Unlock()
}

// UnregisterProcess removes pid from the monitored set.
func (m *Monitor) UnregisterProcess(pid int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.processes, pid)
}

// RegisteredPIDs lists every currently registered process id.
func (m *Monitor) RegisteredPIDs() []int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	pids := make([]int, 0, len(m.processes))
	for pid := range m.processes {
		pids = append(pids, pid)
	}
	return pids
}

// UpdateSystemMetrics records fresh system-level metrics for pid.
func (m *Monitor) UpdateSystemMetrics(pid int, sm storage.SystemMetrics) {
	ps := m.state(pid)
	if ps == nil {
		return
	}
	ps.mu.Lock()
	ps.system = sm
	ps.mu.Unlock()
}

// UpdatePoolMetrics records fresh metrics for one pool of pid.
func (m *Monitor) UpdatePoolMetrics(pid int, poolName string, pm storage.PoolMetrics) {
	ps := m.state(pid)
	if ps == nil {
		return
	}
	ps.mu.Lock()
	ps.pools[poolName] = pm
	ps.mu.Unlock()
}

// UpdateWorkerMetrics records fresh metrics for one worker within a pool.
func (m *Monitor) UpdateWorkerMetrics(pid int, poolName, workerID string, wm storage.WorkerMetrics) {
	ps := m.state(pid)
	if ps == nil {
		return
	}
	ps.mu.Lock()
	if ps.workers[poolName] == nil {
		ps.workers[poolName] = make(map[string]storage.WorkerMetrics)
	}
	ps.workers[poolName][workerID] = wm
	ps.mu.Unlock()
}

func (m *Monitor) state(pid int) *processState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.processes[pid]
}

// snapshot builds a MetricsSnapshot from pid's current state and pushes it
// into both the per-process ring and the global ring.
func (m *Monitor) snapshot(pid int) (storage.MetricsSnapshot, bool) {
	ps := m.state(pid)
	if ps == nil {
		return storage.MetricsSnapshot{}, false
	}

	ps.mu.RLock()
	snap := storage.MetricsSnapshot{
		CaptureTime: time.Now(),
		System:      ps.system,
		Workers:     make(map[string]storage.WorkerMetrics),
	}
	var pooled storage.PoolMetrics
	for _, pm := range ps.pools {
		pooled.Workers += pm.Workers
		pooled.Idle += pm.Idle
		pooled.JobsCompleted += pm.JobsCompleted
		pooled.JobsPending += pm.JobsPending
		pooled.JobsFailed += pm.JobsFailed
	}
	snap.Pool = pooled
	for _, workers := range ps.workers {
		for id, wm := range workers {
			snap.Workers[id] = wm
		}
	}
	ps.mu.RUnlock()

	ps.ring.Enqueue(snap)
	m.globalRing.Enqueue(snap)
	return snap, true
}

// CurrentSnapshot computes pid's snapshot from its latest recorded metrics.
// Like every snapshot, it is also pushed into the per-process and global
// rings.
func (m *Monitor) CurrentSnapshot(pid int) (storage.MetricsSnapshot, bool) {
	return m.snapshot(pid)
}

// MultiProcessSnapshot enumerates every registered process (and its pools)
// and returns each one's current snapshot.
func (m *Monitor) MultiProcessSnapshot() map[ProcessIdentifier]storage.MetricsSnapshot {
	m.mu.RLock()
	idents := make([]ProcessIdentifier, 0, len(m.processes))
	for _, ps := range m.processes {
		idents = append(idents, ps.ident)
	}
	m.mu.RUnlock()

	out := make(map[ProcessIdentifier]storage.MetricsSnapshot, len(idents))
	for _, ident := range idents {
		if snap, ok := m.snapshot(ident.PID); ok {
			out[ident] = snap
		}
	}
	return out
}

// PoolMetricsFor returns the current metrics for one pool of pid.
func (m *Monitor) PoolMetricsFor(pid int, poolName string) (storage.PoolMetrics, bool) {
	ps := m.state(pid)
	if ps == nil {
		return storage.PoolMetrics{}, false
	}
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	pm, ok := ps.pools[poolName]
	return pm, ok
}
