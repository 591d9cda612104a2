package optimizer

import (
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kcenon/messaging-fabric/pkg/storage"
)

// NodeSnapshot is one distributed node's reported metrics.
type NodeSnapshot struct {
	NodeID     string
	Active     bool
	UpdatedAt  time.Time
	System     storage.SystemMetrics
	Pools      map[string]storage.PoolMetrics
}

// GlobalSnapshot is the combined view aggregate_global() produces: global
// cpu is the arithmetic mean of active nodes' cpu, global memory is their
// sum, and per-pool maps are unioned with last-writer-wins on conflicts
// (by UpdatedAt).
type GlobalSnapshot struct {
	GlobalCPUPercent float64
	GlobalMemBytes   uint64
	Pools            map[string]storage.PoolMetrics
	NodeCount        int
}

// AggregationMode selects how Aggregator combines node snapshots.
type AggregationMode int

const (
	ModeSerial AggregationMode = iota
	ModeParallel
)

// Aggregator collects per-node snapshots and combines them into a global
// view, either serially or fanned out across worker goroutines.
type Aggregator struct {
	mu    sync.RWMutex
	nodes map[string]NodeSnapshot
	mode  AggregationMode
}

// NewAggregator builds an Aggregator using mode for aggregate_global.
func NewAggregator(mode AggregationMode) *Aggregator {
	return &Aggregator{
		nodes: make(map[string]NodeSnapshot),
		mode:  mode,
	}
}

// ReportNode records or replaces a node's snapshot.
func (a *Aggregator) ReportNode(snap NodeSnapshot) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nodes[snap.NodeID] = snap
}

// MarkInactive flags a node as inactive without removing its last
// reported snapshot.
func (a *Aggregator) MarkInactive(nodeID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if n, ok := a.nodes[nodeID]; ok {
		n.Active = false
		a.nodes[nodeID] = n
	}
}

// AggregateGlobal combines all active nodes' snapshots per the configured
// mode.
func (a *Aggregator) AggregateGlobal() GlobalSnapshot {
	a.mu.RLock()
	active := make([]NodeSnapshot, 0, len(a.nodes))
	for _, n := range a.nodes {
		if n.Active {
			active = append(active, n)
		}
	}
	a.mu.RUnlock()

	if a.mode == ModeParallel {
		return aggregateParallel(active)
	}
	return aggregateSerial(active)
}

func aggregateSerial(nodes []NodeSnapshot) GlobalSnapshot {
	out := GlobalSnapshot{Pools: make(map[string]storage.PoolMetrics)}
	updatedAt := make(map[string]time.Time)

	var cpuSum float64
	for _, n := range nodes {
		cpuSum += n.System.CPUPercent
		out.GlobalMemBytes += n.System.MemBytes
		unionPools(out.Pools, updatedAt, n)
	}
	out.NodeCount = len(nodes)
	if out.NodeCount > 0 {
		out.GlobalCPUPercent = cpuSum / float64(out.NodeCount)
	}
	return out
}

func aggregateParallel(nodes []NodeSnapshot) GlobalSnapshot {
	type partial struct {
		cpu   float64
		mem   uint64
		pools map[string]storage.PoolMetrics
		times map[string]time.Time
	}
	partials := make([]partial, len(nodes))

	var g errgroup.Group
	for i, n := range nodes {
		i, n := i, n
		g.Go(func() error {
			p := partial{
				cpu:   n.System.CPUPercent,
				mem:   n.System.MemBytes,
				pools: make(map[string]storage.PoolMetrics),
				times: make(map[string]time.Time),
			}
			unionPools(p.pools, p.times, n)
			partials[i] = p
			return nil
		})
	}
	_ = g.Wait()

	out := GlobalSnapshot{Pools: make(map[string]storage.PoolMetrics)}
	updatedAt := make(map[string]time.Time)
	var cpuSum float64
	for i, p := range partials {
		cpuSum += p.cpu
		out.GlobalMemBytes += p.mem
		for id, pm := range p.pools {
			mergeOne(out.Pools, updatedAt, id, pm, p.times[id])
		}
		_ = i
	}
	out.NodeCount = len(nodes)
	if out.NodeCount > 0 {
		out.GlobalCPUPercent = cpuSum / float64(out.NodeCount)
	}
	return out
}

func unionPools(dst map[string]storage.PoolMetrics, updatedAt map[string]time.Time, n NodeSnapshot) {
	for name, pm := range n.Pools {
		mergeOne(dst, updatedAt, name, pm, n.UpdatedAt)
	}
}

func mergeOne(dst map[string]storage.PoolMetrics, updatedAt map[string]time.Time, id string, pm storage.PoolMetrics, at time.Time) {
	if prev, ok := updatedAt[id]; ok && prev.After(at) {
		return
	}
	dst[id] = pm
	updatedAt[id] = at
}
