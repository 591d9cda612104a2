package monitor

import (
	"context"
	"testing"
	"time"

	"github.com/kcenon/messaging-fabric/pkg/storage"
)

func TestRegisterProcessDefaultsEnabled(t *testing.T) {
	m := New(64)
	m.RegisterProcess(ProcessIdentifier{PID: 1, Name: "p1", StartTime: time.Now()}, 16)

	pids := m.RegisteredPIDs()
	if len(pids) != 1 || pids[0] != 1 {
		t.Fatalf("expected [1], got %v", pids)
	}
}

func TestSetEnabledUnknownPIDIsNoop(t *testing.T) {
	m := New(64)
	m.SetEnabled(999, false) // must not panic
}

func TestUnregisterProcessRemovesIt(t *testing.T) {
	m := New(64)
	m.RegisterProcess(ProcessIdentifier{PID: 1, Name: "p1"}, 16)
	m.UnregisterProcess(1)

	if pids := m.RegisteredPIDs(); len(pids) != 0 {
		t.Fatalf("expected no pids after unregister, got %v", pids)
	}
}

func TestUpdateAndSnapshotAggregatesPools(t *testing.T) {
	m := New(64)
	m.RegisterProcess(ProcessIdentifier{PID: 1, Name: "p1"}, 16)

	m.UpdateSystemMetrics(1, storage.SystemMetrics{CPUPercent: 42, MemBytes: 1024, ActiveThreads: 4})
	m.UpdatePoolMetrics(1, "io", storage.PoolMetrics{Workers: 2, Idle: 1, JobsCompleted: 10, JobsPending: 1})
	m.UpdatePoolMetrics(1, "worker", storage.PoolMetrics{Workers: 4, Idle: 2, JobsCompleted: 20, JobsPending: 2})
	m.UpdateWorkerMetrics(1, "io", "w0", storage.WorkerMetrics{JobsProcessed: 5})

	snap, ok := m.CurrentSnapshot(1)
	if !ok {
		t.Fatal("expected snapshot ok")
	}
	if snap.System.CPUPercent != 42 {
		t.Fatalf("expected CPUPercent 42, got %v", snap.System.CPUPercent)
	}
	if snap.Pool.Workers != 6 {
		t.Fatalf("expected 6 aggregated workers, got %d", snap.Pool.Workers)
	}
	if snap.Pool.JobsCompleted != 30 {
		t.Fatalf("expected 30 aggregated jobs completed, got %d", snap.Pool.JobsCompleted)
	}
	if _, ok := snap.Workers["w0"]; !ok {
		t.Fatal("expected worker w0 in flattened worker map")
	}
}

func TestMultiProcessSnapshotEnumeratesAll(t *testing.T) {
	m := New(64)
	m.RegisterProcess(ProcessIdentifier{PID: 1, Name: "p1"}, 16)
	m.RegisterProcess(ProcessIdentifier{PID: 2, Name: "p2"}, 16)
	m.UpdateSystemMetrics(1, storage.SystemMetrics{CPUPercent: 10})
	m.UpdateSystemMetrics(2, storage.SystemMetrics{CPUPercent: 20})

	all := m.MultiProcessSnapshot()
	if len(all) != 2 {
		t.Fatalf("expected 2 snapshots, got %d", len(all))
	}
}

func TestPoolMetricsForReturnsStoredValue(t *testing.T) {
	m := New(64)
	m.RegisterProcess(ProcessIdentifier{PID: 1, Name: "p1"}, 16)
	m.UpdatePoolMetrics(1, "io", storage.PoolMetrics{Workers: 3})

	pm, ok := m.PoolMetricsFor(1, "io")
	if !ok || pm.Workers != 3 {
		t.Fatalf("expected pool metrics with 3 workers, got %+v ok=%v", pm, ok)
	}

	if _, ok := m.PoolMetricsFor(1, "missing"); ok {
		t.Fatal("expected not-ok for unknown pool")
	}
}

func TestCollectionLoopCallsCollectFunc(t *testing.T) {
	calls := make(chan int, 8)
	collect := func(pid int) (storage.SystemMetrics, map[string]storage.PoolMetrics, error) {
		calls <- pid
		return storage.SystemMetrics{CPUPercent: 5}, map[string]storage.PoolMetrics{
			"io": {Workers: 1, JobsCompleted: 1},
		}, nil
	}

	m := New(64, WithCollectInterval(10*time.Millisecond), WithCollectFunc(collect))
	m.RegisterProcess(ProcessIdentifier{PID: 7, Name: "p7"}, 16)

	m.Start(context.Background())
	defer m.Stop()

	select {
	case pid := <-calls:
		if pid != 7 {
			t.Fatalf("expected collect called with pid 7, got %d", pid)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for collect call")
	}

	snap, ok := m.CurrentSnapshot(7)
	if !ok {
		t.Fatal("expected snapshot after collection round")
	}
	if snap.System.CPUPercent != 5 {
		t.Fatalf("expected CPUPercent 5 after collection, got %v", snap.System.CPUPercent)
	}
}

func TestCollectionLoopSkipsDisabledProcess(t *testing.T) {
	calls := make(chan int, 8)
	collect := func(pid int) (storage.SystemMetrics, map[string]storage.PoolMetrics, error) {
		calls <- pid
		return storage.SystemMetrics{}, nil, nil
	}

	m := New(64, WithCollectInterval(10*time.Millisecond), WithCollectFunc(collect))
	m.RegisterProcess(ProcessIdentifier{PID: 1, Name: "p1"}, 16)
	m.SetEnabled(1, false)

	m.Start(context.Background())
	defer m.Stop()

	select {
	case <-calls:
		t.Fatal("collect should not be called for a disabled process")
	case <-time.After(100 * time.Millisecond):
	}
}
