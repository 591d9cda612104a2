package monitor

import (
	"testing"

	"github.com/kcenon/messaging-fabric/pkg/storage"
)

func TestCompareProcessPerformanceScoresRegisteredPIDs(t *testing.T) {
	m := New(64)
	m.RegisterProcess(ProcessIdentifier{PID: 1, Name: "light"}, 16)
	m.RegisterProcess(ProcessIdentifier{PID: 2, Name: "heavy"}, 16)

	m.UpdateSystemMetrics(1, storage.SystemMetrics{CPUPercent: 10, MemBytes: 1 << 20})
	m.UpdatePoolMetrics(1, "io", storage.PoolMetrics{Workers: 2, JobsCompleted: 100})

	m.UpdateSystemMetrics(2, storage.SystemMetrics{CPUPercent: 95, MemBytes: 100 << 20})
	m.UpdatePoolMetrics(2, "io", storage.PoolMetrics{Workers: 2, JobsCompleted: 1})

	scores := m.CompareProcessPerformance([]int{1, 2})
	if len(scores) != 2 {
		t.Fatalf("expected scores for both pids, got %d", len(scores))
	}
	if scores[1].CPUEfficiency <= scores[2].CPUEfficiency {
		t.Fatalf("expected light process to have better CPU efficiency: %+v vs %+v", scores[1], scores[2])
	}
	if scores[1].ThroughputScore <= scores[2].ThroughputScore {
		t.Fatalf("expected light process to have better throughput: %+v vs %+v", scores[1], scores[2])
	}
}

func TestCompareProcessPerformanceSkipsUnregistered(t *testing.T) {
	m := New(64)
	scores := m.CompareProcessPerformance([]int{42})
	if len(scores) != 0 {
		t.Fatalf("expected no scores for unregistered pid, got %v", scores)
	}
}

func TestCPUEfficiencyClampedToZero(t *testing.T) {
	if got := cpuEfficiency(150); got != 0 {
		t.Fatalf("expected 0 for overloaded CPU, got %v", got)
	}
}

func TestMemoryEfficiencyZeroMemoryIsZero(t *testing.T) {
	if got := memoryEfficiency(10, 0); got != 0 {
		t.Fatalf("expected 0 when mem bytes is 0, got %v", got)
	}
}

func TestThroughputScoreZeroWorkersIsZero(t *testing.T) {
	if got := throughputScore(10, 0); got != 0 {
		t.Fatalf("expected 0 when workers is 0, got %v", got)
	}
}
