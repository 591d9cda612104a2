package optimizer

import (
	"testing"
	"time"

	"github.com/kcenon/messaging-fabric/pkg/storage"
)

func TestAggregateGlobalMeanCPUSumMemory(t *testing.T) {
	for _, mode := range []AggregationMode{ModeSerial, ModeParallel} {
		agg := NewAggregator(mode)
		agg.ReportNode(NodeSnapshot{
			NodeID: "n1", Active: true, UpdatedAt: time.Now(),
			System: storage.SystemMetrics{CPUPercent: 20, MemBytes: 100},
		})
		agg.ReportNode(NodeSnapshot{
			NodeID: "n2", Active: true, UpdatedAt: time.Now(),
			System: storage.SystemMetrics{CPUPercent: 60, MemBytes: 200},
		})

		global := agg.AggregateGlobal()
		if global.GlobalCPUPercent != 40 {
			t.Fatalf("[%v] expected mean cpu 40, got %v", mode, global.GlobalCPUPercent)
		}
		if global.GlobalMemBytes != 300 {
			t.Fatalf("[%v] expected summed mem 300, got %v", mode, global.GlobalMemBytes)
		}
		if global.NodeCount != 2 {
			t.Fatalf("[%v] expected node count 2, got %d", mode, global.NodeCount)
		}
	}
}

func TestAggregateGlobalExcludesInactiveNodes(t *testing.T) {
	agg := NewAggregator(ModeSerial)
	agg.ReportNode(NodeSnapshot{NodeID: "n1", Active: true, System: storage.SystemMetrics{CPUPercent: 50}})
	agg.ReportNode(NodeSnapshot{NodeID: "n2", Active: true, System: storage.SystemMetrics{CPUPercent: 100}})
	agg.MarkInactive("n2")

	global := agg.AggregateGlobal()
	if global.NodeCount != 1 || global.GlobalCPUPercent != 50 {
		t.Fatalf("expected only active node n1 counted, got %+v", global)
	}
}

func TestAggregateGlobalUnionsPoolsLastWriterWins(t *testing.T) {
	agg := NewAggregator(ModeSerial)
	older := time.Now()
	newer := older.Add(time.Second)

	agg.ReportNode(NodeSnapshot{
		NodeID: "n1", Active: true, UpdatedAt: older,
		Pools: map[string]storage.PoolMetrics{"io": {Workers: 2}},
	})
	agg.ReportNode(NodeSnapshot{
		NodeID: "n2", Active: true, UpdatedAt: newer,
		Pools: map[string]storage.PoolMetrics{"io": {Workers: 9}},
	})

	global := agg.AggregateGlobal()
	pm, ok := global.Pools["io"]
	if !ok || pm.Workers != 9 {
		t.Fatalf("expected last-writer-wins value of 9 workers, got %+v ok=%v", pm, ok)
	}
}

func TestAggregateGlobalEmptyReturnsZeroNodeCount(t *testing.T) {
	agg := NewAggregator(ModeSerial)
	global := agg.AggregateGlobal()
	if global.NodeCount != 0 || global.GlobalCPUPercent != 0 {
		t.Fatalf("expected zero-value global snapshot, got %+v", global)
	}
}
