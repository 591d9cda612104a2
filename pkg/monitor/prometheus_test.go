package monitor

import (
	"strconv"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/kcenon/messaging-fabric/pkg/storage"
)

func TestExporterRefreshSetsGauges(t *testing.T) {
	m := New(64)
	m.RegisterProcess(ProcessIdentifier{PID: 3, Name: "p3"}, 16)
	m.UpdateSystemMetrics(3, storage.SystemMetrics{CPUPercent: 77, MemBytes: 2 << 20})
	m.UpdatePoolMetrics(3, "io", storage.PoolMetrics{Workers: 2, JobsCompleted: 9})

	reg := prometheus.NewRegistry()
	e := NewExporter(m, reg)
	e.Refresh()

	got := gaugeValue(t, e.cpuPercent, prometheus.Labels{"pid": "3", "process": "p3"})
	if got != 77 {
		t.Fatalf("expected cpu gauge 77, got %v", got)
	}
	got = gaugeValue(t, e.jobsCompleted, prometheus.Labels{"pid": "3", "process": "p3"})
	if got != 9 {
		t.Fatalf("expected jobs completed gauge 9, got %v", got)
	}
}

func gaugeValue(t *testing.T, vec *prometheus.GaugeVec, labels prometheus.Labels) float64 {
	t.Helper()
	m := &dto.Metric{}
	if err := vec.With(labels).Write(m); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	return m.GetGauge().GetValue()
}

func TestItoaMatchesStrconv(t *testing.T) {
	cases := []int{0, 1, -1, 42, -42, 123456}
	for _, c := range cases {
		if got, want := itoa(c), strconv.Itoa(c); got != want {
			t.Fatalf("itoa(%d) = %q, want %q", c, got, want)
		}
	}
}
