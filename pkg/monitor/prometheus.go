package monitor

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kcenon/messaging-fabric/pkg/storage"
)

// Exporter publishes every registered process's current snapshot as
// Prometheus gauges, for external scraping alongside the monitor's own
// in-process query API.
type Exporter struct {
	m *Monitor

	cpuPercent    *prometheus.GaugeVec
	memBytes      *prometheus.GaugeVec
	activeThreads *prometheus.GaugeVec
	jobsCompleted *prometheus.GaugeVec
	jobsPending   *prometheus.GaugeVec
	jobsFailed    *prometheus.GaugeVec
	avgLatencyNs  *prometheus.GaugeVec
}

// NewExporter builds an Exporter and registers its collectors with reg.
func NewExporter(m *Monitor, reg prometheus.Registerer) *Exporter {
	labels := []string{"pid", "process"}
	e := &Exporter{
		m:             m,
		cpuPercent:    prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: "fabric_process_cpu_percent"}, labels),
		memBytes:      prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: "fabric_process_mem_bytes"}, labels),
		activeThreads: prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: "fabric_process_active_threads"}, labels),
		jobsCompleted: prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: "fabric_pool_jobs_completed"}, labels),
		jobsPending:   prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: "fabric_pool_jobs_pending"}, labels),
		jobsFailed:    prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: "fabric_pool_jobs_failed"}, labels),
		avgLatencyNs:  prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: "fabric_pool_avg_latency_ns"}, labels),
	}
	reg.MustRegister(e.cpuPercent, e.memBytes, e.activeThreads, e.jobsCompleted, e.jobsPending, e.jobsFailed, e.avgLatencyNs)
	return e
}

// Refresh recomputes every registered process's snapshot and updates the
// exported gauges. Callers typically invoke this from the same cadence as
// a Prometheus scrape, or once per monitor collection round.
func (e *Exporter) Refresh() {
	for ident, snap := range e.m.MultiProcessSnapshot() {
		e.set(ident, snap)
	}
}

func (e *Exporter) set(ident ProcessIdentifier, snap storage.MetricsSnapshot) {
	labels := prometheus.Labels{"pid": itoa(ident.PID), "process": ident.Name}
	e.cpuPercent.With(labels).Set(snap.System.CPUPercent)
	e.memBytes.With(labels).Set(float64(snap.System.MemBytes))
	e.activeThreads.With(labels).Set(float64(snap.System.ActiveThreads))
	e.jobsCompleted.With(labels).Set(float64(snap.Pool.JobsCompleted))
	e.jobsPending.With(labels).Set(float64(snap.Pool.JobsPending))
	e.jobsFailed.With(labels).Set(float64(snap.Pool.JobsFailed))
	e.avgLatencyNs.With(labels).Set(float64(snap.Pool.AvgLatencyNs))
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
