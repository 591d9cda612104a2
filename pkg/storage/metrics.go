// Package storage implements the ring/compressed/tiered storage (C11): the
// Ring buffer the monitor keeps its snapshots in, the hot/warm/cold Tiered
// store, and the batch processor that decides when snapshots actually get
// written versus just accumulated. The monitor does not write into a
// Tiered store; snapshots reach one only through a caller such as the
// optimizer's batch processor.
package storage

import "time"

// SystemMetrics is the OS-level slice of a MetricsSnapshot.
type SystemMetrics struct {
	CPUPercent    float64
	MemBytes      uint64
	ActiveThreads int
}

// PoolMetrics is the pool-level slice of a MetricsSnapshot.
type PoolMetrics struct {
	Workers       int
	Idle          int
	JobsCompleted uint64
	JobsPending   uint64
	JobsFailed    uint64
	AvgLatencyNs  uint64
}

// WorkerMetrics tracks a single worker's lifetime counters.
type WorkerMetrics struct {
	JobsProcessed uint64
	ProcTimeNs    uint64
	IdleTimeNs    uint64
}

// MetricsSnapshot is a single point-in-time capture of one process's health:
// system resource use, pool-level throughput, and per-worker detail.
type MetricsSnapshot struct {
	CaptureTime time.Time
	System      SystemMetrics
	Pool        PoolMetrics
	Workers     map[string]WorkerMetrics
}

// CompressedMetric is the fixed 20-byte lossy encoding of a MetricsSnapshot,
// relative to a base timestamp recorded once per storage instance. Field
// order and widths are load-bearing: the on-disk/on-wire layout is exactly
// timestamp_offset(u32) | cpu(u16) | mem_mb(u32) | threads(u16) |
// jobs_done(u32) | queue_depth(u16) | latency_ms(u16), little-endian.
type CompressedMetric struct {
	TimestampOffset uint32 // seconds since the storage's base timestamp
	CPU             uint16 // 0.01% units, e.g. 4250 == 42.50%
	MemMB           uint32
	Threads         uint16
	JobsDone        uint32
	QueueDepth      uint16
	LatencyMs       uint16
}

// CompressedMetricSize is sizeof(CompressedMetric) in its packed wire form.
const CompressedMetricSize = 4 + 2 + 4 + 2 + 4 + 2 + 2 // 20

// Compress lossily encodes snap relative to base: cpu to 0.01% granularity,
// mem to MB granularity, latency to ms granularity. Values that overflow
// their field width saturate rather than wrap.
func Compress(base time.Time, snap MetricsSnapshot) CompressedMetric {
	offset := snap.CaptureTime.Sub(base).Seconds()
	return CompressedMetric{
		TimestampOffset: saturateU32(offset),
		CPU:             saturateU16(snap.System.CPUPercent * 100),
		MemMB:           saturateU32(float64(snap.System.MemBytes) / (1024 * 1024)),
		Threads:         saturateU16(float64(snap.System.ActiveThreads)),
		JobsDone:        uint32(saturateU32(float64(snap.Pool.JobsCompleted))),
		QueueDepth:      saturateU16(float64(snap.Pool.JobsPending)),
		LatencyMs:       saturateU16(float64(snap.Pool.AvgLatencyNs) / 1e6),
	}
}

// Decompress re-inflates a CompressedMetric's best-effort values back into a
// MetricsSnapshot shell; per-worker detail was never encoded and comes back
// empty.
func Decompress(base time.Time, cm CompressedMetric) MetricsSnapshot {
	return MetricsSnapshot{
		CaptureTime: base.Add(time.Duration(cm.TimestampOffset) * time.Second),
		System: SystemMetrics{
			CPUPercent:    float64(cm.CPU) / 100,
			MemBytes:      uint64(cm.MemMB) * 1024 * 1024,
			ActiveThreads: int(cm.Threads),
		},
		Pool: PoolMetrics{
			JobsCompleted: uint64(cm.JobsDone),
			JobsPending:   uint64(cm.QueueDepth),
			AvgLatencyNs:  uint64(cm.LatencyMs) * 1e6,
		},
	}
}

func saturateU32(v float64) uint32 {
	if v < 0 {
		return 0
	}
	if v > float64(^uint32(0)) {
		return ^uint32(0)
	}
	return uint32(v)
}

func saturateU16(v float64) uint16 {
	if v < 0 {
		return 0
	}
	if v > float64(^uint16(0)) {
		return ^uint16(0)
	}
	return uint16(v)
}
