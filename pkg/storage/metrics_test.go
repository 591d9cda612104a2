package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCompressDecompressRoundTripBestEffort(t *testing.T) {
	base := time.Now()
	snap := MetricsSnapshot{
		CaptureTime: base.Add(90 * time.Second),
		System:      SystemMetrics{CPUPercent: 42.37, MemBytes: 256 * 1024 * 1024, ActiveThreads: 12},
		Pool:        PoolMetrics{JobsCompleted: 5000, JobsPending: 37, AvgLatencyNs: 12_500_000},
	}
	cm := Compress(base, snap)
	assert.Equal(t, uint32(90), cm.TimestampOffset)
	assert.Equal(t, uint16(4237), cm.CPU)
	assert.Equal(t, uint32(256), cm.MemMB)

	got := Decompress(base, cm)
	assert.Equal(t, snap.CaptureTime, got.CaptureTime)
	assert.InDelta(t, snap.System.CPUPercent, got.System.CPUPercent, 0.01)
	assert.Equal(t, snap.System.MemBytes, got.System.MemBytes)
	assert.Equal(t, snap.Pool.JobsCompleted, got.Pool.JobsCompleted)
}

func TestCompressedMetricWireRoundTrip(t *testing.T) {
	cm := CompressedMetric{
		TimestampOffset: 12345,
		CPU:             4200,
		MemMB:           512,
		Threads:         8,
		JobsDone:        99999,
		QueueDepth:      42,
		LatencyMs:       7,
	}
	b := cm.Bytes()
	assert.Len(t, b, CompressedMetricSize)
	assert.Equal(t, cm, CompressedMetricFromBytes(b[:]))
}

func TestCompressionRatioBelowThreshold(t *testing.T) {
	assert.Less(t, CompressionRatio(), 0.15)
}
