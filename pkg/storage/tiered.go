package storage

import (
	"sort"
	"sync"
	"time"

	"github.com/go-logr/logr"

	"github.com/kcenon/messaging-fabric/pkg/logging"
)

// TieredConfig sizes a Tiered store's hot/warm/cold pipeline.
type TieredConfig struct {
	// HotCapacity is the hot ring's size (rounded up to a power of two).
	HotCapacity int
	// AgingThreshold is the hot-tier occupancy (item count) at which
	// PerformAging starts moving the older half into warm.
	AgingThreshold int
	// WarmMaxAge is how long an entry stays in warm before PerformAging
	// moves it to cold.
	WarmMaxAge time.Duration
}

// DefaultTieredConfig mirrors typical monitor polling cadences: a few
// minutes of raw snapshots hot, an hour of compressed history warm.
func DefaultTieredConfig() TieredConfig {
	return TieredConfig{
		HotCapacity:    1024,
		AgingThreshold: 768,
		WarmMaxAge:     time.Hour,
	}
}

type warmEntry struct {
	agedAt time.Time
	metric CompressedMetric
}

// Tiered implements the storage tier (C11): an in-memory hot ring of raw
// MetricsSnapshots, a warm tier of recently-compressed metrics, and a cold
// tier of older compressed metrics. PerformAging moves data hot→warm;
// entries older than WarmMaxAge move warm→cold on the same call.
type Tiered struct {
	cfg  TieredConfig
	hot  *Ring
	base time.Time
	log  logr.Logger

	mu   sync.RWMutex
	warm []warmEntry
	cold []CompressedMetric
}

// NewTiered constructs a Tiered store with base as the reference timestamp
// for compressed-metric offsets.
func NewTiered(cfg TieredConfig, base time.Time) *Tiered {
	return &Tiered{
		cfg:  cfg,
		hot:  NewRing(cfg.HotCapacity),
		base: base,
		log:  logging.For(logging.ComponentStorage),
	}
}

// Ingest pushes a fresh snapshot into the hot tier, returning false if the
// hot ring is full (caller should PerformAging and retry, or drop).
func (t *Tiered) Ingest(snap MetricsSnapshot) bool {
	return t.hot.Enqueue(snap)
}

// PerformAging moves the older half of the hot tier (rounded up, so a
// single entry moves too) into warm (compressed) once hot occupancy crosses
// cfg.AgingThreshold, then demotes any warm entries older than
// cfg.WarmMaxAge into cold.
func (t *Tiered) PerformAging() {
	if t.hot.Len() >= t.cfg.AgingThreshold {
		toMove := (t.hot.Len() + 1) / 2
		moved := make([]warmEntry, 0, toMove)
		now := time.Now()
		for i := 0; i < toMove; i++ {
			snap, ok := t.hot.Dequeue()
			if !ok {
				break
			}
			moved = append(moved, warmEntry{agedAt: now, metric: Compress(t.base, snap)})
		}
		t.mu.Lock()
		t.warm = append(t.warm, moved...)
		t.mu.Unlock()
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	cutoff := time.Now().Add(-t.cfg.WarmMaxAge)
	i := 0
	for ; i < len(t.warm); i++ {
		if t.warm[i].agedAt.After(cutoff) {
			break
		}
		t.cold = append(t.cold, t.warm[i].metric)
	}
	t.warm = t.warm[i:]
}

// Retrieve returns one compressed metric, decompressed back to a
// MetricsSnapshot, checking warm first, then cold. In warm it picks the
// first entry aged after at (else the newest); in cold, the first entry
// whose timestamp offset is at or after at (else the last). It returns
// false only when both tiers are empty; no maximum distance from at is
// applied.
func (t *Tiered) Retrieve(at time.Time) (MetricsSnapshot, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if cm, ok := nearest(t.warm, at); ok {
		return Decompress(t.base, cm), true
	}
	if cm, ok := nearestCold(t.cold, t.base, at); ok {
		return Decompress(t.base, cm), true
	}
	return MetricsSnapshot{}, false
}

func nearest(entries []warmEntry, at time.Time) (CompressedMetric, bool) {
	if len(entries) == 0 {
		return CompressedMetric{}, false
	}
	idx := sort.Search(len(entries), func(i int) bool { return entries[i].agedAt.After(at) })
	if idx == len(entries) {
		idx--
	}
	return entries[idx].metric, true
}

func nearestCold(cold []CompressedMetric, base, at time.Time) (CompressedMetric, bool) {
	if len(cold) == 0 {
		return CompressedMetric{}, false
	}
	targetOffset := uint32(at.Sub(base).Seconds())
	idx := sort.Search(len(cold), func(i int) bool { return cold[i].TimestampOffset >= targetOffset })
	if idx == len(cold) {
		idx--
	}
	return cold[idx], true
}

// MemoryStats reports approximate byte usage per tier.
type MemoryStats struct {
	HotBytes  int
	WarmBytes int
	ColdBytes int
}

// GetMemoryStats returns per-tier byte usage: hot is sized by ring capacity
// (raw MetricsSnapshot is not fixed-width, so this is the ring's backing
// array footprint, not live occupancy), warm/cold by their fixed-width
// CompressedMetric entries.
func (t *Tiered) GetMemoryStats() MemoryStats {
	t.mu.RLock()
	defer t.mu.RUnlock()
	const approxSnapshotBytes = 256 // rough: system+pool scalars + small worker map
	return MemoryStats{
		HotBytes:  t.hot.Cap() * approxSnapshotBytes,
		WarmBytes: len(t.warm) * CompressedMetricSize,
		ColdBytes: len(t.cold) * CompressedMetricSize,
	}
}

// CompressionRatio reports sizeof(CompressedMetric)/sizeof(MetricsSnapshot)
// using the same approximate snapshot size as GetMemoryStats, for the <0.15
// invariant the storage tier must hold in practice.
func CompressionRatio() float64 {
	const approxSnapshotBytes = 256
	return float64(CompressedMetricSize) / float64(approxSnapshotBytes)
}
