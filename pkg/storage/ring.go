package storage

import "sync/atomic"

// Ring is a fixed-capacity, power-of-two-sized, sequence-numbered bounded
// MPMC queue of MetricsSnapshot — the classic Vyukov ring buffer algorithm.
// Enqueue/Dequeue never block: a full Enqueue or empty Dequeue simply
// returns false. No third-party lock-free queue exists in the dependency
// set this fabric draws from, so this is hand-rolled on sync/atomic.
type Ring struct {
	mask    uint64
	buf     []ringCell
	enqueue uint64 // next slot to claim for writing
	dequeue uint64 // next slot to claim for reading
}

type ringCell struct {
	seq  atomic.Uint64
	data MetricsSnapshot
}

// NewRing allocates a Ring whose capacity is the next power of two ≥ size
// (minimum 2).
func NewRing(size int) *Ring {
	cap := nextPowerOfTwo(size)
	r := &Ring{
		mask: uint64(cap - 1),
		buf:  make([]ringCell, cap),
	}
	for i := range r.buf {
		r.buf[i].seq.Store(uint64(i))
	}
	return r
}

func nextPowerOfTwo(n int) int {
	if n < 2 {
		return 2
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// Cap reports the ring's fixed capacity.
func (r *Ring) Cap() int { return len(r.buf) }

// Enqueue attempts to push v into the ring, returning false if it is full.
func (r *Ring) Enqueue(v MetricsSnapshot) bool {
	for {
		pos := atomic.LoadUint64(&r.enqueue)
		cell := &r.buf[pos&r.mask]
		seq := cell.seq.Load()
		diff := int64(seq) - int64(pos)
		switch {
		case diff == 0:
			if atomic.CompareAndSwapUint64(&r.enqueue, pos, pos+1) {
				cell.data = v
				cell.seq.Store(pos + 1)
				return true
			}
		case diff < 0:
			return false // full
		default:
			// another producer claimed this slot first; retry
		}
	}
}

// Dequeue attempts to pop the oldest value, returning false if empty.
func (r *Ring) Dequeue() (MetricsSnapshot, bool) {
	for {
		pos := atomic.LoadUint64(&r.dequeue)
		cell := &r.buf[pos&r.mask]
		seq := cell.seq.Load()
		diff := int64(seq) - int64(pos+1)
		switch {
		case diff == 0:
			if atomic.CompareAndSwapUint64(&r.dequeue, pos, pos+1) {
				v := cell.data
				cell.seq.Store(pos + uint64(len(r.buf)))
				return v, true
			}
		case diff < 0:
			var zero MetricsSnapshot
			return zero, false // empty
		default:
			// another consumer claimed this slot first; retry
		}
	}
}

// Len returns an instantaneous, best-effort count of pending items — exact
// only in the absence of concurrent writers/readers.
func (r *Ring) Len() int {
	enq := atomic.LoadUint64(&r.enqueue)
	deq := atomic.LoadUint64(&r.dequeue)
	if enq < deq {
		return 0
	}
	return int(enq - deq)
}
