// Package stream keeps bounded sliding windows of generated real-time
// samples. A Ring is a fixed-capacity FIFO; a Feed drives several
// independent series, each on its own randomized timer.
package stream

// Ring is a fixed-capacity circular buffer. Pushing into a full ring evicts
// the oldest item.
//
// Ring is not safe for concurrent use; Feed guards each of its rings.
type Ring[T any] struct {
	data    []T
	head    int // next write position
	count   int
	dropped uint64
}

// NewRing returns an empty ring holding at most capacity items. A capacity
// below 1 is raised to 1.
func NewRing[T any](capacity int) *Ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring[T]{data: make([]T, capacity)}
}

// Push appends item, evicting the oldest item when the ring is full.
func (r *Ring[T]) Push(item T) {
	r.data[r.head] = item
	r.head = (r.head + 1) % len(r.data)
	if r.count == len(r.data) {
		r.dropped++
		return
	}
	r.count++
}

// Snapshot returns a copy of the items from oldest to newest.
func (r *Ring[T]) Snapshot() []T {
	out := make([]T, r.count)
	if r.count == 0 {
		return out
	}
	tail := (r.head - r.count + len(r.data)) % len(r.data)
	n := copy(out, r.data[tail:min(tail+r.count, len(r.data))])
	copy(out[n:], r.data[:r.count-n])
	return out
}

// Len returns the number of items held.
func (r *Ring[T]) Len() int { return r.count }

// Cap returns the capacity.
func (r *Ring[T]) Cap() int { return len(r.data) }

// Dropped returns how many items were evicted since the last Reset.
func (r *Ring[T]) Dropped() uint64 { return r.dropped }

// Reset empties the ring.
func (r *Ring[T]) Reset() {
	clear(r.data)
	r.head, r.count, r.dropped = 0, 0, 0
}
