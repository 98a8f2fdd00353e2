// Package history keeps a bounded, time-ordered record of changes.
package history

// DefaultCapacity is used when a non-positive capacity is supplied.
const DefaultCapacity = 20

// Ring is a fixed-capacity circular buffer. Pushing onto a full ring drops
// the oldest item first, so Len never exceeds Cap.
//
// NOT safe for concurrent use; callers synchronize.
type Ring[T any] struct {
	data  []T
	head  int // next write position
	tail  int // oldest element
	count int
}

// NewRing creates a ring holding at most capacity items.
func NewRing[T any](capacity int) *Ring[T] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Ring[T]{data: make([]T, capacity)}
}

// Push appends item as the newest element, evicting the oldest when full.
// It reports whether an element was evicted.
func (r *Ring[T]) Push(item T) (evicted bool) {
	if r.count == len(r.data) {
		r.dropOldest()
		evicted = true
	}
	r.data[r.head] = item
	r.head = (r.head + 1) % len(r.data)
	r.count++
	return evicted
}

// PopNewest removes and returns the most recently pushed item.
func (r *Ring[T]) PopNewest() (T, bool) {
	var zero T
	if r.count == 0 {
		return zero, false
	}
	r.head = r.prev(r.head)
	item := r.data[r.head]
	r.data[r.head] = zero
	r.count--
	return item, true
}

// PeekNewest returns the most recently pushed item without removing it.
func (r *Ring[T]) PeekNewest() (T, bool) {
	var zero T
	if r.count == 0 {
		return zero, false
	}
	return r.data[r.prev(r.head)], true
}

// PeekOldest returns the oldest item without removing it.
func (r *Ring[T]) PeekOldest() (T, bool) {
	var zero T
	if r.count == 0 {
		return zero, false
	}
	return r.data[r.tail], true
}

// PurgeOldest drops items from the old end while expired reports true and
// returns how many were removed. Items are assumed to be pushed in order.
func (r *Ring[T]) PurgeOldest(expired func(item T) bool) int {
	removed := 0
	for r.count > 0 && expired(r.data[r.tail]) {
		r.dropOldest()
		removed++
	}
	return removed
}

// DropNewestWhile pops items from the new end while match reports true and
// returns how many were removed.
func (r *Ring[T]) DropNewestWhile(match func(item T) bool) int {
	removed := 0
	for r.count > 0 && match(r.data[r.prev(r.head)]) {
		r.PopNewest()
		removed++
	}
	return removed
}

// Last returns up to n items, newest first. n <= 0 returns every item.
func (r *Ring[T]) Last(n int) []T {
	if r.count == 0 {
		return nil
	}
	if n <= 0 || n > r.count {
		n = r.count
	}
	out := make([]T, n)
	idx := r.head
	for i := 0; i < n; i++ {
		idx = r.prev(idx)
		out[i] = r.data[idx]
	}
	return out
}

// Len returns the number of stored items.
func (r *Ring[T]) Len() int { return r.count }

// Cap returns the maximum number of items.
func (r *Ring[T]) Cap() int { return len(r.data) }

// Clear removes every item.
func (r *Ring[T]) Clear() {
	var zero T
	for i := range r.data {
		r.data[i] = zero
	}
	r.head, r.tail, r.count = 0, 0, 0
}

func (r *Ring[T]) dropOldest() {
	var zero T
	r.data[r.tail] = zero
	r.tail = (r.tail + 1) % len(r.data)
	r.count--
}

func (r *Ring[T]) prev(i int) int {
	if i == 0 {
		return len(r.data) - 1
	}
	return i - 1
}
