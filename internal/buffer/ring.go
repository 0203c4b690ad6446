// Package buffer provides a bounded ring used for recent command history.
package buffer

import (
	"sync"
)

// Ring is a thread-safe circular buffer that keeps the most recent items
// up to a fixed capacity. When the ring is full the oldest item is dropped.
type Ring[T any] struct {
	items    []T
	start    int
	count    int
	capacity int
	mu       sync.RWMutex
}

// NewRing creates a new Ring with the specified capacity.
// The capacity must be greater than 0; if not, it defaults to 1.
func NewRing[T any](capacity int) *Ring[T] {
	if capacity <= 0 {
		capacity = 1
	}
	return &Ring[T]{
		items:    make([]T, capacity),
		capacity: capacity,
	}
}

// Push appends an item, discarding the oldest one when the ring is full.
func (r *Ring[T]) Push(item T) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.count < r.capacity {
		r.items[(r.start+r.count)%r.capacity] = item
		r.count++
		return
	}

	r.items[r.start] = item
	r.start = (r.start + 1) % r.capacity
}

// Items returns a copy of the stored items, oldest first.
func (r *Ring[T]) Items() []T {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.count == 0 {
		return nil
	}

	result := make([]T, r.count)
	for i := 0; i < r.count; i++ {
		result[i] = r.items[(r.start+i)%r.capacity]
	}
	return result
}

// Last returns the newest item, if any.
func (r *Ring[T]) Last() (T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var zero T
	if r.count == 0 {
		return zero, false
	}
	return r.items[(r.start+r.count-1)%r.capacity], true
}

// Clear removes all items from the ring.
func (r *Ring[T]) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	var zero T
	for i := range r.items {
		r.items[i] = zero
	}
	r.start = 0
	r.count = 0
}

// Len returns the current number of items in the ring.
func (r *Ring[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.count
}

// Cap returns the capacity of the ring.
func (r *Ring[T]) Cap() int {
	return r.capacity
}
