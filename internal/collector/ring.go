// Sitelens - Visitor Telemetry and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sitelens

package collector

// Ring is a fixed-capacity circular buffer. When full, each write evicts
// the oldest entry. Ring is not safe for concurrent use; the Collector
// guards it with its own mutex.
type Ring[T any] struct {
	entries  []T
	capacity int
	head     int   // index of the next write
	total    int64 // entries ever written
}

// NewRing returns an empty ring with the given capacity (minimum 1).
func NewRing[T any](capacity int) *Ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring[T]{entries: make([]T, 0, capacity), capacity: capacity}
}

// Push appends entry, evicting the oldest entry when full.
func (r *Ring[T]) Push(entry T) {
	if len(r.entries) < r.capacity {
		r.entries = append(r.entries, entry)
	} else {
		r.entries[r.head] = entry
	}
	r.head = (r.head + 1) % r.capacity
	r.total++
}

// Len returns the number of stored entries, never more than Cap.
func (r *Ring[T]) Len() int {
	return len(r.entries)
}

// Cap returns the capacity.
func (r *Ring[T]) Cap() int {
	return r.capacity
}

// Total returns how many entries were ever pushed.
func (r *Ring[T]) Total() int64 {
	return r.total
}

// Items returns the stored entries, oldest first.
func (r *Ring[T]) Items() []T {
	if len(r.entries) == 0 {
		return nil
	}
	out := make([]T, len(r.entries))
	if len(r.entries) < r.capacity {
		copy(out, r.entries)
		return out
	}
	n := copy(out, r.entries[r.head:])
	copy(out[n:], r.entries[:r.head])
	return out
}

// Reset drops all entries.
func (r *Ring[T]) Reset() {
	r.entries = r.entries[:0]
	r.head = 0
	r.total = 0
}
