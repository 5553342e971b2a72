// SPDX-License-Identifier: MIT
/*
Package dsp implements the streaming primitives of the analysis pipeline:
a fixed-capacity sample ring buffer and the framer that slices overlapping
analysis windows out of it.

The ring is shared between exactly two goroutines: the audio producer pushes
blocks, the analysis consumer peeks and discards. Each operation takes the
internal lock, which is enough: pushes only append at the tail and never
move the head, so a push interleaved between a consumer's peek and discard
cannot corrupt the window offsets.
*/
package dsp

import (
	"errors"
	"sync"
)

// ErrInsufficientData is returned by PeekWindow when fewer samples are
// buffered than requested. It signals "not ready", not a failure.
var ErrInsufficientData = errors.New("ring: insufficient data")

// Ring is a fixed-capacity FIFO of float64 samples. When a push would exceed
// capacity the oldest samples are evicted, so memory stays bounded no matter
// how far the producer outruns the consumer.
type Ring struct {
	data []float64
	head int // index of the oldest sample
	size int // current sample count
	mu   sync.Mutex
}

// NewRing creates a ring with the given capacity in samples. The capacity
// must be at least as large as the biggest window the framer will request;
// callers size it from the frame length, never from the input block size.
func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = 1
	}
	return &Ring{data: make([]float64, capacity)}
}

// Capacity returns the fixed capacity in samples.
func (r *Ring) Capacity() int {
	return len(r.data)
}

// Available returns the current number of buffered samples.
func (r *Ring) Available() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.size
}

// Push appends a block of samples, evicting the oldest on overflow.
func (r *Ring) Push(block []float64) {
	if len(block) == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	capacity := len(r.data)

	// A block larger than the whole ring reduces to its newest tail.
	if len(block) >= capacity {
		copy(r.data, block[len(block)-capacity:])
		r.head = 0
		r.size = capacity
		return
	}

	// Evict just enough of the oldest samples to make room.
	overflow := r.size + len(block) - capacity
	if overflow > 0 {
		r.head = (r.head + overflow) % capacity
		r.size -= overflow
	}

	tail := (r.head + r.size) % capacity
	n := copy(r.data[tail:], block)
	if n < len(block) {
		copy(r.data, block[n:])
	}
	r.size += len(block)
}

// PeekWindow copies the len(dst) oldest samples into dst without consuming
// them. Returns ErrInsufficientData when the ring holds fewer samples.
func (r *Ring) PeekWindow(dst []float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(dst) > r.size {
		return ErrInsufficientData
	}

	n := copy(dst, r.data[r.head:])
	if n < len(dst) {
		copy(dst[n:], r.data)
	}
	return nil
}

// Discard removes the n oldest samples, clamped to the available count.
func (r *Ring) Discard(n int) {
	if n <= 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if n > r.size {
		n = r.size
	}
	r.head = (r.head + n) % len(r.data)
	r.size -= n
}

// Reset empties the ring.
func (r *Ring) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.head = 0
	r.size = 0
}
