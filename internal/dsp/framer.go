// SPDX-License-Identifier: MIT
package dsp

// Framer extracts fixed-length overlapping analysis windows from a Ring.
// It advances by hop, not by frame: consecutive windows overlap by
// frameLength - hopLength samples.
type Framer struct {
	ring        *Ring
	frameLength int
	hopLength   int
}

// NewFramer creates a framer over ring. frameLength must not exceed the
// ring capacity or no window could ever be served; hopLength must be in
// (0, frameLength].
func NewFramer(ring *Ring, frameLength, hopLength int) *Framer {
	if frameLength <= 0 || frameLength > ring.Capacity() {
		panic("dsp: frame length must be in (0, ring capacity]")
	}
	if hopLength <= 0 || hopLength > frameLength {
		panic("dsp: hop length must be in (0, frame length]")
	}
	return &Framer{
		ring:        ring,
		frameLength: frameLength,
		hopLength:   hopLength,
	}
}

// FrameLength returns the analysis window size in samples.
func (f *Framer) FrameLength() int {
	return f.frameLength
}

// HopLength returns the window advance in samples.
func (f *Framer) HopLength() int {
	return f.hopLength
}

// Next fills dst with the next analysis window and advances the ring by the
// hop. dst must be exactly frameLength samples. It returns false when not
// enough data has accumulated yet; callers loop on it to drain backlog when
// the producer outpaces the consumer.
func (f *Framer) Next(dst []float64) bool {
	if len(dst) != f.frameLength {
		return false
	}
	if err := f.ring.PeekWindow(dst); err != nil {
		return false
	}
	f.ring.Discard(f.hopLength)
	return true
}
