// Package utils provides shared test helpers: synthetic signal generators
// and a mock transport for inspecting published payloads.
package utils

import (
	"math"
	"sync"
)

// MockTransport implements the transport.Transport interface for testing by
// recording every payload instead of transmitting.
type MockTransport struct {
	mu     sync.Mutex
	sent   []any
	closed bool
}

// Send stores the payload for later inspection.
func (m *MockTransport) Send(data any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, data)
	return nil
}

// Close marks the transport closed.
func (m *MockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Sent returns a copy of everything sent so far.
func (m *MockTransport) Sent() []any {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]any, len(m.sent))
	copy(out, m.sent)
	return out
}

// Closed reports whether Close was called.
func (m *MockTransport) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// GenerateSine returns n samples of a pure sine wave.
func GenerateSine(n int, sampleRate, frequency, amplitude float64) []float64 {
	buffer := make([]float64, n)
	for i := range buffer {
		t := float64(i) / sampleRate
		buffer[i] = amplitude * math.Sin(2*math.Pi*frequency*t)
	}
	return buffer
}

// GenerateSineBlocks returns a continuous sine wave split into float32
// blocks of blockSize samples, the shape a SampleSource delivers.
func GenerateSineBlocks(total, blockSize int, sampleRate, frequency, amplitude float64) [][]float32 {
	var blocks [][]float32
	for start := 0; start < total; start += blockSize {
		n := blockSize
		if start+n > total {
			n = total - start
		}
		block := make([]float32, n)
		for i := range block {
			t := float64(start+i) / sampleRate
			block[i] = float32(amplitude * math.Sin(2*math.Pi*frequency*t))
		}
		blocks = append(blocks, block)
	}
	return blocks
}

// GenerateComplexWave returns a 440 Hz fundamental with two harmonics, a
// crude instrument-like signal for estimator robustness tests.
func GenerateComplexWave(n int, sampleRate float64) []float64 {
	buffer := make([]float64, n)
	for i := range buffer {
		t := float64(i) / sampleRate
		buffer[i] = math.Sin(2*math.Pi*440*t)*0.5 +
			math.Sin(2*math.Pi*880*t)*0.3 +
			math.Sin(2*math.Pi*1320*t)*0.2
	}
	return buffer
}

// FindPeakBin returns the index of the largest magnitude in [startBin, endBin].
func FindPeakBin(magnitudes []float64, startBin, endBin int) int {
	if len(magnitudes) == 0 {
		return 0
	}
	if startBin < 0 {
		startBin = 0
	}
	if endBin >= len(magnitudes) {
		endBin = len(magnitudes) - 1
	}

	peakBin := startBin
	for bin := startBin + 1; bin <= endBin; bin++ {
		if magnitudes[bin] > magnitudes[peakBin] {
			peakBin = bin
		}
	}
	return peakBin
}
