// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"math/cmplx"
	"sync"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"

	"analyzer/pkg/bitint"
)

// spectrumWorkspace holds the pre-allocated FFT buffers.
type spectrumWorkspace struct {
	input     []float64    // windowed input samples
	coeffs    []complex128 // FFT complex output
	magnitude []float64    // magnitude spectrum
	window    []float64    // Hann coefficients
	mu        sync.RWMutex // protects magnitude during concurrent reads
}

// Spectrum computes the magnitude spectrum of each analysis window. The
// result feeds the presentation chart payload alongside the volume and
// frequency history; it is not part of the pitch decision.
//
// Process is called by the single analysis consumer; Magnitudes may be read
// concurrently by the publisher, hence the read lock and copy-out.
type Spectrum struct {
	fft        *fourier.FFT
	size       int
	sampleRate float64
	workspace  spectrumWorkspace
}

// NewSpectrum creates a processor for windows of size samples. The size must
// be a power of 2.
func NewSpectrum(size int, sampleRate float64) (*Spectrum, error) {
	if !bitint.IsPowerOfTwo(size) {
		return nil, fmt.Errorf("spectrum size must be a power of 2, got %d", size)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %f", sampleRate)
	}

	hann := make([]float64, size)
	for i := range hann {
		hann[i] = 1.0
	}
	window.Hann(hann)

	outputSize := size/2 + 1
	return &Spectrum{
		fft:        fourier.NewFFT(size),
		size:       size,
		sampleRate: sampleRate,
		workspace: spectrumWorkspace{
			input:     make([]float64, size),
			coeffs:    make([]complex128, outputSize),
			magnitude: make([]float64, outputSize),
			window:    hann,
		},
	}, nil
}

// Process applies the Hann window, performs the FFT and stores the magnitude
// spectrum. Allocation-free after construction.
func (s *Spectrum) Process(samples []float64) {
	s.workspace.mu.Lock()
	defer s.workspace.mu.Unlock()

	n := len(samples)
	for i := range s.workspace.input {
		if i < n {
			s.workspace.input[i] = samples[i] * s.workspace.window[i]
		} else {
			s.workspace.input[i] = 0 // zero-pad short input
		}
	}

	s.fft.Coefficients(s.workspace.coeffs, s.workspace.input)
	for i, c := range s.workspace.coeffs {
		s.workspace.magnitude[i] = cmplx.Abs(c)
	}
}

// Magnitudes returns a copy of the latest magnitude spectrum.
func (s *Spectrum) Magnitudes() []float64 {
	s.workspace.mu.RLock()
	defer s.workspace.mu.RUnlock()

	out := make([]float64, len(s.workspace.magnitude))
	copy(out, s.workspace.magnitude)
	return out
}

// MagnitudesInto copies the latest magnitude spectrum into dst, which must
// have length size/2 + 1. Exists so periodic readers can avoid allocating.
func (s *Spectrum) MagnitudesInto(dst []float64) error {
	s.workspace.mu.RLock()
	defer s.workspace.mu.RUnlock()

	if len(dst) != len(s.workspace.magnitude) {
		return fmt.Errorf("destination length %d does not match %d", len(dst), len(s.workspace.magnitude))
	}
	copy(dst, s.workspace.magnitude)
	return nil
}

// BinCount returns the number of magnitude bins (size/2 + 1).
func (s *Spectrum) BinCount() int {
	return s.size/2 + 1
}

// FrequencyForBin returns the center frequency in Hz for a bin index.
func (s *Spectrum) FrequencyForBin(bin int) float64 {
	if bin < 0 || bin >= s.size/2+1 {
		return 0
	}
	return float64(bin) * (s.sampleRate / float64(s.size))
}

// PeakFrequency returns the frequency of the strongest non-DC bin.
func (s *Spectrum) PeakFrequency() float64 {
	s.workspace.mu.RLock()
	defer s.workspace.mu.RUnlock()

	peak := 1
	for i := 2; i < len(s.workspace.magnitude); i++ {
		if s.workspace.magnitude[i] > s.workspace.magnitude[peak] {
			peak = i
		}
	}
	return float64(peak) * (s.sampleRate / float64(s.size))
}
