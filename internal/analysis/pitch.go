// SPDX-License-Identifier: MIT
/*
Package analysis implements the streaming pitch and volume analysis core:
per-window pitch estimation with sub-frame voicing, note mapping against an
ordered frequency table, RMS volume metering, spectrum computation for
charting, the published analysis state, and the session that wires them to a
sample source.
*/
package analysis

import (
	"math"
	"sort"
	"sync/atomic"

	"analyzer/internal/config"
)

// Estimate is the result of analyzing one window. It is recreated for every
// window; no identity is carried across calls.
type Estimate struct {
	F0            float64   // Fundamental frequency in Hz, 0 when unvoiced
	Voiced        bool      // False when no confident sub-frame survived
	Probabilities []float64 // Per-sub-frame voicing probabilities [0,1]
	Confidence    float64   // Aggregate confidence [0,1]
}

// Estimator turns one fixed-length analysis window into an Estimate. It
// splits the window into overlapping sub-frames, tracks each with YIN, drops
// sub-frames whose voicing probability is at or below the configured floor,
// and aggregates the survivors with the median. The median holds up against
// isolated octave errors and noise spikes where a mean would drift.
//
// An Estimator is not safe for concurrent use: it owns scratch buffers and
// belongs to the single analysis consumer.
type Estimator struct {
	tracker      *yin
	frameLength  int
	subSize      int
	subHop       int
	voicingFloor float64
	bandLow      float64
	bandHigh     float64

	probs     []float64
	f0s       []float64
	survivors []float64
	failures  atomic.Uint64
}

// yinThreshold is the CMNDF dip threshold for the sub-frame tracker. It is
// intentionally looser than the classic 0.10 so borderline sub-frames still
// produce a candidate and the voicing floor does the filtering.
const yinThreshold = 0.15

// NewEstimator creates an estimator for windows of cfg.FrameLength samples
// at the given sample rate. Sub-frames are half a window with 50% overlap.
func NewEstimator(sampleRate float64, cfg config.AnalysisConfig) *Estimator {
	subSize := cfg.FrameLength / 2
	subHop := subSize / 2
	numSub := (cfg.FrameLength-subSize)/subHop + 1

	return &Estimator{
		tracker:      newYin(sampleRate, subSize, cfg.MinFrequency, cfg.MaxFrequency, yinThreshold),
		frameLength:  cfg.FrameLength,
		subSize:      subSize,
		subHop:       subHop,
		voicingFloor: cfg.VoicingFloor,
		bandLow:      cfg.BandLow,
		bandHigh:     cfg.BandHigh,
		probs:        make([]float64, 0, numSub),
		f0s:          make([]float64, 0, numSub),
		survivors:    make([]float64, 0, numSub),
	}
}

// Failures returns the number of malformed windows (wrong length, NaN or Inf
// samples) the estimator recovered from. Recovered windows are reported as
// unvoiced; the count exists so the failures stay observable.
func (e *Estimator) Failures() uint64 {
	return e.failures.Load()
}

// Estimate analyzes one window. Malformed input never propagates: a bad
// window yields an unvoiced estimate and the stream continues.
func (e *Estimator) Estimate(window []float64) Estimate {
	if len(window) != e.frameLength || !finite(window) {
		e.failures.Add(1)
		return Estimate{}
	}

	e.probs = e.probs[:0]
	e.f0s = e.f0s[:0]
	e.survivors = e.survivors[:0]

	confidenceSum := 0.0
	for start := 0; start+e.subSize <= e.frameLength; start += e.subHop {
		f0, p := e.tracker.track(window[start : start+e.subSize])
		e.probs = append(e.probs, p)
		e.f0s = append(e.f0s, f0)
		if p > e.voicingFloor && f0 > 0 {
			e.survivors = append(e.survivors, f0)
			confidenceSum += p
		}
	}

	probs := append([]float64(nil), e.probs...)
	if len(e.survivors) == 0 {
		return Estimate{Probabilities: probs}
	}

	f0 := median(e.survivors)
	if f0 < e.bandLow || f0 > e.bandHigh {
		// A confident-looking aggregate outside the instrument band is
		// an artifact, not a pitch.
		return Estimate{Probabilities: probs}
	}

	return Estimate{
		F0:            f0,
		Voiced:        true,
		Probabilities: probs,
		Confidence:    confidenceSum / float64(len(e.survivors)),
	}
}

// median sorts values in place and returns the middle element, averaging the
// two middle elements for even counts.
func median(values []float64) float64 {
	sort.Float64s(values)
	n := len(values)
	if n%2 == 1 {
		return values[n/2]
	}
	return (values[n/2-1] + values[n/2]) / 2
}

// finite reports whether every sample is a finite number.
func finite(window []float64) bool {
	for _, v := range window {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
