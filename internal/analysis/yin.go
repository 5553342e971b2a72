// SPDX-License-Identifier: MIT
package analysis

import "math"

// yin is a time-domain YIN periodicity tracker operating on one sub-frame.
// It implements the classic pipeline: squared difference function, cumulative
// mean normalized difference (CMNDF), absolute threshold search restricted to
// the configured lag range, and parabolic interpolation of the winning lag.
//
// The CMNDF value at the chosen lag doubles as a voicing measure: periodic
// signals dip close to zero, noise stays near one, so probability = 1 - CMNDF.
//
// The lag range is derived from the frequency bounds, and the correlation
// window shrinks to size - maxLag so the longest period in the range is
// actually comparable against itself. A winner sitting on the maxLag boundary
// means the true period lies beyond the range and is reported as unvoiced,
// never as a pinned boundary frequency.
type yin struct {
	sampleRate float64
	size       int     // sub-frame length in samples
	window     int     // correlation window, size - maxLag
	minLag     int     // sampleRate / maxFrequency
	maxLag     int     // sampleRate / minFrequency plus boundary headroom
	threshold  float64 // CMNDF absolute threshold
	diff       []float64
}

// minWindowDivisor bounds how far the correlation window may shrink: at
// least size/minWindowDivisor samples take part in every lag comparison.
const minWindowDivisor = 4

// newYin creates a tracker for sub-frames of the given size. maxLag carries
// two lags of headroom past the longest period so a legitimate minimum at
// sampleRate/minFreq stays off the rejection boundary.
func newYin(sampleRate float64, size int, minFreq, maxFreq, threshold float64) *yin {
	minLag := int(sampleRate / maxFreq)
	if minLag < 2 {
		minLag = 2
	}
	maxLag := int(math.Ceil(sampleRate/minFreq)) + 2
	window := size - maxLag
	if floor := size / minWindowDivisor; window < floor {
		maxLag = size - floor
		window = floor
	}
	return &yin{
		sampleRate: sampleRate,
		size:       size,
		window:     window,
		minLag:     minLag,
		maxLag:     maxLag,
		threshold:  threshold,
		diff:       make([]float64, maxLag+1),
	}
}

// track returns the fundamental frequency and voicing probability for one
// sub-frame. A probability of 0 means unvoiced (f0 is 0 in that case).
// The sub-frame must be exactly y.size samples.
func (y *yin) track(subframe []float64) (f0, probability float64) {
	if len(subframe) != y.size || y.minLag >= y.maxLag {
		return 0, 0
	}

	y.difference(subframe)
	if !y.normalize() {
		// Flat difference function: silence or DC, nothing periodic.
		return 0, 0
	}

	lag := y.bestLag()
	if lag < 0 || lag >= y.maxLag {
		// A boundary winner means the period is outside the search range.
		return 0, 0
	}

	probability = 1 - y.diff[lag]
	if probability < 0 {
		probability = 0
	}

	betterLag := y.interpolate(lag)
	if betterLag <= 0 {
		return 0, 0
	}
	return y.sampleRate / betterLag, probability
}

// difference computes the squared difference of the sub-frame with a shifted
// version of itself for every lag up to maxLag.
func (y *yin) difference(subframe []float64) {
	for lag := 0; lag <= y.maxLag; lag++ {
		sum := 0.0
		for i := 0; i < y.window; i++ {
			delta := subframe[i] - subframe[i+lag]
			sum += delta * delta
		}
		y.diff[lag] = sum
	}
}

// normalize replaces the difference function with its cumulative mean
// normalized form. Returns false when the signal carries no energy to
// normalize against.
func (y *yin) normalize() bool {
	y.diff[0] = 1
	runningSum := 0.0
	for lag := 1; lag <= y.maxLag; lag++ {
		runningSum += y.diff[lag]
		if runningSum == 0 {
			y.diff[lag] = 1
			continue
		}
		y.diff[lag] *= float64(lag) / runningSum
	}
	return runningSum > 0
}

// bestLag searches [minLag, maxLag] for the first CMNDF dip under the
// threshold, then follows it to the local minimum. When no dip crosses the
// threshold it falls back to the global minimum so the caller still gets a
// candidate with a correspondingly low voicing probability.
func (y *yin) bestLag() int {
	for lag := y.minLag; lag <= y.maxLag; lag++ {
		if y.diff[lag] < y.threshold {
			for lag+1 <= y.maxLag && y.diff[lag+1] < y.diff[lag] {
				lag++
			}
			return lag
		}
	}

	best := -1
	bestValue := math.Inf(1)
	for lag := y.minLag; lag <= y.maxLag; lag++ {
		if y.diff[lag] < bestValue {
			bestValue = y.diff[lag]
			best = lag
		}
	}
	return best
}

// interpolate refines an integer lag by fitting a parabola through the CMNDF
// values around it. Integer lags quantize the period, which at high
// frequencies costs several Hz of accuracy.
func (y *yin) interpolate(lag int) float64 {
	x0 := lag - 1
	if lag < 1 {
		x0 = lag
	}
	x2 := lag + 1
	if x2 > y.maxLag {
		x2 = lag
	}

	if x0 == lag {
		if y.diff[lag] <= y.diff[x2] {
			return float64(lag)
		}
		return float64(x2)
	}
	if x2 == lag {
		if y.diff[lag] <= y.diff[x0] {
			return float64(lag)
		}
		return float64(x0)
	}

	s0 := y.diff[x0]
	s1 := y.diff[lag]
	s2 := y.diff[x2]
	denom := 2 * (2*s1 - s2 - s0)
	if denom == 0 {
		return float64(lag)
	}
	return float64(lag) + (s2-s0)/denom
}
