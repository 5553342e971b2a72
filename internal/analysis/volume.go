// SPDX-License-Identifier: MIT
package analysis

import "math"

// Meter converts raw sample blocks into a bounded volume percentage using
// the RMS energy of the block: volume = min(100, round(rms * scale)).
//
// The input gain multiplier is applied upstream by the producer before
// samples reach the meter, so scale is the only knob here. Both are
// calibration values: too much gain saturates the meter at 100, too little
// makes it useless for quiet interfaces.
type Meter struct {
	scale float64
}

// NewMeter creates a meter with the given RMS-to-percent scale.
func NewMeter(scale float64) *Meter {
	if scale <= 0 {
		scale = 1
	}
	return &Meter{scale: scale}
}

// Volume returns the block's volume percentage in [0, 100].
func (m *Meter) Volume(block []float64) int {
	rms := RMS(block)
	if math.IsNaN(rms) {
		return 0
	}
	v := int(math.Round(rms * m.scale))
	if v > 100 {
		v = 100
	}
	if v < 0 {
		v = 0
	}
	return v
}

// RMS returns the root-mean-square energy of the block.
func RMS(block []float64) float64 {
	if len(block) == 0 {
		return 0
	}
	var sumSquare float64
	for _, sample := range block {
		sumSquare += sample * sample
	}
	return math.Sqrt(sumSquare / float64(len(block)))
}

// Peak returns the largest absolute sample value in the block. The session
// gate uses it to skip pitch estimation on silent frames.
func Peak(block []float64) float64 {
	var peak float64
	for _, sample := range block {
		if sample < 0 {
			sample = -sample
		}
		if sample > peak {
			peak = sample
		}
	}
	return peak
}
