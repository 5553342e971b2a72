// SPDX-License-Identifier: MIT
package analysis

import (
	"math"
	"testing"

	"analyzer/internal/config"
	"analyzer/pkg/utils"
)

const (
	testSampleRate  = 44100.0
	testFrameLength = 2048
)

func newTestEstimator() *Estimator {
	cfg := config.NewConfig()
	return NewEstimator(testSampleRate, cfg.Analysis)
}

func TestEstimatePureSine(t *testing.T) {
	e := newTestEstimator()

	for _, freq := range []float64{110, 220, 440, 880} {
		window := utils.GenerateSine(testFrameLength, testSampleRate, freq, 0.8)
		est := e.Estimate(window)

		if !est.Voiced {
			t.Errorf("%v Hz: expected voiced estimate", freq)
			continue
		}
		if relErr := math.Abs(est.F0-freq) / freq; relErr > 0.01 {
			t.Errorf("%v Hz: f0 = %.2f Hz, relative error %.3f > 1%%", freq, est.F0, relErr)
		}
		if est.Confidence <= 0 {
			t.Errorf("%v Hz: expected positive confidence, got %.3f", freq, est.Confidence)
		}
	}
}

func TestEstimateLowEndOfRange(t *testing.T) {
	e := newTestEstimator()

	// Frequencies near the configured 80 Hz lower bound, including the
	// guitar low E at 82.41 Hz, must resolve accurately instead of pinning
	// to the longest searchable lag.
	for _, freq := range []float64{80, 82.41, 98} {
		window := utils.GenerateSine(testFrameLength, testSampleRate, freq, 0.8)
		est := e.Estimate(window)

		if !est.Voiced {
			t.Errorf("%v Hz: expected voiced estimate", freq)
			continue
		}
		if relErr := math.Abs(est.F0-freq) / freq; relErr > 0.01 {
			t.Errorf("%v Hz: f0 = %.2f Hz, relative error %.3f > 1%%", freq, est.F0, relErr)
		}
	}
}

func TestEstimateBelowRangeUnvoiced(t *testing.T) {
	e := newTestEstimator()

	// 60 Hz sits below the 80 Hz search floor. The tracker's minimum lands
	// on the lag boundary, which must be reported as unvoiced rather than
	// as a confident boundary frequency.
	window := utils.GenerateSine(testFrameLength, testSampleRate, 60, 0.8)
	est := e.Estimate(window)
	if est.Voiced || est.F0 != 0 {
		t.Errorf("expected unvoiced estimate below the search range, got %+v", est)
	}
}

func TestEstimateComplexWave(t *testing.T) {
	e := newTestEstimator()
	window := utils.GenerateComplexWave(testFrameLength, testSampleRate)
	est := e.Estimate(window)

	if !est.Voiced {
		t.Fatal("expected voiced estimate for harmonic signal")
	}
	if relErr := math.Abs(est.F0-440) / 440; relErr > 0.01 {
		t.Errorf("f0 = %.2f Hz, relative error %.3f > 1%%", est.F0, relErr)
	}
}

func TestEstimateSilence(t *testing.T) {
	e := newTestEstimator()
	window := make([]float64, testFrameLength)
	est := e.Estimate(window)

	if est.Voiced || est.F0 != 0 || est.Confidence != 0 {
		t.Errorf("expected unvoiced zero estimate for silence, got %+v", est)
	}
}

func TestEstimateMalformedInput(t *testing.T) {
	e := newTestEstimator()

	// Wrong length.
	if est := e.Estimate(make([]float64, 100)); est.Voiced {
		t.Error("expected unvoiced estimate for wrong-length window")
	}

	// NaN samples.
	window := utils.GenerateSine(testFrameLength, testSampleRate, 440, 0.8)
	window[17] = math.NaN()
	if est := e.Estimate(window); est.Voiced || est.F0 != 0 {
		t.Error("expected unvoiced estimate for NaN window")
	}

	// Inf samples.
	window = utils.GenerateSine(testFrameLength, testSampleRate, 440, 0.8)
	window[99] = math.Inf(1)
	if est := e.Estimate(window); est.Voiced {
		t.Error("expected unvoiced estimate for Inf window")
	}

	if e.Failures() != 3 {
		t.Errorf("expected 3 recorded failures, got %d", e.Failures())
	}
}

func TestEstimateSubFrameProbabilities(t *testing.T) {
	e := newTestEstimator()
	window := utils.GenerateSine(testFrameLength, testSampleRate, 440, 0.8)
	est := e.Estimate(window)

	// Frame 2048 with sub-frame 1024 and hop 512 yields three sub-frames.
	if len(est.Probabilities) != 3 {
		t.Fatalf("expected 3 sub-frame probabilities, got %d", len(est.Probabilities))
	}
	for i, p := range est.Probabilities {
		if p < 0 || p > 1 {
			t.Errorf("probability %d out of [0,1]: %.3f", i, p)
		}
		if p <= 0.5 {
			t.Errorf("expected confident sub-frame for pure sine, got %.3f at %d", p, i)
		}
	}
}

func TestEstimateBandRejection(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Analysis.BandLow = 500
	cfg.Analysis.BandHigh = 1200
	e := NewEstimator(testSampleRate, cfg.Analysis)

	// 440 Hz is confidently tracked but sits below the configured band,
	// so the aggregate must be rejected.
	window := utils.GenerateSine(testFrameLength, testSampleRate, 440, 0.8)
	est := e.Estimate(window)
	if est.Voiced || est.F0 != 0 {
		t.Errorf("expected band rejection to report unvoiced, got %+v", est)
	}
}

func TestEstimateNoise(t *testing.T) {
	e := newTestEstimator()

	// Deterministic pseudo-noise; nothing periodic in the search range.
	window := make([]float64, testFrameLength)
	seed := uint64(0x9E3779B97F4A7C15)
	for i := range window {
		seed ^= seed << 13
		seed ^= seed >> 7
		seed ^= seed << 17
		window[i] = (float64(seed%2000)/1000 - 1) * 0.5
	}

	est := e.Estimate(window)
	if est.Voiced && est.Confidence > 0.9 {
		t.Errorf("expected low confidence on noise, got f0=%.1f conf=%.2f", est.F0, est.Confidence)
	}
}

func TestMedian(t *testing.T) {
	cases := []struct {
		in   []float64
		want float64
	}{
		{[]float64{440}, 440},
		{[]float64{438, 440, 442}, 440},
		{[]float64{440, 880}, 660},
		{[]float64{880, 440, 439, 441}, 440.5}, // octave outlier does not drag the result
	}
	for _, c := range cases {
		if got := median(append([]float64(nil), c.in...)); got != c.want {
			t.Errorf("median(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}

func BenchmarkEstimate(b *testing.B) {
	e := newTestEstimator()
	window := utils.GenerateSine(testFrameLength, testSampleRate, 440, 0.8)

	b.ReportAllocs()
	for b.Loop() {
		_ = e.Estimate(window)
	}
}
