// SPDX-License-Identifier: MIT
package analysis

import (
	"math"
	"testing"
)

// constantBlock returns a block whose RMS equals exactly |value|.
func constantBlock(n int, value float64) []float64 {
	block := make([]float64, n)
	for i := range block {
		block[i] = value
	}
	return block
}

func TestMeterVolume(t *testing.T) {
	m := NewMeter(200)

	cases := []struct {
		name string
		rms  float64
		want int
	}{
		{"silence", 0, 0},
		{"quiet", 0.1, 20},
		{"moderate", 0.25, 50},
		{"saturating", 0.5, 100},
		{"clipped", 0.9, 100}, // 180 clamps to 100
	}
	for _, c := range cases {
		if got := m.Volume(constantBlock(512, c.rms)); got != c.want {
			t.Errorf("%s: Volume(rms=%.2f) = %d, want %d", c.name, c.rms, got, c.want)
		}
	}
}

func TestMeterVolumeEmptyBlock(t *testing.T) {
	m := NewMeter(200)
	if got := m.Volume(nil); got != 0 {
		t.Errorf("expected 0 for empty block, got %d", got)
	}
}

func TestMeterVolumeNaN(t *testing.T) {
	m := NewMeter(200)
	block := constantBlock(64, 0.5)
	block[10] = math.NaN()
	if got := m.Volume(block); got != 0 {
		t.Errorf("expected 0 for NaN block, got %d", got)
	}
}

func TestNewMeterRejectsBadScale(t *testing.T) {
	m := NewMeter(-5)
	if got := m.Volume(constantBlock(64, 0.5)); got != 1 {
		t.Errorf("expected fallback scale 1, got volume %d", got)
	}
}

func TestRMS(t *testing.T) {
	// RMS of a full-scale sine is amplitude / sqrt(2).
	block := make([]float64, 4410)
	for i := range block {
		block[i] = 0.8 * math.Sin(2*math.Pi*441*float64(i)/44100)
	}
	want := 0.8 / math.Sqrt2
	if got := RMS(block); math.Abs(got-want) > 0.001 {
		t.Errorf("RMS = %.4f, want %.4f", got, want)
	}
}

func TestPeak(t *testing.T) {
	block := []float64{0.1, -0.7, 0.3, 0.0}
	if got := Peak(block); got != 0.7 {
		t.Errorf("Peak = %.2f, want 0.7", got)
	}
	if got := Peak(nil); got != 0 {
		t.Errorf("Peak(nil) = %.2f, want 0", got)
	}
}

func BenchmarkMeterVolume(b *testing.B) {
	m := NewMeter(200)
	block := constantBlock(1024, 0.3)

	b.ReportAllocs()
	for b.Loop() {
		_ = m.Volume(block)
	}
}
