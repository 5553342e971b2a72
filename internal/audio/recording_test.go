// SPDX-License-Identifier: MIT
package audio

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/wav"
)

func TestNewRecorderRejectsBadBitDepth(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")
	for _, depth := range []int{0, 8, 12, 64} {
		if _, err := NewRecorder(path, 44100, depth, 1024); err == nil {
			t.Errorf("expected error for bit depth %d", depth)
		}
	}
}

func TestNewRecorderRejectsBadPath(t *testing.T) {
	if _, err := NewRecorder(filepath.Join(t.TempDir(), "missing", "out.wav"), 44100, 16, 1024); err == nil {
		t.Error("expected error for unwritable path")
	}
}

func TestRecorderRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")
	r, err := NewRecorder(path, 44100, 16, 1024)
	if err != nil {
		t.Fatalf("NewRecorder failed: %v", err)
	}

	// Ten blocks of a 440 Hz sine.
	const blocks, blockSize = 10, 1024
	for b := 0; b < blocks; b++ {
		block := make([]float64, blockSize)
		for i := range block {
			tt := float64(b*blockSize+i) / 44100
			block[i] = 0.5 * math.Sin(2*math.Pi*440*tt)
		}
		r.Write(block)
	}

	if err := r.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if r.Failures() != 0 {
		t.Fatalf("expected no write failures, got %d", r.Failures())
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("failed to open recording: %v", err)
	}
	defer file.Close()

	decoder := wav.NewDecoder(file)
	if !decoder.IsValidFile() {
		t.Fatal("recording is not a valid WAV file")
	}
	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		t.Fatalf("failed to decode recording: %v", err)
	}

	if got := len(buf.Data); got != blocks*blockSize {
		t.Errorf("decoded %d frames, want %d", got, blocks*blockSize)
	}
	if buf.Format.NumChannels != 1 {
		t.Errorf("expected mono recording, got %d channels", buf.Format.NumChannels)
	}
	if buf.Format.SampleRate != 44100 {
		t.Errorf("sample rate = %d, want 44100", buf.Format.SampleRate)
	}

	// Peak amplitude of the decoded signal should sit near 0.5 full scale.
	var peak int
	for _, sample := range buf.Data {
		if sample < 0 {
			sample = -sample
		}
		if sample > peak {
			peak = sample
		}
	}
	if fullScale := float64(peak) / 32767; fullScale < 0.45 || fullScale > 0.55 {
		t.Errorf("decoded peak = %.3f full scale, want ~0.5", fullScale)
	}
}

func TestRecorderClampsSamples(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")
	r, err := NewRecorder(path, 44100, 16, 8)
	if err != nil {
		t.Fatalf("NewRecorder failed: %v", err)
	}

	r.Write([]float64{2.0, -2.0, 0.0, 1.0, -1.0, 0.5, -0.5, 0.25})
	if err := r.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("failed to open recording: %v", err)
	}
	defer file.Close()

	buf, err := wav.NewDecoder(file).FullPCMBuffer()
	if err != nil {
		t.Fatalf("failed to decode recording: %v", err)
	}
	for i, sample := range buf.Data {
		if sample > 32767 || sample < -32767 {
			t.Errorf("sample %d out of range: %d", i, sample)
		}
	}
}

func TestRecorderCloseIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")
	r, err := NewRecorder(path, 44100, 16, 64)
	if err != nil {
		t.Fatalf("NewRecorder failed: %v", err)
	}

	if err := r.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("second Close should be a no-op, got %v", err)
	}

	// Writes after Close are silently dropped.
	r.Write([]float64{0.1, 0.2})
	if r.Failures() != 0 {
		t.Errorf("write after Close must not count as failure, got %d", r.Failures())
	}
}

func TestRecorderOversizedBlockTruncated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")
	r, err := NewRecorder(path, 44100, 16, 4)
	if err != nil {
		t.Fatalf("NewRecorder failed: %v", err)
	}

	r.Write(make([]float64, 100))
	if err := r.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("failed to open recording: %v", err)
	}
	defer file.Close()

	buf, err := wav.NewDecoder(file).FullPCMBuffer()
	if err != nil {
		t.Fatalf("failed to decode recording: %v", err)
	}
	if len(buf.Data) != 4 {
		t.Errorf("expected oversized block truncated to 4 frames, got %d", len(buf.Data))
	}
}
