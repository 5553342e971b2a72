// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"os"
	"sync/atomic"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	applog "analyzer/internal/log"
)

// Recorder writes the raw capture stream to a WAV file. Write is called from
// the audio producer path, so state checks are a single atomic load and the
// PCM buffer is reused across blocks.
type Recorder struct {
	file      *os.File
	encoder   *wav.Encoder
	sampleBuf *goaudio.IntBuffer
	active    atomic.Int32
	scale     float64
	failures  atomic.Uint64
}

// NewRecorder creates a recorder writing mono PCM at the given sample rate
// and bit depth. blockSize bounds the per-write buffer.
func NewRecorder(filename string, sampleRate float64, bitDepth, blockSize int) (*Recorder, error) {
	if bitDepth != 16 && bitDepth != 24 && bitDepth != 32 {
		return nil, fmt.Errorf("unsupported bit depth %d", bitDepth)
	}

	file, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create recording file: %w", err)
	}

	r := &Recorder{
		file:    file,
		encoder: wav.NewEncoder(file, int(sampleRate), bitDepth, 1, 1),
		sampleBuf: &goaudio.IntBuffer{
			Format: &goaudio.Format{
				NumChannels: 1,
				SampleRate:  int(sampleRate),
			},
			SourceBitDepth: bitDepth,
			Data:           make([]int, blockSize),
		},
		scale: float64(int(1)<<(bitDepth-1)) - 1,
	}
	r.active.Store(1)
	applog.Infof("Audio: Recording to %s (%d-bit)", filename, bitDepth)
	return r, nil
}

// Write appends one block of [-1, 1] float samples to the file. Encoding
// errors are counted and logged, never propagated into the audio path.
func (r *Recorder) Write(block []float64) {
	if r.active.Load() != 1 {
		return
	}

	r.sampleBuf.Data = r.sampleBuf.Data[:cap(r.sampleBuf.Data)]
	if len(block) > len(r.sampleBuf.Data) {
		block = block[:len(r.sampleBuf.Data)]
	}
	for i, sample := range block {
		if sample > 1 {
			sample = 1
		}
		if sample < -1 {
			sample = -1
		}
		r.sampleBuf.Data[i] = int(sample * r.scale)
	}
	r.sampleBuf.Data = r.sampleBuf.Data[:len(block)]

	if err := r.encoder.Write(r.sampleBuf); err != nil {
		if r.failures.Add(1) == 1 {
			applog.Errorf("Audio: Error writing to WAV file: %v", err)
		}
	}
}

// Failures returns the number of failed WAV writes.
func (r *Recorder) Failures() uint64 {
	return r.failures.Load()
}

// Close finalizes the WAV header and closes the file. Idempotent.
func (r *Recorder) Close() error {
	if !r.active.CompareAndSwap(1, 0) {
		return nil
	}

	if err := r.encoder.Close(); err != nil {
		r.file.Close()
		return fmt.Errorf("failed to finalize WAV file: %w", err)
	}
	if err := r.file.Close(); err != nil {
		return fmt.Errorf("failed to close recording file: %w", err)
	}
	return nil
}
