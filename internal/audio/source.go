// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"fmt"
	"time"

	"github.com/gordonklaus/portaudio"

	"analyzer/internal/config"
	applog "analyzer/internal/log"
)

// ErrDeviceUnavailable reports that an audio input cannot be opened or used.
// It is the only session-fatal error class: everything downstream of a
// successfully opened source recovers locally.
var ErrDeviceUnavailable = errors.New("audio device unavailable")

// SampleSource delivers fixed-size blocks of mono float32 samples at a fixed
// sample rate via the callback passed to Open.
//
// The callback runs on the platform audio thread and must be fast and
// non-blocking: push the block and return. Close is idempotent.
type SampleSource interface {
	Open(onBlock func(block []float32)) error
	Close() error
}

// InputStream is the PortAudio-backed SampleSource.
type InputStream struct {
	deviceID   int
	channels   int
	sampleRate float64
	blockSize  int
	lowLatency bool

	stream  *portaudio.Stream
	onBlock func([]float32)
	mono    []float32 // channel-0 extraction buffer for multi-channel devices
}

var _ SampleSource = (*InputStream)(nil)

// NewInputStream creates a source from the audio configuration. Nothing is
// opened until Open is called.
func NewInputStream(cfg config.AudioConfig) *InputStream {
	return &InputStream{
		deviceID:   cfg.InputDevice,
		channels:   cfg.Channels,
		sampleRate: cfg.SampleRate,
		blockSize:  cfg.BlockSize,
		lowLatency: cfg.LowLatency,
		mono:       make([]float32, cfg.BlockSize),
	}
}

// Open resolves the device, opens the PortAudio stream and starts block
// delivery. Failures wrap ErrDeviceUnavailable.
func (s *InputStream) Open(onBlock func(block []float32)) error {
	if s.stream != nil {
		return nil
	}
	if onBlock == nil {
		return fmt.Errorf("%w: nil block callback", ErrDeviceUnavailable)
	}
	s.onBlock = onBlock

	device, err := InputDevice(s.deviceID)
	if err != nil {
		return err
	}

	var latency time.Duration
	if s.lowLatency {
		latency = device.DefaultLowInputLatency
	} else {
		latency = device.DefaultHighInputLatency
	}

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: s.channels,
			Device:   device,
			Latency:  latency,
		},
		FramesPerBuffer: s.blockSize,
		SampleRate:      s.sampleRate,
	}

	stream, err := portaudio.OpenStream(params, s.process)
	if err != nil {
		return fmt.Errorf("%w: failed to open stream on %q: %v", ErrDeviceUnavailable, device.Name, err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return fmt.Errorf("%w: failed to start stream on %q: %v", ErrDeviceUnavailable, device.Name, err)
	}

	s.stream = stream
	applog.Infof("Audio: Input stream open on %q (%.0f Hz, block %d)", device.Name, s.sampleRate, s.blockSize)
	return nil
}

// process is the PortAudio callback. It extracts channel 0 when the device
// delivers interleaved multi-channel data and forwards the mono block.
func (s *InputStream) process(in []float32) {
	if s.channels == 1 {
		s.onBlock(in)
		return
	}

	n := len(in) / s.channels
	if n > len(s.mono) {
		n = len(s.mono)
	}
	for i := 0; i < n; i++ {
		s.mono[i] = in[i*s.channels]
	}
	s.onBlock(s.mono[:n])
}

// Close stops and closes the stream. Safe to call repeatedly or without a
// prior successful Open.
func (s *InputStream) Close() error {
	if s.stream == nil {
		return nil
	}

	if err := s.stream.Stop(); err != nil {
		applog.Warnf("Audio: Error stopping input stream: %v", err)
	}
	err := s.stream.Close()
	s.stream = nil
	if err != nil {
		return fmt.Errorf("failed to close input stream: %w", err)
	}
	applog.Infof("Audio: Input stream closed")
	return nil
}
