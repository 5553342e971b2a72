// SPDX-License-Identifier: MIT
package analysis

import (
	"sync"
	"sync/atomic"
	"time"

	"analyzer/internal/audio"
	"analyzer/internal/config"
	"analyzer/internal/dsp"
	applog "analyzer/internal/log"
)

// ringFrames sizes the sample ring in analysis frames: enough headroom to
// absorb consumer scheduling jitter without unbounded growth. The capacity
// is derived from the frame length, never from the input block size: a ring
// sized to one block could never serve a two-block window.
const ringFrames = 4

// Session owns one analysis run: the sample source, the ring buffer, the
// framing loop and the published state. Lifecycle is Idle -> Running -> Idle;
// Start while Running and Stop while Idle are no-ops.
type Session struct {
	cfg       *config.Config
	source    audio.SampleSource
	ring      *dsp.Ring
	framer    *dsp.Framer
	estimator *Estimator
	mapper    *Mapper
	spectrum  *Spectrum
	meter     *Meter
	state     *State
	recorder  *audio.Recorder

	running  atomic.Bool
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	mu       sync.Mutex // serializes Start/Stop transitions

	gain      float64
	gateFloor float64
	poll      time.Duration
	scratch   []float64 // block conversion buffer, producer-only
	window    []float64 // analysis window buffer, consumer-only
	gated     atomic.Uint64
}

// NewSession wires the pipeline for the given configuration and source. The
// note table is loaded once here; spectrum construction can only fail on a
// non-power-of-2 frame length, which config validation already excludes.
func NewSession(cfg *config.Config, source audio.SampleSource) (*Session, error) {
	spectrum, err := NewSpectrum(cfg.Analysis.FrameLength, cfg.Audio.SampleRate)
	if err != nil {
		return nil, err
	}

	ring := dsp.NewRing(ringFrames * cfg.Analysis.FrameLength)
	table := LoadTable(cfg.Notes.TablePath)

	return &Session{
		cfg:       cfg,
		source:    source,
		ring:      ring,
		framer:    dsp.NewFramer(ring, cfg.Analysis.FrameLength, cfg.Analysis.HopLength),
		estimator: NewEstimator(cfg.Audio.SampleRate, cfg.Analysis),
		mapper:    NewMapper(table, cfg.Notes.Sharpness),
		spectrum:  spectrum,
		meter:     NewMeter(cfg.Analysis.VolumeScale),
		state:     NewState(historySize(cfg)),
		gain:      cfg.Audio.Gain,
		gateFloor: cfg.Analysis.GateFloor,
		poll:      cfg.Analysis.PollInterval,
		scratch:   make([]float64, cfg.Audio.BlockSize),
		window:    make([]float64, cfg.Analysis.FrameLength),
	}, nil
}

// historySize keeps roughly ten seconds of hop-rate history for charting.
func historySize(cfg *config.Config) int {
	perSecond := cfg.Audio.SampleRate / float64(cfg.Analysis.HopLength)
	return int(perSecond * 10)
}

// State exposes the published analysis values for presentation layers.
func (s *Session) State() *State {
	return s.state
}

// Spectrum exposes the magnitude spectrum processor for presentation layers.
func (s *Session) Spectrum() *Spectrum {
	return s.spectrum
}

// Running reports whether the session is in the Running state.
func (s *Session) Running() bool {
	return s.running.Load()
}

// SetRecorder attaches a recorder for the raw capture stream. Must be called
// before Start.
func (s *Session) SetRecorder(r *audio.Recorder) {
	s.recorder = r
}

// Start opens the sample source and launches the analysis consumer. On
// success the ring, state and history are reset and the session transitions
// to Running. If no device can be opened the error wraps
// audio.ErrDeviceUnavailable and the session stays Idle. Calling Start while
// Running is a no-op.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running.Load() {
		return nil
	}

	s.ring.Reset()
	s.state.Reset()

	if err := s.source.Open(s.onBlock); err != nil {
		return err
	}

	s.done = make(chan struct{})
	s.stopOnce = sync.Once{}
	s.running.Store(true)

	s.wg.Add(1)
	go s.consume()

	applog.Infof("Session: Running (frame %d, hop %d, poll %s)",
		s.framer.FrameLength(), s.framer.HopLength(), s.poll)
	return nil
}

// Stop signals the consumer, waits for it to exit, then closes the source.
// The last published state stays visible; only the next Start resets it.
// Calling Stop while Idle is a no-op, and repeated calls are safe.
func (s *Session) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running.Load() {
		return nil
	}

	s.stopOnce.Do(func() { close(s.done) })
	s.wg.Wait()

	err := s.source.Close()
	s.running.Store(false)

	if s.estimator.Failures() > 0 {
		applog.Warnf("Session: Recovered from %d malformed windows", s.estimator.Failures())
	}
	applog.Infof("Session: Stopped")
	return err
}

// onBlock is the producer path, invoked by the platform audio layer for
// every captured block. It applies the input gain, feeds the ring and
// updates the volume; no analysis work happens here.
func (s *Session) onBlock(in []float32) {
	n := len(in)
	if n > len(s.scratch) {
		n = len(s.scratch)
	}
	for i := 0; i < n; i++ {
		s.scratch[i] = float64(in[i]) * s.gain
	}
	block := s.scratch[:n]

	s.ring.Push(block)
	s.state.SetVolume(s.meter.Volume(block))

	if s.recorder != nil {
		s.recorder.Write(block)
	}
}

// consume is the analysis loop. It polls for ready windows at the configured
// interval, draining backlog completely each wakeup, and exits within one
// interval of the stop signal. A window already being analyzed runs to
// completion.
func (s *Session) consume() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
		}

		for s.framer.Next(s.window) {
			s.analyze()
		}
	}
}

// analyze runs one full cycle on the current window: gate, pitch estimate,
// note mapping, spectrum, publish. Nothing in here can terminate the
// session; estimation failures surface as unvoiced results.
func (s *Session) analyze() {
	var est Estimate
	if Peak(s.window) >= s.gateFloor {
		est = s.estimator.Estimate(s.window)
	} else {
		s.gated.Add(1)
	}

	s.spectrum.Process(s.window)

	mapping := s.mapper.Map(est.F0)
	s.state.PublishPitch(time.Now(), est.F0, mapping.Note.ID, mapping.Confidence)
}

// GatedWindows returns the number of windows skipped by the silence gate.
func (s *Session) GatedWindows() uint64 {
	return s.gated.Load()
}
