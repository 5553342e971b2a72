// SPDX-License-Identifier: MIT
package analysis

import (
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot is the published analysis result read by presentation layers.
// Stale reads are fine; readers always observe a complete snapshot because
// values are published wholesale, never mutated in place.
type Snapshot struct {
	Time       time.Time `json:"time"`
	Volume     int       `json:"volume"`     // percent [0,100]
	Frequency  float64   `json:"frequency"`  // Hz, 0 when unvoiced
	Note       string    `json:"note"`       // NoNote when nothing detected
	Confidence float64   `json:"confidence"` // percent [0,100]
}

// HistoryPoint is one sample of the bounded time series kept for charting.
type HistoryPoint struct {
	Time      time.Time `json:"time"`
	Volume    int       `json:"volume"`
	Frequency float64   `json:"frequency"`
}

// pitchValue groups the fields written together by the analysis consumer.
type pitchValue struct {
	time       time.Time
	frequency  float64
	note       string
	confidence float64
}

// State owns the latest published analysis values and a bounded rolling
// history. Writer discipline is single-writer per field: the audio producer
// writes the volume, the analysis consumer publishes pitch results and
// appends history. Readers never block either writer.
type State struct {
	pitch  atomic.Pointer[pitchValue]
	volume atomic.Int64

	historyMu  sync.Mutex
	history    []HistoryPoint
	historyPos int
	historyLen int
}

// NewState creates a state container with a history capacity of historySize
// points. Older points are overwritten ring-style.
func NewState(historySize int) *State {
	if historySize <= 0 {
		historySize = 1
	}
	s := &State{history: make([]HistoryPoint, historySize)}
	s.Reset()
	return s
}

// Reset restores defaults: zero volume, no frequency, no note. Called on
// session start, not on stop, so the last values stay visible after a stop.
func (s *State) Reset() {
	s.pitch.Store(&pitchValue{note: NoNote})
	s.volume.Store(0)

	s.historyMu.Lock()
	s.historyPos = 0
	s.historyLen = 0
	s.historyMu.Unlock()
}

// SetVolume publishes the current volume percentage. Producer-only.
func (s *State) SetVolume(volume int) {
	s.volume.Store(int64(volume))
}

// PublishPitch publishes a completed analysis cycle and appends a history
// point carrying the volume current at publish time. Consumer-only.
func (s *State) PublishPitch(at time.Time, frequency float64, note string, confidence float64) {
	s.pitch.Store(&pitchValue{
		time:       at,
		frequency:  frequency,
		note:       note,
		confidence: confidence,
	})

	point := HistoryPoint{
		Time:      at,
		Volume:    int(s.volume.Load()),
		Frequency: frequency,
	}

	s.historyMu.Lock()
	s.history[s.historyPos] = point
	s.historyPos = (s.historyPos + 1) % len(s.history)
	if s.historyLen < len(s.history) {
		s.historyLen++
	}
	s.historyMu.Unlock()
}

// Snapshot returns the current analysis values.
func (s *State) Snapshot() Snapshot {
	p := s.pitch.Load()
	return Snapshot{
		Time:       p.time,
		Volume:     int(s.volume.Load()),
		Frequency:  p.frequency,
		Note:       p.note,
		Confidence: p.confidence,
	}
}

// History returns a chronological copy of the rolling history.
func (s *State) History() []HistoryPoint {
	s.historyMu.Lock()
	defer s.historyMu.Unlock()

	out := make([]HistoryPoint, s.historyLen)
	start := s.historyPos - s.historyLen
	if start < 0 {
		start += len(s.history)
	}
	for i := 0; i < s.historyLen; i++ {
		out[i] = s.history[(start+i)%len(s.history)]
	}
	return out
}
