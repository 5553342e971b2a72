// SPDX-License-Identifier: MIT

// Package transport delivers analysis results to presentation layers. The
// Publisher samples the shared analysis state at a fixed rate and fans each
// payload out to every configured Transport.
package transport

import (
	"analyzer/internal/analysis"
	applog "analyzer/internal/log"
)

// Transport sends one published payload to a presentation sink.
// Implementations must be safe for concurrent use.
type Transport interface {
	Send(data any) error
	Close() error
}

// Payload is the unit shipped to presentation layers on every publish tick.
type Payload struct {
	Snapshot analysis.Snapshot       `json:"snapshot"`
	History  []analysis.HistoryPoint `json:"history,omitempty"`
	Spectrum []float32               `json:"spectrum,omitempty"`
}

// LoggingTransport implements Transport by logging each snapshot at debug
// level. Useful as a headless sink during development.
type LoggingTransport struct{}

// NewLoggingTransport creates a logging sink.
func NewLoggingTransport() *LoggingTransport {
	applog.Infof("Transport: Using LoggingTransport")
	return &LoggingTransport{}
}

// Send logs the payload summary. Never fails.
func (lt *LoggingTransport) Send(data any) error {
	if p, ok := data.(*Payload); ok {
		applog.Debugf("Transport: vol=%d%% f0=%.1fHz note=%s conf=%.0f%%",
			p.Snapshot.Volume, p.Snapshot.Frequency, p.Snapshot.Note, p.Snapshot.Confidence)
	}
	return nil
}

// Close is a no-op.
func (lt *LoggingTransport) Close() error {
	return nil
}

var _ Transport = (*LoggingTransport)(nil)
