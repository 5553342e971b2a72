// SPDX-License-Identifier: MIT
package transport

import (
	"testing"
	"time"

	"analyzer/internal/analysis"
	"analyzer/pkg/utils"
)

func TestNewPublisherValidation(t *testing.T) {
	state := analysis.NewState(8)

	if _, err := NewPublisher(time.Millisecond, nil, nil, &utils.MockTransport{}); err == nil {
		t.Error("expected error for nil state")
	}
	if _, err := NewPublisher(time.Millisecond, state, nil); err == nil {
		t.Error("expected error for no transports")
	}
}

func TestPublisherDeliversSnapshots(t *testing.T) {
	state := analysis.NewState(8)
	state.SetVolume(42)
	state.PublishPitch(time.Now(), 440, "A4", 95)

	mock := &utils.MockTransport{}
	p, err := NewPublisher(5*time.Millisecond, state, nil, mock)
	if err != nil {
		t.Fatalf("NewPublisher failed: %v", err)
	}

	p.Start()
	deadline := time.Now().Add(time.Second)
	for len(mock.Sent()) < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if err := p.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	sent := mock.Sent()
	if len(sent) < 3 {
		t.Fatalf("expected at least 3 payloads, got %d", len(sent))
	}
	payload, ok := sent[0].(*Payload)
	if !ok {
		t.Fatalf("unexpected payload type %T", sent[0])
	}
	if payload.Snapshot.Note != "A4" || payload.Snapshot.Volume != 42 {
		t.Errorf("unexpected snapshot: %+v", payload.Snapshot)
	}
	if len(payload.History) != 1 {
		t.Errorf("expected 1 history point, got %d", len(payload.History))
	}
	if payload.Spectrum != nil {
		t.Error("expected no spectrum without a spectrum processor")
	}
}

func TestPublisherIncludesSpectrum(t *testing.T) {
	state := analysis.NewState(8)
	spectrum, err := analysis.NewSpectrum(2048, 44100)
	if err != nil {
		t.Fatalf("NewSpectrum failed: %v", err)
	}
	spectrum.Process(utils.GenerateSine(2048, 44100, 440, 0.8))

	mock := &utils.MockTransport{}
	p, err := NewPublisher(5*time.Millisecond, state, spectrum, mock)
	if err != nil {
		t.Fatalf("NewPublisher failed: %v", err)
	}

	p.Start()
	deadline := time.Now().Add(time.Second)
	for len(mock.Sent()) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	p.Stop()

	sent := mock.Sent()
	if len(sent) == 0 {
		t.Fatal("expected at least one payload")
	}
	payload := sent[0].(*Payload)
	if len(payload.Spectrum) != spectrum.BinCount() {
		t.Errorf("spectrum length = %d, want %d", len(payload.Spectrum), spectrum.BinCount())
	}
}

func TestPublisherStartStopLifecycle(t *testing.T) {
	state := analysis.NewState(8)
	mock := &utils.MockTransport{}
	p, err := NewPublisher(time.Millisecond, state, nil, mock)
	if err != nil {
		t.Fatalf("NewPublisher failed: %v", err)
	}

	// Stop while idle is a no-op.
	if err := p.Stop(); err != nil {
		t.Fatalf("idle Stop returned %v", err)
	}

	p.Start()
	p.Start() // second Start is ignored
	if err := p.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if err := p.Stop(); err != nil {
		t.Fatalf("repeated Stop returned %v", err)
	}

	// Restart works after a full stop.
	p.Start()
	if err := p.Stop(); err != nil {
		t.Fatalf("Stop after restart failed: %v", err)
	}
}

func TestPublisherCloseClosesTransports(t *testing.T) {
	state := analysis.NewState(8)
	first := &utils.MockTransport{}
	second := &utils.MockTransport{}
	p, err := NewPublisher(time.Millisecond, state, nil, first, second)
	if err != nil {
		t.Fatalf("NewPublisher failed: %v", err)
	}

	p.Start()
	if err := p.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if !first.Closed() || !second.Closed() {
		t.Error("expected all transports closed")
	}
}

func TestLoggingTransport(t *testing.T) {
	lt := NewLoggingTransport()
	if err := lt.Send(&Payload{}); err != nil {
		t.Errorf("Send returned %v", err)
	}
	if err := lt.Send("not a payload"); err != nil {
		t.Errorf("Send with foreign type returned %v", err)
	}
	if err := lt.Close(); err != nil {
		t.Errorf("Close returned %v", err)
	}
}
