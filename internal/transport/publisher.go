// SPDX-License-Identifier: MIT
package transport

import (
	"fmt"
	"sync"
	"time"

	"analyzer/internal/analysis"
	applog "analyzer/internal/log"
)

// Publisher periodically samples the analysis state and fans the payload out
// to every attached transport. It runs in its own goroutine managed by Start
// and Stop; the analysis pipeline never touches a transport directly.
type Publisher struct {
	state      *analysis.State
	spectrum   *analysis.Spectrum
	transports []Transport
	interval   time.Duration

	ticker   *time.Ticker
	doneChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	mu       sync.Mutex // protects ticker and doneChan during Start/Stop

	// Reused across ticks so the steady state does not allocate per send.
	magBuffer []float64
	f32Buffer []float32
}

// NewPublisher creates a publisher reading from state (and optionally
// spectrum, may be nil) at the given interval. An invalid interval defaults
// to 50ms (~20Hz).
func NewPublisher(interval time.Duration, state *analysis.State, spectrum *analysis.Spectrum, transports ...Transport) (*Publisher, error) {
	if state == nil {
		return nil, fmt.Errorf("publisher state cannot be nil")
	}
	if len(transports) == 0 {
		return nil, fmt.Errorf("publisher needs at least one transport")
	}
	if interval <= 0 {
		interval = 50 * time.Millisecond
		applog.Warnf("Publisher: Invalid interval, defaulting to %s", interval)
	}

	p := &Publisher{
		state:      state,
		spectrum:   spectrum,
		transports: transports,
		interval:   interval,
	}
	if spectrum != nil {
		p.magBuffer = make([]float64, spectrum.BinCount())
		p.f32Buffer = make([]float32, spectrum.BinCount())
	}
	return p, nil
}

// Start launches the publish loop. Safe to call repeatedly; a running
// publisher ignores further Start calls.
func (p *Publisher) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		applog.Warnf("Publisher: Start called but already running")
		return
	}

	p.ticker = time.NewTicker(p.interval)
	p.doneChan = make(chan struct{})
	p.stopOnce = sync.Once{}

	ticker := p.ticker
	doneChan := p.doneChan
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		applog.Infof("Publisher: Running (interval %s, %d transports)", p.interval, len(p.transports))
		for {
			select {
			case <-ticker.C:
				p.publish()
			case <-doneChan:
				return
			}
		}
	}()
}

// Stop signals the publish loop and waits for it to exit. Safe to call
// repeatedly and while idle.
func (p *Publisher) Stop() error {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		return nil
	}

	p.stopOnce.Do(func() {
		close(p.doneChan)
		p.ticker.Stop()
		p.ticker = nil
	})
	p.mu.Unlock()

	p.wg.Wait()
	applog.Infof("Publisher: Stopped")
	return nil
}

// publish assembles one payload and hands it to every transport. A failing
// transport is logged and skipped; the others still receive the payload.
func (p *Publisher) publish() {
	payload := &Payload{
		Snapshot: p.state.Snapshot(),
		History:  p.state.History(),
	}

	if p.spectrum != nil {
		if err := p.spectrum.MagnitudesInto(p.magBuffer); err == nil {
			for i, v := range p.magBuffer {
				p.f32Buffer[i] = float32(v)
			}
			payload.Spectrum = p.f32Buffer
		}
	}

	for _, t := range p.transports {
		if err := t.Send(payload); err != nil {
			applog.Warnf("Publisher: Transport send failed: %v", err)
		}
	}
}

// Close stops the publish loop and closes every transport.
func (p *Publisher) Close() error {
	err := p.Stop()
	for _, t := range p.transports {
		if cerr := t.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

var _ interface{ Close() error } = (*Publisher)(nil)
