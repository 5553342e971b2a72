// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"analyzer/internal/analysis"
	applog "analyzer/internal/log"
)

/*
Packet layout (BigEndian):

	+------------------+---------+--------------------------------------+
	| Field            | Type    | Description                          |
	+------------------+---------+--------------------------------------+
	| Sequence number  | uint32  | Monotonically increasing             |
	| Timestamp        | int64   | Snapshot time, nanoseconds since     |
	|                  |         | epoch                                |
	| Volume           | uint8   | Percent [0,100]                      |
	| Frequency        | float32 | Hz, 0 when unvoiced                  |
	| Confidence       | float32 | Percent [0,100]                      |
	| Note length      | uint8   | Byte length of the note id (N)       |
	| Note             | [N]byte | UTF-8 note id, e.g. "A4"             |
	+------------------+---------+--------------------------------------+
*/

// Publisher periodically reads the analysis state, packs the snapshot into
// the binary packet format above and sends it through a Sender. It runs in a
// goroutine managed by Start and Stop.
type Publisher struct {
	sender   *Sender
	state    *analysis.State
	interval time.Duration

	ticker   *time.Ticker
	doneChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	mu       sync.Mutex // protects ticker and doneChan during Start/Stop

	sequenceNum  uint32
	packetBuffer *bytes.Buffer // reused across ticks
}

// NewPublisher creates a UDP snapshot publisher. An invalid interval
// defaults to 50ms (~20Hz).
func NewPublisher(interval time.Duration, sender *Sender, state *analysis.State) (*Publisher, error) {
	if sender == nil {
		return nil, fmt.Errorf("UDP sender cannot be nil")
	}
	if state == nil {
		return nil, fmt.Errorf("analysis state cannot be nil")
	}
	if interval <= 0 {
		interval = 50 * time.Millisecond
		applog.Warnf("UDP: Invalid publish interval, defaulting to %s", interval)
	}

	return &Publisher{
		sender:       sender,
		state:        state,
		interval:     interval,
		packetBuffer: new(bytes.Buffer),
	}, nil
}

// Start launches the publish loop. A running publisher ignores further
// Start calls.
func (p *Publisher) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		applog.Warnf("UDP: Start called but already running")
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
		applog.Infof("UDP: Publisher running (interval %s)", p.interval)
		for {
			select {
			case <-ticker.C:
				p.buildAndSendPacket()
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
	applog.Infof("UDP: Publisher stopped")
	return nil
}

// buildAndSendPacket packs the current snapshot and transmits it. Pack or
// send failures skip the tick; the next one carries fresher data.
func (p *Publisher) buildAndSendPacket() {
	snap := p.state.Snapshot()
	note := []byte(snap.Note)
	if len(note) > 255 {
		note = note[:255]
	}

	p.sequenceNum++
	p.packetBuffer.Reset()

	err := binary.Write(p.packetBuffer, binary.BigEndian, p.sequenceNum)
	if err == nil {
		err = binary.Write(p.packetBuffer, binary.BigEndian, snap.Time.UnixNano())
	}
	if err == nil {
		err = binary.Write(p.packetBuffer, binary.BigEndian, uint8(snap.Volume))
	}
	if err == nil {
		err = binary.Write(p.packetBuffer, binary.BigEndian, float32(snap.Frequency))
	}
	if err == nil {
		err = binary.Write(p.packetBuffer, binary.BigEndian, float32(snap.Confidence))
	}
	if err == nil {
		err = binary.Write(p.packetBuffer, binary.BigEndian, uint8(len(note)))
	}
	if err == nil {
		_, err = p.packetBuffer.Write(note)
	}
	if err != nil {
		applog.Errorf("UDP: Error packing snapshot: %v", err)
		return
	}

	if err := p.sender.Send(p.packetBuffer.Bytes()); err != nil {
		applog.Debugf("UDP: Send failed for packet %d: %v", p.sequenceNum, err)
		return
	}
	applog.Debugf("UDP: Sent packet %d (%d bytes)", p.sequenceNum, p.packetBuffer.Len())
}

// Close stops the publish loop.
func (p *Publisher) Close() error {
	return p.Stop()
}

var _ interface{ Close() error } = (*Publisher)(nil)
