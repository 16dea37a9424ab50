// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package loopback joins a bus master and an i2cslave.Handler in memory.
// The Bus implements periph's i2c.Bus, so the master client runs unchanged
// against a simulated slave.
package loopback

import (
	"sync"

	"github.com/Thermoquad/itsystat/pkg/i2cslave"
)

type busEvent struct {
	state i2cslave.State
	data  []byte
	reads int
}

// Peripheral is an in-memory target-mode controller fed by a Bus
type Peripheral struct {
	mu      sync.Mutex
	events  []busEvent
	rx      []byte
	reads   int
	written []byte
}

// NewPeripheral creates an idle peripheral
func NewPeripheral() *Peripheral {
	return &Peripheral{}
}

// HandleEvent implements i2cslave.Peripheral
func (p *Peripheral) HandleEvent() (i2cslave.State, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.events) == 0 {
		return i2cslave.StateNone, nil
	}
	ev := p.events[0]
	p.events = p.events[1:]
	p.rx = append(p.rx, ev.data...)
	p.reads = ev.reads
	return ev.state, nil
}

// Available implements i2cslave.Peripheral
func (p *Peripheral) Available() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.rx) > 0
}

// ReadDataReceived implements i2cslave.Peripheral. An empty FIFO reads as 0x00.
func (p *Peripheral) ReadDataReceived() byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.rx) == 0 {
		return 0x00
	}
	b := p.rx[0]
	p.rx = p.rx[1:]
	return b
}

// WriteData implements i2cslave.Peripheral
func (p *Peripheral) WriteData(b byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.written = append(p.written, b)
	if p.reads > 0 {
		p.reads--
	}
	return nil
}

// IsMasterReqRead implements i2cslave.Peripheral
func (p *Peripheral) IsMasterReqRead() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reads > 0
}

// Inject queues one master transaction: START, RECEIVE with w (when
// non-empty), REQUEST for n bytes (when n > 0) and FINISH
func (p *Peripheral) Inject(w []byte, n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, busEvent{state: i2cslave.StateStart})
	if len(w) > 0 {
		p.events = append(p.events, busEvent{state: i2cslave.StateReceive, data: append([]byte(nil), w...)})
	}
	if n > 0 {
		p.events = append(p.events, busEvent{state: i2cslave.StateRequest, reads: n})
	}
	p.events = append(p.events, busEvent{state: i2cslave.StateFinish})
}

// Pending reports whether queued events remain unserviced
func (p *Peripheral) Pending() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events) > 0 || p.reads > 0
}

// Take returns and clears the bytes written by the slave
func (p *Peripheral) Take() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := p.written
	p.written = nil
	return out
}
