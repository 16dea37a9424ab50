// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

//go:build tinygo && rp2040

package main

import (
	"machine"
	"time"

	"github.com/Thermoquad/itsystat/pkg/i2cslave"
)

// replyTimeout bounds how long a read request waits for the handler
const replyTimeout = 20 * time.Millisecond

type targetEvent struct {
	event machine.I2CTargetEvent
	data  []byte
}

// targetPeripheral adapts the blocking machine.I2C target API to the
// polling peripheral contract. WaitForEvent runs on its own goroutine;
// a read request holds it until the handler has replied.
type targetPeripheral struct {
	i2c     *machine.I2C
	events  chan targetEvent
	replied chan struct{}

	held    *targetEvent
	rx      []byte
	reading bool
	started bool
}

func newTargetPeripheral(i2c *machine.I2C, addr uint16, sda, scl machine.Pin) (*targetPeripheral, error) {
	err := i2c.Configure(machine.I2CConfig{
		Mode: machine.I2CModeTarget,
		SDA:  sda,
		SCL:  scl,
	})
	if err != nil {
		return nil, err
	}
	if err := i2c.Listen(addr); err != nil {
		return nil, err
	}
	p := &targetPeripheral{
		i2c:     i2c,
		events:  make(chan targetEvent, 8),
		replied: make(chan struct{}, 1),
	}
	go p.listen()
	return p, nil
}

func (p *targetPeripheral) listen() {
	var buf [64]byte
	for {
		evt, count, err := p.i2c.WaitForEvent(buf[:])
		if err != nil {
			println("i2c target error:", err.Error())
			continue
		}
		data := make([]byte, count)
		copy(data, buf[:count])
		p.events <- targetEvent{event: evt, data: data}

		if evt == machine.I2CRequest {
			select {
			case <-p.replied:
			case <-time.After(replyTimeout):
				// the master reads whatever the FIFO holds
			}
		}
	}
}

// HandleEvent implements i2cslave.Peripheral. The hardware reports no
// start condition, so one is synthesised ahead of the first event of
// each transaction and that event is held for the next poll.
func (p *targetPeripheral) HandleEvent() (i2cslave.State, error) {
	var evt targetEvent
	if p.held != nil {
		evt, p.held = *p.held, nil
	} else {
		select {
		case evt = <-p.events:
		default:
			return i2cslave.StateNone, nil
		}
	}

	if !p.started && evt.event != machine.I2CFinish {
		p.started = true
		p.held = &evt
		return i2cslave.StateStart, nil
	}

	switch evt.event {
	case machine.I2CReceive:
		p.rx = append(p.rx, evt.data...)
		return i2cslave.StateReceive, nil
	case machine.I2CRequest:
		p.reading = true
		return i2cslave.StateRequest, nil
	case machine.I2CFinish:
		p.started = false
		p.reading = false
		return i2cslave.StateFinish, nil
	}
	return i2cslave.StateNone, nil
}

// Available implements i2cslave.Peripheral
func (p *targetPeripheral) Available() bool {
	return len(p.rx) > 0
}

// ReadDataReceived implements i2cslave.Peripheral
func (p *targetPeripheral) ReadDataReceived() byte {
	if len(p.rx) == 0 {
		return 0x00
	}
	b := p.rx[0]
	p.rx = p.rx[1:]
	return b
}

// WriteData implements i2cslave.Peripheral. A read request is answered
// with a single byte.
func (p *targetPeripheral) WriteData(b byte) error {
	p.reading = false
	err := p.i2c.Reply([]byte{b})
	select {
	case p.replied <- struct{}{}:
	default:
	}
	return err
}

// IsMasterReqRead implements i2cslave.Peripheral
func (p *targetPeripheral) IsMasterReqRead() bool {
	return p.reading
}
