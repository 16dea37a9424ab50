// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package loopback

import (
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"periph.io/x/conn/v3/physic"

	"github.com/Thermoquad/itsystat/pkg/i2cslave"
)

// DefaultTimeout bounds how long Tx waits for a free-running handler
const DefaultTimeout = time.Second

// maxSteps bounds how many handler steps a synchronous Tx may take
const maxSteps = 64

// ErrNoAck is returned when no target is attached at the address
var ErrNoAck = errors.New("i2c: no ACK")

// Stepper runs one handler iteration
type Stepper interface {
	Step() error
}

type target struct {
	periph  *Peripheral
	stepper Stepper
}

// Bus is an in-memory I2C bus implementing periph's i2c.Bus
type Bus struct {
	mu      sync.Mutex
	name    string
	speed   physic.Frequency
	timeout time.Duration
	targets map[uint16]*target
}

// NewBus creates an empty bus
func NewBus(name string) *Bus {
	return &Bus{
		name:    name,
		speed:   100 * physic.KiloHertz,
		timeout: DefaultTimeout,
		targets: make(map[uint16]*target),
	}
}

// Attach connects a peripheral at addr. When stepper is non-nil each Tx
// steps it synchronously; otherwise the handler must be running elsewhere
// and Tx waits for it to drain the peripheral.
func (b *Bus) Attach(addr uint16, p *Peripheral, stepper Stepper) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.targets[addr] = &target{periph: p, stepper: stepper}
}

// SetTimeout sets how long Tx waits for a free-running handler
func (b *Bus) SetTimeout(d time.Duration) {
	b.mu.Lock()
	b.timeout = d
	b.mu.Unlock()
}

// String implements i2c.Bus
func (b *Bus) String() string {
	return fmt.Sprintf("loopback(%s)", b.name)
}

// SetSpeed implements i2c.Bus
func (b *Bus) SetSpeed(f physic.Frequency) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.speed = f
	return nil
}

// Speed returns the configured bus speed
func (b *Bus) Speed() physic.Frequency {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.speed
}

// Tx implements i2c.Bus: a write of w followed by a read into r
func (b *Bus) Tx(addr uint16, w, r []byte) error {
	b.mu.Lock()
	t, ok := b.targets[addr]
	timeout := b.timeout
	b.mu.Unlock()
	if !ok {
		return errors.Wrapf(ErrNoAck, "address 0x%02X", addr)
	}

	t.periph.Take()
	t.periph.Inject(w, len(r))

	if t.stepper != nil {
		for i := 0; t.periph.Pending(); i++ {
			if i >= maxSteps {
				return errors.Errorf("i2c: target 0x%02X did not complete transaction", addr)
			}
			if err := t.stepper.Step(); err != nil {
				var pe *i2cslave.Error
				if !errors.As(err, &pe) {
					return errors.Wrap(err, "i2c: target fault")
				}
			}
		}
	} else {
		deadline := time.Now().Add(timeout)
		for t.periph.Pending() {
			if time.Now().After(deadline) {
				return errors.Errorf("i2c: timeout waiting for target 0x%02X", addr)
			}
			time.Sleep(100 * time.Microsecond)
		}
	}

	got := t.periph.Take()
	if len(got) < len(r) {
		return errors.Errorf("i2c: short read from 0x%02X: %d of %d bytes", addr, len(got), len(r))
	}
	copy(r, got)
	return nil
}
