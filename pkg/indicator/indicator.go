// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package indicator provides status sinks for the I2C slave handler: a
// console logger, GPIO LEDs and an MQTT publisher.
package indicator

import (
	"go.uber.org/multierr"

	"github.com/Thermoquad/itsystat/pkg/i2cslave"
)

// Fanout forwards every event to each subscriber in order
type Fanout []i2cslave.Subscriber

// OnEvent implements i2cslave.Subscriber
func (f Fanout) OnEvent(ev i2cslave.Event) {
	for _, s := range f {
		if s != nil {
			s.OnEvent(ev)
		}
	}
}

// MultiLED drives several LEDs together
type MultiLED []i2cslave.LED

// Set implements i2cslave.LED; every LED is set even if an earlier one fails
func (m MultiLED) Set(on bool) error {
	var err error
	for _, led := range m {
		err = multierr.Append(err, led.Set(on))
	}
	return err
}

// NopLED discards LED writes
type NopLED struct{}

// Set implements i2cslave.LED
func (NopLED) Set(bool) error { return nil }
