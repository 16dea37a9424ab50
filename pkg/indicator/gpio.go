// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package indicator

import (
	"github.com/pkg/errors"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
)

// GPIOLED drives a status LED on a GPIO output pin
type GPIOLED struct {
	pin       gpio.PinOut
	activeLow bool
}

// NewGPIOLED wraps pin. An active-low LED is lit by driving the pin low.
func NewGPIOLED(pin gpio.PinOut, activeLow bool) *GPIOLED {
	return &GPIOLED{pin: pin, activeLow: activeLow}
}

// OpenGPIOLED looks up a pin by name in the gpio registry. The host drivers
// must already be initialised.
func OpenGPIOLED(name string, activeLow bool) (*GPIOLED, error) {
	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, errors.Errorf("gpio pin %q not found", name)
	}
	led := NewGPIOLED(pin, activeLow)
	if err := led.Set(false); err != nil {
		return nil, err
	}
	return led, nil
}

// Set implements i2cslave.LED
func (l *GPIOLED) Set(on bool) error {
	level := gpio.Level(on != l.activeLow)
	if err := l.pin.Out(level); err != nil {
		return errors.Wrapf(err, "set %s %s", l.pin, level)
	}
	return nil
}

// String returns the pin name
func (l *GPIOLED) String() string {
	return l.pin.String()
}
