// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

//go:build tinygo && rp2040

package main

import (
	"image/color"
	"machine"

	"tinygo.org/x/drivers/ws2812"

	"github.com/Thermoquad/itsystat/pkg/colors"
)

// neoPixel drives the on-board WS2812
type neoPixel struct {
	dev ws2812.Device
	buf [1]color.RGBA
}

func newNeoPixel(data, power machine.Pin) *neoPixel {
	power.Configure(machine.PinConfig{Mode: machine.PinOutput})
	power.High()
	data.Configure(machine.PinConfig{Mode: machine.PinOutput})
	return &neoPixel{dev: ws2812.New(data)}
}

// SetColor implements driver.Pixel
func (n *neoPixel) SetColor(c colors.RGB) error {
	n.buf[0] = c.RGBA()
	return n.dev.WriteColors(n.buf[:])
}

// pinLED drives the red status LED
type pinLED struct {
	pin machine.Pin
}

func newPinLED(pin machine.Pin) *pinLED {
	pin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	pin.Low()
	return &pinLED{pin: pin}
}

// Set implements i2cslave.LED
func (l *pinLED) Set(on bool) error {
	l.pin.Set(on)
	return nil
}
