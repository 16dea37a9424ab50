// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

//go:build tinygo && rp2040

// Command rp2040 runs the I2C slave handler on an Adafruit ItsyBitsy RP2040.
// Payloads of the form "set <colour>" are shown on the NeoPixel.
//
//	tinygo flash -target=itsybitsy-rp2040 ./firmware/rp2040
package main

import (
	"context"
	"machine"
	"time"

	"github.com/Thermoquad/itsystat/pkg/driver"
	"github.com/Thermoquad/itsystat/pkg/i2cslave"
)

const (
	neoPixelPin      = machine.GPIO17
	neoPixelPowerPin = machine.GPIO16
	swapGRB          = true
	visual           = false
)

func main() {
	// give the USB console a moment to attach
	time.Sleep(2 * time.Second)
	println("ItsyBitsy RP2040 I2C slave")

	periph, err := newTargetPeripheral(machine.I2C0, i2cslave.DefaultAddress,
		machine.GPIO24, machine.GPIO25)
	if err != nil {
		println("failed to configure i2c target:", err.Error())
		return
	}
	println("listening on address", i2cslave.DefaultAddress)

	pixel := newNeoPixel(neoPixelPin, neoPixelPowerPin)
	led := newPinLED(machine.GPIO11)

	processor := driver.NewColorProcessor(pixel, swapGRB)
	h := i2cslave.NewHandler(periph,
		i2cslave.WithProcessor(processor),
		i2cslave.WithLED(led),
		i2cslave.WithVisual(visual),
		i2cslave.WithBlink(true),
	)
	processor.Attach(h)
	h.Subscribe(driver.NewIndicator(pixel, swapGRB, visual, nil))

	if err := h.Run(context.Background()); err != nil {
		println("handler stopped:", err.Error())
	}
}
