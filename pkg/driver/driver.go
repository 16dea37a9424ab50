// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package driver provides the ItsyBitsy RP2040 payload processor: "set <color>"
// commands shown on the board's NeoPixel.
package driver

import (
	"fmt"
	"strings"
	"sync"

	"github.com/Thermoquad/itsystat/pkg/colors"
	"github.com/Thermoquad/itsystat/pkg/i2cslave"
)

const setPrefix = "set "

// Pixel is a single addressable RGB LED
type Pixel interface {
	SetColor(c colors.RGB) error
}

// PixelFunc adapts a function to the Pixel interface
type PixelFunc func(c colors.RGB) error

// SetColor calls f(c)
func (f PixelFunc) SetColor(c colors.RGB) error {
	return f(c)
}

// ColorProcessor handles "set <color>" payloads
type ColorProcessor struct {
	Pixel   Pixel
	SwapGRB bool // pixel is wired GRB instead of RGB

	mu   sync.Mutex
	sink i2cslave.StatusSink
}

// NewColorProcessor creates a processor driving pixel
func NewColorProcessor(pixel Pixel, swapGRB bool) *ColorProcessor {
	return &ColorProcessor{Pixel: pixel, SwapGRB: swapGRB}
}

// Attach sets the sink notified of processed colours, usually the Handler
func (p *ColorProcessor) Attach(sink i2cslave.StatusSink) {
	p.mu.Lock()
	p.sink = sink
	p.mu.Unlock()
}

// Process implements i2cslave.Processor
func (p *ColorProcessor) Process(payload string) (string, error) {
	if !strings.HasPrefix(payload, setPrefix) {
		return fmt.Sprintf("unprocessed payload: '%s'", payload), nil
	}

	key := strings.ToUpper(payload[len(setPrefix):])
	color, ok := colors.Table[key]
	if !ok {
		return "", i2cslave.Errorf(i2cslave.BadRequest, "unrecognised color name: '%s'", key)
	}

	shown := color
	if p.SwapGRB {
		shown = color.GRB()
	}
	if p.Pixel != nil {
		if err := p.Pixel.SetColor(shown); err != nil {
			return "", i2cslave.Errorf(i2cslave.BadRequest,
				"%T error during payload processing: '%v'", err, err)
		}
	}

	result := fmt.Sprintf("processed payload: '%s'", payload)
	p.mu.Lock()
	sink := p.sink
	p.mu.Unlock()
	if sink != nil {
		sink.Status(result, color)
	}
	return result, nil
}
