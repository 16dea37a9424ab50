// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package i2cslave implements the ItsyBitsy RP2040 I2C slave protocol.
//
// A bus master writes a register address, a declared payload length, up to
// MaxChars printable ASCII characters, a validation marker and an
// end-of-record marker. The slave decodes and validates the write phase,
// hands the text to a pluggable Processor, and answers every master read
// with a single Response byte.
//
// The Handler is a single-threaded polling state machine driven through the
// Peripheral interface. Status changes are published as Events to
// subscribers (console, LED, NeoPixel, MQTT, TUI).
package i2cslave

import "time"

// Receive framing bytes
const (
	BytePadding     = 0x00
	ByteValidate    = 0x01
	ByteEndOfRecord = 0xFF
)

// Printable ASCII range accepted in payloads
const (
	MinChar = 0x20
	MaxChar = 0x7E
)

// MaxChars is the maximum declared payload length
const MaxChars = 32

// Board defaults for the Adafruit ItsyBitsy RP2040
const (
	DefaultAddress = 0x44
	DefaultBusID   = 0
	DefaultSDAPin  = 24
	DefaultSCLPin  = 25
	DefaultLEDPin  = 11
)

// Loop timing
const (
	DefaultBlinkEvery  = 1000
	DefaultPulseWidth  = 4 * time.Millisecond
	startupBlinks      = 3
	startupBlinkPeriod = 50 * time.Millisecond
	startupSettle      = 333 * time.Millisecond
	unblinkDelay       = 10 * time.Millisecond
)

// State is the event reported by the peripheral's hardware state machine
type State int

// Peripheral states
const (
	StateNone State = iota
	StateStart
	StateReceive
	StateRequest
	StateFinish
)

// String returns the state name
func (s State) String() string {
	switch s {
	case StateNone:
		return "NONE"
	case StateStart:
		return "START"
	case StateReceive:
		return "RECEIVE"
	case StateRequest:
		return "REQUEST"
	case StateFinish:
		return "FINISH"
	default:
		return "UNKNOWN"
	}
}
