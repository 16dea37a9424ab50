// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package master is the bus-master side of the ItsyBitsy I2C slave protocol
package master

import (
	"fmt"

	"github.com/Thermoquad/itsystat/pkg/i2cslave"
)

// DefaultRegister is the register address written ahead of each frame
const DefaultRegister = 0x00

// EncodeFrame builds the write phase for payload:
// [register, len, chars..., 0x01, 0xFF]
func EncodeFrame(register byte, payload string) ([]byte, error) {
	n := len(payload)
	if n > i2cslave.MaxChars {
		return nil, fmt.Errorf("payload too long: %d chars, maximum is %d", n, i2cslave.MaxChars)
	}
	// length bytes 0x00 and 0x01 read as padding and the validation marker
	if n < 2 {
		return nil, fmt.Errorf("payload too short: %d chars, minimum is 2", n)
	}
	for i := 0; i < n; i++ {
		c := payload[i]
		if c < i2cslave.MinChar || c > i2cslave.MaxChar {
			return nil, fmt.Errorf("invalid character 0x%02X at position %d", c, i)
		}
	}

	frame := make([]byte, 0, n+4)
	frame = append(frame, register, byte(n))
	frame = append(frame, payload...)
	frame = append(frame, i2cslave.ByteValidate, i2cslave.ByteEndOfRecord)
	return frame, nil
}
