// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bridge

import (
	"fmt"

	"github.com/pkg/errors"
)

// Encode creates a complete wire-formatted frame, including framing and
// byte stuffing
func Encode(address, msgType uint8, fields map[int]interface{}) ([]byte, error) {
	payload, err := EncodeMessage(msgType, fields)
	if err != nil {
		return nil, err
	}
	if len(payload) > MaxPayloadSize {
		return nil, errors.Errorf("CBOR payload too large: %d bytes (max %d)", len(payload), MaxPayloadSize)
	}

	// length + address + payload is CRC'd and stuffed
	data := make([]byte, 0, 2+len(payload)+2)
	data = append(data, uint8(len(payload)), address)
	data = append(data, payload...)

	crc := CalculateCRC(data)
	data = append(data, byte(crc>>8), byte(crc&0xFF))

	frame := make([]byte, 0, len(data)*2+2)
	frame = append(frame, StartByte)
	frame = append(frame, stuffBytes(data)...)
	frame = append(frame, EndByte)
	return frame, nil
}

// EncodePacket encodes a Packet back to wire format
func EncodePacket(p *Packet) ([]byte, error) {
	return Encode(p.Address(), p.Type(), p.Fields())
}

// EncodeReply encodes a response byte for the bridge to transmit
func EncodeReply(address uint8, b byte) ([]byte, error) {
	return Encode(address, MsgReply, map[int]interface{}{KeyValue: uint64(b)})
}

// stuffBytes escapes START, END and ESC as ESC + (byte XOR EscXor)
func stuffBytes(data []byte) []byte {
	result := make([]byte, 0, len(data)*2)
	for _, b := range data {
		switch b {
		case StartByte, EndByte, EscByte:
			result = append(result, EscByte, b^EscXor)
		default:
			result = append(result, b)
		}
	}
	return result
}

// UnstuffBytes removes byte stuffing from escaped data
func UnstuffBytes(data []byte) ([]byte, error) {
	result := make([]byte, 0, len(data))
	escapeNext := false
	for _, b := range data {
		switch {
		case escapeNext:
			result = append(result, b^EscXor)
			escapeNext = false
		case b == EscByte:
			escapeNext = true
		default:
			result = append(result, b)
		}
	}
	if escapeNext {
		return nil, fmt.Errorf("incomplete escape sequence at end of data")
	}
	return result, nil
}
