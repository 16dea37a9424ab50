// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bridge

import (
	"fmt"
	"time"
)

// Decoder implements the bridge frame decoder state machine
type Decoder struct {
	state       int
	buffer      []byte
	bufferIndex int
	escapeNext  bool
	packet      *Packet
	rawBuffer   []byte // raw bytes including framing
}

// NewDecoder creates a new frame decoder
func NewDecoder() *Decoder {
	return &Decoder{
		state:     stateIdle,
		buffer:    make([]byte, MaxPacketSize),
		rawBuffer: make([]byte, 0, MaxPacketSize*2),
	}
}

// Reset resets the decoder state to idle
func (d *Decoder) Reset() {
	d.state = stateIdle
	d.bufferIndex = 0
	d.escapeNext = false
	d.packet = nil
	d.rawBuffer = d.rawBuffer[:0]
}

// RawBytes returns the raw bytes accumulated since the last frame
func (d *Decoder) RawBytes() []byte {
	return d.rawBuffer
}

// DecodeByte processes a single byte. It returns a completed packet, nil
// while the frame is incomplete, or an error when the frame is rejected.
func (d *Decoder) DecodeByte(b byte) (*Packet, error) {
	d.rawBuffer = append(d.rawBuffer, b)

	if d.escapeNext {
		d.escapeNext = false
		return d.consume(b ^ EscXor)
	}

	switch b {
	case EscByte:
		d.escapeNext = true
		return nil, nil
	case StartByte:
		d.Reset()
		d.rawBuffer = append(d.rawBuffer, b)
		d.state = stateLength
		return nil, nil
	case EndByte:
		return d.finish()
	}
	return d.consume(b)
}

func (d *Decoder) finish() (*Packet, error) {
	defer d.Reset()
	if d.state != stateEnd {
		if d.state == stateIdle {
			return nil, nil
		}
		return nil, fmt.Errorf("unexpected END byte in state %d", d.state)
	}

	packet := d.packet
	calculated := CalculateCRC(d.buffer[:d.bufferIndex])
	if packet.crc != calculated {
		return nil, fmt.Errorf("CRC mismatch: expected 0x%04X, got 0x%04X", calculated, packet.crc)
	}
	packet.timestamp = time.Now()
	return packet, nil
}

func (d *Decoder) consume(b byte) (*Packet, error) {
	if d.state == stateIdle {
		return nil, nil
	}
	if d.state < stateCRC1 {
		if d.bufferIndex >= MaxPacketSize {
			d.Reset()
			return nil, fmt.Errorf("buffer overflow: frame exceeds %d bytes", MaxPacketSize)
		}
		d.buffer[d.bufferIndex] = b
		d.bufferIndex++
	}

	switch d.state {
	case stateLength:
		if b > MaxPayloadSize {
			d.Reset()
			return nil, fmt.Errorf("invalid length: %d (max %d)", b, MaxPayloadSize)
		}
		d.packet = &Packet{length: b, cborPayload: make([]byte, 0, b)}
		d.state = stateAddress

	case stateAddress:
		d.packet.address = b
		if d.packet.length == 0 {
			d.state = stateCRC1
		} else {
			d.state = statePayload
		}

	case statePayload:
		d.packet.cborPayload = append(d.packet.cborPayload, b)
		if len(d.packet.cborPayload) >= int(d.packet.length) {
			d.state = stateCRC1
		}

	case stateCRC1:
		d.packet.crc = uint16(b) << 8
		d.state = stateCRC2

	case stateCRC2:
		d.packet.crc |= uint16(b)
		d.state = stateEnd

	default:
		d.Reset()
		return nil, fmt.Errorf("frame too long: expected END after CRC")
	}
	return nil, nil
}
