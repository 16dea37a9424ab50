// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bridge

import "time"

// Packet is a decoded bridge frame
type Packet struct {
	length      uint8
	address     uint8
	cborPayload []byte // [msg_type, payload_map]
	crc         uint16
	timestamp   time.Time

	// parsed lazily from cborPayload
	msgType  uint8
	fields   map[int]interface{}
	parsed   bool
	parseErr error
}

// NewPacket creates a packet for encoding
func NewPacket(address, msgType uint8, fields map[int]interface{}) *Packet {
	return &Packet{
		address:   address,
		msgType:   msgType,
		fields:    fields,
		parsed:    true,
		timestamp: time.Now(),
	}
}

func (p *Packet) ensureParsed() {
	if p.parsed {
		return
	}
	p.parsed = true
	p.msgType, p.fields, p.parseErr = ParseMessage(p.cborPayload)
}

// Length returns the CBOR payload length
func (p *Packet) Length() uint8 {
	return p.length
}

// Address returns the I2C target address the frame belongs to
func (p *Packet) Address() uint8 {
	return p.address
}

// Type returns the message type
func (p *Packet) Type() uint8 {
	p.ensureParsed()
	return p.msgType
}

// Fields returns the decoded payload map (nil when empty)
func (p *Packet) Fields() map[int]interface{} {
	p.ensureParsed()
	return p.fields
}

// ParseError returns any error from parsing the CBOR payload
func (p *Packet) ParseError() error {
	p.ensureParsed()
	return p.parseErr
}

// Payload returns the raw CBOR bytes
func (p *Packet) Payload() []byte {
	return p.cborPayload
}

// CRC returns the frame CRC
func (p *Packet) CRC() uint16 {
	return p.crc
}

// Timestamp returns when the packet was decoded or created
func (p *Packet) Timestamp() time.Time {
	return p.timestamp
}

// Data returns the bytes carried by a RECEIVE event
func (p *Packet) Data() []byte {
	b, _ := GetMapBytes(p.Fields(), KeyValue)
	return b
}

// Count returns the read count of a REQUEST event
func (p *Packet) Count() int {
	n, ok := GetMapUint(p.Fields(), KeyValue)
	if !ok {
		return 0
	}
	return int(n)
}
