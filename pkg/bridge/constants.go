// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package bridge relays I2C target events from an RP2040 bridge to the host.
//
// The bridge firmware forwards every target-mode event (start, received
// bytes, read request, finish) over UART or WebSocket and transmits the
// response bytes it is sent back. Frames use the Thermoquad serial framing:
//
//	START | len | addr | CBOR [type, {0: value}] | CRC16 (BE) | END
//
// with byte stuffing of START, END and ESC, and CRC-16-CCITT over
// len, addr and payload. Peripheral adapts the stream to i2cslave.Peripheral.
package bridge

// Protocol framing bytes
const (
	StartByte = 0x7E
	EndByte   = 0x7F
	EscByte   = 0x7D
	EscXor    = 0x20
)

// Packet size limits
const (
	MaxPacketSize  = 128 // 6 overhead + 122 payload
	MaxPayloadSize = 122
)

// CRC-16-CCITT configuration
const (
	crcPolynomial = 0x1021
	crcInitial    = 0xFFFF
)

// AddressAny matches every target on the bridge
const AddressAny = 0x00

// Message types - Bus Events (Bridge → Host) 0x10-0x1F
const (
	MsgStart   = 0x10
	MsgReceive = 0x11
	MsgRequest = 0x12
	MsgFinish  = 0x13
	MsgHello   = 0x1F
)

// Message types - Commands (Host → Bridge) 0x20-0x2F
const (
	MsgReply = 0x20
	MsgPing  = 0x2F
)

// Payload map keys
const (
	KeyValue = 0
)

// Decoder states (internal)
const (
	stateIdle = iota
	stateLength
	stateAddress
	statePayload
	stateCRC1
	stateCRC2
	stateEnd
)
