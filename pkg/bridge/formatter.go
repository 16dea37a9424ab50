// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bridge

import (
	"fmt"

	"github.com/Thermoquad/itsystat/pkg/i2cslave"
)

// FormatPacket formats a packet into a human-readable string
func FormatPacket(p *Packet) string {
	timestamp := p.timestamp.Format("15:04:05.000")
	msgType := FormatMessageType(p.Type())

	result := fmt.Sprintf("[%s] %s (0x%02X) addr=0x%02X len=%d\n", timestamp, msgType, p.Type(), p.address, p.length)
	if err := p.ParseError(); err != nil {
		return result + fmt.Sprintf("  (parse error: %v)\n", err)
	}
	return result + FormatFields(p.Type(), p.Fields())
}

// FormatMessageType returns the human-readable name for a message type
func FormatMessageType(msgType uint8) string {
	switch msgType {
	// Bus events (0x10-0x1F)
	case MsgStart:
		return "START"
	case MsgReceive:
		return "RECEIVE"
	case MsgRequest:
		return "REQUEST"
	case MsgFinish:
		return "FINISH"
	case MsgHello:
		return "HELLO"

	// Commands (0x20-0x2F)
	case MsgReply:
		return "REPLY"
	case MsgPing:
		return "PING"

	default:
		return "UNKNOWN"
	}
}

// FormatFields formats the payload map based on message type
func FormatFields(msgType uint8, fields map[int]interface{}) string {
	switch msgType {
	case MsgStart, MsgFinish, MsgPing:
		return "  (no payload)\n"

	case MsgReceive:
		if data, ok := GetMapBytes(fields, KeyValue); ok {
			frame, _, err := i2cslave.DecodeReceive(data, 0x00)
			result := fmt.Sprintf("  Data: %s\n", i2cslave.FormatHex(data))
			if err != nil {
				return result + fmt.Sprintf("  Decode: %v (%s)\n", err, i2cslave.CodeOf(err))
			}
			if !frame.Empty() {
				result += fmt.Sprintf("  Register: 0x%02X, Payload: %q\n", frame.Address, frame.Payload)
			}
			return result
		}

	case MsgRequest:
		if n, ok := GetMapUint(fields, KeyValue); ok {
			return fmt.Sprintf("  Read: %d byte(s)\n", n)
		}

	case MsgReply:
		if v, ok := GetMapUint(fields, KeyValue); ok {
			if v <= 0xFF {
				if r, err := i2cslave.ResponseFromValue(byte(v)); err == nil {
					return fmt.Sprintf("  Response: %s\n", r)
				}
			}
			return fmt.Sprintf("  Response: 0x%02X (unknown)\n", v)
		}

	case MsgHello:
		if s, ok := GetMapString(fields, KeyValue); ok {
			return fmt.Sprintf("  Firmware: %s\n", s)
		}
	}

	if fields == nil {
		return ""
	}
	return fmt.Sprintf("  Fields: %v\n", fields)
}
