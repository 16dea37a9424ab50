// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bridge

import (
	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"
)

// message is the CBOR body of every frame: [type, {key: value}]
type message struct {
	_      struct{} `cbor:",toarray"`
	Type   uint8
	Fields map[int]interface{}
}

// ParseMessage decodes a CBOR message into its type and payload map
func ParseMessage(data []byte) (uint8, map[int]interface{}, error) {
	if len(data) == 0 {
		return 0, nil, errors.New("empty CBOR payload")
	}
	var msg message
	if err := cbor.Unmarshal(data, &msg); err != nil {
		return 0, nil, errors.Wrap(err, "failed to decode CBOR")
	}
	if len(msg.Fields) == 0 {
		return msg.Type, nil, nil
	}
	return msg.Type, msg.Fields, nil
}

// EncodeMessage encodes a message type and payload map as CBOR
func EncodeMessage(msgType uint8, fields map[int]interface{}) ([]byte, error) {
	if len(fields) == 0 {
		fields = nil
	}
	data, err := cbor.Marshal(message{Type: msgType, Fields: fields})
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode CBOR")
	}
	return data, nil
}

// GetMapUint extracts an unsigned integer from a payload map
func GetMapUint(m map[int]interface{}, key int) (uint64, bool) {
	v, ok := m[key]
	if !ok {
		return 0, false
	}
	switch val := v.(type) {
	case uint64:
		return val, true
	case int64:
		if val >= 0 {
			return uint64(val), true
		}
	}
	return 0, false
}

// GetMapBytes extracts a byte string from a payload map
func GetMapBytes(m map[int]interface{}, key int) ([]byte, bool) {
	v, ok := m[key]
	if !ok {
		return nil, false
	}
	b, ok := v.([]byte)
	return b, ok
}

// GetMapString extracts a text string from a payload map
func GetMapString(m map[int]interface{}, key int) (string, bool) {
	v, ok := m[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}
