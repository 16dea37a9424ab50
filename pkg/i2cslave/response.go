// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package i2cslave

import "fmt"

// Response is the single status byte returned on every master read
type Response byte

// Response codes. Values at or below Okay are considered successful.
const (
	Init            Response = 0x10
	Okay            Response = 0x20
	BadRequest      Response = 0x40
	BadAddress      Response = 0x41
	OutOfSync       Response = 0x42
	InvalidChar     Response = 0x43
	SourceTooLarge  Response = 0x44
	Unvalidated     Response = 0x45
	EmptyPayload    Response = 0x46
	PayloadTooLarge Response = 0x47
	UnknownError    Response = 0x50
)

// Responses lists every response code in protocol order
var Responses = []Response{
	Init,
	Okay,
	BadRequest,
	BadAddress,
	OutOfSync,
	InvalidChar,
	SourceTooLarge,
	Unvalidated,
	EmptyPayload,
	PayloadTooLarge,
	UnknownError,
}

// IsOkay reports whether the code signals success
func (r Response) IsOkay() bool {
	return r <= Okay
}

// IsError reports whether the code signals a failure
func (r Response) IsError() bool {
	return !r.IsOkay()
}

// Valid reports whether the byte is a known response code
func (r Response) Valid() bool {
	for _, v := range Responses {
		if v == r {
			return true
		}
	}
	return false
}

// Num returns the legacy ordinal used by the MROS master (0, 20, 40, ...)
func (r Response) Num() int {
	if r == Init {
		return 0
	}
	return int(r>>4)*10 + int(r&0x0F)
}

// Name returns the display name of the code
func (r Response) Name() string {
	switch r {
	case Init:
		return "init"
	case Okay:
		return "okay"
	case BadRequest:
		return "bad request"
	case BadAddress:
		return "bad address"
	case OutOfSync:
		return "out of sync"
	case InvalidChar:
		return "invalid character"
	case SourceTooLarge:
		return "source too large"
	case Unvalidated:
		return "unvalidated"
	case EmptyPayload:
		return "empty payload"
	case PayloadTooLarge:
		return "payload too large"
	case UnknownError:
		return "unknown error"
	default:
		return "unknown"
	}
}

// Constant returns the upper-case identifier of the code (e.g. "BAD_REQUEST")
func (r Response) Constant() string {
	switch r {
	case Init:
		return "INIT"
	case Okay:
		return "OKAY"
	case BadRequest:
		return "BAD_REQUEST"
	case BadAddress:
		return "BAD_ADDRESS"
	case OutOfSync:
		return "OUT_OF_SYNC"
	case InvalidChar:
		return "INVALID_CHAR"
	case SourceTooLarge:
		return "SOURCE_TOO_LARGE"
	case Unvalidated:
		return "UNVALIDATED"
	case EmptyPayload:
		return "EMPTY_PAYLOAD"
	case PayloadTooLarge:
		return "PAYLOAD_TOO_LARGE"
	case UnknownError:
		return "UNKNOWN_ERROR"
	default:
		return "UNKNOWN"
	}
}

// String implements fmt.Stringer
func (r Response) String() string {
	return fmt.Sprintf("%s (0x%02X)", r.Constant(), byte(r))
}

// ResponseFromValue decodes a response byte read from the bus
func ResponseFromValue(b byte) (Response, error) {
	r := Response(b)
	if !r.Valid() {
		return 0, fmt.Errorf("unrecognised response code: 0x%02X", b)
	}
	return r, nil
}
