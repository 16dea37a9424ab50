// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package i2cslave

import "strings"

// Frame is the outcome of decoding one receive phase
type Frame struct {
	Address     byte
	Declared    int
	Payload     string
	Validated   bool
	EndOfRecord bool
	Data        []byte // data bytes consumed after the address, excluding 0xFF
}

// Empty reports whether no payload characters were received
func (f Frame) Empty() bool {
	return len(f.Payload) == 0
}

// Receiver decodes the bytes of a single receive phase, one byte at a time
type Receiver struct {
	frame    Frame
	latched  bool
	index    int
	buf      strings.Builder
	finished bool
}

// NewReceiver creates a receiver for a transaction whose register address is
// currently address. An unset (0x00) address latches the first byte fed.
func NewReceiver(address byte) *Receiver {
	return &Receiver{
		frame:   Frame{Address: address},
		latched: address != 0x00,
	}
}

// Feed processes one byte. It returns true once the end-of-record marker has
// been seen; any further bytes belong to the next record.
func (r *Receiver) Feed(b byte) (bool, error) {
	if r.frame.EndOfRecord {
		return true, nil
	}

	if !r.latched {
		r.frame.Address = b
		r.latched = true
		return false, nil
	}

	switch b {
	case BytePadding:
		// no-op
	case ByteValidate:
		r.frame.Validated = true
	case ByteEndOfRecord:
		r.frame.EndOfRecord = true
		return true, nil
	default:
		length := r.buf.Len()
		if r.index == 0 {
			r.frame.Declared = int(b)
			if r.frame.Declared > MaxChars {
				return false, Errorf(SourceTooLarge,
					"WARNING: packet failed with %d chars, exceeded maximum length of %d.",
					r.frame.Declared, MaxChars)
			}
		} else if length < r.frame.Declared {
			if b < MinChar || b > MaxChar {
				return false, Errorf(InvalidChar,
					"invalid character received: '0x%02X' (int: '%d'); buf length: %d; sb: '%s'",
					b, b, length, r.buf.String())
			}
			r.buf.WriteByte(b)
		} else if length == r.frame.Declared {
			// trailing padding before the validation byte
		} else {
			return false, Errorf(OutOfSync,
				"out of sync: '0x%02X' (int: '%d'); buf length: %d; expected length: %d",
				b, b, length, r.frame.Declared)
		}
	}

	r.index++
	r.frame.Data = append(r.frame.Data, b)
	return false, nil
}

// Finish validates the accumulated buffer and returns the decoded frame.
// An empty buffer is not an error; there is simply nothing to process.
func (r *Receiver) Finish() (Frame, error) {
	r.finished = true
	r.frame.Payload = r.buf.String()
	if r.frame.Empty() {
		return r.frame, nil
	}
	if !r.frame.Validated {
		return r.frame, Errorf(Unvalidated, "unvalidated buffer: '%s'", r.frame.Payload)
	}
	if r.frame.Declared != len(r.frame.Payload) {
		return r.frame, Errorf(PayloadTooLarge,
			"package failed with expected length: %d; actual length: %d.",
			r.frame.Declared, len(r.frame.Payload))
	}
	return r.frame, nil
}

// Frame returns the frame decoded so far
func (r *Receiver) Frame() Frame {
	f := r.frame
	f.Payload = r.buf.String()
	return f
}

// DecodeReceive decodes a complete receive phase. Bytes after the
// end-of-record marker are not consumed; the returned count tells how many
// bytes of data were used.
func DecodeReceive(data []byte, address byte) (Frame, int, error) {
	r := NewReceiver(address)
	n := 0
	for _, b := range data {
		n++
		done, err := r.Feed(b)
		if err != nil {
			return r.Frame(), n, err
		}
		if done {
			break
		}
	}
	frame, err := r.Finish()
	return frame, n, err
}
