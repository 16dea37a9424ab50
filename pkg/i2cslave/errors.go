// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package i2cslave

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrPeripheralClosed is returned by a Peripheral whose underlying device is
// gone for good. Run stops when it sees it.
var ErrPeripheralClosed = errors.New("peripheral closed")

// Error is a transaction-local protocol failure carrying the response code
// that will be returned to the master
type Error struct {
	Code    Response
	Message string
}

// Error implements the error interface
func (e *Error) Error() string {
	return e.Message
}

// Errorf creates a protocol error with a formatted message
func Errorf(code Response, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf returns the response code an error maps to: Okay for nil, the
// carried code for protocol errors, UnknownError for anything else
func CodeOf(err error) Response {
	if err == nil {
		return Okay
	}
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Code
	}
	return UnknownError
}

// asProtocolError converts any processing error to a protocol error
func asProtocolError(err error) *Error {
	var pe *Error
	if errors.As(err, &pe) {
		return pe
	}
	return Errorf(UnknownError, "%T error during payload processing: '%v'", err, err)
}
