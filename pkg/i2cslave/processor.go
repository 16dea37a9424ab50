// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package i2cslave

import "github.com/Thermoquad/itsystat/pkg/colors"

// Processor turns a validated payload into a result. Returning an *Error
// selects the response code reported to the master; any other error is
// reported as UnknownError.
type Processor interface {
	Process(payload string) (string, error)
}

// ProcessorFunc adapts a function to the Processor interface
type ProcessorFunc func(payload string) (string, error)

// Process calls f(payload)
func (f ProcessorFunc) Process(payload string) (string, error) {
	return f(payload)
}

// Identity returns the payload unchanged
var Identity = ProcessorFunc(func(payload string) (string, error) {
	return payload, nil
})

// StatusSink accepts a status message and indicator colour. The Handler
// implements it so processors can report what they did.
type StatusSink interface {
	Status(message string, color colors.RGB)
}

// LED is a binary heartbeat indicator
type LED interface {
	Set(on bool) error
}
