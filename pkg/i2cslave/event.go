// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package i2cslave

import (
	"time"

	"github.com/Thermoquad/itsystat/pkg/colors"
)

// EventKind classifies handler events
type EventKind int

// Event kinds
const (
	KindStatus    EventKind = iota // state tag or processor message
	KindError                      // protocol error raised
	KindResponse                   // response code written to the master
	KindHeartbeat                  // liveness pulse
	KindStartup                    // startup blink
	KindBlank                      // indicator cleared after a visual status
)

// String returns the kind name
func (k EventKind) String() string {
	switch k {
	case KindStatus:
		return "status"
	case KindError:
		return "error"
	case KindResponse:
		return "response"
	case KindHeartbeat:
		return "heartbeat"
	case KindStartup:
		return "startup"
	case KindBlank:
		return "blank"
	default:
		return "unknown"
	}
}

// Event is a status notification published by the Handler
type Event struct {
	Kind    EventKind
	Message string
	Color   colors.RGB
	State   State
	Code    Response
	Payload string
	Result  string
	Err     error
	Time    time.Time
}

// Subscriber receives handler events. Subscribers are called synchronously
// on the handler loop and must not block.
type Subscriber interface {
	OnEvent(ev Event)
}

// SubscriberFunc adapts a function to the Subscriber interface
type SubscriberFunc func(ev Event)

// OnEvent calls f(ev)
func (f SubscriberFunc) OnEvent(ev Event) {
	f(ev)
}

// errorColor returns the indicator colour for a protocol error
func errorColor(code Response) colors.RGB {
	switch code {
	case SourceTooLarge:
		return colors.Orange
	case InvalidChar:
		return colors.Red
	case OutOfSync:
		return colors.Fuchsia
	case PayloadTooLarge:
		return colors.Tangerine
	case Unvalidated:
		return colors.Brown
	default:
		return colors.DarkRed
	}
}
