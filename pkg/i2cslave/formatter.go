// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package i2cslave

import (
	"fmt"
	"strings"
)

// FormatEvent formats an event into a human-readable line
func FormatEvent(ev Event) string {
	timestamp := ev.Time.Format("15:04:05.000")

	switch ev.Kind {
	case KindError:
		return fmt.Sprintf("[%s] ERROR %s: %v\n", timestamp, ev.Code, ev.Err)
	case KindResponse:
		return fmt.Sprintf("[%s] RESPONSE %s\n", timestamp, ev.Code)
	case KindHeartbeat, KindStartup, KindBlank:
		return fmt.Sprintf("[%s] %s %s\n", timestamp, strings.ToUpper(ev.Kind.String()), ev.Color)
	}

	result := fmt.Sprintf("[%s] %-6s %s", timestamp, ev.State, ev.Message)
	if ev.Payload != "" {
		result += fmt.Sprintf(" payload=%q", ev.Payload)
	}
	if ev.Result != "" && ev.Result != ev.Payload {
		result += fmt.Sprintf(" result=%q", ev.Result)
	}
	return result + "\n"
}

// FormatFrame formats a decoded receive frame
func FormatFrame(f Frame) string {
	result := fmt.Sprintf("register=0x%02X declared=%d validated=%t eor=%t\n",
		f.Address, f.Declared, f.Validated, f.EndOfRecord)
	if f.Payload != "" {
		result += fmt.Sprintf("  Payload: %q\n", f.Payload)
	}
	if len(f.Data) > 0 {
		result += "  Data: " + FormatHex(f.Data) + "\n"
	}
	return result
}

// FormatHex formats bytes as space-separated hex pairs
func FormatHex(data []byte) string {
	parts := make([]string, len(data))
	for i, b := range data {
		parts[i] = fmt.Sprintf("%02X", b)
	}
	return strings.Join(parts, " ")
}
