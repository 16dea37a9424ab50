// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package i2cslave

import (
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"

	"github.com/Thermoquad/itsystat/pkg/colors"
)

func TestStatistics_CountsTransactions(t *testing.T) {
	mock := clock.NewMock()
	stats := NewStatistics(mock)
	h, p := newTestHandler(WithClock(mock))
	h.Subscribe(stats)

	transact(t, h, p, frame("set red"))
	finish(t, h, p)
	transact(t, h, p, []byte{0x44, 0x01, 0xFF})
	finish(t, h, p)
	transact(t, h, p, []byte{0x44, 60})
	finish(t, h, p)

	mock.Add(3 * time.Second)
	snap := stats.Snapshot()
	require.Equal(t, uint64(3), snap.Transactions)
	require.Equal(t, uint64(1), snap.Payloads)
	require.Equal(t, uint64(3), snap.Requests)
	require.Equal(t, uint64(1), snap.Okay)
	require.Equal(t, uint64(1), snap.Empty)
	require.Equal(t, uint64(1), snap.Errors)
	require.Equal(t, uint64(1), snap.ByCode[SourceTooLarge])
	require.InDelta(t, 1.0, snap.TransactionRate, 0.001)
	require.InDelta(t, 1.0/3.0, snap.ErrorRate, 0.001)

	out := stats.String()
	require.True(t, strings.HasPrefix(out, "=== Statistics (3 seconds) ==="))
	require.Contains(t, out, "SOURCE_TOO_LARGE:")

	stats.Reset()
	require.Equal(t, uint64(0), stats.Snapshot().Transactions)
	require.Empty(t, stats.Snapshot().ByCode)
}

func TestStatistics_ErrorCountsOneRequest(t *testing.T) {
	stats := NewStatistics(clock.NewMock())
	h, p := newTestHandler()
	rec := &eventRecorder{}
	h.Subscribe(stats)
	h.Subscribe(rec)

	require.Equal(t, SourceTooLarge, transact(t, h, p, []byte{0x44, 60}))
	finish(t, h, p)

	snap := stats.Snapshot()
	require.Equal(t, uint64(1), snap.Requests)
	require.Equal(t, uint64(1), snap.Errors)

	var responses int
	for _, ev := range rec.events {
		if ev.Kind == KindResponse {
			responses++
			require.Equal(t, SourceTooLarge, ev.Code)
		}
	}
	require.Equal(t, 1, responses)
}

func TestStatistics_Heartbeats(t *testing.T) {
	stats := NewStatistics(clock.NewMock())
	stats.OnEvent(Event{Kind: KindHeartbeat, Color: colors.DarkCyan})
	stats.OnEvent(Event{Kind: KindHeartbeat, Color: colors.Black})
	require.Equal(t, uint64(1), stats.Snapshot().Heartbeats)
}

func TestFormatEvent(t *testing.T) {
	ts := time.Date(2024, 8, 14, 12, 30, 5, 250*int(time.Millisecond), time.UTC)

	line := FormatEvent(Event{Kind: KindStatus, Message: "rxd", State: StateReceive, Payload: "set red", Result: "processed payload: 'set red'", Time: ts})
	require.Equal(t, "[12:30:05.250] RECEIVE rxd payload=\"set red\" result=\"processed payload: 'set red'\"\n", line)

	line = FormatEvent(Event{Kind: KindResponse, Code: Okay, Time: ts})
	require.Equal(t, "[12:30:05.250] RESPONSE OKAY (0x20)\n", line)

	require.Equal(t, "44 07 FF", FormatHex([]byte{0x44, 0x07, 0xFF}))
}
