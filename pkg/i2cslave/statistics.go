// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package i2cslave

import (
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Statistics tracks transaction statistics and error rates. It subscribes to
// handler events and is safe to read from another goroutine.
type Statistics struct {
	mu    sync.Mutex
	clock clock.Clock

	StartTime      time.Time
	LastUpdateTime time.Time

	// Counters
	Transactions uint64
	Payloads     uint64
	Requests     uint64
	Okay         uint64
	Empty        uint64
	Errors       uint64
	Heartbeats   uint64
	ByCode       map[Response]uint64

	// Rates (calculated)
	TransactionRate float64 // transactions/sec
	ErrorRate       float64 // errors/sec
}

// NewStatistics creates a new statistics tracker
func NewStatistics(c clock.Clock) *Statistics {
	if c == nil {
		c = clock.New()
	}
	now := c.Now()
	return &Statistics{
		clock:          c,
		StartTime:      now,
		LastUpdateTime: now,
		ByCode:         make(map[Response]uint64),
	}
}

// OnEvent updates statistics from a handler event
func (s *Statistics) OnEvent(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch ev.Kind {
	case KindStatus:
		switch ev.Message {
		case "start":
			s.Transactions++
		case "rxd":
			if ev.Payload != "" {
				s.Payloads++
			}
		}
	case KindError:
		s.Errors++
		s.ByCode[ev.Code]++
	case KindResponse:
		s.Requests++
		switch ev.Code {
		case Okay:
			s.Okay++
		case EmptyPayload:
			s.Empty++
		}
	case KindHeartbeat:
		if !ev.Color.IsBlack() {
			s.Heartbeats++
		}
	}

	s.LastUpdateTime = s.clock.Now()
}

// calculateRates calculates transaction and error rates; s.mu must be held
func (s *Statistics) calculateRates() {
	elapsed := s.clock.Since(s.StartTime).Seconds()
	if elapsed > 0 {
		s.TransactionRate = float64(s.Transactions) / elapsed
		s.ErrorRate = float64(s.Errors) / elapsed
	}
}

// Snapshot returns a copy of the counters with rates calculated
func (s *Statistics) Snapshot() *Statistics {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calculateRates()

	byCode := make(map[Response]uint64, len(s.ByCode))
	for k, v := range s.ByCode {
		byCode[k] = v
	}
	return &Statistics{
		clock:           s.clock,
		StartTime:       s.StartTime,
		LastUpdateTime:  s.LastUpdateTime,
		Transactions:    s.Transactions,
		Payloads:        s.Payloads,
		Requests:        s.Requests,
		Okay:            s.Okay,
		Empty:           s.Empty,
		Errors:          s.Errors,
		Heartbeats:      s.Heartbeats,
		ByCode:          byCode,
		TransactionRate: s.TransactionRate,
		ErrorRate:       s.ErrorRate,
	}
}

// String returns a formatted statistics summary
func (s *Statistics) String() string {
	snap := s.Snapshot()

	var okayPercent, errorPercent float64
	if snap.Requests > 0 {
		okayPercent = float64(snap.Okay) * 100.0 / float64(snap.Requests)
	}
	if snap.Transactions > 0 {
		errorPercent = float64(snap.Errors) * 100.0 / float64(snap.Transactions)
	}

	elapsed := snap.clock.Since(snap.StartTime)

	result := fmt.Sprintf("=== Statistics (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Transactions:    %8d\n", snap.Transactions)
	result += fmt.Sprintf("Payloads:        %8d\n", snap.Payloads)
	result += fmt.Sprintf("Read Requests:   %8d\n", snap.Requests)
	result += fmt.Sprintf("  Okay:          %8d (%.1f%%)\n", snap.Okay, okayPercent)
	if snap.Empty > 0 {
		result += fmt.Sprintf("  Empty:         %8d\n", snap.Empty)
	}
	if snap.Errors > 0 {
		result += fmt.Sprintf("Errors:          %8d (%.1f%%)\n", snap.Errors, errorPercent)
		for _, code := range Responses {
			if n := snap.ByCode[code]; n > 0 {
				result += fmt.Sprintf("  %-18s %5d\n", code.Constant()+":", n)
			}
		}
	}
	if snap.Heartbeats > 0 {
		result += fmt.Sprintf("Heartbeats:      %8d\n", snap.Heartbeats)
	}

	result += fmt.Sprintf("Transaction Rate:%8.1f tx/sec\n", snap.TransactionRate)
	result += fmt.Sprintf("Error Rate:      %8.1f errors/sec\n", snap.ErrorRate)
	result += "================================\n"

	return result
}

// Reset resets all statistics counters
func (s *Statistics) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	s.StartTime = now
	s.LastUpdateTime = now
	s.Transactions = 0
	s.Payloads = 0
	s.Requests = 0
	s.Okay = 0
	s.Empty = 0
	s.Errors = 0
	s.Heartbeats = 0
	s.ByCode = make(map[Response]uint64)
	s.TransactionRate = 0
	s.ErrorRate = 0
}
