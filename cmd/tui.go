// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Thermoquad/itsystat/pkg/colors"
	"github.com/Thermoquad/itsystat/pkg/i2cslave"
)

// Event log entry
type eventLogEntry struct {
	timestamp time.Time
	message   string
	isError   bool // true for errors, false for info
}

// TUI model
type model struct {
	connInfo      string
	address       uint16
	statsInterval int
	visual        bool
	stats         *i2cslave.Statistics
	eventLog      []eventLogEntry
	maxLogEntries int
	started       time.Time
	width         int
	height        int
	quitting      bool

	// last observed handler state
	state        i2cslave.State
	indicator    colors.RGB
	pixel        colors.RGB
	lastPayload  string
	lastResult   string
	lastResponse i2cslave.Response
	hasResponse  bool
}

// Messages
type tickMsg time.Time
type handlerEventMsg struct {
	event i2cslave.Event
	pixel colors.RGB
}
type logLineMsg string

// programWriter feeds zap output into the TUI event log. Lines written
// before the program is attached are delivered once it is.
type programWriter struct {
	mu      sync.Mutex
	p       *tea.Program
	pending []string
}

func (w *programWriter) attach(p *tea.Program) {
	w.mu.Lock()
	w.p = p
	pending := w.pending
	w.pending = nil
	w.mu.Unlock()
	go func() {
		for _, line := range pending {
			p.Send(logLineMsg(line))
		}
	}()
}

// Write implements zapcore.WriteSyncer
func (w *programWriter) Write(b []byte) (int, error) {
	line := strings.TrimRight(string(b), "\n")
	w.mu.Lock()
	p := w.p
	if p == nil {
		w.pending = append(w.pending, line)
	}
	w.mu.Unlock()
	if p != nil {
		p.Send(logLineMsg(line))
	}
	return len(b), nil
}

// Sync implements zapcore.WriteSyncer
func (w *programWriter) Sync() error {
	return nil
}

// formatUptime formats a duration as a human-friendly string
func formatUptime(d time.Duration) string {
	seconds := int64(d / time.Second)
	minutes := seconds / 60
	hours := minutes / 60
	days := hours / 24

	seconds %= 60
	minutes %= 60
	hours %= 24

	plural := func(n int64, unit string) string {
		if n == 1 {
			return "1 " + unit
		}
		return fmt.Sprintf("%d %ss", n, unit)
	}

	parts := []string{}
	if days > 0 {
		parts = append(parts, plural(days, "day"))
	}
	if hours > 0 {
		parts = append(parts, plural(hours, "hour"))
	}
	if minutes > 0 {
		parts = append(parts, plural(minutes, "minute"))
	}
	if seconds > 0 || len(parts) == 0 {
		parts = append(parts, plural(seconds, "second"))
	}

	// Join with commas and "and" for last item
	if len(parts) == 1 {
		return parts[0]
	}
	if len(parts) == 2 {
		return parts[0] + " and " + parts[1]
	}
	last := parts[len(parts)-1]
	rest := strings.Join(parts[:len(parts)-1], ", ")
	return rest + ", and " + last
}

func initialModel(connInfo string, address uint16, statsInterval int, visual bool, stats *i2cslave.Statistics) model {
	return model{
		connInfo:      connInfo,
		address:       address,
		statsInterval: statsInterval,
		visual:        visual,
		stats:         stats,
		eventLog:      make([]eventLogEntry, 0),
		maxLogEntries: 100,
		started:       time.Now(),
		width:         80,
		height:        24,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(),
		tea.EnterAltScreen,
	)
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "r":
			m.stats.Reset()
			m.addLogEntry("Statistics reset", false)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tickMsg:
		return m, tickCmd()

	case logLineMsg:
		line := string(msg)
		m.addLogEntry(line, strings.Contains(line, "WARN") || strings.Contains(line, "ERROR"))

	case handlerEventMsg:
		m.applyEvent(msg.event)
		m.pixel = msg.pixel
	}

	return m, nil
}

// applyEvent updates the model from a handler event
func (m *model) applyEvent(ev i2cslave.Event) {
	switch ev.Kind {
	case i2cslave.KindStatus:
		m.state = ev.State
		m.indicator = ev.Color
		if ev.Message == "rxd" {
			m.lastPayload = ev.Payload
			m.lastResult = ev.Result
			if ev.Payload != "" {
				m.addLogEntry(fmt.Sprintf("RECEIVE %q", ev.Payload), false)
			}
		}
	case i2cslave.KindError:
		m.indicator = ev.Color
		m.addLogEntry(fmt.Sprintf("%s: %v", ev.Code.Constant(), ev.Err), true)
	case i2cslave.KindResponse:
		m.lastResponse = ev.Code
		m.hasResponse = true
	case i2cslave.KindHeartbeat, i2cslave.KindStartup, i2cslave.KindBlank:
		m.indicator = ev.Color
	}
}

func (m *model) addLogEntry(message string, isError bool) {
	entry := eventLogEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	}
	m.eventLog = append(m.eventLog, entry)

	// Keep only last N entries
	if len(m.eventLog) > m.maxLogEntries {
		m.eventLog = m.eventLog[len(m.eventLog)-m.maxLogEntries:]
	}
}

func (m model) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	// Styles
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)

	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	statsLabelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)

	statsValueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))

	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("9")).
		Bold(true)

	warningStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("11"))

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	// Header
	var s strings.Builder
	s.WriteString(titleStyle.Render("ITSYSTAT - I2C SLAVE MONITOR"))
	s.WriteString("\n")
	mode := "payload colours"
	if m.visual {
		mode = "visual"
	}
	s.WriteString(headerStyle.Render(fmt.Sprintf("%s | Mode: %s | Uptime: %s | 'r' reset stats, 'q' quit",
		m.connInfo, mode, formatUptime(time.Since(m.started)))))
	s.WriteString("\n\n")

	// Slave status
	statusContent := strings.Builder{}
	statusContent.WriteString(fmt.Sprintf("%s %s   %s %s\n",
		statsLabelStyle.Render("Address:"), statsValueStyle.Render(fmt.Sprintf("0x%02X", m.address)),
		statsLabelStyle.Render("State:"), statsValueStyle.Render(m.state.String()),
	))
	statusContent.WriteString(fmt.Sprintf("%s %s %s   %s %s %s\n",
		statsLabelStyle.Render("Indicator:"), swatch(m.indicator), headerStyle.Render(colors.NameOf(m.indicator)),
		statsLabelStyle.Render("Pixel:"), swatch(m.pixel), headerStyle.Render(colors.NameOf(m.pixel)),
	))
	payload := headerStyle.Render("(none)")
	if m.lastPayload != "" {
		payload = statsValueStyle.Render(fmt.Sprintf("%q", m.lastPayload))
	}
	statusContent.WriteString(fmt.Sprintf("%s %s\n", statsLabelStyle.Render("Payload:"), payload))
	if m.lastResult != "" && m.lastResult != m.lastPayload {
		statusContent.WriteString(fmt.Sprintf("%s %s\n", statsLabelStyle.Render("Result:"), statsValueStyle.Render(m.lastResult)))
	}
	response := headerStyle.Render("(none)")
	if m.hasResponse {
		if m.lastResponse.IsOkay() {
			response = statsValueStyle.Render(m.lastResponse.String())
		} else {
			response = errorStyle.Render(m.lastResponse.String())
		}
	}
	statusContent.WriteString(fmt.Sprintf("%s %s", statsLabelStyle.Render("Response:"), response))

	s.WriteString(boxStyle.Render(statusContent.String()))
	s.WriteString("\n\n")

	// Statistics
	snap := m.stats.Snapshot()
	var okayPercent, errorPercent float64
	if snap.Requests > 0 {
		okayPercent = float64(snap.Okay) * 100.0 / float64(snap.Requests)
	}
	if snap.Transactions > 0 {
		errorPercent = float64(snap.Errors) * 100.0 / float64(snap.Transactions)
	}

	statsContent := strings.Builder{}
	statsContent.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s   %s %s\n",
		statsLabelStyle.Render("Transactions:"), statsValueStyle.Render(fmt.Sprintf("%d", snap.Transactions)),
		statsLabelStyle.Render("Payloads:"), statsValueStyle.Render(fmt.Sprintf("%d", snap.Payloads)),
		statsLabelStyle.Render("Okay:"), statsValueStyle.Render(fmt.Sprintf("%d (%.1f%%)", snap.Okay, okayPercent)),
		statsLabelStyle.Render("Errors:"), errorStyle.Render(fmt.Sprintf("%d (%.1f%%)", snap.Errors, errorPercent)),
	))

	if snap.Errors > 0 {
		parts := []string{}
		for _, code := range i2cslave.Responses {
			if n := snap.ByCode[code]; n > 0 {
				parts = append(parts, fmt.Sprintf("%s: %d", headerStyle.Render(code.Name()), n))
			}
		}
		statsContent.WriteString(fmt.Sprintf("%s %s\n", statsLabelStyle.Render("By code:"), strings.Join(parts, ", ")))
	}

	statsContent.WriteString(fmt.Sprintf("%s %s   %s %s",
		statsLabelStyle.Render("Transaction Rate:"), statsValueStyle.Render(fmt.Sprintf("%.1f tx/s", snap.TransactionRate)),
		statsLabelStyle.Render("Error Rate:"), func() string {
			if snap.ErrorRate > 0 {
				return errorStyle.Render(fmt.Sprintf("%.1f err/s", snap.ErrorRate))
			}
			return statsValueStyle.Render(fmt.Sprintf("%.1f err/s", snap.ErrorRate))
		}(),
	))

	s.WriteString(boxStyle.Render(statsContent.String()))
	s.WriteString("\n\n")

	// Event log
	s.WriteString(statsLabelStyle.Render("Recent Events:"))
	s.WriteString("\n")

	// Calculate how many log entries we can show
	logHeight := m.height - 17 // Reserve space for header, status and stats
	if logHeight < 5 {
		logHeight = 5
	}

	logContent := strings.Builder{}
	startIdx := len(m.eventLog) - logHeight
	if startIdx < 0 {
		startIdx = 0
	}

	if len(m.eventLog) == 0 {
		logContent.WriteString(headerStyle.Render("  (no events yet)"))
	} else {
		for i := startIdx; i < len(m.eventLog); i++ {
			entry := m.eventLog[i]
			timestamp := entry.timestamp.Format("15:04:05.000")
			if entry.isError {
				logContent.WriteString(fmt.Sprintf("%s %s\n",
					headerStyle.Render(timestamp),
					errorStyle.Render("✗ "+entry.message),
				))
			} else {
				logContent.WriteString(fmt.Sprintf("%s %s\n",
					headerStyle.Render(timestamp),
					warningStyle.Render("ℹ "+entry.message),
				))
			}
		}
	}

	s.WriteString(boxStyle.Width(m.width - 4).Render(logContent.String()))

	return s.String()
}
