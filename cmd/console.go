// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/itsystat/internal/logging"
	"github.com/Thermoquad/itsystat/pkg/colors"
	"github.com/Thermoquad/itsystat/pkg/i2cslave"
	"github.com/Thermoquad/itsystat/pkg/master"
)

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Interactive TUI for sending commands to the slave",
	Long: `Send commands to an ItsyBitsy I2C slave from an interactive terminal UI.

Pick a colour from the list to send "set <colour>", or type any payload into
the input box. Every response is logged with its code.

Keys:
  Tab      switch between colour list and payload input
  Enter    send the selected colour or the typed payload
  s        read the response byte only (colour list focused)
  q        quit (colour list focused)

Use --sim to talk to an in-memory slave instead of real hardware.`,
	RunE: runConsole,
}

func init() {
	rootCmd.AddCommand(consoleCmd)
	addMasterFlags(consoleCmd)
}

func runConsole(cmd *cobra.Command, args []string) error {
	mergeMasterConfig(cmd)

	w := &programWriter{}
	logger := logging.NewWithCore("itsystat", logging.NewTextCore(w, verbose))

	pixel := &terminalPixel{}
	target, err := openMaster(logger, pixel)
	if err != nil {
		return err
	}
	defer target.close()

	// only a simulated slave drives the pixel
	if target.handler == nil {
		pixel = nil
	}
	p := tea.NewProgram(initialConsoleModel(target.client, target.info, pixel))
	w.attach(p)

	if _, err := p.Run(); err != nil {
		return errors.Wrap(err, "TUI error")
	}
	return nil
}

// colorItem is a named colour in the console list
type colorItem struct {
	name string
	rgb  colors.RGB
}

// Implement list.Item interface
func (c colorItem) Title() string       { return c.name }
func (c colorItem) Description() string { return c.rgb.Hex() }
func (c colorItem) FilterValue() string { return c.name }

// Focus targets
const (
	focusColorList = iota
	focusPayloadInput
)

// consoleModel is the Bubble Tea model for the console TUI
type consoleModel struct {
	client   *master.Client
	connInfo string
	pixel    *terminalPixel // nil unless simulating

	colorList    list.Model
	payloadInput textinput.Model
	focusedField int

	eventLog      []eventLogEntry
	maxLogEntries int

	busy         bool
	lastResponse i2cslave.Response
	hasResponse  bool
	sent         int
	failed       int

	width    int
	height   int
	quitting bool
}

//////////////////////////////////////////////////////////////
// Messages
//////////////////////////////////////////////////////////////

type sendResultMsg struct {
	payload  string
	response i2cslave.Response
	err      error
	elapsed  time.Duration
}

//////////////////////////////////////////////////////////////
// Model Initialization
//////////////////////////////////////////////////////////////

func initialConsoleModel(client *master.Client, connInfo string, pixel *terminalPixel) consoleModel {
	ti := textinput.New()
	ti.Placeholder = "set red"
	ti.CharLimit = i2cslave.MaxChars
	ti.Width = i2cslave.MaxChars + 2

	names := colors.Names()
	items := make([]list.Item, len(names))
	for i, name := range names {
		c, _ := colors.Lookup(name)
		items[i] = colorItem{name: name, rgb: c}
	}

	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = true
	delegate.SetHeight(2)
	colorList := list.New(items, delegate, 30, 10)
	colorList.Title = "Colours"
	colorList.SetShowStatusBar(false)
	colorList.SetShowHelp(false)
	colorList.SetFilteringEnabled(false)

	return consoleModel{
		client:        client,
		connInfo:      connInfo,
		pixel:         pixel,
		colorList:     colorList,
		payloadInput:  ti,
		focusedField:  focusColorList,
		eventLog:      make([]eventLogEntry, 0),
		maxLogEntries: 100,
		width:         80,
		height:        24,
	}
}

//////////////////////////////////////////////////////////////
// Bubble Tea Interface
//////////////////////////////////////////////////////////////

func (m consoleModel) Init() tea.Cmd {
	return tea.EnterAltScreen
}

func (m consoleModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateListSize()

	case logLineMsg:
		line := string(msg)
		m.addLogEntry(line, strings.Contains(line, "WARN") || strings.Contains(line, "ERROR"))

	case sendResultMsg:
		m.busy = false
		m.processSendResult(msg)
	}

	return m, nil
}

func (m consoleModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "tab", "shift+tab":
		if m.focusedField == focusColorList {
			m.focusedField = focusPayloadInput
			m.payloadInput.Focus()
		} else {
			m.focusedField = focusColorList
			m.payloadInput.Blur()
		}
		return m, nil

	case "enter":
		return m.handleEnter()
	}

	if m.focusedField == focusPayloadInput {
		var cmd tea.Cmd
		m.payloadInput, cmd = m.payloadInput.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "q":
		m.quitting = true
		return m, tea.Quit
	case "s":
		return m.send("", true)
	}

	var cmd tea.Cmd
	m.colorList, cmd = m.colorList.Update(msg)
	return m, cmd
}

func (m consoleModel) handleEnter() (tea.Model, tea.Cmd) {
	if m.focusedField == focusPayloadInput {
		payload := m.payloadInput.Value()
		if payload == "" {
			return m, nil
		}
		m.payloadInput.SetValue("")
		return m.send(payload, false)
	}

	item, ok := m.colorList.SelectedItem().(colorItem)
	if !ok {
		return m, nil
	}
	return m.send("set "+item.name, false)
}

// send starts a transaction unless one is already running
func (m consoleModel) send(payload string, statusOnly bool) (tea.Model, tea.Cmd) {
	if m.busy {
		m.addLogEntry("Busy: waiting for the previous response", true)
		return m, nil
	}
	m.busy = true
	client := m.client
	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Master.Timeout)
		defer cancel()

		start := time.Now()
		var resp i2cslave.Response
		var err error
		if statusOnly {
			resp, err = client.Status(ctx)
		} else {
			resp, err = client.Send(ctx, payload)
		}
		return sendResultMsg{payload: payload, response: resp, err: err, elapsed: time.Since(start)}
	}
}

func (m *consoleModel) processSendResult(msg sendResultMsg) {
	label := fmt.Sprintf("%q", msg.payload)
	if msg.payload == "" {
		label = "status"
	}

	var re *master.ResponseError
	switch {
	case msg.err == nil:
		m.sent++
		m.lastResponse = msg.response
		m.hasResponse = true
		m.addLogEntry(fmt.Sprintf("%s -> %s in %s", label, msg.response, msg.elapsed.Round(time.Microsecond)), false)
	case errors.As(msg.err, &re):
		m.sent++
		m.failed++
		m.lastResponse = re.Response
		m.hasResponse = true
		m.addLogEntry(fmt.Sprintf("%s -> %s (%s)", label, re.Response, re.Response.Name()), true)
	default:
		m.failed++
		m.addLogEntry(fmt.Sprintf("%s failed: %v", label, msg.err), true)
	}
}

func (m *consoleModel) addLogEntry(message string, isError bool) {
	m.eventLog = append(m.eventLog, eventLogEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	})

	// Keep only last N entries
	if len(m.eventLog) > m.maxLogEntries {
		m.eventLog = m.eventLog[len(m.eventLog)-m.maxLogEntries:]
	}
}

func (m *consoleModel) updateListSize() {
	listHeight := m.height - 8
	if listHeight < 6 {
		listHeight = 6
	}
	m.colorList.SetSize(30, listHeight)
}

func (m consoleModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	var s strings.Builder

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

	focusedBoxStyle := boxStyle.
		BorderForeground(lipgloss.Color("12"))

	// Header
	s.WriteString(titleStyle.Render("ITSYSTAT CONSOLE"))
	s.WriteString(" ")
	s.WriteString(headerStyle.Render(fmt.Sprintf("| %s | Tab=switch Enter=send s=status q=quit", m.connInfo)))
	s.WriteString("\n\n")

	// Left: colour list
	listBox := boxStyle
	if m.focusedField == focusColorList {
		listBox = focusedBoxStyle
	}
	left := listBox.Render(m.colorList.View())

	// Right: payload input, response and log
	var right strings.Builder

	inputBox := boxStyle
	if m.focusedField == focusPayloadInput {
		inputBox = focusedBoxStyle
	}
	right.WriteString(inputBox.Render(statsLabelStyle.Render("Payload: ") + m.payloadInput.View()))
	right.WriteString("\n")

	status := strings.Builder{}
	response := headerStyle.Render("(none)")
	if m.busy {
		response = warningStyle.Render("waiting...")
	} else if m.hasResponse {
		if m.lastResponse.IsOkay() {
			response = statsValueStyle.Render(m.lastResponse.String())
		} else {
			response = errorStyle.Render(m.lastResponse.String())
		}
	}
	status.WriteString(fmt.Sprintf("%s %s\n", statsLabelStyle.Render("Response:"), response))
	status.WriteString(fmt.Sprintf("%s %s   %s %s",
		statsLabelStyle.Render("Sent:"), statsValueStyle.Render(fmt.Sprintf("%d", m.sent)),
		statsLabelStyle.Render("Failed:"), errorStyle.Render(fmt.Sprintf("%d", m.failed)),
	))
	if m.pixel != nil {
		c := m.pixel.Color()
		status.WriteString(fmt.Sprintf("\n%s %s %s",
			statsLabelStyle.Render("Pixel:"), swatch(c), headerStyle.Render(colors.NameOf(c))))
	}
	right.WriteString(boxStyle.Render(status.String()))
	right.WriteString("\n")

	logHeight := m.height - 14
	if logHeight < 5 {
		logHeight = 5
	}
	startIdx := len(m.eventLog) - logHeight
	if startIdx < 0 {
		startIdx = 0
	}
	logContent := strings.Builder{}
	if len(m.eventLog) == 0 {
		logContent.WriteString(headerStyle.Render("(no commands sent yet)"))
	}
	for i := startIdx; i < len(m.eventLog); i++ {
		entry := m.eventLog[i]
		timestamp := entry.timestamp.Format("15:04:05.000")
		if entry.isError {
			logContent.WriteString(fmt.Sprintf("%s %s\n", headerStyle.Render(timestamp), errorStyle.Render("✗ "+entry.message)))
		} else {
			logContent.WriteString(fmt.Sprintf("%s %s\n", headerStyle.Render(timestamp), warningStyle.Render("ℹ "+entry.message)))
		}
	}
	logWidth := m.width - 38
	if logWidth < 30 {
		logWidth = 30
	}
	right.WriteString(boxStyle.Width(logWidth).Render(logContent.String()))

	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, left, " ", right.String()))
	return s.String()
}
