// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/Thermoquad/itsystat/pkg/colors"
)

// swatch renders a colour as a block of terminal background
func swatch(c colors.RGB) string {
	return lipgloss.NewStyle().
		Background(lipgloss.Color(c.Hex())).
		Render("    ")
}

// terminalPixel stands in for the NeoPixel when the handler runs on the host
type terminalPixel struct {
	mu   sync.Mutex
	last colors.RGB
	out  io.Writer // nil when a TUI renders the colour instead
}

// SetColor implements driver.Pixel
func (p *terminalPixel) SetColor(c colors.RGB) error {
	p.mu.Lock()
	p.last = c
	p.mu.Unlock()
	if p.out != nil {
		fmt.Fprintf(p.out, "  pixel %s %s\n", swatch(c), colors.NameOf(c))
	}
	return nil
}

// Color returns the last colour shown
func (p *terminalPixel) Color() colors.RGB {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}
