// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package driver

import (
	"go.uber.org/zap"

	"github.com/Thermoquad/itsystat/pkg/i2cslave"
)

// Indicator mirrors handler status colours on a pixel in visual mode and
// logs status messages
type Indicator struct {
	pixel   Pixel
	swapGRB bool
	visual  bool
	logger  *zap.SugaredLogger
}

// NewIndicator creates a status subscriber driving pixel
func NewIndicator(pixel Pixel, swapGRB, visual bool, logger *zap.SugaredLogger) *Indicator {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Indicator{pixel: pixel, swapGRB: swapGRB, visual: visual, logger: logger}
}

// OnEvent implements i2cslave.Subscriber
func (i *Indicator) OnEvent(ev i2cslave.Event) {
	if ev.Kind == i2cslave.KindResponse {
		return
	}
	if ev.Message != "" {
		i.logger.Debugf("response: %s", ev.Message)
	}
	if !i.visual || i.pixel == nil {
		return
	}
	c := ev.Color
	if i.swapGRB {
		c = c.GRB()
	}
	if err := i.pixel.SetColor(c); err != nil {
		i.logger.Warnw("failed to show color", "color", ev.Color, "error", err)
	}
}
