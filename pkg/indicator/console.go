// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package indicator

import (
	"go.uber.org/zap"

	"github.com/Thermoquad/itsystat/pkg/colors"
	"github.com/Thermoquad/itsystat/pkg/i2cslave"
)

// Console logs handler events. State tags are logged at debug level,
// protocol errors at warn.
type Console struct {
	logger *zap.SugaredLogger
}

// NewConsole creates a console subscriber
func NewConsole(logger *zap.SugaredLogger) *Console {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Console{logger: logger}
}

// OnEvent implements i2cslave.Subscriber
func (c *Console) OnEvent(ev i2cslave.Event) {
	switch ev.Kind {
	case i2cslave.KindStatus:
		fields := []interface{}{"state", ev.State.String(), "color", colors.NameOf(ev.Color)}
		if ev.Payload != "" {
			fields = append(fields, "payload", ev.Payload)
		}
		if ev.Result != "" && ev.Result != ev.Payload {
			fields = append(fields, "result", ev.Result)
		}
		c.logger.Debugw(ev.Message, fields...)
	case i2cslave.KindError:
		c.logger.Warnw("protocol error", "code", ev.Code.String(), "error", ev.Err)
	case i2cslave.KindResponse:
		c.logger.Debugw("response", "code", ev.Code.String())
	}
}
