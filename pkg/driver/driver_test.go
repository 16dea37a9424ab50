// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package driver

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Thermoquad/itsystat/pkg/colors"
	"github.com/Thermoquad/itsystat/pkg/i2cslave"
	"github.com/Thermoquad/itsystat/pkg/loopback"
	"github.com/Thermoquad/itsystat/pkg/master"
)

type recordingPixel struct {
	shown []colors.RGB
	err   error
}

func (p *recordingPixel) SetColor(c colors.RGB) error {
	if p.err != nil {
		return p.err
	}
	p.shown = append(p.shown, c)
	return nil
}

type statusCall struct {
	message string
	color   colors.RGB
}

type sinkRecorder struct {
	calls []statusCall
}

func (s *sinkRecorder) Status(message string, color colors.RGB) {
	s.calls = append(s.calls, statusCall{message, color})
}

func TestColorProcessor_Set(t *testing.T) {
	pixel := &recordingPixel{}
	sink := &sinkRecorder{}
	p := NewColorProcessor(pixel, false)
	p.Attach(sink)

	result, err := p.Process("set sky_blue")
	require.NoError(t, err)
	require.Equal(t, "processed payload: 'set sky_blue'", result)
	require.Equal(t, []colors.RGB{colors.SkyBlue}, pixel.shown)
	require.Equal(t, []statusCall{{"processed payload: 'set sky_blue'", colors.SkyBlue}}, sink.calls)
}

func TestColorProcessor_SwapGRB(t *testing.T) {
	pixel := &recordingPixel{}
	p := NewColorProcessor(pixel, true)

	_, err := p.Process("set orange")
	require.NoError(t, err)
	require.Equal(t, []colors.RGB{{R: 108, G: 255, B: 0}}, pixel.shown)
}

func TestColorProcessor_Errors(t *testing.T) {
	p := NewColorProcessor(&recordingPixel{}, false)
	_, err := p.Process("set mauve")
	require.Equal(t, i2cslave.BadRequest, i2cslave.CodeOf(err))
	require.EqualError(t, err, "unrecognised color name: 'MAUVE'")

	p = NewColorProcessor(&recordingPixel{err: errors.New("pio stalled")}, false)
	_, err = p.Process("set red")
	require.Equal(t, i2cslave.BadRequest, i2cslave.CodeOf(err))
	require.Contains(t, err.Error(), "pio stalled")
}

func TestColorProcessor_Unprocessed(t *testing.T) {
	p := NewColorProcessor(nil, false)
	result, err := p.Process("hello")
	require.NoError(t, err)
	require.Equal(t, "unprocessed payload: 'hello'", result)
}

func TestEndToEnd_SetRed(t *testing.T) {
	pixel := &recordingPixel{}
	proc := NewColorProcessor(pixel, false)

	bus := loopback.NewBus("e2e")
	periph := loopback.NewPeripheral()
	h := i2cslave.NewHandler(periph, i2cslave.WithBlink(false), i2cslave.WithProcessor(proc))
	proc.Attach(h)
	bus.Attach(i2cslave.DefaultAddress, periph, h)

	var events []i2cslave.Event
	h.Subscribe(i2cslave.SubscriberFunc(func(ev i2cslave.Event) {
		events = append(events, ev)
	}))

	frame := []byte{0x00, 7, 's', 'e', 't', ' ', 'r', 'e', 'd', 0x01, 0xFF}
	resp, err := master.NewClient(bus, i2cslave.DefaultAddress).SendRaw(context.Background(), frame)
	require.NoError(t, err)
	require.Equal(t, i2cslave.Okay, resp)
	require.Equal(t, []colors.RGB{colors.Red}, pixel.shown)

	var found bool
	for _, ev := range events {
		if ev.Message == "processed payload: 'set red'" {
			found = true
			require.Equal(t, colors.RGB{R: 255, G: 0, B: 0}, ev.Color)
		}
	}
	require.True(t, found, "status callback not invoked")
}

func TestIndicator_VisualOnly(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	pixel := &recordingPixel{}
	ind := NewIndicator(pixel, true, false, zap.New(core).Sugar())
	ind.OnEvent(i2cslave.Event{Kind: i2cslave.KindStatus, Message: "rx", Color: colors.SkyBlue})
	require.Empty(t, pixel.shown)
	require.Equal(t, 1, logs.FilterMessage("response: rx").Len())

	ind = NewIndicator(pixel, true, true, nil)
	ind.OnEvent(i2cslave.Event{Kind: i2cslave.KindStatus, Message: "rx", Color: colors.SkyBlue})
	require.Equal(t, []colors.RGB{colors.SkyBlue.GRB()}, pixel.shown)
}
