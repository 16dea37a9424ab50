// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package master

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/i2c/i2ctest"

	"github.com/Thermoquad/itsystat/pkg/i2cslave"
	"github.com/Thermoquad/itsystat/pkg/loopback"
)

func TestClient_Playback(t *testing.T) {
	bus := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: 0x44, W: []byte{0x00, 7, 's', 'e', 't', ' ', 'r', 'e', 'd', 0x01, 0xFF}, R: []byte{0x20}},
			{Addr: 0x44, W: []byte{0x00, 8, 's', 'e', 't', ' ', 'm', 'u', 'c', 'k', 0x01, 0xFF}, R: []byte{0x40}},
			{Addr: 0x44, R: []byte{0x46}},
		},
		DontPanic: true,
	}
	c := NewClient(bus, 0x44)
	ctx := context.Background()

	resp, err := c.SetColor(ctx, "red")
	require.NoError(t, err)
	require.Equal(t, i2cslave.Okay, resp)

	resp, err = c.SetColor(ctx, "muck")
	require.Equal(t, i2cslave.BadRequest, resp)
	var re *ResponseError
	require.True(t, errors.As(err, &re))
	require.Equal(t, "set muck", re.Payload)

	resp, err = c.Status(ctx)
	require.NoError(t, err)
	require.Equal(t, i2cslave.EmptyPayload, resp)

	require.NoError(t, bus.Close())
}

func TestClient_UnknownResponseByte(t *testing.T) {
	bus := &i2ctest.Playback{
		Ops:       []i2ctest.IO{{Addr: 0x44, R: []byte{0x99}}},
		DontPanic: true,
	}
	_, err := NewClient(bus, 0x44).Status(context.Background())
	require.Error(t, err)
}

func TestClient_Loopback(t *testing.T) {
	bus := loopback.NewBus("test")
	p := loopback.NewPeripheral()
	h := i2cslave.NewHandler(p, i2cslave.WithBlink(false))
	bus.Attach(0x44, p, h)

	c := NewClient(bus, 0x44)
	ctx := context.Background()

	resp, err := c.Send(ctx, "hello")
	require.NoError(t, err)
	require.Equal(t, i2cslave.Okay, resp)

	// the processed result does not survive the finished transaction
	resp, err = c.Status(ctx)
	require.NoError(t, err)
	require.Equal(t, i2cslave.EmptyPayload, resp)

	resp, err = c.SendRaw(ctx, []byte{0x00, 40, 'a', 0x01, 0xFF})
	require.Equal(t, i2cslave.SourceTooLarge, resp)
	require.Error(t, err)

	resp, err = c.Send(ctx, "hello")
	require.NoError(t, err)
	require.Equal(t, i2cslave.Okay, resp)
}

func TestClient_NoAck(t *testing.T) {
	bus := loopback.NewBus("test")
	_, err := NewClient(bus, 0x45).Status(context.Background())
	require.ErrorIs(t, err, loopback.ErrNoAck)
}

func TestClient_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewClient(loopback.NewBus("test"), 0x44).Send(ctx, "hello")
	require.ErrorIs(t, err, context.Canceled)
}
