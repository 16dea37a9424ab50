// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package master

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"periph.io/x/conn/v3/i2c"

	"github.com/Thermoquad/itsystat/pkg/i2cslave"
)

// ResponseError reports a non-okay response from the slave
type ResponseError struct {
	Payload  string
	Response i2cslave.Response
}

// Error implements the error interface
func (e *ResponseError) Error() string {
	return fmt.Sprintf("slave responded %s (%s) to %q", e.Response.Constant(), e.Response.Name(), e.Payload)
}

// Client sends commands to an ItsyBitsy I2C slave
type Client struct {
	dev      *i2c.Dev
	register byte
}

// NewClient creates a client for the slave at addr on bus
func NewClient(bus i2c.Bus, addr uint16) *Client {
	return &Client{
		dev:      &i2c.Dev{Bus: bus, Addr: addr},
		register: DefaultRegister,
	}
}

// SetRegister sets the register address written ahead of each frame
func (c *Client) SetRegister(register byte) {
	c.register = register
}

// String returns the device description
func (c *Client) String() string {
	return c.dev.String()
}

// Send writes payload and reads back the response byte in one transaction.
// A non-okay response is returned along with a *ResponseError.
func (c *Client) Send(ctx context.Context, payload string) (i2cslave.Response, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	frame, err := EncodeFrame(c.register, payload)
	if err != nil {
		return 0, errors.Wrap(err, "encode frame")
	}
	return c.checked(payload, frame)
}

// SendRaw writes an arbitrary frame, bypassing encoding checks. It is used
// to exercise the slave's error handling.
func (c *Client) SendRaw(ctx context.Context, frame []byte) (i2cslave.Response, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return c.checked(i2cslave.FormatHex(frame), frame)
}

// Status reads a single response byte without writing. Any known code is
// returned without error.
func (c *Client) Status(ctx context.Context) (i2cslave.Response, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return c.transact(nil)
}

// SetColor sends "set <name>"
func (c *Client) SetColor(ctx context.Context, name string) (i2cslave.Response, error) {
	return c.Send(ctx, "set "+name)
}

func (c *Client) transact(w []byte) (i2cslave.Response, error) {
	r := make([]byte, 1)
	if err := c.dev.Tx(w, r); err != nil {
		return 0, errors.Wrapf(err, "i2c transaction with %s", c.dev)
	}
	return i2cslave.ResponseFromValue(r[0])
}

func (c *Client) checked(payload string, w []byte) (i2cslave.Response, error) {
	resp, err := c.transact(w)
	if err != nil {
		return 0, err
	}
	if resp.IsError() {
		return resp, &ResponseError{Payload: payload, Response: resp}
	}
	return resp, nil
}
