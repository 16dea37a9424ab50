// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bridge

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/Thermoquad/itsystat/pkg/i2cslave"
)

// bridgeSide plays the firmware end of a bridge connection
type bridgeSide struct {
	t       *testing.T
	conn    net.Conn
	replies chan *Packet
}

func newBridgeSide(t *testing.T, conn net.Conn) *bridgeSide {
	b := &bridgeSide{t: t, conn: conn, replies: make(chan *Packet, 16)}
	go func() {
		decoder := NewDecoder()
		buf := make([]byte, 64)
		for {
			n, err := conn.Read(buf)
			for i := 0; i < n; i++ {
				if p, _ := decoder.DecodeByte(buf[i]); p != nil {
					b.replies <- p
				}
			}
			if err != nil {
				close(b.replies)
				return
			}
		}
	}()
	return b
}

func (b *bridgeSide) send(address, msgType uint8, fields map[int]interface{}) {
	frame, err := Encode(address, msgType, fields)
	require.NoError(b.t, err)
	_, err = b.conn.Write(frame)
	require.NoError(b.t, err)
}

func (b *bridgeSide) reply() *Packet {
	select {
	case p := <-b.replies:
		return p
	case <-time.After(2 * time.Second):
		b.t.Fatal("timed out waiting for reply")
		return nil
	}
}

// stepUntil steps h until the handler reaches want
func stepUntil(t *testing.T, h *i2cslave.Handler, want i2cslave.State) {
	t.Helper()
	stepUntilFunc(t, h, func() bool { return h.State() == want })
}

func stepUntilFunc(t *testing.T, h *i2cslave.Handler, done func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		h.Step()
		if done() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("timed out stepping handler")
}

func newPipe(t *testing.T, address uint8) (*Peripheral, *bridgeSide, *i2cslave.Handler) {
	host, firmware := net.Pipe()
	p := NewPeripheral(host, address, nil)
	t.Cleanup(func() {
		p.Close()
		firmware.Close()
	})
	h := i2cslave.NewHandler(p, i2cslave.WithBlink(false))
	return p, newBridgeSide(t, firmware), h
}

func TestPeripheral_Transaction(t *testing.T) {
	_, bridge, h := newPipe(t, 0x44)

	data := append(append([]byte{0x00, 7}, "set red"...), 0x01, 0xFF)
	bridge.send(0x44, MsgStart, nil)
	bridge.send(0x44, MsgReceive, map[int]interface{}{KeyValue: data})
	stepUntil(t, h, i2cslave.StateReceive)
	require.Equal(t, "set red", h.Result())

	bridge.send(0x44, MsgRequest, map[int]interface{}{KeyValue: uint64(1)})
	stepUntil(t, h, i2cslave.StateRequest)
	reply := bridge.reply()
	require.Equal(t, uint8(MsgReply), reply.Type())
	require.Equal(t, int(i2cslave.Okay), reply.Count())

	bridge.send(0x44, MsgFinish, nil)
	// FINISH resets the handler, which leaves it in the start state
	stepUntil(t, h, i2cslave.StateStart)
	require.Empty(t, h.Result())
}

func TestPeripheral_ErrorReply(t *testing.T) {
	_, bridge, h := newPipe(t, 0x44)

	bridge.send(0x44, MsgStart, nil)
	bridge.send(0x44, MsgReceive, map[int]interface{}{KeyValue: []byte{0x00, 40, 'a'}})
	// recovery resets the handler but keeps the error armed
	stepUntilFunc(t, h, func() bool { return h.Armed() == i2cslave.SourceTooLarge })
	require.Equal(t, i2cslave.StateStart, h.State())

	bridge.send(0x44, MsgRequest, map[int]interface{}{KeyValue: uint64(2)})
	stepUntil(t, h, i2cslave.StateRequest)
	for i := 0; i < 2; i++ {
		require.Equal(t, int(i2cslave.SourceTooLarge), bridge.reply().Count())
	}
}

func TestPeripheral_BareRequestReadsOnce(t *testing.T) {
	_, bridge, h := newPipe(t, 0x44)

	data := append(append([]byte{0x00, 2}, "hi"...), 0x01, 0xFF)
	bridge.send(0x44, MsgStart, nil)
	bridge.send(0x44, MsgReceive, map[int]interface{}{KeyValue: data})
	stepUntil(t, h, i2cslave.StateReceive)

	bridge.send(0x44, MsgRequest, nil)
	stepUntil(t, h, i2cslave.StateRequest)
	require.Equal(t, int(i2cslave.Okay), bridge.reply().Count())

	select {
	case extra := <-bridge.replies:
		t.Fatalf("unexpected second reply: %v", extra)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestPeripheral_FiltersOtherAddresses(t *testing.T) {
	p, bridge, h := newPipe(t, 0x44)

	bridge.send(0x22, MsgReceive, map[int]interface{}{KeyValue: []byte{0x00, 2, 'n', 'o', 0x01, 0xFF}})
	bridge.send(0x44, MsgHello, map[int]interface{}{KeyValue: "itsybridge 0.3.1"})
	bridge.send(0x44, MsgStart, nil)
	stepUntil(t, h, i2cslave.StateStart)
	require.False(t, p.Available())
	require.Equal(t, "itsybridge 0.3.1", p.Firmware())
}

func TestPeripheral_RejectsCorruptFrames(t *testing.T) {
	p, bridge, h := newPipe(t, 0x44)

	frame, err := Encode(0x44, MsgStart, nil)
	require.NoError(t, err)
	frame[2] ^= 0x01 // address byte
	_, err = bridge.conn.Write(frame)
	require.NoError(t, err)
	bridge.send(0x44, MsgFinish, nil)

	stepUntil(t, h, i2cslave.StateStart)
	require.Equal(t, uint64(1), p.Rejected())
}

func TestPeripheral_ClosedStream(t *testing.T) {
	p, bridge, _ := newPipe(t, 0x44)
	bridge.conn.Close()

	require.Eventually(t, func() bool {
		_, err := p.HandleEvent()
		return err != nil
	}, 2*time.Second, time.Millisecond)

	_, err := p.HandleEvent()
	require.ErrorIs(t, err, ErrConnectionClosed)
	require.ErrorIs(t, err, i2cslave.ErrPeripheralClosed)
}

func TestPeripheral_Ping(t *testing.T) {
	p, bridge, _ := newPipe(t, 0x44)
	require.NoError(t, p.Ping())
	require.Equal(t, uint8(MsgPing), bridge.reply().Type())
}

// brokenStream fails every read the way an unplugged adapter does
type brokenStream struct{}

func (brokenStream) Read([]byte) (int, error)    { return 0, errors.New("input/output error") }
func (brokenStream) Write(p []byte) (int, error) { return len(p), nil }

func TestPeripheral_ReadErrorClosesStream(t *testing.T) {
	p := NewPeripheral(brokenStream{}, 0x44, nil)

	require.Eventually(t, func() bool {
		_, err := p.HandleEvent()
		return err != nil
	}, 2*time.Second, time.Millisecond)

	_, err := p.HandleEvent()
	require.ErrorIs(t, err, i2cslave.ErrPeripheralClosed)
	require.Contains(t, err.Error(), "input/output error")

	h := i2cslave.NewHandler(p,
		i2cslave.WithBlink(false),
		i2cslave.WithStartupBlink(false),
		i2cslave.WithIdleSleep(time.Millisecond),
	)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err = h.Run(ctx)
	require.ErrorIs(t, err, ErrConnectionClosed)
	require.NoError(t, ctx.Err())
}
