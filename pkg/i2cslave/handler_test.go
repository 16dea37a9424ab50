// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package i2cslave

import (
	"context"
	"math/rand"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Thermoquad/itsystat/pkg/colors"
)

// ============================================================
// Test Helpers
// ============================================================

type busStep struct {
	state State
	data  []byte
	reads int
}

// scriptedPeripheral replays a queue of bus events
type scriptedPeripheral struct {
	mu      sync.Mutex
	steps   []busStep
	rx      []byte
	reads   int
	written []byte
}

func (p *scriptedPeripheral) push(steps ...busStep) {
	p.mu.Lock()
	p.steps = append(p.steps, steps...)
	p.mu.Unlock()
}

func (p *scriptedPeripheral) HandleEvent() (State, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.steps) == 0 {
		return StateNone, nil
	}
	s := p.steps[0]
	p.steps = p.steps[1:]
	p.rx = append(p.rx, s.data...)
	p.reads = s.reads
	return s.state, nil
}

func (p *scriptedPeripheral) Available() bool { return len(p.rx) > 0 }

func (p *scriptedPeripheral) ReadDataReceived() byte {
	if len(p.rx) == 0 {
		return 0
	}
	b := p.rx[0]
	p.rx = p.rx[1:]
	return b
}

func (p *scriptedPeripheral) WriteData(b byte) error {
	p.written = append(p.written, b)
	p.reads--
	return nil
}

func (p *scriptedPeripheral) IsMasterReqRead() bool { return p.reads > 0 }

// frame builds [register, len, payload..., 0x01, 0xFF]
func frame(payload string) []byte {
	data := append([]byte{0x44, byte(len(payload))}, payload...)
	return append(data, ByteValidate, ByteEndOfRecord)
}

// transact runs START, RECEIVE, REQUEST and returns the response read by the
// master without finishing the transaction
func transact(t *testing.T, h *Handler, p *scriptedPeripheral, data []byte) Response {
	t.Helper()
	p.written = nil
	p.push(
		busStep{state: StateStart},
		busStep{state: StateReceive, data: data},
		busStep{state: StateRequest, reads: 1},
	)
	for i := 0; i < 3; i++ {
		_ = h.Step()
	}
	require.Len(t, p.written, 1)
	return Response(p.written[0])
}

// finish runs the FINISH event
func finish(t *testing.T, h *Handler, p *scriptedPeripheral) {
	t.Helper()
	p.push(busStep{state: StateFinish})
	require.NoError(t, h.Step())
}

func newTestHandler(opts ...Option) (*Handler, *scriptedPeripheral) {
	p := &scriptedPeripheral{}
	opts = append([]Option{WithBlink(false), WithStartupBlink(false)}, opts...)
	return NewHandler(p, opts...), p
}

type eventRecorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *eventRecorder) OnEvent(ev Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *eventRecorder) messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, ev := range r.events {
		if ev.Kind == KindStatus || ev.Kind == KindError {
			out = append(out, ev.Message)
		}
	}
	return out
}

func randomPrintable(rng *rand.Rand, n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(MinChar + rng.Intn(MaxChar-MinChar+1))
	}
	return string(b)
}

// ============================================================
// Protocol Properties
// ============================================================

func TestHandler_AcceptsPrintablePayloads(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	h, p := newTestHandler()

	// lengths 0 and 1 collide with the padding and validation bytes
	for n := 2; n <= MaxChars; n++ {
		payload := randomPrintable(rng, n)
		require.Equal(t, Okay, transact(t, h, p, frame(payload)), "payload %q", payload)
		require.Equal(t, payload, h.Result())
		finish(t, h, p)
	}
}

func TestHandler_SourceTooLarge(t *testing.T) {
	h, p := newTestHandler()
	for n := MaxChars + 1; n < 0xFF; n++ {
		data := []byte{0x44, byte(n), 'a', 'b', ByteValidate, ByteEndOfRecord}
		require.Equal(t, SourceTooLarge, transact(t, h, p, data), "declared %d", n)
		finish(t, h, p)
	}
}

func TestHandler_InvalidChar(t *testing.T) {
	h, p := newTestHandler()
	for _, bad := range []byte{0x02, 0x0A, 0x1F, 0x7F, 0x80, 0xFE} {
		data := []byte{0x44, 4, 'a', 'b', bad, 'c', ByteValidate, ByteEndOfRecord}
		require.Equal(t, InvalidChar, transact(t, h, p, data), "byte 0x%02X", bad)
		finish(t, h, p)
	}
}

func TestHandler_Unvalidated(t *testing.T) {
	h, p := newTestHandler()
	data := append([]byte{0x44, 5}, "hello"...)
	data = append(data, ByteEndOfRecord)
	require.Equal(t, Unvalidated, transact(t, h, p, data))
}

func TestHandler_PayloadTooLarge(t *testing.T) {
	h, p := newTestHandler()
	data := append([]byte{0x44, 8}, "hello"...)
	data = append(data, ByteValidate, ByteEndOfRecord)
	require.Equal(t, PayloadTooLarge, transact(t, h, p, data))
}

func TestHandler_EmptyPayload(t *testing.T) {
	h, p := newTestHandler()
	require.Equal(t, EmptyPayload, transact(t, h, p, []byte{0x44, ByteValidate, ByteEndOfRecord}))
	finish(t, h, p)

	// declared lengths 0x00 and 0x01 are read as padding and validation
	require.Equal(t, EmptyPayload, transact(t, h, p, frame("x")))
}

func TestHandler_ResetAfterError(t *testing.T) {
	cases := [][]byte{
		{0x44, 40, 'a'},
		{0x44, 3, 'a', 0x05},
		append([]byte{0x44, 3}, "abc"...),
		append(append([]byte{0x44, 9}, "abc"...), ByteValidate, ByteEndOfRecord),
	}
	h, p := newTestHandler()
	for _, data := range cases {
		code := transact(t, h, p, data)
		require.True(t, code.IsError())

		// every read until FINISH gets the error
		p.push(busStep{state: StateRequest, reads: 2})
		require.NoError(t, h.Step())
		require.Equal(t, []byte{byte(code), byte(code), byte(code)}, p.written)

		finish(t, h, p)
		tx := h.Transaction()
		require.True(t, tx.Empty())
		require.Equal(t, Init, h.Response())
		require.Equal(t, Response(0), h.Armed())
		require.Empty(t, h.Result())
	}

	// the next transaction is unaffected
	require.Equal(t, Okay, transact(t, h, p, frame("next")))
}

func TestHandler_StartClearsArmedError(t *testing.T) {
	h, p := newTestHandler()
	p.written = nil
	p.push(
		busStep{state: StateStart},
		busStep{state: StateReceive, data: []byte{0x44, 40, 'a'}},
		busStep{state: StateStart},
		busStep{state: StateReceive, data: frame("set red")},
		busStep{state: StateRequest, reads: 1},
	)

	_ = h.Step()
	require.Error(t, h.Step())
	require.Equal(t, SourceTooLarge, h.Armed())

	require.NoError(t, h.Step())
	require.Equal(t, Response(0), h.Armed())
	require.Equal(t, Init, h.Response())

	require.NoError(t, h.Step())
	require.NoError(t, h.Step())
	require.Equal(t, []byte{byte(Okay)}, p.written)
	require.Equal(t, "set red", h.Result())
}

func TestHandler_ErrorWithoutReadPublishesNoResponse(t *testing.T) {
	h, p := newTestHandler()
	rec := &eventRecorder{}
	h.Subscribe(rec)

	p.push(busStep{state: StateStart}, busStep{state: StateReceive, data: []byte{0x44, 40}})
	_ = h.Step()
	require.Error(t, h.Step())
	require.Empty(t, p.written)
	for _, ev := range rec.events {
		require.NotEqual(t, KindResponse, ev.Kind)
	}
}

func TestHandler_ErrorDrainsFIFO(t *testing.T) {
	h, p := newTestHandler()
	data := []byte{0x44, 50, 'a', 'b', 'c', ByteValidate, ByteEndOfRecord, 0x44, 2}
	require.Equal(t, SourceTooLarge, transact(t, h, p, data))
	require.False(t, p.Available())
}

func TestHandler_Idempotent(t *testing.T) {
	inputs := [][]byte{
		frame("set red"),
		{0x44, 99},
		append([]byte{0x44, 3}, "abc"...),
	}
	for _, data := range inputs {
		h, p := newTestHandler()
		first := transact(t, h, p, data)
		finish(t, h, p)
		second := transact(t, h, p, data)
		finish(t, h, p)
		require.Equal(t, first, second)
	}
}

func TestHandler_ResultSurvivesUntilFinish(t *testing.T) {
	h, p := newTestHandler()
	require.Equal(t, Okay, transact(t, h, p, frame("keep")))

	p.push(busStep{state: StateRequest, reads: 1})
	require.NoError(t, h.Step())
	require.Equal(t, Response(p.written[len(p.written)-1]), Okay)
	require.Equal(t, "keep", h.Result())

	finish(t, h, p)
	require.Empty(t, h.Result())

	p.written = nil
	p.push(busStep{state: StateRequest, reads: 1})
	require.NoError(t, h.Step())
	require.Equal(t, []byte{byte(EmptyPayload)}, p.written)
}

// ============================================================
// Processor Tests
// ============================================================

func TestHandler_ProcessorError(t *testing.T) {
	h, p := newTestHandler(WithProcessor(ProcessorFunc(func(payload string) (string, error) {
		return "", Errorf(BadRequest, "unrecognised color name: '%s'", payload)
	})))
	require.Equal(t, BadRequest, transact(t, h, p, frame("set mauve")))

	h, p = newTestHandler(WithProcessor(ProcessorFunc(func(string) (string, error) {
		return "", errors.New("pixel unplugged")
	})))
	require.Equal(t, UnknownError, transact(t, h, p, frame("set red")))
}

func TestHandler_ProcessorStatus(t *testing.T) {
	var h *Handler
	h, p := newTestHandler(WithProcessor(ProcessorFunc(func(payload string) (string, error) {
		msg := "processed payload: '" + payload + "'"
		h.Status(msg, colors.Red)
		return msg, nil
	})))
	rec := &eventRecorder{}
	h.Subscribe(rec)

	require.Equal(t, Okay, transact(t, h, p, frame("set red")))
	require.Equal(t, []string{"start", "rx", "eor", "processed payload: 'set red'", "rxd", "okay"}, rec.messages())

	var found bool
	for _, ev := range rec.events {
		if ev.Message == "processed payload: 'set red'" {
			found = true
			require.Equal(t, colors.Red, ev.Color)
		}
	}
	require.True(t, found)
}

// ============================================================
// Event Tests
// ============================================================

func TestHandler_ErrorEvents(t *testing.T) {
	h, p := newTestHandler()
	rec := &eventRecorder{}
	h.Subscribe(rec)

	transact(t, h, p, []byte{0x44, 3, 'a', 0x05})

	var errEv, summary Event
	for _, ev := range rec.events {
		switch {
		case ev.Kind == KindError:
			errEv = ev
		case ev.Color == colors.DarkRed:
			summary = ev
		}
	}
	require.Equal(t, InvalidChar, errEv.Code)
	require.Equal(t, colors.Red, errEv.Color)
	require.Equal(t, "I2C slave error 0x43 on transaction: invalid character received: '0x05' (int: '5'); buf length: 1; sb: 'a'", summary.Message)
}

func TestHandler_ErrorColors(t *testing.T) {
	require.Equal(t, colors.Orange, errorColor(SourceTooLarge))
	require.Equal(t, colors.Red, errorColor(InvalidChar))
	require.Equal(t, colors.Fuchsia, errorColor(OutOfSync))
	require.Equal(t, colors.Tangerine, errorColor(PayloadTooLarge))
	require.Equal(t, colors.Brown, errorColor(Unvalidated))
	require.Equal(t, colors.DarkRed, errorColor(BadRequest))
}

func TestHandler_VisualUnblink(t *testing.T) {
	h, p := newTestHandler(WithVisual(true))
	rec := &eventRecorder{}
	h.Subscribe(rec)

	p.push(busStep{state: StateStart})
	require.NoError(t, h.Step())

	require.Len(t, rec.events, 2)
	require.Equal(t, "start", rec.events[0].Message)
	require.Equal(t, colors.Magenta, rec.events[0].Color)
	require.Equal(t, KindBlank, rec.events[1].Kind)
	require.True(t, rec.events[1].Color.IsBlack())
}

func TestHandler_Heartbeat(t *testing.T) {
	led := &countingLED{}
	h, _ := newTestHandler(WithBlink(true), WithBlinkEvery(10), WithPulseWidth(0), WithLED(led))
	for i := 0; i < 25; i++ {
		require.NoError(t, h.Step())
	}
	// iterations 0, 10 and 20
	require.Equal(t, []bool{true, false, true, false, true, false}, led.values)
}

func TestHandler_VisualHeartbeat(t *testing.T) {
	h, _ := newTestHandler(WithBlink(true), WithBlinkEvery(5), WithPulseWidth(0), WithVisual(true))
	rec := &eventRecorder{}
	h.Subscribe(rec)
	for i := 0; i < 6; i++ {
		require.NoError(t, h.Step())
	}
	require.Len(t, rec.events, 4)
	require.Equal(t, colors.DarkCyan, rec.events[0].Color)
	require.Equal(t, colors.Black, rec.events[1].Color)
	require.Equal(t, KindHeartbeat, rec.events[2].Kind)
}

type countingLED struct {
	values []bool
}

func (l *countingLED) Set(on bool) error {
	l.values = append(l.values, on)
	return nil
}

// ============================================================
// Loop Tests
// ============================================================

func TestHandler_RunAndDisable(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	h, _ := newTestHandler(WithIdleSleep(time.Millisecond), WithLogger(zap.New(core).Sugar()))

	h.Disable()
	require.Equal(t, 1, logs.FilterMessage("already disabled.").Len())

	done := make(chan error, 1)
	go func() { done <- h.Run(context.Background()) }()
	require.Eventually(t, h.Enabled, time.Second, time.Millisecond)

	require.NoError(t, h.Run(context.Background()))
	require.Equal(t, 1, logs.FilterMessage("already enabled.").Len())

	h.Disable()
	require.NoError(t, <-done)
	require.False(t, h.Enabled())
}

func TestHandler_RunCancelled(t *testing.T) {
	h, _ := newTestHandler(WithIdleSleep(time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Run(ctx) }()
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}

type failingPeripheral struct {
	scriptedPeripheral
}

func (p *failingPeripheral) HandleEvent() (State, error) {
	return StateNone, errors.New("bus fault")
}

func TestHandler_PeripheralErrorIsReturned(t *testing.T) {
	h := NewHandler(&failingPeripheral{}, WithBlink(false))
	h.state = StateReceive
	err := h.Step()
	require.Equal(t, StateNone, h.State())
	require.Error(t, err)
	require.Equal(t, UnknownError, CodeOf(err))
	require.Contains(t, err.Error(), "handle event: bus fault")
}

type closedPeripheral struct {
	scriptedPeripheral
}

func (p *closedPeripheral) HandleEvent() (State, error) {
	return StateNone, errors.Wrap(ErrPeripheralClosed, "serial")
}

func TestHandler_RunStopsWhenPeripheralCloses(t *testing.T) {
	h := NewHandler(&closedPeripheral{}, WithBlink(false), WithStartupBlink(false))
	err := h.Run(context.Background())
	require.ErrorIs(t, err, ErrPeripheralClosed)
	require.False(t, h.Enabled())
}

func TestHandler_StartupUsesClock(t *testing.T) {
	mock := clock.NewMock()
	led := &countingLED{}
	h := NewHandler(&scriptedPeripheral{}, WithClock(mock), WithLED(led))

	done := make(chan struct{})
	go func() {
		h.Startup()
		close(done)
	}()
	for {
		select {
		case <-done:
			require.Len(t, led.values, 6)
			return
		default:
			mock.Add(10 * time.Millisecond)
			runtime.Gosched()
		}
	}
}
