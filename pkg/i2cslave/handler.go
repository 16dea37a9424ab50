// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package i2cslave

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/Thermoquad/itsystat/pkg/colors"
)

// Peripheral is the polling contract of an I2C target-mode controller
type Peripheral interface {
	// HandleEvent polls the hardware state machine without blocking
	HandleEvent() (State, error)
	// Available reports whether the receive FIFO holds data
	Available() bool
	// ReadDataReceived pops one byte from the receive FIFO
	ReadDataReceived() byte
	// WriteData pushes one byte to the transmit FIFO
	WriteData(b byte) error
	// IsMasterReqRead reports whether the master is still reading
	IsMasterReqRead() bool
}

type options struct {
	blink        bool
	blinkEvery   uint64
	pulseWidth   time.Duration
	visual       bool
	startupBlink bool
	idleSleep    time.Duration
	processor    Processor
	led          LED
	clock        clock.Clock
	logger       *zap.SugaredLogger
}

// Option configures a Handler
type Option func(*options)

// WithBlink enables or disables the heartbeat pulse
func WithBlink(blink bool) Option {
	return func(o *options) { o.blink = blink }
}

// WithBlinkEvery sets the number of loop iterations between heartbeats
func WithBlinkEvery(n uint64) Option {
	return func(o *options) {
		if n > 0 {
			o.blinkEvery = n
		}
	}
}

// WithPulseWidth sets the heartbeat pulse duration
func WithPulseWidth(d time.Duration) Option {
	return func(o *options) { o.pulseWidth = d }
}

// WithVisual routes indicator output through status events instead of the LED
func WithVisual(visual bool) Option {
	return func(o *options) { o.visual = visual }
}

// WithStartupBlink enables or disables the startup blink sequence in Run
func WithStartupBlink(enabled bool) Option {
	return func(o *options) { o.startupBlink = enabled }
}

// WithIdleSleep sets how long Run sleeps after a poll that found no event
func WithIdleSleep(d time.Duration) Option {
	return func(o *options) { o.idleSleep = d }
}

// WithProcessor sets the payload processor
func WithProcessor(p Processor) Option {
	return func(o *options) {
		if p != nil {
			o.processor = p
		}
	}
}

// WithLED sets the heartbeat LED used when not in visual mode
func WithLED(led LED) Option {
	return func(o *options) { o.led = led }
}

// WithClock sets the clock used for pulse timing and event timestamps
func WithClock(c clock.Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.SugaredLogger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Handler is the I2C slave protocol state machine. It services at most one
// peripheral event per Step and is not safe for concurrent Steps.
type Handler struct {
	periph Peripheral
	opts   options

	tx       *Transaction
	state    State
	result   string
	response Response
	armed    Response
	counter  uint64
	started  bool

	enabled *atomic.Bool

	mu          sync.RWMutex
	subscribers []Subscriber
}

// NewHandler creates a handler polling p
func NewHandler(p Peripheral, opts ...Option) *Handler {
	o := options{
		blink:        true,
		blinkEvery:   DefaultBlinkEvery,
		pulseWidth:   DefaultPulseWidth,
		startupBlink: true,
		processor:    Identity,
		clock:        clock.New(),
		logger:       zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Handler{
		periph:   p,
		opts:     o,
		tx:       NewTransaction(),
		state:    StateNone,
		response: Init,
		enabled:  atomic.NewBool(false),
	}
}

// Subscribe registers a subscriber for status events
func (h *Handler) Subscribe(s Subscriber) {
	if s == nil {
		return
	}
	h.mu.Lock()
	h.subscribers = append(h.subscribers, s)
	h.mu.Unlock()
}

// Visual reports whether indicator output is routed through status events
func (h *Handler) Visual() bool {
	return h.opts.visual
}

// State returns the last state reported by the peripheral
func (h *Handler) State() State {
	return h.state
}

// Response returns the current response code
func (h *Handler) Response() Response {
	return h.response
}

// Armed returns the error code that will answer read requests until the
// transaction finishes, or zero if none is armed
func (h *Handler) Armed() Response {
	return h.armed
}

// Result returns the processed result of the last accepted payload
func (h *Handler) Result() string {
	return h.result
}

// Transaction returns a copy of the current transaction
func (h *Handler) Transaction() Transaction {
	return Transaction{
		Address: h.tx.Address,
		Data:    append([]byte(nil), h.tx.Data...),
	}
}

// Enabled reports whether Run is looping
func (h *Handler) Enabled() bool {
	return h.enabled.Load()
}

// Run performs the startup sequence once and then steps the handler until
// ctx is cancelled or Disable is called. It also returns once the peripheral
// reports ErrPeripheralClosed. Protocol errors never stop the loop.
func (h *Handler) Run(ctx context.Context) error {
	if !h.enabled.CompareAndSwap(false, true) {
		h.opts.logger.Info("already enabled.")
		return nil
	}
	defer h.enabled.Store(false)

	if !h.started {
		h.started = true
		if h.opts.startupBlink {
			h.Startup()
		}
		h.opts.logger.Info("ready.")
	}

	h.opts.logger.Debug("starting loop…")
	for h.enabled.Load() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := h.Step(); err != nil {
			if errors.Is(err, ErrPeripheralClosed) {
				return err
			}
			var pe *Error
			if !errors.As(err, &pe) {
				h.opts.logger.Warnw("exception raised", "error", err)
			}
		}

		if h.state == StateNone {
			h.sleep(h.opts.idleSleep)
		}
	}
	return nil
}

// Disable stops a running loop after the current iteration
func (h *Handler) Disable() {
	if !h.enabled.CompareAndSwap(true, false) {
		h.opts.logger.Info("already disabled.")
	}
}

// Startup blinks the indicator three times and waits for the bus to settle
func (h *Handler) Startup() {
	for i := 0; i < startupBlinks; i++ {
		if h.opts.visual {
			h.publish(h.event(KindStartup, "", colors.Cyan))
			h.sleep(startupBlinkPeriod)
			h.publish(h.event(KindStartup, "", colors.Black))
			h.sleep(startupBlinkPeriod)
		} else {
			h.setLED(true)
			h.sleep(startupBlinkPeriod)
			h.setLED(false)
			h.sleep(startupBlinkPeriod)
		}
	}
	h.sleep(startupSettle)
}

// Step runs one loop iteration: poll the peripheral, service the event and
// pulse the heartbeat. A protocol error is recovered from before it is
// returned; the handler is then ready for the next transaction.
func (h *Handler) Step() error {
	state, err := h.periph.HandleEvent()
	if err != nil {
		h.state = StateNone
		h.heartbeat()
		return errors.Wrap(err, "handle event")
	}
	h.state = state

	switch state {
	case StateStart:
		h.begin()
		h.Status("start", colors.Magenta)
	case StateReceive:
		err = h.receive()
	case StateRequest:
		err = h.request()
	case StateFinish:
		h.reset()
	}

	if err != nil {
		var pe *Error
		if errors.As(err, &pe) {
			if rerr := h.recover(pe); rerr != nil {
				h.opts.logger.Warnw("failed to send error response", "error", rerr)
			}
		}
	}

	h.heartbeat()
	return err
}

// Status publishes a status event with the given message and colour
func (h *Handler) Status(message string, color colors.RGB) {
	h.announce(h.event(KindStatus, message, color))
}

func (h *Handler) receive() error {
	h.Status("rx", colors.SkyBlue)

	r := NewReceiver(h.tx.Address)
	for h.periph.Available() {
		done, err := r.Feed(h.periph.ReadDataReceived())
		if err != nil {
			return err
		}
		if done {
			h.Status("eor", colors.DarkTurquoise)
			break
		}
	}

	frame, err := r.Finish()
	h.tx.Address = frame.Address
	h.tx.Data = append(h.tx.Data, frame.Data...)
	if err != nil {
		return err
	}

	if !frame.Empty() {
		result, err := h.opts.processor.Process(frame.Payload)
		if err != nil {
			return asProtocolError(err)
		}
		h.result = result
	}

	ev := h.event(KindStatus, "rxd", colors.YellowGreen)
	ev.Payload = frame.Payload
	ev.Result = h.result
	h.announce(ev)

	// the result is kept for the read phase
	h.tx.Reset()
	return nil
}

func (h *Handler) request() error {
	switch {
	case h.armed != 0:
		h.response = h.armed
	case len(h.result) > 0:
		h.Status("okay", colors.Green)
		h.response = Okay
	default:
		h.Status("nop", colors.DarkOrange)
		h.response = EmptyPayload
	}
	return h.respond(h.response)
}

// respond writes code for every pending master read. The response event is
// only published when something reached the bus.
func (h *Handler) respond(code Response) error {
	written := 0
	var err error
	for h.periph.IsMasterReqRead() {
		if err = h.periph.WriteData(byte(code)); err != nil {
			err = errors.Wrapf(err, "write response %s", code)
			break
		}
		written++
	}

	if written > 0 {
		ev := h.event(KindResponse, code.Name(), colors.Black)
		ev.Code = code
		ev.Result = h.result
		h.publish(ev)
	}
	return err
}

func (h *Handler) recover(pe *Error) error {
	ev := h.event(KindError, "error", errorColor(pe.Code))
	ev.Code = pe.Code
	ev.Err = pe
	h.announce(ev)

	msg := fmt.Sprintf("I2C slave error 0x%02X on transaction: %s", byte(pe.Code), pe.Message)
	h.Status(msg, colors.DarkRed)
	h.opts.logger.Warn(msg)

	h.opts.logger.Debug("emptying buffer…")
	for h.periph.Available() {
		h.periph.ReadDataReceived()
	}
	h.reset()

	// answer every read with the error until the transaction finishes
	h.armed = pe.Code
	h.response = pe.Code
	if h.periph.IsMasterReqRead() {
		h.opts.logger.Debugf("sending error response: %s", pe.Message)
	}
	return h.respond(pe.Code)
}

// begin clears whatever a transaction left behind when the master starts a
// new one without finishing the last
func (h *Handler) begin() {
	h.result = ""
	h.response = Init
	h.armed = 0
	h.tx.Reset()
}

func (h *Handler) reset() {
	h.result = ""
	h.response = Init
	h.armed = 0
	h.tx.Reset()
	h.state = StateStart
	h.opts.logger.Debug("reset.")
}

func (h *Handler) heartbeat() {
	if !h.opts.blink {
		return
	}
	n := h.counter
	h.counter++
	if n%h.opts.blinkEvery != 0 {
		return
	}
	if h.opts.visual {
		h.publish(h.event(KindHeartbeat, "", colors.DarkCyan))
		h.sleep(h.opts.pulseWidth)
		h.publish(h.event(KindHeartbeat, "", colors.Black))
	} else {
		h.setLED(true)
		h.sleep(h.opts.pulseWidth)
		h.setLED(false)
	}
}

// announce publishes a status event and, in visual mode without heartbeat,
// clears the indicator again shortly after
func (h *Handler) announce(ev Event) {
	h.publish(ev)
	if h.opts.visual {
		h.opts.logger.Debugf("message: '%s'; color: '%s'", ev.Message, ev.Color)
		if !h.opts.blink {
			h.sleep(unblinkDelay)
			h.publish(h.event(KindBlank, "", colors.Black))
		}
	}
}

func (h *Handler) publish(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, s := range h.subscribers {
		s.OnEvent(ev)
	}
}

func (h *Handler) event(kind EventKind, message string, color colors.RGB) Event {
	return Event{
		Kind:    kind,
		Message: message,
		Color:   color,
		State:   h.state,
		Time:    h.opts.clock.Now(),
	}
}

func (h *Handler) setLED(on bool) {
	if h.opts.led == nil {
		return
	}
	if err := h.opts.led.Set(on); err != nil {
		h.opts.logger.Debugw("led write failed", "error", err)
	}
}

func (h *Handler) sleep(d time.Duration) {
	if d > 0 {
		h.opts.clock.Sleep(d)
	}
}
