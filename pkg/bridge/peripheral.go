// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bridge

import (
	"io"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/Thermoquad/itsystat/pkg/i2cslave"
)

// eventQueueSize bounds how many bus events may wait for the handler
const eventQueueSize = 256

// ErrConnectionClosed is returned by HandleEvent once the stream has ended,
// cleanly or through a read error
var ErrConnectionClosed = errors.Wrap(i2cslave.ErrPeripheralClosed, "bridge connection")

// Peripheral implements i2cslave.Peripheral over a bridge stream. A reader
// goroutine decodes frames; HandleEvent polls them without blocking.
type Peripheral struct {
	rw      io.ReadWriter
	address uint8
	logger  *zap.SugaredLogger

	events chan *Packet
	done   chan struct{}
	closed *atomic.Bool
	errMu  sync.Mutex
	err    error

	// owned by the handler goroutine
	rx    []byte
	reads int

	writeMu  sync.Mutex
	firmware *atomic.String
	dropped  *atomic.Uint64
	rejected *atomic.Uint64
}

// NewPeripheral starts decoding rw. Events for other target addresses are
// ignored unless address is AddressAny.
func NewPeripheral(rw io.ReadWriter, address uint8, logger *zap.SugaredLogger) *Peripheral {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	p := &Peripheral{
		rw:       rw,
		address:  address,
		logger:   logger,
		events:   make(chan *Packet, eventQueueSize),
		done:     make(chan struct{}),
		closed:   atomic.NewBool(false),
		firmware: atomic.NewString(""),
		dropped:  atomic.NewUint64(0),
		rejected: atomic.NewUint64(0),
	}
	go p.readLoop()
	return p
}

func (p *Peripheral) readLoop() {
	defer close(p.done)
	decoder := NewDecoder()
	buf := make([]byte, MaxPacketSize)
	for {
		n, err := p.rw.Read(buf)
		for i := 0; i < n; i++ {
			packet, derr := decoder.DecodeByte(buf[i])
			if derr != nil {
				p.rejected.Inc()
				p.logger.Debugw("rejected bridge frame", "error", derr)
				continue
			}
			if packet != nil {
				p.dispatch(packet)
			}
		}
		if err != nil {
			p.setErr(err)
			return
		}
	}
}

func (p *Peripheral) dispatch(packet *Packet) {
	if err := packet.ParseError(); err != nil {
		p.rejected.Inc()
		p.logger.Debugw("unparseable bridge frame", "error", err)
		return
	}
	if p.address != AddressAny && packet.Address() != AddressAny && packet.Address() != p.address {
		return
	}
	if packet.Type() == MsgHello {
		fw, _ := GetMapString(packet.Fields(), KeyValue)
		p.firmware.Store(fw)
		p.logger.Infow("bridge connected", "firmware", fw, "address", packet.Address())
		return
	}
	select {
	case p.events <- packet:
	default:
		p.dropped.Inc()
		p.logger.Warnw("bridge event queue full, dropping event", "type", FormatMessageType(packet.Type()))
	}
}

func (p *Peripheral) setErr(err error) {
	p.errMu.Lock()
	defer p.errMu.Unlock()
	if p.err != nil {
		return
	}
	if errors.Is(err, io.EOF) || p.closed.Load() {
		p.err = ErrConnectionClosed
		return
	}
	// the reader is gone, so any read failure ends the stream
	p.err = errors.Wrapf(ErrConnectionClosed, "bridge read: %v", err)
}

// Err returns the error that stopped the reader, if any
func (p *Peripheral) Err() error {
	p.errMu.Lock()
	defer p.errMu.Unlock()
	return p.err
}

// HandleEvent implements i2cslave.Peripheral
func (p *Peripheral) HandleEvent() (i2cslave.State, error) {
	select {
	case packet := <-p.events:
		return p.apply(packet), nil
	default:
	}
	select {
	case <-p.done:
		// drain anything decoded before the stream ended
		select {
		case packet := <-p.events:
			return p.apply(packet), nil
		default:
		}
		return i2cslave.StateNone, p.Err()
	default:
		return i2cslave.StateNone, nil
	}
}

func (p *Peripheral) apply(packet *Packet) i2cslave.State {
	switch packet.Type() {
	case MsgStart:
		return i2cslave.StateStart
	case MsgReceive:
		p.rx = append(p.rx, packet.Data()...)
		return i2cslave.StateReceive
	case MsgRequest:
		p.reads = packet.Count()
		// a bare read request without a count still wants one response byte
		if p.reads == 0 {
			p.reads = 1
		}
		return i2cslave.StateRequest
	case MsgFinish:
		p.reads = 0
		return i2cslave.StateFinish
	default:
		p.logger.Debugw("ignoring bridge message", "type", FormatMessageType(packet.Type()))
		return i2cslave.StateNone
	}
}

// Available implements i2cslave.Peripheral
func (p *Peripheral) Available() bool {
	return len(p.rx) > 0
}

// ReadDataReceived implements i2cslave.Peripheral
func (p *Peripheral) ReadDataReceived() byte {
	if len(p.rx) == 0 {
		return 0x00
	}
	b := p.rx[0]
	p.rx = p.rx[1:]
	return b
}

// WriteData implements i2cslave.Peripheral by sending a REPLY frame
func (p *Peripheral) WriteData(b byte) error {
	if p.reads > 0 {
		p.reads--
	}
	frame, err := EncodeReply(p.address, b)
	if err != nil {
		return err
	}
	return p.write(frame)
}

// IsMasterReqRead implements i2cslave.Peripheral
func (p *Peripheral) IsMasterReqRead() bool {
	return p.reads > 0
}

// Ping asks the bridge to announce itself
func (p *Peripheral) Ping() error {
	frame, err := Encode(p.address, MsgPing, nil)
	if err != nil {
		return err
	}
	return p.write(frame)
}

// Firmware returns the firmware version announced by the bridge
func (p *Peripheral) Firmware() string {
	return p.firmware.Load()
}

// Dropped returns how many events were dropped because the queue was full
func (p *Peripheral) Dropped() uint64 {
	return p.dropped.Load()
}

// Rejected returns how many frames failed to decode
func (p *Peripheral) Rejected() uint64 {
	return p.rejected.Load()
}

// Close closes the underlying stream if it is closable
func (p *Peripheral) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	if c, ok := p.rw.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (p *Peripheral) write(frame []byte) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	if _, err := p.rw.Write(frame); err != nil {
		return errors.Wrap(err, "bridge write")
	}
	return nil
}
