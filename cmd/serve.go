// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"periph.io/x/host/v3"

	"github.com/Thermoquad/itsystat/internal/logging"
	"github.com/Thermoquad/itsystat/pkg/bridge"
	"github.com/Thermoquad/itsystat/pkg/driver"
	"github.com/Thermoquad/itsystat/pkg/i2cslave"
	"github.com/Thermoquad/itsystat/pkg/indicator"
	"github.com/Thermoquad/itsystat/pkg/loopback"
	"github.com/Thermoquad/itsystat/pkg/master"
)

var (
	serveSim           bool
	serveVisual        bool
	serveBlink         bool
	serveTUI           bool
	serveSwapGRB       bool
	serveMQTT          string
	serveLED           string
	serveLEDActiveLow  bool
	serveAddress       uint16
	serveStatsInterval int
	serveDemoInterval  time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the I2C slave protocol handler",
	Long: `Run the slave protocol handler and show its status.

The handler is fed either by a bridge (--port or --url), which relays I2C
target events from an RP2040, or by an in-memory loopback bus (--sim) with a
demo master sending colour commands and the occasional malformed frame.

Payloads of the form "set <colour>" are shown on a terminal swatch. Status
changes are logged and can also be mirrored on a GPIO LED (--led), published
to MQTT (--mqtt) or shown in a terminal UI (--tui).

Periodic statistics summaries are displayed at configurable intervals in text
mode.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().BoolVar(&serveSim, "sim", false, "Use an in-memory bus with a demo master")
	serveCmd.Flags().BoolVar(&serveVisual, "visual", false, "Show status colours on the pixel")
	serveCmd.Flags().BoolVar(&serveBlink, "blink", false, "Pulse a heartbeat")
	serveCmd.Flags().BoolVar(&serveTUI, "tui", false, "Use terminal UI (false for text mode)")
	serveCmd.Flags().BoolVar(&serveSwapGRB, "swap-grb", false, "Swap red and green for GRB pixels")
	serveCmd.Flags().StringVar(&serveMQTT, "mqtt", "", "Publish status to an MQTT broker (mqtt://host:1883/prefix)")
	serveCmd.Flags().StringVar(&serveLED, "led", "", "GPIO pin name of a status LED")
	serveCmd.Flags().BoolVar(&serveLEDActiveLow, "led-active-low", false, "Status LED is lit when the pin is low")
	serveCmd.Flags().Uint16Var(&serveAddress, "addr", i2cslave.DefaultAddress, "I2C slave address")
	serveCmd.Flags().IntVar(&serveStatsInterval, "stats-interval", 10, "Statistics update interval (seconds)")
	serveCmd.Flags().DurationVar(&serveDemoInterval, "demo-interval", time.Second, "Delay between demo master commands (--sim only)")
}

// mergeServeConfig applies config file values to flags left unset
func mergeServeConfig(cmd *cobra.Command) {
	mergeBool(cmd, "visual", &serveVisual, &cfg.Slave.Visual)
	mergeBool(cmd, "blink", &serveBlink, &cfg.Slave.Blink)
	mergeBool(cmd, "tui", &serveTUI, &cfg.Indicator.TUI)
	mergeBool(cmd, "swap-grb", &serveSwapGRB, &cfg.Slave.SwapGRB)
	mergeString(cmd, "mqtt", &serveMQTT, &cfg.Indicator.MQTT)
	mergeString(cmd, "led", &serveLED, &cfg.Indicator.LEDPin)
	mergeBool(cmd, "led-active-low", &serveLEDActiveLow, &cfg.Indicator.LEDActiveLow)
	mergeUint16(cmd, "addr", &serveAddress, &cfg.Slave.Address)
}

// slaveSession is a configured handler and everything it holds open
type slaveSession struct {
	handler  *i2cslave.Handler
	stats    *i2cslave.Statistics
	pixel    *terminalPixel
	connInfo string
	bus      *loopback.Bus // set in simulation mode
	closers  []func() error
}

func (s *slaveSession) Close() error {
	var err error
	for i := len(s.closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, s.closers[i]())
	}
	return err
}

// newSlaveSession opens the peripheral and outputs and builds the handler
func newSlaveSession(logger *zap.SugaredLogger, pixel *terminalPixel) (*slaveSession, error) {
	s := &slaveSession{pixel: pixel}

	var periph i2cslave.Peripheral
	if serveSim {
		lp := loopback.NewPeripheral()
		s.bus = loopback.NewBus("sim")
		periph = lp
		s.bus.Attach(serveAddress, lp, nil)
		s.connInfo = fmt.Sprintf("Simulation: %s addr=0x%02X", s.bus, serveAddress)
	} else {
		conn, connInfo, err := OpenConnection()
		if err != nil {
			return nil, err
		}
		bp := bridge.NewPeripheral(conn, uint8(serveAddress), logger.Named("bridge"))
		if err := bp.Ping(); err != nil {
			bp.Close()
			return nil, err
		}
		periph = bp
		s.connInfo = connInfo
		s.closers = append(s.closers, bp.Close)
	}

	var led i2cslave.LED = indicator.NopLED{}
	if serveLED != "" {
		if _, err := host.Init(); err != nil {
			s.Close()
			return nil, errors.Wrap(err, "initialise host drivers")
		}
		gl, err := indicator.OpenGPIOLED(serveLED, serveLEDActiveLow)
		if err != nil {
			s.Close()
			return nil, err
		}
		led = gl
		s.closers = append(s.closers, func() error { return gl.Set(false) })
	}

	processor := driver.NewColorProcessor(pixel, serveSwapGRB)
	s.handler = i2cslave.NewHandler(periph,
		i2cslave.WithVisual(serveVisual),
		i2cslave.WithBlink(serveBlink),
		i2cslave.WithBlinkEvery(cfg.Slave.BlinkEvery),
		i2cslave.WithPulseWidth(cfg.Slave.PulseWidth),
		i2cslave.WithStartupBlink(cfg.Slave.StartupBlink),
		i2cslave.WithIdleSleep(cfg.Slave.PollInterval),
		i2cslave.WithProcessor(processor),
		i2cslave.WithLED(led),
		i2cslave.WithLogger(logger.Named("slave")),
	)
	processor.Attach(s.handler)

	s.stats = i2cslave.NewStatistics(nil)
	s.handler.Subscribe(s.stats)
	s.handler.Subscribe(indicator.NewConsole(logger.Named("status")))
	s.handler.Subscribe(driver.NewIndicator(pixel, serveSwapGRB, serveVisual, logger.Named("pixel")))

	if serveMQTT != "" {
		pub, client, err := indicator.DialMQTT(serveMQTT, logger.Named("mqtt"))
		if err != nil {
			s.Close()
			return nil, err
		}
		s.handler.Subscribe(pub)
		s.closers = append(s.closers, func() error {
			client.Disconnect(250)
			return nil
		})
		logger.Infow("publishing status", "topic", pub.Topic())
	}

	return s, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	mergeServeConfig(cmd)
	if serveSim && (portName != "" || wsURL != "") {
		return errors.New("--sim cannot be combined with --port or --url")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if serveTUI {
		return runServeTUI(ctx)
	}
	return runServeText(ctx)
}

// runServeText runs the handler in the foreground, printing events and
// periodic statistics
func runServeText(ctx context.Context) error {
	logger := newLogger("itsystat")
	defer logger.Sync()

	session, err := newSlaveSession(logger, &terminalPixel{out: os.Stdout})
	if err != nil {
		return err
	}
	defer session.Close()

	fmt.Printf("Itsystat - I2C Slave\n")
	fmt.Printf("Connection: %s\n", session.connInfo)
	fmt.Printf("Statistics interval: %d seconds\n", serveStatsInterval)
	fmt.Printf("Mode: %s\n", modeDescription())
	fmt.Printf("Press Ctrl+C to exit\n\n")

	session.handler.Subscribe(i2cslave.SubscriberFunc(printEvent))

	if session.bus != nil {
		go runDemoMaster(ctx, master.NewClient(session.bus, serveAddress), logger.Named("master"))
	}

	go func() {
		statsTicker := time.NewTicker(time.Duration(serveStatsInterval) * time.Second)
		defer statsTicker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-statsTicker.C:
				fmt.Println()
				fmt.Print(session.stats.String())
				fmt.Println()
			}
		}
	}()

	err = session.handler.Run(ctx)
	fmt.Println()
	fmt.Print(session.stats.String())
	switch {
	case errors.Is(err, context.Canceled):
		return nil
	case errors.Is(err, i2cslave.ErrPeripheralClosed):
		fmt.Println("Connection closed")
		return nil
	}
	return err
}

// runServeTUI runs the handler in the background and the monitor UI in the
// foreground
func runServeTUI(ctx context.Context) error {
	// log lines go to the event pane instead of the terminal
	w := &programWriter{}
	logger := logging.NewWithCore("itsystat", logging.NewTextCore(w, verbose))

	pixel := &terminalPixel{}
	session, err := newSlaveSession(logger, pixel)
	if err != nil {
		return err
	}
	defer session.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := initialModel(session.connInfo, serveAddress, serveStatsInterval, serveVisual, session.stats)
	p := tea.NewProgram(m, tea.WithContext(ctx))
	w.attach(p)

	session.handler.Subscribe(i2cslave.SubscriberFunc(func(ev i2cslave.Event) {
		p.Send(handlerEventMsg{event: ev, pixel: pixel.Color()})
	}))

	if session.bus != nil {
		go runDemoMaster(ctx, master.NewClient(session.bus, serveAddress), logger.Named("master"))
	}

	done := make(chan error, 1)
	go func() {
		err := session.handler.Run(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Errorw("handler stopped", "error", err)
		}
		done <- err
	}()

	_, err = p.Run()
	cancel()
	<-done
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return errors.Wrap(err, "TUI error")
	}
	return nil
}

func modeDescription() string {
	parts := []string{}
	if serveVisual {
		parts = append(parts, "visual")
	}
	if serveBlink {
		parts = append(parts, "heartbeat")
	}
	if serveSim {
		parts = append(parts, "simulation")
	}
	if len(parts) == 0 {
		return "payload colours only"
	}
	return strings.Join(parts, ", ")
}

// printEvent prints handler events in text mode
func printEvent(ev i2cslave.Event) {
	switch ev.Kind {
	case i2cslave.KindError:
		timestamp := ev.Time.Format("15:04:05.000")
		fmt.Printf("[%s] \033[1;31mPROTOCOL ERROR:\033[0m %s\n", timestamp, ev.Code)
		fmt.Printf("  %v\n", ev.Err)
		fmt.Printf("  >>> TRANSACTION REJECTED <<<\n\n")
	case i2cslave.KindResponse:
		if ev.Code.IsOkay() {
			fmt.Printf("\033[1;32m%s\033[0m", i2cslave.FormatEvent(ev))
		} else {
			fmt.Printf("\033[1;33m%s\033[0m", i2cslave.FormatEvent(ev))
		}
	case i2cslave.KindStatus:
		if !verbose && !strings.HasPrefix(ev.Message, "rxd") {
			return
		}
		fmt.Print(i2cslave.FormatEvent(ev))
	}
}

// demoScript is cycled by the simulation master. Raw frames exercise the
// slave's error responses.
var demoScript = []struct {
	payload string
	raw     []byte
}{
	{payload: "set red"},
	{payload: "set green"},
	{payload: "set blue"},
	{payload: "set sky_blue"},
	{payload: "hello itsy"},
	{payload: "set ultraviolet"},
	{raw: []byte{0x00, 40, 's', 'e', 't', 0x01, 0xFF}},
	{raw: []byte{0x00, 3, 'a', 0x07, 'c', 0x01, 0xFF}},
	{raw: []byte{0x00, 4, 'o', 'o', 'p', 's', 0xFF}},
	{raw: []byte{0x00, 6, 's', 'e', 't', 0x01, 0xFF}},
	{payload: "set candlelight"},
	{raw: []byte{0x00, 0x01, 0xFF}},
}

// runDemoMaster drives the simulated slave until ctx is done
func runDemoMaster(ctx context.Context, client *master.Client, logger *zap.SugaredLogger) {
	ticker := time.NewTicker(serveDemoInterval)
	defer ticker.Stop()

	for i := 0; ; i++ {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		step := demoScript[i%len(demoScript)]
		var resp i2cslave.Response
		var err error
		if step.raw != nil {
			resp, err = client.SendRaw(ctx, step.raw)
		} else {
			resp, err = client.Send(ctx, step.payload)
		}

		var re *master.ResponseError
		switch {
		case err == nil:
			logger.Debugw("sent", "payload", step.payload, "response", resp.Constant())
		case errors.As(err, &re):
			logger.Debugw("rejected", "frame", re.Payload, "response", resp.Constant())
		case ctx.Err() != nil:
			return
		default:
			logger.Warnw("transaction failed", "error", err)
		}
	}
}
