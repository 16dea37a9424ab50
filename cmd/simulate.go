// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/itsystat/pkg/i2cslave"
	"github.com/Thermoquad/itsystat/pkg/master"
)

var simulateEvents bool

var simulateCmd = &cobra.Command{
	Use:   "simulate [payload...]",
	Short: "Run payloads through an in-memory slave",
	Long: `Send payloads to a slave handler running on an in-memory I2C bus and
print each response.

Each bus transaction steps the handler synchronously, so the output shows
exactly what the firmware would answer. Without arguments the demo script is
run once, including malformed frames that trigger each error response.`,
	RunE: runSimulate,
}

func init() {
	rootCmd.AddCommand(simulateCmd)
	simulateCmd.Flags().BoolVar(&simulateEvents, "events", false, "Print every handler event")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	logger := newLogger("itsystat")
	defer logger.Sync()

	addr := cfg.Slave.Address
	h, bus := newSimulatedSlave(logger, &terminalPixel{out: os.Stdout}, addr)
	stats := i2cslave.NewStatistics(nil)
	h.Subscribe(stats)
	// the result is cleared when the transaction finishes, so keep the one
	// handed back with the response
	var lastResult string
	h.Subscribe(i2cslave.SubscriberFunc(func(ev i2cslave.Event) {
		if ev.Kind == i2cslave.KindResponse {
			lastResult = ev.Result
		}
	}))
	if simulateEvents {
		h.Subscribe(i2cslave.SubscriberFunc(func(ev i2cslave.Event) {
			fmt.Print(i2cslave.FormatEvent(ev))
		}))
	}

	client := master.NewClient(bus, addr)
	ctx := context.Background()
	fmt.Printf("Simulated slave: %s\n\n", client)

	type step struct {
		payload string
		raw     []byte
	}
	var steps []step
	if len(args) > 0 {
		for _, a := range args {
			steps = append(steps, step{payload: a})
		}
	} else {
		for _, s := range demoScript {
			steps = append(steps, step{payload: s.payload, raw: s.raw})
		}
	}

	for _, s := range steps {
		lastResult = ""
		var resp i2cslave.Response
		var err error
		if s.raw != nil {
			fmt.Printf("> %s\n", i2cslave.FormatHex(s.raw))
			resp, err = client.SendRaw(ctx, s.raw)
		} else {
			fmt.Printf("> %q  [%s]\n", s.payload, formatFrame(master.DefaultRegister, s.payload))
			frame, encErr := master.EncodeFrame(master.DefaultRegister, s.payload)
			if encErr != nil {
				// let the slave judge what the encoder refuses
				frame = rawFrame(s.payload)
			}
			resp, err = client.SendRaw(ctx, frame)
		}

		var re *master.ResponseError
		if err != nil && !errors.As(err, &re) {
			return err
		}
		printResponse(resp)
		if lastResult != "" && resp.IsOkay() {
			fmt.Printf("Result: %s\n", lastResult)
		}
		fmt.Println()
	}

	fmt.Print(stats.String())
	return nil
}

// rawFrame frames payload without checking its length or characters
func rawFrame(payload string) []byte {
	frame := []byte{master.DefaultRegister, byte(len(payload))}
	frame = append(frame, payload...)
	return append(frame, i2cslave.ByteValidate, i2cslave.ByteEndOfRecord)
}
