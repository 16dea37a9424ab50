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

var (
	sendStatus bool
	sendColor  string
)

var sendCmd = &cobra.Command{
	Use:   "send [payload]",
	Short: "Send a payload to the slave and print its response",
	Long: `Send a payload to an ItsyBitsy I2C slave as the bus master.

The payload is framed as register, length, characters and the validation
marker, written in one transaction, and the slave's one-byte response is read
back. With --status only the response byte is read.

Examples:
  itsystat send "set red"
  itsystat send --color sky_blue --bus 1
  itsystat send --status
  itsystat send --sim "hello"`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSend,
}

func init() {
	rootCmd.AddCommand(sendCmd)
	addMasterFlags(sendCmd)
	sendCmd.Flags().BoolVar(&sendStatus, "status", false, "Only read the response byte")
	sendCmd.Flags().StringVar(&sendColor, "color", "", "Send \"set <color>\"")
}

func runSend(cmd *cobra.Command, args []string) error {
	mergeMasterConfig(cmd)

	var payload string
	switch {
	case sendStatus:
		if len(args) > 0 || sendColor != "" {
			return errors.New("--status takes no payload")
		}
	case sendColor != "":
		if len(args) > 0 {
			return errors.New("--color cannot be combined with a payload")
		}
		payload = "set " + sendColor
	case len(args) == 1:
		payload = args[0]
	default:
		return errors.New("a payload, --color or --status is required")
	}

	logger := newLogger("itsystat")
	defer logger.Sync()

	target, err := openMaster(logger, &terminalPixel{out: os.Stdout})
	if err != nil {
		return err
	}
	defer target.close()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Master.Timeout)
	defer cancel()

	fmt.Printf("%s\n", target.info)

	var resp i2cslave.Response
	if sendStatus {
		resp, err = target.client.Status(ctx)
	} else {
		fmt.Printf("Frame: %s\n", formatFrame(masterRegister, payload))
		resp, err = target.client.Send(ctx, payload)
	}

	var re *master.ResponseError
	if err != nil && !errors.As(err, &re) {
		return err
	}
	printResponse(resp)
	if re != nil {
		return re
	}
	return nil
}

// formatFrame renders the bytes a payload is sent as, or the encoding error
func formatFrame(register byte, payload string) string {
	frame, err := master.EncodeFrame(register, payload)
	if err != nil {
		return err.Error()
	}
	return i2cslave.FormatHex(frame)
}

// printResponse prints a response code, coloured by outcome
func printResponse(resp i2cslave.Response) {
	name := resp.Name()
	if resp.IsOkay() {
		fmt.Printf("Response: \033[1;32m%s\033[0m %s\n", resp, name)
	} else {
		fmt.Printf("Response: \033[1;31m%s\033[0m %s\n", resp, name)
	}
}
