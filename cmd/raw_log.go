// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"io"
	"log"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/itsystat/pkg/bridge"
	"github.com/Thermoquad/itsystat/pkg/i2cslave"
)

var rawShowBytes bool

var rawLogCmd = &cobra.Command{
	Use:   "raw_log",
	Short: "Display raw bridge frames in human-readable format",
	Long: `Continuously decode and display bridge frames as they arrive.

Each frame is shown with timestamp, message type and target address. RECEIVE
events are run through the slave decoder so the register, payload and any
protocol error are visible without a handler attached.

Supports both serial and WebSocket connections.`,
	RunE: runRawLog,
}

func init() {
	rootCmd.AddCommand(rawLogCmd)
	rawLogCmd.Flags().BoolVar(&rawShowBytes, "bytes", false, "Also print the raw framed bytes")
}

func runRawLog(cmd *cobra.Command, args []string) error {
	// Open connection (serial or WebSocket)
	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	fmt.Printf("Itsystat - Raw Bridge Log\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	decoder := bridge.NewDecoder()
	buf := make([]byte, bridge.MaxPacketSize)

	for {
		n, err := conn.Read(buf)
		for i := 0; i < n; i++ {
			raw := append([]byte(nil), decoder.RawBytes()...)
			raw = append(raw, buf[i])
			packet, err := decoder.DecodeByte(buf[i])
			if err != nil {
				fmt.Printf("[ERROR] %v\n", err)
				continue
			}
			if packet != nil {
				fmt.Print(bridge.FormatPacket(packet))
				if rawShowBytes {
					fmt.Printf("  Raw: %s\n", i2cslave.FormatHex(raw))
				}
			}
		}
		if err != nil {
			// a closed stream is permanent, exit gracefully
			if errors.Is(err, io.EOF) {
				log.Printf("Connection closed")
				return nil
			}
			log.Printf("Read error: %v", err)
		}
	}
}
