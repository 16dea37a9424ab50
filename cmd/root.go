// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Thermoquad/itsystat/internal/config"
	"github.com/Thermoquad/itsystat/internal/logging"
)

var (
	// Serial connection flags
	portName string
	baudRate int

	// WebSocket connection flags
	wsURL         string
	wsUsername    string
	wsNoSSLVerify bool

	// Global flags
	configPath string
	verbose    bool

	// cfg holds the config file merged with command line flags
	cfg = config.Default()
)

var rootCmd = &cobra.Command{
	Use:   "itsystat",
	Short: "ItsyBitsy RP2040 I2C Slave Toolkit",
	Long: `Itsystat - Tools for the ItsyBitsy RP2040 I2C slave protocol.

Runs the slave protocol handler against a bridge or an in-memory loopback bus,
sends commands as a bus master, and decodes bridge traffic.

Connection modes (bridge):
  Serial:    --port /dev/ttyACM0 [--baud 115200]
  WebSocket: --url ws://host/path [--username user]

For WebSocket authentication, the password is read from the ITSYSTAT_PASSWORD
environment variable, or prompted interactively if not set. The --password
flag is intentionally not provided to avoid leaking credentials in shell history.

Settings may also be read from a YAML file (--config or ITSYSTAT_CONFIG);
flags given on the command line take precedence.`,
	Version:           "0.3.0",
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	// Serial connection flags
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Bridge serial port device")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", 115200, "Baud rate (serial only)")

	// WebSocket connection flags
	rootCmd.PersistentFlags().StringVarP(&wsURL, "url", "u", "", "Bridge WebSocket URL (ws:// or wss://)")
	rootCmd.PersistentFlags().StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth")
	rootCmd.PersistentFlags().BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig reads the config file and merges the connection flags with it
func loadConfig(cmd *cobra.Command, args []string) error {
	loaded, err := config.Load(configPath)
	if err != nil {
		return err
	}
	cfg = loaded

	mergeString(cmd, "port", &portName, &cfg.Bridge.Port)
	mergeInt(cmd, "baud", &baudRate, &cfg.Bridge.Baud)
	mergeString(cmd, "url", &wsURL, &cfg.Bridge.URL)
	mergeString(cmd, "username", &wsUsername, &cfg.Bridge.Username)
	mergeBool(cmd, "no-ssl-verify", &wsNoSSLVerify, &cfg.Bridge.NoSSLVerify)
	return cfg.Validate()
}

// flagChanged reports whether a flag was given on the command line
func flagChanged(cmd *cobra.Command, name string) bool {
	f := cmd.Flags().Lookup(name)
	return f != nil && f.Changed
}

// mergeString copies a changed flag into the config, otherwise the config
// value into the flag variable
func mergeString(cmd *cobra.Command, name string, flag, conf *string) {
	if flagChanged(cmd, name) || *conf == "" {
		*conf = *flag
	} else {
		*flag = *conf
	}
}

func mergeInt(cmd *cobra.Command, name string, flag, conf *int) {
	if flagChanged(cmd, name) {
		*conf = *flag
	} else {
		*flag = *conf
	}
}

func mergeBool(cmd *cobra.Command, name string, flag, conf *bool) {
	if flagChanged(cmd, name) {
		*conf = *flag
	} else {
		*flag = *conf
	}
}

func mergeUint16(cmd *cobra.Command, name string, flag, conf *uint16) {
	if flagChanged(cmd, name) {
		*conf = *flag
	} else {
		*flag = *conf
	}
}

// newLogger builds a named logger honouring --verbose
func newLogger(name string) *zap.SugaredLogger {
	logger, err := logging.New(name, verbose)
	if err != nil {
		return zap.NewNop().Sugar()
	}
	return logger
}
