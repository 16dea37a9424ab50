// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package config loads the optional itsystat YAML configuration file.
// Command line flags override values read from the file.
package config

import (
	"bytes"
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/Thermoquad/itsystat/pkg/i2cslave"
	"github.com/Thermoquad/itsystat/pkg/master"
)

// EnvPath names the environment variable holding the config file path
const EnvPath = "ITSYSTAT_CONFIG"

// Config is the full configuration file
type Config struct {
	Slave     SlaveConfig     `yaml:"slave"`
	Bridge    BridgeConfig    `yaml:"bridge"`
	Master    MasterConfig    `yaml:"master"`
	Indicator IndicatorConfig `yaml:"indicator"`
}

// SlaveConfig configures the slave handler loop
type SlaveConfig struct {
	Address      uint16        `yaml:"address"`
	Visual       bool          `yaml:"visual"`
	Blink        bool          `yaml:"blink"`
	BlinkEvery   uint64        `yaml:"blink_every"`
	PulseWidth   time.Duration `yaml:"pulse_width"`
	PollInterval time.Duration `yaml:"poll_interval"`
	StartupBlink bool          `yaml:"startup_blink"`
	SwapGRB      bool          `yaml:"swap_grb"`
}

// BridgeConfig configures the serial or WebSocket bridge connection
type BridgeConfig struct {
	Port        string `yaml:"port"`
	Baud        int    `yaml:"baud"`
	URL         string `yaml:"url"`
	Username    string `yaml:"username"`
	NoSSLVerify bool   `yaml:"no_ssl_verify"`
}

// MasterConfig configures the host-side master client
type MasterConfig struct {
	Bus      string        `yaml:"bus"`
	Address  uint16        `yaml:"address"`
	Register uint8         `yaml:"register"`
	Timeout  time.Duration `yaml:"timeout"`
}

// IndicatorConfig configures status outputs
type IndicatorConfig struct {
	LEDPin       string `yaml:"led_pin"`
	LEDActiveLow bool   `yaml:"led_active_low"`
	MQTT         string `yaml:"mqtt"`
	TUI          bool   `yaml:"tui"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Slave: SlaveConfig{
			Address:      i2cslave.DefaultAddress,
			BlinkEvery:   i2cslave.DefaultBlinkEvery,
			PulseWidth:   i2cslave.DefaultPulseWidth,
			PollInterval: time.Millisecond,
			StartupBlink: true,
		},
		Bridge: BridgeConfig{
			Baud: 115200,
		},
		Master: MasterConfig{
			Address:  i2cslave.DefaultAddress,
			Register: master.DefaultRegister,
			Timeout:  time.Second,
		},
	}
}

// Load reads path over the defaults. An empty path falls back to
// $ITSYSTAT_CONFIG; with neither set the defaults are returned.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv(EnvPath)
	}
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}
	if err := cfg.Decode(data); err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}
	return cfg, nil
}

// Decode merges YAML data into c and validates the result
func (c *Config) Decode(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return c.Validate()
}

// Validate checks ranges that the YAML types cannot express
func (c *Config) Validate() error {
	var err error
	if c.Slave.Address > 0x7F {
		err = multierr.Append(err, errors.Errorf("slave.address 0x%X is not a 7-bit address", c.Slave.Address))
	}
	if c.Master.Address > 0x7F {
		err = multierr.Append(err, errors.Errorf("master.address 0x%X is not a 7-bit address", c.Master.Address))
	}
	if c.Slave.BlinkEvery == 0 {
		err = multierr.Append(err, errors.New("slave.blink_every must be positive"))
	}
	if c.Slave.PollInterval < 0 {
		err = multierr.Append(err, errors.New("slave.poll_interval must not be negative"))
	}
	if c.Bridge.Port != "" && c.Bridge.URL != "" {
		err = multierr.Append(err, errors.New("bridge.port and bridge.url are mutually exclusive"))
	}
	return err
}

// Marshal encodes the configuration as YAML
func (c *Config) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
