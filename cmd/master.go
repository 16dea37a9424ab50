// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/Thermoquad/itsystat/pkg/driver"
	"github.com/Thermoquad/itsystat/pkg/i2cslave"
	"github.com/Thermoquad/itsystat/pkg/loopback"
	"github.com/Thermoquad/itsystat/pkg/master"
)

// Master side flags shared by send and console
var (
	masterSim      bool
	masterBusName  string
	masterAddress  uint16
	masterRegister uint8
)

func addMasterFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&masterSim, "sim", false, "Talk to an in-memory slave instead of real hardware")
	cmd.Flags().StringVar(&masterBusName, "bus", "", "I2C bus name or number (default: first bus)")
	cmd.Flags().Uint16Var(&masterAddress, "addr", i2cslave.DefaultAddress, "I2C slave address")
	cmd.Flags().Uint8Var(&masterRegister, "register", master.DefaultRegister, "Register byte written ahead of each frame")
}

// mergeMasterConfig applies config file values to flags left unset
func mergeMasterConfig(cmd *cobra.Command) {
	mergeString(cmd, "bus", &masterBusName, &cfg.Master.Bus)
	mergeUint16(cmd, "addr", &masterAddress, &cfg.Master.Address)
	if flagChanged(cmd, "register") {
		cfg.Master.Register = masterRegister
	} else {
		masterRegister = cfg.Master.Register
	}
}

// masterTarget is an open master client and whatever backs it
type masterTarget struct {
	client  *master.Client
	info    string
	handler *i2cslave.Handler // set when the slave is simulated
	close   func() error
}

// openMaster opens the configured bus, or builds a simulated slave stepped
// synchronously by each bus transaction
func openMaster(logger *zap.SugaredLogger, pixel driver.Pixel) (*masterTarget, error) {
	if masterSim {
		h, bus := newSimulatedSlave(logger, pixel, masterAddress)
		client := master.NewClient(bus, masterAddress)
		client.SetRegister(masterRegister)
		return &masterTarget{
			client:  client,
			info:    fmt.Sprintf("Simulation: %s", client),
			handler: h,
			close:   func() error { return nil },
		}, nil
	}

	if _, err := host.Init(); err != nil {
		return nil, errors.Wrap(err, "initialise host drivers")
	}
	bus, err := i2creg.Open(masterBusName)
	if err != nil {
		return nil, errors.Wrapf(err, "open I2C bus %q", masterBusName)
	}
	client := master.NewClient(bus, masterAddress)
	client.SetRegister(masterRegister)
	return &masterTarget{
		client: client,
		info:   fmt.Sprintf("I2C: %s", client),
		close:  bus.Close,
	}, nil
}

// newSimulatedSlave attaches a colour-processing slave handler to an
// in-memory bus at addr
func newSimulatedSlave(logger *zap.SugaredLogger, pixel driver.Pixel, addr uint16) (*i2cslave.Handler, i2c.Bus) {
	lp := loopback.NewPeripheral()
	processor := driver.NewColorProcessor(pixel, false)
	h := i2cslave.NewHandler(lp,
		i2cslave.WithProcessor(processor),
		i2cslave.WithVisual(cfg.Slave.Visual),
		i2cslave.WithBlink(false),
		i2cslave.WithLogger(logger.Named("slave")),
	)
	processor.Attach(h)

	bus := loopback.NewBus("sim")
	bus.Attach(addr, lp, h)
	return h, bus
}
