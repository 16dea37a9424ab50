// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// Itsystat - ItsyBitsy I2C Slave Tooling
//
// A CLI tool for running, driving and monitoring the ItsyBitsy RP2040 I2C
// slave protocol from a host.

package main

import (
	"os"

	"github.com/Thermoquad/itsystat/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
