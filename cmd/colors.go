// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/itsystat/pkg/colors"
)

var colorsCmd = &cobra.Command{
	Use:   "colors",
	Short: "List the colour names accepted by \"set <color>\"",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		names := colors.Names()
		for _, name := range names {
			c, _ := colors.Lookup(name)
			fmt.Printf("%s %-16s %s  %s\n", swatch(c), name, c.Hex(), c)
		}
		fmt.Printf("\n%d colours\n", len(names))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(colorsCmd)
}
