// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package colors provides the MROS colour table used to drive status
// indicators (NeoPixel, terminal swatches).
package colors

import (
	"fmt"
	"image/color"
	"sort"
	"strings"
)

// RGB is an 8-bit colour triple
type RGB struct {
	R uint8
	G uint8
	B uint8
}

// RGBA converts the triple to an opaque color.RGBA (as used by ws2812 drivers)
func (c RGB) RGBA() color.RGBA {
	return color.RGBA{R: c.R, G: c.G, B: c.B, A: 0xFF}
}

// GRB returns the colour with red and green swapped, for pixels wired GRB
func (c RGB) GRB() RGB {
	return RGB{R: c.G, G: c.R, B: c.B}
}

// Hex returns the colour as "#RRGGBB"
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}

// IsBlack reports whether all channels are off
func (c RGB) IsBlack() bool {
	return c.R == 0 && c.G == 0 && c.B == 0
}

// String returns the triple as "(r, g, b)"
func (c RGB) String() string {
	return fmt.Sprintf("(%d, %d, %d)", c.R, c.G, c.B)
}

// Named colours
var (
	White          = RGB{255, 255, 255}
	LightGrey      = RGB{192, 192, 192}
	Grey           = RGB{96, 96, 96}
	DarkGrey       = RGB{64, 64, 64}
	VeryDarkGrey   = RGB{37, 37, 37}
	Black          = RGB{0, 0, 0}
	DarkRed        = RGB{128, 0, 0}
	Red            = RGB{255, 0, 0}
	LightRed       = RGB{255, 48, 64}
	Peach          = RGB{255, 48, 40}
	Brown          = RGB{64, 24, 0}
	DarkOrange     = RGB{255, 50, 0}
	Tangerine      = RGB{223, 64, 10}
	Orange         = RGB{255, 108, 0}
	DarkYellow     = RGB{128, 128, 0}
	Yellow         = RGB{255, 160, 0}
	LightYellow    = RGB{255, 180, 48}
	YellowGreen    = RGB{148, 255, 0}
	LightGreen     = RGB{128, 255, 64}
	Green          = RGB{0, 255, 0}
	DarkGreen      = RGB{0, 96, 0}
	LightTurquoise = RGB{150, 199, 128}
	Turquoise      = RGB{0, 160, 96}
	DarkTurquoise  = RGB{22, 81, 55}
	LightBlue      = RGB{128, 128, 255}
	Blue           = RGB{0, 0, 255}
	SkyBlue        = RGB{40, 128, 192}
	DarkBlue       = RGB{0, 0, 128}
	BlueViolet     = RGB{96, 0, 255}
	Violet         = RGB{77, 26, 177}
	Purple         = RGB{128, 0, 180}
	LightCyan      = RGB{128, 255, 255}
	Cyan           = RGB{0, 255, 255}
	DarkCyan       = RGB{0, 128, 128}
	VeryDarkCyan   = RGB{0, 64, 64}
	LightMagenta   = RGB{255, 128, 255}
	Magenta        = RGB{255, 0, 255}
	DarkMagenta    = RGB{128, 0, 128}
	Fuchsia        = RGB{255, 0, 128}
	Coral          = RGB{202, 48, 62}
	Pink           = RGB{160, 40, 110}
	DarkPink       = RGB{131, 63, 81}
	Candlelight    = RGB{226, 122, 70}
	DimRed         = RGB{42, 0, 0}
)

// Table maps upper-case colour names to their values
var Table = map[string]RGB{
	"WHITE":           White,
	"LIGHT_GREY":      LightGrey,
	"GREY":            Grey,
	"DARK_GREY":       DarkGrey,
	"VERY_DARK_GREY":  VeryDarkGrey,
	"BLACK":           Black,
	"DARK_RED":        DarkRed,
	"RED":             Red,
	"LIGHT_RED":       LightRed,
	"PEACH":           Peach,
	"BROWN":           Brown,
	"DARK_ORANGE":     DarkOrange,
	"TANGERINE":       Tangerine,
	"ORANGE":          Orange,
	"DARK_YELLOW":     DarkYellow,
	"YELLOW":          Yellow,
	"LIGHT_YELLOW":    LightYellow,
	"YELLOW_GREEN":    YellowGreen,
	"LIGHT_GREEN":     LightGreen,
	"GREEN":           Green,
	"DARK_GREEN":      DarkGreen,
	"LIGHT_TURQUOISE": LightTurquoise,
	"TURQUOISE":       Turquoise,
	"DARK_TURQUOISE":  DarkTurquoise,
	"LIGHT_BLUE":      LightBlue,
	"BLUE":            Blue,
	"SKY_BLUE":        SkyBlue,
	"DARK_BLUE":       DarkBlue,
	"BLUE_VIOLET":     BlueViolet,
	"VIOLET":          Violet,
	"PURPLE":          Purple,
	"LIGHT_CYAN":      LightCyan,
	"CYAN":            Cyan,
	"DARK_CYAN":       DarkCyan,
	"VERY_DARK_CYAN":  VeryDarkCyan,
	"LIGHT_MAGENTA":   LightMagenta,
	"MAGENTA":         Magenta,
	"DARK_MAGENTA":    DarkMagenta,
	"FUCHSIA":         Fuchsia,
	"CORAL":           Coral,
	"PINK":            Pink,
	"DARK_PINK":       DarkPink,
	"CANDLELIGHT":     Candlelight,
	"DIM_RED":         DimRed,
}

// Lookup finds a colour by name, ignoring case and surrounding whitespace
func Lookup(name string) (RGB, bool) {
	c, ok := Table[strings.ToUpper(strings.TrimSpace(name))]
	return c, ok
}

// Names returns all colour names in sorted order
func Names() []string {
	names := make([]string, 0, len(Table))
	for name := range Table {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NameOf returns the table name of a colour, or its hex form when unnamed
func NameOf(c RGB) string {
	for name, v := range Table {
		if v == c {
			return name
		}
	}
	return c.Hex()
}
