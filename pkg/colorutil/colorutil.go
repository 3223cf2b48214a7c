// Package colorutil provides shared color utilities for the site plan application.
package colorutil

import (
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"
)

// Common colors used throughout the application.
var (
	Black = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	White = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

// ParseHex parses "#RRGGBB" or "RRGGBB" (and the short "#RGB" form) into an
// opaque color.
func ParseHex(hex string) (color.RGBA, error) {
	s := strings.TrimPrefix(strings.TrimSpace(hex), "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid hex color %q", hex)
	}
	n, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid hex color %q: %w", hex, err)
	}
	return color.RGBA{
		R: uint8(n >> 16),
		G: uint8(n >> 8),
		B: uint8(n),
		A: 255,
	}, nil
}

// ParseHexOr parses hex and returns fallback when it is empty or malformed.
func ParseHexOr(hex string, fallback color.RGBA) color.RGBA {
	c, err := ParseHex(hex)
	if err != nil {
		return fallback
	}
	return c
}

// Hex formats an RGBA color as "#rrggbb", ignoring alpha.
func Hex(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Darken scales each channel by (1 - percent/100), rounding to the nearest
// value and clamping to the valid range.
func Darken(c color.RGBA, percent float64) color.RGBA {
	factor := 1 - percent/100
	scale := func(v uint8) uint8 {
		return clampByte(math.Round(float64(v) * factor))
	}
	return color.RGBA{R: scale(c.R), G: scale(c.G), B: scale(c.B), A: c.A}
}

// WithOpacity returns c premultiplied by opacity (0.0 - 1.0).
func WithOpacity(c color.RGBA, opacity float64) color.RGBA {
	if opacity >= 1 {
		return c
	}
	if opacity <= 0 {
		return color.RGBA{}
	}
	return color.RGBA{
		R: clampByte(math.Round(float64(c.R) * opacity)),
		G: clampByte(math.Round(float64(c.G) * opacity)),
		B: clampByte(math.Round(float64(c.B) * opacity)),
		A: clampByte(math.Round(float64(c.A) * opacity)),
	}
}

func clampByte(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
