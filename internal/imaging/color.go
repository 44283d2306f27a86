package imaging

import (
	"fmt"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// RGBAColor represents an RGBA color with 8-bit components including alpha.
//
// The alpha component represents opacity:
//   - 0 = fully transparent
//   - 255 = fully opaque
type RGBAColor struct {
	R uint8 `json:"r"` // Red component (0-255)
	G uint8 `json:"g"` // Green component (0-255)
	B uint8 `json:"b"` // Blue component (0-255)
	A uint8 `json:"a"` // Alpha/opacity component (0-255)
}

// HSLColor represents a color in HSL (Hue, Saturation, Lightness) color space.
type HSLColor struct {
	H int `json:"h"` // Hue: 0-360 degrees (0=red, 120=green, 240=blue)
	S int `json:"s"` // Saturation: 0-100 percent (0=gray, 100=vivid)
	L int `json:"l"` // Lightness: 0-100 percent (0=black, 50=normal, 100=white)
}

// ColorResult describes a single pixel in the representations the watermark
// heuristics care about.
type ColorResult struct {
	Hex  string    `json:"hex"`  // Hex format "#RRGGBB" (no alpha)
	RGBA RGBAColor `json:"rgba"` // RGBA components with straight alpha
	HSL  HSLColor  `json:"hsl"`  // HSL representation

	// Luma is the BT.601 luminance (0-255) compared against the white threshold.
	Luma uint8 `json:"luma"`

	// MinChannel is the smallest color component (0-255).
	MinChannel uint8 `json:"min_channel"`

	// Lightness is CIE L* scaled to 0-255.
	Lightness uint8 `json:"lightness"`
}

// SampleColor extracts the color value at a specific pixel coordinate.
//
// Parameters:
//   - buf: The decoded buffer to sample from.
//   - x: X coordinate (0-based, 0 = leftmost pixel).
//   - y: Y coordinate (0-based, 0 = topmost pixel).
//
// Returns:
//   - *ColorResult: The color at (x, y) in multiple formats.
//   - error: Non-nil if coordinates are outside the buffer.
//
// Gray buffers report R=G=B; buffers without alpha report A=255.
func SampleColor(buf *Buffer, x, y int) (*ColorResult, error) {
	if buf.Empty() {
		return nil, fmt.Errorf("empty buffer")
	}
	if x < 0 || x >= buf.Width || y < 0 || y >= buf.Height {
		return nil, fmt.Errorf("coordinates (%d,%d) outside image bounds", x, y)
	}

	px := buf.PixelAt(x, y)
	c := RGBAColor{A: 0xff}
	if buf.Channels == 1 {
		c.R, c.G, c.B = px[0], px[0], px[0]
	} else {
		c.R, c.G, c.B = px[0], px[1], px[2]
		if buf.Channels == 4 {
			c.A = px[3]
		}
	}

	return &ColorResult{
		Hex:        fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B),
		RGBA:       c,
		HSL:        rgbToHSL(c.R, c.G, c.B),
		Luma:       Luma(c.R, c.G, c.B),
		MinChannel: MinChannel(c.R, c.G, c.B),
		Lightness:  Lightness(c.R, c.G, c.B),
	}, nil
}

// Luma returns the ITU-R BT.601 luminance of an 8-bit RGB triple, rounded
// to the nearest integer.
func Luma(r, g, b uint8) uint8 {
	return uint8((299*uint32(r) + 587*uint32(g) + 114*uint32(b) + 500) / 1000)
}

// MinChannel returns the smallest of the three components. A pixel whose
// minimum is high is near-white whatever its tint.
func MinChannel(r, g, b uint8) uint8 {
	m := r
	if g < m {
		m = g
	}
	if b < m {
		m = b
	}
	return m
}

// Lightness returns the CIE L* of an sRGB triple scaled to 0-255.
func Lightness(r, g, b uint8) uint8 {
	l, _, _ := toColorful(r, g, b).Lab()
	v := math.Round(l * 255)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// rgbToHSL converts 8-bit RGB values to HSL color space.
func rgbToHSL(r, g, b uint8) HSLColor {
	h, s, l := toColorful(r, g, b).Hsl()
	if math.IsNaN(h) {
		h = 0
	}
	return HSLColor{
		H: int(h),
		S: int(s * 100),
		L: int(l * 100),
	}
}

func toColorful(r, g, b uint8) colorful.Color {
	return colorful.Color{
		R: float64(r) / 255.0,
		G: float64(g) / 255.0,
		B: float64(b) / 255.0,
	}
}
