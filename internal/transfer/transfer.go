// Package transfer holds the color transfer functions used to turn scalar
// fields into colors.
package transfer

import (
	"image/color"
	"sync"

	"github.com/mazznoer/colorgrad"

	srgb "github.com/gogpu/smoke/internal/color"
)

// Size is the number of entries of a lookup table.
const Size = 256

// LUT is a sampled color gradient, linear RGB in [0, 1].
type LUT [Size][3]float32

// At returns the color for t in [0, 1]. Values outside are clamped.
func (l *LUT) At(t float32) [3]float32 {
	switch {
	case !(t > 0):
		return l[0]
	case t >= 1:
		return l[Size-1]
	}
	return l[int(t*(Size-1)+0.5)]
}

// RGBA returns the sRGB-encoded color for t with full opacity.
func (l *LUT) RGBA(t float32) color.RGBA {
	c := l.At(t)
	return color.RGBA{R: srgb.Encode(c[0]), G: srgb.Encode(c[1]), B: srgb.Encode(c[2]), A: 0xff}
}

// Flat returns the table as Size*4 floats (rgb plus a zero pad), the layout
// of a GPU storage buffer of vec4.
func (l *LUT) Flat() []float32 {
	out := make([]float32, Size*4)
	for i, c := range l {
		copy(out[i*4:], c[:])
	}
	return out
}

var (
	smokeOnce sync.Once
	smokeLUT  LUT

	fieldOnce sync.Once
	fieldLUT  LUT
)

// Smoke returns the table used for density: colorgrad's Inferno.
func Smoke() *LUT {
	smokeOnce.Do(func() { fill(&smokeLUT, colorgrad.Inferno()) })
	return &smokeLUT
}

// Field returns the table used for pressure and divergence debug views:
// colorgrad's Viridis.
func Field() *LUT {
	fieldOnce.Do(func() { fill(&fieldLUT, colorgrad.Viridis()) })
	return &fieldLUT
}

func fill(l *LUT, grad colorgrad.Gradient) {
	for i, c := range grad.Colors(Size) {
		r, g, b, _ := c.RGBA()
		l[i] = [3]float32{srgb.Decode(uint8(r >> 8)), srgb.Decode(uint8(g >> 8)), srgb.Decode(uint8(b >> 8))}
	}
}
