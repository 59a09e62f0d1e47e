// Package color converts between linear light and 8-bit sRGB.
//
// Kernels shade and composite in linear light; images leave the service
// sRGB-encoded. Both directions use lookup tables, 256 entries for decoding
// and 4096 (12-bit) for encoding, which is exact for 8-bit output.
package color

import "math"

var (
	decodeLUT [256]float32
	encodeLUT [4096]uint8
)

func init() {
	for i := range decodeLUT {
		decodeLUT[i] = float32(toLinear(float64(i) / 255))
	}
	for i := range encodeLUT {
		encodeLUT[i] = to8(toSRGB(float64(i) / 4095))
	}
}

func toLinear(s float64) float64 {
	if s <= 0.04045 {
		return s / 12.92
	}
	return math.Pow((s+0.055)/1.055, 2.4)
}

func toSRGB(l float64) float64 {
	if l <= 0.0031308 {
		return l * 12.92
	}
	return 1.055*math.Pow(l, 1/2.4) - 0.055
}

func to8(v float64) uint8 {
	return uint8(min(max(v*255+0.5, 0), 255)) //nolint:gosec // clamped
}

// Decode converts an sRGB byte to linear light in [0, 1].
func Decode(s uint8) float32 { return decodeLUT[s] }

// Encode converts linear light to an sRGB byte. Input is clamped to [0, 1].
func Encode(l float32) uint8 {
	switch {
	case !(l > 0):
		return encodeLUT[0]
	case l >= 1:
		return encodeLUT[len(encodeLUT)-1]
	}
	return encodeLUT[int(l*4095+0.5)]
}

// EncodeSlow is Encode computed with math.Pow, for tests.
func EncodeSlow(l float32) uint8 {
	return to8(toSRGB(float64(min(max(l, 0), 1))))
}

// EncodePremultiplied converts a premultiplied linear color to premultiplied
// 8-bit sRGB, encoding the unpremultiplied color.
func EncodePremultiplied(r, g, b, a float32) (r8, g8, b8, a8 uint8) {
	a = min(max(a, 0), 1)
	if a == 0 {
		return 0, 0, 0, 0
	}
	a8 = to8(float64(a))
	pre := func(c float32) uint8 {
		return uint8((uint32(Encode(c/a))*uint32(a8) + 127) / 255)
	}
	return pre(r), pre(g), pre(b), a8
}
