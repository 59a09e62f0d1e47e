package compute

import (
	"image"

	srgb "github.com/gogpu/smoke/internal/color"
)

// ToRGBA converts RGBA32Float pixels (row-major, w*h*4 floats) to an 8-bit
// image. The raymarch kernels write premultiplied linear color; the result
// is premultiplied sRGB, which is what image.RGBA stores.
func ToRGBA(px []float32, w, h int) *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < w*h*4; i += 4 {
		r, g, b, a := srgb.EncodePremultiplied(px[i], px[i+1], px[i+2], px[i+3])
		out.Pix[i], out.Pix[i+1], out.Pix[i+2], out.Pix[i+3] = r, g, b, a
	}
	return out
}
