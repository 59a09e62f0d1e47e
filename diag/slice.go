package diag

import (
	"fmt"
	"image"
	"math"

	"github.com/gogpu/smoke/internal/transfer"
)

// Channel selects what a slice image shows.
type Channel int

// Slice channels. Speed is the length of the velocity xyz.
const (
	ChannelVelocityX Channel = iota
	ChannelVelocityY
	ChannelVelocityZ
	ChannelDensity
	ChannelSpeed
	ChannelScalar // the only channel of an R32Float grid
)

// Slice renders the z-th XY slice of a grid as an r×r image, normalized to
// the slice's largest magnitude. Density uses the smoke colormap, every
// other channel the field colormap. Rows are flipped so +Y points up.
func Slice(data []float32, r, z int, ch Channel) (*image.RGBA, error) {
	stride := 4
	if ch == ChannelScalar {
		stride = 1
	}
	if r <= 0 || len(data) != r*r*r*stride {
		return nil, fmt.Errorf("%w: %d floats for %d³×%d", ErrBadGrid, len(data), r, stride)
	}
	if z < 0 || z >= r {
		return nil, fmt.Errorf("%w: slice %d of %d", ErrBadGrid, z, r)
	}

	vals := make([]float64, r*r)
	var peak float64
	for y := range r {
		for x := range r {
			i := ((z*r+y)*r + x) * stride
			var v float64
			switch ch {
			case ChannelSpeed:
				a, b, c := float64(data[i]), float64(data[i+1]), float64(data[i+2])
				v = math.Sqrt(a*a + b*b + c*c)
			case ChannelScalar:
				v = math.Abs(float64(data[i]))
			default:
				v = math.Abs(float64(data[i+int(ch)]))
			}
			if math.IsNaN(v) || math.IsInf(v, 0) {
				v = 0
			}
			vals[y*r+x] = v
			peak = max(peak, v)
		}
	}

	lut := transfer.Field()
	if ch == ChannelDensity {
		lut = transfer.Smoke()
	}
	img := image.NewRGBA(image.Rect(0, 0, r, r))
	for y := range r {
		for x := range r {
			t := float32(0)
			if peak > 0 {
				t = float32(vals[y*r+x] / peak)
			}
			img.SetRGBA(x, r-1-y, lut.RGBA(t))
		}
	}
	return img, nil
}
