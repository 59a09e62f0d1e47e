package cpu

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/smoke/compute"
	"github.com/gogpu/smoke/internal/transfer"
)

// Debug views selected by the _debugView uniform.
const (
	viewDensity = iota
	viewPressure
	viewDivergence
)

const (
	defaultRaymarchSteps = 64
	lightSteps           = 8
	opaqueCutoff         = 1e-3
)

// volume is the scalar field being marched: one channel of a grid mapped
// onto the unit cube centred at the origin.
type volume struct {
	data   []float32
	r      int
	stride int
	ch     int
	abs    bool
}

// at samples the field at a world position with trilinear filtering.
func (v *volume) at(p mgl32.Vec3) float32 {
	r := float32(v.r)
	hi := r - 1
	gx := min(max((p[0]+0.5)*r-0.5, 0), hi)
	gy := min(max((p[1]+0.5)*r-0.5, 0), hi)
	gz := min(max((p[2]+0.5)*r-0.5, 0), hi)

	x0, y0, z0 := int(gx), int(gy), int(gz)
	x1, y1, z1 := min(x0+1, v.r-1), min(y0+1, v.r-1), min(z0+1, v.r-1)
	fx, fy, fz := gx-float32(x0), gy-float32(y0), gz-float32(z0)

	c := func(x, y, z int) float32 {
		s := v.data[index(x, y, z, v.r)*v.stride+v.ch]
		if v.abs && s < 0 {
			return -s
		}
		return s
	}
	c00 := c(x0, y0, z0)*(1-fx) + c(x1, y0, z0)*fx
	c10 := c(x0, y1, z0)*(1-fx) + c(x1, y1, z0)*fx
	c01 := c(x0, y0, z1)*(1-fx) + c(x1, y0, z1)*fx
	c11 := c(x0, y1, z1)*(1-fx) + c(x1, y1, z1)*fx
	return (c00*(1-fy)+c10*fy)*(1-fz) + (c01*(1-fy)+c11*fy)*fz
}

// intersectCube returns the entry and exit distances of a ray through the
// cube [-0.5, 0.5]³ using the slab method. ok is false on a miss.
func intersectCube(origin, dir mgl32.Vec3) (tmin, tmax float32, ok bool) {
	tmin, tmax = float32(math.Inf(-1)), float32(math.Inf(1))
	for a := range 3 {
		if dir[a] == 0 {
			if origin[a] < -0.5 || origin[a] > 0.5 {
				return 0, 0, false
			}
			continue
		}
		inv := 1 / dir[a]
		t0, t1 := (-0.5-origin[a])*inv, (0.5-origin[a])*inv
		if t0 > t1 {
			t0, t1 = t1, t0
		}
		tmin, tmax = max(tmin, t0), min(tmax, t1)
	}
	tmin = max(tmin, 0)
	return tmin, tmax, tmax > tmin
}

// camera ray through the centre of pixel (px, py) of a w×h image.
func cameraRay(toWorld, invProj mgl32.Mat4, px, py, w, h int) (origin, dir mgl32.Vec3) {
	ndcX := (float32(px)+0.5)/float32(w)*2 - 1
	ndcY := 1 - (float32(py)+0.5)/float32(h)*2

	origin = toWorld.Mul4x1(mgl32.Vec4{0, 0, 0, 1}).Vec3()
	view := invProj.Mul4x1(mgl32.Vec4{ndcX, ndcY, -1, 1})
	if view[3] != 0 {
		view = view.Mul(1 / view[3])
	}
	dir = toWorld.Mul4x1(view.Vec3().Vec4(0)).Vec3().Normalize()
	return origin, dir
}

func runRaymarch(inv *invocation) {
	out := inv.image(compute.SlotResult)
	w, h := out.desc.Width, out.desc.Height
	ex, ey := min(w, inv.groups[0]), min(h, inv.groups[1])

	toWorld := mgl32.Mat4(inv.b.mats[compute.UniformCameraToWorld])
	invProj := mgl32.Mat4(inv.b.mats[compute.UniformCameraInverseProjection])
	density := inv.float(compute.UniformDensity)
	shadow := inv.float(compute.UniformShadowAmount)
	steps := int(inv.b.ints[compute.UniformRaymarchSteps])
	if steps <= 0 {
		steps = defaultRaymarchSteps
	}

	vol, lut := inv.selectVolume(int(inv.b.ints[compute.UniformDebugView]))
	cells := float32(vol.r)

	inv.b.pool.For(ey, func(lo, hi int) {
		for py := lo; py < hi; py++ {
			for px := 0; px < ex; px++ {
				o := (py*w + px) * 4
				origin, dir := cameraRay(toWorld, invProj, px, py, w, h)
				t0, t1, ok := intersectCube(origin, dir)
				if !ok {
					clear(out.data[o : o+4])
					continue
				}

				ds := (t1 - t0) / float32(steps)
				trans := float32(1)
				var col [3]float32
				for s := range steps {
					p := origin.Add(dir.Mul(t0 + (float32(s)+0.5)*ds))
					val := vol.at(p)
					if val <= 0 {
						continue
					}
					alpha := 1 - float32(math.Exp(float64(-val*density*ds*cells)))
					light := float32(math.Exp(float64(-shadow * lightDepth(vol, p))))
					c := lut.At(1 - float32(math.Exp(float64(-val*density))))
					for k := range 3 {
						col[k] += trans * alpha * c[k] * light
					}
					trans *= 1 - alpha
					if trans < opaqueCutoff {
						break
					}
				}
				out.data[o], out.data[o+1], out.data[o+2] = col[0], col[1], col[2]
				out.data[o+3] = 1 - trans
			}
		}
	})
}

// lightDepth integrates the field from p straight up (+Y) to the top of the
// volume, in cells.
func lightDepth(vol *volume, p mgl32.Vec3) float32 {
	ls := (0.5 - p[1]) / lightSteps
	if ls <= 0 {
		return 0
	}
	var sum float32
	for j := range lightSteps {
		q := p
		q[1] += (float32(j) + 0.5) * ls
		sum += vol.at(q)
	}
	return sum * ls * float32(vol.r)
}

func (inv *invocation) selectVolume(view int) (*volume, *transfer.LUT) {
	switch view {
	case viewPressure:
		g := inv.grid(compute.SlotPressureTexture)
		return &volume{data: g.data, r: g.desc.Resolution, stride: 1, abs: true}, transfer.Field()
	case viewDivergence:
		g := inv.grid(compute.SlotDivergenceTexture)
		return &volume{data: g.data, r: g.desc.Resolution, stride: 1, abs: true}, transfer.Field()
	default:
		g := inv.grid(compute.SlotDensityTexture)
		return &volume{data: g.data, r: g.desc.Resolution, stride: 4, ch: 3}, transfer.Smoke()
	}
}
