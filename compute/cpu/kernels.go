package cpu

import (
	"math"

	"github.com/gogpu/smoke/compute"
)

// Fluid kernels run 4x4x4 groups; Raymarch runs 8x8x1 groups over pixels.
var (
	fluidGroup    = [3]int{4, 4, 4}
	raymarchGroup = [3]int{8, 8, 1}
)

type kernelDef struct {
	name  string
	group [3]int
	run   func(inv *invocation)
}

var kernelDefs = map[string]*kernelDef{
	compute.KernelInit:              {compute.KernelInit, fluidGroup, runClearGrid},
	compute.KernelAdvect:            {compute.KernelAdvect, fluidGroup, runAdvect},
	compute.KernelInject:            {compute.KernelInject, fluidGroup, runInject},
	compute.KernelDiffuse:           {compute.KernelDiffuse, fluidGroup, runDiffuse},
	compute.KernelDivergence:        {compute.KernelDivergence, fluidGroup, runDivergence},
	compute.KernelClear:             {compute.KernelClear, fluidGroup, runClearGrid},
	compute.KernelPressure:          {compute.KernelPressure, fluidGroup, runPressure},
	compute.KernelProjectField:      {compute.KernelProjectField, fluidGroup, runProjectField},
	compute.KernelBoundaryCondition: {compute.KernelBoundaryCondition, fluidGroup, runBoundaryCondition},
	compute.KernelRaymarch:          {compute.KernelRaymarch, raymarchGroup, runRaymarch},
}

// invocation is one dispatch: the kernel's bindings plus the number of
// invocations along each axis.
type invocation struct {
	b      *Backend
	ks     *kernelState
	groups [3]int
}

func (inv *invocation) grid(slot string) *gridData {
	return inv.b.grids[compute.GridID(inv.ks.bound[slot])]
}

func (inv *invocation) image(slot string) *imageData {
	return inv.b.images[compute.ImageID(inv.ks.bound[slot])]
}

func (inv *invocation) float(name string) float32 { return inv.b.floats[name] }

// extent clips the invocation count to an r³ grid.
func (inv *invocation) extent(r int) (ex, ey, ez int) {
	return min(r, inv.groups[0]), min(r, inv.groups[1]), min(r, inv.groups[2])
}

// forCells runs fn for every covered cell of an r³ grid, slabs of z in
// parallel.
func (inv *invocation) forCells(r int, fn func(x, y, z int)) {
	ex, ey, ez := inv.extent(r)
	inv.b.pool.For(ez, func(lo, hi int) {
		for z := lo; z < hi; z++ {
			for y := 0; y < ey; y++ {
				for x := 0; x < ex; x++ {
					fn(x, y, z)
				}
			}
		}
	})
}

func index(x, y, z, r int) int { return (z*r+y)*r + x }

// interior reports whether a cell is off the one-cell boundary shell.
func interior(x, y, z, r int) bool {
	return x > 0 && y > 0 && z > 0 && x < r-1 && y < r-1 && z < r-1
}

func clampIndex(i, r int) int { return min(max(i, 0), r-1) }

// =============================================================================
// Init / Clear
// =============================================================================

func runClearGrid(inv *invocation) {
	slot := compute.SlotDestination
	if inv.ks.def.name == compute.KernelClear {
		slot = compute.SlotDestinationPressure
	}
	dst := inv.grid(slot)
	r, ch := dst.desc.Resolution, dst.desc.Format.Channels()
	inv.forCells(r, func(x, y, z int) {
		i := index(x, y, z, r) * ch
		clear(dst.data[i : i+ch])
	})
}

// =============================================================================
// Advect
// =============================================================================

// sample reads all four channels of an RGBA grid at a fractional cell
// position with trilinear filtering, clamping to the edge cells.
func sample(data []float32, r int, px, py, pz float32) [4]float32 {
	hi := float32(r - 1)
	px, py, pz = min(max(px, 0), hi), min(max(py, 0), hi), min(max(pz, 0), hi)

	x0, y0, z0 := int(px), int(py), int(pz)
	x1, y1, z1 := min(x0+1, r-1), min(y0+1, r-1), min(z0+1, r-1)
	fx, fy, fz := px-float32(x0), py-float32(y0), pz-float32(z0)

	var out [4]float32
	corner := func(x, y, z int, w float32) {
		i := index(x, y, z, r) * 4
		out[0] += data[i] * w
		out[1] += data[i+1] * w
		out[2] += data[i+2] * w
		out[3] += data[i+3] * w
	}
	corner(x0, y0, z0, (1-fx)*(1-fy)*(1-fz))
	corner(x1, y0, z0, fx*(1-fy)*(1-fz))
	corner(x0, y1, z0, (1-fx)*fy*(1-fz))
	corner(x1, y1, z0, fx*fy*(1-fz))
	corner(x0, y0, z1, (1-fx)*(1-fy)*fz)
	corner(x1, y0, z1, fx*(1-fy)*fz)
	corner(x0, y1, z1, (1-fx)*fy*fz)
	corner(x1, y1, z1, fx*fy*fz)
	return out
}

func runAdvect(inv *invocation) {
	src, dst := inv.grid(compute.SlotSource), inv.grid(compute.SlotDestination)
	r := dst.desc.Resolution
	dt := inv.float(compute.UniformDT)
	decay := inv.b.vectors[compute.UniformDecay]
	keepV := max(0, 1-decay[0]*dt)
	keepD := max(0, 1-decay[1]*dt)

	inv.forCells(r, func(x, y, z int) {
		i := index(x, y, z, r) * 4
		v := src.data[i : i+3]
		s := sample(src.data, r,
			float32(x)-dt*v[0], float32(y)-dt*v[1], float32(z)-dt*v[2])
		dst.data[i] = s[0] * keepV
		dst.data[i+1] = s[1] * keepV
		dst.data[i+2] = s[2] * keepV
		dst.data[i+3] = s[3] * keepD
	})
}

// =============================================================================
// Inject
// =============================================================================

func runInject(inv *invocation) {
	src, dst := inv.grid(compute.SlotSource), inv.grid(compute.SlotDestination)
	r := dst.desc.Resolution
	dt := inv.float(compute.UniformDT)
	pos := inv.b.vectors[compute.UniformInjectPosition]
	radius := inv.float(compute.UniformInjectRadius)
	dv := inv.float(compute.UniformVelocity) * dt
	dd := inv.float(compute.UniformInjectDensity) * dt

	var c [3]float32
	for a := range c {
		c[a] = float32(clampIndex(int(math.Floor(float64(pos[a]*float32(r)))), r))
	}
	r2 := radius * radius

	inv.forCells(r, func(x, y, z int) {
		i := index(x, y, z, r) * 4
		copy(dst.data[i:i+4], src.data[i:i+4])
		ox, oy, oz := float32(x)-c[0], float32(y)-c[1], float32(z)-c[2]
		if ox*ox+oy*oy+oz*oz <= r2 {
			dst.data[i+1] += dv
			dst.data[i+3] += dd
		}
	})
}

// =============================================================================
// Diffuse
// =============================================================================

func runDiffuse(inv *invocation) {
	src, dst := inv.grid(compute.SlotSource), inv.grid(compute.SlotDestination)
	r := dst.desc.Resolution
	a := inv.float(compute.UniformViscosity) * inv.float(compute.UniformDT) * float32(r)
	norm := 1 / (1 + 6*a)

	inv.forCells(r, func(x, y, z int) {
		n := [6]int{
			index(clampIndex(x-1, r), y, z, r), index(clampIndex(x+1, r), y, z, r),
			index(x, clampIndex(y-1, r), z, r), index(x, clampIndex(y+1, r), z, r),
			index(x, y, clampIndex(z-1, r), r), index(x, y, clampIndex(z+1, r), r),
		}
		i := index(x, y, z, r) * 4
		for ch := range 4 {
			var sum float32
			for _, j := range n {
				sum += src.data[j*4+ch]
			}
			dst.data[i+ch] = (src.data[i+ch] + a*sum) * norm
		}
	})
}

// =============================================================================
// Divergence / Pressure / ProjectField
// =============================================================================

// axisStep is the cell index offset along each axis.
func axisStep(r int) [3]int { return [3]int{1, r, r * r} }

// flux returns the face velocity between cell (x,y,z) and its +axis
// neighbor, zero unless both cells are interior.
func flux(v []float32, r, x, y, z, axis int) float32 {
	c := [3]int{x, y, z}
	if !interior(x, y, z, r) {
		return 0
	}
	c[axis]++
	if !interior(c[0], c[1], c[2], r) {
		return 0
	}
	return v[index(x, y, z, r)*4+axis]
}

func runDivergence(inv *invocation) {
	src, dst := inv.grid(compute.SlotSource), inv.grid(compute.SlotDestinationDivergence)
	r := dst.desc.Resolution

	inv.forCells(r, func(x, y, z int) {
		i := index(x, y, z, r)
		if !interior(x, y, z, r) {
			dst.data[i] = 0
			return
		}
		div := flux(src.data, r, x, y, z, 0) - flux(src.data, r, x-1, y, z, 0) +
			flux(src.data, r, x, y, z, 1) - flux(src.data, r, x, y-1, z, 1) +
			flux(src.data, r, x, y, z, 2) - flux(src.data, r, x, y, z-1, 2)
		dst.data[i] = div
	})
}

func runPressure(inv *invocation) {
	div := inv.grid(compute.SlotSourceDivergence)
	src, dst := inv.grid(compute.SlotSourcePressure), inv.grid(compute.SlotDestinationPressure)
	r := dst.desc.Resolution
	step := axisStep(r)

	inv.forCells(r, func(x, y, z int) {
		i := index(x, y, z, r)
		if !interior(x, y, z, r) {
			dst.data[i] = 0
			return
		}
		c := [3]int{x, y, z}
		pc := src.data[i]
		var sum float32
		for axis := range 3 {
			for _, d := range [2]int{-1, 1} {
				n := c
				n[axis] += d
				if interior(n[0], n[1], n[2], r) {
					sum += src.data[i+d*step[axis]]
				} else {
					sum += pc
				}
			}
		}
		dst.data[i] = (sum - div.data[i]) / 6
	})
}

func runProjectField(inv *invocation) {
	p := inv.grid(compute.SlotSourcePressure)
	src, dst := inv.grid(compute.SlotSource), inv.grid(compute.SlotDestination)
	r := dst.desc.Resolution
	step := axisStep(r)

	inv.forCells(r, func(x, y, z int) {
		i := index(x, y, z, r)
		copy(dst.data[i*4:i*4+4], src.data[i*4:i*4+4])
		if !interior(x, y, z, r) {
			return
		}
		c := [3]int{x, y, z}
		for axis := range 3 {
			n := c
			n[axis]++
			if interior(n[0], n[1], n[2], r) {
				dst.data[i*4+axis] -= p.data[i+step[axis]] - p.data[i]
			} else {
				dst.data[i*4+axis] = 0
			}
		}
	})
}

// =============================================================================
// BoundaryCondition
// =============================================================================

func runBoundaryCondition(inv *invocation) {
	dst := inv.grid(compute.SlotDestination)
	r := dst.desc.Resolution

	inv.forCells(r, func(x, y, z int) {
		if interior(x, y, z, r) {
			return
		}
		i := index(x, y, z, r) * 4
		dst.data[i], dst.data[i+1], dst.data[i+2] = 0, 0, 0
	})
}
