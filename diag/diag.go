// Package diag reads simulation grids back from the compute service and
// reduces them to numbers and pictures for logs, tests and the demo.
//
// Read-back is slow on a GPU service; nothing in the frame loop depends on
// it.
package diag

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/gogpu/smoke/compute"
	"github.com/gogpu/smoke/grid"
	"github.com/gogpu/smoke/kernel"
)

// ErrBadGrid is returned when cell data does not match the expected layout.
var ErrBadGrid = errors.New("diag: grid data does not match resolution")

// Velocity summarizes an RGBA velocity grid.
type Velocity struct {
	Energy   float64 // sum of |v|² over all cells
	MaxSpeed float64
	Density  float64 // sum of the w channel
	NaN      int     // cells with a non-finite component
}

// Scalar summarizes a one-channel grid.
type Scalar struct {
	MeanAbs float64
	RMS     float64
	MaxAbs  float64
	NaN     int
}

// Stats is one diagnostic sample of the simulation state.
type Stats struct {
	Velocity   Velocity
	Divergence Scalar // of the current velocity front
	Pressure   Scalar
}

// Finite reports whether no grid held NaN or Inf.
func (s Stats) Finite() bool {
	return s.Velocity.NaN == 0 && s.Divergence.NaN == 0 && s.Pressure.NaN == 0
}

// VelocityStats reduces RGBA cells.
func VelocityStats(data []float32) (Velocity, error) {
	if len(data)%4 != 0 {
		return Velocity{}, fmt.Errorf("%w: %d floats", ErrBadGrid, len(data))
	}
	n := len(data) / 4
	speed2 := make([]float64, 0, n)
	density := make([]float64, 0, n)
	var out Velocity
	for i := 0; i < len(data); i += 4 {
		x, y, z, w := float64(data[i]), float64(data[i+1]), float64(data[i+2]), float64(data[i+3])
		s := x*x + y*y + z*z
		if math.IsNaN(s+w) || math.IsInf(s+w, 0) {
			out.NaN++
			continue
		}
		speed2 = append(speed2, s)
		density = append(density, w)
	}
	if len(speed2) > 0 {
		out.Energy = floats.Sum(speed2)
		out.MaxSpeed = math.Sqrt(floats.Max(speed2))
		out.Density = floats.Sum(density)
	}
	return out, nil
}

// ScalarStats reduces R32Float cells.
func ScalarStats(data []float32) Scalar {
	vals := make([]float64, 0, len(data))
	var out Scalar
	for _, v := range data {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			out.NaN++
			continue
		}
		vals = append(vals, math.Abs(f))
	}
	if len(vals) == 0 {
		return out
	}
	n := float64(len(vals))
	out.MeanAbs = floats.Sum(vals) / n
	out.RMS = floats.Norm(vals, 2) / math.Sqrt(n)
	out.MaxAbs = floats.Max(vals)
	return out
}

// Probe measures the simulation. It owns a scratch grid into which the
// Divergence kernel writes the divergence of the current velocity front,
// leaving the solver's divergence grid untouched.
type Probe struct {
	svc     compute.Service
	set     *grid.Set
	reg     *kernel.Registry
	scratch compute.GridID
}

// NewProbe allocates the probe's scratch grid. reg must have
// kernel.Divergence resolved.
func NewProbe(svc compute.Service, set *grid.Set, reg *kernel.Registry) (*Probe, error) {
	if !reg.Has(kernel.Divergence) {
		return nil, fmt.Errorf("%w: %s not resolved", kernel.ErrKernelNotFound, kernel.Divergence)
	}
	scratch, err := svc.CreateGrid(compute.GridDescriptor{
		Label:      "diag/divergence",
		Resolution: set.Resolution(),
		Format:     compute.FormatR32Float,
	})
	if err != nil {
		return nil, fmt.Errorf("diag: scratch grid: %w", err)
	}
	return &Probe{svc: svc, set: set, reg: reg, scratch: scratch}, nil
}

// Divergence dispatches the Divergence kernel on the velocity front and
// returns the scratch grid's cells.
func (p *Probe) Divergence() ([]float32, error) {
	k := p.reg.Lookup(kernel.Divergence)
	if err := p.svc.SetGrid(k, compute.SlotSource, p.set.Velocity.Front()); err != nil {
		return nil, err
	}
	if err := p.svc.SetGrid(k, compute.SlotDestinationDivergence, p.scratch); err != nil {
		return nil, err
	}
	r := p.set.Resolution()
	x, y, z := p.reg.GroupCount(kernel.Divergence, [3]int{r, r, r})
	if err := p.svc.Dispatch(k, x, y, z); err != nil {
		return nil, err
	}
	return p.svc.ReadGrid(p.scratch)
}

// Measure reads back the velocity and pressure fronts and the current
// divergence.
func (p *Probe) Measure() (Stats, error) {
	var s Stats
	v, err := p.svc.ReadGrid(p.set.Velocity.Front())
	if err != nil {
		return s, fmt.Errorf("diag: read velocity: %w", err)
	}
	if s.Velocity, err = VelocityStats(v); err != nil {
		return s, err
	}
	div, err := p.Divergence()
	if err != nil {
		return s, fmt.Errorf("diag: divergence: %w", err)
	}
	s.Divergence = ScalarStats(div)
	pr, err := p.svc.ReadGrid(p.set.Pressure.Front())
	if err != nil {
		return s, fmt.Errorf("diag: read pressure: %w", err)
	}
	s.Pressure = ScalarStats(pr)
	return s, nil
}

// Release destroys the scratch grid.
func (p *Probe) Release() {
	if p.scratch != compute.InvalidID {
		p.svc.DestroyGrid(p.scratch)
		p.scratch = compute.InvalidID
	}
}
