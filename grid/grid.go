// Package grid owns the simulation's GPU-resident fields: the double
// buffered velocity and pressure grids and the single divergence grid.
//
// Nothing here reads cell data. A Set only allocates, labels, swaps and
// releases service handles, and pushes the per-frame uniforms every kernel
// reads.
package grid

import (
	"errors"
	"fmt"

	"github.com/gogpu/smoke/compute"
	"github.com/gogpu/smoke/internal/logging"
)

// ErrInvalidResolution is returned by Allocate for a non-positive resolution.
var ErrInvalidResolution = errors.New("grid: resolution must be positive")

// DoubleBuffer is a pair of identically shaped grids. Front is the readable
// state, Back the one being written. Swap exchanges the two labels without
// touching data.
type DoubleBuffer struct {
	ids   [2]compute.GridID
	front int
}

// Front returns the grid holding the current state.
func (d *DoubleBuffer) Front() compute.GridID { return d.ids[d.front] }

// Back returns the grid the next pass writes.
func (d *DoubleBuffer) Back() compute.GridID { return d.ids[1-d.front] }

// Swap makes the back buffer the front.
func (d *DoubleBuffer) Swap() { d.front = 1 - d.front }

// Set is every grid of one simulation.
type Set struct {
	svc        compute.Service
	resolution int

	Velocity   DoubleBuffer   // RGBA32Float: velocity xyz, density w
	Pressure   DoubleBuffer   // R32Float
	Divergence compute.GridID // R32Float

	released bool
}

// Allocate creates the five grids of a simulation at resolution³ cells.
// Grids created before a failure are destroyed.
func Allocate(svc compute.Service, resolution int) (*Set, error) {
	if resolution <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidResolution, resolution)
	}

	var created []compute.GridID
	create := func(label string, f compute.Format) (compute.GridID, error) {
		id, err := svc.CreateGrid(compute.GridDescriptor{Label: label, Resolution: resolution, Format: f})
		if err != nil {
			for _, g := range created {
				svc.DestroyGrid(g)
			}
			return compute.InvalidID, fmt.Errorf("grid: allocate %s (%d³ %s): %w", label, resolution, f, err)
		}
		created = append(created, id)
		return id, nil
	}

	s := &Set{svc: svc, resolution: resolution}
	var err error
	specs := []struct {
		dst    *compute.GridID
		label  string
		format compute.Format
	}{
		{&s.Velocity.ids[0], "velocity/a", compute.FormatRGBA32Float},
		{&s.Velocity.ids[1], "velocity/b", compute.FormatRGBA32Float},
		{&s.Pressure.ids[0], "pressure/a", compute.FormatR32Float},
		{&s.Pressure.ids[1], "pressure/b", compute.FormatR32Float},
		{&s.Divergence, "divergence", compute.FormatR32Float},
	}
	for _, sp := range specs {
		if *sp.dst, err = create(sp.label, sp.format); err != nil {
			return nil, err
		}
	}

	logging.Logger().Info("grid: allocated",
		"resolution", resolution,
		"backend", svc.Name(),
		"bytes", 2*rgbaBytes(resolution)+3*scalarBytes(resolution))
	return s, nil
}

func rgbaBytes(r int) uint64 {
	return compute.GridDescriptor{Resolution: r, Format: compute.FormatRGBA32Float}.SizeInBytes()
}

func scalarBytes(r int) uint64 {
	return compute.GridDescriptor{Resolution: r, Format: compute.FormatR32Float}.SizeInBytes()
}

// Resolution returns the edge length of every grid in cells.
func (s *Set) Resolution() int { return s.resolution }

// SwapVelocity swaps the velocity pair.
func (s *Set) SwapVelocity() { s.Velocity.Swap() }

// SwapPressure swaps the pressure pair.
func (s *Set) SwapPressure() { s.Pressure.Swap() }

// Params are the uniforms of one frame.
type Params struct {
	DT            float32 // frame delta scaled by the time scale
	Resolution    int
	Viscosity     float32
	DecayVelocity float32
	DecayDensity  float32
	ElapsedTime   float32
	VelocityScale float32

	InjectPosition [3]float32 // normalized grid coordinates
	InjectRadius   float32    // fraction of the grid edge
	InjectDensity  float32
}

// BroadcastUniforms pushes the frame's uniforms to the service, where every
// subsequent dispatch sees them.
func (s *Set) BroadcastUniforms(p Params) {
	s.svc.SetFloat(compute.UniformDT, p.DT)
	s.svc.SetInt(compute.UniformResolution, int32(s.resolution)) //nolint:gosec // resolution bounded by config
	s.svc.SetFloat(compute.UniformViscosity, p.Viscosity)
	s.svc.SetVector(compute.UniformDecay, [4]float32{p.DecayVelocity, p.DecayDensity, 0, 0})
	s.svc.SetFloat(compute.UniformTime, p.ElapsedTime)
	s.svc.SetFloat(compute.UniformVelocity, p.VelocityScale)
	s.svc.SetVector(compute.UniformInjectPosition,
		[4]float32{p.InjectPosition[0], p.InjectPosition[1], p.InjectPosition[2], 0})
	s.svc.SetFloat(compute.UniformInjectRadius, p.InjectRadius*float32(s.resolution))
	s.svc.SetFloat(compute.UniformInjectDensity, p.InjectDensity)
}

// Release destroys every grid. Calling Release again is a no-op.
func (s *Set) Release() {
	if s.released {
		return
	}
	s.released = true
	for _, g := range []compute.GridID{
		s.Velocity.ids[0], s.Velocity.ids[1],
		s.Pressure.ids[0], s.Pressure.ids[1],
		s.Divergence,
	} {
		s.svc.DestroyGrid(g)
	}
	logging.Logger().Debug("grid: released", "resolution", s.resolution)
}
