// Package solver advances the smoke simulation by one frame: a fixed graph
// of compute dispatches over the grids of a grid.Set.
//
// Per frame, in order:
//
//	uniforms -> advect -> [inject] -> diffuse×N -> divergence ->
//	clear pressure -> pressure×K -> project -> boundary
//
// Every pass except the boundary pass reads a front buffer and writes the
// matching back buffer, then the pair is swapped. The boundary pass touches
// only the outer shell of the velocity front and runs in place.
package solver

import (
	"errors"
	"fmt"

	"github.com/gogpu/smoke/compute"
	"github.com/gogpu/smoke/grid"
	"github.com/gogpu/smoke/internal/logging"
	"github.com/gogpu/smoke/kernel"
)

// Errors returned by the solver.
var (
	// ErrAlreadyInitialized is returned by a second call to Init.
	ErrAlreadyInitialized = errors.New("solver: already initialized")

	// ErrNotInitialized is returned by Step before Init.
	ErrNotInitialized = errors.New("solver: not initialized")

	// ErrInvalidConfig is returned for negative iteration counts.
	ErrInvalidConfig = errors.New("solver: invalid config")
)

// Stage names reported in StageError.
const (
	StageInit       = "init"
	StageAdvect     = "advect"
	StageInject     = "inject"
	StageDiffuse    = "diffuse"
	StageDivergence = "divergence"
	StageClear      = "clear"
	StagePressure   = "pressure"
	StageProject    = "project"
	StageBoundary   = "boundary"
)

// StageError reports the stage and kernel of a failed dispatch.
type StageError struct {
	Stage  string
	Kernel string
	Err    error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("solver: stage %s (kernel %s): %v", e.Stage, e.Kernel, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Config holds the iteration counts of the two relaxation stages.
type Config struct {
	// DiffuseIterations is the number of Diffuse passes per frame. Zero
	// disables diffusion.
	DiffuseIterations int

	// JacobiIterations is the number of Pressure passes per frame. Zero
	// leaves the pressure cleared and projection removes nothing.
	JacobiIterations int
}

// Validate reports negative iteration counts.
func (c Config) Validate() error {
	if c.DiffuseIterations < 0 || c.JacobiIterations < 0 {
		return fmt.Errorf("%w: diffuse=%d jacobi=%d", ErrInvalidConfig, c.DiffuseIterations, c.JacobiIterations)
	}
	return nil
}

// Solver runs the per-frame stage graph.
type Solver struct {
	svc compute.Service
	set *grid.Set
	reg *kernel.Registry
	cfg Config

	groups      [3]int
	initialized bool
	frame       uint64
	counts      [kernel.Count]uint64
}

// New creates a solver over set. reg must have every kernel of
// kernel.Simulation resolved on svc.
func New(svc compute.Service, set *grid.Set, reg *kernel.Registry, cfg Config) (*Solver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	for _, n := range kernel.Simulation {
		if !reg.Has(n) {
			return nil, fmt.Errorf("%w: %s not resolved", kernel.ErrKernelNotFound, n)
		}
	}
	r := set.Resolution()
	x, y, z := reg.GroupCount(kernel.Advect, [3]int{r, r, r})
	return &Solver{svc: svc, set: set, reg: reg, cfg: cfg, groups: [3]int{x, y, z}}, nil
}

// SetConfig replaces the iteration counts from the next Step on.
func (s *Solver) SetConfig(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.cfg = cfg
	return nil
}

// Config returns the current iteration counts.
func (s *Solver) Config() Config { return s.cfg }

// Frame returns the number of completed Steps.
func (s *Solver) Frame() uint64 { return s.frame }

// Dispatches returns how many times kernel n has been dispatched.
func (s *Solver) Dispatches(n kernel.Name) uint64 { return s.counts[n] }

// Init clears the velocity field. It runs once, before the first Step.
func (s *Solver) Init() error {
	if s.initialized {
		return ErrAlreadyInitialized
	}
	if err := s.run(StageInit, kernel.Init, binding{compute.SlotDestination, s.set.Velocity.Back()}); err != nil {
		return err
	}
	s.set.SwapVelocity()
	s.initialized = true
	return nil
}

// Step advances the simulation by one frame with p as the frame's
// uniforms. inject adds the smoke source for this frame.
func (s *Solver) Step(p grid.Params, inject bool) error {
	if !s.initialized {
		return ErrNotInitialized
	}
	v, pr := &s.set.Velocity, &s.set.Pressure

	s.set.BroadcastUniforms(p)

	if err := s.velocityPass(StageAdvect, kernel.Advect); err != nil {
		return err
	}
	if inject {
		if err := s.velocityPass(StageInject, kernel.Inject); err != nil {
			return err
		}
	}
	for range s.cfg.DiffuseIterations {
		if err := s.velocityPass(StageDiffuse, kernel.Diffuse); err != nil {
			return err
		}
	}

	if err := s.run(StageDivergence, kernel.Divergence,
		binding{compute.SlotSource, v.Front()},
		binding{compute.SlotDestinationDivergence, s.set.Divergence},
	); err != nil {
		return err
	}

	if err := s.run(StageClear, kernel.Clear, binding{compute.SlotDestinationPressure, pr.Front()}); err != nil {
		return err
	}
	for range s.cfg.JacobiIterations {
		if err := s.run(StagePressure, kernel.Pressure,
			binding{compute.SlotSourceDivergence, s.set.Divergence},
			binding{compute.SlotSourcePressure, pr.Front()},
			binding{compute.SlotDestinationPressure, pr.Back()},
		); err != nil {
			return err
		}
		s.set.SwapPressure()
	}

	if err := s.run(StageProject, kernel.ProjectField,
		binding{compute.SlotSourcePressure, pr.Front()},
		binding{compute.SlotSource, v.Front()},
		binding{compute.SlotDestination, v.Back()},
	); err != nil {
		return err
	}
	s.set.SwapVelocity()

	if err := s.run(StageBoundary, kernel.BoundaryCondition, binding{compute.SlotDestination, v.Front()}); err != nil {
		return err
	}

	s.frame++
	logging.Logger().Debug("solver: step",
		"frame", s.frame,
		"inject", inject,
		"diffuse", s.cfg.DiffuseIterations,
		"jacobi", s.cfg.JacobiIterations)
	return nil
}

// velocityPass runs kernel n from the velocity front into the back and
// swaps.
func (s *Solver) velocityPass(stage string, n kernel.Name) error {
	v := &s.set.Velocity
	if err := s.run(stage, n,
		binding{compute.SlotSource, v.Front()},
		binding{compute.SlotDestination, v.Back()},
	); err != nil {
		return err
	}
	s.set.SwapVelocity()
	return nil
}

type binding struct {
	slot string
	grid compute.GridID
}

// run binds grids to kernel n and dispatches it over the whole grid.
func (s *Solver) run(stage string, n kernel.Name, binds ...binding) error {
	k := s.reg.Lookup(n)
	for _, b := range binds {
		if err := s.svc.SetGrid(k, b.slot, b.grid); err != nil {
			return &StageError{Stage: stage, Kernel: n.String(), Err: err}
		}
	}
	if err := s.svc.Dispatch(k, s.groups[0], s.groups[1], s.groups[2]); err != nil {
		return &StageError{Stage: stage, Kernel: n.String(), Err: err}
	}
	s.counts[n]++
	return nil
}
