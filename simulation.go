package smoke

import (
	"errors"
	"fmt"
	"image/draw"

	"github.com/gogpu/smoke/compute"
	_ "github.com/gogpu/smoke/compute/cpu" // registers the cpu backend
	"github.com/gogpu/smoke/diag"
	"github.com/gogpu/smoke/grid"
	"github.com/gogpu/smoke/kernel"
	"github.com/gogpu/smoke/render"
	"github.com/gogpu/smoke/solver"
)

// Lifecycle errors.
var (
	ErrNotStarted       = errors.New("smoke: simulation not started")
	ErrAlreadyStarted   = errors.New("smoke: simulation already started")
	ErrClosed           = errors.New("smoke: simulation closed")
	ErrFixedSetting     = errors.New("smoke: resolution and backend are fixed after creation")
	ErrSimulationFailed = errors.New("smoke: simulation failed")
)

// Simulation owns the grids, kernels, solver and renderer of one smoke
// volume. It is not safe for concurrent use; drive it from the goroutine
// that issues frames.
type Simulation struct {
	cfg     Config
	svc     compute.Service
	ownsSvc bool

	set      *grid.Set
	reg      *kernel.Registry
	solver   *solver.Solver
	renderer *render.Renderer
	probe    *diag.Probe
	camera   render.Camera

	elapsed float32
	started bool
	closed  bool
	err     error
}

// New creates a simulation. It opens the compute backend, allocates the
// grids and resolves every kernel; it does not dispatch anything until
// Start.
func New(opts ...Option) (*Simulation, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.cfg.Validate(); err != nil {
		return nil, err
	}
	cfg := o.cfg.Clamp()

	s := &Simulation{cfg: cfg, svc: o.svc, camera: render.DefaultCamera()}
	if o.camera != nil {
		s.camera = *o.camera
	}
	if s.svc == nil {
		svc, err := compute.Open(cfg.Backend)
		if err != nil {
			return nil, fmt.Errorf("smoke: open backend: %w", err)
		}
		s.svc, s.ownsSvc = svc, true
	}

	if err := s.build(); err != nil {
		s.release()
		return nil, err
	}
	Logger().Info("smoke: simulation created",
		"backend", s.svc.Name(),
		"resolution", cfg.Resolution,
		"image", fmt.Sprintf("%dx%d", cfg.ImageWidth, cfg.ImageHeight))
	return s, nil
}

func (s *Simulation) build() error {
	var err error
	if s.set, err = grid.Allocate(s.svc, s.cfg.Resolution); err != nil {
		return err
	}
	if s.reg, err = kernel.Resolve(s.svc, kernel.All...); err != nil {
		return err
	}
	s.solver, err = solver.New(s.svc, s.set, s.reg, solver.Config{
		DiffuseIterations: s.cfg.DiffuseIterations,
		JacobiIterations:  s.cfg.JacobiIterations,
	})
	if err != nil {
		return err
	}
	if s.renderer, err = render.New(s.svc, s.set, s.reg); err != nil {
		return err
	}
	s.renderer.SetSettings(s.cfg.renderSettings())
	_, err = s.renderer.EnsureOutputImage(s.cfg.ImageWidth, s.cfg.ImageHeight)
	return err
}

// Start clears the velocity field. It must be called once before Frame.
func (s *Simulation) Start() error {
	if err := s.usable(); err != nil {
		return err
	}
	if s.started {
		return ErrAlreadyStarted
	}
	if err := s.solver.Init(); err != nil {
		return s.fail(err)
	}
	s.started = true
	return nil
}

// Frame advances the simulation by delta seconds of host time. inject adds
// the smoke source this frame. Any failure is fatal: the simulation refuses
// further frames and returns an error wrapping ErrSimulationFailed.
func (s *Simulation) Frame(delta float32, inject bool) error {
	if err := s.usable(); err != nil {
		return err
	}
	if !s.started {
		return ErrNotStarted
	}
	if err := s.solver.Step(s.cfg.Params(delta, s.elapsed), inject); err != nil {
		return s.fail(err)
	}
	s.elapsed += delta
	return nil
}

// Render raymarches the current state into target.
func (s *Simulation) Render(target draw.Image) error {
	if err := s.usable(); err != nil {
		return err
	}
	if err := s.renderer.Render(s.camera, target); err != nil {
		return s.fail(err)
	}
	return nil
}

// Stats reads the grids back and summarizes them. It is slow on a GPU
// backend.
func (s *Simulation) Stats() (diag.Stats, error) {
	if err := s.usable(); err != nil {
		return diag.Stats{}, err
	}
	if s.probe == nil {
		p, err := diag.NewProbe(s.svc, s.set, s.reg)
		if err != nil {
			return diag.Stats{}, err
		}
		s.probe = p
	}
	return s.probe.Measure()
}

// Update applies options to the running simulation. Resolution and
// backend cannot change.
func (s *Simulation) Update(opts ...Option) error {
	if err := s.usable(); err != nil {
		return err
	}
	o := options{cfg: s.cfg}
	for _, opt := range opts {
		opt(&o)
	}
	if o.cfg.Resolution != s.cfg.Resolution || o.cfg.Backend != s.cfg.Backend || o.svc != nil {
		return ErrFixedSetting
	}
	if err := o.cfg.Validate(); err != nil {
		return err
	}
	cfg := o.cfg.Clamp()
	if err := s.solver.SetConfig(solver.Config{
		DiffuseIterations: cfg.DiffuseIterations,
		JacobiIterations:  cfg.JacobiIterations,
	}); err != nil {
		return err
	}
	if _, err := s.renderer.EnsureOutputImage(cfg.ImageWidth, cfg.ImageHeight); err != nil {
		return err
	}
	s.renderer.SetSettings(cfg.renderSettings())
	if o.camera != nil {
		s.camera = *o.camera
	}
	s.cfg = cfg
	return nil
}

// Config returns the current configuration after clamping.
func (s *Simulation) Config() Config { return s.cfg }

// Camera returns the render camera.
func (s *Simulation) Camera() render.Camera { return s.camera }

// SetCamera replaces the render camera.
func (s *Simulation) SetCamera(c render.Camera) { s.camera = c }

// Frames returns the number of completed frames.
func (s *Simulation) Frames() uint64 {
	if s.solver == nil {
		return 0
	}
	return s.solver.Frame()
}

// Elapsed returns the host time advanced by Frame, in seconds.
func (s *Simulation) Elapsed() float32 { return s.elapsed }

// Service returns the compute service the simulation runs on.
func (s *Simulation) Service() compute.Service { return s.svc }

// Grids returns the simulation grids, for read-back by tools.
func (s *Simulation) Grids() *grid.Set { return s.set }

// Close releases every resource. A service passed with WithService stays
// open. Calling Close again is a no-op.
func (s *Simulation) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.release()
}

func (s *Simulation) release() error {
	if s.probe != nil {
		s.probe.Release()
	}
	if s.renderer != nil {
		s.renderer.Release()
	}
	if s.set != nil {
		s.set.Release()
	}
	if s.ownsSvc && s.svc != nil {
		return s.svc.Close()
	}
	return nil
}

func (s *Simulation) usable() error {
	switch {
	case s.closed:
		return ErrClosed
	case s.err != nil:
		return s.err
	}
	return nil
}

func (s *Simulation) fail(err error) error {
	s.err = fmt.Errorf("%w: %w", ErrSimulationFailed, err)
	Logger().Error("smoke: fatal", "frame", s.Frames(), "err", err)
	return s.err
}
