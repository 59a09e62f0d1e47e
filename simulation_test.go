package smoke

import (
	"errors"
	"testing"

	"github.com/gogpu/smoke/compute"
	"github.com/gogpu/smoke/compute/cpu"
	"github.com/gogpu/smoke/render"
	"github.com/gogpu/smoke/solver"
)

func newSim(t *testing.T, opts ...Option) *Simulation {
	t.Helper()
	opts = append([]Option{
		WithBackend(compute.BackendCPU),
		WithResolution(12),
		WithIterations(2, 8),
		WithImageSize(16, 16),
		WithTimeScale(1),
		WithInjection([3]float32{0.5, 0.3, 0.5}, 0.2, 5),
	}, opts...)
	s, err := New(opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// =============================================================================
// Lifecycle
// =============================================================================

func TestSimulationLifecycle(t *testing.T) {
	s := newSim(t)
	if err := s.Frame(1.0/60, false); !errors.Is(err, ErrNotStarted) {
		t.Errorf("Frame() before Start = %v, want ErrNotStarted", err)
	}
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}
	if err := s.Start(); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second Start() = %v, want ErrAlreadyStarted", err)
	}
	for i := range 5 {
		if err := s.Frame(1.0/60, i < 3); err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
	}
	if s.Frames() != 5 {
		t.Errorf("Frames() = %d, want 5", s.Frames())
	}
	if e := s.Elapsed(); e < 5.0/60-1e-6 || e > 5.0/60+1e-6 {
		t.Errorf("Elapsed() = %v, want 5/60", e)
	}

	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close() = %v", err)
	}
	if err := s.Frame(1.0/60, false); !errors.Is(err, ErrClosed) {
		t.Errorf("Frame() after Close = %v, want ErrClosed", err)
	}
}

func TestSimulationInvalidConfig(t *testing.T) {
	if _, err := New(WithBackend(compute.BackendCPU), WithResolution(2)); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("New(resolution 2) = %v, want ErrInvalidConfig", err)
	}
	if _, err := New(WithBackend("nope")); !errors.Is(err, compute.ErrBackendNotAvailable) {
		t.Errorf("New(unknown backend) = %v, want ErrBackendNotAvailable", err)
	}
}

func TestSimulationClampsConfig(t *testing.T) {
	s := newSim(t, WithIterations(99, 99))
	if c := s.Config(); c.DiffuseIterations != 30 || c.JacobiIterations != 50 {
		t.Errorf("Config() iterations = %d/%d, want 30/50", c.DiffuseIterations, c.JacobiIterations)
	}
}

func TestSimulationFailureIsFatal(t *testing.T) {
	s := newSim(t)
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}
	s.Service().DestroyGrid(s.Grids().Divergence)

	err := s.Frame(1.0/60, false)
	if !errors.Is(err, ErrSimulationFailed) {
		t.Fatalf("Frame() = %v, want ErrSimulationFailed", err)
	}
	var se *solver.StageError
	if !errors.As(err, &se) || se.Stage != solver.StageDivergence {
		t.Errorf("Frame() error %v does not name the divergence stage", err)
	}
	if err2 := s.Frame(1.0/60, false); !errors.Is(err2, ErrSimulationFailed) {
		t.Errorf("Frame() after failure = %v, want ErrSimulationFailed", err2)
	}
	if err := s.Render(render.NewPixmapTarget(4, 4)); !errors.Is(err, ErrSimulationFailed) {
		t.Errorf("Render() after failure = %v, want ErrSimulationFailed", err)
	}
}

func TestSimulationExternalService(t *testing.T) {
	b := cpu.New()
	defer b.Close()
	s, err := New(WithService(b), WithResolution(8), WithImageSize(8, 8))
	if err != nil {
		t.Fatal(err)
	}
	if s.Service() != b {
		t.Error("Service() is not the supplied service")
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := b.CreateGrid(compute.GridDescriptor{Resolution: 4, Format: compute.FormatR32Float}); err != nil {
		t.Errorf("supplied service closed by Simulation.Close: %v", err)
	}
	if b.MemoryUsed() != 4*4*4*4 {
		t.Errorf("MemoryUsed() = %d after Close, want only the new grid", b.MemoryUsed())
	}
}

// =============================================================================
// Update / Render / Stats
// =============================================================================

func TestSimulationUpdate(t *testing.T) {
	s := newSim(t)
	if err := s.Update(WithResolution(64)); !errors.Is(err, ErrFixedSetting) {
		t.Errorf("Update(resolution) = %v, want ErrFixedSetting", err)
	}
	if err := s.Update(WithBackend("other")); !errors.Is(err, ErrFixedSetting) {
		t.Errorf("Update(backend) = %v, want ErrFixedSetting", err)
	}
	if err := s.Update(WithIterations(4, 12), WithImageSize(20, 10), WithDebugView(render.ViewPressure)); err != nil {
		t.Fatal(err)
	}
	c := s.Config()
	if c.DiffuseIterations != 4 || c.JacobiIterations != 12 || c.DebugView != render.ViewPressure {
		t.Errorf("Config() after Update = %+v", c)
	}
	if w, h := s.renderer.Size(); w != 20 || h != 10 {
		t.Errorf("output image = %dx%d, want 20x10", w, h)
	}
	if s.renderer.Settings().DebugView != render.ViewPressure {
		t.Error("renderer settings not updated")
	}
}

func TestSimulationRenderAndStats(t *testing.T) {
	s := newSim(t, WithRendering(50, 0.5, 32))
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}
	cam := render.DefaultCamera()
	cam.Position = cam.Position.Mul(2)
	s.SetCamera(cam)
	if s.Camera() != cam {
		t.Error("Camera() does not return the set camera")
	}

	for i := range 10 {
		if err := s.Frame(1.0/30, true); err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
	}

	stats, err := s.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if !stats.Finite() || stats.Velocity.Density <= 0 || stats.Velocity.Energy <= 0 {
		t.Errorf("Stats() = %+v, want finite with density and energy", stats)
	}

	target := render.NewPixmapTarget(16, 16)
	if err := s.Render(target); err != nil {
		t.Fatal(err)
	}
	var opaque int
	for i := 3; i < len(target.Image().Pix); i += 4 {
		if target.Image().Pix[i] > 0 {
			opaque++
		}
	}
	if opaque == 0 {
		t.Error("rendered image is fully transparent after injecting smoke")
	}
}
