package smoke

import (
	"errors"
	"fmt"

	"github.com/gogpu/smoke/grid"
	"github.com/gogpu/smoke/render"
)

// ErrInvalidConfig is returned for configuration values that cannot be
// clamped into range.
var ErrInvalidConfig = errors.New("smoke: invalid config")

// MinResolution is the smallest grid with an interior.
const MinResolution = 4

// Config holds every tunable of a simulation. Resolution is fixed once the
// simulation is created; everything else may change between frames.
type Config struct {
	// Resolution is the grid edge length in cells.
	Resolution int

	Viscosity     float32 // [0, 1]
	TimeScale     float32 // [0, 10], scales the frame delta into DT
	DecayVelocity float32 // [0, 1] per second of simulated time
	DecayDensity  float32 // [0, 1] per second of simulated time

	DiffuseIterations int     // [0, 30]
	JacobiIterations  int     // [0, 50]
	VelocityScale     float32 // [0, 50], upward velocity added by injection

	InjectPosition [3]float32 // normalized grid coordinates, each in [0, 1]
	InjectRadius   float32    // fraction of the grid edge, [0, 1]
	InjectDensity  float32    // density added per second of simulated time

	// Rendering.
	Density       float32
	ShadowAmount  float32
	RaymarchSteps int
	DebugView     render.DebugView
	ImageWidth    int
	ImageHeight   int

	// Backend names a registered compute backend. Empty selects the
	// highest-priority backend that opens.
	Backend string
}

// DefaultConfig returns the stock tuning: a 128³ grid with light viscosity
// and decay.
func DefaultConfig() Config {
	return Config{
		Resolution:        128,
		Viscosity:         0.1,
		TimeScale:         0.1,
		DecayVelocity:     0.1,
		DecayDensity:      0.1,
		DiffuseIterations: 10,
		JacobiIterations:  10,
		VelocityScale:     10,
		InjectPosition:    [3]float32{0.5, 0.1, 0.5},
		InjectRadius:      0.08,
		InjectDensity:     1,
		Density:           10,
		ShadowAmount:      1,
		RaymarchSteps:     64,
		DebugView:         render.ViewDensity,
		ImageWidth:        512,
		ImageHeight:       512,
	}
}

// Validate reports values that Clamp cannot repair.
func (c Config) Validate() error {
	switch {
	case c.Resolution < MinResolution:
		return fmt.Errorf("%w: resolution %d, need at least %d", ErrInvalidConfig, c.Resolution, MinResolution)
	case c.ImageWidth <= 0 || c.ImageHeight <= 0:
		return fmt.Errorf("%w: image size %dx%d", ErrInvalidConfig, c.ImageWidth, c.ImageHeight)
	case c.RaymarchSteps < 0:
		return fmt.Errorf("%w: raymarch steps %d", ErrInvalidConfig, c.RaymarchSteps)
	}
	return nil
}

// Clamp returns c with every ranged value forced into range. Each clamped
// field is logged at Warn.
func (c Config) Clamp() Config {
	c.Viscosity = clampf("Viscosity", c.Viscosity, 0, 1)
	c.TimeScale = clampf("TimeScale", c.TimeScale, 0, 10)
	c.DecayVelocity = clampf("DecayVelocity", c.DecayVelocity, 0, 1)
	c.DecayDensity = clampf("DecayDensity", c.DecayDensity, 0, 1)
	c.DiffuseIterations = clampi("DiffuseIterations", c.DiffuseIterations, 0, 30)
	c.JacobiIterations = clampi("JacobiIterations", c.JacobiIterations, 0, 50)
	c.VelocityScale = clampf("VelocityScale", c.VelocityScale, 0, 50)
	for i, name := range []string{"InjectPosition.X", "InjectPosition.Y", "InjectPosition.Z"} {
		c.InjectPosition[i] = clampf(name, c.InjectPosition[i], 0, 1)
	}
	c.InjectRadius = clampf("InjectRadius", c.InjectRadius, 0, 1)
	c.InjectDensity = clampf("InjectDensity", c.InjectDensity, 0, 1e6)
	c.Density = clampf("Density", c.Density, 0, 1e6)
	c.ShadowAmount = clampf("ShadowAmount", c.ShadowAmount, 0, 1e6)
	c.DebugView = render.DebugView(clampi("DebugView", int(c.DebugView), int(render.ViewDensity), int(render.ViewDivergence)))
	return c
}

func clampf(name string, v, lo, hi float32) float32 {
	if v >= lo && v <= hi {
		return v
	}
	out := lo
	if v > hi {
		out = hi
	}
	Logger().Warn("smoke: config value clamped", "field", name, "value", v, "clamped", out)
	return out
}

func clampi(name string, v, lo, hi int) int {
	out := min(max(v, lo), hi)
	if out != v {
		Logger().Warn("smoke: config value clamped", "field", name, "value", v, "clamped", out)
	}
	return out
}

// Params builds the uniforms of one frame. delta is the host frame delta
// in seconds and elapsed the host time since start.
func (c Config) Params(delta, elapsed float32) grid.Params {
	return grid.Params{
		DT:             delta * c.TimeScale,
		Resolution:     c.Resolution,
		Viscosity:      c.Viscosity,
		DecayVelocity:  c.DecayVelocity,
		DecayDensity:   c.DecayDensity,
		ElapsedTime:    elapsed,
		VelocityScale:  c.VelocityScale,
		InjectPosition: c.InjectPosition,
		InjectRadius:   c.InjectRadius,
		InjectDensity:  c.InjectDensity,
	}
}

func (c Config) renderSettings() render.Settings {
	return render.Settings{
		Density:       c.Density,
		ShadowAmount:  c.ShadowAmount,
		RaymarchSteps: c.RaymarchSteps,
		DebugView:     c.DebugView,
	}
}
