package smoke

import (
	"github.com/gogpu/smoke/compute"
	"github.com/gogpu/smoke/render"
)

// Option configures a Simulation during creation.
//
// Example:
//
//	sim, err := smoke.New(
//	    smoke.WithResolution(64),
//	    smoke.WithIterations(5, 20),
//	)
type Option func(*options)

type options struct {
	cfg    Config
	svc    compute.Service
	camera *render.Camera
}

func defaultOptions() options {
	return options{cfg: DefaultConfig()}
}

// WithConfig replaces the whole configuration. Options after it still
// apply on top.
func WithConfig(c Config) Option {
	return func(o *options) { o.cfg = c }
}

// WithResolution sets the grid edge length in cells.
func WithResolution(r int) Option {
	return func(o *options) { o.cfg.Resolution = r }
}

// WithViscosity sets the diffusion viscosity.
func WithViscosity(v float32) Option {
	return func(o *options) { o.cfg.Viscosity = v }
}

// WithTimeScale sets the factor applied to the frame delta.
func WithTimeScale(s float32) Option {
	return func(o *options) { o.cfg.TimeScale = s }
}

// WithDecay sets the velocity and density decay rates.
func WithDecay(velocity, density float32) Option {
	return func(o *options) {
		o.cfg.DecayVelocity = velocity
		o.cfg.DecayDensity = density
	}
}

// WithIterations sets the diffuse and Jacobi iteration counts.
func WithIterations(diffuse, jacobi int) Option {
	return func(o *options) {
		o.cfg.DiffuseIterations = diffuse
		o.cfg.JacobiIterations = jacobi
	}
}

// WithVelocityScale sets the upward velocity added by injection.
func WithVelocityScale(v float32) Option {
	return func(o *options) { o.cfg.VelocityScale = v }
}

// WithInjection sets the smoke source: centre in normalized grid
// coordinates, radius as a fraction of the grid edge, and density rate.
func WithInjection(pos [3]float32, radius, density float32) Option {
	return func(o *options) {
		o.cfg.InjectPosition = pos
		o.cfg.InjectRadius = radius
		o.cfg.InjectDensity = density
	}
}

// WithRendering sets the raymarch density scale, shadow amount and step
// count.
func WithRendering(density, shadow float32, steps int) Option {
	return func(o *options) {
		o.cfg.Density = density
		o.cfg.ShadowAmount = shadow
		o.cfg.RaymarchSteps = steps
	}
}

// WithDebugView selects the field the renderer shows.
func WithDebugView(v render.DebugView) Option {
	return func(o *options) { o.cfg.DebugView = v }
}

// WithImageSize sets the size of the raymarch output image.
func WithImageSize(width, height int) Option {
	return func(o *options) {
		o.cfg.ImageWidth = width
		o.cfg.ImageHeight = height
	}
}

// WithBackend selects a registered compute backend by name.
func WithBackend(name string) Option {
	return func(o *options) { o.cfg.Backend = name }
}

// WithService runs the simulation on an existing compute service, for
// example one built on a host's shared GPU device. The caller keeps
// ownership: Close does not close it.
func WithService(svc compute.Service) Option {
	return func(o *options) { o.svc = svc }
}

// WithCamera sets the initial camera.
func WithCamera(c render.Camera) Option {
	return func(o *options) { o.camera = &c }
}
