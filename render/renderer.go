package render

import (
	"errors"
	"fmt"
	"image"

	"golang.org/x/image/draw"

	"github.com/gogpu/smoke/compute"
	"github.com/gogpu/smoke/grid"
	"github.com/gogpu/smoke/internal/logging"
	"github.com/gogpu/smoke/kernel"
)

// ErrInvalidSize is returned for a non-positive output image size.
var ErrInvalidSize = errors.New("render: invalid output size")

// DebugView selects the field the raymarcher shows.
type DebugView int32

// Debug views.
const (
	ViewDensity DebugView = iota
	ViewPressure
	ViewDivergence
)

func (v DebugView) String() string {
	switch v {
	case ViewDensity:
		return "density"
	case ViewPressure:
		return "pressure"
	case ViewDivergence:
		return "divergence"
	}
	return fmt.Sprintf("DebugView(%d)", int32(v))
}

// Settings are the raymarch uniforms.
type Settings struct {
	Density       float32
	ShadowAmount  float32
	RaymarchSteps int
	DebugView     DebugView
}

// DefaultSettings returns the settings used when none are set.
func DefaultSettings() Settings {
	return Settings{Density: 10, ShadowAmount: 1, RaymarchSteps: 64, DebugView: ViewDensity}
}

// Renderer raymarches a grid.Set into an output image.
type Renderer struct {
	svc      compute.Service
	set      *grid.Set
	reg      *kernel.Registry
	settings Settings

	output        compute.ImageID
	width, height int
}

// New creates a renderer over set. reg must have kernel.Raymarch resolved.
func New(svc compute.Service, set *grid.Set, reg *kernel.Registry) (*Renderer, error) {
	if !reg.Has(kernel.Raymarch) {
		return nil, fmt.Errorf("%w: %s not resolved", kernel.ErrKernelNotFound, kernel.Raymarch)
	}
	return &Renderer{svc: svc, set: set, reg: reg, settings: DefaultSettings()}, nil
}

// SetSettings replaces the raymarch uniforms from the next Render on.
func (r *Renderer) SetSettings(s Settings) { r.settings = s }

// Settings returns the current raymarch uniforms.
func (r *Renderer) Settings() Settings { return r.settings }

// Output returns the output image handle, or compute.InvalidID before the
// first EnsureOutputImage.
func (r *Renderer) Output() compute.ImageID { return r.output }

// Size returns the output image size.
func (r *Renderer) Size() (width, height int) { return r.width, r.height }

// EnsureOutputImage makes the output image width×height. It reallocates
// only when the size changes and reports whether it did.
func (r *Renderer) EnsureOutputImage(width, height int) (bool, error) {
	if width <= 0 || height <= 0 {
		return false, fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}
	if r.output != compute.InvalidID && r.width == width && r.height == height {
		return false, nil
	}
	id, err := r.svc.CreateImage(compute.ImageDescriptor{Label: "raymarch", Width: width, Height: height})
	if err != nil {
		return false, fmt.Errorf("render: output image %dx%d: %w", width, height, err)
	}
	if r.output != compute.InvalidID {
		r.svc.DestroyImage(r.output)
	}
	r.output, r.width, r.height = id, width, height
	logging.Logger().Info("render: output image allocated", "width", width, "height", height)
	return true, nil
}

// Render raymarches the current grids as seen by cam and draws the result
// into target. Without a prior EnsureOutputImage the output image takes the
// target's size; otherwise a differently sized result is scaled to fit.
func (r *Renderer) Render(cam Camera, target draw.Image) error {
	bounds := target.Bounds()
	if r.output == compute.InvalidID {
		if _, err := r.EnsureOutputImage(bounds.Dx(), bounds.Dy()); err != nil {
			return err
		}
	}

	if err := r.dispatch(cam); err != nil {
		return err
	}
	img, err := r.svc.ReadImage(r.output)
	if err != nil {
		return fmt.Errorf("render: read output: %w", err)
	}

	if img.Bounds().Size() == bounds.Size() {
		draw.Draw(target, bounds, img, image.Point{}, draw.Src)
	} else {
		draw.BiLinear.Scale(target, bounds, img, img.Bounds(), draw.Src, nil)
	}
	return nil
}

func (r *Renderer) dispatch(cam Camera) error {
	k := r.reg.Lookup(kernel.Raymarch)
	s := r.settings
	aspect := float32(r.width) / float32(r.height)

	r.svc.SetMatrix(compute.UniformCameraToWorld, cam.ToWorld())
	r.svc.SetMatrix(compute.UniformCameraInverseProjection, cam.InverseProjection(aspect))
	r.svc.SetFloat(compute.UniformDensity, s.Density)
	r.svc.SetFloat(compute.UniformShadowAmount, s.ShadowAmount)
	r.svc.SetInt(compute.UniformDebugView, int32(s.DebugView))
	r.svc.SetInt(compute.UniformRaymarchSteps, int32(s.RaymarchSteps)) //nolint:gosec // small step count

	for _, b := range []struct {
		slot string
		grid compute.GridID
	}{
		{compute.SlotDensityTexture, r.set.Velocity.Front()},
		{compute.SlotDivergenceTexture, r.set.Divergence},
		{compute.SlotPressureTexture, r.set.Pressure.Front()},
	} {
		if err := r.svc.SetGrid(k, b.slot, b.grid); err != nil {
			return fmt.Errorf("render: bind %s: %w", b.slot, err)
		}
	}
	if err := r.svc.SetImage(k, compute.SlotResult, r.output); err != nil {
		return fmt.Errorf("render: bind %s: %w", compute.SlotResult, err)
	}

	x, y, z := r.reg.GroupCount(kernel.Raymarch, [3]int{r.width, r.height, 1})
	if err := r.svc.Dispatch(k, x, y, z); err != nil {
		return fmt.Errorf("render: dispatch %dx%dx%d: %w", x, y, z, err)
	}
	logging.Logger().Debug("render: dispatched", "groups", [3]int{x, y, z}, "view", s.DebugView.String())
	return nil
}

// Release destroys the output image.
func (r *Renderer) Release() {
	if r.output != compute.InvalidID {
		r.svc.DestroyImage(r.output)
		r.output, r.width, r.height = compute.InvalidID, 0, 0
	}
}
