package compute

import (
	"errors"
	"image"
)

// Errors returned by services.
var (
	// ErrKernelNotFound is returned by FindKernel for an unknown entry point.
	ErrKernelNotFound = errors.New("compute: kernel not found")

	// ErrUnknownGrid is returned for a grid ID the service did not create
	// or has already destroyed.
	ErrUnknownGrid = errors.New("compute: unknown grid")

	// ErrUnknownImage is returned for an image ID the service did not create
	// or has already destroyed.
	ErrUnknownImage = errors.New("compute: unknown image")

	// ErrUnknownKernel is returned for a kernel ID FindKernel never issued.
	ErrUnknownKernel = errors.New("compute: unknown kernel")

	// ErrUnknownSlot is returned when binding to a slot the kernel does not
	// declare, or when the resource kind or format does not match the slot.
	ErrUnknownSlot = errors.New("compute: unknown binding slot")

	// ErrUnboundSlot is returned by Dispatch when a declared slot has no
	// resource bound.
	ErrUnboundSlot = errors.New("compute: binding slot not bound")

	// ErrAliasedBinding is returned by Dispatch when one grid is bound to a
	// read slot and a write slot of the same kernel.
	ErrAliasedBinding = errors.New("compute: grid bound for both read and write")

	// ErrResolutionMismatch is returned by Dispatch when bound grids differ
	// in resolution.
	ErrResolutionMismatch = errors.New("compute: bound grids differ in resolution")

	// ErrInvalidDispatch is returned for a thread-group count below one.
	ErrInvalidDispatch = errors.New("compute: invalid dispatch size")

	// ErrInvalidDescriptor is returned when a resource descriptor is invalid.
	ErrInvalidDescriptor = errors.New("compute: invalid descriptor")

	// ErrOutOfMemory is returned when the device cannot allocate a resource.
	ErrOutOfMemory = errors.New("compute: out of device memory")

	// ErrClosed is returned by every method after Close.
	ErrClosed = errors.New("compute: service closed")

	// ErrBackendNotAvailable is returned when no backend can be opened.
	ErrBackendNotAvailable = errors.New("compute: backend not available")
)

// Service executes the smoke kernels on resources it owns.
//
// Services are not safe for concurrent use. The simulation drives a service
// from one goroutine and dispatches execute in the order they are issued.
// Bindings and uniforms persist until overwritten.
type Service interface {
	// Name returns the backend name ("cpu", "wgpu", ...).
	Name() string

	// CreateGrid allocates a zero-filled grid.
	CreateGrid(desc GridDescriptor) (GridID, error)

	// DestroyGrid releases a grid. Destroying an unknown grid is a no-op.
	DestroyGrid(id GridID)

	// CreateImage allocates a zero-filled RGBA32Float image.
	CreateImage(desc ImageDescriptor) (ImageID, error)

	// DestroyImage releases an image. Destroying an unknown image is a no-op.
	DestroyImage(id ImageID)

	// FindKernel resolves a kernel entry point by name.
	FindKernel(name string) (KernelID, error)

	// ThreadGroupSize returns the number of threads per group of a kernel
	// along each axis.
	ThreadGroupSize(k KernelID) (x, y, z int)

	// SetFloat sets a service-wide scalar uniform.
	SetFloat(name string, v float32)

	// SetInt sets a service-wide integer uniform.
	SetInt(name string, v int32)

	// SetVector sets a service-wide vec4 uniform.
	SetVector(name string, v [4]float32)

	// SetMatrix sets a service-wide 4x4 column-major matrix uniform.
	SetMatrix(name string, m [16]float32)

	// SetGrid binds a grid to a slot of a kernel.
	SetGrid(k KernelID, slot string, g GridID) error

	// SetImage binds an image to a slot of a kernel.
	SetImage(k KernelID, slot string, img ImageID) error

	// Dispatch runs x*y*z thread groups of a kernel with its current
	// bindings and the current uniforms.
	Dispatch(k KernelID, x, y, z int) error

	// ReadGrid copies a grid back to host memory as Cells*Channels floats,
	// x fastest, then y, then z. It waits for every prior dispatch.
	ReadGrid(g GridID) ([]float32, error)

	// ReadImage copies an image back to host memory as 8-bit RGBA,
	// clamping each channel to [0, 1]. It waits for every prior dispatch.
	ReadImage(img ImageID) (*image.RGBA, error)

	// Close releases every resource. Calling Close twice is a no-op.
	Close() error
}

// GridWriter is implemented by services that accept host uploads into a
// grid. It is used to seed fields in diagnostics and tests.
type GridWriter interface {
	WriteGrid(g GridID, data []float32) error
}

// CheckBindings validates a complete binding set of kernel against the
// binding contract. bound maps each slot to its grid (zero for images);
// resolution returns a bound grid's resolution. It reports missing slots
// with ErrUnboundSlot, shared read/write grids with ErrAliasedBinding and
// grids of different sizes with ErrResolutionMismatch.
func CheckBindings(kernel string, bound map[string]uint64, resolution func(GridID) int) error {
	decl := Bindings[kernel]
	reads := make(map[uint64]string, len(decl))
	res := 0
	for _, b := range decl {
		id, ok := bound[b.Slot]
		if !ok || id == InvalidID {
			return &BindingError{Kernel: kernel, Slot: b.Slot, Err: ErrUnboundSlot}
		}
		if b.Kind != ResourceGrid {
			continue
		}
		if r := resolution(GridID(id)); res == 0 {
			res = r
		} else if r != res {
			return &BindingError{Kernel: kernel, Slot: b.Slot, Err: ErrResolutionMismatch}
		}
		if b.Access == AccessRead {
			reads[id] = b.Slot
		}
	}
	for _, b := range decl {
		if b.Kind != ResourceGrid || b.Access != AccessWrite {
			continue
		}
		if other, ok := reads[bound[b.Slot]]; ok {
			return &BindingError{Kernel: kernel, Slot: b.Slot, Other: other, Err: ErrAliasedBinding}
		}
	}
	return nil
}

// BindingError describes a rejected binding or dispatch.
type BindingError struct {
	Kernel string
	Slot   string
	Other  string // the conflicting slot for ErrAliasedBinding
	Err    error
}

func (e *BindingError) Error() string {
	if e.Other != "" {
		return e.Err.Error() + ": " + e.Kernel + "." + e.Slot + " aliases " + e.Kernel + "." + e.Other
	}
	return e.Err.Error() + ": " + e.Kernel + "." + e.Slot
}

func (e *BindingError) Unwrap() error { return e.Err }

// GroupCount returns the number of thread groups of size group needed to
// cover n invocations.
func GroupCount(n, group int) int {
	if group <= 0 {
		return 0
	}
	return (n + group - 1) / group
}
