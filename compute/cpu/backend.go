package cpu

import (
	"fmt"
	"image"

	"github.com/gogpu/smoke/compute"
	"github.com/gogpu/smoke/internal/logging"
	"github.com/gogpu/smoke/internal/parallel"
)

func init() {
	compute.Register(compute.BackendCPU, func() (compute.Service, error) {
		return New(), nil
	})
}

// Option configures a Backend.
type Option func(*options)

type options struct {
	workers  int
	memLimit uint64
}

// WithWorkers sets the number of worker goroutines. Zero uses GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// WithMemoryLimit caps the bytes of grid and image storage. Allocations
// beyond the cap fail with compute.ErrOutOfMemory, as a device would.
// Zero means unlimited.
func WithMemoryLimit(bytes uint64) Option {
	return func(o *options) { o.memLimit = bytes }
}

type gridData struct {
	desc compute.GridDescriptor
	data []float32
}

type imageData struct {
	desc compute.ImageDescriptor
	data []float32 // RGBA, row-major
}

// kernelState is the persistent binding table of one kernel.
type kernelState struct {
	def   *kernelDef
	bound map[string]uint64
}

// Backend executes the smoke kernels on the CPU.
// It satisfies compute.Service and compute.GridWriter.
type Backend struct {
	pool *parallel.WorkerPool

	grids  map[compute.GridID]*gridData
	images map[compute.ImageID]*imageData
	nextID uint64

	kernels []*kernelState

	floats  map[string]float32
	ints    map[string]int32
	vectors map[string][4]float32
	mats    map[string][16]float32

	memLimit uint64
	memUsed  uint64

	dispatches uint64
	closed     bool
}

var (
	_ compute.Service    = (*Backend)(nil)
	_ compute.GridWriter = (*Backend)(nil)
)

// New creates a CPU backend.
func New(opts ...Option) *Backend {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	b := &Backend{
		pool:     parallel.NewWorkerPool(o.workers),
		grids:    make(map[compute.GridID]*gridData),
		images:   make(map[compute.ImageID]*imageData),
		floats:   make(map[string]float32),
		ints:     make(map[string]int32),
		vectors:  make(map[string][4]float32),
		mats:     make(map[string][16]float32),
		memLimit: o.memLimit,
	}
	logging.Logger().Debug("cpu: backend created", "workers", b.pool.Workers(), "memLimit", o.memLimit)
	return b
}

// Name returns "cpu".
func (b *Backend) Name() string { return compute.BackendCPU }

// Dispatches returns the number of dispatches executed so far.
func (b *Backend) Dispatches() uint64 { return b.dispatches }

// MemoryUsed returns the bytes of live grid and image storage.
func (b *Backend) MemoryUsed() uint64 { return b.memUsed }

func (b *Backend) alloc(label string, size uint64) error {
	if b.memLimit > 0 && b.memUsed+size > b.memLimit {
		return fmt.Errorf("%w: %s needs %d bytes, %d of %d in use",
			compute.ErrOutOfMemory, label, size, b.memUsed, b.memLimit)
	}
	b.memUsed += size
	return nil
}

func (b *Backend) newID() uint64 {
	b.nextID++
	return b.nextID
}

// CreateGrid allocates a zero-filled grid.
func (b *Backend) CreateGrid(desc compute.GridDescriptor) (compute.GridID, error) {
	if b.closed {
		return compute.InvalidID, compute.ErrClosed
	}
	if err := desc.Validate(); err != nil {
		return compute.InvalidID, err
	}
	if err := b.alloc(desc.Label, desc.SizeInBytes()); err != nil {
		return compute.InvalidID, err
	}
	id := compute.GridID(b.newID())
	b.grids[id] = &gridData{
		desc: desc,
		data: make([]float32, desc.Cells()*desc.Format.Channels()),
	}
	return id, nil
}

// DestroyGrid releases a grid.
func (b *Backend) DestroyGrid(id compute.GridID) {
	g, ok := b.grids[id]
	if !ok {
		return
	}
	b.memUsed -= g.desc.SizeInBytes()
	delete(b.grids, id)
}

// CreateImage allocates a zero-filled image.
func (b *Backend) CreateImage(desc compute.ImageDescriptor) (compute.ImageID, error) {
	if b.closed {
		return compute.InvalidID, compute.ErrClosed
	}
	if err := desc.Validate(); err != nil {
		return compute.InvalidID, err
	}
	if err := b.alloc(desc.Label, desc.SizeInBytes()); err != nil {
		return compute.InvalidID, err
	}
	id := compute.ImageID(b.newID())
	b.images[id] = &imageData{desc: desc, data: make([]float32, desc.Width*desc.Height*4)}
	return id, nil
}

// DestroyImage releases an image.
func (b *Backend) DestroyImage(id compute.ImageID) {
	img, ok := b.images[id]
	if !ok {
		return
	}
	b.memUsed -= img.desc.SizeInBytes()
	delete(b.images, id)
}

// FindKernel resolves a kernel by entry point name.
func (b *Backend) FindKernel(name string) (compute.KernelID, error) {
	if b.closed {
		return compute.InvalidID, compute.ErrClosed
	}
	for i, ks := range b.kernels {
		if ks.def.name == name {
			return compute.KernelID(i + 1), nil
		}
	}
	def, ok := kernelDefs[name]
	if !ok {
		return compute.InvalidID, fmt.Errorf("%w: %q", compute.ErrKernelNotFound, name)
	}
	b.kernels = append(b.kernels, &kernelState{def: def, bound: make(map[string]uint64)})
	return compute.KernelID(len(b.kernels)), nil
}

func (b *Backend) kernel(k compute.KernelID) (*kernelState, error) {
	if k == compute.InvalidID || int(k) > len(b.kernels) {
		return nil, fmt.Errorf("%w: %d", compute.ErrUnknownKernel, k)
	}
	return b.kernels[k-1], nil
}

// ThreadGroupSize returns the declared group size of a kernel, or zeros for
// an unknown kernel.
func (b *Backend) ThreadGroupSize(k compute.KernelID) (x, y, z int) {
	ks, err := b.kernel(k)
	if err != nil {
		return 0, 0, 0
	}
	g := ks.def.group
	return g[0], g[1], g[2]
}

// SetFloat sets a scalar uniform.
func (b *Backend) SetFloat(name string, v float32) { b.floats[name] = v }

// SetInt sets an integer uniform.
func (b *Backend) SetInt(name string, v int32) { b.ints[name] = v }

// SetVector sets a vec4 uniform.
func (b *Backend) SetVector(name string, v [4]float32) { b.vectors[name] = v }

// SetMatrix sets a column-major 4x4 matrix uniform.
func (b *Backend) SetMatrix(name string, m [16]float32) { b.mats[name] = m }

// SetGrid binds a grid to a kernel slot.
func (b *Backend) SetGrid(k compute.KernelID, slot string, g compute.GridID) error {
	if b.closed {
		return compute.ErrClosed
	}
	ks, err := b.kernel(k)
	if err != nil {
		return err
	}
	decl, ok := compute.LookupBinding(ks.def.name, slot)
	if !ok || decl.Kind != compute.ResourceGrid {
		return &compute.BindingError{Kernel: ks.def.name, Slot: slot, Err: compute.ErrUnknownSlot}
	}
	gd, ok := b.grids[g]
	if !ok {
		return fmt.Errorf("%w: %d bound to %s.%s", compute.ErrUnknownGrid, g, ks.def.name, slot)
	}
	if gd.desc.Format != decl.Format {
		return fmt.Errorf("%s.%s wants %s, got %s grid %q: %w",
			ks.def.name, slot, decl.Format, gd.desc.Format, gd.desc.Label, compute.ErrUnknownSlot)
	}
	ks.bound[slot] = uint64(g)
	return nil
}

// SetImage binds an image to a kernel slot.
func (b *Backend) SetImage(k compute.KernelID, slot string, img compute.ImageID) error {
	if b.closed {
		return compute.ErrClosed
	}
	ks, err := b.kernel(k)
	if err != nil {
		return err
	}
	decl, ok := compute.LookupBinding(ks.def.name, slot)
	if !ok || decl.Kind != compute.ResourceImage {
		return &compute.BindingError{Kernel: ks.def.name, Slot: slot, Err: compute.ErrUnknownSlot}
	}
	if _, ok := b.images[img]; !ok {
		return fmt.Errorf("%w: %d bound to %s.%s", compute.ErrUnknownImage, img, ks.def.name, slot)
	}
	ks.bound[slot] = uint64(img)
	return nil
}

// Dispatch validates the bindings of k and runs x*y*z thread groups.
// Invocations outside the bound grid (or image) are discarded, as a shader
// would when guarding on its global id.
func (b *Backend) Dispatch(k compute.KernelID, x, y, z int) error {
	if b.closed {
		return compute.ErrClosed
	}
	ks, err := b.kernel(k)
	if err != nil {
		return err
	}
	if x < 1 || y < 1 || z < 1 {
		return fmt.Errorf("%w: %s %dx%dx%d", compute.ErrInvalidDispatch, ks.def.name, x, y, z)
	}
	if err := compute.CheckBindings(ks.def.name, ks.bound, b.resolution); err != nil {
		return err
	}
	for slot, id := range ks.bound {
		decl, _ := compute.LookupBinding(ks.def.name, slot)
		if decl.Kind == compute.ResourceGrid {
			if _, ok := b.grids[compute.GridID(id)]; !ok {
				return fmt.Errorf("%w: %s.%s was destroyed", compute.ErrUnknownGrid, ks.def.name, slot)
			}
		} else if _, ok := b.images[compute.ImageID(id)]; !ok {
			return fmt.Errorf("%w: %s.%s was destroyed", compute.ErrUnknownImage, ks.def.name, slot)
		}
	}

	g := ks.def.group
	inv := [3]int{x * g[0], y * g[1], z * g[2]}
	ks.def.run(&invocation{b: b, ks: ks, groups: inv})
	b.dispatches++
	return nil
}

func (b *Backend) resolution(g compute.GridID) int {
	if gd, ok := b.grids[g]; ok {
		return gd.desc.Resolution
	}
	return 0
}

// ReadGrid returns a copy of a grid's cells.
func (b *Backend) ReadGrid(g compute.GridID) ([]float32, error) {
	if b.closed {
		return nil, compute.ErrClosed
	}
	gd, ok := b.grids[g]
	if !ok {
		return nil, fmt.Errorf("%w: %d", compute.ErrUnknownGrid, g)
	}
	return append([]float32(nil), gd.data...), nil
}

// WriteGrid replaces a grid's cells. len(data) must equal Cells*Channels.
func (b *Backend) WriteGrid(g compute.GridID, data []float32) error {
	if b.closed {
		return compute.ErrClosed
	}
	gd, ok := b.grids[g]
	if !ok {
		return fmt.Errorf("%w: %d", compute.ErrUnknownGrid, g)
	}
	if len(data) != len(gd.data) {
		return fmt.Errorf("cpu: write %q: got %d floats, want %d", gd.desc.Label, len(data), len(gd.data))
	}
	copy(gd.data, data)
	return nil
}

// ReadImage converts an image to 8-bit RGBA.
func (b *Backend) ReadImage(id compute.ImageID) (*image.RGBA, error) {
	if b.closed {
		return nil, compute.ErrClosed
	}
	img, ok := b.images[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", compute.ErrUnknownImage, id)
	}
	return compute.ToRGBA(img.data, img.desc.Width, img.desc.Height), nil
}

// Close releases every resource and stops the worker pool.
func (b *Backend) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true
	b.pool.Close()
	b.grids = nil
	b.images = nil
	b.kernels = nil
	b.memUsed = 0
	return nil
}
