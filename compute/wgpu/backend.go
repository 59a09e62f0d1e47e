// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package wgpu

import (
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	// Import Vulkan backend so it registers via init().
	_ "github.com/gogpu/wgpu/hal/vulkan"

	"github.com/gogpu/smoke/compute"
	"github.com/gogpu/smoke/internal/logging"
	"github.com/gogpu/smoke/internal/transfer"
)

const (
	fenceTimeout = 5 * time.Second

	// maxBatchPasses bounds the passes recorded before a submit.
	maxBatchPasses = 256
)

// ErrNoAdapter is returned by New when no GPU adapter is present.
var ErrNoAdapter = errors.New("wgpu: no GPU adapter found")

func init() {
	compute.Register(compute.BackendWGPU, func() (compute.Service, error) {
		return New()
	})
}

type gpuGrid struct {
	desc compute.GridDescriptor
	buf  hal.Buffer
}

type gpuImage struct {
	desc compute.ImageDescriptor
	buf  hal.Buffer
}

// pipeline is one compiled kernel plus its persistent bindings.
type pipeline struct {
	name   string
	group  [3]int
	module hal.ShaderModule
	bgl    hal.BindGroupLayout
	layout hal.PipelineLayout
	pipe   hal.ComputePipeline
	bound  map[string]uint64
}

// batch tracks recorded passes and the per-pass resources they keep alive
// until the GPU has finished with them.
type batch struct {
	encoder    hal.CommandEncoder
	bindGroups []hal.BindGroup
	buffers    []hal.Buffer
	passes     int
}

// Backend executes the smoke kernels on a GPU device.
type Backend struct {
	instance hal.Instance
	device   hal.Device
	queue    hal.Queue
	external bool // shared device; not destroyed on Close
	adapter  string

	grids  map[compute.GridID]*gpuGrid
	images map[compute.ImageID]*gpuImage
	nextID uint64

	kernels  []*pipeline
	uniforms uniformState

	smokeLUT hal.Buffer
	fieldLUT hal.Buffer

	pending    *batch
	dispatches uint64
	closed     bool
}

var (
	_ compute.Service    = (*Backend)(nil)
	_ compute.GridWriter = (*Backend)(nil)
)

// New opens the first discrete or integrated Vulkan adapter.
func New() (*Backend, error) {
	b := newBackend()
	if err := b.initGPU(); err != nil {
		b.destroyDevice()
		return nil, err
	}
	if err := b.createLUTs(); err != nil {
		b.destroyDevice()
		return nil, err
	}
	logging.Logger().Info("wgpu: backend initialized", "adapter", b.adapter)
	return b, nil
}

// NewFromProvider runs on a device owned by the host application. The
// provider must also expose HalDevice() any and HalQueue() any returning
// hal.Device and hal.Queue. The device is not destroyed on Close.
func NewFromProvider(provider gpucontext.DeviceProvider) (*Backend, error) {
	return newFromAny(provider)
}

func newFromAny(provider any) (*Backend, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, fmt.Errorf("wgpu: provider does not expose HAL types")
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("wgpu: provider HalDevice is not hal.Device")
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("wgpu: provider HalQueue is not hal.Queue")
	}

	b := newBackend()
	b.device, b.queue, b.external = device, queue, true
	b.adapter = "shared"
	if err := b.createLUTs(); err != nil {
		return nil, err
	}
	logging.Logger().Info("wgpu: backend initialized on shared device")
	return b, nil
}

func newBackend() *Backend {
	return &Backend{
		grids:    make(map[compute.GridID]*gpuGrid),
		images:   make(map[compute.ImageID]*gpuImage),
		uniforms: newUniformState(),
	}
}

func (b *Backend) initGPU() error {
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return fmt.Errorf("%w: vulkan backend not available", compute.ErrBackendNotAvailable)
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return fmt.Errorf("wgpu: create instance: %w", err)
	}
	b.instance = instance

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		return ErrNoAdapter
	}
	var selected *hal.ExposedAdapter
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	if selected == nil {
		selected = &adapters[0]
	}

	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		return fmt.Errorf("wgpu: open device: %w", err)
	}
	b.device = openDev.Device
	b.queue = openDev.Queue
	b.adapter = selected.Info.Name
	return nil
}

func (b *Backend) createLUTs() error {
	var err error
	if b.smokeLUT, err = b.uploadBuffer("smoke_lut", transfer.Smoke().Flat()); err != nil {
		return err
	}
	if b.fieldLUT, err = b.uploadBuffer("field_lut", transfer.Field().Flat()); err != nil {
		return err
	}
	return nil
}

func (b *Backend) uploadBuffer(label string, data []float32) (hal.Buffer, error) {
	bytes := float32sToBytes(data)
	buf, err := b.device.CreateBuffer(&hal.BufferDescriptor{
		Label: label, Size: uint64(len(bytes)),
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create %s: %w", label, err)
	}
	b.queue.WriteBuffer(buf, 0, bytes)
	return buf, nil
}

// Name returns "wgpu".
func (b *Backend) Name() string { return compute.BackendWGPU }

// Adapter returns the name of the GPU in use.
func (b *Backend) Adapter() string { return b.adapter }

// Dispatches returns the number of dispatches recorded so far.
func (b *Backend) Dispatches() uint64 { return b.dispatches }

func (b *Backend) newID() uint64 {
	b.nextID++
	return b.nextID
}

// createStorage allocates a zero-filled storage buffer that can be copied
// in both directions.
func (b *Backend) createStorage(label string, size uint64) (hal.Buffer, error) {
	buf, err := b.device.CreateBuffer(&hal.BufferDescriptor{
		Label: label, Size: size,
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s (%d bytes): %v", compute.ErrOutOfMemory, label, size, err)
	}
	b.queue.WriteBuffer(buf, 0, make([]byte, size))
	return buf, nil
}

// CreateGrid allocates a zero-filled grid.
func (b *Backend) CreateGrid(desc compute.GridDescriptor) (compute.GridID, error) {
	if b.closed {
		return compute.InvalidID, compute.ErrClosed
	}
	if err := desc.Validate(); err != nil {
		return compute.InvalidID, err
	}
	buf, err := b.createStorage(desc.Label, desc.SizeInBytes())
	if err != nil {
		return compute.InvalidID, err
	}
	id := compute.GridID(b.newID())
	b.grids[id] = &gpuGrid{desc: desc, buf: buf}
	return id, nil
}

// DestroyGrid releases a grid once the GPU is done with it.
func (b *Backend) DestroyGrid(id compute.GridID) {
	g, ok := b.grids[id]
	if !ok {
		return
	}
	delete(b.grids, id)
	b.release(g.buf)
}

// CreateImage allocates a zero-filled image.
func (b *Backend) CreateImage(desc compute.ImageDescriptor) (compute.ImageID, error) {
	if b.closed {
		return compute.InvalidID, compute.ErrClosed
	}
	if err := desc.Validate(); err != nil {
		return compute.InvalidID, err
	}
	buf, err := b.createStorage(desc.Label, desc.SizeInBytes())
	if err != nil {
		return compute.InvalidID, err
	}
	id := compute.ImageID(b.newID())
	b.images[id] = &gpuImage{desc: desc, buf: buf}
	return id, nil
}

// DestroyImage releases an image once the GPU is done with it.
func (b *Backend) DestroyImage(id compute.ImageID) {
	img, ok := b.images[id]
	if !ok {
		return
	}
	delete(b.images, id)
	b.release(img.buf)
}

// release destroys buf now, or after the pending batch when recorded
// passes may still reference it.
func (b *Backend) release(buf hal.Buffer) {
	if b.pending != nil {
		b.pending.buffers = append(b.pending.buffers, buf)
		return
	}
	b.device.DestroyBuffer(buf)
}

// FindKernel compiles a kernel on first use and returns its id.
func (b *Backend) FindKernel(name string) (compute.KernelID, error) {
	if b.closed {
		return compute.InvalidID, compute.ErrClosed
	}
	for i, p := range b.kernels {
		if p.name == name {
			return compute.KernelID(i + 1), nil
		}
	}
	src, ok := kernelSources[name]
	if !ok {
		return compute.InvalidID, fmt.Errorf("%w: %q", compute.ErrKernelNotFound, name)
	}
	p, err := b.createPipeline(name, src.group)
	if err != nil {
		return compute.InvalidID, err
	}
	b.kernels = append(b.kernels, p)
	return compute.KernelID(len(b.kernels)), nil
}

// layoutEntries returns binding 0 (uniforms), one storage binding per
// declared slot, and for Raymarch a trailing read-only transfer table.
func layoutEntries(name string) []gputypes.BindGroupLayoutEntry {
	entry := func(binding uint32, t gputypes.BufferBindingType) gputypes.BindGroupLayoutEntry {
		return gputypes.BindGroupLayoutEntry{
			Binding:    binding,
			Visibility: gputypes.ShaderStageCompute,
			Buffer:     &gputypes.BufferBindingLayout{Type: t},
		}
	}
	decl := compute.Bindings[name]
	entries := []gputypes.BindGroupLayoutEntry{entry(0, gputypes.BufferBindingTypeUniform)}
	for i, d := range decl {
		t := gputypes.BufferBindingTypeReadOnlyStorage
		if d.Access == compute.AccessWrite {
			t = gputypes.BufferBindingTypeStorage
		}
		entries = append(entries, entry(uint32(i+1), t)) //nolint:gosec // small slot index
	}
	if name == compute.KernelRaymarch {
		entries = append(entries, entry(uint32(len(decl)+1), gputypes.BufferBindingTypeReadOnlyStorage)) //nolint:gosec // small slot index
	}
	return entries
}

func (b *Backend) createPipeline(name string, group [3]int) (*pipeline, error) {
	code, err := compileKernel(name)
	if err != nil {
		return nil, err
	}
	p := &pipeline{name: name, group: group, bound: make(map[string]uint64)}

	p.module, err = b.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  name,
		Source: hal.ShaderSource{SPIRV: code},
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create shader module for %s: %w", name, err)
	}

	entries := layoutEntries(name)
	p.bgl, err = b.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   name + "_bgl",
		Entries: entries,
	})
	if err != nil {
		b.destroyPipeline(p)
		return nil, fmt.Errorf("wgpu: create bind group layout for %s: %w", name, err)
	}

	p.layout, err = b.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            name + "_pl",
		BindGroupLayouts: []hal.BindGroupLayout{p.bgl},
	})
	if err != nil {
		b.destroyPipeline(p)
		return nil, fmt.Errorf("wgpu: create pipeline layout for %s: %w", name, err)
	}

	p.pipe, err = b.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label:   name,
		Layout:  p.layout,
		Compute: hal.ComputeState{Module: p.module, EntryPoint: "main"},
	})
	if err != nil {
		b.destroyPipeline(p)
		return nil, fmt.Errorf("wgpu: create compute pipeline for %s: %w", name, err)
	}

	logging.Logger().Debug("wgpu: pipeline created",
		"kernel", name,
		"bindings", len(entries),
		"spirv_words", len(code))
	return p, nil
}

func (b *Backend) destroyPipeline(p *pipeline) {
	if p.pipe != nil {
		b.device.DestroyComputePipeline(p.pipe)
	}
	if p.layout != nil {
		b.device.DestroyPipelineLayout(p.layout)
	}
	if p.bgl != nil {
		b.device.DestroyBindGroupLayout(p.bgl)
	}
	if p.module != nil {
		b.device.DestroyShaderModule(p.module)
	}
}

func (b *Backend) kernel(k compute.KernelID) (*pipeline, error) {
	if k == compute.InvalidID || int(k) > len(b.kernels) {
		return nil, fmt.Errorf("%w: %d", compute.ErrUnknownKernel, k)
	}
	return b.kernels[k-1], nil
}

// ThreadGroupSize returns the workgroup size declared by the kernel's WGSL.
func (b *Backend) ThreadGroupSize(k compute.KernelID) (x, y, z int) {
	p, err := b.kernel(k)
	if err != nil {
		return 0, 0, 0
	}
	return p.group[0], p.group[1], p.group[2]
}

// SetFloat sets a scalar uniform.
func (b *Backend) SetFloat(name string, v float32) { b.uniforms.floats[name] = v }

// SetInt sets an integer uniform.
func (b *Backend) SetInt(name string, v int32) { b.uniforms.ints[name] = v }

// SetVector sets a vec4 uniform.
func (b *Backend) SetVector(name string, v [4]float32) { b.uniforms.vectors[name] = v }

// SetMatrix sets a column-major 4x4 matrix uniform.
func (b *Backend) SetMatrix(name string, m [16]float32) { b.uniforms.mats[name] = m }

// SetGrid binds a grid to a kernel slot.
func (b *Backend) SetGrid(k compute.KernelID, slot string, g compute.GridID) error {
	if b.closed {
		return compute.ErrClosed
	}
	p, err := b.kernel(k)
	if err != nil {
		return err
	}
	decl, ok := compute.LookupBinding(p.name, slot)
	if !ok || decl.Kind != compute.ResourceGrid {
		return &compute.BindingError{Kernel: p.name, Slot: slot, Err: compute.ErrUnknownSlot}
	}
	gg, ok := b.grids[g]
	if !ok {
		return fmt.Errorf("%w: %d bound to %s.%s", compute.ErrUnknownGrid, g, p.name, slot)
	}
	if gg.desc.Format != decl.Format {
		return fmt.Errorf("%s.%s wants %s, got %s grid %q: %w",
			p.name, slot, decl.Format, gg.desc.Format, gg.desc.Label, compute.ErrUnknownSlot)
	}
	p.bound[slot] = uint64(g)
	return nil
}

// SetImage binds an image to a kernel slot.
func (b *Backend) SetImage(k compute.KernelID, slot string, img compute.ImageID) error {
	if b.closed {
		return compute.ErrClosed
	}
	p, err := b.kernel(k)
	if err != nil {
		return err
	}
	decl, ok := compute.LookupBinding(p.name, slot)
	if !ok || decl.Kind != compute.ResourceImage {
		return &compute.BindingError{Kernel: p.name, Slot: slot, Err: compute.ErrUnknownSlot}
	}
	if _, ok := b.images[img]; !ok {
		return fmt.Errorf("%w: %d bound to %s.%s", compute.ErrUnknownImage, img, p.name, slot)
	}
	p.bound[slot] = uint64(img)
	return nil
}

func (b *Backend) resolution(g compute.GridID) int {
	if gg, ok := b.grids[g]; ok {
		return gg.desc.Resolution
	}
	return 0
}

// Dispatch records x*y*z workgroups of k into the pending batch.
func (b *Backend) Dispatch(k compute.KernelID, x, y, z int) error {
	if b.closed {
		return compute.ErrClosed
	}
	p, err := b.kernel(k)
	if err != nil {
		return err
	}
	if x < 1 || y < 1 || z < 1 {
		return fmt.Errorf("%w: %s %dx%dx%d", compute.ErrInvalidDispatch, p.name, x, y, z)
	}
	if err := compute.CheckBindings(p.name, p.bound, b.resolution); err != nil {
		return err
	}

	decl := compute.Bindings[p.name]
	entries := make([]gputypes.BindGroupEntry, 0, len(decl)+2)
	resolution, width, height := 0, 0, 0
	for i, d := range decl {
		id := p.bound[d.Slot]
		var buf hal.Buffer
		var size uint64
		if d.Kind == compute.ResourceGrid {
			g, ok := b.grids[compute.GridID(id)]
			if !ok {
				return fmt.Errorf("%w: %s.%s was destroyed", compute.ErrUnknownGrid, p.name, d.Slot)
			}
			buf, size, resolution = g.buf, g.desc.SizeInBytes(), g.desc.Resolution
		} else {
			img, ok := b.images[compute.ImageID(id)]
			if !ok {
				return fmt.Errorf("%w: %s.%s was destroyed", compute.ErrUnknownImage, p.name, d.Slot)
			}
			buf, size, width, height = img.buf, img.desc.SizeInBytes(), img.desc.Width, img.desc.Height
		}
		entries = append(entries, bufferEntry(uint32(i+1), buf, size)) //nolint:gosec // small slot index
	}
	if p.name == compute.KernelRaymarch {
		lut := b.smokeLUT
		if b.uniforms.ints[compute.UniformDebugView] != 0 {
			lut = b.fieldLUT
		}
		entries = append(entries, bufferEntry(uint32(len(decl)+1), lut, transfer.Size*16)) //nolint:gosec // small slot index
	}

	bt, err := b.batch()
	if err != nil {
		return err
	}

	params := b.uniforms.pack(resolution, width, height)
	ub, err := b.device.CreateBuffer(&hal.BufferDescriptor{
		Label: p.name + "_params", Size: paramsSize,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("wgpu: create uniform buffer for %s: %w", p.name, err)
	}
	bt.buffers = append(bt.buffers, ub)
	b.queue.WriteBuffer(ub, 0, params)
	entries = append([]gputypes.BindGroupEntry{bufferEntry(0, ub, paramsSize)}, entries...)

	bg, err := b.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   p.name + "_bg",
		Layout:  p.bgl,
		Entries: entries,
	})
	if err != nil {
		return fmt.Errorf("wgpu: create bind group for %s: %w", p.name, err)
	}
	bt.bindGroups = append(bt.bindGroups, bg)

	pass := bt.encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: p.name})
	pass.SetPipeline(p.pipe)
	pass.SetBindGroup(0, bg, nil)
	pass.Dispatch(uint32(x), uint32(y), uint32(z)) //nolint:gosec // validated positive
	pass.End()
	bt.passes++
	b.dispatches++

	logging.Logger().Debug("wgpu: dispatched",
		"kernel", p.name, "groups", [3]int{x, y, z}, "batch", bt.passes)

	if bt.passes >= maxBatchPasses {
		return b.submit(nil)
	}
	return nil
}

func bufferEntry(binding uint32, buf hal.Buffer, size uint64) gputypes.BindGroupEntry {
	return gputypes.BindGroupEntry{
		Binding:  binding,
		Resource: gputypes.BufferBinding{Buffer: buf.NativeHandle(), Offset: 0, Size: size},
	}
}

// batch returns the pending batch, starting one if needed.
func (b *Backend) batch() (*batch, error) {
	if b.pending != nil {
		return b.pending, nil
	}
	encoder, err := b.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "smoke"})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("smoke"); err != nil {
		return nil, fmt.Errorf("wgpu: begin encoding: %w", err)
	}
	b.pending = &batch{encoder: encoder}
	return b.pending, nil
}

// submit ends the pending batch, optionally appending a copy, submits it
// and waits for the GPU. Per-pass resources are freed afterwards.
func (b *Backend) submit(record func(enc hal.CommandEncoder)) error {
	if b.pending == nil && record == nil {
		return nil
	}
	bt, err := b.batch()
	if err != nil {
		return err
	}
	b.pending = nil
	defer b.freeBatch(bt)

	if record != nil {
		record(bt.encoder)
	}
	cmdBuf, err := bt.encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("wgpu: end encoding: %w", err)
	}
	defer b.device.FreeCommandBuffer(cmdBuf)

	fence, err := b.device.CreateFence()
	if err != nil {
		return fmt.Errorf("wgpu: create fence: %w", err)
	}
	defer b.device.DestroyFence(fence)

	if err := b.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return fmt.Errorf("wgpu: submit: %w", err)
	}
	ok, err := b.device.Wait(fence, 1, fenceTimeout)
	if err != nil {
		return fmt.Errorf("wgpu: wait for GPU: %w", err)
	}
	if !ok {
		return fmt.Errorf("wgpu: GPU timeout after %v", fenceTimeout)
	}
	logging.Logger().Debug("wgpu: batch complete", "passes", bt.passes)
	return nil
}

func (b *Backend) freeBatch(bt *batch) {
	for _, bg := range bt.bindGroups {
		b.device.DestroyBindGroup(bg)
	}
	for _, buf := range bt.buffers {
		b.device.DestroyBuffer(buf)
	}
}

// Flush submits recorded passes and waits for them.
func (b *Backend) Flush() error {
	if b.closed {
		return compute.ErrClosed
	}
	return b.submit(nil)
}

// readBuffer copies size bytes of src back to the host after every
// recorded pass has run.
func (b *Backend) readBuffer(label string, src hal.Buffer, size uint64) ([]byte, error) {
	staging, err := b.device.CreateBuffer(&hal.BufferDescriptor{
		Label: label + "_staging", Size: size,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create staging buffer: %w", err)
	}
	defer b.device.DestroyBuffer(staging)

	err = b.submit(func(enc hal.CommandEncoder) {
		enc.CopyBufferToBuffer(src, staging, []hal.BufferCopy{
			{SrcOffset: 0, DstOffset: 0, Size: size},
		})
	})
	if err != nil {
		return nil, err
	}

	out := make([]byte, size)
	if err := b.queue.ReadBuffer(staging, 0, out); err != nil {
		return nil, fmt.Errorf("wgpu: readback %s: %w", label, err)
	}
	return out, nil
}

// ReadGrid waits for prior dispatches and returns a grid's cells.
func (b *Backend) ReadGrid(g compute.GridID) ([]float32, error) {
	if b.closed {
		return nil, compute.ErrClosed
	}
	gg, ok := b.grids[g]
	if !ok {
		return nil, fmt.Errorf("%w: %d", compute.ErrUnknownGrid, g)
	}
	raw, err := b.readBuffer(gg.desc.Label, gg.buf, gg.desc.SizeInBytes())
	if err != nil {
		return nil, err
	}
	return bytesToFloat32s(raw), nil
}

// WriteGrid waits for prior dispatches and replaces a grid's cells.
func (b *Backend) WriteGrid(g compute.GridID, data []float32) error {
	if b.closed {
		return compute.ErrClosed
	}
	gg, ok := b.grids[g]
	if !ok {
		return fmt.Errorf("%w: %d", compute.ErrUnknownGrid, g)
	}
	if want := gg.desc.Cells() * gg.desc.Format.Channels(); len(data) != want {
		return fmt.Errorf("wgpu: write %q: got %d floats, want %d", gg.desc.Label, len(data), want)
	}
	if err := b.submit(nil); err != nil {
		return err
	}
	b.queue.WriteBuffer(gg.buf, 0, float32sToBytes(data))
	return nil
}

// ReadImage waits for prior dispatches and converts an image to 8-bit RGBA.
func (b *Backend) ReadImage(id compute.ImageID) (*image.RGBA, error) {
	if b.closed {
		return nil, compute.ErrClosed
	}
	img, ok := b.images[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", compute.ErrUnknownImage, id)
	}
	raw, err := b.readBuffer(img.desc.Label, img.buf, img.desc.SizeInBytes())
	if err != nil {
		return nil, err
	}
	return compute.ToRGBA(bytesToFloat32s(raw), img.desc.Width, img.desc.Height), nil
}

// Close submits outstanding work and releases every resource. The device
// is destroyed unless it came from a provider.
func (b *Backend) Close() error {
	if b.closed {
		return nil
	}
	err := b.submit(nil)
	b.closed = true

	for _, p := range b.kernels {
		b.destroyPipeline(p)
	}
	for _, g := range b.grids {
		b.device.DestroyBuffer(g.buf)
	}
	for _, img := range b.images {
		b.device.DestroyBuffer(img.buf)
	}
	for _, buf := range []hal.Buffer{b.smokeLUT, b.fieldLUT} {
		if buf != nil {
			b.device.DestroyBuffer(buf)
		}
	}
	b.kernels, b.grids, b.images = nil, nil, nil
	b.destroyDevice()
	return err
}

func (b *Backend) destroyDevice() {
	if b.external {
		b.device, b.queue = nil, nil
		return
	}
	if b.device != nil {
		b.device.Destroy()
		b.device = nil
	}
	if b.instance != nil {
		b.instance.Destroy()
		b.instance = nil
	}
	b.queue = nil
}
