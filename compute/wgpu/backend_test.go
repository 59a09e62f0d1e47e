// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package wgpu

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/gogpu/smoke/compute"
	"github.com/gogpu/smoke/compute/cpu"
)

// openGPU returns a GPU backend or skips the test.
func openGPU(t *testing.T) *Backend {
	t.Helper()
	b, err := New()
	if err != nil {
		t.Skipf("Skipping: GPU not available: %v", err)
	}
	t.Cleanup(func() { _ = b.Close() })
	return b
}

// runBoth seeds the same velocity into both services, dispatches one kernel
// from _Source to a fresh destination and returns the two results.
func runBoth(t *testing.T, gpu *Backend, kernel, dstSlot string, dstFormat compute.Format, r int, seed []float32) (got, want []float32) {
	t.Helper()
	ref := cpu.New()
	defer ref.Close()

	run := func(svc interface {
		compute.Service
		compute.GridWriter
	}) []float32 {
		src, err := svc.CreateGrid(compute.GridDescriptor{Label: "src", Resolution: r, Format: compute.FormatRGBA32Float})
		if err != nil {
			t.Fatalf("%s: CreateGrid() error = %v", svc.Name(), err)
		}
		dst, err := svc.CreateGrid(compute.GridDescriptor{Label: "dst", Resolution: r, Format: dstFormat})
		if err != nil {
			t.Fatalf("%s: CreateGrid() error = %v", svc.Name(), err)
		}
		if err := svc.WriteGrid(src, seed); err != nil {
			t.Fatalf("%s: WriteGrid() error = %v", svc.Name(), err)
		}
		k, err := svc.FindKernel(kernel)
		if err != nil {
			t.Skipf("Skipping: %s: %v", svc.Name(), err)
		}
		svc.SetFloat(compute.UniformDT, 0.1)
		svc.SetFloat(compute.UniformViscosity, 0.2)
		svc.SetVector(compute.UniformDecay, [4]float32{0.1, 0.1, 0, 0})
		_ = svc.SetGrid(k, compute.SlotSource, src)
		_ = svc.SetGrid(k, dstSlot, dst)
		n := compute.GroupCount(r, 4)
		if err := svc.Dispatch(k, n, n, n); err != nil {
			t.Fatalf("%s: Dispatch(%s) error = %v", svc.Name(), kernel, err)
		}
		out, err := svc.ReadGrid(dst)
		if err != nil {
			t.Fatalf("%s: ReadGrid() error = %v", svc.Name(), err)
		}
		return out
	}
	return run(gpu), run(ref)
}

func seedVelocity(r int) []float32 {
	rng := rand.New(rand.NewSource(7))
	v := make([]float32, r*r*r*4)
	for i := range v {
		v[i] = rng.Float32()*2 - 1
	}
	return v
}

func assertClose(t *testing.T, kernel string, got, want []float32) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("%s: len %d, want %d", kernel, len(got), len(want))
	}
	for i := range want {
		if math.Abs(float64(got[i]-want[i])) > 1e-4 {
			t.Fatalf("%s: value %d = %v, cpu reference %v", kernel, i, got[i], want[i])
		}
	}
}

func TestGPUMatchesCPU(t *testing.T) {
	gpu := openGPU(t)
	const r = 8
	seed := seedVelocity(r)

	got, want := runBoth(t, gpu, compute.KernelDiffuse, compute.SlotDestination, compute.FormatRGBA32Float, r, seed)
	assertClose(t, compute.KernelDiffuse, got, want)

	got, want = runBoth(t, gpu, compute.KernelAdvect, compute.SlotDestination, compute.FormatRGBA32Float, r, seed)
	assertClose(t, compute.KernelAdvect, got, want)

	got, want = runBoth(t, gpu, compute.KernelDivergence, compute.SlotDestinationDivergence, compute.FormatR32Float, r, seed)
	assertClose(t, compute.KernelDivergence, got, want)
}

func TestGPURejectsAliasing(t *testing.T) {
	gpu := openGPU(t)
	g, err := gpu.CreateGrid(compute.GridDescriptor{Resolution: 4, Format: compute.FormatRGBA32Float})
	if err != nil {
		t.Fatalf("CreateGrid() error = %v", err)
	}
	k, err := gpu.FindKernel(compute.KernelDiffuse)
	if err != nil {
		t.Skipf("Skipping: %v", err)
	}
	_ = gpu.SetGrid(k, compute.SlotSource, g)
	_ = gpu.SetGrid(k, compute.SlotDestination, g)
	if err := gpu.Dispatch(k, 1, 1, 1); !errors.Is(err, compute.ErrAliasedBinding) {
		t.Errorf("Dispatch() error = %v, want ErrAliasedBinding", err)
	}
}

func TestGPUCloseIdempotent(t *testing.T) {
	gpu := openGPU(t)
	if err := gpu.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := gpu.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if _, err := gpu.CreateGrid(compute.GridDescriptor{Resolution: 4, Format: compute.FormatR32Float}); !errors.Is(err, compute.ErrClosed) {
		t.Errorf("CreateGrid after Close error = %v, want ErrClosed", err)
	}
}

// provider stubs gpucontext.DeviceProvider without HAL accessors.
type provider struct{}

func TestNewFromProviderRequiresHAL(t *testing.T) {
	if _, err := newFromAny(provider{}); err == nil {
		t.Error("provider without HalDevice/HalQueue should be rejected")
	}
}
