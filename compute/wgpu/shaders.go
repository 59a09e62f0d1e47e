// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package wgpu

import (
	_ "embed"
	"fmt"

	"github.com/gogpu/naga"

	"github.com/gogpu/smoke/compute"
	"github.com/gogpu/smoke/internal/cache"
)

//go:embed shaders/prelude.wgsl
var preludeSource string

//go:embed shaders/init.wgsl
var initSource string

//go:embed shaders/advect.wgsl
var advectSource string

//go:embed shaders/inject.wgsl
var injectSource string

//go:embed shaders/diffuse.wgsl
var diffuseSource string

//go:embed shaders/divergence.wgsl
var divergenceSource string

//go:embed shaders/clear.wgsl
var clearSource string

//go:embed shaders/pressure.wgsl
var pressureSource string

//go:embed shaders/project.wgsl
var projectSource string

//go:embed shaders/boundary.wgsl
var boundarySource string

//go:embed shaders/raymarch.wgsl
var raymarchSource string

// kernelSource pairs a kernel with its WGSL body and workgroup size.
type kernelSource struct {
	body  string
	group [3]int
}

var kernelSources = map[string]kernelSource{
	compute.KernelInit:              {initSource, [3]int{4, 4, 4}},
	compute.KernelAdvect:            {advectSource, [3]int{4, 4, 4}},
	compute.KernelInject:            {injectSource, [3]int{4, 4, 4}},
	compute.KernelDiffuse:           {diffuseSource, [3]int{4, 4, 4}},
	compute.KernelDivergence:        {divergenceSource, [3]int{4, 4, 4}},
	compute.KernelClear:             {clearSource, [3]int{4, 4, 4}},
	compute.KernelPressure:          {pressureSource, [3]int{4, 4, 4}},
	compute.KernelProjectField:      {projectSource, [3]int{4, 4, 4}},
	compute.KernelBoundaryCondition: {boundarySource, [3]int{4, 4, 4}},
	compute.KernelRaymarch:          {raymarchSource, [3]int{8, 8, 1}},
}

// KernelWGSL returns the complete WGSL module of a kernel.
func KernelWGSL(name string) (string, bool) {
	src, ok := kernelSources[name]
	if !ok {
		return "", false
	}
	return preludeSource + "\n" + src.body, true
}

// spirvCache holds compiled kernels for the life of the process. Every
// Backend compiles the same embedded sources.
var spirvCache = cache.New[string, []uint32](32)

// compileKernel returns a kernel's SPIR-V words, compiling its WGSL on
// first use.
func compileKernel(name string) ([]uint32, error) {
	return spirvCache.GetOrCreate(name, func() ([]uint32, error) {
		return compileWGSL(name)
	})
}

func compileWGSL(name string) ([]uint32, error) {
	wgsl, ok := KernelWGSL(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", compute.ErrKernelNotFound, name)
	}
	spirvBytes, err := naga.Compile(wgsl)
	if err != nil {
		return nil, fmt.Errorf("wgpu: compile %s: %w", name, err)
	}

	// SPIR-V is little-endian 32-bit words.
	code := make([]uint32, len(spirvBytes)/4)
	for i := range code {
		code[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return code, nil
}
