// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package wgpu

import (
	"strings"
	"testing"

	"github.com/gogpu/smoke/compute"
)

func TestKernelSourcesCoverBindings(t *testing.T) {
	for name := range compute.Bindings {
		if _, ok := kernelSources[name]; !ok {
			t.Errorf("no WGSL for kernel %s", name)
		}
	}
	if len(kernelSources) != len(compute.Bindings) {
		t.Errorf("len(kernelSources) = %d, want %d", len(kernelSources), len(compute.Bindings))
	}
}

// TestKernelBindingsMatchWGSL checks that every declared slot appears in the
// shader at the binding index the backend will use.
func TestKernelBindingsMatchWGSL(t *testing.T) {
	for name, decl := range compute.Bindings {
		wgsl, _ := KernelWGSL(name)
		for _, e := range layoutEntries(name) {
			tag := "@binding(" + itoa(int(e.Binding)) + ")"
			if !strings.Contains(wgsl, tag) {
				t.Errorf("%s: WGSL has no %s for %d declared slots", name, tag, len(decl))
			}
		}
		if !strings.Contains(wgsl, "@workgroup_size("+itoa(kernelSources[name].group[0])) {
			t.Errorf("%s: workgroup size does not match %v", name, kernelSources[name].group)
		}
	}
}

func itoa(n int) string {
	if n < 10 {
		return string(rune('0' + n))
	}
	return itoa(n/10) + string(rune('0'+n%10))
}

func TestKernelsCompile(t *testing.T) {
	for name := range kernelSources {
		t.Run(name, func(t *testing.T) {
			code, err := compileKernel(name)
			if err != nil {
				// naga does not yet lower every WGSL construct.
				t.Skipf("Skipping: naga limitation: %v", err)
			}
			if len(code) < 5 {
				t.Fatalf("SPIR-V length %d words", len(code))
			}
			if code[0] != 0x07230203 {
				t.Errorf("SPIR-V magic = %#x, want 0x07230203", code[0])
			}
		})
	}
}

func TestCompileUnknownKernel(t *testing.T) {
	if _, err := compileKernel("Vorticity"); err == nil {
		t.Error("compileKernel(Vorticity) should fail")
	}
}

func TestCompileCached(t *testing.T) {
	first, err := compileKernel("Diffuse")
	if err != nil {
		t.Skipf("Skipping: naga limitation: %v", err)
	}
	second, err := compileKernel("Diffuse")
	if err != nil {
		t.Fatal(err)
	}
	if &first[0] != &second[0] {
		t.Error("second compile did not come from the cache")
	}
	if _, ok := spirvCache.Get("Vorticity"); ok {
		t.Error("failed compile was cached")
	}
}
