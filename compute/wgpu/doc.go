// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package wgpu runs the smoke kernels on the GPU through gogpu/wgpu's HAL.
//
// Kernels are WGSL compute shaders compiled to SPIR-V with gogpu/naga.
// Grids and images are storage buffers; every dispatch snapshots the
// service-wide uniforms into a small uniform buffer so that a batch of
// recorded passes sees the values that were current when each pass was
// issued. Passes are recorded into one command encoder and submitted when a
// grid or image is read back, when the batch grows large, or on Close.
//
// Importing the package registers the "wgpu" backend, which opens the first
// Vulkan adapter. Use [NewFromProvider] to share a device owned by a host
// application:
//
//	import _ "github.com/gogpu/smoke/compute/wgpu"
//
// Build with -tags nogpu to leave the backend out.
package wgpu
