// Package cpu is the reference compute.Service. Grids live in host memory
// and every kernel runs on a worker pool, split into z-slabs (rows for the
// raymarch kernel). Numerics match the WGSL kernels of compute/wgpu.
//
// Importing the package registers the "cpu" backend:
//
//	import _ "github.com/gogpu/smoke/compute/cpu"
package cpu
