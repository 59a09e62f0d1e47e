// Package compute defines the kernel-execution service the smoke simulation
// runs on.
//
// A [Service] owns GPU-resident 3D grids and 2D images, exposes named kernel
// entry points, accepts per-kernel resource bindings and service-wide scalar
// uniforms, and executes dispatches by thread-group count. The fluid solver
// and the volumetric renderer only ever talk to a Service; they never touch
// cell data directly.
//
// # Resources
//
// Resources are referred to by opaque IDs ([GridID], [ImageID], [KernelID]).
// Each backend keeps the mapping between IDs and its native objects. The
// zero ID is always invalid.
//
// # Binding contract
//
// [Bindings] lists, for every kernel, the slots it declares and whether the
// kernel reads or writes them. Every declared slot must be bound before a
// dispatch. A dispatch that binds one grid to a read slot and a write slot at
// the same time is rejected with [ErrAliasedBinding]; this is the
// no-read-write-same-resource rule of GPU compute made explicit.
//
// # Backends
//
// Backends register a [Factory] with [Register], usually from an init
// function:
//
//	import _ "github.com/gogpu/smoke/compute/cpu"  // always available
//	import _ "github.com/gogpu/smoke/compute/wgpu" // Vulkan via gogpu/wgpu
//
//	svc, err := compute.Open("")  // best available backend
package compute
