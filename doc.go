// Package smoke simulates smoke in a cubic volume and raymarches it into
// images.
//
// # Overview
//
// A velocity field on an R³ grid carries a density in its fourth channel.
// Every frame a fixed sequence of compute kernels advects the field, adds
// the smoke source when asked, diffuses it, projects it towards zero
// divergence with Jacobi pressure iterations and clamps the outer shell.
// A renderer then raymarches the density (or, for debugging, the pressure
// or divergence) into a color image.
//
// # Quick Start
//
//	import (
//	    "github.com/gogpu/smoke"
//	    _ "github.com/gogpu/smoke/compute/wgpu" // optional GPU backend
//	)
//
//	sim, err := smoke.New(smoke.WithResolution(64))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer sim.Close()
//
//	if err := sim.Start(); err != nil {
//	    log.Fatal(err)
//	}
//	img := render.NewPixmapTarget(512, 512)
//	for frame := 0; frame < 300; frame++ {
//	    if err := sim.Frame(1.0/60, frame < 120); err != nil {
//	        log.Fatal(err)
//	    }
//	}
//	_ = sim.Render(img)
//
// # Backends
//
// Kernels run on a compute.Service. The cpu backend is always available;
// importing compute/wgpu registers a Vulkan backend that Default prefers.
// A host that already owns a GPU device passes a service built with
// wgpu.NewFromProvider through WithService.
//
// # Architecture
//
//   - compute: service contract, binding table, backend registry
//   - compute/cpu, compute/wgpu: kernel implementations
//   - grid: double-buffered grids and per-frame uniforms
//   - kernel: kernel names resolved once at startup
//   - solver: the per-frame stage sequence
//   - render: camera and raymarch renderer
//   - diag: read-back statistics and slice images
//   - host: key trigger and frame clock
//
// # Logging
//
// smoke is silent by default. See SetLogger.
package smoke
