// Package kernel resolves the simulation's closed set of compute kernels
// once at startup and hands out their ids afterwards.
package kernel

import (
	"errors"
	"fmt"

	"github.com/gogpu/smoke/compute"
	"github.com/gogpu/smoke/internal/logging"
)

// ErrKernelNotFound is returned by Resolve when the service lacks a kernel.
var ErrKernelNotFound = errors.New("kernel: not found")

// Name identifies one kernel of the vocabulary.
type Name int

// Kernels, in resolution order.
const (
	Init Name = iota
	Advect
	Inject
	Diffuse
	Divergence
	ProjectField
	Pressure
	Clear
	BoundaryCondition
	Raymarch

	// Count is the number of kernels.
	Count
)

var entryPoints = [Count]string{
	Init:              compute.KernelInit,
	Advect:            compute.KernelAdvect,
	Inject:            compute.KernelInject,
	Diffuse:           compute.KernelDiffuse,
	Divergence:        compute.KernelDivergence,
	ProjectField:      compute.KernelProjectField,
	Pressure:          compute.KernelPressure,
	Clear:             compute.KernelClear,
	BoundaryCondition: compute.KernelBoundaryCondition,
	Raymarch:          compute.KernelRaymarch,
}

// Simulation is the set the fluid solver needs.
var Simulation = []Name{Init, Advect, Inject, Diffuse, Divergence, ProjectField, Pressure, Clear, BoundaryCondition}

// All is every kernel, solver plus renderer.
var All = append(append([]Name(nil), Simulation...), Raymarch)

// String returns the kernel's entry point name.
func (n Name) String() string {
	if n < 0 || n >= Count {
		return fmt.Sprintf("Name(%d)", int(n))
	}
	return entryPoints[n]
}

// Registry maps kernel names to resolved ids. It is immutable after Resolve.
type Registry struct {
	svc      compute.Service
	ids      [Count]compute.KernelID
	resolved [Count]bool
	groups   [Count][3]int
}

// Resolve looks up every named kernel on svc. The first missing kernel
// aborts with ErrKernelNotFound naming it.
func Resolve(svc compute.Service, names ...Name) (*Registry, error) {
	r := &Registry{svc: svc}
	for _, n := range names {
		if n < 0 || n >= Count {
			return nil, fmt.Errorf("%w: %s", ErrKernelNotFound, n)
		}
		if r.resolved[n] {
			continue
		}
		id, err := svc.FindKernel(n.String())
		if err != nil {
			return nil, fmt.Errorf("%w: %s on %s backend: %w", ErrKernelNotFound, n, svc.Name(), err)
		}
		x, y, z := svc.ThreadGroupSize(id)
		r.ids[n], r.resolved[n], r.groups[n] = id, true, [3]int{x, y, z}
	}
	logging.Logger().Info("kernel: resolved", "count", len(names), "backend", svc.Name())
	return r, nil
}

// Lookup returns the id of a resolved kernel. Looking up a kernel that was
// not resolved is a programming error and panics.
func (r *Registry) Lookup(n Name) compute.KernelID {
	if n < 0 || n >= Count || !r.resolved[n] {
		panic(fmt.Sprintf("kernel: lookup of unresolved kernel %s", n))
	}
	return r.ids[n]
}

// Has reports whether n was resolved.
func (r *Registry) Has(n Name) bool {
	return n >= 0 && n < Count && r.resolved[n]
}

// GroupCount returns the thread groups needed to cover cells invocations
// along each axis with the kernel's declared group size. Every axis gets at
// least one group.
func (r *Registry) GroupCount(n Name, cells [3]int) (x, y, z int) {
	r.Lookup(n)
	g := r.groups[n]
	return max(compute.GroupCount(cells[0], g[0]), 1),
		max(compute.GroupCount(cells[1], g[1]), 1),
		max(compute.GroupCount(cells[2], g[2]), 1)
}
