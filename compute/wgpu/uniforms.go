// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package wgpu

import (
	"encoding/binary"
	"math"

	"github.com/gogpu/smoke/compute"
)

// paramsSize is the byte size of the WGSL Params uniform block.
const paramsSize = 224

// Byte offsets of Params fields.
const (
	offDT             = 0
	offResolution     = 4
	offViscosity      = 8
	offTime           = 12
	offVelocity       = 16
	offInjectRadius   = 20
	offInjectDensity  = 24
	offDensity        = 28
	offShadowAmount   = 32
	offDebugView      = 36
	offRaymarchSteps  = 40
	offImageWidth     = 44
	offImageHeight    = 48
	offDecay          = 64
	offInjectPosition = 80
	offCameraToWorld  = 96
	offInvProjection  = 160
)

// uniformState holds the service-wide uniforms set through the Service API.
type uniformState struct {
	floats  map[string]float32
	ints    map[string]int32
	vectors map[string][4]float32
	mats    map[string][16]float32
}

func newUniformState() uniformState {
	return uniformState{
		floats:  make(map[string]float32),
		ints:    make(map[string]int32),
		vectors: make(map[string][4]float32),
		mats:    make(map[string][16]float32),
	}
}

// pack lays the current uniforms out as the Params block for a dispatch
// over a grid of the given resolution and an image of the given size.
func (u *uniformState) pack(resolution, width, height int) []byte {
	buf := make([]byte, paramsSize)
	putF := func(off int, v float32) {
		binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(v))
	}
	putU := func(off int, v uint32) {
		binary.LittleEndian.PutUint32(buf[off:], v)
	}

	putF(offDT, u.floats[compute.UniformDT])
	putU(offResolution, uint32(resolution)) //nolint:gosec // resolution validated positive
	putF(offViscosity, u.floats[compute.UniformViscosity])
	putF(offTime, u.floats[compute.UniformTime])
	putF(offVelocity, u.floats[compute.UniformVelocity])
	putF(offInjectRadius, u.floats[compute.UniformInjectRadius])
	putF(offInjectDensity, u.floats[compute.UniformInjectDensity])
	putF(offDensity, u.floats[compute.UniformDensity])
	putF(offShadowAmount, u.floats[compute.UniformShadowAmount])
	putU(offDebugView, uint32(max(u.ints[compute.UniformDebugView], 0)))
	putU(offRaymarchSteps, uint32(max(u.ints[compute.UniformRaymarchSteps], 0)))
	putU(offImageWidth, uint32(width))   //nolint:gosec // image size validated positive
	putU(offImageHeight, uint32(height)) //nolint:gosec // image size validated positive

	for i, v := range u.vectors[compute.UniformDecay] {
		putF(offDecay+4*i, v)
	}
	for i, v := range u.vectors[compute.UniformInjectPosition] {
		putF(offInjectPosition+4*i, v)
	}
	for i, v := range u.mats[compute.UniformCameraToWorld] {
		putF(offCameraToWorld+4*i, v)
	}
	for i, v := range u.mats[compute.UniformCameraInverseProjection] {
		putF(offInvProjection+4*i, v)
	}
	return buf
}

func float32sToBytes(v []float32) []byte {
	out := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(f))
	}
	return out
}

func bytesToFloat32s(b []byte) []float32 {
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out
}
