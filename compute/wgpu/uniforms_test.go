// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package wgpu

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/gogpu/smoke/compute"
)

func TestUniformPackLayout(t *testing.T) {
	u := newUniformState()
	u.floats[compute.UniformDT] = 0.25
	u.floats[compute.UniformShadowAmount] = 3
	u.ints[compute.UniformDebugView] = 2
	u.ints[compute.UniformRaymarchSteps] = -4
	u.vectors[compute.UniformDecay] = [4]float32{0.1, 0.2, 0, 0}
	var m [16]float32
	m[15] = 7
	u.mats[compute.UniformCameraInverseProjection] = m

	buf := u.pack(32, 640, 480)
	if len(buf) != paramsSize {
		t.Fatalf("len = %d, want %d", len(buf), paramsSize)
	}
	f := func(off int) float32 { return math.Float32frombits(binary.LittleEndian.Uint32(buf[off:])) }
	n := func(off int) uint32 { return binary.LittleEndian.Uint32(buf[off:]) }

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"dt", float64(f(offDT)), 0.25},
		{"resolution", float64(n(offResolution)), 32},
		{"shadow", float64(f(offShadowAmount)), 3},
		{"debugView", float64(n(offDebugView)), 2},
		{"raymarchSteps clamps negative", float64(n(offRaymarchSteps)), 0},
		{"width", float64(n(offImageWidth)), 640},
		{"height", float64(n(offImageHeight)), 480},
		{"decay.y", float64(f(offDecay + 4)), float64(float32(0.2))},
		{"invProj[15]", float64(f(offInvProjection + 60)), 7},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}
	if offInvProjection+64 != paramsSize {
		t.Errorf("Params block ends at %d, want %d", offInvProjection+64, paramsSize)
	}
}

func TestFloatBytesRoundTrip(t *testing.T) {
	in := []float32{0, -1.5, 3.25, float32(math.Inf(1))}
	out := bytesToFloat32s(float32sToBytes(in))
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("[%d] = %v, want %v", i, out[i], in[i])
		}
	}
}
