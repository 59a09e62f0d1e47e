package render

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Camera is a perspective pinhole camera. The simulation volume occupies
// the unit cube centred at the origin.
type Camera struct {
	Position mgl32.Vec3
	Target   mgl32.Vec3
	Up       mgl32.Vec3

	// FovY is the vertical field of view in degrees.
	FovY float32
	Near float32
	Far  float32
}

// DefaultCamera looks at the volume from the front, slightly above.
func DefaultCamera() Camera {
	return Camera{
		Position: mgl32.Vec3{0, 0.4, 1.6},
		Target:   mgl32.Vec3{0, 0, 0},
		Up:       mgl32.Vec3{0, 1, 0},
		FovY:     45,
		Near:     0.05,
		Far:      100,
	}
}

// View returns the world-to-camera matrix.
func (c Camera) View() mgl32.Mat4 {
	return mgl32.LookAtV(c.Position, c.Target, c.Up)
}

// ToWorld returns the camera-to-world matrix.
func (c Camera) ToWorld() mgl32.Mat4 {
	return c.View().Inv()
}

// Projection returns the perspective projection for the given aspect ratio
// (width / height).
func (c Camera) Projection(aspect float32) mgl32.Mat4 {
	if aspect <= 0 {
		aspect = 1
	}
	return mgl32.Perspective(mgl32.DegToRad(c.FovY), aspect, c.Near, c.Far)
}

// InverseProjection returns the inverse of Projection(aspect).
func (c Camera) InverseProjection(aspect float32) mgl32.Mat4 {
	return c.Projection(aspect).Inv()
}

// Orbit returns the camera rotated about Target around the Up axis by
// angle radians.
func (c Camera) Orbit(angle float32) Camera {
	rot := mgl32.HomogRotate3D(angle, c.Up.Normalize())
	offset := c.Position.Sub(c.Target)
	c.Position = c.Target.Add(rot.Mul4x1(offset.Vec4(0)).Vec3())
	return c
}
