package math

import (
	"github.com/go-gl/mathgl/mgl32"
)

// vulkanClip converts OpenGL clip space to Vulkan's: Y points down and depth spans [0, 1].
var vulkanClip = mgl32.Mat4{
	1, 0, 0, 0,
	0, -1, 0, 0,
	0, 0, 0.5, 0,
	0, 0, 0.5, 1,
}

// Perspective returns a Vulkan clip space projection. fovy is in degrees.
func Perspective(fovy, aspect, near, far float32) mgl32.Mat4 {
	return vulkanClip.Mul4(mgl32.Perspective(mgl32.DegToRad(fovy), aspect, near, far))
}

// Orthographic returns a Vulkan clip space orthographic projection.
func Orthographic(left, right, bottom, top, near, far float32) mgl32.Mat4 {
	return vulkanClip.Mul4(mgl32.Ortho(left, right, bottom, top, near, far))
}

// LightSpace builds the view and projection of a directional light that
// covers a sphere of the given radius around center.
func LightSpace(direction, center mgl32.Vec3, radius float32) (mgl32.Mat4, mgl32.Mat4) {
	dir := direction.Normalize()
	eye := center.Sub(dir.Mul(radius * 2))
	up := mgl32.Vec3{0, 1, 0}
	if NearlyEqual(Abs(dir.Dot(up)), 1, 1e-4) {
		up = mgl32.Vec3{0, 0, 1}
	}
	view := mgl32.LookAtV(eye, center, up)
	proj := Orthographic(-radius, radius, -radius, radius, radius*0.05, radius*4)
	return view, proj
}
