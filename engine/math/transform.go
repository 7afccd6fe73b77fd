package math

import "github.com/go-gl/mathgl/mgl32"

// Transformation composes a model matrix as Translate(t) * RotateX(r.X) *
// RotateY(r.Y) * RotateZ(r.Z) * Scale(s). Rotation angles are in radians.
func Transformation(translation, rotation, scale mgl32.Vec3) mgl32.Mat4 {
	return mgl32.Translate3D(translation.X(), translation.Y(), translation.Z()).
		Mul4(mgl32.HomogRotate3DX(rotation.X())).
		Mul4(mgl32.HomogRotate3DY(rotation.Y())).
		Mul4(mgl32.HomogRotate3DZ(rotation.Z())).
		Mul4(mgl32.Scale3D(scale.X(), scale.Y(), scale.Z()))
}
