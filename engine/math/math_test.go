package math

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func TestTransformationOrder(t *testing.T) {
	tr := mgl32.Vec3{1, 2, 3}
	rot := mgl32.Vec3{0, mgl32.DegToRad(90), 0}
	sc := mgl32.Vec3{2, 2, 2}

	m := Transformation(tr, rot, sc)
	// Scale first, then rotate 90 degrees about Y, then translate.
	p := mgl32.TransformCoordinate(mgl32.Vec3{1, 0, 0}, m)
	assert.InDelta(t, 1.0, p.X(), 1e-5)
	assert.InDelta(t, 2.0, p.Y(), 1e-5)
	assert.InDelta(t, 1.0, p.Z(), 1e-5)
}

func TestPerspectiveDepthRange(t *testing.T) {
	proj := Perspective(60, 1, 0.1, 100)
	near := proj.Mul4x1(mgl32.Vec4{0, 0, -0.1, 1})
	far := proj.Mul4x1(mgl32.Vec4{0, 0, -100, 1})
	assert.InDelta(t, 0.0, near.Z()/near.W(), 1e-5)
	assert.InDelta(t, 1.0, far.Z()/far.W(), 1e-4)

	up := proj.Mul4x1(mgl32.Vec4{0, 1, -1, 1})
	assert.Less(t, up.Y()/up.W(), float32(0), "Vulkan clip space Y points down")
}

func TestLightSpaceKeepsCenterInsideVolume(t *testing.T) {
	view, proj := LightSpace(mgl32.Vec3{0, -1, 0}, mgl32.Vec3{}, 10)
	c := proj.Mul4(view).Mul4x1(mgl32.Vec4{0, 0, 0, 1})
	ndc := c.Vec3().Mul(1 / c.W())
	assert.InDelta(t, 0.0, ndc.X(), 1e-5)
	assert.InDelta(t, 0.0, ndc.Y(), 1e-5)
	assert.Greater(t, ndc.Z(), float32(0))
	assert.Less(t, ndc.Z(), float32(1))
}

func TestClampAndPowerOfTwo(t *testing.T) {
	assert.Equal(t, 3, Clamp(7, 0, 3))
	assert.Equal(t, float32(-1), Clamp(float32(-4), -1, 1))
	assert.True(t, IsPowerOfTwo(uint32(8)))
	assert.False(t, IsPowerOfTwo(uint32(6)))
	assert.False(t, IsPowerOfTwo(0))
}
