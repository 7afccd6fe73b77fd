package metadata

import (
	"encoding/binary"

	"github.com/go-gl/mathgl/mgl32"
)

// GPU records are read by shaders through buffer device addresses. Layouts
// follow std430: vec3 fields are padded to 16 bytes.

const (
	TransformRecordSize   = 64
	CameraRecordSize      = 3*64 + 16
	LightRecordSize       = 32
	LightCameraRecordSize = 64
	SkyboxRecordSize      = 16
)

/** @brief Per-frame camera data. */
type CameraRecord struct {
	View           mgl32.Mat4
	Projection     mgl32.Mat4
	ViewProjection mgl32.Mat4
	Position       mgl32.Vec3
}

func (r CameraRecord) Bytes() []byte {
	out := make([]byte, CameraRecordSize)
	putFloats(out, r.View[:]...)
	putFloats(out[64:], r.Projection[:]...)
	putFloats(out[128:], r.ViewProjection[:]...)
	putFloats(out[192:], r.Position[:]...)
	return out
}

/** @brief A directional light. Color.w holds the intensity. */
type LightRecord struct {
	Direction mgl32.Vec3
	Color     mgl32.Vec4
}

func (r LightRecord) Bytes() []byte {
	out := make([]byte, LightRecordSize)
	putFloats(out, r.Direction[:]...)
	putFloats(out[16:], r.Color[:]...)
	return out
}

// MatrixBytes encodes a column-major matrix, as used by the transform and
// light-camera records.
func MatrixBytes(m mgl32.Mat4) []byte {
	out := make([]byte, 64)
	putFloats(out, m[:]...)
	return out
}

/** @brief Selects the cubemap the skybox samples. */
type SkyboxRecord struct {
	CubeSlot uint32
}

func (r SkyboxRecord) Bytes() []byte {
	out := make([]byte, SkyboxRecordSize)
	binary.LittleEndian.PutUint32(out, r.CubeSlot)
	return out
}
