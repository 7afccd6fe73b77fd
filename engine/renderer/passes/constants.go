package passes

import (
	"encoding/binary"

	"github.com/cockroachdb/errors"
)

// DrawConstantsSize is the encoded size of DrawConstants.
const DrawConstantsSize = 48

// DrawConstants is the push block shared by every pipeline. Addresses point
// at GPU records; zero means unused by the draw.
type DrawConstants struct {
	Transform    uint64
	Camera       uint64
	Light        uint64
	LightCamera  uint64
	Skybox       uint64
	SamplerIndex uint32
}

// Bytes encodes the block little-endian, padded to DrawConstantsSize.
func (c DrawConstants) Bytes() []byte {
	out := make([]byte, DrawConstantsSize)
	binary.LittleEndian.PutUint64(out[0:], c.Transform)
	binary.LittleEndian.PutUint64(out[8:], c.Camera)
	binary.LittleEndian.PutUint64(out[16:], c.Light)
	binary.LittleEndian.PutUint64(out[24:], c.LightCamera)
	binary.LittleEndian.PutUint64(out[32:], c.Skybox)
	binary.LittleEndian.PutUint32(out[40:], c.SamplerIndex)
	return out
}

func DecodeDrawConstants(data []byte) (DrawConstants, error) {
	if len(data) < DrawConstantsSize {
		return DrawConstants{}, errors.Newf("push block is %d bytes, want %d", len(data), DrawConstantsSize)
	}
	return DrawConstants{
		Transform:    binary.LittleEndian.Uint64(data[0:]),
		Camera:       binary.LittleEndian.Uint64(data[8:]),
		Light:        binary.LittleEndian.Uint64(data[16:]),
		LightCamera:  binary.LittleEndian.Uint64(data[24:]),
		Skybox:       binary.LittleEndian.Uint64(data[32:]),
		SamplerIndex: binary.LittleEndian.Uint32(data[40:]),
	}, nil
}
