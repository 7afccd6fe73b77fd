package loaders

import (
	"image"

	"github.com/cockroachdb/errors"
)

// CubeFaceNames lists the faces in Vulkan layer order.
var CubeFaceNames = [6]string{"right", "left", "top", "bottom", "front", "back"}

/**
 * @brief Six square RGBA8 faces of the same size.
 */
type CubeData struct {
	Size  uint32
	Faces [6][]byte
}

// LoadCube decodes the six faces of a cubemap. The first face must be
// square and sets the size; the other faces are resampled to it.
func LoadCube(paths [6]string) (*CubeData, error) {
	var faces [6]image.Image
	for i, p := range paths {
		img, err := DecodeImageFile(p)
		if err != nil {
			return nil, errors.Wrapf(err, "cube face %s", CubeFaceNames[i])
		}
		faces[i] = img
	}
	return BuildCube(faces)
}

func BuildCube(faces [6]image.Image) (*CubeData, error) {
	b := faces[0].Bounds()
	if b.Dx() != b.Dy() || b.Dx() == 0 {
		return nil, errors.Newf("cube face %s is %dx%d, want a non-empty square", CubeFaceNames[0], b.Dx(), b.Dy())
	}
	size := b.Dx()
	cube := &CubeData{Size: uint32(size)}
	for i, face := range faces {
		fb := face.Bounds()
		var rgba *image.RGBA
		if fb.Dx() == size && fb.Dy() == size {
			rgba = toRGBA(face)
		} else {
			rgba = scaleRGBA(face, size, size)
		}
		cube.Faces[i] = rgba.Pix
	}
	return cube, nil
}
