package loaders

import (
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/cockroachdb/errors"
	"golang.org/x/image/draw"
)

type ImageResourceParams struct {
	// FlipY stores the rows bottom-up.
	FlipY bool
}

/**
 * @brief Decoded image pixels, always RGBA8.
 */
type ImageData struct {
	Width  uint32
	Height uint32
	Pixels []byte
}

type ImageLoader struct{}

func (il *ImageLoader) Load(path string, params interface{}) (*Resource, error) {
	var flip bool
	if p, ok := params.(*ImageResourceParams); ok && p != nil {
		flip = p.FlipY
	}
	img, err := DecodeImageFile(path)
	if err != nil {
		return nil, err
	}
	data := toImageData(img, flip)
	return &Resource{
		Name:     "image",
		FullPath: path,
		Type:     ResourceTypeImage,
		DataSize: uint64(len(data.Pixels)),
		Data:     data,
	}, nil
}

// DecodeImageFile decodes a PNG or JPEG file.
func DecodeImageFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening image")
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "decoding image %s", path)
	}
	return img, nil
}

// toRGBA copies src into a tightly packed RGBA image with origin (0,0).
func toRGBA(src image.Image) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return dst
}

// scaleRGBA resamples src to width x height.
func scaleRGBA(src image.Image, width, height int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}

func toImageData(img image.Image, flip bool) *ImageData {
	rgba := toRGBA(img)
	w, h := rgba.Rect.Dx(), rgba.Rect.Dy()
	pixels := rgba.Pix
	if flip {
		pixels = make([]byte, len(rgba.Pix))
		row := w * 4
		for y := 0; y < h; y++ {
			copy(pixels[(h-1-y)*row:(h-y)*row], rgba.Pix[y*rgba.Stride:y*rgba.Stride+row])
		}
	}
	return &ImageData{Width: uint32(w), Height: uint32(h), Pixels: pixels}
}
