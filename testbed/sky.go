package testbed

import (
	"image"
	"image/color"

	"github.com/chewxy/math32"
)

var (
	zenith  = color.RGBA{R: 40, G: 90, B: 170, A: 255}
	horizon = color.RGBA{R: 200, G: 225, B: 240, A: 255}
	ground  = color.RGBA{R: 70, G: 65, B: 60, A: 255}
)

// gradientSky returns cube faces in +X -X +Y -Y +Z -Z order shading from
// zenith to horizon, with a flat ground color below.
func gradientSky(size int) [6]image.Image {
	var faces [6]image.Image
	for f := range faces {
		img := image.NewRGBA(image.Rect(0, 0, size, size))
		for y := 0; y < size; y++ {
			for x := 0; x < size; x++ {
				img.SetRGBA(x, y, skyColor(faceDirection(f, x, y, size)))
			}
		}
		faces[f] = img
	}
	return faces
}

// faceDirection returns the normalized y component of the direction
// through texel (x, y) of face f.
func faceDirection(f, x, y, size int) float32 {
	v := 1 - 2*(float32(y)+0.5)/float32(size)
	switch f {
	case 2:
		return 1 / math32.Sqrt(1+sq(2*(float32(x)+0.5)/float32(size)-1)+sq(v))
	case 3:
		return -1 / math32.Sqrt(1+sq(2*(float32(x)+0.5)/float32(size)-1)+sq(v))
	}
	u := 2*(float32(x)+0.5)/float32(size) - 1
	return v / math32.Sqrt(1+u*u+v*v)
}

func sq(v float32) float32 { return v * v }

func skyColor(up float32) color.RGBA {
	if up < 0 {
		return ground
	}
	t := math32.Sqrt(up)
	mix := func(a, b uint8) uint8 {
		return uint8(float32(a)*(1-t) + float32(b)*t)
	}
	return color.RGBA{R: mix(horizon.R, zenith.R), G: mix(horizon.G, zenith.G), B: mix(horizon.B, zenith.B), A: 255}
}
