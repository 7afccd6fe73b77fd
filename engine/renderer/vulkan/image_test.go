package vulkan

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
)

func TestViewTypeForLayers(t *testing.T) {
	viewType, flags := viewTypeForLayers(1)
	assert.Equal(t, vk.ImageViewType2d, viewType)
	assert.Zero(t, flags)

	viewType, flags = viewTypeForLayers(6)
	assert.Equal(t, vk.ImageViewTypeCube, viewType)
	assert.Equal(t, vk.ImageCreateFlags(vk.ImageCreateCubeCompatibleBit), flags)

	assert.Panics(t, func() { viewTypeForLayers(2) })
	assert.Panics(t, func() { NewHostImage(ImageConfig{Name: "bad", Layers: 3}) })
}

func TestHostImageDefaults(t *testing.T) {
	img := NewHostImage(ImageConfig{
		Name:   "depth",
		Format: vk.FormatD32Sfloat,
		Width:  4,
		Height: 4,
		Aspect: vk.ImageAspectFlags(vk.ImageAspectDepthBit),
	})
	assert.Equal(t, uint32(1), img.Layers)
	assert.Equal(t, vk.SampleCount1Bit, img.Samples)
	assert.True(t, img.IsDepth())
	assert.True(t, img.Owned())

	img.Destroy()
	assert.Panics(t, img.Destroy)
}
