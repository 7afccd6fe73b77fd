package vulkan

import (
	"math"
	"testing"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/stretchr/testify/assert"
)

func TestChooseSurfaceFormat(t *testing.T) {
	preferred := vk.SurfaceFormat{Format: vk.FormatB8g8r8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear}
	other := vk.SurfaceFormat{Format: vk.FormatR8g8b8a8Srgb, ColorSpace: vk.ColorSpaceSrgbNonlinear}

	assert.Equal(t, preferred, chooseSurfaceFormat([]vk.SurfaceFormat{other, preferred}))
	assert.Equal(t, other, chooseSurfaceFormat([]vk.SurfaceFormat{other}))
}

func TestChoosePresentMode(t *testing.T) {
	modes := []vk.PresentMode{vk.PresentModeFifo, vk.PresentModeMailbox}
	assert.Equal(t, vk.PresentModeMailbox, choosePresentMode(modes, false))
	assert.Equal(t, vk.PresentModeFifo, choosePresentMode(modes, true))
	assert.Equal(t, vk.PresentModeFifo, choosePresentMode([]vk.PresentMode{vk.PresentModeImmediate}, false))
}

func TestChooseExtent(t *testing.T) {
	caps := vk.SurfaceCapabilities{
		CurrentExtent:  vk.Extent2D{Width: math.MaxUint32, Height: math.MaxUint32},
		MinImageExtent: vk.Extent2D{Width: 64, Height: 64},
		MaxImageExtent: vk.Extent2D{Width: 1920, Height: 1080},
	}
	assert.Equal(t, vk.Extent2D{Width: 1280, Height: 720}, chooseExtent(caps, 1280, 720))
	assert.Equal(t, vk.Extent2D{Width: 1920, Height: 64}, chooseExtent(caps, 4000, 10))

	caps.CurrentExtent = vk.Extent2D{Width: 800, Height: 600}
	assert.Equal(t, vk.Extent2D{Width: 800, Height: 600}, chooseExtent(caps, 1280, 720))
}

func TestChooseImageCount(t *testing.T) {
	assert.Equal(t, uint32(2), chooseImageCount(vk.SurfaceCapabilities{MinImageCount: 2}))
	assert.Equal(t, uint32(3), chooseImageCount(vk.SurfaceCapabilities{MinImageCount: 4, MaxImageCount: 3}))
}

func TestAcquireError(t *testing.T) {
	assert.NoError(t, acquireError(vk.Success, 1000))
	assert.NoError(t, acquireError(vk.Suboptimal, 1000))

	for _, result := range []vk.Result{vk.Timeout, vk.NotReady} {
		err := acquireError(result, 1000)
		assert.True(t, errors.Is(err, core.ErrFrameTimeout), "result %d", result)
		assert.False(t, errors.Is(err, core.ErrSwapchainBooting))
	}

	assert.True(t, errors.Is(acquireError(vk.ErrorOutOfDate, 1000), core.ErrSwapchainBooting))
	assert.False(t, errors.Is(acquireError(vk.ErrorDeviceLost, 1000), core.ErrFrameTimeout))
}
