package vulkan

import (
	"fmt"
	"math"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/lumen/engine/core"
	lmath "github.com/spaghettifunk/lumen/engine/math"
)

type SwapchainSupportInfo struct {
	Capabilities vk.SurfaceCapabilities
	Formats      []vk.SurfaceFormat
	PresentModes []vk.PresentMode
}

type Swapchain struct {
	Handle      vk.Swapchain
	ImageFormat vk.SurfaceFormat
	PresentMode vk.PresentMode
	Extent      vk.Extent2D
	ImageCount  uint32
	// Images are owned by the swapchain; only their views are ours.
	Images []*Image

	context   *Context
	forceFifo bool
}

// NewSwapchain creates a swapchain sized to width x height, clamped to what
// the surface supports.
func NewSwapchain(context *Context, width, height uint32, forceFifo bool) (*Swapchain, error) {
	sc := &Swapchain{context: context, forceFifo: forceFifo}
	if err := sc.create(width, height, vk.NullSwapchain); err != nil {
		return nil, err
	}
	return sc, nil
}

// Recreate rebuilds the swapchain in place. The caller must ensure the
// device is idle.
func (sc *Swapchain) Recreate(width, height uint32) error {
	old := sc.Handle
	sc.destroyViews()
	if err := sc.create(width, height, old); err != nil {
		return err
	}
	if old != vk.NullSwapchain {
		vk.DestroySwapchain(sc.context.Device.LogicalDevice, old, sc.context.Allocator)
	}
	return nil
}

func (sc *Swapchain) Destroy() {
	core.Assert(sc.Handle != vk.NullSwapchain, "swapchain destroyed twice")
	sc.destroyViews()
	vk.DestroySwapchain(sc.context.Device.LogicalDevice, sc.Handle, sc.context.Allocator)
	sc.Handle = vk.NullSwapchain
}

// AcquireNextImage returns the index of the next presentable image. An
// out-of-date swapchain yields core.ErrSwapchainBooting and a timeout yields
// core.ErrFrameTimeout.
func (sc *Swapchain) AcquireNextImage(timeoutNS uint64, imageAvailable *Semaphore) (uint32, error) {
	var index uint32
	result := vk.AcquireNextImage(sc.context.Device.LogicalDevice, sc.Handle, timeoutNS, imageAvailable.Handle, vk.NullFence, &index)
	if err := acquireError(result, timeoutNS); err != nil {
		return 0, err
	}
	return index, nil
}

func acquireError(result vk.Result, timeoutNS uint64) error {
	switch result {
	case vk.Success:
		return nil
	case vk.Suboptimal:
		// The image is still usable; present reports suboptimal again and
		// triggers the rebuild there.
		return nil
	case vk.Timeout, vk.NotReady:
		return errors.Mark(errors.Newf("no swapchain image after %dns", timeoutNS), core.ErrFrameTimeout)
	default:
		return resultError(result, "vkAcquireNextImageKHR")
	}
}

// Present queues image index for presentation once renderComplete is signaled.
func (sc *Swapchain) Present(queue *Queue, renderComplete *Semaphore, index uint32) error {
	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{renderComplete.Handle},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{sc.Handle},
		PImageIndices:      []uint32{index},
	}
	return queue.locks.SafeQueueCall(queue.Family, func() error {
		return resultError(vk.QueuePresent(queue.Handle, &presentInfo), "vkQueuePresentKHR")
	})
}

func (sc *Swapchain) create(width, height uint32, old vk.Swapchain) error {
	context := sc.context
	support, err := DeviceQuerySwapchainSupport(context.Device.PhysicalDevice, context.Surface)
	if err != nil {
		return err
	}
	if len(support.Formats) == 0 || len(support.PresentModes) == 0 {
		return errors.Mark(errors.New("surface reports no formats or present modes"), core.ErrFeatureMissing)
	}
	context.Device.SwapchainSupport = support

	sc.ImageFormat = chooseSurfaceFormat(support.Formats)
	sc.PresentMode = choosePresentMode(support.PresentModes, sc.forceFifo)
	sc.Extent = chooseExtent(support.Capabilities, width, height)
	imageCount := chooseImageCount(support.Capabilities)

	info := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          context.Surface,
		MinImageCount:    imageCount,
		ImageFormat:      sc.ImageFormat.Format,
		ImageColorSpace:  sc.ImageFormat.ColorSpace,
		ImageExtent:      sc.Extent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		PreTransform:     support.Capabilities.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      sc.PresentMode,
		Clipped:          vk.True,
		OldSwapchain:     old,
	}

	// Setup the queue family indices
	families := context.Device.QueueFamilies
	if families.GraphicsFamilyIndex != families.PresentFamilyIndex {
		info.ImageSharingMode = vk.SharingModeConcurrent
		info.QueueFamilyIndexCount = 2
		info.PQueueFamilyIndices = []uint32{families.GraphicsFamilyIndex, families.PresentFamilyIndex}
	} else {
		info.ImageSharingMode = vk.SharingModeExclusive
	}

	var handle vk.Swapchain
	if err := resultError(vk.CreateSwapchain(context.Device.LogicalDevice, &info, context.Allocator, &handle), "vkCreateSwapchainKHR"); err != nil {
		return err
	}
	sc.Handle = handle

	var count uint32
	if err := resultError(vk.GetSwapchainImages(context.Device.LogicalDevice, sc.Handle, &count, nil), "vkGetSwapchainImagesKHR"); err != nil {
		return err
	}
	handles := make([]vk.Image, count)
	if err := resultError(vk.GetSwapchainImages(context.Device.LogicalDevice, sc.Handle, &count, handles), "vkGetSwapchainImagesKHR"); err != nil {
		return err
	}
	sc.ImageCount = count
	sc.Images = make([]*Image, count)
	for i, h := range handles {
		img, err := context.WrapSwapchainImage(fmt.Sprintf("swapchain-%d", i), h, sc.ImageFormat.Format, sc.Extent.Width, sc.Extent.Height)
		if err != nil {
			return err
		}
		sc.Images[i] = img
	}

	core.LogInfo("Swapchain created: %dx%d, %d images, present mode %d.", sc.Extent.Width, sc.Extent.Height, count, sc.PresentMode)
	return nil
}

func (sc *Swapchain) destroyViews() {
	for _, img := range sc.Images {
		img.Destroy()
	}
	sc.Images = nil
	sc.ImageCount = 0
}

func chooseSurfaceFormat(formats []vk.SurfaceFormat) vk.SurfaceFormat {
	for _, format := range formats {
		// Preferred formats
		if format.Format == vk.FormatB8g8r8a8Unorm && format.ColorSpace == vk.ColorSpaceSrgbNonlinear {
			return format
		}
	}
	return formats[0]
}

func choosePresentMode(modes []vk.PresentMode, forceFifo bool) vk.PresentMode {
	if forceFifo {
		return vk.PresentModeFifo
	}
	for _, mode := range modes {
		if mode == vk.PresentModeMailbox {
			return mode
		}
	}
	return vk.PresentModeFifo
}

func chooseExtent(caps vk.SurfaceCapabilities, width, height uint32) vk.Extent2D {
	if caps.CurrentExtent.Width != math.MaxUint32 {
		return caps.CurrentExtent
	}
	// Clamp to the value allowed by the GPU.
	return vk.Extent2D{
		Width:  lmath.Clamp(width, caps.MinImageExtent.Width, caps.MaxImageExtent.Width),
		Height: lmath.Clamp(height, caps.MinImageExtent.Height, caps.MaxImageExtent.Height),
	}
}

func chooseImageCount(caps vk.SurfaceCapabilities) uint32 {
	count := caps.MinImageCount
	if count == 0 {
		count = 1
	}
	if caps.MaxImageCount > 0 && count > caps.MaxImageCount {
		count = caps.MaxImageCount
	}
	return count
}
