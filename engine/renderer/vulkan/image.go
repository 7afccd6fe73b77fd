package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/lumen/engine/core"
)

type ImageConfig struct {
	Name    string
	Format  vk.Format
	Width   uint32
	Height  uint32
	Layers  uint32
	Samples vk.SampleCountFlagBits
	Usage   vk.ImageUsageFlags
	Aspect  vk.ImageAspectFlags
	Memory  vk.MemoryPropertyFlags
}

// Image is an image, its memory and one view over all its layers. The
// current layout is not tracked: every barrier states the old layout.
type Image struct {
	Name    string
	Handle  vk.Image
	View    vk.ImageView
	Memory  vk.DeviceMemory
	Format  vk.Format
	Width   uint32
	Height  uint32
	Layers  uint32
	Samples vk.SampleCountFlagBits
	Aspect  vk.ImageAspectFlags
	Usage   vk.ImageUsageFlags

	// owned is false for swapchain images, whose handle and memory belong
	// to the swapchain.
	owned     bool
	device    vk.Device
	allocator *vk.AllocationCallbacks
	destroyed bool
}

// viewTypeForLayers maps a layer count to the view type and image create
// flags. Only 2D (1 layer) and cube (6 layers) images exist.
func viewTypeForLayers(layers uint32) (vk.ImageViewType, vk.ImageCreateFlags) {
	switch layers {
	case 1:
		return vk.ImageViewType2d, 0
	case 6:
		return vk.ImageViewTypeCube, vk.ImageCreateFlags(vk.ImageCreateCubeCompatibleBit)
	}
	core.Assert(false, "unsupported image layer count %d", layers)
	return 0, 0
}

// NewHostImage describes an image with no device object, used when commands
// are executed on the CPU.
func NewHostImage(cfg ImageConfig) *Image {
	if cfg.Layers == 0 {
		cfg.Layers = 1
	}
	if cfg.Samples == 0 {
		cfg.Samples = vk.SampleCount1Bit
	}
	viewTypeForLayers(cfg.Layers)
	return &Image{
		Name:    debugName("image", cfg.Name),
		Format:  cfg.Format,
		Width:   cfg.Width,
		Height:  cfg.Height,
		Layers:  cfg.Layers,
		Samples: cfg.Samples,
		Aspect:  cfg.Aspect,
		Usage:   cfg.Usage,
		owned:   true,
	}
}

func (c *Context) CreateImage(cfg ImageConfig) (*Image, error) {
	img := NewHostImage(cfg)
	img.device = c.Device.LogicalDevice
	img.allocator = c.Allocator
	viewType, flags := viewTypeForLayers(img.Layers)

	err := c.locks.SafeCall(ResourceManagement, func() error {
		info := vk.ImageCreateInfo{
			SType:     vk.StructureTypeImageCreateInfo,
			Flags:     flags,
			ImageType: vk.ImageType2d,
			Format:    img.Format,
			Extent: vk.Extent3D{
				Width:  img.Width,
				Height: img.Height,
				Depth:  1,
			},
			MipLevels:     1,
			ArrayLayers:   img.Layers,
			Samples:       img.Samples,
			Tiling:        vk.ImageTilingOptimal,
			Usage:         img.Usage,
			SharingMode:   vk.SharingModeExclusive,
			InitialLayout: vk.ImageLayoutUndefined,
		}
		if err := resultError(vk.CreateImage(img.device, &info, c.Allocator, &img.Handle), "vkCreateImage "+img.Name); err != nil {
			return err
		}

		var requirements vk.MemoryRequirements
		vk.GetImageMemoryRequirements(img.device, img.Handle, &requirements)
		requirements.Deref()

		memoryIndex, err := c.FindMemoryIndex(requirements.MemoryTypeBits, cfg.Memory)
		if err != nil {
			return errors.Wrapf(err, "image %s", img.Name)
		}
		allocInfo := vk.MemoryAllocateInfo{
			SType:           vk.StructureTypeMemoryAllocateInfo,
			AllocationSize:  requirements.Size,
			MemoryTypeIndex: memoryIndex,
		}
		if err := resultError(vk.AllocateMemory(img.device, &allocInfo, c.Allocator, &img.Memory), "vkAllocateMemory "+img.Name); err != nil {
			return err
		}
		// TODO: bind into a shared allocation instead of one block per image.
		if err := resultError(vk.BindImageMemory(img.device, img.Handle, img.Memory, 0), "vkBindImageMemory "+img.Name); err != nil {
			return err
		}
		return img.createView(viewType)
	})
	if err != nil {
		img.release()
		return nil, err
	}
	core.LogDebug("Image %s created: %dx%d, %d layers, %d samples.", img.Name, img.Width, img.Height, img.Layers, img.Samples)
	return img, nil
}

// WrapSwapchainImage creates a view for an image owned by the swapchain.
func (c *Context) WrapSwapchainImage(name string, handle vk.Image, format vk.Format, width, height uint32) (*Image, error) {
	img := &Image{
		Name:      name,
		Handle:    handle,
		Format:    format,
		Width:     width,
		Height:    height,
		Layers:    1,
		Samples:   vk.SampleCount1Bit,
		Aspect:    vk.ImageAspectFlags(vk.ImageAspectColorBit),
		Usage:     vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		device:    c.Device.LogicalDevice,
		allocator: c.Allocator,
	}
	if err := img.createView(vk.ImageViewType2d); err != nil {
		return nil, err
	}
	return img, nil
}

func (img *Image) createView(viewType vk.ImageViewType) error {
	info := vk.ImageViewCreateInfo{
		SType:            vk.StructureTypeImageViewCreateInfo,
		Image:            img.Handle,
		ViewType:         viewType,
		Format:           img.Format,
		SubresourceRange: img.subresourceRange(),
	}
	return resultError(vk.CreateImageView(img.device, &info, img.allocator, &img.View), "vkCreateImageView "+img.Name)
}

func (img *Image) subresourceRange() vk.ImageSubresourceRange {
	return vk.ImageSubresourceRange{
		AspectMask:     img.Aspect,
		BaseMipLevel:   0,
		LevelCount:     1,
		BaseArrayLayer: 0,
		LayerCount:     img.Layers,
	}
}

// IsDepth reports whether the image has a depth aspect.
func (img *Image) IsDepth() bool {
	return img.Aspect&vk.ImageAspectFlags(vk.ImageAspectDepthBit) != 0
}

// Owned reports whether Destroy releases the image and its memory, not just the view.
func (img *Image) Owned() bool {
	return img.owned
}

func (img *Image) Destroy() {
	core.Assert(!img.destroyed, "image %s destroyed twice", img.Name)
	img.destroyed = true
	img.release()
}

func (img *Image) release() {
	if img.device == nil {
		return
	}
	if img.View != vk.NullImageView {
		vk.DestroyImageView(img.device, img.View, img.allocator)
		img.View = vk.NullImageView
	}
	if !img.owned {
		return
	}
	if img.Memory != vk.NullDeviceMemory {
		vk.FreeMemory(img.device, img.Memory, img.allocator)
		img.Memory = vk.NullDeviceMemory
	}
	if img.Handle != nil {
		vk.DestroyImage(img.device, img.Handle, img.allocator)
		img.Handle = nil
	}
}

// UploadImage copies one tightly packed RGBA8 slice per layer into img and
// leaves it in SHADER_READ_ONLY_OPTIMAL.
func (c *Context) UploadImage(img *Image, layers [][]byte) error {
	core.Assert(uint32(len(layers)) == img.Layers, "image %s has %d layers, got %d", img.Name, img.Layers, len(layers))
	layerSize := uint64(img.Width) * uint64(img.Height) * 4

	staging, err := c.CreateBuffer(img.Name+"-staging", layerSize*uint64(len(layers)),
		vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit))
	if err != nil {
		return err
	}
	defer staging.Destroy()

	regions := make([]vk.BufferImageCopy, len(layers))
	for i, data := range layers {
		core.Assert(uint64(len(data)) == layerSize, "layer %d of image %s is %d bytes, want %d", i, img.Name, len(data), layerSize)
		staging.Write(uint64(i)*layerSize, data)
		regions[i] = vk.BufferImageCopy{
			BufferOffset: vk.DeviceSize(uint64(i) * layerSize),
			ImageSubresource: vk.ImageSubresourceLayers{
				AspectMask:     img.Aspect,
				MipLevel:       0,
				BaseArrayLayer: uint32(i),
				LayerCount:     1,
			},
			ImageExtent: vk.Extent3D{Width: img.Width, Height: img.Height, Depth: 1},
		}
	}

	return SingleUse(c, c.GraphicsPool, c.Device.Graphics, func(cmd *CommandBuffer) {
		cmd.PipelineBarrier(ImageBarrier{
			Image:     img,
			OldLayout: vk.ImageLayoutUndefined,
			NewLayout: vk.ImageLayoutTransferDstOptimal,
			SrcStage:  vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit),
			DstStage:  vk.PipelineStageFlags(vk.PipelineStageTransferBit),
			DstAccess: vk.AccessFlags(vk.AccessTransferWriteBit),
		})
		vk.CmdCopyBufferToImage(cmd.Handle, staging.Handle, img.Handle, vk.ImageLayoutTransferDstOptimal, uint32(len(regions)), regions)
		cmd.PipelineBarrier(ImageBarrier{
			Image:     img,
			OldLayout: vk.ImageLayoutTransferDstOptimal,
			NewLayout: vk.ImageLayoutShaderReadOnlyOptimal,
			SrcStage:  vk.PipelineStageFlags(vk.PipelineStageTransferBit),
			DstStage:  vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit),
			SrcAccess: vk.AccessFlags(vk.AccessTransferWriteBit),
			DstAccess: vk.AccessFlags(vk.AccessShaderReadBit),
		})
	})
}
