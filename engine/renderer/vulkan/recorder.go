package vulkan

import (
	vk "github.com/goki/vulkan"
)

// ImageBarrier is one layout transition plus the execution and memory
// dependency around it. Callers always state the previous layout; images
// do not track their own.
type ImageBarrier struct {
	Image     *Image
	OldLayout vk.ImageLayout
	NewLayout vk.ImageLayout
	SrcStage  vk.PipelineStageFlags
	DstStage  vk.PipelineStageFlags
	SrcAccess vk.AccessFlags
	DstAccess vk.AccessFlags
}

// Attachment describes one dynamic rendering attachment. Clear holds the
// color, or the depth in Clear[0] for depth attachments.
type Attachment struct {
	Image         *Image
	Layout        vk.ImageLayout
	LoadOp        vk.AttachmentLoadOp
	StoreOp       vk.AttachmentStoreOp
	Clear         [4]float32
	Resolve       *Image
	ResolveMode   vk.ResolveModeFlagBits
	ResolveLayout vk.ImageLayout
}

type RenderingInfo struct {
	Width  uint32
	Height uint32
	Color  []Attachment
	Depth  *Attachment
}

// Recorder is the command stream a pass records into. CommandBuffer
// implements it with Vulkan commands; the software executor implements it
// to validate and rasterize on the CPU.
type Recorder interface {
	PipelineBarrier(barriers ...ImageBarrier)
	BeginRendering(info RenderingInfo)
	EndRendering()
	SetViewport(width, height uint32)
	BindPipeline(p *Pipeline)
	BindDescriptorSet(bindPoint vk.PipelineBindPoint, layout vk.PipelineLayout, set vk.DescriptorSet)
	PushConstants(layout vk.PipelineLayout, data []byte)
	BindVertexBuffer(b *Buffer)
	BindIndexBuffer(b *Buffer, indexType vk.IndexType)
	Draw(vertexCount, firstVertex uint32)
	DrawIndexed(indexCount, firstIndex uint32, vertexOffset int32)
}

// ResourceFactory creates the resources scene objects and frame chains own.
// Context creates device resources; the software executor creates host ones.
type ResourceFactory interface {
	CreateBuffer(name string, size uint64, usage vk.BufferUsageFlags, memoryFlags vk.MemoryPropertyFlags) (*Buffer, error)
	UploadBuffer(name string, data []byte, usage vk.BufferUsageFlags) (*Buffer, error)
	CreateImage(cfg ImageConfig) (*Image, error)
	UploadImage(img *Image, layers [][]byte) error
	CreateSemaphore(name string) (*Semaphore, error)
}

var _ ResourceFactory = (*Context)(nil)

func (b ImageBarrier) vulkan() vk.ImageMemoryBarrier {
	return vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		SrcAccessMask:       b.SrcAccess,
		DstAccessMask:       b.DstAccess,
		OldLayout:           b.OldLayout,
		NewLayout:           b.NewLayout,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               b.Image.Handle,
		SubresourceRange:    b.Image.subresourceRange(),
	}
}

func (a Attachment) vulkan() vk.RenderingAttachmentInfo {
	info := vk.RenderingAttachmentInfo{
		SType:       vk.StructureTypeRenderingAttachmentInfo,
		ImageView:   a.Image.View,
		ImageLayout: a.Layout,
		LoadOp:      a.LoadOp,
		StoreOp:     a.StoreOp,
		ResolveMode: vk.ResolveModeFlagBits(vk.ResolveModeNone),
	}
	if a.Image.IsDepth() {
		info.ClearValue = vk.NewClearDepthStencil(a.Clear[0], 0)
	} else {
		info.ClearValue = vk.NewClearValue(a.Clear[:])
	}
	if a.Resolve != nil {
		info.ResolveMode = a.ResolveMode
		info.ResolveImageView = a.Resolve.View
		info.ResolveImageLayout = a.ResolveLayout
	}
	return info
}

// ColorAttachmentBarrier transitions a color target from UNDEFINED for writing.
func ColorAttachmentBarrier(img *Image) ImageBarrier {
	return ImageBarrier{
		Image:     img,
		OldLayout: vk.ImageLayoutUndefined,
		NewLayout: vk.ImageLayoutColorAttachmentOptimal,
		SrcStage:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		DstStage:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		SrcAccess: 0,
		DstAccess: vk.AccessFlags(vk.AccessColorAttachmentWriteBit),
	}
}

// DepthAttachmentBarrier transitions a depth target from UNDEFINED for writing.
func DepthAttachmentBarrier(img *Image) ImageBarrier {
	tests := vk.PipelineStageFlags(vk.PipelineStageEarlyFragmentTestsBit | vk.PipelineStageLateFragmentTestsBit)
	return ImageBarrier{
		Image:     img,
		OldLayout: vk.ImageLayoutUndefined,
		NewLayout: vk.ImageLayoutDepthAttachmentOptimal,
		SrcStage:  tests,
		DstStage:  tests,
		SrcAccess: 0,
		DstAccess: vk.AccessFlags(vk.AccessDepthStencilAttachmentReadBit | vk.AccessDepthStencilAttachmentWriteBit),
	}
}
