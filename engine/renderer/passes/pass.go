// Package passes records the render passes of a frame: shadow map, scene
// color, depth-map display and UI composite.
package passes

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/lumen/engine/renderer/vulkan"
)

// Pass records its commands for frame slot into rec.
type Pass interface {
	Name() string
	Record(rec vulkan.Recorder, slot int)
}

// Drawable is an indexed mesh with a transform record.
type Drawable interface {
	VertexBuffer() *vulkan.Buffer
	IndexBuffer() *vulkan.Buffer
	IndexCount() uint32
	IndexType() vk.IndexType
	TransformAddress() uint64
}

// LightSource exposes the light records by address.
type LightSource interface {
	Address() uint64
	CameraAddress() uint64
}

// CameraSource exposes the camera record by address.
type CameraSource interface {
	Address() uint64
}

// SkyboxSource exposes the skybox uniform by address.
type SkyboxSource interface {
	Address() uint64
}

// Overlay draws inside the UI composite.
type Overlay interface {
	Draw(rec vulkan.Recorder)
}

// Bake records pass once into each command buffer, one per frame slot.
func Bake(pass Pass, buffers []*vulkan.CommandBuffer) error {
	for slot, cb := range buffers {
		if err := cb.Record(func(rec vulkan.Recorder) { pass.Record(rec, slot) }); err != nil {
			return err
		}
	}
	return nil
}

var (
	stageFragmentTests = vk.PipelineStageFlags(vk.PipelineStageEarlyFragmentTestsBit | vk.PipelineStageLateFragmentTestsBit)
	stageColorOutput   = vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)
	stageFragment      = vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit)

	accessDepthWrite = vk.AccessFlags(vk.AccessDepthStencilAttachmentWriteBit)
	accessColorWrite = vk.AccessFlags(vk.AccessColorAttachmentWriteBit)
	accessShaderRead = vk.AccessFlags(vk.AccessShaderReadBit)
)

// depthReadBarrier makes a written depth image readable by shaders.
func depthReadBarrier(img *vulkan.Image, srcStage vk.PipelineStageFlags, srcAccess vk.AccessFlags) vulkan.ImageBarrier {
	return vulkan.ImageBarrier{
		Image:     img,
		OldLayout: vk.ImageLayoutDepthAttachmentOptimal,
		NewLayout: vk.ImageLayoutDepthStencilReadOnlyOptimal,
		SrcStage:  srcStage,
		DstStage:  stageFragment,
		SrcAccess: srcAccess,
		DstAccess: accessShaderRead,
	}
}

// resolveTargetBarrier prepares a single-sample depth image to receive a
// resolve, which runs in the color output stage.
func resolveTargetBarrier(img *vulkan.Image) vulkan.ImageBarrier {
	return vulkan.ImageBarrier{
		Image:     img,
		OldLayout: vk.ImageLayoutUndefined,
		NewLayout: vk.ImageLayoutDepthAttachmentOptimal,
		SrcStage:  stageColorOutput | stageFragmentTests,
		DstStage:  stageColorOutput | stageFragmentTests,
		DstAccess: accessDepthWrite | accessColorWrite,
	}
}
