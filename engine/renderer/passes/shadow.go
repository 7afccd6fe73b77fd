package passes

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/lumen/engine/renderer/vulkan"
)

// ShadowPass renders the meshes' depth from the light into a square map.
type ShadowPass struct {
	Target *vulkan.Image
	// Slot is the map's index in the bindless depth array.
	Slot uint32

	pipeline *vulkan.Pipeline
	table    *vulkan.BindlessTable
	meshes   []Drawable
	light    LightSource
}

func NewShadowPass(factory vulkan.ResourceFactory, table *vulkan.BindlessTable, pipeline *vulkan.Pipeline, size uint32, depthFormat vk.Format, meshes []Drawable, light LightSource) (*ShadowPass, error) {
	target, err := factory.CreateImage(vulkan.ImageConfig{
		Name:    "shadow-map",
		Format:  depthFormat,
		Width:   size,
		Height:  size,
		Layers:  1,
		Samples: vk.SampleCount1Bit,
		Usage:   vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit | vk.ImageUsageSampledBit),
		Aspect:  vk.ImageAspectFlags(vk.ImageAspectDepthBit),
		Memory:  vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
	})
	if err != nil {
		return nil, err
	}
	slot, err := table.AllocateSlot(vulkan.BindingDepthSamplers)
	if err != nil {
		target.Destroy()
		return nil, err
	}
	return &ShadowPass{
		Target:   target,
		Slot:     slot,
		pipeline: pipeline,
		table:    table,
		meshes:   meshes,
		light:    light,
	}, nil
}

func (p *ShadowPass) Name() string { return "shadow" }

func (p *ShadowPass) Record(rec vulkan.Recorder, slot int) {
	rec.PipelineBarrier(vulkan.DepthAttachmentBarrier(p.Target))
	rec.BeginRendering(vulkan.RenderingInfo{
		Width:  p.Target.Width,
		Height: p.Target.Height,
		Depth: &vulkan.Attachment{
			Image:   p.Target,
			Layout:  vk.ImageLayoutDepthAttachmentOptimal,
			LoadOp:  vk.AttachmentLoadOpClear,
			StoreOp: vk.AttachmentStoreOpStore,
			Clear:   [4]float32{1},
		},
	})
	rec.SetViewport(p.Target.Width, p.Target.Height)
	rec.BindPipeline(p.pipeline)
	p.table.CmdBind(rec, vk.PipelineBindPointGraphics)
	for _, mesh := range p.meshes {
		rec.PushConstants(p.pipeline.Layout, DrawConstants{
			Transform:   mesh.TransformAddress(),
			LightCamera: p.light.CameraAddress(),
		}.Bytes())
		rec.BindVertexBuffer(mesh.VertexBuffer())
		rec.BindIndexBuffer(mesh.IndexBuffer(), mesh.IndexType())
		rec.DrawIndexed(mesh.IndexCount(), 0, 0)
	}
	rec.EndRendering()
}

func (p *ShadowPass) Destroy() {
	p.Target.Destroy()
}
