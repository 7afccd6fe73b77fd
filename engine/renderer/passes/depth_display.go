package passes

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/lumen/engine/renderer/vulkan"
)

// DepthSource is a depth image shown by the depth display. SrcStage and
// SrcAccess describe the stage that last wrote it.
type DepthSource struct {
	Name      string
	Image     *vulkan.Image
	Slot      uint32
	SrcStage  vk.PipelineStageFlags
	SrcAccess vk.AccessFlags
}

// DepthDisplayPass draws one of its depth sources as grayscale into a
// multisampled color target.
type DepthDisplayPass struct {
	Target *vulkan.Image

	factory  vulkan.ResourceFactory
	config   vulkan.ImageConfig
	pipeline *vulkan.Pipeline
	table    *vulkan.BindlessTable
	sources  []DepthSource
}

func NewDepthDisplayPass(factory vulkan.ResourceFactory, table *vulkan.BindlessTable, pipeline *vulkan.Pipeline, width, height uint32, format vk.Format, samples vk.SampleCountFlagBits) (*DepthDisplayPass, error) {
	p := &DepthDisplayPass{
		factory:  factory,
		pipeline: pipeline,
		table:    table,
		config: vulkan.ImageConfig{
			Name:    "depth-display",
			Format:  format,
			Width:   width,
			Height:  height,
			Layers:  1,
			Samples: samples,
			Usage:   vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
			Aspect:  vk.ImageAspectFlags(vk.ImageAspectColorBit),
			Memory:  vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
		},
	}
	var err error
	if p.Target, err = factory.CreateImage(p.config); err != nil {
		return nil, err
	}
	return p, nil
}

// Resize replaces the color target. On failure the old target is kept.
func (p *DepthDisplayPass) Resize(width, height uint32) error {
	config := p.config
	config.Width, config.Height = width, height
	target, err := p.factory.CreateImage(config)
	if err != nil {
		return err
	}
	p.Target.Destroy()
	p.Target = target
	p.config = config
	return nil
}

// AddSource registers a source and returns the pass that displays it.
func (p *DepthDisplayPass) AddSource(src DepthSource) *SourceView {
	p.sources = append(p.sources, src)
	return &SourceView{display: p, index: len(p.sources) - 1}
}

// ShadowSource describes the shadow map as written by the shadow pass.
func ShadowSource(shadow *ShadowPass) DepthSource {
	return DepthSource{
		Name:      "shadow",
		Image:     shadow.Target,
		Slot:      shadow.Slot,
		SrcStage:  stageFragmentTests,
		SrcAccess: accessDepthWrite,
	}
}

// SceneDepthSource describes the scene's resolved depth. The resolve
// happens in the color output stage.
func SceneDepthSource(scene *ScenePass, slot uint32) DepthSource {
	return DepthSource{
		Name:      "scene-depth",
		Image:     scene.DepthResolve,
		Slot:      slot,
		SrcStage:  vk.PipelineStageFlags(vk.PipelineStageLateFragmentTestsBit) | stageColorOutput,
		SrcAccess: accessDepthWrite | accessColorWrite,
	}
}

func (p *DepthDisplayPass) record(rec vulkan.Recorder, src DepthSource) {
	rec.PipelineBarrier(
		depthReadBarrier(src.Image, src.SrcStage, src.SrcAccess),
		vulkan.ColorAttachmentBarrier(p.Target),
	)
	rec.BeginRendering(vulkan.RenderingInfo{
		Width:  p.Target.Width,
		Height: p.Target.Height,
		Color: []vulkan.Attachment{{
			Image:   p.Target,
			Layout:  vk.ImageLayoutColorAttachmentOptimal,
			LoadOp:  vk.AttachmentLoadOpClear,
			StoreOp: vk.AttachmentStoreOpStore,
		}},
	})
	rec.SetViewport(p.Target.Width, p.Target.Height)
	rec.BindPipeline(p.pipeline)
	p.table.CmdBind(rec, vk.PipelineBindPointGraphics)
	rec.PushConstants(p.pipeline.Layout, DrawConstants{SamplerIndex: src.Slot}.Bytes())
	// full-screen triangle
	rec.Draw(3, 0)
	rec.EndRendering()
}

func (p *DepthDisplayPass) Destroy() {
	p.Target.Destroy()
}

// SourceView is the pass that displays one registered source.
type SourceView struct {
	display *DepthDisplayPass
	index   int
}

func (v *SourceView) Name() string {
	return fmt.Sprintf("depth-display:%s", v.display.sources[v.index].Name)
}

func (v *SourceView) Record(rec vulkan.Recorder, slot int) {
	v.display.record(rec, v.display.sources[v.index])
}

func (v *SourceView) Source() DepthSource {
	return v.display.sources[v.index]
}

// SetImage replaces the source image, after its owner was resized.
func (v *SourceView) SetImage(img *vulkan.Image) {
	v.display.sources[v.index].Image = img
}
