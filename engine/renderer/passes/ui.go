package passes

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/lumen/engine/renderer/vulkan"
)

// UIPass composites the overlay onto the chain's final color image and
// resolves it into the swapchain image, leaving that in PRESENT_SRC. It is
// the only pass that writes the swapchain image.
type UIPass struct {
	overlay Overlay
	table   *vulkan.BindlessTable
	source  *vulkan.Image
	target  *vulkan.Image
}

func NewUIPass(table *vulkan.BindlessTable, overlay Overlay) *UIPass {
	return &UIPass{overlay: overlay, table: table}
}

// Prepare sets the color image to composite onto and the swapchain image
// for this frame. It must be called before Record.
func (p *UIPass) Prepare(source, target *vulkan.Image) {
	p.source = source
	p.target = target
}

func (p *UIPass) Source() *vulkan.Image { return p.source }

func (p *UIPass) Target() *vulkan.Image { return p.target }

// External lists images owned outside the frame graph.
func (p *UIPass) External() []*vulkan.Image {
	if p.target == nil {
		return nil
	}
	return []*vulkan.Image{p.target}
}

func (p *UIPass) Name() string { return "ui" }

func (p *UIPass) Record(rec vulkan.Recorder, slot int) {
	if p.source == nil || p.target == nil {
		panic("ui pass recorded before Prepare")
	}
	rec.PipelineBarrier(
		vulkan.ColorAttachmentBarrier(p.target),
		vulkan.ImageBarrier{
			Image:     p.source,
			OldLayout: vk.ImageLayoutColorAttachmentOptimal,
			NewLayout: vk.ImageLayoutColorAttachmentOptimal,
			SrcStage:  stageColorOutput,
			DstStage:  stageColorOutput,
			SrcAccess: accessColorWrite,
			DstAccess: vk.AccessFlags(vk.AccessColorAttachmentReadBit) | accessColorWrite,
		},
	)
	rec.BeginRendering(vulkan.RenderingInfo{
		Width:  p.source.Width,
		Height: p.source.Height,
		Color: []vulkan.Attachment{{
			Image:         p.source,
			Layout:        vk.ImageLayoutColorAttachmentOptimal,
			LoadOp:        vk.AttachmentLoadOpLoad,
			StoreOp:       vk.AttachmentStoreOpStore,
			Resolve:       p.target,
			ResolveMode:   vk.ResolveModeAverageBit,
			ResolveLayout: vk.ImageLayoutColorAttachmentOptimal,
		}},
	})
	rec.SetViewport(p.source.Width, p.source.Height)
	p.table.CmdBind(rec, vk.PipelineBindPointGraphics)
	if p.overlay != nil {
		p.overlay.Draw(rec)
	}
	rec.EndRendering()
	rec.PipelineBarrier(vulkan.ImageBarrier{
		Image:     p.target,
		OldLayout: vk.ImageLayoutColorAttachmentOptimal,
		NewLayout: vk.ImageLayoutPresentSrc,
		SrcStage:  stageColorOutput,
		DstStage:  vk.PipelineStageFlags(vk.PipelineStageBottomOfPipeBit),
		SrcAccess: accessColorWrite,
	})
}
