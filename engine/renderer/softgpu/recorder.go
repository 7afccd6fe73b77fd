package softgpu

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/lumen/engine/renderer/vulkan"
)

func (d *Device) PipelineBarrier(barriers ...vulkan.ImageBarrier) {
	for _, b := range barriers {
		img := b.Image
		d.tracef("barrier %s %s -> %s", img.Name, layoutName(b.OldLayout), layoutName(b.NewLayout))

		if b.OldLayout != vk.ImageLayoutUndefined && !d.external[img] {
			if tracked := d.Layout(img); tracked != b.OldLayout {
				d.violate(img, "barrier expects %s but image is in %s", layoutName(b.OldLayout), layoutName(tracked))
			}
		}

		// The first access in this stage to an image written by an earlier
		// stage must be ordered after the semaphore wait.
		if writer, ok := d.writers[img]; ok && writer != d.stage && !d.touched[img] {
			if b.SrcStage&d.waitMask == 0 {
				d.violate(img, "barrier source stages 0x%x do not intersect wait mask 0x%x (written by %s)", b.SrcStage, d.waitMask, writer)
			}
		}
		d.touched[img] = true
		d.layouts[img] = b.NewLayout
	}
}

func (d *Device) BeginRendering(info vulkan.RenderingInfo) {
	d.tracef("begin rendering %dx%d", info.Width, info.Height)
	if d.rendering != nil {
		d.violate(nil, "rendering begun twice")
	}
	for _, a := range info.Color {
		d.beginAttachment(a)
	}
	if info.Depth != nil {
		d.beginAttachment(*info.Depth)
	}
	d.rendering = &info
}

func (d *Device) beginAttachment(a vulkan.Attachment) {
	d.expectLayout(a.Image, a.Layout)
	d.touchWrite(a.Image)
	if a.Resolve != nil {
		d.expectLayout(a.Resolve, a.ResolveLayout)
		d.touchWrite(a.Resolve)
	}
	if a.Image.IsDepth() {
		buf := d.depthBuffer(a.Image)
		if a.LoadOp == vk.AttachmentLoadOpClear {
			for i := range buf {
				buf[i] = a.Clear[0]
			}
		}
	}
}

func (d *Device) expectLayout(img *vulkan.Image, layout vk.ImageLayout) {
	if tracked := d.Layout(img); tracked != layout {
		d.violate(img, "attachment used in %s but image is in %s", layoutName(layout), layoutName(tracked))
	}
}

func (d *Device) touchWrite(img *vulkan.Image) {
	if writer, ok := d.writers[img]; ok && writer != d.stage && !d.touched[img] {
		d.violate(img, "attachment written by %s is used without a barrier", writer)
	}
	d.touched[img] = true
	d.writers[img] = d.stage
}

func (d *Device) depthBuffer(img *vulkan.Image) []float32 {
	buf := d.depth[img]
	if len(buf) != int(img.Width*img.Height) {
		buf = make([]float32, img.Width*img.Height)
		d.depth[img] = buf
	}
	return buf
}

func (d *Device) EndRendering() {
	d.tracef("end rendering")
	if d.rendering == nil {
		d.violate(nil, "rendering ended without begin")
		return
	}
	// Depth resolve uses SAMPLE_ZERO; the rasterizer keeps one sample per pixel.
	if depth := d.rendering.Depth; depth != nil && depth.Resolve != nil {
		src := d.depthBuffer(depth.Image)
		dst := d.depthBuffer(depth.Resolve)
		if len(src) == len(dst) {
			copy(dst, src)
		}
	}
	d.rendering = nil
	d.pipeline = nil
}

func (d *Device) SetViewport(width, height uint32) {
	d.width, d.height = width, height
}

func (d *Device) BindPipeline(p *vulkan.Pipeline) {
	d.tracef("bind pipeline %s", p.Name)
	d.pipeline = p
}

func (d *Device) BindDescriptorSet(bindPoint vk.PipelineBindPoint, layout vk.PipelineLayout, set vk.DescriptorSet) {
	d.tracef("bind descriptor set")
}

func (d *Device) PushConstants(layout vk.PipelineLayout, data []byte) {
	if uint32(len(data)) > vulkan.PushConstantSize {
		d.violate(nil, "push constant block of %d bytes", len(data))
	}
	d.push = append(d.push[:0], data...)
}

func (d *Device) BindVertexBuffer(b *vulkan.Buffer) {
	d.vertices = b
}

func (d *Device) BindIndexBuffer(b *vulkan.Buffer, indexType vk.IndexType) {
	d.indices = b
	d.indexType = indexType
}

func (d *Device) Draw(vertexCount, firstVertex uint32) {
	d.checkDraw()
	d.tracef("draw %d", vertexCount)
}

func (d *Device) DrawIndexed(indexCount, firstIndex uint32, vertexOffset int32) {
	d.checkDraw()
	name := ""
	if d.pipeline != nil {
		name = d.pipeline.Name
	}
	d.tracef("draw indexed %d with %s", indexCount, name)

	program, ok := d.Programs[name]
	if !ok || d.rendering == nil || d.rendering.Depth == nil || d.vertices == nil || d.indices == nil {
		return
	}
	d.rasterize(program, d.depthBuffer(d.rendering.Depth.Image), d.rendering.Depth.Image, indexCount, firstIndex, vertexOffset)
}

func (d *Device) checkDraw() {
	if d.rendering == nil {
		d.violate(nil, "draw outside rendering")
	}
	if d.pipeline == nil {
		d.violate(nil, "draw without a bound pipeline")
	}
}

func layoutName(l vk.ImageLayout) string {
	switch l {
	case vk.ImageLayoutUndefined:
		return "UNDEFINED"
	case vk.ImageLayoutColorAttachmentOptimal:
		return "COLOR_ATTACHMENT_OPTIMAL"
	case vk.ImageLayoutDepthAttachmentOptimal:
		return "DEPTH_ATTACHMENT_OPTIMAL"
	case vk.ImageLayoutDepthStencilReadOnlyOptimal:
		return "DEPTH_STENCIL_READ_ONLY_OPTIMAL"
	case vk.ImageLayoutShaderReadOnlyOptimal:
		return "SHADER_READ_ONLY_OPTIMAL"
	case vk.ImageLayoutTransferDstOptimal:
		return "TRANSFER_DST_OPTIMAL"
	case vk.ImageLayoutPresentSrc:
		return "PRESENT_SRC"
	}
	return "UNKNOWN"
}
