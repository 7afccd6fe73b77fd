package vulkan

import (
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/lumen/engine/core"
)

type CommandBufferState int

const (
	COMMAND_BUFFER_STATE_READY CommandBufferState = iota
	COMMAND_BUFFER_STATE_RECORDING
	COMMAND_BUFFER_STATE_IN_RENDER_PASS
	COMMAND_BUFFER_STATE_RECORDING_ENDED
	COMMAND_BUFFER_STATE_SUBMITTED
	COMMAND_BUFFER_STATE_NOT_ALLOCATED
)

type CommandBuffer struct {
	Handle vk.CommandBuffer
	// Command buffer state.
	State CommandBufferState

	pool *CommandPool
}

var _ Recorder = (*CommandBuffer)(nil)

func (v *CommandBuffer) Begin(isSingleUse, isSimultaneousUse bool) error {
	beginInfo := &vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
	}
	if isSingleUse {
		beginInfo.Flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit)
	}
	if isSimultaneousUse {
		beginInfo.Flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageSimultaneousUseBit)
	}
	if err := resultError(vk.BeginCommandBuffer(v.Handle, beginInfo), "vkBeginCommandBuffer"); err != nil {
		return err
	}
	v.State = COMMAND_BUFFER_STATE_RECORDING
	return nil
}

func (v *CommandBuffer) End() error {
	core.Assert(v.State == COMMAND_BUFFER_STATE_RECORDING, "ending a command buffer in state %d", v.State)
	if err := resultError(vk.EndCommandBuffer(v.Handle), "vkEndCommandBuffer"); err != nil {
		return err
	}
	v.State = COMMAND_BUFFER_STATE_RECORDING_ENDED
	return nil
}

func (v *CommandBuffer) UpdateSubmitted() {
	v.State = COMMAND_BUFFER_STATE_SUBMITTED
}

// Reset discards recorded commands so the buffer can be recorded again.
func (v *CommandBuffer) Reset() error {
	if err := resultError(vk.ResetCommandBuffer(v.Handle, 0), "vkResetCommandBuffer"); err != nil {
		return err
	}
	v.State = COMMAND_BUFFER_STATE_READY
	return nil
}

// Record resets the buffer, begins it, runs fn and ends it.
func (v *CommandBuffer) Record(fn func(rec Recorder)) error {
	if v.State != COMMAND_BUFFER_STATE_READY {
		if err := v.Reset(); err != nil {
			return err
		}
	}
	if err := v.Begin(false, false); err != nil {
		return err
	}
	fn(v)
	return v.End()
}

func (v *CommandBuffer) PipelineBarrier(barriers ...ImageBarrier) {
	for _, b := range barriers {
		vk.CmdPipelineBarrier(v.Handle, b.SrcStage, b.DstStage, 0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{b.vulkan()})
	}
}

func (v *CommandBuffer) BeginRendering(info RenderingInfo) {
	colors := make([]vk.RenderingAttachmentInfo, len(info.Color))
	for i, a := range info.Color {
		colors[i] = a.vulkan()
	}
	renderingInfo := vk.RenderingInfo{
		SType: vk.StructureTypeRenderingInfo,
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{X: 0, Y: 0},
			Extent: vk.Extent2D{Width: info.Width, Height: info.Height},
		},
		LayerCount:           1,
		ColorAttachmentCount: uint32(len(colors)),
		PColorAttachments:    colors,
	}
	if info.Depth != nil {
		renderingInfo.PDepthAttachment = []vk.RenderingAttachmentInfo{info.Depth.vulkan()}
	}
	v.pool.functions.beginRendering(v.Handle, &renderingInfo)
	v.State = COMMAND_BUFFER_STATE_IN_RENDER_PASS
}

func (v *CommandBuffer) EndRendering() {
	v.pool.functions.endRendering(v.Handle)
	v.State = COMMAND_BUFFER_STATE_RECORDING
}

func (v *CommandBuffer) SetViewport(width, height uint32) {
	vk.CmdSetViewport(v.Handle, 0, 1, []vk.Viewport{{
		X:        0,
		Y:        0,
		Width:    float32(width),
		Height:   float32(height),
		MinDepth: 0,
		MaxDepth: 1,
	}})
	vk.CmdSetScissor(v.Handle, 0, 1, []vk.Rect2D{{
		Offset: vk.Offset2D{X: 0, Y: 0},
		Extent: vk.Extent2D{Width: width, Height: height},
	}})
}

func (v *CommandBuffer) BindPipeline(p *Pipeline) {
	vk.CmdBindPipeline(v.Handle, vk.PipelineBindPointGraphics, p.Handle)
}

func (v *CommandBuffer) BindDescriptorSet(bindPoint vk.PipelineBindPoint, layout vk.PipelineLayout, set vk.DescriptorSet) {
	vk.CmdBindDescriptorSets(v.Handle, bindPoint, layout, 0, 1, []vk.DescriptorSet{set}, 0, nil)
}

func (v *CommandBuffer) PushConstants(layout vk.PipelineLayout, data []byte) {
	if len(data) == 0 {
		return
	}
	core.Assert(uint32(len(data)) <= PushConstantSize, "push constant block of %d bytes exceeds %d", len(data), PushConstantSize)
	vk.CmdPushConstants(v.Handle, layout, vk.ShaderStageFlags(vk.ShaderStageAllGraphics), 0, uint32(len(data)), unsafe.Pointer(&data[0]))
}

func (v *CommandBuffer) BindVertexBuffer(b *Buffer) {
	vk.CmdBindVertexBuffers(v.Handle, 0, 1, []vk.Buffer{b.Handle}, []vk.DeviceSize{0})
}

func (v *CommandBuffer) BindIndexBuffer(b *Buffer, indexType vk.IndexType) {
	vk.CmdBindIndexBuffer(v.Handle, b.Handle, 0, indexType)
}

func (v *CommandBuffer) Draw(vertexCount, firstVertex uint32) {
	vk.CmdDraw(v.Handle, vertexCount, 1, firstVertex, 0)
}

func (v *CommandBuffer) DrawIndexed(indexCount, firstIndex uint32, vertexOffset int32) {
	vk.CmdDrawIndexed(v.Handle, indexCount, 1, firstIndex, vertexOffset, 0)
}

// SingleUse records fn into a one-off command buffer from pool, submits it to
// queue and blocks on a fence until it completes.
func SingleUse(context *Context, pool *CommandPool, queue *Queue, fn func(cmd *CommandBuffer)) error {
	buffers, err := pool.Allocate(1)
	if err != nil {
		return err
	}
	cmd := buffers[0]
	defer pool.Free(buffers)

	if err := cmd.Begin(true, false); err != nil {
		return err
	}
	fn(cmd)
	if err := cmd.End(); err != nil {
		return err
	}

	fence, err := NewFence(context, false)
	if err != nil {
		return err
	}
	defer fence.Destroy()

	if err := queue.Submit(Submission{Label: "single-use", CommandBuffers: []*CommandBuffer{cmd}, Fence: fence}); err != nil {
		return err
	}
	return fence.Wait(uploadTimeoutNS)
}
