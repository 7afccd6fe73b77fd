package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/lumen/engine/core"
)

// CommandPool allocates resettable primary command buffers for one queue family.
type CommandPool struct {
	Name        string
	Handle      vk.CommandPool
	QueueFamily uint32

	device    vk.Device
	allocator *vk.AllocationCallbacks
	functions *deviceFunctions
}

func NewCommandPool(context *Context, name string, family uint32) (*CommandPool, error) {
	pool := &CommandPool{
		Name:        name,
		QueueFamily: family,
		device:      context.Device.LogicalDevice,
		allocator:   context.Allocator,
		functions:   context.Device.functions,
	}
	info := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: family,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}
	if err := resultError(vk.CreateCommandPool(pool.device, &info, context.Allocator, &pool.Handle), "vkCreateCommandPool "+name); err != nil {
		return nil, err
	}
	core.LogDebug("Command pool %s created for family %d.", name, family)
	return pool, nil
}

// Allocate returns count primary command buffers in the Ready state.
func (p *CommandPool) Allocate(count int) ([]*CommandBuffer, error) {
	handles := make([]vk.CommandBuffer, count)
	info := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        p.Handle,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: uint32(count),
	}
	if err := resultError(vk.AllocateCommandBuffers(p.device, &info, handles), "vkAllocateCommandBuffers "+p.Name); err != nil {
		return nil, err
	}
	out := make([]*CommandBuffer, count)
	for i, h := range handles {
		out[i] = &CommandBuffer{Handle: h, State: COMMAND_BUFFER_STATE_READY, pool: p}
	}
	return out, nil
}

// Free returns the command buffers to the pool.
func (p *CommandPool) Free(buffers []*CommandBuffer) {
	if len(buffers) == 0 {
		return
	}
	handles := make([]vk.CommandBuffer, 0, len(buffers))
	for _, b := range buffers {
		if b.Handle != nil {
			handles = append(handles, b.Handle)
		}
		b.Handle = nil
		b.State = COMMAND_BUFFER_STATE_NOT_ALLOCATED
	}
	vk.FreeCommandBuffers(p.device, p.Handle, uint32(len(handles)), handles)
}

func (p *CommandPool) Destroy() {
	core.Assert(p.Handle != nil, "command pool %s destroyed twice", p.Name)
	vk.DestroyCommandPool(p.device, p.Handle, p.allocator)
	p.Handle = nil
}
