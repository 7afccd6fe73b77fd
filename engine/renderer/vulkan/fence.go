package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/lumen/engine/core"
)

type Fence struct {
	Handle     vk.Fence
	IsSignaled bool

	device    vk.Device
	allocator *vk.AllocationCallbacks
}

func NewFence(context *Context, createSignaled bool) (*Fence, error) {
	fence := &Fence{
		// Make sure to signal the fence if required.
		IsSignaled: createSignaled,
		device:     context.Device.LogicalDevice,
		allocator:  context.Allocator,
	}

	fenceCreateInfo := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}
	if fence.IsSignaled {
		fenceCreateInfo.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}

	var handle vk.Fence
	if err := resultError(vk.CreateFence(fence.device, &fenceCreateInfo, context.Allocator, &handle), "vkCreateFence"); err != nil {
		return nil, err
	}
	fence.Handle = handle
	return fence, nil
}

func (f *Fence) Destroy() {
	core.Assert(f.Handle != vk.NullFence, "fence destroyed twice")
	vk.DestroyFence(f.device, f.Handle, f.allocator)
	f.Handle = vk.NullFence
	f.IsSignaled = false
}

// Wait blocks until the fence is signaled or timeoutNs elapses.
func (f *Fence) Wait(timeoutNs uint64) error {
	if f.IsSignaled {
		// If already signaled, do not wait.
		return nil
	}
	result := vk.WaitForFences(f.device, 1, []vk.Fence{f.Handle}, vk.True, timeoutNs)
	switch result {
	case vk.Success:
		f.IsSignaled = true
		return nil
	case vk.Timeout:
		return errors.Newf("fence wait timed out after %dns", timeoutNs)
	default:
		return resultError(result, "vkWaitForFences")
	}
}

func (f *Fence) Reset() error {
	if !f.IsSignaled {
		return nil
	}
	if err := resultError(vk.ResetFences(f.device, 1, []vk.Fence{f.Handle}), "vkResetFences"); err != nil {
		return err
	}
	f.IsSignaled = false
	return nil
}
