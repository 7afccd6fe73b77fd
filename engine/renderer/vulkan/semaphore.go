package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/lumen/engine/core"
)

// Semaphore is a binary GPU-GPU synchronization primitive. Name identifies
// the dependency edge it guards in logs and traces.
type Semaphore struct {
	Name   string
	Handle vk.Semaphore

	device    vk.Device
	allocator *vk.AllocationCallbacks
	destroyed bool
}

// NewHostSemaphore returns a semaphore with no device object, used when
// submissions are traced instead of executed.
func NewHostSemaphore(name string) *Semaphore {
	return &Semaphore{Name: debugName("semaphore", name)}
}

func (c *Context) CreateSemaphore(name string) (*Semaphore, error) {
	s := &Semaphore{
		Name:      debugName("semaphore", name),
		device:    c.Device.LogicalDevice,
		allocator: c.Allocator,
	}
	info := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	if err := resultError(vk.CreateSemaphore(s.device, &info, c.Allocator, &s.Handle), "vkCreateSemaphore "+s.Name); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Semaphore) Destroy() {
	core.Assert(!s.destroyed, "semaphore %s destroyed twice", s.Name)
	s.destroyed = true
	if s.device != nil && s.Handle != vk.NullSemaphore {
		vk.DestroySemaphore(s.device, s.Handle, s.allocator)
	}
	s.Handle = vk.NullSemaphore
}
