package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/lumen/engine/core"
)

type SamplerFilter int

const (
	SamplerLinear SamplerFilter = iota
	SamplerNearest
)

type Sampler struct {
	Name   string
	Handle vk.Sampler

	device    vk.Device
	allocator *vk.AllocationCallbacks
}

// CreateSampler returns a clamp-to-edge sampler. Linear is used for the
// skybox and the UI atlas, nearest for depth maps.
func (c *Context) CreateSampler(name string, filter SamplerFilter) (*Sampler, error) {
	vkFilter := vk.FilterLinear
	mipmapMode := vk.SamplerMipmapModeLinear
	if filter == SamplerNearest {
		vkFilter = vk.FilterNearest
		mipmapMode = vk.SamplerMipmapModeNearest
	}
	s := &Sampler{
		Name:      name,
		device:    c.Device.LogicalDevice,
		allocator: c.Allocator,
	}
	info := vk.SamplerCreateInfo{
		SType:                   vk.StructureTypeSamplerCreateInfo,
		MagFilter:               vkFilter,
		MinFilter:               vkFilter,
		MipmapMode:              mipmapMode,
		AddressModeU:            vk.SamplerAddressModeClampToEdge,
		AddressModeV:            vk.SamplerAddressModeClampToEdge,
		AddressModeW:            vk.SamplerAddressModeClampToEdge,
		AnisotropyEnable:        vk.False,
		MaxAnisotropy:           1,
		BorderColor:             vk.BorderColorFloatOpaqueWhite,
		UnnormalizedCoordinates: vk.False,
		CompareEnable:           vk.False,
		MinLod:                  0,
		MaxLod:                  1,
	}
	if err := resultError(vk.CreateSampler(s.device, &info, c.Allocator, &s.Handle), "vkCreateSampler "+name); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Sampler) Destroy() {
	core.Assert(s.Handle != vk.NullSampler, "sampler %s destroyed twice", s.Name)
	vk.DestroySampler(s.device, s.Handle, s.allocator)
	s.Handle = vk.NullSampler
}
