package scene

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
	"github.com/spaghettifunk/lumen/engine/renderer/vulkan"
)

// Skybox owns the cubemap and the uniform record selecting its bindless slot.
type Skybox struct {
	Cube *vulkan.Image

	record *vulkan.Buffer
	slot   uint32
}

// NewSkybox uploads six square RGBA8 faces of size x size, in +X -X +Y -Y +Z -Z order.
func NewSkybox(factory vulkan.ResourceFactory, faces [6][]byte, size uint32) (*Skybox, error) {
	cube, err := factory.CreateImage(vulkan.ImageConfig{
		Name:    "skybox",
		Format:  vk.FormatR8g8b8a8Unorm,
		Width:   size,
		Height:  size,
		Layers:  6,
		Samples: vk.SampleCount1Bit,
		Usage:   vk.ImageUsageFlags(vk.ImageUsageSampledBit | vk.ImageUsageTransferDstBit),
		Aspect:  vk.ImageAspectFlags(vk.ImageAspectColorBit),
		Memory:  vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
	})
	if err != nil {
		return nil, err
	}
	if err := factory.UploadImage(cube, faces[:]); err != nil {
		cube.Destroy()
		return nil, err
	}
	record, err := factory.CreateBuffer("skybox", metadata.SkyboxRecordSize, recordUsage, hostCoherent)
	if err != nil {
		cube.Destroy()
		return nil, err
	}
	return &Skybox{Cube: cube, record: record}, nil
}

// SetSlot records the bindless cube slot the skybox shader samples.
func (s *Skybox) SetSlot(slot uint32) {
	s.slot = slot
	s.record.UpdateContents(metadata.SkyboxRecord{CubeSlot: slot}.Bytes())
}

func (s *Skybox) Slot() uint32    { return s.slot }
func (s *Skybox) Address() uint64 { return s.record.Address }

func (s *Skybox) Destroy() {
	core.Assert(s.record != nil, "skybox destroyed twice")
	s.record.Destroy()
	s.Cube.Destroy()
	s.record, s.Cube = nil, nil
}
