package vulkan

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/lumen/engine/core"
)

/**
 * @brief Number of descriptors in each binding of the bindless table.
 */
type TableCapacity struct {
	CubeSlots  uint32
	DepthSlots uint32
	UISlots    uint32
}

func (tc TableCapacity) perBinding() [bindingCount]uint32 {
	return [bindingCount]uint32{
		BindingCubeSamplers:  tc.CubeSlots,
		BindingDepthSamplers: tc.DepthSlots,
		BindingUITextures:    tc.UISlots,
	}
}

// SlotCounter hands out array indices per binding. Indices are never reused.
type SlotCounter struct {
	capacity [bindingCount]uint32
	next     [bindingCount]uint32
}

func NewSlotCounter(capacity TableCapacity) *SlotCounter {
	return &SlotCounter{capacity: capacity.perBinding()}
}

func (sc *SlotCounter) Allocate(binding uint32) (uint32, error) {
	core.Assert(binding < bindingCount, "unknown bindless binding %d", binding)
	if sc.next[binding] >= sc.capacity[binding] {
		return 0, errors.Mark(errors.Newf("binding %d has no free slot (capacity %d)", binding, sc.capacity[binding]), core.ErrSlotExhausted)
	}
	slot := sc.next[binding]
	sc.next[binding]++
	return slot, nil
}

/**
 * @brief The single descriptor set every pipeline binds at index 0, plus
 * the pipeline layout they all share.
 */
type BindlessTable struct {
	Layout         vk.DescriptorSetLayout
	Pool           vk.DescriptorPool
	Set            vk.DescriptorSet
	PipelineLayout vk.PipelineLayout

	slots     *SlotCounter
	context   *Context
	destroyed bool
}

// NewHostBindlessTable returns a table with slot accounting only. Recording
// against it works; nothing is written to a device.
func NewHostBindlessTable(capacity TableCapacity) *BindlessTable {
	return &BindlessTable{slots: NewSlotCounter(capacity)}
}

func NewBindlessTable(context *Context, capacity TableCapacity) (*BindlessTable, error) {
	t := &BindlessTable{
		slots:   NewSlotCounter(capacity),
		context: context,
	}
	counts := capacity.perBinding()
	device := context.Device.LogicalDevice

	err := context.locks.SafeCall(DescriptorManagement, func() error {
		bindings := make([]vk.DescriptorSetLayoutBinding, bindingCount)
		bindingFlags := make([]vk.DescriptorBindingFlags, bindingCount)
		poolSizes := make([]vk.DescriptorPoolSize, bindingCount)
		for i := uint32(0); i < bindingCount; i++ {
			bindings[i] = vk.DescriptorSetLayoutBinding{
				Binding:         i,
				DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
				DescriptorCount: counts[i],
				StageFlags:      vk.ShaderStageFlags(vk.ShaderStageAllGraphics),
			}
			bindingFlags[i] = vk.DescriptorBindingFlags(vk.DescriptorBindingPartiallyBoundBit | vk.DescriptorBindingUpdateAfterBindBit)
			poolSizes[i] = vk.DescriptorPoolSize{
				Type:            vk.DescriptorTypeCombinedImageSampler,
				DescriptorCount: counts[i],
			}
		}

		layoutInfo := vk.DescriptorSetLayoutCreateInfo{
			SType: vk.StructureTypeDescriptorSetLayoutCreateInfo,
			PNext: unsafe.Pointer(&vk.DescriptorSetLayoutBindingFlagsCreateInfo{
				SType:         vk.StructureTypeDescriptorSetLayoutBindingFlagsCreateInfo,
				BindingCount:  bindingCount,
				PBindingFlags: bindingFlags,
			}),
			Flags:        vk.DescriptorSetLayoutCreateFlags(vk.DescriptorSetLayoutCreateUpdateAfterBindPoolBit),
			BindingCount: bindingCount,
			PBindings:    bindings,
		}
		if err := resultError(vk.CreateDescriptorSetLayout(device, &layoutInfo, context.Allocator, &t.Layout), "vkCreateDescriptorSetLayout"); err != nil {
			return err
		}

		poolInfo := vk.DescriptorPoolCreateInfo{
			SType:         vk.StructureTypeDescriptorPoolCreateInfo,
			Flags:         vk.DescriptorPoolCreateFlags(vk.DescriptorPoolCreateUpdateAfterBindBit),
			MaxSets:       1,
			PoolSizeCount: bindingCount,
			PPoolSizes:    poolSizes,
		}
		if err := resultError(vk.CreateDescriptorPool(device, &poolInfo, context.Allocator, &t.Pool), "vkCreateDescriptorPool"); err != nil {
			return err
		}

		allocInfo := vk.DescriptorSetAllocateInfo{
			SType:              vk.StructureTypeDescriptorSetAllocateInfo,
			DescriptorPool:     t.Pool,
			DescriptorSetCount: 1,
			PSetLayouts:        []vk.DescriptorSetLayout{t.Layout},
		}
		return resultError(vk.AllocateDescriptorSets(device, &allocInfo, &t.Set), "vkAllocateDescriptorSets")
	})
	if err != nil {
		t.Destroy()
		return nil, err
	}

	err = context.locks.SafeCall(PipelineManagement, func() error {
		layoutInfo := vk.PipelineLayoutCreateInfo{
			SType:          vk.StructureTypePipelineLayoutCreateInfo,
			SetLayoutCount: 1,
			PSetLayouts:    []vk.DescriptorSetLayout{t.Layout},
			// One range shared by every stage.
			PushConstantRangeCount: 1,
			PPushConstantRanges: []vk.PushConstantRange{{
				StageFlags: vk.ShaderStageFlags(vk.ShaderStageAllGraphics),
				Offset:     0,
				Size:       PushConstantSize,
			}},
		}
		return resultError(vk.CreatePipelineLayout(device, &layoutInfo, context.Allocator, &t.PipelineLayout), "vkCreatePipelineLayout")
	})
	if err != nil {
		t.Destroy()
		return nil, err
	}

	core.LogDebug("Bindless table created: %d cube, %d depth, %d ui slots.", capacity.CubeSlots, capacity.DepthSlots, capacity.UISlots)
	return t, nil
}

// AllocateSlot reserves the next free array index in binding.
func (t *BindlessTable) AllocateSlot(binding uint32) (uint32, error) {
	return t.slots.Allocate(binding)
}

// UpdateSampler2D writes a depth map into the depth array at slot.
func (t *BindlessTable) UpdateSampler2D(view vk.ImageView, sampler *Sampler, layout vk.ImageLayout, slot uint32) error {
	return t.write(BindingDepthSamplers, view, sampler, layout, slot)
}

// UpdateCube writes a cubemap into the cube array at slot.
func (t *BindlessTable) UpdateCube(view vk.ImageView, sampler *Sampler, layout vk.ImageLayout, slot uint32) error {
	return t.write(BindingCubeSamplers, view, sampler, layout, slot)
}

// UpdateUITexture writes an overlay texture into the UI array at slot.
func (t *BindlessTable) UpdateUITexture(view vk.ImageView, sampler *Sampler, layout vk.ImageLayout, slot uint32) error {
	return t.write(BindingUITextures, view, sampler, layout, slot)
}

func (t *BindlessTable) write(binding uint32, view vk.ImageView, sampler *Sampler, layout vk.ImageLayout, slot uint32) error {
	core.Assert(slot < t.slots.capacity[binding], "slot %d out of range for binding %d", slot, binding)
	if t.context == nil {
		return nil
	}
	write := vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          t.Set,
		DstBinding:      binding,
		DstArrayElement: slot,
		DescriptorCount: 1,
		DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
		PImageInfo: []vk.DescriptorImageInfo{{
			Sampler:     sampler.Handle,
			ImageView:   view,
			ImageLayout: layout,
		}},
	}
	return t.context.locks.SafeCall(DescriptorManagement, func() error {
		vk.UpdateDescriptorSets(t.context.Device.LogicalDevice, 1, []vk.WriteDescriptorSet{write}, 0, nil)
		return nil
	})
}

// CmdBind binds the table as set 0.
func (t *BindlessTable) CmdBind(rec Recorder, bindPoint vk.PipelineBindPoint) {
	rec.BindDescriptorSet(bindPoint, t.PipelineLayout, t.Set)
}

func (t *BindlessTable) Destroy() {
	core.Assert(!t.destroyed, "bindless table destroyed twice")
	t.destroyed = true
	if t.context == nil {
		return
	}
	device := t.context.Device.LogicalDevice
	if t.PipelineLayout != nil {
		vk.DestroyPipelineLayout(device, t.PipelineLayout, t.context.Allocator)
		t.PipelineLayout = nil
	}
	if t.Pool != nil {
		// Frees the set as well.
		vk.DestroyDescriptorPool(device, t.Pool, t.context.Allocator)
		t.Pool = nil
		t.Set = nil
	}
	if t.Layout != vk.NullDescriptorSetLayout {
		vk.DestroyDescriptorSetLayout(device, t.Layout, t.context.Allocator)
		t.Layout = vk.NullDescriptorSetLayout
	}
}
