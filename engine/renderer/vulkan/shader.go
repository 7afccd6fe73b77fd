package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/lumen/engine/core"
)

/**
 * @brief Represents a single compiled shader stage.
 */
type ShaderModule struct {
	Name   string
	Stage  vk.ShaderStageFlagBits
	Handle vk.ShaderModule

	device    vk.Device
	allocator *vk.AllocationCallbacks
}

// NewShaderModule wraps SPIR-V words in a shader module.
func NewShaderModule(context *Context, name string, stage vk.ShaderStageFlagBits, code []uint32) (*ShaderModule, error) {
	m := &ShaderModule{
		Name:      name,
		Stage:     stage,
		device:    context.Device.LogicalDevice,
		allocator: context.Allocator,
	}
	info := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint64(len(code) * 4),
		PCode:    code,
	}
	if err := resultError(vk.CreateShaderModule(m.device, &info, context.Allocator, &m.Handle), "vkCreateShaderModule "+name); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *ShaderModule) stageInfo() vk.PipelineShaderStageCreateInfo {
	return vk.PipelineShaderStageCreateInfo{
		SType:  vk.StructureTypePipelineShaderStageCreateInfo,
		Stage:  m.Stage,
		Module: m.Handle,
		PName:  VulkanSafeString("main"),
	}
}

// Destroy releases the module. Pipelines built from it stay valid.
func (m *ShaderModule) Destroy() {
	core.Assert(m.Handle != vk.NullShaderModule, "shader module %s destroyed twice", m.Name)
	vk.DestroyShaderModule(m.device, m.Handle, m.allocator)
	m.Handle = vk.NullShaderModule
}
