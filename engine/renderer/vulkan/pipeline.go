package vulkan

import (
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/lumen/engine/core"
)

/**
 * @brief Holds a Vulkan pipeline and the shared layout it was built with.
 */
type Pipeline struct {
	Name string
	/** @brief The internal pipeline handle. */
	Handle vk.Pipeline
	/** @brief The pipeline layout, owned by the bindless table. */
	Layout vk.PipelineLayout

	device    vk.Device
	allocator *vk.AllocationCallbacks
}

type PipelineConfig struct {
	Name   string
	Stages []*ShaderModule
	// VertexInput enables the interleaved position/normal/uv layout at
	// binding 0. Full-screen passes generate vertices in the shader.
	VertexInput  bool
	ColorFormats []vk.Format
	DepthFormat  vk.Format
	Samples      vk.SampleCountFlagBits
	DepthTest    bool
	DepthWrite   bool
	DepthCompare vk.CompareOp
	/** @brief The face cull mode. */
	CullMode vk.CullModeFlagBits
	Blend    bool
	// DepthBias offsets shadow-map depth to reduce acne.
	DepthBias bool
}

// NewHostPipeline returns a pipeline with no device object. The software
// executor looks up its vertex program by Name.
func NewHostPipeline(name string, layout vk.PipelineLayout) *Pipeline {
	return &Pipeline{Name: name, Layout: layout}
}

func NewGraphicsPipeline(context *Context, table *BindlessTable, config PipelineConfig) (*Pipeline, error) {
	p := &Pipeline{
		Name:      config.Name,
		Layout:    table.PipelineLayout,
		device:    context.Device.LogicalDevice,
		allocator: context.Allocator,
	}
	samples := config.Samples
	if samples == 0 {
		samples = vk.SampleCount1Bit
	}

	stages := make([]vk.PipelineShaderStageCreateInfo, len(config.Stages))
	for i, s := range config.Stages {
		stages[i] = s.stageInfo()
	}

	// Viewport and scissor are dynamic.
	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		ScissorCount:  1,
	}

	// Rasterizer
	rasterizerCreateInfo := vk.PipelineRasterizationStateCreateInfo{
		SType:                   vk.StructureTypePipelineRasterizationStateCreateInfo,
		DepthClampEnable:        vk.False,
		RasterizerDiscardEnable: vk.False,
		PolygonMode:             vk.PolygonModeFill,
		LineWidth:               1.0,
		CullMode:                vk.CullModeFlags(config.CullMode),
		FrontFace:               vk.FrontFaceCounterClockwise,
		DepthBiasEnable:         vk.False,
	}
	if config.DepthBias {
		rasterizerCreateInfo.DepthBiasEnable = vk.True
		rasterizerCreateInfo.DepthBiasConstantFactor = 1.25
		rasterizerCreateInfo.DepthBiasSlopeFactor = 1.75
	}

	// Multisampling.
	multisamplingCreateInfo := vk.PipelineMultisampleStateCreateInfo{
		SType:                 vk.StructureTypePipelineMultisampleStateCreateInfo,
		SampleShadingEnable:   vk.False,
		RasterizationSamples:  samples,
		MinSampleShading:      1.0,
		AlphaToCoverageEnable: vk.False,
		AlphaToOneEnable:      vk.False,
	}

	// Depth and stencil testing.
	depthStencil := vk.PipelineDepthStencilStateCreateInfo{
		SType:             vk.StructureTypePipelineDepthStencilStateCreateInfo,
		DepthTestEnable:   vk.False,
		DepthWriteEnable:  vk.False,
		DepthCompareOp:    config.DepthCompare,
		StencilTestEnable: vk.False,
	}
	if config.DepthTest {
		depthStencil.DepthTestEnable = vk.True
	}
	if config.DepthWrite {
		depthStencil.DepthWriteEnable = vk.True
	}

	blendAttachments := make([]vk.PipelineColorBlendAttachmentState, len(config.ColorFormats))
	for i := range blendAttachments {
		blendAttachments[i] = vk.PipelineColorBlendAttachmentState{
			BlendEnable:         vk.False,
			SrcColorBlendFactor: vk.BlendFactorSrcAlpha,
			DstColorBlendFactor: vk.BlendFactorOneMinusSrcAlpha,
			ColorBlendOp:        vk.BlendOpAdd,
			SrcAlphaBlendFactor: vk.BlendFactorOne,
			DstAlphaBlendFactor: vk.BlendFactorOneMinusSrcAlpha,
			AlphaBlendOp:        vk.BlendOpAdd,
			ColorWriteMask: vk.ColorComponentFlags(vk.ColorComponentRBit) | vk.ColorComponentFlags(vk.ColorComponentGBit) |
				vk.ColorComponentFlags(vk.ColorComponentBBit) | vk.ColorComponentFlags(vk.ColorComponentABit),
		}
		if config.Blend {
			blendAttachments[i].BlendEnable = vk.True
		}
	}
	colorBlendStateCreateInfo := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		LogicOpEnable:   vk.False,
		LogicOp:         vk.LogicOpCopy,
		AttachmentCount: uint32(len(blendAttachments)),
		PAttachments:    blendAttachments,
	}

	// Dynamic state
	dynamicStates := []vk.DynamicState{
		vk.DynamicStateViewport,
		vk.DynamicStateScissor,
	}
	dynamicStateCreateInfo := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(dynamicStates)),
		PDynamicStates:    dynamicStates,
	}

	// Vertex input
	vertexInputInfo := vk.PipelineVertexInputStateCreateInfo{
		SType: vk.StructureTypePipelineVertexInputStateCreateInfo,
	}
	if config.VertexInput {
		vertexInputInfo.VertexBindingDescriptionCount = 1
		vertexInputInfo.PVertexBindingDescriptions = []vk.VertexInputBindingDescription{{
			Binding:   0,
			Stride:    VertexStride,
			InputRate: vk.VertexInputRateVertex, // Move to next data entry for each vertex.
		}}
		attributes := []vk.VertexInputAttributeDescription{
			{Location: 0, Binding: 0, Format: vk.FormatR32g32b32Sfloat, Offset: 0},
			{Location: 1, Binding: 0, Format: vk.FormatR32g32b32Sfloat, Offset: VertexOffsetNormal},
			{Location: 2, Binding: 0, Format: vk.FormatR32g32Sfloat, Offset: VertexOffsetUV},
		}
		vertexInputInfo.VertexAttributeDescriptionCount = uint32(len(attributes))
		vertexInputInfo.PVertexAttributeDescriptions = attributes
	}

	// Input assembly
	inputAssembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:                  vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology:               vk.PrimitiveTopologyTriangleList,
		PrimitiveRestartEnable: vk.False,
	}

	renderingInfo := vk.PipelineRenderingCreateInfo{
		SType:                   vk.StructureTypePipelineRenderingCreateInfo,
		ColorAttachmentCount:    uint32(len(config.ColorFormats)),
		PColorAttachmentFormats: config.ColorFormats,
		DepthAttachmentFormat:   config.DepthFormat,
		StencilAttachmentFormat: vk.FormatUndefined,
	}

	pipelineCreateInfo := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		PNext:               unsafe.Pointer(renderingInfo.Ref()),
		StageCount:          uint32(len(stages)),
		PStages:             stages,
		PVertexInputState:   &vertexInputInfo,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterizerCreateInfo,
		PMultisampleState:   &multisamplingCreateInfo,
		PDepthStencilState:  &depthStencil,
		PColorBlendState:    &colorBlendStateCreateInfo,
		PDynamicState:       &dynamicStateCreateInfo,
		Layout:              p.Layout,
		Subpass:             0,
		BasePipelineHandle:  vk.NullPipeline,
		BasePipelineIndex:   -1,
	}

	pipelines := make([]vk.Pipeline, 1)
	if err := context.locks.SafeCall(PipelineManagement, func() error {
		return resultError(vk.CreateGraphicsPipelines(p.device, vk.NullPipelineCache, 1,
			[]vk.GraphicsPipelineCreateInfo{pipelineCreateInfo}, context.Allocator, pipelines), "vkCreateGraphicsPipelines "+config.Name)
	}); err != nil {
		return nil, err
	}
	p.Handle = pipelines[0]

	core.LogDebug("Graphics pipeline %s created.", config.Name)
	return p, nil
}

// Destroy releases the pipeline. The layout belongs to the bindless table.
func (p *Pipeline) Destroy() {
	if p.device == nil {
		return
	}
	core.Assert(p.Handle != vk.NullPipeline, "pipeline %s destroyed twice", p.Name)
	vk.DestroyPipeline(p.device, p.Handle, p.allocator)
	p.Handle = vk.NullPipeline
}
