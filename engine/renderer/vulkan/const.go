package vulkan

// Bindless table bindings. Every pass binds the same set at index 0.
const (
	BindingCubeSamplers  uint32 = 0
	BindingDepthSamplers uint32 = 1
	BindingUITextures    uint32 = 2
	bindingCount                = 3
)

/**
 * @brief Size of the single push constant range shared by all pipelines.
 * Vulkan guarantees at least 128 bytes.
 */
const PushConstantSize uint32 = 128

// Default timeout, in nanoseconds, for one-off upload fences.
const uploadTimeoutNS uint64 = 5_000_000_000

// Vertex layout of every mesh: position, normal and uv, interleaved.
const (
	VertexStride       uint32 = 32
	VertexOffsetNormal uint32 = 12
	VertexOffsetUV     uint32 = 24
)
