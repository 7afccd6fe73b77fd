package vulkan

import (
	"strings"
	"unsafe"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/lumen/engine/core"
)

type Device struct {
	PhysicalDevice   vk.PhysicalDevice
	LogicalDevice    vk.Device
	SwapchainSupport SwapchainSupportInfo
	QueueFamilies    QueueFamilyInfo

	Graphics *Queue
	Present  *Queue
	Transfer *Queue
	Compute  *Queue

	Properties vk.PhysicalDeviceProperties
	Memory     vk.PhysicalDeviceMemoryProperties

	DepthFormat vk.Format
	Features    DeviceFeatures

	functions *deviceFunctions
}

const meshShaderExtension = "VK_EXT_mesh_shader"

type DeviceRequirements struct {
	Graphics             bool
	Present              bool
	Compute              bool
	Transfer             bool
	DeviceExtensionNames []string
	// MeshShading requires VK_EXT_mesh_shader and its meshShader feature.
	MeshShading bool
	// Samples is the MSAA count color and depth attachments must support.
	Samples uint32
}

// DeviceFeatures records the optional features the renderer depends on.
type DeviceFeatures struct {
	SamplerAnisotropy                      bool
	ShaderInt64                            bool
	ShaderSampledImageArrayDynamicIndexing bool
	BufferDeviceAddress                    bool
	DescriptorIndexing                     bool
	SampledImageUpdateAfterBind            bool
	UpdateUnusedWhilePending               bool
	PartiallyBound                         bool
	RuntimeDescriptorArray                 bool
	SampledImageArrayNonUniformIndexing    bool
	SeparateDepthStencilLayouts            bool
	DynamicRendering                       bool
	Synchronization2                       bool
	MeshShader                             bool
}

// checkDeviceFeatures returns an ErrFeatureMissing error naming every
// required feature f lacks.
func checkDeviceFeatures(f DeviceFeatures, req DeviceRequirements) error {
	required := []struct {
		name    string
		present bool
	}{
		{"samplerAnisotropy", f.SamplerAnisotropy},
		{"shaderInt64", f.ShaderInt64},
		{"shaderSampledImageArrayDynamicIndexing", f.ShaderSampledImageArrayDynamicIndexing},
		{"bufferDeviceAddress", f.BufferDeviceAddress},
		{"descriptorIndexing", f.DescriptorIndexing},
		{"descriptorBindingSampledImageUpdateAfterBind", f.SampledImageUpdateAfterBind},
		{"descriptorBindingUpdateUnusedWhilePending", f.UpdateUnusedWhilePending},
		{"descriptorBindingPartiallyBound", f.PartiallyBound},
		{"runtimeDescriptorArray", f.RuntimeDescriptorArray},
		{"shaderSampledImageArrayNonUniformIndexing", f.SampledImageArrayNonUniformIndexing},
		{"separateDepthStencilLayouts", f.SeparateDepthStencilLayouts},
		{"dynamicRendering", f.DynamicRendering},
		{"synchronization2", f.Synchronization2},
	}
	if req.MeshShading {
		required = append(required, struct {
			name    string
			present bool
		}{"meshShader", f.MeshShader})
	}
	var missing []string
	for _, r := range required {
		if !r.present {
			missing = append(missing, r.name)
		}
	}
	if len(missing) > 0 {
		return errors.Mark(errors.Newf("required device features missing: %s", strings.Join(missing, ", ")), core.ErrFeatureMissing)
	}
	return nil
}

// checkSampleCounts reports whether both framebuffer color and depth
// attachments support samples.
func checkSampleCounts(color, depth vk.SampleCountFlags, samples uint32) error {
	if samples <= 1 {
		return nil
	}
	bit := vk.SampleCountFlags(samples)
	if color&bit == 0 || depth&bit == 0 {
		return errors.Mark(errors.Newf("%dx MSAA is not supported for color and depth attachments", samples), core.ErrFeatureMissing)
	}
	return nil
}

type QueueFamilyInfo struct {
	GraphicsFamilyIndex uint32
	PresentFamilyIndex  uint32
	ComputeFamilyIndex  uint32
	TransferFamilyIndex uint32
}

// queueFamily is the subset of a queue family's properties used for selection.
type queueFamily struct {
	flags   vk.QueueFlags
	present bool
}

// selectQueueFamilies picks one family per role. Transfer goes to the family
// with the fewest other capabilities, which favours dedicated DMA queues;
// compute prefers a family without graphics.
func selectQueueFamilies(families []queueFamily, req DeviceRequirements) (QueueFamilyInfo, error) {
	var info QueueFamilyInfo
	var hasGraphics, hasPresent, hasCompute, hasTransfer bool
	minTransferScore := 255
	minComputeScore := 255

	for i, f := range families {
		idx := uint32(i)
		graphics := f.flags&vk.QueueFlags(vk.QueueGraphicsBit) != 0
		compute := f.flags&vk.QueueFlags(vk.QueueComputeBit) != 0
		transfer := f.flags&vk.QueueFlags(vk.QueueTransferBit) != 0

		if graphics && !hasGraphics {
			info.GraphicsFamilyIndex = idx
			hasGraphics = true
		}
		if f.present && (!hasPresent || (graphics && info.GraphicsFamilyIndex == idx)) {
			info.PresentFamilyIndex = idx
			hasPresent = true
		}
		if compute {
			score := 0
			if graphics {
				score++
			}
			if score < minComputeScore {
				minComputeScore = score
				info.ComputeFamilyIndex = idx
				hasCompute = true
			}
		}
		// Graphics and compute queues implicitly support transfer.
		if transfer || graphics || compute {
			score := 0
			if graphics {
				score++
			}
			if compute {
				score++
			}
			if score < minTransferScore {
				minTransferScore = score
				info.TransferFamilyIndex = idx
				hasTransfer = true
			}
		}
	}

	missing := func(required, found bool, role string) error {
		if required && !found {
			return errors.Mark(errors.Newf("no %s queue family", role), core.ErrQueueFamilyMissing)
		}
		return nil
	}
	if err := errors.CombineErrors(
		errors.CombineErrors(missing(req.Graphics, hasGraphics, "graphics"), missing(req.Present, hasPresent, "present")),
		errors.CombineErrors(missing(req.Compute, hasCompute, "compute"), missing(req.Transfer, hasTransfer, "transfer")),
	); err != nil {
		return info, err
	}
	return info, nil
}

func DeviceCreate(context *Context, requirements DeviceRequirements) (*Device, error) {
	device, err := SelectPhysicalDevice(context, requirements)
	if err != nil {
		return nil, err
	}

	core.LogInfo("Creating logical device...")

	// NOTE: Do not create additional queues for shared indices.
	q := device.QueueFamilies
	indices := []uint32{q.GraphicsFamilyIndex}
	for _, idx := range []uint32{q.PresentFamilyIndex, q.TransferFamilyIndex, q.ComputeFamilyIndex} {
		dup := false
		for _, existing := range indices {
			if existing == idx {
				dup = true
				break
			}
		}
		if !dup {
			indices = append(indices, idx)
		}
	}

	queueCreateInfos := make([]vk.DeviceQueueCreateInfo, len(indices))
	for i, idx := range indices {
		queueCreateInfos[i] = vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: idx,
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		}
	}

	extensionNames, err := deviceExtensions(device.PhysicalDevice, requirements.DeviceExtensionNames)
	if err != nil {
		return nil, err
	}

	// Vulkan 1.3 core features: dynamic rendering, synchronization2. Vulkan 1.2:
	// buffer device address and descriptor indexing for the bindless table.
	features13 := &vk.PhysicalDeviceVulkan13Features{
		SType:            vk.StructureTypePhysicalDeviceVulkan13Features,
		DynamicRendering: vk.True,
		Synchronization2: vk.True,
	}
	if requirements.MeshShading {
		features13.PNext = unsafe.Pointer(&meshShaderFeatures{
			SType:      vk.StructureTypePhysicalDeviceMeshShaderFeatures,
			MeshShader: vk.True,
		})
	}
	features12 := &vk.PhysicalDeviceVulkan12Features{
		SType:                       vk.StructureTypePhysicalDeviceVulkan12Features,
		PNext:                       unsafe.Pointer(features13),
		BufferDeviceAddress:         vk.True,
		DescriptorIndexing:          vk.True,
		SeparateDepthStencilLayouts: vk.True,
		DescriptorBindingSampledImageUpdateAfterBind: vk.True,
		DescriptorBindingUpdateUnusedWhilePending:    vk.True,
		DescriptorBindingPartiallyBound:              vk.True,
		RuntimeDescriptorArray:                       vk.True,
		ShaderSampledImageArrayNonUniformIndexing:    vk.True,
	}

	deviceCreateInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		PNext:                   unsafe.Pointer(features12),
		QueueCreateInfoCount:    uint32(len(queueCreateInfos)),
		PQueueCreateInfos:       queueCreateInfos,
		EnabledExtensionCount:   uint32(len(extensionNames)),
		PpEnabledExtensionNames: VulkanSafeStrings(extensionNames),
		PEnabledFeatures: []vk.PhysicalDeviceFeatures{{
			SamplerAnisotropy:                      vk.True,
			ShaderSampledImageArrayDynamicIndexing: vk.True,
			ShaderInt64:                            vk.True,
		}},
	}

	if err := resultError(vk.CreateDevice(device.PhysicalDevice, &deviceCreateInfo, context.Allocator, &device.LogicalDevice), "vkCreateDevice"); err != nil {
		return nil, err
	}
	core.LogInfo("Logical device created.")

	if device.functions, err = context.instance.loadDeviceFunctions(device.LogicalDevice); err != nil {
		vk.DestroyDevice(device.LogicalDevice, context.Allocator)
		return nil, err
	}

	queue := func(family uint32) *Queue {
		var handle vk.Queue
		vk.GetDeviceQueue(device.LogicalDevice, family, 0, &handle)
		return &Queue{Handle: handle, Family: family, locks: context.locks}
	}
	device.Graphics = queue(q.GraphicsFamilyIndex)
	device.Present = queue(q.PresentFamilyIndex)
	device.Transfer = queue(q.TransferFamilyIndex)
	device.Compute = queue(q.ComputeFamilyIndex)
	core.LogInfo("Queues obtained.")

	if err := DeviceDetectDepthFormat(device); err != nil {
		return nil, err
	}
	return device, nil
}

// deviceExtensions returns the required extensions plus portability_subset when the device exposes it.
func deviceExtensions(physicalDevice vk.PhysicalDevice, required []string) ([]string, error) {
	available, err := availableDeviceExtensions(physicalDevice)
	if err != nil {
		return nil, err
	}
	names := append([]string{}, required...)
	if _, ok := available["VK_KHR_portability_subset"]; ok {
		core.LogInfo("Adding required extension 'VK_KHR_portability_subset'.")
		names = append(names, "VK_KHR_portability_subset")
	}
	return names, nil
}

func availableDeviceExtensions(physicalDevice vk.PhysicalDevice) (map[string]struct{}, error) {
	var count uint32
	if err := resultError(vk.EnumerateDeviceExtensionProperties(physicalDevice, "", &count, nil), "vkEnumerateDeviceExtensionProperties"); err != nil {
		return nil, err
	}
	extensions := make([]vk.ExtensionProperties, count)
	if err := resultError(vk.EnumerateDeviceExtensionProperties(physicalDevice, "", &count, extensions), "vkEnumerateDeviceExtensionProperties"); err != nil {
		return nil, err
	}
	out := make(map[string]struct{}, count)
	for i := range extensions {
		extensions[i].Deref()
		end := FindFirstZeroInByteArray(extensions[i].ExtensionName[:])
		out[string(extensions[i].ExtensionName[:end])] = struct{}{}
	}
	return out, nil
}

func DeviceDestroy(context *Context, device *Device) {
	device.Graphics, device.Present, device.Transfer, device.Compute = nil, nil, nil, nil

	// Destroy logical device
	core.LogInfo("Destroying logical device...")
	if device.LogicalDevice != nil {
		vk.DestroyDevice(device.LogicalDevice, context.Allocator)
		device.LogicalDevice = nil
	}

	// Physical devices are not destroyed.
	device.PhysicalDevice = nil
	device.SwapchainSupport = SwapchainSupportInfo{}
}

func DeviceQuerySwapchainSupport(physicalDevice vk.PhysicalDevice, surface vk.Surface) (SwapchainSupportInfo, error) {
	var info SwapchainSupportInfo
	// Surface capabilities
	if err := resultError(vk.GetPhysicalDeviceSurfaceCapabilities(physicalDevice, surface, &info.Capabilities), "vkGetPhysicalDeviceSurfaceCapabilitiesKHR"); err != nil {
		return info, err
	}
	info.Capabilities.Deref()
	info.Capabilities.CurrentExtent.Deref()
	info.Capabilities.MinImageExtent.Deref()
	info.Capabilities.MaxImageExtent.Deref()

	// Surface formats
	var formatCount uint32
	if err := resultError(vk.GetPhysicalDeviceSurfaceFormats(physicalDevice, surface, &formatCount, nil), "vkGetPhysicalDeviceSurfaceFormatsKHR"); err != nil {
		return info, err
	}
	if formatCount != 0 {
		info.Formats = make([]vk.SurfaceFormat, formatCount)
		if err := resultError(vk.GetPhysicalDeviceSurfaceFormats(physicalDevice, surface, &formatCount, info.Formats), "vkGetPhysicalDeviceSurfaceFormatsKHR"); err != nil {
			return info, err
		}
		for i := range info.Formats {
			info.Formats[i].Deref()
		}
	}

	// Present modes
	var modeCount uint32
	if err := resultError(vk.GetPhysicalDeviceSurfacePresentModes(physicalDevice, surface, &modeCount, nil), "vkGetPhysicalDeviceSurfacePresentModesKHR"); err != nil {
		return info, err
	}
	if modeCount != 0 {
		info.PresentModes = make([]vk.PresentMode, modeCount)
		if err := resultError(vk.GetPhysicalDeviceSurfacePresentModes(physicalDevice, surface, &modeCount, info.PresentModes), "vkGetPhysicalDeviceSurfacePresentModesKHR"); err != nil {
			return info, err
		}
	}
	return info, nil
}

func DeviceDetectDepthFormat(device *Device) error {
	// Format candidates
	candidates := []vk.Format{
		vk.FormatD32Sfloat,
		vk.FormatD32SfloatS8Uint,
		vk.FormatD24UnormS8Uint,
	}
	flags := vk.FormatFeatureFlags(vk.FormatFeatureDepthStencilAttachmentBit | vk.FormatFeatureSampledImageBit)
	for _, candidate := range candidates {
		var properties vk.FormatProperties
		vk.GetPhysicalDeviceFormatProperties(device.PhysicalDevice, candidate, &properties)
		properties.Deref()
		if properties.OptimalTilingFeatures&flags == flags {
			device.DepthFormat = candidate
			return nil
		}
	}
	device.DepthFormat = vk.FormatUndefined
	return errors.Mark(errors.New("failed to find a supported depth format"), core.ErrFeatureMissing)
}

func SelectPhysicalDevice(context *Context, requirements DeviceRequirements) (*Device, error) {
	var physicalDeviceCount uint32
	if err := resultError(vk.EnumeratePhysicalDevices(context.Instance, &physicalDeviceCount, nil), "vkEnumeratePhysicalDevices"); err != nil {
		return nil, err
	}
	if physicalDeviceCount == 0 {
		return nil, errors.Mark(errors.New("no devices which support Vulkan were found"), core.ErrFeatureMissing)
	}
	physicalDevices := make([]vk.PhysicalDevice, physicalDeviceCount)
	if err := resultError(vk.EnumeratePhysicalDevices(context.Instance, &physicalDeviceCount, physicalDevices), "vkEnumeratePhysicalDevices"); err != nil {
		return nil, err
	}

	var reasons error
	for _, pd := range physicalDevices {
		device, err := PhysicalDeviceMeetsRequirements(context, pd, requirements)
		if err != nil {
			reasons = errors.CombineErrors(reasons, err)
			continue
		}
		logDevice(device)
		return device, nil
	}
	return nil, errors.Wrap(reasons, "no physical devices were found which meet the requirements")
}

func logDevice(device *Device) {
	properties := device.Properties
	core.LogInfo("Selected device: '%s'.", deviceName(properties))
	switch properties.DeviceType {
	case vk.PhysicalDeviceTypeIntegratedGpu:
		core.LogInfo("GPU type is Integrated.")
	case vk.PhysicalDeviceTypeDiscreteGpu:
		core.LogInfo("GPU type is Discrete.")
	case vk.PhysicalDeviceTypeVirtualGpu:
		core.LogInfo("GPU type is Virtual.")
	case vk.PhysicalDeviceTypeCpu:
		core.LogInfo("GPU type is CPU.")
	default:
		core.LogInfo("GPU type is Unknown.")
	}
	core.LogInfo(
		"GPU Driver version: %d.%d.%d",
		vk.Version(properties.DriverVersion).Major(),
		vk.Version(properties.DriverVersion).Minor(),
		vk.Version(properties.DriverVersion).Patch(),
	)
	core.LogInfo(
		"Vulkan API version: %d.%d.%d",
		vk.Version(properties.ApiVersion).Major(),
		vk.Version(properties.ApiVersion).Minor(),
		vk.Version(properties.ApiVersion).Patch(),
	)
	memory := device.Memory
	for j := uint32(0); j < memory.MemoryHeapCount; j++ {
		memory.MemoryHeaps[j].Deref()
		sizeGiB := float64(memory.MemoryHeaps[j].Size) / 1024.0 / 1024.0 / 1024.0
		if memory.MemoryHeaps[j].Flags&vk.MemoryHeapFlags(vk.MemoryHeapDeviceLocalBit) != 0 {
			core.LogInfo("Local GPU memory: %.2f GiB", sizeGiB)
		} else {
			core.LogInfo("Shared System memory: %.2f GiB", sizeGiB)
		}
	}
}

// PhysicalDeviceMeetsRequirements returns a Device describing physicalDevice,
// or an error naming the first unmet requirement.
func PhysicalDeviceMeetsRequirements(context *Context, physicalDevice vk.PhysicalDevice, requirements DeviceRequirements) (*Device, error) {
	surface := context.Surface
	device := &Device{PhysicalDevice: physicalDevice}
	vk.GetPhysicalDeviceProperties(physicalDevice, &device.Properties)
	device.Properties.Deref()
	device.Properties.Limits.Deref()
	vk.GetPhysicalDeviceMemoryProperties(physicalDevice, &device.Memory)
	device.Memory.Deref()

	api := vk.Version(device.Properties.ApiVersion)
	if api.Major() < 1 || (api.Major() == 1 && api.Minor() < 3) {
		return nil, errors.Mark(errors.Newf("device supports Vulkan %d.%d, 1.3 is required", api.Major(), api.Minor()), core.ErrFeatureMissing)
	}

	var queueFamilyCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(physicalDevice, &queueFamilyCount, nil)
	properties := make([]vk.QueueFamilyProperties, queueFamilyCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(physicalDevice, &queueFamilyCount, properties)

	families := make([]queueFamily, queueFamilyCount)
	for i := range properties {
		properties[i].Deref()
		var supportsPresent vk.Bool32
		if err := resultError(vk.GetPhysicalDeviceSurfaceSupport(physicalDevice, uint32(i), surface, &supportsPresent), "vkGetPhysicalDeviceSurfaceSupportKHR"); err != nil {
			return nil, err
		}
		families[i] = queueFamily{flags: properties[i].QueueFlags, present: supportsPresent == vk.True}
	}
	queueInfo, err := selectQueueFamilies(families, requirements)
	if err != nil {
		return nil, err
	}
	device.QueueFamilies = queueInfo
	core.LogDebug("Graphics Family Index: %d", queueInfo.GraphicsFamilyIndex)
	core.LogDebug("Present Family Index:  %d", queueInfo.PresentFamilyIndex)
	core.LogDebug("Transfer Family Index: %d", queueInfo.TransferFamilyIndex)
	core.LogDebug("Compute Family Index:  %d", queueInfo.ComputeFamilyIndex)

	support, err := DeviceQuerySwapchainSupport(physicalDevice, surface)
	if err != nil {
		return nil, err
	}
	if len(support.Formats) == 0 || len(support.PresentModes) == 0 {
		return nil, errors.Mark(errors.New("required swapchain support not present"), core.ErrFeatureMissing)
	}
	device.SwapchainSupport = support

	available, err := availableDeviceExtensions(physicalDevice)
	if err != nil {
		return nil, err
	}
	for _, name := range requirements.DeviceExtensionNames {
		if _, ok := available[name]; !ok {
			return nil, errors.Mark(errors.Newf("required extension not found: '%s'", name), core.ErrFeatureMissing)
		}
	}

	_, meshExtension := available[meshShaderExtension]
	device.Features = context.instance.physicalDeviceFeatures(physicalDevice, meshExtension)
	if err := checkDeviceFeatures(device.Features, requirements); err != nil {
		return nil, errors.Wrapf(err, "device '%s'", deviceName(device.Properties))
	}
	limits := device.Properties.Limits
	if err := checkSampleCounts(limits.FramebufferColorSampleCounts, limits.FramebufferDepthSampleCounts, requirements.Samples); err != nil {
		return nil, errors.Wrapf(err, "device '%s'", deviceName(device.Properties))
	}
	return device, nil
}

func deviceName(properties vk.PhysicalDeviceProperties) string {
	return string(properties.DeviceName[:FindFirstZeroInByteArray(properties.DeviceName[:])])
}
