package vulkan

import (
	"runtime"
	"unsafe"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/lumen/engine/core"
)

// Window is the part of the platform layer the renderer needs: instance
// extensions, a surface and the framebuffer size.
type Window interface {
	InstanceProcAddr() unsafe.Pointer
	RequiredInstanceExtensions() []string
	CreateSurface(instance vk.Instance) (vk.Surface, error)
	FramebufferSize() (uint32, uint32)
}

type ContextConfig struct {
	ApplicationName    string
	Validation         bool
	RequireMeshShading bool
	MSAASamples        uint32
}

// Context owns the instance, the surface, the logical device and the
// command pools used for one-off uploads.
type Context struct {
	Instance  vk.Instance
	Allocator *vk.AllocationCallbacks
	Surface   vk.Surface

	Device *Device

	GraphicsPool *CommandPool
	TransferPool *CommandPool

	debugCallback vk.DebugReportCallback
	locks         *VulkanLockPool
	instance      *instanceFunctions
}

func NewContext(cfg ContextConfig, window Window) (*Context, error) {
	procAddr := window.InstanceProcAddr()
	if procAddr == nil {
		return nil, errors.New("GetInstanceProcAddress is nil")
	}
	vk.SetGetInstanceProcAddr(procAddr)
	if err := vk.Init(); err != nil {
		return nil, errors.Wrap(err, "failed to initialize vk")
	}

	c := &Context{
		Allocator: nil,
		locks:     NewVulkanLockPool(),
	}
	if err := c.createInstance(cfg, window.RequiredInstanceExtensions()); err != nil {
		c.Destroy()
		return nil, err
	}
	var err error
	if c.instance, err = loadInstanceFunctions(procAddr, c.Instance); err != nil {
		c.Destroy()
		return nil, err
	}

	core.LogDebug("Creating Vulkan surface...")
	surface, err := window.CreateSurface(c.Instance)
	if err != nil {
		c.Destroy()
		return nil, errors.Wrap(err, "failed to create platform surface")
	}
	c.Surface = surface
	core.LogDebug("Vulkan surface created.")

	requirements := DeviceRequirements{
		Graphics:             true,
		Present:              true,
		Transfer:             true,
		Compute:              true,
		DeviceExtensionNames: []string{vk.KhrSwapchainExtensionName},
		MeshShading:          cfg.RequireMeshShading,
		Samples:              cfg.MSAASamples,
	}
	if cfg.RequireMeshShading {
		requirements.DeviceExtensionNames = append(requirements.DeviceExtensionNames, meshShaderExtension)
	}
	device, err := DeviceCreate(c, requirements)
	if err != nil {
		c.Destroy()
		return nil, err
	}
	c.Device = device

	if c.GraphicsPool, err = NewCommandPool(c, "graphics-upload", device.Graphics.Family); err != nil {
		c.Destroy()
		return nil, err
	}
	if c.TransferPool, err = NewCommandPool(c, "transfer-upload", device.Transfer.Family); err != nil {
		c.Destroy()
		return nil, err
	}
	return c, nil
}

func (c *Context) createInstance(cfg ContextConfig, platformExtensions []string) error {
	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 3, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(cfg.ApplicationName),
		PEngineName:        VulkanSafeString("Lumen"),
	}

	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}

	// Obtain a list of required extensions
	requiredExtensions := []string{"VK_KHR_surface"}
	requiredExtensions = append(requiredExtensions, platformExtensions...)
	if runtime.GOOS == "darwin" {
		requiredExtensions = append(requiredExtensions,
			"VK_KHR_portability_enumeration",
			"VK_KHR_get_physical_device_properties2",
		)
		createInfo.Flags |= 1 // VK_INSTANCE_CREATE_ENUMERATE_PORTABILITY_BIT_KHR
	}
	if cfg.Validation {
		requiredExtensions = append(requiredExtensions, vk.ExtDebugReportExtensionName)
	}
	core.LogDebug("Required instance extensions: %v", requiredExtensions)
	createInfo.EnabledExtensionCount = uint32(len(requiredExtensions))
	createInfo.PpEnabledExtensionNames = VulkanSafeStrings(requiredExtensions)

	// Validation layers.
	var layers []string
	if cfg.Validation {
		layers = []string{"VK_LAYER_KHRONOS_validation"}
		if err := checkLayers(layers); err != nil {
			return err
		}
	}
	createInfo.EnabledLayerCount = uint32(len(layers))
	createInfo.PpEnabledLayerNames = VulkanSafeStrings(layers)

	if err := resultError(vk.CreateInstance(&createInfo, c.Allocator, &c.Instance), "vkCreateInstance"); err != nil {
		return err
	}
	if err := vk.InitInstance(c.Instance); err != nil {
		return errors.Wrap(err, "InitInstance")
	}
	core.LogInfo("Vulkan Instance created.")

	if cfg.Validation {
		debugCreateInfo := vk.DebugReportCallbackCreateInfo{
			SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
			Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
			PfnCallback: dbgCallbackFunc,
		}
		var dbg vk.DebugReportCallback
		if err := resultError(vk.CreateDebugReportCallback(c.Instance, &debugCreateInfo, nil, &dbg), "vkCreateDebugReportCallback"); err != nil {
			return err
		}
		c.debugCallback = dbg
		core.LogDebug("Vulkan debugger created.")
	}
	return nil
}

func checkLayers(required []string) error {
	var count uint32
	if err := resultError(vk.EnumerateInstanceLayerProperties(&count, nil), "vkEnumerateInstanceLayerProperties"); err != nil {
		return err
	}
	available := make([]vk.LayerProperties, count)
	if err := resultError(vk.EnumerateInstanceLayerProperties(&count, available), "vkEnumerateInstanceLayerProperties"); err != nil {
		return err
	}
	for _, name := range required {
		found := false
		for j := range available {
			available[j].Deref()
			end := FindFirstZeroInByteArray(available[j].LayerName[:])
			if name == string(available[j].LayerName[:end]) {
				found = true
				break
			}
		}
		if !found {
			return errors.Mark(errors.Newf("required validation layer is missing: %s", name), core.ErrFeatureMissing)
		}
	}
	core.LogInfo("All required validation layers are present.")
	return nil
}

// FindMemoryIndex returns the first memory type allowed by typeFilter that has all the given property flags.
func (c *Context) FindMemoryIndex(typeFilter uint32, flags vk.MemoryPropertyFlags) (uint32, error) {
	memory := c.Device.Memory
	for i := uint32(0); i < memory.MemoryTypeCount; i++ {
		memory.MemoryTypes[i].Deref()
		if (typeFilter&(1<<i)) != 0 && memory.MemoryTypes[i].PropertyFlags&flags == flags {
			return i, nil
		}
	}
	return 0, errors.Mark(errors.Newf("no memory type matches filter 0x%x with flags 0x%x", typeFilter, flags), core.ErrOutOfMemory)
}

// WaitIdle blocks until the device has finished all submitted work.
func (c *Context) WaitIdle() error {
	if c.Device == nil || c.Device.LogicalDevice == nil {
		return nil
	}
	return resultError(vk.DeviceWaitIdle(c.Device.LogicalDevice), "vkDeviceWaitIdle")
}

// DestroyCommandPools releases the upload pools. It runs before Destroy.
func (c *Context) DestroyCommandPools() {
	if c.GraphicsPool != nil {
		c.GraphicsPool.Destroy()
		c.GraphicsPool = nil
	}
	if c.TransferPool != nil {
		c.TransferPool.Destroy()
		c.TransferPool = nil
	}
}

// Destroy tears down the device, the surface, the debug callback and the instance, in that order.
func (c *Context) Destroy() {
	c.DestroyCommandPools()
	if c.Device != nil {
		DeviceDestroy(c, c.Device)
		c.Device = nil
	}
	if c.Surface != vk.NullSurface {
		core.LogDebug("Destroying Vulkan surface...")
		vk.DestroySurface(c.Instance, c.Surface, c.Allocator)
		c.Surface = vk.NullSurface
	}
	if c.debugCallback != vk.NullDebugReportCallback {
		core.LogDebug("Destroying Vulkan debugger...")
		vk.DestroyDebugReportCallback(c.Instance, c.debugCallback, c.Allocator)
		c.debugCallback = vk.NullDebugReportCallback
	}
	if c.Instance != nil {
		core.LogDebug("Destroying Vulkan instance...")
		vk.DestroyInstance(c.Instance, c.Allocator)
		c.Instance = nil
	}
}

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		core.LogError("ERROR: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		core.LogWarn("WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		core.LogWarn("PERFORMANCE WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	default:
		core.LogDebug("INFORMATION: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	}
	return vk.Bool32(vk.False)
}
