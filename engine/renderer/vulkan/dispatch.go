package vulkan

/*
#include <stdint.h>
#include <stdlib.h>

// Dispatchable handles are pointers and the structs are passed by address,
// so the entry points are declared without the Vulkan headers.
typedef void* (*lumenProcAddr)(void* handle, const char* name);
typedef void (*lumenCmdBeginRendering)(void* commandBuffer, const void* renderingInfo);
typedef void (*lumenCmdEndRendering)(void* commandBuffer);
typedef uint64_t (*lumenGetBufferDeviceAddress)(void* device, const void* info);
typedef void (*lumenGetPhysicalDeviceFeatures2)(void* physicalDevice, void* features);

static void* lumenLoad(void* getProcAddr, void* handle, const char* name) {
	return ((lumenProcAddr)getProcAddr)(handle, name);
}

static void lumenCallCmdBeginRendering(void* fn, void* commandBuffer, const void* renderingInfo) {
	((lumenCmdBeginRendering)fn)(commandBuffer, renderingInfo);
}

static void lumenCallCmdEndRendering(void* fn, void* commandBuffer) {
	((lumenCmdEndRendering)fn)(commandBuffer);
}

static uint64_t lumenCallGetBufferDeviceAddress(void* fn, void* device, const void* info) {
	return ((lumenGetBufferDeviceAddress)fn)(device, info);
}

static void lumenCallGetPhysicalDeviceFeatures2(void* fn, void* physicalDevice, void* features) {
	((lumenGetPhysicalDeviceFeatures2)fn)(physicalDevice, features);
}
*/
import "C"

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/lumen/engine/core"
)

// instanceFunctions are the instance level entry points the binding does not wrap.
type instanceFunctions struct {
	getDeviceProcAddr          unsafe.Pointer
	getPhysicalDeviceFeatures2 unsafe.Pointer
}

// deviceFunctions are the Vulkan 1.2 and 1.3 device commands the binding does not wrap.
type deviceFunctions struct {
	cmdBeginRendering      unsafe.Pointer
	cmdEndRendering        unsafe.Pointer
	getBufferDeviceAddress unsafe.Pointer
}

func loadProc(getProcAddr, handle unsafe.Pointer, name string) unsafe.Pointer {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))
	return C.lumenLoad(getProcAddr, handle, cname)
}

func loadInstanceFunctions(getInstanceProcAddr unsafe.Pointer, instance vk.Instance) (*instanceFunctions, error) {
	handle := unsafe.Pointer(instance)
	f := &instanceFunctions{
		getDeviceProcAddr:          loadProc(getInstanceProcAddr, handle, "vkGetDeviceProcAddr"),
		getPhysicalDeviceFeatures2: loadProc(getInstanceProcAddr, handle, "vkGetPhysicalDeviceFeatures2"),
	}
	if f.getDeviceProcAddr == nil {
		return nil, errors.Mark(errors.New("vkGetDeviceProcAddr is not available"), core.ErrFeatureMissing)
	}
	if f.getPhysicalDeviceFeatures2 == nil {
		return nil, errors.Mark(errors.New("vkGetPhysicalDeviceFeatures2 is not available"), core.ErrFeatureMissing)
	}
	return f, nil
}

func (f *instanceFunctions) loadDeviceFunctions(device vk.Device) (*deviceFunctions, error) {
	handle := unsafe.Pointer(device)
	d := &deviceFunctions{
		cmdBeginRendering:      loadProc(f.getDeviceProcAddr, handle, "vkCmdBeginRendering"),
		cmdEndRendering:        loadProc(f.getDeviceProcAddr, handle, "vkCmdEndRendering"),
		getBufferDeviceAddress: loadProc(f.getDeviceProcAddr, handle, "vkGetBufferDeviceAddress"),
	}
	for name, fn := range map[string]unsafe.Pointer{
		"vkCmdBeginRendering":      d.cmdBeginRendering,
		"vkCmdEndRendering":        d.cmdEndRendering,
		"vkGetBufferDeviceAddress": d.getBufferDeviceAddress,
	} {
		if fn == nil {
			return nil, errors.Mark(errors.Newf("device command %s is not available", name), core.ErrFeatureMissing)
		}
	}
	return d, nil
}

// physicalDeviceFeatures queries the core, Vulkan 1.2, Vulkan 1.3 and mesh
// shader feature structs in one vkGetPhysicalDeviceFeatures2 call. The chain
// lives in C memory because the driver writes through its pNext pointers.
// The mesh shader struct is chained only when the device exposes the extension.
func (f *instanceFunctions) physicalDeviceFeatures(physicalDevice vk.PhysicalDevice, meshExtension bool) DeviceFeatures {
	base := (*vk.PhysicalDeviceFeatures2)(C.calloc(1, C.size_t(unsafe.Sizeof(vk.PhysicalDeviceFeatures2{}))))
	v12 := (*vk.PhysicalDeviceVulkan12Features)(C.calloc(1, C.size_t(unsafe.Sizeof(vk.PhysicalDeviceVulkan12Features{}))))
	v13 := (*vk.PhysicalDeviceVulkan13Features)(C.calloc(1, C.size_t(unsafe.Sizeof(vk.PhysicalDeviceVulkan13Features{}))))
	mesh := (*meshShaderFeatures)(C.calloc(1, C.size_t(unsafe.Sizeof(meshShaderFeatures{}))))
	defer func() {
		C.free(unsafe.Pointer(base))
		C.free(unsafe.Pointer(v12))
		C.free(unsafe.Pointer(v13))
		C.free(unsafe.Pointer(mesh))
	}()

	base.SType = vk.StructureTypePhysicalDeviceFeatures2
	base.PNext = unsafe.Pointer(v12)
	v12.SType = vk.StructureTypePhysicalDeviceVulkan12Features
	v12.PNext = unsafe.Pointer(v13)
	v13.SType = vk.StructureTypePhysicalDeviceVulkan13Features
	if meshExtension {
		v13.PNext = unsafe.Pointer(mesh)
	}
	mesh.SType = vk.StructureTypePhysicalDeviceMeshShaderFeatures

	C.lumenCallGetPhysicalDeviceFeatures2(f.getPhysicalDeviceFeatures2, unsafe.Pointer(physicalDevice), unsafe.Pointer(base))

	core10 := base.Features
	return DeviceFeatures{
		SamplerAnisotropy:                      core10.SamplerAnisotropy == vk.True,
		ShaderInt64:                            core10.ShaderInt64 == vk.True,
		ShaderSampledImageArrayDynamicIndexing: core10.ShaderSampledImageArrayDynamicIndexing == vk.True,
		BufferDeviceAddress:                    v12.BufferDeviceAddress == vk.True,
		DescriptorIndexing:                     v12.DescriptorIndexing == vk.True,
		SampledImageUpdateAfterBind:            v12.DescriptorBindingSampledImageUpdateAfterBind == vk.True,
		UpdateUnusedWhilePending:               v12.DescriptorBindingUpdateUnusedWhilePending == vk.True,
		PartiallyBound:                         v12.DescriptorBindingPartiallyBound == vk.True,
		RuntimeDescriptorArray:                 v12.RuntimeDescriptorArray == vk.True,
		SampledImageArrayNonUniformIndexing:    v12.ShaderSampledImageArrayNonUniformIndexing == vk.True,
		SeparateDepthStencilLayouts:            v12.SeparateDepthStencilLayouts == vk.True,
		DynamicRendering:                       v13.DynamicRendering == vk.True,
		Synchronization2:                       v13.Synchronization2 == vk.True,
		MeshShader:                             mesh.MeshShader == vk.True,
	}
}

func (d *deviceFunctions) beginRendering(cmd vk.CommandBuffer, info *vk.RenderingInfo) {
	info.PassRef()
	defer info.Free()
	C.lumenCallCmdBeginRendering(d.cmdBeginRendering, unsafe.Pointer(cmd), unsafe.Pointer(info.Ref()))
}

func (d *deviceFunctions) endRendering(cmd vk.CommandBuffer) {
	C.lumenCallCmdEndRendering(d.cmdEndRendering, unsafe.Pointer(cmd))
}

func (d *deviceFunctions) bufferDeviceAddress(device vk.Device, buffer vk.Buffer) uint64 {
	info := &vk.BufferDeviceAddressInfo{
		SType:  vk.StructureTypeBufferDeviceAddressInfo,
		Buffer: buffer,
	}
	info.PassRef()
	defer info.Free()
	return uint64(C.lumenCallGetBufferDeviceAddress(d.getBufferDeviceAddress, unsafe.Pointer(device), unsafe.Pointer(info.Ref())))
}

// meshShaderFeatures mirrors VkPhysicalDeviceMeshShaderFeaturesEXT, which
// the binding does not generate.
type meshShaderFeatures struct {
	SType                                  vk.StructureType
	PNext                                  unsafe.Pointer
	TaskShader                             vk.Bool32
	MeshShader                             vk.Bool32
	MultiviewMeshShader                    vk.Bool32
	PrimitiveFragmentShadingRateMeshShader vk.Bool32
	MeshShaderQueries                      vk.Bool32
}
