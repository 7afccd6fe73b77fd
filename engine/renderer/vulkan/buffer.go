package vulkan

import (
	"math"
	"unsafe"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/lumen/engine/core"
)

// Buffer is a device buffer bound to its own memory allocation. Host-visible
// buffers stay mapped for their whole lifetime.
type Buffer struct {
	Name   string
	Handle vk.Buffer
	Memory vk.DeviceMemory
	// Size of the memory allocation, padded to the required alignment.
	Size  uint64
	Usage vk.BufferUsageFlags
	// Mapped is nil unless the memory is host visible.
	Mapped []byte
	// Address is the GPU virtual address, set when the usage includes
	// SHADER_DEVICE_ADDRESS.
	Address uint64

	device    vk.Device
	allocator *vk.AllocationCallbacks
	destroyed bool
}

// PadBufferSize rounds size up to a multiple of alignment.
func PadBufferSize(size, alignment uint64) uint64 {
	if alignment == 0 {
		return size
	}
	core.Assert(size <= math.MaxUint64-(alignment-1), "padding %d to %d overflows", size, alignment)
	return ((size + alignment - 1) / alignment) * alignment
}

// NewHostBuffer returns a buffer backed only by host memory, with the given
// GPU address. It is used when commands are executed on the CPU.
func NewHostBuffer(name string, size uint64, usage vk.BufferUsageFlags, address uint64) *Buffer {
	return &Buffer{
		Name:    debugName("buffer", name),
		Size:    size,
		Usage:   usage,
		Mapped:  make([]byte, size),
		Address: address,
	}
}

func (c *Context) CreateBuffer(name string, size uint64, usage vk.BufferUsageFlags, memoryFlags vk.MemoryPropertyFlags) (*Buffer, error) {
	info := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(size),
		Usage:       usage,
		SharingMode: vk.SharingModeExclusive,
	}
	return c.createBuffer(name, info, memoryFlags)
}

func (c *Context) createBuffer(name string, info vk.BufferCreateInfo, memoryFlags vk.MemoryPropertyFlags) (*Buffer, error) {
	b := &Buffer{
		Name:      debugName("buffer", name),
		Usage:     info.Usage,
		device:    c.Device.LogicalDevice,
		allocator: c.Allocator,
	}

	err := c.locks.SafeCall(MemoryManagement, func() error {
		if err := resultError(vk.CreateBuffer(b.device, &info, c.Allocator, &b.Handle), "vkCreateBuffer "+b.Name); err != nil {
			return err
		}

		var requirements vk.MemoryRequirements
		vk.GetBufferMemoryRequirements(b.device, b.Handle, &requirements)
		requirements.Deref()
		b.Size = PadBufferSize(uint64(requirements.Size), uint64(requirements.Alignment))

		memoryIndex, err := c.FindMemoryIndex(requirements.MemoryTypeBits, memoryFlags)
		if err != nil {
			return errors.Wrapf(err, "buffer %s", b.Name)
		}
		allocInfo := vk.MemoryAllocateInfo{
			SType:           vk.StructureTypeMemoryAllocateInfo,
			AllocationSize:  vk.DeviceSize(b.Size),
			MemoryTypeIndex: memoryIndex,
		}
		if b.wantsAddress() {
			allocInfo.PNext = unsafe.Pointer(&vk.MemoryAllocateFlagsInfo{
				SType: vk.StructureTypeMemoryAllocateFlagsInfo,
				Flags: vk.MemoryAllocateFlags(vk.MemoryAllocateDeviceAddressBit),
			})
		}
		if err := resultError(vk.AllocateMemory(b.device, &allocInfo, c.Allocator, &b.Memory), "vkAllocateMemory "+b.Name); err != nil {
			return err
		}
		return resultError(vk.BindBufferMemory(b.device, b.Handle, b.Memory, 0), "vkBindBufferMemory "+b.Name)
	})
	if err != nil {
		b.release()
		return nil, err
	}

	if b.wantsAddress() {
		b.Address = c.Device.functions.bufferDeviceAddress(b.device, b.Handle)
		if b.Address == 0 {
			b.release()
			return nil, errors.Mark(errors.Newf("buffer %s has no device address", b.Name), core.ErrFeatureMissing)
		}
	}

	if memoryFlags&vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit) != 0 {
		var ptr unsafe.Pointer
		if err := resultError(vk.MapMemory(b.device, b.Memory, 0, vk.DeviceSize(b.Size), 0, &ptr), "vkMapMemory "+b.Name); err != nil {
			b.release()
			return nil, err
		}
		b.Mapped = unsafe.Slice((*byte)(ptr), b.Size)
	}

	core.LogDebug("Buffer %s created: %d bytes.", b.Name, b.Size)
	return b, nil
}

func (b *Buffer) wantsAddress() bool {
	return b.Usage&vk.BufferUsageFlags(vk.BufferUsageShaderDeviceAddressBit) != 0
}

// UpdateContents copies data to the start of the mapped memory.
func (b *Buffer) UpdateContents(data []byte) {
	b.Write(0, data)
}

// Write copies data into the mapped memory at offset.
func (b *Buffer) Write(offset uint64, data []byte) {
	core.Assert(b.Mapped != nil, "buffer %s is not host visible", b.Name)
	core.Assert(offset+uint64(len(data)) <= uint64(len(b.Mapped)), "write of %d bytes at %d overflows buffer %s", len(data), offset, b.Name)
	copy(b.Mapped[offset:], data)
}

func (b *Buffer) Destroy() {
	core.Assert(!b.destroyed, "buffer %s destroyed twice", b.Name)
	b.destroyed = true
	b.release()
}

func (b *Buffer) release() {
	if b.device == nil {
		b.Mapped = nil
		return
	}
	if b.Mapped != nil {
		vk.UnmapMemory(b.device, b.Memory)
		b.Mapped = nil
	}
	if b.Memory != vk.NullDeviceMemory {
		vk.FreeMemory(b.device, b.Memory, b.allocator)
		b.Memory = vk.NullDeviceMemory
	}
	if b.Handle != vk.NullBuffer {
		vk.DestroyBuffer(b.device, b.Handle, b.allocator)
		b.Handle = vk.NullBuffer
	}
}

// UploadBuffer creates a device-local buffer holding data. The copy runs on
// the transfer queue and this call blocks until it completes.
func (c *Context) UploadBuffer(name string, data []byte, usage vk.BufferUsageFlags) (*Buffer, error) {
	size := uint64(len(data))
	staging, err := c.CreateBuffer(name+"-staging", size,
		vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit))
	if err != nil {
		return nil, err
	}
	defer staging.Destroy()
	staging.UpdateContents(data)

	dst, err := c.createSharedBuffer(name, size, usage|vk.BufferUsageFlags(vk.BufferUsageTransferDstBit))
	if err != nil {
		return nil, err
	}

	err = SingleUse(c, c.TransferPool, c.Device.Transfer, func(cmd *CommandBuffer) {
		vk.CmdCopyBuffer(cmd.Handle, staging.Handle, dst.Handle, 1, []vk.BufferCopy{{
			SrcOffset: 0,
			DstOffset: 0,
			Size:      vk.DeviceSize(size),
		}})
	})
	if err != nil {
		dst.Destroy()
		return nil, errors.Wrapf(err, "upload of buffer %s", name)
	}
	return dst, nil
}

// createSharedBuffer creates a device-local buffer, concurrently shared
// between the transfer and graphics families when they differ.
func (c *Context) createSharedBuffer(name string, size uint64, usage vk.BufferUsageFlags) (*Buffer, error) {
	info := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(size),
		Usage:       usage,
		SharingMode: vk.SharingModeExclusive,
	}
	families := c.Device.QueueFamilies
	if families.TransferFamilyIndex != families.GraphicsFamilyIndex {
		info.SharingMode = vk.SharingModeConcurrent
		info.QueueFamilyIndexCount = 2
		info.PQueueFamilyIndices = []uint32{families.TransferFamilyIndex, families.GraphicsFamilyIndex}
	}
	return c.createBuffer(name, info, vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
}
