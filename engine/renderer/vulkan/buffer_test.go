package vulkan

import (
	"math"
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
)

func TestPadBufferSize(t *testing.T) {
	sizes := []uint64{0, 1, 4, 15, 16, 17, 255, 256, 257, 4096, 100_000}
	aligns := []uint64{1, 4, 16, 64, 256}
	for _, size := range sizes {
		for _, align := range aligns {
			padded := PadBufferSize(size, align)
			assert.GreaterOrEqual(t, padded, size)
			assert.Zero(t, padded%align, "size %d align %d", size, align)
			assert.Less(t, padded-size, align)
			assert.Equal(t, padded, PadBufferSize(padded, align), "padding must be idempotent")
		}
	}
	assert.Equal(t, uint64(13), PadBufferSize(13, 0))
}

func TestPadBufferSizeOverflow(t *testing.T) {
	assert.Equal(t, uint64(math.MaxUint64), PadBufferSize(math.MaxUint64, 1))
	assert.Equal(t, uint64(math.MaxUint64-255), PadBufferSize(math.MaxUint64-255, 256))
	assert.Panics(t, func() { PadBufferSize(math.MaxUint64-254, 256) })
	assert.Panics(t, func() { PadBufferSize(math.MaxUint64, 2) })
}

func TestHostBufferWrites(t *testing.T) {
	b := NewHostBuffer("test", 16, vk.BufferUsageFlags(vk.BufferUsageShaderDeviceAddressBit), 0x1000)
	b.Write(4, []byte{1, 2, 3})
	assert.Equal(t, []byte{0, 0, 0, 0, 1, 2, 3, 0}, b.Mapped[:8])
	assert.Equal(t, uint64(0x1000), b.Address)

	assert.Panics(t, func() { b.Write(14, []byte{1, 2, 3}) })

	b.Destroy()
	assert.Panics(t, func() { b.Destroy() })
	assert.Panics(t, func() { b.UpdateContents([]byte{1}) })
}
