package softgpu

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/lumen/engine/renderer/vulkan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	fragmentTests = vk.PipelineStageFlags(vk.PipelineStageEarlyFragmentTestsBit | vk.PipelineStageLateFragmentTestsBit)
	colorOutput   = vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)
)

func depthImage(t *testing.T, d *Device, size uint32) *vulkan.Image {
	img, err := d.CreateImage(vulkan.ImageConfig{
		Name:   "depth",
		Format: vk.FormatD32Sfloat,
		Width:  size,
		Height: size,
		Aspect: vk.ImageAspectFlags(vk.ImageAspectDepthBit),
	})
	require.NoError(t, err)
	return img
}

func TestLayoutMismatchIsReported(t *testing.T) {
	d := New()
	img := depthImage(t, d, 4)
	d.BeginStage("first", colorOutput)
	d.PipelineBarrier(vulkan.DepthAttachmentBarrier(img))
	assert.Empty(t, d.Violations)
	assert.Equal(t, vk.ImageLayoutDepthAttachmentOptimal, d.Layout(img))

	d.PipelineBarrier(vulkan.ImageBarrier{
		Image:     img,
		OldLayout: vk.ImageLayoutShaderReadOnlyOptimal,
		NewLayout: vk.ImageLayoutDepthStencilReadOnlyOptimal,
		SrcStage:  fragmentTests,
		DstStage:  fragmentTests,
	})
	require.Len(t, d.Violations, 1)
	assert.Contains(t, d.Violations[0].Message, "SHADER_READ_ONLY_OPTIMAL")
}

func TestCrossStageBarrierMustIntersectWaitMask(t *testing.T) {
	d := New()
	img := depthImage(t, d, 4)

	d.BeginStage("producer", colorOutput)
	d.PipelineBarrier(vulkan.DepthAttachmentBarrier(img))
	d.BeginRendering(vulkan.RenderingInfo{Width: 4, Height: 4, Depth: &vulkan.Attachment{
		Image:  img,
		Layout: vk.ImageLayoutDepthAttachmentOptimal,
		LoadOp: vk.AttachmentLoadOpClear,
		Clear:  [4]float32{1},
	}})
	d.EndRendering()
	require.Empty(t, d.Violations)

	toRead := vulkan.ImageBarrier{
		Image:     img,
		OldLayout: vk.ImageLayoutDepthAttachmentOptimal,
		NewLayout: vk.ImageLayoutDepthStencilReadOnlyOptimal,
		SrcStage:  fragmentTests,
		DstStage:  vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit),
	}

	d.BeginStage("bad-consumer", colorOutput)
	d.PipelineBarrier(toRead)
	require.Len(t, d.Violations, 1)
	assert.Equal(t, "bad-consumer", d.Violations[0].Stage)

	// Put the image back and replay with a correct wait mask.
	d.Reset()
	d.BeginStage("producer", colorOutput)
	d.PipelineBarrier(vulkan.DepthAttachmentBarrier(img))
	d.BeginRendering(vulkan.RenderingInfo{Width: 4, Height: 4, Depth: &vulkan.Attachment{Image: img, Layout: vk.ImageLayoutDepthAttachmentOptimal}})
	d.EndRendering()
	d.BeginStage("good-consumer", fragmentTests)
	d.PipelineBarrier(toRead)
	assert.Empty(t, d.Violations)
}

func TestAttachmentWithoutBarrierIsReported(t *testing.T) {
	d := New()
	img := depthImage(t, d, 2)
	d.BeginStage("only", colorOutput)
	d.BeginRendering(vulkan.RenderingInfo{Width: 2, Height: 2, Depth: &vulkan.Attachment{Image: img, Layout: vk.ImageLayoutDepthAttachmentOptimal}})
	d.EndRendering()
	require.NotEmpty(t, d.Violations)
	assert.Contains(t, d.Violations[0].Message, "UNDEFINED")
}

func TestAddressResolution(t *testing.T) {
	d := New()
	usage := vk.BufferUsageFlags(vk.BufferUsageShaderDeviceAddressBit)
	a, err := d.CreateBuffer("a", 64, usage, 0)
	require.NoError(t, err)
	b, err := d.CreateBuffer("b", 64, usage, 0)
	require.NoError(t, err)
	plain, err := d.CreateBuffer("plain", 64, vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit), 0)
	require.NoError(t, err)

	assert.NotZero(t, a.Address)
	assert.Greater(t, b.Address, a.Address)
	assert.Zero(t, plain.Address)
	assert.Zero(t, b.Address%addressAlignment)

	m := mgl32.Translate3D(1, 2, 3)
	for i, f := range m {
		binary.LittleEndian.PutUint32(b.Mapped[i*4:], math.Float32bits(f))
	}
	got, ok := d.ReadMat4(b.Address)
	require.True(t, ok)
	assert.Equal(t, m, got)

	_, ok = d.ReadMat4(b.Address + b.Size - 8)
	assert.False(t, ok)
	_, ok = d.ReadUint32(1)
	assert.False(t, ok)
}

func TestRasterizeFullScreenQuad(t *testing.T) {
	d := New()
	img := depthImage(t, d, 8)

	positions := []mgl32.Vec3{{-1, -1, 0.5}, {1, -1, 0.5}, {1, 1, 0.5}, {-1, 1, 0.25}}
	vertices := make([]byte, len(positions)*int(vulkan.VertexStride))
	for i, p := range positions {
		for k := 0; k < 3; k++ {
			binary.LittleEndian.PutUint32(vertices[i*int(vulkan.VertexStride)+k*4:], math.Float32bits(p[k]))
		}
	}
	indices := make([]byte, 6*4)
	for i, idx := range []uint32{0, 1, 2, 0, 2, 3} {
		binary.LittleEndian.PutUint32(indices[i*4:], idx)
	}
	vb, _ := d.UploadBuffer("vertices", vertices, vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit))
	ib, _ := d.UploadBuffer("indices", indices, vk.BufferUsageFlags(vk.BufferUsageIndexBufferBit))

	d.Programs["passthrough"] = func(push []byte, mem Memory, p mgl32.Vec3) mgl32.Vec4 {
		return p.Vec4(1)
	}

	d.BeginStage("raster", colorOutput)
	d.PipelineBarrier(vulkan.DepthAttachmentBarrier(img))
	d.BeginRendering(vulkan.RenderingInfo{Width: 8, Height: 8, Depth: &vulkan.Attachment{
		Image:  img,
		Layout: vk.ImageLayoutDepthAttachmentOptimal,
		LoadOp: vk.AttachmentLoadOpClear,
		Clear:  [4]float32{1},
	}})
	d.SetViewport(8, 8)
	d.BindPipeline(vulkan.NewHostPipeline("passthrough", nil))
	d.BindVertexBuffer(vb)
	d.BindIndexBuffer(ib, vk.IndexTypeUint32)
	d.DrawIndexed(6, 0, 0)
	d.EndRendering()

	require.Empty(t, d.Violations)
	for y := uint32(0); y < 8; y++ {
		for x := uint32(0); x < 8; x++ {
			assert.Less(t, d.DepthAt(img, x, y), float32(1), "pixel %d,%d", x, y)
		}
	}
	// The corner at (-1, 1) is nearer than the opposite one.
	assert.Less(t, d.DepthAt(img, 0, 7), d.DepthAt(img, 7, 0))
}
