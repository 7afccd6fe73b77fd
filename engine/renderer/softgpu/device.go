// Package softgpu executes recorded frame commands on the CPU. It tracks
// image layouts and cross-stage dependencies, and rasterizes depth for
// pipelines that have a registered vertex program.
package softgpu

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/lumen/engine/renderer/vulkan"
)

const (
	baseAddress      uint64 = 0x1000
	addressAlignment uint64 = 256
)

// Memory resolves device addresses to host data.
type Memory interface {
	ReadMat4(address uint64) (mgl32.Mat4, bool)
	ReadUint32(address uint64) (uint32, bool)
}

// VertexProgram maps an object-space position to clip space, reading the
// push block and device memory the way the vertex shader does.
type VertexProgram func(push []byte, mem Memory, position mgl32.Vec3) mgl32.Vec4

// Violation is a synchronization or layout error found while executing.
type Violation struct {
	Stage   string
	Image   string
	Message string
}

func (v Violation) String() string {
	return fmt.Sprintf("[%s] %s: %s", v.Stage, v.Image, v.Message)
}

type Device struct {
	// Programs maps a pipeline name to the vertex program used to rasterize it.
	Programs map[string]VertexProgram

	Violations []Violation
	Trace      []string

	// addressed holds buffers with a device address, in address order.
	addressed   []*vulkan.Buffer
	nextAddress uint64

	layouts  map[*vulkan.Image]vk.ImageLayout
	external map[*vulkan.Image]bool
	writers  map[*vulkan.Image]string
	depth    map[*vulkan.Image][]float32

	stage    string
	waitMask vk.PipelineStageFlags
	touched  map[*vulkan.Image]bool

	pipeline  *vulkan.Pipeline
	push      []byte
	vertices  *vulkan.Buffer
	indices   *vulkan.Buffer
	indexType vk.IndexType
	rendering *vulkan.RenderingInfo
	width     uint32
	height    uint32
}

var (
	_ vulkan.Recorder        = (*Device)(nil)
	_ vulkan.ResourceFactory = (*Device)(nil)
	_ Memory                 = (*Device)(nil)
)

func New() *Device {
	return &Device{
		Programs:    map[string]VertexProgram{},
		nextAddress: baseAddress,
		layouts:     map[*vulkan.Image]vk.ImageLayout{},
		external:    map[*vulkan.Image]bool{},
		writers:     map[*vulkan.Image]string{},
		depth:       map[*vulkan.Image][]float32{},
		touched:     map[*vulkan.Image]bool{},
	}
}

// BeginStage starts a new submission. waitMask is the union of the stage
// masks its semaphore waits block.
func (d *Device) BeginStage(name string, waitMask vk.PipelineStageFlags) {
	d.stage = name
	d.waitMask = waitMask
	d.touched = map[*vulkan.Image]bool{}
	d.tracef("stage %s", name)
}

// MarkExternal declares an image whose contents and layout are owned outside
// the recorded frame, like a freshly acquired swapchain image.
func (d *Device) MarkExternal(img *vulkan.Image) {
	d.external[img] = true
	delete(d.layouts, img)
	delete(d.writers, img)
}

// Layout returns the tracked layout of img.
func (d *Device) Layout(img *vulkan.Image) vk.ImageLayout {
	if l, ok := d.layouts[img]; ok {
		return l
	}
	return vk.ImageLayoutUndefined
}

// Depth returns the depth samples of img, row major, or nil if it was never
// rendered to.
func (d *Device) Depth(img *vulkan.Image) []float32 {
	return d.depth[img]
}

// DepthAt returns the depth at pixel (x, y) of img.
func (d *Device) DepthAt(img *vulkan.Image, x, y uint32) float32 {
	buf := d.depth[img]
	if buf == nil || x >= img.Width || y >= img.Height {
		return float32(math.NaN())
	}
	return buf[y*img.Width+x]
}

// EndFrame forgets which stage wrote each image. Frames are separated by an
// idle wait, so writes from an earlier frame never need a semaphore.
func (d *Device) EndFrame() {
	d.writers = map[*vulkan.Image]string{}
	d.stage = ""
	d.waitMask = 0
}

// Reset clears violations and the trace, keeping resources.
func (d *Device) Reset() {
	d.Violations = nil
	d.Trace = nil
}

func (d *Device) violate(img *vulkan.Image, format string, args ...interface{}) {
	name := ""
	if img != nil {
		name = img.Name
	}
	d.Violations = append(d.Violations, Violation{Stage: d.stage, Image: name, Message: fmt.Sprintf(format, args...)})
}

func (d *Device) tracef(format string, args ...interface{}) {
	d.Trace = append(d.Trace, fmt.Sprintf(format, args...))
}

/* ResourceFactory */

func (d *Device) CreateBuffer(name string, size uint64, usage vk.BufferUsageFlags, memoryFlags vk.MemoryPropertyFlags) (*vulkan.Buffer, error) {
	size = vulkan.PadBufferSize(size, addressAlignment)
	address := uint64(0)
	if usage&vk.BufferUsageFlags(vk.BufferUsageShaderDeviceAddressBit) != 0 {
		address = d.nextAddress
		d.nextAddress += vulkan.PadBufferSize(size, addressAlignment)
	}
	b := vulkan.NewHostBuffer(name, size, usage, address)
	if address != 0 {
		d.addressed = append(d.addressed, b)
	}
	return b, nil
}

func (d *Device) UploadBuffer(name string, data []byte, usage vk.BufferUsageFlags) (*vulkan.Buffer, error) {
	b, err := d.CreateBuffer(name, uint64(len(data)), usage, 0)
	if err != nil {
		return nil, err
	}
	b.UpdateContents(data)
	return b, nil
}

func (d *Device) CreateImage(cfg vulkan.ImageConfig) (*vulkan.Image, error) {
	return vulkan.NewHostImage(cfg), nil
}

func (d *Device) UploadImage(img *vulkan.Image, layers [][]byte) error {
	if uint32(len(layers)) != img.Layers {
		return errors.Newf("image %s has %d layers, got %d", img.Name, img.Layers, len(layers))
	}
	d.layouts[img] = vk.ImageLayoutShaderReadOnlyOptimal
	return nil
}

func (d *Device) CreateSemaphore(name string) (*vulkan.Semaphore, error) {
	return vulkan.NewHostSemaphore(name), nil
}

/* Memory */

func (d *Device) resolve(address uint64, size uint64) ([]byte, bool) {
	i := sort.Search(len(d.addressed), func(i int) bool {
		b := d.addressed[i]
		return b.Address+uint64(len(b.Mapped)) > address
	})
	if i == len(d.addressed) {
		return nil, false
	}
	b := d.addressed[i]
	if b.Address > address {
		return nil, false
	}
	offset := address - b.Address
	if offset+size > uint64(len(b.Mapped)) {
		return nil, false
	}
	return b.Mapped[offset : offset+size], true
}

func (d *Device) ReadMat4(address uint64) (mgl32.Mat4, bool) {
	data, ok := d.resolve(address, 64)
	if !ok {
		return mgl32.Mat4{}, false
	}
	var m mgl32.Mat4
	for i := range m {
		m[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return m, true
}

func (d *Device) ReadUint32(address uint64) (uint32, bool) {
	data, ok := d.resolve(address, 4)
	if !ok {
		return 0, false
	}
	return binary.LittleEndian.Uint32(data), true
}
