package scene

import (
	"github.com/go-gl/mathgl/mgl32"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/lumen/engine/core"
	lmath "github.com/spaghettifunk/lumen/engine/math"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
	"github.com/spaghettifunk/lumen/engine/renderer/vulkan"
)

// recordUsage is the usage of every buffer shaders read by address.
var recordUsage = vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit | vk.BufferUsageShaderDeviceAddressBit)

var hostCoherent = vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit)

// Mesh owns its geometry buffers and its transform record.
type Mesh struct {
	Name string

	Translation mgl32.Vec3
	// Rotation holds Euler angles in radians, applied X then Y then Z.
	Rotation mgl32.Vec3
	Scale    mgl32.Vec3

	vertices   *vulkan.Buffer
	indices    *vulkan.Buffer
	indexCount uint32
	indexType  vk.IndexType
	transform  *vulkan.Buffer
}

// NewMesh uploads data and creates an identity transform record.
func NewMesh(factory vulkan.ResourceFactory, data *metadata.MeshData) (*Mesh, error) {
	m := &Mesh{
		Name:       data.Name,
		Scale:      mgl32.Vec3{1, 1, 1},
		indexCount: uint32(len(data.Indices)),
		indexType:  vk.IndexTypeUint32,
	}
	if data.IndexFormat == metadata.IndexUint16 {
		m.indexType = vk.IndexTypeUint16
	}
	var err error
	if m.vertices, err = factory.UploadBuffer(data.Name+"-vertices", data.VertexBytes(), vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit)); err != nil {
		return nil, err
	}
	if m.indices, err = factory.UploadBuffer(data.Name+"-indices", data.IndexBytes(), vk.BufferUsageFlags(vk.BufferUsageIndexBufferBit)); err != nil {
		m.vertices.Destroy()
		return nil, err
	}
	if m.transform, err = factory.CreateBuffer(data.Name+"-transform", metadata.TransformRecordSize, recordUsage, hostCoherent); err != nil {
		m.vertices.Destroy()
		m.indices.Destroy()
		return nil, err
	}
	m.SetTransformation(m.Translation, m.Rotation, m.Scale)
	return m, nil
}

// SetTransformation stores t, r and s and writes the composed model matrix
// into the transform record.
func (m *Mesh) SetTransformation(t, r, s mgl32.Vec3) {
	m.Translation, m.Rotation, m.Scale = t, r, s
	m.transform.UpdateContents(metadata.MatrixBytes(m.Model()))
}

// Rotate adds delta to the current rotation.
func (m *Mesh) Rotate(delta mgl32.Vec3) {
	m.SetTransformation(m.Translation, m.Rotation.Add(delta), m.Scale)
}

func (m *Mesh) Model() mgl32.Mat4 {
	return lmath.Transformation(m.Translation, m.Rotation, m.Scale)
}

func (m *Mesh) VertexBuffer() *vulkan.Buffer { return m.vertices }
func (m *Mesh) IndexBuffer() *vulkan.Buffer  { return m.indices }
func (m *Mesh) IndexCount() uint32           { return m.indexCount }
func (m *Mesh) IndexType() vk.IndexType      { return m.indexType }
func (m *Mesh) TransformAddress() uint64     { return m.transform.Address }

// TransformBuffer exposes the record for inspection.
func (m *Mesh) TransformBuffer() *vulkan.Buffer { return m.transform }

func (m *Mesh) Destroy() {
	core.Assert(m.vertices != nil, "mesh %s destroyed twice", m.Name)
	m.transform.Destroy()
	m.indices.Destroy()
	m.vertices.Destroy()
	m.vertices, m.indices, m.transform = nil, nil, nil
}
