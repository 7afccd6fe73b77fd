package metadata

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/lumen/engine/core"
)

/** @brief The name of the default geometry. */
const DefaultGeometryName string = "default"

/**
 * @brief Interleaved vertex layout shared by every mesh: position, normal, uv.
 */
type Vertex struct {
	Position mgl32.Vec3
	Normal   mgl32.Vec3
	Texcoord mgl32.Vec2
}

// VertexSize is the byte size of one encoded Vertex.
const VertexSize = 32

// IndexFormat is the width of encoded indices. The zero value is 32-bit.
type IndexFormat int

const (
	IndexUint32 IndexFormat = iota
	IndexUint16
)

// Size returns the byte size of one index.
func (f IndexFormat) Size() int {
	if f == IndexUint16 {
		return 2
	}
	return 4
}

/**
 * @brief CPU-side geometry, ready to upload.
 */
type MeshData struct {
	Name     string
	Vertices []Vertex
	Indices  []uint32
	// IndexFormat selects how IndexBytes encodes Indices.
	IndexFormat IndexFormat

	Center     mgl32.Vec3
	MinExtents mgl32.Vec3
	MaxExtents mgl32.Vec3
}

// VertexBytes encodes the vertices little-endian in upload order.
func (m *MeshData) VertexBytes() []byte {
	out := make([]byte, len(m.Vertices)*VertexSize)
	for i, v := range m.Vertices {
		o := out[i*VertexSize:]
		putFloats(o, v.Position[:]...)
		putFloats(o[12:], v.Normal[:]...)
		putFloats(o[24:], v.Texcoord[:]...)
	}
	return out
}

// IndexBytes encodes the indices little-endian in the mesh's IndexFormat.
func (m *MeshData) IndexBytes() []byte {
	size := m.IndexFormat.Size()
	out := make([]byte, len(m.Indices)*size)
	for i, idx := range m.Indices {
		if m.IndexFormat == IndexUint16 {
			core.Assert(idx <= math.MaxUint16, "index %d of mesh %s does not fit 16 bits", idx, m.Name)
			binary.LittleEndian.PutUint16(out[i*size:], uint16(idx))
		} else {
			binary.LittleEndian.PutUint32(out[i*size:], idx)
		}
	}
	return out
}

// FitIndexFormat picks 16-bit indices when every vertex is addressable by one.
func (m *MeshData) FitIndexFormat() {
	m.IndexFormat = IndexUint32
	if len(m.Vertices) <= math.MaxUint16+1 {
		m.IndexFormat = IndexUint16
	}
}

// ComputeExtents refreshes the bounds and center from the vertices.
func (m *MeshData) ComputeExtents() {
	if len(m.Vertices) == 0 {
		return
	}
	lo, hi := m.Vertices[0].Position, m.Vertices[0].Position
	for _, v := range m.Vertices[1:] {
		for k := 0; k < 3; k++ {
			lo[k] = float32(math.Min(float64(lo[k]), float64(v.Position[k])))
			hi[k] = float32(math.Max(float64(hi[k]), float64(v.Position[k])))
		}
	}
	m.MinExtents, m.MaxExtents = lo, hi
	m.Center = lo.Add(hi).Mul(0.5)
}

func putFloats(dst []byte, values ...float32) {
	for i, f := range values {
		binary.LittleEndian.PutUint32(dst[i*4:], math.Float32bits(f))
	}
}

/**
 * @brief Generates a plane on the XZ axes, facing +Y, centered on the origin.
 * @param width The overall width of the plane. Must be non-zero.
 * @param depth The overall depth of the plane. Must be non-zero.
 * @param xSegmentCount The number of segments along the x-axis.
 * @param zSegmentCount The number of segments along the z-axis.
 * @param tileX The number of times the texture tiles across the x-axis.
 * @param tileZ The number of times the texture tiles across the z-axis.
 */
func GeneratePlane(name string, width, depth float32, xSegmentCount, zSegmentCount uint32, tileX, tileZ float32) *MeshData {
	if width == 0 {
		core.LogWarn("Width must be nonzero. Defaulting to one.")
		width = 1.0
	}
	if depth == 0 {
		core.LogWarn("Depth must be nonzero. Defaulting to one.")
		depth = 1.0
	}
	if xSegmentCount < 1 {
		xSegmentCount = 1
	}
	if zSegmentCount < 1 {
		zSegmentCount = 1
	}
	if tileX == 0 {
		tileX = 1.0
	}
	if tileZ == 0 {
		tileZ = 1.0
	}

	data := &MeshData{
		Name:     meshName(name),
		Vertices: make([]Vertex, 0, xSegmentCount*zSegmentCount*4),
		Indices:  make([]uint32, 0, xSegmentCount*zSegmentCount*6),
	}
	segWidth := width / float32(xSegmentCount)
	segDepth := depth / float32(zSegmentCount)
	up := mgl32.Vec3{0, 1, 0}
	for z := uint32(0); z < zSegmentCount; z++ {
		for x := uint32(0); x < xSegmentCount; x++ {
			minX := float32(x)*segWidth - width*0.5
			minZ := float32(z)*segDepth - depth*0.5
			maxX, maxZ := minX+segWidth, minZ+segDepth
			minU := float32(x) / float32(xSegmentCount) * tileX
			minV := float32(z) / float32(zSegmentCount) * tileZ
			maxU := float32(x+1) / float32(xSegmentCount) * tileX
			maxV := float32(z+1) / float32(zSegmentCount) * tileZ

			base := uint32(len(data.Vertices))
			data.Vertices = append(data.Vertices,
				Vertex{Position: mgl32.Vec3{minX, 0, maxZ}, Normal: up, Texcoord: mgl32.Vec2{minU, maxV}},
				Vertex{Position: mgl32.Vec3{maxX, 0, maxZ}, Normal: up, Texcoord: mgl32.Vec2{maxU, maxV}},
				Vertex{Position: mgl32.Vec3{maxX, 0, minZ}, Normal: up, Texcoord: mgl32.Vec2{maxU, minV}},
				Vertex{Position: mgl32.Vec3{minX, 0, minZ}, Normal: up, Texcoord: mgl32.Vec2{minU, minV}},
			)
			// Counter-clockwise seen from +Y.
			data.Indices = append(data.Indices, base, base+1, base+2, base, base+2, base+3)
		}
	}
	data.ComputeExtents()
	data.FitIndexFormat()
	return data
}

// cubeFaces lists, per face, the outward normal and two in-face axes whose
// cross product equals the normal.
var cubeFaces = [6][3]mgl32.Vec3{
	{{0, 0, 1}, {1, 0, 0}, {0, 1, 0}},   // front
	{{0, 0, -1}, {-1, 0, 0}, {0, 1, 0}}, // back
	{{-1, 0, 0}, {0, 0, 1}, {0, 1, 0}},  // left
	{{1, 0, 0}, {0, 0, -1}, {0, 1, 0}},  // right
	{{0, -1, 0}, {1, 0, 0}, {0, 0, 1}},  // bottom
	{{0, 1, 0}, {1, 0, 0}, {0, 0, -1}},  // top
}

// GenerateCube returns an axis-aligned box centered on the origin with four
// vertices per face so each face has a flat normal.
func GenerateCube(name string, width, height, depth, tileX, tileY float32) *MeshData {
	if width == 0 {
		core.LogWarn("Width must be nonzero. Defaulting to one.")
		width = 1.0
	}
	if height == 0 {
		core.LogWarn("Height must be nonzero. Defaulting to one.")
		height = 1.0
	}
	if depth == 0 {
		core.LogWarn("Depth must be nonzero. Defaulting to one.")
		depth = 1.0
	}
	if tileX == 0 {
		tileX = 1.0
	}
	if tileY == 0 {
		tileY = 1.0
	}

	half := mgl32.Vec3{width * 0.5, height * 0.5, depth * 0.5}
	data := &MeshData{
		Name:     meshName(name),
		Vertices: make([]Vertex, 0, 24),
		Indices:  make([]uint32, 0, 36),
	}
	corners := [4][2]float32{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}}
	for _, face := range cubeFaces {
		normal, u, v := face[0], face[1], face[2]
		base := uint32(len(data.Vertices))
		for _, c := range corners {
			p := normal.Add(u.Mul(c[0])).Add(v.Mul(c[1]))
			data.Vertices = append(data.Vertices, Vertex{
				Position: mgl32.Vec3{p[0] * half[0], p[1] * half[1], p[2] * half[2]},
				Normal:   normal,
				Texcoord: mgl32.Vec2{(c[0] + 1) * 0.5 * tileX, (c[1] + 1) * 0.5 * tileY},
			})
		}
		data.Indices = append(data.Indices, base, base+1, base+2, base, base+2, base+3)
	}
	data.ComputeExtents()
	data.FitIndexFormat()
	return data
}

func meshName(name string) string {
	if len(name) > 0 {
		return name
	}
	return DefaultGeometryName
}
