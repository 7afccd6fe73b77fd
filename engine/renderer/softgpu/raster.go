package softgpu

import (
	"encoding/binary"
	"math"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/lumen/engine/renderer/vulkan"
)

type screenVertex struct {
	x, y, z float32
}

func (d *Device) rasterize(program VertexProgram, depth []float32, target *vulkan.Image, indexCount, firstIndex uint32, vertexOffset int32) {
	width, height := d.width, d.height
	if width == 0 || width > target.Width {
		width = target.Width
	}
	if height == 0 || height > target.Height {
		height = target.Height
	}

	var tri [3]screenVertex
	for i := uint32(0); i+2 < indexCount; i += 3 {
		visible := true
		for k := uint32(0); k < 3; k++ {
			index, ok := d.readIndex(firstIndex + i + k)
			if !ok {
				return
			}
			position, ok := d.readPosition(int64(index) + int64(vertexOffset))
			if !ok {
				return
			}
			clip := program(d.push, d, position)
			if clip.W() <= 0 {
				visible = false
				break
			}
			ndc := clip.Vec3().Mul(1 / clip.W())
			tri[k] = screenVertex{
				x: (ndc.X()*0.5 + 0.5) * float32(width),
				y: (ndc.Y()*0.5 + 0.5) * float32(height),
				z: ndc.Z(),
			}
		}
		if visible {
			fillTriangle(tri, depth, target.Width, width, height)
		}
	}
}

// fillTriangle writes the triangle's depth with a LESS test, sampling at
// pixel centers. Both windings are drawn.
func fillTriangle(tri [3]screenVertex, depth []float32, stride, width, height uint32) {
	a, b, c := tri[0], tri[1], tri[2]
	area := edge(a, b, c.x, c.y)
	if area == 0 {
		return
	}

	minX := math32.Max(0, math32.Floor(math32.Min(a.x, math32.Min(b.x, c.x))))
	minY := math32.Max(0, math32.Floor(math32.Min(a.y, math32.Min(b.y, c.y))))
	maxX := math32.Min(float32(width)-1, math32.Ceil(math32.Max(a.x, math32.Max(b.x, c.x))))
	maxY := math32.Min(float32(height)-1, math32.Ceil(math32.Max(a.y, math32.Max(b.y, c.y))))

	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			px, py := x+0.5, y+0.5
			w0 := edge(b, c, px, py) / area
			w1 := edge(c, a, px, py) / area
			w2 := edge(a, b, px, py) / area
			if w0 < 0 || w1 < 0 || w2 < 0 {
				continue
			}
			z := w0*a.z + w1*b.z + w2*c.z
			if z < 0 || z > 1 {
				continue
			}
			i := uint32(y)*stride + uint32(x)
			if z < depth[i] {
				depth[i] = z
			}
		}
	}
}

func edge(a, b screenVertex, x, y float32) float32 {
	return (b.x-a.x)*(y-a.y) - (b.y-a.y)*(x-a.x)
}

func (d *Device) readIndex(i uint32) (uint32, bool) {
	data := d.indices.Mapped
	if d.indexType == vk.IndexTypeUint16 {
		offset := uint64(i) * 2
		if offset+2 > uint64(len(data)) {
			return 0, false
		}
		return uint32(binary.LittleEndian.Uint16(data[offset:])), true
	}
	offset := uint64(i) * 4
	if offset+4 > uint64(len(data)) {
		return 0, false
	}
	return binary.LittleEndian.Uint32(data[offset:]), true
}

func (d *Device) readPosition(vertex int64) (mgl32.Vec3, bool) {
	if vertex < 0 {
		return mgl32.Vec3{}, false
	}
	offset := uint64(vertex) * uint64(vulkan.VertexStride)
	data := d.vertices.Mapped
	if offset+12 > uint64(len(data)) {
		return mgl32.Vec3{}, false
	}
	return mgl32.Vec3{
		math.Float32frombits(binary.LittleEndian.Uint32(data[offset:])),
		math.Float32frombits(binary.LittleEndian.Uint32(data[offset+4:])),
		math.Float32frombits(binary.LittleEndian.Uint32(data[offset+8:])),
	}, true
}
