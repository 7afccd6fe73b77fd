package metadata

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexBytes(t *testing.T) {
	data := &MeshData{Name: "tri", Vertices: make([]Vertex, 3), Indices: []uint32{0, 1, 2}}
	wide := data.IndexBytes()
	require.Len(t, wide, 12)
	assert.Equal(t, uint32(2), binary.LittleEndian.Uint32(wide[8:]))

	data.FitIndexFormat()
	require.Equal(t, IndexUint16, data.IndexFormat)
	narrow := data.IndexBytes()
	require.Len(t, narrow, 6)
	for i, idx := range data.Indices {
		assert.Equal(t, uint16(idx), binary.LittleEndian.Uint16(narrow[i*2:]))
	}
}

func TestFitIndexFormat(t *testing.T) {
	cases := []struct {
		name     string
		vertices int
		want     IndexFormat
	}{
		{"empty", 0, IndexUint16},
		{"last 16-bit index", 65536, IndexUint16},
		{"needs 32 bits", 65537, IndexUint32},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			data := &MeshData{Vertices: make([]Vertex, c.vertices)}
			data.FitIndexFormat()
			assert.Equal(t, c.want, data.IndexFormat)
		})
	}
}

func TestGeneratedMeshesUse16BitIndices(t *testing.T) {
	cube := GenerateCube("cube", 1, 1, 1, 1, 1)
	assert.Equal(t, IndexUint16, cube.IndexFormat)
	assert.Len(t, cube.IndexBytes(), len(cube.Indices)*2)

	plane := GeneratePlane("ground", 4, 4, 1, 1, 1, 1)
	assert.Equal(t, IndexUint16, plane.IndexFormat)
}

func TestIndexBytesRejectsWideIndex(t *testing.T) {
	data := &MeshData{Name: "bad", Indices: []uint32{70000}, IndexFormat: IndexUint16}
	assert.Panics(t, func() { data.IndexBytes() })
}
