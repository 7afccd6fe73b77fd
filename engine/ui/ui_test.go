package ui

import (
	"encoding/binary"
	"math"
	"strconv"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
	"github.com/spaghettifunk/lumen/engine/renderer/softgpu"
	"github.com/spaghettifunk/lumen/engine/renderer/vulkan"
	"github.com/spaghettifunk/lumen/engine/scene"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFont() *metadata.FontData {
	return &metadata.FontData{
		LineHeight: 10,
		AtlasSizeX: 64,
		AtlasSizeY: 64,
		Atlas:      make([]byte, 64*64*4),
		Glyphs: map[rune]metadata.FontGlyph{
			'A': {Codepoint: 'A', X: 0, Y: 0, Width: 8, Height: 10, XAdvance: 9},
			'V': {Codepoint: 'V', X: 8, Y: 0, Width: 8, Height: 10, XAdvance: 9},
			' ': {Codepoint: ' ', XAdvance: 4},
		},
		Kernings:    map[metadata.KerningPair]int16{{First: 'A', Second: 'V'}: -2},
		TabXAdvance: 16,
	}
}

// lowercaseFont adds a glyph for every lowercase letter to testFont.
func lowercaseFont() *metadata.FontData {
	font := testFont()
	for r := 'a'; r <= 'z'; r++ {
		font.Glyphs[r] = metadata.FontGlyph{Codepoint: r, X: 16, Width: 6, Height: 8, XAdvance: 7}
	}
	return font
}

func TestLayoutText(t *testing.T) {
	font := testFont()
	quads := layoutText(font, "AV A\nA?", 0, 0, 100, 100)
	// The space has no quad and '?' is unknown.
	require.Len(t, quads, 4)

	assert.InDelta(t, -1, quads[0].X0, 1e-6)
	assert.InDelta(t, -1, quads[0].Y0, 1e-6)
	assert.InDelta(t, 8.0/100*2-1, quads[0].X1, 1e-6)
	assert.InDelta(t, 8.0/64, quads[0].U1, 1e-6)

	// 'V' starts after A's advance minus the kerning.
	assert.InDelta(t, 7.0/100*2-1, quads[1].X0, 1e-6)
	assert.InDelta(t, 0.125, quads[1].U0, 1e-6)

	// The second A follows "AV ": 9 - 2 + 9 + 4.
	assert.InDelta(t, 20.0/100*2-1, quads[2].X0, 1e-6)

	// A newline returns to x and moves down one line.
	assert.InDelta(t, -1, quads[3].X0, 1e-6)
	assert.InDelta(t, 10.0/100*2-1, quads[3].Y0, 1e-6)
}

func TestEncodeQuads(t *testing.T) {
	data := encodeQuads([]glyphQuad{{X0: 1, V1: 0.5}})
	require.Len(t, data, glyphQuadSize)
	assert.Equal(t, float32(1), math.Float32frombits(binary.LittleEndian.Uint32(data[0:])))
	assert.Equal(t, float32(0.5), math.Float32frombits(binary.LittleEndian.Uint32(data[28:])))
}

func newTestOverlay(t *testing.T, dev *softgpu.Device) (*DebugOverlay, *scene.Scene) {
	camera, err := scene.NewCamera(dev, mgl32.Vec3{0, 2, 5}, mgl32.Vec3{}, 60, 0.1, 100)
	require.NoError(t, err)
	light, err := scene.NewLight(dev, mgl32.Vec3{0, -1, 0}, mgl32.Vec3{1, 1, 1}, 1, mgl32.Vec3{}, 5)
	require.NoError(t, err)
	sc := scene.New(camera, light, nil)
	for _, name := range []string{"cube", "plane", "monkey"} {
		mesh, err := scene.NewMesh(dev, metadata.GenerateCube(name, 1, 1, 1, 1, 1))
		require.NoError(t, err)
		sc.AddMesh(name, mesh, name != "plane")
	}

	overlay, err := NewDebugOverlay(Resources{
		Factory:  dev,
		Table:    vulkan.NewHostBindlessTable(vulkan.TableCapacity{CubeSlots: 1, DepthSlots: 1, UISlots: 1}),
		Pipeline: vulkan.NewHostPipeline("ui", nil),
		Width:    320,
		Height:   240,
	}, lowercaseFont(), sc)
	require.NoError(t, err)
	return overlay, sc
}

func TestDebugOverlaySelection(t *testing.T) {
	overlay, _ := newTestOverlay(t, softgpu.New())

	node, ok := overlay.Selected()
	require.True(t, ok)
	assert.Equal(t, "cube", node.Name)

	overlay.CycleSelection()
	node, _ = overlay.Selected()
	assert.Equal(t, "monkey", node.Name)

	overlay.RotateSelected(mgl32.Vec3{0, 0.5, 0})
	overlay.RotateSelected(mgl32.Vec3{0, 0.25, 0})
	assert.InDelta(t, 0.75, node.Mesh.Rotation.Y(), 1e-6)

	overlay.CycleSelection()
	node, _ = overlay.Selected()
	assert.Equal(t, "cube", node.Name)
	assert.Zero(t, node.Mesh.Rotation.Y())
}

func TestDebugOverlayDraw(t *testing.T) {
	dev := softgpu.New()
	overlay, _ := newTestOverlay(t, dev)

	// Nothing is drawn before the first Advance.
	dev.Trace = nil
	overlay.Draw(dev)
	assert.Empty(t, dev.Trace)

	overlay.SetView("shadow-map-debug")
	overlay.Advance(0.016)
	assert.Contains(t, overlay.Text(), "shadow-map-debug")
	assert.Contains(t, overlay.Text(), "selected: cube")

	dev.BeginStage("ui", 0)
	overlay.Draw(dev)
	assert.Contains(t, dev.Trace, "bind pipeline ui")
	assert.Contains(t, dev.Trace, "draw "+strconv.Itoa(int(overlay.count*6)))
	assert.Positive(t, overlay.count)
}
