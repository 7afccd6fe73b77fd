package ui

import (
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
	"github.com/spaghettifunk/lumen/engine/renderer/passes"
	"github.com/spaghettifunk/lumen/engine/renderer/vulkan"
	"github.com/spaghettifunk/lumen/engine/scene"
)

const (
	maxGlyphs = 2048
	margin    = 8
)

// DebugOverlay is the bmfont HUD: frame metrics, the active view and the
// selected scene node. Glyph quads are pulled by the vertex shader from a
// host-visible buffer through its device address.
type DebugOverlay struct {
	res   Resources
	font  *metadata.FontData
	scene *scene.Scene

	atlas  *vulkan.Image
	slot   uint32
	glyphs *vulkan.Buffer
	count  uint32

	view     string
	selected int
	text     string
}

var _ Overlay = (*DebugOverlay)(nil)

func NewDebugOverlay(res Resources, font *metadata.FontData, sc *scene.Scene) (*DebugOverlay, error) {
	o := &DebugOverlay{res: res, font: font, scene: sc, view: "scene"}

	var err error
	o.atlas, err = res.Factory.CreateImage(vulkan.ImageConfig{
		Name:   "ui-font-atlas",
		Format: vk.FormatR8g8b8a8Unorm,
		Width:  uint32(font.AtlasSizeX),
		Height: uint32(font.AtlasSizeY),
		Layers: 1,
		Usage:  vk.ImageUsageFlags(vk.ImageUsageSampledBit | vk.ImageUsageTransferDstBit),
		Aspect: vk.ImageAspectFlags(vk.ImageAspectColorBit),
		Memory: vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
	})
	if err != nil {
		return nil, err
	}
	if err := res.Factory.UploadImage(o.atlas, [][]byte{font.Atlas}); err != nil {
		o.atlas.Destroy()
		return nil, err
	}
	if o.slot, err = res.Table.AllocateSlot(vulkan.BindingUITextures); err != nil {
		o.atlas.Destroy()
		return nil, err
	}
	if err := res.Table.UpdateUITexture(o.atlas.View, res.Sampler, vk.ImageLayoutShaderReadOnlyOptimal, o.slot); err != nil {
		o.atlas.Destroy()
		return nil, err
	}

	o.glyphs, err = res.Factory.CreateBuffer("ui-glyphs", maxGlyphs*glyphQuadSize,
		vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit|vk.BufferUsageShaderDeviceAddressBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit))
	if err != nil {
		o.atlas.Destroy()
		return nil, err
	}
	return o, nil
}

// SetView names the active view in the HUD.
func (o *DebugOverlay) SetView(name string) { o.view = name }

// Resize updates the target size used to place text.
func (o *DebugOverlay) Resize(width, height uint32) {
	o.res.Width, o.res.Height = width, height
}

// Selected returns the node Q and E act on.
func (o *DebugOverlay) Selected() (*scene.Node, bool) {
	ids := o.scene.UINodes()
	if len(ids) == 0 {
		return nil, false
	}
	node, err := o.scene.Node(ids[o.selected%len(ids)])
	if err != nil {
		return nil, false
	}
	return node, true
}

// CycleSelection moves to the next UI node, wrapping around.
func (o *DebugOverlay) CycleSelection() {
	if n := len(o.scene.UINodes()); n > 0 {
		o.selected = (o.selected + 1) % n
	}
}

// RotateSelected adds delta radians to the selected mesh's rotation.
func (o *DebugOverlay) RotateSelected(delta mgl32.Vec3) {
	node, ok := o.Selected()
	if !ok || node.Mesh == nil {
		return
	}
	node.Mesh.Rotate(delta)
}

// Text returns the HUD text built by the last Advance.
func (o *DebugOverlay) Text() string { return o.text }

func (o *DebugOverlay) Advance(dt float64) {
	fps, frameMS := core.MetricsFrame()
	var sb strings.Builder
	fmt.Fprintf(&sb, "FPS: %.0f  frame: %.2f ms\n", fps, frameMS)
	fmt.Fprintf(&sb, "view: %s  [F1 scene, F2 shadow map, F3 scene depth]\n", o.view)
	if node, ok := o.Selected(); ok {
		r := node.Mesh.Rotation
		fmt.Fprintf(&sb, "selected: %s  rotation: %.2f %.2f %.2f  [Tab, Q/E]", node.Name, r.X(), r.Y(), r.Z())
	}
	o.text = sb.String()

	quads := layoutText(o.font, o.text, margin, margin, o.res.Width, o.res.Height)
	if len(quads) > maxGlyphs {
		quads = quads[:maxGlyphs]
	}
	o.glyphs.UpdateContents(encodeQuads(quads))
	o.count = uint32(len(quads))
}

func (o *DebugOverlay) Draw(rec vulkan.Recorder) {
	if o.count == 0 {
		return
	}
	rec.BindPipeline(o.res.Pipeline)
	rec.PushConstants(o.res.Pipeline.Layout, passes.DrawConstants{
		Transform:    o.glyphs.Address,
		SamplerIndex: o.slot,
	}.Bytes())
	// Two triangles per glyph, expanded in ui.vert.
	rec.Draw(o.count*6, 0)
}

func (o *DebugOverlay) Destroy() {
	o.glyphs.Destroy()
	o.atlas.Destroy()
}
