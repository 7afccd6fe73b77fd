package scene

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/lumen/engine/core"
	lmath "github.com/spaghettifunk/lumen/engine/math"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
	"github.com/spaghettifunk/lumen/engine/renderer/vulkan"
)

// Light is the single directional light. It owns the light record and the
// light camera record used by the shadow pass.
type Light struct {
	Direction mgl32.Vec3
	Color     mgl32.Vec3
	Intensity float32
	// Center and Radius bound the shadowed region.
	Center mgl32.Vec3
	Radius float32

	record *vulkan.Buffer
	camera *vulkan.Buffer
}

func NewLight(factory vulkan.ResourceFactory, direction, color mgl32.Vec3, intensity float32, center mgl32.Vec3, radius float32) (*Light, error) {
	record, err := factory.CreateBuffer("light", metadata.LightRecordSize, recordUsage, hostCoherent)
	if err != nil {
		return nil, err
	}
	camera, err := factory.CreateBuffer("light-camera", metadata.LightCameraRecordSize, recordUsage, hostCoherent)
	if err != nil {
		record.Destroy()
		return nil, err
	}
	l := &Light{
		Direction: direction,
		Color:     color,
		Intensity: intensity,
		Center:    center,
		Radius:    radius,
		record:    record,
		camera:    camera,
	}
	l.Update()
	return l, nil
}

// ViewProjection returns the light-space matrix the shadow map is rendered with.
func (l *Light) ViewProjection() mgl32.Mat4 {
	view, proj := lmath.LightSpace(l.Direction, l.Center, l.Radius)
	return proj.Mul4(view)
}

// Update rewrites both records from the current fields.
func (l *Light) Update() {
	l.record.UpdateContents(metadata.LightRecord{
		Direction: l.Direction.Normalize(),
		Color:     l.Color.Vec4(l.Intensity),
	}.Bytes())
	l.camera.UpdateContents(metadata.MatrixBytes(l.ViewProjection()))
}

func (l *Light) Address() uint64       { return l.record.Address }
func (l *Light) CameraAddress() uint64 { return l.camera.Address }

func (l *Light) Destroy() {
	core.Assert(l.record != nil, "light destroyed twice")
	l.camera.Destroy()
	l.record.Destroy()
	l.record, l.camera = nil, nil
}
