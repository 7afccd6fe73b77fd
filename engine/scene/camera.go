package scene

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/lumen/engine/core"
	lmath "github.com/spaghettifunk/lumen/engine/math"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
	"github.com/spaghettifunk/lumen/engine/renderer/vulkan"
)

type Camera struct {
	Position mgl32.Vec3
	Target   mgl32.Vec3
	Up       mgl32.Vec3
	// Vertical field of view in degrees.
	FOV  float32
	Near float32
	Far  float32

	record *vulkan.Buffer
}

func NewCamera(factory vulkan.ResourceFactory, position, target mgl32.Vec3, fov, near, far float32) (*Camera, error) {
	record, err := factory.CreateBuffer("camera", metadata.CameraRecordSize, recordUsage, hostCoherent)
	if err != nil {
		return nil, err
	}
	return &Camera{
		Position: position,
		Target:   target,
		Up:       mgl32.Vec3{0, 1, 0},
		FOV:      fov,
		Near:     near,
		Far:      far,
		record:   record,
	}, nil
}

// Record computes the camera matrices for a viewport of width x height.
func (c *Camera) Record(width, height uint32) metadata.CameraRecord {
	aspect := float32(1)
	if height > 0 {
		aspect = float32(width) / float32(height)
	}
	view := mgl32.LookAtV(c.Position, c.Target, c.Up)
	proj := lmath.Perspective(c.FOV, aspect, c.Near, c.Far)
	return metadata.CameraRecord{
		View:           view,
		Projection:     proj,
		ViewProjection: proj.Mul4(view),
		Position:       c.Position,
	}
}

// Update writes the record for the current extent.
func (c *Camera) Update(width, height uint32) {
	c.record.UpdateContents(c.Record(width, height).Bytes())
}

func (c *Camera) Address() uint64 { return c.record.Address }

func (c *Camera) Destroy() {
	core.Assert(c.record != nil, "camera destroyed twice")
	c.record.Destroy()
	c.record = nil
}
