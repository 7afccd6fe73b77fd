package scene

import (
	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/lumen/engine/assets/loaders"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/vulkan"
)

// Build uploads decoded scene assets. On failure everything created so
// far is released.
func Build(factory vulkan.ResourceFactory, a *loaders.SceneAssets) (*Scene, error) {
	camera, err := NewCamera(factory, mgl32.Vec3(a.Camera.Position), mgl32.Vec3(a.Camera.Target), a.Camera.FOV, a.Camera.Near, a.Camera.Far)
	if err != nil {
		return nil, errors.Wrap(err, "camera")
	}
	light, err := NewLight(factory, mgl32.Vec3(a.Light.Direction), mgl32.Vec3(a.Light.Color), a.Light.Intensity, mgl32.Vec3(a.Light.Center), a.Light.Radius)
	if err != nil {
		camera.Destroy()
		return nil, errors.Wrap(err, "light")
	}
	var skybox *Skybox
	if a.Skybox != nil {
		if skybox, err = NewSkybox(factory, a.Skybox.Faces, a.Skybox.Size); err != nil {
			light.Destroy()
			camera.Destroy()
			return nil, errors.Wrap(err, "skybox")
		}
	}

	s := New(camera, light, skybox)
	for _, m := range a.Meshes {
		mesh, err := NewMesh(factory, m.Data)
		if err != nil {
			s.Destroy()
			return nil, errors.Wrapf(err, "mesh %s", m.Data.Name)
		}
		mesh.SetTransformation(m.Translation, m.Rotation, m.Scale)
		s.AddMesh(m.Data.Name, mesh, m.UI)
	}
	core.LogInfo("Scene built: %d meshes, %d selectable", len(a.Meshes), len(s.UINodes()))
	return s, nil
}
