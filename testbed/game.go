// Package testbed is the default game: a procedural scene with a ground
// plane, two boxes and a gradient sky, used when no scene file is set.
package testbed

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/lumen/engine"
	"github.com/spaghettifunk/lumen/engine/assets/loaders"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
	"github.com/spaghettifunk/lumen/engine/scene"
)

// Size of each generated skybox face.
const skyFaceSize = 64

type TestGame struct {
	*engine.Game
}

type gameState struct {
	spinner *scene.Mesh
	width   uint32
	height  uint32
}

func NewTestGame(config *engine.ApplicationConfig) *TestGame {
	tg := &TestGame{
		Game: &engine.Game{
			ApplicationConfig: config,
			State:             &gameState{width: config.Window.StartWidth, height: config.Window.StartHeight},
		},
	}

	tg.FnDefaultScene = tg.DefaultScene
	tg.FnInitialize = tg.Initialize
	tg.FnUpdate = tg.Update
	tg.FnOnResize = tg.OnResize
	tg.FnShutdown = tg.Shutdown

	return tg
}

func (g *TestGame) state() *gameState {
	return g.State.(*gameState)
}

// DefaultScene builds the procedural scene.
func (g *TestGame) DefaultScene() (*loaders.SceneAssets, error) {
	core.LogInfo("No scene file configured, using the testbed scene.")
	sky, err := loaders.BuildCube(gradientSky(skyFaceSize))
	if err != nil {
		return nil, err
	}
	one := mgl32.Vec3{1, 1, 1}
	return &loaders.SceneAssets{
		Camera: loaders.CameraDescription{
			Position: [3]float32{6, 5, 10},
			Target:   [3]float32{0, 1, 0},
			FOV:      60,
			Near:     0.1,
			Far:      100,
		},
		Light: loaders.LightDescription{
			Direction: [3]float32{-0.5, -1, -0.3},
			Color:     [3]float32{1, 0.96, 0.9},
			Intensity: 1,
			Radius:    12,
		},
		Skybox: sky,
		Meshes: []loaders.MeshAsset{
			{Data: metadata.GeneratePlane("ground", 20, 20, 4, 4, 10, 10), Scale: one},
			{Data: metadata.GenerateCube("crate", 2, 2, 2, 1, 1), Translation: mgl32.Vec3{0, 1, 0}, Scale: one, UI: true},
			{Data: metadata.GenerateCube("pillar", 1, 4, 1, 1, 1), Translation: mgl32.Vec3{3, 2, -2}, Scale: one, UI: true},
			{Data: metadata.GenerateCube("spinner", 1, 1, 1, 1, 1), Translation: mgl32.Vec3{-3, 1.5, 1}, Scale: one},
		},
	}, nil
}

func (g *TestGame) Initialize(sc *scene.Scene) error {
	for _, m := range sc.Meshes() {
		if m.Name == "spinner" {
			g.state().spinner = m
		}
	}
	return nil
}

func (g *TestGame) Update(deltaTime float64) error {
	if s := g.state().spinner; s != nil {
		s.Rotate(mgl32.Vec3{0.3 * float32(deltaTime), 0.5 * float32(deltaTime), 0})
	}
	return nil
}

func (g *TestGame) OnResize(width uint32, height uint32) error {
	g.state().width, g.state().height = width, height
	return nil
}

func (g *TestGame) Shutdown() error {
	g.state().spinner = nil
	return nil
}
