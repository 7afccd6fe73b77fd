package engine

import (
	"github.com/spaghettifunk/lumen/engine/assets/loaders"
	"github.com/spaghettifunk/lumen/engine/scene"
)

// Game is what an application plugs into the engine. Every hook except
// FnDefaultScene is optional.
type Game struct {
	ApplicationConfig *ApplicationConfig
	State             interface{}
	// FnDefaultScene supplies the scene when the config names no scene file.
	FnDefaultScene DefaultScene
	FnInitialize   Initialize
	FnUpdate       Update
	FnOnResize     OnResize
	FnShutdown     Shutdown
}

type DefaultScene func() (*loaders.SceneAssets, error)
type Initialize func(sc *scene.Scene) error
type Update func(deltaTime float64) error
type OnResize func(width uint32, height uint32) error
type Shutdown func() error
