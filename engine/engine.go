package engine

import (
	"runtime"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/lumen/engine/assets"
	"github.com/spaghettifunk/lumen/engine/assets/loaders"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/platform"
	"github.com/spaghettifunk/lumen/engine/renderer"
	"github.com/spaghettifunk/lumen/engine/renderer/frame"
	"github.com/spaghettifunk/lumen/engine/renderer/vulkan"
	"github.com/spaghettifunk/lumen/engine/scene"
	"github.com/spaghettifunk/lumen/engine/systems"
	"github.com/spaghettifunk/lumen/engine/ui"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

// Radians per second applied to the selected node while Q or E is held.
const rotationSpeed = 1.5

type Engine struct {
	currentStage Stage
	gameInstance *Game
	isRunning    bool
	isSuspended  bool
	platform     *platform.Platform
	assetManager *assets.AssetManager
	jobs         *systems.JobSystem
	renderer     *renderer.Renderer
	overlay      *ui.DebugOverlay
	width        uint32
	height       uint32
	clock        *core.Clock
	lastTime     float64

	shutdownOnce sync.Once
}

func New(g *Game) (*Engine, error) {
	if g.FnDefaultScene == nil {
		return nil, errors.New("game has no default scene")
	}
	cfg := g.ApplicationConfig
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	core.SetLogLevel(cfg.LogLevel)

	p, err := platform.New()
	if err != nil {
		return nil, err
	}
	am, err := assets.NewAssetManager()
	if err != nil {
		return nil, err
	}
	jobs, err := systems.NewJobSystem(runtime.NumCPU(), 16)
	if err != nil {
		return nil, err
	}

	return &Engine{
		currentStage: EngineStageUninitialized,
		gameInstance: g,
		clock:        core.NewClock(),
		platform:     p,
		assetManager: am,
		jobs:         jobs,
		isRunning:    true,
		width:        cfg.Window.StartWidth,
		height:       cfg.Window.StartHeight,
	}, nil
}

// rendererConfig maps the application config onto the renderer's.
func rendererConfig(cfg *ApplicationConfig) renderer.Config {
	r := cfg.Renderer
	return renderer.Config{
		ApplicationName:    cfg.Window.Name,
		Validation:         r.Validation,
		MSAASamples:        r.MSAASamples,
		ShadowMapSize:      r.ShadowMapSize,
		PresentMode:        r.PresentMode,
		RequireMeshShading: r.RequireMeshShading,
		FrameTimeout:       time.Duration(r.FrameTimeoutMS) * time.Millisecond,
		ValidateFrameGraph: r.ValidateFrameGraph,
		Capacity: vulkan.TableCapacity{
			CubeSlots:  r.CubeSlots,
			DepthSlots: r.DepthSlots,
			UISlots:    r.UISlots,
		},
	}
}

func (e *Engine) Initialize() error {
	core.Assert(e.currentStage == EngineStageUninitialized, "engine initialized twice")
	e.currentStage = EngineStageInitializing
	cfg := e.gameInstance.ApplicationConfig

	// register some events
	core.EventRegister(core.EVENT_CODE_APPLICATION_QUIT, e.onEvent)
	core.EventRegister(core.EVENT_CODE_KEY_PRESSED, e.onKey)
	core.EventRegister(core.EVENT_CODE_RESIZED, e.onResized)

	if err := e.platform.Startup(cfg.Window.Name,
		cfg.Window.StartPosX,
		cfg.Window.StartPosY,
		cfg.Window.StartWidth,
		cfg.Window.StartHeight); err != nil {
		return err
	}

	if err := e.assetManager.Initialize(cfg.Assets.Dir, cfg.Assets.Shaders, e.jobs); err != nil {
		return err
	}

	r, err := renderer.New(rendererConfig(cfg), e.platform, e.assetManager)
	if err != nil {
		return errors.Wrap(err, "renderer")
	}
	e.renderer = r

	sc, err := e.loadScene()
	if err != nil {
		return err
	}

	var overlay ui.Overlay
	if font, err := e.assetManager.Font(cfg.Assets.Font); err != nil {
		core.LogWarn("Debug overlay disabled: %s", err)
	} else if e.overlay, err = ui.NewDebugOverlay(e.renderer.UIResources(), font, sc); err != nil {
		sc.Destroy()
		return errors.Wrap(err, "debug overlay")
	} else {
		overlay = e.overlay
	}

	if err := e.renderer.Setup(sc, overlay); err != nil {
		return errors.Wrap(err, "renderer setup")
	}
	if e.overlay != nil {
		e.overlay.SetView(e.renderer.Picker().Active().String())
	}

	if e.gameInstance.FnInitialize != nil {
		if err := e.gameInstance.FnInitialize(sc); err != nil {
			return errors.Wrap(err, "game initialize")
		}
	}

	e.currentStage = EngineStageInitialized
	core.LogInfo("Engine initialized.")
	return nil
}

// loadScene decodes the configured scene file, or asks the game for its
// default scene, and uploads it.
func (e *Engine) loadScene() (*scene.Scene, error) {
	var (
		desc *loaders.SceneAssets
		err  error
	)
	if name := e.gameInstance.ApplicationConfig.Assets.Scene; name != "" {
		desc, err = e.assetManager.Scene(name)
	} else {
		desc, err = e.gameInstance.FnDefaultScene()
	}
	if err != nil {
		return nil, errors.Wrap(err, "loading scene")
	}
	return scene.Build(e.renderer.Factory(), desc)
}

func (e *Engine) Run() error {
	core.Assert(e.currentStage == EngineStageInitialized, "engine must be initialized before running")
	e.currentStage = EngineStageRunning

	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed()

	for e.isRunning {
		if !e.platform.PumpMessages() {
			e.isRunning = false
		}
		core.EventProcess()
		if !e.isRunning {
			break
		}

		if e.isSuspended {
			time.Sleep(10 * time.Millisecond)
			continue
		}

		e.clock.Update()
		currentTime := e.clock.Elapsed()
		delta := currentTime - e.lastTime
		frameStartTime := core.AbsoluteTime()

		e.rotateSelection(delta)
		if e.gameInstance.FnUpdate != nil {
			if err := e.gameInstance.FnUpdate(delta); err != nil {
				return errors.Wrap(err, "game update")
			}
		}

		if err := e.renderer.DrawFrame(delta); err != nil {
			return errors.Wrap(err, "drawing frame")
		}

		core.MetricsUpdate(core.AbsoluteTime() - frameStartTime)
		core.InputUpdate()
		e.lastTime = currentTime
	}
	return nil
}

// rotateSelection turns the overlay's selected node while Q or E is held.
func (e *Engine) rotateSelection(delta float64) {
	if e.overlay == nil {
		return
	}
	var dir float32
	if core.InputIsKeyDown(core.KEY_Q) {
		dir--
	}
	if core.InputIsKeyDown(core.KEY_E) {
		dir++
	}
	if dir != 0 {
		e.overlay.RotateSelected(mgl32.Vec3{0, dir * rotationSpeed * float32(delta), 0})
	}
}

// Shutdown releases everything in reverse order of creation. Later calls
// do nothing.
func (e *Engine) Shutdown() error {
	var err error
	e.shutdownOnce.Do(func() {
		e.currentStage = EngineStageShuttingDown
		if e.gameInstance.FnShutdown != nil {
			err = errors.CombineErrors(err, e.gameInstance.FnShutdown())
		}
		if e.renderer != nil {
			err = errors.CombineErrors(err, e.renderer.Shutdown())
		}
		e.assetManager.Shutdown()
		err = errors.CombineErrors(err, e.jobs.Shutdown())
		err = errors.CombineErrors(err, e.platform.Shutdown())
		core.EventSystemShutdown()
		core.LogInfo("Engine shut down.")
	})
	return err
}

func (e *Engine) GetFramebufferSize() (uint32, uint32) {
	return e.width, e.height
}

func (e *Engine) onEvent(context core.EventContext) {
	switch context.Type {
	case core.EVENT_CODE_APPLICATION_QUIT:
		core.LogInfo("EVENT_CODE_APPLICATION_QUIT received, shutting down.")
		e.isRunning = false
	}
}

// viewForKey maps F1, F2 and F3 to the picker states.
func viewForKey(key core.KeyCode) (frame.State, bool) {
	switch key {
	case core.KEY_F1:
		return frame.Scene, true
	case core.KEY_F2:
		return frame.ShadowMapDebug, true
	case core.KEY_F3:
		return frame.SceneDepthDebug, true
	}
	return 0, false
}

func (e *Engine) onKey(context core.EventContext) {
	ke, ok := context.Data.(*core.KeyEvent)
	if !ok {
		core.LogError("wrong event associated with the event type `%d`", context.Type)
		return
	}

	switch keyCode := ke.KeyCode; {
	case keyCode == core.KEY_ESCAPE:
		core.EventFire(core.EventContext{Type: core.EVENT_CODE_APPLICATION_QUIT})
	case keyCode == core.KEY_TAB:
		if e.overlay != nil {
			e.overlay.CycleSelection()
		}
	default:
		state, ok := viewForKey(keyCode)
		if !ok {
			return
		}
		if err := e.renderer.Picker().Select(state); err != nil {
			core.LogError(err.Error())
			return
		}
		if e.overlay != nil {
			e.overlay.SetView(state.String())
		}
		core.LogInfo("View selected: %s", state)
		core.EventFire(core.EventContext{Type: core.EVENT_CODE_VIEW_SELECTED, Data: &core.ViewEvent{View: int(state)}})
	}
}

func (e *Engine) onResized(context core.EventContext) {
	se, ok := context.Data.(*core.SystemEvent)
	if !ok {
		core.LogError("wrong event associated with the event type `%d`", context.Type)
		return
	}

	width := se.WindowWidth
	height := se.WindowHeight
	if width == e.width && height == e.height {
		return
	}
	e.width = width
	e.height = height
	core.LogDebug("Window resize: %d, %d", width, height)

	// Handle minimization
	if width == 0 || height == 0 {
		core.LogInfo("Window minimized, suspending application.")
		e.isSuspended = true
		return
	}
	if e.isSuspended {
		core.LogInfo("Window restored, resuming application.")
		e.isSuspended = false
	}
	if e.gameInstance.FnOnResize != nil {
		if err := e.gameInstance.FnOnResize(width, height); err != nil {
			core.LogError(err.Error())
		}
	}
	e.renderer.Resize(width, height)
}
