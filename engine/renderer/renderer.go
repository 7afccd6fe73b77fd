// Package renderer sets up the Vulkan device, the passes and the frame
// graph, and drives one frame at a time.
package renderer

import (
	"time"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/frame"
	"github.com/spaghettifunk/lumen/engine/renderer/passes"
	"github.com/spaghettifunk/lumen/engine/renderer/softgpu"
	"github.com/spaghettifunk/lumen/engine/renderer/vulkan"
	"github.com/spaghettifunk/lumen/engine/scene"
	"github.com/spaghettifunk/lumen/engine/ui"
)

// ShaderSource returns SPIR-V words by shader name, e.g. "mesh.vert".
type ShaderSource interface {
	Shader(name string) ([]uint32, error)
}

type Config struct {
	ApplicationName    string
	Validation         bool
	MSAASamples        uint32
	ShadowMapSize      uint32
	PresentMode        string
	RequireMeshShading bool
	FrameTimeout       time.Duration
	ValidateFrameGraph bool
	Capacity           vulkan.TableCapacity
}

// frameCommands holds one command buffer per frame slot for every stage.
type frameCommands struct {
	shadow            []*vulkan.CommandBuffer
	scene             []*vulkan.CommandBuffer
	shadowDisplay     []*vulkan.CommandBuffer
	sceneDepthDisplay []*vulkan.CommandBuffer
	ui                []*vulkan.CommandBuffer
}

func (c *frameCommands) all() []*vulkan.CommandBuffer {
	var out []*vulkan.CommandBuffer
	for _, set := range [][]*vulkan.CommandBuffer{c.shadow, c.scene, c.shadowDisplay, c.sceneDepthDisplay, c.ui} {
		out = append(out, set...)
	}
	return out
}

type Renderer struct {
	cfg    Config
	window vulkan.Window

	context        *vulkan.Context
	swapchain      *vulkan.Swapchain
	table          *vulkan.BindlessTable
	linear         *vulkan.Sampler
	nearest        *vulkan.Sampler
	modules        []*vulkan.ShaderModule
	pipelines      map[string]*vulkan.Pipeline
	framePool      *vulkan.CommandPool
	imageAvailable *vulkan.Semaphore

	scene   *scene.Scene
	overlay ui.Overlay

	shadow         *passes.ShadowPass
	scenePass      *passes.ScenePass
	display        *passes.DepthDisplayPass
	shadowView     *passes.SourceView
	sceneDepthView *passes.SourceView
	uiPass         *passes.UIPass
	sceneDepthSlot uint32

	commands frameCommands
	graph    *frame.Graph

	resizePending bool
	shutdown      bool
}

// New creates the device, the swapchain, the bindless table and every
// pipeline. Scene objects are created afterwards through Factory, and
// Setup builds the passes.
func New(cfg Config, window vulkan.Window, shaders ShaderSource) (*Renderer, error) {
	r := &Renderer{cfg: cfg, window: window, pipelines: map[string]*vulkan.Pipeline{}}

	var err error
	r.context, err = vulkan.NewContext(vulkan.ContextConfig{
		ApplicationName:    cfg.ApplicationName,
		Validation:         cfg.Validation,
		RequireMeshShading: cfg.RequireMeshShading,
		MSAASamples:        cfg.MSAASamples,
	}, window)
	if err != nil {
		return nil, err
	}

	width, height := window.FramebufferSize()
	if r.swapchain, err = vulkan.NewSwapchain(r.context, width, height, cfg.PresentMode == "fifo"); err != nil {
		r.context.Destroy()
		return nil, err
	}
	if err := r.createResources(shaders); err != nil {
		r.destroyResources()
		r.swapchain.Destroy()
		r.context.Destroy()
		return nil, err
	}
	core.LogInfo("Vulkan renderer initialized successfully.")
	return r, nil
}

func (r *Renderer) createResources(shaders ShaderSource) error {
	var err error
	if r.table, err = vulkan.NewBindlessTable(r.context, r.cfg.Capacity); err != nil {
		return err
	}
	if r.linear, err = r.context.CreateSampler("linear-clamp", vulkan.SamplerLinear); err != nil {
		return err
	}
	if r.nearest, err = r.context.CreateSampler("nearest-clamp", vulkan.SamplerNearest); err != nil {
		return err
	}
	if err := r.createPipelines(shaders); err != nil {
		return err
	}
	if r.framePool, err = vulkan.NewCommandPool(r.context, "frame", r.context.Device.Graphics.Family); err != nil {
		return err
	}
	if r.imageAvailable, err = r.context.CreateSemaphore("image-available"); err != nil {
		return err
	}
	return nil
}

func (r *Renderer) samples() vk.SampleCountFlagBits {
	return vk.SampleCountFlagBits(r.cfg.MSAASamples)
}

func (r *Renderer) colorFormat() vk.Format {
	return r.swapchain.ImageFormat.Format
}

func (r *Renderer) module(shaders ShaderSource, name string, stage vk.ShaderStageFlagBits) (*vulkan.ShaderModule, error) {
	code, err := shaders.Shader(name)
	if err != nil {
		return nil, err
	}
	m, err := vulkan.NewShaderModule(r.context, name, stage, code)
	if err != nil {
		return nil, err
	}
	r.modules = append(r.modules, m)
	return m, nil
}

type pipelineSpec struct {
	vert, frag string
	config     vulkan.PipelineConfig
}

func (r *Renderer) createPipelines(shaders ShaderSource) error {
	depth := r.context.Device.DepthFormat
	color := []vk.Format{r.colorFormat()}
	specs := []pipelineSpec{
		{vert: "shadow.vert", config: vulkan.PipelineConfig{
			Name: "shadow", VertexInput: true, DepthFormat: depth, Samples: vk.SampleCount1Bit,
			DepthTest: true, DepthWrite: true, DepthCompare: vk.CompareOpLess, CullMode: vk.CullModeNone, DepthBias: true,
		}},
		{vert: "skybox.vert", frag: "skybox.frag", config: vulkan.PipelineConfig{
			Name: "skybox", ColorFormats: color, DepthFormat: depth, Samples: r.samples(),
			DepthTest: true, DepthCompare: vk.CompareOpLessOrEqual, CullMode: vk.CullModeNone,
		}},
		{vert: "mesh.vert", frag: "mesh.frag", config: vulkan.PipelineConfig{
			Name: "opaque", VertexInput: true, ColorFormats: color, DepthFormat: depth, Samples: r.samples(),
			DepthTest: true, DepthWrite: true, DepthCompare: vk.CompareOpLess, CullMode: vk.CullModeBackBit,
		}},
		{vert: "grid.vert", frag: "grid.frag", config: vulkan.PipelineConfig{
			Name: "grid", ColorFormats: color, DepthFormat: depth, Samples: r.samples(),
			DepthTest: true, DepthCompare: vk.CompareOpLess, CullMode: vk.CullModeNone, Blend: true,
		}},
		{vert: "fullscreen.vert", frag: "depth_display.frag", config: vulkan.PipelineConfig{
			Name: "depth-display", ColorFormats: color, Samples: r.samples(), CullMode: vk.CullModeNone,
		}},
		{vert: "ui.vert", frag: "ui.frag", config: vulkan.PipelineConfig{
			Name: "ui", ColorFormats: color, Samples: r.samples(), CullMode: vk.CullModeNone, Blend: true,
		}},
	}
	for _, spec := range specs {
		vert, err := r.module(shaders, spec.vert, vk.ShaderStageVertexBit)
		if err != nil {
			return err
		}
		spec.config.Stages = []*vulkan.ShaderModule{vert}
		if spec.frag != "" {
			frag, err := r.module(shaders, spec.frag, vk.ShaderStageFragmentBit)
			if err != nil {
				return err
			}
			spec.config.Stages = append(spec.config.Stages, frag)
		}
		p, err := vulkan.NewGraphicsPipeline(r.context, r.table, spec.config)
		if err != nil {
			return errors.Wrapf(err, "pipeline %s", spec.config.Name)
		}
		r.pipelines[spec.config.Name] = p
	}
	return nil
}

// Factory creates GPU resources for scene objects.
func (r *Renderer) Factory() vulkan.ResourceFactory { return r.context }

// UIResources returns what an overlay needs to draw in the UI pass.
func (r *Renderer) UIResources() ui.Resources {
	return ui.Resources{
		Factory:  r.context,
		Table:    r.table,
		Pipeline: r.pipelines["ui"],
		Sampler:  r.linear,
		Width:    r.swapchain.Extent.Width,
		Height:   r.swapchain.Extent.Height,
	}
}

func (r *Renderer) Picker() *frame.Picker { return r.graph.Picker }

// Extent returns the current swapchain size.
func (r *Renderer) Extent() (uint32, uint32) {
	return r.swapchain.Extent.Width, r.swapchain.Extent.Height
}

// Setup builds the passes for sc, registers their images in the bindless
// table, records the static passes and builds the frame graph. The
// renderer owns sc and overlay from here on.
func (r *Renderer) Setup(sc *scene.Scene, overlay ui.Overlay) error {
	r.scene, r.overlay = sc, overlay

	meshes := make([]passes.Drawable, 0, len(sc.Meshes()))
	for _, m := range sc.Meshes() {
		meshes = append(meshes, m)
	}
	var skybox passes.SkyboxSource
	if sc.Skybox != nil {
		slot, err := r.table.AllocateSlot(vulkan.BindingCubeSamplers)
		if err != nil {
			return err
		}
		if err := r.table.UpdateCube(sc.Skybox.Cube.View, r.linear, vk.ImageLayoutShaderReadOnlyOptimal, slot); err != nil {
			return err
		}
		sc.Skybox.SetSlot(slot)
		skybox = sc.Skybox
	}

	var err error
	r.shadow, err = passes.NewShadowPass(r.context, r.table, r.pipelines["shadow"], r.cfg.ShadowMapSize, r.context.Device.DepthFormat, meshes, sc.Light)
	if err != nil {
		return err
	}
	if err := r.table.UpdateSampler2D(r.shadow.Target.View, r.nearest, vk.ImageLayoutDepthStencilReadOnlyOptimal, r.shadow.Slot); err != nil {
		return err
	}

	width, height := r.Extent()
	r.scenePass, err = passes.NewScenePass(r.context, r.table, passes.ScenePipelines{
		Skybox: r.pipelines["skybox"],
		Opaque: r.pipelines["opaque"],
		Grid:   r.pipelines["grid"],
	}, passes.SceneConfig{
		Width:       width,
		Height:      height,
		ColorFormat: r.colorFormat(),
		DepthFormat: r.context.Device.DepthFormat,
		Samples:     r.samples(),
	}, r.shadow, meshes, sc.Camera, sc.Light, skybox)
	if err != nil {
		return err
	}
	if r.sceneDepthSlot, err = r.table.AllocateSlot(vulkan.BindingDepthSamplers); err != nil {
		return err
	}
	if err := r.writeSceneDepthSlot(); err != nil {
		return err
	}

	r.display, err = passes.NewDepthDisplayPass(r.context, r.table, r.pipelines["depth-display"], width, height, r.colorFormat(), r.samples())
	if err != nil {
		return err
	}
	r.shadowView = r.display.AddSource(passes.ShadowSource(r.shadow))
	r.sceneDepthView = r.display.AddSource(passes.SceneDepthSource(r.scenePass, r.sceneDepthSlot))

	var drawOverlay passes.Overlay
	if overlay != nil {
		drawOverlay = overlay
	}
	r.uiPass = passes.NewUIPass(r.table, drawOverlay)
	return r.buildFrame()
}

func (r *Renderer) writeSceneDepthSlot() error {
	return r.table.UpdateSampler2D(r.scenePass.DepthResolve.View, r.nearest, vk.ImageLayoutDepthStencilReadOnlyOptimal, r.sceneDepthSlot)
}

// buildFrame allocates the per-slot command buffers, records the static
// passes and rebuilds the chains. Slots follow the swapchain image count.
func (r *Renderer) buildFrame() error {
	if old := r.commands.all(); len(old) > 0 {
		r.framePool.Free(old)
	}
	slots := int(r.swapchain.ImageCount)
	sets := []*[]*vulkan.CommandBuffer{
		&r.commands.shadow, &r.commands.scene, &r.commands.shadowDisplay, &r.commands.sceneDepthDisplay, &r.commands.ui,
	}
	for _, set := range sets {
		buffers, err := r.framePool.Allocate(slots)
		if err != nil {
			return err
		}
		*set = buffers
	}

	static := []struct {
		pass     passes.Pass
		commands []*vulkan.CommandBuffer
	}{
		{r.shadow, r.commands.shadow},
		{r.scenePass, r.commands.scene},
		{r.shadowView, r.commands.shadowDisplay},
		{r.sceneDepthView, r.commands.sceneDepthDisplay},
	}
	for _, s := range static {
		if err := passes.Bake(s.pass, s.commands); err != nil {
			return errors.Wrapf(err, "recording %s", s.pass.Name())
		}
	}

	graph, err := frame.NewGraph(r.context, frame.Passes{
		Shadow:            frame.Stage{Pass: r.shadow, Commands: r.commands.shadow},
		Scene:             frame.Stage{Pass: r.scenePass, Commands: r.commands.scene},
		ShadowDisplay:     frame.Stage{Pass: r.shadowView, Commands: r.commands.shadowDisplay},
		SceneDepthDisplay: frame.Stage{Pass: r.sceneDepthView, Commands: r.commands.sceneDepthDisplay},
		UI:                frame.Stage{Pass: r.uiPass, Commands: r.commands.ui},
		SceneColor:        r.scenePass.Color,
		DisplayTarget:     r.display.Target,
	}, r.uiPass, slots)
	if err != nil {
		return err
	}
	if r.graph != nil {
		graph.Picker = r.graph.Picker
		r.graph.Destroy()
	}
	r.graph = graph

	if r.cfg.ValidateFrameGraph {
		if err := r.graph.Validate(softgpu.New(), r.swapchain.Images[0], slots); err != nil {
			return errors.Wrap(err, "frame graph validation")
		}
		core.LogDebug("Frame graph validated for %d slots.", slots)
	}
	return nil
}

// Resize schedules a swapchain rebuild before the next frame.
func (r *Renderer) Resize(width, height uint32) {
	core.LogInfo("Vulkan renderer resized: %dx%d", width, height)
	r.resizePending = true
}

// DrawFrame renders and presents one frame, then waits for the device to
// go idle. A swapchain that went out of date is rebuilt and the frame is
// dropped.
func (r *Renderer) DrawFrame(dt float64) error {
	if r.resizePending {
		return r.recreate()
	}

	chain := r.graph.Latch()
	index, err := r.swapchain.AcquireNextImage(uint64(r.cfg.FrameTimeout.Nanoseconds()), r.imageAvailable)
	if errors.Is(err, core.ErrSwapchainBooting) {
		return r.recreate()
	}
	if errors.Is(err, core.ErrFrameTimeout) {
		// Nothing was submitted and the image-available semaphore stays unsignaled.
		core.LogWarn("Skipping frame: %v", err)
		return nil
	}
	if err != nil {
		return err
	}
	slot := int(index)

	width, height := r.Extent()
	r.scene.Camera.Update(width, height)
	if r.overlay != nil {
		r.overlay.Advance(dt)
	}

	r.graph.Prepare(chain, r.swapchain.Images[index])
	if err := r.commands.ui[slot].Record(func(rec vulkan.Recorder) { r.uiPass.Record(rec, slot) }); err != nil {
		return errors.Wrap(err, "recording ui")
	}

	final, err := chain.Submit(r.context.Device.Graphics, slot, r.imageAvailable)
	if err != nil {
		return err
	}
	err = r.swapchain.Present(r.context.Device.Present, final, index)
	if errors.Is(err, core.ErrSwapchainBooting) {
		return r.recreate()
	}
	if err != nil {
		return err
	}
	return r.context.WaitIdle()
}

// recreate rebuilds the swapchain and everything sized from it. A
// minimized window keeps the rebuild pending.
func (r *Renderer) recreate() error {
	if err := r.context.WaitIdle(); err != nil {
		return err
	}
	width, height := r.window.FramebufferSize()
	if width == 0 || height == 0 {
		r.resizePending = true
		return nil
	}
	if err := r.swapchain.Recreate(width, height); err != nil {
		return err
	}
	width, height = r.Extent()
	if err := r.scenePass.Resize(width, height); err != nil {
		return err
	}
	if err := r.writeSceneDepthSlot(); err != nil {
		return err
	}
	if err := r.display.Resize(width, height); err != nil {
		return err
	}
	r.sceneDepthView.SetImage(r.scenePass.DepthResolve)
	if o, ok := r.overlay.(interface{ Resize(w, h uint32) }); ok {
		o.Resize(width, height)
	}
	if err := r.buildFrame(); err != nil {
		return err
	}
	r.resizePending = false
	core.LogInfo("Swapchain recreated at %dx%d.", width, height)
	return nil
}

// Shutdown releases everything in reverse dependency order. It may be
// called once.
func (r *Renderer) Shutdown() error {
	core.Assert(!r.shutdown, "renderer shut down twice")
	r.shutdown = true

	if err := r.context.WaitIdle(); err != nil {
		core.LogError("vkDeviceWaitIdle failed during shutdown: %s", err)
	}

	if r.graph != nil {
		r.graph.Destroy()
	}
	if r.imageAvailable != nil {
		r.imageAvailable.Destroy()
	}

	if r.display != nil {
		r.display.Destroy()
	}
	if r.scenePass != nil {
		r.scenePass.Destroy()
	}
	if r.shadow != nil {
		r.shadow.Destroy()
	}
	for _, p := range r.pipelines {
		p.Destroy()
	}
	for _, m := range r.modules {
		m.Destroy()
	}

	if r.overlay != nil {
		r.overlay.Destroy()
	}
	if r.scene != nil {
		r.scene.Destroy()
	}
	r.destroyResources()
	r.swapchain.Destroy()
	r.context.Destroy()
	core.LogInfo("Vulkan renderer shut down.")
	return nil
}

// destroyResources releases the samplers, the table and the command pools.
func (r *Renderer) destroyResources() {
	if r.nearest != nil {
		r.nearest.Destroy()
	}
	if r.linear != nil {
		r.linear.Destroy()
	}
	if r.table != nil {
		r.table.Destroy()
	}
	if r.framePool != nil {
		r.framePool.Destroy()
	}
	r.context.DestroyCommandPools()
}
