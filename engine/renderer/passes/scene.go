package passes

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/lumen/engine/renderer/vulkan"
)

// SkyBlue is the scene clear color.
var SkyBlue = [4]float32{0.53, 0.81, 0.92, 1}

type ScenePipelines struct {
	Skybox *vulkan.Pipeline
	Opaque *vulkan.Pipeline
	Grid   *vulkan.Pipeline
}

type SceneConfig struct {
	Width       uint32
	Height      uint32
	ColorFormat vk.Format
	DepthFormat vk.Format
	Samples     vk.SampleCountFlagBits
}

// ScenePass renders the lit scene into multisampled color and depth targets.
// Depth resolves into DepthResolve, which the depth display can sample.
type ScenePass struct {
	Color        *vulkan.Image
	Depth        *vulkan.Image
	DepthResolve *vulkan.Image

	cfg       SceneConfig
	factory   vulkan.ResourceFactory
	pipelines ScenePipelines
	table     *vulkan.BindlessTable
	shadow    *ShadowPass
	meshes    []Drawable
	camera    CameraSource
	light     LightSource
	skybox    SkyboxSource
}

func NewScenePass(factory vulkan.ResourceFactory, table *vulkan.BindlessTable, pipelines ScenePipelines, cfg SceneConfig, shadow *ShadowPass, meshes []Drawable, camera CameraSource, light LightSource, skybox SkyboxSource) (*ScenePass, error) {
	p := &ScenePass{
		cfg:       cfg,
		factory:   factory,
		pipelines: pipelines,
		table:     table,
		shadow:    shadow,
		meshes:    meshes,
		camera:    camera,
		light:     light,
		skybox:    skybox,
	}
	targets, err := createSceneTargets(factory, cfg)
	if err != nil {
		return nil, err
	}
	p.setTargets(targets)
	return p, nil
}

// sceneTargets are the size-dependent images of the scene pass.
type sceneTargets struct {
	color, depth, resolve *vulkan.Image
}

func (t sceneTargets) destroy() {
	for _, img := range []*vulkan.Image{t.resolve, t.depth, t.color} {
		if img != nil {
			img.Destroy()
		}
	}
}

func createSceneTargets(factory vulkan.ResourceFactory, cfg SceneConfig) (sceneTargets, error) {
	var t sceneTargets
	var err error
	t.color, err = factory.CreateImage(vulkan.ImageConfig{
		Name:    "scene-color",
		Format:  cfg.ColorFormat,
		Width:   cfg.Width,
		Height:  cfg.Height,
		Layers:  1,
		Samples: cfg.Samples,
		Usage:   vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		Aspect:  vk.ImageAspectFlags(vk.ImageAspectColorBit),
		Memory:  vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
	})
	if err != nil {
		return t, err
	}
	t.depth, err = factory.CreateImage(vulkan.ImageConfig{
		Name:    "scene-depth",
		Format:  cfg.DepthFormat,
		Width:   cfg.Width,
		Height:  cfg.Height,
		Layers:  1,
		Samples: cfg.Samples,
		Usage:   vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit),
		Aspect:  vk.ImageAspectFlags(vk.ImageAspectDepthBit),
		Memory:  vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
	})
	if err != nil {
		t.destroy()
		return sceneTargets{}, err
	}
	t.resolve, err = factory.CreateImage(vulkan.ImageConfig{
		Name:    "scene-depth-resolve",
		Format:  cfg.DepthFormat,
		Width:   cfg.Width,
		Height:  cfg.Height,
		Layers:  1,
		Samples: vk.SampleCount1Bit,
		Usage:   vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit | vk.ImageUsageSampledBit),
		Aspect:  vk.ImageAspectFlags(vk.ImageAspectDepthBit),
		Memory:  vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
	})
	if err != nil {
		t.destroy()
		return sceneTargets{}, err
	}
	return t, nil
}

func (p *ScenePass) setTargets(t sceneTargets) {
	p.Color, p.Depth, p.DepthResolve = t.color, t.depth, t.resolve
}

// Resize replaces the size-dependent targets. The old targets are released
// only once all new ones exist, so a failed resize leaves the pass intact.
// Bindless slots that referenced DepthResolve must be rewritten by the caller.
func (p *ScenePass) Resize(width, height uint32) error {
	cfg := p.cfg
	cfg.Width, cfg.Height = width, height
	targets, err := createSceneTargets(p.factory, cfg)
	if err != nil {
		return err
	}
	p.destroyTargets()
	p.cfg = cfg
	p.setTargets(targets)
	return nil
}

func (p *ScenePass) Name() string { return "scene" }

func (p *ScenePass) Record(rec vulkan.Recorder, slot int) {
	rec.PipelineBarrier(
		depthReadBarrier(p.shadow.Target, stageFragmentTests, accessDepthWrite),
		vulkan.ColorAttachmentBarrier(p.Color),
		vulkan.DepthAttachmentBarrier(p.Depth),
		resolveTargetBarrier(p.DepthResolve),
	)
	rec.BeginRendering(vulkan.RenderingInfo{
		Width:  p.cfg.Width,
		Height: p.cfg.Height,
		Color: []vulkan.Attachment{{
			Image:   p.Color,
			Layout:  vk.ImageLayoutColorAttachmentOptimal,
			LoadOp:  vk.AttachmentLoadOpClear,
			StoreOp: vk.AttachmentStoreOpStore,
			Clear:   SkyBlue,
		}},
		Depth: &vulkan.Attachment{
			Image:         p.Depth,
			Layout:        vk.ImageLayoutDepthAttachmentOptimal,
			LoadOp:        vk.AttachmentLoadOpClear,
			StoreOp:       vk.AttachmentStoreOpDontCare,
			Clear:         [4]float32{1},
			Resolve:       p.DepthResolve,
			ResolveMode:   vk.ResolveModeSampleZeroBit,
			ResolveLayout: vk.ImageLayoutDepthAttachmentOptimal,
		},
	})
	rec.SetViewport(p.cfg.Width, p.cfg.Height)
	p.table.CmdBind(rec, vk.PipelineBindPointGraphics)

	if p.skybox != nil {
		rec.BindPipeline(p.pipelines.Skybox)
		rec.PushConstants(p.pipelines.Skybox.Layout, DrawConstants{
			Camera: p.camera.Address(),
			Skybox: p.skybox.Address(),
		}.Bytes())
		// The cube is generated in the vertex shader.
		rec.Draw(36, 0)
	}

	rec.BindPipeline(p.pipelines.Opaque)
	for _, mesh := range p.meshes {
		rec.PushConstants(p.pipelines.Opaque.Layout, DrawConstants{
			Transform:    mesh.TransformAddress(),
			Camera:       p.camera.Address(),
			Light:        p.light.Address(),
			LightCamera:  p.light.CameraAddress(),
			SamplerIndex: p.shadow.Slot,
		}.Bytes())
		rec.BindVertexBuffer(mesh.VertexBuffer())
		rec.BindIndexBuffer(mesh.IndexBuffer(), mesh.IndexType())
		rec.DrawIndexed(mesh.IndexCount(), 0, 0)
	}

	rec.BindPipeline(p.pipelines.Grid)
	rec.PushConstants(p.pipelines.Grid.Layout, DrawConstants{Camera: p.camera.Address()}.Bytes())
	rec.Draw(6, 0)

	rec.EndRendering()
}

func (p *ScenePass) destroyTargets() {
	sceneTargets{color: p.Color, depth: p.Depth, resolve: p.DepthResolve}.destroy()
}

func (p *ScenePass) Destroy() {
	p.destroyTargets()
}
