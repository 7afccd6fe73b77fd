package passes

import (
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
	"github.com/spaghettifunk/lumen/engine/renderer/softgpu"
	"github.com/spaghettifunk/lumen/engine/renderer/vulkan"
	"github.com/spaghettifunk/lumen/engine/scene"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const shadowMapSize = 64

// shadowProgram mirrors shadow.vert: light view-projection times model.
func shadowProgram(push []byte, mem softgpu.Memory, position mgl32.Vec3) mgl32.Vec4 {
	c, err := DecodeDrawConstants(push)
	if err != nil {
		return mgl32.Vec4{}
	}
	model, ok := mem.ReadMat4(c.Transform)
	if !ok {
		return mgl32.Vec4{}
	}
	lightVP, ok := mem.ReadMat4(c.LightCamera)
	if !ok {
		return mgl32.Vec4{}
	}
	return lightVP.Mul4(model).Mul4x1(position.Vec4(1))
}

type fixture struct {
	dev    *softgpu.Device
	table  *vulkan.BindlessTable
	light  *scene.Light
	camera *scene.Camera
	ground *scene.Mesh
	cube   *scene.Mesh
	shadow *ShadowPass
	scene  *ScenePass
}

func newFixture(t *testing.T) *fixture {
	dev := softgpu.New()
	dev.Programs["shadow"] = shadowProgram
	table := vulkan.NewHostBindlessTable(vulkan.TableCapacity{CubeSlots: 2, DepthSlots: 4, UISlots: 4})

	ground, err := scene.NewMesh(dev, metadata.GeneratePlane("ground", 10, 10, 1, 1, 1, 1))
	require.NoError(t, err)
	cube, err := scene.NewMesh(dev, metadata.GenerateCube("cube", 2, 2, 2, 1, 1))
	require.NoError(t, err)
	cube.SetTransformation(mgl32.Vec3{0, 1, 0}, mgl32.Vec3{}, mgl32.Vec3{1, 1, 1})

	light, err := scene.NewLight(dev, mgl32.Vec3{0, -1, 0}, mgl32.Vec3{1, 1, 1}, 1, mgl32.Vec3{}, 5)
	require.NoError(t, err)
	camera, err := scene.NewCamera(dev, mgl32.Vec3{0, 4, 8}, mgl32.Vec3{}, 60, 0.1, 100)
	require.NoError(t, err)

	meshes := []Drawable{ground, cube}
	shadow, err := NewShadowPass(dev, table, vulkan.NewHostPipeline("shadow", nil), shadowMapSize, vk.FormatD32Sfloat, meshes, light)
	require.NoError(t, err)

	pipelines := ScenePipelines{
		Skybox: vulkan.NewHostPipeline("skybox", nil),
		Opaque: vulkan.NewHostPipeline("opaque", nil),
		Grid:   vulkan.NewHostPipeline("grid", nil),
	}
	scenePass, err := NewScenePass(dev, table, pipelines, SceneConfig{
		Width:       32,
		Height:      24,
		ColorFormat: vk.FormatB8g8r8a8Unorm,
		DepthFormat: vk.FormatD32Sfloat,
		Samples:     vk.SampleCount4Bit,
	}, shadow, meshes, camera, light, nil)
	require.NoError(t, err)

	return &fixture{dev: dev, table: table, light: light, camera: camera, ground: ground, cube: cube, shadow: shadow, scene: scenePass}
}

func TestDrawConstantsLayout(t *testing.T) {
	c := DrawConstants{Transform: 1, Camera: 2, Light: 3, LightCamera: 4, Skybox: 5, SamplerIndex: 6}
	data := c.Bytes()
	require.Len(t, data, DrawConstantsSize)
	assert.Equal(t, byte(4), data[24])
	assert.Equal(t, byte(6), data[40])
	assert.Equal(t, []byte{0, 0, 0, 0}, data[44:48])

	decoded, err := DecodeDrawConstants(data)
	require.NoError(t, err)
	assert.Equal(t, c, decoded)

	_, err = DecodeDrawConstants(data[:40])
	assert.Error(t, err)
}

func TestShadowMapOccludesGround(t *testing.T) {
	f := newFixture(t)
	f.dev.BeginStage("shadow", 0)
	f.shadow.Record(f.dev, 0)
	require.Empty(t, f.dev.Violations)

	center := f.dev.DepthAt(f.shadow.Target, shadowMapSize/2, shadowMapSize/2)
	open := f.dev.DepthAt(f.shadow.Target, 4, 4)
	assert.Less(t, center, open, "the cube top is nearer to the light than bare ground")

	// The ground point under the cube lies behind the stored depth, so it is shadowed.
	occluded := f.light.ViewProjection().Mul4x1(mgl32.Vec4{0, 0, 0, 1})
	assert.Less(t, center, occluded.Z()/occluded.W())
	assert.InDelta(t, occluded.Z()/occluded.W(), open, 1e-3)
}

func TestScenePassDrawOrder(t *testing.T) {
	f := newFixture(t)
	f.dev.BeginStage("shadow", 0)
	f.shadow.Record(f.dev, 0)
	f.dev.BeginStage("scene", vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit)|stageFragmentTests)
	f.dev.Trace = nil
	f.scene.Record(f.dev, 0)
	require.Empty(t, f.dev.Violations)

	var binds []string
	for _, line := range f.dev.Trace {
		if strings.HasPrefix(line, "bind pipeline ") {
			binds = append(binds, strings.TrimPrefix(line, "bind pipeline "))
		}
	}
	// No skybox is attached, so only the meshes and the grid are drawn.
	assert.Equal(t, []string{"opaque", "grid"}, binds)
	assert.Equal(t, vk.ImageLayoutDepthStencilReadOnlyOptimal, f.dev.Layout(f.shadow.Target))
	assert.Equal(t, vk.ImageLayoutDepthAttachmentOptimal, f.dev.Layout(f.scene.DepthResolve))
}

func TestSceneWithoutShadowBarrierIsReported(t *testing.T) {
	f := newFixture(t)
	f.dev.BeginStage("scene", stageFragment|stageFragmentTests)
	f.scene.Record(f.dev, 0)
	require.NotEmpty(t, f.dev.Violations)
	assert.Equal(t, "shadow-map", f.dev.Violations[0].Image)
}

func TestDepthDisplaySources(t *testing.T) {
	f := newFixture(t)
	display, err := NewDepthDisplayPass(f.dev, f.table, vulkan.NewHostPipeline("depth", nil), 32, 24, vk.FormatB8g8r8a8Unorm, vk.SampleCount4Bit)
	require.NoError(t, err)
	shadowView := display.AddSource(ShadowSource(f.shadow))
	sceneView := display.AddSource(SceneDepthSource(f.scene, 1))
	assert.Equal(t, "depth-display:shadow", shadowView.Name())
	assert.Equal(t, "depth-display:scene-depth", sceneView.Name())

	f.dev.BeginStage("shadow", 0)
	f.shadow.Record(f.dev, 0)
	f.dev.BeginStage(shadowView.Name(), stageFragment|stageFragmentTests)
	f.dev.Trace = nil
	shadowView.Record(f.dev, 0)
	require.Empty(t, f.dev.Violations)
	assert.Contains(t, f.dev.Trace, "draw 3")
	assert.Equal(t, vk.ImageLayoutColorAttachmentOptimal, f.dev.Layout(display.Target))

	// A resize replaces the scene's resolve image; the view follows it.
	require.NoError(t, f.scene.Resize(64, 48))
	require.NoError(t, display.Resize(64, 48))
	sceneView.SetImage(f.scene.DepthResolve)
	assert.Same(t, f.scene.DepthResolve, sceneView.Source().Image)
	assert.Equal(t, uint32(64), display.Target.Width)
}

// flakyImages fails image creation once armed.
type flakyImages struct {
	vulkan.ResourceFactory
	fail bool
}

func (f *flakyImages) CreateImage(cfg vulkan.ImageConfig) (*vulkan.Image, error) {
	if f.fail {
		return nil, errors.Newf("out of device memory creating %s", cfg.Name)
	}
	return f.ResourceFactory.CreateImage(cfg)
}

func TestFailedResizeKeepsTargets(t *testing.T) {
	f := newFixture(t)
	images := &flakyImages{ResourceFactory: f.dev}
	scenePass, err := NewScenePass(images, f.table, ScenePipelines{
		Skybox: vulkan.NewHostPipeline("skybox", nil),
		Opaque: vulkan.NewHostPipeline("opaque", nil),
		Grid:   vulkan.NewHostPipeline("grid", nil),
	}, SceneConfig{
		Width:       32,
		Height:      24,
		ColorFormat: vk.FormatB8g8r8a8Unorm,
		DepthFormat: vk.FormatD32Sfloat,
		Samples:     vk.SampleCount4Bit,
	}, f.shadow, nil, f.camera, f.light, nil)
	require.NoError(t, err)
	display, err := NewDepthDisplayPass(images, f.table, vulkan.NewHostPipeline("depth", nil), 32, 24, vk.FormatB8g8r8a8Unorm, vk.SampleCount4Bit)
	require.NoError(t, err)

	color, resolve, target := scenePass.Color, scenePass.DepthResolve, display.Target
	images.fail = true
	assert.Error(t, scenePass.Resize(64, 48))
	assert.Error(t, display.Resize(64, 48))
	assert.Same(t, color, scenePass.Color)
	assert.Same(t, resolve, scenePass.DepthResolve)
	assert.Same(t, target, display.Target)
	assert.Equal(t, uint32(32), scenePass.Color.Width)

	// The kept targets are still live and are released exactly once.
	assert.NotPanics(t, func() {
		scenePass.Destroy()
		display.Destroy()
	})
}

type countingOverlay struct{ draws int }

func (o *countingOverlay) Draw(rec vulkan.Recorder) { o.draws++ }

func TestUIPassPresents(t *testing.T) {
	f := newFixture(t)
	overlay := &countingOverlay{}
	ui := NewUIPass(f.table, overlay)
	swapImage := vulkan.NewHostImage(vulkan.ImageConfig{Name: "swapchain-0", Format: vk.FormatB8g8r8a8Unorm, Width: 32, Height: 24})

	assert.Panics(t, func() { ui.Record(f.dev, 0) })

	f.dev.BeginStage("shadow", 0)
	f.shadow.Record(f.dev, 0)
	f.dev.BeginStage("scene", stageFragment|stageFragmentTests)
	f.scene.Record(f.dev, 0)

	ui.Prepare(f.scene.Color, swapImage)
	for _, img := range ui.External() {
		f.dev.MarkExternal(img)
	}
	f.dev.BeginStage("ui", stageColorOutput)
	ui.Record(f.dev, 0)
	require.Empty(t, f.dev.Violations)
	assert.Equal(t, 1, overlay.draws)
	assert.Same(t, f.scene.Color, ui.Source())
	assert.Equal(t, vk.ImageLayoutPresentSrc, f.dev.Layout(swapImage))
}
