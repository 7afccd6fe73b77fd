package frame

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
	"github.com/spaghettifunk/lumen/engine/renderer/passes"
	"github.com/spaghettifunk/lumen/engine/renderer/softgpu"
	"github.com/spaghettifunk/lumen/engine/renderer/vulkan"
	"github.com/spaghettifunk/lumen/engine/scene"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const slots = 2

type fixture struct {
	dev     *softgpu.Device
	graph   *Graph
	set     Passes
	ui      *passes.UIPass
	display *passes.DepthDisplayPass
	scene   *passes.ScenePass
	swap    *vulkan.Image
}

func commands() []*vulkan.CommandBuffer {
	out := make([]*vulkan.CommandBuffer, slots)
	for i := range out {
		out[i] = &vulkan.CommandBuffer{}
	}
	return out
}

func newFixture(t *testing.T) *fixture {
	dev := softgpu.New()
	table := vulkan.NewHostBindlessTable(vulkan.TableCapacity{CubeSlots: 2, DepthSlots: 4, UISlots: 4})

	cube, err := scene.NewMesh(dev, metadata.GenerateCube("cube", 1, 1, 1, 1, 1))
	require.NoError(t, err)
	light, err := scene.NewLight(dev, mgl32.Vec3{-1, -2, -1}, mgl32.Vec3{1, 1, 1}, 1, mgl32.Vec3{}, 5)
	require.NoError(t, err)
	camera, err := scene.NewCamera(dev, mgl32.Vec3{0, 2, 5}, mgl32.Vec3{}, 60, 0.1, 100)
	require.NoError(t, err)
	meshes := []passes.Drawable{cube}

	shadow, err := passes.NewShadowPass(dev, table, vulkan.NewHostPipeline("shadow", nil), 32, vk.FormatD32Sfloat, meshes, light)
	require.NoError(t, err)
	scenePass, err := passes.NewScenePass(dev, table, passes.ScenePipelines{
		Skybox: vulkan.NewHostPipeline("skybox", nil),
		Opaque: vulkan.NewHostPipeline("opaque", nil),
		Grid:   vulkan.NewHostPipeline("grid", nil),
	}, passes.SceneConfig{
		Width: 16, Height: 12,
		ColorFormat: vk.FormatB8g8r8a8Unorm,
		DepthFormat: vk.FormatD32Sfloat,
		Samples:     vk.SampleCount4Bit,
	}, shadow, meshes, camera, light, nil)
	require.NoError(t, err)
	display, err := passes.NewDepthDisplayPass(dev, table, vulkan.NewHostPipeline("depth-display", nil), 16, 12, vk.FormatB8g8r8a8Unorm, vk.SampleCount4Bit)
	require.NoError(t, err)
	sceneSlot, err := table.AllocateSlot(vulkan.BindingDepthSamplers)
	require.NoError(t, err)
	ui := passes.NewUIPass(table, nil)

	set := Passes{
		Shadow:            Stage{Pass: shadow, Commands: commands()},
		Scene:             Stage{Pass: scenePass, Commands: commands()},
		ShadowDisplay:     Stage{Pass: display.AddSource(passes.ShadowSource(shadow)), Commands: commands()},
		SceneDepthDisplay: Stage{Pass: display.AddSource(passes.SceneDepthSource(scenePass, sceneSlot)), Commands: commands()},
		UI:                Stage{Pass: ui, Commands: commands()},
		SceneColor:        scenePass.Color,
		DisplayTarget:     display.Target,
	}
	graph, err := NewGraph(dev, set, ui, slots)
	require.NoError(t, err)

	swap := vulkan.NewHostImage(vulkan.ImageConfig{Name: "swapchain-0", Format: vk.FormatB8g8r8a8Unorm, Width: 16, Height: 12})
	return &fixture{dev: dev, graph: graph, set: set, ui: ui, display: display, scene: scenePass, swap: swap}
}

type recordingQueue struct {
	submissions []vulkan.Submission
}

func (q *recordingQueue) Submit(s vulkan.Submission) error {
	q.submissions = append(q.submissions, s)
	return nil
}

func TestPickerLatchesSelection(t *testing.T) {
	p := NewPicker(Scene)
	require.NoError(t, p.Select(ShadowMapDebug))
	assert.Equal(t, Scene, p.Active())
	assert.Equal(t, ShadowMapDebug, p.Latch())
	assert.Equal(t, ShadowMapDebug, p.Active())

	assert.Error(t, p.Select(State(42)))
	assert.Error(t, p.Select(State(-1)))
	assert.Equal(t, ShadowMapDebug, p.Latch())
}

func TestChainCompleteness(t *testing.T) {
	f := newFixture(t)
	expected := map[State][]string{
		Scene:           {"shadow", "scene", "ui"},
		ShadowMapDebug:  {"shadow", "depth-display:shadow", "ui"},
		SceneDepthDebug: {"shadow", "scene", "depth-display:scene-depth", "ui"},
	}
	seen := map[*vulkan.Semaphore]bool{}
	for _, state := range States() {
		chain := f.graph.Chain(state)
		for slot := 0; slot < slots; slot++ {
			acquire := vulkan.NewHostSemaphore("acquire")
			queue := &recordingQueue{}
			final, err := chain.Submit(queue, slot, acquire)
			require.NoError(t, err)

			subs := queue.submissions
			require.Len(t, subs, len(expected[state]))
			for i, s := range subs {
				assert.Equal(t, expected[state][i], s.Label)
				require.Len(t, s.Waits, 1)
				require.Len(t, s.Signals, 1)
				require.Len(t, s.CommandBuffers, 1)
				if i == 0 {
					assert.Same(t, acquire, s.Waits[0].Semaphore)
				} else {
					assert.Same(t, subs[i-1].Signals[0], s.Waits[0].Semaphore, "%s waits on its predecessor", s.Label)
				}
				assert.False(t, seen[s.Signals[0]], "semaphore %s reused", s.Signals[0].Name)
				seen[s.Signals[0]] = true
			}
			assert.Same(t, subs[len(subs)-1].Signals[0], final)
		}
	}
}

func TestChainWaitMasks(t *testing.T) {
	f := newFixture(t)
	expected := map[State][]vk.PipelineStageFlags{
		Scene:           {WaitAcquire, WaitShadowMap, WaitColor},
		ShadowMapDebug:  {WaitAcquire, WaitShadowMap, WaitColor},
		SceneDepthDebug: {WaitAcquire, WaitShadowMap, WaitSceneDepth, WaitColor},
	}
	for _, state := range States() {
		subs := f.graph.Chain(state).Submissions(0, vulkan.NewHostSemaphore("acquire"))
		for i, s := range subs {
			assert.Equal(t, expected[state][i], s.Waits[0].Stage, "%s/%s", state, s.Label)
		}
	}
}

func TestLayoutTrackingEveryState(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.graph.Validate(f.dev, f.swap, slots))

	// Switch states frame by frame, as the picker would.
	for _, state := range []State{ShadowMapDebug, Scene, SceneDepthDebug, SceneDepthDebug, ShadowMapDebug} {
		require.NoError(t, f.graph.Picker.Select(state))
		chain := f.graph.Begin(f.swap)
		assert.Equal(t, state, chain.State)
		assert.Empty(t, chain.Replay(f.dev, 0), "state %s", state)
		assert.Equal(t, vk.ImageLayoutPresentSrc, f.dev.Layout(f.swap))
		assert.Equal(t, vk.ImageLayoutColorAttachmentOptimal, f.dev.Layout(chain.Source()))
	}
}

func TestWrongWaitMaskIsReported(t *testing.T) {
	f := newFixture(t)
	stages, source, err := Stages(Scene, f.set)
	require.NoError(t, err)
	stages[1].Wait = WaitColor

	chain, err := NewChain(f.dev, Scene, stages, slots, source)
	require.NoError(t, err)
	f.ui.Prepare(source, f.swap)
	violations := chain.Replay(f.dev, 0)
	require.NotEmpty(t, violations)
	assert.Equal(t, "scene", violations[0].Stage)
	assert.Equal(t, "shadow-map", violations[0].Image)
}

func TestSwitchToShadowMapDebugChangesSource(t *testing.T) {
	f := newFixture(t)
	chain := f.graph.Begin(f.swap)
	assert.Equal(t, Scene, chain.State)
	assert.Same(t, f.scene.Color, f.ui.Source())

	require.NoError(t, f.graph.Picker.Select(ShadowMapDebug))
	// Not applied until the next frame starts.
	assert.Same(t, f.scene.Color, f.ui.Source())

	chain = f.graph.Begin(f.swap)
	assert.Equal(t, ShadowMapDebug, chain.State)
	assert.Same(t, f.display.Target, f.ui.Source())
	assert.Empty(t, chain.Replay(f.dev, 1))
}

func TestNewChainRejectsMissingCommands(t *testing.T) {
	f := newFixture(t)
	stages, source, err := Stages(Scene, f.set)
	require.NoError(t, err)
	stages[0].Commands = stages[0].Commands[:1]
	_, err = NewChain(f.dev, Scene, stages, slots, source)
	assert.Error(t, err)

	_, _, err = Stages(State(9), f.set)
	assert.Error(t, err)
}
