package frame

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/lumen/engine/renderer/passes"
	"github.com/spaghettifunk/lumen/engine/renderer/softgpu"
	"github.com/spaghettifunk/lumen/engine/renderer/vulkan"
)

// Passes are the stages a chain can be built from. Wait is set per chain.
type Passes struct {
	Shadow            Stage
	Scene             Stage
	ShadowDisplay     Stage
	SceneDepthDisplay Stage
	UI                Stage

	SceneColor    *vulkan.Image
	DisplayTarget *vulkan.Image
}

func waitAt(st Stage, mask vk.PipelineStageFlags) Stage {
	st.Wait = mask
	return st
}

// Stages returns the stages of state with their wait masks, and the image
// the UI pass composites.
func Stages(state State, p Passes) ([]Stage, *vulkan.Image, error) {
	switch state {
	case Scene:
		return []Stage{
			waitAt(p.Shadow, WaitAcquire),
			waitAt(p.Scene, WaitShadowMap),
			waitAt(p.UI, WaitColor),
		}, p.SceneColor, nil
	case ShadowMapDebug:
		return []Stage{
			waitAt(p.Shadow, WaitAcquire),
			waitAt(p.ShadowDisplay, WaitShadowMap),
			waitAt(p.UI, WaitColor),
		}, p.DisplayTarget, nil
	case SceneDepthDebug:
		return []Stage{
			waitAt(p.Shadow, WaitAcquire),
			waitAt(p.Scene, WaitShadowMap),
			waitAt(p.SceneDepthDisplay, WaitSceneDepth),
			waitAt(p.UI, WaitColor),
		}, p.DisplayTarget, nil
	}
	return nil, nil, errors.Newf("unknown picker state %d", int(state))
}

// Graph owns a chain per picker state and points the UI pass at the active
// chain's source each frame.
type Graph struct {
	Picker *Picker

	chains map[State]*Chain
	ui     *passes.UIPass
}

func NewGraph(factory vulkan.ResourceFactory, p Passes, ui *passes.UIPass, slots int) (*Graph, error) {
	g := &Graph{
		Picker: NewPicker(Scene),
		chains: map[State]*Chain{},
		ui:     ui,
	}
	for _, state := range States() {
		stages, source, err := Stages(state, p)
		if err != nil {
			g.Destroy()
			return nil, err
		}
		chain, err := NewChain(factory, state, stages, slots, source)
		if err != nil {
			g.Destroy()
			return nil, errors.Wrapf(err, "building chain %s", state)
		}
		g.chains[state] = chain
	}
	return g, nil
}

// Latch applies the pending picker selection and returns its chain.
func (g *Graph) Latch() *Chain {
	return g.chains[g.Picker.Latch()]
}

// Prepare points the UI pass at chain's source and the frame's swapchain
// image.
func (g *Graph) Prepare(chain *Chain, target *vulkan.Image) {
	g.ui.Prepare(chain.Source(), target)
}

// Begin latches the picker and prepares the UI pass for target.
func (g *Graph) Begin(target *vulkan.Image) *Chain {
	chain := g.Latch()
	g.Prepare(chain, target)
	return chain
}

func (g *Graph) Chain(state State) *Chain {
	return g.chains[state]
}

// Validate replays a full frame of every chain and slot on dev, in picker
// state order, and reports each violation.
func (g *Graph) Validate(dev *softgpu.Device, target *vulkan.Image, slots int) error {
	var err error
	for _, state := range States() {
		chain := g.chains[state]
		for slot := 0; slot < slots; slot++ {
			g.ui.Prepare(chain.Source(), target)
			for _, v := range chain.Replay(dev, slot) {
				err = errors.CombineErrors(err, errors.Newf("chain %s slot %d: %s", state, slot, v))
			}
		}
	}
	return err
}

func (g *Graph) Destroy() {
	for state, chain := range g.chains {
		chain.Destroy()
		delete(g.chains, state)
	}
}
