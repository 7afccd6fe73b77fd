package frame

import (
	"fmt"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/passes"
	"github.com/spaghettifunk/lumen/engine/renderer/softgpu"
	"github.com/spaghettifunk/lumen/engine/renderer/vulkan"
)

// Stage masks a submission waits at, by what it consumes from the stage
// before it.
var (
	WaitAcquire    = vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)
	WaitShadowMap  = vk.PipelineStageFlags(vk.PipelineStageVertexShaderBit | vk.PipelineStageFragmentShaderBit | vk.PipelineStageEarlyFragmentTestsBit | vk.PipelineStageLateFragmentTestsBit)
	WaitSceneDepth = vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit | vk.PipelineStageEarlyFragmentTestsBit | vk.PipelineStageLateFragmentTestsBit | vk.PipelineStageColorAttachmentOutputBit)
	WaitColor      = vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)
)

// Stage is one submission of a chain. Commands holds one command buffer per
// frame slot; Wait is the mask for the semaphore of the previous stage.
type Stage struct {
	Pass     passes.Pass
	Commands []*vulkan.CommandBuffer
	Wait     vk.PipelineStageFlags
}

// Chain is the ordered list of submissions for one picker state. Each edge
// between consecutive stages, and the edge to present, has a private
// semaphore per frame slot.
type Chain struct {
	State State

	stages []Stage
	// signals[slot][i] is signaled by stage i.
	signals   [][]*vulkan.Semaphore
	source    *vulkan.Image
	destroyed bool
}

func NewChain(factory vulkan.ResourceFactory, state State, stages []Stage, slots int, source *vulkan.Image) (*Chain, error) {
	if len(stages) == 0 {
		return nil, errors.Newf("chain %s has no stages", state)
	}
	for _, st := range stages {
		if len(st.Commands) != slots {
			return nil, errors.Newf("stage %s has %d command buffers for %d slots", st.Pass.Name(), len(st.Commands), slots)
		}
	}
	c := &Chain{State: state, stages: stages, source: source}
	for slot := 0; slot < slots; slot++ {
		sems := make([]*vulkan.Semaphore, len(stages))
		for i, st := range stages {
			to := "present"
			if i+1 < len(stages) {
				to = stages[i+1].Pass.Name()
			}
			sem, err := factory.CreateSemaphore(fmt.Sprintf("%s/%d/%s->%s", state, slot, st.Pass.Name(), to))
			if err != nil {
				c.signals = append(c.signals, sems[:i])
				c.Destroy()
				return nil, err
			}
			sems[i] = sem
		}
		c.signals = append(c.signals, sems)
	}
	return c, nil
}

// Source is the color image the UI pass composites for this chain.
func (c *Chain) Source() *vulkan.Image { return c.source }

func (c *Chain) Stages() []Stage { return c.stages }

// Submissions returns the batches for slot in submission order. The first
// waits on acquire; every later one waits on its predecessor.
func (c *Chain) Submissions(slot int, acquire *vulkan.Semaphore) []vulkan.Submission {
	sems := c.signals[slot]
	out := make([]vulkan.Submission, len(c.stages))
	for i, st := range c.stages {
		wait := vulkan.SemaphoreWait{Semaphore: acquire, Stage: WaitAcquire}
		if i > 0 {
			wait = vulkan.SemaphoreWait{Semaphore: sems[i-1], Stage: st.Wait}
		}
		out[i] = vulkan.Submission{
			Label:          st.Pass.Name(),
			Waits:          []vulkan.SemaphoreWait{wait},
			CommandBuffers: []*vulkan.CommandBuffer{st.Commands[slot]},
			Signals:        []*vulkan.Semaphore{sems[i]},
		}
	}
	return out
}

// Submit queues the chain and returns the semaphore present must wait on.
func (c *Chain) Submit(queue vulkan.Submitter, slot int, acquire *vulkan.Semaphore) (*vulkan.Semaphore, error) {
	for _, s := range c.Submissions(slot, acquire) {
		if err := queue.Submit(s); err != nil {
			return nil, errors.Wrapf(err, "submitting %s of chain %s", s.Label, c.State)
		}
	}
	return c.Final(slot), nil
}

// Final is the last semaphore of slot, handed to present.
func (c *Chain) Final(slot int) *vulkan.Semaphore {
	sems := c.signals[slot]
	return sems[len(sems)-1]
}

type externalImages interface {
	External() []*vulkan.Image
}

// Replay records every stage of slot into dev as separate submissions and
// returns the violations it found.
func (c *Chain) Replay(dev *softgpu.Device, slot int) []softgpu.Violation {
	before := len(dev.Violations)
	for i, st := range c.stages {
		if ext, ok := st.Pass.(externalImages); ok {
			for _, img := range ext.External() {
				dev.MarkExternal(img)
			}
		}
		mask := WaitAcquire
		if i > 0 {
			mask = st.Wait
		}
		dev.BeginStage(st.Pass.Name(), mask)
		st.Pass.Record(dev, slot)
	}
	dev.EndFrame()
	return dev.Violations[before:]
}

func (c *Chain) Destroy() {
	core.Assert(!c.destroyed, "chain %s destroyed twice", c.State)
	for _, sems := range c.signals {
		for _, s := range sems {
			s.Destroy()
		}
	}
	c.signals = nil
	c.destroyed = true
}
