package vulkan

import (
	vk "github.com/goki/vulkan"
)

// SemaphoreWait pairs a semaphore with the pipeline stages that must not
// start before it is signaled.
type SemaphoreWait struct {
	Semaphore *Semaphore
	Stage     vk.PipelineStageFlags
}

// Submission is one vkQueueSubmit batch.
type Submission struct {
	Label          string
	Waits          []SemaphoreWait
	CommandBuffers []*CommandBuffer
	Signals        []*Semaphore
	Fence          *Fence
}

type Submitter interface {
	Submit(s Submission) error
}

type Queue struct {
	Handle vk.Queue
	Family uint32

	locks *VulkanLockPool
}

func (q *Queue) Submit(s Submission) error {
	waits := make([]vk.Semaphore, len(s.Waits))
	stages := make([]vk.PipelineStageFlags, len(s.Waits))
	for i, w := range s.Waits {
		waits[i] = w.Semaphore.Handle
		stages[i] = w.Stage
	}
	cmds := make([]vk.CommandBuffer, len(s.CommandBuffers))
	for i, cb := range s.CommandBuffers {
		cmds[i] = cb.Handle
	}
	signals := make([]vk.Semaphore, len(s.Signals))
	for i, sem := range s.Signals {
		signals[i] = sem.Handle
	}

	info := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   uint32(len(waits)),
		PWaitSemaphores:      waits,
		PWaitDstStageMask:    stages,
		CommandBufferCount:   uint32(len(cmds)),
		PCommandBuffers:      cmds,
		SignalSemaphoreCount: uint32(len(signals)),
		PSignalSemaphores:    signals,
	}
	fence := vk.NullFence
	if s.Fence != nil {
		fence = s.Fence.Handle
	}

	err := q.locks.SafeQueueCall(q.Family, func() error {
		return resultError(vk.QueueSubmit(q.Handle, 1, []vk.SubmitInfo{info}, fence), "vkQueueSubmit "+s.Label)
	})
	if err != nil {
		return err
	}
	for _, cb := range s.CommandBuffers {
		cb.UpdateSubmitted()
	}
	return nil
}

func (q *Queue) WaitIdle() error {
	return q.locks.SafeQueueCall(q.Family, func() error {
		return resultError(vk.QueueWaitIdle(q.Handle), "vkQueueWaitIdle")
	})
}
