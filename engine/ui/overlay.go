// Package ui draws the debug overlay inside the UI composite pass.
package ui

import (
	"github.com/spaghettifunk/lumen/engine/renderer/vulkan"
)

// Overlay is drawn last each frame, on top of the active view. Advance runs
// before any recording; Draw records into the UI pass.
type Overlay interface {
	Advance(dt float64)
	Draw(rec vulkan.Recorder)
	Destroy()
}

// Resources are the renderer objects an overlay draws with.
type Resources struct {
	Factory  vulkan.ResourceFactory
	Table    *vulkan.BindlessTable
	Pipeline *vulkan.Pipeline
	Sampler  *vulkan.Sampler
	// Width and Height are the composite target size in pixels.
	Width  uint32
	Height uint32
}
