// Package frame decides which passes run each frame and chains their
// submissions with semaphores.
package frame

import (
	"sync"

	"github.com/cockroachdb/errors"
)

type State int

const (
	Scene State = iota
	ShadowMapDebug
	SceneDepthDebug
)

// States lists every picker state in order.
func States() []State {
	return []State{Scene, ShadowMapDebug, SceneDepthDebug}
}

func (s State) String() string {
	switch s {
	case Scene:
		return "scene"
	case ShadowMapDebug:
		return "shadow-map-debug"
	case SceneDepthDebug:
		return "scene-depth-debug"
	}
	return "unknown"
}

func (s State) valid() bool {
	return s >= Scene && s <= SceneDepthDebug
}

// Picker holds the requested state. A selection only becomes active when
// the next frame latches it, so a frame never changes chain midway.
type Picker struct {
	mu      sync.Mutex
	pending State
	active  State
}

func NewPicker(initial State) *Picker {
	return &Picker{pending: initial, active: initial}
}

func (p *Picker) Select(s State) error {
	if !s.valid() {
		return errors.Newf("unknown picker state %d", int(s))
	}
	p.mu.Lock()
	p.pending = s
	p.mu.Unlock()
	return nil
}

// Latch makes the pending selection active and returns it.
func (p *Picker) Latch() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.active = p.pending
	return p.active
}

func (p *Picker) Active() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}
