package engine

import (
	"testing"
	"time"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/frame"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestViewForKey(t *testing.T) {
	cases := map[core.KeyCode]frame.State{
		core.KEY_F1: frame.Scene,
		core.KEY_F2: frame.ShadowMapDebug,
		core.KEY_F3: frame.SceneDepthDebug,
	}
	for key, want := range cases {
		got, ok := viewForKey(key)
		require.True(t, ok)
		assert.Equal(t, want, got)
	}
	_, ok := viewForKey(core.KEY_F4)
	assert.False(t, ok)
}

func TestRendererConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Renderer.FrameTimeoutMS = 250
	cfg.Renderer.PresentMode = "fifo"

	rc := rendererConfig(cfg)
	assert.Equal(t, "Lumen", rc.ApplicationName)
	assert.Equal(t, 250*time.Millisecond, rc.FrameTimeout)
	assert.Equal(t, "fifo", rc.PresentMode)
	assert.Equal(t, uint32(4), rc.MSAASamples)
	assert.Equal(t, cfg.Renderer.DepthSlots, rc.Capacity.DepthSlots)
}

func TestNewRequiresDefaultScene(t *testing.T) {
	_, err := New(&Game{ApplicationConfig: DefaultConfig()})
	assert.Error(t, err)
}
