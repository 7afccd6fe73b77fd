package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, uint32(4), cfg.Renderer.MSAASamples)
	assert.Equal(t, uint32(2), cfg.Renderer.CubeSlots)
}

func TestParseConfigOverridesDefaults(t *testing.T) {
	cfg := DefaultConfig()
	err := ParseConfig([]byte(`
log_level = "debug"

[window]
name = "test"
width = 640

[renderer]
msaa_samples = 8
present_mode = "fifo"
`), cfg)
	require.NoError(t, err)
	assert.Equal(t, "test", cfg.Window.Name)
	assert.Equal(t, uint32(640), cfg.Window.StartWidth)
	assert.Equal(t, uint32(720), cfg.Window.StartHeight)
	assert.Equal(t, uint32(8), cfg.Renderer.MSAASamples)
	assert.Equal(t, "fifo", cfg.Renderer.PresentMode)
	assert.Equal(t, uint32(2048), cfg.Renderer.ShadowMapSize)
}

func TestParseConfigRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"msaa":    "[renderer]\nmsaa_samples = 3\n",
		"msaa1":   "[renderer]\nmsaa_samples = 1\n",
		"present": "[renderer]\npresent_mode = \"immediate\"\n",
		"shadow":  "[renderer]\nshadow_map_size = 0\n",
		"timeout": "[renderer]\nframe_timeout_ms = 0\n",
		"unknown": "[renderer]\nbogus = true\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, ParseConfig([]byte(doc), DefaultConfig()))
		})
	}
}
