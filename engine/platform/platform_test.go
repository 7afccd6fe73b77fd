package platform

import (
	"testing"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/stretchr/testify/assert"
)

func TestTranslateKey(t *testing.T) {
	cases := map[glfw.Key]core.KeyCode{
		glfw.KeyA:   core.KEY_A,
		glfw.KeyQ:   core.KEY_Q,
		glfw.KeyE:   core.KEY_E,
		glfw.KeyF1:  core.KEY_F1,
		glfw.KeyF3:  core.KEY_F3,
		glfw.KeyF12: core.KEY_F12,
		glfw.KeyTab: core.KEY_TAB,
		glfw.KeyUp:  core.KEY_UP,
	}
	for in, want := range cases {
		got, ok := translateKey(in)
		assert.True(t, ok, "key %d", in)
		assert.Equal(t, want, got, "key %d", in)
	}
	_, ok := translateKey(glfw.KeyKPAdd)
	assert.False(t, ok)
}
