package testbed

import (
	"image/color"
	"testing"

	"github.com/spaghettifunk/lumen/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultScene(t *testing.T) {
	g := NewTestGame(engine.DefaultConfig())
	sc, err := g.DefaultScene()
	require.NoError(t, err)

	require.NotNil(t, sc.Skybox)
	assert.Equal(t, uint32(skyFaceSize), sc.Skybox.Size)
	require.Len(t, sc.Meshes, 4)
	var selectable int
	for _, m := range sc.Meshes {
		assert.NotEmpty(t, m.Data.Indices)
		if m.UI {
			selectable++
		}
	}
	assert.Equal(t, 2, selectable)
}

func TestGradientSky(t *testing.T) {
	faces := gradientSky(8)
	top := faces[2].At(4, 4).(color.RGBA)
	side := faces[0].At(4, 3).(color.RGBA)
	assert.Less(t, top.R, side.R)
	assert.Greater(t, top.B, uint8(160))
	assert.Equal(t, ground, faces[3].At(4, 4))
	assert.Equal(t, ground, faces[0].At(4, 7))
}
