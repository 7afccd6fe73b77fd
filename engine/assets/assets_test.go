package assets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spaghettifunk/lumen/engine/assets/loaders"
	"github.com/spaghettifunk/lumen/engine/systems"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var spirv = []byte{0x03, 0x02, 0x23, 0x07, 0x00, 0x00, 0x01, 0x00}

func newManager(t *testing.T) (*AssetManager, string) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "shaders"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "shaders", "mesh.vert.spv"), spirv, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	jobs, err := systems.NewJobSystem(1, 1)
	require.NoError(t, err)
	t.Cleanup(func() { jobs.Shutdown() })

	am, err := NewAssetManager()
	require.NoError(t, err)
	require.NoError(t, am.Initialize(dir, "shaders", jobs))
	t.Cleanup(am.Shutdown)
	return am, dir
}

func TestAssetManagerIndexesKnownTypes(t *testing.T) {
	am, _ := newManager(t)

	assert.Equal(t, 1, am.Count())
	info, ok := am.Info("shaders/mesh.vert.spv")
	require.True(t, ok)
	assert.Equal(t, loaders.ResourceTypeShader, info.Type)
	_, ok = am.Info("notes.txt")
	assert.False(t, ok)
}

func TestAssetManagerShader(t *testing.T) {
	am, _ := newManager(t)

	code, err := am.Shader("mesh.vert")
	require.NoError(t, err)
	assert.Equal(t, []uint32{loaders.SPIRVMagic, 0x00010000}, code)

	info, _ := am.Info("shaders/mesh.vert.spv")
	assert.False(t, info.LastLoaded.IsZero())

	_, err = am.Shader("missing.frag")
	assert.ErrorIs(t, err, ErrAssetNotFound)
}

func TestAssetManagerRejectsWrongKind(t *testing.T) {
	am, _ := newManager(t)

	_, err := am.Font("shaders/mesh.vert.spv")
	assert.Error(t, err)
	_, err = am.Scene("shaders/mesh.vert.spv")
	assert.Error(t, err)
}

func TestAssetManagerShutdownTwice(t *testing.T) {
	am, _ := newManager(t)
	am.Shutdown()
	assert.NotPanics(t, am.Shutdown)
}
