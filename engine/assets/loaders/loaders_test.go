package loaders

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
	"github.com/spaghettifunk/lumen/engine/systems"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func writePNG(t *testing.T, dir, name string, w, h int, c color.RGBA) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
	return path
}

func TestDecodeSPIRV(t *testing.T) {
	code, err := DecodeSPIRV([]byte{0x03, 0x02, 0x23, 0x07, 0x00, 0x00, 0x01, 0x00})
	require.NoError(t, err)
	assert.Equal(t, []uint32{SPIRVMagic, 0x00010000}, code)

	_, err = DecodeSPIRV([]byte{0x03, 0x02, 0x23})
	assert.ErrorIs(t, err, ErrInvalidSPIRV)
	_, err = DecodeSPIRV(nil)
	assert.ErrorIs(t, err, ErrInvalidSPIRV)
	_, err = DecodeSPIRV([]byte{1, 2, 3, 4})
	assert.ErrorIs(t, err, ErrInvalidSPIRV)
}

func TestTypeOf(t *testing.T) {
	assert.Equal(t, ResourceTypeShader, TypeOf("shaders/mesh.vert.spv"))
	assert.Equal(t, ResourceTypeImage, TypeOf("sky/right.png"))
	assert.Equal(t, ResourceTypeModel, TypeOf("models/cube.obj"))
	assert.Equal(t, ResourceTypeFont, TypeOf("fonts/debug.fnt"))
	assert.Equal(t, ResourceTypeScene, TypeOf("scenes/default.toml"))
	assert.Equal(t, ResourceTypeNone, TypeOf("readme.md"))
}

func TestImageLoaderFlipsRows(t *testing.T) {
	dir := t.TempDir()
	img := image.NewRGBA(image.Rect(0, 0, 1, 2))
	img.SetRGBA(0, 0, color.RGBA{R: 255, A: 255})
	img.SetRGBA(0, 1, color.RGBA{B: 255, A: 255})
	path := filepath.Join(dir, "two.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())

	res, err := (&ImageLoader{}).Load(path, &ImageResourceParams{FlipY: true})
	require.NoError(t, err)
	data := res.Data.(*ImageData)
	assert.Equal(t, uint32(1), data.Width)
	assert.Equal(t, uint32(2), data.Height)
	assert.Equal(t, []byte{0, 0, 255, 255, 255, 0, 0, 255}, data.Pixels)

	res, err = (&ImageLoader{}).Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{255, 0, 0, 255, 0, 0, 255, 255}, res.Data.(*ImageData).Pixels)
}

func TestBuildCube(t *testing.T) {
	var faces [6]image.Image
	for i := range faces {
		faces[i] = image.NewRGBA(image.Rect(0, 0, 4, 4))
	}
	faces[3] = image.NewRGBA(image.Rect(0, 0, 8, 2))

	cube, err := BuildCube(faces)
	require.NoError(t, err)
	assert.Equal(t, uint32(4), cube.Size)
	for _, f := range cube.Faces {
		assert.Len(t, f, 4*4*4)
	}

	faces[0] = image.NewRGBA(image.Rect(0, 0, 4, 2))
	_, err = BuildCube(faces)
	assert.Error(t, err)
}

const quadOBJ = `o quad
v -1 0 -1
v 1 0 -1
v 1 0 1
v -1 0 1
vt 0 0
vt 1 0
vt 1 1
vt 0 1
vn 0 1 0
f 1/1/1 4/4/1 3/3/1 2/2/1
`

const quadNoNormalsOBJ = `o quad
v -1 0 -1
v 1 0 -1
v 1 0 1
v -1 0 1
vt 0 0
vt 1 0
vt 1 1
vt 0 1
f 1/1 4/4 3/3 2/2
`

func TestModelLoader(t *testing.T) {
	dir := t.TempDir()

	res, err := (&ModelLoader{}).Load(writeFile(t, dir, "quad.obj", quadOBJ), nil)
	require.NoError(t, err)
	mesh := res.Data.(*metadata.MeshData)
	assert.Equal(t, "quad", mesh.Name)
	assert.Len(t, mesh.Vertices, 4)
	assert.Equal(t, []uint32{0, 1, 2, 0, 2, 3}, mesh.Indices)
	for _, v := range mesh.Vertices {
		assert.InDelta(t, 1, v.Normal.Y(), 1e-6)
	}
	assert.InDelta(t, -1, mesh.MinExtents.X(), 1e-6)
	assert.InDelta(t, 1, mesh.MaxExtents.Z(), 1e-6)

	res, err = (&ModelLoader{}).Load(writeFile(t, dir, "flat.obj", quadNoNormalsOBJ), nil)
	require.NoError(t, err)
	mesh = res.Data.(*metadata.MeshData)
	assert.Len(t, mesh.Vertices, 6)
	assert.Len(t, mesh.Indices, 6)
	for _, v := range mesh.Vertices {
		// Counter-clockwise seen from above.
		assert.InDelta(t, 1, v.Normal.Y(), 1e-6)
	}
}

const testFNT = `info face="Test" size=16 bold=0 italic=0 charset="" unicode=1 stretchH=100 smooth=1 aa=1 padding=0,0,0,0 spacing=1,1 outline=0
common lineHeight=18 base=14 scaleW=8 scaleH=8 pages=1 packed=0 alphaChnl=0 redChnl=4 greenChnl=4 blueChnl=4
page id=0 file="test_0.png"
chars count=2
char id=32   x=0     y=0     width=0     height=0     xoffset=0     yoffset=0     xadvance=4     page=0  chnl=15
char id=65   x=1     y=2     width=4     height=5     xoffset=0     yoffset=2     xadvance=5     page=0  chnl=15
kernings count=1
kerning first=65  second=65  amount=-1
`

func TestBitmapFontLoader(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, dir, "test_0.png", 8, 8, color.RGBA{R: 255, G: 255, B: 255, A: 255})
	path := writeFile(t, dir, "test.fnt", testFNT)

	res, err := (&BitmapFontLoader{}).Load(path, nil)
	require.NoError(t, err)
	font := res.Data.(*metadata.FontData)
	assert.Equal(t, "Test", font.Face)
	assert.Equal(t, int32(18), font.LineHeight)
	assert.Equal(t, int32(14), font.Baseline)
	assert.Len(t, font.Atlas, 8*8*4)
	require.Contains(t, font.Glyphs, 'A')
	assert.Equal(t, metadata.FontGlyph{Codepoint: 'A', X: 1, Y: 2, Width: 4, Height: 5, YOffset: 2, XAdvance: 5}, font.Glyphs['A'])
	assert.Equal(t, int16(-1), font.Kerning('A', 'A'))
	assert.Equal(t, float32(16), font.TabXAdvance)
}

const testScene = `
[camera]
position = [0.0, 4.0, 10.0]
target = [0.0, 0.0, 0.0]

[light]
direction = [0.0, -1.0, 0.0]
radius = 6.0

[skybox]
right = "sky/right.png"
left = "sky/left.png"
top = "sky/top.png"
bottom = "sky/bottom.png"
front = "sky/front.png"
back = "sky/back.png"

[[mesh]]
name = "ground"
primitive = "plane"
size = [10.0, 0.0, 10.0]

[[mesh]]
name = "crate"
primitive = "cube"
size = [2.0, 2.0, 2.0]
translation = [0.0, 1.0, 0.0]
rotation = [0.0, 90.0, 0.0]
ui = true

[[mesh]]
name = "quad"
obj = "models/quad.obj"
`

func TestParseSceneRejectsBadMeshes(t *testing.T) {
	desc, err := ParseScene([]byte(testScene))
	require.NoError(t, err)
	assert.Equal(t, float32(60), desc.Camera.FOV)
	assert.Equal(t, [3]float32{1, 1, 1}, desc.Meshes[0].Scale)

	base := "[light]\ndirection = [0.0, -1.0, 0.0]\n"
	cases := map[string]string{
		"both":      base + "[[mesh]]\nname = \"a\"\nobj = \"a.obj\"\nprimitive = \"cube\"\n",
		"neither":   base + "[[mesh]]\nname = \"a\"\n",
		"primitive": base + "[[mesh]]\nname = \"a\"\nprimitive = \"torus\"\n",
		"unnamed":   base + "[[mesh]]\nprimitive = \"cube\"\n",
		"unknown":   base + "shininess = 3\n",
		"light":     "[light]\ndirection = [0.0, 0.0, 0.0]\n",
		"skybox":    base + "[skybox]\nright = \"r.png\"\n",
	}
	for name, input := range cases {
		_, err := ParseScene([]byte(input))
		assert.Error(t, err, name)
	}
}

func TestSceneLoaderDecodesInParallel(t *testing.T) {
	dir := t.TempDir()
	for i, face := range []string{"right", "left", "top", "bottom", "front", "back"} {
		size := 4
		if i == 5 {
			size = 8
		}
		writePNG(t, dir, "sky/"+face+".png", size, size, color.RGBA{B: 255, A: 255})
	}
	writeFile(t, dir, "models/quad.obj", quadOBJ)
	path := writeFile(t, dir, "scene.toml", testScene)

	jobs, err := systems.NewJobSystem(2, 2)
	require.NoError(t, err)
	defer jobs.Shutdown()

	res, err := (&SceneLoader{Jobs: jobs}).Load(path, nil)
	require.NoError(t, err)
	sc := res.Data.(*SceneAssets)

	require.NotNil(t, sc.Skybox)
	assert.Equal(t, uint32(4), sc.Skybox.Size)
	require.Len(t, sc.Meshes, 3)
	assert.Equal(t, "ground", sc.Meshes[0].Data.Name)
	assert.Equal(t, "crate", sc.Meshes[1].Data.Name)
	assert.True(t, sc.Meshes[1].UI)
	assert.InDelta(t, 1.5707963, sc.Meshes[1].Rotation.Y(), 1e-5)
	assert.Equal(t, "quad", sc.Meshes[2].Data.Name)
	assert.Len(t, sc.Meshes[2].Data.Indices, 6)

	writeFile(t, dir, "broken.toml", "[light]\ndirection = [0.0, -1.0, 0.0]\n[[mesh]]\nname = \"gone\"\nobj = \"models/missing.obj\"\n")
	_, err = (&SceneLoader{Jobs: jobs}).Load(filepath.Join(dir, "broken.toml"), nil)
	assert.Error(t, err)
}
