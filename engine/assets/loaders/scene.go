package loaders

import (
	"bytes"
	"os"
	"path/filepath"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pelletier/go-toml/v2"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
	"github.com/spaghettifunk/lumen/engine/systems"
)

type CameraDescription struct {
	Position [3]float32 `toml:"position"`
	Target   [3]float32 `toml:"target"`
	FOV      float32    `toml:"fov"`
	Near     float32    `toml:"near"`
	Far      float32    `toml:"far"`
}

type LightDescription struct {
	Direction [3]float32 `toml:"direction"`
	Color     [3]float32 `toml:"color"`
	Intensity float32    `toml:"intensity"`
	Center    [3]float32 `toml:"center"`
	Radius    float32    `toml:"radius"`
}

type SkyboxDescription struct {
	Right  string `toml:"right"`
	Left   string `toml:"left"`
	Top    string `toml:"top"`
	Bottom string `toml:"bottom"`
	Front  string `toml:"front"`
	Back   string `toml:"back"`
}

func (s SkyboxDescription) paths() [6]string {
	return [6]string{s.Right, s.Left, s.Top, s.Bottom, s.Front, s.Back}
}

func (s SkyboxDescription) empty() bool {
	return s == SkyboxDescription{}
}

type MeshDescription struct {
	Name string `toml:"name"`
	// Exactly one of OBJ and Primitive is set. Primitive is "cube" or "plane".
	OBJ       string     `toml:"obj"`
	Primitive string     `toml:"primitive"`
	Size      [3]float32 `toml:"size"`

	Translation [3]float32 `toml:"translation"`
	// Rotation is in degrees.
	Rotation [3]float32 `toml:"rotation"`
	Scale    [3]float32 `toml:"scale"`
	UI       bool       `toml:"ui"`
}

type SceneDescription struct {
	Camera CameraDescription `toml:"camera"`
	Light  LightDescription  `toml:"light"`
	Skybox SkyboxDescription `toml:"skybox"`
	Meshes []MeshDescription `toml:"mesh"`
}

// MeshAsset is decoded geometry plus its placement. Rotation is in radians.
type MeshAsset struct {
	Data        *metadata.MeshData
	Translation mgl32.Vec3
	Rotation    mgl32.Vec3
	Scale       mgl32.Vec3
	UI          bool
}

/**
 * @brief Everything needed to build a scene, decoded on the CPU.
 */
type SceneAssets struct {
	Camera CameraDescription
	Light  LightDescription
	// Skybox is nil when the scene has none.
	Skybox *CubeData
	Meshes []MeshAsset
}

// SceneLoader reads a scene TOML file and decodes the files it references
// in parallel on Jobs. Data is *SceneAssets.
type SceneLoader struct {
	Jobs *systems.JobSystem
}

func (sl *SceneLoader) Load(path string, params interface{}) (*Resource, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading scene")
	}
	desc, err := ParseScene(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "scene %s", path)
	}
	assets, err := sl.decode(desc, filepath.Dir(path))
	if err != nil {
		return nil, errors.Wrapf(err, "scene %s", path)
	}
	return &Resource{
		Name:     filepath.Base(path),
		FullPath: path,
		Type:     ResourceTypeScene,
		DataSize: uint64(len(raw)),
		Data:     assets,
	}, nil
}

// ParseScene decodes and checks a scene description. Unknown keys are errors.
func ParseScene(data []byte) (*SceneDescription, error) {
	desc := &SceneDescription{
		Camera: CameraDescription{FOV: 60, Near: 0.1, Far: 100},
		Light:  LightDescription{Color: [3]float32{1, 1, 1}, Intensity: 1, Radius: 10},
	}
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(desc); err != nil {
		return nil, errors.Wrap(err, "decoding toml")
	}
	if mgl32.Vec3(desc.Light.Direction).Len() == 0 {
		return nil, errors.New("light direction must be non-zero")
	}
	if desc.Light.Radius <= 0 {
		return nil, errors.New("light radius must be positive")
	}
	for i := range desc.Meshes {
		m := &desc.Meshes[i]
		if m.Name == "" {
			return nil, errors.Newf("mesh %d has no name", i)
		}
		if (m.OBJ == "") == (m.Primitive == "") {
			return nil, errors.Newf("mesh %q needs exactly one of obj and primitive", m.Name)
		}
		if m.Primitive != "" && m.Primitive != "cube" && m.Primitive != "plane" {
			return nil, errors.Newf("mesh %q has unknown primitive %q", m.Name, m.Primitive)
		}
		if m.Scale == ([3]float32{}) {
			m.Scale = [3]float32{1, 1, 1}
		}
	}
	if !desc.Skybox.empty() {
		for i, p := range desc.Skybox.paths() {
			if p == "" {
				return nil, errors.Newf("skybox face %s is missing", CubeFaceNames[i])
			}
		}
	}
	return desc, nil
}

func (sl *SceneLoader) decode(desc *SceneDescription, dir string) (*SceneAssets, error) {
	out := &SceneAssets{
		Camera: desc.Camera,
		Light:  desc.Light,
		Meshes: make([]MeshAsset, len(desc.Meshes)),
	}
	resolve := func(p string) string {
		if filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(dir, p)
	}

	var mu sync.Mutex
	tasks := make([]systems.JobTask, 0, len(desc.Meshes)+1)
	for i, m := range desc.Meshes {
		i, m := i, m
		tasks = append(tasks, systems.JobTask{
			Name: "mesh " + m.Name,
			OnStart: func() error {
				data, err := meshFor(m, resolve)
				if err != nil {
					return err
				}
				asset := MeshAsset{
					Data:        data,
					Translation: mgl32.Vec3(m.Translation),
					Rotation: mgl32.Vec3{
						mgl32.DegToRad(m.Rotation[0]),
						mgl32.DegToRad(m.Rotation[1]),
						mgl32.DegToRad(m.Rotation[2]),
					},
					Scale: mgl32.Vec3(m.Scale),
					UI:    m.UI,
				}
				mu.Lock()
				out.Meshes[i] = asset
				mu.Unlock()
				return nil
			},
		})
	}
	if !desc.Skybox.empty() {
		tasks = append(tasks, systems.JobTask{
			Name: "skybox",
			OnStart: func() error {
				var paths [6]string
				for i, p := range desc.Skybox.paths() {
					paths[i] = resolve(p)
				}
				cube, err := LoadCube(paths)
				if err != nil {
					return err
				}
				mu.Lock()
				out.Skybox = cube
				mu.Unlock()
				return nil
			},
		})
	}
	if err := sl.Jobs.RunAll(tasks); err != nil {
		return nil, err
	}
	return out, nil
}

func meshFor(m MeshDescription, resolve func(string) string) (*metadata.MeshData, error) {
	size := m.Size
	switch m.Primitive {
	case "cube":
		return metadata.GenerateCube(m.Name, size[0], size[1], size[2], 1, 1), nil
	case "plane":
		return metadata.GeneratePlane(m.Name, size[0], size[2], 1, 1, size[0], size[2]), nil
	}
	res, err := (&ModelLoader{}).Load(resolve(m.OBJ), nil)
	if err != nil {
		return nil, err
	}
	mesh := res.Data.(*metadata.MeshData)
	mesh.Name = m.Name
	return mesh, nil
}
