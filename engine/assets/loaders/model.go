package loaders

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/g3n/engine/loader/obj"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

// ModelLoader decodes Wavefront OBJ files into *metadata.MeshData. All
// objects of the file are merged into one mesh; materials are ignored.
type ModelLoader struct{}

func (ml *ModelLoader) Load(path string, params interface{}) (*Resource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening model")
	}
	defer f.Close()

	dec, err := obj.DecodeReader(f, strings.NewReader(""))
	if err != nil {
		return nil, errors.Wrapf(err, "decoding %s", path)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	mesh, err := meshFromOBJ(name, dec)
	if err != nil {
		return nil, errors.Wrapf(err, "model %s", path)
	}
	return &Resource{
		Name:     name,
		FullPath: path,
		Type:     ResourceTypeModel,
		DataSize: uint64(len(mesh.Vertices) * metadata.VertexSize),
		Data:     mesh,
	}, nil
}

type objKey struct {
	v, uv, n int
}

func meshFromOBJ(name string, dec *obj.Decoder) (*metadata.MeshData, error) {
	mesh := &metadata.MeshData{Name: name}
	unique := make(map[objKey]uint32)

	position := func(i int) (mgl32.Vec3, bool) {
		if i < 0 || i*3+2 >= len(dec.Vertices) {
			return mgl32.Vec3{}, false
		}
		return mgl32.Vec3{dec.Vertices[i*3], dec.Vertices[i*3+1], dec.Vertices[i*3+2]}, true
	}

	for _, o := range dec.Objects {
		for _, face := range o.Faces {
			// Faces are triangulated as fans.
			for i := 2; i < len(face.Vertices); i++ {
				corners := [3]int{0, i - 1, i}
				var tri [3]mgl32.Vec3
				for c, fi := range corners {
					p, ok := position(face.Vertices[fi])
					if !ok {
						return nil, errors.Newf("object %q references missing vertex %d", o.Name, face.Vertices[fi])
					}
					tri[c] = p
				}
				flat := tri[1].Sub(tri[0]).Cross(tri[2].Sub(tri[0]))
				if flat.Len() > 0 {
					flat = flat.Normalize()
				}
				for c, fi := range corners {
					key := objKey{v: face.Vertices[fi], uv: index(face.Uvs, fi), n: index(face.Normals, fi)}
					if idx, ok := unique[key]; ok {
						mesh.Indices = append(mesh.Indices, idx)
						continue
					}
					vert := metadata.Vertex{Position: tri[c], Normal: flat}
					if key.n >= 0 && key.n*3+2 < len(dec.Normals) {
						vert.Normal = mgl32.Vec3{dec.Normals[key.n*3], dec.Normals[key.n*3+1], dec.Normals[key.n*3+2]}
					} else {
						// Face normals differ per triangle, so these vertices are not shared.
						key.n = -2 - len(mesh.Vertices)
					}
					if key.uv >= 0 && key.uv*2+1 < len(dec.Uvs) {
						vert.Texcoord = mgl32.Vec2{dec.Uvs[key.uv*2], 1 - dec.Uvs[key.uv*2+1]}
					}
					idx := uint32(len(mesh.Vertices))
					mesh.Vertices = append(mesh.Vertices, vert)
					mesh.Indices = append(mesh.Indices, idx)
					unique[key] = idx
				}
			}
		}
	}
	if len(mesh.Indices) == 0 {
		return nil, errors.New("no triangles")
	}
	mesh.ComputeExtents()
	mesh.FitIndexFormat()
	return mesh, nil
}

// index returns s[i], or -1 when the face carries no such attribute.
func index(s []int, i int) int {
	if i >= len(s) {
		return -1
	}
	return s[i]
}
