// Package scene holds what the renderer draws: meshes, one camera, one
// directional light and a skybox, stored in a flat node arena.
package scene

import (
	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/lumen/engine/core"
)

type NodeID uint32

type NodeKind int

const (
	NodeMesh NodeKind = iota
	NodeCamera
	NodeLight
	NodeSkybox
)

type Node struct {
	ID   NodeID
	Name string
	Kind NodeKind
	// UI nodes can be selected and rotated from the debug overlay.
	UI bool

	Mesh *Mesh
}

type Scene struct {
	Camera *Camera
	Light  *Light
	Skybox *Skybox

	nodes []Node
	ui    []NodeID
}

func New(camera *Camera, light *Light, skybox *Skybox) *Scene {
	s := &Scene{Camera: camera, Light: light, Skybox: skybox}
	s.add(Node{Name: "camera", Kind: NodeCamera})
	s.add(Node{Name: "light", Kind: NodeLight})
	if skybox != nil {
		s.add(Node{Name: "skybox", Kind: NodeSkybox})
	}
	return s
}

func (s *Scene) add(n Node) NodeID {
	n.ID = NodeID(len(s.nodes))
	s.nodes = append(s.nodes, n)
	if n.UI {
		s.ui = append(s.ui, n.ID)
	}
	return n.ID
}

// AddMesh stores mesh as a new node and returns its id.
func (s *Scene) AddMesh(name string, mesh *Mesh, ui bool) NodeID {
	return s.add(Node{Name: name, Kind: NodeMesh, UI: ui, Mesh: mesh})
}

func (s *Scene) Node(id NodeID) (*Node, error) {
	if int(id) >= len(s.nodes) {
		return nil, errors.Newf("no node with id %d", id)
	}
	return &s.nodes[id], nil
}

// Meshes returns every mesh in insertion order.
func (s *Scene) Meshes() []*Mesh {
	var out []*Mesh
	for i := range s.nodes {
		if s.nodes[i].Kind == NodeMesh {
			out = append(out, s.nodes[i].Mesh)
		}
	}
	return out
}

// UINodes returns the ids of the nodes flagged for the overlay.
func (s *Scene) UINodes() []NodeID {
	return s.ui
}

// Destroy releases every resource the scene owns.
func (s *Scene) Destroy() {
	core.Assert(s.nodes != nil, "scene destroyed twice")
	for i := range s.nodes {
		if s.nodes[i].Mesh != nil {
			s.nodes[i].Mesh.Destroy()
		}
	}
	if s.Skybox != nil {
		s.Skybox.Destroy()
	}
	s.Light.Destroy()
	s.Camera.Destroy()
	s.nodes, s.ui = nil, nil
}
