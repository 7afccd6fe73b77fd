package loaders

import "path/filepath"

type ResourceType int

const (
	ResourceTypeNone ResourceType = iota
	ResourceTypeShader
	ResourceTypeImage
	ResourceTypeModel
	ResourceTypeFont
	ResourceTypeScene
)

func (t ResourceType) String() string {
	switch t {
	case ResourceTypeShader:
		return "shader"
	case ResourceTypeImage:
		return "image"
	case ResourceTypeModel:
		return "model"
	case ResourceTypeFont:
		return "font"
	case ResourceTypeScene:
		return "scene"
	default:
		return "none"
	}
}

// Resource is what a loader hands back. Data holds the decoded value, whose
// type depends on the loader.
type Resource struct {
	Name     string
	FullPath string
	Type     ResourceType
	DataSize uint64
	Data     interface{}
}

// TypeOf maps a file extension to the loader that handles it.
func TypeOf(path string) ResourceType {
	switch filepath.Ext(path) {
	case ".spv":
		return ResourceTypeShader
	case ".png", ".jpg", ".jpeg":
		return ResourceTypeImage
	case ".obj":
		return ResourceTypeModel
	case ".fnt":
		return ResourceTypeFont
	case ".toml":
		return ResourceTypeScene
	default:
		return ResourceTypeNone
	}
}
