package assets

import "github.com/spaghettifunk/lumen/engine/assets/loaders"

// Loader decodes one file. params is loader specific and may be nil.
type Loader interface {
	Load(path string, params interface{}) (*loaders.Resource, error)
}
