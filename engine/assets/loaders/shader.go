package loaders

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
)

// ShaderLoader reads compiled SPIR-V. Data is []uint32.
type ShaderLoader struct{}

func (sl *ShaderLoader) Load(path string, params interface{}) (*Resource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading shader")
	}
	code, err := DecodeSPIRV(data)
	if err != nil {
		return nil, errors.Wrapf(err, "shader %s", path)
	}
	return &Resource{
		Name:     strings.TrimSuffix(filepath.Base(path), ".spv"),
		FullPath: path,
		Type:     ResourceTypeShader,
		DataSize: uint64(len(data)),
		Data:     code,
	}, nil
}
