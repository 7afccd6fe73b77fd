//go:build mage

package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

const (
	shaderSourceDir = "shaders"
	shaderOutputDir = "assets/shaders"
)

// Compiles every GLSL stage under shaders/ to assets/shaders/<name>.spv.
func (Build) Shaders() error {
	return buildShaders()
}

// Builds the engine binary into bin/.
func (Build) Engine() error {
	mg.Deps(Build.Shaders)
	_, err := executeCmd("go", withArgs("build", "-o", "bin/lumen", "."), withStream())
	return err
}

func buildShaders() error {
	sources, err := shaderSources(shaderSourceDir)
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		return errors.Newf("no shader sources in %s", shaderSourceDir)
	}
	if err := os.MkdirAll(shaderOutputDir, 0o755); err != nil {
		return errors.Wrap(err, "creating shader output dir")
	}
	for _, src := range sources {
		out := filepath.Join(shaderOutputDir, filepath.Base(src)+".spv")
		if _, err := executeCmd("glslc", withArgs("--target-env=vulkan1.3", "-O", src, "-o", out), withStream()); err != nil {
			return err
		}
	}
	return nil
}

// shaderSources lists the .vert and .frag files of dir in name order.
func shaderSources(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", dir)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch ext := filepath.Ext(e.Name()); strings.ToLower(ext) {
		case ".vert", ".frag":
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	return out, nil
}
