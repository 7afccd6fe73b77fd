//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Compiles the shaders and runs the engine with the default config.
func (Run) Engine() error {
	if err := buildShaders(); err != nil {
		return err
	}
	fmt.Println("Run engine...")
	if _, err := executeCmd("go", withArgs("run", ".", "-config", "config/engine.toml"), withStream()); err != nil {
		return err
	}
	return nil
}

// Runs the package tests.
func (Run) Tests() error {
	_, err := executeCmd("go", withArgs("test", "./..."), withStream())
	return err
}
