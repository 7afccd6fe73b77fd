/*
Lumen renders a scene with shadow mapping, a skybox and a debug overlay.
The window and renderer settings come from a TOML file.
*/
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/lumen/engine"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/testbed"
)

func main() {
	configPath := flag.String("config", "config/engine.toml", "path to the engine TOML config")
	flag.Parse()

	config, err := engine.LoadConfig(*configPath)
	if err != nil {
		core.LogFatal("%+v", err)
	}

	tb := testbed.NewTestGame(config)

	e, err := engine.New(tb.Game)
	if err != nil {
		core.LogFatal("%+v", err)
	}

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	go func() {
		<-sigCh
		core.EventFire(core.EventContext{Type: core.EVENT_CODE_APPLICATION_QUIT})
	}()

	if err := e.Initialize(); err != nil {
		core.LogError("%+v", err)
		_ = e.Shutdown()
		os.Exit(1)
	}

	runErr := e.Run()
	if err := e.Shutdown(); err != nil {
		core.LogError("shutdown: %+v", err)
	}
	if runErr != nil {
		core.LogFatal("%+v", runErr)
	}
}
