package engine

import (
	"bytes"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/pelletier/go-toml/v2"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/math"
)

type WindowConfig struct {
	// The application name used in windowing.
	Name string `toml:"name"`
	// Window starting position x axis.
	StartPosX uint32 `toml:"x"`
	// Window starting position y axis.
	StartPosY uint32 `toml:"y"`
	// Window starting width.
	StartWidth uint32 `toml:"width"`
	// Window starting height.
	StartHeight uint32 `toml:"height"`
}

type RendererConfig struct {
	Validation         bool   `toml:"validation"`
	MSAASamples        uint32 `toml:"msaa_samples"`
	ShadowMapSize      uint32 `toml:"shadow_map_size"`
	PresentMode        string `toml:"present_mode"`
	RequireMeshShading bool   `toml:"require_mesh_shading"`
	FrameTimeoutMS     uint64 `toml:"frame_timeout_ms"`
	ValidateFrameGraph bool   `toml:"validate_frame_graph"`
	CubeSlots          uint32 `toml:"cube_slots"`
	DepthSlots         uint32 `toml:"depth_slots"`
	UISlots            uint32 `toml:"ui_slots"`
}

type AssetsConfig struct {
	Dir     string `toml:"dir"`
	Shaders string `toml:"shaders"`
	Scene   string `toml:"scene"`
	Font    string `toml:"font"`
}

type ApplicationConfig struct {
	Window   WindowConfig   `toml:"window"`
	Renderer RendererConfig `toml:"renderer"`
	Assets   AssetsConfig   `toml:"assets"`
	LogLevel core.LogLevel  `toml:"log_level"`
}

func DefaultConfig() *ApplicationConfig {
	return &ApplicationConfig{
		Window: WindowConfig{
			Name:        "Lumen",
			StartPosX:   100,
			StartPosY:   100,
			StartWidth:  1280,
			StartHeight: 720,
		},
		Renderer: RendererConfig{
			Validation:     true,
			MSAASamples:    4,
			ShadowMapSize:  2048,
			PresentMode:    "mailbox",
			FrameTimeoutMS: 1000,
			CubeSlots:      2,
			DepthSlots:     4,
			UISlots:        2,
		},
		Assets: AssetsConfig{
			Dir:     "assets",
			Shaders: "shaders",
			Font:    "fonts/debug.fnt",
		},
		LogLevel: core.LogLevelInfo,
	}
}

// LoadConfig reads a TOML file on top of the defaults. An empty path returns the defaults.
func LoadConfig(path string) (*ApplicationConfig, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading config %s", path)
	}
	if err := ParseConfig(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

// ParseConfig decodes TOML into cfg, rejecting unknown keys, and validates the result.
func ParseConfig(data []byte, cfg *ApplicationConfig) error {
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return errors.Wrap(err, "decoding toml")
	}
	return cfg.Validate()
}

func (c *ApplicationConfig) Validate() error {
	if c.Window.StartWidth == 0 || c.Window.StartHeight == 0 {
		return errors.Newf("window size must be positive, got %dx%d", c.Window.StartWidth, c.Window.StartHeight)
	}
	r := c.Renderer
	// The composite resolves into the swapchain, so single-sample targets are rejected.
	if !math.IsPowerOfTwo(r.MSAASamples) || r.MSAASamples < 2 || r.MSAASamples > 64 {
		return errors.Newf("msaa_samples must be a power of two between 2 and 64, got %d", r.MSAASamples)
	}
	if r.ShadowMapSize == 0 {
		return errors.New("shadow_map_size must be positive")
	}
	if r.FrameTimeoutMS == 0 {
		return errors.New("frame_timeout_ms must be positive")
	}
	switch r.PresentMode {
	case "mailbox", "fifo":
	default:
		return errors.Newf("unknown present_mode %q", r.PresentMode)
	}
	if r.CubeSlots == 0 || r.DepthSlots < 2 {
		return errors.Newf("descriptor capacities too small: cube=%d depth=%d", r.CubeSlots, r.DepthSlots)
	}
	return nil
}
