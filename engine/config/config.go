// Package config loads the terrain viewer's settings from YAML or TOML files.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/Carmen-Shannon/oxy-terrain/common"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

var (
	// ErrUnsupportedFormat is returned for a config file extension other than .yaml, .yml or .toml.
	ErrUnsupportedFormat = errors.New("unsupported config format")
	// ErrInvalidValue is returned by Validate for a field outside its allowed set.
	ErrInvalidValue = errors.New("invalid config value")
)

// Format names a config encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// Backend and API names accepted in the renderer and window sections.
const (
	BackendWGPU = "wgpu"
	BackendGL   = "gl"
)

// Camera controller names accepted in controls.mode.
const (
	ControllerFirstPerson = "first_person"
	ControllerOrbit       = "orbit"
)

// Config is the complete application configuration.
type Config struct {
	Window   Window   `yaml:"window" toml:"window"`
	Renderer Renderer `yaml:"renderer" toml:"renderer"`
	Camera   Camera   `yaml:"camera" toml:"camera"`
	Controls Controls `yaml:"controls" toml:"controls"`
	Scene    Scene    `yaml:"scene" toml:"scene"`
	Log      Log      `yaml:"log" toml:"log"`
}

// Window configures the GLFW window.
type Window struct {
	Title  string `yaml:"title" toml:"title"`
	Width  int    `yaml:"width" toml:"width"`
	Height int    `yaml:"height" toml:"height"`
	VSync  bool   `yaml:"vsync" toml:"vsync"`
}

// Renderer configures the graphics backend and the frame loop.
type Renderer struct {
	// Backend is "wgpu" or "gl".
	Backend    string     `yaml:"backend" toml:"backend"`
	MSAA       int        `yaml:"msaa" toml:"msaa"`
	ClearColor [4]float64 `yaml:"clear_color" toml:"clear_color"`
	// ShaderDir, when set, loads shaders from disk and reloads them on change instead of
	// using the embedded copies.
	ShaderDir  string  `yaml:"shader_dir" toml:"shader_dir"`
	FrameLimit float64 `yaml:"frame_limit" toml:"frame_limit"`
	TickRate   float64 `yaml:"tick_rate" toml:"tick_rate"`
	Profiling  bool    `yaml:"profiling" toml:"profiling"`
}

// Camera configures the initial projection and placement.
type Camera struct {
	FovDegrees float32    `yaml:"fov_degrees" toml:"fov_degrees"`
	Near       float32    `yaml:"near" toml:"near"`
	Far        float32    `yaml:"far" toml:"far"`
	Position   [3]float32 `yaml:"position" toml:"position"`
	Target     [3]float32 `yaml:"target" toml:"target"`
}

// Controls selects and tunes the camera controller. The speed fields drive the
// first-person controller; the orbit controller only uses LookSensitivity.
type Controls struct {
	Mode             string  `yaml:"mode" toml:"mode"`
	BaseSpeed        float32 `yaml:"base_speed" toml:"base_speed"`
	MaxSpeed         float32 `yaml:"max_speed" toml:"max_speed"`
	AccelerationRate float32 `yaml:"acceleration_rate" toml:"acceleration_rate"`
	LookSensitivity  float32 `yaml:"look_sensitivity" toml:"look_sensitivity"`
}

// Scene configures the demo content.
type Scene struct {
	Light    Light     `yaml:"light" toml:"light"`
	Textures []string  `yaml:"textures" toml:"textures"`
	Models   []string  `yaml:"models" toml:"models"`
	Values   []Control `yaml:"values" toml:"values"`
}

// Light configures the scene's point light.
type Light struct {
	Node      string     `yaml:"node" toml:"node"`
	Position  [3]float32 `yaml:"position" toml:"position"`
	Color     [3]float32 `yaml:"color" toml:"color"`
	Intensity float32    `yaml:"intensity" toml:"intensity"`
}

// Control configures one named runtime value.
type Control struct {
	Name    string  `yaml:"name" toml:"name"`
	Initial float32 `yaml:"initial" toml:"initial"`
	Min     float32 `yaml:"min" toml:"min"`
	Max     float32 `yaml:"max" toml:"max"`
	Step    float32 `yaml:"step" toml:"step"`
}

// Log configures the slog handler installed by the executable.
type Log struct {
	// Level is a slog level name: debug, info, warn or error.
	Level string `yaml:"level" toml:"level"`
}

// Default returns the configuration the viewer runs with when no file is given.
//
// Returns:
//   - Config: the default configuration
func Default() Config {
	return Config{
		Window: Window{
			Title:  "oxy-terrain",
			Width:  1280,
			Height: 720,
			VSync:  true,
		},
		Renderer: Renderer{
			Backend:    BackendWGPU,
			MSAA:       4,
			ClearColor: [4]float64{0.1, 0.1, 0.1, 1},
			TickRate:   60,
		},
		Camera: Camera{
			FovDegrees: 30,
			Near:       0.1,
			Far:        1000,
			Position:   [3]float32{0, 300, 200},
			Target:     [3]float32{0, 0, 0},
		},
		Controls: Controls{
			Mode:             ControllerFirstPerson,
			BaseSpeed:        10,
			MaxSpeed:         100,
			AccelerationRate: 10,
			LookSensitivity:  0.002,
		},
		Scene: Scene{
			Light: Light{
				Node:      "root",
				Position:  [3]float32{100, 100, 100},
				Color:     [3]float32{1, 1, 1},
				Intensity: 1,
			},
			Values: []Control{
				{Name: "x", Initial: 0.5, Min: 0, Max: 1, Step: 0.05},
			},
		},
		Log: Log{Level: "info"},
	}
}

// FormatFromPath selects the encoding from a file extension.
//
// Parameters:
//   - path: the config file path
//
// Returns:
//   - Format: the encoding
//   - error: ErrUnsupportedFormat for an unknown extension
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
}

// Load reads the file at path, decoding it by extension over Default().
//
// Parameters:
//   - path: a .yaml, .yml or .toml file
//
// Returns:
//   - Config: the merged configuration
//   - error: ErrUnsupportedFormat, a read or decode error, or a Validate error
func Load(path string) (Config, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return Config{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(data, format)
}

// Parse decodes data over Default(). Fields the document omits keep their defaults, and
// fields it sets to zero where zero is meaningless fall back to the defaults too.
//
// Parameters:
//   - data: the encoded document
//   - format: FormatYAML or FormatTOML
//
// Returns:
//   - Config: the merged configuration
//   - error: ErrUnsupportedFormat, a decode error, or a Validate error
func Parse(data []byte, format Format) (Config, error) {
	cfg := Default()
	var err error
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &cfg)
	case FormatTOML:
		err = toml.Unmarshal(data, &cfg)
	default:
		return Config{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return Config{}, fmt.Errorf("decode %s config: %w", format, err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	d := Default()
	c.Window.Title = common.Coalesce(c.Window.Title, d.Window.Title)
	c.Window.Width = common.Coalesce(c.Window.Width, d.Window.Width)
	c.Window.Height = common.Coalesce(c.Window.Height, d.Window.Height)

	c.Renderer.Backend = strings.ToLower(common.Coalesce(c.Renderer.Backend, d.Renderer.Backend))
	c.Renderer.MSAA = common.Coalesce(c.Renderer.MSAA, d.Renderer.MSAA)
	c.Renderer.TickRate = common.Coalesce(c.Renderer.TickRate, d.Renderer.TickRate)

	c.Camera.FovDegrees = common.Coalesce(c.Camera.FovDegrees, d.Camera.FovDegrees)
	c.Camera.Near = common.Coalesce(c.Camera.Near, d.Camera.Near)
	c.Camera.Far = common.Coalesce(c.Camera.Far, d.Camera.Far)

	c.Controls.Mode = strings.ToLower(common.Coalesce(c.Controls.Mode, d.Controls.Mode))
	c.Controls.BaseSpeed = common.Coalesce(c.Controls.BaseSpeed, d.Controls.BaseSpeed)
	c.Controls.MaxSpeed = common.Coalesce(c.Controls.MaxSpeed, d.Controls.MaxSpeed)
	c.Controls.AccelerationRate = common.Coalesce(c.Controls.AccelerationRate, d.Controls.AccelerationRate)
	c.Controls.LookSensitivity = common.Coalesce(c.Controls.LookSensitivity, d.Controls.LookSensitivity)

	c.Scene.Light.Node = common.Coalesce(c.Scene.Light.Node, d.Scene.Light.Node)
	c.Log.Level = common.Coalesce(c.Log.Level, d.Log.Level)
}

// Validate checks the fields that select between fixed alternatives.
//
// Returns:
//   - error: ErrInvalidValue naming the first bad field
func (c Config) Validate() error {
	switch c.Renderer.Backend {
	case BackendWGPU, BackendGL:
	default:
		return fmt.Errorf("%w: renderer.backend %q", ErrInvalidValue, c.Renderer.Backend)
	}
	if c.Renderer.MSAA != 1 && c.Renderer.MSAA != 4 {
		return fmt.Errorf("%w: renderer.msaa %d (want 1 or 4)", ErrInvalidValue, c.Renderer.MSAA)
	}
	switch c.Controls.Mode {
	case ControllerFirstPerson, ControllerOrbit:
	default:
		return fmt.Errorf("%w: controls.mode %q", ErrInvalidValue, c.Controls.Mode)
	}
	if c.Camera.Near >= c.Camera.Far {
		return fmt.Errorf("%w: camera.near %g must be below camera.far %g", ErrInvalidValue, c.Camera.Near, c.Camera.Far)
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	for _, v := range c.Scene.Values {
		if v.Name == "" {
			return fmt.Errorf("%w: scene.values entry without a name", ErrInvalidValue)
		}
	}
	return nil
}

// SlogLevel parses Level.
//
// Returns:
//   - slog.Level: the level
//   - error: ErrInvalidValue for an unknown name
func (l Log) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("%w: log.level %q", ErrInvalidValue, l.Level)
	}
	return level, nil
}
