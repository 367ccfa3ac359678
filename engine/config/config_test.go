package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const yamlDoc = `
window:
  title: terrain
  width: 1600
renderer:
  backend: GL
  msaa: 1
camera:
  fov_degrees: 45
  position: [10, 20, 30]
controls:
  mode: Orbit
  max_speed: 250
scene:
  textures:
    - assets/heightmap.tif
  values:
    - name: x
      initial: 0.25
      min: 0
      max: 1
      step: 0.1
log:
  level: debug
`

const tomlDoc = `
[window]
height = 900
vsync = false

[renderer]
frame_limit = 144.0
profiling = true

[camera]
near = 1.0
far = 5000.0
target = [0.0, 10.0, 0.0]

[scene.light]
position = [0.0, 500.0, 0.0]
color = [1.0, 0.9, 0.8]
`

func TestDefault(t *testing.T) {
	d := Default()
	require.NoError(t, d.Validate())
	assert.Equal(t, float32(30), d.Camera.FovDegrees)
	assert.Equal(t, float32(0.1), d.Camera.Near)
	assert.Equal(t, float32(1000), d.Camera.Far)
	assert.Equal(t, [3]float32{0, 300, 200}, d.Camera.Position)
	assert.Equal(t, [3]float32{100, 100, 100}, d.Scene.Light.Position)
	assert.Equal(t, "root", d.Scene.Light.Node)
	assert.Equal(t, float32(0.002), d.Controls.LookSensitivity)
	assert.Equal(t, ControllerFirstPerson, d.Controls.Mode)
}

func TestParseYAML(t *testing.T) {
	cfg, err := Parse([]byte(yamlDoc), FormatYAML)
	require.NoError(t, err)

	assert.Equal(t, "terrain", cfg.Window.Title)
	assert.Equal(t, 1600, cfg.Window.Width)
	assert.Equal(t, 720, cfg.Window.Height)
	assert.True(t, cfg.Window.VSync)
	assert.Equal(t, BackendGL, cfg.Renderer.Backend)
	assert.Equal(t, 1, cfg.Renderer.MSAA)
	assert.Equal(t, float32(45), cfg.Camera.FovDegrees)
	assert.Equal(t, [3]float32{10, 20, 30}, cfg.Camera.Position)
	assert.Equal(t, float32(250), cfg.Controls.MaxSpeed)
	assert.Equal(t, float32(10), cfg.Controls.BaseSpeed)
	assert.Equal(t, ControllerOrbit, cfg.Controls.Mode)
	assert.Equal(t, []string{"assets/heightmap.tif"}, cfg.Scene.Textures)
	require.Len(t, cfg.Scene.Values, 1)
	assert.Equal(t, float32(0.25), cfg.Scene.Values[0].Initial)

	level, err := cfg.Log.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}

func TestParseTOML(t *testing.T) {
	cfg, err := Parse([]byte(tomlDoc), FormatTOML)
	require.NoError(t, err)

	assert.Equal(t, 1280, cfg.Window.Width)
	assert.Equal(t, 900, cfg.Window.Height)
	assert.False(t, cfg.Window.VSync)
	assert.Equal(t, 144.0, cfg.Renderer.FrameLimit)
	assert.True(t, cfg.Renderer.Profiling)
	assert.Equal(t, BackendWGPU, cfg.Renderer.Backend)
	assert.Equal(t, float32(1), cfg.Camera.Near)
	assert.Equal(t, float32(5000), cfg.Camera.Far)
	assert.Equal(t, [3]float32{0, 10, 0}, cfg.Camera.Target)
	assert.Equal(t, [3]float32{0, 500, 0}, cfg.Scene.Light.Position)
	assert.Equal(t, float32(1), cfg.Scene.Light.Intensity)
}

func TestZeroFieldsFallBackToDefaults(t *testing.T) {
	cfg, err := Parse([]byte("window:\n  width: 0\n  title: \"\"\ncamera:\n  fov_degrees: 0\n"), FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, 1280, cfg.Window.Width)
	assert.Equal(t, "oxy-terrain", cfg.Window.Title)
	assert.Equal(t, float32(30), cfg.Camera.FovDegrees)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "backend", doc: "renderer:\n  backend: vulkan\n"},
		{name: "msaa", doc: "renderer:\n  msaa: 8\n"},
		{name: "controller", doc: "controls:\n  mode: trackball\n"},
		{name: "depth range", doc: "camera:\n  near: 10\n  far: 5\n"},
		{name: "log level", doc: "log:\n  level: loud\n"},
		{name: "unnamed control", doc: "scene:\n  values:\n    - initial: 1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc), FormatYAML)
			assert.ErrorIs(t, err, ErrInvalidValue)
		})
	}
}

func TestLoadByExtension(t *testing.T) {
	dir := t.TempDir()

	yml := filepath.Join(dir, "app.yml")
	require.NoError(t, os.WriteFile(yml, []byte(yamlDoc), 0o644))
	cfg, err := Load(yml)
	require.NoError(t, err)
	assert.Equal(t, "terrain", cfg.Window.Title)

	tml := filepath.Join(dir, "app.TOML")
	require.NoError(t, os.WriteFile(tml, []byte(tomlDoc), 0o644))
	cfg, err = Load(tml)
	require.NoError(t, err)
	assert.Equal(t, 900, cfg.Window.Height)

	_, err = Load(filepath.Join(dir, "app.json"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestParseRejectsMalformed(t *testing.T) {
	_, err := Parse([]byte("window: [unclosed"), FormatYAML)
	assert.Error(t, err)

	_, err = Parse([]byte("[window\n"), FormatTOML)
	assert.Error(t, err)

	_, err = Parse(nil, Format("json"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}
