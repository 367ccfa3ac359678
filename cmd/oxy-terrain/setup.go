package main

import (
	"fmt"
	"io/fs"
	"math"

	"github.com/Carmen-Shannon/oxy-terrain/engine/camera"
	"github.com/Carmen-Shannon/oxy-terrain/engine/config"
	"github.com/Carmen-Shannon/oxy-terrain/engine/control"
	"github.com/Carmen-Shannon/oxy-terrain/engine/light"
	"github.com/Carmen-Shannon/oxy-terrain/engine/loader"
	"github.com/Carmen-Shannon/oxy-terrain/engine/mesh"
	"github.com/Carmen-Shannon/oxy-terrain/engine/node"
	"github.com/Carmen-Shannon/oxy-terrain/engine/renderer"
	"github.com/Carmen-Shannon/oxy-terrain/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-terrain/engine/scene"
	"github.com/Carmen-Shannon/oxy-terrain/engine/uniform"
	"github.com/Carmen-Shannon/oxy-terrain/shaders"
)

// Names of the demo's nodes, mesh and tinting control.
const (
	childNode      = "child"
	grandchildNode = "grandchild"
	quadMesh       = "quad"
	tintControl    = "x"
	textureSampler = loader.UniformTexture
)

// quadAttributes is a 200×200 quad in the xy plane, two triangles with texture coordinates.
var quadAttributes = []mesh.Attribute{
	{
		Name:       "a_position",
		Components: 3,
		Data: []float32{
			-100, -100, 0,
			100, -100, 0,
			-100, 100, 0,
			-100, 100, 0,
			100, -100, 0,
			100, 100, 0,
		},
	},
	{
		Name:       "a_texcoord",
		Components: 2,
		Data: []float32{
			0, 0,
			1, 0,
			0, 1,
			0, 1,
			1, 0,
			1, 1,
		},
	},
}

// newControls registers the configured runtime values.
func newControls(cfg config.Config) (control.Manager, error) {
	controls := control.NewManager()
	for _, v := range cfg.Scene.Values {
		opts := []control.ControlOption{control.WithInitial(v.Initial)}
		if v.Max > v.Min {
			opts = append(opts, control.WithRange(v.Min, v.Max))
		}
		if v.Step > 0 {
			opts = append(opts, control.WithStep(v.Step))
		}
		if err := controls.Add(v.Name, opts...); err != nil {
			return nil, err
		}
	}
	return controls, nil
}

// newCamera builds the camera from the camera and controls sections.
func newCamera(cfg config.Config, aspect float32) camera.Camera {
	c := cfg.Camera
	return camera.NewCamera(
		camera.WithFovDegrees(c.FovDegrees),
		camera.WithAspect(aspect),
		camera.WithNear(c.Near),
		camera.WithFar(c.Far),
		camera.WithPosition(c.Position[0], c.Position[1], c.Position[2]),
		camera.WithTarget(c.Target[0], c.Target[1], c.Target[2]),
		camera.WithController(newController(cfg.Controls)),
	)
}

func newController(c config.Controls) camera.CameraController {
	if c.Mode == config.ControllerOrbit {
		return camera.NewOrbitController(
			camera.WithDragSensitivity(c.LookSensitivity),
		)
	}
	return camera.NewFirstPersonController(
		camera.WithBaseSpeed(c.BaseSpeed),
		camera.WithMaxSpeed(c.MaxSpeed),
		camera.WithAccelerationRate(c.AccelerationRate),
		camera.WithLookSensitivity(c.LookSensitivity),
	)
}

// loadProgram reads and pre-processes one program from fsys, with chunks from chunkDir.
func loadProgram(fsys fs.FS, dir, chunkDir, name string) (shader.Source, error) {
	pp, err := shader.NewPreProcessorFS(fsys, chunkDir)
	if err != nil {
		return shader.Source{}, err
	}
	return shader.Load(fsys, dir, name, pp)
}

// buildScene assembles the terrain demo: a textured quad tinted by the "x" control on a
// child node rotated a quarter turn about z, a second quad on a grandchild rotated again,
// the configured light and any configured glTF models.
//
// Parameters:
//   - r: the renderer the scene draws with
//   - cfg: the application configuration
//   - controls: the runtime values feeding producers
//   - programs: the shader file system and directories to load the default program from
//   - aspect: the initial framebuffer aspect ratio
//
// Returns:
//   - scene.Scene: the populated scene
//   - error: the first setup error
func buildScene(r renderer.Renderer, cfg config.Config, controls control.Manager, programs fs.FS, aspect float32) (scene.Scene, error) {
	s := scene.NewScene(r,
		scene.WithName("terrain"),
		scene.WithCamera("main", newCamera(cfg, aspect)),
	)

	src, err := loadProgram(programs, ".", shaders.ChunkDir, shaders.Default)
	if err != nil {
		return nil, fmt.Errorf("load shaders: %w", err)
	}
	if err := s.AddShaderProgram(shaders.Default, src); err != nil {
		return nil, fmt.Errorf("link %q: %w", shaders.Default, err)
	}

	child, err := s.InsertNode(childNode, node.RootName, node.WithPosition(100, 0, 1))
	if err != nil {
		return nil, err
	}
	child.SetRotationFromEuler(0, 0, math.Pi/2)
	if _, err := s.InsertNode(grandchildNode, childNode, node.WithRotationEuler(0, 0, math.Pi/2)); err != nil {
		return nil, err
	}

	l := cfg.Scene.Light
	if err := s.AddLight(light.NewLight(l.Node,
		light.WithPosition(l.Position[0], l.Position[1], l.Position[2]),
		light.WithColor(l.Color[0], l.Color[1], l.Color[2]),
		light.WithIntensity(l.Intensity),
	)); err != nil {
		return nil, err
	}

	if _, err := s.CreateMesh(quadMesh, quadAttributes); err != nil {
		return nil, err
	}

	var texOpts []mesh.InstanceBuilderOption
	if len(cfg.Scene.Textures) > 0 {
		texOpts = append(texOpts, mesh.WithTexture(textureSampler, 0, cfg.Scene.Textures[0]))
	}
	tint := uniform.Values{
		loader.UniformColor: uniform.Components(controls.Producer(tintControl), uniform.Float(0), uniform.Float(0), uniform.Float(1)),
	}
	if _, err := s.CreateInstance(quadMesh, tint, node.RootName, texOpts...); err != nil {
		return nil, err
	}
	tint = uniform.Values{
		loader.UniformColor: uniform.Components(uniform.Float(0), controls.Producer(tintControl), uniform.Float(1), uniform.Float(1)),
	}
	if _, err := s.CreateInstance(quadMesh, tint, grandchildNode, texOpts...); err != nil {
		return nil, err
	}

	models := loader.NewLoader(loader.BackendTypeGLTF)
	for _, path := range cfg.Scene.Models {
		m, err := models.Load(path)
		if err != nil {
			return nil, err
		}
		if _, err := loader.Instantiate(s, m, node.RootName); err != nil {
			return nil, err
		}
	}

	// Remaining textures are loaded up front so they are ready when instances pick them up.
	for _, url := range cfg.Scene.Textures[min(1, len(cfg.Scene.Textures)):] {
		s.AddTexture(url)
	}
	return s, nil
}
