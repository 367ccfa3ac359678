package scene

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/Carmen-Shannon/oxy-terrain/common"
	"github.com/Carmen-Shannon/oxy-terrain/engine/camera"
	"github.com/Carmen-Shannon/oxy-terrain/engine/light"
	"github.com/Carmen-Shannon/oxy-terrain/engine/mesh"
	"github.com/Carmen-Shannon/oxy-terrain/engine/node"
	"github.com/Carmen-Shannon/oxy-terrain/engine/renderer"
	"github.com/Carmen-Shannon/oxy-terrain/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-terrain/engine/uniform"
)

var (
	// ErrNoActiveCamera is returned when rendering names a camera that is not registered.
	ErrNoActiveCamera = errors.New("no active camera")
	// ErrMeshNotFound is returned when an instance names a mesh template that is not registered.
	ErrMeshNotFound = errors.New("mesh template not found")
	// ErrMeshExists is returned when registering a mesh template under a name already in use.
	ErrMeshExists = errors.New("mesh template already exists")
	// ErrCameraNotFound is returned when activating a camera that is not registered.
	ErrCameraNotFound = errors.New("camera not found")
)

// Shader inputs derived from the camera and the node being drawn.
const (
	UniformMatrix                = "u_matrix"
	UniformWorldMatrix           = "u_worldMatrix"
	UniformWorldInverseTranspose = "u_worldInverseTranspose"
	UniformViewMatrix            = "u_viewMatrix"
	UniformProjectionMatrix      = "u_projectionMatrix"
	UniformViewPosition          = "u_viewPosition"
)

type scene struct {
	mu *sync.Mutex
	// frameMu serialises whole frames against Mutate.
	frameMu *sync.Mutex

	name     string
	active   bool
	ctx      context.Context
	logger   *slog.Logger
	renderer renderer.Renderer

	tree   node.Tree
	lights light.Registry
	meshes map[string]mesh.Template

	cameras      map[string]camera.Camera
	activeCamera string

	// warned holds (program, mesh) pairs already reported missing, so each pair is
	// logged once instead of every frame.
	warned map[missingProgram]struct{}
}

type missingProgram struct {
	program string
	mesh    string
}

// Scene owns a node tree, the mesh templates its instances reference, the lights sampling
// its nodes and a set of named cameras, and draws all of it through a Renderer.
//
// Structural edits and frames are serialised: Render and Draw hold the frame lock for the
// whole traversal, and Mutate runs edits under the same lock.
type Scene interface {
	// Name returns the scene's identifier.
	Name() string

	// Active returns whether the engine renders this scene.
	Active() bool

	// SetActive sets whether the engine renders this scene.
	SetActive(active bool)

	// Renderer returns the renderer the scene draws with.
	Renderer() renderer.Renderer

	// Tree returns the scene's node tree.
	Tree() node.Tree

	// Lights returns the scene's light registry.
	Lights() light.Registry

	// InsertNode creates a node under the node named parentName.
	//
	// Parameters:
	//   - name: the new node's unique name
	//   - parentName: the parent's name; node.RootName for a top-level node
	//   - options: node builder options such as node.WithPosition
	//
	// Returns:
	//   - node.Node: the new node
	//   - error: node.ErrNodeExists or node.ErrNodeNotFound
	InsertNode(name, parentName string, options ...node.NodeBuilderOption) (node.Node, error)

	// Node looks up a node by name.
	Node(name string) (node.Node, bool)

	// RemoveNode detaches the node named name with its subtree.
	//
	// Returns:
	//   - error: node.ErrNodeNotFound or node.ErrRootRemoval
	RemoveNode(name string) error

	// CreateMesh builds a mesh template and registers it under name.
	//
	// Parameters:
	//   - name: the template name instances refer to
	//   - attributes: the vertex streams
	//   - options: template builder options such as mesh.WithIndices
	//
	// Returns:
	//   - mesh.Template: the template
	//   - error: mesh.ErrInvalidAttribute or ErrMeshExists
	CreateMesh(name string, attributes []mesh.Attribute, options ...mesh.TemplateBuilderOption) (mesh.Template, error)

	// AddMesh registers an existing template under its own name.
	//
	// Returns:
	//   - error: ErrMeshExists if the name is in use
	AddMesh(t mesh.Template) error

	// Mesh looks up a mesh template by name.
	Mesh(name string) (mesh.Template, bool)

	// RemoveMesh unregisters a template and releases its uploaded buffers. Instances that
	// still reference it keep drawing until they are removed.
	RemoveMesh(name string) bool

	// CreateInstance places the mesh template meshName on the node parentName and requests
	// the textures the instance samples.
	//
	// Parameters:
	//   - meshName: a registered template name
	//   - values: the instance's own shader inputs
	//   - parentName: the node that carries the instance
	//   - options: instance builder options such as mesh.WithShader
	//
	// Returns:
	//   - mesh.Instance: the instance
	//   - error: ErrMeshNotFound or node.ErrNodeNotFound
	CreateInstance(meshName string, values uniform.Values, parentName string, options ...mesh.InstanceBuilderOption) (mesh.Instance, error)

	// AddLight registers a light. The node the light samples must already exist.
	//
	// Returns:
	//   - error: node.ErrNodeNotFound if the light's node is missing
	AddLight(l light.Light) error

	// RemoveLight unregisters a light. Returns false if it was not registered.
	RemoveLight(l light.Light) bool

	// AddCamera registers a camera under name. The first camera added becomes active.
	AddCamera(name string, cam camera.Camera)

	// Camera looks up a camera by name.
	Camera(name string) (camera.Camera, bool)

	// SetActiveCamera selects the camera Draw renders through.
	//
	// Returns:
	//   - error: ErrCameraNotFound if no camera is registered under name
	SetActiveCamera(name string) error

	// ActiveCamera returns the active camera's name and the camera, or nil if none is registered.
	ActiveCamera() (string, camera.Camera)

	// AddShaderProgram compiles src and registers it under name. Registering a name again
	// relinks it.
	AddShaderProgram(name string, src shader.Source) error

	// AddTexture starts loading url in the background. Until it is ready, instances sampling
	// it draw with the default texture.
	AddTexture(url string)

	// Resize updates every camera's aspect ratio and the renderer's surface.
	Resize(width, height int)

	// Render draws every enabled node's instances through the camera named cameraName.
	// It must be called between the renderer's BeginFrame and EndFrame.
	//
	// Parameters:
	//   - cameraName: the camera to view through
	//
	// Returns:
	//   - error: ErrNoActiveCamera before anything is drawn if the camera is missing,
	//     otherwise the joined draw errors; instances that fail do not stop the others
	Render(cameraName string) error

	// Draw advances the active camera's controller by dt seconds and renders through it.
	// It must be called between the renderer's BeginFrame and EndFrame.
	Draw(dt float32) error

	// Mutate runs fn with no frame in progress, so fn can edit nodes, instances and lights
	// without racing the render traversal.
	Mutate(fn func(s Scene) error) error
}

var _ Scene = &scene{}

// NewScene creates an empty scene drawing through r.
//
// Parameters:
//   - r: the renderer to draw with
//   - options: variadic list of SceneBuilderOption functions
//
// Returns:
//   - Scene: the scene
func NewScene(r renderer.Renderer, options ...SceneBuilderOption) Scene {
	s := &scene{
		mu:       &sync.Mutex{},
		frameMu:  &sync.Mutex{},
		name:     "default",
		active:   true,
		ctx:      context.Background(),
		renderer: r,
		tree:     node.NewTree(),
		lights:   light.NewRegistry(),
		meshes:   make(map[string]mesh.Template),
		cameras:  make(map[string]camera.Camera),
		warned:   make(map[missingProgram]struct{}),
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

func (s *scene) Name() string {
	return s.name
}

func (s *scene) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *scene) SetActive(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = active
}

func (s *scene) Renderer() renderer.Renderer {
	return s.renderer
}

func (s *scene) Tree() node.Tree {
	return s.tree
}

func (s *scene) Lights() light.Registry {
	return s.lights
}

func (s *scene) InsertNode(name, parentName string, options ...node.NodeBuilderOption) (node.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tree.Insert(name, parentName, options...)
}

func (s *scene) Node(name string) (node.Node, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tree.Get(name)
}

func (s *scene) RemoveNode(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.tree.Remove(name)
	return err
}

func (s *scene) CreateMesh(name string, attributes []mesh.Attribute, options ...mesh.TemplateBuilderOption) (mesh.Template, error) {
	t, err := mesh.NewTemplate(name, attributes, options...)
	if err != nil {
		return nil, err
	}
	if err := s.AddMesh(t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *scene) AddMesh(t mesh.Template) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.meshes[t.Name()]; exists {
		return fmt.Errorf("%w: %q", ErrMeshExists, t.Name())
	}
	s.meshes[t.Name()] = t
	return nil
}

func (s *scene) Mesh(name string) (mesh.Template, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.meshes[name]
	return t, ok
}

func (s *scene) RemoveMesh(name string) bool {
	s.mu.Lock()
	t, ok := s.meshes[name]
	delete(s.meshes, name)
	s.mu.Unlock()
	if ok && s.renderer != nil {
		s.renderer.ReleaseMesh(t)
	}
	return ok
}

func (s *scene) CreateInstance(meshName string, values uniform.Values, parentName string, options ...mesh.InstanceBuilderOption) (mesh.Instance, error) {
	s.mu.Lock()
	t, ok := s.meshes[meshName]
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %q", ErrMeshNotFound, meshName)
	}
	parent, ok := s.tree.Get(parentName)
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %q", node.ErrNodeNotFound, parentName)
	}
	inst := mesh.NewInstance(t, values, options...)
	parent.AddInstance(inst)
	s.mu.Unlock()

	for _, url := range inst.Textures() {
		s.AddTexture(url)
	}
	return inst, nil
}

func (s *scene) AddLight(l light.Light) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tree.Get(l.NodeName()); !ok {
		return fmt.Errorf("light: %w: %q", node.ErrNodeNotFound, l.NodeName())
	}
	s.lights.Add(l)
	return nil
}

func (s *scene) RemoveLight(l light.Light) bool {
	return s.lights.Remove(l)
}

func (s *scene) AddCamera(name string, cam camera.Camera) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cameras[name] = cam
	if s.activeCamera == "" {
		s.activeCamera = name
	}
}

func (s *scene) Camera(name string) (camera.Camera, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cam, ok := s.cameras[name]
	return cam, ok
}

func (s *scene) SetActiveCamera(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cameras[name]; !ok {
		return fmt.Errorf("%w: %q", ErrCameraNotFound, name)
	}
	s.activeCamera = name
	return nil
}

func (s *scene) ActiveCamera() (string, camera.Camera) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeCamera, s.cameras[s.activeCamera]
}

func (s *scene) AddShaderProgram(name string, src shader.Source) error {
	if err := s.renderer.RegisterProgram(name, src); err != nil {
		return err
	}
	s.mu.Lock()
	for k := range s.warned {
		if k.program == name {
			delete(s.warned, k)
		}
	}
	s.mu.Unlock()
	return nil
}

func (s *scene) AddTexture(url string) {
	if url == "" || s.renderer == nil {
		return
	}
	s.renderer.Textures().Request(s.ctx, url)
}

func (s *scene) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	s.mu.Lock()
	cams := slices.Collect(maps.Values(s.cameras))
	s.mu.Unlock()

	for _, cam := range cams {
		cam.SetAspect(float32(width) / float32(height))
	}
	if s.renderer != nil {
		s.renderer.Resize(width, height)
	}
}

func (s *scene) Draw(dt float32) error {
	s.frameMu.Lock()
	defer s.frameMu.Unlock()

	name, cam := s.ActiveCamera()
	if cam == nil {
		return fmt.Errorf("%w: no camera registered", ErrNoActiveCamera)
	}
	cam.Update(dt)
	return s.render(name)
}

func (s *scene) Render(cameraName string) error {
	s.frameMu.Lock()
	defer s.frameMu.Unlock()
	return s.render(cameraName)
}

func (s *scene) Mutate(fn func(s Scene) error) error {
	s.frameMu.Lock()
	defer s.frameMu.Unlock()
	return fn(s)
}

// drawItem is one instance queued for drawing, with the world matrix of its node.
type drawItem struct {
	instance mesh.Instance
	world    [16]float32
}

// render performs the traversal. Caller must hold frameMu.
func (s *scene) render(cameraName string) error {
	cam, ok := s.Camera(cameraName)
	if !ok || cam == nil {
		return fmt.Errorf("%w: %q", ErrNoActiveCamera, cameraName)
	}

	s.mu.Lock()
	s.tree.Update()
	var items []drawItem
	s.tree.Traverse(func(n node.Node) {
		if !n.Enabled() {
			return
		}
		instances := n.Instances()
		if len(instances) == 0 {
			return
		}
		var world [16]float32
		copy(world[:], n.WorldMatrix())
		for _, inst := range instances {
			items = append(items, drawItem{instance: inst, world: world})
		}
	})
	lights := s.lights.Uniforms(s.worldLookup)
	s.mu.Unlock()

	view := cam.ViewMatrix()
	projection := cam.ProjectionMatrix()
	viewProjection := cam.ViewProjectionMatrix()
	viewPosition := cam.Position()

	var errs []error
	for _, item := range items {
		program := item.instance.Shader()
		if _, ok := s.renderer.Program(program); !ok {
			s.warnMissing(program, item.instance.Template().Name())
			continue
		}

		var matrix [16]float32
		common.Mul4(matrix[:], viewProjection[:], item.world[:])

		derived := uniform.Values{
			UniformMatrix:                uniform.Literal(matrix),
			UniformWorldMatrix:           uniform.Literal(item.world),
			UniformWorldInverseTranspose: uniform.Literal(inverseTranspose(item.world)),
			UniformViewMatrix:            uniform.Literal(view),
			UniformProjectionMatrix:      uniform.Literal(projection),
			UniformViewPosition:          uniform.Literal(viewPosition),
		}

		err := s.renderer.Draw(renderer.DrawCall{
			Program:  program,
			Template: item.instance.Template(),
			Uniforms: uniform.Merge(item.instance.Uniforms(), derived, lights),
			Textures: item.instance.Textures(),
		})
		if err != nil {
			s.log().Error("draw failed", "mesh", item.instance.Template().Name(), "program", program, "err", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// worldLookup resolves a light's node. Caller must hold mu.
func (s *scene) worldLookup(name string) ([]float32, bool) {
	n, ok := s.tree.Get(name)
	if !ok {
		return nil, false
	}
	return n.WorldMatrix(), true
}

func (s *scene) warnMissing(program, meshName string) {
	s.mu.Lock()
	key := missingProgram{program: program, mesh: meshName}
	_, seen := s.warned[key]
	s.warned[key] = struct{}{}
	s.mu.Unlock()
	if !seen {
		s.log().Warn("skipping instance: shader program not registered", "program", program, "mesh", meshName)
	}
}

func (s *scene) log() *slog.Logger {
	if s.logger != nil {
		return s.logger
	}
	return common.Logger()
}

// inverseTranspose returns transpose(inverse(m)), or the identity when m is singular.
func inverseTranspose(m [16]float32) [16]float32 {
	var inv, out [16]float32
	if !common.Invert4(inv[:], m[:]) {
		common.Identity(out[:])
		return out
	}
	common.Transpose4(out[:], inv[:])
	return out
}
