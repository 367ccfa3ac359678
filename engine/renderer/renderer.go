package renderer

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/Carmen-Shannon/oxy-terrain/common"
	"github.com/Carmen-Shannon/oxy-terrain/engine/mesh"
	"github.com/Carmen-Shannon/oxy-terrain/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-terrain/engine/texture"
	"github.com/Carmen-Shannon/oxy-terrain/engine/uniform"
	"github.com/Carmen-Shannon/oxy-terrain/engine/window"
)

// ErrProgramNotFound is returned when a draw names a program that was never registered.
var ErrProgramNotFound = errors.New("shader program not found")

// DrawCall is one mesh draw: the program, the geometry, the fully merged shader inputs and
// the texture bound to each unit.
type DrawCall struct {
	Program  string
	Template mesh.Template
	Uniforms uniform.Values
	Textures map[int]string
}

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	programCache map[string]uniform.ProgramID
	meshCache    map[mesh.Template]MeshHandle

	backendType RendererBackendType
	backend     Backend
	resolver    uniform.Resolver
	textures    texture.Manager

	// Pre-creation config collected from builder options
	forceFallbackAdapter bool
	pendingPresentMode   *PresentMode
	pendingMSAA          *MSAASampleCount
	clearColor           [4]float64
	logger               *slog.Logger
}

// Renderer defines the interface for the rendering system.
//
// The Renderer keeps a cache of linked programs by name and of uploaded meshes by template,
// resolves shader inputs through a uniform.Resolver bound to its backend, and owns the
// texture manager whose decoded textures it uploads at the start of every frame.
type Renderer interface {
	// Backend returns the graphics backend.
	Backend() Backend

	// BackendType returns the kind of backend in use.
	BackendType() RendererBackendType

	// Resolver returns the uniform resolver bound to the backend.
	Resolver() uniform.Resolver

	// Textures returns the texture manager.
	Textures() texture.Manager

	// RegisterProgram links src and caches it under name. A program already registered under
	// name is deleted and its cached uniform locations are forgotten, so this is also how
	// a changed shader is reloaded.
	//
	// Parameters:
	//   - name: the program name instances refer to
	//   - src: the program sources
	//
	// Returns:
	//   - error: an error if the program fails to compile or link; the previous program stays in use
	RegisterProgram(name string, src shader.Source) error

	// Program returns the linked program registered under name.
	//
	// Returns:
	//   - uniform.ProgramID: the program
	//   - bool: false if no program is registered under name
	Program(name string) (uniform.ProgramID, bool)

	// Programs returns the sorted names of every registered program.
	Programs() []string

	// RemoveProgram deletes the program registered under name.
	//
	// Returns:
	//   - bool: false if no program was registered under name
	RemoveProgram(name string) bool

	// ReleaseMesh frees the buffers uploaded for t, if any.
	ReleaseMesh(t mesh.Template)

	// Draw makes the call's program current, binds its textures, resolves its uniforms and
	// draws its geometry, uploading the geometry on first use. Uniform entries that fail to
	// bind are skipped and do not stop the draw; their errors are joined into the result.
	//
	// Parameters:
	//   - call: the draw to perform
	//
	// Returns:
	//   - error: ErrProgramNotFound, an upload error, or the joined uniform and draw errors
	Draw(call DrawCall) error

	// BeginFrame uploads textures that finished decoding and starts a frame.
	BeginFrame() error

	// EndFrame submits and presents the frame.
	EndFrame() error

	// Resize configures the underlying backend to handle a new surface size.
	// This should be called when re-sizing the window or when the surface size should change.
	//
	// Parameters:
	//   - width: the new width of the surface in pixels
	//   - height: the new height of the surface in pixels
	Resize(width, height int)

	// SetPresentMode sets the surface present mode which controls how frames are delivered to the display.
	// A call to Resize is required after changing this for the new mode to take effect.
	//
	// Parameters:
	//   - mode: the PresentMode to use (VSync or Uncapped)
	SetPresentMode(mode PresentMode)

	// Release deletes every program, mesh and texture, then releases the backend.
	Release()
}

var _ Renderer = &renderer{}

// NewRenderer creates a new Renderer with the specified backend type drawing into window.
// For BackendTypeGL the window must have been created with an OpenGL context.
//
// Parameters:
//   - backendType: the type of rendering backend to use
//   - win: the window whose surface or context the backend draws into
//   - options: variadic list of RendererBuilderOption functions to configure the Renderer
//
// Returns:
//   - Renderer: a new instance of Renderer configured with the specified backend and options
//   - error: an error if the backend cannot be initialized
func NewRenderer(backendType RendererBackendType, win window.Window, options ...RendererBuilderOption) (Renderer, error) {
	r := newRenderer(options...)
	r.backendType = backendType

	msaa := MSAA4x
	if r.pendingMSAA != nil {
		msaa = *r.pendingMSAA
	}

	var err error
	switch backendType {
	case BackendTypeGL:
		r.backend = newGLBackend(win, r.clearColor)
	case BackendTypeWGPU:
		fallthrough
	default:
		r.backend, err = newWGPUBackend(win.SurfaceDescriptor(), r.forceFallbackAdapter, msaa, r.clearColor)
	}
	if err != nil {
		return nil, fmt.Errorf("create %s backend: %w", backendType, err)
	}
	return r.init(win.Width(), win.Height())
}

// NewRendererWithBackend creates a Renderer around an existing Backend and initializes it.
//
// Parameters:
//   - backend: the backend to drive
//   - width: framebuffer width in pixels
//   - height: framebuffer height in pixels
//   - options: variadic list of RendererBuilderOption functions to configure the Renderer
//
// Returns:
//   - Renderer: the renderer
//   - error: the error from backend.Init
func NewRendererWithBackend(backend Backend, width, height int, options ...RendererBuilderOption) (Renderer, error) {
	r := newRenderer(options...)
	r.backend = backend
	return r.init(width, height)
}

func newRenderer(options ...RendererBuilderOption) *renderer {
	r := &renderer{
		mu:           &sync.Mutex{},
		programCache: make(map[string]uniform.ProgramID),
		meshCache:    make(map[mesh.Template]MeshHandle),
		clearColor:   [4]float64{0.1, 0.1, 0.1, 1},
	}

	// Apply options first so config flags (e.g. forceFallbackAdapter) are
	// available before the backend requests a GPU adapter.
	for _, opt := range options {
		opt(r)
	}
	if r.textures == nil {
		r.textures = texture.NewManager()
	}
	return r
}

func (r *renderer) init(width, height int) (Renderer, error) {
	if r.pendingPresentMode != nil {
		r.backend.SetPresentMode(*r.pendingPresentMode)
	}
	if err := r.backend.Init(width, height); err != nil {
		return nil, err
	}

	resolverOptions := []uniform.ResolverBuilderOption{}
	if r.logger != nil {
		resolverOptions = append(resolverOptions, uniform.WithLogger(r.logger))
	}
	r.resolver = uniform.NewResolver(r.backend, resolverOptions...)
	return r, nil
}

func (r *renderer) Backend() Backend {
	return r.backend
}

func (r *renderer) BackendType() RendererBackendType {
	return r.backendType
}

func (r *renderer) Resolver() uniform.Resolver {
	return r.resolver
}

func (r *renderer) Textures() texture.Manager {
	return r.textures
}

func (r *renderer) RegisterProgram(name string, src shader.Source) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, err := r.backend.CreateProgram(name, src)
	if err != nil {
		return fmt.Errorf("program %q: %w", name, err)
	}
	if old, exists := r.programCache[name]; exists {
		r.backend.DeleteProgram(old)
		r.resolver.Forget(old)
		r.log().Info("program relinked", "program", name)
	}
	r.programCache[name] = id
	return nil
}

func (r *renderer) Program(name string) (uniform.ProgramID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.programCache[name]
	return id, ok
}

func (r *renderer) Programs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Sorted(maps.Keys(r.programCache))
}

func (r *renderer) RemoveProgram(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.programCache[name]
	if !ok {
		return false
	}
	r.backend.DeleteProgram(id)
	r.resolver.Forget(id)
	delete(r.programCache, name)
	return true
}

func (r *renderer) ReleaseMesh(t mesh.Template) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if h, ok := r.meshCache[t]; ok {
		r.backend.DeleteMesh(h)
		delete(r.meshCache, t)
	}
}

func (r *renderer) Draw(call DrawCall) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, exists := r.programCache[call.Program]
	if !exists {
		return fmt.Errorf("%w: %q", ErrProgramNotFound, call.Program)
	}

	h, uploaded := r.meshCache[call.Template]
	if !uploaded {
		var err error
		if h, err = r.backend.CreateMesh(call.Template); err != nil {
			return fmt.Errorf("upload mesh %q: %w", call.Template.Name(), err)
		}
		r.meshCache[call.Template] = h
	}

	r.backend.UseProgram(id)
	for unit, url := range call.Textures {
		r.textures.Bind(r.backend, url, unit)
	}
	r.resolver.SetUniforms(call.Uniforms)
	bindErr := r.resolver.Resolve(id)

	return errors.Join(bindErr, r.backend.DrawMesh(id, h))
}

func (r *renderer) BeginFrame() error {
	if err := r.textures.Flush(r.backend); err != nil {
		r.log().Error("texture upload failed", "err", err)
	}
	return r.backend.BeginFrame()
}

func (r *renderer) EndFrame() error {
	return r.backend.EndFrame()
}

func (r *renderer) Resize(width, height int) {
	r.backend.Resize(width, height)
}

func (r *renderer) SetPresentMode(mode PresentMode) {
	r.backend.SetPresentMode(mode)
}

func (r *renderer) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for name, id := range r.programCache {
		r.backend.DeleteProgram(id)
		r.resolver.Forget(id)
		delete(r.programCache, name)
	}
	for t, h := range r.meshCache {
		r.backend.DeleteMesh(h)
		delete(r.meshCache, t)
	}
	r.textures.DeleteAll(r.backend)
	r.backend.Release()
}

func (r *renderer) log() *slog.Logger {
	if r.logger != nil {
		return r.logger
	}
	return common.Logger()
}
