package renderer

import (
	"github.com/Carmen-Shannon/oxy-terrain/engine/mesh"
	"github.com/Carmen-Shannon/oxy-terrain/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-terrain/engine/texture"
	"github.com/Carmen-Shannon/oxy-terrain/engine/uniform"
)

// RendererBackendType identifies the graphics API implementation used by the Renderer.
type RendererBackendType int

const (
	// BackendTypeWGPU selects the WebGPU backend. Programs are compiled from WGSL.
	BackendTypeWGPU RendererBackendType = iota

	// BackendTypeGL selects the OpenGL 4.1 core backend. Programs are linked from GLSL.
	BackendTypeGL
)

// String returns the name used for the backend in configuration files.
func (t RendererBackendType) String() string {
	if t == BackendTypeGL {
		return "gl"
	}
	return "wgpu"
}

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting, capping frame rate
	// to the monitor's refresh rate. Eliminates tearing.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately without waiting for vertical blank.
	// May cause screen tearing but provides the lowest latency.
	PresentModeUncapped
)

// MSAASampleCount controls the number of samples used for multisample anti-aliasing (MSAA).
// WebGPU guarantees support for 1 (off) and 4. The OpenGL backend ignores it.
type MSAASampleCount uint32

const (
	// MSAAOff disables multisample anti-aliasing (sample count 1).
	MSAAOff MSAASampleCount = 1

	// MSAA4x enables 4× multisample anti-aliasing. This is the default.
	MSAA4x MSAASampleCount = 4
)

// MeshHandle identifies geometry uploaded to a Backend.
type MeshHandle uint32

// Backend is the graphics-API collaborator the Renderer drives. Every call happens on the
// render goroutine, which owns the graphics context.
//
// Uniform setters from uniform.Binder apply to the program most recently passed to
// UseProgram and take effect on the next DrawMesh.
type Backend interface {
	uniform.Binder
	texture.Uploader

	// Init prepares the surface for drawing at the given framebuffer size.
	//
	// Parameters:
	//   - width: framebuffer width in pixels
	//   - height: framebuffer height in pixels
	//
	// Returns:
	//   - error: an error if the graphics context cannot be set up
	Init(width, height int) error

	// CreateProgram compiles and links a program from the sources the backend understands.
	//
	// Parameters:
	//   - name: the program name, used for labels and error messages
	//   - src: the program sources
	//
	// Returns:
	//   - uniform.ProgramID: the new program
	//   - error: compile, link or reflection errors
	CreateProgram(name string, src shader.Source) (uniform.ProgramID, error)

	// UseProgram makes p current for uniform setters and draws.
	UseProgram(p uniform.ProgramID)

	// DeleteProgram releases p and every per-program resource derived from it.
	DeleteProgram(p uniform.ProgramID)

	// CreateMesh uploads the attributes and indices of t.
	//
	// Parameters:
	//   - t: the geometry to upload
	//
	// Returns:
	//   - MeshHandle: the uploaded mesh
	//   - error: an error if buffers cannot be created
	CreateMesh(t mesh.Template) (MeshHandle, error)

	// DeleteMesh releases the buffers of h.
	DeleteMesh(h MeshHandle)

	// DrawMesh draws h with program p using the uniforms and textures currently set.
	//
	// Parameters:
	//   - p: the program, which must be current
	//   - h: the mesh to draw
	//
	// Returns:
	//   - error: an error if either handle is unknown or the draw cannot be encoded
	DrawMesh(p uniform.ProgramID, h MeshHandle) error

	// BeginFrame starts a frame and clears the color and depth targets.
	BeginFrame() error

	// EndFrame submits the frame and presents it.
	EndFrame() error

	// Resize reconfigures the surface for a new framebuffer size.
	Resize(width, height int)

	// SetPresentMode changes how frames are presented. Takes effect on the next Resize.
	SetPresentMode(mode PresentMode)

	// Release frees every resource the backend owns.
	Release()
}
