package renderer

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/oxy-terrain/common"
	"github.com/Carmen-Shannon/oxy-terrain/engine/mesh"
	"github.com/Carmen-Shannon/oxy-terrain/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-terrain/engine/texture"
	"github.com/Carmen-Shannon/oxy-terrain/engine/uniform"
	"github.com/go-gl/gl/v4.1-core/gl"
)

// glContext is the part of a window the OpenGL backend needs.
type glContext interface {
	MakeContextCurrent()
	SwapBuffers()
}

// glMesh holds one buffer per attribute plus the optional element buffer.
type glMesh struct {
	template mesh.Template
	buffers  []uint32
	elements uint32
}

// vaoKey identifies the vertex array binding a mesh's buffers to a program's attribute slots.
type vaoKey struct {
	program uniform.ProgramID
	mesh    MeshHandle
}

type glBackendImpl struct {
	mu  *sync.Mutex
	ctx glContext

	clearColor [4]float64
	width      int32
	height     int32

	programs map[uniform.ProgramID]struct{}
	meshes   map[MeshHandle]*glMesh
	vaos     map[vaoKey]uint32
	nextMesh MeshHandle
}

var _ Backend = &glBackendImpl{}

func newGLBackend(ctx glContext, clearColor [4]float64) Backend {
	return &glBackendImpl{
		mu:         &sync.Mutex{},
		ctx:        ctx,
		clearColor: clearColor,
		programs:   make(map[uniform.ProgramID]struct{}),
		meshes:     make(map[MeshHandle]*glMesh),
		vaos:       make(map[vaoKey]uint32),
		nextMesh:   1,
	}
}

func (b *glBackendImpl) Init(width, height int) error {
	b.ctx.MakeContextCurrent()
	if err := gl.Init(); err != nil {
		return fmt.Errorf("gl init: %w", err)
	}
	common.Logger().Info("opengl ready", "version", gl.GoStr(gl.GetString(gl.VERSION)))

	gl.Enable(gl.DEPTH_TEST)
	gl.Enable(gl.CULL_FACE)
	b.Resize(width, height)
	return nil
}

func (b *glBackendImpl) Resize(width, height int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.width, b.height = int32(width), int32(height)
	gl.Viewport(0, 0, b.width, b.height)
}

// SetPresentMode is a no-op; the swap interval belongs to the window.
func (b *glBackendImpl) SetPresentMode(PresentMode) {}

func (b *glBackendImpl) CreateProgram(name string, src shader.Source) (uniform.ProgramID, error) {
	if !src.HasGLSL() {
		return 0, fmt.Errorf("%w: program %q has no GLSL sources", shader.ErrNoSource, name)
	}

	vs, err := compileShader(src.Vertex, gl.VERTEX_SHADER)
	if err != nil {
		return 0, fmt.Errorf("vertex shader: %w", err)
	}
	defer gl.DeleteShader(vs)
	fs, err := compileShader(src.Fragment, gl.FRAGMENT_SHADER)
	if err != nil {
		return 0, fmt.Errorf("fragment shader: %w", err)
	}
	defer gl.DeleteShader(fs)

	program := gl.CreateProgram()
	gl.AttachShader(program, vs)
	gl.AttachShader(program, fs)
	gl.LinkProgram(program)
	gl.DetachShader(program, vs)
	gl.DetachShader(program, fs)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLength)
		msg := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(program, logLength, nil, gl.Str(msg))
		gl.DeleteProgram(program)
		return 0, fmt.Errorf("link failed: %s", strings.TrimRight(msg, "\x00"))
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	id := uniform.ProgramID(program)
	b.programs[id] = struct{}{}
	return id, nil
}

// compileShader compiles one stage and returns its info log as the error on failure.
func compileShader(source string, stage uint32) (uint32, error) {
	handle := gl.CreateShader(stage)
	csources, free := gl.Strs(source + "\x00")
	gl.ShaderSource(handle, 1, csources, nil)
	free()
	gl.CompileShader(handle)

	var status int32
	gl.GetShaderiv(handle, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(handle, gl.INFO_LOG_LENGTH, &logLength)
		msg := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(handle, logLength, nil, gl.Str(msg))
		gl.DeleteShader(handle)
		return 0, fmt.Errorf("compile failed: %s", strings.TrimRight(msg, "\x00"))
	}
	return handle, nil
}

func (b *glBackendImpl) UseProgram(p uniform.ProgramID) {
	gl.UseProgram(uint32(p))
}

func (b *glBackendImpl) DeleteProgram(p uniform.ProgramID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.programs[p]; !ok {
		return
	}
	for key, vao := range b.vaos {
		if key.program == p {
			gl.DeleteVertexArrays(1, &vao)
			delete(b.vaos, key)
		}
	}
	gl.DeleteProgram(uint32(p))
	delete(b.programs, p)
}

func (b *glBackendImpl) UniformLocation(program uniform.ProgramID, name string) uniform.Location {
	loc := gl.GetUniformLocation(uint32(program), gl.Str(name+"\x00"))
	if loc < 0 {
		return uniform.NoLocation
	}
	return uniform.Location(loc)
}

func (b *glBackendImpl) Uniform1i(loc uniform.Location, v int32) {
	gl.Uniform1i(int32(loc), v)
}

func (b *glBackendImpl) Uniform1f(loc uniform.Location, v float32) {
	gl.Uniform1f(int32(loc), v)
}

func (b *glBackendImpl) Uniform2fv(loc uniform.Location, v []float32) {
	gl.Uniform2fv(int32(loc), 1, &v[0])
}

func (b *glBackendImpl) Uniform3fv(loc uniform.Location, v []float32) {
	gl.Uniform3fv(int32(loc), 1, &v[0])
}

func (b *glBackendImpl) Uniform4fv(loc uniform.Location, v []float32) {
	gl.Uniform4fv(int32(loc), 1, &v[0])
}

func (b *glBackendImpl) UniformMatrix3fv(loc uniform.Location, v []float32) {
	gl.UniformMatrix3fv(int32(loc), 1, false, &v[0])
}

func (b *glBackendImpl) UniformMatrix4fv(loc uniform.Location, v []float32) {
	gl.UniformMatrix4fv(int32(loc), 1, false, &v[0])
}

func (b *glBackendImpl) CreateMesh(t mesh.Template) (MeshHandle, error) {
	attrs := t.Attributes()
	m := &glMesh{template: t, buffers: make([]uint32, len(attrs))}
	gl.GenBuffers(int32(len(attrs)), &m.buffers[0])
	for i, a := range attrs {
		gl.BindBuffer(gl.ARRAY_BUFFER, m.buffers[i])
		gl.BufferData(gl.ARRAY_BUFFER, len(a.Data)*4, gl.Ptr(a.Data), gl.STATIC_DRAW)
	}
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)

	if t.Indexed() {
		indices := t.Indices()
		gl.GenBuffers(1, &m.elements)
		gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, m.elements)
		gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(indices)*2, gl.Ptr(indices), gl.STATIC_DRAW)
		gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, 0)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	h := b.nextMesh
	b.nextMesh++
	b.meshes[h] = m
	return h, nil
}

func (b *glBackendImpl) DeleteMesh(h MeshHandle) {
	b.mu.Lock()
	defer b.mu.Unlock()
	m, ok := b.meshes[h]
	if !ok {
		return
	}
	for key, vao := range b.vaos {
		if key.mesh == h {
			gl.DeleteVertexArrays(1, &vao)
			delete(b.vaos, key)
		}
	}
	gl.DeleteBuffers(int32(len(m.buffers)), &m.buffers[0])
	if m.elements != 0 {
		gl.DeleteBuffers(1, &m.elements)
	}
	delete(b.meshes, h)
}

// vertexArray returns the VAO binding m's buffers to p's attribute slots, creating it on
// first use. Attributes the program does not declare are left unbound. Caller must hold the mutex.
func (b *glBackendImpl) vertexArray(p uniform.ProgramID, h MeshHandle, m *glMesh) uint32 {
	key := vaoKey{program: p, mesh: h}
	if vao, ok := b.vaos[key]; ok {
		return vao
	}

	var vao uint32
	gl.GenVertexArrays(1, &vao)
	gl.BindVertexArray(vao)
	for i, a := range m.template.Attributes() {
		loc := gl.GetAttribLocation(uint32(p), gl.Str(a.Name+"\x00"))
		if loc < 0 {
			continue
		}
		gl.BindBuffer(gl.ARRAY_BUFFER, m.buffers[i])
		gl.EnableVertexAttribArray(uint32(loc))
		gl.VertexAttribPointer(uint32(loc), int32(a.Components), gl.FLOAT, false, 0, gl.PtrOffset(0))
	}
	if m.elements != 0 {
		gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, m.elements)
	}
	b.vaos[key] = vao
	return vao
}

func (b *glBackendImpl) DrawMesh(p uniform.ProgramID, h MeshHandle) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.programs[p]; !ok {
		return fmt.Errorf("draw: unknown program %d", p)
	}
	m, ok := b.meshes[h]
	if !ok {
		return fmt.Errorf("draw: unknown mesh %d", h)
	}

	gl.BindVertexArray(b.vertexArray(p, h, m))
	mode := glDrawModes[m.template.DrawMode()]
	if m.template.Indexed() {
		gl.DrawElements(mode, int32(m.template.ElementCount()), gl.UNSIGNED_SHORT, gl.PtrOffset(0))
	} else {
		gl.DrawArrays(mode, 0, int32(m.template.VertexCount()))
	}
	gl.BindVertexArray(0)
	return nil
}

var glDrawModes = map[mesh.DrawMode]uint32{
	mesh.DrawModeTriangles: gl.TRIANGLES,
	mesh.DrawModeLines:     gl.LINES,
	mesh.DrawModePoints:    gl.POINTS,
}

func (b *glBackendImpl) CreateTexture(px common.TextureStagingData) (texture.Handle, error) {
	if !px.Valid() {
		return 0, errors.New("create texture: invalid pixel data")
	}

	format := uint32(gl.RGBA)
	if px.Format == common.PixelFormatRGB {
		format = gl.RGB
	}
	filter := int32(gl.NEAREST)
	if px.Filter == common.TextureFilterLinear {
		filter = gl.LINEAR
	}
	wrap := int32(gl.REPEAT)
	if px.Wrap == common.TextureWrapClampToEdge {
		wrap = gl.CLAMP_TO_EDGE
	}

	var tex uint32
	gl.GenTextures(1, &tex)
	gl.BindTexture(gl.TEXTURE_2D, tex)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	gl.TexImage2D(gl.TEXTURE_2D, 0, int32(format), int32(px.Width), int32(px.Height), 0, format, gl.UNSIGNED_BYTE, gl.Ptr(px.Pixels))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, filter)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, filter)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, wrap)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, wrap)
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return texture.Handle(tex), nil
}

func (b *glBackendImpl) DeleteTexture(h texture.Handle) {
	tex := uint32(h)
	gl.DeleteTextures(1, &tex)
}

func (b *glBackendImpl) BindTexture(h texture.Handle, unit int) {
	gl.ActiveTexture(gl.TEXTURE0 + uint32(unit))
	gl.BindTexture(gl.TEXTURE_2D, uint32(h))
}

func (b *glBackendImpl) BeginFrame() error {
	gl.ClearColor(float32(b.clearColor[0]), float32(b.clearColor[1]), float32(b.clearColor[2]), float32(b.clearColor[3]))
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
	return nil
}

func (b *glBackendImpl) EndFrame() error {
	b.ctx.SwapBuffers()
	return nil
}

func (b *glBackendImpl) Release() {
	b.mu.Lock()
	meshes := make([]MeshHandle, 0, len(b.meshes))
	for h := range b.meshes {
		meshes = append(meshes, h)
	}
	programs := make([]uniform.ProgramID, 0, len(b.programs))
	for p := range b.programs {
		programs = append(programs, p)
	}
	b.mu.Unlock()

	for _, h := range meshes {
		b.DeleteMesh(h)
	}
	for _, p := range programs {
		b.DeleteProgram(p)
	}
}
