// Package renderertest provides a recording renderer.Backend for tests that exercise
// drawing without a graphics context.
package renderertest

import (
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/Carmen-Shannon/oxy-terrain/common"
	"github.com/Carmen-Shannon/oxy-terrain/engine/mesh"
	"github.com/Carmen-Shannon/oxy-terrain/engine/renderer"
	"github.com/Carmen-Shannon/oxy-terrain/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-terrain/engine/texture"
	"github.com/Carmen-Shannon/oxy-terrain/engine/uniform"
)

// Draw is one recorded DrawMesh call with the program state it would have drawn with.
type Draw struct {
	Program  string
	Template mesh.Template
	Floats   map[string][]float32
	Ints     map[string]int32
	Units    map[int]texture.Handle
}

// Backend records every call made to it. Programs declare every uniform name unless
// Declare restricts them.
type Backend struct {
	mu *sync.Mutex

	Width, Height int
	Frames        int
	PresentMode   renderer.PresentMode
	Released      bool

	// Calls lists the calls in order, formatted as "Op arg...".
	Calls []string
	Draws []Draw

	// FailCreate makes CreateProgram fail for the named programs.
	FailCreate map[string]error

	programs map[uniform.ProgramID]string
	meshes   map[renderer.MeshHandle]mesh.Template
	textures map[texture.Handle]common.TextureStagingData

	declared  map[string]bool
	locations map[string]uniform.Location
	names     []string

	current uniform.ProgramID
	floats  map[uniform.ProgramID]map[string][]float32
	ints    map[uniform.ProgramID]map[string]int32
	units   map[int]texture.Handle

	inFrame bool
	next    uint32
}

var _ renderer.Backend = &Backend{}

// NewBackend creates an empty recording backend.
func NewBackend() *Backend {
	return &Backend{
		mu:         &sync.Mutex{},
		FailCreate: make(map[string]error),
		programs:   make(map[uniform.ProgramID]string),
		meshes:     make(map[renderer.MeshHandle]mesh.Template),
		textures:   make(map[texture.Handle]common.TextureStagingData),
		locations:  make(map[string]uniform.Location),
		floats:     make(map[uniform.ProgramID]map[string][]float32),
		ints:       make(map[uniform.ProgramID]map[string]int32),
		units:      make(map[int]texture.Handle),
	}
}

// Declare restricts the uniform names programs report a location for.
func (b *Backend) Declare(names ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.declared = make(map[string]bool, len(names))
	for _, n := range names {
		b.declared[n] = true
	}
}

// Programs returns the sorted names of the programs currently linked.
func (b *Backend) Programs() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Sorted(maps.Values(b.programs))
}

// Meshes returns how many meshes are currently uploaded.
func (b *Backend) Meshes() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.meshes)
}

// Textures returns how many textures are currently uploaded.
func (b *Backend) Textures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.textures)
}

// Count returns how many recorded calls start with op.
func (b *Backend) Count(op string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, c := range b.Calls {
		if c == op || len(c) > len(op) && c[:len(op)+1] == op+" " {
			n++
		}
	}
	return n
}

func (b *Backend) record(format string, args ...any) {
	b.Calls = append(b.Calls, fmt.Sprintf(format, args...))
}

func (b *Backend) id() uint32 {
	b.next++
	return b.next
}

func (b *Backend) Init(width, height int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Width, b.Height = width, height
	b.record("Init %d %d", width, height)
	return nil
}

func (b *Backend) CreateProgram(name string, _ shader.Source) (uniform.ProgramID, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.FailCreate[name]; err != nil {
		return 0, err
	}
	id := uniform.ProgramID(b.id())
	b.programs[id] = name
	b.floats[id] = make(map[string][]float32)
	b.ints[id] = make(map[string]int32)
	b.record("CreateProgram %s", name)
	return id, nil
}

func (b *Backend) UseProgram(p uniform.ProgramID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.current = p
	b.record("UseProgram %s", b.programs[p])
}

func (b *Backend) DeleteProgram(p uniform.ProgramID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record("DeleteProgram %s", b.programs[p])
	delete(b.programs, p)
	delete(b.floats, p)
	delete(b.ints, p)
}

func (b *Backend) UniformLocation(_ uniform.ProgramID, name string) uniform.Location {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.declared != nil && !b.declared[name] {
		return uniform.NoLocation
	}
	loc, ok := b.locations[name]
	if !ok {
		loc = uniform.Location(len(b.names))
		b.locations[name] = loc
		b.names = append(b.names, name)
	}
	return loc
}

func (b *Backend) setInt(loc uniform.Location, v int32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ints, ok := b.ints[b.current]; ok && int(loc) < len(b.names) {
		ints[b.names[loc]] = v
	}
}

func (b *Backend) setFloats(loc uniform.Location, v []float32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if floats, ok := b.floats[b.current]; ok && int(loc) < len(b.names) {
		floats[b.names[loc]] = slices.Clone(v)
	}
}

func (b *Backend) Uniform1i(loc uniform.Location, v int32)            { b.setInt(loc, v) }
func (b *Backend) Uniform1f(loc uniform.Location, v float32)          { b.setFloats(loc, []float32{v}) }
func (b *Backend) Uniform2fv(loc uniform.Location, v []float32)       { b.setFloats(loc, v) }
func (b *Backend) Uniform3fv(loc uniform.Location, v []float32)       { b.setFloats(loc, v) }
func (b *Backend) Uniform4fv(loc uniform.Location, v []float32)       { b.setFloats(loc, v) }
func (b *Backend) UniformMatrix3fv(loc uniform.Location, v []float32) { b.setFloats(loc, v) }
func (b *Backend) UniformMatrix4fv(loc uniform.Location, v []float32) { b.setFloats(loc, v) }

func (b *Backend) CreateMesh(t mesh.Template) (renderer.MeshHandle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	h := renderer.MeshHandle(b.id())
	b.meshes[h] = t
	b.record("CreateMesh %s", t.Name())
	return h, nil
}

func (b *Backend) DeleteMesh(h renderer.MeshHandle) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if t, ok := b.meshes[h]; ok {
		b.record("DeleteMesh %s", t.Name())
		delete(b.meshes, h)
	}
}

func (b *Backend) DrawMesh(p uniform.ProgramID, h renderer.MeshHandle) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	name, ok := b.programs[p]
	if !ok {
		return fmt.Errorf("unknown program %d", p)
	}
	t, ok := b.meshes[h]
	if !ok {
		return fmt.Errorf("unknown mesh %d", h)
	}
	if !b.inFrame {
		return fmt.Errorf("draw outside frame")
	}
	b.record("DrawMesh %s %s", name, t.Name())
	d := Draw{
		Program:  name,
		Template: t,
		Floats:   make(map[string][]float32, len(b.floats[p])),
		Ints:     maps.Clone(b.ints[p]),
		Units:    maps.Clone(b.units),
	}
	for k, v := range b.floats[p] {
		d.Floats[k] = slices.Clone(v)
	}
	b.Draws = append(b.Draws, d)
	return nil
}

func (b *Backend) CreateTexture(px common.TextureStagingData) (texture.Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	h := texture.Handle(b.id())
	b.textures[h] = px
	b.record("CreateTexture %dx%d", px.Width, px.Height)
	return h, nil
}

func (b *Backend) DeleteTexture(h texture.Handle) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.textures, h)
	b.record("DeleteTexture %d", h)
}

func (b *Backend) BindTexture(h texture.Handle, unit int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.units[unit] = h
	b.record("BindTexture %d %d", h, unit)
}

func (b *Backend) BeginFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.inFrame {
		return fmt.Errorf("frame already in progress")
	}
	b.inFrame = true
	b.record("BeginFrame")
	return nil
}

func (b *Backend) EndFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.inFrame {
		return fmt.Errorf("no frame in progress")
	}
	b.inFrame = false
	b.Frames++
	b.record("EndFrame")
	return nil
}

func (b *Backend) Resize(width, height int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Width, b.Height = width, height
	b.record("Resize %d %d", width, height)
}

func (b *Backend) SetPresentMode(mode renderer.PresentMode) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.PresentMode = mode
	b.record("SetPresentMode %d", mode)
}

func (b *Backend) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Released = true
	b.record("Release")
}
