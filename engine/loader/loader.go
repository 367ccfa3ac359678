package loader

import (
	"fmt"
	"io"
	"log/slog"
	"maps"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/oxy-terrain/common"
	"github.com/Carmen-Shannon/oxy-terrain/engine/mesh"
)

// LoaderBackendType identifies the model file format backend to use.
type LoaderBackendType int

const (
	// BackendTypeGLTF selects the glTF/GLB loader backend.
	BackendTypeGLTF LoaderBackendType = iota
)

// Primitive is one drawable piece of a mesh.
type Primitive struct {
	// Template holds a_position, a_normal, a_texcoord and optionally a_color.
	Template mesh.Template
	// Color is the material's base color factor.
	Color [4]float32
	// Texture is the base color texture URL, or "" when untextured.
	Texture string
}

// Mesh groups the primitives of one source mesh.
type Mesh struct {
	Name       string
	Primitives []Primitive
}

// Node is one entry of a model's hierarchy.
type Node struct {
	// Name is unique within the model.
	Name string
	// Parent indexes Model.Nodes, or is -1 for a root. Parents always precede children.
	Parent   int
	Position [3]float32
	// Rotation is a unit quaternion (x, y, z, w).
	Rotation [4]float32
	Scale    [3]float32
	// Mesh indexes Model.Meshes, or is -1 for a transform-only node.
	Mesh int
}

// Model is the static content of a model file: geometry, base materials and the node
// hierarchy. Skins and animations are not imported.
type Model struct {
	Name   string
	Meshes []Mesh
	Nodes  []Node
}

// Templates returns every primitive's template in mesh order.
func (m *Model) Templates() []mesh.Template {
	var out []mesh.Template
	for _, me := range m.Meshes {
		for _, p := range me.Primitives {
			out = append(out, p.Template)
		}
	}
	return out
}

type loader struct {
	mu sync.RWMutex

	logger     *slog.Logger
	modelCache map[string]*Model
	backend    loaderBackend
}

// Loader imports model files and caches the decoded models.
type Loader interface {
	// Load imports a model file, or returns the cached model for path.
	//
	// Parameters:
	//   - path: the .gltf or .glb file
	//
	// Returns:
	//   - *Model: the model; treat it as read-only
	//   - error: error if the extension is unsupported or decoding fails
	Load(path string) (*Model, error)

	// LoadReader imports a model from a stream and caches it under name.
	//
	// Parameters:
	//   - name: the cache key and model name
	//   - r: the model bytes
	//   - isGLB: true if r holds GLB binary data
	//
	// Returns:
	//   - *Model: the model
	//   - error: error if decoding fails
	LoadReader(name string, r io.Reader, isGLB bool) (*Model, error)

	// Get returns a cached model.
	Get(name string) (*Model, bool)

	// Models returns a copy of the cache.
	Models() map[string]*Model
}

var _ Loader = &loader{}

// NewLoader creates a Loader for the given backend.
//
// Parameters:
//   - backendType: the file format backend
//   - options: variadic list of LoaderBuilderOption functions
//
// Returns:
//   - Loader: the loader
func NewLoader(backendType LoaderBackendType, options ...LoaderBuilderOption) Loader {
	l := &loader{
		modelCache: make(map[string]*Model),
	}

	switch backendType {
	case BackendTypeGLTF:
		l.backend = newGLTFLoaderBackend()
	}

	for _, option := range options {
		option(l)
	}
	if l.logger == nil {
		l.logger = common.Logger()
	}
	return l
}

func (l *loader) Load(path string) (*Model, error) {
	if m, ok := l.Get(path); ok {
		return m, nil
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".gltf", ".glb":
	default:
		return nil, fmt.Errorf("unsupported model format: %q", filepath.Ext(path))
	}
	if l.backend == nil {
		return nil, fmt.Errorf("no loader backend configured")
	}

	m, err := l.backend.Load(path)
	if err != nil {
		return nil, err
	}
	l.store(path, m)
	return m, nil
}

func (l *loader) LoadReader(name string, r io.Reader, isGLB bool) (*Model, error) {
	if m, ok := l.Get(name); ok {
		return m, nil
	}
	if l.backend == nil {
		return nil, fmt.Errorf("no loader backend configured")
	}

	m, err := l.backend.LoadReader(name, r, isGLB)
	if err != nil {
		return nil, err
	}
	l.store(name, m)
	return m, nil
}

func (l *loader) store(key string, m *Model) {
	l.mu.Lock()
	l.modelCache[key] = m
	l.mu.Unlock()
	l.logger.Info("model loaded", "model", m.Name, "meshes", len(m.Meshes), "nodes", len(m.Nodes))
}

func (l *loader) Get(name string) (*Model, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	m, ok := l.modelCache[name]
	return m, ok
}

func (l *loader) Models() map[string]*Model {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return maps.Clone(l.modelCache)
}
