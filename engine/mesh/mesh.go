package mesh

import (
	"errors"
	"fmt"
)

// ErrInvalidAttribute is returned when a template's vertex attributes are malformed.
var ErrInvalidAttribute = errors.New("invalid vertex attribute")

// DrawMode is the primitive topology a template is drawn with.
type DrawMode int

const (
	DrawModeTriangles DrawMode = iota
	DrawModeLines
	DrawModePoints
)

// Attribute is one named vertex stream.
type Attribute struct {
	// Name is the shader input the stream binds to, for example "a_position".
	Name string
	// Components is the number of floats per vertex (1 to 4).
	Components int
	// Data holds Components floats per vertex.
	Data []float32
}

type template struct {
	name       string
	attributes []Attribute
	indices    []uint16
	drawMode   DrawMode
}

// Template is immutable geometry shared by every Instance that references it.
type Template interface {
	// Name returns the template's lookup name.
	Name() string

	// Attributes returns the vertex streams in declaration order.
	//
	// Returns:
	//   - []Attribute: the attributes; callers must not modify the data
	Attributes() []Attribute

	// Attribute looks up a stream by name.
	//
	// Parameters:
	//   - name: the attribute name
	//
	// Returns:
	//   - Attribute: the stream
	//   - bool: false if the template has no such stream
	Attribute(name string) (Attribute, bool)

	// Indices returns the 16-bit element indices, or nil for a non-indexed template.
	Indices() []uint16

	// Indexed reports whether the template is drawn with an element buffer.
	Indexed() bool

	// VertexCount returns the number of vertices, taken from the first attribute.
	VertexCount() int

	// ElementCount returns the number of elements a draw call covers: the index count
	// when indexed, otherwise the vertex count.
	ElementCount() int

	// DrawMode returns the primitive topology.
	DrawMode() DrawMode
}

var _ Template = &template{}

func (t *template) Name() string            { return t.name }
func (t *template) Attributes() []Attribute { return t.attributes }
func (t *template) Indices() []uint16       { return t.indices }
func (t *template) Indexed() bool           { return len(t.indices) > 0 }
func (t *template) DrawMode() DrawMode      { return t.drawMode }

func (t *template) Attribute(name string) (Attribute, bool) {
	for _, a := range t.attributes {
		if a.Name == name {
			return a, true
		}
	}
	return Attribute{}, false
}

func (t *template) VertexCount() int {
	if len(t.attributes) == 0 {
		return 0
	}
	first := t.attributes[0]
	return len(first.Data) / first.Components
}

func (t *template) ElementCount() int {
	if t.Indexed() {
		return len(t.indices)
	}
	return t.VertexCount()
}

func (t *template) validate() error {
	if len(t.attributes) == 0 {
		return fmt.Errorf("mesh %q: %w: no attributes", t.name, ErrInvalidAttribute)
	}
	seen := make(map[string]struct{}, len(t.attributes))
	count := -1
	for _, a := range t.attributes {
		if a.Name == "" {
			return fmt.Errorf("mesh %q: %w: unnamed attribute", t.name, ErrInvalidAttribute)
		}
		if _, dup := seen[a.Name]; dup {
			return fmt.Errorf("mesh %q: %w: duplicate attribute %q", t.name, ErrInvalidAttribute, a.Name)
		}
		seen[a.Name] = struct{}{}
		if a.Components < 1 || a.Components > 4 {
			return fmt.Errorf("mesh %q: %w: attribute %q has %d components", t.name, ErrInvalidAttribute, a.Name, a.Components)
		}
		if len(a.Data)%a.Components != 0 {
			return fmt.Errorf("mesh %q: %w: attribute %q length %d is not a multiple of %d",
				t.name, ErrInvalidAttribute, a.Name, len(a.Data), a.Components)
		}
		n := len(a.Data) / a.Components
		if count >= 0 && n != count {
			return fmt.Errorf("mesh %q: %w: attribute %q has %d vertices, want %d", t.name, ErrInvalidAttribute, a.Name, n, count)
		}
		count = n
	}
	for _, idx := range t.indices {
		if int(idx) >= count {
			return fmt.Errorf("mesh %q: %w: index %d out of range for %d vertices", t.name, ErrInvalidAttribute, idx, count)
		}
	}
	return nil
}
