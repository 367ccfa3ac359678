package mesh

// TemplateBuilderOption is a functional option for configuring a Template during construction.
type TemplateBuilderOption func(*template)

// WithIndices sets the element indices, turning the template into an indexed mesh.
// The slice is copied.
//
// Parameters:
//   - indices: 16-bit vertex indices
//
// Returns:
//   - TemplateBuilderOption: functional option to set the indices
func WithIndices(indices []uint16) TemplateBuilderOption {
	return func(t *template) {
		t.indices = append([]uint16(nil), indices...)
	}
}

// WithDrawMode sets the primitive topology. Defaults to DrawModeTriangles.
//
// Parameters:
//   - mode: the draw mode
//
// Returns:
//   - TemplateBuilderOption: functional option to set the draw mode
func WithDrawMode(mode DrawMode) TemplateBuilderOption {
	return func(t *template) {
		t.drawMode = mode
	}
}

// NewTemplate creates an immutable mesh template. Attribute data is copied.
//
// Parameters:
//   - name: the lookup name of the template
//   - attributes: vertex streams; every stream must describe the same number of vertices
//   - options: variadic list of TemplateBuilderOption functions
//
// Returns:
//   - Template: the new template
//   - error: ErrInvalidAttribute if the attributes or indices are malformed
func NewTemplate(name string, attributes []Attribute, options ...TemplateBuilderOption) (Template, error) {
	t := &template{
		name:       name,
		attributes: make([]Attribute, len(attributes)),
		drawMode:   DrawModeTriangles,
	}
	for i, a := range attributes {
		a.Data = append([]float32(nil), a.Data...)
		t.attributes[i] = a
	}
	for _, opt := range options {
		opt(t)
	}
	if err := t.validate(); err != nil {
		return nil, err
	}
	return t, nil
}
