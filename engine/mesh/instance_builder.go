package mesh

import (
	"maps"
	"sync"

	"github.com/Carmen-Shannon/oxy-terrain/engine/uniform"
)

// InstanceBuilderOption is a functional option for configuring an Instance during construction.
type InstanceBuilderOption func(*instance)

// WithShader selects the program the instance is drawn with.
//
// Parameters:
//   - name: a program name registered with the scene
//
// Returns:
//   - InstanceBuilderOption: functional option to set the shader name
func WithShader(name string) InstanceBuilderOption {
	return func(i *instance) {
		i.shader = name
	}
}

// WithTexture binds the texture loaded from url to unit and exposes the unit to the
// shader through the sampler input named sampler.
//
// Parameters:
//   - sampler: the sampler shader input, for example "u_texture"
//   - unit: the texture unit
//   - url: the texture source registered with the scene's texture manager
//
// Returns:
//   - InstanceBuilderOption: functional option to bind the texture
func WithTexture(sampler string, unit int, url string) InstanceBuilderOption {
	return func(i *instance) {
		i.textures[unit] = url
		i.uniforms[sampler] = uniform.Int(unit)
	}
}

// NewInstance creates an Instance of template. The values map is copied.
// Panics if template is nil.
//
// Parameters:
//   - template: the shared geometry
//   - values: the per-instance shader inputs
//   - options: variadic list of InstanceBuilderOption functions
//
// Returns:
//   - Instance: the new instance
func NewInstance(template Template, values uniform.Values, options ...InstanceBuilderOption) Instance {
	if template == nil {
		panic("mesh: NewInstance requires a template")
	}
	i := &instance{
		mu:       &sync.Mutex{},
		template: template,
		shader:   DefaultShader,
		uniforms: maps.Clone(values),
		textures: make(map[int]string),
	}
	if i.uniforms == nil {
		i.uniforms = uniform.Values{}
	}
	for _, opt := range options {
		opt(i)
	}
	return i
}
