package mesh

import (
	"maps"
	"sync"

	"github.com/Carmen-Shannon/oxy-terrain/engine/uniform"
)

// DefaultShader is the program name an Instance uses unless WithShader overrides it.
const DefaultShader = "default"

type instance struct {
	mu       *sync.Mutex
	template Template
	shader   string
	uniforms uniform.Values
	textures map[int]string
}

// Instance places a Template in the scene with its own shader inputs.
// An Instance is owned by exactly one node.
type Instance interface {
	// Template returns the shared geometry this instance draws.
	Template() Template

	// Shader returns the name of the program the instance is drawn with.
	Shader() string

	// Uniforms returns a copy of the per-instance shader inputs.
	//
	// Returns:
	//   - uniform.Values: the instance's base-layer inputs
	Uniforms() uniform.Values

	// SetUniform sets or replaces one shader input.
	//
	// Parameters:
	//   - name: the shader input name
	//   - v: the value or producer
	SetUniform(name string, v uniform.Value)

	// SetUniforms replaces every per-instance shader input.
	//
	// Parameters:
	//   - values: the new inputs
	SetUniforms(values uniform.Values)

	// Textures returns the texture URL bound to each texture unit, keyed by unit.
	Textures() map[int]string
}

var _ Instance = &instance{}

func (i *instance) Template() Template { return i.template }
func (i *instance) Shader() string     { return i.shader }

func (i *instance) Uniforms() uniform.Values {
	i.mu.Lock()
	defer i.mu.Unlock()
	return maps.Clone(i.uniforms)
}

func (i *instance) SetUniform(name string, v uniform.Value) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.uniforms[name] = v
}

func (i *instance) SetUniforms(values uniform.Values) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.uniforms = maps.Clone(values)
	if i.uniforms == nil {
		i.uniforms = uniform.Values{}
	}
}

func (i *instance) Textures() map[int]string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return maps.Clone(i.textures)
}
