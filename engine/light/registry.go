package light

import (
	"slices"
	"sync"

	"github.com/Carmen-Shannon/oxy-terrain/common"
	"github.com/Carmen-Shannon/oxy-terrain/engine/uniform"
)

// WorldLookup resolves a node name to its current world matrix.
type WorldLookup func(nodeName string) ([]float32, bool)

type registryImpl struct {
	mu     *sync.Mutex
	lights []Light
}

// Registry is an ordered list of lights.
// Lights are folded in insertion order, so a later light overrides an earlier one on
// key collision, which with the fixed u_worldLightPosition/u_lightColor names means the
// last enabled light wins.
type Registry interface {
	// Add appends a light.
	Add(l Light)

	// Remove drops a light. Returns false if it was not registered.
	Remove(l Light) bool

	// Lights returns a snapshot of the registered lights.
	Lights() []Light

	// Len returns the number of registered lights.
	Len() int

	// Uniforms folds every enabled light's contribution into one map.
	// Lights whose node no longer resolves are skipped.
	//
	// Parameters:
	//   - world: resolves node names to world matrices
	//
	// Returns:
	//   - uniform.Values: the merged light inputs
	Uniforms(world WorldLookup) uniform.Values
}

var _ Registry = &registryImpl{}

// NewRegistry creates an empty Registry.
func NewRegistry() Registry {
	return &registryImpl{mu: &sync.Mutex{}}
}

func (r *registryImpl) Add(l Light) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lights = append(r.lights, l)
}

func (r *registryImpl) Remove(l Light) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := slices.Index(r.lights, l)
	if i < 0 {
		return false
	}
	r.lights = slices.Delete(r.lights, i, i+1)
	return true
}

func (r *registryImpl) Lights() []Light {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.lights)
}

func (r *registryImpl) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.lights)
}

func (r *registryImpl) Uniforms(world WorldLookup) uniform.Values {
	out := uniform.Values{}
	for _, l := range r.Lights() {
		if !l.Enabled() {
			continue
		}
		m, ok := world(l.NodeName())
		if !ok {
			common.Logger().Warn("light node missing", "node", l.NodeName())
			continue
		}
		out = uniform.Merge(out, l.Uniforms(m))
	}
	return out
}
