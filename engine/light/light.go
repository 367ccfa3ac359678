package light

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-terrain/common"
	"github.com/Carmen-Shannon/oxy-terrain/engine/uniform"
)

// Shader input names emitted by Light.Uniforms.
const (
	UniformWorldPosition = "u_worldLightPosition"
	UniformColor         = "u_lightColor"
)

// lightImpl is the implementation of the Light interface.
type lightImpl struct {
	mu *sync.Mutex

	nodeName  string
	position  [3]float32
	color     [3]float32
	intensity float32
	enabled   bool
}

// Light defines a point light bound to a scene node by name.
//
// The light does not own the node. It samples the node's world matrix every frame,
// so lights may be declared before the node they follow exists; the scene validates
// the name when the light is attached.
type Light interface {
	// NodeName returns the name of the node whose world matrix positions this light.
	//
	// Returns:
	//   - string: the node name
	NodeName() string

	// Position returns the light's position relative to its node.
	//
	// Returns:
	//   - [3]float32: position as (x, y, z)
	Position() [3]float32

	// Color returns the RGB color of the light.
	//
	// Returns:
	//   - [3]float32: color as (r, g, b)
	Color() [3]float32

	// Intensity returns the scalar multiplier applied to the color.
	Intensity() float32

	// Enabled returns whether this light contributes shader inputs.
	Enabled() bool

	// SetPosition sets the light's position relative to its node.
	//
	// Parameters:
	//   - x, y, z: position components
	SetPosition(x, y, z float32)

	// SetColor sets the RGB color of the light.
	//
	// Parameters:
	//   - r, g, b: color components
	SetColor(r, g, b float32)

	// SetIntensity sets the scalar multiplier applied to the color.
	SetIntensity(intensity float32)

	// SetEnabled enables or disables the light.
	SetEnabled(enabled bool)

	// WorldPosition derives the light's world-space position from its node's world matrix
	// as translation(position) · nodeWorld.
	//
	// Parameters:
	//   - nodeWorld: the 16 element column-major world matrix of the light's node
	//
	// Returns:
	//   - [3]float32: world-space position
	WorldPosition(nodeWorld []float32) [3]float32

	// Uniforms returns this light's shader inputs for the current frame:
	// u_worldLightPosition and u_lightColor (color scaled by intensity).
	//
	// Parameters:
	//   - nodeWorld: the world matrix of the light's node
	//
	// Returns:
	//   - uniform.Values: the light's contribution
	Uniforms(nodeWorld []float32) uniform.Values
}

var _ Light = &lightImpl{}

// NewLight creates a white point light at the origin of the named node with any
// provided options applied.
//
// Parameters:
//   - nodeName: the node the light follows
//   - opts: variadic list of LightBuilderOption functions to configure the light
//
// Returns:
//   - Light: a new Light instance
func NewLight(nodeName string, opts ...LightBuilderOption) Light {
	l := &lightImpl{
		mu:        &sync.Mutex{},
		nodeName:  nodeName,
		color:     [3]float32{1, 1, 1},
		intensity: 1.0,
		enabled:   true,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *lightImpl) NodeName() string {
	return l.nodeName
}

func (l *lightImpl) Position() [3]float32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.position
}

func (l *lightImpl) Color() [3]float32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.color
}

func (l *lightImpl) Intensity() float32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.intensity
}

func (l *lightImpl) Enabled() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.enabled
}

func (l *lightImpl) SetPosition(x, y, z float32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.position = [3]float32{x, y, z}
}

func (l *lightImpl) SetColor(r, g, b float32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.color = [3]float32{r, g, b}
}

func (l *lightImpl) SetIntensity(intensity float32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.intensity = intensity
}

func (l *lightImpl) SetEnabled(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.enabled = enabled
}

func (l *lightImpl) WorldPosition(nodeWorld []float32) [3]float32 {
	var update [16]float32
	common.Translation(update[:], l.Position())
	common.Mul4(update[:], update[:], nodeWorld)
	return common.Translation3(update[:])
}

func (l *lightImpl) Uniforms(nodeWorld []float32) uniform.Values {
	pos := l.WorldPosition(nodeWorld)
	l.mu.Lock()
	color := common.Scale3(l.color, l.intensity)
	l.mu.Unlock()
	return uniform.Values{
		UniformWorldPosition: uniform.Vec(pos[:]...),
		UniformColor:         uniform.Vec(color[:]...),
	}
}
