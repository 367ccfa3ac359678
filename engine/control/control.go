package control

import (
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/Carmen-Shannon/oxy-terrain/common"
	"github.com/Carmen-Shannon/oxy-terrain/engine/uniform"
)

var (
	// ErrControlExists is returned when adding a control under a name already in use.
	ErrControlExists = errors.New("control already exists")

	// ErrControlNotFound is returned when a control name is not registered.
	ErrControlNotFound = errors.New("control not found")
)

// Transformers reshape a control value on its way in and out.
//
// Value runs on raw input, Update on the result before it is stored, and Display
// formats the stored value for on-screen readouts.
type Transformers struct {
	Value   func(float32) float32
	Update  func(float32) float32
	Display func(float32) string
}

// ChangeFunc is called after a control's value changes.
type ChangeFunc func(name string, value float32)

type controlData struct {
	value        float32
	min          float32
	max          float32
	step         float32
	transformers Transformers
	onChange     ChangeFunc
}

type managerImpl struct {
	mu       *sync.Mutex
	controls map[string]*controlData
	order    []string
}

// Manager holds named runtime values, such as slider positions, that feed shader inputs.
type Manager interface {
	// Add registers a control.
	//
	// Parameters:
	//   - name: unique control name
	//   - options: ControlOption functions configuring range, step, transformers and callback
	//
	// Returns:
	//   - error: ErrControlExists if the name is taken
	Add(name string, options ...ControlOption) error

	// Set runs raw through the control's value and update transformers, clamps it to the
	// control's range, stores it and calls the change callback.
	//
	// Parameters:
	//   - name: the control
	//   - raw: the raw input
	//
	// Returns:
	//   - float32: the stored value
	//   - error: ErrControlNotFound if the name is not registered
	Set(name string, raw float32) (float32, error)

	// Step moves a control by n steps.
	//
	// Parameters:
	//   - name: the control
	//   - n: number of steps, negative to decrease
	//
	// Returns:
	//   - float32: the stored value
	//   - error: ErrControlNotFound if the name is not registered
	Step(name string, n int) (float32, error)

	// Value returns a control's current value.
	Value(name string) (float32, bool)

	// Display returns a control's current value formatted by its display transformer.
	Display(name string) string

	// Values returns a snapshot of every control's value.
	Values() map[string]float32

	// Names returns control names in registration order.
	Names() []string

	// Remove drops a control. Returns false if it was not registered.
	Remove(name string) bool

	// SetOnChange replaces a control's change callback.
	//
	// Returns:
	//   - error: ErrControlNotFound if the name is not registered
	SetOnChange(name string, fn ChangeFunc) error

	// Producer returns a shader input that reads the control's value every time it is resolved.
	// A removed control produces 0.
	//
	// Parameters:
	//   - name: the control
	//
	// Returns:
	//   - uniform.Value: a producer yielding float32
	Producer(name string) uniform.Value
}

var _ Manager = &managerImpl{}

// NewManager creates an empty control Manager.
func NewManager() Manager {
	return &managerImpl{
		mu:       &sync.Mutex{},
		controls: make(map[string]*controlData),
	}
}

func (m *managerImpl) Add(name string, options ...ControlOption) error {
	c := &controlData{
		min:  0,
		max:  1,
		step: 0.01,
	}
	for _, opt := range options {
		opt(c)
	}
	if c.transformers.Value == nil {
		c.transformers.Value = identity
	}
	if c.transformers.Update == nil {
		c.transformers.Update = identity
	}
	if c.transformers.Display == nil {
		c.transformers.Display = formatValue
	}
	c.value = common.Clamp(c.value, c.min, c.max)

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.controls[name]; ok {
		return fmt.Errorf("%w: %q", ErrControlExists, name)
	}
	m.controls[name] = c
	m.order = append(m.order, name)
	return nil
}

func (m *managerImpl) Set(name string, raw float32) (float32, error) {
	m.mu.Lock()
	c, ok := m.controls[name]
	if !ok {
		m.mu.Unlock()
		return 0, fmt.Errorf("%w: %q", ErrControlNotFound, name)
	}
	v := c.transformers.Update(c.transformers.Value(raw))
	c.value = common.Clamp(v, c.min, c.max)
	v, onChange := c.value, c.onChange
	m.mu.Unlock()

	if onChange != nil {
		onChange(name, v)
	}
	return v, nil
}

func (m *managerImpl) Step(name string, n int) (float32, error) {
	m.mu.Lock()
	c, ok := m.controls[name]
	if !ok {
		m.mu.Unlock()
		return 0, fmt.Errorf("%w: %q", ErrControlNotFound, name)
	}
	next := c.value + float32(n)*c.step
	m.mu.Unlock()
	return m.Set(name, next)
}

func (m *managerImpl) Value(name string) (float32, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.controls[name]
	if !ok {
		return 0, false
	}
	return c.value, true
}

func (m *managerImpl) Display(name string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.controls[name]
	if !ok {
		return ""
	}
	return c.transformers.Display(c.value)
}

func (m *managerImpl) Values() map[string]float32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]float32, len(m.controls))
	for name, c := range m.controls {
		out[name] = c.value
	}
	return out
}

func (m *managerImpl) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.order...)
}

func (m *managerImpl) Remove(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.controls[name]; !ok {
		return false
	}
	delete(m.controls, name)
	for i, n := range m.order {
		if n == name {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return true
}

func (m *managerImpl) SetOnChange(name string, fn ChangeFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.controls[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrControlNotFound, name)
	}
	c.onChange = fn
	return nil
}

func (m *managerImpl) Producer(name string) uniform.Value {
	return uniform.Producer(func() any {
		v, _ := m.Value(name)
		return v
	})
}

func identity(v float32) float32 { return v }

func formatValue(v float32) string {
	return strconv.FormatFloat(float64(v), 'f', 2, 32)
}
