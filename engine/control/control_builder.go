package control

// ControlOption is a functional option for configuring a control in Manager.Add.
type ControlOption func(*controlData)

// WithInitial sets the control's starting value. It is clamped to the range.
//
// Parameters:
//   - v: the initial value
//
// Returns:
//   - ControlOption: functional option to set the initial value
func WithInitial(v float32) ControlOption {
	return func(c *controlData) {
		c.value = v
	}
}

// WithRange sets the inclusive bounds the control is clamped to. Defaults to [0, 1].
//
// Parameters:
//   - min: lower bound
//   - max: upper bound
//
// Returns:
//   - ControlOption: functional option to set the range
func WithRange(min, max float32) ControlOption {
	return func(c *controlData) {
		c.min = min
		c.max = max
	}
}

// WithStep sets the increment used by Manager.Step. Defaults to 0.01.
//
// Parameters:
//   - step: the increment per step
//
// Returns:
//   - ControlOption: functional option to set the step
func WithStep(step float32) ControlOption {
	return func(c *controlData) {
		c.step = step
	}
}

// WithTransformers sets the value, update and display transformers.
// Nil fields keep their defaults.
//
// Parameters:
//   - t: the transformers
//
// Returns:
//   - ControlOption: functional option to set the transformers
func WithTransformers(t Transformers) ControlOption {
	return func(c *controlData) {
		c.transformers = t
	}
}

// WithOnChange sets the callback invoked after every change.
//
// Parameters:
//   - fn: the callback
//
// Returns:
//   - ControlOption: functional option to set the change callback
func WithOnChange(fn ChangeFunc) ControlOption {
	return func(c *controlData) {
		c.onChange = fn
	}
}
