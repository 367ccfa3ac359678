package camera

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-terrain/common"
	"github.com/chewxy/math32"
)

// FirstPersonControllerOption is a functional option for configuring a FirstPersonController.
type FirstPersonControllerOption func(*firstPersonController)

// WithBaseSpeed sets the speed a movement key starts ramping from, and the flat vertical speed.
//
// Parameters:
//   - speed: units per second
//
// Returns:
//   - FirstPersonControllerOption: functional option to set the base speed
func WithBaseSpeed(speed float32) FirstPersonControllerOption {
	return func(c *firstPersonController) {
		c.baseSpeed = speed
	}
}

// WithMaxSpeed caps the ramped movement speed.
//
// Parameters:
//   - speed: units per second
//
// Returns:
//   - FirstPersonControllerOption: functional option to set the speed cap
func WithMaxSpeed(speed float32) FirstPersonControllerOption {
	return func(c *firstPersonController) {
		c.maxSpeed = speed
	}
}

// WithAccelerationRate sets how quickly held keys ramp up.
//
// Parameters:
//   - rate: multiplier applied to the hold counter inside the logarithm
//
// Returns:
//   - FirstPersonControllerOption: functional option to set the acceleration rate
func WithAccelerationRate(rate float32) FirstPersonControllerOption {
	return func(c *firstPersonController) {
		c.accelerationRate = rate
	}
}

// WithLookSensitivity sets radians of rotation per pixel of mouse movement.
//
// Parameters:
//   - sensitivity: radians per pixel
//
// Returns:
//   - FirstPersonControllerOption: functional option to set the mouse sensitivity
func WithLookSensitivity(sensitivity float32) FirstPersonControllerOption {
	return func(c *firstPersonController) {
		c.mouseSensitivity = sensitivity
	}
}

// NewFirstPersonController creates a FirstPersonController facing -Z (yaw -π/2, pitch 0) with
// base speed 10, max speed 100, acceleration rate 10 and mouse sensitivity 0.002.
//
// Parameters:
//   - options: variadic list of FirstPersonControllerOption functions
//
// Returns:
//   - FirstPersonController: the new controller
func NewFirstPersonController(options ...FirstPersonControllerOption) FirstPersonController {
	c := &firstPersonController{
		mu:               &sync.Mutex{},
		yaw:              -math32.Pi / 2,
		baseSpeed:        10,
		maxSpeed:         100,
		accelerationRate: 10,
		mouseSensitivity: 0.002,
		keys:             make(map[common.Key]bool),
		holdTicks:        make(map[common.Key]int, len(movementKeys)),
	}
	for _, k := range movementKeys {
		c.holdTicks[k] = 0
	}
	for _, opt := range options {
		opt(c)
	}
	c.clampPitch()
	c.updateVectors()
	return c
}
