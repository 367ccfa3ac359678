package camera

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-terrain/common"
	"github.com/chewxy/math32"
)

// OrbitControllerOption is a functional option for configuring an OrbitController.
type OrbitControllerOption func(*orbitController)

// WithRadiusBounds sets the minimum and maximum orbit radius.
//
// Parameters:
//   - min: minimum zoom distance
//   - max: maximum zoom distance
//
// Returns:
//   - OrbitControllerOption: functional option to set radius bounds
func WithRadiusBounds(min, max float32) OrbitControllerOption {
	return func(cc *orbitController) {
		cc.minRadius = min
		cc.maxRadius = max
	}
}

// WithElevationBounds sets the minimum and maximum elevation angles.
//
// Parameters:
//   - min: minimum vertical angle in radians
//   - max: maximum vertical angle in radians
//
// Returns:
//   - OrbitControllerOption: functional option to set elevation bounds
func WithElevationBounds(min, max float32) OrbitControllerOption {
	return func(cc *orbitController) {
		cc.minElevation = min
		cc.maxElevation = max
	}
}

// WithOrbitSpeed sets the keyboard orbit speed.
//
// Parameters:
//   - speed: radians per update while a key is held
//
// Returns:
//   - OrbitControllerOption: functional option to set orbit speed
func WithOrbitSpeed(speed float32) OrbitControllerOption {
	return func(cc *orbitController) {
		cc.orbitSpeed = speed
	}
}

// WithDragSensitivity sets radians of rotation per pixel of mouse drag.
//
// Parameters:
//   - sensitivity: radians per pixel
//
// Returns:
//   - OrbitControllerOption: functional option to set the drag sensitivity
func WithDragSensitivity(sensitivity float32) OrbitControllerOption {
	return func(cc *orbitController) {
		cc.mouseSensitivity = sensitivity
	}
}

// WithZoomSpeed sets the zoom speed multiplier.
//
// Parameters:
//   - speed: multiplier for zoom input
//
// Returns:
//   - OrbitControllerOption: functional option to set zoom speed
func WithZoomSpeed(speed float32) OrbitControllerOption {
	return func(cc *orbitController) {
		cc.zoomSpeed = speed
	}
}

// WithPanSpeed sets the planar pan speed multiplier.
//
// Parameters:
//   - speed: multiplier for pan input
//
// Returns:
//   - OrbitControllerOption: functional option to set pan speed
func WithPanSpeed(speed float32) OrbitControllerOption {
	return func(cc *orbitController) {
		cc.panSpeed = speed
	}
}

// NewOrbitController creates an OrbitController. Its radius, azimuth and elevation are
// derived from the placement it is attached to.
//
// Parameters:
//   - options: variadic list of OrbitControllerOption functions
//
// Returns:
//   - OrbitController: the new controller
func NewOrbitController(options ...OrbitControllerOption) OrbitController {
	cc := &orbitController{
		mu:               &sync.Mutex{},
		radius:           250.0,
		elevation:        math32.Pi / 6,
		minRadius:        20.0,
		maxRadius:        2000.0,
		minElevation:     0.05,
		maxElevation:     math32.Pi/2 - 0.1,
		orbitSpeed:       0.03,
		mouseSensitivity: 0.005,
		zoomSpeed:        15.0,
		panSpeed:         1.0,
		keys:             make(map[common.Key]bool),
		buttons:          make(map[common.MouseButton]bool),
	}
	for _, opt := range options {
		opt(cc)
	}
	cc.clamp()
	cc.updatePosition()
	return cc
}
