package camera

import "github.com/Carmen-Shannon/oxy-terrain/common"

// cameraBuilder collects NewCamera settings before the Placement and Projection exist.
type cameraBuilder struct {
	fov    float32
	aspect float32
	near   float32
	far    float32

	position [3]float32
	target   [3]float32
	up       [3]float32

	controller CameraController
}

type CameraBuilderOption func(*cameraBuilder)

// WithFov sets the camera's vertical field of view in radians.
//
// Parameters:
//   - fov: field of view in radians
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's field of view
func WithFov(fov float32) CameraBuilderOption {
	return func(b *cameraBuilder) {
		b.fov = fov
	}
}

// WithFovDegrees sets the camera's vertical field of view in degrees.
//
// Parameters:
//   - deg: field of view in degrees
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's field of view
func WithFovDegrees(deg float32) CameraBuilderOption {
	return func(b *cameraBuilder) {
		b.fov = common.DegToRad(deg)
	}
}

// WithAspect sets the camera's aspect ratio (width / height).
//
// Parameters:
//   - aspect: the aspect ratio to set
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's aspect ratio
func WithAspect(aspect float32) CameraBuilderOption {
	return func(b *cameraBuilder) {
		b.aspect = aspect
	}
}

// WithNear sets the near clipping plane distance.
//
// Parameters:
//   - near: near plane distance
//
// Returns:
//   - CameraBuilderOption: a function that sets the near plane
func WithNear(near float32) CameraBuilderOption {
	return func(b *cameraBuilder) {
		b.near = near
	}
}

// WithFar sets the far clipping plane distance.
//
// Parameters:
//   - far: far plane distance
//
// Returns:
//   - CameraBuilderOption: functional option to set the far plane
func WithFar(far float32) CameraBuilderOption {
	return func(b *cameraBuilder) {
		b.far = far
	}
}

// WithPosition sets the eye position.
func WithPosition(x, y, z float32) CameraBuilderOption {
	return func(b *cameraBuilder) {
		b.position = [3]float32{x, y, z}
	}
}

// WithTarget sets the look-at point.
func WithTarget(x, y, z float32) CameraBuilderOption {
	return func(b *cameraBuilder) {
		b.target = [3]float32{x, y, z}
	}
}

// WithUp sets the camera's up vector.
//
// Parameters:
//   - x, y, z: up vector components
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's up vector
func WithUp(x, y, z float32) CameraBuilderOption {
	return func(b *cameraBuilder) {
		b.up = [3]float32{x, y, z}
	}
}

// WithController attaches a controller to the camera.
// The controller is attached after position and target are applied, so it starts from them.
//
// Parameters:
//   - ctrl: the controller to attach
//
// Returns:
//   - CameraBuilderOption: functional option to set the controller
func WithController(ctrl CameraController) CameraBuilderOption {
	return func(b *cameraBuilder) {
		b.controller = ctrl
	}
}
