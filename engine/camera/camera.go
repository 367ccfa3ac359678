package camera

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-terrain/common"
)

type cameraImpl struct {
	mu *sync.Mutex

	placement  Placement
	projection Projection
	controller CameraController
}

// Camera combines a Projection and a Placement with an optional, swappable CameraController.
// The placement holds the camera matrix (the camera's world transform); the view matrix
// handed to shaders is its inverse.
type Camera interface {
	// Placement returns the camera's position/target/up capability.
	//
	// Returns:
	//   - Placement: the placement, never nil
	Placement() Placement

	// Projection returns the camera's perspective capability.
	//
	// Returns:
	//   - Projection: the projection, never nil
	Projection() Projection

	// Controller returns the attached CameraController.
	// Returns nil if no controller is attached.
	//
	// Returns:
	//   - CameraController: the attached controller or nil
	Controller() CameraController

	// SetController swaps the controller. The new controller is attached to the placement
	// and derives its orientation from the current position and target.
	//
	// Parameters:
	//   - ctrl: the controller to attach, or nil to detach
	SetController(ctrl CameraController)

	// Update advances the attached controller by dt seconds. Does nothing without a controller.
	//
	// Parameters:
	//   - dt: elapsed time in seconds
	Update(dt float32)

	// Position returns the eye position in world space.
	Position() [3]float32

	// SetAspect forwards to the projection. Called on window resize.
	SetAspect(aspect float32)

	// CameraMatrix returns the placement's camera matrix.
	CameraMatrix() [16]float32

	// ViewMatrix returns the inverse of the camera matrix.
	//
	// Returns:
	//   - [16]float32: column-major view matrix
	ViewMatrix() [16]float32

	// ProjectionMatrix returns the projection matrix.
	ProjectionMatrix() [16]float32

	// ViewProjectionMatrix returns projection · view.
	//
	// Returns:
	//   - [16]float32: column-major view-projection matrix
	ViewProjectionMatrix() [16]float32
}

var _ Camera = &cameraImpl{}

// NewCamera creates a new Camera with a 45° field of view, aspect 1, near 0.1 and far 1000,
// positioned at the origin looking down -Z.
//
// Parameters:
//   - options: functional options to configure the camera
//
// Returns:
//   - Camera: the newly created camera
func NewCamera(options ...CameraBuilderOption) Camera {
	b := &cameraBuilder{
		fov:    common.DegToRad(45),
		aspect: 1,
		near:   0.1,
		far:    1000,
		target: [3]float32{0, 0, -1},
		up:     [3]float32{0, 1, 0},
	}
	for _, option := range options {
		option(b)
	}

	placement := NewPlacement()
	placement.SetUp(b.up[0], b.up[1], b.up[2])
	placement.Set(b.position, b.target)

	c := &cameraImpl{
		mu:         &sync.Mutex{},
		placement:  placement,
		projection: NewProjection(b.fov, b.aspect, b.near, b.far),
	}
	if b.controller != nil {
		c.SetController(b.controller)
	}
	return c
}

func (c *cameraImpl) Placement() Placement {
	return c.placement
}

func (c *cameraImpl) Projection() Projection {
	return c.projection
}

func (c *cameraImpl) Controller() CameraController {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.controller
}

func (c *cameraImpl) SetController(ctrl CameraController) {
	c.mu.Lock()
	c.controller = ctrl
	c.mu.Unlock()
	c.placement.SetTargetFunc(nil)
	if ctrl != nil {
		ctrl.Attach(c.placement)
	}
}

func (c *cameraImpl) Update(dt float32) {
	if ctrl := c.Controller(); ctrl != nil {
		ctrl.Update(dt)
	}
}

func (c *cameraImpl) Position() [3]float32 {
	return c.placement.Position()
}

func (c *cameraImpl) SetAspect(aspect float32) {
	c.projection.SetAspect(aspect)
}

func (c *cameraImpl) CameraMatrix() [16]float32 {
	return c.placement.CameraMatrix()
}

func (c *cameraImpl) ViewMatrix() [16]float32 {
	cm := c.placement.CameraMatrix()
	var view [16]float32
	if !common.Invert4(view[:], cm[:]) {
		common.Identity(view[:])
	}
	return view
}

func (c *cameraImpl) ProjectionMatrix() [16]float32 {
	return c.projection.Matrix()
}

func (c *cameraImpl) ViewProjectionMatrix() [16]float32 {
	view := c.ViewMatrix()
	proj := c.projection.Matrix()
	var vp [16]float32
	common.Mul4(vp[:], proj[:], view[:])
	return vp
}
