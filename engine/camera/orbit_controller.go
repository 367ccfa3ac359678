package camera

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-terrain/common"
	"github.com/chewxy/math32"
)

// orbitController circles a pivot point using spherical coordinates and pans both the
// eye and the pivot along the camera's local axes.
type orbitController struct {
	mu *sync.Mutex

	placement Placement

	position [3]float32
	target   [3]float32

	radius    float32
	azimuth   float32 // around the Y axis, 0 = +Z
	elevation float32 // from the horizontal plane

	minRadius    float32
	maxRadius    float32
	minElevation float32
	maxElevation float32

	orbitSpeed       float32
	mouseSensitivity float32
	zoomSpeed        float32
	panSpeed         float32

	keys    map[common.Key]bool
	buttons map[common.MouseButton]bool
	locked  bool
	lastX   float32
	lastY   float32
}

// OrbitController is a CameraController for inspecting a scene from outside: A/D orbit
// around the pivot, W/S tilt, Q/E and the scroll wheel zoom, left drag rotates and
// middle drag pans.
type OrbitController interface {
	CameraController

	// Radius returns the distance from the pivot.
	Radius() float32

	// Azimuth returns the horizontal angle in radians.
	Azimuth() float32

	// Elevation returns the vertical angle in radians.
	Elevation() float32

	// Target returns the pivot point.
	Target() [3]float32

	// SetTarget moves the pivot and recomputes the eye position.
	SetTarget(x, y, z float32)

	// Zoom changes the radius by delta·zoomSpeed. Positive delta moves closer.
	Zoom(delta float32)

	// PanRight moves eye and pivot along the local right axis.
	PanRight(delta float32)

	// PanUp moves eye and pivot along the local up axis.
	PanUp(delta float32)
}

var _ OrbitController = &orbitController{}

func (cc *orbitController) Attach(p Placement) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.placement = p
	if p == nil {
		return
	}
	cc.target = p.Target()
	offset := common.Sub3(p.Position(), cc.target)
	if r := common.Length3(offset); r > 0 {
		cc.radius = r
		cc.azimuth = math32.Atan2(offset[0], offset[2])
		cc.elevation = math32.Asin(common.Clamp(offset[1]/r, -1, 1))
	}
	cc.clamp()
	cc.updatePosition()
}

func (cc *orbitController) Update(float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	if cc.keys[common.KeyA] {
		cc.azimuth -= cc.orbitSpeed
	}
	if cc.keys[common.KeyD] {
		cc.azimuth += cc.orbitSpeed
	}
	if cc.keys[common.KeyW] {
		cc.elevation += cc.orbitSpeed
	}
	if cc.keys[common.KeyS] {
		cc.elevation -= cc.orbitSpeed
	}
	if cc.keys[common.KeyQ] {
		cc.radius -= cc.zoomSpeed
	}
	if cc.keys[common.KeyE] {
		cc.radius += cc.zoomSpeed
	}
	cc.clamp()
	cc.updatePosition()
}

func (cc *orbitController) KeyDown(key common.Key) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.keys[key] = true
}

func (cc *orbitController) KeyUp(key common.Key) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	delete(cc.keys, key)
}

func (cc *orbitController) MouseDown(button common.MouseButton, x, y float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.buttons[button] = true
	cc.lastX, cc.lastY = x, y
}

func (cc *orbitController) MouseUp(button common.MouseButton, _, _ float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	delete(cc.buttons, button)
}

func (cc *orbitController) MouseMove(x, y float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	dx, dy := x-cc.lastX, y-cc.lastY
	cc.lastX, cc.lastY = x, y
	switch {
	case cc.buttons[common.MouseButtonLeft]:
		cc.rotate(dx, dy)
	case cc.buttons[common.MouseButtonMiddle]:
		cc.pan(-dx, dy)
	}
}

func (cc *orbitController) PointerMove(dx, dy float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	if cc.locked {
		cc.rotate(dx, dy)
	}
}

func (cc *orbitController) PointerLock(locked bool) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.locked = locked
	if !locked {
		clear(cc.buttons)
	}
}

func (cc *orbitController) Scroll(dy float32) {
	cc.Zoom(dy)
}

func (cc *orbitController) Zoom(delta float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.radius -= delta * cc.zoomSpeed
	cc.clamp()
	cc.updatePosition()
}

func (cc *orbitController) PanRight(delta float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.pan(delta, 0)
}

func (cc *orbitController) PanUp(delta float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.pan(0, delta)
}

func (cc *orbitController) SetTarget(x, y, z float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.target = [3]float32{x, y, z}
	cc.updatePosition()
}

func (cc *orbitController) Radius() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.radius
}

func (cc *orbitController) Azimuth() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.azimuth
}

func (cc *orbitController) Elevation() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.elevation
}

func (cc *orbitController) Target() [3]float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.target
}

// rotate applies a drag delta in pixels. Caller must hold the mutex.
func (cc *orbitController) rotate(dx, dy float32) {
	cc.azimuth -= dx * cc.mouseSensitivity
	cc.elevation += dy * cc.mouseSensitivity
	cc.clamp()
	cc.updatePosition()
}

// pan shifts eye and pivot along the local right and up axes. Caller must hold the mutex.
func (cc *orbitController) pan(right, up float32) {
	back := common.Normalize3(common.Sub3(cc.position, cc.target))
	r := common.Normalize3(common.Cross3(worldUp, back))
	u := common.Cross3(back, r)
	offset := common.Add3(common.Scale3(r, right*cc.panSpeed), common.Scale3(u, up*cc.panSpeed))
	cc.target = common.Add3(cc.target, offset)
	cc.position = common.Add3(cc.position, offset)
	cc.apply()
}

// clamp keeps radius and elevation inside their bounds. Caller must hold the mutex.
func (cc *orbitController) clamp() {
	cc.radius = common.Clamp(cc.radius, cc.minRadius, cc.maxRadius)
	cc.elevation = common.Clamp(cc.elevation, cc.minElevation, cc.maxElevation)
}

// updatePosition recomputes the eye from the spherical coordinates. Caller must hold the mutex.
func (cc *orbitController) updatePosition() {
	sinElev, cosElev := math32.Sincos(cc.elevation)
	sinAzim, cosAzim := math32.Sincos(cc.azimuth)
	cc.position = [3]float32{
		cc.target[0] + cc.radius*cosElev*sinAzim,
		cc.target[1] + cc.radius*sinElev,
		cc.target[2] + cc.radius*cosElev*cosAzim,
	}
	cc.apply()
}

func (cc *orbitController) apply() {
	if cc.placement != nil {
		cc.placement.Set(cc.position, cc.target)
	}
}
