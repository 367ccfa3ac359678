package camera

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-terrain/common"
	"github.com/chewxy/math32"
)

// PitchLimit is how far pitch stays away from straight up or down, in radians.
const PitchLimit = 0.001

var worldUp = [3]float32{0, 1, 0}

// movementKeys are the keys whose hold duration ramps movement speed.
var movementKeys = [...]common.Key{common.KeyW, common.KeyS, common.KeyA, common.KeyD}

type firstPersonController struct {
	mu *sync.Mutex

	placement Placement
	position  [3]float32

	yaw     float32
	pitch   float32
	forward [3]float32
	right   [3]float32

	baseSpeed        float32
	maxSpeed         float32
	accelerationRate float32
	mouseSensitivity float32

	keys      map[common.Key]bool
	holdTicks map[common.Key]int

	mouseDown bool
	locked    bool
	lastX     float32
	lastY     float32
}

// FirstPersonController is a CameraController for free flight: W/S move along the view
// direction, A/D strafe, Space and Left Shift move vertically, and the mouse looks around.
type FirstPersonController interface {
	CameraController

	// Yaw returns the horizontal angle in radians.
	Yaw() float32

	// Pitch returns the vertical angle in radians, always within ±(π/2 - PitchLimit).
	Pitch() float32

	// Forward returns the unit view direction.
	Forward() [3]float32

	// Right returns the unit strafe direction.
	Right() [3]float32

	// HoldTicks returns how many updates key has been held for.
	HoldTicks(key common.Key) int

	// Look rotates the view by a mouse delta in pixels: yaw += dx·sensitivity, pitch -= dy·sensitivity.
	//
	// Parameters:
	//   - dx, dy: mouse delta in pixels
	Look(dx, dy float32)

	// SetTarget points the camera at (x, y, z) and derives yaw and pitch from the direction.
	SetTarget(x, y, z float32)

	// SetPosition moves the eye, keeping the view direction.
	SetPosition(x, y, z float32)
}

var _ FirstPersonController = &firstPersonController{}

// Speed returns the movement speed after holding a key for ticks updates:
// min(base · min(log10(ticks·accel + 1), max/base), max).
//
// Parameters:
//   - ticks: hold duration counter
//   - base: base speed in units per second
//   - accel: acceleration rate
//   - limit: speed cap in units per second
//
// Returns:
//   - float32: the speed in units per second
func Speed(ticks int, base, accel, limit float32) float32 {
	if base <= 0 {
		return 0
	}
	ramp := math32.Min(math32.Log10(float32(ticks)*accel+1), limit/base)
	return math32.Min(base*ramp, limit)
}

func (c *firstPersonController) Attach(p Placement) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.placement = p
	if p == nil {
		return
	}
	c.position = p.Position()
	c.orientTowards(p.Target())
	c.updateVectors()
	p.SetTargetFunc(c.follow)
}

// follow keeps the target in front of an eye moved through the placement.
func (c *firstPersonController) follow(position [3]float32) [3]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.position = position
	return common.Add3(position, c.forward)
}

// sync reads the eye back from the attached placement. Caller must hold the mutex.
func (c *firstPersonController) sync() {
	if c.placement != nil {
		c.position = c.placement.Position()
	}
}

func (c *firstPersonController) Update(dt float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sync()

	var movement [3]float32
	if c.keys[common.KeyW] {
		movement = common.ScaleAndAdd3(movement, c.forward, c.calculateSpeed(common.KeyW)*dt)
	}
	if c.keys[common.KeyS] {
		movement = common.ScaleAndAdd3(movement, c.forward, -c.calculateSpeed(common.KeyS)*dt)
	}
	if c.keys[common.KeyD] {
		movement = common.ScaleAndAdd3(movement, c.right, c.calculateSpeed(common.KeyD)*dt)
	}
	if c.keys[common.KeyA] {
		movement = common.ScaleAndAdd3(movement, c.right, -c.calculateSpeed(common.KeyA)*dt)
	}

	vertical := c.baseSpeed * dt
	if c.keys[common.KeySpace] {
		movement[1] += vertical
	}
	if c.keys[common.KeyLeftShift] {
		movement[1] -= vertical
	}

	c.position = common.Add3(c.position, movement)
	c.apply()
}

// calculateSpeed advances the hold counter of key and returns its ramped speed.
// Caller must hold the mutex.
func (c *firstPersonController) calculateSpeed(key common.Key) float32 {
	c.holdTicks[key]++
	return Speed(c.holdTicks[key], c.baseSpeed, c.accelerationRate, c.maxSpeed)
}

func (c *firstPersonController) KeyDown(key common.Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.keys[key] = true
}

func (c *firstPersonController) KeyUp(key common.Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.keys, key)
	if _, ok := c.holdTicks[key]; ok {
		c.holdTicks[key] = 0
	}
}

func (c *firstPersonController) MouseDown(button common.MouseButton, x, y float32) {
	if button != common.MouseButtonLeft {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mouseDown = true
	c.lastX, c.lastY = x, y
}

func (c *firstPersonController) MouseUp(button common.MouseButton, _, _ float32) {
	if button != common.MouseButtonLeft {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mouseDown = false
}

func (c *firstPersonController) MouseMove(x, y float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.mouseDown || c.locked {
		return
	}
	c.look(x-c.lastX, y-c.lastY)
	c.lastX, c.lastY = x, y
}

func (c *firstPersonController) PointerMove(dx, dy float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.locked {
		return
	}
	c.look(dx, dy)
}

func (c *firstPersonController) PointerLock(locked bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.locked = locked
	if !locked {
		c.mouseDown = false
	}
}

func (c *firstPersonController) Scroll(float32) {}

func (c *firstPersonController) Look(dx, dy float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.look(dx, dy)
}

// look applies a mouse delta and clamps pitch. Caller must hold the mutex.
func (c *firstPersonController) look(dx, dy float32) {
	c.sync()
	c.yaw += dx * c.mouseSensitivity
	c.pitch -= dy * c.mouseSensitivity
	c.clampPitch()
	c.updateVectors()
}

func (c *firstPersonController) clampPitch() {
	limit := math32.Pi/2 - PitchLimit
	c.pitch = common.Clamp(c.pitch, -limit, limit)
}

func (c *firstPersonController) SetTarget(x, y, z float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sync()
	c.orientTowards([3]float32{x, y, z})
	c.updateVectors()
}

func (c *firstPersonController) SetPosition(x, y, z float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.position = [3]float32{x, y, z}
	c.updateVectors()
}

// orientTowards derives yaw and pitch from the direction to target.
// A target at the eye position keeps the current orientation. Caller must hold the mutex.
func (c *firstPersonController) orientTowards(target [3]float32) {
	dir := common.Normalize3(common.Sub3(target, c.position))
	if dir == [3]float32{} {
		return
	}
	c.pitch = math32.Asin(common.Clamp(dir[1], -1, 1))
	c.yaw = math32.Atan2(dir[2], dir[0])
	c.clampPitch()
}

// updateVectors derives forward and right from yaw and pitch, moves the target in front
// of the eye and rebuilds the camera matrix. Caller must hold the mutex.
func (c *firstPersonController) updateVectors() {
	sinYaw, cosYaw := math32.Sincos(c.yaw)
	sinPitch, cosPitch := math32.Sincos(c.pitch)
	c.forward = common.Normalize3([3]float32{cosPitch * cosYaw, sinPitch, cosPitch * sinYaw})
	c.right = common.Normalize3(common.Cross3(c.forward, worldUp))
	c.apply()
}

// apply writes position and target to the attached placement. Caller must hold the mutex.
func (c *firstPersonController) apply() {
	if c.placement == nil {
		return
	}
	c.placement.Set(c.position, common.Add3(c.position, c.forward))
}

func (c *firstPersonController) Yaw() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.yaw
}

func (c *firstPersonController) Pitch() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pitch
}

func (c *firstPersonController) Forward() [3]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.forward
}

func (c *firstPersonController) Right() [3]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.right
}

func (c *firstPersonController) HoldTicks(key common.Key) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.holdTicks[key]
}
