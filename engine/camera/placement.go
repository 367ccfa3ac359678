package camera

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-terrain/common"
)

type placementImpl struct {
	mu *sync.Mutex

	position [3]float32
	target   [3]float32
	up       [3]float32

	targetFunc func(position [3]float32) [3]float32

	cameraMatrix [16]float32
}

// Placement owns where a camera is and what it looks at.
// Every setter rebuilds the camera matrix immediately.
type Placement interface {
	// Position returns the eye position in world space.
	Position() [3]float32

	// Target returns the look-at point in world space.
	Target() [3]float32

	// Up returns the up vector used to build the camera basis.
	Up() [3]float32

	// SetPosition moves the eye. The target is kept unless a target func is set, in which
	// case the target is derived from the new position.
	SetPosition(x, y, z float32)

	// SetTarget moves the look-at point, keeping the eye.
	SetTarget(x, y, z float32)

	// SetUp sets the up vector. The vector is normalized.
	SetUp(x, y, z float32)

	// Set moves both eye and look-at point with a single matrix rebuild.
	//
	// Parameters:
	//   - position: the eye position
	//   - target: the look-at point
	Set(position, target [3]float32)

	// SetTargetFunc installs fn to derive the target whenever SetPosition moves the eye.
	// fn is called without the placement lock held. A nil fn restores the plain behavior.
	//
	// Parameters:
	//   - fn: maps a new eye position to its target, or nil
	SetTargetFunc(fn func(position [3]float32) [3]float32)

	// CameraMatrix returns the camera's world transform (the inverse of the view matrix).
	//
	// Returns:
	//   - [16]float32: column-major camera matrix
	CameraMatrix() [16]float32
}

var _ Placement = &placementImpl{}

// NewPlacement creates a Placement at the origin looking down -Z with +Y up.
//
// Returns:
//   - Placement: the new placement
func NewPlacement() Placement {
	p := &placementImpl{
		mu:     &sync.Mutex{},
		target: [3]float32{0, 0, -1},
		up:     [3]float32{0, 1, 0},
	}
	p.rebuild()
	return p
}

func (p *placementImpl) Position() [3]float32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.position
}

func (p *placementImpl) Target() [3]float32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.target
}

func (p *placementImpl) Up() [3]float32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.up
}

func (p *placementImpl) SetPosition(x, y, z float32) {
	position := [3]float32{x, y, z}
	p.mu.Lock()
	fn := p.targetFunc
	p.mu.Unlock()

	if fn != nil {
		target := fn(position)
		p.Set(position, target)
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.position = position
	p.rebuild()
}

func (p *placementImpl) SetTarget(x, y, z float32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.target = [3]float32{x, y, z}
	p.rebuild()
}

func (p *placementImpl) SetUp(x, y, z float32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.up = common.Normalize3([3]float32{x, y, z})
	p.rebuild()
}

func (p *placementImpl) Set(position, target [3]float32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.position = position
	p.target = target
	p.rebuild()
}

func (p *placementImpl) SetTargetFunc(fn func(position [3]float32) [3]float32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.targetFunc = fn
}

func (p *placementImpl) CameraMatrix() [16]float32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cameraMatrix
}

// rebuild recomputes the camera matrix. Caller must hold the mutex.
func (p *placementImpl) rebuild() {
	common.LookAt(p.cameraMatrix[:], p.position, p.target, p.up)
}
