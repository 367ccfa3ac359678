package camera

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-terrain/common"
)

type projectionImpl struct {
	mu *sync.Mutex

	fov    float32
	aspect float32
	near   float32
	far    float32

	matrix   [16]float32
	rebuilds int
}

// Projection owns the perspective parameters of a camera.
// The projection matrix is recomputed only when one of them actually changes.
type Projection interface {
	// Fov returns the vertical field of view in radians.
	Fov() float32

	// Aspect returns the aspect ratio (width / height).
	Aspect() float32

	// Near returns the near clipping plane distance.
	Near() float32

	// Far returns the far clipping plane distance.
	Far() float32

	// SetFov sets the vertical field of view in radians.
	SetFov(fov float32)

	// SetAspect sets the aspect ratio. Non-positive values are ignored.
	SetAspect(aspect float32)

	// SetNear sets the near clipping plane distance.
	SetNear(near float32)

	// SetFar sets the far clipping plane distance.
	SetFar(far float32)

	// Matrix returns the projection matrix.
	//
	// Returns:
	//   - [16]float32: column-major perspective matrix
	Matrix() [16]float32
}

var _ Projection = &projectionImpl{}

// NewProjection creates a Projection and computes its matrix.
//
// Parameters:
//   - fov: vertical field of view in radians
//   - aspect: width / height
//   - near: near clipping plane distance
//   - far: far clipping plane distance
//
// Returns:
//   - Projection: the new projection
func NewProjection(fov, aspect, near, far float32) Projection {
	p := &projectionImpl{
		mu:     &sync.Mutex{},
		fov:    fov,
		aspect: aspect,
		near:   near,
		far:    far,
	}
	p.rebuild()
	return p
}

func (p *projectionImpl) Fov() float32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fov
}

func (p *projectionImpl) Aspect() float32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.aspect
}

func (p *projectionImpl) Near() float32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.near
}

func (p *projectionImpl) Far() float32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.far
}

func (p *projectionImpl) SetFov(fov float32) {
	p.set(&p.fov, fov)
}

func (p *projectionImpl) SetAspect(aspect float32) {
	if aspect <= 0 {
		return
	}
	p.set(&p.aspect, aspect)
}

func (p *projectionImpl) SetNear(near float32) {
	p.set(&p.near, near)
}

func (p *projectionImpl) SetFar(far float32) {
	p.set(&p.far, far)
}

func (p *projectionImpl) Matrix() [16]float32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.matrix
}

func (p *projectionImpl) set(field *float32, v float32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if *field == v {
		return
	}
	*field = v
	p.rebuild()
}

// rebuild recomputes the projection matrix. Caller must hold the mutex.
func (p *projectionImpl) rebuild() {
	common.Perspective(p.matrix[:], p.fov, p.aspect, p.near, p.far)
	p.rebuilds++
}
