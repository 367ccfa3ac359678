package camera

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-terrain/common"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const eps = 1e-3

func assertMatrix(t *testing.T, want mgl32.Mat4, got [16]float32) {
	t.Helper()
	for i := range got {
		assert.InDeltaf(t, want[i], got[i], eps, "element %d", i)
	}
}

func assertVec3(t *testing.T, want, got [3]float32) {
	t.Helper()
	for i := range got {
		assert.InDeltaf(t, want[i], got[i], eps, "component %d", i)
	}
}

func TestCameraViewIsInverseOfPlacement(t *testing.T) {
	c := NewCamera(
		WithFovDegrees(30),
		WithAspect(16.0/9.0),
		WithFar(1000),
		WithPosition(0, 300, 200),
		WithTarget(0, 0, 0),
	)

	wantView := mgl32.LookAtV(mgl32.Vec3{0, 300, 200}, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0})
	assertMatrix(t, wantView, c.ViewMatrix())

	wantProj := mgl32.Perspective(mgl32.DegToRad(30), 16.0/9.0, 0.1, 1000)
	assertMatrix(t, wantProj, c.ProjectionMatrix())
	assertMatrix(t, wantProj.Mul4(wantView), c.ViewProjectionMatrix())

	cm := c.CameraMatrix()
	assert.Equal(t, [3]float32{0, 300, 200}, common.Translation3(cm[:]))
	assert.Equal(t, [3]float32{0, 300, 200}, c.Position())
}

func TestCameraDefaults(t *testing.T) {
	c := NewCamera()
	p := c.Projection()
	assert.InDelta(t, math32.Pi/4, p.Fov(), eps)
	assert.Equal(t, float32(1), p.Aspect())
	assert.Equal(t, float32(0.1), p.Near())
	assert.Equal(t, float32(1000), p.Far())
	assert.Equal(t, [3]float32{0, 1, 0}, c.Placement().Up())
	assert.Nil(t, c.Controller())

	// Update without a controller is a no-op.
	c.Update(1)
	assert.Equal(t, [3]float32{}, c.Position())
}

func TestProjectionRecomputesOnlyOnChange(t *testing.T) {
	p := NewProjection(1, 1, 0.1, 100).(*projectionImpl)
	require.Equal(t, 1, p.rebuilds)

	p.SetFov(1)
	p.SetNear(0.1)
	p.SetAspect(0)
	p.SetAspect(-2)
	assert.Equal(t, 1, p.rebuilds)

	p.SetAspect(2)
	assert.Equal(t, 2, p.rebuilds)
	assertMatrix(t, mgl32.Perspective(1, 2, 0.1, 100), p.Matrix())
}

func TestPlacementSetUpNormalizes(t *testing.T) {
	p := NewPlacement()
	p.SetUp(0, 5, 0)
	assert.Equal(t, [3]float32{0, 1, 0}, p.Up())
}

func TestSpeed(t *testing.T) {
	assert.Equal(t, float32(0), Speed(0, 10, 10, 100))
	assert.InDelta(t, 19.59, Speed(9, 10, 10, 100), 0.01)

	prev := float32(-1)
	for d := 0; d < 10000; d += 7 {
		s := Speed(d, 10, 10, 100)
		assert.GreaterOrEqual(t, s, prev)
		assert.LessOrEqual(t, s, float32(100))
		prev = s
	}
	assert.Equal(t, float32(0), Speed(5, 0, 10, 100))
}

func TestFirstPersonDefaults(t *testing.T) {
	fp := NewFirstPersonController()
	assert.InDelta(t, -math32.Pi/2, fp.Yaw(), eps)
	assert.Equal(t, float32(0), fp.Pitch())
	assertVec3(t, [3]float32{0, 0, -1}, fp.Forward())
	assertVec3(t, [3]float32{1, 0, 0}, fp.Right())
	for _, k := range movementKeys {
		assert.Equal(t, 0, fp.HoldTicks(k))
	}
}

func TestFirstPersonAttachDerivesOrientation(t *testing.T) {
	fp := NewFirstPersonController()
	c := NewCamera(WithPosition(0, 0, 10), WithTarget(10, 0, 10), WithController(fp))

	assert.InDelta(t, 0, fp.Yaw(), eps)
	assertVec3(t, [3]float32{1, 0, 0}, fp.Forward())
	assertVec3(t, [3]float32{1, 0, 10}, c.Placement().Target())
}

func TestFirstPersonMovementRampsAndResets(t *testing.T) {
	fp := NewFirstPersonController()
	c := NewCamera(WithPosition(0, 0, 10), WithTarget(0, 0, 0), WithController(fp))

	fp.KeyDown(common.KeyW)
	c.Update(1)
	assert.Equal(t, 1, fp.HoldTicks(common.KeyW))
	first := 10 - c.Position()[2]
	assert.InDelta(t, Speed(1, 10, 10, 100), first, eps)

	c.Update(1)
	c.Update(1)
	assert.Equal(t, 3, fp.HoldTicks(common.KeyW))
	assert.Greater(t, 10-c.Position()[2], 3*first)

	fp.KeyUp(common.KeyW)
	assert.Equal(t, 0, fp.HoldTicks(common.KeyW))
	before := c.Position()
	c.Update(1)
	assert.Equal(t, before, c.Position())
}

func TestFirstPersonFollowsPlacementMoves(t *testing.T) {
	fp := NewFirstPersonController()
	c := NewCamera(WithPosition(0, 0, 10), WithTarget(0, 0, 0), WithController(fp))

	c.Placement().SetPosition(50, 0, 10)
	assertVec3(t, [3]float32{50, 0, 10}, c.Position())
	assertVec3(t, [3]float32{50, 0, 9}, c.Placement().Target())

	c.Update(0.016)
	assertVec3(t, [3]float32{50, 0, 10}, c.Position())

	fp.KeyDown(common.KeyW)
	c.Update(1)
	assertVec3(t, [3]float32{50, 0, 10 - Speed(1, 10, 10, 100)}, c.Position())

	// A swapped-out controller no longer steers the target.
	c.SetController(nil)
	c.Placement().SetPosition(0, 0, 0)
	assertVec3(t, [3]float32{50, 0, 9 - Speed(1, 10, 10, 100)}, c.Placement().Target())
}

func TestFirstPersonStrafeAndVertical(t *testing.T) {
	fp := NewFirstPersonController()
	c := NewCamera(WithController(fp))

	fp.KeyDown(common.KeyD)
	fp.KeyDown(common.KeySpace)
	c.Update(0.5)
	pos := c.Position()
	assert.InDelta(t, Speed(1, 10, 10, 100)*0.5, pos[0], eps)
	assert.InDelta(t, 5, pos[1], eps)

	fp.KeyUp(common.KeyD)
	fp.KeyUp(common.KeySpace)
	fp.KeyDown(common.KeyLeftShift)
	c.Update(0.5)
	assert.InDelta(t, 0, c.Position()[1], eps)
}

func TestFirstPersonPitchClamp(t *testing.T) {
	fp := NewFirstPersonController()
	limit := math32.Pi/2 - PitchLimit

	fp.Look(0, -1e9)
	assert.InDelta(t, limit, fp.Pitch(), 1e-6)
	fp.Look(0, 1e9)
	assert.InDelta(t, -limit, fp.Pitch(), 1e-6)

	for _, dy := range []float32{123, -9876, 0.5, 1e6, -3} {
		fp.Look(17, dy)
		assert.LessOrEqual(t, math32.Abs(fp.Pitch()), limit)
	}
}

func TestFirstPersonMouseDrag(t *testing.T) {
	fp := NewFirstPersonController()
	yaw := fp.Yaw()

	fp.MouseDown(common.MouseButtonRight, 0, 0)
	fp.MouseMove(100, 0)
	assert.Equal(t, yaw, fp.Yaw())

	fp.MouseDown(common.MouseButtonLeft, 0, 0)
	fp.MouseMove(100, 50)
	assert.InDelta(t, yaw+0.2, fp.Yaw(), 1e-5)
	assert.InDelta(t, -0.1, fp.Pitch(), 1e-5)

	fp.MouseUp(common.MouseButtonLeft, 100, 50)
	fp.MouseMove(300, 50)
	assert.InDelta(t, yaw+0.2, fp.Yaw(), 1e-5)
}

func TestFirstPersonPointerLock(t *testing.T) {
	fp := NewFirstPersonController()
	yaw := fp.Yaw()

	fp.PointerMove(100, 0)
	assert.Equal(t, yaw, fp.Yaw())

	fp.PointerLock(true)
	fp.PointerMove(100, 0)
	assert.InDelta(t, yaw+0.2, fp.Yaw(), 1e-5)

	fp.MouseDown(common.MouseButtonLeft, 0, 0)
	fp.PointerLock(false)
	fp.MouseMove(500, 0)
	assert.InDelta(t, yaw+0.2, fp.Yaw(), 1e-5)
}

func TestFirstPersonSetTarget(t *testing.T) {
	fp := NewFirstPersonController()
	fp.SetTarget(0, 1, 0)
	assert.InDelta(t, math32.Pi/2-PitchLimit, fp.Pitch(), 1e-6)

	fp.SetTarget(-5, 0, 0)
	assert.InDelta(t, 0, fp.Pitch(), eps)
	assert.InDelta(t, math32.Pi, math32.Abs(fp.Yaw()), eps)

	// Looking at the eye itself keeps the orientation.
	yaw := fp.Yaw()
	fp.SetTarget(0, 0, 0)
	assert.Equal(t, yaw, fp.Yaw())
}

func TestOrbitAttachPreservesPlacement(t *testing.T) {
	oc := NewOrbitController()
	c := NewCamera(WithPosition(0, 50, 100), WithTarget(0, 0, 0), WithController(oc))

	assert.InDelta(t, math32.Sqrt(50*50+100*100), oc.Radius(), eps)
	assert.InDelta(t, 0, oc.Azimuth(), eps)
	assertVec3(t, [3]float32{0, 50, 100}, c.Position())
	assertVec3(t, [3]float32{}, oc.Target())
}

func TestOrbitZoomClamps(t *testing.T) {
	oc := NewOrbitController(WithRadiusBounds(10, 500), WithZoomSpeed(1))
	c := NewCamera(WithPosition(0, 100, 100), WithTarget(0, 0, 0), WithController(oc))

	r := oc.Radius()
	oc.Scroll(5)
	assert.InDelta(t, r-5, oc.Radius(), eps)
	assert.InDelta(t, oc.Radius(), common.Length3(c.Position()), eps)

	oc.Zoom(1e6)
	assert.Equal(t, float32(10), oc.Radius())
	oc.Zoom(-1e6)
	assert.Equal(t, float32(500), oc.Radius())
}

func TestOrbitKeysAndPan(t *testing.T) {
	oc := NewOrbitController(WithOrbitSpeed(0.1))
	c := NewCamera(WithPosition(0, 100, 100), WithTarget(0, 0, 0), WithController(oc))

	az := oc.Azimuth()
	oc.KeyDown(common.KeyD)
	c.Update(0.016)
	assert.InDelta(t, az+0.1, oc.Azimuth(), 1e-5)
	oc.KeyUp(common.KeyD)
	c.Update(0.016)
	assert.InDelta(t, az+0.1, oc.Azimuth(), 1e-5)

	r := oc.Radius()
	oc.PanUp(10)
	assert.InDelta(t, r, oc.Radius(), eps)
	assert.Greater(t, oc.Target()[1], float32(0))
	assertVec3(t, oc.Target(), c.Placement().Target())
}

func TestControllerSwap(t *testing.T) {
	c := NewCamera(WithPosition(0, 100, 100), WithTarget(0, 0, 0), WithController(NewFirstPersonController()))
	position, target := c.Position(), c.Placement().Target()

	oc := NewOrbitController(WithRadiusBounds(0.5, 2000))
	c.SetController(oc)
	assert.Equal(t, CameraController(oc), c.Controller())
	assert.InDelta(t, 1, oc.Radius(), eps)
	assertVec3(t, position, c.Position())
	assertVec3(t, target, c.Placement().Target())
}
