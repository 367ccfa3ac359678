package common

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const eps = 1e-4

func assertMat4(t *testing.T, want mgl32.Mat4, got []float32) {
	t.Helper()
	require.Len(t, got, 16)
	for i := range want {
		assert.InDeltaf(t, want[i], got[i], eps, "element %d", i)
	}
}

func TestMul4MatchesMathgl(t *testing.T) {
	a := mgl32.Translate3D(1, 2, 3).Mul4(mgl32.HomogRotate3DY(0.7))
	b := mgl32.Scale3D(2, 3, 4).Mul4(mgl32.HomogRotate3DX(-0.3))

	out := make([]float32, 16)
	Mul4(out, a[:], b[:])
	assertMat4(t, a.Mul4(b), out)
}

func TestMul4Aliasing(t *testing.T) {
	a := mgl32.Translate3D(5, 0, 0)
	b := mgl32.HomogRotate3DZ(math32.Pi / 2)
	want := a.Mul4(b)

	left := a
	Mul4(left[:], left[:], b[:])
	assertMat4(t, want, left[:])

	right := b
	Mul4(right[:], a[:], right[:])
	assertMat4(t, want, right[:])
}

func TestInvert4(t *testing.T) {
	m := mgl32.Translate3D(3, -2, 7).Mul4(mgl32.HomogRotate3DX(1.1)).Mul4(mgl32.Scale3D(2, 2, 0.5))
	out := make([]float32, 16)
	require.True(t, Invert4(out, m[:]))
	assertMat4(t, m.Inv(), out)

	id := make([]float32, 16)
	Mul4(id, m[:], out)
	assertMat4(t, mgl32.Ident4(), id)
}

func TestInvert4Singular(t *testing.T) {
	out := NewIdentity()
	zero := make([]float32, 16)
	assert.False(t, Invert4(out, zero))
	assertMat4(t, mgl32.Ident4(), out)
}

func TestTranspose4(t *testing.T) {
	m := mgl32.Translate3D(1, 2, 3).Mul4(mgl32.HomogRotate3DY(0.4))
	out := make([]float32, 16)
	Transpose4(out, m[:])
	assertMat4(t, m.Transpose(), out)

	Transpose4(out, out)
	assertMat4(t, m, out)
}

func TestPerspectiveMatchesMathgl(t *testing.T) {
	fov := float32(30) * math32.Pi / 180
	out := make([]float32, 16)
	Perspective(out, fov, 16.0/9.0, 0.1, 1000)
	assertMat4(t, mgl32.Perspective(fov, 16.0/9.0, 0.1, 1000), out)
}

func TestLookAtIsInverseOfViewMatrix(t *testing.T) {
	eye := [3]float32{0, 300, 200}
	target := [3]float32{0, 0, 0}
	up := [3]float32{0, 1, 0}

	cam := make([]float32, 16)
	LookAt(cam, eye, target, up)
	assert.Equal(t, eye, Translation3(cam))

	view := make([]float32, 16)
	require.True(t, Invert4(view, cam))
	want := mgl32.LookAtV(mgl32.Vec3(eye), mgl32.Vec3(target), mgl32.Vec3(up))
	assertMat4(t, want, view)
}

func TestFromRotationTranslationScale(t *testing.T) {
	q := QuatFromEuler(0.3, -0.8, 1.2)
	v := [3]float32{4, 5, 6}
	s := [3]float32{2, 1, 0.5}

	out := make([]float32, 16)
	FromRotationTranslationScale(out, q, v, s)

	rot := mgl32.HomogRotate3DZ(1.2).Mul4(mgl32.HomogRotate3DY(-0.8)).Mul4(mgl32.HomogRotate3DX(0.3))
	want := mgl32.Translate3D(4, 5, 6).Mul4(rot).Mul4(mgl32.Scale3D(2, 1, 0.5))
	assertMat4(t, want, out)
}

func TestRotateThenTranslateOrder(t *testing.T) {
	parent := make([]float32, 16)
	FromRotationTranslationScale(parent, QuatFromEuler(0, 0, math32.Pi/2), [3]float32{}, [3]float32{1, 1, 1})
	child := make([]float32, 16)
	Translation(child, [3]float32{100, 0, 0})

	world := make([]float32, 16)
	Mul4(world, parent, child)
	got := Translation3(world)
	assert.InDelta(t, 0, got[0], eps)
	assert.InDelta(t, 100, got[1], eps)
	assert.InDelta(t, 0, got[2], eps)
}

func TestQuatFromEulerZ(t *testing.T) {
	q := QuatFromEuler(0, 0, math32.Pi/2)
	out := make([]float32, 16)
	FromRotationTranslationScale(out, q, [3]float32{}, [3]float32{1, 1, 1})
	assertMat4(t, mgl32.HomogRotate3DZ(math32.Pi/2), out)
	assert.Equal(t, [4]float32{0, 0, 0, 1}, QuatIdentity())
}

func TestNormalize3(t *testing.T) {
	assert.Equal(t, [3]float32{}, Normalize3([3]float32{}))
	assert.Equal(t, [3]float32{}, Normalize3([3]float32{1e-7, 0, 0}))

	n := Normalize3([3]float32{3, 0, 4})
	assert.InDelta(t, 0.6, n[0], eps)
	assert.InDelta(t, 0.8, n[2], eps)
	assert.InDelta(t, 1, Length3(n), eps)
}

func TestVectorHelpers(t *testing.T) {
	a := [3]float32{1, 2, 3}
	b := [3]float32{4, 5, 6}
	assert.Equal(t, [3]float32{5, 7, 9}, Add3(a, b))
	assert.Equal(t, [3]float32{-3, -3, -3}, Sub3(a, b))
	assert.Equal(t, [3]float32{2, 4, 6}, Scale3(a, 2))
	assert.Equal(t, [3]float32{9, 12, 15}, ScaleAndAdd3(a, b, 2))
	assert.Equal(t, [3]float32{0, 0, 1}, Cross3([3]float32{1, 0, 0}, [3]float32{0, 1, 0}))
}

func TestClampAndCoalesce(t *testing.T) {
	assert.Equal(t, float32(1), Clamp(5, -1, 1))
	assert.Equal(t, float32(-1), Clamp(-5, -1, 1))
	assert.Equal(t, float32(0.5), Clamp(0.5, -1, 1))
	assert.Equal(t, "b", Coalesce("", "b", "c"))
	assert.Equal(t, 0, Coalesce(0, 0))
}
