package common

import (
	"unsafe"

	"github.com/chewxy/math32"
)

// normalizeEpsilon is the length below which Normalize3 yields the zero vector.
const normalizeEpsilon = 1e-5

// Identity resets a 4x4 matrix (flat slice) to the identity matrix.
// The matrix is stored in column-major order.
//
// Parameters:
//   - m: destination slice (must be at least 16 elements)
func Identity(m []float32) {
	for i := range m[:16] {
		m[i] = 0
	}
	m[0], m[5], m[10], m[15] = 1, 1, 1, 1
}

// NewIdentity allocates a fresh 4x4 identity matrix.
//
// Returns:
//   - []float32: a 16 element column-major identity matrix
func NewIdentity() []float32 {
	m := make([]float32, 16)
	Identity(m)
	return m
}

// SliceToBytes converts any slice to a byte slice for GPU buffer uploads.
// WARNING: The returned slice shares memory with the input - do not modify.
//
// Parameters:
//   - data: source slice of any type
//
// Returns:
//   - []byte: byte slice view of the input data, or nil if input is empty
func SliceToBytes[T any](data []T) []byte {
	if len(data) == 0 {
		return nil
	}
	var zero T
	size := unsafe.Sizeof(zero)
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), int(size)*len(data))
}

// Mul4 multiplies two 4x4 matrices and stores the result in out.
// All matrices are stored in column-major order. out may alias a or b.
// Result: out = a * b
//
// Parameters:
//   - out: destination slice (must be at least 16 elements)
//   - a: left-hand matrix (16 elements)
//   - b: right-hand matrix (16 elements)
func Mul4(out, a, b []float32) {
	var buf [16]float32
	for i := 0; i < 4; i++ { // column of B
		for j := 0; j < 4; j++ { // row of A
			sum := float32(0)
			for k := 0; k < 4; k++ {
				sum += a[k*4+j] * b[i*4+k]
			}
			buf[i*4+j] = sum
		}
	}
	copy(out, buf[:])
}

// Transpose4 writes the transpose of m into out. out may alias m.
//
// Parameters:
//   - out: destination slice (must be at least 16 elements)
//   - m: source matrix (16 elements)
func Transpose4(out, m []float32) {
	var buf [16]float32
	for c := 0; c < 4; c++ {
		for r := 0; r < 4; r++ {
			buf[r*4+c] = m[c*4+r]
		}
	}
	copy(out, buf[:])
}

// Invert4 computes the inverse of a 4x4 column-major matrix using the Laplace
// expansion (cofactor) method. If the matrix is singular the output is left
// unchanged and the function returns false. out may alias m.
//
// Parameters:
//   - out: destination slice (must be at least 16 elements)
//   - m: source matrix (16 elements, column-major)
//
// Returns:
//   - bool: true if the matrix was successfully inverted, false if singular
func Invert4(out, m []float32) bool {
	s0 := m[0]*m[5] - m[4]*m[1]
	s1 := m[0]*m[6] - m[4]*m[2]
	s2 := m[0]*m[7] - m[4]*m[3]
	s3 := m[1]*m[6] - m[5]*m[2]
	s4 := m[1]*m[7] - m[5]*m[3]
	s5 := m[2]*m[7] - m[6]*m[3]

	c5 := m[10]*m[15] - m[14]*m[11]
	c4 := m[9]*m[15] - m[13]*m[11]
	c3 := m[9]*m[14] - m[13]*m[10]
	c2 := m[8]*m[15] - m[12]*m[11]
	c1 := m[8]*m[14] - m[12]*m[10]
	c0 := m[8]*m[13] - m[12]*m[9]

	det := s0*c5 - s1*c4 + s2*c3 + s3*c2 - s4*c1 + s5*c0
	if det == 0 {
		return false
	}
	inv := 1.0 / det

	var buf [16]float32
	buf[0] = (m[5]*c5 - m[6]*c4 + m[7]*c3) * inv
	buf[1] = (-m[1]*c5 + m[2]*c4 - m[3]*c3) * inv
	buf[2] = (m[13]*s5 - m[14]*s4 + m[15]*s3) * inv
	buf[3] = (-m[9]*s5 + m[10]*s4 - m[11]*s3) * inv

	buf[4] = (-m[4]*c5 + m[6]*c2 - m[7]*c1) * inv
	buf[5] = (m[0]*c5 - m[2]*c2 + m[3]*c1) * inv
	buf[6] = (-m[12]*s5 + m[14]*s2 - m[15]*s1) * inv
	buf[7] = (m[8]*s5 - m[10]*s2 + m[11]*s1) * inv

	buf[8] = (m[4]*c4 - m[5]*c2 + m[7]*c0) * inv
	buf[9] = (-m[0]*c4 + m[1]*c2 - m[3]*c0) * inv
	buf[10] = (m[12]*s4 - m[13]*s2 + m[15]*s0) * inv
	buf[11] = (-m[8]*s4 + m[9]*s2 - m[11]*s0) * inv

	buf[12] = (-m[4]*c3 + m[5]*c1 - m[6]*c0) * inv
	buf[13] = (m[0]*c3 - m[1]*c1 + m[2]*c0) * inv
	buf[14] = (-m[12]*s3 + m[13]*s1 - m[14]*s0) * inv
	buf[15] = (m[8]*s3 - m[9]*s1 + m[10]*s0) * inv

	copy(out, buf[:])
	return true
}

// Translation writes a pure translation matrix into out.
//
// Parameters:
//   - out: destination slice (must be at least 16 elements)
//   - v: translation vector
func Translation(out []float32, v [3]float32) {
	Identity(out)
	out[12], out[13], out[14] = v[0], v[1], v[2]
}

// Perspective creates a right-handed perspective projection matrix with an
// OpenGL clip-space depth range of [-1, 1].
//
// Parameters:
//   - out: destination slice (must be at least 16 elements)
//   - fovY: vertical field of view in radians
//   - aspect: viewport aspect ratio (width/height)
//   - near: near clipping plane distance
//   - far: far clipping plane distance
func Perspective(out []float32, fovY, aspect, near, far float32) {
	f := math32.Tan(math32.Pi*0.5 - 0.5*fovY)
	rangeInv := 1.0 / (near - far)
	Identity(out)

	out[0] = f / aspect
	out[5] = f
	out[10] = (near + far) * rangeInv
	out[11] = -1
	out[14] = near * far * rangeInv * 2
	out[15] = 0
}

// LookAt builds the camera (world) matrix for an eye at position looking at target.
// The basis is z = normalize(position - target), x = normalize(up × z), y = z × x
// with the translation column set to position. Invert the result to obtain a view matrix.
//
// Parameters:
//   - out: destination slice (must be at least 16 elements)
//   - position: eye position in world space
//   - target: point the camera looks at
//   - up: up vector, typically (0,1,0)
func LookAt(out []float32, position, target, up [3]float32) {
	z := Normalize3(Sub3(position, target))
	x := Normalize3(Cross3(up, z))
	y := Normalize3(Cross3(z, x))

	out[0], out[1], out[2], out[3] = x[0], x[1], x[2], 0
	out[4], out[5], out[6], out[7] = y[0], y[1], y[2], 0
	out[8], out[9], out[10], out[11] = z[0], z[1], z[2], 0
	out[12], out[13], out[14], out[15] = position[0], position[1], position[2], 1
}

// FromRotationTranslationScale composes a TRS matrix: scale innermost, then
// rotate by quaternion q (x, y, z, w), then translate by v.
//
// Parameters:
//   - out: destination slice (must be at least 16 elements)
//   - q: unit rotation quaternion
//   - v: translation
//   - s: per-axis scale
func FromRotationTranslationScale(out []float32, q [4]float32, v, s [3]float32) {
	x, y, z, w := q[0], q[1], q[2], q[3]
	x2, y2, z2 := x+x, y+y, z+z

	xx, xy, xz := x*x2, x*y2, x*z2
	yy, yz, zz := y*y2, y*z2, z*z2
	wx, wy, wz := w*x2, w*y2, w*z2

	out[0] = (1 - (yy + zz)) * s[0]
	out[1] = (xy + wz) * s[0]
	out[2] = (xz - wy) * s[0]
	out[3] = 0
	out[4] = (xy - wz) * s[1]
	out[5] = (1 - (xx + zz)) * s[1]
	out[6] = (yz + wx) * s[1]
	out[7] = 0
	out[8] = (xz + wy) * s[2]
	out[9] = (yz - wx) * s[2]
	out[10] = (1 - (xx + yy)) * s[2]
	out[11] = 0
	out[12] = v[0]
	out[13] = v[1]
	out[14] = v[2]
	out[15] = 1
}

// QuatIdentity returns the identity rotation quaternion (x, y, z, w).
func QuatIdentity() [4]float32 {
	return [4]float32{0, 0, 0, 1}
}

// QuatFromEuler builds a quaternion from Euler angles in radians, applied in X, Y, Z order.
//
// Parameters:
//   - x, y, z: rotation around each axis in radians
//
// Returns:
//   - [4]float32: the rotation quaternion (x, y, z, w)
func QuatFromEuler(x, y, z float32) [4]float32 {
	sx, cx := math32.Sincos(x * 0.5)
	sy, cy := math32.Sincos(y * 0.5)
	sz, cz := math32.Sincos(z * 0.5)

	return [4]float32{
		sx*cy*cz - cx*sy*sz,
		cx*sy*cz + sx*cy*sz,
		cx*cy*sz - sx*sy*cz,
		cx*cy*cz + sx*sy*sz,
	}
}

// Add3 returns a + b.
func Add3(a, b [3]float32) [3]float32 {
	return [3]float32{a[0] + b[0], a[1] + b[1], a[2] + b[2]}
}

// Sub3 returns a - b.
func Sub3(a, b [3]float32) [3]float32 {
	return [3]float32{a[0] - b[0], a[1] - b[1], a[2] - b[2]}
}

// Scale3 returns v * s.
func Scale3(v [3]float32, s float32) [3]float32 {
	return [3]float32{v[0] * s, v[1] * s, v[2] * s}
}

// ScaleAndAdd3 returns a + b*s.
func ScaleAndAdd3(a, b [3]float32, s float32) [3]float32 {
	return [3]float32{a[0] + b[0]*s, a[1] + b[1]*s, a[2] + b[2]*s}
}

// Cross3 returns the cross product a × b.
func Cross3(a, b [3]float32) [3]float32 {
	return [3]float32{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

// Length3 returns the Euclidean length of v.
func Length3(v [3]float32) float32 {
	return math32.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
}

// Normalize3 returns v scaled to unit length.
// Vectors shorter than 1e-5 normalize to the zero vector instead of NaN.
//
// Parameters:
//   - v: vector to normalize
//
// Returns:
//   - [3]float32: the unit vector, or (0,0,0) for a degenerate input
func Normalize3(v [3]float32) [3]float32 {
	l := Length3(v)
	if l <= normalizeEpsilon {
		return [3]float32{}
	}
	return [3]float32{v[0] / l, v[1] / l, v[2] / l}
}

// Translation3 reads the translation column of a 4x4 matrix.
func Translation3(m []float32) [3]float32 {
	return [3]float32{m[12], m[13], m[14]}
}

// Copy4 copies a 4x4 matrix from src into dst.
func Copy4(dst, src []float32) {
	copy(dst[:16], src[:16])
}

// DegToRad converts degrees to radians.
func DegToRad(deg float32) float32 {
	return deg * math32.Pi / 180
}
