package uniform

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type setterCall struct {
	setter string
	loc    Location
	ints   int32
	floats []float32
}

type fakeBinder struct {
	declared map[string]Location
	lookups  map[string]int
	calls    []setterCall
}

func newFakeBinder(names ...string) *fakeBinder {
	b := &fakeBinder{declared: map[string]Location{}, lookups: map[string]int{}}
	for i, n := range names {
		b.declared[n] = Location(i)
	}
	return b
}

func (b *fakeBinder) UniformLocation(_ ProgramID, name string) Location {
	b.lookups[name]++
	if loc, ok := b.declared[name]; ok {
		return loc
	}
	return NoLocation
}

func (b *fakeBinder) record(setter string, loc Location, v []float32) {
	b.calls = append(b.calls, setterCall{setter: setter, loc: loc, floats: append([]float32(nil), v...)})
}

func (b *fakeBinder) Uniform1i(loc Location, v int32) {
	b.calls = append(b.calls, setterCall{setter: "1i", loc: loc, ints: v})
}
func (b *fakeBinder) Uniform1f(loc Location, v float32)          { b.record("1f", loc, []float32{v}) }
func (b *fakeBinder) Uniform2fv(loc Location, v []float32)       { b.record("2fv", loc, v) }
func (b *fakeBinder) Uniform3fv(loc Location, v []float32)       { b.record("3fv", loc, v) }
func (b *fakeBinder) Uniform4fv(loc Location, v []float32)       { b.record("4fv", loc, v) }
func (b *fakeBinder) UniformMatrix3fv(loc Location, v []float32) { b.record("m3", loc, v) }
func (b *fakeBinder) UniformMatrix4fv(loc Location, v []float32) { b.record("m4", loc, v) }

func (b *fakeBinder) find(loc Location) []setterCall {
	var out []setterCall
	for _, c := range b.calls {
		if c.loc == loc {
			out = append(out, c)
		}
	}
	return out
}

func TestResolveDispatchesByShape(t *testing.T) {
	b := newFakeBinder("u_int", "u_float", "u_vec2", "u_vec3", "u_vec4", "u_mat3", "u_mat4", "u_bool")
	r := NewResolver(b)
	r.SetUniforms(Values{
		"u_int":   Int(3),
		"u_float": Float(0.5),
		"u_vec2":  Vec(1, 2),
		"u_vec3":  Literal([3]float32{1, 2, 3}),
		"u_vec4":  Literal([]float64{1, 2, 3, 4}),
		"u_mat3":  Vec(make([]float32, 9)...),
		"u_mat4":  Literal([16]float32{}),
		"u_bool":  Literal(true),
	})

	require.NoError(t, r.Resolve(1))
	expect := map[Location]string{0: "1i", 1: "1f", 2: "2fv", 3: "3fv", 4: "4fv", 5: "m3", 6: "m4", 7: "1i"}
	for loc, setter := range expect {
		calls := b.find(loc)
		require.Len(t, calls, 1)
		assert.Equal(t, setter, calls[0].setter, "location %d", loc)
	}
	assert.Equal(t, int32(3), b.find(0)[0].ints)
	assert.Equal(t, []float32{1, 2, 3, 4}, b.find(4)[0].floats)
	assert.Equal(t, int32(1), b.find(7)[0].ints)
}

func TestResolveProducersReevaluatedEveryBind(t *testing.T) {
	b := newFakeBinder("u_color")
	r := NewResolver(b)

	x := float32(0.4)
	r.SetUniforms(Values{
		"u_color": Components(Producer(func() any { return x }), Float(0), Float(0), Float(1)),
	})

	require.NoError(t, r.Resolve(1))
	x = 0.9
	require.NoError(t, r.Resolve(1))

	calls := b.find(0)
	require.Len(t, calls, 2)
	assert.Equal(t, []float32{0.4, 0, 0, 1}, calls[0].floats)
	assert.Equal(t, []float32{0.9, 0, 0, 1}, calls[1].floats)
}

func TestResolveTopLevelProducer(t *testing.T) {
	b := newFakeBinder("u_time", "u_offset")
	r := NewResolver(b)
	n := 0
	r.SetUniforms(Values{
		"u_time": Producer(func() any { n++; return float32(n) }),
		"u_offset": Producer(func() any {
			return []Value{Float(1), Producer(func() any { return 2 })}
		}),
	})

	require.NoError(t, r.Resolve(1))
	require.NoError(t, r.Resolve(1))
	calls := b.find(0)
	require.Len(t, calls, 2)
	assert.Equal(t, []float32{1}, calls[0].floats)
	assert.Equal(t, []float32{2}, calls[1].floats)
	assert.Equal(t, []float32{1, 2}, b.find(1)[0].floats)
}

func TestResolveCachesMissingLocations(t *testing.T) {
	b := newFakeBinder("u_present")
	r := NewResolver(b)
	r.SetUniforms(Values{"u_present": Float(1), "u_absent": Float(2)})

	require.NoError(t, r.Resolve(7))
	require.NoError(t, r.Resolve(7))
	assert.Equal(t, 1, b.lookups["u_absent"])
	assert.Equal(t, 1, b.lookups["u_present"])
	assert.Len(t, b.calls, 2)

	// A second program has its own cache.
	require.NoError(t, r.Resolve(8))
	assert.Equal(t, 2, b.lookups["u_absent"])

	r.Forget(7)
	require.NoError(t, r.Resolve(7))
	assert.Equal(t, 3, b.lookups["u_absent"])
}

func TestResolveSkipsBadEntries(t *testing.T) {
	var buf bytes.Buffer
	b := newFakeBinder("u_bad", "u_good", "u_panic")
	r := NewResolver(b, WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))
	r.SetUniforms(Values{
		"u_bad":   Vec(1, 2, 3, 4, 5),
		"u_good":  Float(1),
		"u_panic": Producer(func() any { panic("boom") }),
	})

	err := r.Resolve(1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedUniformShape)
	assert.ErrorIs(t, err, ErrProducerPanic)

	var shapeErr *ShapeError
	require.True(t, errors.As(err, &shapeErr))
	assert.Equal(t, 5, shapeErr.Len)

	require.Len(t, b.calls, 1)
	assert.Equal(t, Location(1), b.calls[0].loc)
	assert.Contains(t, buf.String(), "u_bad")
	assert.Contains(t, buf.String(), "u_panic")
}

func TestSetUniformsReplacesWholesale(t *testing.T) {
	b := newFakeBinder("a", "b")
	r := NewResolver(b, WithUniforms(Values{"a": Float(1)}))
	r.SetUniforms(Values{"b": Float(2)})
	assert.NotContains(t, r.Uniforms(), "a")

	require.NoError(t, r.Resolve(1))
	require.Len(t, b.calls, 1)
	assert.Equal(t, Location(1), b.calls[0].loc)
}

func TestInfer(t *testing.T) {
	cases := []struct {
		in    any
		shape Shape
	}{
		{int32(1), ShapeInt},
		{7, ShapeInt},
		{uint8(2), ShapeInt},
		{float32(1.5), ShapeFloat},
		{2.0, ShapeFloat},
		{[]int{1, 2}, ShapeVec2},
		{[3]float64{}, ShapeVec3},
		{[]any{1, float32(2), 3.0, 4}, ShapeVec4},
		{make([]float32, 9), ShapeMat3},
		{make([]float32, 16), ShapeMat4},
	}
	for _, c := range cases {
		r, err := Infer(c.in)
		require.NoError(t, err, "%T", c.in)
		assert.Equal(t, c.shape, r.Shape, "%T", c.in)
	}

	for _, bad := range []any{nil, "text", []float32{1}, make([]float32, 5), []string{"a", "b"}} {
		_, err := Infer(bad)
		assert.ErrorIs(t, err, ErrUnsupportedUniformShape, "%#v", bad)
	}
}

func TestInferRejectsIntegersOutsideInt32(t *testing.T) {
	for _, in := range []any{int64(1) << 40, int64(-1) << 40, uint32(1) << 31, uint64(1) << 63} {
		_, err := Infer(in)
		var shapeErr *ShapeError
		require.ErrorAs(t, err, &shapeErr, "%T", in)
		assert.True(t, shapeErr.OutOfRange)
		assert.ErrorIs(t, err, ErrUnsupportedUniformShape)
	}

	r, err := Infer(int64(-2147483648))
	require.NoError(t, err)
	assert.Equal(t, int32(-2147483648), r.Int)

	r, err = Infer(uint64(2147483647))
	require.NoError(t, err)
	assert.Equal(t, int32(2147483647), r.Int)
}

func TestMerge(t *testing.T) {
	base := Values{"a": Float(1), "b": Float(1)}
	merged := Merge(base, Values{"b": Float(2)}, Values{"c": Float(3)})
	assert.Len(t, merged, 3)
	lit, err := Resolve(merged["b"])
	require.NoError(t, err)
	assert.Equal(t, float32(2), lit)

	lit, err = Resolve(base["b"])
	require.NoError(t, err)
	assert.Equal(t, float32(1), lit)
}
