package uniform

import "maps"

// Kind tags the variant held by a Value.
type Kind int

const (
	// KindLiteral holds a concrete scalar, vector or matrix.
	KindLiteral Kind = iota
	// KindProducer holds a zero-argument function evaluated at every bind.
	KindProducer
	// KindComponents holds a sequence whose elements are resolved individually.
	KindComponents
)

// Value is a shader input: either a literal, a producer evaluated at bind time,
// or a sequence of component Values (for example a vec4 whose first component
// follows a slider while the rest stay constant).
//
// The zero Value is a literal nil and fails shape inference.
type Value struct {
	kind       Kind
	literal    any
	producer   func() any
	components []Value
}

// Values maps a shader input name to its value.
type Values map[string]Value

// Literal wraps a concrete value. Accepted shapes are Go integer, boolean and float
// scalars, plus numeric slices or arrays of length 2, 3, 4, 9 or 16.
//
// Parameters:
//   - v: the literal value
//
// Returns:
//   - Value: a literal Value
func Literal(v any) Value {
	return Value{kind: KindLiteral, literal: v}
}

// Producer wraps a function that is invoked every time the value is bound.
// The function may return any literal shape, another Value or a []Value.
//
// Parameters:
//   - fn: the producer function
//
// Returns:
//   - Value: a producer Value
func Producer(fn func() any) Value {
	return Value{kind: KindProducer, producer: fn}
}

// Components builds a sequence Value whose elements are resolved one by one.
// Each element must resolve to a numeric scalar.
//
// Parameters:
//   - vs: the component values in order
//
// Returns:
//   - Value: a component sequence Value
func Components(vs ...Value) Value {
	return Value{kind: KindComponents, components: vs}
}

// Int is shorthand for Literal(int32(v)).
func Int(v int) Value { return Literal(int32(v)) }

// Float is shorthand for Literal(v).
func Float(v float32) Value { return Literal(v) }

// Vec is shorthand for a literal float vector or matrix. The slice is copied.
func Vec(v ...float32) Value { return Literal(append([]float32(nil), v...)) }

// Kind reports which variant v holds.
func (v Value) Kind() Kind { return v.kind }

// Merge returns a new map containing every entry of base followed by each layer in order.
// Later layers override earlier ones on key collision.
//
// Parameters:
//   - base: the lowest-priority values
//   - layers: higher-priority values, applied in order
//
// Returns:
//   - Values: the merged map
func Merge(base Values, layers ...Values) Values {
	n := len(base)
	for _, l := range layers {
		n += len(l)
	}
	out := make(Values, n)
	maps.Copy(out, base)
	for _, l := range layers {
		maps.Copy(out, l)
	}
	return out
}
