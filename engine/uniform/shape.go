package uniform

import (
	"errors"
	"fmt"
	"math"
	"reflect"
)

// ErrUnsupportedUniformShape is returned when a resolved value has no matching uniform setter.
var ErrUnsupportedUniformShape = errors.New("unsupported uniform shape")

// ErrProducerPanic is returned when a producer panics during resolution.
var ErrProducerPanic = errors.New("uniform producer panicked")

// Shape is the wire type a resolved value is bound as.
type Shape int

const (
	ShapeInt Shape = iota
	ShapeFloat
	ShapeVec2
	ShapeVec3
	ShapeVec4
	ShapeMat3
	ShapeMat4
)

func (s Shape) String() string {
	switch s {
	case ShapeInt:
		return "int"
	case ShapeFloat:
		return "float"
	case ShapeVec2:
		return "vec2"
	case ShapeVec3:
		return "vec3"
	case ShapeVec4:
		return "vec4"
	case ShapeMat3:
		return "mat3"
	case ShapeMat4:
		return "mat4"
	}
	return fmt.Sprintf("Shape(%d)", int(s))
}

// ShapeError describes a value whose type or length has no uniform setter, or an integer
// that does not fit the int setter.
type ShapeError struct {
	Type       string
	Len        int
	OutOfRange bool
}

func (e *ShapeError) Error() string {
	if e.OutOfRange {
		return fmt.Sprintf("%s: %s outside the int32 range", ErrUnsupportedUniformShape, e.Type)
	}
	if e.Len >= 0 {
		return fmt.Sprintf("%s: %s of length %d", ErrUnsupportedUniformShape, e.Type, e.Len)
	}
	return fmt.Sprintf("%s: %s", ErrUnsupportedUniformShape, e.Type)
}

func (e *ShapeError) Unwrap() error { return ErrUnsupportedUniformShape }

// Resolved is a literal after shape inference, ready for a typed setter.
type Resolved struct {
	Shape Shape
	Int   int32
	Float float32
	Data  []float32
}

// Infer classifies a literal by its Go type: integer and boolean kinds bind as int,
// float kinds bind as float, numeric sequences bind by length
// (16 = mat4, 9 = mat3, 2/3/4 = vector).
//
// Parameters:
//   - v: a resolved literal
//
// Returns:
//   - Resolved: the typed value
//   - error: a *ShapeError when no setter matches
func Infer(v any) (Resolved, error) {
	switch t := v.(type) {
	case int32:
		return Resolved{Shape: ShapeInt, Int: t}, nil
	case bool:
		if t {
			return Resolved{Shape: ShapeInt, Int: 1}, nil
		}
		return Resolved{Shape: ShapeInt}, nil
	case float32:
		return Resolved{Shape: ShapeFloat, Float: t}, nil
	case float64:
		return Resolved{Shape: ShapeFloat, Float: float32(t)}, nil
	case []float32:
		return inferSequence(t, fmt.Sprintf("%T", v))
	case nil:
		return Resolved{}, &ShapeError{Type: "nil", Len: -1}
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int64:
		n := rv.Int()
		if n < math.MinInt32 || n > math.MaxInt32 {
			return Resolved{}, &ShapeError{Type: fmt.Sprintf("%T", v), Len: -1, OutOfRange: true}
		}
		return Resolved{Shape: ShapeInt, Int: int32(n)}, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n := rv.Uint()
		if n > math.MaxInt32 {
			return Resolved{}, &ShapeError{Type: fmt.Sprintf("%T", v), Len: -1, OutOfRange: true}
		}
		return Resolved{Shape: ShapeInt, Int: int32(n)}, nil
	case reflect.Slice, reflect.Array:
		data := make([]float32, rv.Len())
		for i := range data {
			el := rv.Index(i)
			for el.Kind() == reflect.Interface && !el.IsNil() {
				el = el.Elem()
			}
			if !isNumeric(el.Kind()) {
				return Resolved{}, &ShapeError{Type: fmt.Sprintf("%T", v), Len: rv.Len()}
			}
			data[i] = float32(toFloat(el))
		}
		return inferSequence(data, fmt.Sprintf("%T", v))
	}
	return Resolved{}, &ShapeError{Type: fmt.Sprintf("%T", v), Len: -1}
}

func inferSequence(data []float32, typ string) (Resolved, error) {
	var shape Shape
	switch len(data) {
	case 16:
		shape = ShapeMat4
	case 9:
		shape = ShapeMat3
	case 4:
		shape = ShapeVec4
	case 3:
		shape = ShapeVec3
	case 2:
		shape = ShapeVec2
	default:
		return Resolved{}, &ShapeError{Type: typ, Len: len(data)}
	}
	return Resolved{Shape: shape, Data: data}, nil
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func toFloat(rv reflect.Value) float64 {
	switch {
	case rv.CanInt():
		return float64(rv.Int())
	case rv.CanUint():
		return float64(rv.Uint())
	case rv.CanFloat():
		return rv.Float()
	}
	return 0
}
