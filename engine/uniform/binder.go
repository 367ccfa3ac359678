package uniform

// ProgramID identifies a linked shader program within a Binder.
type ProgramID uint32

// Location is a shader input slot inside a program.
type Location int32

// NoLocation marks a name the program does not declare.
const NoLocation Location = -1

// Binder is the typed setter table a graphics backend exposes for shader inputs.
// Setters apply to the program most recently made current by the backend.
type Binder interface {
	// UniformLocation looks up a shader input by name.
	//
	// Parameters:
	//   - program: the program to query
	//   - name: the shader input name
	//
	// Returns:
	//   - Location: the slot, or NoLocation if the program has no such input
	UniformLocation(program ProgramID, name string) Location

	Uniform1i(loc Location, v int32)
	Uniform1f(loc Location, v float32)
	Uniform2fv(loc Location, v []float32)
	Uniform3fv(loc Location, v []float32)
	Uniform4fv(loc Location, v []float32)
	UniformMatrix3fv(loc Location, v []float32)
	UniformMatrix4fv(loc Location, v []float32)
}

// bind dispatches a resolved value to the setter matching its shape.
func bind(b Binder, loc Location, r Resolved) {
	switch r.Shape {
	case ShapeInt:
		b.Uniform1i(loc, r.Int)
	case ShapeFloat:
		b.Uniform1f(loc, r.Float)
	case ShapeVec2:
		b.Uniform2fv(loc, r.Data)
	case ShapeVec3:
		b.Uniform3fv(loc, r.Data)
	case ShapeVec4:
		b.Uniform4fv(loc, r.Data)
	case ShapeMat3:
		b.UniformMatrix3fv(loc, r.Data)
	case ShapeMat4:
		b.UniformMatrix4fv(loc, r.Data)
	}
}
