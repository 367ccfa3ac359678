package uniform

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/Carmen-Shannon/oxy-terrain/common"
)

type resolver struct {
	mu        *sync.Mutex
	binder    Binder
	logger    *slog.Logger
	values    Values
	locations map[ProgramID]map[string]Location
}

// Resolver binds a map of shader inputs against a program through a Binder.
// Locations are cached per program, producers are evaluated on every Resolve.
type Resolver interface {
	// SetUniforms replaces the active map wholesale. Entries are not merged with the previous map.
	//
	// Parameters:
	//   - values: the new active map
	SetUniforms(values Values)

	// Uniforms returns the active map.
	//
	// Returns:
	//   - Values: the map set by the last SetUniforms call
	Uniforms() Values

	// Resolve binds every active entry against program. A failing entry is logged and
	// skipped; the remaining entries are still bound. Names the program does not
	// declare are cached and skipped silently.
	//
	// Parameters:
	//   - program: the program currently in use on the Binder
	//
	// Returns:
	//   - error: every per-entry failure joined, or nil
	Resolve(program ProgramID) error

	// Forget drops the cached locations of program, for example after it was relinked.
	//
	// Parameters:
	//   - program: the program whose cache to drop
	Forget(program ProgramID)
}

var _ Resolver = &resolver{}

// Resolve evaluates v down to a literal. Producers are invoked, a producer returning
// a Value or []Value is resolved in turn, and component sequences resolve each element.
//
// Parameters:
//   - v: the value to evaluate
//
// Returns:
//   - any: the literal
//   - error: ErrProducerPanic if a producer panicked, or a *ShapeError for a bad component
func Resolve(v Value) (any, error) {
	switch v.kind {
	case KindProducer:
		if v.producer == nil {
			return nil, &ShapeError{Type: "nil producer", Len: -1}
		}
		out, err := call(v.producer)
		if err != nil {
			return nil, err
		}
		switch t := out.(type) {
		case Value:
			return Resolve(t)
		case []Value:
			return Resolve(Components(t...))
		}
		return out, nil
	case KindComponents:
		data := make([]float32, len(v.components))
		for i, c := range v.components {
			lit, err := Resolve(c)
			if err != nil {
				return nil, err
			}
			r, err := Infer(lit)
			if err != nil {
				return nil, err
			}
			switch r.Shape {
			case ShapeInt:
				data[i] = float32(r.Int)
			case ShapeFloat:
				data[i] = r.Float
			default:
				return nil, &ShapeError{Type: "component " + r.Shape.String(), Len: len(r.Data)}
			}
		}
		return data, nil
	}
	return v.literal, nil
}

func call(fn func() any) (out any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrProducerPanic, r)
		}
	}()
	return fn(), nil
}

func (r *resolver) SetUniforms(values Values) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values = values
}

func (r *resolver) Uniforms() Values {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.values
}

func (r *resolver) Resolve(program ProgramID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cache, ok := r.locations[program]
	if !ok {
		cache = make(map[string]Location, len(r.values))
		r.locations[program] = cache
	}

	names := make([]string, 0, len(r.values))
	for name := range r.values {
		names = append(names, name)
	}
	slices.Sort(names)

	var errs []error
	for _, name := range names {
		loc, ok := cache[name]
		if !ok {
			loc = r.binder.UniformLocation(program, name)
			cache[name] = loc
		}
		if loc == NoLocation {
			continue
		}

		lit, err := Resolve(r.values[name])
		if err == nil {
			var res Resolved
			res, err = Infer(lit)
			if err == nil {
				bind(r.binder, loc, res)
				continue
			}
		}
		r.log().Warn("skipping uniform", "program", program, "name", name, "err", err)
		errs = append(errs, fmt.Errorf("uniform %q: %w", name, err))
	}
	return errors.Join(errs...)
}

func (r *resolver) Forget(program ProgramID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.locations, program)
}

func (r *resolver) log() *slog.Logger {
	if r.logger != nil {
		return r.logger
	}
	return common.Logger()
}
