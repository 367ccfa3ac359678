package uniform

import (
	"log/slog"
	"sync"
)

// ResolverBuilderOption is a functional option for configuring a Resolver during construction.
type ResolverBuilderOption func(*resolver)

// WithLogger overrides the engine logger for per-entry binding failures.
//
// Parameters:
//   - l: the logger to report to
//
// Returns:
//   - ResolverBuilderOption: functional option to set the logger
func WithLogger(l *slog.Logger) ResolverBuilderOption {
	return func(r *resolver) {
		r.logger = l
	}
}

// WithUniforms sets the initial active map.
//
// Parameters:
//   - values: the initial shader inputs
//
// Returns:
//   - ResolverBuilderOption: functional option to set the active map
func WithUniforms(values Values) ResolverBuilderOption {
	return func(r *resolver) {
		r.values = values
	}
}

// NewResolver creates a Resolver that binds through binder.
// Panics if binder is nil.
//
// Parameters:
//   - binder: the backend setter table
//   - options: variadic list of ResolverBuilderOption functions
//
// Returns:
//   - Resolver: the newly created resolver
func NewResolver(binder Binder, options ...ResolverBuilderOption) Resolver {
	if binder == nil {
		panic("uniform: NewResolver requires a non-nil Binder")
	}
	r := &resolver{
		mu:        &sync.Mutex{},
		binder:    binder,
		values:    Values{},
		locations: make(map[ProgramID]map[string]Location),
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}
