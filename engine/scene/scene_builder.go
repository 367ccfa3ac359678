package scene

import (
	"context"
	"log/slog"

	"github.com/Carmen-Shannon/oxy-terrain/engine/camera"
)

// SceneBuilderOption is a functional option for configuring a Scene.
// Use the With* functions to create options.
type SceneBuilderOption func(s *scene)

// WithName sets the scene's identifier. Defaults to "default".
//
// Parameters:
//   - name: the scene name
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithName(name string) SceneBuilderOption {
	return func(s *scene) {
		s.name = name
	}
}

// WithActive sets whether the scene is active for rendering.
//
// Parameters:
//   - active: whether the scene is active
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithActive(active bool) SceneBuilderOption {
	return func(s *scene) {
		s.active = active
	}
}

// WithCamera registers a camera during construction. The first camera registered becomes
// the active one.
//
// Parameters:
//   - name: the camera name
//   - cam: the camera
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithCamera(name string, cam camera.Camera) SceneBuilderOption {
	return func(s *scene) {
		s.cameras[name] = cam
		if s.activeCamera == "" {
			s.activeCamera = name
		}
	}
}

// WithContext sets the context texture requests are made with. Cancelling it aborts
// in-flight downloads.
func WithContext(ctx context.Context) SceneBuilderOption {
	return func(s *scene) {
		s.ctx = ctx
	}
}

// WithLogger sets the logger for skipped instances and failed draws.
// Defaults to common.Logger().
func WithLogger(l *slog.Logger) SceneBuilderOption {
	return func(s *scene) {
		s.logger = l
	}
}
