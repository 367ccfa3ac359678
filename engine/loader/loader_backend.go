package loader

import "io"

// loaderBackend decodes one model file format into a Model.
type loaderBackend interface {
	// Load imports a model file.
	//
	// Parameters:
	//   - path: the file path; the base name without extension names the model
	//
	// Returns:
	//   - *Model: the imported model
	//   - error: error if loading fails
	Load(path string) (*Model, error)

	// LoadReader imports a model from a stream.
	//
	// Parameters:
	//   - name: the model name, used to prefix its mesh templates
	//   - r: the reader providing model data
	//   - isGLB: true if the reader provides GLB binary data
	//
	// Returns:
	//   - *Model: the imported model
	//   - error: error if loading fails
	LoadReader(name string, r io.Reader, isGLB bool) (*Model, error)
}
