package shader

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
)

// File extensions Load looks for.
const (
	ExtVertex   = ".vert"
	ExtFragment = ".frag"
	ExtWGSL     = ".wgsl"
)

// ErrNoSource is returned when a program has neither a GLSL pair nor a WGSL file.
var ErrNoSource = errors.New("shader: no source")

// Source holds one program in every language the backends accept. The OpenGL backend
// links Vertex and Fragment; the WebGPU backend compiles WGSL.
type Source struct {
	Name     string
	Vertex   string
	Fragment string
	WGSL     string
}

// HasGLSL reports whether both GLSL stages are present.
func (s Source) HasGLSL() bool {
	return s.Vertex != "" && s.Fragment != ""
}

// HasWGSL reports whether a WGSL program is present.
func (s Source) HasWGSL() bool {
	return s.WGSL != ""
}

// Load reads program name from dir in fsys: name.vert and name.frag for OpenGL, name.wgsl
// for WebGPU. Missing files are skipped; every file found is run through pp when pp is
// non-nil.
//
// Parameters:
//   - fsys: the file system holding the sources
//   - dir: the directory inside fsys
//   - name: the program name, also the file base name
//   - pp: optional pre-processor
//
// Returns:
//   - Source: the loaded program
//   - error: ErrNoSource when nothing usable was found, or a read or pre-processing error
func Load(fsys fs.FS, dir, name string, pp PreProcessor) (Source, error) {
	src := Source{Name: name}
	targets := []struct {
		ext string
		dst *string
	}{
		{ExtVertex, &src.Vertex},
		{ExtFragment, &src.Fragment},
		{ExtWGSL, &src.WGSL},
	}
	for _, t := range targets {
		file := path.Join(dir, name+t.ext)
		data, err := fs.ReadFile(fsys, file)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return Source{}, fmt.Errorf("read %s: %w", file, err)
		}
		text := string(data)
		if pp != nil {
			if text, err = pp.Process(text); err != nil {
				return Source{}, fmt.Errorf("%s: %w", file, err)
			}
		}
		*t.dst = text
	}
	if !src.HasGLSL() && !src.HasWGSL() {
		return Source{}, fmt.Errorf("%w for program %q in %q", ErrNoSource, name, dir)
	}
	return src, nil
}
