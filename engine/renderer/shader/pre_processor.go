package shader

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"path"
	"slices"
	"strings"
)

// maxIncludeDepth bounds nested includes so a chunk that includes itself fails instead of looping.
const maxIncludeDepth = 8

type preProcessor struct {
	chunks map[string]string

	// declarations accumulates group annotations during a Process call.
	declarations []Annotation
}

// PreProcessor expands @oxy: annotations in GLSL or WGSL sources. Include annotations are
// replaced with registered chunks (which may include further chunks) and group annotations
// with generated WGSL declarations.
type PreProcessor interface {
	// Process expands every annotation in source.
	//
	// Parameters:
	//   - source: shader source text
	//
	// Returns:
	//   - string: the expanded source
	//   - error: an error naming the line of a malformed annotation or unknown chunk
	Process(source string) (string, error)

	// Declarations returns the group annotations collected by the most recent Process call,
	// in source order.
	Declarations() []Annotation

	// Chunks returns the sorted names of every registered chunk.
	Chunks() []string
}

var _ PreProcessor = &preProcessor{}

// NewPreProcessor creates a PreProcessor with the given chunks registered by name.
//
// Parameters:
//   - chunks: chunk sources keyed by the name include annotations use
//
// Returns:
//   - PreProcessor: a ready-to-use pre-processor
func NewPreProcessor(chunks map[string]string) PreProcessor {
	return &preProcessor{chunks: maps.Clone(chunks)}
}

// NewPreProcessorFS registers every file under dir in fsys as a chunk named by its base name.
//
// Parameters:
//   - fsys: the file system holding the chunks
//   - dir: the directory to read; a missing directory yields no chunks
//
// Returns:
//   - PreProcessor: the pre-processor
//   - error: an error if a chunk cannot be read
func NewPreProcessorFS(fsys fs.FS, dir string) (PreProcessor, error) {
	chunks := make(map[string]string)
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read chunk dir %q: %w", dir, err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data, err := fs.ReadFile(fsys, path.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read chunk %q: %w", e.Name(), err)
		}
		chunks[e.Name()] = string(data)
	}
	return NewPreProcessor(chunks), nil
}

func (p *preProcessor) Process(source string) (string, error) {
	p.declarations = p.declarations[:0]
	return p.expand(source, 0)
}

func (p *preProcessor) expand(source string, depth int) (string, error) {
	if depth > maxIncludeDepth {
		return "", fmt.Errorf("@oxy:include nested deeper than %d", maxIncludeDepth)
	}

	lines := strings.Split(source, "\n")
	out := make([]string, 0, len(lines))
	for i, line := range lines {
		a, err := parseAnnotation(line, i+1)
		if err != nil {
			return "", err
		}
		if a == nil {
			out = append(out, line)
			continue
		}

		switch a.Type {
		case AnnotationTypeInclude:
			chunk, ok := p.chunks[string(a.Args[0])]
			if !ok {
				return "", fmt.Errorf("line %d: unknown @oxy:include chunk %q", a.Line, a.Args[0])
			}
			expanded, err := p.expand(chunk, depth+1)
			if err != nil {
				return "", fmt.Errorf("chunk %q: %w", a.Args[0], err)
			}
			out = append(out, expanded)
		case AnnotationTypeBindingGroup:
			decl := "var"
			if a.Args[0] == AnnotationArgUniform {
				decl = "var<uniform>"
			}
			out = append(out, fmt.Sprintf("@group(%d) @binding(%d) %s %s: %s;", a.Group, a.Binding, decl, a.Args[1], a.Args[2]))
			p.declarations = append(p.declarations, *a)
		}
	}
	return strings.Join(out, "\n"), nil
}

func (p *preProcessor) Declarations() []Annotation {
	return p.declarations
}

func (p *preProcessor) Chunks() []string {
	return slices.Sorted(maps.Keys(p.chunks))
}
