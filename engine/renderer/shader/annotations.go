// annotations.go defines the annotation types and parser for the Oxy shader pre-processor.
// Annotations are single-line comments prefixed with @oxy: that splice shared chunks into
// GLSL or WGSL sources and generate WGSL resource declarations.
package shader

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// annotationPrefix is the marker that identifies an Oxy annotation within a comment line.
// Every annotation must appear on a line beginning with "//" followed by this prefix.
const annotationPrefix = "//@oxy:"

// AnnotationType identifies the kind of annotation parsed from a comment line.
type AnnotationType string

const (
	// AnnotationTypeInclude injects a registered chunk at the annotation site. Chunks are
	// keyed by file name, so GLSL and WGSL variants of the same chunk can coexist.
	//
	// Syntax: //@oxy:include <chunk>
	//
	// Example: //@oxy:include lighting.glsl
	AnnotationTypeInclude AnnotationType = "include"

	// AnnotationTypeBindingGroup generates a WGSL @group/@binding variable declaration.
	//
	// Syntax: //@oxy:group <group> <binding> <address_space> <var_name> <type>
	//
	// Example: //@oxy:group 0 0 uniform scene SceneUniforms
	AnnotationTypeBindingGroup AnnotationType = "group"
)

// AnnotationArg is a typed string used as an annotation argument.
type AnnotationArg string

const (
	// AnnotationArgUniform maps to var<uniform> in WGSL.
	AnnotationArgUniform AnnotationArg = "uniform"

	// AnnotationArgHandle maps to a plain var, used for textures and samplers.
	AnnotationArgHandle AnnotationArg = "handle"
)

// validAddressSpaces lists the address space arguments accepted in @oxy:group annotations.
var validAddressSpaces = []AnnotationArg{
	AnnotationArgUniform,
	AnnotationArgHandle,
}

// Annotation is a single parsed @oxy: annotation.
type Annotation struct {
	// Type identifies which annotation was parsed.
	Type AnnotationType

	// Args holds the annotation's arguments. The contents depend on Type:
	//   - include: [0] = chunk name
	//   - group:   [0] = address space, [1] = var name, [2] = WGSL type
	Args []AnnotationArg

	// Line is the 1-based source line the annotation was found on.
	Line int

	// Group and Binding are set for group annotations only.
	Group   int
	Binding int
}

// parseAnnotation attempts to parse a single source line as an @oxy: annotation.
// Returns nil with no error for lines that do not start with the annotation prefix.
//
// Parameters:
//   - line: the raw source line to parse
//   - lineNum: the 1-based line number for error reporting
//
// Returns:
//   - *Annotation: the parsed annotation, or nil if the line is not an annotation
//   - error: a descriptive error if the annotation is malformed
func parseAnnotation(line string, lineNum int) (*Annotation, error) {
	after, ok := strings.CutPrefix(strings.TrimSpace(line), annotationPrefix)
	if !ok {
		return nil, nil
	}

	args := strings.Fields(after)
	if len(args) == 0 {
		return nil, fmt.Errorf("line %d: empty @oxy annotation", lineNum)
	}

	switch AnnotationType(args[0]) {
	case AnnotationTypeInclude:
		if len(args) != 2 {
			return nil, fmt.Errorf("line %d: @oxy include annotation requires exactly one argument", lineNum)
		}
		return &Annotation{
			Type: AnnotationTypeInclude,
			Args: []AnnotationArg{AnnotationArg(args[1])},
			Line: lineNum,
		}, nil
	case AnnotationTypeBindingGroup:
		if len(args) != 6 {
			return nil, fmt.Errorf("line %d: @oxy group annotation requires five arguments (group, binding, address space, name, type)", lineNum)
		}
		group, err := strconv.Atoi(args[1])
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid group number %q in @oxy group annotation: %v", lineNum, args[1], err)
		}
		binding, err := strconv.Atoi(args[2])
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid binding number %q in @oxy group annotation: %v", lineNum, args[2], err)
		}
		if !slices.Contains(validAddressSpaces, AnnotationArg(args[3])) {
			return nil, fmt.Errorf("line %d: unknown address space %q in @oxy group annotation", lineNum, args[3])
		}
		return &Annotation{
			Type:    AnnotationTypeBindingGroup,
			Args:    []AnnotationArg{AnnotationArg(args[3]), AnnotationArg(args[4]), AnnotationArg(args[5])},
			Line:    lineNum,
			Group:   group,
			Binding: binding,
		}, nil
	default:
		return nil, fmt.Errorf("line %d: unknown @oxy annotation type %q", lineNum, args[0])
	}
}
