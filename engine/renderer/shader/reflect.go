package shader

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
)

var (
	// ErrNoEntryPoint is returned when WGSL source lacks a @vertex or @fragment function.
	ErrNoEntryPoint = errors.New("wgsl: missing entry point")

	// ErrUnsupportedLayout is returned for resource declarations outside group 0, more than one
	// uniform block, or storage buffers.
	ErrUnsupportedLayout = errors.New("wgsl: unsupported resource layout")
)

// samplerSuffix pairs a sampler with the texture named by the rest of its variable name.
const samplerSuffix = "_sampler"

// Member is one field of a uniform block.
type Member struct {
	Name   string
	Type   string
	Offset uint64
	Size   uint64
}

// UniformBlock describes the single var<uniform> a program reads its inputs from.
// Each member name doubles as the shader input name.
type UniformBlock struct {
	Binding uint32
	Var     string
	Type    string
	Size    uint64
	Members []Member
}

// Member looks up a block member by name.
//
// Parameters:
//   - name: the member name
//
// Returns:
//   - Member: the member
//   - bool: false if the block has no such member
func (b UniformBlock) Member(name string) (Member, bool) {
	for _, m := range b.Members {
		if m.Name == name {
			return m, true
		}
	}
	return Member{}, false
}

// VertexInput is one @location input of the vertex entry point.
type VertexInput struct {
	Name       string
	Location   uint32
	Type       string
	Components int
}

// TextureBinding is a sampled texture and the sampler declared alongside it.
type TextureBinding struct {
	Name           string
	Binding        uint32
	SamplerBinding uint32
	HasSampler     bool
}

// Reflection is everything the WebGPU backend needs to know about a WGSL program.
type Reflection struct {
	VertexEntry   string
	FragmentEntry string
	Block         UniformBlock
	HasBlock      bool
	Inputs        []VertexInput
	Textures      []TextureBinding
	Layouts       map[int]wgpu.BindGroupLayoutDescriptor
}

// Input looks up a vertex input by name.
func (r Reflection) Input(name string) (VertexInput, bool) {
	for _, in := range r.Inputs {
		if in.Name == name {
			return in, true
		}
	}
	return VertexInput{}, false
}

// Texture looks up a texture binding by name.
func (r Reflection) Texture(name string) (TextureBinding, bool) {
	for _, t := range r.Textures {
		if t.Name == name {
			return t, true
		}
	}
	return TextureBinding{}, false
}

// Reflect parses a WGSL program holding both a @vertex and a @fragment function. All
// resources must live in group 0: at most one var<uniform> block plus sampled textures
// paired with samplers named "<texture>_sampler".
//
// Parameters:
//   - source: the WGSL source
//
// Returns:
//   - Reflection: entry points, uniform block layout, vertex inputs and bind group layouts
//   - error: ErrNoEntryPoint or ErrUnsupportedLayout when the program does not fit
func Reflect(source string) (Reflection, error) {
	cleaned := stripComments(source)
	r := Reflection{
		VertexEntry:   parseEntryPoint(cleaned, vertexEntryRegex),
		FragmentEntry: parseEntryPoint(cleaned, fragmentEntryRegex),
	}
	if r.VertexEntry == "" || r.FragmentEntry == "" {
		return Reflection{}, fmt.Errorf("%w: vertex %q fragment %q", ErrNoEntryPoint, r.VertexEntry, r.FragmentEntry)
	}

	structs := parseStructBlocks(cleaned)
	structSizes := computeStructSizes(structs)

	decls := parseResourceDecls(cleaned)
	samplers := make(map[string]uint32)
	for _, d := range decls {
		if d.group != 0 {
			return Reflection{}, fmt.Errorf("%w: %s is in group %d", ErrUnsupportedLayout, d.name, d.group)
		}
		switch {
		case d.addressSpace == "uniform":
			if r.HasBlock {
				return Reflection{}, fmt.Errorf("%w: second uniform block %s", ErrUnsupportedLayout, d.name)
			}
			block, err := uniformBlock(d, structs, structSizes)
			if err != nil {
				return Reflection{}, err
			}
			r.Block = block
			r.HasBlock = true
		case d.addressSpace != "":
			return Reflection{}, fmt.Errorf("%w: %s uses address space %q", ErrUnsupportedLayout, d.name, d.addressSpace)
		case d.typeName == "sampler":
			samplers[d.name] = d.binding
		case strings.HasPrefix(d.typeName, "texture_"):
			r.Textures = append(r.Textures, TextureBinding{Name: d.name, Binding: d.binding})
		}
	}
	for i, t := range r.Textures {
		if b, ok := samplers[t.Name+samplerSuffix]; ok {
			r.Textures[i].SamplerBinding = b
			r.Textures[i].HasSampler = true
		}
	}

	inputs, err := vertexInputs(cleaned, r.VertexEntry, structs)
	if err != nil {
		return Reflection{}, err
	}
	r.Inputs = inputs
	r.Layouts = buildBindGroupLayouts(decls, wgpu.ShaderStageVertex|wgpu.ShaderStageFragment, structSizes)
	return r, nil
}

func uniformBlock(d resourceDecl, structs []parsedStruct, structSizes map[string]wgslTypeLayout) (UniformBlock, error) {
	idx := slices.IndexFunc(structs, func(ps parsedStruct) bool { return ps.name == d.typeName })
	if idx < 0 {
		return UniformBlock{}, fmt.Errorf("%w: uniform %s has non-struct type %q", ErrUnsupportedLayout, d.name, d.typeName)
	}
	layout, members, ok := computeStructLayout(structs[idx], structSizes)
	if !ok {
		return UniformBlock{}, fmt.Errorf("%w: cannot lay out %s", ErrUnsupportedLayout, d.typeName)
	}
	return UniformBlock{
		Binding: d.binding,
		Var:     d.name,
		Type:    d.typeName,
		Size:    layout.size,
		Members: members,
	}, nil
}

// vertexInputs collects the @location inputs of the vertex entry point, either declared
// directly as parameters or as fields of a struct parameter, sorted by location.
func vertexInputs(source, entry string, structs []parsedStruct) ([]VertexInput, error) {
	params, ok := entryParams(source, entry)
	if !ok {
		return nil, fmt.Errorf("%w: cannot read parameters of %s", ErrNoEntryPoint, entry)
	}

	var fields []parsedField
	for _, p := range parseStructFields(params) {
		if p.isBuiltin {
			continue
		}
		if p.location >= 0 {
			fields = append(fields, p)
			continue
		}
		if idx := slices.IndexFunc(structs, func(ps parsedStruct) bool { return ps.name == p.typeName }); idx >= 0 {
			for _, f := range structs[idx].fields {
				if !f.isBuiltin && f.location >= 0 {
					fields = append(fields, f)
				}
			}
		}
	}

	inputs := make([]VertexInput, 0, len(fields))
	for _, f := range fields {
		info, ok := wgslVertexFormatMap[f.typeName]
		if !ok {
			return nil, fmt.Errorf("%w: vertex input %s has type %q", ErrUnsupportedLayout, f.name, f.typeName)
		}
		inputs = append(inputs, VertexInput{
			Name:       f.name,
			Location:   uint32(f.location),
			Type:       f.typeName,
			Components: info.components,
		})
	}
	slices.SortFunc(inputs, func(a, b VertexInput) int { return int(a.Location) - int(b.Location) })
	return inputs, nil
}

// entryParams returns the text between the parentheses of fn entry(...).
func entryParams(source, entry string) (string, bool) {
	loc := regexp.MustCompile(`\bfn\s+` + regexp.QuoteMeta(entry) + `\s*\(`).FindStringIndex(source)
	if loc == nil {
		return "", false
	}
	depth := 1
	for i := loc[1]; i < len(source); i++ {
		switch source[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return source[loc[1]:i], true
			}
		}
	}
	return "", false
}

// VertexFormat returns the wgpu vertex format for a stream of n floats per vertex.
//
// Parameters:
//   - n: components per vertex, 1 to 4
//
// Returns:
//   - wgpu.VertexFormat: the matching float format
//   - bool: false if n is out of range
func VertexFormat(n int) (wgpu.VertexFormat, bool) {
	if n < 1 || n >= len(floatVertexFormats) {
		return 0, false
	}
	return floatVertexFormats[n], true
}
