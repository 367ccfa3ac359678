package loader

import (
	"fmt"
	"math"

	"github.com/Carmen-Shannon/oxy-terrain/engine/mesh"
	"github.com/qmuntal/gltf"
)

// Vertex streams produced for every primitive. a_color is only present when the source
// carries COLOR_0.
const (
	AttributePosition = "a_position"
	AttributeNormal   = "a_normal"
	AttributeTexCoord = "a_texcoord"
	AttributeColor    = "a_color"
)

// maxIndexedVertices is the largest vertex count addressable by 16-bit indices.
const maxIndexedVertices = math.MaxUint16 + 1

type gltfMeshExtractorImpl struct {
	parser    gltfParser
	materials gltfMaterialResolver
	prefix    string
}

// gltfMeshExtractor converts glTF meshes into mesh templates, one per primitive.
type gltfMeshExtractor interface {
	// ExtractMesh extracts one mesh by index.
	//
	// Parameters:
	//   - meshIndex: the glTF mesh index
	//
	// Returns:
	//   - Mesh: the mesh with one Primitive per glTF primitive
	//   - error: error if an accessor is missing or malformed
	ExtractMesh(meshIndex int) (Mesh, error)

	// ExtractAllMeshes extracts every mesh in document order.
	ExtractAllMeshes() ([]Mesh, error)
}

var _ gltfMeshExtractor = &gltfMeshExtractorImpl{}

// newGLTFMeshExtractor creates a mesh extractor. Template names are prefixed with prefix
// so several models can share a scene.
func newGLTFMeshExtractor(parser gltfParser, prefix string) gltfMeshExtractor {
	return &gltfMeshExtractorImpl{
		parser:    parser,
		materials: newGLTFMaterialResolver(parser),
		prefix:    prefix,
	}
}

func (e *gltfMeshExtractorImpl) ExtractMesh(meshIndex int) (Mesh, error) {
	doc := e.parser.Document()
	if doc == nil {
		return Mesh{}, fmt.Errorf("no document loaded")
	}
	if meshIndex < 0 || meshIndex >= len(doc.Meshes) {
		return Mesh{}, fmt.Errorf("mesh index %d out of range", meshIndex)
	}

	src := doc.Meshes[meshIndex]
	name := src.Name
	if name == "" {
		name = fmt.Sprintf("mesh_%d", meshIndex)
	}

	out := Mesh{Name: name, Primitives: make([]Primitive, 0, len(src.Primitives))}
	for primIdx := range src.Primitives {
		templateName := e.prefix + name
		if primIdx > 0 {
			templateName = fmt.Sprintf("%s_prim%d", templateName, primIdx)
		}
		prim, err := e.extractPrimitive(src.Primitives[primIdx], templateName)
		if err != nil {
			return Mesh{}, fmt.Errorf("mesh %d primitive %d: %w", meshIndex, primIdx, err)
		}
		out.Primitives = append(out.Primitives, prim)
	}
	return out, nil
}

func (e *gltfMeshExtractorImpl) ExtractAllMeshes() ([]Mesh, error) {
	doc := e.parser.Document()
	if doc == nil {
		return nil, fmt.Errorf("no document loaded")
	}

	meshes := make([]Mesh, 0, len(doc.Meshes))
	for i := range doc.Meshes {
		m, err := e.ExtractMesh(i)
		if err != nil {
			return nil, err
		}
		meshes = append(meshes, m)
	}
	return meshes, nil
}

func (e *gltfMeshExtractorImpl) extractPrimitive(prim *gltf.Primitive, name string) (Primitive, error) {
	mode, err := gltfDrawMode(prim.Mode)
	if err != nil {
		return Primitive{}, err
	}

	posAccessor, ok := prim.Attributes[gltf.POSITION]
	if !ok {
		return Primitive{}, fmt.Errorf("primitive has no POSITION attribute")
	}
	positions, err := e.parser.ReadPositions(posAccessor)
	if err != nil {
		return Primitive{}, fmt.Errorf("failed to read positions: %w", err)
	}
	vertexCount := len(positions)

	var indices []uint32
	if prim.Indices != nil {
		if indices, err = e.parser.ReadIndices(*prim.Indices); err != nil {
			return Primitive{}, fmt.Errorf("failed to read indices: %w", err)
		}
		for _, idx := range indices {
			if int(idx) >= vertexCount {
				return Primitive{}, fmt.Errorf("index %d out of range for %d vertices", idx, vertexCount)
			}
		}
	}

	var normals [][3]float32
	if acc, ok := prim.Attributes[gltf.NORMAL]; ok {
		if normals, err = e.parser.ReadNormals(acc); err != nil {
			return Primitive{}, fmt.Errorf("failed to read normals: %w", err)
		}
	} else {
		normals = generateNormals(positions, triangleIndices(mode, indices, vertexCount))
	}

	texCoords := make([][2]float32, vertexCount)
	if acc, ok := prim.Attributes[gltf.TEXCOORD_0]; ok {
		read, err := e.parser.ReadTexCoords(acc)
		if err != nil {
			return Primitive{}, fmt.Errorf("failed to read texcoords: %w", err)
		}
		copy(texCoords, read)
	}

	attributes := []mesh.Attribute{
		{Name: AttributePosition, Components: 3, Data: flatten(vertexCount, 3, len(positions), func(i int) []float32 { return positions[i][:] })},
		{Name: AttributeNormal, Components: 3, Data: flatten(vertexCount, 3, len(normals), func(i int) []float32 { return normals[i][:] })},
		{Name: AttributeTexCoord, Components: 2, Data: flatten(vertexCount, 2, len(texCoords), func(i int) []float32 { return texCoords[i][:] })},
	}
	if acc, ok := prim.Attributes[gltf.COLOR_0]; ok {
		colors, err := e.parser.ReadColors(acc)
		if err != nil {
			return Primitive{}, fmt.Errorf("failed to read colors: %w", err)
		}
		attributes = append(attributes, mesh.Attribute{Name: AttributeColor, Components: 4, Data: flatten(vertexCount, 4, len(colors), func(i int) []float32 { return colors[i][:] })})
	}

	options := []mesh.TemplateBuilderOption{mesh.WithDrawMode(mode)}
	switch {
	case indices == nil:
	case vertexCount <= maxIndexedVertices:
		short := make([]uint16, len(indices))
		for i, idx := range indices {
			short[i] = uint16(idx)
		}
		options = append(options, mesh.WithIndices(short))
	default:
		attributes = deindex(attributes, indices)
	}

	template, err := mesh.NewTemplate(name, attributes, options...)
	if err != nil {
		return Primitive{}, err
	}

	color, texture, err := e.materials.Resolve(prim.Material)
	if err != nil {
		return Primitive{}, err
	}
	return Primitive{Template: template, Color: color, Texture: texture}, nil
}

func gltfDrawMode(mode gltf.PrimitiveMode) (mesh.DrawMode, error) {
	switch mode {
	case gltf.PrimitiveTriangles:
		return mesh.DrawModeTriangles, nil
	case gltf.PrimitiveLines:
		return mesh.DrawModeLines, nil
	case gltf.PrimitivePoints:
		return mesh.DrawModePoints, nil
	}
	return 0, fmt.Errorf("unsupported primitive mode: %d", mode)
}

// triangleIndices returns the triangle list used for normal generation, or nil when the
// primitive is not made of triangles.
func triangleIndices(mode mesh.DrawMode, indices []uint32, vertexCount int) []uint32 {
	if mode != mesh.DrawModeTriangles {
		return nil
	}
	if indices != nil {
		return indices
	}
	seq := make([]uint32, vertexCount)
	for i := range seq {
		seq[i] = uint32(i)
	}
	return seq
}

// flatten packs n vectors of width floats into one slice. Vectors past len are zero.
func flatten(n, width, length int, at func(i int) []float32) []float32 {
	out := make([]float32, n*width)
	for i := 0; i < n && i < length; i++ {
		copy(out[i*width:(i+1)*width], at(i))
	}
	return out
}

// deindex expands every attribute so that vertex i of the result is vertex indices[i] of
// the source.
func deindex(attributes []mesh.Attribute, indices []uint32) []mesh.Attribute {
	out := make([]mesh.Attribute, len(attributes))
	for a, attr := range attributes {
		data := make([]float32, len(indices)*attr.Components)
		for i, idx := range indices {
			src := int(idx) * attr.Components
			copy(data[i*attr.Components:(i+1)*attr.Components], attr.Data[src:src+attr.Components])
		}
		out[a] = mesh.Attribute{Name: attr.Name, Components: attr.Components, Data: data}
	}
	return out
}

// generateNormals computes smooth vertex normals by accumulating area-weighted face
// normals onto each triangle's corners. Vertices touched by no triangle get +Y.
func generateNormals(positions [][3]float32, indices []uint32) [][3]float32 {
	n := len(positions)
	accum := make([][3]float32, n)

	for i := 0; i+2 < len(indices); i += 3 {
		i0, i1, i2 := indices[i], indices[i+1], indices[i+2]
		if int(i0) >= n || int(i1) >= n || int(i2) >= n {
			continue
		}

		p0, p1, p2 := positions[i0], positions[i1], positions[i2]
		edge1 := [3]float32{p1[0] - p0[0], p1[1] - p0[1], p1[2] - p0[2]}
		edge2 := [3]float32{p2[0] - p0[0], p2[1] - p0[1], p2[2] - p0[2]}

		face := [3]float32{
			edge1[1]*edge2[2] - edge1[2]*edge2[1],
			edge1[2]*edge2[0] - edge1[0]*edge2[2],
			edge1[0]*edge2[1] - edge1[1]*edge2[0],
		}
		for _, idx := range [3]uint32{i0, i1, i2} {
			accum[idx][0] += face[0]
			accum[idx][1] += face[1]
			accum[idx][2] += face[2]
		}
	}

	for i := range accum {
		length := float32(math.Sqrt(float64(accum[i][0]*accum[i][0] + accum[i][1]*accum[i][1] + accum[i][2]*accum[i][2])))
		if length < 1e-6 {
			accum[i] = [3]float32{0, 1, 0}
			continue
		}
		accum[i] = [3]float32{accum[i][0] / length, accum[i][1] / length, accum[i][2] / length}
	}
	return accum
}
