package loader

import (
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strings"

	"github.com/qmuntal/gltf"
)

type gltfLoaderBackendImpl struct{}

// gltfLoaderBackend is the loaderBackend for .gltf and .glb files.
type gltfLoaderBackend interface {
	loaderBackend
}

var _ gltfLoaderBackend = &gltfLoaderBackendImpl{}

func newGLTFLoaderBackend() gltfLoaderBackend {
	return &gltfLoaderBackendImpl{}
}

func (b *gltfLoaderBackendImpl) Load(path string) (*Model, error) {
	parser := newGLTFParser()
	if err := parser.Parse(path); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return b.importFromParser(parser, name)
}

func (b *gltfLoaderBackendImpl) LoadReader(name string, r io.Reader, isGLB bool) (*Model, error) {
	parser := newGLTFParser()
	if err := parser.ParseReader(r, isGLB); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return b.importFromParser(parser, name)
}

func (b *gltfLoaderBackendImpl) importFromParser(parser gltfParser, name string) (*Model, error) {
	doc := parser.Document()
	if doc == nil {
		return nil, fmt.Errorf("no document after parsing")
	}

	meshes, err := newGLTFMeshExtractor(parser, name+"/").ExtractAllMeshes()
	if err != nil {
		return nil, fmt.Errorf("mesh extraction failed: %w", err)
	}
	nodes, err := gltfExtractNodes(doc)
	if err != nil {
		return nil, fmt.Errorf("node extraction failed: %w", err)
	}

	return &Model{
		Name:   name,
		Meshes: meshes,
		Nodes:  nodes,
	}, nil
}

// gltfExtractNodes flattens the default scene's hierarchy so that every parent precedes
// its children. Without a scene, nodes nobody lists as a child are the roots.
func gltfExtractNodes(doc *gltf.Document) ([]Node, error) {
	var roots []int
	switch {
	case len(doc.Scenes) > 0:
		scene := 0
		if doc.Scene != nil {
			scene = *doc.Scene
		}
		if scene < 0 || scene >= len(doc.Scenes) {
			return nil, fmt.Errorf("scene index %d out of range", scene)
		}
		roots = doc.Scenes[scene].Nodes
	default:
		isChild := make([]bool, len(doc.Nodes))
		for _, n := range doc.Nodes {
			for _, c := range n.Children {
				if c >= 0 && c < len(isChild) {
					isChild[c] = true
				}
			}
		}
		for i, child := range isChild {
			if !child {
				roots = append(roots, i)
			}
		}
	}

	names := gltfNodeNames(doc)
	visited := make([]bool, len(doc.Nodes))
	var out []Node

	var visit func(index, parent int) error
	visit = func(index, parent int) error {
		if index < 0 || index >= len(doc.Nodes) {
			return fmt.Errorf("node index %d out of range", index)
		}
		if visited[index] {
			return fmt.Errorf("node %d is reachable twice", index)
		}
		visited[index] = true

		src := doc.Nodes[index]
		n := Node{Name: names[index], Parent: parent, Mesh: -1}
		if src.Mesh != nil {
			if *src.Mesh < 0 || *src.Mesh >= len(doc.Meshes) {
				return fmt.Errorf("node %d: mesh index %d out of range", index, *src.Mesh)
			}
			n.Mesh = *src.Mesh
		}
		n.Position, n.Rotation, n.Scale = gltfNodeTRS(src)

		self := len(out)
		out = append(out, n)
		for _, c := range src.Children {
			if err := visit(c, self); err != nil {
				return err
			}
		}
		return nil
	}

	for _, r := range roots {
		if err := visit(r, -1); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// gltfNodeNames gives every node a unique name. Unnamed nodes become node_<index> and
// repeated names get an _<index> suffix.
func gltfNodeNames(doc *gltf.Document) []string {
	names := make([]string, len(doc.Nodes))
	seen := make(map[string]bool, len(doc.Nodes))
	for i, n := range doc.Nodes {
		name := n.Name
		if name == "" {
			name = fmt.Sprintf("node_%d", i)
		}
		if seen[name] {
			name = fmt.Sprintf("%s_%d", name, i)
		}
		seen[name] = true
		names[i] = name
	}
	return names
}

// gltfNodeTRS returns a node's local translation, rotation quaternion and scale,
// decomposing the matrix when one is set.
func gltfNodeTRS(n *gltf.Node) ([3]float32, [4]float32, [3]float32) {
	if m := n.MatrixOrDefault(); m != gltf.DefaultMatrix {
		var arr [16]float32
		for i, v := range m {
			arr[i] = float32(v)
		}
		return decomposeMatrix(arr)
	}

	t, r, s := n.TranslationOrDefault(), n.RotationOrDefault(), n.ScaleOrDefault()
	return [3]float32{float32(t[0]), float32(t[1]), float32(t[2])},
		[4]float32{float32(r[0]), float32(r[1]), float32(r[2]), float32(r[3])},
		[3]float32{float32(s[0]), float32(s[1]), float32(s[2])}
}

// decomposeMatrix splits a column-major affine matrix without shear into translation,
// rotation and scale.
func decomposeMatrix(m [16]float32) ([3]float32, [4]float32, [3]float32) {
	t := [3]float32{m[12], m[13], m[14]}

	col := func(c int) [3]float64 {
		return [3]float64{float64(m[c*4]), float64(m[c*4+1]), float64(m[c*4+2])}
	}
	length := func(v [3]float64) float64 {
		return math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
	}
	x, y, z := col(0), col(1), col(2)
	sx, sy, sz := length(x), length(y), length(z)

	det := x[0]*(y[1]*z[2]-y[2]*z[1]) - y[0]*(x[1]*z[2]-x[2]*z[1]) + z[0]*(x[1]*y[2]-x[2]*y[1])
	if det < 0 {
		sx = -sx
	}
	s := [3]float32{float32(sx), float32(sy), float32(sz)}
	if sx == 0 || sy == 0 || sz == 0 {
		return t, [4]float32{0, 0, 0, 1}, s
	}

	// Rotation matrix r[row][col].
	var r [3][3]float64
	for row := 0; row < 3; row++ {
		r[row][0] = x[row] / sx
		r[row][1] = y[row] / sy
		r[row][2] = z[row] / sz
	}

	var q [4]float64
	trace := r[0][0] + r[1][1] + r[2][2]
	switch {
	case trace > 0:
		k := 0.5 / math.Sqrt(trace+1)
		q = [4]float64{(r[2][1] - r[1][2]) * k, (r[0][2] - r[2][0]) * k, (r[1][0] - r[0][1]) * k, 0.25 / k}
	case r[0][0] > r[1][1] && r[0][0] > r[2][2]:
		k := 2 * math.Sqrt(1+r[0][0]-r[1][1]-r[2][2])
		q = [4]float64{0.25 * k, (r[0][1] + r[1][0]) / k, (r[0][2] + r[2][0]) / k, (r[2][1] - r[1][2]) / k}
	case r[1][1] > r[2][2]:
		k := 2 * math.Sqrt(1+r[1][1]-r[0][0]-r[2][2])
		q = [4]float64{(r[0][1] + r[1][0]) / k, 0.25 * k, (r[1][2] + r[2][1]) / k, (r[0][2] - r[2][0]) / k}
	default:
		k := 2 * math.Sqrt(1+r[2][2]-r[0][0]-r[1][1])
		q = [4]float64{(r[0][2] + r[2][0]) / k, (r[1][2] + r[2][1]) / k, 0.25 * k, (r[1][0] - r[0][1]) / k}
	}
	return t, [4]float32{float32(q[0]), float32(q[1]), float32(q[2]), float32(q[3])}, s
}
