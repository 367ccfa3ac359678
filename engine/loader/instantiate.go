package loader

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-terrain/engine/mesh"
	"github.com/Carmen-Shannon/oxy-terrain/engine/node"
	"github.com/Carmen-Shannon/oxy-terrain/engine/scene"
	"github.com/Carmen-Shannon/oxy-terrain/engine/uniform"
)

// Uniforms set on every instance Instantiate creates.
const (
	UniformColor   = "u_color"
	UniformTexture = "u_texture"
)

// Instantiate adds a model to a scene: its templates are registered once, its nodes are
// inserted under parentName as "<model>/<node>", and every mesh node receives one instance
// per primitive with u_color set to the base color. Textured primitives bind their texture
// to unit 0 through UniformTexture.
//
// Parameters:
//   - s: the destination scene
//   - m: the model to add
//   - parentName: the scene node the model's roots attach to
//   - options: extra options applied to every instance, after the model's own
//
// Returns:
//   - []mesh.Instance: the created instances in node order
//   - error: node.ErrNodeExists if the model was already instantiated under its name, or
//     the first scene error
func Instantiate(s scene.Scene, m *Model, parentName string, options ...mesh.InstanceBuilderOption) ([]mesh.Instance, error) {
	for _, t := range m.Templates() {
		if _, ok := s.Mesh(t.Name()); ok {
			continue
		}
		if err := s.AddMesh(t); err != nil {
			return nil, err
		}
	}

	sceneNames := make([]string, len(m.Nodes))
	var instances []mesh.Instance
	for i, n := range m.Nodes {
		sceneNames[i] = m.Name + "/" + n.Name
		parent := parentName
		if n.Parent >= 0 {
			parent = sceneNames[n.Parent]
		}

		inserted, err := s.InsertNode(sceneNames[i], parent,
			node.WithPosition(n.Position[0], n.Position[1], n.Position[2]),
			node.WithScale(n.Scale[0], n.Scale[1], n.Scale[2]),
		)
		if err != nil {
			return nil, fmt.Errorf("model %q: %w", m.Name, err)
		}
		inserted.SetRotation(n.Rotation)

		if n.Mesh < 0 {
			continue
		}
		for _, p := range m.Meshes[n.Mesh].Primitives {
			var opts []mesh.InstanceBuilderOption
			if p.Texture != "" {
				opts = append(opts, mesh.WithTexture(UniformTexture, 0, p.Texture))
			}
			opts = append(opts, options...)

			values := uniform.Values{UniformColor: uniform.Vec(p.Color[:]...)}
			inst, err := s.CreateInstance(p.Template.Name(), values, sceneNames[i], opts...)
			if err != nil {
				return nil, fmt.Errorf("model %q: %w", m.Name, err)
			}
			instances = append(instances, inst)
		}
	}
	return instances, nil
}
