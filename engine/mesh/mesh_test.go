package mesh

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-terrain/engine/uniform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quadAttributes() []Attribute {
	return []Attribute{
		{Name: "a_position", Components: 3, Data: []float32{0, 0, 0, 1, 0, 0, 1, 1, 0, 0, 1, 0}},
		{Name: "a_texcoord", Components: 2, Data: []float32{0, 0, 1, 0, 1, 1, 0, 1}},
	}
}

func TestNewTemplateCounts(t *testing.T) {
	tpl, err := NewTemplate("quad", quadAttributes())
	require.NoError(t, err)
	assert.Equal(t, "quad", tpl.Name())
	assert.False(t, tpl.Indexed())
	assert.Equal(t, 4, tpl.VertexCount())
	assert.Equal(t, 4, tpl.ElementCount())
	assert.Equal(t, DrawModeTriangles, tpl.DrawMode())

	indexed, err := NewTemplate("quad", quadAttributes(), WithIndices([]uint16{0, 1, 2, 0, 2, 3}))
	require.NoError(t, err)
	assert.True(t, indexed.Indexed())
	assert.Equal(t, 6, indexed.ElementCount())

	a, ok := indexed.Attribute("a_texcoord")
	require.True(t, ok)
	assert.Equal(t, 2, a.Components)
	_, ok = indexed.Attribute("a_normal")
	assert.False(t, ok)
}

func TestNewTemplateCopiesData(t *testing.T) {
	attrs := quadAttributes()
	tpl, err := NewTemplate("quad", attrs)
	require.NoError(t, err)
	attrs[0].Data[0] = 42
	assert.Equal(t, float32(0), tpl.Attributes()[0].Data[0])
}

func TestNewTemplateValidation(t *testing.T) {
	cases := map[string][]Attribute{
		"empty":      nil,
		"unnamed":    {{Components: 3, Data: []float32{0, 0, 0}}},
		"zero comps": {{Name: "a", Components: 0, Data: []float32{0}}},
		"ragged":     {{Name: "a", Components: 3, Data: []float32{0, 0}}},
		"mismatched": {{Name: "a", Components: 3, Data: make([]float32, 9)}, {Name: "b", Components: 2, Data: make([]float32, 4)}},
		"duplicate":  {{Name: "a", Components: 1, Data: []float32{1}}, {Name: "a", Components: 1, Data: []float32{1}}},
		"five comps": {{Name: "a", Components: 5, Data: make([]float32, 5)}},
	}
	for name, attrs := range cases {
		_, err := NewTemplate(name, attrs)
		assert.ErrorIs(t, err, ErrInvalidAttribute, name)
	}

	_, err := NewTemplate("oob", quadAttributes(), WithIndices([]uint16{0, 1, 4}))
	assert.ErrorIs(t, err, ErrInvalidAttribute)
}

func TestInstanceDefaults(t *testing.T) {
	tpl, err := NewTemplate("quad", quadAttributes())
	require.NoError(t, err)

	values := uniform.Values{"u_color": uniform.Vec(1, 0, 0, 1)}
	inst := NewInstance(tpl, values)
	assert.Equal(t, DefaultShader, inst.Shader())
	assert.Same(t, tpl, inst.Template())
	assert.Contains(t, inst.Uniforms(), "u_color")

	values["u_other"] = uniform.Float(1)
	assert.NotContains(t, inst.Uniforms(), "u_other")

	inst.SetUniform("u_time", uniform.Float(2))
	assert.Len(t, inst.Uniforms(), 2)

	inst.SetUniforms(uniform.Values{"u_only": uniform.Float(3)})
	assert.Len(t, inst.Uniforms(), 1)
	assert.Contains(t, inst.Uniforms(), "u_only")
}

func TestInstanceOptions(t *testing.T) {
	tpl, err := NewTemplate("quad", quadAttributes())
	require.NoError(t, err)

	inst := NewInstance(tpl, nil, WithShader("terrain"), WithTexture("u_texture", 2, "heights.tif"))
	assert.Equal(t, "terrain", inst.Shader())
	assert.Equal(t, map[int]string{2: "heights.tif"}, inst.Textures())

	lit, err := uniform.Resolve(inst.Uniforms()["u_texture"])
	require.NoError(t, err)
	assert.Equal(t, int32(2), lit)
}
