package shaders_test

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-terrain/engine/light"
	"github.com/Carmen-Shannon/oxy-terrain/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-terrain/engine/scene"
	"github.com/Carmen-Shannon/oxy-terrain/shaders"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadDefault(t *testing.T) shader.Source {
	t.Helper()
	pp, err := shader.NewPreProcessorFS(shaders.FS, shaders.ChunkDir)
	require.NoError(t, err)
	assert.Equal(t, []string{"lighting.glsl", "lighting.wgsl"}, pp.Chunks())

	src, err := shader.Load(shaders.FS, ".", shaders.Default, pp)
	require.NoError(t, err)
	return src
}

func TestDefaultProgramHasBothLanguages(t *testing.T) {
	src := loadDefault(t)
	assert.True(t, src.HasGLSL())
	assert.True(t, src.HasWGSL())
	assert.Contains(t, src.Fragment, "vec3 shade(")
	assert.NotContains(t, src.Fragment, "@oxy:")
	assert.Contains(t, src.WGSL, "@group(0) @binding(0) var<uniform> uniforms: Uniforms;")
}

func TestDefaultWGSLReflectsSceneInputs(t *testing.T) {
	r, err := shader.Reflect(loadDefault(t).WGSL)
	require.NoError(t, err)

	require.True(t, r.HasBlock)
	assert.Equal(t, uint64(256), r.Block.Size)
	for _, name := range []string{
		scene.UniformMatrix,
		scene.UniformWorldMatrix,
		scene.UniformWorldInverseTranspose,
		scene.UniformViewPosition,
		light.UniformWorldPosition,
		light.UniformColor,
		"u_color",
	} {
		_, ok := r.Block.Member(name)
		assert.True(t, ok, name)
	}

	tex, ok := r.Texture("u_texture")
	require.True(t, ok)
	assert.True(t, tex.HasSampler)

	require.Len(t, r.Inputs, 2)
	assert.Equal(t, "a_position", r.Inputs[0].Name)
	assert.Equal(t, 3, r.Inputs[0].Components)
	assert.Equal(t, "a_texcoord", r.Inputs[1].Name)
	assert.Equal(t, 2, r.Inputs[1].Components)
}
