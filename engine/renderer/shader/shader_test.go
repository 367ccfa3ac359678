package shader

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const litWGSL = `
struct SceneUniforms {
    u_matrix: mat4x4<f32>,
    u_worldInverseTranspose: mat4x4<f32>,
    u_color: vec4f,
    u_worldLightPosition: vec3f,
    u_shininess: f32,
    u_lightColor: vec3f,
    u_normalMatrix: mat3x3<f32>,
}

struct VertexInput {
    @location(1) a_texcoord: vec2f,
    @location(0) a_position: vec4f,
}

struct VertexOutput {
    @builtin(position) position: vec4f,
    @location(0) texcoord: vec2f,
}

@group(0) @binding(0) var<uniform> scene: SceneUniforms;
@group(0) @binding(1) var u_texture: texture_2d<f32>;
@group(0) @binding(2) var u_texture_sampler: sampler;

// @vertex fn commented_out() {}
@vertex
fn vs_main(in: VertexInput) -> VertexOutput {
    var out: VertexOutput;
    out.position = scene.u_matrix * in.a_position;
    out.texcoord = in.a_texcoord;
    return out;
}

@fragment
fn fs_main(in: VertexOutput) -> @location(0) vec4f {
    return textureSample(u_texture, u_texture_sampler, in.texcoord) * scene.u_color;
}
`

func TestReflectUniformBlockOffsets(t *testing.T) {
	r, err := Reflect(litWGSL)
	require.NoError(t, err)
	assert.Equal(t, "vs_main", r.VertexEntry)
	assert.Equal(t, "fs_main", r.FragmentEntry)

	require.True(t, r.HasBlock)
	assert.Equal(t, "scene", r.Block.Var)
	assert.Equal(t, "SceneUniforms", r.Block.Type)
	assert.Equal(t, uint64(224), r.Block.Size)

	want := map[string][2]uint64{
		"u_matrix":                {0, 64},
		"u_worldInverseTranspose": {64, 64},
		"u_color":                 {128, 16},
		"u_worldLightPosition":    {144, 12},
		"u_shininess":             {156, 4},
		"u_lightColor":            {160, 12},
		"u_normalMatrix":          {176, 48},
	}
	require.Len(t, r.Block.Members, len(want))
	for name, w := range want {
		m, ok := r.Block.Member(name)
		require.True(t, ok, name)
		assert.Equal(t, w[0], m.Offset, name)
		assert.Equal(t, w[1], m.Size, name)
	}
	_, ok := r.Block.Member("u_missing")
	assert.False(t, ok)
}

func TestReflectInputsTexturesAndLayouts(t *testing.T) {
	r, err := Reflect(litWGSL)
	require.NoError(t, err)

	require.Len(t, r.Inputs, 2)
	assert.Equal(t, VertexInput{Name: "a_position", Location: 0, Type: "vec4f", Components: 4}, r.Inputs[0])
	assert.Equal(t, VertexInput{Name: "a_texcoord", Location: 1, Type: "vec2f", Components: 2}, r.Inputs[1])
	_, ok := r.Input("texcoord")
	assert.False(t, ok)

	tex, ok := r.Texture("u_texture")
	require.True(t, ok)
	assert.Equal(t, TextureBinding{Name: "u_texture", Binding: 1, SamplerBinding: 2, HasSampler: true}, tex)

	require.Contains(t, r.Layouts, 0)
	entries := r.Layouts[0].Entries
	require.Len(t, entries, 3)
	assert.Equal(t, wgpu.BufferBindingTypeUniform, entries[0].Buffer.Type)
	assert.True(t, entries[0].Buffer.HasDynamicOffset)
	assert.Equal(t, uint64(224), entries[0].Buffer.MinBindingSize)
	assert.Equal(t, wgpu.TextureSampleTypeFloat, entries[1].Texture.SampleType)
	assert.Equal(t, wgpu.TextureViewDimension2D, entries[1].Texture.ViewDimension)
	assert.Equal(t, wgpu.SamplerBindingTypeFiltering, entries[2].Sampler.Type)
	assert.Equal(t, wgpu.ShaderStageVertex|wgpu.ShaderStageFragment, entries[0].Visibility)
}

func TestReflectDirectParameters(t *testing.T) {
	src := `
@vertex
fn main_v(@location(0) a_position: vec3f, @builtin(vertex_index) vi: u32) -> @builtin(position) vec4f {
    return vec4f(a_position, 1.0);
}
@fragment
fn main_f() -> @location(0) vec4f { return vec4f(1.0); }
`
	r, err := Reflect(src)
	require.NoError(t, err)
	assert.False(t, r.HasBlock)
	require.Len(t, r.Inputs, 1)
	assert.Equal(t, "a_position", r.Inputs[0].Name)
	assert.Equal(t, 3, r.Inputs[0].Components)
}

func TestReflectRejectsUnsupportedPrograms(t *testing.T) {
	_, err := Reflect(`@vertex fn v() -> @builtin(position) vec4f { return vec4f(0.0); }`)
	assert.ErrorIs(t, err, ErrNoEntryPoint)

	base := `
@vertex fn v() -> @builtin(position) vec4f { return vec4f(0.0); }
@fragment fn f() -> @location(0) vec4f { return vec4f(0.0); }
struct U { x: f32, }
`
	_, err = Reflect(base + `@group(1) @binding(0) var<uniform> u: U;`)
	assert.ErrorIs(t, err, ErrUnsupportedLayout)

	_, err = Reflect(base + `@group(0) @binding(0) var<storage, read> u: U;`)
	assert.ErrorIs(t, err, ErrUnsupportedLayout)

	_, err = Reflect(base + `@group(0) @binding(0) var<uniform> a: U; @group(0) @binding(1) var<uniform> b: U;`)
	assert.ErrorIs(t, err, ErrUnsupportedLayout)

	_, err = Reflect(base + `@group(0) @binding(0) var<uniform> a: vec4f;`)
	assert.ErrorIs(t, err, ErrUnsupportedLayout)
}

func TestVertexFormat(t *testing.T) {
	f, ok := VertexFormat(3)
	assert.True(t, ok)
	assert.Equal(t, wgpu.VertexFormatFloat32x3, f)
	_, ok = VertexFormat(0)
	assert.False(t, ok)
	_, ok = VertexFormat(5)
	assert.False(t, ok)
}

func floatAt(data []byte, off uint64) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(data[off:]))
}

func TestBlockWriter(t *testing.T) {
	r, err := Reflect(litWGSL)
	require.NoError(t, err)
	w := NewBlockWriter(r)
	require.Len(t, w.Bytes(), 224)

	assert.Equal(t, -1, w.Location("u_missing"))
	assert.Equal(t, 0, w.Location("u_matrix"))
	texLoc := w.Location("u_texture")
	assert.Equal(t, 7, texLoc)

	assert.Equal(t, 0, w.Unit(0))
	w.SetInt(texLoc, 3)
	assert.Equal(t, 3, w.Unit(0))

	w.SetFloats(w.Location("u_normalMatrix"), []float32{1, 2, 3, 4, 5, 6, 7, 8, 9})
	data := w.Bytes()
	assert.Equal(t, float32(1), floatAt(data, 176))
	assert.Equal(t, float32(3), floatAt(data, 184))
	assert.Equal(t, float32(0), floatAt(data, 188))
	assert.Equal(t, float32(4), floatAt(data, 192))
	assert.Equal(t, float32(9), floatAt(data, 216))

	w.SetInt(w.Location("u_shininess"), 8)
	assert.Equal(t, float32(8), floatAt(data, 156))

	w.SetFloats(w.Location("u_lightColor"), []float32{0.5, 0.25, 1, 99})
	assert.Equal(t, float32(1), floatAt(data, 168))
	assert.Equal(t, float32(0), floatAt(data, 172))

	w.SetFloats(-1, []float32{1})
	w.SetInt(-1, 1)
	w.SetFloats(texLoc, []float32{1})
}

func TestPreProcessorIncludesAndGroups(t *testing.T) {
	pp := NewPreProcessor(map[string]string{
		"outer.glsl":  "//@oxy:include inner.glsl\nuniform float u_y;",
		"inner.glsl":  "uniform float u_x;",
		"scene.wgsl":  "struct SceneUniforms { u_matrix: mat4x4<f32>, }",
		"loop_a.glsl": "//@oxy:include loop_b.glsl",
		"loop_b.glsl": "//@oxy:include loop_a.glsl",
	})
	assert.Equal(t, []string{"inner.glsl", "loop_a.glsl", "loop_b.glsl", "outer.glsl", "scene.wgsl"}, pp.Chunks())

	out, err := pp.Process("#version 410 core\n  //@oxy:include outer.glsl\nvoid main() {}")
	require.NoError(t, err)
	assert.Equal(t, "#version 410 core\nuniform float u_x;\nuniform float u_y;\nvoid main() {}", out)

	out, err = pp.Process("//@oxy:include scene.wgsl\n//@oxy:group 0 0 uniform scene SceneUniforms\n//@oxy:group 0 1 handle u_texture texture_2d<f32>")
	require.NoError(t, err)
	assert.Contains(t, out, "@group(0) @binding(0) var<uniform> scene: SceneUniforms;")
	assert.Contains(t, out, "@group(0) @binding(1) var u_texture: texture_2d<f32>;")
	require.Len(t, pp.Declarations(), 2)
	assert.Equal(t, 1, pp.Declarations()[1].Binding)

	_, err = pp.Process("//@oxy:include loop_a.glsl")
	assert.Error(t, err)
	_, err = pp.Process("//@oxy:include missing.glsl")
	assert.ErrorContains(t, err, "missing.glsl")
	_, err = pp.Process("//@oxy:group 0 x uniform a B")
	assert.Error(t, err)
	_, err = pp.Process("//@oxy:group 0 0 storage a B")
	assert.Error(t, err)
	_, err = pp.Process("//@oxy:bogus")
	assert.Error(t, err)

	out, err = pp.Process("// @oxy is only an annotation at the start of a comment")
	require.NoError(t, err)
	assert.Equal(t, "// @oxy is only an annotation at the start of a comment", out)
}

func TestLoad(t *testing.T) {
	fsys := fstest.MapFS{
		"shaders/default.vert":          {Data: []byte("//@oxy:include head.glsl\nvoid main() {}")},
		"shaders/default.frag":          {Data: []byte("void main() {}")},
		"shaders/default.wgsl":          {Data: []byte("// wgsl")},
		"shaders/glonly.vert":           {Data: []byte("v")},
		"shaders/glonly.frag":           {Data: []byte("f")},
		"shaders/half.vert":             {Data: []byte("v")},
		"shaders/include/head.glsl":     {Data: []byte("#version 410 core")},
		"shaders/include/nested/x.glsl": {Data: []byte("ignored")},
	}
	pp, err := NewPreProcessorFS(fsys, "shaders/include")
	require.NoError(t, err)
	assert.Equal(t, []string{"head.glsl"}, pp.Chunks())

	src, err := Load(fsys, "shaders", "default", pp)
	require.NoError(t, err)
	assert.Equal(t, "#version 410 core\nvoid main() {}", src.Vertex)
	assert.True(t, src.HasGLSL())
	assert.True(t, src.HasWGSL())

	src, err = Load(fsys, "shaders", "glonly", nil)
	require.NoError(t, err)
	assert.False(t, src.HasWGSL())

	_, err = Load(fsys, "shaders", "half", nil)
	assert.ErrorIs(t, err, ErrNoSource)

	empty, err := NewPreProcessorFS(fsys, "shaders/none")
	require.NoError(t, err)
	assert.Empty(t, empty.Chunks())
}

func TestProgramName(t *testing.T) {
	for file, want := range map[string]string{
		"/a/default.vert":  "default",
		"/a/default.frag":  "default",
		"terrain.wgsl":     "terrain",
		"/a/.default.vert": "",
		"/a/default.vert~": "",
		"/a/lighting.glsl": "",
		"/a/default.swp":   "",
	} {
		got, ok := programName(file)
		assert.Equal(t, want != "", ok, file)
		assert.Equal(t, want, got, file)
	}
}

func TestWatchDirReportsChangedProgram(t *testing.T) {
	dir := t.TempDir()
	changed := make(chan string, 4)
	w, err := WatchDir(dir, 20*time.Millisecond, func(name string) { changed <- name })
	require.NoError(t, err)
	defer w.Close()

	file := filepath.Join(dir, "default.frag")
	require.NoError(t, os.WriteFile(file, []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(file, []byte("b"), 0o644))

	select {
	case name := <-changed:
		assert.Equal(t, "default", name)
	case <-time.After(5 * time.Second):
		t.Fatal("no reload reported")
	}
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
}
