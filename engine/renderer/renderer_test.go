package renderer_test

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"testing"

	"github.com/Carmen-Shannon/oxy-terrain/common"
	"github.com/Carmen-Shannon/oxy-terrain/engine/mesh"
	"github.com/Carmen-Shannon/oxy-terrain/engine/renderer"
	"github.com/Carmen-Shannon/oxy-terrain/engine/renderer/renderertest"
	"github.com/Carmen-Shannon/oxy-terrain/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-terrain/engine/texture"
	"github.com/Carmen-Shannon/oxy-terrain/engine/uniform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRenderer(t *testing.T, options ...renderer.RendererBuilderOption) (renderer.Renderer, *renderertest.Backend) {
	t.Helper()
	b := renderertest.NewBackend()
	r, err := renderer.NewRendererWithBackend(b, 640, 480, options...)
	require.NoError(t, err)
	return r, b
}

func triangle(t *testing.T) mesh.Template {
	t.Helper()
	tpl, err := mesh.NewTemplate("triangle", []mesh.Attribute{
		{Name: "a_position", Components: 3, Data: []float32{0, 0, 0, 1, 0, 0, 0, 1, 0}},
	})
	require.NoError(t, err)
	return tpl
}

func indexOf(calls []string, call string) int {
	return slices.Index(calls, call)
}

func TestNewRendererWithBackendInitializes(t *testing.T) {
	_, b := newTestRenderer(t, renderer.WithPresentMode(renderer.PresentModeVSync))

	assert.Equal(t, 640, b.Width)
	assert.Equal(t, 480, b.Height)
	assert.Equal(t, renderer.PresentModeVSync, b.PresentMode)
	assert.Less(t, indexOf(b.Calls, "SetPresentMode 0"), indexOf(b.Calls, "Init 640 480"))
}

func TestRegisterProgramRelinks(t *testing.T) {
	r, b := newTestRenderer(t)

	require.NoError(t, r.RegisterProgram("lit", shader.Source{Name: "lit"}))
	first, ok := r.Program("lit")
	require.True(t, ok)

	require.NoError(t, r.RegisterProgram("lit", shader.Source{Name: "lit"}))
	second, ok := r.Program("lit")
	require.True(t, ok)

	assert.NotEqual(t, first, second)
	assert.Equal(t, 2, b.Count("CreateProgram"))
	assert.Equal(t, 1, b.Count("DeleteProgram"))
	assert.Equal(t, []string{"lit"}, b.Programs())
	assert.Equal(t, []string{"lit"}, r.Programs())
}

func TestRegisterProgramFailureKeepsPrevious(t *testing.T) {
	r, b := newTestRenderer(t)
	require.NoError(t, r.RegisterProgram("lit", shader.Source{Name: "lit"}))
	before, _ := r.Program("lit")

	compileErr := errors.New("compile failed")
	b.FailCreate["lit"] = compileErr
	err := r.RegisterProgram("lit", shader.Source{Name: "lit"})
	require.ErrorIs(t, err, compileErr)

	after, ok := r.Program("lit")
	require.True(t, ok)
	assert.Equal(t, before, after)
	assert.Zero(t, b.Count("DeleteProgram"))
}

func TestRemoveProgram(t *testing.T) {
	r, b := newTestRenderer(t)
	require.NoError(t, r.RegisterProgram("lit", shader.Source{Name: "lit"}))

	assert.True(t, r.RemoveProgram("lit"))
	assert.False(t, r.RemoveProgram("lit"))
	_, ok := r.Program("lit")
	assert.False(t, ok)
	assert.Empty(t, b.Programs())
}

func TestDrawUnknownProgram(t *testing.T) {
	r, b := newTestRenderer(t)
	require.NoError(t, r.BeginFrame())

	err := r.Draw(renderer.DrawCall{Program: "missing", Template: triangle(t)})
	require.ErrorIs(t, err, renderer.ErrProgramNotFound)
	assert.Zero(t, b.Count("CreateMesh"))
	assert.Empty(t, b.Draws)
}

func TestDrawUploadsMeshOnce(t *testing.T) {
	r, b := newTestRenderer(t)
	require.NoError(t, r.RegisterProgram("lit", shader.Source{Name: "lit"}))
	tpl := triangle(t)

	require.NoError(t, r.BeginFrame())
	for range 3 {
		require.NoError(t, r.Draw(renderer.DrawCall{Program: "lit", Template: tpl}))
	}
	require.NoError(t, r.EndFrame())

	assert.Equal(t, 1, b.Count("CreateMesh"))
	assert.Len(t, b.Draws, 3)
	assert.Equal(t, 1, b.Frames)

	r.ReleaseMesh(tpl)
	assert.Zero(t, b.Meshes())

	require.NoError(t, r.BeginFrame())
	require.NoError(t, r.Draw(renderer.DrawCall{Program: "lit", Template: tpl}))
	require.NoError(t, r.EndFrame())
	assert.Equal(t, 2, b.Count("CreateMesh"))
}

func TestDrawResolvesUniforms(t *testing.T) {
	r, b := newTestRenderer(t)
	b.Declare("u_color", "u_shininess", "u_texture")
	require.NoError(t, r.RegisterProgram("lit", shader.Source{Name: "lit"}))

	calls := 0
	shininess := uniform.Producer(func() any {
		calls++
		return float32(calls)
	})
	require.NoError(t, r.BeginFrame())
	for range 2 {
		require.NoError(t, r.Draw(renderer.DrawCall{
			Program:  "lit",
			Template: triangle(t),
			Uniforms: uniform.Values{
				"u_color":     uniform.Vec(1, 0, 0, 1),
				"u_shininess": shininess,
				"u_texture":   uniform.Int(2),
				"u_undefined": uniform.Float(1),
			},
		}))
	}
	require.NoError(t, r.EndFrame())

	require.Len(t, b.Draws, 2)
	assert.Equal(t, []float32{1, 0, 0, 1}, b.Draws[0].Floats["u_color"])
	assert.Equal(t, []float32{1}, b.Draws[0].Floats["u_shininess"])
	assert.Equal(t, []float32{2}, b.Draws[1].Floats["u_shininess"])
	assert.Equal(t, int32(2), b.Draws[1].Ints["u_texture"])
	assert.NotContains(t, b.Draws[0].Floats, "u_undefined")
}

func TestDrawReturnsUniformErrorsAndStillDraws(t *testing.T) {
	r, b := newTestRenderer(t)
	b.Declare("u_color", "u_label", "u_broken")
	require.NoError(t, r.RegisterProgram("lit", shader.Source{Name: "lit"}))

	require.NoError(t, r.BeginFrame())
	err := r.Draw(renderer.DrawCall{
		Program:  "lit",
		Template: triangle(t),
		Uniforms: uniform.Values{
			"u_color":  uniform.Vec(0, 1, 0, 1),
			"u_label":  uniform.Literal("text"),
			"u_broken": uniform.Producer(func() any { panic("boom") }),
		},
	})
	require.NoError(t, r.EndFrame())

	assert.ErrorIs(t, err, uniform.ErrUnsupportedUniformShape)
	assert.ErrorIs(t, err, uniform.ErrProducerPanic)
	assert.ErrorContains(t, err, `uniform "u_label"`)
	require.Len(t, b.Draws, 1)
	assert.Equal(t, []float32{0, 1, 0, 1}, b.Draws[0].Floats["u_color"])
}

func TestDrawBindsTexturesBeforeDrawing(t *testing.T) {
	load := func(context.Context, string) (common.TextureStagingData, error) {
		return common.TextureStagingData{
			Pixels: make([]byte, 4*4*4),
			Width:  4,
			Height: 4,
			Format: common.PixelFormatRGBA,
		}, nil
	}
	textures := texture.NewManager(texture.WithLoadFunc(load))
	r, b := newTestRenderer(t, renderer.WithTextureManager(textures))
	require.NoError(t, r.RegisterProgram("lit", shader.Source{Name: "lit"}))

	textures.Request(context.Background(), "grass.png")
	textures.Wait()

	require.NoError(t, r.BeginFrame())
	require.True(t, textures.Ready("grass.png"))
	require.NoError(t, r.Draw(renderer.DrawCall{
		Program:  "lit",
		Template: triangle(t),
		Textures: map[int]string{1: "grass.png"},
	}))
	require.NoError(t, r.EndFrame())

	// The checkerboard default plus the loaded texture.
	assert.Equal(t, 2, b.Textures())

	h := textures.Handle("grass.png")
	require.Len(t, b.Draws, 1)
	assert.Equal(t, h, b.Draws[0].Units[1])

	use := indexOf(b.Calls, "UseProgram lit")
	bind := indexOf(b.Calls, fmt.Sprintf("BindTexture %d 1", h))
	draw := indexOf(b.Calls, "DrawMesh lit triangle")
	assert.Less(t, use, bind)
	assert.Less(t, bind, draw)
}

func TestDrawOutsideFrameFails(t *testing.T) {
	r, _ := newTestRenderer(t)
	require.NoError(t, r.RegisterProgram("lit", shader.Source{Name: "lit"}))
	assert.Error(t, r.Draw(renderer.DrawCall{Program: "lit", Template: triangle(t)}))
}

func TestReleaseDeletesEverything(t *testing.T) {
	r, b := newTestRenderer(t)
	require.NoError(t, r.RegisterProgram("lit", shader.Source{Name: "lit"}))
	require.NoError(t, r.RegisterProgram("unlit", shader.Source{Name: "unlit"}))

	require.NoError(t, r.BeginFrame())
	require.NoError(t, r.Draw(renderer.DrawCall{Program: "lit", Template: triangle(t)}))
	require.NoError(t, r.EndFrame())

	r.Release()
	assert.Empty(t, b.Programs())
	assert.Zero(t, b.Meshes())
	assert.True(t, b.Released)
	assert.Empty(t, r.Programs())
}

func TestResizeForwardsToBackend(t *testing.T) {
	r, b := newTestRenderer(t)
	r.Resize(800, 600)
	assert.Equal(t, 800, b.Width)
	assert.Equal(t, 600, b.Height)
}

func TestBackendTypeString(t *testing.T) {
	assert.Equal(t, "wgpu", renderer.BackendTypeWGPU.String())
	assert.Equal(t, "gl", renderer.BackendTypeGL.String())
}
