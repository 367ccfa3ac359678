package engine

import (
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-terrain/engine/camera"
	"github.com/Carmen-Shannon/oxy-terrain/engine/mesh"
	"github.com/Carmen-Shannon/oxy-terrain/engine/node"
	"github.com/Carmen-Shannon/oxy-terrain/engine/renderer"
	"github.com/Carmen-Shannon/oxy-terrain/engine/renderer/renderertest"
	"github.com/Carmen-Shannon/oxy-terrain/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-terrain/engine/scene"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newScene(t *testing.T, r renderer.Renderer, name string, withCamera bool) scene.Scene {
	t.Helper()
	var opts []scene.SceneBuilderOption
	opts = append(opts, scene.WithName(name))
	if withCamera {
		opts = append(opts, scene.WithCamera("main", camera.NewCamera()))
	}
	s := scene.NewScene(r, opts...)
	require.NoError(t, s.AddShaderProgram("default", shader.Source{Name: "default"}))
	_, err := s.CreateMesh(name, []mesh.Attribute{
		{Name: "a_position", Components: 3, Data: []float32{0, 0, 0, 1, 0, 0, 0, 1, 0}},
	})
	require.NoError(t, err)
	_, err = s.CreateInstance(name, nil, node.RootName)
	require.NoError(t, err)
	return s
}

func TestRenderFrameDrawsScenesInZOrder(t *testing.T) {
	b := renderertest.NewBackend()
	r, err := renderer.NewRendererWithBackend(b, 640, 480)
	require.NoError(t, err)

	e := NewEngine(
		WithScene(10, newScene(t, r, "overlay", true)),
		WithScene(-1, newScene(t, r, "terrain", true)),
	)
	hidden := newScene(t, r, "hidden", true)
	hidden.SetActive(false)
	e.AddScene(5, hidden)

	require.NoError(t, e.RenderFrame(0.016))

	assert.Equal(t, 1, b.Count("BeginFrame"))
	assert.Equal(t, 1, b.Frames)
	require.Len(t, b.Draws, 2)
	assert.Equal(t, "terrain", b.Draws[0].Template.Name())
	assert.Equal(t, "overlay", b.Draws[1].Template.Name())
}

func TestRenderFrameContinuesPastFailingScene(t *testing.T) {
	b := renderertest.NewBackend()
	r, err := renderer.NewRendererWithBackend(b, 640, 480)
	require.NoError(t, err)

	e := NewEngine(
		WithScene(0, newScene(t, r, "nocamera", false)),
		WithScene(1, newScene(t, r, "terrain", true)),
	)

	err = e.RenderFrame(0)
	require.ErrorIs(t, err, scene.ErrNoActiveCamera)
	assert.Equal(t, 1, b.Frames)
	require.Len(t, b.Draws, 1)
	assert.Equal(t, "terrain", b.Draws[0].Template.Name())
}

func TestRenderFrameWithoutScenes(t *testing.T) {
	e := NewEngine()
	assert.NoError(t, e.RenderFrame(0))
}

func TestSceneRegistry(t *testing.T) {
	b := renderertest.NewBackend()
	r, err := renderer.NewRendererWithBackend(b, 640, 480)
	require.NoError(t, err)
	s := newScene(t, r, "terrain", true)

	e := NewEngine()
	e.AddScene(3, s)
	assert.Same(t, s, e.Scene(3))
	assert.Nil(t, e.Scene(4))

	scenes := e.Scenes()
	delete(scenes, 3)
	assert.NotNil(t, e.Scene(3))

	e.RemoveScene(3)
	assert.Nil(t, e.Scene(3))
}

func TestTickRateOptions(t *testing.T) {
	fps120, fps30 := 120.0, 30.0
	e := NewEngine(WithTickRate(0), WithRenderFrameLimit(120)).(*engine)
	assert.Equal(t, time.Second/60, e.engineTickRate)
	assert.Equal(t, time.Duration(float64(time.Second)/fps120), e.renderFrameLimit)

	e.SetTickRate(30)
	assert.Equal(t, time.Duration(float64(time.Second)/fps30), e.engineTickRate)

	e.SetRenderFrameLimit(-1)
	assert.Zero(t, e.renderFrameLimit)
}
