package scene

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/Carmen-Shannon/oxy-terrain/common"
	"github.com/Carmen-Shannon/oxy-terrain/engine/camera"
	"github.com/Carmen-Shannon/oxy-terrain/engine/light"
	"github.com/Carmen-Shannon/oxy-terrain/engine/mesh"
	"github.com/Carmen-Shannon/oxy-terrain/engine/node"
	"github.com/Carmen-Shannon/oxy-terrain/engine/renderer"
	"github.com/Carmen-Shannon/oxy-terrain/engine/renderer/renderertest"
	"github.com/Carmen-Shannon/oxy-terrain/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-terrain/engine/uniform"
	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const eps = 1e-3

func newTestScene(t *testing.T, options ...SceneBuilderOption) (Scene, *renderertest.Backend) {
	t.Helper()
	b := renderertest.NewBackend()
	r, err := renderer.NewRendererWithBackend(b, 800, 600)
	require.NoError(t, err)

	s := NewScene(r, options...)
	require.NoError(t, s.AddShaderProgram("default", shader.Source{Name: "default"}))
	_, err = s.CreateMesh("cube", []mesh.Attribute{
		{Name: "a_position", Components: 3, Data: []float32{0, 0, 0, 1, 0, 0, 0, 1, 0}},
	})
	require.NoError(t, err)
	return s, b
}

// frame renders one frame through the active camera.
func frame(t *testing.T, s Scene) error {
	t.Helper()
	r := s.Renderer()
	require.NoError(t, r.BeginFrame())
	err := s.Draw(0)
	require.NoError(t, r.EndFrame())
	return err
}

func testCamera() camera.Camera {
	return camera.NewCamera(
		camera.WithFovDegrees(30),
		camera.WithAspect(4.0/3.0),
		camera.WithPosition(0, 300, 200),
		camera.WithTarget(0, 0, 0),
	)
}

func floats(t *testing.T, d renderertest.Draw, name string) []float32 {
	t.Helper()
	v, ok := d.Floats[name]
	require.True(t, ok, "uniform %s not bound", name)
	return v
}

func TestRenderWithoutCameraFails(t *testing.T) {
	s, b := newTestScene(t)
	_, err := s.CreateInstance("cube", nil, node.RootName)
	require.NoError(t, err)

	err = frame(t, s)
	require.ErrorIs(t, err, ErrNoActiveCamera)

	require.NoError(t, s.Renderer().BeginFrame())
	err = s.Render("main")
	require.NoError(t, s.Renderer().EndFrame())
	require.ErrorIs(t, err, ErrNoActiveCamera)

	assert.Empty(t, b.Draws)
	assert.Zero(t, b.Count("CreateMesh"))
}

func TestChildGrandchildScenario(t *testing.T) {
	s, b := newTestScene(t, WithCamera("main", testCamera()))
	_, err := s.InsertNode("c", node.RootName, node.WithPosition(100, 0, 1), node.WithRotationEuler(0, 0, math32.Pi/2))
	require.NoError(t, err)
	_, err = s.InsertNode("g", "c", node.WithRotationEuler(0, 0, math32.Pi/2))
	require.NoError(t, err)
	_, err = s.CreateInstance("cube", nil, "c")
	require.NoError(t, err)
	_, err = s.CreateInstance("cube", nil, "g")
	require.NoError(t, err)

	require.NoError(t, frame(t, s))
	require.Len(t, b.Draws, 2)

	c := floats(t, b.Draws[0], UniformWorldMatrix)
	g := floats(t, b.Draws[1], UniformWorldMatrix)
	require.Len(t, g, 16)
	for i := 12; i < 15; i++ {
		assert.InDelta(t, c[i], g[i], eps)
	}
	assert.InDelta(t, 100, g[12], eps)
	assert.InDelta(t, 0, g[13], eps)
	assert.InDelta(t, 1, g[14], eps)
}

func TestLightOnRoot(t *testing.T) {
	s, b := newTestScene(t, WithCamera("main", testCamera()))
	require.NoError(t, s.AddLight(light.NewLight(node.RootName, light.WithPosition(100, 100, 100))))
	_, err := s.CreateInstance("cube", nil, node.RootName)
	require.NoError(t, err)

	require.NoError(t, frame(t, s))
	require.Len(t, b.Draws, 1)

	pos := floats(t, b.Draws[0], light.UniformWorldPosition)
	assert.InDeltaSlice(t, []float32{100, 100, 100}, pos, eps)
	assert.Equal(t, []float32{1, 1, 1}, floats(t, b.Draws[0], light.UniformColor))
}

func TestLightFollowsItsNode(t *testing.T) {
	s, b := newTestScene(t, WithCamera("main", testCamera()))
	_, err := s.InsertNode("sun", node.RootName, node.WithPosition(0, 50, 0))
	require.NoError(t, err)
	require.NoError(t, s.AddLight(light.NewLight("sun", light.WithPosition(10, 0, 0))))
	_, err = s.CreateInstance("cube", nil, node.RootName)
	require.NoError(t, err)

	require.NoError(t, frame(t, s))
	assert.InDeltaSlice(t, []float32{10, 50, 0}, floats(t, b.Draws[0], light.UniformWorldPosition), eps)

	require.NoError(t, s.Mutate(func(s Scene) error {
		n, _ := s.Node("sun")
		n.SetPosition(0, 80, 0)
		return nil
	}))
	require.NoError(t, frame(t, s))
	assert.InDeltaSlice(t, []float32{10, 80, 0}, floats(t, b.Draws[1], light.UniformWorldPosition), eps)
}

func TestAddLightRequiresNode(t *testing.T) {
	s, _ := newTestScene(t)
	err := s.AddLight(light.NewLight("missing"))
	require.ErrorIs(t, err, node.ErrNodeNotFound)
	assert.Zero(t, s.Lights().Len())
}

func TestMergePrecedence(t *testing.T) {
	s, b := newTestScene(t, WithCamera("main", testCamera()))
	require.NoError(t, s.AddLight(light.NewLight(node.RootName, light.WithColor(0, 1, 0))))
	_, err := s.CreateInstance("cube", uniform.Values{
		UniformMatrix:      uniform.Vec(make([]float32, 16)...),
		light.UniformColor: uniform.Vec(1, 0, 0),
		"u_shininess":      uniform.Float(150),
	}, node.RootName)
	require.NoError(t, err)

	require.NoError(t, frame(t, s))
	d := b.Draws[0]

	// The camera block overrides the instance, and lights override both.
	cam := testCamera()
	vp := cam.ViewProjectionMatrix()
	assert.InDeltaSlice(t, vp[:], floats(t, d, UniformMatrix), eps)
	assert.Equal(t, []float32{0, 1, 0}, floats(t, d, light.UniformColor))
	assert.Equal(t, []float32{150}, floats(t, d, "u_shininess"))
}

func TestCameraBlock(t *testing.T) {
	cam := testCamera()
	s, b := newTestScene(t, WithCamera("main", cam))
	_, err := s.InsertNode("n", node.RootName, node.WithPosition(5, 0, 0), node.WithScale(2, 2, 2))
	require.NoError(t, err)
	_, err = s.CreateInstance("cube", nil, "n")
	require.NoError(t, err)

	require.NoError(t, frame(t, s))
	d := b.Draws[0]

	n, _ := s.Node("n")
	world := n.WorldMatrix()
	vp := cam.ViewProjectionMatrix()
	var want [16]float32
	common.Mul4(want[:], vp[:], world)
	assert.InDeltaSlice(t, want[:], floats(t, d, UniformMatrix), eps)

	view := cam.ViewMatrix()
	proj := cam.ProjectionMatrix()
	assert.InDeltaSlice(t, view[:], floats(t, d, UniformViewMatrix), eps)
	assert.InDeltaSlice(t, proj[:], floats(t, d, UniformProjectionMatrix), eps)
	assert.InDeltaSlice(t, []float32{0, 300, 200}, floats(t, d, UniformViewPosition), eps)

	// Uniform scale 2: the inverse transpose has 0.5 on the diagonal.
	wit := floats(t, d, UniformWorldInverseTranspose)
	assert.InDelta(t, 0.5, wit[0], eps)
	assert.InDelta(t, 0.5, wit[5], eps)
	assert.InDelta(t, 0.5, wit[10], eps)
	assert.InDelta(t, 0, wit[12], eps)
}

func TestProducersReevaluatedEveryFrame(t *testing.T) {
	s, b := newTestScene(t, WithCamera("main", testCamera()))
	red := float32(0.4)
	_, err := s.CreateInstance("cube", uniform.Values{
		"u_color": uniform.Components(
			uniform.Producer(func() any { return red }),
			uniform.Float(0), uniform.Float(0), uniform.Float(1),
		),
	}, node.RootName)
	require.NoError(t, err)

	require.NoError(t, frame(t, s))
	red = 0.9
	require.NoError(t, frame(t, s))

	require.Len(t, b.Draws, 2)
	assert.InDeltaSlice(t, []float32{0.4, 0, 0, 1}, floats(t, b.Draws[0], "u_color"), eps)
	assert.InDeltaSlice(t, []float32{0.9, 0, 0, 1}, floats(t, b.Draws[1], "u_color"), eps)
}

func TestMissingShaderIsSkipped(t *testing.T) {
	s, b := newTestScene(t, WithCamera("main", testCamera()))
	_, err := s.CreateInstance("cube", nil, node.RootName, mesh.WithShader("terrain"))
	require.NoError(t, err)
	_, err = s.CreateInstance("cube", nil, node.RootName)
	require.NoError(t, err)

	require.NoError(t, frame(t, s))
	require.Len(t, b.Draws, 1)
	assert.Equal(t, "default", b.Draws[0].Program)

	require.NoError(t, s.AddShaderProgram("terrain", shader.Source{Name: "terrain"}))
	require.NoError(t, frame(t, s))
	assert.Len(t, b.Draws, 3)
}

func TestMissingShaderWarnsOncePerMesh(t *testing.T) {
	var buf bytes.Buffer
	s, _ := newTestScene(t,
		WithCamera("main", testCamera()),
		WithLogger(slog.New(slog.NewTextHandler(&buf, nil))),
	)
	_, err := s.CreateMesh("quad", []mesh.Attribute{
		{Name: "a_position", Components: 3, Data: []float32{0, 0, 0, 1, 0, 0, 0, 1, 0}},
	})
	require.NoError(t, err)
	for _, m := range []string{"cube", "cube", "quad"} {
		_, err := s.CreateInstance(m, nil, node.RootName, mesh.WithShader("terrain"))
		require.NoError(t, err)
	}

	require.NoError(t, frame(t, s))
	require.NoError(t, frame(t, s))
	assert.Equal(t, 2, strings.Count(buf.String(), "shader program not registered"))
	assert.Contains(t, buf.String(), "mesh=cube")
	assert.Contains(t, buf.String(), "mesh=quad")
}

func TestDisabledNodeSkipsOnlyItself(t *testing.T) {
	s, b := newTestScene(t, WithCamera("main", testCamera()))
	_, err := s.InsertNode("parent", node.RootName, node.WithEnabled(false))
	require.NoError(t, err)
	_, err = s.InsertNode("child", "parent")
	require.NoError(t, err)
	_, err = s.CreateInstance("cube", nil, "parent")
	require.NoError(t, err)
	_, err = s.CreateInstance("cube", nil, "child", mesh.WithShader("default"))
	require.NoError(t, err)

	require.NoError(t, frame(t, s))
	assert.Len(t, b.Draws, 1)
}

func TestCreateInstanceErrors(t *testing.T) {
	s, _ := newTestScene(t)

	_, err := s.CreateInstance("sphere", nil, node.RootName)
	require.ErrorIs(t, err, ErrMeshNotFound)

	_, err = s.CreateInstance("cube", nil, "nowhere")
	require.ErrorIs(t, err, node.ErrNodeNotFound)

	_, err = s.CreateMesh("cube", []mesh.Attribute{{Name: "a_position", Components: 3, Data: []float32{0, 0, 0}}})
	require.ErrorIs(t, err, ErrMeshExists)

	_, err = s.CreateMesh("bad", []mesh.Attribute{{Name: "a_position", Components: 3, Data: []float32{0, 0}}})
	require.ErrorIs(t, err, mesh.ErrInvalidAttribute)
}

func TestRemoveMeshReleasesBuffers(t *testing.T) {
	s, b := newTestScene(t, WithCamera("main", testCamera()))
	_, err := s.CreateInstance("cube", nil, node.RootName)
	require.NoError(t, err)
	require.NoError(t, frame(t, s))
	assert.Equal(t, 1, b.Meshes())

	assert.True(t, s.RemoveMesh("cube"))
	assert.False(t, s.RemoveMesh("cube"))
	assert.Zero(t, b.Meshes())
	_, ok := s.Mesh("cube")
	assert.False(t, ok)
}

func TestActiveCameraSelection(t *testing.T) {
	s, _ := newTestScene(t)
	first := testCamera()
	second := testCamera()
	s.AddCamera("first", first)
	s.AddCamera("second", second)

	name, cam := s.ActiveCamera()
	assert.Equal(t, "first", name)
	assert.Same(t, first, cam)

	require.NoError(t, s.SetActiveCamera("second"))
	name, _ = s.ActiveCamera()
	assert.Equal(t, "second", name)

	require.ErrorIs(t, s.SetActiveCamera("third"), ErrCameraNotFound)
}

type recordingController struct {
	camera.CameraController
	updates []float32
}

func (c *recordingController) Attach(camera.Placement) {}
func (c *recordingController) Update(dt float32)       { c.updates = append(c.updates, dt) }

func TestDrawAdvancesActiveController(t *testing.T) {
	ctrl := &recordingController{}
	cam := testCamera()
	cam.SetController(ctrl)
	s, _ := newTestScene(t, WithCamera("main", cam))

	r := s.Renderer()
	require.NoError(t, r.BeginFrame())
	require.NoError(t, s.Draw(0.016))
	require.NoError(t, r.EndFrame())

	assert.Equal(t, []float32{0.016}, ctrl.updates)
}

func TestResizeUpdatesCamerasAndRenderer(t *testing.T) {
	cam := testCamera()
	s, b := newTestScene(t, WithCamera("main", cam))

	s.Resize(1000, 500)
	assert.InDelta(t, 2, cam.Projection().Aspect(), eps)
	assert.Equal(t, 1000, b.Width)

	s.Resize(0, 0)
	assert.InDelta(t, 2, cam.Projection().Aspect(), eps)
}

func TestMutateReturnsError(t *testing.T) {
	s, _ := newTestScene(t)
	boom := errors.New("boom")
	err := s.Mutate(func(Scene) error { return boom })
	assert.ErrorIs(t, err, boom)
}
