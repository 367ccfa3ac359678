package control

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-terrain/engine/uniform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddAndDuplicate(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.Add("x", WithInitial(0.4)))
	assert.ErrorIs(t, m.Add("x"), ErrControlExists)

	v, ok := m.Value("x")
	assert.True(t, ok)
	assert.Equal(t, float32(0.4), v)
	assert.Equal(t, "0.40", m.Display("x"))
	assert.Equal(t, []string{"x"}, m.Names())
}

func TestSetTransformsClampsAndNotifies(t *testing.T) {
	m := NewManager()
	var got []float32
	require.NoError(t, m.Add("x",
		WithRange(0, 10),
		WithTransformers(Transformers{
			Value:   func(v float32) float32 { return v * 2 },
			Display: func(v float32) string { return "x=" + formatValue(v) },
		}),
		WithOnChange(func(name string, v float32) {
			assert.Equal(t, "x", name)
			got = append(got, v)
		}),
	))

	v, err := m.Set("x", 3)
	require.NoError(t, err)
	assert.Equal(t, float32(6), v)

	v, err = m.Set("x", 100)
	require.NoError(t, err)
	assert.Equal(t, float32(10), v)
	assert.Equal(t, []float32{6, 10}, got)
	assert.Equal(t, "x=10.00", m.Display("x"))

	_, err = m.Set("missing", 1)
	assert.ErrorIs(t, err, ErrControlNotFound)
}

func TestStep(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.Add("x", WithStep(0.25)))

	v, err := m.Step("x", 3)
	require.NoError(t, err)
	assert.Equal(t, float32(0.75), v)

	v, err = m.Step("x", -10)
	require.NoError(t, err)
	assert.Equal(t, float32(0), v)

	_, err = m.Step("missing", 1)
	assert.ErrorIs(t, err, ErrControlNotFound)
}

func TestProducerReadsLiveValue(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.Add("x"))
	p := m.Producer("x")
	assert.Equal(t, uniform.KindProducer, p.Kind())

	color := uniform.Components(p, uniform.Float(0), uniform.Float(0), uniform.Float(1))

	_, err := m.Set("x", 0.25)
	require.NoError(t, err)
	first, err := uniform.Resolve(color)
	require.NoError(t, err)

	_, err = m.Set("x", 0.5)
	require.NoError(t, err)
	second, err := uniform.Resolve(color)
	require.NoError(t, err)

	assert.Equal(t, []float32{0.25, 0, 0, 1}, first)
	assert.Equal(t, []float32{0.5, 0, 0, 1}, second)

	assert.True(t, m.Remove("x"))
	assert.False(t, m.Remove("x"))
	gone, err := uniform.Resolve(p)
	require.NoError(t, err)
	assert.Equal(t, float32(0), gone)
}

func TestValuesAndSetOnChange(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.Add("a", WithInitial(0.1)))
	require.NoError(t, m.Add("b", WithInitial(0.2)))
	assert.Equal(t, map[string]float32{"a": 0.1, "b": 0.2}, m.Values())
	assert.Equal(t, []string{"a", "b"}, m.Names())

	called := false
	require.NoError(t, m.SetOnChange("b", func(string, float32) { called = true }))
	_, err := m.Set("b", 0.3)
	require.NoError(t, err)
	assert.True(t, called)
	assert.ErrorIs(t, m.SetOnChange("zzz", nil), ErrControlNotFound)
	assert.Equal(t, "", m.Display("zzz"))
}
