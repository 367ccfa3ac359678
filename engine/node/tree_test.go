package node

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-terrain/common"
	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTreeHasRoot(t *testing.T) {
	tr := NewTree()
	root, ok := tr.Get(RootName)
	require.True(t, ok)
	assert.Same(t, tr.Root(), root)
	assert.Equal(t, 1, tr.Len())
}

func TestInsertErrors(t *testing.T) {
	tr := NewTree()
	_, err := tr.Insert("a", RootName)
	require.NoError(t, err)

	_, err = tr.Insert("a", RootName)
	assert.ErrorIs(t, err, ErrNodeExists)

	_, err = tr.Insert("b", "missing")
	assert.ErrorIs(t, err, ErrNodeNotFound)
	_, ok := tr.Get("b")
	assert.False(t, ok)
}

func TestChildGrandchildRotationScenario(t *testing.T) {
	tr := NewTree()
	c, err := tr.Insert("c", RootName, WithPosition(100, 0, 1), WithRotationEuler(0, 0, math32.Pi/2))
	require.NoError(t, err)
	g, err := tr.Insert("g", "c", WithRotationEuler(0, 0, math32.Pi/2))
	require.NoError(t, err)

	tr.Update()

	cPos := common.Translation3(c.WorldMatrix())
	gPos := common.Translation3(g.WorldMatrix())
	for i := range cPos {
		assert.InDelta(t, cPos[i], gPos[i], eps)
	}
	assert.InDelta(t, 100, gPos[0], eps)
	assert.InDelta(t, 1, gPos[2], eps)

	// Two quarter turns about Z: the grandchild's X axis points along -X.
	assert.InDelta(t, -1, g.WorldMatrix()[0], eps)
	assertWorldInvariant(t, tr.Root())
}

func TestAttachReparentsAndIndexesSubtree(t *testing.T) {
	tr := NewTree()
	_, err := tr.Insert("a", RootName)
	require.NoError(t, err)
	_, err = tr.Insert("b", RootName)
	require.NoError(t, err)

	sub := NewNode("sub")
	sub.AddChild(NewNode("leaf"))
	require.NoError(t, tr.Attach(sub, "a"))

	leaf, ok := tr.Get("leaf")
	require.True(t, ok)
	assert.Equal(t, "sub", leaf.Parent().Name())

	require.NoError(t, tr.Attach(sub, "b"))
	a, _ := tr.Get("a")
	b, _ := tr.Get("b")
	assert.Empty(t, a.Children())
	assert.Len(t, b.Children(), 1)
	assert.Equal(t, 5, tr.Len())
}

func TestAttachConflicts(t *testing.T) {
	tr := NewTree()
	_, err := tr.Insert("a", RootName)
	require.NoError(t, err)

	assert.ErrorIs(t, tr.Attach(NewNode("a"), RootName), ErrNodeExists)
	assert.ErrorIs(t, tr.Attach(NewNode("x"), "missing"), ErrNodeNotFound)

	_, err = tr.Insert("a1", "a")
	require.NoError(t, err)
	a, _ := tr.Get("a")
	assert.ErrorIs(t, tr.Attach(a, "a1"), ErrCycle)
}

func TestRemoveDropsSubtreeFromIndex(t *testing.T) {
	tr := NewTree()
	_, err := tr.Insert("a", RootName)
	require.NoError(t, err)
	_, err = tr.Insert("a1", "a")
	require.NoError(t, err)

	removed, err := tr.Remove("a")
	require.NoError(t, err)
	assert.Nil(t, removed.Parent())
	assert.Equal(t, 1, tr.Len())
	_, ok := tr.Get("a1")
	assert.False(t, ok)

	_, err = tr.Remove("a")
	assert.ErrorIs(t, err, ErrNodeNotFound)
	_, err = tr.Remove(RootName)
	assert.ErrorIs(t, err, ErrRootRemoval)
}

func TestGetFallsBackWhenIndexIsStale(t *testing.T) {
	tr := NewTree()
	a, err := tr.Insert("a", RootName)
	require.NoError(t, err)

	// Structural edits made directly on nodes bypass the index.
	tr.Root().RemoveChild(a)
	_, ok := tr.Get("a")
	assert.False(t, ok)

	direct := NewNode("direct")
	tr.Root().AddChild(direct)
	got, ok := tr.Get("direct")
	require.True(t, ok)
	assert.Same(t, direct, got)
}
