package hsmcore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraphAddChildRejectsLeafParent(t *testing.T) {
	g := NewGraph("root")
	leaf, err := g.AddChild(g.root, KindSimple, "leaf")
	require.NoError(t, err)

	_, err = g.AddChild(leaf.ID, KindSimple, "child")
	assert.Error(t, err)
	var se *StructuralError
	assert.ErrorAs(t, err, &se)
}

func TestGraphFreezesOnStart(t *testing.T) {
	g := NewGraph("root")
	g.started = true
	_, err := g.AddChild(g.root, KindSimple, "s")
	assert.Error(t, err)
}

func TestGraphLCA(t *testing.T) {
	g := NewGraph("root")
	a, _ := g.AddChild(g.root, KindComposite, "a")
	b, _ := g.AddChild(a.ID, KindComposite, "b")
	c, _ := g.AddChild(a.ID, KindComposite, "c")
	bLeaf, _ := g.AddChild(b.ID, KindSimple, "bLeaf")
	cLeaf, _ := g.AddChild(c.ID, KindSimple, "cLeaf")

	assert.Equal(t, a.ID, g.LCA(bLeaf.ID, cLeaf.ID))
	assert.Equal(t, a.ID, g.LCA(a.ID, cLeaf.ID))
	assert.Equal(t, g.root, g.LCA(g.root, cLeaf.ID))
}

func TestGraphAncestorsAndDepth(t *testing.T) {
	g := NewGraph("root")
	a, _ := g.AddChild(g.root, KindComposite, "a")
	b, _ := g.AddChild(a.ID, KindSimple, "b")

	chain := g.Ancestors(b.ID)
	require.Len(t, chain, 3)
	assert.Equal(t, b.ID, chain[0])
	assert.Equal(t, a.ID, chain[1])
	assert.Equal(t, g.root, chain[2])
	assert.Equal(t, 0, g.Depth(g.root))
	assert.Equal(t, 2, g.Depth(b.ID))
}

func TestGraphLocalTransitionRequiresAncestorEndpoint(t *testing.T) {
	g := NewGraph("root")
	a, _ := g.AddChild(g.root, KindComposite, "a")
	b, _ := g.AddChild(g.root, KindComposite, "b")

	_, err := g.AddTransition(a.ID, b.ID, Local, nil, nil, nil)
	assert.Error(t, err)
}

func TestGraphRemoveVertexCascade(t *testing.T) {
	g := NewGraph("root")
	a, _ := g.AddChild(g.root, KindComposite, "a")
	b, _ := g.AddChild(a.ID, KindSimple, "b")
	other, _ := g.AddChild(g.root, KindSimple, "other")
	tr, err := g.AddTransition(other.ID, b.ID, External, nil, nil, nil)
	require.NoError(t, err)

	g.removeVertexCascade(a.ID)

	_, ok := g.Vertex(a.ID)
	assert.False(t, ok)
	_, ok = g.Vertex(b.ID)
	assert.False(t, ok)
	_, ok = g.transitions[tr.ID]
	assert.False(t, ok)
}
