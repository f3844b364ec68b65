package hsmcore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateRejectsCompositeWithoutInitial(t *testing.T) {
	g := NewGraph("root")
	_, err := g.AddChild(g.root, KindSimple, "a")
	require.NoError(t, err)

	err = g.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no initial child")
}

func TestValidateRejectsMultipleInitialPseudostates(t *testing.T) {
	g := NewGraph("root")
	_, err := g.AddChild(g.root, KindInitial, "")
	require.NoError(t, err)
	_, err = g.AddChild(g.root, KindInitial, "")
	require.NoError(t, err)

	err = g.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at most one is allowed")
}

func TestValidateRejectsParallelWithTooFewRegions(t *testing.T) {
	g := NewGraph("root")
	par, err := g.AddChild(g.root, KindParallel, "par")
	require.NoError(t, err)
	_, err = g.AddChild(par.ID, KindComposite, "onlyRegion")
	require.NoError(t, err)

	err = g.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 2 regions")
}

func TestValidateRejectsParallelRegionThatIsNotComposite(t *testing.T) {
	g := NewGraph("root")
	par, err := g.AddChild(g.root, KindParallel, "par")
	require.NoError(t, err)
	_, err = g.AddChild(par.ID, KindComposite, "regionA")
	require.NoError(t, err)
	_, err = g.AddChild(par.ID, KindSimple, "regionB")
	require.NoError(t, err)

	err = g.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be Composite")
}

func TestValidateRejectsJunctionWithNoBranches(t *testing.T) {
	g := NewGraph("root")
	_, err := g.AddChild(g.root, KindJunction, "j")
	require.NoError(t, err)

	err = g.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "deadlocks")
}

func TestValidateRejectsUnreachableFinalUnderHistory(t *testing.T) {
	g := NewGraph("root")
	a, err := g.AddChild(g.root, KindSimple, "a")
	require.NoError(t, err)
	final, err := g.AddChild(g.root, KindFinal, "final")
	require.NoError(t, err)
	_, err = g.AddChild(g.root, KindShallowHistory, "h")
	require.NoError(t, err)
	require.NoError(t, g.SetInitial(g.root, a))

	_ = final // declared but never reachable from a

	err = g.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unreachable")
}

func TestValidateAcceptsWellFormedGraph(t *testing.T) {
	b := NewBuilder("root")
	root := b.Root()
	init, err := root.Initial()
	require.NoError(t, err)
	a, err := root.State("a")
	require.NoError(t, err)
	_, err = init.Default().To(a)
	require.NoError(t, err)
	require.NoError(t, b.SetInitialChain(root, init))

	assert.NoError(t, b.graph.Validate())
}
