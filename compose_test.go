package hsmcore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildRetryTemplate(t *testing.T) *Builder {
	t.Helper()
	tb := NewBuilder("retryTemplate")
	root := tb.Root()
	init, err := root.Initial()
	require.NoError(t, err)
	trying, err := root.State("trying")
	require.NoError(t, err)
	done, err := root.Final("done")
	require.NoError(t, err)

	_, err = init.Default().To(trying)
	require.NoError(t, err)
	_, err = trying.On("ok").To(done)
	require.NoError(t, err)
	require.NoError(t, tb.SetInitialChain(root, init))
	return tb
}

func TestAttachClonesSubgraphWithFreshIDs(t *testing.T) {
	template := buildRetryTemplate(t)
	templateRoot := template.Root()

	b := NewBuilder("root")
	parent, err := b.Root().Composite("host")
	require.NoError(t, err)

	clone, err := b.Attach(parent, templateRoot)
	require.NoError(t, err)

	assert.NotEqual(t, templateRoot.ID(), clone.ID())
	assert.Equal(t, parent.id, b.graph.mustVertex(clone.id).Parent)

	// The clone has its own trying/done children, distinct from the template's.
	cloneVert := b.graph.mustVertex(clone.id)
	assert.Len(t, cloneVert.Children, 3) // Initial, trying, done

	origOut := template.graph.Outgoing(template.graph.mustVertex(templateRoot.id).Initial)
	var origTryingID = origOut[0].Target
	for _, c := range template.graph.mustVertex(templateRoot.id).Children {
		if template.graph.mustVertex(c).Name == "trying" {
			origTryingID = c
		}
	}
	for _, c := range cloneVert.Children {
		assert.NotEqual(t, origTryingID, c)
	}
}

func TestAttachFailsAfterStart(t *testing.T) {
	template := buildRetryTemplate(t)
	b := NewBuilder("root")
	b.graph.started = true

	_, err := b.Attach(b.Root(), template.Root())
	assert.Error(t, err)
}

func TestMaskRemovesChildAndTransitions(t *testing.T) {
	b := NewBuilder("root")
	root := b.Root()
	comp, err := root.Composite("comp")
	require.NoError(t, err)
	init, err := comp.Initial()
	require.NoError(t, err)
	a, err := comp.State("a")
	require.NoError(t, err)
	bb, err := comp.State("b")
	require.NoError(t, err)
	_, err = init.Default().To(a)
	require.NoError(t, err)
	require.NoError(t, b.SetInitialChain(comp, init))
	_, err = a.On("go").To(bb)
	require.NoError(t, err)

	require.NoError(t, b.Mask(comp, "b"))

	_, ok := b.graph.Vertex(bb.id)
	assert.False(t, ok)
	assert.Empty(t, b.graph.Outgoing(a.id))
}

func TestMaskLeavesDanglingInitialDetected(t *testing.T) {
	b := NewBuilder("root")
	root := b.Root()
	comp, err := root.Composite("comp")
	require.NoError(t, err)
	a, err := comp.State("a")
	require.NoError(t, err)
	_, err = comp.State("b")
	require.NoError(t, err)
	require.NoError(t, b.SetInitial(comp, a))

	err = b.Mask(comp, "a")
	assert.Error(t, err)
}
