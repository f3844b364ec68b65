package hsmcore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDotVisualizerRendersVerticesAndTransitions(t *testing.T) {
	b := NewBuilder("root")
	root := b.Root()
	init, err := root.Initial()
	require.NoError(t, err)
	a, err := root.State("a")
	require.NoError(t, err)
	bb, err := root.Final("b")
	require.NoError(t, err)
	_, err = init.Default().To(a)
	require.NoError(t, err)
	require.NoError(t, b.SetInitialChain(root, init))
	_, err = a.OnCompletion().To(bb)
	require.NoError(t, err)

	out, err := DotVisualizer{}.Render(b.graph)
	require.NoError(t, err)
	assert.Contains(t, out, "digraph statemachine")
	assert.Contains(t, out, "\"a\"")
	assert.Contains(t, out, "completion")
}

func TestMachineRenderRequiresVisualizer(t *testing.T) {
	m := buildTwoStateMachine(t)
	_, err := m.Render()
	assert.Error(t, err)
}

func TestMachineRenderUsesConfiguredVisualizer(t *testing.T) {
	m := buildTwoStateMachine(t, WithVisualizer(DotVisualizer{}))
	out, err := m.Render()
	require.NoError(t, err)
	assert.Contains(t, out, "digraph statemachine")
}
