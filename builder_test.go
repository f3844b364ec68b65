package hsmcore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilderChainedTransitionsAdvanceTarget(t *testing.T) {
	b := NewBuilder("root")
	root := b.Root()

	a, err := root.State("a")
	require.NoError(t, err)
	bb, err := root.State("b")
	require.NoError(t, err)
	c, err := root.State("c")
	require.NoError(t, err)

	_, err = a.On("go").To(bb)
	require.NoError(t, err)
	last, err := bb.On("go").To(c)
	require.NoError(t, err)

	assert.Equal(t, c.ID(), last.ID())

	out := b.graph.Outgoing(a.id)
	require.Len(t, out, 1)
	assert.Equal(t, bb.id, out[0].Target)
}

func TestBuilderByNameRoundTrips(t *testing.T) {
	b := NewBuilder("root")
	root := b.Root()
	want, err := root.State("named")
	require.NoError(t, err)

	got, ok := b.ByName("named")
	require.True(t, ok)
	assert.Equal(t, want.ID(), got.ID())

	_, ok = b.ByName("nope")
	assert.False(t, ok)
}

func TestBuilderSetInitialAndChain(t *testing.T) {
	b := NewBuilder("root")
	root := b.Root()
	comp, err := root.Composite("comp")
	require.NoError(t, err)
	a, err := comp.State("a")
	require.NoError(t, err)
	bb, err := comp.State("b")
	require.NoError(t, err)
	_, err = a.On("next").To(bb)
	require.NoError(t, err)

	require.NoError(t, b.SetInitialChain(comp, a))
	assert.Equal(t, a.ID(), b.graph.mustVertex(comp.id).Initial)
}

func TestBuilderWithHooksAndTimeout(t *testing.T) {
	b := NewBuilder("root")
	root := b.Root()
	ran := false
	s, err := root.State("s")
	require.NoError(t, err)
	s = s.WithEntry(func(m *Machine, e Event) { ran = true }).WithTimeout(5 * time.Millisecond)

	vert := b.graph.mustVertex(s.id)
	assert.NotNil(t, vert.Entry)
	assert.Equal(t, 5*time.Millisecond, vert.Timeout)
	vert.Entry(nil, nil)
	assert.True(t, ran)
}

func TestBuilderJunctionElseFallback(t *testing.T) {
	b := NewBuilder("root")
	root := b.Root()
	j, err := root.Junction("j")
	require.NoError(t, err)
	yes, err := root.State("yes")
	require.NoError(t, err)
	no, err := root.State("no")
	require.NoError(t, err)

	_, err = j.Branch(func(m *Machine, e Event) bool { return false }).To(yes)
	require.NoError(t, err)
	_, err = j.Else().To(no)
	require.NoError(t, err)

	out := b.graph.Outgoing(j.id)
	require.Len(t, out, 2)
	assert.False(t, out[0].IsElse)
	assert.True(t, out[1].IsElse)
}

func TestBuilderOnTimeoutMarksTransition(t *testing.T) {
	b := NewBuilder("root")
	root := b.Root()
	s, err := root.State("s")
	require.NoError(t, err)
	other, err := root.State("other")
	require.NoError(t, err)

	_, err = s.OnTimeout().To(other)
	require.NoError(t, err)

	out := b.graph.Outgoing(s.id)
	require.Len(t, out, 1)
	assert.True(t, out[0].IsTimeout)
}

func TestBuilderOnCompletionMarksTransition(t *testing.T) {
	b := NewBuilder("root")
	root := b.Root()
	s, err := root.State("s")
	require.NoError(t, err)
	other, err := root.State("other")
	require.NoError(t, err)

	_, err = s.OnCompletion().To(other)
	require.NoError(t, err)

	out := b.graph.Outgoing(s.id)
	require.Len(t, out, 1)
	assert.True(t, out[0].Completion)
}

func TestBuilderToSelfIsInternal(t *testing.T) {
	b := NewBuilder("root")
	root := b.Root()
	s, err := root.State("s")
	require.NoError(t, err)

	_, err = s.On("bump").ToSelf()
	require.NoError(t, err)

	out := b.graph.Outgoing(s.id)
	require.Len(t, out, 1)
	assert.Equal(t, Internal, out[0].Kind)
	assert.Equal(t, s.id, out[0].Target)
}

func TestBuilderMustToPanicsOnError(t *testing.T) {
	b := NewBuilder("root")
	root := b.Root()
	s, err := root.State("s")
	require.NoError(t, err)
	b.graph.started = true

	assert.Panics(t, func() {
		s.On("x").MustTo(s)
	})
}
