package hsmcore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithObserverRegistersObserver(t *testing.T) {
	m := buildTwoStateMachine(t, WithObserver(&recordingObserver{}))
	require.Len(t, m.observers.observers, 1)
}

func TestWithEventSourceWiresField(t *testing.T) {
	src := chanEventSource{events: make(chan Event)}
	m := buildTwoStateMachine(t, WithEventSource(src))
	assert.NotNil(t, m.eventSource)
}

func TestWithVisualizerWiresField(t *testing.T) {
	m := buildTwoStateMachine(t, WithVisualizer(DotVisualizer{}))
	assert.NotNil(t, m.visualizer)
}
