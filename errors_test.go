package hsmcore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationErrorAggregatesProblems(t *testing.T) {
	ve := &ValidationError{}
	assert.Nil(t, ve.orNil())

	ve.add("problem %d", 1)
	assert.NotNil(t, ve.orNil())
	assert.Contains(t, ve.Error(), "problem 1")

	ve.add("problem %d", 2)
	assert.Contains(t, ve.Error(), "2 problems")
}

func TestStructuralErrorMessage(t *testing.T) {
	err := &StructuralError{Op: "AddChild", Msg: "boom"}
	assert.Contains(t, err.Error(), "AddChild")
	assert.Contains(t, err.Error(), "boom")
}

func TestGuardErrorMessage(t *testing.T) {
	err := &GuardError{Vertex: "s", Cause: "panicked"}
	assert.Contains(t, err.Error(), "s")
	assert.Contains(t, err.Error(), "panicked")
}

func TestActionErrorMessage(t *testing.T) {
	err := &ActionError{Vertex: "s", Phase: "entry", Cause: "boom"}
	assert.Contains(t, err.Error(), "entry")
	assert.Contains(t, err.Error(), "s")
}
