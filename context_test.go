package hsmcore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserContextAssignAndLookup(t *testing.T) {
	m := &Machine{ctx: newUserContext()}
	assert.Nil(t, m.Lookup("missing"))

	m.Assign("count", 3)
	assert.Equal(t, 3, m.Lookup("count"))

	m.Assign("count", 4)
	assert.Equal(t, 4, m.Lookup("count"))
}
