// Package idgen hands out stable identities for the vertex and transition arenas.
// Kept separate from the public package so the UUID dependency has a single
// point of entry and can be swapped without touching graph code.
package idgen

import "github.com/google/uuid"

// ID is a stable identity for a vertex, independent of any name the user
// supplied for diagnostics. Two clones of the same template vertex (see
// compose.go) always receive distinct IDs.
type ID string

// New returns a fresh, globally unique ID.
func New() ID {
	return ID(uuid.NewString())
}
