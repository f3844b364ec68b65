package hsmcore

import "github.com/austenlm/hsmcore/internal/idgen"

// wireKind distinguishes the three sources of events the selector must
// treat differently: a caller-posted event matched by TriggerFunc, a
// synthetic completion reached when a region's Final becomes active, and a
// synthetic timeout delivered by the timer scheduler.
type wireKind int

const (
	wireExternal wireKind = iota
	wireCompletion
	wireTimeout
)

// wireEvent is the unit the event queue actually carries. External events
// wrap the caller's payload; completion and timeout events carry no
// payload, only the vertex they originated from.
type wireEvent struct {
	kind wireKind

	// payload is the caller-supplied Event for wireExternal; unused
	// otherwise.
	payload Event

	// region is the composite (or parallel region) whose Final just
	// became active, for wireCompletion.
	region idgen.ID

	// vertex and epoch identify the timer for wireTimeout: vertex is the
	// state whose Timeout fired, epoch ties it to a specific entry so a
	// timer that fires after the state has already been re-entered is
	// recognized as stale and discarded.
	vertex idgen.ID
	epoch  uint64
}
