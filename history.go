package hsmcore

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/austenlm/hsmcore/internal/idgen"
)

// historySnapshot is the recorded configuration for one history
// pseudostate's enclosing composite, captured on exit and replayed on
// re-entry.
type historySnapshot struct {
	deep bool
	// active holds, in parent-before-child order, every vertex that was
	// active under the composite at the moment of exit (excluding the
	// composite itself). For shallow history this is exactly one vertex:
	// the direct active child. For deep history it is the full active
	// subtree.
	active []idgen.ID
}

// HistoryStore holds one snapshot per composite that owns a history
// pseudostate. Grounded on internal/core/historymanager.go, generalized
// from string state paths to arena vertex IDs and from a single
// shallow-child string to a full ordered active set (needed to restore
// deep history across nested composites: a grandchild re-enters directly
// instead of falling back to the parent's default initial substate).
//
// An orderedmap.OrderedMap is used (rather than a plain map) so that a
// renderer or diagnostic dump iterates history records in the order their
// owning composites were first exited, matching the corpus's preference
// for deterministic iteration (dragomit-hsm's go.mod dependency).
type HistoryStore struct {
	records *orderedmap.OrderedMap[idgen.ID, *historySnapshot]
}

func newHistoryStore() *HistoryStore {
	return &HistoryStore{records: orderedmap.New[idgen.ID, *historySnapshot]()}
}

// record stores the active set under composite, keyed by the composite's
// own ID (not the history pseudostate's ID — a composite has at most one
// history pseudostate, so this is unambiguous).
func (h *HistoryStore) record(composite idgen.ID, deep bool, active []idgen.ID) {
	snap := &historySnapshot{deep: deep, active: append([]idgen.ID(nil), active...)}
	h.records.Set(composite, snap)
}

// restore returns the recorded active set for composite and whether it was
// a deep snapshot, if any was recorded.
func (h *HistoryStore) restore(composite idgen.ID) ([]idgen.ID, bool, bool) {
	snap, ok := h.records.Get(composite)
	if !ok {
		return nil, false, false
	}
	return snap.active, snap.deep, true
}
