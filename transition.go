package hsmcore

import "github.com/austenlm/hsmcore/internal/idgen"

// TransitionKind distinguishes how much of the ancestor chain a transition
// disturbs on firing.
type TransitionKind int

const (
	// External is the default: every active vertex below the LCA of
	// source and target is exited, then the path from the LCA down to the
	// target is entered. The LCA is inclusive, so when one endpoint is an
	// ancestor of the other, that ancestor is neither exited nor re-entered.
	External TransitionKind = iota

	// Internal transitions never exit or enter anything. Source must equal
	// target.
	Internal

	// Local is grounded on dragomit-hsm's TransitionBuilder.Local: a
	// transition between an ancestor composite and one of its (direct or
	// transitive) descendants that does not exit/re-enter the ancestor
	// itself. Only legal when one endpoint is an ancestor of the other;
	// AddTransition rejects Local elsewhere. For such a pair External also
	// anchors at the ancestor, so a Local transition fires exactly as the
	// equivalent External one does.
	Local
)

// Transition is a directed edge between two vertices.
type Transition struct {
	ID     idgen.ID
	Source idgen.ID
	Target idgen.ID
	Kind   TransitionKind

	// Trigger matches external events. Nil for a pseudostate's untriggered
	// default edge (Initial, History default, Junction branch) and for
	// Completion transitions, neither of which the selector trigger-matches
	// against posted events.
	Trigger TriggerFunc

	// Completion marks a transition whose source is an ordinary state
	// (Simple/Composite/Parallel) and which fires only on the synthetic
	// completion event generated when Source's own region reaches Final.
	Completion bool

	Guard  GuardFunc
	Action ActionFunc

	// IsElse marks a Junction's fallback branch: taken when no guarded
	// branch of the same junction evaluates true.
	IsElse bool

	// IsTimeout marks a transition that fires only on the synthetic
	// timeout event generated when Source's own armed timer expires.
	// Source must be the same vertex that declared the Timeout duration.
	IsTimeout bool

	// seq records the order AddTransition assigned this edge, the
	// declaration order conflict resolution (selector.go) ties on.
	seq int
}
