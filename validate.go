package hsmcore

import "github.com/austenlm/hsmcore/internal/idgen"

// Validate checks structural invariants required before a machine can
// start, aggregating every problem it finds rather than stopping at the
// first. NewMachine and Start wrap a non-nil result in a single
// StructuralError.
func (g *Graph) Validate() error {
	ve := &ValidationError{}
	g.validateVertex(g.root, ve)
	return ve.orNil()
}

func (g *Graph) validateVertex(id idgen.ID, ve *ValidationError) {
	v := g.mustVertex(id)

	switch v.Kind {
	case KindComposite:
		g.validateComposite(v, ve)
	case KindParallel:
		g.validateParallel(v, ve)
	case KindInitial:
		g.validateInitialPseudostate(v, ve)
	case KindJunction:
		g.validateJunction(v, ve)
	case KindShallowHistory, KindDeepHistory:
		g.validateHistory(v, ve)
	}

	for _, c := range v.Children {
		g.validateVertex(c, ve)
	}
}

func (g *Graph) validateComposite(v *Vertex, ve *ValidationError) {
	if len(v.Children) == 0 {
		return
	}
	initialPseudostates := 0
	for _, c := range v.Children {
		if g.mustVertex(c).Kind == KindInitial {
			initialPseudostates++
		}
	}
	if initialPseudostates > 1 {
		ve.add("composite %q has %d Initial pseudostates, at most one is allowed", v.Name, initialPseudostates)
	}
	if g.inferredInitial(v.ID) == "" {
		ve.add("composite %q has children but no initial child (explicit or Initial pseudostate)", v.Name)
	}

	if v.History != "" {
		g.validateReachableFinal(v, ve)
	}
}

func (g *Graph) validateParallel(v *Vertex, ve *ValidationError) {
	if len(v.Children) < 2 {
		ve.add("parallel state %q has %d regions, at least 2 are required", v.Name, len(v.Children))
	}
	for _, c := range v.Children {
		if g.mustVertex(c).Kind != KindComposite {
			ve.add("parallel state %q region %q must be Composite", v.Name, g.mustVertex(c).Name)
		}
	}
}

func (g *Graph) validateInitialPseudostate(v *Vertex, ve *ValidationError) {
	out := g.Outgoing(v.ID)
	if len(out) != 1 {
		ve.add("Initial pseudostate %q must have exactly one outgoing transition, has %d", v.Name, len(out))
		return
	}
	t := out[0]
	if t.Trigger != nil || t.Completion || t.IsTimeout {
		ve.add("Initial pseudostate %q outgoing transition must have no trigger", v.Name)
	}
	if t.Guard != nil {
		ve.add("Initial pseudostate %q outgoing transition must have no guard", v.Name)
	}
}

func (g *Graph) validateJunction(v *Vertex, ve *ValidationError) {
	out := g.Outgoing(v.ID)
	if len(out) == 0 {
		ve.add("junction %q has no outgoing transitions: always deadlocks", v.Name)
		return
	}
	elseCount := 0
	hasGuarded := false
	for _, t := range out {
		if t.IsElse {
			elseCount++
		} else {
			hasGuarded = true
		}
	}
	if elseCount > 1 {
		ve.add("junction %q has %d else branches, at most one is allowed", v.Name, elseCount)
	}
	if !hasGuarded && elseCount == 0 {
		ve.add("junction %q has no satisfiable outgoing branch and no else", v.Name)
	}
}

func (g *Graph) validateHistory(v *Vertex, ve *ValidationError) {
	out := g.Outgoing(v.ID)
	if len(out) > 1 {
		ve.add("history pseudostate %q has %d default outgoing transitions, at most one is allowed", v.Name, len(out))
	}
}

// validateReachableFinal flags a composite that declares a history
// pseudostate but whose children include an unreachable Final: history
// restoration into a dead region would hang the machine.
func (g *Graph) validateReachableFinal(composite *Vertex, ve *ValidationError) {
	var finals []idgen.ID
	for _, c := range composite.Children {
		if g.mustVertex(c).Kind == KindFinal {
			finals = append(finals, c)
		}
	}
	if len(finals) == 0 {
		return
	}
	initial := g.inferredInitial(composite.ID)
	if initial == "" {
		return
	}
	reachable := make(map[idgen.ID]bool)
	queue := []idgen.ID{initial}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if reachable[cur] {
			continue
		}
		reachable[cur] = true
		for _, t := range g.Outgoing(cur) {
			queue = append(queue, t.Target)
		}
	}
	for _, f := range finals {
		if !reachable[f] {
			ve.add("composite %q has history but Final %q is unreachable from its initial state", composite.Name, g.mustVertex(f).Name)
		}
	}
}
