package hsmcore

import (
	"sort"

	"github.com/austenlm/hsmcore/internal/idgen"
)

// activeLeaves returns every active vertex with no active child, in a
// stable order. Outside a Parallel, this is exactly one vertex; under N
// orthogonal regions it is at least N.
func (m *Machine) activeLeaves() []idgen.ID {
	m.mu.Lock()
	var leaves []idgen.ID
	for id := range m.active {
		v := m.graph.mustVertex(id)
		hasActiveChild := false
		for _, c := range v.Children {
			if m.active[c] {
				hasActiveChild = true
				break
			}
		}
		if !hasActiveChild {
			leaves = append(leaves, id)
		}
	}
	m.mu.Unlock()
	sort.Slice(leaves, func(i, j int) bool { return leaves[i] < leaves[j] })
	return leaves
}

// selectTransitions returns the set of transitions to fire for ev: at most
// one per active leaf's ascent chain (depth priority — the deepest active
// ancestor with a matching, guard-passing transition wins and preempts any
// ancestor above it), deduplicated across leaves that ascend into the same
// shared transition (two orthogonal regions both reaching a transition
// declared on their common Parallel ancestor fire it once, together).
func (m *Machine) selectTransitions(ev wireEvent) []*Transition {
	winners := make(map[idgen.ID]*Transition)

	switch ev.kind {
	case wireExternal, wireCompletion:
		var starts []idgen.ID
		if ev.kind == wireCompletion {
			if !m.isActive(ev.region) {
				return nil
			}
			starts = []idgen.ID{ev.region}
		} else {
			starts = m.activeLeaves()
		}
		for _, leaf := range starts {
			for _, v := range m.graph.Ancestors(leaf) {
				t := m.firstEnabled(v, ev)
				if t != nil {
					winners[t.ID] = t
					break
				}
			}
		}
	case wireTimeout:
		if m.isActive(ev.vertex) && m.currentEpoch(ev.vertex) == ev.epoch {
			if t := m.firstEnabled(ev.vertex, ev); t != nil {
				winners[t.ID] = t
			}
		}
	}

	cands := make([]*Transition, 0, len(winners))
	for _, t := range winners {
		cands = append(cands, t)
	}
	out := m.resolveConflicts(cands)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// resolveConflicts drops transitions whose exit set intersects another
// candidate's: two winners from different active leaves can both ascend
// into transitions that would exit overlapping vertices (most commonly one
// leaf's deepest match is declared on a Parallel ancestor shared with
// another region). The transition rooted at the deeper source wins; ties
// break by declaration order.
func (m *Machine) resolveConflicts(cands []*Transition) []*Transition {
	exitSets := make([]map[idgen.ID]bool, len(cands))
	for i, t := range cands {
		set := make(map[idgen.ID]bool)
		for _, id := range m.activeDescendantsDeepestFirst(m.transitionAnchor(t)) {
			set[id] = true
		}
		exitSets[i] = set
	}

	dropped := make([]bool, len(cands))
	for i := range cands {
		if dropped[i] {
			continue
		}
		for j := i + 1; j < len(cands); j++ {
			if dropped[j] || !exitSetsIntersect(exitSets[i], exitSets[j]) {
				continue
			}
			di, dj := m.graph.Depth(cands[i].Source), m.graph.Depth(cands[j].Source)
			switch {
			case di > dj:
				dropped[j] = true
			case dj > di:
				dropped[i] = true
			case cands[i].seq <= cands[j].seq:
				dropped[j] = true
			default:
				dropped[i] = true
			}
			if dropped[i] {
				break
			}
		}
	}

	out := make([]*Transition, 0, len(cands))
	for i, t := range cands {
		if !dropped[i] {
			out = append(out, t)
		}
	}
	return out
}

func exitSetsIntersect(a, b map[idgen.ID]bool) bool {
	small, big := a, b
	if len(big) < len(small) {
		small, big = big, small
	}
	for id := range small {
		if big[id] {
			return true
		}
	}
	return false
}

// firstEnabled returns the first (declaration-order) transition sourced at
// v that matches ev and whose guard, if any, evaluates true.
func (m *Machine) firstEnabled(v idgen.ID, ev wireEvent) *Transition {
	for _, t := range m.graph.Outgoing(v) {
		if !m.transitionMatches(t, ev) {
			continue
		}
		if t.Guard == nil {
			return t
		}
		if m.evalGuard(t, ev) {
			return t
		}
	}
	return nil
}

func (m *Machine) transitionMatches(t *Transition, ev wireEvent) bool {
	switch ev.kind {
	case wireCompletion:
		return t.Completion
	case wireTimeout:
		return t.IsTimeout && t.Source == ev.vertex
	case wireExternal:
		return !t.Completion && !t.IsTimeout && t.Trigger != nil && t.Trigger(ev.payload)
	}
	return false
}

// evalGuard runs t.Guard, recovering a panic into a GuardError reported to
// observers and treated as "guard false".
func (m *Machine) evalGuard(t *Transition, ev wireEvent) (result bool) {
	defer func() {
		if r := recover(); r != nil {
			src := m.graph.mustVertex(t.Source)
			m.observers.guardError(m, &GuardError{Vertex: src.Name, Cause: r})
			result = false
		}
	}()
	return t.Guard(m, ev.payload)
}
