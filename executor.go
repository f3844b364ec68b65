package hsmcore

import (
	"fmt"
	"sync/atomic"

	"github.com/austenlm/hsmcore/internal/idgen"
)

// enterInitialConfiguration resolves and enters the root's initial chain,
// then drains any completion events that immediately follow (a degenerate
// machine whose initial state is itself a Final, or one nested inside an
// already-satisfied Parallel).
func (m *Machine) enterInitialConfiguration() {
	m.currentEvent = nil
	m.enteredFinals = nil
	m.resolveAndEnter(m.graph.root)
	m.drain(m.collectCompletions())
}

// step runs one external/timeout event, plus every completion event it
// transitively generates, to quiescence before returning control to the
// consumer loop.
func (m *Machine) step(ev wireEvent) {
	m.drain([]wireEvent{ev})
}

func (m *Machine) drain(pending []wireEvent) {
	for len(pending) > 0 {
		if !m.running() {
			return
		}
		cur := pending[0]
		pending = pending[1:]
		for _, t := range m.selectTransitions(cur) {
			pending = append(pending, m.fire(t, cur)...)
			if !m.running() {
				return
			}
		}
	}
}

func (m *Machine) running() bool {
	return atomic.LoadInt32(&m.started) == 1
}

// fire executes one transition: exit behaviors below its anchor, the
// transition's own action, then entry behaviors down to its target. It
// returns the completion events generated by any Final reached along the
// way.
func (m *Machine) fire(t *Transition, ev wireEvent) []wireEvent {
	m.currentEvent = ev.payload
	m.enteredFinals = nil

	if t.Kind == Internal {
		m.runAction(t.Action, t.Source, "transition")
		m.observers.transition(m, t, ev.payload)
		return nil
	}

	anchor := m.transitionAnchor(t)
	ascendingLocal := t.Kind == Local && m.graph.Depth(t.Source) > m.graph.Depth(t.Target)

	m.exitChain(m.activeDescendantsDeepestFirst(anchor))

	m.runAction(t.Action, t.Source, "transition")
	m.observers.transition(m, t, ev.payload)

	if !ascendingLocal {
		var entryPath []idgen.ID
		for _, v := range m.graph.Ancestors(t.Target) {
			if v == anchor {
				break
			}
			entryPath = append(entryPath, v)
		}
		reverseIDs(entryPath)
		m.enterPath(entryPath)
	}

	return m.collectCompletions()
}

// transitionAnchor returns the vertex below which exit behaviors run and
// above which entry behaviors run when t fires: the LCA of its endpoints,
// except a Local transition anchors at whichever endpoint is the ancestor
// so it is never itself exited or re-entered.
func (m *Machine) transitionAnchor(t *Transition) idgen.ID {
	if t.Kind == Local {
		if m.graph.Depth(t.Source) > m.graph.Depth(t.Target) {
			return t.Target
		}
		return t.Source
	}
	return m.graph.LCA(t.Source, t.Target)
}

func (m *Machine) collectCompletions() []wireEvent {
	var out []wireEvent
	for _, f := range m.enteredFinals {
		out = append(out, m.regionCompleted(f)...)
	}
	m.enteredFinals = nil
	return out
}

// enterPath enters every ancestor on path with a plain entry, then resolves
// and fully enters the last (a real state or a pseudostate chain). Any
// Parallel crossed along the way that was not already active has its other
// regions entered through their own defaults too, the same as a Parallel
// entered as the path's final vertex would get via enterDescend.
func (m *Machine) enterPath(path []idgen.ID) {
	for i, v := range path {
		if i == len(path)-1 {
			m.resolveAndEnter(v)
			return
		}
		m.enterOnly(v)
		vert := m.graph.mustVertex(v)
		if vert.Kind == KindParallel {
			onPath := path[i+1]
			for _, region := range vert.Children {
				if region != onPath {
					m.resolveAndEnter(region)
				}
			}
		}
	}
}

// resolveAndEnter walks v through any pseudostate chain (Initial, Junction,
// History, Terminate) and enters the real state it resolves to, recursing
// into that state's own initial substate or regions.
func (m *Machine) resolveAndEnter(v idgen.ID) {
	vert := m.graph.mustVertex(v)
	switch vert.Kind {
	case KindInitial:
		out := m.graph.Outgoing(v)
		if len(out) != 1 {
			return
		}
		t := out[0]
		m.runAction(t.Action, v, "transition")
		m.resolveAndEnter(t.Target)

	case KindJunction:
		target, err := m.junctionPick(v)
		if err != nil {
			m.observers.actionError(m, &ActionError{Vertex: vert.Name, Phase: "junction", Cause: err})
			m.haltImmediately()
			return
		}
		m.resolveAndEnter(target)

	case KindShallowHistory, KindDeepHistory:
		if snap, deep, ok := m.history.restore(vert.Parent); ok {
			for _, id := range snap {
				m.enterOnly(id)
			}
			if !deep {
				// Shallow snapshots record only the direct child; if it is
				// itself a Composite or Parallel it still needs its own
				// substructure resolved, or it would sit active with no
				// active substate.
				for _, id := range snap {
					m.enterDescend(id)
				}
			}
			return
		}
		out := m.graph.Outgoing(v)
		if len(out) == 1 {
			t := out[0]
			m.runAction(t.Action, v, "transition")
			m.resolveAndEnter(t.Target)
			return
		}
		m.resolveAndEnter(m.graph.inferredInitial(vert.Parent))

	case KindTerminate:
		m.observers.entered(m, vert)
		m.haltImmediately()

	default:
		m.enterOnly(v)
		m.enterDescend(v)
	}
}

// junctionPick evaluates a Junction's guarded branches in declaration
// order, falling back to its else branch, and runs the winning branch's
// action.
func (m *Machine) junctionPick(v idgen.ID) (idgen.ID, error) {
	var elseT *Transition
	for _, t := range m.graph.Outgoing(v) {
		if t.IsElse {
			elseT = t
			continue
		}
		if t.Guard == nil || m.evalGuard(t, wireEvent{payload: m.currentEvent}) {
			m.runAction(t.Action, v, "transition")
			return t.Target, nil
		}
	}
	if elseT != nil {
		m.runAction(elseT.Action, v, "transition")
		return elseT.Target, nil
	}
	return "", &StructuralError{Op: "Junction", Msg: fmt.Sprintf("junction %q deadlocked: no guard passed and no else branch", m.graph.mustVertex(v).Name)}
}

// enterDescend recurses a just-entered Composite into its initial substate,
// or a just-entered Parallel into every one of its regions.
func (m *Machine) enterDescend(v idgen.ID) {
	vert := m.graph.mustVertex(v)
	switch vert.Kind {
	case KindComposite:
		if child := m.graph.inferredInitial(v); child != "" {
			m.resolveAndEnter(child)
		}
	case KindParallel:
		for _, region := range vert.Children {
			m.resolveAndEnter(region)
		}
	}
}

// enterOnly marks v active, runs its entry and do behaviors, and arms its
// timer, without resolving any further substructure.
func (m *Machine) enterOnly(v idgen.ID) {
	vert := m.graph.mustVertex(v)
	m.setActive(v, true)
	epoch := m.bumpEpoch(v)
	m.runAction(vert.Entry, v, "entry")
	m.observers.entered(m, vert)
	if vert.Timeout > 0 {
		m.timers.arm(v, epoch, vert.Timeout)
	}
	if vert.Do != nil {
		m.runAction(vert.Do, v, "do")
	}
	if vert.Kind == KindFinal {
		m.enteredFinals = append(m.enteredFinals, v)
	}
}

// exitChain runs exit behaviors for path, which must already be in
// deepest-first order. History is snapshotted for every history-owning
// composite in path before any of it is actually exited, so a nested
// composite's active descendants are still visible to the snapshot.
func (m *Machine) exitChain(path []idgen.ID) {
	for _, v := range path {
		vert := m.graph.mustVertex(v)
		if vert.Kind == KindComposite && vert.History != "" {
			m.snapshotHistory(v)
		}
	}
	for _, v := range path {
		vert := m.graph.mustVertex(v)
		m.timers.cancel(v)
		m.runAction(vert.Exit, v, "exit")
		m.observers.exited(m, vert)
		m.setActive(v, false)
	}
}

func (m *Machine) snapshotHistory(composite idgen.ID) {
	vert := m.graph.mustVertex(composite)
	hv := m.graph.mustVertex(vert.History)
	direct := m.activeChildOf(composite)
	if direct == "" {
		return
	}
	if hv.Kind == KindShallowHistory {
		m.history.record(composite, false, []idgen.ID{direct})
		return
	}
	m.history.record(composite, true, m.activeDescendants(composite))
}

func (m *Machine) activeChildOf(v idgen.ID) idgen.ID {
	for _, c := range m.graph.mustVertex(v).Children {
		if m.isActive(c) {
			return c
		}
	}
	return ""
}

// activeDescendants returns v's active descendants in parent-before-child
// order, excluding v itself.
func (m *Machine) activeDescendants(v idgen.ID) []idgen.ID {
	var out []idgen.ID
	for _, c := range m.graph.mustVertex(v).Children {
		if m.isActive(c) {
			out = append(out, c)
			out = append(out, m.activeDescendants(c)...)
		}
	}
	return out
}

// activeDescendantsDeepestFirst returns v's active descendants in
// children-before-parent order, excluding v itself: the order exit
// behaviors must run in.
func (m *Machine) activeDescendantsDeepestFirst(v idgen.ID) []idgen.ID {
	var out []idgen.ID
	for _, c := range m.graph.mustVertex(v).Children {
		if m.isActive(c) {
			out = append(out, m.activeDescendantsDeepestFirst(c)...)
			out = append(out, c)
		}
	}
	return out
}

// regionCompleted returns the completion event generated by final becoming
// active, or nil if final's enclosing Parallel (if any) still has
// unfinished sibling regions.
func (m *Machine) regionCompleted(final idgen.ID) []wireEvent {
	parent := m.graph.mustVertex(final).Parent
	if parent == "" {
		return nil
	}
	grandparent := m.graph.mustVertex(parent).Parent
	if grandparent != "" && m.graph.mustVertex(grandparent).Kind == KindParallel {
		for _, sib := range m.graph.mustVertex(grandparent).Children {
			if !m.regionHasFinal(sib) {
				return nil
			}
		}
		return []wireEvent{{kind: wireCompletion, region: grandparent}}
	}
	return []wireEvent{{kind: wireCompletion, region: parent}}
}

func (m *Machine) regionHasFinal(region idgen.ID) bool {
	for _, d := range m.activeDescendants(region) {
		if m.graph.mustVertex(d).Kind == KindFinal {
			return true
		}
	}
	return false
}

func (m *Machine) runAction(fn ActionFunc, vertex idgen.ID, phase string) {
	if fn == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			m.observers.actionError(m, &ActionError{Vertex: m.graph.mustVertex(vertex).Name, Phase: phase, Cause: r})
		}
	}()
	fn(m, m.currentEvent)
}

func (m *Machine) haltImmediately() {
	if atomic.CompareAndSwapInt32(&m.started, 1, 2) {
		atomic.StoreInt32(&m.terminated, 1)
		close(m.stopSrc)
		m.queue.close()
		m.timers.stop()
	}
}

// exitAll runs exit behaviors for every vertex still in the configuration,
// deepest-first, including the root. Used by the consumer loop on a
// graceful Stop, never on a Terminate halt (which abandons the
// configuration as-is).
func (m *Machine) exitAll() {
	m.currentEvent = nil
	path := append(m.activeDescendantsDeepestFirst(m.graph.root), m.graph.root)
	m.exitChain(path)
}

func reverseIDs(ids []idgen.ID) {
	for i, j := 0, len(ids)-1; i < j; i, j = i+1, j-1 {
		ids[i], ids[j] = ids[j], ids[i]
	}
}
