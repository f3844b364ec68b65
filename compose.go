package hsmcore

import (
	"fmt"
	"sort"

	"github.com/austenlm/hsmcore/internal/idgen"
)

// Attach deep-clones the subgraph rooted at template (which may live in a
// different Builder's graph — a reusable template library) and grafts the
// clone as a new child of parent in b's graph. Identity is never shared
// across machines: every vertex in the clone receives a fresh ID, even
// though names, hooks, and internal transition structure are preserved.
//
// Only transitions whose source and target both lie within the cloned
// subgraph are carried over; a transition reaching outside the template's
// root has no corresponding endpoint in the new machine and is dropped.
func (b *Builder) Attach(parent V, template V) (V, error) {
	if b.graph.started {
		return V{}, &StructuralError{Op: "Attach", Msg: "graph is frozen: machine already started"}
	}
	srcGraph := template.b.graph
	oldToNew := make(map[idgen.ID]idgen.ID)

	var cloneVertex func(old, newParent idgen.ID) (idgen.ID, error)
	cloneVertex = func(old, newParent idgen.ID) (idgen.ID, error) {
		ov := srcGraph.mustVertex(old)
		nv, err := b.graph.AddChild(newParent, ov.Kind, ov.Name)
		if err != nil {
			return "", fmt.Errorf("cloning %q: %w", ov.Name, err)
		}
		nv.Entry = ov.Entry
		nv.Exit = ov.Exit
		nv.Do = ov.Do
		nv.Timeout = ov.Timeout
		oldToNew[old] = nv.ID
		for _, c := range ov.Children {
			if _, err := cloneVertex(c, nv.ID); err != nil {
				return "", err
			}
		}
		return nv.ID, nil
	}

	newRootID, err := cloneVertex(template.id, parent.id)
	if err != nil {
		return V{}, err
	}

	// Second pass: Initial/History cross-references, now that every
	// vertex in the subgraph has a clone.
	for old, nw := range oldToNew {
		ov := srcGraph.mustVertex(old)
		nv := b.graph.mustVertex(nw)
		if ov.Initial != "" {
			nv.Initial = oldToNew[ov.Initial]
		}
	}

	// Clone internal transitions only, in their original declaration order.
	srcTransitions := srcGraph.Transitions()
	sort.Slice(srcTransitions, func(i, j int) bool { return srcTransitions[i].seq < srcTransitions[j].seq })
	for _, t := range srcTransitions {
		ns, okS := oldToNew[t.Source]
		nt, okT := oldToNew[t.Target]
		if !okS || !okT {
			continue
		}
		cloned, err := b.graph.AddTransition(ns, nt, t.Kind, t.Trigger, t.Guard, t.Action)
		if err != nil {
			return V{}, err
		}
		cloned.Completion = t.Completion
		cloned.IsElse = t.IsElse
		cloned.IsTimeout = t.IsTimeout
	}

	b.register(srcGraph.mustVertex(template.id).Name, newRootID)
	return V{b: b, id: newRootID, head: newRootID}, nil
}

// Mask removes the named child vertex of composite — along with its
// descendants and every transition that referenced any of them, including
// as the endpoint of a compound (pseudostate-chained) transition — from the
// graph. Masking is a structural edit applied only during construction,
// preserving the "graph is frozen at start" invariant.
func (b *Builder) Mask(composite V, name string) error {
	if b.graph.started {
		return &StructuralError{Op: "Mask", Msg: "graph is frozen: machine already started"}
	}
	child, ok := b.graph.findChildByName(composite.id, name)
	if !ok {
		return &StructuralError{Op: "Mask", Msg: fmt.Sprintf("%q has no child named %q", composite.Name(), name)}
	}
	b.graph.removeVertexCascade(child)

	ve := &ValidationError{}
	comp := b.graph.mustVertex(composite.id)
	if len(comp.Children) > 0 && b.graph.inferredInitial(composite.id) == "" {
		ve.add("masking %q from %q left it without an initial child", name, composite.Name())
	}
	return ve.orNil()
}
