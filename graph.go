package hsmcore

import (
	"fmt"

	"github.com/austenlm/hsmcore/internal/idgen"
)

// Graph is the arena-backed state graph. All cross-references (parent,
// children, transition endpoints) are stable IDs rather than pointers, so
// the whole arena can be reindexed during cloning (compose.go) without
// chasing live references.
type Graph struct {
	vertices    map[idgen.ID]*Vertex
	transitions map[idgen.ID]*Transition
	outgoing    map[idgen.ID][]idgen.ID // source vertex -> transition IDs, declaration order
	incoming    map[idgen.ID][]idgen.ID
	root        idgen.ID
	started     bool
	nextSeq     int
}

// NewGraph creates an empty graph with a single root Composite vertex.
// Every other vertex is, directly or transitively, a child of the root.
func NewGraph(rootName string) *Graph {
	g := &Graph{
		vertices:    make(map[idgen.ID]*Vertex),
		transitions: make(map[idgen.ID]*Transition),
		outgoing:    make(map[idgen.ID][]idgen.ID),
		incoming:    make(map[idgen.ID][]idgen.ID),
	}
	root := &Vertex{ID: idgen.New(), Name: rootName, Kind: KindComposite}
	g.vertices[root.ID] = root
	g.root = root.ID
	return g
}

// Root returns the ID of the graph's root composite.
func (g *Graph) Root() idgen.ID { return g.root }

// Vertex looks up a vertex by ID.
func (g *Graph) Vertex(id idgen.ID) (*Vertex, bool) {
	v, ok := g.vertices[id]
	return v, ok
}

func (g *Graph) mustVertex(id idgen.ID) *Vertex {
	v, ok := g.vertices[id]
	if !ok {
		panic(fmt.Sprintf("hsmcore: internal error: dangling vertex id %q", id))
	}
	return v
}

// Vertices returns every vertex in the arena. Intended for a renderer
// (render.go); order is unspecified.
func (g *Graph) Vertices() []*Vertex {
	out := make([]*Vertex, 0, len(g.vertices))
	for _, v := range g.vertices {
		out = append(out, v)
	}
	return out
}

// Transitions returns every transition in the arena. Intended for a
// renderer; order is unspecified.
func (g *Graph) Transitions() []*Transition {
	out := make([]*Transition, 0, len(g.transitions))
	for _, t := range g.transitions {
		out = append(out, t)
	}
	return out
}

// AddChild creates a new vertex of the given kind as a child of parent and
// returns it. Fails with StructuralError once the graph has been frozen by
// Machine.Start.
func (g *Graph) AddChild(parent idgen.ID, kind Kind, name string) (*Vertex, error) {
	if g.started {
		return nil, &StructuralError{Op: "AddChild", Msg: "graph is frozen: machine already started"}
	}
	p, ok := g.vertices[parent]
	if !ok {
		return nil, &StructuralError{Op: "AddChild", Msg: fmt.Sprintf("unknown parent %q", parent)}
	}
	if !p.Kind.HasRegions() {
		return nil, &StructuralError{Op: "AddChild", Msg: fmt.Sprintf("vertex %q (kind %s) cannot own children", p.Name, p.Kind)}
	}
	v := &Vertex{ID: idgen.New(), Name: name, Kind: kind, Parent: parent}
	g.vertices[v.ID] = v
	p.Children = append(p.Children, v.ID)

	if kind == KindShallowHistory || kind == KindDeepHistory {
		if p.History != "" {
			return nil, &StructuralError{Op: "AddChild", Msg: fmt.Sprintf("composite %q already has a history pseudostate", p.Name)}
		}
		p.History = v.ID
	}
	return v, nil
}

// SetInitial designates child as the initial substate of the Composite
// parent. child must already be one of parent's children.
func (g *Graph) SetInitial(parent, child idgen.ID) error {
	if g.started {
		return &StructuralError{Op: "SetInitial", Msg: "graph is frozen: machine already started"}
	}
	p, ok := g.vertices[parent]
	if !ok {
		return &StructuralError{Op: "SetInitial", Msg: fmt.Sprintf("unknown parent %q", parent)}
	}
	if p.Kind != KindComposite {
		return &StructuralError{Op: "SetInitial", Msg: fmt.Sprintf("only Composite vertices have a designated initial child, %q is %s", p.Name, p.Kind)}
	}
	if p.indexOfChild(child) < 0 {
		return &StructuralError{Op: "SetInitial", Msg: fmt.Sprintf("%q is not a child of %q", child, p.Name)}
	}
	if p.Initial != "" && p.Initial != child {
		return &StructuralError{Op: "SetInitial", Msg: fmt.Sprintf("composite %q already has initial child %q", p.Name, p.Initial)}
	}
	p.Initial = child
	return nil
}

// inferredInitial returns the composite's designated initial child, or, if
// none was explicitly set, the first Initial pseudostate among its
// children.
func (g *Graph) inferredInitial(composite idgen.ID) idgen.ID {
	c := g.mustVertex(composite)
	if c.Initial != "" {
		return c.Initial
	}
	for _, childID := range c.Children {
		child := g.mustVertex(childID)
		if child.Kind == KindInitial {
			return childID
		}
	}
	return ""
}

// AddTransition creates a directed edge from source to target.
func (g *Graph) AddTransition(source, target idgen.ID, kind TransitionKind, trigger TriggerFunc, guard GuardFunc, action ActionFunc) (*Transition, error) {
	if g.started {
		return nil, &StructuralError{Op: "AddTransition", Msg: "graph is frozen: machine already started"}
	}
	if _, ok := g.vertices[source]; !ok {
		return nil, &StructuralError{Op: "AddTransition", Msg: fmt.Sprintf("unknown source %q", source)}
	}
	if _, ok := g.vertices[target]; !ok {
		return nil, &StructuralError{Op: "AddTransition", Msg: fmt.Sprintf("unknown target %q", target)}
	}
	if kind == Internal && source != target {
		return nil, &StructuralError{Op: "AddTransition", Msg: "internal transitions require source == target"}
	}
	if kind == Local {
		if g.lcaIsEndpoint(source, target) == "" {
			return nil, &StructuralError{Op: "AddTransition", Msg: "local transitions require one endpoint to be an ancestor of the other"}
		}
	}
	t := &Transition{ID: idgen.New(), Source: source, Target: target, Kind: kind, Trigger: trigger, Guard: guard, Action: action, seq: g.nextSeq}
	g.nextSeq++
	g.transitions[t.ID] = t
	g.outgoing[source] = append(g.outgoing[source], t.ID)
	g.incoming[target] = append(g.incoming[target], t.ID)
	return t, nil
}

// lcaIsEndpoint returns the deeper of (source, target) if one is an
// ancestor of the other, else "".
func (g *Graph) lcaIsEndpoint(source, target idgen.ID) idgen.ID {
	if g.isAncestor(source, target) {
		return target
	}
	if g.isAncestor(target, source) {
		return source
	}
	return ""
}

func (g *Graph) isAncestor(ancestor, of idgen.ID) bool {
	for _, a := range g.Ancestors(of) {
		if a == ancestor {
			return true
		}
	}
	return false
}

// Outgoing returns, in declaration order, the transitions whose source is v.
func (g *Graph) Outgoing(v idgen.ID) []*Transition {
	ids := g.outgoing[v]
	out := make([]*Transition, 0, len(ids))
	for _, id := range ids {
		if t, ok := g.transitions[id]; ok {
			out = append(out, t)
		}
	}
	return out
}

// Incoming returns, in declaration order, the transitions whose target is v.
func (g *Graph) Incoming(v idgen.ID) []*Transition {
	ids := g.incoming[v]
	out := make([]*Transition, 0, len(ids))
	for _, id := range ids {
		if t, ok := g.transitions[id]; ok {
			out = append(out, t)
		}
	}
	return out
}

// Ancestors returns v and every ancestor up to and including the root,
// ordered from v outward (v is always first).
func (g *Graph) Ancestors(v idgen.ID) []idgen.ID {
	var chain []idgen.ID
	for cur := v; cur != ""; {
		chain = append(chain, cur)
		vert := g.mustVertex(cur)
		if vert.isRoot() {
			break
		}
		cur = vert.Parent
	}
	return chain
}

// Depth returns the number of proper ancestors of v, counting the root:
// the root has depth 0 and a child of the root has depth 1.
func (g *Graph) Depth(v idgen.ID) int {
	return len(g.Ancestors(v)) - 1
}

// LCA returns the deepest composite that is an ancestor of both a and b,
// inclusive: if a is itself an ancestor of b, LCA(a, b) == a.
func (g *Graph) LCA(a, b idgen.ID) idgen.ID {
	ancA := g.Ancestors(a)
	ancB := g.Ancestors(b)
	setA := make(map[idgen.ID]int, len(ancA))
	for i, id := range ancA {
		setA[id] = i
	}
	for _, id := range ancB {
		if _, ok := setA[id]; ok && g.mustVertex(id).Kind.HasRegions() {
			return id
		}
	}
	return g.root
}

// removeVertexCascade deletes v, its descendants, and every transition
// incident on any of them. Used by masking (compose.go).
func (g *Graph) removeVertexCascade(v idgen.ID) {
	var doomed []idgen.ID
	var collect func(id idgen.ID)
	collect = func(id idgen.ID) {
		doomed = append(doomed, id)
		vert := g.mustVertex(id)
		for _, c := range vert.Children {
			collect(c)
		}
	}
	collect(v)

	doomedSet := make(map[idgen.ID]bool, len(doomed))
	for _, id := range doomed {
		doomedSet[id] = true
	}

	for tid, t := range g.transitions {
		if doomedSet[t.Source] || doomedSet[t.Target] {
			g.removeTransitionID(tid)
		}
	}

	parent := g.mustVertex(v).Parent
	if parent != "" {
		p := g.mustVertex(parent)
		idx := p.indexOfChild(v)
		if idx >= 0 {
			p.Children = append(p.Children[:idx], p.Children[idx+1:]...)
		}
		if p.Initial == v {
			p.Initial = ""
		}
		if p.History == v {
			p.History = ""
		}
	}
	for _, id := range doomed {
		delete(g.vertices, id)
		delete(g.outgoing, id)
		delete(g.incoming, id)
	}
}

func (g *Graph) removeTransitionID(id idgen.ID) {
	t, ok := g.transitions[id]
	if !ok {
		return
	}
	delete(g.transitions, id)
	g.outgoing[t.Source] = removeID(g.outgoing[t.Source], id)
	g.incoming[t.Target] = removeID(g.incoming[t.Target], id)
}

func removeID(ids []idgen.ID, target idgen.ID) []idgen.ID {
	for i, id := range ids {
		if id == target {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}

// findChildByName returns the direct child of parent with the given name,
// used by Mask (compose.go).
func (g *Graph) findChildByName(parent idgen.ID, name string) (idgen.ID, bool) {
	p := g.mustVertex(parent)
	for _, c := range p.Children {
		if g.mustVertex(c).Name == name {
			return c, true
		}
	}
	return "", false
}
