package hsmcore

import (
	"fmt"
	"reflect"
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/austenlm/hsmcore/internal/idgen"
)

// Builder is the graph-construction DSL (component B). It wraps a Graph
// and tracks declared vertices by name, in declaration order, grounded on
// dragomit-hsm's parent-scoped StateBuilder (new vertices are always
// created as children of an explicit parent V) combined with a fluent
// transition-association operation that returns its right-hand vertex,
// enabling chained association.
type Builder struct {
	graph *Graph
	names *orderedmap.OrderedMap[string, idgen.ID]
}

// NewBuilder creates a Builder around a fresh graph with the given root
// name.
func NewBuilder(rootName string) *Builder {
	b := &Builder{
		graph: NewGraph(rootName),
		names: orderedmap.New[string, idgen.ID](),
	}
	return b
}

// Graph returns the graph under construction. Once the owning Machine
// starts, further Builder calls fail with StructuralError; the Graph itself
// remains readable.
func (b *Builder) Graph() *Graph { return b.graph }

// V is a handle to a vertex, returned by every construction and transition
// operation. head tracks the leftmost vertex of the fluent chain this V
// descends from, independent of id: To (and MustTo/ToSelf) advance id to
// the right-hand vertex but preserve head, so SetInitialChain can recover "the
// vertex this chain started at".
type V struct {
	b    *Builder
	id   idgen.ID
	head idgen.ID
}

// ID returns the underlying vertex ID.
func (v V) ID() idgen.ID { return v.id }

// Name returns the vertex's diagnostic name.
func (v V) Name() string {
	vert, _ := v.b.graph.Vertex(v.id)
	if vert == nil {
		return ""
	}
	return vert.Name
}

// Root returns a handle to the machine's root composite.
func (b *Builder) Root() V {
	return V{b: b, id: b.graph.root, head: b.graph.root}
}

func (b *Builder) register(name string, id idgen.ID) {
	if name == "" {
		return
	}
	b.names.Set(name, id)
}

// ByName looks up a previously declared vertex by its diagnostic name.
func (b *Builder) ByName(name string) (V, bool) {
	id, ok := b.names.Get(name)
	if !ok {
		return V{}, false
	}
	return V{b: b, id: id, head: id}, true
}

func (b *Builder) addChild(parent V, kind Kind, name string) (V, error) {
	vert, err := b.graph.AddChild(parent.id, kind, name)
	if err != nil {
		return V{}, err
	}
	b.register(name, vert.ID)
	return V{b: b, id: vert.ID, head: vert.ID}, nil
}

// State creates a Simple state as a child of parent.
func (v V) State(name string) (V, error) { return v.b.addChild(v, KindSimple, name) }

// Composite creates a Composite state as a child of parent.
func (v V) Composite(name string) (V, error) { return v.b.addChild(v, KindComposite, name) }

// Parallel creates a Parallel state as a child of parent. Regions are added
// to it afterward via Region.
func (v V) Parallel(name string) (V, error) { return v.b.addChild(v, KindParallel, name) }

// Region adds a Composite region to a Parallel state.
func (v V) Region(name string) (V, error) { return v.b.addChild(v, KindComposite, name) }

// Initial creates an Initial pseudostate as a child of the composite v.
func (v V) Initial() (V, error) { return v.b.addChild(v, KindInitial, "") }

// Final creates a Final pseudostate as a child of the composite v.
func (v V) Final(name string) (V, error) { return v.b.addChild(v, KindFinal, name) }

// Terminate creates a Terminate pseudostate as a child of the composite v.
func (v V) Terminate(name string) (V, error) { return v.b.addChild(v, KindTerminate, name) }

// Junction creates a Junction pseudostate as a child of the composite v.
func (v V) Junction(name string) (V, error) { return v.b.addChild(v, KindJunction, name) }

// ShallowHistory creates a ShallowHistory pseudostate as a child of the
// composite v.
func (v V) ShallowHistory(name string) (V, error) { return v.b.addChild(v, KindShallowHistory, name) }

// DeepHistory creates a DeepHistory pseudostate as a child of the composite
// v.
func (v V) DeepHistory(name string) (V, error) { return v.b.addChild(v, KindDeepHistory, name) }

// WithEntry sets the vertex's entry behavior and returns v for chaining.
func (v V) WithEntry(a ActionFunc) V {
	v.b.graph.mustVertex(v.id).Entry = a
	return v
}

// WithExit sets the vertex's exit behavior and returns v for chaining.
func (v V) WithExit(a ActionFunc) V {
	v.b.graph.mustVertex(v.id).Exit = a
	return v
}

// WithDo sets the vertex's "do" hook and returns v for chaining.
func (v V) WithDo(a ActionFunc) V {
	v.b.graph.mustVertex(v.id).Do = a
	return v
}

// WithTimeout arms a one-shot timer on entry to v, expiring after d.
func (v V) WithTimeout(d time.Duration) V {
	v.b.graph.mustVertex(v.id).Timeout = d
	return v
}

// SetInitial designates v as the initial substate of composite.
func (b *Builder) SetInitial(composite, v V) error {
	return b.graph.SetInitial(composite.id, v.id)
}

// SetInitialChain designates chain.head — the leftmost vertex of a fluent
// transition chain built with On/To — as the initial substate of composite.
// The rule is: when a chain is supplied as the initial vertex of a
// composite, the leftmost vertex becomes a child and is marked initial. The
// chain's vertices must already
// be children of composite.
func (b *Builder) SetInitialChain(composite V, chain V) error {
	return b.graph.SetInitial(composite.id, chain.head)
}

// TB is a transition under construction, returned by On/OnCompletion/Else.
// Committing it with To or ToSelf performs the AddTransition call and
// returns the right-hand (target) vertex, enabling chained association
// (To also returns an error, so an inline chain uses MustTo):
//
//	a.On("go").MustTo(b).On("go").MustTo(c)
type TB struct {
	source     V
	trigger    TriggerFunc
	completion bool
	isElse     bool
	isTimeout  bool
	guard      GuardFunc
	action     ActionFunc
	kind       TransitionKind
}

// On begins a transition from v triggered by ev. A literal (non-TriggerFunc)
// value is lifted to an equality trigger: the transition fires when the
// posted event deep-equals ev.
func (v V) On(ev any) *TB {
	return &TB{source: v, trigger: liftTrigger(ev)}
}

// OnCompletion begins a completion transition: it fires only on the
// synthetic completion event generated when v's own region reaches Final.
// v must be an ordinary state, not a
// pseudostate.
func (v V) OnCompletion() *TB {
	return &TB{source: v, completion: true}
}

// OnTimeout begins a transition that fires only when v's own armed timer
// (set via WithTimeout) expires. v must be the vertex the timer was armed
// on; it is not consulted against ancestors.
func (v V) OnTimeout() *TB {
	return &TB{source: v, isTimeout: true}
}

// Default begins a pseudostate's single untriggered outgoing edge: used for
// Initial's mandatory transition and a History's default transition.
func (v V) Default() *TB {
	return &TB{source: v}
}

// Branch begins one guarded outgoing edge of a Junction.
func (v V) Branch(guard GuardFunc) *TB {
	return &TB{source: v, guard: guard}
}

// Else begins a Junction's fallback edge, taken when no guarded branch
// evaluates true.
func (v V) Else() *TB {
	return &TB{source: v, isElse: true}
}

func liftTrigger(ev any) TriggerFunc {
	if ev == nil {
		return nil
	}
	if fn, ok := ev.(TriggerFunc); ok {
		return fn
	}
	if fn, ok := ev.(func(Event) bool); ok {
		return fn
	}
	literal := ev
	return func(e Event) bool { return reflect.DeepEqual(e, literal) }
}

// When sets the transition's guard.
func (tb *TB) When(g GuardFunc) *TB { tb.guard = g; return tb }

// Do sets the transition's action.
func (tb *TB) Do(a ActionFunc) *TB { tb.action = a; return tb }

// Internal marks the transition Internal. target must equal the source
// when the transition is committed.
func (tb *TB) Internal() *TB { tb.kind = Internal; return tb }

// Local marks the transition Local (dragomit-hsm-grounded; see
// transition.go).
func (tb *TB) Local() *TB { tb.kind = Local; return tb }

// To commits the transition from the builder's source to target and
// returns target, enabling chained association.
func (tb *TB) To(target V) (V, error) {
	t, err := tb.source.b.graph.AddTransition(tb.source.id, target.id, tb.kind, tb.trigger, tb.guard, tb.action)
	if err != nil {
		return V{}, err
	}
	t.Completion = tb.completion
	t.IsElse = tb.isElse
	t.IsTimeout = tb.isTimeout
	return V{b: tb.source.b, id: target.id, head: tb.source.head}, nil
}

// ToSelf commits an internal self-transition (shorthand for
// Internal().To(source)).
func (tb *TB) ToSelf() (V, error) {
	tb.kind = Internal
	return tb.To(tb.source)
}

// MustTo is To but panics on error, for use in tests and examples that
// construct a known-good graph inline.
func (tb *TB) MustTo(target V) V {
	v, err := tb.To(target)
	if err != nil {
		panic(fmt.Sprintf("hsmcore: %v", err))
	}
	return v
}
