package hsmcore

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/austenlm/hsmcore/internal/idgen"
)

// EventSource is an optional pluggable producer wired into a Machine at
// construction, grounded on comalice-statechartx's
// internal/extensibility/eventsource.go. When set, Start runs it on its own
// goroutine and every value it emits is queued via Post as an external
// event. Run returns once exhausted or once the stop channel it was given
// is closed.
type EventSource interface {
	// Run is invoked once on its own goroutine when the machine starts. It
	// should call emit for every event it produces and return when done or
	// when stop is closed.
	Run(emit func(Event), stop <-chan struct{})
}

// Visualizer renders a Graph to some external representation. The built-in
// DOT exporter (render.go) is one implementation; a GUI renderer is a
// caller-supplied one wired in the same way.
type Visualizer interface {
	Render(g *Graph) (string, error)
}

// Machine is a running instance of a graph: the active configuration, its
// extended state, and the single consumer goroutine that executes RTC
// steps. Grounded on internal/core/machine.go's channel-driven interpret()
// loop, generalized to the arena graph model and a condition-variable
// queue (queue.go).
type Machine struct {
	graph *Graph

	// active holds every vertex currently in the configuration: every
	// ancestor of every active leaf, up to and including the root. A
	// vertex's presence here, not leaf-ness, is what OnStateEntered/Exited
	// and IsInState report against.
	active map[idgen.ID]bool

	history *HistoryStore
	ctx     *userContext

	queue  *eventQueue
	timers *timerScheduler

	// epoch counts entries per vertex, bumped each time it is (re-)entered.
	// A timer armed for entry N is ignored if it fires after entry N+1 has
	// already begun.
	epoch map[idgen.ID]uint64

	observers observerList

	eventSource EventSource
	visualizer  Visualizer

	// enteredFinals and currentEvent are consumer-goroutine-only scratch
	// state threaded through a single fire/bootstrap call: enteredFinals
	// collects Final vertices entered during that call so completion
	// events can be derived afterward, currentEvent is the payload handed
	// to entry/exit/transition actions triggered by it.
	enteredFinals []idgen.ID
	currentEvent  Event

	started    int32
	terminated int32 // set only by haltImmediately; distinguishes a Terminate or junction-deadlock halt from a graceful Stop
	stopSrc    chan struct{}
	wg         sync.WaitGroup

	mu sync.Mutex // guards active/epoch against concurrent IsInState/Active reads from other goroutines
}

// NewMachine builds a runnable Machine from b's graph, which is validated
// here. The graph is frozen by Start, not here: Builder calls made before
// Start still succeed.
func NewMachine(b *Builder, opts ...Option) (*Machine, error) {
	g := b.graph
	if err := g.Validate(); err != nil {
		return nil, &StructuralError{Op: "NewMachine", Msg: err.Error()}
	}
	m := &Machine{
		graph:   g,
		active:  make(map[idgen.ID]bool),
		history: newHistoryStore(),
		ctx:     newUserContext(),
		queue:   newEventQueue(),
		epoch:   make(map[idgen.ID]uint64),
		stopSrc: make(chan struct{}),
	}
	m.timers = newTimerScheduler(m.onTimerFired)
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

func (m *Machine) onTimerFired(vertex idgen.ID, epoch uint64) {
	_ = m.queue.push(wireEvent{kind: wireTimeout, vertex: vertex, epoch: epoch})
}

// IsInState reports whether v (looked up by name) is currently active.
func (m *Machine) IsInState(name string) bool {
	id, ok := m.lookupByName(name)
	if !ok {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active[id]
}

func (m *Machine) lookupByName(name string) (idgen.ID, bool) {
	for _, v := range m.graph.Vertices() {
		if v.Name == name {
			return v.ID, true
		}
	}
	return "", false
}

// Active returns a snapshot of every vertex name currently in the
// configuration. Safe to call from any goroutine.
func (m *Machine) Active() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.active))
	for id, on := range m.active {
		if on {
			out = append(out, m.graph.mustVertex(id).Name)
		}
	}
	return out
}

func (m *Machine) isActive(id idgen.ID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active[id]
}

func (m *Machine) setActive(id idgen.ID, on bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if on {
		m.active[id] = true
	} else {
		delete(m.active, id)
	}
}

func (m *Machine) bumpEpoch(id idgen.ID) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.epoch[id]++
	return m.epoch[id]
}

func (m *Machine) currentEpoch(id idgen.ID) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.epoch[id]
}

// Post enqueues an external event for the consumer goroutine. It never
// blocks the caller and may be called from any goroutine, including
// multiple concurrent producers queuing onto the same machine (the
// producer side is not itself required to be single-threaded; only
// delivery and processing are serialized).
func (m *Machine) Post(e Event) error {
	return m.queue.push(wireEvent{kind: wireExternal, payload: e})
}

// Start validates and freezes the graph, enters the initial configuration,
// and spawns the single consumer goroutine. Start is not idempotent:
// calling it twice returns ErrAlreadyStarted.
func (m *Machine) Start() error {
	if !atomic.CompareAndSwapInt32(&m.started, 0, 1) {
		return ErrAlreadyStarted
	}
	if err := m.graph.Validate(); err != nil {
		atomic.StoreInt32(&m.started, 0)
		return &StructuralError{Op: "Start", Msg: err.Error()}
	}
	m.graph.started = true
	m.timers.start()

	m.wg.Add(1)
	go m.run()

	if m.eventSource != nil {
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			m.eventSource.Run(func(e Event) { _ = m.Post(e) }, m.stopSrc)
		}()
	}
	return nil
}

// Stop halts the consumer goroutine after its current RTC step completes,
// disarms every timer, and closes the event queue. Once the consumer
// goroutine observes the closed queue it runs exit behaviors for every
// vertex still in the configuration, deepest-first, then reports stopped to
// observers. A Terminate pseudostate does not get this clean shutdown:
// haltImmediately abandons the configuration as-is.
func (m *Machine) Stop() error {
	if !atomic.CompareAndSwapInt32(&m.started, 1, 2) {
		return ErrNotStarted
	}
	close(m.stopSrc)
	m.queue.close()
	m.timers.stop()
	return nil
}

// Join blocks until the consumer goroutine (and any EventSource goroutine)
// has exited, or timeout elapses. A zero timeout waits forever.
func (m *Machine) Join(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	if timeout <= 0 {
		<-done
		return true
	}
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}

// run is the single consumer goroutine: enter the initial configuration,
// then loop draining the queue, running one RTC step per delivered event
// to quiescence before waiting for the next.
func (m *Machine) run() {
	defer m.wg.Done()

	m.enterInitialConfiguration()
	m.observers.started(m)

	for {
		ev, ok := m.queue.pop()
		if !ok {
			break
		}
		m.step(ev)
	}
	if atomic.LoadInt32(&m.terminated) == 0 {
		m.exitAll()
	}
	m.observers.stopped(m)
}
