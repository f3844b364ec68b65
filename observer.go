package hsmcore

// Observer receives RTC lifecycle notifications. Every method is optional
// to implement meaningfully — embed NoopObserver to satisfy the interface
// and override only what you need. Grounded on anggasct-fluo's
// observer.go ObserverManager, trimmed to the events this engine actually
// raises.
//
// All methods run on the machine's single consumer goroutine, synchronously
// with the RTC step that triggered them; an Observer must not block
// indefinitely or it stalls the whole machine.
type Observer interface {
	// OnTransition fires after a transition's exits and action have
	// completed, before any of its entries run.
	OnTransition(m *Machine, t *Transition, e Event)

	// OnStateEntered / OnStateExited fire for every vertex added to or
	// removed from the configuration. Initial, Junction and history
	// pseudostates traversed within a compound transition are not reported;
	// a Terminate pseudostate is reported as entered when it is reached.
	OnStateEntered(m *Machine, v *Vertex)
	OnStateExited(m *Machine, v *Vertex)

	// OnGuardError fires when a GuardFunc panics; the transition is then
	// treated as not enabled.
	OnGuardError(m *Machine, err *GuardError)

	// OnActionError fires when an entry/exit/transition/do ActionFunc
	// panics; the RTC step continues best-effort. It also fires, with Phase
	// "junction", when a Junction deadlocks at runtime; the machine then
	// halts.
	OnActionError(m *Machine, err *ActionError)

	// OnStarted / OnStopped bracket the machine's lifetime.
	OnStarted(m *Machine)
	OnStopped(m *Machine)
}

// NoopObserver implements Observer with no-op methods. Embed it to avoid
// implementing every method.
type NoopObserver struct{}

func (NoopObserver) OnTransition(*Machine, *Transition, Event) {}
func (NoopObserver) OnStateEntered(*Machine, *Vertex)          {}
func (NoopObserver) OnStateExited(*Machine, *Vertex)           {}
func (NoopObserver) OnGuardError(*Machine, *GuardError)        {}
func (NoopObserver) OnActionError(*Machine, *ActionError)      {}
func (NoopObserver) OnStarted(*Machine)                        {}
func (NoopObserver) OnStopped(*Machine)                        {}

// observerList fans a notification out to every registered Observer,
// grounded on anggasct-fluo's ObserverManager.
type observerList struct {
	observers []Observer
}

func (l *observerList) add(o Observer) { l.observers = append(l.observers, o) }

func (l *observerList) transition(m *Machine, t *Transition, e Event) {
	for _, o := range l.observers {
		o.OnTransition(m, t, e)
	}
}

func (l *observerList) entered(m *Machine, v *Vertex) {
	for _, o := range l.observers {
		o.OnStateEntered(m, v)
	}
}

func (l *observerList) exited(m *Machine, v *Vertex) {
	for _, o := range l.observers {
		o.OnStateExited(m, v)
	}
}

func (l *observerList) guardError(m *Machine, err *GuardError) {
	for _, o := range l.observers {
		o.OnGuardError(m, err)
	}
}

func (l *observerList) actionError(m *Machine, err *ActionError) {
	for _, o := range l.observers {
		o.OnActionError(m, err)
	}
}

func (l *observerList) started(m *Machine) {
	for _, o := range l.observers {
		o.OnStarted(m)
	}
}

func (l *observerList) stopped(m *Machine) {
	for _, o := range l.observers {
		o.OnStopped(m)
	}
}
