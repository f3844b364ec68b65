package hsmcore

// userContext is the opaque key/value store actions and guards read and
// write via Machine.Assign/Machine.Lookup. Unlike the event queue, it
// carries no synchronization of its own: every ActionFunc and GuardFunc
// runs on the single consumer goroutine, so no lock is needed as long as
// callers respect that contract. Grounded on statechart.go's Runtime.ext
// field (an unsynchronized "extended state" slot), generalized from a
// single any value to a named key/value store per comalice-statechartx's
// context.go.
type userContext struct {
	data map[string]any
}

func newUserContext() *userContext {
	return &userContext{data: make(map[string]any)}
}

// Assign stores value under key. Consumer-thread only: call only from
// within an ActionFunc, GuardFunc, or TriggerFunc.
func (m *Machine) Assign(key string, value any) {
	m.ctx.data[key] = value
}

// Lookup retrieves the value stored under key, or nil if absent.
// Consumer-thread only: call only from within an ActionFunc, GuardFunc, or
// TriggerFunc.
func (m *Machine) Lookup(key string) any {
	return m.ctx.data[key]
}
