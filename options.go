package hsmcore

// Option configures a Machine at construction. Grounded on
// internal/core/options.go's functional-options pattern.
type Option func(*Machine)

// WithObserver registers o to receive RTC lifecycle notifications.
// Multiple observers may be registered; each receives every notification.
func WithObserver(o Observer) Option {
	return func(m *Machine) { m.observers.add(o) }
}

// WithEventSource wires an external producer that is started alongside the
// machine's own consumer goroutine and drained the same way as Post.
func WithEventSource(s EventSource) Option {
	return func(m *Machine) { m.eventSource = s }
}

// WithVisualizer attaches a renderer usable via Machine.Render.
func WithVisualizer(v Visualizer) Option {
	return func(m *Machine) { m.visualizer = v }
}
