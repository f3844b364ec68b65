// Package hsmcore implements the run-to-completion core of a UML2-style
// hierarchical state machine: a graph of states and pseudostates, a
// builder DSL for assembling it, a transition selector, an RTC executor
// with least-common-ancestor exit/entry semantics, and a single-consumer
// event loop with a timer scheduler.
//
// The graphical renderer, packet-to-event adapters, logging, and
// configuration loading are explicitly out of scope; this package exposes
// the interfaces those collaborators would use (Observer, EventSource,
// Visualizer). The only implementations it ships are NoopObserver and
// DotVisualizer, a plain DOT text exporter.
package hsmcore
