package hsmcore

import (
	"errors"
	"fmt"
)

// StructuralError reports a problem with the graph's structure: a builder
// call after the machine started, a missing/duplicate initial, or a junction
// deadlock at runtime. It either prevents NewMachine/Start from completing
// or, at runtime, stops the machine with exit behaviors skipped past the
// offending point. Cycles in a pseudostate chain are not detected.
type StructuralError struct {
	Op  string
	Msg string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("hsmcore: structural error in %s: %s", e.Op, e.Msg)
}

// GuardError wraps a panic recovered from a user-supplied GuardFunc. It is
// treated as "guard false" for that transition; RTC processing continues
// with the candidate dropped.
type GuardError struct {
	Vertex string
	Cause  any
}

func (e *GuardError) Error() string {
	return fmt.Sprintf("hsmcore: guard on %q panicked: %v", e.Vertex, e.Cause)
}

// ActionError wraps a panic recovered from a user-supplied entry/exit/
// transition/do ActionFunc. The current RTC step completes its remaining
// exits/entries on a best-effort basis; the machine keeps running.
type ActionError struct {
	Vertex string
	Phase  string // "entry", "exit", "transition", "do", or "junction" (Cause is then the deadlock's *StructuralError)
	Cause  any
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("hsmcore: %s action on %q panicked: %v", e.Phase, e.Vertex, e.Cause)
}

// ErrQueueClosed is returned by Machine.Post after Stop has been called.
var ErrQueueClosed = errors.New("hsmcore: event queue closed")

// ErrAlreadyStarted is returned by Start when called on a running machine.
var ErrAlreadyStarted = errors.New("hsmcore: machine already started")

// ErrNotStarted is returned by operations that require a running machine.
var ErrNotStarted = errors.New("hsmcore: machine not started")

// ValidationError aggregates every structural problem found by
// Graph.Validate, rather than failing at the first one (grounded on
// internal/primitives/machineconfig.go's aggregating Validate).
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	if len(e.Problems) == 1 {
		return fmt.Sprintf("hsmcore: validation failed: %s", e.Problems[0])
	}
	return fmt.Sprintf("hsmcore: validation failed with %d problems: %s", len(e.Problems), errors.Join(toErrs(e.Problems)...))
}

func toErrs(msgs []string) []error {
	errs := make([]error, len(msgs))
	for i, m := range msgs {
		errs[i] = errors.New(m)
	}
	return errs
}

func (e *ValidationError) add(format string, args ...any) {
	e.Problems = append(e.Problems, fmt.Sprintf(format, args...))
}

func (e *ValidationError) orNil() error {
	if len(e.Problems) == 0 {
		return nil
	}
	return e
}
