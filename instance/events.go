package instance

import "github.com/sethdford/process-engine/definition"

// Listener observes a ProcessInstance's lifecycle. Subscribers are
// invoked synchronously and in subscription order from within the same
// goroutine that drives token propagation — there is no event bus here,
// just a per-instance fan-out, so a slow listener slows the instance it
// is watching and nothing else.
type Listener interface {
	// Before is called immediately before a node executes.
	Before(task *definition.Task)
	// After is called immediately after a node completes successfully.
	After(task *definition.Task)
	// End is called exactly once, when the instance reaches a terminal
	// status (COMPLETED or FAILED).
	End(status Status, err error)
}

// Subscribe registers l to receive this instance's lifecycle events.
func (pi *ProcessInstance) Subscribe(l Listener) {
	pi.mu.Lock()
	defer pi.mu.Unlock()
	pi.listeners = append(pi.listeners, l)
}

// EmitBefore implements tasktype.Host.
func (pi *ProcessInstance) EmitBefore(task *definition.Task) {
	for _, l := range pi.snapshotListeners() {
		l.Before(task)
	}
}

// EmitAfter implements tasktype.Host.
func (pi *ProcessInstance) EmitAfter(task *definition.Task) {
	for _, l := range pi.snapshotListeners() {
		l.After(task)
	}
}

// EmitEnd implements tasktype.Host.
func (pi *ProcessInstance) EmitEnd() {
	pi.mu.Lock()
	status, err := pi.status, pi.procErr
	pi.mu.Unlock()
	for _, l := range pi.snapshotListeners() {
		l.End(status, err)
	}
}

// EndListenerFunc adapts a plain func to Listener, firing only on End.
// Used by callers (the engine's call-activity wiring, tests) that only
// care about an instance's terminal status and don't want to implement
// the full Listener interface.
type EndListenerFunc func(status Status, err error)

func (f EndListenerFunc) Before(*definition.Task)        {}
func (f EndListenerFunc) After(*definition.Task)         {}
func (f EndListenerFunc) End(status Status, err error)   { f(status, err) }

func (pi *ProcessInstance) snapshotListeners() []Listener {
	pi.mu.Lock()
	defer pi.mu.Unlock()
	out := make([]Listener, len(pi.listeners))
	copy(out, pi.listeners)
	return out
}
