// Package definition holds the frozen, externally-built graph of Tasks and
// Flows that the engine executes. A Definition is immutable once built; the
// engine only ever reads from it.
package definition

import "fmt"

// StartTaskID is the id of the task every Definition begins execution from.
const StartTaskID = 0

// Task is a node in the definition graph.
type Task struct {
	definition *Definition

	id       int
	name     string
	typ      string
	settings map[string]interface{}

	incoming []*Flow
	outgoing []*Flow
}

// ID gets the id of the task.
func (t *Task) ID() int {
	return t.id
}

// Name gets the name of the task.
func (t *Task) Name() string {
	return t.name
}

// Type gets the task-type tag used to look the task up in the task-type
// registry (e.g. "start-task", "service-task", "decision").
func (t *Task) Type() string {
	return t.typ
}

// Settings returns the task's type-specific configuration — e.g. the
// sub-process definition name a call-activity task runs. Never nil.
func (t *Task) Settings() map[string]interface{} {
	if t.settings == nil {
		return map[string]interface{}{}
	}
	return t.settings
}

// IncomingFlows returns the flows that terminate at this task.
func (t *Task) IncomingFlows() []*Flow {
	return t.incoming
}

// OutgoingFlows returns the flows, in declaration order, that originate at
// this task.
func (t *Task) OutgoingFlows() []*Flow {
	return t.outgoing
}

func (t *Task) String() string {
	return fmt.Sprintf("Task[%d] '%s' (%s)", t.id, t.name, t.typ)
}

// Condition is an opaque predicate over a snapshot of a process instance's
// variables. The dialect it evaluates is external to the core; the core
// only ever calls it as a pure function.
type Condition func(variables map[string]interface{}) (bool, error)

// Flow is a directed edge in the definition graph, optionally guarded by a
// Condition (used by decision tasks).
type Flow struct {
	definition *Definition

	from *Task
	to   *Task

	condition Condition
}

// From returns the task the flow originates from.
func (f *Flow) From() *Task {
	return f.from
}

// To returns the task the flow terminates at.
func (f *Flow) To() *Task {
	return f.to
}

// Condition returns the flow's guard, or nil if the flow is unconditional.
func (f *Flow) Condition() Condition {
	return f.condition
}

func (f *Flow) String() string {
	return fmt.Sprintf("Flow[%s -> %s]", f.from.name, f.to.name)
}

// Definition is the immutable process-definition graph consumed by the
// engine. Build one with Builder; the engine never mutates it.
type Definition struct {
	name string

	tasks []*Task
	flows []*Flow
}

// Name returns the name of the definition.
func (d *Definition) Name() string {
	return d.name
}

// GetTask returns the task with the given id, or nil if out of range.
func (d *Definition) GetTask(id int) *Task {
	if id < 0 || id >= len(d.tasks) {
		return nil
	}
	return d.tasks[id]
}

// Tasks returns all tasks in the definition, indexed by id.
func (d *Definition) Tasks() []*Task {
	return d.tasks
}

// Flows returns all flows in the definition.
func (d *Definition) Flows() []*Flow {
	return d.flows
}

// StartTask returns task 0, the entry point of the graph.
func (d *Definition) StartTask() *Task {
	return d.GetTask(StartTaskID)
}
