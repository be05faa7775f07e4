// Package tasktype holds the contracts the engine's node-execution layer
// is built against: the Status lifecycle of a process instance, the Node
// and Host interfaces that decouple a Node's propagation logic from the
// concrete ProcessInstance that owns it, and the task-type registry —
// the process-wide mapping from a task-type tag to the factory that
// constructs a Node for it.
//
// This mirrors a common split between a behavior-interfaces-and-registry
// package and the concrete instance package that implements them.
package tasktype

import (
	"fmt"
	"sync"

	"github.com/sethdford/process-engine/definition"
)

// Status is the lifecycle state of a process instance.
type Status int

const (
	// StatusNew indicates the instance has been created but not started.
	StatusNew Status = 0

	// StatusRunning indicates the instance is actively propagating tokens.
	StatusRunning Status = 100

	// StatusWaiting indicates at least one node is suspended pending an
	// external completeTask call.
	StatusWaiting Status = 200

	// StatusCompleted indicates the end-task has completed; nodePool is
	// empty.
	StatusCompleted Status = 500

	// StatusFailed indicates a node reported a handler error.
	StatusFailed Status = 700
)

func (s Status) String() string {
	switch s {
	case StatusNew:
		return "NEW"
	case StatusRunning:
		return "RUNNING"
	case StatusWaiting:
		return "WAITING"
	case StatusCompleted:
		return "COMPLETED"
	case StatusFailed:
		return "FAILED"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Node is the runtime instantiation of one Task inside one running
// instance. Implementations live in package node; this interface
// exists so the registry and the propagation algorithm can be expressed
// without a dependency cycle between "the thing that builds nodes" and
// "the thing nodes act on".
type Node interface {
	// Task returns the definition task this node instantiates.
	Task() *definition.Task

	// Execute is called when the node becomes eligible.
	Execute()

	// CanFollowOutgoingFlow reports whether a given outgoing flow should
	// be followed during token propagation. Decision nodes override the
	// default (always true).
	CanFollowOutgoingFlow(flow *definition.Flow) bool

	// CanExecuteNode reports whether the AND-join condition is satisfied.
	CanExecuteNode() bool

	// IncrementIncoming records the arrival of one more incoming flow.
	IncrementIncoming()

	// Complete runs the token-propagation routine. It is the continuation
	// a synchronous task invokes immediately, and the one an asynchronous
	// task stores and invokes later.
	Complete(err error, variables map[string]interface{})

	// Serialize returns the persistable state of the node.
	Serialize() map[string]interface{}

	// Deserialize restores state from a previously-serialized entity. It
	// never executes the node.
	Deserialize(entity map[string]interface{}) error
}

// Host is what a Node needs from the ProcessInstance that owns it —
// lifecycle events, variable handoff, persistence, and the node pool.
// ProcessInstance implements this; Node implementations only ever see it
// through this interface.
type Host interface {
	EmitBefore(task *definition.Task)
	EmitAfter(task *definition.Task)
	EmitEnd()

	// Variables returns a deep-copied snapshot of the instance's
	// variables, safe for a handler to read without aliasing engine state.
	Variables() map[string]interface{}

	// ReplaceVariables deep-copies and installs a new variables map,
	// replacing the instance's current one.
	ReplaceVariables(variables map[string]interface{})

	Status() Status
	// SetStatus transitions the instance's status, persisting the change.
	// If err is non-nil it is recorded as the instance's error; the status
	// set is always the one passed in.
	SetStatus(status Status, err error) error

	// Persist writes the instance through to the backing store.
	Persist() error

	GetNode(taskID int) (Node, bool)
	PutNode(node Node)
	RemoveNode(taskID int)

	// CreateNode constructs (but does not register) a Node for task,
	// resolving its behavior through the engine's task-type registry.
	CreateNode(task *definition.Task) Node

	// Logf emits a debug-level log line scoped to this instance.
	Logf(format string, args ...interface{})

	// OnNoFlowsFollowed is called when a node completes with at least one
	// outgoing flow but follows none of them — a decision with no
	// matching branch. The StallPolicy configured on the instance decides
	// whether this is ignored, recorded, or fails the instance.
	OnNoFlowsFollowed(task *definition.Task)

	// StartSubProcess starts a new process instance of definitionName,
	// seeded with variables, and arranges for onComplete to be called
	// exactly once when that instance reaches a terminal status. It is
	// the hook a call-activity node uses to run another Definition as
	// part of this one; the host itself never knows what a definition
	// name resolves to — that's the owning engine's job.
	StartSubProcess(definitionName string, variables map[string]interface{}, onComplete func(variables map[string]interface{}, err error)) (childID int, err error)
}

// Factory constructs a Node for task within the given instance. Builtin
// factories are in package node; concrete task-type plugins register
// their own.
type Factory func(task *definition.Task, host Host) Node

// Registry is the process-wide, read-mostly mapping from task-type tag to
// Factory. It is populated once at engine construction and is safe for
// concurrent lookups thereafter.
type Registry struct {
	mu    sync.RWMutex
	types map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{types: make(map[string]Factory)}
}

// Register adds or replaces the factory for typeTag.
func (r *Registry) Register(typeTag string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types[typeTag] = factory
}

// Unregister removes typeTag from the registry. Instances persisted with
// this type tag will fall back to the base Node on next reconstruction.
func (r *Registry) Unregister(typeTag string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.types, typeTag)
}

// Lookup returns the factory registered for typeTag, if any.
func (r *Registry) Lookup(typeTag string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.types[typeTag]
	return f, ok
}

// Registered lists the currently-registered task-type tags.
func (r *Registry) Registered() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tags := make([]string, 0, len(r.types))
	for tag := range r.types {
		tags = append(tags, tag)
	}
	return tags
}

// ErrUnknownType documents a caller-requested type tag that isn't
// registered. The registry itself never returns this — a registry miss
// is a normal fallback to the base Node, not an error — this is for
// callers (e.g. admin/debug tooling) that want to fail loudly.
type ErrUnknownType struct {
	Type string
}

func (e *ErrUnknownType) Error() string {
	return fmt.Sprintf("tasktype: no factory registered for type %q", e.Type)
}
