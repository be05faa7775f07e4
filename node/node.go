// Package node implements the runtime Node — the per-task execution
// unit a ProcessInstance drives through token propagation.
//
// Rather than modeling task-type variants (service-task, decision, ...)
// as distinct Go types bound together by inheritance, BaseNode follows
// a capability-set design: a single concrete type with pluggable
// executeInternal/canFollowOutgoingFlow hooks, set once at construction
// by each Factory. This sidesteps Go's lack of virtual dispatch through
// embedding entirely — there is no "self" to get wrong.
package node

import (
	"fmt"
	"sync"

	"github.com/sethdford/process-engine/definition"
	"github.com/sethdford/process-engine/tasktype"
)

// Builtin task-type tags.
const (
	StartTask    = "start-task"
	EndTask      = "end-task"
	ServiceTask  = "service-task"
	Decision     = "decision"
	CallActivity = "call-activity"
)

// BaseNode is the base Node implementation: a synchronous pass-through
// whose executeInternal immediately completes. ServiceTask and Decision
// nodes are BaseNodes configured with different hooks; see
// NewServiceTaskNode and NewDecisionNode.
type BaseNode struct {
	host tasktype.Host
	task *definition.Task

	mu                           sync.Mutex
	incomingFlowCompletedNumber uint32
	completed                    bool

	// executeInternal is the overridable execution hook. The default
	// (nil) completes synchronously with no error and no variable
	// changes.
	executeInternal func(complete func(err error, variables map[string]interface{}))

	// followFlow is the overridable hook behind CanFollowOutgoingFlow.
	// The default (nil) follows every outgoing flow.
	followFlow func(flow *definition.Flow) bool

	serializeExtra   func() map[string]interface{}
	deserializeExtra func(entity map[string]interface{}) error
}

// NewBaseNode constructs a plain pass-through Node for task within host.
// Used directly for start-task and end-task; ServiceTask/Decision
// factories build on top of it.
func NewBaseNode(host tasktype.Host, task *definition.Task) *BaseNode {
	return &BaseNode{host: host, task: task}
}

// NewBaseTaskNode adapts NewBaseNode to the tasktype.Factory signature.
func NewBaseTaskNode(task *definition.Task, host tasktype.Host) tasktype.Node {
	return NewBaseNode(host, task)
}

// Task implements tasktype.Node.
func (n *BaseNode) Task() *definition.Task {
	return n.task
}

// CanExecuteNode implements tasktype.Node: the AND-join condition —
// eligible once every incoming flow has arrived.
func (n *BaseNode) CanExecuteNode() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return int(n.incomingFlowCompletedNumber) == len(n.task.IncomingFlows())
}

// IncrementIncoming implements tasktype.Node.
func (n *BaseNode) IncrementIncoming() {
	n.mu.Lock()
	n.incomingFlowCompletedNumber++
	n.mu.Unlock()
}

// CanFollowOutgoingFlow implements tasktype.Node.
func (n *BaseNode) CanFollowOutgoingFlow(flow *definition.Flow) bool {
	if n.followFlow != nil {
		return n.followFlow(flow)
	}
	return true
}

// Execute implements tasktype.Node: emits before(task), then invokes
// executeInternal with Complete as the continuation.
func (n *BaseNode) Execute() {
	n.host.EmitBefore(n.task)

	ei := n.executeInternal
	if ei == nil {
		ei = func(complete func(error, map[string]interface{})) {
			complete(nil, nil)
		}
	}
	ei(n.Complete)
}

// Complete implements tasktype.Node — the token-propagation routine. It
// is safe to call concurrently; only the first call for a given node has
// any effect, so redelivery of an already-completed task is a no-op.
//
// Complete is reachable both from Execute's own continuation and from an
// external resume (Engine.CompleteTask/CompleteTaskByName), so its defer
// recover is the one place a panic from an opaque, externally-supplied
// callback — a Decision's Condition, chief among them — is guaranteed to
// pass through on every path, rather than unwinding the caller's
// goroutine.
func (n *BaseNode) Complete(err error, variables map[string]interface{}) {
	n.mu.Lock()
	if n.completed {
		n.mu.Unlock()
		n.host.Logf("node: duplicate completion of task %q ignored", n.task.Name())
		return
	}
	n.completed = true
	n.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			perr := fmt.Errorf("node: panic completing task %q: %v", n.task.Name(), r)
			n.host.Logf("%v", perr)
			_ = n.host.SetStatus(tasktype.StatusFailed, perr)
			n.host.EmitEnd()
		}
	}()

	if err != nil {
		_ = n.host.SetStatus(tasktype.StatusFailed, err)
		n.host.EmitEnd()
		return
	}

	if variables != nil {
		n.host.ReplaceVariables(variables)
	}

	n.host.EmitAfter(n.task)
	n.host.RemoveNode(n.task.ID())

	followed := 0
	for _, flow := range n.task.OutgoingFlows() {
		if !n.CanFollowOutgoingFlow(flow) {
			continue
		}
		followed++

		successor, ok := n.host.GetNode(flow.To().ID())
		if !ok {
			successor = n.host.CreateNode(flow.To())
			n.host.PutNode(successor)
		}

		successor.IncrementIncoming()

		if successor.CanExecuteNode() {
			successor.Execute()
		} else if n.host.Status() == tasktype.StatusWaiting {
			_ = n.host.Persist()
		}
	}

	if followed == 0 && len(n.task.OutgoingFlows()) > 0 {
		n.host.OnNoFlowsFollowed(n.task)
	}

	if n.task.Type() == EndTask {
		_ = n.host.SetStatus(tasktype.StatusCompleted, nil)
		n.host.EmitEnd()
	}
}

// Serialize implements tasktype.Node.
func (n *BaseNode) Serialize() map[string]interface{} {
	n.mu.Lock()
	entity := map[string]interface{}{
		"taskId":                      n.task.ID(),
		"incomingFlowCompletedNumber": n.incomingFlowCompletedNumber,
	}
	n.mu.Unlock()

	if n.serializeExtra != nil {
		for k, v := range n.serializeExtra() {
			entity[k] = v
		}
	}
	return entity
}

// Deserialize implements tasktype.Node, restoring incomingFlowCompletedNumber
// and any subtype-specific state without re-executing the node.
func (n *BaseNode) Deserialize(entity map[string]interface{}) error {
	if v, ok := entity["incomingFlowCompletedNumber"]; ok {
		n.incomingFlowCompletedNumber = toUint32(v)
	}
	if n.deserializeExtra != nil {
		return n.deserializeExtra(entity)
	}
	return nil
}

func toUint32(v interface{}) uint32 {
	switch t := v.(type) {
	case uint32:
		return t
	case int:
		return uint32(t)
	case int64:
		return uint32(t)
	case float64:
		return uint32(t)
	default:
		return 0
	}
}

// RegisterBuiltins registers the canonical task types on reg: start-task
// and end-task (base Node), service-task (async), decision (selective
// flow following), and call-activity (runs another Definition as a
// sub-process).
func RegisterBuiltins(reg *tasktype.Registry) {
	reg.Register(StartTask, NewBaseTaskNode)
	reg.Register(EndTask, NewBaseTaskNode)
	reg.Register(ServiceTask, NewServiceTaskNode)
	reg.Register(Decision, NewDecisionNode)
	reg.Register(CallActivity, NewCallActivityNode)
}
