package node

import (
	"github.com/sethdford/process-engine/definition"
	"github.com/sethdford/process-engine/tasktype"
)

// NewServiceTaskNode builds the canonical asynchronous Node. Its
// executeInternal suspends the instance rather than completing
// immediately: the node stays live in the pool, and Complete — the same
// continuation every Node exposes — is invoked later by an external
// caller via Engine.CompleteTask, which looks the node up in the pool
// and calls Complete directly. BaseNode.Complete's own completed-guard
// gives this single-delivery semantics: a second completion for the
// same node is a no-op.
func NewServiceTaskNode(task *definition.Task, host tasktype.Host) tasktype.Node {
	n := NewBaseNode(host, task)

	pending := false

	n.executeInternal = func(complete func(err error, variables map[string]interface{})) {
		pending = true
		if err := host.SetStatus(tasktype.StatusWaiting, nil); err != nil {
			host.Logf("service-task %q: failed to persist waiting status: %v", task.Name(), err)
		}
		// complete is intentionally not invoked here — it is n.Complete,
		// reachable later through the instance's node pool.
	}

	n.serializeExtra = func() map[string]interface{} {
		return map[string]interface{}{"pending": pending}
	}

	n.deserializeExtra = func(entity map[string]interface{}) error {
		if v, ok := entity["pending"].(bool); ok {
			pending = v
		}
		return nil
	}

	return n
}
