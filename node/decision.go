package node

import (
	"github.com/sethdford/process-engine/definition"
	"github.com/sethdford/process-engine/tasktype"
)

// NewDecisionNode builds the canonical decision-gateway Node: its
// CanFollowOutgoingFlow evaluates each flow's Condition against a
// deep-copied snapshot of the instance's variables. A flow with no
// Condition is unconditional and always followed. Multiple matching
// flows are permitted (inclusive-gateway semantics); a condition error
// is treated as "don't follow this flow" and logged, not propagated as a
// handler error — the decision dialect is opaque to the core.
func NewDecisionNode(task *definition.Task, host tasktype.Host) tasktype.Node {
	n := NewBaseNode(host, task)

	n.followFlow = func(flow *definition.Flow) bool {
		cond := flow.Condition()
		if cond == nil {
			return true
		}

		ok, err := cond(host.Variables())
		if err != nil {
			host.Logf("decision %q: condition error evaluating flow to %q: %v", task.Name(), flow.To().Name(), err)
			return false
		}
		return ok
	}

	return n
}
