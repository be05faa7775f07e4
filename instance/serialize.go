package instance

import (
	"fmt"

	"github.com/sethdford/process-engine/definition"
	"github.com/sethdford/process-engine/node"
	"github.com/sethdford/process-engine/tasktype"
)

// Serialize returns the persistable state of the instance: its status,
// variables, stalled-task log, and every live node's own Serialize
// output. It returns a plain map rather than JSON bytes directly — the
// Collection a ProcessInstance is backed by owns the wire encoding.
func (pi *ProcessInstance) Serialize() map[string]interface{} {
	pi.mu.Lock()
	defer pi.mu.Unlock()

	nodes := make([]map[string]interface{}, 0, len(pi.pool))
	for _, n := range pi.pool {
		entity := n.Serialize()
		entity["taskId"] = n.Task().ID()
		nodes = append(nodes, entity)
	}

	stalled := make([]string, len(pi.stalledTasks))
	copy(stalled, pi.stalledTasks)

	doc := map[string]interface{}{
		"id":             pi.id,
		"definitionName": pi.def.Name(),
		"status":         int(pi.status),
		"variables":      copyVariables(pi.variables),
		"nodes":          nodes,
		"stalledTasks":   stalled,
	}
	if pi.procErr != nil {
		doc["error"] = pi.procErr.Error()
	}
	return doc
}

// Deserialize restores an instance's runtime state from a document
// produced by Serialize, rebuilding its node pool via CreateNode and
// Node.Deserialize. It never re-executes a node — nodes resume only when
// CompleteTask is called on them again, matching Node.Deserialize's own
// contract.
func (pi *ProcessInstance) Deserialize(doc map[string]interface{}) error {
	pi.mu.Lock()
	defer pi.mu.Unlock()

	pi.persisted = true

	if status, ok := doc["status"]; ok {
		pi.status = tasktypeStatus(status)
	}
	if vars, ok := doc["variables"].(map[string]interface{}); ok {
		pi.variables = copyVariables(vars)
	}
	if msg, ok := doc["error"].(string); ok && msg != "" {
		pi.procErr = fmt.Errorf("%s", msg)
	}

	pi.stalledTasks = nil
	if stalled, ok := doc["stalledTasks"].([]interface{}); ok {
		for _, s := range stalled {
			if name, ok := s.(string); ok {
				pi.stalledTasks = append(pi.stalledTasks, name)
			}
		}
	}

	pi.pool = make(map[int]tasktype.Node)
	var entities []map[string]interface{}
	switch nodes := doc["nodes"].(type) {
	case []interface{}:
		for _, raw := range nodes {
			if entity, ok := raw.(map[string]interface{}); ok {
				entities = append(entities, entity)
			}
		}
	case []map[string]interface{}:
		entities = nodes
	}
	for _, entity := range entities {
		taskID := toInt(entity["taskId"])
		task := pi.def.GetTask(taskID)
		if task == nil {
			return fmt.Errorf("instance: deserialize: unknown task id %d", taskID)
		}
		n := pi.createNodeLocked(task)
		if err := n.Deserialize(entity); err != nil {
			return fmt.Errorf("instance: deserialize node %q: %w", task.Name(), err)
		}
		pi.pool[taskID] = n
	}
	return nil
}

// createNodeLocked is CreateNode without re-acquiring pi.mu, for use from
// Deserialize which already holds it.
func (pi *ProcessInstance) createNodeLocked(task *definition.Task) tasktype.Node {
	if pi.registry != nil {
		if factory, ok := pi.registry.Lookup(task.Type()); ok {
			return factory(task, pi)
		}
	}
	return node.NewBaseTaskNode(task, pi)
}

func tasktypeStatus(v interface{}) tasktype.Status {
	switch t := v.(type) {
	case int:
		return tasktype.Status(t)
	case int64:
		return tasktype.Status(t)
	case float64:
		return tasktype.Status(t)
	case tasktype.Status:
		return t
	default:
		return tasktype.StatusNew
	}
}

func copyVariables(vars map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(vars))
	for k, v := range vars {
		out[k] = v
	}
	return out
}

func toInt(v interface{}) int {
	switch t := v.(type) {
	case int:
		return t
	case int64:
		return int(t)
	case float64:
		return int(t)
	default:
		return -1
	}
}
