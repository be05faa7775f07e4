package node

import (
	"fmt"

	"github.com/sethdford/process-engine/definition"
	"github.com/sethdford/process-engine/tasktype"
)

// settingDefinitionName is the Task.Settings() key a call-activity task
// uses to name the Definition it runs as a sub-process.
const settingDefinitionName = "definitionName"

// NewCallActivityNode builds a Node that runs another Definition as a
// sub-process: on Execute it asks the host to start that Definition with
// a snapshot of its own variables, suspends like a service task, and
// resumes through its own Complete once the sub-process reaches a
// terminal status, carrying over the sub-process's final variables as
// its own output.
func NewCallActivityNode(task *definition.Task, host tasktype.Host) tasktype.Node {
	n := NewBaseNode(host, task)

	var childID int
	started := false

	n.executeInternal = func(complete func(err error, variables map[string]interface{})) {
		defName, _ := task.Settings()[settingDefinitionName].(string)
		if defName == "" {
			complete(fmt.Errorf("call-activity %q: no %s configured", task.Name(), settingDefinitionName), nil)
			return
		}

		if err := host.SetStatus(tasktype.StatusWaiting, nil); err != nil {
			host.Logf("call-activity %q: failed to persist waiting status: %v", task.Name(), err)
		}

		id, err := host.StartSubProcess(defName, host.Variables(), func(variables map[string]interface{}, err error) {
			complete(err, variables)
		})
		if err != nil {
			complete(err, nil)
			return
		}
		childID = id
		started = true
	}

	n.serializeExtra = func() map[string]interface{} {
		return map[string]interface{}{"childId": childID, "started": started}
	}
	n.deserializeExtra = func(entity map[string]interface{}) error {
		if v, ok := entity["childId"]; ok {
			childID = toInt(v)
		}
		if v, ok := entity["started"].(bool); ok {
			started = v
		}
		return nil
	}

	return n
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
		return 0
	}
}
