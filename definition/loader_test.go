package definition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
name: onboarding
tasks:
  - name: start
    type: start-task
  - name: verify
    type: service-task
  - name: decide
    type: decision
  - name: approve
    type: end-task
  - name: reject
    type: end-task
flows:
  - from: start
    to: verify
  - from: verify
    to: decide
  - from: decide
    to: approve
    guard: approved
  - from: decide
    to: reject
    guard: rejected
`

func TestMaterializeFromYAML(t *testing.T) {
	rep, err := ParseRepYAML([]byte(sampleYAML))
	require.NoError(t, err)

	resolver := func(guard string) (Condition, error) {
		switch guard {
		case "approved":
			return func(vars map[string]interface{}) (bool, error) {
				ok, _ := vars["approved"].(bool)
				return ok, nil
			}, nil
		case "rejected":
			return func(vars map[string]interface{}) (bool, error) {
				ok, _ := vars["approved"].(bool)
				return !ok, nil
			}, nil
		}
		return nil, nil
	}

	def, err := Materialize(rep, resolver)
	require.NoError(t, err)

	assert.Equal(t, "onboarding", def.Name())
	assert.Equal(t, "start-task", def.StartTask().Type())
	assert.Len(t, def.Tasks(), 5)
	assert.Len(t, def.Flows(), 4)
}

func TestMaterializeUnguardedFlowWithoutResolver(t *testing.T) {
	rep := &Rep{
		Name: "simple",
		Tasks: []TaskRep{
			{Name: "start", Type: "start-task"},
			{Name: "end", Type: "end-task"},
		},
		Flows: []FlowRep{{From: "start", To: "end"}},
	}

	def, err := Materialize(rep, nil)
	require.NoError(t, err)
	assert.Len(t, def.Flows(), 1)
}

func TestMaterializeTaskSettings(t *testing.T) {
	rep := &Rep{
		Name: "wrapper",
		Tasks: []TaskRep{
			{Name: "start", Type: "start-task"},
			{Name: "run", Type: "call-activity", Settings: map[string]interface{}{"definitionName": "approval"}},
			{Name: "end", Type: "end-task"},
		},
		Flows: []FlowRep{
			{From: "start", To: "run"},
			{From: "run", To: "end"},
		},
	}

	def, err := Materialize(rep, nil)
	require.NoError(t, err)
	assert.Equal(t, "approval", def.GetTask(1).Settings()["definitionName"])
}

func TestMaterializeMissingGuardResolver(t *testing.T) {
	rep := &Rep{
		Name: "bad",
		Tasks: []TaskRep{
			{Name: "start", Type: "start-task"},
			{Name: "decide", Type: "decision"},
		},
		Flows: []FlowRep{{From: "start", To: "decide", Guard: "x"}},
	}

	_, err := Materialize(rep, nil)
	assert.Error(t, err)
}
