package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sethdford/process-engine/definition"
	"github.com/sethdford/process-engine/history"
	"github.com/sethdford/process-engine/instance"
	"github.com/sethdford/process-engine/node"
	"github.com/sethdford/process-engine/store"
	"github.com/sethdford/process-engine/tasktype"
)

func buildServiceDef(t *testing.T, name string) *definition.Definition {
	b := definition.NewBuilder(name)
	start := b.AddTask("start", node.StartTask)
	svc := b.AddTask("svc", node.ServiceTask)
	end := b.AddTask("end", node.EndTask)
	require.NoError(t, b.AddFlow(start, svc))
	require.NoError(t, b.AddFlow(svc, end))
	def, err := b.Build()
	require.NoError(t, err)
	return def
}

func TestStartAndCompleteTask(t *testing.T) {
	e := New()
	def := buildServiceDef(t, "svc-flow")

	pi, err := e.StartProcessInstance(def, map[string]interface{}{"n": 1})
	require.NoError(t, err)
	assert.Equal(t, tasktype.StatusWaiting, pi.Status())

	svcTask := def.GetTask(1)
	require.NoError(t, e.CompleteTask(pi.ID(), svcTask.ID(), nil, map[string]interface{}{"n": 2}))

	assert.Equal(t, tasktype.StatusCompleted, pi.Status())
	assert.Equal(t, 2, pi.Variables()["n"])
}

func TestCompleteTaskByName(t *testing.T) {
	e := New()
	def := buildServiceDef(t, "svc-flow-2")
	pi, err := e.StartProcessInstance(def, nil)
	require.NoError(t, err)

	require.NoError(t, e.CompleteTaskByName(pi.ID(), "svc", nil, nil))
	assert.Equal(t, tasktype.StatusCompleted, pi.Status())
}

func TestCompleteTaskUnknownInstance(t *testing.T) {
	e := New()
	err := e.CompleteTask(999, 0, nil, nil)
	assert.Error(t, err)
}

func TestClearPoolEvictsWaitingAndCompletedOnly(t *testing.T) {
	e := New()
	def := buildServiceDef(t, "svc-flow-3")

	waiting, err := e.StartProcessInstance(def, nil)
	require.NoError(t, err)

	failingDef := buildServiceDef(t, "svc-flow-4")
	failing, err := e.StartProcessInstance(failingDef, nil)
	require.NoError(t, err)
	require.NoError(t, e.CompleteTask(failing.ID(), 1, assertError(), nil))

	evicted := e.ClearPool()
	assert.Equal(t, 1, evicted)

	_, stillThereInMemory := e.instances[waiting.ID()]
	assert.False(t, stillThereInMemory)
	_, failingStillThere := e.instances[failing.ID()]
	assert.True(t, failingStillThere)

	// Rehydration from the backing store brings the waiting instance
	// back into the pool transparently.
	reloaded, ok := e.GetProcessInstance(waiting.ID())
	require.True(t, ok)
	assert.Equal(t, tasktype.StatusWaiting, reloaded.Status())
}

func assertError() error { return errSentinel }

var errSentinel = &sentinelErr{}

type sentinelErr struct{}

func (s *sentinelErr) Error() string { return "boom" }

func TestCallActivityRunsSubProcessSynchronously(t *testing.T) {
	e := New()

	child := definition.NewBuilder("approval")
	cStart := child.AddTask("start", node.StartTask)
	cEnd := child.AddTask("end", node.EndTask)
	require.NoError(t, child.AddFlow(cStart, cEnd))
	childDef, err := child.Build()
	require.NoError(t, err)
	e.RegisterDefinition(childDef)

	parent := definition.NewBuilder("approval-wrapper")
	pStart := parent.AddTask("start", node.StartTask)
	pCall := parent.AddTaskWithSettings("run-approval", node.CallActivity, map[string]interface{}{"definitionName": "approval"})
	pEnd := parent.AddTask("end", node.EndTask)
	require.NoError(t, parent.AddFlow(pStart, pCall))
	require.NoError(t, parent.AddFlow(pCall, pEnd))
	parentDef, err := parent.Build()
	require.NoError(t, err)

	pi, err := e.StartProcessInstance(parentDef, nil)
	require.NoError(t, err)

	assert.Equal(t, tasktype.StatusCompleted, pi.Status())

	children := e.QueryProcessInstances(func(c *instance.ProcessInstance) bool {
		return c.Definition().Name() == "approval"
	})
	require.Len(t, children, 1)
	assert.Equal(t, tasktype.StatusCompleted, children[0].Status())
}

func TestHistoryRecordingCapturesEveryStep(t *testing.T) {
	histColl := store.NewMemCollection()
	e := New(WithHistoryRecorder(history.NewCollectionRecorder(histColl)))

	def := buildServiceDef(t, "svc-flow-history")
	pi, err := e.StartProcessInstance(def, nil)
	require.NoError(t, err)
	require.NoError(t, e.CompleteTaskByName(pi.ID(), "svc", nil, nil))

	steps, err := history.ForInstance(context.Background(), histColl, pi.ID())
	require.NoError(t, err)
	assert.NotEmpty(t, steps)

	sawEnd := false
	for _, s := range steps {
		if s.Phase == history.PhaseEnd {
			sawEnd = true
			assert.Equal(t, "COMPLETED", s.Status)
		}
	}
	assert.True(t, sawEnd, "expected an end-phase step")
}

func TestQueryProcessInstances(t *testing.T) {
	e := New()
	def := buildServiceDef(t, "svc-flow-5")
	_, err := e.StartProcessInstance(def, nil)
	require.NoError(t, err)

	waiting := e.QueryProcessInstances(func(pi *instance.ProcessInstance) bool {
		return pi.Status() == tasktype.StatusWaiting
	})
	assert.Len(t, waiting, 1)
}

func TestQueryPersistedSeesInstancesEvictedFromThePool(t *testing.T) {
	e := New()
	def := buildServiceDef(t, "svc-flow-6")
	pi, err := e.StartProcessInstance(def, nil)
	require.NoError(t, err)
	require.NoError(t, e.CompleteTaskByName(pi.ID(), "svc", nil, nil))

	evicted := e.ClearPool()
	require.Equal(t, 1, evicted)

	live := e.QueryProcessInstances(func(c *instance.ProcessInstance) bool { return true })
	assert.Empty(t, live, "expected the completed instance gone from the live pool")

	docs, err := e.QueryPersisted(context.Background(), func(doc map[string]interface{}) bool {
		return doc["status"] == int(tasktype.StatusCompleted)
	})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, def.Name(), docs[0]["definitionName"])
}
