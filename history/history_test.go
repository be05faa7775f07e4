package history

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sethdford/process-engine/definition"
	"github.com/sethdford/process-engine/instance"
	"github.com/sethdford/process-engine/store"
)

func TestCollectionRecorderRoundTrip(t *testing.T) {
	coll := store.NewMemCollection()
	rec := NewCollectionRecorder(coll)

	require.NoError(t, rec.Record(context.Background(), Step{
		InstanceID: 1,
		Seq:        1,
		TaskName:   "start",
		Phase:      PhaseBefore,
		Variables:  map[string]interface{}{"amount": 42},
	}))
	require.NoError(t, rec.Record(context.Background(), Step{
		InstanceID: 1,
		Seq:        2,
		TaskName:   "start",
		Phase:      PhaseAfter,
	}))
	require.NoError(t, rec.Record(context.Background(), Step{
		InstanceID: 2,
		Seq:        1,
		TaskName:   "start",
		Phase:      PhaseBefore,
	}))

	steps, err := ForInstance(context.Background(), coll, 1)
	require.NoError(t, err)
	require.Len(t, steps, 2)
	assert.Equal(t, 42, steps[0].Variables["amount"])
}

func TestListenerRecorderRecordsLifecycle(t *testing.T) {
	coll := store.NewMemCollection()
	rec := NewCollectionRecorder(coll)

	vars := map[string]interface{}{"x": 1}
	lr := NewListenerRecorder(7, func() map[string]interface{} { return vars }, rec)

	b := definition.NewBuilder("demo")
	startID := b.AddTask("start", "start-task")
	def, err := b.Build()
	require.NoError(t, err)
	task := def.GetTask(startID)

	lr.Before(task)
	lr.After(task)
	lr.End(instance.StatusCompleted, nil)

	steps, err := ForInstance(context.Background(), coll, 7)
	require.NoError(t, err)
	require.Len(t, steps, 3)
	assert.Equal(t, PhaseBefore, steps[0].Phase)
	assert.Equal(t, PhaseEnd, steps[2].Phase)
	assert.Equal(t, "COMPLETED", steps[2].Status)
}

func TestListenerRecorderRecordsFailureError(t *testing.T) {
	coll := store.NewMemCollection()
	rec := NewCollectionRecorder(coll)
	lr := NewListenerRecorder(9, func() map[string]interface{} { return nil }, rec)

	lr.End(instance.StatusFailed, errors.New("boom"))

	steps, err := ForInstance(context.Background(), coll, 9)
	require.NoError(t, err)
	require.Len(t, steps, 1)
	assert.Equal(t, "boom", steps[0].Error)
}
