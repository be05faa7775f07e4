package definition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilderLinearFlow(t *testing.T) {
	b := NewBuilder("linear")
	start := b.AddTask("start", "start-task")
	step := b.AddTask("step", "service-task")
	end := b.AddTask("end", "end-task")

	require.NoError(t, b.AddFlow(start, step))
	require.NoError(t, b.AddFlow(step, end))

	def, err := b.Build()
	require.NoError(t, err)

	assert.Equal(t, "linear", def.Name())
	assert.Equal(t, def.GetTask(StartTaskID), def.StartTask())
	assert.Len(t, def.StartTask().OutgoingFlows(), 1)
	assert.Len(t, def.GetTask(end).IncomingFlows(), 1)
}

func TestBuilderUnknownTaskID(t *testing.T) {
	b := NewBuilder("bad")
	b.AddTask("start", "start-task")

	err := b.AddFlow(0, 5)
	assert.Error(t, err)
}

func TestBuilderRejectsCycle(t *testing.T) {
	b := NewBuilder("cyclic")
	a := b.AddTask("a", "service-task")
	c := b.AddTask("b", "service-task")

	require.NoError(t, b.AddFlow(a, c))
	require.NoError(t, b.AddFlow(c, a))

	_, err := b.Build()
	assert.Error(t, err)
}

func TestBuilderRejectsEmpty(t *testing.T) {
	b := NewBuilder("empty")
	_, err := b.Build()
	assert.Error(t, err)
}

func TestConditionalFlow(t *testing.T) {
	b := NewBuilder("decide")
	start := b.AddTask("start", "start-task")
	decide := b.AddTask("decide", "decision")
	a := b.AddTask("a", "end-task")
	bb := b.AddTask("b", "end-task")

	require.NoError(t, b.AddFlow(start, decide))
	require.NoError(t, b.AddConditionalFlow(decide, a, func(vars map[string]interface{}) (bool, error) {
		x, _ := vars["x"].(int)
		return x > 0, nil
	}))
	require.NoError(t, b.AddConditionalFlow(decide, bb, func(vars map[string]interface{}) (bool, error) {
		x, _ := vars["x"].(int)
		return x <= 0, nil
	}))

	def, err := b.Build()
	require.NoError(t, err)

	decideTask := def.GetTask(decide)
	require.Len(t, decideTask.OutgoingFlows(), 2)

	ok, err := decideTask.OutgoingFlows()[0].Condition()(map[string]interface{}{"x": 5})
	require.NoError(t, err)
	assert.True(t, ok)
}
