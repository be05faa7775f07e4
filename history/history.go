// Package history records the step-by-step execution of a process
// instance for later audit: which task ran, when, and what the instance's
// variables looked like immediately after. It plays the role the
// teacher's own state package does for a flow instance's recording modes
// and step/snapshot shapes, narrowed to the single RecordingModeStep case
// and adapted onto this engine's Listener and Collection abstractions
// rather than its own recorder plumbing.
package history

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sethdford/process-engine/definition"
	"github.com/sethdford/process-engine/instance"
	"github.com/sethdford/process-engine/internal/util"
	"github.com/sethdford/process-engine/store"
)

// Phase identifies which lifecycle event produced a Step.
type Phase string

const (
	PhaseBefore Phase = "before"
	PhaseAfter  Phase = "after"
	PhaseEnd    Phase = "end"
)

// Step is one recorded lifecycle event for a process instance.
type Step struct {
	InstanceID int                    `json:"instanceId"`
	Seq        int                    `json:"seq"`
	TaskID     int                    `json:"taskId,omitempty"`
	TaskName   string                 `json:"taskName,omitempty"`
	Phase      Phase                  `json:"phase"`
	Status     string                 `json:"status,omitempty"`
	Error      string                 `json:"error,omitempty"`
	Variables  map[string]interface{} `json:"variables,omitempty"`
	Time       time.Time              `json:"time"`
}

// Recorder persists Steps. Implementations must be safe for concurrent
// use by multiple instances.
type Recorder interface {
	Record(ctx context.Context, step Step) error
}

// CollectionRecorder records steps into a store.Collection, one document
// per step, keyed so a caller can page through an instance's history in
// recording order.
type CollectionRecorder struct {
	coll store.Collection
}

// NewCollectionRecorder builds a CollectionRecorder backed by coll.
func NewCollectionRecorder(coll store.Collection) *CollectionRecorder {
	return &CollectionRecorder{coll: coll}
}

func (r *CollectionRecorder) Record(ctx context.Context, step Step) error {
	key := fmt.Sprintf("%d-%06d", step.InstanceID, step.Seq)
	doc := map[string]interface{}{
		"instanceId": step.InstanceID,
		"seq":        step.Seq,
		"taskId":     step.TaskID,
		"taskName":   step.TaskName,
		"phase":      string(step.Phase),
		"status":     step.Status,
		"error":      step.Error,
		"variables":  step.Variables,
		"time":       step.Time.Format(time.RFC3339Nano),
	}
	return r.coll.Insert(ctx, key, doc)
}

// ForInstance returns every step recorded for instanceID from coll, which
// must be the same Collection a CollectionRecorder records into, in
// recording order (ascending Seq).
func ForInstance(ctx context.Context, coll store.Collection, instanceID int) ([]Step, error) {
	docs, err := coll.Find(ctx, func(doc map[string]interface{}) bool {
		return intField(doc["instanceId"]) == instanceID
	})
	if err != nil {
		return nil, err
	}

	steps := make([]Step, 0, len(docs))
	for _, doc := range docs {
		steps = append(steps, stepFromDoc(doc))
	}
	sort.Slice(steps, func(i, j int) bool { return steps[i].Seq < steps[j].Seq })
	return steps, nil
}

func stepFromDoc(doc map[string]interface{}) Step {
	s := Step{
		TaskName: stringField(doc, "taskName"),
		Phase:    Phase(stringField(doc, "phase")),
		Status:   stringField(doc, "status"),
		Error:    stringField(doc, "error"),
	}
	if v, ok := doc["instanceId"]; ok {
		s.InstanceID = intField(v)
	}
	if v, ok := doc["seq"]; ok {
		s.Seq = intField(v)
	}
	if v, ok := doc["taskId"]; ok {
		s.TaskID = intField(v)
	}
	if vars, ok := doc["variables"].(map[string]interface{}); ok {
		s.Variables = util.DeepCopyMap(vars)
	}
	if t, ok := doc["time"].(string); ok {
		if parsed, err := time.Parse(time.RFC3339Nano, t); err == nil {
			s.Time = parsed
		}
	}
	return s
}

func stringField(doc map[string]interface{}, key string) string {
	v, _ := doc[key].(string)
	return v
}

func intField(v interface{}) int {
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

// ListenerRecorder adapts a Recorder into an instance.Listener, recording
// a Step for every Before/After/End event a ProcessInstance emits. It
// captures the instance's variables snapshot at event time, something
// the Listener interface's task-only Before/After signature doesn't
// carry on its own.
type ListenerRecorder struct {
	instanceID int
	vars       func() map[string]interface{}
	rec        Recorder
	ctx        context.Context

	seq int
}

// NewListenerRecorder builds a ListenerRecorder for the given instance,
// using varsFn to snapshot variables at each event (ordinarily
// pi.Variables).
func NewListenerRecorder(instanceID int, varsFn func() map[string]interface{}, rec Recorder) *ListenerRecorder {
	return &ListenerRecorder{instanceID: instanceID, vars: varsFn, rec: rec, ctx: context.Background()}
}

func (l *ListenerRecorder) Before(task *definition.Task) {
	l.record(Step{TaskID: task.ID(), TaskName: task.Name(), Phase: PhaseBefore, Variables: l.vars()})
}

func (l *ListenerRecorder) After(task *definition.Task) {
	l.record(Step{TaskID: task.ID(), TaskName: task.Name(), Phase: PhaseAfter, Variables: l.vars()})
}

func (l *ListenerRecorder) End(status instance.Status, err error) {
	step := Step{Phase: PhaseEnd, Status: status.String(), Variables: l.vars()}
	if err != nil {
		step.Error = err.Error()
	}
	l.record(step)
}

func (l *ListenerRecorder) record(step Step) {
	step.InstanceID = l.instanceID
	step.Time = time.Now()
	l.seq++
	step.Seq = l.seq
	if err := l.rec.Record(l.ctx, step); err != nil {
		// Best-effort: a history-recording failure never fails the
		// instance it is observing.
		return
	}
}

var _ instance.Listener = (*ListenerRecorder)(nil)
