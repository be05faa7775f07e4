// Package engine is the process-wide entry point: it holds the
// task-type registry, the backing persistence collection, and the live
// pool of ProcessInstance objects that CreateProcessInstance,
// CompleteTask, and the rest of the public API operate on.
package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/project-flogo/core/support"
	"github.com/project-flogo/core/support/log"

	"github.com/sethdford/process-engine/definition"
	"github.com/sethdford/process-engine/history"
	"github.com/sethdford/process-engine/instance"
	"github.com/sethdford/process-engine/node"
	"github.com/sethdford/process-engine/store"
	"github.com/sethdford/process-engine/tasktype"
)

// Engine owns every live ProcessInstance and the registry of task types
// available to their nodes. One Engine typically backs one process.
type Engine struct {
	registry *tasktype.Registry
	coll     store.Collection
	logger   log.Logger

	idGen *support.Generator

	mu        sync.RWMutex
	instances map[int]*instance.ProcessInstance
	defs      map[string]*definition.Definition

	defaultStallPolicy instance.StallPolicy
	historyRecorder    history.Recorder
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithCollection sets the Collection new instances persist through. The
// zero value is an in-memory MemCollection.
func WithCollection(coll store.Collection) Option {
	return func(e *Engine) { e.coll = coll }
}

// WithStallPolicy sets the StallPolicy every new instance starts with.
func WithStallPolicy(p instance.StallPolicy) Option {
	return func(e *Engine) { e.defaultStallPolicy = p }
}

// WithHistoryRecorder makes every instance the engine creates or
// rehydrates report its lifecycle events to rec. Nil (the default)
// disables history recording entirely — the cost of computing a
// variables snapshot on every task is only paid when a caller asks for
// it.
func WithHistoryRecorder(rec history.Recorder) Option {
	return func(e *Engine) { e.historyRecorder = rec }
}

// New creates an Engine with the builtin task types registered. Callers
// add domain-specific task types with Registry().Register before
// creating any instances.
func New(opts ...Option) *Engine {
	reg := tasktype.NewRegistry()
	node.RegisterBuiltins(reg)

	idGen, err := support.NewGenerator()
	if err != nil {
		idGen = nil
	}

	e := &Engine{
		registry:  reg,
		coll:      store.NewMemCollection(),
		logger:    log.ChildLogger(log.RootLogger(), "engine"),
		idGen:     idGen,
		instances: make(map[int]*instance.ProcessInstance),
		defs:      make(map[string]*definition.Definition),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registry returns the engine's task-type registry, for registering
// domain-specific factories before the first instance is created.
func (e *Engine) Registry() *tasktype.Registry { return e.registry }

// RegisterDefinition makes def available for instance rehydration: an
// instance evicted from the in-memory pool by ClearPool is reloaded from
// the backing Collection by looking up the definition name stored in its
// serialized document.
func (e *Engine) RegisterDefinition(def *definition.Definition) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.defs[def.Name()] = def
}

// GetDefinition returns a previously registered definition by name.
func (e *Engine) GetDefinition(name string) (*definition.Definition, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	def, ok := e.defs[name]
	return def, ok
}

func (e *Engine) nextID() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := len(e.instances) + 1
	for {
		if _, taken := e.instances[id]; !taken {
			return id
		}
		id++
	}
}

// CreateProcessInstance allocates a new, unstarted ProcessInstance for
// def. Call Start (directly, or via the convenience StartProcessInstance)
// to begin execution.
func (e *Engine) CreateProcessInstance(def *definition.Definition) *instance.ProcessInstance {
	id := e.nextID()
	pi := instance.New(id, def, e.registry, e.coll)
	pi.SetStallPolicy(e.defaultStallPolicy)
	pi.SetSubProcessStarter(e.startSubProcess)
	e.subscribeHistory(pi)

	e.mu.Lock()
	e.instances[id] = pi
	e.defs[def.Name()] = def
	e.mu.Unlock()

	return pi
}

func (e *Engine) subscribeHistory(pi *instance.ProcessInstance) {
	if e.historyRecorder == nil {
		return
	}
	pi.Subscribe(history.NewListenerRecorder(pi.ID(), pi.Variables, e.historyRecorder))
}

// startSubProcess is the instance.SubProcessStarter every ProcessInstance
// the engine creates is given: it resolves definitionName against the
// engine's registered definitions, starts a child instance, and wires
// onComplete to fire once that child reaches a terminal status. This is
// how a call-activity node runs another Definition without the node or
// instance packages ever importing package engine.
func (e *Engine) startSubProcess(definitionName string, variables map[string]interface{}, onComplete func(variables map[string]interface{}, err error)) (int, error) {
	e.mu.RLock()
	def, ok := e.defs[definitionName]
	e.mu.RUnlock()
	if !ok {
		return 0, fmt.Errorf("engine: no definition %q registered for call-activity", definitionName)
	}

	child := e.CreateProcessInstance(def)
	child.Subscribe(instance.EndListenerFunc(func(status tasktype.Status, err error) {
		if status == tasktype.StatusFailed {
			onComplete(nil, err)
			return
		}
		onComplete(child.Variables(), nil)
	}))

	if err := child.Start(variables); err != nil {
		return 0, err
	}
	return child.ID(), nil
}

// StartProcessInstance creates and immediately starts a ProcessInstance
// for def, seeded with variables.
func (e *Engine) StartProcessInstance(def *definition.Definition, variables map[string]interface{}) (*instance.ProcessInstance, error) {
	pi := e.CreateProcessInstance(def)
	if err := pi.Start(variables); err != nil {
		return nil, err
	}
	return pi, nil
}

// GetProcessInstance returns the instance with the given id, pulling it
// back from the backing Collection and re-entering the in-memory pool if
// ClearPool evicted it in the meantime. Rehydration requires the
// instance's definition to have been registered, via
// CreateProcessInstance or RegisterDefinition.
func (e *Engine) GetProcessInstance(id int) (*instance.ProcessInstance, bool) {
	e.mu.RLock()
	pi, ok := e.instances[id]
	e.mu.RUnlock()
	if ok {
		return pi, true
	}

	pi, err := e.reload(id)
	if err != nil {
		e.logger.Debugf("engine: reload instance %d: %v", id, err)
		return nil, false
	}
	return pi, true
}

func (e *Engine) reload(id int) (*instance.ProcessInstance, error) {
	doc, err := e.coll.FindOne(context.Background(), fmt.Sprintf("%d", id))
	if err != nil {
		return nil, err
	}
	defName, _ := doc["definitionName"].(string)

	e.mu.Lock()
	def, ok := e.defs[defName]
	e.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("no definition %q registered for rehydration", defName)
	}

	pi := instance.New(id, def, e.registry, e.coll)
	pi.SetSubProcessStarter(e.startSubProcess)
	e.subscribeHistory(pi)
	if err := pi.Deserialize(doc); err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.instances[id] = pi
	e.mu.Unlock()
	return pi, nil
}

// CompleteTask delivers a task completion to a waiting node in instance
// processID's pool, identified by taskID. It is the entry point an
// external worker (an HTTP handler, a queue consumer) uses to resume a
// suspended service task.
func (e *Engine) CompleteTask(processID, taskID int, taskErr error, variables map[string]interface{}) error {
	pi, ok := e.GetProcessInstance(processID)
	if !ok {
		return fmt.Errorf("engine: no process instance %d", processID)
	}
	n, ok := pi.GetNode(taskID)
	if !ok {
		return fmt.Errorf("engine: process instance %d has no pending task %d", processID, taskID)
	}
	n.Complete(taskErr, variables)
	return nil
}

// CompleteTaskByName is CompleteTask, but looks the node up by task name
// rather than task id.
func (e *Engine) CompleteTaskByName(processID int, taskName string, taskErr error, variables map[string]interface{}) error {
	pi, ok := e.GetProcessInstance(processID)
	if !ok {
		return fmt.Errorf("engine: no process instance %d", processID)
	}
	n, ok := pi.GetNodeByName(taskName)
	if !ok {
		return fmt.Errorf("engine: process instance %d has no pending task %q", processID, taskName)
	}
	n.Complete(taskErr, variables)
	return nil
}

// QueryProcessInstances returns every live instance for which match
// returns true. Used by admin/debug tooling; match is applied over a
// point-in-time snapshot of the pool. It does not see instances ClearPool
// has evicted — use QueryProcessInstances for the live pool only, or
// QueryPersisted for a complete, store-backed query.
func (e *Engine) QueryProcessInstances(match func(*instance.ProcessInstance) bool) []*instance.ProcessInstance {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var out []*instance.ProcessInstance
	for _, pi := range e.instances {
		if match == nil || match(pi) {
			out = append(out, pi)
		}
	}
	return out
}

// QueryPersisted is a pass-through to the backing Collection's Find: it
// sees every instance ever persisted, including ones ClearPool has
// evicted from the live pool, at the cost of returning serialized
// documents rather than live ProcessInstance objects.
func (e *Engine) QueryPersisted(ctx context.Context, match func(map[string]interface{}) bool) ([]map[string]interface{}, error) {
	return e.coll.Find(ctx, match)
}

// ClearPool evicts every instance that is COMPLETED or WAITING from the
// live in-memory pool (they remain retrievable from the backing
// Collection). RUNNING and FAILED instances are retained — RUNNING
// because the engine is mid-propagation-step for it, FAILED so an
// operator can inspect it before deciding to evict or retry.
func (e *Engine) ClearPool() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	evicted := 0
	for id, pi := range e.instances {
		switch pi.Status() {
		case tasktype.StatusCompleted, tasktype.StatusWaiting:
			delete(e.instances, id)
			evicted++
		}
	}
	return evicted
}
