// Package instance implements ProcessInstance, the stateful execution of
// one Definition: it owns the live node pool, the variables map tasks
// read and write, and the status lifecycle, and it is the concrete type
// that satisfies tasktype.Host so the node package never has to know
// instance exists.
package instance

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/project-flogo/core/support/log"

	"github.com/sethdford/process-engine/definition"
	"github.com/sethdford/process-engine/internal/util"
	"github.com/sethdford/process-engine/node"
	"github.com/sethdford/process-engine/store"
	"github.com/sethdford/process-engine/tasktype"
)

// Status re-exports tasktype.Status so callers of this package don't
// need to import tasktype directly for the common case.
type Status = tasktype.Status

const (
	StatusNew       = tasktype.StatusNew
	StatusRunning   = tasktype.StatusRunning
	StatusWaiting   = tasktype.StatusWaiting
	StatusCompleted = tasktype.StatusCompleted
	StatusFailed    = tasktype.StatusFailed
)

// StallPolicy governs what happens when a node completes with outgoing
// flows but follows none of them — typically a decision whose guards all
// evaluated false. There is no single right answer (an inclusive gateway
// with no match might be a modeling bug, or might be an intentional dead
// end), so the policy is configurable per instance.
type StallPolicy int

const (
	// StallIgnore silently drops the token. The instance may finish in
	// WAITING or RUNNING with no path to an end-task; nothing is added to
	// StalledTasks.
	StallIgnore StallPolicy = iota
	// StallRecord drops the token but remembers the task name in
	// StalledTasks, visible through Serialize.
	StallRecord
	// StallFail transitions the instance to FAILED.
	StallFail
)

// ErrStalled is the error SetStatus(StatusFailed, ...) receives when
// StallPolicy is StallFail.
type ErrStalled struct {
	Task string
}

func (e *ErrStalled) Error() string {
	return fmt.Sprintf("instance: task %q completed with no matching outgoing flow", e.Task)
}

// SubProcessStarter is the hook a call-activity node uses to run another
// Definition as part of this instance. ProcessInstance never imports
// package engine — the owning Engine installs a starter on every instance
// it creates, closing over itself to resolve definition names and track
// the child instance.
type SubProcessStarter func(definitionName string, variables map[string]interface{}, onComplete func(variables map[string]interface{}, err error)) (childID int, err error)

// ProcessInstance is one running (or finished) execution of a
// Definition. It is safe for concurrent use; every exported method
// takes the instance's lock for the duration of its own bookkeeping, and
// releases it before calling into a Node (Node itself may call back
// into the instance through the Host interface).
type ProcessInstance struct {
	id  int
	def *definition.Definition

	registry *tasktype.Registry
	coll     store.Collection
	logger   log.Logger
	ctx      context.Context

	stallPolicy StallPolicy

	mu           sync.Mutex
	status       tasktype.Status
	procErr      error
	variables    map[string]interface{}
	pool         map[int]tasktype.Node
	stalledTasks []string
	listeners    []Listener
	persisted    bool

	subProcessStarter SubProcessStarter
}

// New creates a ProcessInstance for def, scoped to id (assigned by the
// owning Engine). coll may be nil, in which case Persist is a no-op —
// useful for tests that don't care about durability.
func New(id int, def *definition.Definition, registry *tasktype.Registry, coll store.Collection) *ProcessInstance {
	return &ProcessInstance{
		id:        id,
		def:       def,
		registry:  registry,
		coll:      coll,
		logger:    log.ChildLogger(log.RootLogger(), "instance"),
		ctx:       context.Background(),
		variables: make(map[string]interface{}),
		pool:      make(map[int]tasktype.Node),
		status:    tasktype.StatusNew,
	}
}

// ID returns the instance's engine-scoped id.
func (pi *ProcessInstance) ID() int { return pi.id }

// Definition returns the Definition this instance executes.
func (pi *ProcessInstance) Definition() *definition.Definition { return pi.def }

// SetStallPolicy configures how OnNoFlowsFollowed behaves. Must be
// called before Start.
func (pi *ProcessInstance) SetStallPolicy(p StallPolicy) { pi.stallPolicy = p }

// SetSubProcessStarter installs the hook call-activity nodes use to run
// another Definition. Must be called before Start.
func (pi *ProcessInstance) SetSubProcessStarter(s SubProcessStarter) { pi.subProcessStarter = s }

// PersistenceKey is the key this instance is (or will be) stored under
// in its backing Collection.
func (pi *ProcessInstance) PersistenceKey() string {
	return strconv.Itoa(pi.id)
}

// Start transitions the instance from NEW to RUNNING, seeds its
// variables from the caller-supplied map, and executes the start task.
// It returns an error if the instance has already been started.
func (pi *ProcessInstance) Start(variables map[string]interface{}) error {
	pi.mu.Lock()
	if pi.status != tasktype.StatusNew {
		pi.mu.Unlock()
		return fmt.Errorf("instance: cannot start instance %d in status %s", pi.id, pi.status)
	}
	pi.variables = util.DeepCopyMap(variables)
	if pi.variables == nil {
		pi.variables = make(map[string]interface{})
	}
	pi.status = tasktype.StatusRunning
	pi.mu.Unlock()

	if err := pi.Persist(); err != nil {
		pi.Logf("start: initial persist failed: %v", err)
	}

	start := pi.def.StartTask()
	startNode := pi.CreateNode(start)
	pi.PutNode(startNode)
	startNode.Execute()
	return nil
}

// GetNodeByName looks up a live node in the pool by its task name,
// rather than its task id — the form an external caller (an HTTP
// handler completing a service task, say) usually has on hand.
func (pi *ProcessInstance) GetNodeByName(taskName string) (tasktype.Node, bool) {
	pi.mu.Lock()
	defer pi.mu.Unlock()
	for _, n := range pi.pool {
		if n.Task().Name() == taskName {
			return n, true
		}
	}
	return nil, false
}

// StalledTasks lists the names of tasks that completed with outgoing
// flows but followed none of them, under StallRecord. StallIgnore and
// StallFail add nothing to it.
func (pi *ProcessInstance) StalledTasks() []string {
	pi.mu.Lock()
	defer pi.mu.Unlock()
	out := make([]string, len(pi.stalledTasks))
	copy(out, pi.stalledTasks)
	return out
}

// Error returns the error that moved this instance to FAILED, if any.
func (pi *ProcessInstance) Error() error {
	pi.mu.Lock()
	defer pi.mu.Unlock()
	return pi.procErr
}

// --- tasktype.Host ---

func (pi *ProcessInstance) Variables() map[string]interface{} {
	pi.mu.Lock()
	defer pi.mu.Unlock()
	return util.DeepCopyMap(pi.variables)
}

func (pi *ProcessInstance) ReplaceVariables(variables map[string]interface{}) {
	pi.mu.Lock()
	pi.variables = util.DeepCopyMap(variables)
	pi.mu.Unlock()
}

func (pi *ProcessInstance) Status() tasktype.Status {
	pi.mu.Lock()
	defer pi.mu.Unlock()
	return pi.status
}

func (pi *ProcessInstance) SetStatus(status tasktype.Status, err error) error {
	pi.mu.Lock()
	pi.status = status
	if err != nil {
		pi.procErr = err
	}
	pi.mu.Unlock()

	if pi.logger.DebugEnabled() {
		pi.logger.Debugf("instance %d: status -> %s", pi.id, status)
	}
	return pi.Persist()
}

// Persist writes the instance through to the backing Collection:
// Insert the first time (no persistenceId recorded yet), Update every
// time after — never inferred from which call happens to fail, so a
// transient Update failure against a live backend surfaces as itself
// rather than masquerading as a spurious "already exists" Insert error.
func (pi *ProcessInstance) Persist() error {
	if pi.coll == nil {
		return nil
	}
	doc := pi.Serialize()
	key := pi.PersistenceKey()

	pi.mu.Lock()
	firstWrite := !pi.persisted
	pi.mu.Unlock()

	var err error
	if firstWrite {
		err = pi.coll.Insert(pi.ctx, key, doc)
	} else {
		err = pi.coll.Update(pi.ctx, key, doc)
	}
	if err != nil {
		return fmt.Errorf("instance: persist %d: %w", pi.id, err)
	}

	pi.mu.Lock()
	pi.persisted = true
	pi.mu.Unlock()
	return nil
}

func (pi *ProcessInstance) GetNode(taskID int) (tasktype.Node, bool) {
	pi.mu.Lock()
	defer pi.mu.Unlock()
	n, ok := pi.pool[taskID]
	return n, ok
}

func (pi *ProcessInstance) PutNode(n tasktype.Node) {
	pi.mu.Lock()
	pi.pool[n.Task().ID()] = n
	pi.mu.Unlock()
}

func (pi *ProcessInstance) RemoveNode(taskID int) {
	pi.mu.Lock()
	delete(pi.pool, taskID)
	pi.mu.Unlock()
}

func (pi *ProcessInstance) CreateNode(task *definition.Task) tasktype.Node {
	if pi.registry != nil {
		if factory, ok := pi.registry.Lookup(task.Type()); ok {
			return factory(task, pi)
		}
	}
	return node.NewBaseTaskNode(task, pi)
}

func (pi *ProcessInstance) Logf(format string, args ...interface{}) {
	if pi.logger.DebugEnabled() {
		pi.logger.Debugf(format, args...)
	}
}

func (pi *ProcessInstance) StartSubProcess(definitionName string, variables map[string]interface{}, onComplete func(variables map[string]interface{}, err error)) (int, error) {
	pi.mu.Lock()
	starter := pi.subProcessStarter
	pi.mu.Unlock()
	if starter == nil {
		return 0, fmt.Errorf("instance: no sub-process starter configured")
	}
	return starter(definitionName, variables, onComplete)
}

func (pi *ProcessInstance) OnNoFlowsFollowed(task *definition.Task) {
	switch pi.stallPolicy {
	case StallRecord:
		pi.mu.Lock()
		pi.stalledTasks = append(pi.stalledTasks, task.Name())
		pi.mu.Unlock()
		pi.Logf("instance %d: task %q stalled (no matching outgoing flow)", pi.id, task.Name())
	case StallFail:
		_ = pi.SetStatus(tasktype.StatusFailed, &ErrStalled{Task: task.Name()})
		pi.EmitEnd()
	case StallIgnore:
		// nothing to record; the token is simply dropped.
	}
}
