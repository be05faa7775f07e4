package definition

import "fmt"

// Builder assembles a Definition programmatically: callers add tasks and
// flows, then call Build to freeze the graph. The Builder itself performs
// no cycle detection beyond what Build checks; it is a thin convenience
// for constructing the frozen graph this package hands to the engine.
type Builder struct {
	name  string
	tasks []*Task
	flows []*Flow

	byName map[string]int
}

// NewBuilder starts a new Definition builder.
func NewBuilder(name string) *Builder {
	return &Builder{name: name, byName: make(map[string]int)}
}

// AddTask appends a task to the graph and returns its assigned id. The
// first task added to a Builder is, by convention, task 0 — the start
// task.
func (b *Builder) AddTask(name, taskType string) int {
	return b.AddTaskWithSettings(name, taskType, nil)
}

// AddTaskWithSettings is AddTask for task types that need configuration
// beyond their name and type tag — e.g. a call-activity task's target
// sub-process definition name.
func (b *Builder) AddTaskWithSettings(name, taskType string, settings map[string]interface{}) int {
	id := len(b.tasks)
	b.tasks = append(b.tasks, &Task{id: id, name: name, typ: taskType, settings: settings})
	b.byName[name] = id
	return id
}

// AddFlow adds an unconditional flow from one task id to another.
func (b *Builder) AddFlow(fromID, toID int) error {
	return b.AddConditionalFlow(fromID, toID, nil)
}

// AddConditionalFlow adds a flow guarded by cond (nil for unconditional
// flows) from one task id to another.
func (b *Builder) AddConditionalFlow(fromID, toID int, cond Condition) error {
	if fromID < 0 || fromID >= len(b.tasks) {
		return fmt.Errorf("definition: unknown from-task id %d", fromID)
	}
	if toID < 0 || toID >= len(b.tasks) {
		return fmt.Errorf("definition: unknown to-task id %d", toID)
	}

	flow := &Flow{from: b.tasks[fromID], to: b.tasks[toID], condition: cond}
	b.flows = append(b.flows, flow)
	b.tasks[fromID].outgoing = append(b.tasks[fromID].outgoing, flow)
	b.tasks[toID].incoming = append(b.tasks[toID].incoming, flow)
	return nil
}

// TaskID looks up the id assigned to a task added by name.
func (b *Builder) TaskID(name string) (int, bool) {
	id, ok := b.byName[name]
	return id, ok
}

// Build freezes the graph into a Definition. It rejects empty graphs and
// graphs containing a cycle — the core handles DAGs only; cycle
// rejection happens here, at build time, rather than at execution time
// where the engine's nodePool-deletion behavior would make a revisited
// task simply start fresh.
func (b *Builder) Build() (*Definition, error) {
	if len(b.tasks) == 0 {
		return nil, fmt.Errorf("definition: cannot build a definition with no tasks")
	}

	if cyclic, path := hasCycle(b.tasks); cyclic {
		return nil, fmt.Errorf("definition: cycle detected in task graph: %v", path)
	}

	def := &Definition{name: b.name, tasks: b.tasks, flows: b.flows}
	for _, t := range def.tasks {
		t.definition = def
	}
	for _, f := range def.flows {
		f.definition = def
	}
	return def, nil
}

func hasCycle(tasks []*Task) (bool, []int) {
	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make([]int, len(tasks))
	var stack []int

	var visit func(id int) (bool, []int)
	visit = func(id int) (bool, []int) {
		state[id] = visiting
		stack = append(stack, id)

		for _, flow := range tasks[id].outgoing {
			to := flow.to.id
			switch state[to] {
			case visiting:
				return true, append(stack, to)
			case unvisited:
				if cyclic, path := visit(to); cyclic {
					return true, path
				}
			}
		}

		stack = stack[:len(stack)-1]
		state[id] = done
		return false, nil
	}

	for _, t := range tasks {
		if state[t.id] == unvisited {
			if cyclic, path := visit(t.id); cyclic {
				return true, path
			}
		}
	}
	return false, nil
}
