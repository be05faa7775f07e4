package definition

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Rep is the wire representation of a Definition. The core only ever
// consumes the frozen *Definition produced by Materialize; Rep exists so
// a definition can be authored as data (YAML or JSON) instead of through
// the Builder API directly.
type Rep struct {
	Name  string     `yaml:"name" json:"name"`
	Tasks []TaskRep  `yaml:"tasks" json:"tasks"`
	Flows []FlowRep  `yaml:"flows" json:"flows"`
}

// TaskRep is the wire representation of a Task. Tasks are materialized in
// slice order, so Tasks[0] becomes task id 0 (the start task).
type TaskRep struct {
	Name string `yaml:"name" json:"name"`
	Type string `yaml:"type" json:"type"`

	// Settings carries type-specific configuration, e.g. the
	// definitionName a call-activity task runs as a sub-process.
	Settings map[string]interface{} `yaml:"settings,omitempty" json:"settings,omitempty"`
}

// FlowRep is the wire representation of a Flow. From/To are task names,
// resolved against the Rep's Tasks list during materialization.
type FlowRep struct {
	From string `yaml:"from" json:"from"`
	To   string `yaml:"to" json:"to"`

	// Guard, if set, names a condition to look up in a CondResolver passed
	// to Materialize. Left empty, the flow is unconditional.
	Guard string `yaml:"guard,omitempty" json:"guard,omitempty"`
}

// CondResolver resolves a Guard name from a FlowRep into a live
// Condition. The core treats the expression dialect as opaque; this is
// the seam a concrete expression-language collaborator plugs into.
type CondResolver func(guard string) (Condition, error)

// ParseRepYAML decodes a Rep from YAML (or JSON, a subset of YAML) bytes.
func ParseRepYAML(data []byte) (*Rep, error) {
	var rep Rep
	if err := yaml.Unmarshal(data, &rep); err != nil {
		return nil, fmt.Errorf("definition: decode: %w", err)
	}
	return &rep, nil
}

// LoadRepFile loads and decodes a Rep from a YAML file on disk.
func LoadRepFile(path string) (*Rep, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("definition: read %s: %w", path, err)
	}
	rep, err := ParseRepYAML(content)
	if err != nil {
		return nil, fmt.Errorf("definition: %s: %w", path, err)
	}
	return rep, nil
}

// Materialize builds a frozen Definition from a Rep, resolving any guarded
// flows through resolver (which may be nil if the Rep has no guards).
func Materialize(rep *Rep, resolver CondResolver) (*Definition, error) {
	b := NewBuilder(rep.Name)

	for _, t := range rep.Tasks {
		b.AddTaskWithSettings(t.Name, t.Type, t.Settings)
	}

	for _, f := range rep.Flows {
		fromID, ok := b.TaskID(f.From)
		if !ok {
			return nil, fmt.Errorf("definition: flow references unknown task %q", f.From)
		}
		toID, ok := b.TaskID(f.To)
		if !ok {
			return nil, fmt.Errorf("definition: flow references unknown task %q", f.To)
		}

		var cond Condition
		if f.Guard != "" {
			if resolver == nil {
				return nil, fmt.Errorf("definition: flow %s->%s has guard %q but no condition resolver was supplied", f.From, f.To, f.Guard)
			}
			var err error
			cond, err = resolver(f.Guard)
			if err != nil {
				return nil, fmt.Errorf("definition: resolving guard %q: %w", f.Guard, err)
			}
		}

		if err := b.AddConditionalFlow(fromID, toID, cond); err != nil {
			return nil, err
		}
	}

	return b.Build()
}
