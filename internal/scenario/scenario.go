package scenario

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario describes a reactive state, the watchers observing it, and a
// sequence of mutations applied to it.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario exercises.
	Description string `yaml:"description,omitempty"`

	// State is the initial root record.
	State map[string]any `yaml:"state"`

	// Watchers are created in order, before any step runs.
	Watchers []WatcherSpec `yaml:"watchers"`

	// Steps are applied in order. Deferred work is settled after the last one.
	Steps []Step `yaml:"steps"`

	// Expect is the expected trace. Empty means no check.
	Expect []string `yaml:"expect,omitempty"`
}

// WatcherSpec declares a path watcher.
type WatcherSpec struct {
	Name      string `yaml:"name"`
	Path      string `yaml:"path"`
	Deep      bool   `yaml:"deep,omitempty"`
	Sync      bool   `yaml:"sync,omitempty"`
	Immediate bool   `yaml:"immediate,omitempty"`
}

// Step is a single action. Exactly one field must be set.
type Step struct {
	Set    *Mutation `yaml:"set,omitempty"`
	Delete *Mutation `yaml:"delete,omitempty"`
	Push   *Mutation `yaml:"push,omitempty"`
	Pop    *Mutation `yaml:"pop,omitempty"`

	// Batch applies nested steps and flushes once they all ran.
	Batch []Step `yaml:"batch,omitempty"`

	// Tick drains the deferred work requested so far.
	Tick bool `yaml:"tick,omitempty"`

	// Flush runs the pending flush synchronously.
	Flush bool `yaml:"flush,omitempty"`
}

// Mutation targets a dot-delimited path below the root state.
type Mutation struct {
	Path   string `yaml:"path"`
	Value  any    `yaml:"value,omitempty"`
	Values []any  `yaml:"values,omitempty"`
}

// Load reads and parses a scenario YAML file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	return Parse(data)
}

// Parse decodes a scenario, rejecting unknown fields.
func Parse(data []byte) (*Scenario, error) {
	var s Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &s, nil
}

// Validate checks that required fields are present and every step has
// exactly one action.
func (s *Scenario) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	names := make(map[string]bool, len(s.Watchers))
	for i, w := range s.Watchers {
		if w.Name == "" {
			return fmt.Errorf("watchers[%d]: name is required", i)
		}
		if names[w.Name] {
			return fmt.Errorf("watchers[%d]: duplicate name %q", i, w.Name)
		}
		names[w.Name] = true
	}

	return validateSteps("steps", s.Steps)
}

func validateSteps(prefix string, steps []Step) error {
	for i, step := range steps {
		where := fmt.Sprintf("%s[%d]", prefix, i)

		n := 0
		for _, set := range []bool{
			step.Set != nil,
			step.Delete != nil,
			step.Push != nil,
			step.Pop != nil,
			step.Batch != nil,
			step.Tick,
			step.Flush,
		} {
			if set {
				n++
			}
		}
		if n != 1 {
			return fmt.Errorf("%s: expected exactly one action, got %d", where, n)
		}

		for _, m := range []*Mutation{step.Set, step.Delete, step.Push, step.Pop} {
			if m != nil && m.Path == "" {
				return fmt.Errorf("%s: path is required", where)
			}
		}

		if step.Batch != nil {
			if err := validateSteps(where+".batch", step.Batch); err != nil {
				return err
			}
		}
	}

	return nil
}
