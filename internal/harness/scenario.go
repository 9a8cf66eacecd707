package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/varscope/internal/ir"
	"github.com/roach88/varscope/internal/varfile"
)

// Scenario defines a conformance test scenario.
// Scenarios seed a store with variables, resolve a sequence of templates
// against it, and assert on the values and traces each resolve produced.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// MaxDepth overrides the resolver's nesting limit when positive.
	MaxDepth int `yaml:"max_depth,omitempty"`

	// NoCache runs the scenario without a resolution cache.
	NoCache bool `yaml:"no_cache,omitempty"`

	// Variables is the initial variable set, in variable file format.
	// Its profile_id and rule_id select the context every step resolves in.
	Variables varfile.Document `yaml:"variables"`

	// Steps run in order against the same store and resolver, so later
	// steps see the cache state earlier steps left behind.
	Steps []Step `yaml:"steps"`

	// Assertions validate the recorded traces after all steps ran.
	// Supported types: trace_contains, trace_order, trace_count, dependency
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step is one resolve call, optionally preceded by variable writes.
type Step struct {
	// Set writes variables before resolving. Empty profile_id and rule_id
	// default to the scenario's.
	Set *varfile.Document `yaml:"set,omitempty"`

	// Delete removes variables before resolving.
	Delete []VariableRef `yaml:"delete,omitempty"`

	// Template is the text to resolve.
	Template string `yaml:"template"`

	// ProfileID and RuleID override the scenario context for this step.
	ProfileID string `yaml:"profile_id,omitempty"`
	RuleID    string `yaml:"rule_id,omitempty"`

	// Expect validates the resolve result. Nil skips validation.
	Expect *Expect `yaml:"expect,omitempty"`
}

// VariableRef names one stored variable.
type VariableRef struct {
	Scope   ir.Scope `yaml:"scope"`
	OwnerID string   `yaml:"owner_id,omitempty"`
	Name    string   `yaml:"name"`
}

// Expect specifies the expected outcome of one resolve call.
// Nil and empty fields are not checked.
type Expect struct {
	Value      *string  `yaml:"value,omitempty"`
	Success    *bool    `yaml:"success,omitempty"`
	Resolved   []string `yaml:"resolved,omitempty"`
	Unresolved []string `yaml:"unresolved,omitempty"`
	ErrorCodes []string `yaml:"error_codes,omitempty"`
	CacheHits  *int     `yaml:"cache_hits,omitempty"`
}

// Assertion validates recorded trace steps.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_contains": a step of StepType (optional) named Name exists
	// - "trace_order": steps named Names appear in order
	// - "trace_count": exactly Count steps of StepType (and Name, if set)
	// - "dependency": the dependency edge From -> To was recorded
	Type string `yaml:"type"`

	// Step restricts the assertion to one step's trace (0-based).
	// Nil checks the traces of every step, concatenated.
	Step *int `yaml:"step,omitempty"`

	StepType ir.StepType `yaml:"step_type,omitempty"`
	Name     string      `yaml:"name,omitempty"`
	Names    []string    `yaml:"names,omitempty"`
	Count    int         `yaml:"count,omitempty"`
	From     string      `yaml:"from,omitempty"`
	To       string      `yaml:"to,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertDependency    = "dependency"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML with strict field validation.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // catches typos like "assertion:" vs "assertions:"
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.MaxDepth < 0 {
		return fmt.Errorf("max_depth must be non-negative")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if _, err := s.Variables.Set(s.Name); err != nil {
		return fmt.Errorf("variables: %w", err)
	}

	for i, step := range s.Steps {
		if step.Template == "" {
			return fmt.Errorf("steps[%d]: template is required", i)
		}
		if step.Set != nil {
			if _, err := step.Set.Set(s.Name); err != nil {
				return fmt.Errorf("steps[%d].set: %w", i, err)
			}
		}
		for j, ref := range step.Delete {
			if ref.Name == "" {
				return fmt.Errorf("steps[%d].delete[%d]: name is required", i, j)
			}
			if !ref.Scope.Valid() {
				return fmt.Errorf("steps[%d].delete[%d]: invalid scope %q", i, j, ref.Scope)
			}
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i], len(s.Steps)); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, steps int) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}
	if a.Step != nil && (*a.Step < 0 || *a.Step >= steps) {
		return fmt.Errorf("assertions[%d]: step %d out of range", index, *a.Step)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Name == "" {
			return fmt.Errorf("assertions[%d]: name is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Names) == 0 {
			return fmt.Errorf("assertions[%d]: names list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.StepType == "" {
			return fmt.Errorf("assertions[%d]: step_type is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertDependency:
		if a.From == "" || a.To == "" {
			return fmt.Errorf("assertions[%d]: from and to are required for dependency", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
