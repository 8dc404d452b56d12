package harness

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/roach88/flowlint/internal/ir"
)

// Tool names a scenario can run.
const (
	ToolValidateWorkflow       = "validate_workflow"
	ToolValidateNodeParameters = "validate_node_parameters"
)

// Scenario is one conformance case: a source text, the tool to run over
// it, and assertions on the result.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Tool is validate_workflow (default) or validate_node_parameters.
	Tool string `yaml:"tool,omitempty"`

	// Source is the analyzed text. Exactly one of Source and SourceFile is set.
	Source string `yaml:"source,omitempty"`

	// SourceFile is a path to the analyzed text, relative to the scenario file.
	SourceFile string `yaml:"source_file,omitempty"`

	// Options adjusts rule evaluation.
	Options *Options `yaml:"options,omitempty"`

	// Assertions validate the result.
	Assertions []Assertion `yaml:"assertions"`
}

// Options mirrors the rule options a configuration file can set.
type Options struct {
	MaxIterationsHighWater int      `yaml:"max_iterations_high_water,omitempty"`
	DisabledRules          []string `yaml:"disabled_rules,omitempty"`
}

// Assertion validates one aspect of the result.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Code is the diagnostic code (diagnostic_contains, _absent, _count).
	Code string `yaml:"code,omitempty"`

	// Node, Parameter and Cycle narrow diagnostic_contains.
	Node      string `yaml:"node,omitempty"`
	Parameter string `yaml:"parameter,omitempty"`
	Cycle     string `yaml:"cycle,omitempty"`

	// Line narrows diagnostic_contains when non-zero.
	Line int `yaml:"line,omitempty"`

	// Value is the expected has_errors flag.
	Value *bool `yaml:"value,omitempty"`

	// Count is the expected number of occurrences (diagnostic_count).
	Count int `yaml:"count,omitempty"`

	// Codes is the expected relative order (diagnostic_order).
	Codes []string `yaml:"codes,omitempty"`
}

// Assertion type constants.
const (
	AssertHasErrors          = "has_errors"
	AssertDiagnosticContains = "diagnostic_contains"
	AssertDiagnosticAbsent   = "diagnostic_absent"
	AssertDiagnosticCount    = "diagnostic_count"
	AssertDiagnosticOrder    = "diagnostic_order"
)

// LoadScenario reads the scenario at path. A relative source_file is
// resolved against the scenario's directory and inlined into Source.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	s, err := ParseScenario(data)
	if err != nil || s.SourceFile == "" {
		return s, err
	}

	src := s.SourceFile
	if !filepath.IsAbs(src) {
		src = filepath.Join(filepath.Dir(path), src)
	}
	text, err := os.ReadFile(src)
	if err != nil {
		return nil, fmt.Errorf("invalid scenario: source file: %w", err)
	}
	s.Source = string(text)
	return s, nil
}

// ParseScenario decodes scenario YAML. Unknown fields are errors.
func ParseScenario(data []byte) (*Scenario, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	s := &Scenario{Tool: ToolValidateWorkflow}
	if err := dec.Decode(s); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if s.Tool == "" {
		s.Tool = ToolValidateWorkflow
	}
	if err := s.check(); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return s, nil
}

// LoadScenarios loads every *.yaml file in dir, sorted by file name.
// Scenario names must be unique since they name golden files.
func LoadScenarios(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("list scenarios: %w", err)
	}
	sort.Strings(paths)

	owner := make(map[string]string, len(paths))
	out := make([]*Scenario, 0, len(paths))
	for _, p := range paths {
		base := filepath.Base(p)
		s, err := LoadScenario(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", base, err)
		}
		if prev, ok := owner[s.Name]; ok {
			return nil, fmt.Errorf("%s: scenario name %q already used by %s", base, s.Name, prev)
		}
		owner[s.Name] = base
		out = append(out, s)
	}
	return out, nil
}

func (s *Scenario) check() error {
	switch {
	case s.Name == "":
		return errors.New("name is required")
	case s.Description == "":
		return errors.New("description is required")
	case s.Tool != ToolValidateWorkflow && s.Tool != ToolValidateNodeParameters:
		return fmt.Errorf("unknown tool %q", s.Tool)
	case s.Source != "" && s.SourceFile != "":
		return errors.New("source and source_file are mutually exclusive")
	case s.Source == "" && s.SourceFile == "":
		return errors.New("source or source_file is required")
	}

	if o := s.Options; o != nil {
		if o.MaxIterationsHighWater < 0 {
			return errors.New("options.max_iterations_high_water must be non-negative")
		}
		for _, code := range o.DisabledRules {
			if !ir.ValidCode(code) {
				return fmt.Errorf("options.disabled_rules: invalid code %q", code)
			}
		}
	}

	if len(s.Assertions) == 0 {
		return errors.New("assertions list is required and must be non-empty")
	}
	for i := range s.Assertions {
		if err := s.Assertions[i].check(); err != nil {
			return fmt.Errorf("assertions[%d]: %w", i, err)
		}
	}
	return nil
}

func (a *Assertion) check() error {
	switch a.Type {
	case "":
		return errors.New("type is required")
	case AssertHasErrors:
		if a.Value == nil {
			return errors.New("value is required for has_errors")
		}
	case AssertDiagnosticContains, AssertDiagnosticAbsent, AssertDiagnosticCount:
		if !ir.ValidCode(a.Code) {
			return fmt.Errorf("valid code is required for %s", a.Type)
		}
		if a.Count < 0 {
			return fmt.Errorf("count must be non-negative for %s", a.Type)
		}
	case AssertDiagnosticOrder:
		if len(a.Codes) < 2 {
			return errors.New("at least two codes are required for diagnostic_order")
		}
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}
