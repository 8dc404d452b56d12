package harness

import (
	"fmt"

	"github.com/roach88/flowlint/internal/patterns"
	"github.com/roach88/flowlint/internal/rules"
)

// CorpusScenarios turns every python example of the pattern library into
// a scenario. Documentation examples may show broken code on purpose, so
// the only assertion is that no rule fails while analyzing them.
func CorpusScenarios(lib *patterns.Library) ([]*Scenario, error) {
	list, err := lib.ListAvailablePatterns()
	if err != nil {
		return nil, fmt.Errorf("corpus scenarios: %w", err)
	}

	var scenarios []*Scenario
	for _, p := range list {
		examples, err := lib.ExtractCodeExamples(p.Name)
		if err != nil {
			return nil, fmt.Errorf("corpus scenarios: %s: %w", p.Name, err)
		}
		n := 0
		for _, ex := range examples {
			if ex.Language != "python" {
				continue
			}
			n++
			scenarios = append(scenarios, &Scenario{
				Name:        fmt.Sprintf("%s/example_%d", p.Name, n),
				Description: fmt.Sprintf("python example %d of pattern %s", n, p.Name),
				Tool:        ToolValidateWorkflow,
				Source:      ex.Code,
				Assertions: []Assertion{
					{Type: AssertDiagnosticAbsent, Code: rules.CodeRuleFailure},
				},
			})
		}
	}
	return scenarios, nil
}
