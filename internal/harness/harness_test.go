package harness

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/flowlint/internal/analyzer"
	"github.com/roach88/flowlint/internal/rules"
)

func TestScenarios_Golden(t *testing.T) {
	scenarios, err := LoadScenarios("testdata/scenarios")
	require.NoError(t, err)
	require.NotEmpty(t, scenarios)

	for _, s := range scenarios {
		t.Run(s.Name, func(t *testing.T) {
			result, err := RunWithGolden(t, s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "scenario failed:\n%v", result.Errors)
		})
	}
}

func TestRun_FailingAssertionsReported(t *testing.T) {
	yes := true
	s := &Scenario{
		Name:        "expect_errors_on_clean",
		Description: "assertions that cannot hold",
		Tool:        ToolValidateWorkflow,
		Source:      `workflow.add_node("JSONReaderNode", "r", {"file_path": "a.json"})`,
		Assertions: []Assertion{
			{Type: AssertHasErrors, Value: &yes},
			{Type: AssertDiagnosticContains, Code: "PAR004"},
		},
	}

	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "has_errors = true")
	assert.Contains(t, result.Errors[1], "(none)")
}

func TestRun_DisabledRulesFromOptions(t *testing.T) {
	s := &Scenario{
		Name:        "disabled",
		Description: "CON002 disabled",
		Tool:        ToolValidateWorkflow,
		Source: `workflow.add_node("JSONReaderNode", "a", {"file_path": "a.json"})
workflow.add_node("JSONReaderNode", "b", {"file_path": "b.json"})
workflow.add_connection("a", "b")
`,
		Options: &Options{DisabledRules: []string{"CON002"}},
		Assertions: []Assertion{
			{Type: AssertDiagnosticAbsent, Code: "CON002"},
		},
	}

	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "%v", result.Errors)
	assert.False(t, result.Validation.HasErrors)
}

func TestRun_AnalyzerOptionsOverrideScenario(t *testing.T) {
	s := &Scenario{
		Name:        "override",
		Description: "caller rule options win",
		Tool:        ToolValidateWorkflow,
		Source: `workflow.add_node("JSONReaderNode", "a", {"file_path": "a.json"})
workflow.add_node("JSONReaderNode", "b", {"file_path": "b.json"})
workflow.add_connection("a", "b")
`,
		Options: &Options{DisabledRules: []string{"CON002"}},
		Assertions: []Assertion{
			{Type: AssertDiagnosticCount, Code: "CON002", Count: 1},
		},
	}

	result, err := Run(context.Background(), s, analyzer.WithRuleOptions(rules.DefaultOptions()))
	require.NoError(t, err)
	assert.True(t, result.Pass, "%v", result.Errors)
}

func TestRun_InvalidUTF8(t *testing.T) {
	s := &Scenario{
		Name:        "bad_utf8",
		Description: "invalid input",
		Tool:        ToolValidateWorkflow,
		Source:      "x = \"\xff\"",
		Assertions:  []Assertion{{Type: AssertDiagnosticAbsent, Code: "TOOL001"}},
	}

	_, err := Run(context.Background(), s)
	assert.Error(t, err)
}

func TestRuleOptions(t *testing.T) {
	assert.Equal(t, rules.DefaultOptions(), ruleOptions(nil))

	got := ruleOptions(&Options{MaxIterationsHighWater: 50, DisabledRules: []string{"CYC006"}})
	assert.Equal(t, 50, got.MaxIterationsHighWater)
	assert.Equal(t, []string{"CYC006"}, got.Disabled)

	got = ruleOptions(&Options{})
	assert.Equal(t, rules.DefaultMaxIterationsHighWater, got.MaxIterationsHighWater)
}
