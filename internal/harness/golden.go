package harness

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/flowlint/internal/ir"
)

// Snapshot is the message-free view of a result kept in golden files.
// Messages are free text and change with wording; codes, lines,
// severities and subjects are the stable contract.
type Snapshot struct {
	ScenarioName string
	Tool         string
	HasErrors    bool
	Diagnostics  []ir.Diagnostic
}

// toCanonicalMap converts a Snapshot to a map[string]any for canonical JSON serialization.
func (s *Snapshot) toCanonicalMap() map[string]any {
	diags := make([]any, len(s.Diagnostics))
	for i, d := range s.Diagnostics {
		entry := map[string]any{
			"code":     d.Code,
			"line":     d.Line,
			"severity": string(d.Severity),
		}
		if subject := d.Subject(); subject != "" {
			entry["subject"] = subject
		}
		diags[i] = entry
	}

	return map[string]any{
		"scenario_name": s.ScenarioName,
		"tool":          s.Tool,
		"has_errors":    s.HasErrors,
		"diagnostics":   diags,
	}
}

// MarshalSnapshot returns the canonical JSON stored in a golden file.
func MarshalSnapshot(name, tool string, res ir.Result) ([]byte, error) {
	snap := Snapshot{
		ScenarioName: name,
		Tool:         tool,
		HasErrors:    res.HasErrors,
		Diagnostics:  res.All(),
	}
	return ir.MarshalCanonical(snap.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, scenario.Tool, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against its golden file
// without re-running the scenario.
func AssertGolden(t *testing.T, name, tool string, result *Result) error {
	t.Helper()

	data, err := MarshalSnapshot(name, tool, result.Validation)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}
