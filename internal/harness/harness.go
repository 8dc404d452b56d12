package harness

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/roach88/flowlint/internal/analyzer"
	"github.com/roach88/flowlint/internal/ir"
	"github.com/roach88/flowlint/internal/rules"
	"github.com/roach88/flowlint/internal/store"
)

// Harness executes scenarios against one analyzer configuration.
type Harness struct {
	store   *store.Store
	options []analyzer.Option
	logger  *zap.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh in-memory history store.
// Execution flow:
//  1. Build an analyzer with the scenario's rule options, then opts
//  2. Validate the source twice with the scenario's tool
//  3. Record both runs and compare their fingerprints
//  4. Evaluate assertions against the first result
//
// An error is returned only when the scenario cannot be executed at all.
func Run(ctx context.Context, scenario *Scenario, opts ...analyzer.Option) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		store:   st,
		options: append([]analyzer.Option{analyzer.WithRuleOptions(ruleOptions(scenario.Options))}, opts...),
		logger:  zap.NewNop(),
	}
	return h.run(ctx, scenario)
}

func (h *Harness) run(ctx context.Context, scenario *Scenario) (*Result, error) {
	a := analyzer.New(h.options...)

	var runs [2]store.Run
	var first ir.Result
	for i := range runs {
		res, err := validate(ctx, a, scenario)
		if err != nil {
			return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
		}
		if i == 0 {
			first = res
		}
		runs[i], err = h.store.RecordRun(ctx, scenario.Tool, scenario.Source, res)
		if err != nil {
			return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
		}
	}

	result := NewResult()
	result.Validation = first

	added, resolved, err := h.store.DiffRuns(ctx, runs[0].ID, runs[1].ID)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}
	if len(added) > 0 || len(resolved) > 0 {
		result.AddError(fmt.Sprintf("nondeterministic result: %d findings appeared and %d disappeared on the second run",
			len(added), len(resolved)))
	}

	for _, msg := range EvaluateAssertions(first, scenario.Assertions) {
		result.AddError(msg)
	}

	h.logger.Debug("scenario complete",
		zap.String("scenario", scenario.Name),
		zap.String("tool", scenario.Tool),
		zap.Bool("pass", result.Pass),
		zap.Int("diagnostics", len(first.Errors)+len(first.Warnings)))
	return result, nil
}

func validate(ctx context.Context, a *analyzer.Analyzer, scenario *Scenario) (ir.Result, error) {
	switch scenario.Tool {
	case ToolValidateNodeParameters:
		return a.ValidateNodeParameters(ctx, scenario.Source)
	case ToolValidateWorkflow, "":
		return a.ValidateWorkflow(ctx, scenario.Source)
	}
	return ir.Result{}, fmt.Errorf("unknown tool %q", scenario.Tool)
}

func ruleOptions(o *Options) rules.Options {
	opts := rules.DefaultOptions()
	if o == nil {
		return opts
	}
	if o.MaxIterationsHighWater > 0 {
		opts.MaxIterationsHighWater = o.MaxIterationsHighWater
	}
	opts.Disabled = o.DisabledRules
	return opts
}
