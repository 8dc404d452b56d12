package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/flowlint/internal/analyzer"
	"github.com/roach88/flowlint/internal/extract"
	"github.com/roach88/flowlint/internal/harness"
	"github.com/roach88/flowlint/internal/ir"
	"github.com/roach88/flowlint/internal/suggest"
)

// ValidateOptions holds flags for the validate and params commands.
type ValidateOptions struct {
	*RootOptions
	Suggest bool // attach ranked fix suggestions
}

// ValidationOutput is the JSON payload of validate and params.
type ValidationOutput struct {
	File        string          `json:"file"`
	Tool        string          `json:"tool"`
	RunID       string          `json:"run_id,omitempty"`
	Result      ir.Result       `json:"result"`
	Suggestions []ir.Suggestion `json:"suggestions,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <file|->",
		Short: "Run every rule over a workflow source file",
		Long: `Validate a workflow source file with the parameter, connection and
cycle rules. Use "-" to read the source from standard input.

Exit codes:
  0 - No error diagnostics (warnings and info may be present)
  1 - One or more error diagnostics
  2 - Command error (missing file, invalid UTF-8, bad config)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidation(opts, cmd, args[0], harness.ToolValidateWorkflow)
		},
	}
	cmd.Flags().BoolVar(&opts.Suggest, "suggest", false, "include a fix suggestion for every diagnostic")

	return cmd
}

// NewParamsCommand creates the params command.
func NewParamsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "params <file|->",
		Short: "Run only the parameter rules over a workflow source file",
		Long: `Check node parameter contracts only: node classes must declare and
type their parameters, and add_node calls must supply required ones.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidation(opts, cmd, args[0], harness.ToolValidateNodeParameters)
		},
	}
	cmd.Flags().BoolVar(&opts.Suggest, "suggest", false, "include a fix suggestion for every diagnostic")

	return cmd
}

func runValidation(opts *ValidateOptions, cmd *cobra.Command, path, tool string) error {
	f := opts.formatter(cmd)
	ctx := commandContext(cmd)

	source, err := readSource(cmd, path)
	if err != nil {
		return sourceError(f, path, err)
	}

	a, err := opts.newAnalyzer(f)
	if err != nil {
		return err
	}

	var res ir.Result
	if tool == harness.ToolValidateNodeParameters {
		res, err = a.ValidateNodeParameters(ctx, source)
	} else {
		res, err = a.ValidateWorkflow(ctx, source)
	}
	if err != nil {
		if errors.Is(err, extract.ErrInvalidInput) {
			return fail(f, ErrCodeInvalidInput, err)
		}
		return fail(f, ErrCodeGeneric, err)
	}

	out := ValidationOutput{File: path, Tool: tool, Result: res}
	if opts.Suggest {
		out.Suggestions = a.SuggestFixes(res.All())
	}

	runID, err := opts.record(ctx, tool, source, res)
	if err != nil {
		return fail(f, ErrCodeHistory, err)
	}
	out.RunID = runID

	if f.JSON() {
		if res.HasErrors {
			if err := f.Failure(ErrCodeValidation, summary(res), out); err != nil {
				return err
			}
		} else if err := f.Success(out); err != nil {
			return err
		}
	} else {
		writeValidationText(f.Writer, out)
	}

	if res.HasErrors {
		return NewExitError(ExitFailure, summary(res))
	}
	return nil
}

// record stores a run in the history database when one is configured
// and returns its id.
func (o *RootOptions) record(ctx context.Context, tool, source string, res ir.Result) (string, error) {
	st, err := o.openHistory()
	if err != nil || st == nil {
		return "", err
	}
	defer st.Close()

	rec, err := st.RecordRun(ctx, tool, source, res)
	if err != nil {
		return "", err
	}
	o.logger().Debug("run recorded",
		zap.String("run_id", rec.ID),
		zap.Int64("seq", rec.Seq),
		zap.String("source_hash", rec.SourceHash))
	return rec.ID, nil
}

func summary(res ir.Result) string {
	return fmt.Sprintf("%d error(s), %d warning(s)", len(res.Errors), len(res.Warnings))
}

// writeValidationText prints one line per diagnostic followed by a summary.
//
//	workflow.py:12: error PAR004: Node 'summarize' is missing required parameters: model
func writeValidationText(w io.Writer, out ValidationOutput) {
	var fixes map[int]ir.Suggestion
	if out.Suggestions != nil {
		fixes = make(map[int]ir.Suggestion, len(out.Suggestions))
		for i, s := range out.Suggestions {
			fixes[i] = s
		}
	}

	for i, d := range out.Result.All() {
		fmt.Fprintln(w, formatDiagnostic(out.File, d))
		if s, ok := fixes[i]; ok {
			fmt.Fprintf(w, "    fix: %s\n", s.Fix)
		}
	}

	if out.Result.HasErrors {
		fmt.Fprintf(w, "✗ %s: %s\n", out.File, summary(out.Result))
	} else {
		fmt.Fprintf(w, "✓ %s: %s\n", out.File, summary(out.Result))
	}
	if out.RunID != "" {
		fmt.Fprintf(w, "  recorded run %s\n", out.RunID)
	}
}

func formatDiagnostic(file string, d ir.Diagnostic) string {
	if d.Line > 0 {
		return fmt.Sprintf("%s:%d: %s %s: %s", file, d.Line, d.Severity, d.Code, d.Message)
	}
	return fmt.Sprintf("%s: %s %s: %s", file, d.Severity, d.Code, d.Message)
}

// suggestionsFor ranks the fixes for a result, most urgent first.
func suggestionsFor(a *analyzer.Analyzer, res ir.Result) []ir.Suggestion {
	return suggest.Rank(a.SuggestFixes(res.All()))
}
