package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/flowlint/internal/extract"
	"github.com/roach88/flowlint/internal/ir"
	"github.com/roach88/flowlint/internal/rules"
	"github.com/roach88/flowlint/internal/suggest"
)

// SuggestOptions holds flags for the suggest command.
type SuggestOptions struct {
	*RootOptions
	Codes []string // suggest for bare codes instead of a file
}

// NewSuggestCommand creates the suggest command.
func NewSuggestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SuggestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "suggest [file|-]",
		Short: "Print ranked fix suggestions for a workflow source file",
		Long: `Validate a workflow source file and print one fix suggestion per
diagnostic, most urgent first. With --code, print the suggestion for the
given diagnostic codes without reading any source.

Examples:
  flowlint suggest workflow.py
  flowlint suggest --code CYC001 --code PAR004`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSuggest(opts, cmd, args)
		},
	}
	cmd.Flags().StringSliceVar(&opts.Codes, "code", nil, "diagnostic code to explain (repeatable)")

	return cmd
}

func runSuggest(opts *SuggestOptions, cmd *cobra.Command, args []string) error {
	f := opts.formatter(cmd)

	if len(opts.Codes) > 0 {
		if len(args) > 0 {
			return fail(f, ErrCodeInvalidInput, errors.New("pass either a file or --code, not both"))
		}
		diags := make([]ir.Diagnostic, 0, len(opts.Codes))
		for _, code := range opts.Codes {
			code = strings.ToUpper(strings.TrimSpace(code))
			d := ir.Diagnostic{Code: code, Severity: ir.SeverityError}
			if info, ok := rules.LookupCode(code); ok {
				d.Severity = info.Severity
				d.Message = info.Title
			}
			diags = append(diags, d)
		}
		return writeSuggestions(f, suggest.Rank(suggest.GenerateFixes(diags)))
	}

	if len(args) == 0 {
		return fail(f, ErrCodeInvalidInput, errors.New("a source file or --code is required"))
	}
	path := args[0]
	source, err := readSource(cmd, path)
	if err != nil {
		return sourceError(f, path, err)
	}
	a, err := opts.newAnalyzer(f)
	if err != nil {
		return err
	}
	res, err := a.ValidateWorkflow(commandContext(cmd), source)
	if err != nil {
		if errors.Is(err, extract.ErrInvalidInput) {
			return fail(f, ErrCodeInvalidInput, err)
		}
		return fail(f, ErrCodeGeneric, err)
	}
	return writeSuggestions(f, suggestionsFor(a, res))
}

func writeSuggestions(f *OutputFormatter, suggestions []ir.Suggestion) error {
	if f.JSON() {
		return f.Success(suggestions)
	}
	if len(suggestions) == 0 {
		fmt.Fprintln(f.Writer, "✓ No suggestions")
		return nil
	}
	for i, s := range suggestions {
		if i > 0 {
			fmt.Fprintln(f.Writer)
		}
		writeSuggestionText(f.Writer, s)
	}
	return nil
}

func writeSuggestionText(w io.Writer, s ir.Suggestion) {
	fmt.Fprintf(w, "[%s] (priority %d) %s\n", s.ErrorCode, s.Priority, s.Fix)
	fmt.Fprintf(w, "  %s\n", s.Explanation)
	for _, line := range strings.Split(s.CodeExample, "\n") {
		fmt.Fprintf(w, "    %s\n", line)
	}
}
