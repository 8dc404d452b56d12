package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/flowlint/internal/analyzer"
	"github.com/roach88/flowlint/internal/patterns"
	"github.com/roach88/flowlint/internal/rules"
)

// NewCodesCommand creates the codes command.
func NewCodesCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "codes",
		Short:         "List every diagnostic code",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			taxonomy := rules.Taxonomy()
			if f.JSON() {
				return f.Success(taxonomy)
			}
			for _, info := range taxonomy {
				fmt.Fprintf(f.Writer, "%-8s %-10s %-8s %s\n", info.Code, info.Category, info.Severity, info.Title)
			}
			return nil
		},
	}
	return cmd
}

// CheckOptions holds flags for the check command.
type CheckOptions struct {
	*RootOptions
	Type string // pattern URI kind
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "check <code>",
		Short: "Explain a diagnostic code and list the patterns that cover it",
		Long: `Look a diagnostic code up in the taxonomy and the pattern corpus.
--type selects the pattern URI kind used for the lookup (error, node,
search or workflow).

Examples:
  flowlint check CYC002
  flowlint check CycleNode --type node`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(opts, cmd, args[0])
		},
	}
	cmd.Flags().StringVar(&opts.Type, "type", string(patterns.URIError), "pattern URI kind (error|node|search|workflow)")

	return cmd
}

func runCheck(opts *CheckOptions, cmd *cobra.Command, code string) error {
	f := opts.formatter(cmd)
	a, err := opts.newAnalyzer(f)
	if err != nil {
		return err
	}

	report, err := a.CheckErrorPattern(code, opts.Type)
	if err != nil {
		return patternError(f, err)
	}

	if f.JSON() {
		return f.Success(report)
	}
	writeReportText(f, report)
	return nil
}

func writeReportText(f *OutputFormatter, r analyzer.ErrorPatternReport) {
	w := f.Writer
	if r.Known {
		fmt.Fprintf(w, "%s [%s, %s] %s\n", r.Code, r.Category, r.Severity, r.Title)
		fmt.Fprintf(w, "  fix: %s\n", r.Fix)
		fmt.Fprintf(w, "  %s\n", r.Explanation)
	} else {
		fmt.Fprintf(w, "%s is not a known diagnostic code\n", r.Code)
	}
	fmt.Fprintf(w, "%s\n", r.URI)
	if len(r.Patterns) == 0 {
		fmt.Fprintln(w, "  no matching patterns")
	}
	for _, p := range r.Patterns {
		fmt.Fprintf(w, "  - %s (%s)\n", p.Name, p.Category)
	}
	if f.Verbose && r.Content != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, r.Content)
	}
}

// patternError maps pattern library errors to command errors.
func patternError(f *OutputFormatter, err error) error {
	switch {
	case errors.Is(err, patterns.ErrInvalidURI):
		return fail(f, ErrCodeInvalidURI, err)
	case errors.Is(err, patterns.ErrNotFound):
		return fail(f, ErrCodeNotFound, err)
	}
	return fail(f, ErrCodePatterns, err)
}
