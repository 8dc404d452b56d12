package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/flowlint/internal/store"
)

// RunDetail is a recorded run with its diagnostics.
type RunDetail struct {
	Run         store.Run             `json:"run"`
	Diagnostics []store.RunDiagnostic `json:"diagnostics"`
}

// RunDiff lists the findings that changed between two runs.
type RunDiff struct {
	From     string                `json:"from"`
	To       string                `json:"to"`
	Added    []store.RunDiagnostic `json:"added"`
	Resolved []store.RunDiagnostic `json:"resolved"`
}

// NewHistoryCommand creates the history command group.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect validation runs recorded in the history database",
		Long: `Inspect the validation runs recorded when --history-db (or history_db
in the config file) is set. Runs are numbered by a sequence that only
grows; ids are stable across machines.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	var limit int
	list := historyCommand(rootOpts, "list", "List recorded runs, newest first", cobra.NoArgs,
		func(st *store.Store, cmd *cobra.Command, f *OutputFormatter, args []string) error {
			runs, err := st.ListRuns(commandContext(cmd), limit)
			if err != nil {
				return fail(f, ErrCodeHistory, err)
			}
			if f.JSON() {
				return f.Success(runs)
			}
			if len(runs) == 0 {
				fmt.Fprintln(f.Writer, "No runs recorded.")
			}
			for _, r := range runs {
				writeRunLine(f, r)
			}
			return nil
		})
	list.Flags().IntVar(&limit, "limit", 20, "maximum number of runs (0 for all)")

	show := historyCommand(rootOpts, "show <run-id>", "Print a run and its diagnostics", cobra.ExactArgs(1),
		func(st *store.Store, cmd *cobra.Command, f *OutputFormatter, args []string) error {
			ctx := commandContext(cmd)
			r, err := st.GetRun(ctx, args[0])
			if err != nil {
				return historyError(f, err)
			}
			return writeRunDetail(st, cmd, f, r)
		})

	latest := historyCommand(rootOpts, "latest <file|->", "Print the latest run recorded for a source file", cobra.ExactArgs(1),
		func(st *store.Store, cmd *cobra.Command, f *OutputFormatter, args []string) error {
			source, err := readSource(cmd, args[0])
			if err != nil {
				return sourceError(f, args[0], err)
			}
			r, err := st.LatestRunForSource(commandContext(cmd), source)
			if err != nil {
				return historyError(f, err)
			}
			return writeRunDetail(st, cmd, f, r)
		})

	diff := historyCommand(rootOpts, "diff <from-run> <to-run>", "Show findings added and resolved between two runs", cobra.ExactArgs(2),
		func(st *store.Store, cmd *cobra.Command, f *OutputFormatter, args []string) error {
			added, resolved, err := st.DiffRuns(commandContext(cmd), args[0], args[1])
			if err != nil {
				return historyError(f, err)
			}
			d := RunDiff{From: args[0], To: args[1], Added: added, Resolved: resolved}
			if f.JSON() {
				return f.Success(d)
			}
			for _, rd := range added {
				fmt.Fprintf(f.Writer, "+ %s\n", rd.Diagnostic.Error())
			}
			for _, rd := range resolved {
				fmt.Fprintf(f.Writer, "- %s\n", rd.Diagnostic.Error())
			}
			fmt.Fprintf(f.Writer, "%d added, %d resolved\n", len(added), len(resolved))
			return nil
		})

	codes := historyCommand(rootOpts, "codes", "Count recorded diagnostics by code", cobra.NoArgs,
		func(st *store.Store, cmd *cobra.Command, f *OutputFormatter, args []string) error {
			counts, err := st.CodeCounts(commandContext(cmd))
			if err != nil {
				return fail(f, ErrCodeHistory, err)
			}
			if f.JSON() {
				return f.Success(counts)
			}
			for _, c := range counts {
				fmt.Fprintf(f.Writer, "%-8s %d\n", c.Code, c.Count)
			}
			return nil
		})

	cmd.AddCommand(list, show, latest, diff, codes)
	return cmd
}

type historyRunFunc func(st *store.Store, cmd *cobra.Command, f *OutputFormatter, args []string) error

// historyCommand builds a subcommand that runs fn against the configured
// history database.
func historyCommand(rootOpts *RootOptions, use, short string, args cobra.PositionalArgs, fn historyRunFunc) *cobra.Command {
	return &cobra.Command{
		Use:           use,
		Short:         short,
		Args:          args,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			st, err := rootOpts.openHistory()
			if err != nil {
				return fail(f, ErrCodeHistory, err)
			}
			if st == nil {
				return fail(f, ErrCodeHistory, errors.New("no history database configured (set --history-db or history_db)"))
			}
			defer st.Close()
			return fn(st, cmd, f, args)
		},
	}
}

func historyError(f *OutputFormatter, err error) error {
	if errors.Is(err, store.ErrRunNotFound) {
		return fail(f, ErrCodeNotFound, err)
	}
	return fail(f, ErrCodeHistory, err)
}

func writeRunDetail(st *store.Store, cmd *cobra.Command, f *OutputFormatter, r store.Run) error {
	diags, err := st.ReadRunDiagnostics(commandContext(cmd), r.ID)
	if err != nil {
		return fail(f, ErrCodeHistory, err)
	}
	if f.JSON() {
		return f.Success(RunDetail{Run: r, Diagnostics: diags})
	}
	writeRunLine(f, r)
	for _, rd := range diags {
		fmt.Fprintf(f.Writer, "  %s\n", rd.Diagnostic.Error())
	}
	return nil
}

func writeRunLine(f *OutputFormatter, r store.Run) {
	mark := "✓"
	if r.HasErrors {
		mark = "✗"
	}
	fmt.Fprintf(f.Writer, "%s #%d %s %s %d error(s), %d warning(s) [%.12s]\n",
		mark, r.Seq, r.ID, r.Tool, r.ErrorCount, r.WarningCount, r.SourceHash)
}
