package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/flowlint/internal/patterns"
)

// NewPatternsCommand creates the patterns command group.
func NewPatternsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "patterns",
		Short: "Browse the workflow pattern corpus",
		Long: `Browse the documentation patterns that diagnostics point to. The
embedded corpus is used unless --patterns-dir or the config names one.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	list := patternCommand(rootOpts, "list", "List every pattern", cobra.NoArgs,
		func(lib *patterns.Library, f *OutputFormatter, args []string) error {
			ps, err := lib.ListAvailablePatterns()
			if err != nil {
				return patternError(f, err)
			}
			return writePatternList(f, ps)
		})

	show := patternCommand(rootOpts, "show <name>", "Print a pattern document", cobra.ExactArgs(1),
		func(lib *patterns.Library, f *OutputFormatter, args []string) error {
			content, err := lib.GetPatternContent(args[0])
			if err != nil {
				return patternError(f, err)
			}
			if f.JSON() {
				return f.Success(map[string]string{"name": args[0], "content": content})
			}
			fmt.Fprint(f.Writer, content)
			if !strings.HasSuffix(content, "\n") {
				fmt.Fprintln(f.Writer)
			}
			return nil
		})

	search := patternCommand(rootOpts, "search <keyword>", "Find patterns by keyword", cobra.ExactArgs(1),
		func(lib *patterns.Library, f *OutputFormatter, args []string) error {
			ps, err := lib.SearchPatterns(args[0])
			if err != nil {
				return patternError(f, err)
			}
			return writePatternList(f, ps)
		})

	node := patternCommand(rootOpts, "node <node-type>", "Find patterns that use a node type", cobra.ExactArgs(1),
		func(lib *patterns.Library, f *OutputFormatter, args []string) error {
			ps, err := lib.GetPatternsForNodeType(args[0])
			if err != nil {
				return patternError(f, err)
			}
			return writePatternList(f, ps)
		})

	errCmd := patternCommand(rootOpts, "error <code>", "Find patterns that document a diagnostic code", cobra.ExactArgs(1),
		func(lib *patterns.Library, f *OutputFormatter, args []string) error {
			ps, err := lib.GetPatternsForError(args[0])
			if err != nil {
				return patternError(f, err)
			}
			return writePatternList(f, ps)
		})

	meta := patternCommand(rootOpts, "meta <name>", "Print the metadata headings of a pattern", cobra.ExactArgs(1),
		func(lib *patterns.Library, f *OutputFormatter, args []string) error {
			m, err := lib.GetPatternMetadata(args[0])
			if err != nil {
				return patternError(f, err)
			}
			if f.JSON() {
				return f.Success(m)
			}
			fmt.Fprintf(f.Writer, "title:       %s\n", m.Title)
			fmt.Fprintf(f.Writer, "difficulty:  %s\n", m.Difficulty)
			fmt.Fprintf(f.Writer, "node types:  %s\n", strings.Join(m.NodeTypes, ", "))
			fmt.Fprintf(f.Writer, "error codes: %s\n", strings.Join(m.ErrorCodes, ", "))
			for _, u := range m.UseCases {
				fmt.Fprintf(f.Writer, "use case:    %s\n", u)
			}
			return nil
		})

	var limit int
	related := patternCommand(rootOpts, "related <name>", "Rank patterns similar to a pattern", cobra.ExactArgs(1),
		func(lib *patterns.Library, f *OutputFormatter, args []string) error {
			rel, err := lib.GetRelatedPatterns(args[0], limit)
			if err != nil {
				return patternError(f, err)
			}
			if f.JSON() {
				return f.Success(rel)
			}
			if len(rel) == 0 {
				fmt.Fprintln(f.Writer, "No related patterns.")
			}
			for _, r := range rel {
				fmt.Fprintf(f.Writer, "%.2f  %s (%s)\n", r.Score, r.Name, r.Category)
			}
			return nil
		})
	related.Flags().IntVar(&limit, "limit", patterns.DefaultRelatedLimit, "maximum number of related patterns")

	examples := patternCommand(rootOpts, "examples <name>", "Print the code blocks of a pattern", cobra.ExactArgs(1),
		func(lib *patterns.Library, f *OutputFormatter, args []string) error {
			ex, err := lib.ExtractCodeExamples(args[0])
			if err != nil {
				return patternError(f, err)
			}
			if f.JSON() {
				return f.Success(ex)
			}
			for i, e := range ex {
				if i > 0 {
					fmt.Fprintln(f.Writer)
				}
				fmt.Fprintf(f.Writer, "# [%d] %s\n%s\n", i+1, e.Language, e.Code)
			}
			return nil
		})

	uri := patternCommand(rootOpts, "uri <patterns://kind/value>", "Resolve a pattern resource URI", cobra.ExactArgs(1),
		func(lib *patterns.Library, f *OutputFormatter, args []string) error {
			res, err := lib.Resolve(args[0])
			if err != nil {
				return patternError(f, err)
			}
			if f.JSON() {
				return f.Success(res)
			}
			if res.Content != "" {
				fmt.Fprint(f.Writer, res.Content)
				if !strings.HasSuffix(res.Content, "\n") {
					fmt.Fprintln(f.Writer)
				}
				return nil
			}
			return writePatternList(f, res.Patterns)
		})

	cmd.AddCommand(list, show, search, node, errCmd, meta, related, examples, uri)
	return cmd
}

type patternRunFunc func(lib *patterns.Library, f *OutputFormatter, args []string) error

// patternCommand builds a subcommand that runs fn against the configured
// pattern library.
func patternCommand(rootOpts *RootOptions, use, short string, args cobra.PositionalArgs, fn patternRunFunc) *cobra.Command {
	return &cobra.Command{
		Use:           use,
		Short:         short,
		Args:          args,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			a, err := rootOpts.newAnalyzer(f)
			if err != nil {
				return err
			}
			return fn(a.Patterns(), f, args)
		},
	}
}

func writePatternList(f *OutputFormatter, ps []patterns.Pattern) error {
	if f.JSON() {
		return f.Success(ps)
	}
	if len(ps) == 0 {
		fmt.Fprintln(f.Writer, "No patterns found.")
		return nil
	}
	for _, p := range ps {
		fmt.Fprintf(f.Writer, "%-32s %s\n", p.Name, p.Category)
	}
	return nil
}
