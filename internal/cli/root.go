package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/roach88/flowlint/internal/analyzer"
	"github.com/roach88/flowlint/internal/config"
	"github.com/roach88/flowlint/internal/ir"
	"github.com/roach88/flowlint/internal/patterns"
	"github.com/roach88/flowlint/internal/schema"
	"github.com/roach88/flowlint/internal/store"
)

// RootOptions holds global flags for all commands, plus the config and
// logger they resolve to before a command runs.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	ConfigPath  string
	PatternsDir string
	RegistryDir string
	HistoryDB   string
	HighWater   int
	Disabled    []string

	Config config.Config
	Logger *zap.Logger

	loaded bool
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the flowlint CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "flowlint",
		Short: "flowlint - static checks for workflow graph source",
		Long: `flowlint analyzes workflow-building source code without running it.

It extracts add_node, add_connection and cycle-builder calls, checks them
against node parameter contracts and graph rules, and explains every
finding with a coded diagnostic, a suggested fix and documentation patterns.`,
		Version:       ir.ToolVersion + " (ir " + ir.IRVersion + ")",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fail(opts.formatter(cmd), ErrCodeGeneric,
					fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return opts.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.Logger != nil {
				_ = opts.Logger.Sync()
			}
		},
	}

	flags := cmd.PersistentFlags()
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output and debug logging")
	flags.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	flags.StringVar(&opts.ConfigPath, "config", "", "config file (default ./"+config.DefaultFilename+" when present)")
	flags.StringVar(&opts.PatternsDir, "patterns-dir", "", "pattern corpus directory (default: embedded corpus)")
	flags.StringVar(&opts.RegistryDir, "registry-dir", "", "directory of CUE node definitions used as the live registry")
	flags.StringVar(&opts.HistoryDB, "history-db", "", "SQLite file validation runs are recorded in")
	flags.IntVar(&opts.HighWater, "max-iterations-high-water", 0, "max_iterations value above which CYC006 fires")
	flags.StringSliceVar(&opts.Disabled, "disable", nil, "diagnostic codes to suppress (repeatable)")

	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewParamsCommand(opts))
	cmd.AddCommand(NewSuggestCommand(opts))
	cmd.AddCommand(NewExtractCommand(opts))
	cmd.AddCommand(NewCodesCommand(opts))
	cmd.AddCommand(NewCheckCommand(opts))
	cmd.AddCommand(NewPatternsCommand(opts))
	cmd.AddCommand(NewCatalogCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// Execute runs the CLI with os.Args and returns the process exit code.
func Execute(ctx context.Context) int {
	return run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
}

// run executes args against a fresh root command. ExitErrors have already
// been reported through the output formatter; anything else (flag
// parsing, argument counts) is printed here as a command error.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cmd := NewRootCommand()
	cmd.SetArgs(args)
	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	err := cmd.ExecuteContext(ctx)
	var exitErr *ExitError
	if err != nil && !errors.As(err, &exitErr) {
		// cobra errors are not reported by the commands themselves
		fmt.Fprintln(stderr, err)
	}
	return exitCode(err)
}

// setup loads the config file, applies flag overrides and builds the logger.
func (o *RootOptions) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return fail(o.formatter(cmd), ErrCodeConfig, err)
	}
	o.applyFlags(cmd, &cfg)
	if err := cfg.Validate(); err != nil {
		return fail(o.formatter(cmd), ErrCodeConfig, err)
	}
	o.Config = cfg
	o.loaded = true

	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(cfg.Level())
	if o.Verbose {
		zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err := zcfg.Build()
	if err != nil {
		return fail(o.formatter(cmd), ErrCodeConfig, fmt.Errorf("failed to initialize logger: %w", err))
	}
	o.Logger = logger
	logger.Debug("config resolved",
		zap.String("config", o.ConfigPath),
		zap.Int("max_iterations_high_water", cfg.MaxIterationsHighWater),
		zap.Strings("disabled_rules", cfg.DisabledRules),
		zap.String("patterns_dir", cfg.PatternsDir),
		zap.String("registry_dir", cfg.RegistryDir),
		zap.String("history_db", cfg.HistoryDB))
	return nil
}

// applyFlags overrides config values with flags the user set explicitly.
func (o *RootOptions) applyFlags(cmd *cobra.Command, cfg *config.Config) {
	changed := func(name string) bool {
		f := cmd.Flags().Lookup(name)
		return f != nil && f.Changed
	}
	if changed("patterns-dir") {
		cfg.PatternsDir = o.PatternsDir
	}
	if changed("registry-dir") {
		cfg.RegistryDir = o.RegistryDir
	}
	if changed("history-db") {
		cfg.HistoryDB = o.HistoryDB
	}
	if changed("max-iterations-high-water") {
		cfg.MaxIterationsHighWater = o.HighWater
	}
	if changed("disable") {
		cfg.DisabledRules = append(cfg.DisabledRules, o.Disabled...)
	}
}

// settings returns the resolved config. Commands constructed without the
// root command get defaults overlaid with the option fields.
func (o *RootOptions) settings() config.Config {
	if o.loaded {
		return o.Config
	}
	cfg := config.Default()
	if o.PatternsDir != "" {
		cfg.PatternsDir = o.PatternsDir
	}
	if o.RegistryDir != "" {
		cfg.RegistryDir = o.RegistryDir
	}
	if o.HistoryDB != "" {
		cfg.HistoryDB = o.HistoryDB
	}
	if o.HighWater > 0 {
		cfg.MaxIterationsHighWater = o.HighWater
	}
	cfg.DisabledRules = append(cfg.DisabledRules, o.Disabled...)
	return cfg
}

func (o *RootOptions) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// newAnalyzer builds an analyzer from the resolved config. Failures are
// returned as ExitErrors already reported through f.
func (o *RootOptions) newAnalyzer(f *OutputFormatter) (*analyzer.Analyzer, error) {
	opts, err := o.sourceOptions(f)
	if err != nil {
		return nil, err
	}
	opts = append(opts, analyzer.WithRuleOptions(o.settings().RuleOptions()))
	return analyzer.New(opts...), nil
}

// sourceOptions returns the analyzer options for the logger, the live
// registry and the pattern corpus, leaving rule options to the caller.
func (o *RootOptions) sourceOptions(f *OutputFormatter) ([]analyzer.Option, error) {
	cfg := o.settings()
	opts := []analyzer.Option{analyzer.WithLogger(o.logger())}

	if cfg.RegistryDir != "" {
		reg, err := schema.LoadRegistry(cfg.RegistryDir)
		if err != nil {
			return nil, fail(f, ErrCodeRegistry, err)
		}
		f.VerboseLog("Loaded %d node type(s) from %s", reg.Catalog().Len(), cfg.RegistryDir)
		opts = append(opts, analyzer.WithRegistry(reg))
	}

	if cfg.PatternsDir != "" {
		lib, err := patterns.OpenDir(cfg.PatternsDir, patterns.WithLogger(o.logger()))
		if err != nil {
			return nil, fail(f, ErrCodePatterns, err)
		}
		opts = append(opts, analyzer.WithPatterns(lib))
	}
	return opts, nil
}

// openHistory opens the history database, or returns nil when none is
// configured.
func (o *RootOptions) openHistory() (*store.Store, error) {
	path := o.settings().HistoryDB
	if path == "" {
		return nil, nil
	}
	return store.Open(path)
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// readSource reads path, or standard input when path is "-".
func readSource(cmd *cobra.Command, path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// sourceError reports a readSource failure.
func sourceError(f *OutputFormatter, path string, err error) error {
	if errors.Is(err, os.ErrNotExist) {
		return fail(f, ErrCodeNotFound, fmt.Errorf("source file not found: %s", path))
	}
	return fail(f, ErrCodeGeneric, err)
}
