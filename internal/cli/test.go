package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/flowlint/internal/analyzer"
	"github.com/roach88/flowlint/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update    bool   // regenerate golden files
	Filter    string // scenario filter (glob pattern)
	GoldenDir string // defaults to <scenarios-dir>/golden
	Corpus    bool   // also run the pattern corpus examples
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name   string   `json:"name"`
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test [scenarios-dir]",
		Short: "Run validation scenarios",
		Long: `Run YAML validation scenarios: each one validates a source snippet and
asserts on the diagnostics. When a golden file exists for a scenario the
message-free snapshot of its result must match it byte for byte.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  flowlint test ./scenarios
  flowlint test ./scenarios --filter "cycle_*"
  flowlint test ./scenarios --update
  flowlint test --corpus`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := ""
			if len(args) == 1 {
				dir = args[0]
			}
			return runTests(opts, dir, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern on the scenario name")
	cmd.Flags().StringVar(&opts.GoldenDir, "golden-dir", "", "golden file directory (default <scenarios-dir>/golden)")
	cmd.Flags().BoolVar(&opts.Corpus, "corpus", false, "also run every python example of the pattern corpus")

	return cmd
}

// loadedScenario is a scenario file, or the error that kept it from loading.
type loadedScenario struct {
	file     string
	scenario *harness.Scenario
	err      error
}

func runTests(opts *TestOptions, scenariosDir string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	if scenariosDir == "" && !opts.Corpus {
		return fail(f, ErrCodeInvalidInput, fmt.Errorf("a scenarios directory or --corpus is required"))
	}

	var loaded []loadedScenario
	if scenariosDir != "" {
		if info, err := os.Stat(scenariosDir); err != nil || !info.IsDir() {
			return fail(f, ErrCodeNotFound, fmt.Errorf("scenarios directory not found: %s", scenariosDir))
		}
		files, err := findScenarioFiles(scenariosDir)
		if err != nil {
			return fail(f, ErrCodeGeneric, fmt.Errorf("failed to find scenarios: %w", err))
		}
		for _, file := range files {
			s, err := harness.LoadScenario(file)
			loaded = append(loaded, loadedScenario{file: file, scenario: s, err: err})
		}
		if opts.GoldenDir == "" {
			opts.GoldenDir = filepath.Join(scenariosDir, "golden")
		}
	}

	analyzerOpts, err := opts.sourceOptions(f)
	if err != nil {
		return err
	}

	if opts.Corpus {
		a := analyzer.New(analyzerOpts...)
		corpus, err := harness.CorpusScenarios(a.Patterns())
		if err != nil {
			return fail(f, ErrCodePatterns, err)
		}
		for _, s := range corpus {
			loaded = append(loaded, loadedScenario{file: s.Name, scenario: s})
		}
	}

	filtered, err := filterScenarios(loaded, opts.Filter)
	if err != nil {
		return fail(f, ErrCodeInvalidInput, err)
	}

	if len(filtered) == 0 {
		if f.JSON() {
			return outputTestJSON(f, TestResult{Scenarios: []ScenarioResult{}})
		}
		fmt.Fprintln(f.Writer, "No scenarios found.")
		return nil
	}

	result := TestResult{
		Scenarios: make([]ScenarioResult, 0, len(filtered)),
		Total:     len(filtered),
	}
	for _, ls := range filtered {
		sr := runScenario(opts, cmd, ls, analyzerOpts)
		if !f.JSON() {
			writeScenarioText(f, sr)
		}
		result.Scenarios = append(result.Scenarios, sr)
		if sr.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	if f.JSON() {
		return outputTestJSON(f, result)
	}
	return outputTestText(f, result)
}

// findScenarioFiles finds all YAML scenario files in a directory,
// skipping the golden directory.
func findScenarioFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == "golden" && path != dir {
				return filepath.SkipDir
			}
			return nil
		}
		ext := filepath.Ext(path)
		if ext == ".yaml" || ext == ".yml" {
			files = append(files, path)
		}
		return nil
	})
	sort.Strings(files)
	return files, err
}

// filterScenarios keeps scenarios whose name (or file base name when
// loading failed) matches the glob.
func filterScenarios(all []loadedScenario, filter string) ([]loadedScenario, error) {
	if filter == "" {
		return all, nil
	}
	if _, err := filepath.Match(filter, ""); err != nil {
		return nil, fmt.Errorf("invalid filter pattern: %w", err)
	}
	var out []loadedScenario
	for _, ls := range all {
		name := strings.TrimSuffix(filepath.Base(ls.file), filepath.Ext(ls.file))
		if ls.scenario != nil {
			name = ls.scenario.Name
		}
		if matched, _ := filepath.Match(filter, name); matched {
			out = append(out, ls)
		}
	}
	return out, nil
}

// runScenario validates one scenario and, unless it came from the corpus,
// compares its snapshot with <golden-dir>/<name>.golden.
func runScenario(opts *TestOptions, cmd *cobra.Command, ls loadedScenario, analyzerOpts []analyzer.Option) ScenarioResult {
	if ls.err != nil {
		return brokenScenario(filepath.Base(ls.file), "failed to load scenario: %v", ls.err)
	}
	s := ls.scenario

	result, err := harness.Run(commandContext(cmd), s, analyzerOpts...)
	if err != nil {
		return brokenScenario(s.Name, "execution failed: %v", err)
	}
	sr := ScenarioResult{Name: s.Name, Pass: result.Pass, Errors: result.Errors}

	// corpus scenario names are pattern paths
	if opts.GoldenDir == "" || strings.Contains(s.Name, "/") {
		return sr
	}
	snapshot, err := harness.MarshalSnapshot(s.Name, s.Tool, result.Validation)
	if err != nil {
		return brokenScenario(s.Name, "failed to marshal snapshot: %v", err)
	}
	mismatch, err := checkGolden(filepath.Join(opts.GoldenDir, s.Name+".golden"), snapshot, opts.Update)
	if err != nil {
		return brokenScenario(s.Name, "%v", err)
	}
	if mismatch {
		sr.Pass = false
		sr.Errors = append(sr.Errors, "snapshot does not match golden file (run with --update to regenerate)")
	}
	return sr
}

func brokenScenario(name, format string, args ...any) ScenarioResult {
	return ScenarioResult{Name: name, Errors: []string{fmt.Sprintf(format, args...)}}
}

// checkGolden reports whether snapshot differs from the golden file at
// path. A missing golden file is not a mismatch; update rewrites it.
func checkGolden(path string, snapshot []byte, update bool) (bool, error) {
	if update {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return false, fmt.Errorf("failed to create golden directory: %w", err)
		}
		if err := os.WriteFile(path, snapshot, 0644); err != nil {
			return false, fmt.Errorf("failed to update golden file: %w", err)
		}
		return false, nil
	}
	golden, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("failed to read golden file: %w", err)
	}
	return !bytes.Equal(bytes.TrimSpace(golden), snapshot), nil
}

func writeScenarioText(f *OutputFormatter, sr ScenarioResult) {
	if sr.Pass {
		fmt.Fprintf(f.Writer, "✓ %s\n", sr.Name)
		return
	}
	fmt.Fprintf(f.Writer, "✗ %s\n", sr.Name)
	for _, e := range sr.Errors {
		for _, line := range strings.Split(e, "\n") {
			fmt.Fprintf(f.Writer, "  %s\n", line)
		}
	}
}

func outputTestJSON(f *OutputFormatter, result TestResult) error {
	if result.Failed == 0 {
		return f.Success(result)
	}
	msg := fmt.Sprintf("%d scenario(s) failed", result.Failed)
	if err := f.Failure(ErrCodeValidation, msg, result); err != nil {
		return err
	}
	return NewExitError(ExitFailure, msg)
}

func outputTestText(f *OutputFormatter, result TestResult) error {
	fmt.Fprintf(f.Writer, "\nTest Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)
	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}
	fmt.Fprintln(f.Writer, "✓ All scenarios passed")
	return nil
}
