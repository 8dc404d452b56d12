package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 1000, cfg.MaxIterationsHighWater)
	assert.Equal(t, zapcore.InfoLevel, cfg.Level())
}

func TestParse_AllFields(t *testing.T) {
	cfg, err := Parse([]byte(`
max_iterations_high_water: 250
patterns_dir: docs/patterns
registry_dir: nodes
history_db: .flowlint/history.db
disabled_rules: [CON002, PAR005]
log_level: debug
`))
	require.NoError(t, err)

	assert.Equal(t, 250, cfg.MaxIterationsHighWater)
	assert.Equal(t, "docs/patterns", cfg.PatternsDir)
	assert.Equal(t, "nodes", cfg.RegistryDir)
	assert.Equal(t, ".flowlint/history.db", cfg.HistoryDB)
	assert.Equal(t, []string{"CON002", "PAR005"}, cfg.DisabledRules)
	assert.Equal(t, zapcore.DebugLevel, cfg.Level())

	opts := cfg.RuleOptions()
	assert.Equal(t, 250, opts.MaxIterationsHighWater)
	assert.Equal(t, []string{"CON002", "PAR005"}, opts.Disabled)
}

func TestParse_PartialKeepsDefaults(t *testing.T) {
	cfg, err := Parse([]byte("history_db: runs.db\n"))
	require.NoError(t, err)
	assert.Equal(t, 1000, cfg.MaxIterationsHighWater)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name, yaml, want string
	}{
		{"unknown field", "max_iterations: 5\n", "field max_iterations not found"},
		{"non-positive high water", "max_iterations_high_water: 0\n", "must be positive"},
		{"bad code", "disabled_rules: [NOPE]\n", "not a diagnostic code"},
		{"bad level", "log_level: loud\n", "log_level"},
		{"malformed", "max_iterations_high_water: [\n", "failed to parse YAML"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_ExplicitPathResolvesRelativeDirs(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "flowlint.yaml")
	require.NoError(t, os.WriteFile(path, []byte("patterns_dir: patterns\nhistory_db: /abs/history.db\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "patterns"), cfg.PatternsDir)
	assert.Equal(t, "/abs/history.db", cfg.HistoryDB)
}

func TestLoad_MissingExplicitPath(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestLoad_MissingDefaultPath(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}
