package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScenario_Valid(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: ok
description: "minimal"
source: |
  x = 1
assertions:
  - type: has_errors
    value: false
`))
	require.NoError(t, err)
	assert.Equal(t, "ok", s.Name)
	assert.Equal(t, ToolValidateWorkflow, s.Tool, "tool defaults to validate_workflow")
	assert.Equal(t, "x = 1\n", s.Source)
	require.Len(t, s.Assertions, 1)
	require.NotNil(t, s.Assertions[0].Value)
	assert.False(t, *s.Assertions[0].Value)
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "unknown field",
			yaml:    "name: a\ndescription: b\nsource: x\nassertion: []\n",
			wantErr: "field assertion not found",
		},
		{
			name:    "missing name",
			yaml:    "description: b\nsource: x\nassertions: [{type: has_errors, value: true}]\n",
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			yaml:    "name: a\nsource: x\nassertions: [{type: has_errors, value: true}]\n",
			wantErr: "description is required",
		},
		{
			name:    "unknown tool",
			yaml:    "name: a\ndescription: b\ntool: lint\nsource: x\nassertions: [{type: has_errors, value: true}]\n",
			wantErr: `unknown tool "lint"`,
		},
		{
			name:    "no source",
			yaml:    "name: a\ndescription: b\nassertions: [{type: has_errors, value: true}]\n",
			wantErr: "source or source_file is required",
		},
		{
			name:    "both sources",
			yaml:    "name: a\ndescription: b\nsource: x\nsource_file: y.py\nassertions: [{type: has_errors, value: true}]\n",
			wantErr: "mutually exclusive",
		},
		{
			name:    "no assertions",
			yaml:    "name: a\ndescription: b\nsource: x\n",
			wantErr: "assertions list is required",
		},
		{
			name:    "has_errors without value",
			yaml:    "name: a\ndescription: b\nsource: x\nassertions: [{type: has_errors}]\n",
			wantErr: "value is required",
		},
		{
			name:    "bad code",
			yaml:    "name: a\ndescription: b\nsource: x\nassertions: [{type: diagnostic_absent, code: XYZ1}]\n",
			wantErr: "valid code is required",
		},
		{
			name:    "negative count",
			yaml:    "name: a\ndescription: b\nsource: x\nassertions: [{type: diagnostic_count, code: PAR004, count: -1}]\n",
			wantErr: "count must be non-negative",
		},
		{
			name:    "short order",
			yaml:    "name: a\ndescription: b\nsource: x\nassertions: [{type: diagnostic_order, codes: [PAR004]}]\n",
			wantErr: "at least two codes",
		},
		{
			name:    "unknown assertion",
			yaml:    "name: a\ndescription: b\nsource: x\nassertions: [{type: trace_contains}]\n",
			wantErr: `unknown assertion type "trace_contains"`,
		},
		{
			name:    "bad disabled rule",
			yaml:    "name: a\ndescription: b\nsource: x\noptions: {disabled_rules: [nope]}\nassertions: [{type: has_errors, value: true}]\n",
			wantErr: `invalid code "nope"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadScenario_SourceFileRelative(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "src"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "src", "wf.py"), []byte("y = 2\n"), 0o644))
	path := filepath.Join(dir, "s.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: file_source
description: "reads source from a file"
source_file: src/wf.py
assertions:
  - type: has_errors
    value: false
`), 0o644))

	s, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, "y = 2\n", s.Source)
}

func TestLoadScenario_MissingSourceFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: missing
description: "source file does not exist"
source_file: nowhere.py
assertions:
  - type: has_errors
    value: false
`), 0o644))

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "source file")
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenarios_DuplicateNames(t *testing.T) {
	dir := t.TempDir()
	body := []byte("name: same\ndescription: d\nsource: x\nassertions: [{type: has_errors, value: false}]\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), body, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yaml"), body, 0o644))

	_, err := LoadScenarios(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"same" already used by a.yaml`)
}

func TestLoadScenarios_Empty(t *testing.T) {
	scenarios, err := LoadScenarios(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, scenarios)
}
