package harness

import (
	"context"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/flowlint/internal/patterns"
)

func TestCorpusScenarios_EmbeddedCorpus(t *testing.T) {
	scenarios, err := CorpusScenarios(patterns.Default())
	require.NoError(t, err)
	require.NotEmpty(t, scenarios)

	for _, s := range scenarios {
		t.Run(s.Name, func(t *testing.T) {
			require.NoError(t, s.check())
			result, err := Run(context.Background(), s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "%v", result.Errors)
		})
	}
}

func TestCorpusScenarios_OnlyPython(t *testing.T) {
	fsys := fstest.MapFS{
		"basics/mixed.md": {Data: []byte(strings.Join([]string{
			"# Mixed",
			"",
			"```python",
			`workflow.add_node("JSONReaderNode", "r", {"file_path": "a.json"})`,
			"```",
			"",
			"```text",
			"quality > 0.9",
			"```",
			"",
			"```python",
			`workflow.add_node("LLMAgentNode", "a", {})`,
			"```",
		}, "\n"))},
	}

	scenarios, err := CorpusScenarios(patterns.NewLibrary(fsys))
	require.NoError(t, err)
	require.Len(t, scenarios, 2)
	assert.Equal(t, "mixed/example_1", scenarios[0].Name)
	assert.Equal(t, "mixed/example_2", scenarios[1].Name)
	assert.Contains(t, scenarios[1].Source, "LLMAgentNode")
}
