package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/flowlint/internal/analyzer"
	"github.com/roach88/flowlint/internal/ir"
	"github.com/roach88/flowlint/internal/patterns"
	"github.com/roach88/flowlint/internal/rules"
)

// decodeData unmarshals the data field of a JSON response into v.
func decodeData(t *testing.T, stdout string, v any) CLIResponse {
	t.Helper()
	var raw struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
		Error  *CLIError       `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &raw), stdout)
	if v != nil {
		require.NoError(t, json.Unmarshal(raw.Data, v))
	}
	return CLIResponse{Status: raw.Status, Error: raw.Error}
}

func TestSuggestRanksByPriority(t *testing.T) {
	stdout, _, code := execute(t, "", "suggest", "--format", "json", filepath.Join("testdata", "broken.py"))
	require.Equal(t, ExitSuccess, code, stdout)

	var suggestions []ir.Suggestion
	resp := decodeData(t, stdout, &suggestions)
	assert.Equal(t, "ok", resp.Status)
	require.NotEmpty(t, suggestions)
	for i := 1; i < len(suggestions); i++ {
		assert.LessOrEqual(t, suggestions[i-1].Priority, suggestions[i].Priority)
	}
}

func TestSuggestByCode(t *testing.T) {
	stdout, _, code := execute(t, "", "suggest", "--code", "cyc001", "--code", "XYZ999")
	require.Equal(t, ExitSuccess, code)
	assert.Contains(t, stdout, "[CYC001]")
	assert.Contains(t, stdout, "[XYZ999]")
}

func TestSuggestRequiresInput(t *testing.T) {
	_, _, code := execute(t, "", "suggest")
	assert.Equal(t, ExitCommandError, code)

	_, _, code = execute(t, "", "suggest", "--code", "PAR004", filepath.Join("testdata", "clean.py"))
	assert.Equal(t, ExitCommandError, code)
}

func TestSuggestCleanFile(t *testing.T) {
	stdout, _, code := execute(t, "", "suggest", filepath.Join("testdata", "clean.py"))
	require.Equal(t, ExitSuccess, code)
	assert.Contains(t, stdout, "No suggestions")
}

func TestExtractJSON(t *testing.T) {
	stdout, _, code := execute(t, "", "extract", "--format", "json", filepath.Join("testdata", "clean.py"))
	require.Equal(t, ExitSuccess, code)

	var wf ir.Workflow
	decodeData(t, stdout, &wf)
	require.Len(t, wf.Calls, 3)
	assert.Equal(t, ir.KindAddNode, wf.Calls[0].Kind)
	assert.Equal(t, "reader", wf.Calls[0].NodeID)
	assert.Equal(t, 4, wf.Calls[0].Line)
	assert.Equal(t, ir.KindAddConnection, wf.Calls[2].Kind)
}

func TestExtractText(t *testing.T) {
	stdout, _, code := execute(t, "", "extract", filepath.Join("testdata", "broken.py"))
	require.Equal(t, ExitSuccess, code)
	assert.Contains(t, stdout, "4 call(s), 0 node class(es)")
	assert.Contains(t, stdout, `LLMAgentNode "agent" {prompt}`)
	assert.Contains(t, stdout, "cycle=True")
}

func TestCodesListsTaxonomy(t *testing.T) {
	stdout, _, code := execute(t, "", "codes", "--format", "json")
	require.Equal(t, ExitSuccess, code)

	var infos []rules.CodeInfo
	decodeData(t, stdout, &infos)
	assert.Equal(t, rules.Taxonomy(), infos)
}

func TestCheckKnownCode(t *testing.T) {
	stdout, _, code := execute(t, "", "check", "--format", "json", "CYC001")
	require.Equal(t, ExitSuccess, code)

	var report analyzer.ErrorPatternReport
	decodeData(t, stdout, &report)
	assert.True(t, report.Known)
	assert.Equal(t, "patterns://error/CYC001", report.URI)
	assert.NotEmpty(t, report.Fix)

	names := make([]string, len(report.Patterns))
	for i, p := range report.Patterns {
		names[i] = p.Name
	}
	assert.Contains(t, names, "migrating-cycle-flag")
}

func TestCheckInvalidType(t *testing.T) {
	stdout, _, code := execute(t, "", "check", "--type", "bogus", "CYC001")
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, stdout, ErrCodeInvalidURI)
}

func TestPatternsList(t *testing.T) {
	stdout, _, code := execute(t, "", "patterns", "list", "--format", "json")
	require.Equal(t, ExitSuccess, code)

	var list []patterns.Pattern
	decodeData(t, stdout, &list)
	require.NotEmpty(t, list)
	for i := 1; i < len(list); i++ {
		assert.Less(t, list[i-1].Name, list[i].Name)
	}
}

func TestPatternsShowAndMissing(t *testing.T) {
	stdout, _, code := execute(t, "", "patterns", "show", "migrating-cycle-flag")
	require.Equal(t, ExitSuccess, code)
	assert.Contains(t, stdout, "CYC001")

	stdout, _, code = execute(t, "", "patterns", "show", "no-such-pattern")
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, stdout, ErrCodeNotFound)
}

func TestPatternsLookups(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"search", []string{"patterns", "search", "cycle"}},
		{"node", []string{"patterns", "node", "LLMAgentNode"}},
		{"error", []string{"patterns", "error", "CYC001"}},
		{"meta", []string{"patterns", "meta", "migrating-cycle-flag"}},
		{"related", []string{"patterns", "related", "migrating-cycle-flag", "--limit", "2"}},
		{"examples", []string{"patterns", "examples", "migrating-cycle-flag"}},
		{"uri", []string{"patterns", "uri", "patterns://error/CYC001"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdout, _, code := execute(t, "", append(tt.args, "--format", "json")...)
			require.Equal(t, ExitSuccess, code, stdout)
			resp := decodeData(t, stdout, nil)
			assert.Equal(t, "ok", resp.Status)
		})
	}
}

func TestPatternsRelatedRespectsLimit(t *testing.T) {
	stdout, _, code := execute(t, "", "patterns", "related", "migrating-cycle-flag", "--limit", "1", "--format", "json")
	require.Equal(t, ExitSuccess, code)

	var rel []patterns.Related
	decodeData(t, stdout, &rel)
	assert.LessOrEqual(t, len(rel), 1)
}

func TestPatternsInvalidURI(t *testing.T) {
	stdout, _, code := execute(t, "", "patterns", "uri", "http://example.com/x")
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, stdout, ErrCodeInvalidURI)
}

func TestPatternsCustomDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "team/house-style.md", "# House Style\n\n## Error Codes\n\n- PAR004\n")

	stdout, _, code := execute(t, "", "patterns", "list", "--patterns-dir", dir)
	require.Equal(t, ExitSuccess, code)
	assert.Contains(t, stdout, "house-style")
	assert.Contains(t, stdout, "team")

	_, _, code = execute(t, "", "patterns", "list", "--patterns-dir", filepath.Join(dir, "missing"))
	assert.Equal(t, ExitCommandError, code)
}

func TestCatalogListsBuiltin(t *testing.T) {
	stdout, _, code := execute(t, "", "catalog", "--format", "json")
	require.Equal(t, ExitSuccess, code)

	var entries []CatalogEntry
	decodeData(t, stdout, &entries)
	require.NotEmpty(t, entries)
	for _, e := range entries {
		assert.Equal(t, "catalog", e.Source)
	}
}

func TestCatalogEntry(t *testing.T) {
	stdout, _, code := execute(t, "", "catalog", "LLMAgentNode")
	require.Equal(t, ExitSuccess, code)
	assert.Contains(t, stdout, "model: str, required")
	assert.Contains(t, stdout, `provider: str, optional, default "openai"`)

	_, _, code = execute(t, "", "catalog", "NoSuchNode")
	assert.Equal(t, ExitCommandError, code)
}

func TestCatalogRegistryShadowsBuiltin(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "nodes.cue", `node: LLMAgentNode: {
	params: {
		model: {type: "str", required: true}
	}
}
`)
	stdout, _, code := execute(t, "", "catalog", "LLMAgentNode", "--registry-dir", dir, "--format", "json")
	require.Equal(t, ExitSuccess, code)

	var entry CatalogEntry
	decodeData(t, stdout, &entry)
	assert.Equal(t, "registry", entry.Source)
	assert.Len(t, entry.Params, 1)
}
