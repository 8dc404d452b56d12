package patterns

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/flowlint/internal/testutil"
)

const sampleDoc = `# Sample Pattern

## Difficulty

Advanced

## Node Types

LLMAgentNode, PythonCodeNode

## Use Cases

- Summarizing documents
- Grading drafts

## Error Codes

- par004

## Pattern

Body text mentioning SwitchNode.

` + "```python\nworkflow.add_node(\"LLMAgentNode\", \"a\", {})\n```\n\n```\nplain block\n```\n"

func sampleFS() fstest.MapFS {
	return fstest.MapFS{
		"cyclic/sample.md":   {Data: []byte(sampleDoc)},
		"basics/other.md":    {Data: []byte("# Other\n\n## Node Types\n\n- CSVReaderNode\n")},
		"top.md":             {Data: []byte("# Top level\n\nNothing here.\n")},
		"cyclic/notes.txt":   {Data: []byte("ignored")},
		"basics/nested/x.md": {Data: []byte("# Nested\n")},
	}
}

func names(ps []Pattern) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.Name
	}
	return out
}

func TestListAvailablePatterns(t *testing.T) {
	lib := NewLibrary(sampleFS())
	ps, err := lib.ListAvailablePatterns()
	require.NoError(t, err)

	assert.Equal(t, []string{"other", "sample", "top", "x"}, names(ps))
	assert.Equal(t, "cyclic", ps[1].Category)
	assert.Equal(t, "cyclic/sample.md", ps[1].Filename)
	assert.Equal(t, "general", ps[2].Category)
	assert.Equal(t, "basics/nested", ps[3].Category)
}

func TestDefaultCorpus(t *testing.T) {
	lib := Default()
	ps, err := lib.ListAvailablePatterns()
	require.NoError(t, err)
	require.NotEmpty(t, ps)

	for _, p := range ps {
		meta, err := lib.GetPatternMetadata(p.Name)
		require.NoError(t, err, p.Name)
		assert.NotEmpty(t, meta.Title, p.Name)
		assert.NotEmpty(t, meta.Difficulty, p.Name)
		assert.NotEmpty(t, meta.NodeTypes, p.Name)

		examples, err := lib.ExtractCodeExamples(p.Name)
		require.NoError(t, err)
		assert.NotEmpty(t, examples, p.Name)
	}
}

func TestGetPatternContent_ReadsOnce(t *testing.T) {
	cfs := testutil.NewCountingFS(sampleFS())
	lib := NewLibrary(cfs)

	first, err := lib.GetPatternContent("sample")
	require.NoError(t, err)
	second, err := lib.GetPatternContent("sample")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, cfs.Opens("cyclic/sample.md"))
}

func TestGetPatternContent_ConcurrentReadersShareOneRead(t *testing.T) {
	cfs := testutil.NewCountingFS(sampleFS())
	lib := NewLibrary(cfs)

	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			content, err := lib.GetPatternContent("sample")
			assert.NoError(t, err)
			assert.Contains(t, content, "# Sample Pattern")
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, cfs.Opens("cyclic/sample.md"))
}

func TestGetPatternContent_NotFound(t *testing.T) {
	_, err := NewLibrary(sampleFS()).GetPatternContent("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSearchPatterns_CaseInsensitive(t *testing.T) {
	lib := NewLibrary(sampleFS())

	ps, err := lib.SearchPatterns("summarizing")
	require.NoError(t, err)
	assert.Equal(t, []string{"sample"}, names(ps))

	ps, err = lib.SearchPatterns("OTHER")
	require.NoError(t, err)
	assert.Equal(t, []string{"other"}, names(ps))

	ps, err = lib.SearchPatterns("  ")
	require.NoError(t, err)
	assert.Empty(t, ps)
}

func TestGetPatternsForNodeType(t *testing.T) {
	lib := NewLibrary(sampleFS())

	ps, err := lib.GetPatternsForNodeType("CSVReaderNode")
	require.NoError(t, err)
	assert.Equal(t, []string{"other"}, names(ps))

	// Mentioned in the body only.
	ps, err = lib.GetPatternsForNodeType("SwitchNode")
	require.NoError(t, err)
	assert.Equal(t, []string{"sample"}, names(ps))
}

func TestGetPatternsForError(t *testing.T) {
	lib := NewLibrary(sampleFS())
	ps, err := lib.GetPatternsForError("PAR004")
	require.NoError(t, err)
	assert.Equal(t, []string{"sample"}, names(ps))

	ps, err = Default().GetPatternsForError("CYC002")
	require.NoError(t, err)
	assert.Contains(t, names(ps), "iterative-refinement")
}

func TestGetPatternMetadata(t *testing.T) {
	meta, err := NewLibrary(sampleFS()).GetPatternMetadata("sample")
	require.NoError(t, err)

	assert.Equal(t, "Sample Pattern", meta.Title)
	assert.Equal(t, "Advanced", meta.Difficulty)
	assert.Equal(t, []string{"LLMAgentNode", "PythonCodeNode"}, meta.NodeTypes)
	assert.Equal(t, []string{"Summarizing documents", "Grading drafts"}, meta.UseCases)
	assert.Equal(t, []string{"PAR004"}, meta.ErrorCodes)
}

func TestParseMetadata_MissingSections(t *testing.T) {
	meta := ParseMetadata("no headings at all")
	assert.Empty(t, meta.Title)
	assert.NotNil(t, meta.NodeTypes)
	assert.Empty(t, meta.NodeTypes)
}

func TestExtractCodeExamples(t *testing.T) {
	examples, err := NewLibrary(sampleFS()).ExtractCodeExamples("sample")
	require.NoError(t, err)
	require.Len(t, examples, 2)

	assert.Equal(t, "python", examples[0].Language)
	assert.Equal(t, `workflow.add_node("LLMAgentNode", "a", {})`, examples[0].Code)
	assert.Equal(t, "text", examples[1].Language)
	assert.Equal(t, "plain block", examples[1].Code)
}

func TestGetRelatedPatterns(t *testing.T) {
	lib := Default()
	related, err := lib.GetRelatedPatterns("iterative-refinement", 3)
	require.NoError(t, err)
	require.NotEmpty(t, related)
	assert.LessOrEqual(t, len(related), 3)

	for i, r := range related {
		assert.NotEqual(t, "iterative-refinement", r.Name)
		assert.Greater(t, r.Score, 0.0)
		if i > 0 {
			assert.GreaterOrEqual(t, related[i-1].Score, r.Score)
		}
	}
}

func TestGetRelatedPatterns_Unknown(t *testing.T) {
	_, err := Default().GetRelatedPatterns("missing", 0)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestJaccard(t *testing.T) {
	a := map[string]bool{"x": true, "y": true}
	b := map[string]bool{"y": true, "z": true}
	assert.InDelta(t, 1.0/3.0, jaccard(a, b), 1e-9)
	assert.Equal(t, 0.0, jaccard(map[string]bool{}, map[string]bool{}))
}

func TestOpenDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "custom"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "custom", "mine.md"), []byte("# Mine\n"), 0o644))

	lib, err := OpenDir(dir)
	require.NoError(t, err)
	ps, err := lib.ListAvailablePatterns()
	require.NoError(t, err)
	assert.Equal(t, []string{"mine"}, names(ps))
	assert.Equal(t, "custom", ps[0].Category)

	_, err = OpenDir(filepath.Join(dir, "absent"))
	assert.Error(t, err)
}
