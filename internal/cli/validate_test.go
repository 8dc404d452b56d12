package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCleanFile(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{filepath.Join("testdata", "clean.py")})

	err := cmd.Execute()
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "✓")
	assert.Contains(t, buf.String(), "0 error(s), 0 warning(s)")
}

func TestValidateBrokenFile(t *testing.T) {
	path := filepath.Join("testdata", "broken.py")
	stdout, _, code := execute(t, "", "validate", path)

	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, stdout, path+":2: error PAR004")
	assert.Contains(t, stdout, path+":4: error CON002")
	assert.Contains(t, stdout, path+":5: error CYC001")
	assert.Contains(t, stdout, "✗")
}

func TestValidateBrokenFileJSON(t *testing.T) {
	stdout, _, code := execute(t, "", "validate", "--format", "json", filepath.Join("testdata", "broken.py"))
	assert.Equal(t, ExitFailure, code)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationOutput `json:"data"`
		Error  *CLIError        `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeValidation, resp.Error.Code)
	assert.True(t, resp.Data.Result.HasErrors)
	assert.Equal(t, "validate_workflow", resp.Data.Tool)
	assert.Empty(t, resp.Data.RunID)

	codes := resp.Data.Result.Codes()
	assert.Contains(t, codes, "PAR004")
	assert.Contains(t, codes, "CON002")
	assert.Contains(t, codes, "CYC001")
}

func TestValidateCleanFileJSON(t *testing.T) {
	stdout, _, code := execute(t, "", "validate", "--format", "json", filepath.Join("testdata", "clean.py"))
	assert.Equal(t, ExitSuccess, code)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Nil(t, resp.Error)
}

func TestValidateWithSuggestions(t *testing.T) {
	stdout, _, code := execute(t, "", "validate", "--suggest", filepath.Join("testdata", "broken.py"))
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, stdout, "    fix: ")
}

func TestValidateNonExistentFile(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"/nonexistent/workflow.py"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrCodeNotFound)
	assert.Equal(t, ExitCommandError, exitCode(err))
	assert.Contains(t, buf.String(), "not found")
}

func TestValidateInvalidUTF8(t *testing.T) {
	path := writeFile(t, t.TempDir(), "bad.py", "x = '\xff\xfe'\n")

	stdout, _, code := execute(t, "", "validate", path)
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, stdout, ErrCodeInvalidInput)
}

func TestParamsRunsOnlyParameterRules(t *testing.T) {
	path := filepath.Join("testdata", "broken.py")
	stdout, _, code := execute(t, "", "params", path)

	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, stdout, "PAR004")
	assert.NotContains(t, stdout, "CON002")
	assert.NotContains(t, stdout, "CYC001")
}

func TestValidateRecordsHistory(t *testing.T) {
	db := filepath.Join(t.TempDir(), "history.db")

	stdout, _, code := execute(t, "", "validate", "--history-db", db, "--format", "json", filepath.Join("testdata", "clean.py"))
	require.Equal(t, ExitSuccess, code)

	var resp struct {
		Data ValidationOutput `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.NotEmpty(t, resp.Data.RunID)
}

func TestValidateMissingRegistryDir(t *testing.T) {
	stdout, _, code := execute(t, "", "validate", "--registry-dir", "/nonexistent/registry", filepath.Join("testdata", "clean.py"))
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, stdout, ErrCodeRegistry)
}

func TestValidateRegistryDirSuppliesSchema(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "nodes.cue", `node: ScoreNode: {
	params: {
		threshold: {type: "float", required: true}
	}
}
`)
	src := writeFile(t, t.TempDir(), "wf.py", `workflow.add_node("ScoreNode", "score", {})
`)

	stdout, _, code := execute(t, "", "validate", "--registry-dir", dir, src)
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, stdout, "PAR004")
	assert.Contains(t, stdout, "threshold")
}
