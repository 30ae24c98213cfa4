package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func executeValidate(t *testing.T, configPath, format string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewValidateCommand(&RootOptions{ConfigPath: configPath, Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(nil)
	err := cmd.Execute()
	return buf.String(), err
}

func TestValidate_ValidConfig(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "schedule:\n  interval: 6h\n")

	out, err := executeValidate(t, path, "text")
	require.NoError(t, err)
	assert.Contains(t, out, path+" is valid")
	assert.Contains(t, out, "disk: 1KB")
	assert.Contains(t, out, "interval: 6h0m0s")
}

func TestValidate_ValidConfigJSON(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "")

	out, err := executeValidate(t, path, "json")
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	assert.Equal(t, int64(1024), resp.Data.DiskBudget)
	assert.Equal(t, 3, resp.Data.Config.Concurrency)
}

func TestValidate_SchemaViolation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pinbot.yaml")
	doc := "concurrency: 0\nunknownKey: true\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	out, err := executeValidate(t, path, "json")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	var resp struct {
		Status string `json:"status"`
		Error  struct {
			Code    string        `json:"code"`
			Details []ConfigIssue `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, ErrCodeConfig, resp.Error.Code)
	assert.NotEmpty(t, resp.Error.Details)
}

func TestValidate_BadDiskBudget(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pinbot.yaml")
	require.NoError(t, os.WriteFile(path, []byte("resourceLimits:\n  disk: 0GB\n"), 0o644))

	out, err := executeValidate(t, path, "text")
	require.Error(t, err)
	assert.Contains(t, out, "Error [E001]")
}

func TestValidate_MissingFile(t *testing.T) {
	out, err := executeValidate(t, filepath.Join(t.TempDir(), "absent.yaml"), "text")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "cannot read")
}

func TestConfigIssues_PlainError(t *testing.T) {
	issues := configIssues(assert.AnError)
	require.Len(t, issues, 1)
	assert.Equal(t, assert.AnError.Error(), issues[0].Message)
	assert.Zero(t, issues[0].Line)
}
