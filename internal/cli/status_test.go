package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pinbot/internal/testutil"
)

func executeStatus(t *testing.T, configPath, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewStatusCommand(&RootOptions{ConfigPath: configPath, Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestStatus_AfterCycle(t *testing.T) {
	dir := t.TempDir()
	configPath := writeConfig(t, dir, "")
	src, client := movieFixture()
	_, err := executeRun(t, testRunOptions(configPath, "json", src, client))
	require.NoError(t, err)

	out, err := executeStatus(t, configPath, "text")
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "status", []byte(out))
}

func TestStatus_JSON(t *testing.T) {
	dir := t.TempDir()
	configPath := writeConfig(t, dir, "")
	src, client := movieFixture()
	_, err := executeRun(t, testRunOptions(configPath, "json", src, client))
	require.NoError(t, err)

	out, err := executeStatus(t, configPath, "json")
	require.NoError(t, err)

	var resp struct {
		Status string       `json:"status"`
		Data   StatusReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 2, resp.Data.Ledger.Tracked)
	assert.Equal(t, 1, resp.Data.Ledger.Pinned)
	assert.Equal(t, int64(600), resp.Data.Ledger.PinnedBytes)
	assert.Equal(t, int64(1024), resp.Data.DiskBudget)
	require.NotNil(t, resp.Data.LastCycle)
	assert.Equal(t, "cycle-1", resp.Data.LastCycle.ID)
}

func TestStatus_EmptyLedger(t *testing.T) {
	dir := t.TempDir()
	configPath := writeConfig(t, dir, "")

	_, err := executeRun(t, testRunOptions(configPath, "json", testutil.NewFakeCatalog(), testutil.NewFakeClient()))
	require.NoError(t, err)

	out, err := executeStatus(t, configPath, "text")
	require.NoError(t, err)
	assert.Contains(t, out, "Tracked items:  0\n")
	assert.Contains(t, out, "Pinned bytes:   0 B of 1.0 KiB (0.0%)\n")
	assert.Contains(t, out, "Last cycle:     cycle-1\n")
}

func TestStatus_MissingLedger(t *testing.T) {
	dir := t.TempDir()
	configPath := writeConfig(t, dir, "")

	out, err := executeStatus(t, configPath, "json", "--db", filepath.Join(dir, "absent.db"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.NoFileExists(t, filepath.Join(dir, "absent.db"))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeLedger, resp.Error.Code)
}

func TestPercent(t *testing.T) {
	assert.Equal(t, 0.0, percent(10, 0))
	assert.Equal(t, 60.0, percent(600, 1000))
}
