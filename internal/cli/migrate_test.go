package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tagSchema = `name: Tag
table: tags
fields:
  - name: id
    type: int
  - name: label
`

func TestMigrateCreatesThenUpToDate(t *testing.T) {
	cfg := writeConfig(t, keysConfig(1))

	out, err := execute(t, "--config", cfg, "migrate", schemasDir)
	require.NoError(t, err)
	assert.Contains(t, out, "+ customers (Customer) created")
	assert.Contains(t, out, "+ notes (Note) created")

	out, err = execute(t, "--config", cfg, "migrate", schemasDir)
	require.NoError(t, err)
	assert.Contains(t, out, "= customers (Customer) up to date")
	assert.Contains(t, out, "= notes (Note) up to date")
}

func TestMigrateJSON(t *testing.T) {
	cfg := writeConfig(t, "")

	out, err := execute(t, "--config", cfg, "--format", "json", "migrate", schemasDir)
	require.NoError(t, err)

	var resp struct {
		Status string        `json:"status"`
		Data   MigrateResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "sqlite", resp.Data.Dialect)
	require.Len(t, resp.Data.Tables, 2)
	for _, table := range resp.Data.Tables {
		assert.True(t, table.Created, table.Table)
		assert.False(t, table.Changed, table.Table)
	}
}

func TestMigrateReportsDriftUntilAccepted(t *testing.T) {
	cfg := writeConfig(t, "")
	dir := t.TempDir()
	path := filepath.Join(dir, "tag.yaml")
	require.NoError(t, os.WriteFile(path, []byte(tagSchema), 0o644))

	_, err := execute(t, "--config", cfg, "migrate", dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte(tagSchema+"  - name: color\n"), 0o644))

	for range 2 {
		out, err := execute(t, "--config", cfg, "migrate", dir)
		require.Error(t, err)
		assert.Equal(t, ExitFailure, GetExitCode(err))
		assert.Contains(t, out, "! tags (Tag) schema changed")
	}

	out, err := execute(t, "--config", cfg, "migrate", "--accept", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "= tags (Tag) up to date")

	out, err = execute(t, "--config", cfg, "migrate", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "= tags (Tag) up to date")
}

func TestMigrateRejectsInvalidSchemas(t *testing.T) {
	cfg := writeConfig(t, "")

	out, err := execute(t, "--config", cfg, "migrate", "testdata/invalid")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E106]")
}
