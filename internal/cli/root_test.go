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

func execute(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	root := NewRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err = root.Execute()
	return out.String(), errOut.String(), err
}

func scaffold(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	_, _, err := execute(t, "init", dir)
	require.NoError(t, err)
	return dir
}

func TestInit_CreatesProject(t *testing.T) {
	dir := scaffold(t)

	assert.FileExists(t, filepath.Join(dir, "sqlmint.yaml"))
	assert.FileExists(t, filepath.Join(dir, "queries", "example.sql"))
}

func TestInit_RefusesOverwrite(t *testing.T) {
	dir := scaffold(t)

	_, _, err := execute(t, "init", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refusing to overwrite")
}

func TestGenerate_EndToEnd(t *testing.T) {
	dir := scaffold(t)
	t.Chdir(dir)

	stdout, _, err := execute(t, "generate", "-o", "text")
	require.NoError(t, err)
	assert.Contains(t, stdout, filepath.Join("gen", "ts", "example.ts"))

	src, err := os.ReadFile(filepath.Join(dir, "gen", "ts", "example.ts"))
	require.NoError(t, err)
	assert.Contains(t, string(src), "export function getItemById(db: Database, id: number): GetItemByIdRow | null {")
	assert.Contains(t, string(src), "note: string | null;")
}

func TestGenerate_JSONResult(t *testing.T) {
	dir := scaffold(t)
	t.Chdir(dir)

	stdout, _, err := execute(t, "generate", "-o", "json")
	require.NoError(t, err)

	var res struct {
		Groups []struct {
			Engine string   `json:"engine"`
			Files  []string `json:"files"`
		} `json:"groups"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &res))
	require.Len(t, res.Groups, 1)
	assert.Equal(t, "sqlite", res.Groups[0].Engine)
	assert.NotEmpty(t, res.Groups[0].Files)
}

func TestValidate_TextSummary(t *testing.T) {
	dir := scaffold(t)
	t.Chdir(dir)

	stdout, _, err := execute(t, "validate", "-o", "text")
	require.NoError(t, err)
	assert.Contains(t, stdout, "configuration valid")
	assert.Contains(t, stdout, "sqlite")
	assert.Contains(t, stdout, "ts-sqlite-sync")
}

func TestValidate_JSONErrorObject(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sqlmint.yaml"), []byte(`version: 1
sql:
  - engine: mysql
    files: [missing.sql]
    generators:
      - language: ts-sqlite-sync
        out: gen
`), 0o644))
	t.Chdir(dir)

	stdout, _, err := execute(t, "validate", "-o", "json")
	require.Error(t, err)

	var body struct {
		Error []struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &body))
	codes := make(map[string]bool)
	for _, e := range body.Error {
		codes[e.Code] = true
	}
	assert.True(t, codes["INVALID_ENGINE"])
	assert.True(t, codes["FILE_NOT_FOUND"])
}

func TestGenerate_RendersCodedErrorOnce(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sqlmint.yaml"), []byte(`version: 1
sql:
  - engine: sqlite
    files: [queries/bad.sql]
    generators:
      - language: ts-sqlite-sync
        out: gen
`), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "queries"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "queries", "bad.sql"), []byte(`-- QUERY q
SELECT missing FROM nowhere;
`), 0o644))
	t.Chdir(dir)

	_, stderr, err := execute(t, "generate", "-o", "text")
	require.Error(t, err)
	assert.Contains(t, stderr, "SQL_EXECUTION_ERROR")
	assert.Equal(t, 1, bytes.Count([]byte(stderr), []byte("SQL_EXECUTION_ERROR")))
}

func TestVersion(t *testing.T) {
	stdout, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, stdout, "sqlmint v")
}
