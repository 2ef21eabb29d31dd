package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sqlmint-labs/sqlmint/internal/errcode"
)

func writeProject(t *testing.T, yaml string, sqlFiles ...string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(yaml), 0o644))
	for _, f := range sqlFiles {
		path := filepath.Join(dir, f)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("-- QUERY q\nSELECT 1;\n"), 0o644))
	}
	return dir
}

const validYAML = `version: 1
name: shop
sql:
  - engine: sqlite
    files:
      - queries/users.sql
    generators:
      - language: ts-sqlite-sync
        out: src/db
      - language: jvm-jdbc
        out: jvm/src
`

func TestLoad_File(t *testing.T) {
	dir := writeProject(t, validYAML, "queries/users.sql")

	p, err := Load(filepath.Join(dir, ConfigFileName), nil)
	require.NoError(t, err)

	assert.Equal(t, 1, p.Version)
	assert.Equal(t, "shop", p.Name)
	assert.Equal(t, "auto", p.Output)
	assert.Equal(t, dir, p.Root)
	require.Len(t, p.SQL, 1)
	assert.Equal(t, "sqlite", p.SQL[0].Engine)
	assert.Equal(t, []string{"queries/users.sql"}, p.SQL[0].Files)
	require.Len(t, p.SQL[0].Generators, 2)
	assert.Equal(t, "ts-sqlite-sync", p.SQL[0].Generators[0].Language)
	assert.Equal(t, "src/db", p.SQL[0].Generators[0].Out)

	assert.NoError(t, p.Validate())
}

func TestFindConfigFile_SearchesUpward(t *testing.T) {
	dir := writeProject(t, validYAML, "queries/users.sql")
	nested := filepath.Join(dir, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	t.Chdir(nested)

	path, err := FindConfigFile("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, ConfigFileName), path)
}

func TestLoad_ExplicitFileMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	var coded *errcode.Error
	require.ErrorAs(t, err, &coded)
	assert.Equal(t, errcode.FileNotFound, coded.Code)
}

func TestLoad_MalformedYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte("sql: [unclosed"), 0o644))

	_, err := Load(path, nil)
	var coded *errcode.Error
	require.ErrorAs(t, err, &coded)
	assert.Equal(t, errcode.ConfigParse, coded.Code)
	assert.NotEmpty(t, coded.Suggestion)
	assert.NotNil(t, coded.Cause)
}

func TestLoad_EnvOverride(t *testing.T) {
	dir := writeProject(t, validYAML, "queries/users.sql")
	t.Setenv("SQLMINT_POSTGRES_URL", "postgres://localhost:5432/mint")

	p, err := Load(filepath.Join(dir, ConfigFileName), nil)
	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost:5432/mint", p.PostgresURL)
}

func TestLoad_FlagOverridesFileAndEnv(t *testing.T) {
	dir := writeProject(t, validYAML, "queries/users.sql")
	t.Setenv("SQLMINT_OUTPUT", "text")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("output", "auto", "")
	require.NoError(t, flags.Parse([]string{"--output=json"}))

	p, err := Load(filepath.Join(dir, ConfigFileName), flags)
	require.NoError(t, err)
	assert.Equal(t, "json", p.Output)

	// Unchanged flags do not override lower layers.
	flags2 := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags2.String("output", "auto", "")
	require.NoError(t, flags2.Parse(nil))

	p2, err := Load(filepath.Join(dir, ConfigFileName), flags2)
	require.NoError(t, err)
	assert.Equal(t, "text", p2.Output)
}

func TestValidate_CollectsEveryViolation(t *testing.T) {
	dir := writeProject(t, `version: 2
sql:
  - engine: mysql
    files:
      - missing.sql
    generators:
      - language: ts-mysql
        out: src
`)

	p, err := Load(filepath.Join(dir, ConfigFileName), nil)
	require.NoError(t, err)

	err = p.Validate()
	require.Error(t, err)
	var list *errcode.List
	require.ErrorAs(t, err, &list)

	codes := make(map[errcode.Code]int)
	for _, e := range list.Errors {
		codes[e.Code]++
	}
	assert.Equal(t, 1, codes[errcode.ConfigValidation], "version")
	assert.Equal(t, 1, codes[errcode.InvalidEngine])
	assert.Equal(t, 1, codes[errcode.FileNotFound])
	assert.Equal(t, 1, codes[errcode.InvalidGenerator])
}

func TestValidate_GeneratorEngineMismatch(t *testing.T) {
	dir := writeProject(t, `version: 1
sql:
  - engine: sqlite
    files:
      - queries/users.sql
    generators:
      - language: ts-duckdb-async
        out: src
`, "queries/users.sql")

	p, err := Load(filepath.Join(dir, ConfigFileName), nil)
	require.NoError(t, err)

	err = p.Validate()
	var coded *errcode.Error
	require.ErrorAs(t, err, &coded)
	assert.Equal(t, errcode.GeneratorEngineMismatch, coded.Code)
	assert.Contains(t, coded.Suggestion, "duckdb")
}

func TestValidate_EmptyProject(t *testing.T) {
	p := &Project{Version: 1}
	err := p.Validate()
	var coded *errcode.Error
	require.ErrorAs(t, err, &coded)
	assert.Equal(t, errcode.ConfigValidation, coded.Code)
}

func TestResolve(t *testing.T) {
	p := &Project{Root: "/proj"}
	assert.Equal(t, "/proj/queries/users.sql", p.Resolve("queries/users.sql"))
	assert.Equal(t, "/abs/users.sql", p.Resolve("/abs/users.sql"))
	assert.Equal(t, "", p.Resolve(""))
}
