package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sqlmint-labs/sqlmint/internal/config"
)

const initConfig = `version: 1
name: %s

sql:
  - engine: sqlite
    files:
      - queries/example.sql
    generators:
      - language: ts-sqlite-sync
        out: gen/ts
`

const initSQL = `-- MIGRATE createItems
CREATE TABLE items (
    id INTEGER PRIMARY KEY,
    name TEXT NOT NULL,
    note TEXT
);

-- TESTDATA seedItems
INSERT INTO items (id, name, note) VALUES (1, 'first', NULL);

-- QUERY getItemById :one
-- @set id = 1
SELECT id, name, note FROM items WHERE id = ${id};

-- QUERY itemNames :pluck
SELECT name FROM items ORDER BY id;

-- EXEC deleteItem
-- @set id = 1
DELETE FROM items WHERE id = ${id};
`

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init [directory]",
		Short: "Scaffold a new sqlmint project",
		Long: `Create a sqlmint.yaml and an example annotated SQL file in the given
directory (default: the current directory). Existing files are never
overwritten.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st := StateFrom(cmd.Context())

			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			if err := os.MkdirAll(filepath.Join(dir, "queries"), 0o755); err != nil {
				return err
			}

			name := filepath.Base(absOrSelf(dir))
			files := []struct {
				path    string
				content string
			}{
				{filepath.Join(dir, config.ConfigFileName), fmt.Sprintf(initConfig, name)},
				{filepath.Join(dir, "queries", "example.sql"), initSQL},
			}
			for _, f := range files {
				if _, err := os.Stat(f.path); err == nil {
					return fmt.Errorf("%s already exists, refusing to overwrite", f.path)
				}
				if err := os.WriteFile(f.path, []byte(f.content), 0o644); err != nil {
					return err
				}
				st.Renderer.Successf("created %s", f.path)
			}

			st.Renderer.Successf("project ready, run 'sqlmint generate' to try it")
			return nil
		},
	}
}

func absOrSelf(dir string) string {
	if abs, err := filepath.Abs(dir); err == nil {
		return abs
	}
	return dir
}
