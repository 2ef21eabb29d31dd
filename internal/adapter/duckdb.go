package adapter

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver
)

func init() {
	Register("duckdb", func(logger *slog.Logger) Adapter { return &DuckDBAdapter{logger: logger} })
}

// DuckDBAdapter runs introspection against an in-memory DuckDB database.
type DuckDBAdapter struct {
	db     *sql.DB
	logger *slog.Logger
}

// Connect opens an in-memory database.
func (a *DuckDBAdapter) Connect(ctx context.Context, _ Config) error {
	a.logger.Debug("opening ephemeral duckdb instance")

	db, err := sql.Open("duckdb", "")
	if err != nil {
		return fmt.Errorf("failed to open duckdb: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping duckdb: %w", err)
	}

	a.db = db
	return nil
}

// Close discards the in-memory database.
func (a *DuckDBAdapter) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

func (a *DuckDBAdapter) Engine() string { return "duckdb" }

// Exec runs a statement that returns no rows.
func (a *DuckDBAdapter) Exec(ctx context.Context, sqlStr string, args ...any) error {
	if a.db == nil {
		return fmt.Errorf("duckdb connection not established")
	}
	_, err := a.db.ExecContext(ctx, sqlStr, args...)
	return err
}

// Query runs a statement and returns its rows.
func (a *DuckDBAdapter) Query(ctx context.Context, sqlStr string, args ...any) (*sql.Rows, error) {
	if a.db == nil {
		return nil, fmt.Errorf("duckdb connection not established")
	}
	//nolint:rowserrcheck // rows.Err() is checked by the caller after iteration
	return a.db.QueryContext(ctx, sqlStr, args...)
}

// SchemaCatalog reads NOT NULL constraints from information_schema.
func (a *DuckDBAdapter) SchemaCatalog(ctx context.Context) (Catalog, error) {
	if a.db == nil {
		return nil, fmt.Errorf("duckdb connection not established")
	}

	rows, err := a.db.QueryContext(ctx, `
		SELECT table_name, column_name, is_nullable
		FROM information_schema.columns
		WHERE table_schema = 'main'
		ORDER BY table_name, ordinal_position`)
	if err != nil {
		return nil, fmt.Errorf("failed to read column metadata: %w", err)
	}
	defer rows.Close()

	catalog := make(Catalog)
	for rows.Next() {
		var table, column, nullable string
		if err := rows.Scan(&table, &column, &nullable); err != nil {
			return nil, err
		}
		if catalog[table] == nil {
			catalog[table] = make(map[string]bool)
		}
		catalog[table][column] = nullable == "NO"
	}
	return catalog, rows.Err()
}
