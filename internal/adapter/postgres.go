package adapter

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
)

func init() {
	Register("postgres", func(logger *slog.Logger) Adapter { return &PostgresAdapter{logger: logger} })
}

// PostgresAdapter runs introspection inside a throwaway schema on an
// externally-supplied PostgreSQL server. The schema is created on Connect and
// dropped with CASCADE on Close, so nothing outlives the job.
type PostgresAdapter struct {
	db     *sql.DB
	schema string
	logger *slog.Logger
}

// Connect opens the configured server and creates the job schema.
func (a *PostgresAdapter) Connect(ctx context.Context, cfg Config) error {
	if cfg.URL == "" {
		return fmt.Errorf("postgres connection string not set (SQLMINT_POSTGRES_URL)")
	}

	db, err := sql.Open("pgx", cfg.URL)
	if err != nil {
		return fmt.Errorf("failed to open postgres connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping postgres: %w", err)
	}
	db.SetMaxOpenConns(1)

	schema := "sqlmint_" + strings.ReplaceAll(uuid.NewString()[:13], "-", "")
	a.logger.Debug("creating ephemeral postgres schema", slog.String("schema", schema))

	if _, err := db.ExecContext(ctx, fmt.Sprintf(`CREATE SCHEMA %q`, schema)); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to create schema %s: %w", schema, err)
	}
	if _, err := db.ExecContext(ctx, fmt.Sprintf(`SET search_path TO %q`, schema)); err != nil {
		_, _ = db.ExecContext(ctx, fmt.Sprintf(`DROP SCHEMA %q CASCADE`, schema))
		_ = db.Close()
		return fmt.Errorf("failed to set search_path: %w", err)
	}

	a.db = db
	a.schema = schema
	return nil
}

// Close drops the job schema and closes the connection.
func (a *PostgresAdapter) Close() error {
	if a.db == nil {
		return nil
	}
	if a.schema != "" {
		if _, err := a.db.Exec(fmt.Sprintf(`DROP SCHEMA %q CASCADE`, a.schema)); err != nil {
			a.logger.Warn("failed to drop ephemeral schema",
				slog.String("schema", a.schema), slog.Any("error", err))
		}
	}
	return a.db.Close()
}

func (a *PostgresAdapter) Engine() string { return "postgres" }

// Exec runs a statement that returns no rows.
func (a *PostgresAdapter) Exec(ctx context.Context, sqlStr string, args ...any) error {
	if a.db == nil {
		return fmt.Errorf("postgres connection not established")
	}
	_, err := a.db.ExecContext(ctx, sqlStr, args...)
	return err
}

// Query runs a statement and returns its rows.
func (a *PostgresAdapter) Query(ctx context.Context, sqlStr string, args ...any) (*sql.Rows, error) {
	if a.db == nil {
		return nil, fmt.Errorf("postgres connection not established")
	}
	//nolint:rowserrcheck // rows.Err() is checked by the caller after iteration
	return a.db.QueryContext(ctx, sqlStr, args...)
}

// SchemaCatalog reads NOT NULL constraints for the job schema from
// information_schema.
func (a *PostgresAdapter) SchemaCatalog(ctx context.Context) (Catalog, error) {
	if a.db == nil {
		return nil, fmt.Errorf("postgres connection not established")
	}

	rows, err := a.db.QueryContext(ctx, `
		SELECT table_name, column_name, is_nullable
		FROM information_schema.columns
		WHERE table_schema = $1
		ORDER BY table_name, ordinal_position`, a.schema)
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
