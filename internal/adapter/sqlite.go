package adapter

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite" // sqlite driver (pure Go)
)

func init() {
	Register("sqlite", func(logger *slog.Logger) Adapter { return &SQLiteAdapter{logger: logger} })
}

// SQLiteAdapter runs introspection against an in-memory SQLite database.
type SQLiteAdapter struct {
	db     *sql.DB
	logger *slog.Logger
}

// Connect opens an in-memory database. Nothing touches disk.
func (a *SQLiteAdapter) Connect(ctx context.Context, _ Config) error {
	a.logger.Debug("opening ephemeral sqlite instance")

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return fmt.Errorf("failed to open sqlite: %w", err)
	}
	// A single connection keeps every statement on the same in-memory
	// database; a second pool connection would see an empty schema.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping sqlite: %w", err)
	}

	a.db = db
	return nil
}

// Close discards the in-memory database.
func (a *SQLiteAdapter) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

func (a *SQLiteAdapter) Engine() string { return "sqlite" }

// Exec runs a statement that returns no rows.
func (a *SQLiteAdapter) Exec(ctx context.Context, sqlStr string, args ...any) error {
	if a.db == nil {
		return fmt.Errorf("sqlite connection not established")
	}
	_, err := a.db.ExecContext(ctx, sqlStr, args...)
	return err
}

// Query runs a statement and returns its rows.
func (a *SQLiteAdapter) Query(ctx context.Context, sqlStr string, args ...any) (*sql.Rows, error) {
	if a.db == nil {
		return nil, fmt.Errorf("sqlite connection not established")
	}
	//nolint:rowserrcheck // rows.Err() is checked by the caller after iteration
	return a.db.QueryContext(ctx, sqlStr, args...)
}

// SchemaCatalog reads NOT NULL constraints via PRAGMA table_info for every
// user table.
func (a *SQLiteAdapter) SchemaCatalog(ctx context.Context) (Catalog, error) {
	if a.db == nil {
		return nil, fmt.Errorf("sqlite connection not established")
	}

	tables, err := a.db.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%'`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer tables.Close()

	var names []string
	for tables.Next() {
		var name string
		if err := tables.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	if err := tables.Err(); err != nil {
		return nil, err
	}

	catalog := make(Catalog, len(names))
	for _, table := range names {
		cols, err := a.db.QueryContext(ctx, fmt.Sprintf(`PRAGMA table_info(%q)`, table))
		if err != nil {
			return nil, fmt.Errorf("failed to read columns of %s: %w", table, err)
		}
		catalog[table] = make(map[string]bool)
		for cols.Next() {
			var (
				cid     int
				name    string
				typ     string
				notNull int
				dflt    sql.NullString
				pk      int
			)
			if err := cols.Scan(&cid, &name, &typ, &notNull, &dflt, &pk); err != nil {
				_ = cols.Close()
				return nil, err
			}
			// INTEGER PRIMARY KEY is an alias for the rowid and never null.
			catalog[table][name] = notNull == 1 || pk == 1
		}
		if err := cols.Err(); err != nil {
			_ = cols.Close()
			return nil, err
		}
		_ = cols.Close()
	}
	return catalog, nil
}
