// Package adapter provides database adapters for the ephemeral introspection
// instances. An adapter owns one throwaway database per generation job: it is
// connected at job start, populated by migrations and fixtures, queried for
// type metadata, and torn down on every exit path.
package adapter

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// Config holds connection settings for an ephemeral instance.
type Config struct {
	// Engine is the database engine: sqlite, duckdb or postgres.
	Engine string

	// URL is the connection string for network engines (postgres). It is
	// supplied by the caller via the environment; sqlmint does not manage
	// credentials or pooling.
	URL string
}

// Catalog records NOT NULL constraints discovered from the applied schema,
// keyed by table name then column name. It backs the nullability fallback for
// result columns the driver cannot classify.
type Catalog map[string]map[string]bool

// NotNull reports whether a column named name is declared NOT NULL in exactly
// one table of the schema. Ambiguous names (present in several tables) are
// treated as unknown and stay nullable.
func (c Catalog) NotNull(name string) bool {
	found := 0
	notNull := false
	for _, cols := range c {
		if nn, ok := cols[name]; ok {
			found++
			notNull = nn
		}
	}
	return found == 1 && notNull
}

// Adapter is one live ephemeral database instance.
type Adapter interface {
	// Connect establishes the instance. For file-based engines this is an
	// in-memory database; for postgres it is a throwaway schema on the
	// configured server.
	Connect(ctx context.Context, cfg Config) error

	// Close releases the instance and removes anything it created.
	Close() error

	// Exec runs a statement that returns no rows.
	Exec(ctx context.Context, sql string, args ...any) error

	// Query runs a statement and returns its rows. Callers own the rows and
	// must close them.
	Query(ctx context.Context, sql string, args ...any) (*sql.Rows, error)

	// SchemaCatalog reads NOT NULL constraints for every table created so far.
	SchemaCatalog(ctx context.Context) (Catalog, error)

	// Engine returns the engine name this adapter serves.
	Engine() string
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]func(*slog.Logger) Adapter)
)

// Register adds an adapter factory. Called from init() in each implementation.
func Register(engine string, factory func(*slog.Logger) Adapter) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[engine] = factory
}

// New creates an adapter for the engine. A nil logger uses a discard logger.
func New(engine string, logger *slog.Logger) (Adapter, error) {
	registryMu.RLock()
	factory, ok := registry[engine]
	registryMu.RUnlock()
	if !ok {
		return nil, &UnknownEngineError{Engine: engine, Available: Engines()}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return factory(logger), nil
}

// Engines returns all registered engine names, sorted.
func Engines() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRegistered checks whether an engine has an adapter.
func IsRegistered(engine string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[engine]
	return ok
}

// UnknownEngineError is returned for an engine with no registered adapter.
type UnknownEngineError struct {
	Engine    string
	Available []string
}

func (e *UnknownEngineError) Error() string {
	return fmt.Sprintf("unknown engine %q\nAvailable engines: %v\nHint: Check the engine field in sqlmint.yaml", e.Engine, e.Available)
}
