package adapter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sqlmint-labs/sqlmint/internal/testutil"
)

func openSQLite(t *testing.T) *SQLiteAdapter {
	t.Helper()
	a := &SQLiteAdapter{logger: testutil.NewTestLogger(t)}
	require.NoError(t, a.Connect(context.Background(), Config{Engine: "sqlite"}))
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestSQLiteAdapter_ExecAndQuery(t *testing.T) {
	ctx := context.Background()
	a := openSQLite(t)

	require.NoError(t, a.Exec(ctx,
		`CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT NOT NULL, bio TEXT)`))
	require.NoError(t, a.Exec(ctx,
		`INSERT INTO users (id, name) VALUES (?, ?)`, int64(1), "ada"))

	rows, err := a.Query(ctx, `SELECT id, name, bio FROM users WHERE id = ?`, int64(1))
	require.NoError(t, err)
	defer rows.Close()

	require.True(t, rows.Next())
	var (
		id   int64
		name string
		bio  any
	)
	require.NoError(t, rows.Scan(&id, &name, &bio))
	assert.Equal(t, int64(1), id)
	assert.Equal(t, "ada", name)
	assert.Nil(t, bio)
	require.NoError(t, rows.Err())
}

func TestSQLiteAdapter_SchemaCatalog(t *testing.T) {
	ctx := context.Background()
	a := openSQLite(t)

	require.NoError(t, a.Exec(ctx,
		`CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT NOT NULL, bio TEXT)`))
	require.NoError(t, a.Exec(ctx,
		`CREATE TABLE orders (id INTEGER PRIMARY KEY, total NUMERIC NOT NULL)`))

	catalog, err := a.SchemaCatalog(ctx)
	require.NoError(t, err)

	require.Contains(t, catalog, "users")
	require.Contains(t, catalog, "orders")
	assert.True(t, catalog["users"]["name"])
	assert.False(t, catalog["users"]["bio"])
	assert.True(t, catalog["users"]["id"], "integer primary key is never null")

	assert.True(t, catalog.NotNull("name"))
	assert.False(t, catalog.NotNull("bio"))
	assert.False(t, catalog.NotNull("id"), "id is ambiguous across tables")
}

func TestSQLiteAdapter_ResultMetadata(t *testing.T) {
	ctx := context.Background()
	a := openSQLite(t)

	require.NoError(t, a.Exec(ctx,
		`CREATE TABLE t (n INTEGER NOT NULL, s TEXT)`))

	rows, err := a.Query(ctx, `SELECT n, s FROM t`)
	require.NoError(t, err)
	defer rows.Close()

	cols, err := rows.ColumnTypes()
	require.NoError(t, err)
	require.Len(t, cols, 2)
	assert.Equal(t, "INTEGER", cols[0].DatabaseTypeName())
	assert.Equal(t, "TEXT", cols[1].DatabaseTypeName())
}
