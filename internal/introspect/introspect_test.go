package introspect

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sqlmint-labs/sqlmint/internal/adapter"
	"github.com/sqlmint-labs/sqlmint/internal/errcode"
	"github.com/sqlmint-labs/sqlmint/internal/parser"
	"github.com/sqlmint-labs/sqlmint/internal/testutil"
	"github.com/sqlmint-labs/sqlmint/internal/typemap"
)

func parseAll(t *testing.T, content string) []*parser.Statement {
	t.Helper()
	stmts, err := parser.New().ParseContent("t.sql", content)
	require.NoError(t, err)
	return stmts
}

func sqliteRunner(t *testing.T) *Runner {
	t.Helper()
	db, err := adapter.New("sqlite", testutil.NewTestLogger(t))
	require.NoError(t, err)
	require.NoError(t, db.Connect(context.Background(), adapter.Config{Engine: "sqlite"}))
	t.Cleanup(func() { _ = db.Close() })
	return NewRunner(db, testutil.NewTestLogger(t))
}

const usersFile = `-- MIGRATE createUsers
CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT NOT NULL, bio TEXT);

-- TESTDATA seedUsers
INSERT INTO users (id, name, bio) VALUES (1, 'ada', NULL), (2, 'grace', 'pioneer');

-- QUERY getUserById :one
@set id = 1
SELECT id, name, bio FROM users WHERE id = ${id};

-- QUERY userNames :pluck
SELECT name FROM users;

-- EXEC deleteUser
@set id = 2
DELETE FROM users WHERE id = ${id};
`

func TestRunner_GetUserByIdScenario(t *testing.T) {
	ctx := context.Background()
	r := sqliteRunner(t)
	stmts := parseAll(t, usersFile)

	require.NoError(t, r.ApplySchema(ctx, stmts))

	var get *parser.Statement
	for _, s := range stmts {
		if s.Name == "getUserById" {
			get = s
		}
	}
	require.NotNil(t, get)

	shape, err := r.Shape(ctx, get)
	require.NoError(t, err)

	assert.Equal(t, Single, shape.Cardinality)
	assert.Equal(t, Rows, shape.Projection)

	require.Len(t, shape.Params, 1)
	assert.Equal(t, "id", shape.Params[0].Name)
	assert.Equal(t, typemap.KindInt64, shape.Params[0].Type.Kind)

	require.Len(t, shape.Columns, 3)
	assert.Equal(t, "id", shape.Columns[0].Name)
	assert.False(t, shape.Columns[0].Type.Nullable, "primary key is non-nullable")
	assert.Equal(t, "name", shape.Columns[1].Name)
	assert.Equal(t, typemap.KindText, shape.Columns[1].Type.Kind)
	assert.False(t, shape.Columns[1].Type.Nullable, "NOT NULL propagates from the source column")
	assert.Equal(t, "bio", shape.Columns[2].Name)
	assert.True(t, shape.Columns[2].Type.Nullable, "unconstrained columns stay nullable")
}

func TestRunner_PluckShape(t *testing.T) {
	ctx := context.Background()
	r := sqliteRunner(t)
	stmts := parseAll(t, usersFile)
	require.NoError(t, r.ApplySchema(ctx, stmts))

	for _, s := range stmts {
		if s.Name != "userNames" {
			continue
		}
		shape, err := r.Shape(ctx, s)
		require.NoError(t, err)
		assert.Equal(t, ScalarColumn, shape.Projection)
		assert.Equal(t, Multiple, shape.Cardinality)
		require.Len(t, shape.Columns, 1)
	}
}

func TestRunner_PluckRejectsMultipleColumns(t *testing.T) {
	ctx := context.Background()
	r := sqliteRunner(t)
	stmts := parseAll(t, `-- MIGRATE m
CREATE TABLE t (a INTEGER, b INTEGER);
-- QUERY bad :pluck
SELECT a, b FROM t;
`)
	require.NoError(t, r.ApplySchema(ctx, stmts))

	_, err := r.Shape(ctx, stmts[1])
	require.Error(t, err)
	var ce *errcode.Error
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, errcode.Validation, ce.Code)
	assert.Equal(t, "bad", ce.Context["statement"])
}

func TestRunner_ExecShapeHasNoColumns(t *testing.T) {
	ctx := context.Background()
	r := sqliteRunner(t)
	stmts := parseAll(t, usersFile)
	require.NoError(t, r.ApplySchema(ctx, stmts))

	for _, s := range stmts {
		if s.Name != "deleteUser" {
			continue
		}
		shape, err := r.Shape(ctx, s)
		require.NoError(t, err)
		assert.Empty(t, shape.Columns)
		require.Len(t, shape.Params, 1)
		assert.Equal(t, typemap.KindInt64, shape.Params[0].Type.Kind)
	}
}

func TestRunner_MigrationOrderMatters(t *testing.T) {
	ctx := context.Background()

	forward := `-- MIGRATE createUsers
CREATE TABLE users (id INTEGER PRIMARY KEY);
-- MIGRATE createOrders
CREATE TABLE orders (id INTEGER PRIMARY KEY, user_id INTEGER NOT NULL REFERENCES users(id));
`
	r := sqliteRunner(t)
	require.NoError(t, r.ApplySchema(ctx, parseAll(t, forward)))

	// swapped order references a table that does not exist yet
	swapped := `-- MIGRATE createOrders
CREATE TABLE orders (id INTEGER PRIMARY KEY, user_id INTEGER NOT NULL REFERENCES users(id));
-- MIGRATE createUsers
CREATE TABLE users (id INTEGER PRIMARY KEY);
`
	r2 := sqliteRunner(t)
	err := r2.ApplySchema(ctx, parseAll(t, swapped))
	require.Error(t, err)
	var ce *errcode.Error
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, errcode.SQLExecution, ce.Code)
	assert.Equal(t, "createOrders", ce.Context["statement"])
}

func TestRunner_ExecutionErrorNamesStatement(t *testing.T) {
	ctx := context.Background()
	r := sqliteRunner(t)
	stmts := parseAll(t, `-- QUERY broken
SELECT no_such_column FROM no_such_table;
`)
	require.NoError(t, r.ApplySchema(ctx, stmts))

	_, err := r.Shape(ctx, stmts[0])
	require.Error(t, err)
	var ce *errcode.Error
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, errcode.SQLExecution, ce.Code)
	assert.Equal(t, "broken", ce.Context["statement"])
}

// mockAdapter wraps a go-sqlmock connection so driver-reported metadata can
// be scripted without a live server.
type mockAdapter struct {
	db      *sql.DB
	catalog adapter.Catalog
	engine  string
}

func (m *mockAdapter) Connect(context.Context, adapter.Config) error { return nil }
func (m *mockAdapter) Close() error                                  { return m.db.Close() }
func (m *mockAdapter) Engine() string                                { return m.engine }

func (m *mockAdapter) Exec(ctx context.Context, sqlStr string, args ...any) error {
	_, err := m.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (m *mockAdapter) Query(ctx context.Context, sqlStr string, args ...any) (*sql.Rows, error) {
	return m.db.QueryContext(ctx, sqlStr, args...)
}

func (m *mockAdapter) SchemaCatalog(context.Context) (adapter.Catalog, error) {
	return m.catalog, nil
}

func TestRunner_DriverReportedNullability(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	query := "SELECT id, email FROM accounts WHERE id = $1"
	cols := []*sqlmock.Column{
		sqlmock.NewColumn("id").OfType("INT8", int64(0)).Nullable(false),
		sqlmock.NewColumn("email").OfType("TEXT", "").Nullable(true),
	}
	mock.ExpectQuery(regexp.QuoteMeta(query)).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRowsWithColumnDefinition(cols...))

	r := NewRunner(&mockAdapter{db: db, engine: "postgres"}, testutil.NewTestLogger(t))
	stmts := parseAll(t, `-- QUERY getAccount :one
@set id = 5
SELECT id, email FROM accounts WHERE id = `+"${id};\n")

	shape, err := r.Shape(context.Background(), stmts[0])
	require.NoError(t, err)
	require.Len(t, shape.Columns, 2)
	assert.Equal(t, typemap.KindInt64, shape.Columns[0].Type.Kind)
	assert.False(t, shape.Columns[0].Type.Nullable, "driver NOT NULL report is trusted")
	assert.Equal(t, typemap.KindText, shape.Columns[1].Type.Kind)
	assert.True(t, shape.Columns[1].Type.Nullable)
	require.NoError(t, mock.ExpectationsWereMet())
}
