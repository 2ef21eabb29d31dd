// Package introspect executes annotated statements against a live ephemeral
// instance and derives query shapes: parameter types, result columns with
// engine-native types, cardinality and projection.
//
// Types are discovered operationally, from what the engine reports for the
// executed statement, never by static analysis of the SQL text.
package introspect

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/sqlmint-labs/sqlmint/internal/adapter"
	"github.com/sqlmint-labs/sqlmint/internal/binder"
	"github.com/sqlmint-labs/sqlmint/internal/errcode"
	"github.com/sqlmint-labs/sqlmint/internal/parser"
	"github.com/sqlmint-labs/sqlmint/internal/typemap"
)

// Column is one introspected result column.
type Column struct {
	Name       string
	NativeType string
	Type       *typemap.TargetType
	Ordinal    int
}

// Cardinality says whether a query yields one row or a sequence.
type Cardinality int

const (
	Multiple Cardinality = iota
	Single
)

// Projection says whether a query yields rows or a bare scalar column.
type Projection int

const (
	Rows Projection = iota
	ScalarColumn
)

// Param is one introspected statement parameter.
type Param struct {
	Name string
	Type *typemap.TargetType
}

// QueryShape is the introspection result for one Query or Exec statement.
type QueryShape struct {
	Statement   *parser.Statement
	Bound       *binder.Bound
	Params      []Param  // distinct parameters in bind order
	Columns     []Column // empty for Exec
	Cardinality Cardinality
	Projection  Projection
}

// Runner drives one ephemeral instance through schema application and
// per-statement introspection. It is single-use and not safe for concurrent
// statements; later statements may depend on state established earlier.
type Runner struct {
	db      adapter.Adapter
	style   binder.Style
	catalog adapter.Catalog
	logger  *slog.Logger
}

// NewRunner creates a runner over a connected adapter.
func NewRunner(db adapter.Adapter, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Runner{
		db:     db,
		style:  binder.StyleFor(db.Engine()),
		logger: logger,
	}
}

// ApplySchema runs every migration in declaration order, then every fixture,
// inside the instance's single session. Any failure is fatal; there is no
// partial-schema fallback.
func (r *Runner) ApplySchema(ctx context.Context, stmts []*parser.Statement) error {
	for _, kind := range []parser.Kind{parser.KindMigration, parser.KindFixture} {
		for _, s := range stmts {
			if s.Kind != kind {
				continue
			}
			b, err := binder.Bind(s, r.style)
			if err != nil {
				return err
			}
			r.logger.Debug("applying statement",
				slog.String("kind", s.Kind.String()), slog.String("name", s.Name))
			if err := r.db.Exec(ctx, b.SQL, b.Args...); err != nil {
				return errcode.Wrap(errcode.SQLExecution,
					"statement "+s.Name+" failed against "+r.db.Engine(),
					"Fix the statement's SQL; migrations and fixtures run strictly in declaration order.",
					err).With("statement", s.Name)
			}
		}
	}

	catalog, err := r.db.SchemaCatalog(ctx)
	if err != nil {
		return errcode.Wrap(errcode.Database,
			"failed to read schema metadata",
			"Check that the ephemeral instance is reachable.", err)
	}
	r.catalog = catalog
	return nil
}

// Shape executes one Query or Exec statement and returns its QueryShape.
func (r *Runner) Shape(ctx context.Context, stmt *parser.Statement) (*QueryShape, error) {
	b, err := binder.Bind(stmt, r.style)
	if err != nil {
		return nil, err
	}

	shape := &QueryShape{
		Statement:   stmt,
		Bound:       b,
		Cardinality: Multiple,
		Projection:  Rows,
	}
	if stmt.One {
		shape.Cardinality = Single
	}
	if stmt.Pluck {
		shape.Projection = ScalarColumn
	}
	for _, p := range b.Params {
		shape.Params = append(shape.Params, Param{Name: p.Name, Type: paramType(p.Literal)})
	}

	if stmt.Kind == parser.KindExec {
		if err := r.db.Exec(ctx, b.SQL, b.Args...); err != nil {
			return nil, execError(stmt, r.db.Engine(), err)
		}
		return shape, nil
	}

	rows, err := r.db.Query(ctx, b.SQL, b.Args...)
	if err != nil {
		return nil, execError(stmt, r.db.Engine(), err)
	}
	defer rows.Close()

	cols, err := rows.ColumnTypes()
	if err != nil {
		return nil, execError(stmt, r.db.Engine(), err)
	}

	for i, ct := range cols {
		nullable := r.columnNullable(ct)
		target, err := typemap.Canonical(r.db.Engine(), ct.DatabaseTypeName(), nullable)
		if err != nil {
			if ce, ok := err.(*errcode.Error); ok {
				return nil, ce.With("statement", stmt.Name).With("column", ct.Name())
			}
			return nil, err
		}
		shape.Columns = append(shape.Columns, Column{
			Name:       ct.Name(),
			NativeType: ct.DatabaseTypeName(),
			Type:       target,
			Ordinal:    i,
		})
	}

	if stmt.Pluck && len(shape.Columns) != 1 {
		return nil, errcode.Newf(errcode.Validation,
			"A :pluck query must select exactly one column.",
			"statement %q is marked :pluck but projects %d columns",
			stmt.Name, len(shape.Columns)).
			With("statement", stmt.Name).
			With("columns", len(shape.Columns))
	}

	return shape, rows.Err()
}

// columnNullable resolves a result column's nullability. A definite NOT NULL
// report from the driver is trusted. Drivers commonly report "nullable" when
// they simply do not know, so a nullable report is treated as unknown and the
// schema catalog may still prove the column NOT NULL; the disagreement is
// logged rather than silently overridden. Anything unresolvable defaults to
// nullable.
func (r *Runner) columnNullable(ct *sql.ColumnType) bool {
	driverNullable, reported := ct.Nullable()
	if reported && !driverNullable {
		return false
	}
	if r.catalog.NotNull(ct.Name()) {
		if reported && driverNullable {
			r.logger.Debug("driver reports nullable but schema declares NOT NULL; trusting schema",
				slog.String("column", ct.Name()))
		}
		return false
	}
	return true
}

// paramType derives a parameter's type from its sample literal. The binder
// preserves the literal's declared type, so the sample kind is authoritative.
func paramType(l parser.Literal) *typemap.TargetType {
	switch l.Kind {
	case parser.LiteralString:
		return &typemap.TargetType{Kind: typemap.KindText}
	case parser.LiteralInt:
		return &typemap.TargetType{Kind: typemap.KindInt64}
	case parser.LiteralDecimal:
		return &typemap.TargetType{Kind: typemap.KindDecimal}
	case parser.LiteralBool:
		return &typemap.TargetType{Kind: typemap.KindBool}
	default:
		return &typemap.TargetType{Kind: typemap.KindUnknown, Nullable: true}
	}
}

func execError(stmt *parser.Statement, engine string, err error) error {
	return errcode.Wrap(errcode.SQLExecution,
		"statement "+stmt.Name+" failed against "+engine,
		"The SQL parsed but the engine rejected it; check the statement and its sample values.",
		err).With("statement", stmt.Name)
}
