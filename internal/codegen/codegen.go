// Package codegen emits strongly-typed data-access source for each
// configured (engine, languageApi) pair. Generators are looked up in a
// registry keyed by the pair, so unsupported combinations are rejected at
// configuration time and the compatibility table lives in one place.
package codegen

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/sqlmint-labs/sqlmint/internal/binder"
	"github.com/sqlmint-labs/sqlmint/internal/introspect"
	"github.com/sqlmint-labs/sqlmint/internal/parser"
	"github.com/sqlmint-labs/sqlmint/internal/typemap"
)

// Key identifies one generator: a database engine paired with a language API.
type Key struct {
	Engine string
	API    string
}

func (k Key) String() string { return k.Engine + "/" + k.API }

// File is one emitted source file, with a path relative to the generator
// target's output directory.
type File struct {
	Path    string
	Content []byte
}

// Migration is one schema statement carried verbatim into generated output.
type Migration struct {
	Name string
	SQL  string
}

// Input is everything a generator needs: the ordered migrations and the
// introspected shapes for every Query and Exec statement, in file order.
type Input struct {
	Engine     string
	SourceFile string // base name of the annotated SQL file, e.g. "users.sql"
	Migrations []Migration
	Shapes     []*introspect.QueryShape
}

// Generator emits source files for one (engine, languageApi) pair.
// Generation is pure: identical input produces byte-identical output.
type Generator interface {
	Emit(in *Input) ([]File, error)
}

var (
	registryMu sync.RWMutex
	registry   = make(map[Key]Generator)
)

// Register adds a generator for a pair. Called from init() in each generator.
func Register(key Key, g Generator) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[key] = g
}

// Get returns the generator for a pair.
func Get(engine, api string) (Generator, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	g, ok := registry[Key{Engine: engine, API: api}]
	return g, ok
}

// Supports reports whether a language API declares support for an engine.
func Supports(engine, api string) bool {
	_, ok := Get(engine, api)
	return ok
}

// EnginesFor returns the engines a language API supports, sorted.
func EnginesFor(api string) []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	var engines []string
	for k := range registry {
		if k.API == api {
			engines = append(engines, k.Engine)
		}
	}
	sort.Strings(engines)
	return engines
}

// KnownAPIs returns every registered language API, sorted.
func KnownAPIs() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	seen := make(map[string]bool)
	var apis []string
	for k := range registry {
		if !seen[k.API] {
			seen[k.API] = true
			apis = append(apis, k.API)
		}
	}
	sort.Strings(apis)
	return apis
}

// paramView is one callable parameter with its rendered type.
type paramView struct {
	Name string
	Type string
}

// colView is one result column with its rendered type and scan metadata.
type colView struct {
	Name     string
	Type     string
	Kind     typemap.CanonicalKind
	Nullable bool
}

// stmtView is the per-statement view model shared by all generators.
type stmtView struct {
	Name        string // statement name as written, e.g. getUserById
	ExportName  string // UpperCamel, e.g. GetUserById
	ConstName   string // SCREAMING_SNAKE, e.g. GET_USER_BY_ID
	SQL         string // SQL with this generator's placeholder style
	Occurrences []string
	Params      []paramView
	Columns     []colView
	RowType     string // ExportName + "Row", empty for exec and pluck
	ScalarType  string // rendered type of the single column for pluck
	Single      bool
	Pluck       bool
	Exec        bool
}

// buildViews renders the shapes for one language API using the given
// placeholder style for the emitted SQL.
func buildViews(api string, style binder.Style, in *Input) ([]stmtView, error) {
	views := make([]stmtView, 0, len(in.Shapes))
	for _, shape := range in.Shapes {
		stmt := shape.Statement
		b, err := binder.Bind(stmt, style)
		if err != nil {
			return nil, err
		}

		v := stmtView{
			Name:        stmt.Name,
			ExportName:  exportName(stmt.Name),
			ConstName:   constName(stmt.Name),
			SQL:         b.SQL,
			Occurrences: b.Occurrences,
			Single:      stmt.One,
			Pluck:       stmt.Pluck,
			Exec:        stmt.Kind == parser.KindExec,
		}

		for _, p := range shape.Params {
			typ, err := typemap.Repr(api, p.Type)
			if err != nil {
				return nil, err
			}
			v.Params = append(v.Params, paramView{Name: p.Name, Type: typ})
		}
		for _, c := range shape.Columns {
			typ, err := typemap.Repr(api, c.Type)
			if err != nil {
				return nil, err
			}
			v.Columns = append(v.Columns, colView{
				Name:     c.Name,
				Type:     typ,
				Kind:     c.Type.Kind,
				Nullable: c.Type.Nullable,
			})
		}

		switch {
		case v.Exec:
		case v.Pluck:
			v.ScalarType = v.Columns[0].Type
		default:
			v.RowType = v.ExportName + "Row"
		}
		views = append(views, v)
	}
	return views, nil
}

// exportName converts a statement name to UpperCamelCase.
func exportName(name string) string {
	parts := splitIdent(name)
	var b strings.Builder
	for _, p := range parts {
		b.WriteString(strings.ToUpper(p[:1]) + p[1:])
	}
	return b.String()
}

// constName converts a statement name to SCREAMING_SNAKE_CASE.
func constName(name string) string {
	parts := splitIdent(name)
	for i, p := range parts {
		parts[i] = strings.ToUpper(p)
	}
	return strings.Join(parts, "_")
}

// splitIdent splits camelCase, snake_case and kebab-case identifiers into
// lowercase-preserving segments.
func splitIdent(name string) []string {
	var parts []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			parts = append(parts, cur.String())
			cur.Reset()
		}
	}
	for _, r := range name {
		switch {
		case r == '_' || r == '-':
			flush()
		case r >= 'A' && r <= 'Z':
			flush()
			cur.WriteRune(r - 'A' + 'a')
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	if len(parts) == 0 {
		parts = []string{name}
	}
	return parts
}

// baseName strips the .sql extension from a source file name.
func baseName(sourceFile string) string {
	return strings.TrimSuffix(sourceFile, ".sql")
}

// jsString renders a string as a JavaScript/TypeScript double-quoted literal.
func jsString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\r':
			b.WriteString(`\r`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

// kotlinPlainType strips a trailing ? so callers can re-apply nullability.
func kotlinPlainType(t string) string {
	return strings.TrimSuffix(t, "?")
}

// kotlinString renders a string as a Kotlin triple-quoted raw literal with
// dollar signs escaped, so $1 placeholders survive interpolation.
func kotlinString(s string) string {
	s = strings.ReplaceAll(s, `"""`, `\"\"\"`)
	s = strings.ReplaceAll(s, "$", "${'$'}")
	return `"""` + s + `"""`
}

// UnsupportedPairError describes a generator target whose language API does
// not support the configured engine.
type UnsupportedPairError struct {
	Engine string
	API    string
}

func (e *UnsupportedPairError) Error() string {
	supported := EnginesFor(e.API)
	if len(supported) == 0 {
		return fmt.Sprintf("unknown language API %q\nAvailable APIs: %v", e.API, KnownAPIs())
	}
	return fmt.Sprintf("language API %q does not support engine %q (supports: %v)",
		e.API, e.Engine, supported)
}
