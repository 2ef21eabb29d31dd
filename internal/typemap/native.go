package typemap

import (
	"strings"

	"github.com/sqlmint-labs/sqlmint/internal/errcode"
)

// sqliteKinds maps SQLite declared types to canonical kinds. SQLite reports
// the declared column type, so the table is keyed by the common declarations;
// anything else falls through to affinity rules below.
var sqliteKinds = map[string]CanonicalKind{
	"INTEGER":   KindInt64,
	"INT":       KindInt64,
	"BIGINT":    KindInt64,
	"SMALLINT":  KindInt64,
	"TINYINT":   KindInt64,
	"TEXT":      KindText,
	"VARCHAR":   KindText,
	"CHAR":      KindText,
	"CLOB":      KindText,
	"REAL":      KindFloat64,
	"DOUBLE":    KindFloat64,
	"FLOAT":     KindFloat64,
	"NUMERIC":   KindDecimal,
	"DECIMAL":   KindDecimal,
	"BLOB":      KindBytes,
	"BOOLEAN":   KindBool,
	"DATE":      KindTimestamp,
	"DATETIME":  KindTimestamp,
	"TIMESTAMP": KindTimestamp,
}

var duckdbKinds = map[string]CanonicalKind{
	"BOOLEAN":                  KindBool,
	"TINYINT":                  KindInt32,
	"SMALLINT":                 KindInt32,
	"INTEGER":                  KindInt32,
	"UTINYINT":                 KindInt32,
	"USMALLINT":                KindInt32,
	"UINTEGER":                 KindInt64,
	"BIGINT":                   KindInt64,
	"UBIGINT":                  KindDecimal,
	"HUGEINT":                  KindDecimal,
	"FLOAT":                    KindFloat64,
	"REAL":                     KindFloat64,
	"DOUBLE":                   KindFloat64,
	"DECIMAL":                  KindDecimal,
	"VARCHAR":                  KindText,
	"STRING":                   KindText,
	"TEXT":                     KindText,
	"UUID":                     KindText,
	"JSON":                     KindText,
	"BLOB":                     KindBytes,
	"BYTEA":                    KindBytes,
	"DATE":                     KindTimestamp,
	"TIME":                     KindTimestamp,
	"TIMESTAMP":                KindTimestamp,
	"TIMESTAMP WITH TIME ZONE": KindTimestamp,
	"TIMESTAMPTZ":              KindTimestamp,
	"INTERVAL":                 KindText,
}

// postgresKinds is keyed by the pgx driver's DatabaseTypeName values.
var postgresKinds = map[string]CanonicalKind{
	"BOOL":        KindBool,
	"INT2":        KindInt32,
	"INT4":        KindInt32,
	"INT8":        KindInt64,
	"FLOAT4":      KindFloat64,
	"FLOAT8":      KindFloat64,
	"NUMERIC":     KindDecimal,
	"TEXT":        KindText,
	"VARCHAR":     KindText,
	"BPCHAR":      KindText,
	"NAME":        KindText,
	"UUID":        KindText,
	"JSON":        KindText,
	"JSONB":       KindText,
	"XML":         KindText,
	"BYTEA":       KindBytes,
	"DATE":        KindTimestamp,
	"TIME":        KindTimestamp,
	"TIMETZ":      KindTimestamp,
	"TIMESTAMP":   KindTimestamp,
	"TIMESTAMPTZ": KindTimestamp,
	"INTERVAL":    KindText,
}

// Canonical resolves an engine-native type tag to a TargetType. Nested DuckDB
// types (LIST, STRUCT, MAP) are resolved recursively. An unmappable tag is a
// TYPE_MAPPING_ERROR; an empty tag (expression columns on engines that report
// none) resolves to Unknown rather than failing.
func Canonical(engine, native string, nullable bool) (*TargetType, error) {
	tag := strings.ToUpper(strings.TrimSpace(native))
	if tag == "" {
		return &TargetType{Kind: KindUnknown, Nullable: nullable}, nil
	}

	switch engine {
	case "sqlite":
		return canonicalSQLite(tag, nullable)
	case "duckdb":
		return canonicalDuckDB(tag, nullable)
	case "postgres":
		return canonicalPostgres(tag, nullable)
	}
	return nil, errcode.Newf(errcode.InvalidEngine,
		"Supported engines are sqlite, duckdb and postgres.",
		"unknown engine %q", engine)
}

func canonicalSQLite(tag string, nullable bool) (*TargetType, error) {
	base := stripPrecision(tag)
	if k, ok := sqliteKinds[base]; ok {
		return &TargetType{Kind: k, Nullable: nullable}, nil
	}
	// SQLite affinity rules for uncommon declarations.
	switch {
	case strings.Contains(base, "INT"):
		return &TargetType{Kind: KindInt64, Nullable: nullable}, nil
	case strings.Contains(base, "CHAR") || strings.Contains(base, "CLOB") || strings.Contains(base, "TEXT"):
		return &TargetType{Kind: KindText, Nullable: nullable}, nil
	case strings.Contains(base, "REAL") || strings.Contains(base, "FLOA") || strings.Contains(base, "DOUB"):
		return &TargetType{Kind: KindFloat64, Nullable: nullable}, nil
	case strings.Contains(base, "BLOB"):
		return &TargetType{Kind: KindBytes, Nullable: nullable}, nil
	}
	return nil, mappingError("sqlite", tag)
}

func canonicalDuckDB(tag string, nullable bool) (*TargetType, error) {
	// LIST written as element type plus [] suffix
	if strings.HasSuffix(tag, "[]") {
		elem, err := canonicalDuckDB(strings.TrimSuffix(tag, "[]"), false)
		if err != nil {
			return nil, err
		}
		return &TargetType{Kind: KindList, Nullable: nullable, Elem: elem}, nil
	}
	if inner, ok := unwrap(tag, "LIST"); ok {
		elem, err := canonicalDuckDB(inner, false)
		if err != nil {
			return nil, err
		}
		return &TargetType{Kind: KindList, Nullable: nullable, Elem: elem}, nil
	}
	if inner, ok := unwrap(tag, "MAP"); ok {
		parts := splitTopLevel(inner)
		if len(parts) != 2 {
			return nil, mappingError("duckdb", tag)
		}
		key, err := canonicalDuckDB(parts[0], false)
		if err != nil {
			return nil, err
		}
		val, err := canonicalDuckDB(parts[1], false)
		if err != nil {
			return nil, err
		}
		return &TargetType{Kind: KindMap, Nullable: nullable, Key: key, Elem: val}, nil
	}
	if inner, ok := unwrap(tag, "STRUCT"); ok {
		var fields []Field
		for _, part := range splitTopLevel(inner) {
			name, typ, ok := splitField(part)
			if !ok {
				return nil, mappingError("duckdb", tag)
			}
			ft, err := canonicalDuckDB(typ, true)
			if err != nil {
				return nil, err
			}
			fields = append(fields, Field{Name: name, Type: ft})
		}
		return &TargetType{Kind: KindStruct, Nullable: nullable, Fields: fields}, nil
	}

	if k, ok := duckdbKinds[stripPrecision(tag)]; ok {
		return &TargetType{Kind: k, Nullable: nullable}, nil
	}
	return nil, mappingError("duckdb", tag)
}

func canonicalPostgres(tag string, nullable bool) (*TargetType, error) {
	// pgx reports array types with a leading underscore.
	if strings.HasPrefix(tag, "_") {
		elem, err := canonicalPostgres(tag[1:], false)
		if err != nil {
			return nil, err
		}
		return &TargetType{Kind: KindList, Nullable: nullable, Elem: elem}, nil
	}
	if k, ok := postgresKinds[stripPrecision(tag)]; ok {
		return &TargetType{Kind: k, Nullable: nullable}, nil
	}
	return nil, mappingError("postgres", tag)
}

func mappingError(engine, tag string) error {
	return errcode.Newf(errcode.TypeMapping,
		"This native type has no declared mapping; cast the column to a supported type in SQL.",
		"no type mapping for %s type %q", engine, tag).
		With("engine", engine).
		With("nativeType", tag)
}

// stripPrecision removes a trailing (p[,s]) from a type tag like DECIMAL(10,2)
// or VARCHAR(20).
func stripPrecision(tag string) string {
	if i := strings.IndexByte(tag, '('); i > 0 && strings.HasSuffix(tag, ")") {
		return strings.TrimSpace(tag[:i])
	}
	return tag
}

// unwrap returns the inner text of prefix(...) if tag has that shape.
func unwrap(tag, prefix string) (string, bool) {
	if strings.HasPrefix(tag, prefix+"(") && strings.HasSuffix(tag, ")") {
		return tag[len(prefix)+1 : len(tag)-1], true
	}
	return "", false
}

// splitTopLevel splits on commas that are not nested inside parentheses.
func splitTopLevel(s string) []string {
	var parts []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	parts = append(parts, strings.TrimSpace(s[start:]))
	return parts
}

// splitField splits a STRUCT member "name TYPE" on the first space outside
// quotes. DuckDB quotes field names containing spaces.
func splitField(s string) (name, typ string, ok bool) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, `"`) {
		end := strings.Index(s[1:], `"`)
		if end < 0 {
			return "", "", false
		}
		return s[1 : end+1], strings.TrimSpace(s[end+2:]), true
	}
	i := strings.IndexByte(s, ' ')
	if i < 0 {
		return "", "", false
	}
	return s[:i], strings.TrimSpace(s[i+1:]), true
}
