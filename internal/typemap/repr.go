package typemap

import (
	"strings"

	"github.com/sqlmint-labs/sqlmint/internal/errcode"
)

// Language API identifiers. These are the values accepted in generator
// configuration and used as registry keys by the code generators.
const (
	APITSSQLiteSync  = "ts-sqlite-sync"
	APITSDuckDBAsync = "ts-duckdb-async"
	APIJVMJDBC       = "jvm-jdbc"
	APIJVMArrow      = "jvm-arrow-columnar"
)

// APIs lists every known language API.
func APIs() []string {
	return []string{APITSSQLiteSync, APITSDuckDBAsync, APIJVMJDBC, APIJVMArrow}
}

// scalar representation tables, one per language API. Container kinds recurse
// through Repr and are handled there.
var tsSQLiteScalars = map[CanonicalKind]string{
	KindBool:      "boolean",
	KindInt32:     "number",
	KindInt64:     "number",
	KindFloat64:   "number",
	KindDecimal:   "string",
	KindText:      "string",
	KindBytes:     "Uint8Array",
	KindTimestamp: "string",
	KindUnknown:   "unknown",
}

var tsDuckDBScalars = map[CanonicalKind]string{
	KindBool:      "boolean",
	KindInt32:     "number",
	KindInt64:     "bigint",
	KindFloat64:   "number",
	KindDecimal:   "string",
	KindText:      "string",
	KindBytes:     "Uint8Array",
	KindTimestamp: "Date",
	KindUnknown:   "unknown",
}

var kotlinScalars = map[CanonicalKind]string{
	KindBool:      "Boolean",
	KindInt32:     "Int",
	KindInt64:     "Long",
	KindFloat64:   "Double",
	KindDecimal:   "java.math.BigDecimal",
	KindText:      "String",
	KindBytes:     "ByteArray",
	KindTimestamp: "java.time.LocalDateTime",
	KindUnknown:   "Any",
}

// Repr renders a resolved type as source text for the given language API.
// Nullable types render as the target's idiomatic optional form: `T | null`
// in TypeScript, `T?` in Kotlin.
func Repr(api string, t *TargetType) (string, error) {
	switch api {
	case APITSSQLiteSync:
		return tsRepr(api, t, tsSQLiteScalars)
	case APITSDuckDBAsync:
		return tsRepr(api, t, tsDuckDBScalars)
	case APIJVMJDBC, APIJVMArrow:
		return kotlinRepr(api, t)
	}
	return "", errcode.Newf(errcode.InvalidGenerator,
		"Supported language APIs: "+strings.Join(APIs(), ", ")+".",
		"unknown language API %q", api)
}

func tsRepr(api string, t *TargetType, scalars map[CanonicalKind]string) (string, error) {
	bare, err := tsBare(api, t, scalars)
	if err != nil {
		return "", err
	}
	if t.Nullable {
		return bare + " | null", nil
	}
	return bare, nil
}

func tsBare(api string, t *TargetType, scalars map[CanonicalKind]string) (string, error) {
	switch t.Kind {
	case KindList:
		elem, err := tsRepr(api, t.Elem, scalars)
		if err != nil {
			return "", err
		}
		if strings.ContainsAny(elem, " |") {
			return "(" + elem + ")[]", nil
		}
		return elem + "[]", nil
	case KindMap:
		key, err := tsRepr(api, t.Key, scalars)
		if err != nil {
			return "", err
		}
		val, err := tsRepr(api, t.Elem, scalars)
		if err != nil {
			return "", err
		}
		return "Map<" + key + ", " + val + ">", nil
	case KindStruct:
		var b strings.Builder
		b.WriteString("{ ")
		for i, f := range t.Fields {
			if i > 0 {
				b.WriteString("; ")
			}
			ft, err := tsRepr(api, f.Type, scalars)
			if err != nil {
				return "", err
			}
			b.WriteString(f.Name + ": " + ft)
		}
		b.WriteString(" }")
		return b.String(), nil
	}
	if s, ok := scalars[t.Kind]; ok {
		return s, nil
	}
	return "", reprError(api, t.Kind)
}

func kotlinRepr(api string, t *TargetType) (string, error) {
	bare, err := kotlinBare(api, t)
	if err != nil {
		return "", err
	}
	if t.Nullable {
		return bare + "?", nil
	}
	return bare, nil
}

func kotlinBare(api string, t *TargetType) (string, error) {
	switch t.Kind {
	case KindList:
		elem, err := kotlinRepr(api, t.Elem)
		if err != nil {
			return "", err
		}
		return "List<" + elem + ">", nil
	case KindMap:
		key, err := kotlinRepr(api, t.Key)
		if err != nil {
			return "", err
		}
		val, err := kotlinRepr(api, t.Elem)
		if err != nil {
			return "", err
		}
		return "Map<" + key + ", " + val + ">", nil
	case KindStruct:
		// JDBC and Arrow both surface nested structs generically.
		return "Map<String, Any?>", nil
	}
	if s, ok := kotlinScalars[t.Kind]; ok {
		return s, nil
	}
	return "", reprError(api, t.Kind)
}

func reprError(api string, kind CanonicalKind) error {
	return errcode.Newf(errcode.TypeMapping,
		"This canonical kind has no representation for the target; cast the column in SQL.",
		"no %s representation for canonical kind %s", api, kind).
		With("languageApi", api).
		With("canonicalKind", kind.String())
}
