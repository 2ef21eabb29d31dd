package typemap

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sqlmint-labs/sqlmint/internal/errcode"
)

func TestCanonical_Scalars(t *testing.T) {
	tests := []struct {
		engine string
		native string
		kind   CanonicalKind
	}{
		{"sqlite", "INTEGER", KindInt64},
		{"sqlite", "TEXT", KindText},
		{"sqlite", "varchar(30)", KindText},
		{"sqlite", "REAL", KindFloat64},
		{"sqlite", "NUMERIC", KindDecimal},
		{"sqlite", "BLOB", KindBytes},
		{"sqlite", "BOOLEAN", KindBool},
		{"sqlite", "DATETIME", KindTimestamp},
		{"sqlite", "MEDIUMINT", KindInt64}, // affinity fallback
		{"duckdb", "INTEGER", KindInt32},
		{"duckdb", "BIGINT", KindInt64},
		{"duckdb", "HUGEINT", KindDecimal},
		{"duckdb", "DECIMAL(10,2)", KindDecimal},
		{"duckdb", "VARCHAR", KindText},
		{"duckdb", "TIMESTAMP WITH TIME ZONE", KindTimestamp},
		{"postgres", "INT4", KindInt32},
		{"postgres", "INT8", KindInt64},
		{"postgres", "NUMERIC", KindDecimal},
		{"postgres", "TIMESTAMPTZ", KindTimestamp},
		{"postgres", "JSONB", KindText},
		{"postgres", "BYTEA", KindBytes},
	}

	for _, tt := range tests {
		got, err := Canonical(tt.engine, tt.native, false)
		require.NoError(t, err, "%s/%s", tt.engine, tt.native)
		assert.Equal(t, tt.kind, got.Kind, "%s/%s", tt.engine, tt.native)
	}
}

func TestCanonical_EmptyTagIsUnknown(t *testing.T) {
	got, err := Canonical("sqlite", "", true)
	require.NoError(t, err)
	assert.Equal(t, KindUnknown, got.Kind)
	assert.True(t, got.Nullable)
}

func TestCanonical_UnknownTag(t *testing.T) {
	_, err := Canonical("postgres", "TSVECTOR", false)
	require.Error(t, err)
	var ce *errcode.Error
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, errcode.TypeMapping, ce.Code)
	assert.Equal(t, "TSVECTOR", ce.Context["nativeType"])
}

func TestCanonical_DuckDBList(t *testing.T) {
	got, err := Canonical("duckdb", "INTEGER[]", true)
	require.NoError(t, err)
	assert.Equal(t, KindList, got.Kind)
	require.NotNil(t, got.Elem)
	assert.Equal(t, KindInt32, got.Elem.Kind)

	got, err = Canonical("duckdb", "VARCHAR[][]", false)
	require.NoError(t, err)
	assert.Equal(t, KindList, got.Kind)
	assert.Equal(t, KindList, got.Elem.Kind)
	assert.Equal(t, KindText, got.Elem.Elem.Kind)
}

func TestCanonical_DuckDBStruct(t *testing.T) {
	got, err := Canonical("duckdb", "STRUCT(id INTEGER, tags VARCHAR[])", false)
	require.NoError(t, err)
	assert.Equal(t, KindStruct, got.Kind)
	require.Len(t, got.Fields, 2)
	assert.Equal(t, "id", got.Fields[0].Name)
	assert.Equal(t, KindInt32, got.Fields[0].Type.Kind)
	assert.Equal(t, "tags", got.Fields[1].Name)
	assert.Equal(t, KindList, got.Fields[1].Type.Kind)
}

func TestCanonical_DuckDBMap(t *testing.T) {
	got, err := Canonical("duckdb", "MAP(VARCHAR, BIGINT)", false)
	require.NoError(t, err)
	assert.Equal(t, KindMap, got.Kind)
	assert.Equal(t, KindText, got.Key.Kind)
	assert.Equal(t, KindInt64, got.Elem.Kind)
}

func TestCanonical_PostgresArray(t *testing.T) {
	got, err := Canonical("postgres", "_TEXT", false)
	require.NoError(t, err)
	assert.Equal(t, KindList, got.Kind)
	assert.Equal(t, KindText, got.Elem.Kind)
}

func TestRepr_TypeScript(t *testing.T) {
	tests := []struct {
		api  string
		typ  *TargetType
		want string
	}{
		{APITSSQLiteSync, &TargetType{Kind: KindInt64}, "number"},
		{APITSSQLiteSync, &TargetType{Kind: KindText, Nullable: true}, "string | null"},
		{APITSDuckDBAsync, &TargetType{Kind: KindInt64}, "bigint"},
		{APITSDuckDBAsync, &TargetType{Kind: KindTimestamp}, "Date"},
		{APITSDuckDBAsync, &TargetType{Kind: KindList, Elem: &TargetType{Kind: KindInt32}}, "number[]"},
		{APITSDuckDBAsync, &TargetType{
			Kind: KindList,
			Elem: &TargetType{Kind: KindText, Nullable: true},
		}, "(string | null)[]"},
		{APITSDuckDBAsync, &TargetType{
			Kind: KindMap,
			Key:  &TargetType{Kind: KindText},
			Elem: &TargetType{Kind: KindInt64},
		}, "Map<string, bigint>"},
		{APITSDuckDBAsync, &TargetType{
			Kind: KindStruct,
			Fields: []Field{
				{Name: "id", Type: &TargetType{Kind: KindInt32}},
				{Name: "name", Type: &TargetType{Kind: KindText, Nullable: true}},
			},
		}, "{ id: number; name: string | null }"},
	}

	for _, tt := range tests {
		got, err := Repr(tt.api, tt.typ)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestRepr_Kotlin(t *testing.T) {
	tests := []struct {
		typ  *TargetType
		want string
	}{
		{&TargetType{Kind: KindInt64}, "Long"},
		{&TargetType{Kind: KindText, Nullable: true}, "String?"},
		{&TargetType{Kind: KindDecimal}, "java.math.BigDecimal"},
		{&TargetType{Kind: KindList, Elem: &TargetType{Kind: KindInt64, Nullable: true}}, "List<Long?>"},
		{&TargetType{Kind: KindStruct}, "Map<String, Any?>"},
	}

	for _, tt := range tests {
		got, err := Repr(APIJVMJDBC, tt.typ)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

// Every native tag an engine can report through supported schema constructs
// must map for every declared-compatible language API.
func TestMapping_Totality(t *testing.T) {
	engines := map[string][]string{
		"sqlite":   keys(sqliteKinds),
		"duckdb":   keys(duckdbKinds),
		"postgres": keys(postgresKinds),
	}
	compatible := map[string][]string{
		"sqlite":   {APITSSQLiteSync, APIJVMJDBC},
		"duckdb":   {APITSDuckDBAsync, APIJVMJDBC, APIJVMArrow},
		"postgres": {APIJVMJDBC},
	}

	for engine, tags := range engines {
		for _, tag := range tags {
			for _, nullable := range []bool{false, true} {
				tt, err := Canonical(engine, tag, nullable)
				require.NoError(t, err, "%s/%s", engine, tag)
				for _, api := range compatible[engine] {
					_, err := Repr(api, tt)
					require.NoError(t, err, "%s/%s via %s", engine, tag, api)
				}
			}
		}
	}
}

func keys(m map[string]CanonicalKind) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
