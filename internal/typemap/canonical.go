// Package typemap translates engine-native column types into canonical kinds
// and renders canonical kinds as concrete types for each target language API.
//
// The mapping is two-stage: (engine, nativeTypeTag) -> CanonicalKind answers
// "what does this SQL type mean", and (CanonicalKind, languageApi) -> concrete
// representation answers "how does the target express it". Nullability rides
// orthogonally through both stages. Adding a target language only touches the
// second stage.
package typemap

// CanonicalKind is the engine-agnostic classification of a column's data.
// It is a closed set; the mapper and the generators switch exhaustively on it.
type CanonicalKind int

const (
	KindUnknown CanonicalKind = iota
	KindBool
	KindInt32
	KindInt64
	KindFloat64
	KindDecimal
	KindText
	KindBytes
	KindTimestamp
	KindStruct
	KindList
	KindMap
)

func (k CanonicalKind) String() string {
	switch k {
	case KindBool:
		return "Bool"
	case KindInt32:
		return "Int32"
	case KindInt64:
		return "Int64"
	case KindFloat64:
		return "Float64"
	case KindDecimal:
		return "Decimal"
	case KindText:
		return "Text"
	case KindBytes:
		return "Bytes"
	case KindTimestamp:
		return "Timestamp"
	case KindStruct:
		return "Struct"
	case KindList:
		return "List"
	case KindMap:
		return "Map"
	default:
		return "Unknown"
	}
}

// Field is one named member of a struct type.
type Field struct {
	Name string
	Type *TargetType
}

// TargetType is a resolved column or parameter type. Container kinds carry
// their element types: Elem for List and for Map values, Key for Map keys,
// Fields for Struct members.
type TargetType struct {
	Kind     CanonicalKind
	Nullable bool
	Elem     *TargetType
	Key      *TargetType
	Fields   []Field
}

// WithNullable returns a copy of the type with nullability set.
func (t *TargetType) WithNullable(nullable bool) *TargetType {
	c := *t
	c.Nullable = nullable
	return &c
}
