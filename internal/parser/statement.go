package parser

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/sqlmint-labs/sqlmint/internal/errcode"
)

// Kind classifies a statement by its directive.
type Kind int

const (
	KindMigration Kind = iota
	KindQuery
	KindExec
	KindFixture
)

func (k Kind) String() string {
	switch k {
	case KindMigration:
		return "MIGRATE"
	case KindQuery:
		return "QUERY"
	case KindExec:
		return "EXEC"
	case KindFixture:
		return "TESTDATA"
	default:
		return "UNKNOWN"
	}
}

// Class returns the namespace a kind belongs to. Migrations and fixtures
// share one namespace, queries and execs another; name collisions are only
// an error within the same class.
func (k Kind) Class() string {
	if k == KindMigration || k == KindFixture {
		return "schema"
	}
	return "data"
}

// Position is a location in a source SQL file.
type Position struct {
	File   string
	Line   int
	Column int
}

func (p Position) String() string {
	if p.File == "" {
		return fmt.Sprintf("%d:%d", p.Line, p.Column)
	}
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Column)
}

// LiteralKind classifies an @set sample literal.
type LiteralKind int

const (
	LiteralNull LiteralKind = iota
	LiteralString
	LiteralInt
	LiteralDecimal
	LiteralBool
)

// Literal is a parsed @set sample value. The declared type of the literal is
// preserved through binding so a numeric sample feeds a numeric bind slot
// even where the SQL would also accept a string.
type Literal struct {
	Kind LiteralKind
	Text string // source text as written

	Str  string
	Int  int64
	Dec  decimal.Decimal
	Bool bool
}

// Value returns the literal as a driver-bindable value.
func (l Literal) Value() any {
	switch l.Kind {
	case LiteralNull:
		return nil
	case LiteralString:
		return l.Str
	case LiteralInt:
		return l.Int
	case LiteralDecimal:
		// Bind decimals by exact string form; every supported driver parses
		// numeric text without going through a float64.
		return l.Dec.String()
	case LiteralBool:
		return l.Bool
	default:
		return nil
	}
}

// Parameter is one declared @set variable on a statement.
type Parameter struct {
	Name    string
	Literal Literal
	Ordinal int // declaration order within the statement
	Line    int // source line of the @set declaration
}

// VarRef is the first ${var} reference site of a variable in a statement.
type VarRef struct {
	Name string
	Pos  Position
}

// Statement is one directive-annotated SQL statement.
type Statement struct {
	Kind   Kind
	Name   string
	One    bool // :one modifier
	Pluck  bool // :pluck modifier
	SQL    string
	Params []Parameter
	Refs   []VarRef
	Pos    Position
}

// Param returns the declared parameter with the given name.
func (s *Statement) Param(name string) (Parameter, bool) {
	for _, p := range s.Params {
		if p.Name == name {
			return p, true
		}
	}
	return Parameter{}, false
}

// Ref returns the first reference position of a variable.
func (s *Statement) Ref(name string) (Position, bool) {
	for _, r := range s.Refs {
		if r.Name == name {
			return r.Pos, true
		}
	}
	return Position{}, false
}

// parseLiteral parses an @set right-hand side: a quoted string, a numeric
// literal, TRUE/FALSE, or NULL.
func parseLiteral(text string, pos Position) (Literal, *errcode.Error) {
	text = strings.TrimSpace(text)
	lit := Literal{Text: text}

	switch {
	case strings.EqualFold(text, "null"):
		lit.Kind = LiteralNull
		return lit, nil
	case strings.EqualFold(text, "true"), strings.EqualFold(text, "false"):
		lit.Kind = LiteralBool
		lit.Bool = strings.EqualFold(text, "true")
		return lit, nil
	case len(text) >= 2 && (text[0] == '\'' || text[0] == '"'):
		s, err := unquote(text)
		if err != nil {
			return lit, errcode.Newf(errcode.SQLParse,
				"Close the string literal with a matching quote.",
				"%s: malformed string literal %s", pos, text)
		}
		lit.Kind = LiteralString
		lit.Str = s
		return lit, nil
	}

	d, err := decimal.NewFromString(text)
	if err != nil {
		return lit, errcode.Newf(errcode.SQLParse,
			"@set values must be a quoted string, a number, TRUE/FALSE, or NULL.",
			"%s: invalid literal %q", pos, text)
	}
	if d.IsInteger() && !strings.ContainsAny(text, ".eE") {
		lit.Kind = LiteralInt
		lit.Int = d.IntPart()
		return lit, nil
	}
	lit.Kind = LiteralDecimal
	lit.Dec = d
	return lit, nil
}

// unquote strips SQL-style quotes, collapsing doubled quote characters.
func unquote(text string) (string, error) {
	q := text[0]
	if text[len(text)-1] != q || len(text) < 2 {
		return "", fmt.Errorf("unterminated string")
	}
	body := text[1 : len(text)-1]
	return strings.ReplaceAll(body, string([]byte{q, q}), string(q)), nil
}
