// Package binder resolves @set sample values against ${var} placeholders,
// producing executable SQL with engine-native positional placeholders and an
// ordered bind vector.
package binder

import (
	"fmt"
	"regexp"

	"github.com/sqlmint-labs/sqlmint/internal/errcode"
	"github.com/sqlmint-labs/sqlmint/internal/parser"
)

var placeholderPattern = regexp.MustCompile(`\$\{([A-Za-z_]\w*)\}`)

// Placeholder styles per engine. SQLite and DuckDB bind with ?; Postgres
// binds with $n, and repeated references to the same variable share one slot.
type Style int

const (
	StyleQuestion Style = iota
	StyleDollar
)

// StyleFor returns the placeholder style used by an engine.
func StyleFor(engine string) Style {
	if engine == "postgres" {
		return StyleDollar
	}
	return StyleQuestion
}

// Bound is an executable form of a statement.
type Bound struct {
	SQL         string             // SQL with engine placeholders substituted
	Args        []any              // bind values in placeholder order
	Params      []parser.Parameter // distinct parameters in first-reference order
	Occurrences []string           // variable name per bind position, parallel to Args
}

// Bind substitutes every ${name} in the statement's SQL. A reference to an
// undeclared variable is a fatal MISSING_VARIABLE error naming the statement
// and the variable.
func Bind(stmt *parser.Statement, style Style) (*Bound, error) {
	b := &Bound{}
	slots := make(map[string]int) // var name -> $n slot (dollar style)
	var bindErr error

	b.SQL = placeholderPattern.ReplaceAllStringFunc(stmt.SQL, func(m string) string {
		name := placeholderPattern.FindStringSubmatch(m)[1]
		p, ok := stmt.Param(name)
		if !ok {
			if bindErr == nil {
				bindErr = errcode.Newf(errcode.MissingVariable,
					"Add '@set "+name+" = <sample value>' to the statement.",
					"statement %q references ${%s} without a preceding @set",
					stmt.Name, name).
					With("statement", stmt.Name).
					With("variable", name)
			}
			return m
		}

		switch style {
		case StyleDollar:
			n, seen := slots[name]
			if !seen {
				b.Args = append(b.Args, p.Literal.Value())
				b.Params = append(b.Params, p)
				b.Occurrences = append(b.Occurrences, name)
				n = len(b.Args)
				slots[name] = n
			}
			return fmt.Sprintf("$%d", n)
		default:
			if _, seen := slots[name]; !seen {
				slots[name] = 1
				b.Params = append(b.Params, p)
			}
			b.Args = append(b.Args, p.Literal.Value())
			b.Occurrences = append(b.Occurrences, name)
			return "?"
		}
	})

	if bindErr != nil {
		return nil, bindErr
	}
	return b, nil
}
