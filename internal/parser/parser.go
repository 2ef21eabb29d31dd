// Package parser turns annotated SQL source files into ordered statement
// lists. It handles the directive grammar (MIGRATE/QUERY/EXEC/TESTDATA),
// @set sample parameters, and statement termination at top-level semicolons.
package parser

import (
	"bufio"
	"os"
	"regexp"
	"strings"

	"github.com/sqlmint-labs/sqlmint/internal/errcode"
)

// Directive patterns
var (
	// -- QUERY getUserById :one :pluck
	directivePattern = regexp.MustCompile(`^\s*--\s*(MIGRATE|QUERY|EXEC|TESTDATA)\s+([A-Za-z_]\w*)\s*(.*)$`)
	// @set id = 42   (a leading -- is tolerated for editors that insist on it)
	setPattern = regexp.MustCompile(`^\s*(?:--\s*)?@set\s+([A-Za-z_]\w*)\s*=\s*(.+?)\s*$`)
	// full-line comment that is not a directive
	commentPattern = regexp.MustCompile(`^\s*--`)
)

// Parser parses annotated SQL files.
type Parser struct{}

// New creates a parser.
func New() *Parser { return &Parser{} }

// ParseFile parses a single annotated SQL file.
func (p *Parser) ParseFile(path string) ([]*Statement, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errcode.Wrap(errcode.FileNotFound,
				"SQL file not found: "+path,
				"Check the files list in sqlmint.yaml.", err).With("file", path)
		}
		return nil, err
	}
	return p.ParseContent(path, string(content))
}

// ParseContent parses annotated SQL text. The file name is used only for
// error positions.
func (p *Parser) ParseContent(file, content string) ([]*Statement, error) {
	var (
		stmts   []*Statement
		current *Statement
		buf     strings.Builder
		scan    sqlScanner
	)

	flush := func() {
		if current == nil {
			return
		}
		current.SQL = strings.TrimSpace(buf.String())
		stmts = append(stmts, current)
		current = nil
		buf.Reset()
		scan = sqlScanner{}
	}

	appendSQL := func(line string, lineNo int) {
		for _, mi := range placeholderPattern.FindAllStringSubmatchIndex(line, -1) {
			name := line[mi[2]:mi[3]]
			if _, ok := current.Ref(name); !ok {
				current.Refs = append(current.Refs, VarRef{
					Name: name,
					Pos:  Position{File: file, Line: lineNo, Column: mi[0] + 1},
				})
			}
		}
		buf.WriteString(line)
		buf.WriteByte('\n')
		if scan.feed(line) {
			flush()
		}
	}

	lineNo := 0
	scanner := bufio.NewScanner(strings.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		pos := Position{File: file, Line: lineNo, Column: 1}

		// Inside a multi-line string literal or block comment every line is
		// statement text; directive and @set forms are not recognized there.
		if current != nil && scan.pending() {
			appendSQL(line, lineNo)
			continue
		}

		if m := directivePattern.FindStringSubmatchIndex(line); m != nil {
			flush()
			stmt := &Statement{Name: line[m[4]:m[5]], Pos: pos}
			switch line[m[2]:m[3]] {
			case "MIGRATE":
				stmt.Kind = KindMigration
			case "QUERY":
				stmt.Kind = KindQuery
			case "EXEC":
				stmt.Kind = KindExec
			case "TESTDATA":
				stmt.Kind = KindFixture
			}
			if err := parseModifiers(stmt, line, m[6], pos); err != nil {
				return nil, err
			}
			current = stmt
			continue
		}

		if m := setPattern.FindStringSubmatchIndex(line); m != nil {
			if current == nil {
				pos.Column = strings.Index(line, "@set") + 1
				return nil, errcode.Newf(errcode.SQLParse,
					"Move the @set line below a -- QUERY/EXEC/MIGRATE/TESTDATA directive.",
					"%s: @set outside of a statement", pos)
			}
			valPos := pos
			valPos.Column = m[4] + 1
			lit, perr := parseLiteral(line[m[4]:m[5]], valPos)
			if perr != nil {
				return nil, perr.With("statement", current.Name)
			}
			current.Params = append(current.Params, Parameter{
				Name:    line[m[2]:m[3]],
				Literal: lit,
				Ordinal: len(current.Params),
				Line:    lineNo,
			})
			continue
		}

		// Blank lines and ordinary comments outside a statement are allowed
		// for round-trip fidelity; any other text must follow a directive.
		if current == nil {
			if strings.TrimSpace(line) == "" || commentPattern.MatchString(line) {
				continue
			}
			pos.Column = len(line) - len(strings.TrimLeft(line, " \t")) + 1
			return nil, errcode.Newf(errcode.SQLParse,
				"Every SQL statement must be introduced by a directive comment.",
				"%s: SQL outside of a directive", pos)
		}

		appendSQL(line, lineNo)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	flush()
	return stmts, nil
}

func parseModifiers(stmt *Statement, line string, restStart int, pos Position) error {
	rest := line[restStart:]
	cursor := 0
	for _, f := range strings.Fields(rest) {
		at := pos
		if i := strings.Index(rest[cursor:], f); i >= 0 {
			at.Column = restStart + cursor + i + 1
			cursor += i + len(f)
		}
		switch f {
		case ":one":
			if stmt.Kind != KindQuery {
				return errcode.Newf(errcode.SQLParse,
					":one only applies to QUERY statements.",
					"%s: %s does not accept :one", at, stmt.Kind)
			}
			stmt.One = true
		case ":pluck":
			if stmt.Kind != KindQuery {
				return errcode.Newf(errcode.SQLParse,
					":pluck only applies to QUERY statements.",
					"%s: %s does not accept :pluck", at, stmt.Kind)
			}
			stmt.Pluck = true
		default:
			return errcode.Newf(errcode.SQLParse,
				"Supported modifiers are :one and :pluck.",
				"%s: unknown modifier %q on %s %s", at, f, stmt.Kind, stmt.Name)
		}
	}
	return nil
}

// sqlScanner tracks string and comment context across lines so a semicolon
// only terminates a statement when it appears at the top level.
type sqlScanner struct {
	inBlockComment bool
	quote          byte // 0, '\'' or '"'
}

// pending reports whether the scanner is inside a string literal or block
// comment left open by an earlier line.
func (s *sqlScanner) pending() bool {
	return s.inBlockComment || s.quote != 0
}

// feed consumes one line (without its newline) and reports whether a
// top-level semicolon was seen.
func (s *sqlScanner) feed(line string) bool {
	terminated := false
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case s.inBlockComment:
			if c == '*' && i+1 < len(line) && line[i+1] == '/' {
				s.inBlockComment = false
				i++
			}
		case s.quote != 0:
			if c == s.quote {
				// doubled quote is an escape, stay inside the string
				if i+1 < len(line) && line[i+1] == s.quote {
					i++
				} else {
					s.quote = 0
				}
			}
		case c == '\'' || c == '"':
			s.quote = c
		case c == '-' && i+1 < len(line) && line[i+1] == '-':
			return terminated // rest of line is a comment
		case c == '/' && i+1 < len(line) && line[i+1] == '*':
			s.inBlockComment = true
			i++
		case c == ';':
			terminated = true
		}
	}
	// an unterminated line string simply ends at the newline; SQL strings
	// spanning lines keep the quote state for the next feed
	return terminated
}
