package parser

import (
	"regexp"

	"github.com/sqlmint-labs/sqlmint/internal/errcode"
)

// placeholderPattern matches ${var} references in statement SQL.
var placeholderPattern = regexp.MustCompile(`\$\{([A-Za-z_]\w*)\}`)

// Placeholders returns the ${var} names referenced by the statement's SQL in
// order of first appearance.
func Placeholders(sql string) []string {
	seen := make(map[string]bool)
	var names []string
	for _, m := range placeholderPattern.FindAllStringSubmatch(sql, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names
}

// Validate runs the structural checks that need no engine: duplicate names
// within a kind-class and unresolved variable references. All violations
// found in the pass are aggregated before the run stops.
func Validate(stmts []*Statement) error {
	var list errcode.List

	seen := make(map[string]*Statement) // class + "\x00" + name
	for _, s := range stmts {
		key := s.Kind.Class() + "\x00" + s.Name
		if prev, ok := seen[key]; ok {
			list.Add(errcode.Newf(errcode.DuplicateQuery,
				"Rename one of the statements; names must be unique within a group.",
				"%s: duplicate statement name %q (first declared at %s)",
				s.Pos, s.Name, prev.Pos).
				With("statement", s.Name))
			continue
		}
		seen[key] = s
	}

	for _, s := range stmts {
		refs := s.Refs
		if refs == nil {
			for _, name := range Placeholders(s.SQL) {
				refs = append(refs, VarRef{Name: name, Pos: s.Pos})
			}
		}
		for _, ref := range refs {
			p, declared := s.Param(ref.Name)
			switch {
			case !declared:
				list.Add(errcode.Newf(errcode.MissingVariable,
					"Add '@set "+ref.Name+" = <sample value>' below the directive line.",
					"%s: statement %q references ${%s} without a preceding @set",
					ref.Pos, s.Name, ref.Name).
					With("statement", s.Name).
					With("variable", ref.Name))
			case p.Line > ref.Pos.Line:
				list.Add(errcode.Newf(errcode.MissingVariable,
					"Move the '@set "+ref.Name+" = ...' line above the first ${"+ref.Name+"} reference.",
					"%s: statement %q references ${%s} before its @set on line %d",
					ref.Pos, s.Name, ref.Name, p.Line).
					With("statement", s.Name).
					With("variable", ref.Name))
			}
		}
	}

	return list.Err()
}
