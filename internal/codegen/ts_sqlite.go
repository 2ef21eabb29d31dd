package codegen

import (
	"bytes"
	"text/template"

	"github.com/sqlmint-labs/sqlmint/internal/binder"
	"github.com/sqlmint-labs/sqlmint/internal/typemap"
)

func init() {
	Register(Key{Engine: "sqlite", API: typemap.APITSSQLiteSync}, &tsSQLiteGenerator{})
}

// tsSQLiteGenerator emits synchronous TypeScript bindings over the
// better-sqlite3 client. Queries prepare lazily and run synchronously;
// :pluck queries use the client's pluck mode.
type tsSQLiteGenerator struct{}

var tsSQLiteTemplate = template.Must(template.New("ts-sqlite-sync").Funcs(template.FuncMap{
	"jsString": jsString,
}).Parse(`// Code generated by sqlmint. DO NOT EDIT.
// Source: {{.SourceFile}}

import type { Database } from "better-sqlite3";

export const migrations: readonly string[] = [
{{- range .Migrations}}
  {{jsString .SQL}},
{{- end}}
];

export function migrate(db: Database): void {
  for (const statement of migrations) {
    db.exec(statement);
  }
}
{{range .Views}}
{{- if .RowType}}
export interface {{.RowType}} {
{{- range .Columns}}
  {{.Name}}: {{.Type}};
{{- end}}
}
{{end}}
{{- if .Exec}}
export function {{.Name}}(db: Database{{range .Params}}, {{.Name}}: {{.Type}}{{end}}): number {
  const result = db.prepare({{jsString .SQL}}).run({{range $i, $p := .Occurrences}}{{if $i}}, {{end}}{{$p}}{{end}});
  return result.changes;
}
{{else if .Pluck}}
export function {{.Name}}(db: Database{{range .Params}}, {{.Name}}: {{.Type}}{{end}}): {{if .Single}}{{.ScalarType}} | null{{else}}({{.ScalarType}})[]{{end}} {
  const stmt = db.prepare({{jsString .SQL}}).pluck();
{{- if .Single}}
  const value = stmt.get({{range $i, $p := .Occurrences}}{{if $i}}, {{end}}{{$p}}{{end}});
  return value === undefined ? null : (value as {{.ScalarType}});
{{- else}}
  return stmt.all({{range $i, $p := .Occurrences}}{{if $i}}, {{end}}{{$p}}{{end}}) as ({{.ScalarType}})[];
{{- end}}
}
{{else}}
export function {{.Name}}(db: Database{{range .Params}}, {{.Name}}: {{.Type}}{{end}}): {{if .Single}}{{.RowType}} | null{{else}}{{.RowType}}[]{{end}} {
  const stmt = db.prepare({{jsString .SQL}});
{{- if .Single}}
  const row = stmt.get({{range $i, $p := .Occurrences}}{{if $i}}, {{end}}{{$p}}{{end}});
  return row === undefined ? null : (row as {{.RowType}});
{{- else}}
  return stmt.all({{range $i, $p := .Occurrences}}{{if $i}}, {{end}}{{$p}}{{end}}) as {{.RowType}}[];
{{- end}}
}
{{end}}
{{- end}}`))

func (g *tsSQLiteGenerator) Emit(in *Input) ([]File, error) {
	views, err := buildViews(typemap.APITSSQLiteSync, binder.StyleQuestion, in)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	err = tsSQLiteTemplate.Execute(&buf, struct {
		SourceFile string
		Migrations []Migration
		Views      []stmtView
	}{in.SourceFile, in.Migrations, views})
	if err != nil {
		return nil, err
	}

	return []File{{Path: baseName(in.SourceFile) + ".ts", Content: buf.Bytes()}}, nil
}
