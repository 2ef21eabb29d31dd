package codegen

import (
	"bytes"
	"text/template"

	"github.com/sqlmint-labs/sqlmint/internal/binder"
	"github.com/sqlmint-labs/sqlmint/internal/typemap"
)

func init() {
	Register(Key{Engine: "duckdb", API: typemap.APITSDuckDBAsync}, &tsDuckDBGenerator{})
}

// tsDuckDBGenerator emits async TypeScript bindings over the @duckdb/node-api
// client. Every callable returns a Promise; 64-bit integers surface as bigint.
type tsDuckDBGenerator struct{}

var tsDuckDBTemplate = template.Must(template.New("ts-duckdb-async").Funcs(template.FuncMap{
	"jsString": jsString,
}).Parse(`// Code generated by sqlmint. DO NOT EDIT.
// Source: {{.SourceFile}}

import type { DuckDBConnection } from "@duckdb/node-api";

export const migrations: readonly string[] = [
{{- range .Migrations}}
  {{jsString .SQL}},
{{- end}}
];

export async function migrate(conn: DuckDBConnection): Promise<void> {
  for (const statement of migrations) {
    await conn.run(statement);
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
export async function {{.Name}}(conn: DuckDBConnection{{range .Params}}, {{.Name}}: {{.Type}}{{end}}): Promise<void> {
  await conn.run({{jsString .SQL}}, [{{range $i, $p := .Occurrences}}{{if $i}}, {{end}}{{$p}}{{end}}]);
}
{{else if .Pluck}}
export async function {{.Name}}(conn: DuckDBConnection{{range .Params}}, {{.Name}}: {{.Type}}{{end}}): Promise<{{if .Single}}{{.ScalarType}} | null{{else}}({{.ScalarType}})[]{{end}}> {
  const reader = await conn.runAndReadAll({{jsString .SQL}}, [{{range $i, $p := .Occurrences}}{{if $i}}, {{end}}{{$p}}{{end}}]);
  const values = reader.getColumns()[0] as ({{.ScalarType}})[];
{{- if .Single}}
  return values.length > 0 ? values[0] : null;
{{- else}}
  return values;
{{- end}}
}
{{else}}
export async function {{.Name}}(conn: DuckDBConnection{{range .Params}}, {{.Name}}: {{.Type}}{{end}}): Promise<{{if .Single}}{{.RowType}} | null{{else}}{{.RowType}}[]{{end}}> {
  const reader = await conn.runAndReadAll({{jsString .SQL}}, [{{range $i, $p := .Occurrences}}{{if $i}}, {{end}}{{$p}}{{end}}]);
  const rows = reader.getRowObjects() as unknown as {{.RowType}}[];
{{- if .Single}}
  return rows.length > 0 ? rows[0] : null;
{{- else}}
  return rows;
{{- end}}
}
{{end}}
{{- end}}`))

func (g *tsDuckDBGenerator) Emit(in *Input) ([]File, error) {
	views, err := buildViews(typemap.APITSDuckDBAsync, binder.StyleQuestion, in)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	err = tsDuckDBTemplate.Execute(&buf, struct {
		SourceFile string
		Migrations []Migration
		Views      []stmtView
	}{in.SourceFile, in.Migrations, views})
	if err != nil {
		return nil, err
	}

	return []File{{Path: baseName(in.SourceFile) + ".ts", Content: buf.Bytes()}}, nil
}
