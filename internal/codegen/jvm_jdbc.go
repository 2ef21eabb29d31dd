package codegen

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/sqlmint-labs/sqlmint/internal/binder"
	"github.com/sqlmint-labs/sqlmint/internal/typemap"
)

func init() {
	g := &jvmJDBCGenerator{}
	Register(Key{Engine: "sqlite", API: typemap.APIJVMJDBC}, g)
	Register(Key{Engine: "duckdb", API: typemap.APIJVMJDBC}, g)
	Register(Key{Engine: "postgres", API: typemap.APIJVMJDBC}, g)
}

// jvmJDBCGenerator emits Kotlin bindings over plain java.sql. JDBC always
// binds with ?, so every engine shares one placeholder style here; repeated
// variables are set at each occurrence.
type jvmJDBCGenerator struct{}

// jdbcScan renders the ResultSet read expression for one column. Non-null
// primitives use the typed getter; nullable primitives go through getObject
// so SQL NULL does not collapse to the primitive zero value.
func jdbcScan(c colView) string {
	name := jsString(c.Name)
	switch c.Kind {
	case typemap.KindBool:
		if c.Nullable {
			return fmt.Sprintf("rs.getObject(%s) as Boolean?", name)
		}
		return fmt.Sprintf("rs.getBoolean(%s)", name)
	case typemap.KindInt32:
		if c.Nullable {
			return fmt.Sprintf("(rs.getObject(%s) as Number?)?.toInt()", name)
		}
		return fmt.Sprintf("rs.getInt(%s)", name)
	case typemap.KindInt64:
		if c.Nullable {
			return fmt.Sprintf("(rs.getObject(%s) as Number?)?.toLong()", name)
		}
		return fmt.Sprintf("rs.getLong(%s)", name)
	case typemap.KindFloat64:
		if c.Nullable {
			return fmt.Sprintf("(rs.getObject(%s) as Number?)?.toDouble()", name)
		}
		return fmt.Sprintf("rs.getDouble(%s)", name)
	case typemap.KindDecimal:
		return fmt.Sprintf("rs.getBigDecimal(%s)", name)
	case typemap.KindText:
		return fmt.Sprintf("rs.getString(%s)", name)
	case typemap.KindBytes:
		return fmt.Sprintf("rs.getBytes(%s)", name)
	case typemap.KindTimestamp:
		return fmt.Sprintf("rs.getObject(%s, java.time.LocalDateTime::class.java)", name)
	default:
		return fmt.Sprintf("rs.getObject(%s)", name)
	}
}

var jvmJDBCTemplate = template.Must(template.New("jvm-jdbc").Funcs(template.FuncMap{
	"kotlinString": kotlinString,
	"scan":         jdbcScan,
	"inc":          func(i int) int { return i + 1 },
	"plainType":    kotlinPlainType,
}).Parse(`// Code generated by sqlmint. DO NOT EDIT.
// Source: {{.SourceFile}}

package sqlmint.generated

import java.sql.Connection

object {{.ClassBase}}Migrations {
    val statements: List<String> = listOf(
{{- range .Migrations}}
        {{kotlinString .SQL}},
{{- end}}
    )

    fun apply(conn: Connection) {
        for (statement in statements) {
            conn.createStatement().use { it.execute(statement) }
        }
    }
}
{{range .Views}}
{{- if .RowType}}
data class {{.RowType}}(
{{- range .Columns}}
    val {{.Name}}: {{.Type}},
{{- end}}
)
{{end}}
{{- end}}
class {{.ClassBase}}Queries(private val conn: Connection) {
{{- range .Views}}
{{- if .Exec}}

    fun {{.Name}}({{range $i, $p := .Params}}{{if $i}}, {{end}}{{$p.Name}}: {{$p.Type}}{{end}}): Int =
        conn.prepareStatement({{.ConstName}}).use { stmt ->
{{- range $i, $p := .Occurrences}}
            stmt.setObject({{inc $i}}, {{$p}})
{{- end}}
            stmt.executeUpdate()
        }
{{- else if .Pluck}}

    fun {{.Name}}({{range $i, $p := .Params}}{{if $i}}, {{end}}{{$p.Name}}: {{$p.Type}}{{end}}): {{if .Single}}{{plainType .ScalarType}}?{{else}}List<{{.ScalarType}}>{{end}} =
        conn.prepareStatement({{.ConstName}}).use { stmt ->
{{- range $i, $p := .Occurrences}}
            stmt.setObject({{inc $i}}, {{$p}})
{{- end}}
            stmt.executeQuery().use { rs ->
{{- if .Single}}
                if (rs.next()) {{scan (index .Columns 0)}} else null
{{- else}}
                val values = mutableListOf<{{.ScalarType}}>()
                while (rs.next()) {
                    values.add({{scan (index .Columns 0)}})
                }
                values
{{- end}}
            }
        }
{{- else}}

    fun {{.Name}}({{range $i, $p := .Params}}{{if $i}}, {{end}}{{$p.Name}}: {{$p.Type}}{{end}}): {{if .Single}}{{.RowType}}?{{else}}List<{{.RowType}}>{{end}} =
        conn.prepareStatement({{.ConstName}}).use { stmt ->
{{- range $i, $p := .Occurrences}}
            stmt.setObject({{inc $i}}, {{$p}})
{{- end}}
            stmt.executeQuery().use { rs ->
{{- if .Single}}
                if (rs.next()) read{{.ExportName}}(rs) else null
{{- else}}
                val rows = mutableListOf<{{.RowType}}>()
                while (rs.next()) {
                    rows.add(read{{.ExportName}}(rs))
                }
                rows
{{- end}}
            }
        }

    private fun read{{.ExportName}}(rs: java.sql.ResultSet): {{.RowType}} = {{.RowType}}(
{{- range .Columns}}
        {{.Name}} = {{scan .}},
{{- end}}
    )
{{- end}}
{{- end}}

    companion object {
{{- range .Views}}
        val {{.ConstName}}: String = {{kotlinString .SQL}}
{{- end}}
    }
}
`))

func (g *jvmJDBCGenerator) Emit(in *Input) ([]File, error) {
	views, err := buildViews(typemap.APIJVMJDBC, binder.StyleQuestion, in)
	if err != nil {
		return nil, err
	}

	classBase := exportName(baseName(in.SourceFile))
	var buf bytes.Buffer
	err = jvmJDBCTemplate.Execute(&buf, struct {
		SourceFile string
		ClassBase  string
		Migrations []Migration
		Views      []stmtView
	}{in.SourceFile, classBase, in.Migrations, views})
	if err != nil {
		return nil, err
	}

	return []File{{Path: classBase + "Queries.kt", Content: buf.Bytes()}}, nil
}
