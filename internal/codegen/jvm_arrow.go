package codegen

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/sqlmint-labs/sqlmint/internal/binder"
	"github.com/sqlmint-labs/sqlmint/internal/typemap"
)

func init() {
	Register(Key{Engine: "duckdb", API: typemap.APIJVMArrow}, &jvmArrowGenerator{})
}

// jvmArrowGenerator emits Kotlin bindings that read query results as Arrow
// record batches via DuckDB JDBC's arrowExportStream. Each query gets a batch
// wrapper with typed per-column accessors over the VectorSchemaRoot. Plain
// queries stream batches to a consumer callback; :one queries materialize the
// first row and :pluck queries yield bare scalars.
type jvmArrowGenerator struct{}

// arrowAccess renders the typed read expression for one column at an index.
func arrowAccess(c colView) string {
	name := jsString(c.Name)
	var vector, read string
	switch c.Kind {
	case typemap.KindBool:
		vector, read = "BitVector", "v.get(index) != 0"
	case typemap.KindInt32:
		vector, read = "IntVector", "v.get(index)"
	case typemap.KindInt64:
		vector, read = "BigIntVector", "v.get(index)"
	case typemap.KindFloat64:
		vector, read = "Float8Vector", "v.get(index)"
	case typemap.KindDecimal:
		vector, read = "DecimalVector", "v.getObject(index)"
	case typemap.KindText:
		vector, read = "VarCharVector", "String(v.get(index), Charsets.UTF_8)"
	case typemap.KindBytes:
		vector, read = "VarBinaryVector", "v.get(index)"
	case typemap.KindTimestamp:
		vector, read = "TimeStampMicroVector", "v.getObject(index)"
	default:
		vector, read = "FieldVector", "v.getObject(index)"
	}
	if c.Nullable {
		return fmt.Sprintf("(root.getVector(%s) as %s).let { v -> if (v.isNull(index)) null else %s }",
			name, vector, read)
	}
	return fmt.Sprintf("(root.getVector(%s) as %s).let { v -> %s }", name, vector, read)
}

// arrowType maps a column to the Kotlin type its accessor returns. Timestamps
// come back from getObject as LocalDateTime; everything the scalar table
// already covers keeps its jvm representation.
func arrowType(c colView) string {
	if c.Kind == typemap.KindTimestamp {
		if c.Nullable {
			return "java.time.LocalDateTime?"
		}
		return "java.time.LocalDateTime"
	}
	return c.Type
}

var jvmArrowTemplate = template.Must(template.New("jvm-arrow-columnar").Funcs(template.FuncMap{
	"kotlinString": kotlinString,
	"access":       arrowAccess,
	"colType":      arrowType,
	"plainType":    kotlinPlainType,
	"inc":          func(i int) int { return i + 1 },
}).Parse(`// Code generated by sqlmint. DO NOT EDIT.
// Source: {{.SourceFile}}

package sqlmint.generated

import java.sql.Connection
import org.apache.arrow.memory.BufferAllocator
import org.apache.arrow.vector.*
import org.apache.arrow.vector.ipc.ArrowReader
import org.duckdb.DuckDBResultSet

object {{.ClassBase}}ArrowMigrations {
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
{{- if not .Exec}}
class {{.ExportName}}Batch(private val root: VectorSchemaRoot) {
    val rowCount: Int get() = root.rowCount
{{- range .Columns}}
    fun {{.Name}}(index: Int): {{colType .}} = {{access .}}
{{- end}}
}
{{if and .Single (not .Pluck)}}
data class {{.ExportName}}ArrowRow(
{{- range .Columns}}
    val {{.Name}}: {{colType .}},
{{- end}}
)
{{end}}
{{- end}}
{{- end}}
class {{.ClassBase}}ArrowQueries(
    private val conn: Connection,
    private val allocator: BufferAllocator,
    private val batchSize: Long = 2048,
) {
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

    fun {{.Name}}({{range $i, $p := .Params}}{{if $i}}, {{end}}{{$p.Name}}: {{$p.Type}}{{end}}): {{if .Single}}{{plainType .ScalarType}}?{{else}}List<{{.ScalarType}}>{{end}} {
        val stmt = conn.prepareStatement({{.ConstName}})
{{- range $i, $p := .Occurrences}}
        stmt.setObject({{inc $i}}, {{$p}})
{{- end}}
        stmt.use {
            val rs = it.executeQuery() as DuckDBResultSet
            val reader = rs.arrowExportStream(allocator, batchSize) as ArrowReader
{{- if .Single}}
            reader.use { r ->
                while (r.loadNextBatch()) {
                    val batch = {{.ExportName}}Batch(r.vectorSchemaRoot)
                    if (batch.rowCount > 0) {
                        return batch.{{(index .Columns 0).Name}}(0)
                    }
                }
            }
        }
        return null
    }
{{- else}}
            val values = mutableListOf<{{.ScalarType}}>()
            reader.use { r ->
                while (r.loadNextBatch()) {
                    val batch = {{.ExportName}}Batch(r.vectorSchemaRoot)
                    for (i in 0 until batch.rowCount) {
                        values.add(batch.{{(index .Columns 0).Name}}(i))
                    }
                }
            }
            return values
        }
    }
{{- end}}
{{- else if .Single}}

    fun {{.Name}}({{range $i, $p := .Params}}{{if $i}}, {{end}}{{$p.Name}}: {{$p.Type}}{{end}}): {{.ExportName}}ArrowRow? {
        val stmt = conn.prepareStatement({{.ConstName}})
{{- range $i, $p := .Occurrences}}
        stmt.setObject({{inc $i}}, {{$p}})
{{- end}}
        stmt.use {
            val rs = it.executeQuery() as DuckDBResultSet
            val reader = rs.arrowExportStream(allocator, batchSize) as ArrowReader
            reader.use { r ->
                while (r.loadNextBatch()) {
                    val batch = {{.ExportName}}Batch(r.vectorSchemaRoot)
                    if (batch.rowCount > 0) {
                        return {{.ExportName}}ArrowRow(
{{- range .Columns}}
                            {{.Name}} = batch.{{.Name}}(0),
{{- end}}
                        )
                    }
                }
            }
        }
        return null
    }
{{- else}}

    fun {{.Name}}({{range .Params}}{{.Name}}: {{.Type}}, {{end}}consume: ({{.ExportName}}Batch) -> Unit) {
        val stmt = conn.prepareStatement({{.ConstName}})
{{- range $i, $p := .Occurrences}}
        stmt.setObject({{inc $i}}, {{$p}})
{{- end}}
        stmt.use {
            val rs = it.executeQuery() as DuckDBResultSet
            val reader = rs.arrowExportStream(allocator, batchSize) as ArrowReader
            reader.use { r ->
                while (r.loadNextBatch()) {
                    consume({{.ExportName}}Batch(r.vectorSchemaRoot))
                }
            }
        }
    }
{{- end}}
{{- end}}

    companion object {
{{- range .Views}}
        val {{.ConstName}}: String = {{kotlinString .SQL}}
{{- end}}
    }
}
`))

func (g *jvmArrowGenerator) Emit(in *Input) ([]File, error) {
	views, err := buildViews(typemap.APIJVMArrow, binder.StyleQuestion, in)
	if err != nil {
		return nil, err
	}

	classBase := exportName(baseName(in.SourceFile))
	var buf bytes.Buffer
	err = jvmArrowTemplate.Execute(&buf, struct {
		SourceFile string
		ClassBase  string
		Migrations []Migration
		Views      []stmtView
	}{in.SourceFile, classBase, in.Migrations, views})
	if err != nil {
		return nil, err
	}

	return []File{{Path: classBase + "ArrowQueries.kt", Content: buf.Bytes()}}, nil
}
