// Package output renders command results for humans and machines. Mode auto
// picks text on a terminal and json when stdout is piped, so scripts get
// stable structured output without extra flags.
package output

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"golang.org/x/term"

	"github.com/sqlmint-labs/sqlmint/internal/errcode"
)

// OutputMode selects the rendering format.
type OutputMode string

const (
	ModeAuto OutputMode = "auto"
	ModeText OutputMode = "text"
	ModeJSON OutputMode = "json"
)

// Renderer writes results to stdout and errors to stderr in one mode.
type Renderer struct {
	out    io.Writer
	errOut io.Writer
	mode   OutputMode
	isTTY  bool
}

// NewRenderer creates a renderer, detecting whether stdout is a terminal.
func NewRenderer(out, errOut io.Writer, mode OutputMode) *Renderer {
	isTTY := false
	if f, ok := out.(*os.File); ok {
		isTTY = term.IsTerminal(int(f.Fd()))
	}
	return NewRendererWithTTY(out, errOut, isTTY, mode)
}

// NewRendererWithTTY creates a renderer with an explicit TTY state. Tests use
// this to pin the resolved mode.
func NewRendererWithTTY(out, errOut io.Writer, isTTY bool, mode OutputMode) *Renderer {
	if mode == "" {
		mode = ModeAuto
	}
	return &Renderer{out: out, errOut: errOut, mode: mode, isTTY: isTTY}
}

// JSONMode reports whether output resolves to json.
func (r *Renderer) JSONMode() bool {
	if r.mode == ModeAuto {
		return !r.isTTY
	}
	return r.mode == ModeJSON
}

// Successf prints a formatted line in text mode; json callers emit their own
// structured result instead.
func (r *Renderer) Successf(format string, args ...any) {
	if !r.JSONMode() {
		fmt.Fprintf(r.out, format+"\n", args...)
	}
}

// JSON marshals v to stdout when in json mode and reports whether it did.
func (r *Renderer) JSON(v any) bool {
	if !r.JSONMode() {
		return false
	}
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
	return true
}

// Table prints a bordered table in text mode.
func (r *Renderer) Table(header []string, rows [][]string) {
	if r.JSONMode() {
		return
	}
	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetStyle(table.StyleLight)

	h := make(table.Row, len(header))
	for i, c := range header {
		h[i] = c
	}
	t.AppendHeader(h)
	for _, row := range rows {
		tr := make(table.Row, len(row))
		for i, c := range row {
			tr[i] = c
		}
		t.AppendRow(tr)
	}
	t.Render()
}

// jsonError is the wire shape of a failed run in json mode.
type jsonError struct {
	Error any `json:"error"`
}

// jsonErrorBody mirrors errcode.Error for marshaling, with the cause
// flattened to text.
type jsonErrorBody struct {
	Code       errcode.Code   `json:"code"`
	Message    string         `json:"message"`
	Suggestion string         `json:"suggestion,omitempty"`
	Context    map[string]any `json:"context,omitempty"`
	Cause      string         `json:"cause,omitempty"`
}

// Error renders a failure. Coded errors keep their code, suggestion and
// context in both modes; validation lists render every element.
func (r *Renderer) Error(err error) {
	if err == nil {
		return
	}

	var list *errcode.List
	var coded *errcode.Error
	switch {
	case errors.As(err, &list):
		if r.JSONMode() {
			bodies := make([]jsonErrorBody, len(list.Errors))
			for i, e := range list.Errors {
				bodies[i] = errorBody(e)
			}
			r.encodeError(jsonError{Error: bodies})
			return
		}
		for _, e := range list.Errors {
			r.printTextError(e)
		}
	case errors.As(err, &coded):
		if r.JSONMode() {
			r.encodeError(jsonError{Error: errorBody(coded)})
			return
		}
		r.printTextError(coded)
	default:
		if r.JSONMode() {
			r.encodeError(jsonError{Error: jsonErrorBody{Message: err.Error()}})
			return
		}
		fmt.Fprintf(r.errOut, "Error: %v\n", err)
	}
}

func (r *Renderer) encodeError(v any) {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func (r *Renderer) printTextError(e *errcode.Error) {
	fmt.Fprintf(r.errOut, "Error [%s]: %s\n", e.Code, e.Message)
	if e.Cause != nil {
		fmt.Fprintf(r.errOut, "  cause: %v\n", e.Cause)
	}
	if e.Suggestion != "" {
		fmt.Fprintf(r.errOut, "  hint: %s\n", e.Suggestion)
	}
}

func errorBody(e *errcode.Error) jsonErrorBody {
	b := jsonErrorBody{
		Code:       e.Code,
		Message:    e.Message,
		Suggestion: e.Suggestion,
		Context:    e.Context,
	}
	if e.Cause != nil {
		b.Cause = e.Cause.Error()
	}
	return b
}
