// Package errcode provides the structured error type used across the
// sqlmint pipeline.
//
// Every failure surfaced to a caller carries a stable code, a message, and an
// actionable suggestion. Codes are stable strings so that JSON consumers and
// tests can match on them without parsing message text.
package errcode

import (
	"fmt"
	"strings"
)

// Code identifies a class of failure.
type Code string

const (
	ConfigParse             Code = "CONFIG_PARSE_ERROR"
	ConfigValidation        Code = "CONFIG_VALIDATION_ERROR"
	FileNotFound            Code = "FILE_NOT_FOUND"
	InvalidEngine           Code = "INVALID_ENGINE"
	InvalidGenerator        Code = "INVALID_GENERATOR"
	GeneratorEngineMismatch Code = "GENERATOR_ENGINE_MISMATCH"
	SQLParse                Code = "SQL_PARSE_ERROR"
	SQLExecution            Code = "SQL_EXECUTION_ERROR"
	DuplicateQuery          Code = "DUPLICATE_QUERY"
	MissingVariable         Code = "MISSING_VARIABLE"
	Validation              Code = "VALIDATION_ERROR"
	Database                Code = "DATABASE_ERROR"
	TypeMapping             Code = "TYPE_MAPPING_ERROR"
)

// Error is a coded error with a human-readable suggestion and optional
// structured context (statement name, variable name, file position, ...).
type Error struct {
	Code       Code           `json:"code"`
	Message    string         `json:"message"`
	Suggestion string         `json:"suggestion,omitempty"`
	Context    map[string]any `json:"context,omitempty"`
	Cause      error          `json:"-"`
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is/As chains.
func (e *Error) Unwrap() error { return e.Cause }

// With attaches a context key/value pair and returns the error.
func (e *Error) With(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// New creates a coded error.
func New(code Code, msg, suggestion string) *Error {
	return &Error{Code: code, Message: msg, Suggestion: suggestion}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, suggestion, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Suggestion: suggestion}
}

// Wrap creates a coded error around an underlying cause.
func Wrap(code Code, msg, suggestion string, cause error) *Error {
	return &Error{Code: code, Message: msg, Suggestion: suggestion, Cause: cause}
}

// Wrapf creates a coded error with a formatted message around a cause.
func Wrapf(code Code, cause error, suggestion, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Suggestion: suggestion, Cause: cause}
}

// List aggregates multiple coded errors from a single validation pass.
// The validator collects every violation it can find before stopping, so one
// invocation reports all problems discoverable without touching the engine.
type List struct {
	Errors []*Error
}

// Add appends an error to the list. Nil errors are ignored.
func (l *List) Add(err *Error) {
	if err != nil {
		l.Errors = append(l.Errors, err)
	}
}

// AddAll appends every coded error carried by err: a *List's elements, a
// bare *Error, or nothing for nil.
func (l *List) AddAll(err error) {
	switch e := err.(type) {
	case nil:
	case *List:
		l.Errors = append(l.Errors, e.Errors...)
	case *Error:
		l.Add(e)
	}
}

// Empty reports whether no errors were collected.
func (l *List) Empty() bool { return len(l.Errors) == 0 }

// Err returns the list as an error, or nil when empty. A single-element list
// unwraps to the element itself so callers can errors.As on it.
func (l *List) Err() error {
	switch len(l.Errors) {
	case 0:
		return nil
	case 1:
		return l.Errors[0]
	default:
		return l
	}
}

func (l *List) Error() string {
	msgs := make([]string, len(l.Errors))
	for i, e := range l.Errors {
		msgs[i] = e.Error()
	}
	return fmt.Sprintf("%d validation errors:\n  %s", len(l.Errors), strings.Join(msgs, "\n  "))
}
