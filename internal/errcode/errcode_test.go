package errcode

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructors_AlwaysCarrySuggestion(t *testing.T) {
	cause := errors.New("yaml: line 3: did not find expected node content")

	cases := map[string]*Error{
		"New":   New(ConfigParse, "bad config", "Fix the YAML."),
		"Newf":  Newf(ConfigParse, "Fix the YAML.", "bad config in %s", "sqlmint.yaml"),
		"Wrap":  Wrap(ConfigParse, "bad config", "Fix the YAML.", cause),
		"Wrapf": Wrapf(ConfigParse, cause, "Fix the YAML.", "parsing %s", "sqlmint.yaml"),
	}
	for name, err := range cases {
		assert.Equal(t, ConfigParse, err.Code, name)
		assert.NotEmpty(t, err.Message, name)
		assert.Equal(t, "Fix the YAML.", err.Suggestion, name)
	}
}

func TestWrapf_FormatsAndUnwraps(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrapf(Database, cause, "Check the server.", "connecting to %s", "postgres")

	assert.Equal(t, "connecting to postgres", err.Message)
	assert.Equal(t, "Check the server.", err.Suggestion)
	require.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "DATABASE_ERROR")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestWith_AttachesContext(t *testing.T) {
	err := New(MissingVariable, "no @set for uid", "Add an @set line.").
		With("statement", "getUser").
		With("variable", "uid")

	assert.Equal(t, "getUser", err.Context["statement"])
	assert.Equal(t, "uid", err.Context["variable"])
}

func TestList_ErrUnwrapsSingleElement(t *testing.T) {
	var list List
	assert.NoError(t, list.Err())

	list.Add(New(Validation, "one", "s"))
	var coded *Error
	require.ErrorAs(t, list.Err(), &coded)
	assert.Equal(t, Validation, coded.Code)

	list.Add(New(DuplicateQuery, "two", "s"))
	agg, ok := list.Err().(*List)
	require.True(t, ok)
	assert.Len(t, agg.Errors, 2)
}

func TestList_AddAll(t *testing.T) {
	var inner List
	inner.Add(New(Validation, "one", "s"))
	inner.Add(New(Validation, "two", "s"))

	var outer List
	outer.AddAll(nil)
	outer.AddAll(&inner)
	outer.AddAll(New(DuplicateQuery, "three", "s"))
	outer.AddAll(fmt.Errorf("plain"))

	assert.Len(t, outer.Errors, 3)
}
