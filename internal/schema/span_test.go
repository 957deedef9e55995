package schema

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestSpanOf_Mapping(t *testing.T) {
	var doc yaml.Node
	require.NoError(t, yaml.Unmarshal([]byte("key: value\nother: thing\n"), &doc))

	span := SpanOf(doc.Content[0])
	assert.Equal(t, 1, span.Start.Line)
	assert.Equal(t, 1, span.Start.Column)
	assert.Equal(t, 2, span.End.Line)
	assert.False(t, span.IsZero())
}

func TestSpanOf_NilNode(t *testing.T) {
	assert.Equal(t, DummySpan, SpanOf(nil))
	assert.True(t, SpanOf(nil).IsZero())
}

func TestSpan_String(t *testing.T) {
	assert.Equal(t, "unknown location", DummySpan.String())

	single := Span{Start: Position{Line: 3, Column: 1}, End: Position{Line: 3, Column: 10}}
	assert.Equal(t, "line 3, columns 1-10", single.String())

	multi := Span{Start: Position{Line: 3, Column: 1}, End: Position{Line: 5, Column: 4}}
	assert.Equal(t, "line 3, column 1 to line 5, column 4", multi.String())
}

func TestError_Rendering(t *testing.T) {
	err := NewError(
		"invalid type for `patterns`",
		"invalid type for `patterns` (expected list, found map)",
		"perhaps your YAML is missing a `-`?",
		Span{Start: Position{Line: 4, Column: 3}, End: Position{Line: 4, Column: 12}},
	)

	msg := err.Error()
	assert.Contains(t, msg, "expected list, found map")
	assert.Contains(t, msg, "line 4")
	assert.Contains(t, msg, "help: perhaps your YAML is missing a `-`?")
	assert.Equal(t, LevelError, err.Level)
}

func TestError_DefaultsToDummySpan(t *testing.T) {
	err := NewError("short", "long", "")
	require.Len(t, err.Spans, 1)
	assert.True(t, err.Spans[0].IsZero())
	assert.Contains(t, err.Error(), "unknown location")
}

func TestIsSchemaError(t *testing.T) {
	schemaErr := Errorf(DummySpan, "bad document: %s", "reason")

	got, ok := IsSchemaError(schemaErr)
	require.True(t, ok)
	assert.Equal(t, "bad document: reason", got.Short)

	wrapped := fmt.Errorf("compiling rule: %w", schemaErr)
	_, ok = IsSchemaError(wrapped)
	assert.True(t, ok)

	_, ok = IsSchemaError(errors.New("plain"))
	assert.False(t, ok)
}
