// Package schema provides the diagnostic surface for rule compilation:
// source spans derived from YAML node positions and the structured
// schema-violation error every compiler component raises.
package schema

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Position is a 1-based line/column location in the original rule document.
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Span is a location range in the original rule document. The zero value is
// the placeholder "unknown location" span used when no position can be
// derived from the offending node.
type Span struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// DummySpan is the placeholder span attached to diagnostics whose source
// location could not be determined.
var DummySpan = Span{}

// IsZero reports whether the span carries no location information.
func (s Span) IsZero() bool {
	return s.Start.Line == 0 && s.End.Line == 0
}

// String renders the span for human-readable diagnostics.
func (s Span) String() string {
	if s.IsZero() {
		return "unknown location"
	}
	if s.Start.Line == s.End.Line {
		return fmt.Sprintf("line %d, columns %d-%d", s.Start.Line, s.Start.Column, s.End.Column)
	}
	return fmt.Sprintf("line %d, column %d to line %d, column %d", s.Start.Line, s.Start.Column, s.End.Line, s.End.Column)
}

// SpanOf derives the location range covered by a YAML node, including all of
// its descendants. Returns DummySpan for nil nodes or nodes without position
// information.
func SpanOf(n *yaml.Node) Span {
	if n == nil || n.Line == 0 {
		return DummySpan
	}
	end := lastPosition(n)
	return Span{
		Start: Position{Line: n.Line, Column: n.Column},
		End:   end,
	}
}

// lastPosition finds the position just past the last scalar in the subtree.
func lastPosition(n *yaml.Node) Position {
	last := n
	for len(last.Content) > 0 {
		last = last.Content[len(last.Content)-1]
	}
	col := last.Column + len(last.Value)
	if col == last.Column {
		col = last.Column + 1
	}
	return Position{Line: last.Line, Column: col}
}
