package rule

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/codesift/rule-compiler/internal/schema"
)

// Expression is one node of a boolean expression tree. A node is either a
// leaf (Pattern set, PatternID set, no children) or a composite (non-empty
// Children, no pattern text), never both and never neither.
type Expression struct {
	Operator  Operator     `json:"operator"`
	PatternID string       `json:"pattern_id,omitempty"`
	Pattern   string       `json:"pattern,omitempty"`
	Children  []Expression `json:"children,omitempty"`
	Span      schema.Span  `json:"span"`
}

// IsLeaf reports whether the node carries pattern text rather than children.
func (e *Expression) IsLeaf() bool {
	return len(e.Children) == 0
}

// Leaves returns the leaf nodes of the subtree in document order. The
// matching engine correlates results back to these by PatternID.
func (e *Expression) Leaves() []*Expression {
	if e.IsLeaf() {
		return []*Expression{e}
	}
	var out []*Expression
	for i := range e.Children {
		out = append(out, e.Children[i].Leaves()...)
	}
	return out
}

// buildExpressions walks a nested pattern list and produces its expression
// nodes. nodes must be a sequence whose elements are one-entry mappings; the
// key names an operator, the value is either a pattern string (leaf) or a
// further nested list (composite, recursed eagerly). The per-level counter
// increments once per entry processed, so identifiers are a pure function of
// document shape: the same document always yields the same ids.
func buildExpressions(nodes, parent *yaml.Node, prefix string) ([]Expression, error) {
	nodes = resolveAlias(nodes)
	if nodes == nil || nodes.Kind != yaml.SequenceNode {
		span := schema.SpanOf(nodes)
		if nodes == nil || nodes.Kind != yaml.MappingNode {
			span = schema.SpanOf(parent)
		}
		return nil, schema.NewError(
			"invalid type for `patterns`",
			fmt.Sprintf("invalid type for `patterns` (expected list, found %s)", kindName(nodes)),
			"perhaps your YAML is missing a `-`?",
			span,
		)
	}

	exprs := make([]Expression, 0, len(nodes.Content))
	counter := 0
	for _, elem := range nodes.Content {
		elem = resolveAlias(elem)
		if elem.Kind != yaml.MappingNode {
			return nil, schema.NewError(
				"invalid pattern entry",
				fmt.Sprintf("invalid type for pattern %q: %s is not a map", elem.Value, kindName(elem)),
				"each entry must be a map from an operator name to a pattern or list",
				schema.SpanOf(elem),
			)
		}
		span := schema.SpanOf(elem)
		for i := 0; i+1 < len(elem.Content); i += 2 {
			key, value := elem.Content[i], resolveAlias(elem.Content[i+1])
			if strings.HasPrefix(key.Value, "__") {
				continue
			}
			op, ok := OperatorForName(key.Value)
			if !ok {
				return nil, schema.NewError(
					"unknown operator",
					fmt.Sprintf("unknown pattern operator `%s`", key.Value),
					fmt.Sprintf("expected one of %v", AllNames()),
					schema.SpanOf(key),
				)
			}

			switch {
			case value.Kind == yaml.SequenceNode:
				children, err := buildExpressions(value, elem, fmt.Sprintf("%s.%d", prefix, counter))
				if err != nil {
					return nil, err
				}
				exprs = append(exprs, Expression{Operator: op, Children: children, Span: span})
			case isStringScalar(value):
				exprs = append(exprs, Expression{
					Operator:  op,
					PatternID: fmt.Sprintf("%s.%d", prefix, counter),
					Pattern:   value.Value,
					Span:      span,
				})
			default:
				return nil, schema.NewError(
					"invalid pattern value",
					fmt.Sprintf("invalid type for pattern under `%s`: expected string or list, found %s", key.Value, kindName(value)),
					"",
					schema.SpanOf(value),
				)
			}
			counter++
		}
	}
	return exprs, nil
}

// resolveAlias follows YAML anchors so aliased pattern blocks compile like
// inline ones.
func resolveAlias(n *yaml.Node) *yaml.Node {
	for n != nil && n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n
}

// isStringScalar reports whether the node is a plain or quoted string value.
func isStringScalar(n *yaml.Node) bool {
	return n != nil && n.Kind == yaml.ScalarNode && (n.Tag == "!!str" || n.Tag == "")
}

// kindName names a YAML node kind for diagnostics.
func kindName(n *yaml.Node) string {
	if n == nil {
		return "nothing"
	}
	switch n.Kind {
	case yaml.DocumentNode:
		return "document"
	case yaml.SequenceNode:
		return "list"
	case yaml.MappingNode:
		return "map"
	case yaml.ScalarNode:
		switch n.Tag {
		case "!!str", "":
			return "string"
		case "!!int":
			return "int"
		case "!!bool":
			return "bool"
		case "!!float":
			return "float"
		case "!!null":
			return "null"
		}
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	}
	return "unknown"
}
