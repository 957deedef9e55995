// Package rule compiles declarative rule documents into boolean expression
// trees, file-targeting glob sets, and SARIF rule descriptors. The compiled
// Rule is immutable and safe to share across matching-engine workers.
package rule

import (
	"fmt"
	"sort"
)

// Operator identifies how the children of an expression node combine, or the
// matching semantics of a leaf pattern.
type Operator int

const (
	// OpAnd is a single bare pattern (implicit conjunction).
	OpAnd Operator = iota
	// OpNot negates a single pattern.
	OpNot
	// OpInside restricts matches to those enclosed by the pattern.
	OpInside
	// OpNotInside excludes matches enclosed by the pattern.
	OpNotInside
	// OpEither holds when any child expression holds.
	OpEither
	// OpAll holds when every child expression holds.
	OpAll
	// OpRegex is a single regular-expression pattern.
	OpRegex
)

// operatorNames maps document keys to operators. Keys with the reserved "__"
// prefix never reach this table.
var operatorNames = map[string]Operator{
	"pattern":            OpAnd,
	"pattern-not":        OpNot,
	"pattern-inside":     OpInside,
	"pattern-not-inside": OpNotInside,
	"pattern-either":     OpEither,
	"patterns":           OpAll,
	"pattern-regex":      OpRegex,
}

// names is the reverse table; each operator currently has exactly one
// accepted key name, kept as a slice so alternate spellings can be added
// without touching call sites.
var names = map[Operator][]string{
	OpAnd:       {"pattern"},
	OpNot:       {"pattern-not"},
	OpInside:    {"pattern-inside"},
	OpNotInside: {"pattern-not-inside"},
	OpEither:    {"pattern-either"},
	OpAll:       {"patterns"},
	OpRegex:     {"pattern-regex"},
}

// TopLevelOperators is the explicit precedence table for top-level dispatch.
// Families are tried in this order and the first structural match wins, even
// when several families are present in the same document.
var TopLevelOperators = []Operator{OpAnd, OpRegex, OpAll, OpEither}

// OperatorForName resolves a document key to its operator.
func OperatorForName(name string) (Operator, bool) {
	op, ok := operatorNames[name]
	return op, ok
}

// NamesForOperator returns the accepted document key names for an operator.
func NamesForOperator(op Operator) []string {
	return names[op]
}

// TopLevelNames enumerates the accepted top-level key names grouped by
// family, in precedence order. Used to guide correction when a document has
// no recognized pattern family.
func TopLevelNames() []string {
	var out []string
	for _, op := range TopLevelOperators {
		out = append(out, names[op]...)
	}
	return out
}

// AllNames enumerates every accepted operator key name, sorted for stable
// diagnostics.
func AllNames() []string {
	out := make([]string, 0, len(operatorNames))
	for name := range operatorNames {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// String returns the canonical document key for the operator.
func (op Operator) String() string {
	if ns, ok := names[op]; ok {
		return ns[0]
	}
	return fmt.Sprintf("operator(%d)", int(op))
}

// MarshalJSON serializes the operator as its canonical document key.
func (op Operator) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("%q", op.String())), nil
}
