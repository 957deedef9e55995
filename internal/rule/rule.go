package rule

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/codesift/rule-compiler/internal/schema"
)

// Severity is the reporting severity of a rule. It is validated at
// construction time, so downstream projections may treat any other value as
// a programming error.
type Severity string

const (
	SeverityInfo    Severity = "INFO"
	SeverityWarning Severity = "WARNING"
	SeverityError   Severity = "ERROR"
)

// Equivalence is one raw equivalence declaration attached to a rule. Its
// semantics are interpreted elsewhere; the compiler only extracts it.
type Equivalence struct {
	ID         string   `json:"id"`
	Expression string   `json:"expression"`
	Languages  []string `json:"languages"`
}

// Rule is a compiled rule document: metadata accessors, the boolean
// expression tree handed to the matching engine, and the file-targeting glob
// sets. Constructed once from a raw document, immutable thereafter.
type Rule struct {
	raw          map[string]any
	header       header
	expression   Expression
	globs        GlobSet
	equivalences []Equivalence
}

// header holds the required top-level keys of every rule document.
type header struct {
	ID        string   `yaml:"id" validate:"required"`
	Message   string   `yaml:"message" validate:"required"`
	Severity  Severity `yaml:"severity" validate:"required,oneof=INFO WARNING ERROR"`
	Languages []string `yaml:"languages" validate:"required,min=1,dive,required"`
}

var validate = validator.New()

// FromYAML parses a serialized rule document and compiles it.
func FromYAML(data []byte) (*Rule, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, schema.NewError(
			"invalid rule document",
			fmt.Sprintf("could not parse rule document: %v", err),
			"",
		)
	}
	return New(&doc)
}

// New compiles a parsed rule document. The document is read-only: compilation
// never mutates it, and Raw returns the original mapping unmodified. All
// structural violations surface as *schema.Error; compilation aborts on the
// first one.
func New(doc *yaml.Node) (*Rule, error) {
	m := documentMapping(doc)
	if m == nil {
		return nil, schema.NewError(
			"invalid rule document",
			fmt.Sprintf("invalid type for rule document (expected map, found %s)", kindName(doc)),
			"",
			schema.SpanOf(doc),
		)
	}

	h, err := parseHeader(m)
	if err != nil {
		return nil, err
	}

	var raw map[string]any
	if err := m.Decode(&raw); err != nil {
		return nil, schema.NewError(
			"invalid rule document",
			fmt.Sprintf("could not decode rule document: %v", err),
			"",
			schema.SpanOf(m),
		)
	}

	expr, err := buildTopLevel(m, h.ID)
	if err != nil {
		return nil, err
	}

	globs, err := compileGlobs(m)
	if err != nil {
		return nil, err
	}

	return &Rule{
		raw:          raw,
		header:       h,
		expression:   expr,
		globs:        globs,
		equivalences: extractEquivalences(raw, h),
	}, nil
}

// parseHeader decodes and validates the required top-level keys.
func parseHeader(m *yaml.Node) (header, error) {
	var h header
	if err := m.Decode(&h); err != nil {
		return header{}, schema.NewError(
			"invalid rule header",
			fmt.Sprintf("could not decode rule header: %v", err),
			"",
			schema.SpanOf(m),
		)
	}
	if err := validate.Struct(h); err != nil {
		return header{}, headerValidationError(err, m)
	}
	return h, nil
}

// headerValidationError converts validator violations into a schema error
// anchored to the document span.
func headerValidationError(err error, m *yaml.Node) *schema.Error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return schema.Errorf(schema.SpanOf(m), "invalid rule header: %v", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		field := strings.ToLower(e.Field())
		switch e.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("`%s` is required", field))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("`%s` must be one of: %s", field, e.Param()))
		case "min":
			msgs = append(msgs, fmt.Sprintf("`%s` must have at least %s entries", field, e.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("`%s` failed validation: %s", field, e.Tag()))
		}
	}
	return schema.NewError(
		"invalid rule header",
		"invalid rule header: "+strings.Join(msgs, "; "),
		"every rule needs `id`, `message`, `severity` and `languages`",
		schema.SpanOf(m),
	)
}

// buildTopLevel selects the top-level operator family. Families are tried in
// the fixed precedence order of TopLevelOperators; the first structural match
// wins and later families are ignored even when present. Single-pattern
// families produce a leaf carrying the rule's own identifier; composite
// families recurse through buildExpressions with an empty identifier prefix.
func buildTopLevel(m *yaml.Node, ruleID string) (Expression, error) {
	span := schema.SpanOf(m)
	for _, op := range TopLevelOperators {
		for _, name := range NamesForOperator(op) {
			value := resolveAlias(mappingValue(m, name))
			if value == nil || !truthy(value) {
				continue
			}
			switch op {
			case OpAnd, OpRegex:
				if !isStringScalar(value) {
					return Expression{}, schema.NewError(
						"invalid pattern value",
						fmt.Sprintf("invalid type for `%s` (expected string, found %s)", name, kindName(value)),
						"",
						schema.SpanOf(value),
					)
				}
				return Expression{
					Operator:  op,
					PatternID: ruleID,
					Pattern:   value.Value,
					Span:      span,
				}, nil
			default:
				children, err := buildExpressions(value, m, "")
				if err != nil {
					return Expression{}, err
				}
				return Expression{Operator: op, Children: children, Span: span}, nil
			}
		}
	}
	return Expression{}, schema.NewError(
		"missing pattern",
		fmt.Sprintf("missing a pattern type in rule, expected one of %v", TopLevelNames()),
		"add one of the pattern keys to the rule",
		span,
	)
}

// extractEquivalences pulls raw equivalence declarations from the document.
// Entries that are not mappings or lack the `equivalence` key are ignored:
// only extraction is in scope here, not their validation.
func extractEquivalences(raw map[string]any, h header) []Equivalence {
	entries, ok := raw["equivalences"].([]any)
	if !ok {
		return nil
	}
	var out []Equivalence
	for i, entry := range entries {
		em, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		text, ok := em["equivalence"].(string)
		if !ok {
			continue
		}
		out = append(out, Equivalence{
			ID:         fmt.Sprintf("%s-%d", h.ID, i),
			Expression: text,
			Languages:  h.Languages,
		})
	}
	return out
}

// ID returns the rule identifier.
func (r *Rule) ID() string { return r.header.ID }

// Message returns the human-readable finding message.
func (r *Rule) Message() string { return r.header.Message }

// Severity returns the validated rule severity.
func (r *Rule) Severity() Severity { return r.header.Severity }

// Languages returns the target language list.
func (r *Rule) Languages() []string { return r.header.Languages }

// Metadata returns the opaque metadata mapping, or an empty map when the
// document has none.
func (r *Rule) Metadata() map[string]any {
	if md, ok := r.raw["metadata"].(map[string]any); ok {
		return md
	}
	return map[string]any{}
}

// Fix returns the optional autofix template, empty when absent.
func (r *Rule) Fix() string {
	if fix, ok := r.raw["fix"].(string); ok {
		return fix
	}
	return ""
}

// Expression returns the compiled boolean expression tree.
func (r *Rule) Expression() *Expression { return &r.expression }

// Globs returns the compiled include/exclude glob sets.
func (r *Rule) Globs() GlobSet { return r.globs }

// Equivalences returns the raw equivalence declarations with derived ids.
func (r *Rule) Equivalences() []Equivalence { return r.equivalences }

// Raw returns the original document mapping, exactly as parsed. Compilation
// never mutates it.
func (r *Rule) Raw() map[string]any { return r.raw }

// MarshalJSON round-trips the original document.
func (r *Rule) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.raw)
}

// documentMapping unwraps a document node down to its top-level mapping.
func documentMapping(doc *yaml.Node) *yaml.Node {
	n := resolveAlias(doc)
	for n != nil && n.Kind == yaml.DocumentNode && len(n.Content) > 0 {
		n = resolveAlias(n.Content[0])
	}
	if n == nil || n.Kind != yaml.MappingNode {
		return nil
	}
	return n
}

// mappingValue returns the value node for a key in a mapping, or nil.
func mappingValue(m *yaml.Node, key string) *yaml.Node {
	if m == nil || m.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}

// truthy mirrors the loose truthiness of the source document language:
// empty strings, nulls, false, zero and empty containers do not count as a
// present pattern family.
func truthy(n *yaml.Node) bool {
	if n == nil {
		return false
	}
	switch n.Kind {
	case yaml.SequenceNode, yaml.MappingNode:
		return len(n.Content) > 0
	case yaml.ScalarNode:
		switch n.Tag {
		case "!!null":
			return false
		case "!!bool":
			return n.Value == "true"
		case "!!int", "!!float":
			return n.Value != "0" && n.Value != "0.0"
		default:
			return n.Value != ""
		}
	}
	return true
}
