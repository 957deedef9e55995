package loader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/codesift/rule-compiler/internal/rule"
	"github.com/codesift/rule-compiler/internal/schema"
)

// LoadError records the failure to compile one rule document. The owning file
// keeps loading: a schema violation in one rule must not abort its siblings.
type LoadError struct {
	FilePath string `json:"file_path"`
	RuleID   string `json:"rule_id,omitempty"`
	Error    string `json:"error"`
	Line     int    `json:"line,omitempty"`
}

// Parser compiles rule files into rule.Rule values. A file may hold a single
// rule mapping, a bare list of rule mappings, or a mapping with a `rules:`
// sequence; multi-document YAML streams are supported.
type Parser struct{}

// NewParser creates a new Parser instance
func NewParser() *Parser {
	return &Parser{}
}

// ParseFile reads and compiles a rule file, returning the compiled rules and
// one LoadError per rule document that failed.
func (p *Parser) ParseFile(path string) ([]*rule.Rule, []LoadError) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, []LoadError{{
			FilePath: path,
			Error:    fmt.Sprintf("failed to read file: %v", err),
		}}
	}
	return p.ParseContent(data, path)
}

// ParseContent compiles rule content from bytes. path is used for error
// attribution only.
func (p *Parser) ParseContent(data []byte, path string) ([]*rule.Rule, []LoadError) {
	var rules []*rule.Rule
	var loadErrors []LoadError

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	for {
		var doc yaml.Node
		if err := decoder.Decode(&doc); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			loadErrors = append(loadErrors, LoadError{
				FilePath: path,
				Error:    fmt.Sprintf("failed to parse YAML: %v", err),
			})
			break
		}

		for _, node := range ruleDocuments(&doc) {
			compiled, err := rule.New(node)
			if err != nil {
				loadErrors = append(loadErrors, newLoadError(path, node, err))
				continue
			}
			rules = append(rules, compiled)
		}
	}

	return rules, loadErrors
}

// ruleDocuments splits a parsed YAML document into its individual rule
// mapping nodes.
func ruleDocuments(doc *yaml.Node) []*yaml.Node {
	n := doc
	for n != nil && n.Kind == yaml.DocumentNode && len(n.Content) > 0 {
		n = n.Content[0]
	}
	if n == nil {
		return nil
	}

	switch n.Kind {
	case yaml.SequenceNode:
		return n.Content
	case yaml.MappingNode:
		for i := 0; i+1 < len(n.Content); i += 2 {
			if n.Content[i].Value == "rules" && n.Content[i+1].Kind == yaml.SequenceNode {
				return n.Content[i+1].Content
			}
		}
		return []*yaml.Node{n}
	default:
		return []*yaml.Node{n}
	}
}

// newLoadError attributes a compilation failure to its rule id and source
// line where possible.
func newLoadError(path string, node *yaml.Node, err error) LoadError {
	le := LoadError{
		FilePath: path,
		RuleID:   ruleID(node),
		Error:    err.Error(),
	}
	if se, ok := schema.IsSchemaError(err); ok && len(se.Spans) > 0 && !se.Spans[0].IsZero() {
		le.Line = se.Spans[0].Start.Line
	} else if node != nil {
		le.Line = node.Line
	}
	return le
}

// ruleID extracts the declared id of a rule mapping for error attribution,
// even when the rule itself fails to compile.
func ruleID(node *yaml.Node) string {
	if node == nil || node.Kind != yaml.MappingNode {
		return ""
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == "id" {
			return node.Content[i+1].Value
		}
	}
	return ""
}
