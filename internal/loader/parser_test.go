package loader

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validRule = `
id: taint-rule
message: tainted value flows to sink
severity: ERROR
languages: [go]
pattern: sink($X)
`

func TestParseContent_SingleRule(t *testing.T) {
	p := NewParser()

	rules, loadErrors := p.ParseContent([]byte(validRule), "taint.yaml")
	require.Empty(t, loadErrors)
	require.Len(t, rules, 1)
	assert.Equal(t, "taint-rule", rules[0].ID())
}

func TestParseContent_RulesKey(t *testing.T) {
	content := `
rules:
  - id: rule-a
    message: first
    severity: WARNING
    languages: [go]
    pattern: a($X)
  - id: rule-b
    message: second
    severity: INFO
    languages: [python]
    pattern: b($X)
`
	p := NewParser()

	rules, loadErrors := p.ParseContent([]byte(content), "rules.yaml")
	require.Empty(t, loadErrors)
	require.Len(t, rules, 2)
	assert.Equal(t, "rule-a", rules[0].ID())
	assert.Equal(t, "rule-b", rules[1].ID())
}

func TestParseContent_BareList(t *testing.T) {
	content := `
- id: rule-a
  message: first
  severity: WARNING
  languages: [go]
  pattern: a($X)
- id: rule-b
  message: second
  severity: WARNING
  languages: [go]
  pattern: b($X)
`
	p := NewParser()

	rules, loadErrors := p.ParseContent([]byte(content), "rules.yaml")
	require.Empty(t, loadErrors)
	require.Len(t, rules, 2)
}

func TestParseContent_MultiDocumentStream(t *testing.T) {
	content := `id: doc-one
message: first document
severity: WARNING
languages: [go]
pattern: a($X)
---
id: doc-two
message: second document
severity: ERROR
languages: [go]
pattern: b($X)
`
	p := NewParser()

	rules, loadErrors := p.ParseContent([]byte(content), "stream.yaml")
	require.Empty(t, loadErrors)
	require.Len(t, rules, 2)
	assert.Equal(t, "doc-one", rules[0].ID())
	assert.Equal(t, "doc-two", rules[1].ID())
}

func TestParseContent_BrokenRuleDoesNotAbortSiblings(t *testing.T) {
	content := `
rules:
  - id: good-rule
    message: compiles fine
    severity: WARNING
    languages: [go]
    pattern: a($X)
  - id: broken-rule
    message: unknown operator
    severity: WARNING
    languages: [go]
    patterns:
      - pattern-banana: a($X)
  - id: another-good-rule
    message: also compiles
    severity: INFO
    languages: [go]
    pattern: c($X)
`
	p := NewParser()

	rules, loadErrors := p.ParseContent([]byte(content), "mixed.yaml")

	require.Len(t, rules, 2)
	assert.Equal(t, "good-rule", rules[0].ID())
	assert.Equal(t, "another-good-rule", rules[1].ID())

	require.Len(t, loadErrors, 1)
	assert.Equal(t, "mixed.yaml", loadErrors[0].FilePath)
	assert.Equal(t, "broken-rule", loadErrors[0].RuleID)
	assert.Contains(t, loadErrors[0].Error, "pattern-banana")
	assert.Greater(t, loadErrors[0].Line, 0)
}

func TestParseContent_MalformedYAML(t *testing.T) {
	p := NewParser()

	rules, loadErrors := p.ParseContent([]byte("id: [unclosed"), "broken.yaml")
	assert.Empty(t, rules)
	require.Len(t, loadErrors, 1)
	assert.Contains(t, loadErrors[0].Error, "failed to parse YAML")
}

func TestParseFile_MissingFile(t *testing.T) {
	p := NewParser()

	rules, loadErrors := p.ParseFile("/nonexistent/rules.yaml")
	assert.Empty(t, rules)
	require.Len(t, loadErrors, 1)
	assert.Contains(t, loadErrors[0].Error, "failed to read file")
}

func TestScanner_FindsRuleFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), []byte(validRule), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yml"), []byte(validRule), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("not a rule"), 0644))

	sub := filepath.Join(dir, "nested")
	require.NoError(t, os.MkdirAll(sub, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(sub, "c.rule.yaml"), []byte(validRule), 0644))

	scanner := NewScanner(dir)
	files, err := scanner.Scan(context.Background())
	require.NoError(t, err)
	assert.Len(t, files, 3)
}

func TestScanner_MissingDirectory(t *testing.T) {
	scanner := NewScanner("/nonexistent/rules")
	files, err := scanner.Scan(context.Background())
	assert.NoError(t, err)
	assert.Empty(t, files)
}

func TestFileRuleLoader_LoadAll(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "good.yaml"), []byte(validRule), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte(`
id: bad-rule
message: missing pattern family
severity: WARNING
languages: [go]
`), 0644))

	l := NewFileRuleLoader(dir)
	rules, loadErrors, err := l.LoadAll(context.Background())
	require.NoError(t, err)

	require.Len(t, rules, 1)
	assert.Equal(t, "taint-rule", rules[0].ID())

	require.Len(t, loadErrors, 1)
	assert.Equal(t, "bad-rule", loadErrors[0].RuleID)

	assert.Equal(t, 1, l.RuleCount())
	assert.Equal(t, 1, l.ErrorCount())
	assert.Len(t, l.GetRules(), 1)
	assert.Len(t, l.GetLoadErrors(), 1)
}
