package rule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToSARIF_WarningWithCWE(t *testing.T) {
	r := mustCompile(t, `
id: sql-injection
message: possible SQL injection
severity: WARNING
languages: [go]
metadata:
  cwe: CWE-89
pattern: db.Query($X)
`)

	descriptor := r.ToSARIF()
	assert.Equal(t, "sql-injection", descriptor.ID)
	assert.Equal(t, "sql-injection", descriptor.Name)
	assert.Equal(t, "possible SQL injection", descriptor.ShortDescription.Text)
	assert.Equal(t, "possible SQL injection", descriptor.FullDescription.Text)
	assert.Equal(t, "warning", descriptor.DefaultConfiguration.Level)
	assert.Equal(t, "very-high", descriptor.Properties.Precision)
	assert.Equal(t, []string{"cwe"}, descriptor.Properties.Tags)
}

func TestToSARIF_SeverityLevels(t *testing.T) {
	tests := []struct {
		severity string
		level    string
	}{
		{"INFO", "note"},
		{"WARNING", "warning"},
		{"ERROR", "error"},
	}

	for _, tt := range tests {
		t.Run(tt.severity, func(t *testing.T) {
			r := mustCompile(t, "id: r\nmessage: m\nseverity: "+tt.severity+"\nlanguages: [go]\npattern: p\n")
			assert.Equal(t, tt.level, r.ToSARIF().DefaultConfiguration.Level)
		})
	}
}

func TestToSARIF_Tags(t *testing.T) {
	r := mustCompile(t, ruleHeader+`
metadata:
  cwe: CWE-79
  owasp: A7
  unrelated: ignored
pattern: alpha
`)
	assert.Equal(t, []string{"cwe", "owasp"}, r.ToSARIF().Properties.Tags)

	r = mustCompile(t, ruleHeader+"pattern: alpha\n")
	assert.Equal(t, []string{}, r.ToSARIF().Properties.Tags)
}

func TestToSARIF_UnvalidatedSeverityPanics(t *testing.T) {
	// A severity outside the validated set means upstream validation was
	// bypassed; the projection fails fast instead of guessing.
	r := &Rule{header: header{ID: "broken", Severity: Severity("CRITICAL")}}
	require.Panics(t, func() { r.ToSARIF() })
}
