package rule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGlobs_AbsentPathsMeansNoFiltering(t *testing.T) {
	r := mustCompile(t, ruleHeader+"pattern: alpha\n")
	assert.True(t, r.Globs().IsEmpty())
}

func TestGlobs_Normalization(t *testing.T) {
	tests := []struct {
		name    string
		paths   string
		include []string
		exclude []string
	}{
		{
			name:    "bare directory",
			paths:   "paths:\n  include: [tests]\n",
			include: []string{"tests/**"},
		},
		{
			name:    "bare filename wildcard",
			paths:   "paths:\n  include: [\"*.js\"]\n",
			include: []string{"**/*.js"},
		},
		{
			name:    "path-like value kept verbatim",
			paths:   "paths:\n  exclude: build/output\n",
			exclude: []string{"build/output"},
		},
		{
			name:    "path with wildcard kept verbatim",
			paths:   "paths:\n  include: [tests/*.py]\n",
			include: []string{"tests/*.py"},
		},
		{
			name:    "single string value",
			paths:   "paths:\n  include: vendor\n",
			include: []string{"vendor/**"},
		},
		{
			name:    "duplicates collapse",
			paths:   "paths:\n  include: [tests, tests, \"tests\"]\n",
			include: []string{"tests/**"},
		},
		{
			name:    "mixed include and exclude",
			paths:   "paths:\n  include: [src]\n  exclude: [\"*_test.go\"]\n",
			include: []string{"src/**"},
			exclude: []string{"**/*_test.go"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := mustCompile(t, ruleHeader+"pattern: alpha\n"+tt.paths)
			globs := r.Globs()
			if tt.include == nil {
				assert.Empty(t, globs.IncludeSlice())
			} else {
				assert.Equal(t, tt.include, globs.IncludeSlice())
			}
			if tt.exclude == nil {
				assert.Empty(t, globs.ExcludeSlice())
			} else {
				assert.Equal(t, tt.exclude, globs.ExcludeSlice())
			}
		})
	}
}

func TestGlobs_ReservedKeysSkipped(t *testing.T) {
	r := mustCompile(t, ruleHeader+`
pattern: alpha
paths:
  __note: annotation only
  include: [tests]
`)
	assert.Equal(t, []string{"tests/**"}, r.Globs().IncludeSlice())
}

func TestGlobs_PathsNotAMapping(t *testing.T) {
	_, err := FromYAML([]byte(ruleHeader + `
pattern: alpha
paths:
  - include
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be a map")
	assert.Contains(t, err.Error(), "include")
}

func TestGlobs_UnknownGlobType(t *testing.T) {
	_, err := FromYAML([]byte(ruleHeader + `
pattern: alpha
paths:
  includes: [tests]
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must each be one of")
	assert.Contains(t, err.Error(), "`includes`")
}

func TestGlobs_NonStringEntry(t *testing.T) {
	_, err := FromYAML([]byte(ruleHeader + `
pattern: alpha
paths:
  include: [42]
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be strings")
}

func TestNormalizeGlob(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"tests", "tests/**"},
		{"*.js", "**/*.js"},
		{"tests/*.py", "tests/*.py"},
		{"build/output", "build/output"},
		{"file?.txt", "**/file?.txt"},
		{"[abc].go", "**/[abc].go"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizeGlob(tt.in), "normalizeGlob(%q)", tt.in)
	}
}
