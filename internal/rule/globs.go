package rule

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/codesift/rule-compiler/internal/schema"
)

// allowedGlobTypes are the recognized keys of the `paths:` targeting mapping.
var allowedGlobTypes = []string{"include", "exclude"}

// GlobSet holds the normalized include and exclude glob patterns derived from
// a rule's `paths:` shorthand. Duplicate normalized entries collapse; order
// is not significant.
type GlobSet struct {
	Include map[string]struct{}
	Exclude map[string]struct{}
}

// IncludeSlice returns the include patterns sorted for stable output.
func (g GlobSet) IncludeSlice() []string { return sortedKeys(g.Include) }

// ExcludeSlice returns the exclude patterns sorted for stable output.
func (g GlobSet) ExcludeSlice() []string { return sortedKeys(g.Exclude) }

// IsEmpty reports whether the rule applies no file filtering.
func (g GlobSet) IsEmpty() bool {
	return len(g.Include) == 0 && len(g.Exclude) == 0
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// compileGlobs reads the `paths` key of a rule document and produces its glob
// sets. An absent key means no filtering. Each value may be a single string
// or a list of strings; every string is normalized before insertion.
func compileGlobs(m *yaml.Node) (GlobSet, error) {
	globs := GlobSet{
		Include: make(map[string]struct{}),
		Exclude: make(map[string]struct{}),
	}

	paths := resolveAlias(mappingValue(m, "paths"))
	if paths == nil {
		return globs, nil
	}
	if paths.Kind != yaml.MappingNode {
		return GlobSet{}, schema.NewError(
			"invalid `paths`",
			fmt.Sprintf("the `paths:` targeting rules must be a map with at least one of %v (found %s)", allowedGlobTypes, kindName(paths)),
			"",
			schema.SpanOf(paths),
		)
	}

	for i := 0; i+1 < len(paths.Content); i += 2 {
		key, value := paths.Content[i], resolveAlias(paths.Content[i+1])
		if strings.HasPrefix(key.Value, "__") {
			continue
		}
		if !isAllowedGlobType(key.Value) {
			return GlobSet{}, schema.NewError(
				"invalid `paths`",
				fmt.Sprintf("the `paths:` targeting rules must each be one of %v (found `%s`)", allowedGlobTypes, key.Value),
				"",
				schema.SpanOf(key),
			)
		}

		set := globs.Include
		if key.Value == "exclude" {
			set = globs.Exclude
		}

		values := []*yaml.Node{value}
		if value.Kind == yaml.SequenceNode {
			values = value.Content
		}
		for _, v := range values {
			v = resolveAlias(v)
			if !isStringScalar(v) {
				return GlobSet{}, schema.NewError(
					"invalid `paths`",
					fmt.Sprintf("`paths.%s` entries must be strings (found %s)", key.Value, kindName(v)),
					"",
					schema.SpanOf(v),
				)
			}
			set[normalizeGlob(v.Value)] = struct{}{}
		}
	}

	return globs, nil
}

// normalizeGlob canonicalizes path-filter shorthand:
//
//	tests/*.py -> tests/*.py  (path-like, kept verbatim)
//	tests      -> tests/**    (bare directory)
//	*.js       -> **/*.js     (bare filename wildcard)
func normalizeGlob(pattern string) string {
	if strings.ContainsRune(pattern, '/') {
		return pattern
	}
	if strings.ContainsAny(pattern, "*?[") {
		return "**/" + pattern
	}
	return pattern + "/**"
}

func isAllowedGlobType(name string) bool {
	for _, t := range allowedGlobTypes {
		if name == t {
			return true
		}
	}
	return false
}
