// Package loader provides file-based loading and compilation of rule
// documents. It scans configured directories for rule files, parses each
// file's documents, and compiles every rule independently so one malformed
// rule never blocks its siblings.
package loader

import (
	"context"
	"os"
	"path/filepath"
	"strings"
)

// ValidRuleExtensions defines the file extensions recognized as rule files
var ValidRuleExtensions = []string{".rule.yaml", ".yaml", ".yml"}

// Scanner handles recursive directory scanning for rule files
type Scanner struct {
	dir string
}

// NewScanner creates a new Scanner rooted at the given directory
func NewScanner(dir string) *Scanner {
	return &Scanner{dir: dir}
}

// Scan recursively scans the configured directory for rule files
func (s *Scanner) Scan(ctx context.Context) ([]string, error) {
	var files []string

	err := filepath.WalkDir(s.dir, func(path string, d os.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil {
			// Skip inaccessible entries but continue scanning
			return nil
		}

		if d.IsDir() {
			return nil
		}

		if !isRuleFile(path) {
			return nil
		}

		files = append(files, path)
		return nil
	})

	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	return files, nil
}

// isRuleFile checks if a file path has a valid rule file extension
func isRuleFile(path string) bool {
	lowerPath := strings.ToLower(path)
	for _, ext := range ValidRuleExtensions {
		if strings.HasSuffix(lowerPath, ext) {
			return true
		}
	}
	return false
}
