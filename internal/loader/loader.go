package loader

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/codesift/rule-compiler/internal/rule"
)

// RuleLoader handles loading compiled rules from the file system
type RuleLoader interface {
	// LoadAll scans the rules directory and returns all compiled rules
	LoadAll(ctx context.Context) ([]*rule.Rule, []LoadError, error)
	// Reload triggers a full reload of all rules
	Reload(ctx context.Context) error
	// GetRules returns the currently loaded rules
	GetRules() []*rule.Rule
	// GetLoadErrors returns errors from the last load operation
	GetLoadErrors() []LoadError
}

// FileRuleLoader implements RuleLoader using file-based storage
type FileRuleLoader struct {
	scanner    *Scanner
	parser     *Parser
	mu         sync.RWMutex
	rules      []*rule.Rule
	loadErrors []LoadError
}

// NewFileRuleLoader creates a new FileRuleLoader rooted at the given directory
func NewFileRuleLoader(dir string) *FileRuleLoader {
	return &FileRuleLoader{
		scanner: NewScanner(dir),
		parser:  NewParser(),
	}
}

// LoadAll scans the rules directory and compiles rules from discovered files.
// Returns the compiled rules, any per-rule load errors, and a fatal error if
// scanning fails.
func (l *FileRuleLoader) LoadAll(ctx context.Context) ([]*rule.Rule, []LoadError, error) {
	files, err := l.scanner.Scan(ctx)
	if err != nil {
		return nil, nil, err
	}

	var rules []*rule.Rule
	var loadErrors []LoadError

	for _, file := range files {
		select {
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		default:
		}

		fileRules, fileErrors := l.parser.ParseFile(file)
		rules = append(rules, fileRules...)
		loadErrors = append(loadErrors, fileErrors...)

		for _, le := range fileErrors {
			log.Warn().
				Str("file", le.FilePath).
				Str("rule_id", le.RuleID).
				Int("line", le.Line).
				Str("error", le.Error).
				Msg("Skipping rule that failed to compile")
		}
	}

	l.mu.Lock()
	l.rules = rules
	l.loadErrors = loadErrors
	l.mu.Unlock()

	return rules, loadErrors, nil
}

// Reload triggers a full reload of all rules from disk
func (l *FileRuleLoader) Reload(ctx context.Context) error {
	_, _, err := l.LoadAll(ctx)
	return err
}

// GetRules returns the currently loaded rules
func (l *FileRuleLoader) GetRules() []*rule.Rule {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make([]*rule.Rule, len(l.rules))
	copy(result, l.rules)
	return result
}

// GetLoadErrors returns errors from the last load operation
func (l *FileRuleLoader) GetLoadErrors() []LoadError {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make([]LoadError, len(l.loadErrors))
	copy(result, l.loadErrors)
	return result
}

// RuleCount returns the number of currently loaded rules
func (l *FileRuleLoader) RuleCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.rules)
}

// ErrorCount returns the number of load errors from the last operation
func (l *FileRuleLoader) ErrorCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.loadErrors)
}
