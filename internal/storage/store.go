// Package storage keeps the in-memory registry of compiled rules. Rules are
// immutable after compilation; the store only ever swaps the whole set on
// (re)load.
package storage

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/codesift/rule-compiler/internal/loader"
	"github.com/codesift/rule-compiler/internal/rule"
)

// HealthStatus represents the health status of a component
type HealthStatus struct {
	Status    string         `json:"status"` // "healthy", "unhealthy", "degraded"
	Message   string         `json:"message,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Health status constants
const (
	HealthStatusHealthy   = "healthy"
	HealthStatusUnhealthy = "unhealthy"
	HealthStatusDegraded  = "degraded"
)

// Store holds compiled rules with dual indexing: by id for lookups and as an
// ordered list preserving load order.
type Store struct {
	mu       sync.RWMutex
	rules    map[string]*rule.Rule
	ruleList []*rule.Rule
	dir      string

	ruleLoader *loader.FileRuleLoader
}

// NewStore creates a new Store loading rules from the given directory
func NewStore(dir string) *Store {
	return &Store{
		rules:      make(map[string]*rule.Rule),
		dir:        dir,
		ruleLoader: loader.NewFileRuleLoader(dir),
	}
}

// Load compiles all rule files in the configured directory. Rules that fail
// to compile are reported by GetLoadErrors and skipped; later rules with a
// duplicate id replace earlier ones in the index but not in the list order.
func (s *Store) Load(ctx context.Context) error {
	rules, _, err := s.ruleLoader.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load rules from %s: %w", s.dir, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.rules = make(map[string]*rule.Rule, len(rules))
	s.ruleList = make([]*rule.Rule, 0, len(rules))

	for _, r := range rules {
		s.rules[r.ID()] = r
		s.ruleList = append(s.ruleList, r)
	}

	return nil
}

// Reload reloads rules from storage
func (s *Store) Reload(ctx context.Context) error {
	return s.Load(ctx)
}

// GetAllRules returns all compiled rules in load order. The rules themselves
// are immutable and shared.
func (s *Store) GetAllRules(ctx context.Context) ([]*rule.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*rule.Rule, len(s.ruleList))
	copy(result, s.ruleList)
	return result, nil
}

// GetRuleByID retrieves a compiled rule by its id
func (s *Store) GetRuleByID(ctx context.Context, id string) (*rule.Rule, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.rules[id]
	return r, ok
}

// GetLoadErrors returns any errors from the last load operation
func (s *Store) GetLoadErrors() []loader.LoadError {
	return s.ruleLoader.GetLoadErrors()
}

// RuleCount returns the number of loaded rules
func (s *Store) RuleCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ruleList)
}

// HealthCheck performs a health check on the storage system
func (s *Store) HealthCheck(ctx context.Context) HealthStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := time.Now()
	status := HealthStatusHealthy
	message := "Rule store is operating normally"
	details := map[string]any{
		"rule_count":  len(s.ruleList),
		"rules_dir":   s.dir,
		"load_errors": s.ruleLoader.ErrorCount(),
	}

	if _, err := os.Stat(s.dir); err != nil {
		return HealthStatus{
			Status:    HealthStatusUnhealthy,
			Message:   "Rules directory is not accessible",
			Details:   map[string]any{"error": err.Error(), "rules_dir": s.dir},
			Timestamp: now,
		}
	}

	if s.ruleLoader.ErrorCount() > 0 {
		status = HealthStatusDegraded
		message = "Some rule files failed to compile"
	}

	if len(s.rules) > len(s.ruleList) {
		status = HealthStatusUnhealthy
		message = "Data structure inconsistency detected"
		details["map_size"] = len(s.rules)
		details["list_size"] = len(s.ruleList)
	}

	return HealthStatus{
		Status:    status,
		Message:   message,
		Details:   details,
		Timestamp: now,
	}
}

// GetStats returns storage statistics
func (s *Store) GetStats(ctx context.Context) map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	severityCount := make(map[string]int)
	languageCount := make(map[string]int)
	for _, r := range s.ruleList {
		severityCount[string(r.Severity())]++
		for _, lang := range r.Languages() {
			languageCount[lang]++
		}
	}

	return map[string]any{
		"rule_count":      len(s.ruleList),
		"rules_dir":       s.dir,
		"load_errors":     s.ruleLoader.ErrorCount(),
		"rule_severities": severityCount,
		"rule_languages":  languageCount,
	}
}
