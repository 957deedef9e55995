package health

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/codesift/rule-compiler/internal/storage"
)

// stubComponent reports a fixed status and counts how often it is checked
type stubComponent struct {
	status string
	calls  int
}

func (s *stubComponent) HealthCheck(ctx context.Context) storage.HealthStatus {
	s.calls++
	return storage.HealthStatus{
		Status:    s.status,
		Timestamp: time.Now(),
	}
}

func TestCheckHealth_AllHealthy(t *testing.T) {
	checker := NewSystemHealthChecker(
		&stubComponent{status: storage.HealthStatusHealthy},
		&stubComponent{status: storage.HealthStatusHealthy},
	)

	result := checker.CheckHealth(context.Background())
	assert.Equal(t, storage.HealthStatusHealthy, result.Status)
	assert.Len(t, result.Components, 2)
	assert.Contains(t, result.Components, "storage")
	assert.Contains(t, result.Components, "cache")
}

func TestCheckHealth_DegradedComponent(t *testing.T) {
	checker := NewSystemHealthChecker(
		&stubComponent{status: storage.HealthStatusDegraded},
		&stubComponent{status: storage.HealthStatusHealthy},
	)

	result := checker.CheckHealth(context.Background())
	assert.Equal(t, storage.HealthStatusDegraded, result.Status)
}

func TestCheckHealth_UnhealthyWinsOverDegraded(t *testing.T) {
	checker := NewSystemHealthChecker(
		&stubComponent{status: storage.HealthStatusDegraded},
		&stubComponent{status: storage.HealthStatusUnhealthy},
	)

	result := checker.CheckHealth(context.Background())
	assert.Equal(t, storage.HealthStatusUnhealthy, result.Status)
}

func TestCheckHealth_ResultIsCached(t *testing.T) {
	store := &stubComponent{status: storage.HealthStatusHealthy}
	checker := NewSystemHealthChecker(store, &stubComponent{status: storage.HealthStatusHealthy})

	checker.CheckHealth(context.Background())
	checker.CheckHealth(context.Background())
	checker.CheckHealth(context.Background())

	assert.Equal(t, 1, store.calls)
}

func TestCheckComponent(t *testing.T) {
	checker := NewSystemHealthChecker(
		&stubComponent{status: storage.HealthStatusHealthy},
		&stubComponent{status: storage.HealthStatusDegraded},
	)

	status := checker.CheckComponent(context.Background(), "cache")
	assert.Equal(t, storage.HealthStatusDegraded, status.Status)

	status = checker.CheckComponent(context.Background(), "unknown")
	assert.Equal(t, storage.HealthStatusUnhealthy, status.Status)
}
