// Package health aggregates component health checks for the service.
package health

import (
	"context"
	"sync"
	"time"

	"github.com/codesift/rule-compiler/internal/storage"
)

// Component is anything that can report its own health.
type Component interface {
	HealthCheck(ctx context.Context) storage.HealthStatus
}

// SystemHealth represents overall system health
type SystemHealth struct {
	Status     string                          `json:"status"`
	Timestamp  time.Time                       `json:"timestamp"`
	Components map[string]storage.HealthStatus `json:"components"`
	Uptime     time.Duration                   `json:"uptime"`
}

// SystemHealthChecker implements system health monitoring over the rule store
// and the compile cache, with cached results to avoid repeated checks.
type SystemHealthChecker struct {
	components map[string]Component

	timeout   time.Duration
	startTime time.Time

	lastCheck   time.Time
	lastHealth  SystemHealth
	cacheTTL    time.Duration
	healthMutex sync.Mutex
}

// NewSystemHealthChecker creates a new system health checker
func NewSystemHealthChecker(store Component, cache Component) *SystemHealthChecker {
	return &SystemHealthChecker{
		components: map[string]Component{
			"storage": store,
			"cache":   cache,
		},
		timeout:   5 * time.Second,
		cacheTTL:  30 * time.Second,
		startTime: time.Now(),
	}
}

// CheckHealth performs a system health check, returning a cached result when
// one is still fresh.
func (h *SystemHealthChecker) CheckHealth(ctx context.Context) SystemHealth {
	h.healthMutex.Lock()
	defer h.healthMutex.Unlock()

	if time.Since(h.lastCheck) < h.cacheTTL {
		return h.lastHealth
	}

	checkCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	now := time.Now()
	components := make(map[string]storage.HealthStatus, len(h.components))
	overallStatus := storage.HealthStatusHealthy

	for name, component := range h.components {
		status := component.HealthCheck(checkCtx)
		components[name] = status
		overallStatus = aggregateStatus(overallStatus, status.Status)
	}

	systemHealth := SystemHealth{
		Status:     overallStatus,
		Timestamp:  now,
		Components: components,
		Uptime:     now.Sub(h.startTime),
	}

	h.lastCheck = now
	h.lastHealth = systemHealth

	return systemHealth
}

// CheckComponent performs a health check on a specific component
func (h *SystemHealthChecker) CheckComponent(ctx context.Context, name string) storage.HealthStatus {
	component, ok := h.components[name]
	if !ok {
		return storage.HealthStatus{
			Status:    storage.HealthStatusUnhealthy,
			Message:   "Unknown component: " + name,
			Timestamp: time.Now(),
		}
	}

	checkCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	return component.HealthCheck(checkCtx)
}

// aggregateStatus combines component statuses; unhealthy wins over degraded,
// degraded wins over healthy.
func aggregateStatus(current, incoming string) string {
	if current == storage.HealthStatusUnhealthy || incoming == storage.HealthStatusUnhealthy {
		return storage.HealthStatusUnhealthy
	}
	if current == storage.HealthStatusDegraded || incoming == storage.HealthStatusDegraded {
		return storage.HealthStatusDegraded
	}
	return storage.HealthStatusHealthy
}
