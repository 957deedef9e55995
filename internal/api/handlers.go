package api

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/codesift/rule-compiler/internal/cache"
	"github.com/codesift/rule-compiler/internal/health"
	"github.com/codesift/rule-compiler/internal/rule"
	"github.com/codesift/rule-compiler/internal/schema"
	"github.com/codesift/rule-compiler/internal/storage"
)

// Error codes returned in the standard error response
const (
	ErrInvalidInput     = "INVALID_INPUT"
	ErrValidationFailed = "VALIDATION_FAILED"
	ErrNotFound         = "NOT_FOUND"
	ErrTooLarge         = "PAYLOAD_TOO_LARGE"
	ErrInternal         = "INTERNAL_ERROR"
)

// Handlers contains all HTTP handlers for the Rule Compiler API
type Handlers struct {
	store         *storage.Store
	cache         *cache.LRUCache
	healthChecker *health.SystemHealthChecker
}

// NewHandlers creates a new instance of API handlers
func NewHandlers(store *storage.Store, compileCache *cache.LRUCache, healthChecker *health.SystemHealthChecker) *Handlers {
	return &Handlers{
		store:         store,
		cache:         compileCache,
		healthChecker: healthChecker,
	}
}

// ErrorResponse represents the standard error response format
type ErrorResponse struct {
	Status  string `json:"status" example:"error"`
	Code    string `json:"code" example:"VALIDATION_FAILED"`
	Message string `json:"message" example:"Rule document violates the expected structure"`
	Details any    `json:"details,omitempty"`
}

// SuccessResponse represents the standard success response format
type SuccessResponse struct {
	Status string `json:"status" example:"success"`
	Data   any    `json:"data"`
}

// CompiledRuleView is the projection of a compiled rule returned by the API
type CompiledRuleView struct {
	ID           string             `json:"id"`
	Message      string             `json:"message"`
	Severity     string             `json:"severity"`
	Languages    []string           `json:"languages"`
	Expression   rule.Expression    `json:"expression"`
	Paths        PathsView          `json:"paths"`
	Metadata     map[string]any     `json:"metadata,omitempty"`
	Fix          string             `json:"fix,omitempty"`
	Equivalences []rule.Equivalence `json:"equivalences,omitempty"`
}

// PathsView is the projection of a rule's include/exclude glob sets
type PathsView struct {
	Include []string `json:"include"`
	Exclude []string `json:"exclude"`
}

// SchemaErrorDetails is the error detail payload for a schema violation
type SchemaErrorDetails struct {
	Short string        `json:"short"`
	Long  string        `json:"long"`
	Level schema.Level  `json:"level"`
	Help  string        `json:"help,omitempty"`
	Spans []schema.Span `json:"spans"`
}

// CompileHandler handles POST /v1/rules/compile requests
// @Summary      Compile a rule document
// @Description  Compiles a raw YAML rule document into its expression tree, glob sets and metadata
// @Tags         Compilation
// @Accept       application/yaml
// @Produce      json
// @Success      200 {object} SuccessResponse "Successfully compiled rule"
// @Failure      400 {object} ErrorResponse "Malformed YAML"
// @Failure      422 {object} ErrorResponse "Rule violates the expected structure"
// @Router       /v1/rules/compile [post]
func (h *Handlers) CompileHandler(c *fiber.Ctx) error {
	requestID := ""
	if rid := c.Locals("requestid"); rid != nil {
		requestID = rid.(string)
	}

	body := c.Body()
	if len(bytes.TrimSpace(body)) == 0 {
		return h.sendError(c, 400, ErrInvalidInput, "Request body is empty", nil)
	}

	key := cache.Key(body)
	if compiled, ok := h.cache.Get(key); ok {
		return c.Status(200).JSON(SuccessResponse{
			Status: "success",
			Data: map[string]any{
				"rule":      ruleView(compiled),
				"cache_hit": true,
			},
		})
	}

	var doc yaml.Node
	decoder := yaml.NewDecoder(bytes.NewReader(body))
	if err := decoder.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return h.sendError(c, 400, ErrInvalidInput, "Malformed YAML document",
			map[string]string{"error": err.Error()})
	}

	compiled, err := rule.New(&doc)
	if err != nil {
		if se, ok := schema.IsSchemaError(err); ok {
			return h.sendError(c, 422, ErrValidationFailed, se.Short, SchemaErrorDetails{
				Short: se.Short,
				Long:  se.Long,
				Level: se.Level,
				Help:  se.Help,
				Spans: se.Spans,
			})
		}

		log.Error().
			Err(err).
			Str("request_id", requestID).
			Msg("Failed to compile rule document")

		return h.sendError(c, 500, ErrInternal, "Failed to compile rule document", nil)
	}

	h.cache.Set(key, compiled)

	return c.Status(200).JSON(SuccessResponse{
		Status: "success",
		Data: map[string]any{
			"rule":      ruleView(compiled),
			"cache_hit": false,
		},
	})
}

// ListRulesHandler handles GET /v1/rules requests
// @Summary      List all rules
// @Description  Retrieves all rules compiled from the configured rules directory
// @Tags         Rules
// @Produce      json
// @Success      200 {object} SuccessResponse "Successfully retrieved rules"
// @Failure      500 {object} ErrorResponse "Internal server error"
// @Router       /v1/rules [get]
func (h *Handlers) ListRulesHandler(c *fiber.Ctx) error {
	ctx := c.Context()
	requestID := ""
	if rid := c.Locals("requestid"); rid != nil {
		requestID = rid.(string)
	}

	rules, err := h.store.GetAllRules(ctx)
	if err != nil {
		log.Error().
			Err(err).
			Str("request_id", requestID).
			Msg("Failed to retrieve rules")

		return h.sendError(c, 500, ErrInternal, "Failed to retrieve rules", nil)
	}

	views := make([]CompiledRuleView, 0, len(rules))
	for _, r := range rules {
		views = append(views, ruleView(r))
	}

	return c.Status(200).JSON(SuccessResponse{
		Status: "success",
		Data: map[string]any{
			"rules":       views,
			"count":       len(views),
			"load_errors": h.store.GetLoadErrors(),
		},
	})
}

// GetRuleHandler handles GET /v1/rules/:id requests
// @Summary      Get a rule
// @Description  Retrieves a compiled rule by its id
// @Tags         Rules
// @Produce      json
// @Param        id path string true "Rule ID"
// @Success      200 {object} SuccessResponse "Successfully retrieved rule"
// @Failure      404 {object} ErrorResponse "Rule not found"
// @Router       /v1/rules/{id} [get]
func (h *Handlers) GetRuleHandler(c *fiber.Ctx) error {
	ctx := c.Context()

	ruleID := strings.TrimSpace(c.Params("id"))
	if ruleID == "" {
		return h.sendError(c, 422, ErrValidationFailed, "Rule ID is required",
			map[string]string{"field": "id", "reason": "required"})
	}

	r, ok := h.store.GetRuleByID(ctx, ruleID)
	if !ok {
		return h.sendError(c, 404, ErrNotFound, "Rule not found",
			map[string]string{"rule_id": ruleID})
	}

	return c.Status(200).JSON(SuccessResponse{
		Status: "success",
		Data: map[string]any{
			"rule": ruleView(r),
		},
	})
}

// GetRuleSARIFHandler handles GET /v1/rules/:id/sarif requests
// @Summary      Get a rule's SARIF descriptor
// @Description  Projects a compiled rule into a SARIF reportingDescriptor
// @Tags         Rules
// @Produce      json
// @Param        id path string true "Rule ID"
// @Success      200 {object} SuccessResponse "Successfully projected rule"
// @Failure      404 {object} ErrorResponse "Rule not found"
// @Router       /v1/rules/{id}/sarif [get]
func (h *Handlers) GetRuleSARIFHandler(c *fiber.Ctx) error {
	ctx := c.Context()

	ruleID := strings.TrimSpace(c.Params("id"))
	if ruleID == "" {
		return h.sendError(c, 422, ErrValidationFailed, "Rule ID is required",
			map[string]string{"field": "id", "reason": "required"})
	}

	r, ok := h.store.GetRuleByID(ctx, ruleID)
	if !ok {
		return h.sendError(c, 404, ErrNotFound, "Rule not found",
			map[string]string{"rule_id": ruleID})
	}

	return c.Status(200).JSON(SuccessResponse{
		Status: "success",
		Data: map[string]any{
			"rule": r.ToSARIF(),
		},
	})
}

// SARIFHandler handles GET /v1/sarif requests
// @Summary      SARIF tool driver fragment
// @Description  Projects all loaded rules into a SARIF tool.driver.rules fragment
// @Tags         Rules
// @Produce      json
// @Success      200 {object} SuccessResponse "Successfully projected rules"
// @Failure      500 {object} ErrorResponse "Internal server error"
// @Router       /v1/sarif [get]
func (h *Handlers) SARIFHandler(c *fiber.Ctx) error {
	ctx := c.Context()

	rules, err := h.store.GetAllRules(ctx)
	if err != nil {
		return h.sendError(c, 500, ErrInternal, "Failed to retrieve rules", nil)
	}

	descriptors := make([]rule.SARIFRule, 0, len(rules))
	for _, r := range rules {
		descriptors = append(descriptors, r.ToSARIF())
	}

	return c.Status(200).JSON(SuccessResponse{
		Status: "success",
		Data: map[string]any{
			"tool": map[string]any{
				"driver": map[string]any{
					"name":  "rule-compiler",
					"rules": descriptors,
				},
			},
		},
	})
}

// ReloadHandler handles POST /v1/rules/reload requests
// @Summary      Reload rules
// @Description  Recompiles all rule files from the rules directory and clears the compile cache
// @Tags         Rules
// @Produce      json
// @Success      200 {object} SuccessResponse "Successfully reloaded rules"
// @Failure      500 {object} ErrorResponse "Internal server error"
// @Router       /v1/rules/reload [post]
func (h *Handlers) ReloadHandler(c *fiber.Ctx) error {
	ctx := c.Context()

	if err := h.store.Reload(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to reload rules")
		return h.sendError(c, 500, ErrInternal, "Failed to reload rules", nil)
	}

	h.cache.Clear()

	return c.Status(200).JSON(SuccessResponse{
		Status: "success",
		Data: map[string]any{
			"rule_count":  h.store.RuleCount(),
			"load_errors": h.store.GetLoadErrors(),
		},
	})
}

// HealthHandler handles GET /health requests
// @Summary      Health check
// @Description  Returns the health status of the service
// @Tags         System
// @Produce      json
// @Success      200 {object} map[string]any "Service is healthy"
// @Router       /health [get]
func (h *Handlers) HealthHandler(c *fiber.Ctx) error {
	ctx := c.Context()

	systemHealth := h.healthChecker.CheckHealth(ctx)

	status := 200
	if systemHealth.Status == storage.HealthStatusUnhealthy {
		status = 503 // Service Unavailable
	}

	return c.Status(status).JSON(map[string]any{
		"status":     systemHealth.Status,
		"timestamp":  systemHealth.Timestamp.Format(time.RFC3339),
		"components": systemHealth.Components,
		"uptime":     systemHealth.Uptime.String(),
	})
}

// MetricsHandler handles GET /metrics requests
// @Summary      System metrics
// @Description  Returns system metrics including compile cache statistics and rule counts
// @Tags         System
// @Produce      json
// @Success      200 {object} SuccessResponse "Successfully retrieved metrics"
// @Router       /metrics [get]
func (h *Handlers) MetricsHandler(c *fiber.Ctx) error {
	ctx := c.Context()

	cacheStats := h.cache.Stats()

	return c.Status(200).JSON(SuccessResponse{
		Status: "success",
		Data: map[string]any{
			"cache": map[string]any{
				"hits":      cacheStats.Hits,
				"misses":    cacheStats.Misses,
				"size":      cacheStats.Size,
				"max_size":  cacheStats.MaxSize,
				"hit_ratio": cacheStats.HitRatio,
			},
			"rules": h.store.GetStats(ctx),
			"uptime": map[string]any{
				"timestamp": time.Now().UTC().Format(time.RFC3339),
			},
		},
	})
}

// ruleView projects a compiled rule into its API representation
func ruleView(r *rule.Rule) CompiledRuleView {
	globs := r.Globs()
	return CompiledRuleView{
		ID:           r.ID(),
		Message:      r.Message(),
		Severity:     string(r.Severity()),
		Languages:    r.Languages(),
		Expression:   *r.Expression(),
		Paths:        PathsView{Include: globs.IncludeSlice(), Exclude: globs.ExcludeSlice()},
		Metadata:     r.Metadata(),
		Fix:          r.Fix(),
		Equivalences: r.Equivalences(),
	}
}

// sendError sends a standardized error response
func (h *Handlers) sendError(c *fiber.Ctx, status int, code, message string, details any) error {
	return c.Status(status).JSON(ErrorResponse{
		Status:  "error",
		Code:    code,
		Message: message,
		Details: details,
	})
}
