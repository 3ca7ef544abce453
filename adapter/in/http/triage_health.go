package http

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"triage_server/pkg/metrics"
)

// ReadinessCheck pings one backend.
type ReadinessCheck struct {
	Name string
	Ping func(ctx context.Context) error
}

// HealthHandler serves liveness, readiness and latency endpoints.
type HealthHandler struct {
	checks []ReadinessCheck
	info   func() map[string]any
}

// NewHealthHandler creates a health handler over the given readiness checks.
func NewHealthHandler(checks ...ReadinessCheck) *HealthHandler {
	return &HealthHandler{checks: checks}
}

// SetInfo adds extra fields to the readiness body, such as breaker state.
func (h *HealthHandler) SetInfo(info func() map[string]any) {
	h.info = info
}

func (h *HealthHandler) Register(app *fiber.App) {
	app.Get("/health", h.Health)
	app.Get("/ready", h.Ready)
	app.Get("/metrics/latency", h.Latency)
}

func (h *HealthHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string, len(h.checks))
	allHealthy := true

	for _, check := range h.checks {
		if err := check.Ping(ctx); err != nil {
			checks[check.Name] = "unhealthy: " + err.Error()
			allHealthy = false
		} else {
			checks[check.Name] = "healthy"
		}
	}

	status := "ready"
	statusCode := fiber.StatusOK
	if !allHealthy {
		status = "not ready"
		statusCode = fiber.StatusServiceUnavailable
	}

	body := fiber.Map{
		"status":    status,
		"checks":    checks,
		"pools":     metrics.GetAllPoolHealth(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if h.info != nil {
		for k, v := range h.info() {
			body[k] = v
		}
	}

	return c.Status(statusCode).JSON(body)
}

// Latency reports P50/P95/P99 per route and per service operation.
// GET /metrics/latency
func (h *HealthHandler) Latency(c *fiber.Ctx) error {
	all := metrics.GetAllLatencyStats()
	out := make(map[string]map[string]any, len(all))
	for name, stats := range all {
		out[name] = stats.ToMap()
	}
	return c.JSON(fiber.Map{"latency": out})
}
