package http

import (
	"github.com/gofiber/fiber/v2"

	"triage_server/core/domain"
	"triage_server/core/port/in"
	"triage_server/core/service/urgency"
	"triage_server/pkg/response"
)

// TriageHandler serves analysis and history endpoints.
type TriageHandler struct {
	triage  in.TriageService
	history in.HistoryService
}

// NewTriageHandler creates a new triage handler.
func NewTriageHandler(triage in.TriageService, history in.HistoryService) *TriageHandler {
	return &TriageHandler{
		triage:  triage,
		history: history,
	}
}

// Register registers triage routes.
func (h *TriageHandler) Register(router fiber.Router) {
	router.Post("/analyze", h.Analyze)
	router.Post("/classify", h.Classify)

	hist := router.Group("/history")
	hist.Get("/", h.ListHistory)
	hist.Get("/categories", h.ListCategories)
	hist.Delete("/", h.ClearHistory)
	hist.Delete("/:timestamp", h.DeleteRecord)
}

// =============================================================================
// Analysis
// =============================================================================

// Analyze scores, categorizes and records a message.
// POST /api/v1/analyze
func (h *TriageHandler) Analyze(c *fiber.Ctx) error {
	message, err := parseMessage(c)
	if err != nil {
		return err
	}

	analysis, err := h.triage.Analyze(c.UserContext(), message)
	if err != nil {
		return err
	}

	return response.Created(c, analysis)
}

// classifyResponse is the unrecorded urgency verdict.
type classifyResponse struct {
	Urgency domain.Urgency   `json:"urgency"`
	Score   int              `json:"score"`
	Rules   []urgency.Signal `json:"rules"`
}

// Classify scores a message without recording it.
// POST /api/v1/classify
func (h *TriageHandler) Classify(c *fiber.Ctx) error {
	message, err := parseMessage(c)
	if err != nil {
		return err
	}

	assessment, err := h.triage.Preview(c.UserContext(), message)
	if err != nil {
		return err
	}

	return response.OK(c, classifyResponse{
		Urgency: assessment.Urgency,
		Score:   int(assessment.Score),
		Rules:   assessment.Signals,
	})
}

// =============================================================================
// History
// =============================================================================

// ListHistory returns recorded analyses, newest first.
// GET /api/v1/history?category=
func (h *TriageHandler) ListHistory(c *fiber.Ctx) error {
	filter := domain.HistoryFilter{Category: c.Query("category")}

	items, err := h.history.List(c.UserContext(), filter)
	if err != nil {
		return historyError(err, "list history")
	}

	return response.OK(c, response.NewList(items))
}

// ListCategories returns distinct categories with counts.
// GET /api/v1/history/categories
func (h *TriageHandler) ListCategories(c *fiber.Ctx) error {
	summary, err := h.history.Categories(c.UserContext())
	if err != nil {
		return historyError(err, "list categories")
	}
	if summary.Categories == nil {
		summary.Categories = []domain.CategoryCount{}
	}

	return response.OK(c, summary)
}

// DeleteRecord removes one analysis by timestamp.
// DELETE /api/v1/history/:timestamp?confirm=true
func (h *TriageHandler) DeleteRecord(c *fiber.Ctx) error {
	ts, err := timestampParam(c)
	if err != nil {
		return err
	}

	if err := h.history.Delete(c.UserContext(), ts, c.QueryBool("confirm")); err != nil {
		return historyError(err, "delete history record")
	}

	return response.NoContent(c)
}

// ClearHistory removes every analysis.
// DELETE /api/v1/history?confirm=true
func (h *TriageHandler) ClearHistory(c *fiber.Ctx) error {
	if err := h.history.Clear(c.UserContext(), c.QueryBool("confirm")); err != nil {
		return historyError(err, "clear history")
	}

	return response.NoContent(c)
}
