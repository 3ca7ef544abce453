package in

import (
	"context"
	"time"

	"triage_server/core/domain"
	"triage_server/core/service/urgency"
)

// TriageService analyzes inbound messages.
type TriageService interface {
	// Analyze scores, categorizes and records message.
	Analyze(ctx context.Context, message string) (*domain.Analysis, error)

	// Preview scores message without recording it.
	Preview(ctx context.Context, message string) (*urgency.Assessment, error)
}

// HistoryService manages recorded analyses.
type HistoryService interface {
	Append(ctx context.Context, record *domain.Analysis) error

	// List returns records newest first.
	List(ctx context.Context, filter domain.HistoryFilter) ([]*domain.Analysis, error)
	Categories(ctx context.Context) (*CategorySummary, error)

	// Delete and Clear are destructive and require confirmed=true.
	Delete(ctx context.Context, ts time.Time, confirmed bool) error
	Clear(ctx context.Context, confirmed bool) error
}

// CategorySummary lists distinct categories in first-seen order.
type CategorySummary struct {
	Categories []domain.CategoryCount `json:"categories"`
	Total      int                    `json:"total"`
}
