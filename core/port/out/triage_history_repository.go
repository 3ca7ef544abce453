package out

import (
	"context"
	"errors"
	"time"

	"triage_server/core/domain"
)

// Errors returned by HistoryRepository implementations.
var (
	ErrHistoryNotFound    = errors.New("history record not found")
	ErrDuplicateTimestamp = errors.New("history record with this timestamp already exists")
)

// HistoryRepository persists analysis records.
//
// Records are identified by Timestamp. List returns records in insertion order;
// callers sort for display. A missing or unreadable backing collection is
// reported as empty rather than as an error.
type HistoryRepository interface {
	// Name identifies the backend (for logs and readiness checks).
	Name() string

	Append(ctx context.Context, record *domain.Analysis) error
	List(ctx context.Context, filter domain.HistoryFilter) ([]*domain.Analysis, error)
	DeleteByTimestamp(ctx context.Context, ts time.Time) error
	Clear(ctx context.Context) error
}
