package persistence

import (
	"context"
	"sync"
	"time"

	"triage_server/core/domain"
	"triage_server/core/port/out"
)

// MemoryHistoryAdapter implements out.HistoryRepository in process memory.
type MemoryHistoryAdapter struct {
	mu      sync.RWMutex
	records []*domain.Analysis
}

// NewMemoryHistoryAdapter creates an empty in-memory history.
func NewMemoryHistoryAdapter() *MemoryHistoryAdapter {
	return &MemoryHistoryAdapter{}
}

var _ out.HistoryRepository = (*MemoryHistoryAdapter)(nil)

func (a *MemoryHistoryAdapter) Name() string { return "memory" }

func (a *MemoryHistoryAdapter) Append(_ context.Context, record *domain.Analysis) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, r := range a.records {
		if r.Timestamp.Equal(record.Timestamp) {
			return out.ErrDuplicateTimestamp
		}
	}
	a.records = append(a.records, record.Clone())
	return nil
}

func (a *MemoryHistoryAdapter) List(_ context.Context, filter domain.HistoryFilter) ([]*domain.Analysis, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	result := make([]*domain.Analysis, 0, len(a.records))
	for _, r := range a.records {
		if filter.Matches(r) {
			result = append(result, r.Clone())
		}
	}
	return result, nil
}

func (a *MemoryHistoryAdapter) DeleteByTimestamp(_ context.Context, ts time.Time) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	for i, r := range a.records {
		if r.Timestamp.Equal(ts) {
			a.records = append(a.records[:i], a.records[i+1:]...)
			return nil
		}
	}
	return out.ErrHistoryNotFound
}

func (a *MemoryHistoryAdapter) Clear(_ context.Context) error {
	a.mu.Lock()
	a.records = nil
	a.mu.Unlock()
	return nil
}
