// Package history manages the recorded triage analyses.
package history

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"triage_server/core/domain"
	"triage_server/core/port/in"
	"triage_server/core/port/out"
	"triage_server/pkg/logger"
)

var (
	ErrNotConfirmed   = errors.New("destructive operation requires confirmation")
	ErrRecordNotFound = errors.New("history record not found")
	ErrInvalidRecord  = errors.New("invalid history record")
)

// Service implements in.HistoryService.
type Service struct {
	repo out.HistoryRepository
}

// NewService creates a history service over repo.
func NewService(repo out.HistoryRepository) *Service {
	return &Service{repo: repo}
}

var _ in.HistoryService = (*Service)(nil)

// =============================================================================
// Writes
// =============================================================================

// Append stores record. An equal timestamp already in the store is bumped by
// one nanosecond and retried once, so identities stay unique.
func (s *Service) Append(ctx context.Context, record *domain.Analysis) error {
	if record == nil || record.Timestamp.IsZero() {
		return ErrInvalidRecord
	}
	record.Timestamp = record.Timestamp.UTC()

	err := s.repo.Append(ctx, record)
	if errors.Is(err, out.ErrDuplicateTimestamp) {
		record.Timestamp = record.Timestamp.Add(time.Nanosecond)
		err = s.repo.Append(ctx, record)
	}
	if err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

// Delete removes the record with timestamp ts. Without confirmation nothing changes.
func (s *Service) Delete(ctx context.Context, ts time.Time, confirmed bool) error {
	if !confirmed {
		return ErrNotConfirmed
	}

	if err := s.repo.DeleteByTimestamp(ctx, ts.UTC()); err != nil {
		if errors.Is(err, out.ErrHistoryNotFound) {
			return ErrRecordNotFound
		}
		return fmt.Errorf("delete history: %w", err)
	}

	logger.WithField("timestamp", domain.FormatTimestamp(ts)).
		WithField("backend", s.repo.Name()).
		Info("History record deleted")
	return nil
}

// Clear removes every record. Without confirmation nothing changes.
func (s *Service) Clear(ctx context.Context, confirmed bool) error {
	if !confirmed {
		return ErrNotConfirmed
	}

	if err := s.repo.Clear(ctx); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}

	logger.WithField("backend", s.repo.Name()).Info("History cleared")
	return nil
}

// =============================================================================
// Reads
// =============================================================================

// List returns records matching filter, newest first.
func (s *Service) List(ctx context.Context, filter domain.HistoryFilter) ([]*domain.Analysis, error) {
	records, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}

	SortNewestFirst(records)
	return records, nil
}

// Categories counts records per category in first-seen (insertion) order.
func (s *Service) Categories(ctx context.Context) (*in.CategorySummary, error) {
	records, err := s.repo.List(ctx, domain.HistoryFilter{})
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}

	return &in.CategorySummary{
		Categories: CountCategories(records),
		Total:      len(records),
	}, nil
}

// SortNewestFirst orders records by descending timestamp. Ties keep their
// relative order.
func SortNewestFirst(records []*domain.Analysis) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp.After(records[j].Timestamp)
	})
}

// CountCategories returns each distinct category with its record count, in
// the order categories first appear in records.
func CountCategories(records []*domain.Analysis) []domain.CategoryCount {
	index := make(map[string]int)
	counts := make([]domain.CategoryCount, 0)
	for _, r := range records {
		i, ok := index[r.Category]
		if !ok {
			i = len(counts)
			index[r.Category] = i
			counts = append(counts, domain.CategoryCount{Category: r.Category})
		}
		counts[i].Count++
	}
	return counts
}
