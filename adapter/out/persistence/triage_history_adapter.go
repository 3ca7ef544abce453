// Package persistence provides database adapters implementing outbound ports.
package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"triage_server/core/domain"
	"triage_server/core/port/out"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

// historySchema creates the history table. timestamp_ns keeps full nanosecond
// precision, which timestamptz would truncate to microseconds.
const historySchema = `
CREATE TABLE IF NOT EXISTS triage_history (
	id                 BIGSERIAL PRIMARY KEY,
	message            TEXT        NOT NULL,
	category           TEXT        NOT NULL,
	urgency            TEXT        NOT NULL,
	recommended_action TEXT        NOT NULL,
	reasoning          TEXT        NOT NULL,
	timestamp_ns       BIGINT      NOT NULL UNIQUE,
	created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_triage_history_category ON triage_history (category);
`

// HistoryAdapter implements out.HistoryRepository using PostgreSQL.
type HistoryAdapter struct {
	db *sqlx.DB
}

// NewHistoryAdapter creates a new HistoryAdapter.
func NewHistoryAdapter(db *sqlx.DB) *HistoryAdapter {
	return &HistoryAdapter{db: db}
}

var _ out.HistoryRepository = (*HistoryAdapter)(nil)

// historyRow represents the database row for history records.
type historyRow struct {
	ID                int64     `db:"id"`
	Message           string    `db:"message"`
	Category          string    `db:"category"`
	Urgency           string    `db:"urgency"`
	RecommendedAction string    `db:"recommended_action"`
	Reasoning         string    `db:"reasoning"`
	TimestampNs       int64     `db:"timestamp_ns"`
	CreatedAt         time.Time `db:"created_at"`
}

func (r *historyRow) toEntity() *domain.Analysis {
	return &domain.Analysis{
		Message:           r.Message,
		Category:          r.Category,
		Urgency:           domain.Urgency(r.Urgency),
		RecommendedAction: r.RecommendedAction,
		Reasoning:         r.Reasoning,
		Timestamp:         time.Unix(0, r.TimestampNs).UTC(),
	}
}

func (a *HistoryAdapter) Name() string { return "postgres" }

// EnsureSchema creates the history table if it does not exist.
func (a *HistoryAdapter) EnsureSchema(ctx context.Context) error {
	if _, err := a.db.ExecContext(ctx, historySchema); err != nil {
		return fmt.Errorf("failed to create history schema: %w", err)
	}
	return nil
}

// Append inserts a record.
func (a *HistoryAdapter) Append(ctx context.Context, record *domain.Analysis) error {
	query := `
		INSERT INTO triage_history (message, category, urgency, recommended_action, reasoning, timestamp_ns)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := a.db.ExecContext(ctx, query,
		record.Message,
		record.Category,
		string(record.Urgency),
		record.RecommendedAction,
		record.Reasoning,
		record.Timestamp.UnixNano(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return out.ErrDuplicateTimestamp
		}
		return fmt.Errorf("failed to insert history record: %w", err)
	}
	return nil
}

// List returns records in insertion order.
func (a *HistoryAdapter) List(ctx context.Context, filter domain.HistoryFilter) ([]*domain.Analysis, error) {
	var rows []historyRow
	var err error

	if filter.MatchesAll() {
		err = a.db.SelectContext(ctx, &rows, `SELECT * FROM triage_history ORDER BY id ASC`)
	} else {
		err = a.db.SelectContext(ctx, &rows, `SELECT * FROM triage_history WHERE category = $1 ORDER BY id ASC`, filter.Category)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}

	records := make([]*domain.Analysis, len(rows))
	for i := range rows {
		records[i] = rows[i].toEntity()
	}
	return records, nil
}

// DeleteByTimestamp removes the record whose identity is ts.
func (a *HistoryAdapter) DeleteByTimestamp(ctx context.Context, ts time.Time) error {
	result, err := a.db.ExecContext(ctx, `DELETE FROM triage_history WHERE timestamp_ns = $1`, ts.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to delete history record: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete history record: %w", err)
	}
	if n == 0 {
		return out.ErrHistoryNotFound
	}
	return nil
}

// Clear removes every record.
func (a *HistoryAdapter) Clear(ctx context.Context) error {
	if _, err := a.db.ExecContext(ctx, `DELETE FROM triage_history`); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}

// isUniqueViolation recognises unique-key errors from both the pgx and lib/pq drivers.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == uniqueViolation
	}
	return false
}
