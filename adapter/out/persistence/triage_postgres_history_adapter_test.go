package persistence

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"triage_server/core/domain"
	"triage_server/core/port/out"
)

func newSQLHistory(t *testing.T) (*HistoryAdapter, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewHistoryAdapter(sqlx.NewDb(db, "postgres")), mock
}

func TestHistoryAdapterAppend(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 123456789, time.UTC)
	insert := regexp.QuoteMeta("INSERT INTO triage_history")

	tests := []struct {
		name    string
		execErr error
		wantErr error
	}{
		{name: "inserted", wantErr: nil},
		{name: "unique violation from lib/pq", execErr: &pq.Error{Code: "23505"}, wantErr: out.ErrDuplicateTimestamp},
		{name: "other failure", execErr: errors.New("connection reset"), wantErr: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newSQLHistory(t)
			rec := &domain.Analysis{
				Message:           "charged twice",
				Category:          "Billing",
				Urgency:           domain.UrgencyHigh,
				RecommendedAction: "Escalate to billing team immediately",
				Reasoning:         "**Category:** Billing",
				Timestamp:         ts,
			}

			exp := mock.ExpectExec(insert).WithArgs(
				rec.Message, rec.Category, "High", rec.RecommendedAction, rec.Reasoning, ts.UnixNano(),
			)
			if tt.execErr != nil {
				exp.WillReturnError(tt.execErr)
			} else {
				exp.WillReturnResult(sqlmock.NewResult(1, 1))
			}

			err := repo.Append(context.Background(), rec)
			switch {
			case tt.wantErr != nil:
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Append err = %v, want %v", err, tt.wantErr)
				}
			case tt.execErr != nil:
				if err == nil || errors.Is(err, out.ErrDuplicateTimestamp) {
					t.Errorf("Append err = %v, want wrapped driver error", err)
				}
			case err != nil:
				t.Errorf("Append err = %v", err)
			}

			if err := mock.ExpectationsWereMet(); err != nil {
				t.Error(err)
			}
		})
	}
}

func TestHistoryAdapterDeleteByTimestamp(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 1, time.UTC)
	del := regexp.QuoteMeta("DELETE FROM triage_history WHERE timestamp_ns = $1")

	tests := []struct {
		name     string
		affected int64
		wantErr  error
	}{
		{name: "deleted", affected: 1},
		{name: "no such record", affected: 0, wantErr: out.ErrHistoryNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newSQLHistory(t)
			mock.ExpectExec(del).WithArgs(ts.UnixNano()).WillReturnResult(sqlmock.NewResult(0, tt.affected))

			err := repo.DeleteByTimestamp(context.Background(), ts)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("DeleteByTimestamp err = %v, want %v", err, tt.wantErr)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Error(err)
			}
		})
	}
}

func TestHistoryAdapterListByCategory(t *testing.T) {
	repo, mock := newSQLHistory(t)
	ts := time.Date(2024, 5, 1, 12, 0, 0, 987654321, time.UTC)

	rows := sqlmock.NewRows([]string{
		"id", "message", "category", "urgency", "recommended_action", "reasoning", "timestamp_ns", "created_at",
	}).AddRow(7, "refund please", "Billing", "Medium", "Assign to billing team and respond within 24 hours", "ok", ts.UnixNano(), ts)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM triage_history WHERE category = $1 ORDER BY id ASC")).
		WithArgs("Billing").
		WillReturnRows(rows)

	got, err := repo.List(context.Background(), domain.HistoryFilter{Category: "Billing"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("List = %d records, want 1", len(got))
	}
	if !got[0].Timestamp.Equal(ts) || got[0].Urgency != domain.UrgencyMedium || got[0].Message != "refund please" {
		t.Errorf("record = %+v", got[0])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestHistoryAdapterListAllAndClear(t *testing.T) {
	repo, mock := newSQLHistory(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM triage_history ORDER BY id ASC")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "message", "category", "urgency", "recommended_action", "reasoning", "timestamp_ns", "created_at"}))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM triage_history")).
		WillReturnResult(sqlmock.NewResult(0, 3))

	got, err := repo.List(context.Background(), domain.HistoryFilter{Category: "all"})
	if err != nil || len(got) != 0 {
		t.Fatalf("List = %v, %v; want empty", got, err)
	}
	if err := repo.Clear(context.Background()); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
