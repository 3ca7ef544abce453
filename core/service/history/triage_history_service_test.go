package history

import (
	"context"
	"errors"
	"testing"
	"time"

	"triage_server/adapter/out/persistence"
	"triage_server/core/domain"
)

var base = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func seed(t *testing.T, svc *Service, categories ...string) {
	t.Helper()
	for i, c := range categories {
		err := svc.Append(context.Background(), &domain.Analysis{
			Message:   "msg " + c,
			Category:  c,
			Urgency:   domain.UrgencyMedium,
			Timestamp: base.Add(time.Duration(i) * time.Hour),
		})
		if err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
}

func TestListNewestFirstWithFilter(t *testing.T) {
	svc := NewService(persistence.NewMemoryHistoryAdapter())
	seed(t, svc, "Billing", "Feedback", "Billing", "Bug Report")

	all, err := svc.List(context.Background(), domain.HistoryFilter{Category: "all"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("len = %d, want 4", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i-1].Timestamp.Before(all[i].Timestamp) {
			t.Errorf("records not newest first at %d", i)
		}
	}
	if all[0].Category != "Bug Report" {
		t.Errorf("newest = %s, want Bug Report", all[0].Category)
	}

	billing, _ := svc.List(context.Background(), domain.HistoryFilter{Category: "Billing"})
	if len(billing) != 2 || !billing[0].Timestamp.Equal(base.Add(2*time.Hour)) {
		t.Errorf("Billing filter = %+v", billing)
	}
}

func TestCategoriesFirstSeenOrder(t *testing.T) {
	svc := NewService(persistence.NewMemoryHistoryAdapter())
	seed(t, svc, "Feedback", "Billing", "Feedback", "Feedback")

	summary, err := svc.Categories(context.Background())
	if err != nil {
		t.Fatalf("Categories: %v", err)
	}
	if summary.Total != 4 {
		t.Errorf("Total = %d, want 4", summary.Total)
	}
	want := []domain.CategoryCount{{Category: "Feedback", Count: 3}, {Category: "Billing", Count: 1}}
	if len(summary.Categories) != len(want) {
		t.Fatalf("Categories = %+v", summary.Categories)
	}
	for i := range want {
		if summary.Categories[i] != want[i] {
			t.Errorf("Categories[%d] = %+v, want %+v", i, summary.Categories[i], want[i])
		}
	}
}

// TestDeleteIsIdentityBased deletes the record shown first in a filtered,
// sorted view and checks the right one is gone.
func TestDeleteIsIdentityBased(t *testing.T) {
	svc := NewService(persistence.NewMemoryHistoryAdapter())
	seed(t, svc, "Billing", "Feedback", "Billing")
	ctx := context.Background()

	view, _ := svc.List(ctx, domain.HistoryFilter{Category: "Billing"})
	target := view[0].Timestamp

	if err := svc.Delete(ctx, target, true); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	rest, _ := svc.List(ctx, domain.HistoryFilter{})
	if len(rest) != 2 {
		t.Fatalf("len = %d, want 2", len(rest))
	}
	for _, r := range rest {
		if r.Timestamp.Equal(target) {
			t.Errorf("deleted record still present")
		}
	}
	if rest[1].Category != "Billing" || !rest[1].Timestamp.Equal(base) {
		t.Errorf("wrong record deleted, remaining %+v", rest)
	}

	if err := svc.Delete(ctx, target, true); !errors.Is(err, ErrRecordNotFound) {
		t.Errorf("second Delete err = %v, want ErrRecordNotFound", err)
	}
}

func TestDestructiveOpsRequireConfirmation(t *testing.T) {
	svc := NewService(persistence.NewMemoryHistoryAdapter())
	seed(t, svc, "Billing", "Feedback")
	ctx := context.Background()

	if err := svc.Delete(ctx, base, false); !errors.Is(err, ErrNotConfirmed) {
		t.Errorf("Delete err = %v, want ErrNotConfirmed", err)
	}
	if err := svc.Clear(ctx, false); !errors.Is(err, ErrNotConfirmed) {
		t.Errorf("Clear err = %v, want ErrNotConfirmed", err)
	}

	all, _ := svc.List(ctx, domain.HistoryFilter{})
	if len(all) != 2 {
		t.Fatalf("unconfirmed ops changed state: %d records", len(all))
	}

	if err := svc.Clear(ctx, true); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	all, _ = svc.List(ctx, domain.HistoryFilter{})
	if len(all) != 0 {
		t.Errorf("after Clear = %d records", len(all))
	}
}

func TestAppendBumpsDuplicateTimestamp(t *testing.T) {
	svc := NewService(persistence.NewMemoryHistoryAdapter())
	ctx := context.Background()

	first := &domain.Analysis{Category: "Billing", Timestamp: base}
	second := &domain.Analysis{Category: "Feedback", Timestamp: base}

	if err := svc.Append(ctx, first); err != nil {
		t.Fatalf("Append first: %v", err)
	}
	if err := svc.Append(ctx, second); err != nil {
		t.Fatalf("Append second: %v", err)
	}
	if !second.Timestamp.Equal(base.Add(time.Nanosecond)) {
		t.Errorf("second timestamp = %v, want bumped by 1ns", second.Timestamp)
	}
}

func TestAppendRejectsInvalid(t *testing.T) {
	svc := NewService(persistence.NewMemoryHistoryAdapter())
	if err := svc.Append(context.Background(), nil); !errors.Is(err, ErrInvalidRecord) {
		t.Errorf("nil record err = %v", err)
	}
	if err := svc.Append(context.Background(), &domain.Analysis{}); !errors.Is(err, ErrInvalidRecord) {
		t.Errorf("zero timestamp err = %v", err)
	}
}
