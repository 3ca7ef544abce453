package persistence

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"triage_server/core/domain"
	"triage_server/core/port/out"
)

func newRedisHistory(t *testing.T) (*RedisHistoryAdapter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisHistoryAdapter(client, "history:test"), mr
}

func TestRedisHistoryAppendAndList(t *testing.T) {
	ctx := context.Background()
	repo, _ := newRedisHistory(t)
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	empty, err := repo.List(ctx, domain.HistoryFilter{})
	if err != nil || len(empty) != 0 {
		t.Fatalf("List on missing key = %v, %v; want empty", empty, err)
	}

	for i, c := range []string{"Billing", "Feedback", "Billing"} {
		if err := repo.Append(ctx, record(c, base.Add(time.Duration(i)*time.Second))); err != nil {
			t.Fatalf("Append(%s): %v", c, err)
		}
	}

	// A read after a write sees the write.
	all, err := repo.List(ctx, domain.HistoryFilter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 3 || all[1].Category != "Feedback" {
		t.Fatalf("List = %d records, want 3 in insertion order", len(all))
	}

	billing, _ := repo.List(ctx, domain.HistoryFilter{Category: "Billing"})
	if len(billing) != 2 {
		t.Errorf("List Billing = %d, want 2", len(billing))
	}
}

func TestRedisHistoryDuplicateTimestamp(t *testing.T) {
	ctx := context.Background()
	repo, _ := newRedisHistory(t)
	ts := time.Date(2024, 5, 1, 12, 0, 0, 123456789, time.UTC)

	if err := repo.Append(ctx, record("Billing", ts)); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := repo.Append(ctx, record("Feedback", ts)); !errors.Is(err, out.ErrDuplicateTimestamp) {
		t.Errorf("duplicate Append err = %v, want ErrDuplicateTimestamp", err)
	}

	all, _ := repo.List(ctx, domain.HistoryFilter{})
	if len(all) != 1 {
		t.Errorf("List = %d records after rejected duplicate, want 1", len(all))
	}
}

func TestRedisHistoryDelete(t *testing.T) {
	ctx := context.Background()
	repo, _ := newRedisHistory(t)
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	repo.Append(ctx, record("Billing", base))
	repo.Append(ctx, record("Feedback", base.Add(time.Minute)))

	if err := repo.DeleteByTimestamp(ctx, base.Add(time.Hour)); !errors.Is(err, out.ErrHistoryNotFound) {
		t.Errorf("delete unknown err = %v, want ErrHistoryNotFound", err)
	}
	if err := repo.DeleteByTimestamp(ctx, base); err != nil {
		t.Fatalf("DeleteByTimestamp: %v", err)
	}

	remaining, _ := repo.List(ctx, domain.HistoryFilter{})
	if len(remaining) != 1 || remaining[0].Category != "Feedback" {
		t.Errorf("remaining = %+v, want only the Feedback record", remaining)
	}
}

func TestRedisHistoryClearStoresEmptyArray(t *testing.T) {
	ctx := context.Background()
	repo, mr := newRedisHistory(t)

	repo.Append(ctx, record("Billing", time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)))
	if err := repo.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	stored, err := mr.Get("history:test")
	if err != nil {
		t.Fatalf("key missing after Clear: %v", err)
	}
	if stored != "[]" {
		t.Errorf("stored = %q, want []", stored)
	}

	all, _ := repo.List(ctx, domain.HistoryFilter{})
	if len(all) != 0 {
		t.Errorf("List after Clear = %d records", len(all))
	}
}

func TestRedisHistoryMalformedBlobListsEmpty(t *testing.T) {
	ctx := context.Background()
	repo, mr := newRedisHistory(t)

	if err := mr.Set("history:test", "{not json"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	all, err := repo.List(ctx, domain.HistoryFilter{})
	if err != nil {
		t.Fatalf("List err = %v, want fail-soft empty", err)
	}
	if len(all) != 0 {
		t.Errorf("List = %d records, want 0", len(all))
	}

	// Writing over a malformed blob starts a fresh array.
	if err := repo.Append(ctx, record("Feedback", time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))); err != nil {
		t.Fatalf("Append over malformed blob: %v", err)
	}
	all, _ = repo.List(ctx, domain.HistoryFilter{})
	if len(all) != 1 {
		t.Errorf("List after Append = %d records, want 1", len(all))
	}
}

func TestRedisHistoryConcurrentAppends(t *testing.T) {
	ctx := context.Background()
	repo, _ := newRedisHistory(t)
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	const writers = 20
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := repo.Append(ctx, record("Billing", base.Add(time.Duration(i)*time.Millisecond))); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent Append: %v", err)
	}

	all, _ := repo.List(ctx, domain.HistoryFilter{})
	if len(all) != writers {
		t.Errorf("List = %d records, want %d", len(all), writers)
	}
}

func TestRedisHistoryListIgnoresCallerCancellation(t *testing.T) {
	repo, _ := newRedisHistory(t)
	repo.Append(context.Background(), record("Billing", time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	all, err := repo.List(ctx, domain.HistoryFilter{})
	if err != nil {
		t.Fatalf("List with canceled ctx err = %v", err)
	}
	if len(all) != 1 {
		t.Errorf("List = %d records, want 1", len(all))
	}
}
