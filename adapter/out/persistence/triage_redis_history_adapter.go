package persistence

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"triage_server/core/domain"
	"triage_server/core/port/out"
	"triage_server/pkg/logger"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultHistoryKey = "triageHistory"

	maxTxRetries = 5
)

// RedisHistoryAdapter implements out.HistoryRepository as one JSON array
// stored under a single Redis key. A missing or malformed value reads as empty.
type RedisHistoryAdapter struct {
	client *redis.Client
	key    string
	loads  singleflight.Group

	// writeMu serialises writers in this process; WATCH covers other processes.
	writeMu sync.Mutex
}

// NewRedisHistoryAdapter creates a Redis-backed history. An empty key uses DefaultHistoryKey.
func NewRedisHistoryAdapter(client *redis.Client, key string) *RedisHistoryAdapter {
	if key == "" {
		key = DefaultHistoryKey
	}
	return &RedisHistoryAdapter{client: client, key: key}
}

var _ out.HistoryRepository = (*RedisHistoryAdapter)(nil)

func (a *RedisHistoryAdapter) Name() string { return "redis" }

// List returns records in stored order. Concurrent loads share one GET, which
// runs detached from any single caller's cancellation.
func (a *RedisHistoryAdapter) List(ctx context.Context, filter domain.HistoryFilter) ([]*domain.Analysis, error) {
	loadCtx := context.WithoutCancel(ctx)
	v, err, _ := a.loads.Do(a.key, func() (interface{}, error) {
		data, err := a.client.Get(loadCtx, a.key).Bytes()
		if err != nil && !errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("failed to load history: %w", err)
		}
		return a.decode(data), nil
	})
	if err != nil {
		return nil, err
	}

	records := v.([]*domain.Analysis)
	result := make([]*domain.Analysis, 0, len(records))
	for _, r := range records {
		if filter.Matches(r) {
			result = append(result, r.Clone())
		}
	}
	return result, nil
}

func (a *RedisHistoryAdapter) Append(ctx context.Context, record *domain.Analysis) error {
	return a.update(ctx, func(records []*domain.Analysis) ([]*domain.Analysis, error) {
		for _, r := range records {
			if r.Timestamp.Equal(record.Timestamp) {
				return nil, out.ErrDuplicateTimestamp
			}
		}
		return append(records, record.Clone()), nil
	})
}

func (a *RedisHistoryAdapter) DeleteByTimestamp(ctx context.Context, ts time.Time) error {
	return a.update(ctx, func(records []*domain.Analysis) ([]*domain.Analysis, error) {
		for i, r := range records {
			if r.Timestamp.Equal(ts) {
				return append(records[:i], records[i+1:]...), nil
			}
		}
		return nil, out.ErrHistoryNotFound
	})
}

// Clear stores an empty array rather than deleting the key.
func (a *RedisHistoryAdapter) Clear(ctx context.Context) error {
	a.writeMu.Lock()
	defer a.writeMu.Unlock()

	if err := a.client.Set(ctx, a.key, "[]", 0).Err(); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	a.loads.Forget(a.key)
	return nil
}

// update runs a read-modify-write of the whole array under WATCH, retrying on
// concurrent modification.
func (a *RedisHistoryAdapter) update(ctx context.Context, fn func([]*domain.Analysis) ([]*domain.Analysis, error)) error {
	a.writeMu.Lock()
	defer a.writeMu.Unlock()

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, a.key).Bytes()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}

		records, err := fn(a.decode(data))
		if err != nil {
			return err
		}

		encoded, err := json.Marshal(records)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, a.key, encoded, 0)
			return nil
		})
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := a.client.Watch(ctx, txf, a.key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if errors.Is(err, out.ErrDuplicateTimestamp) || errors.Is(err, out.ErrHistoryNotFound) {
			return err
		}
		if err != nil {
			return fmt.Errorf("failed to update history: %w", err)
		}
		// Later reads must not join a GET that started before this write.
		a.loads.Forget(a.key)
		return nil
	}
	return fmt.Errorf("failed to update history: %w", redis.TxFailedErr)
}

// decode parses the stored array. Bad data is logged and treated as empty.
func (a *RedisHistoryAdapter) decode(data []byte) []*domain.Analysis {
	if len(data) == 0 {
		return []*domain.Analysis{}
	}

	var records []*domain.Analysis
	if err := json.Unmarshal(data, &records); err != nil {
		logger.WithError(err).WithField("key", a.key).Warn("Malformed history in Redis, treating as empty")
		return []*domain.Analysis{}
	}

	result := records[:0]
	for _, r := range records {
		if r != nil {
			result = append(result, r)
		}
	}
	return result
}
