package alerting

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrCacheUnavailable marks cache reads that callers should satisfy from the
// database instead.
var ErrCacheUnavailable = errors.New("open-alert cache unavailable")

// OpenAlertCache mirrors open alert records for fast listing. The database
// stays the source of truth; cache failures are never fatal to evaluation.
type OpenAlertCache interface {
	SetOpen(ctx context.Context, rec *AlertRecord) error
	ClearOpen(ctx context.Context, ruleID uuid.UUID) error
	ListOpen(ctx context.Context) ([]*AlertRecord, error)
}

const openAlertKeyPrefix = "alert:open:"

// RedisCache keeps one JSON value per open rule under alert:open:<ruleID>.
type RedisCache struct {
	R *redis.Client
}

func NewRedisCache(r *redis.Client) *RedisCache { return &RedisCache{R: r} }

func (c *RedisCache) SetOpen(ctx context.Context, rec *AlertRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode open alert: %w", err)
	}
	if err := c.R.Set(ctx, openAlertKeyPrefix+rec.RuleID.String(), data, 0).Err(); err != nil {
		return fmt.Errorf("cache open alert: %w", err)
	}
	return nil
}

func (c *RedisCache) ClearOpen(ctx context.Context, ruleID uuid.UUID) error {
	if err := c.R.Del(ctx, openAlertKeyPrefix+ruleID.String()).Err(); err != nil {
		return fmt.Errorf("clear open alert: %w", err)
	}
	return nil
}

func (c *RedisCache) ListOpen(ctx context.Context) ([]*AlertRecord, error) {
	var (
		cursor uint64
		out    []*AlertRecord
	)
	for {
		keys, next, err := c.R.Scan(ctx, cursor, openAlertKeyPrefix+"*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
		}
		for _, key := range keys {
			val, err := c.R.Get(ctx, key).Result()
			if errors.Is(err, redis.Nil) {
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
			}
			var rec AlertRecord
			if err := json.Unmarshal([]byte(val), &rec); err != nil {
				continue
			}
			out = append(out, &rec)
		}
		cursor = next
		if cursor == 0 {
			return out, nil
		}
	}
}

// NoopCache is used when Redis is not configured.
type NoopCache struct{}

func (NoopCache) SetOpen(context.Context, *AlertRecord) error { return nil }
func (NoopCache) ClearOpen(context.Context, uuid.UUID) error  { return nil }
func (NoopCache) ListOpen(context.Context) ([]*AlertRecord, error) {
	return nil, ErrCacheUnavailable
}
