package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores computed monthly summaries in Redis. A nil cache (or nil
// client) degrades to always recomputing.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache instantiates the cache helper.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func summaryKey(month, year int) string {
	return fmt.Sprintf("report:monthly:%04d-%02d", year, month)
}

// FetchSummary loads a cached summary or populates it using the loader.
func (c *Cache) FetchSummary(ctx context.Context, month, year int, loader func(context.Context) (MonthlySummary, error)) (MonthlySummary, error) {
	if loader == nil {
		return MonthlySummary{}, errors.New("report: cache loader required")
	}
	if c == nil || c.client == nil {
		return loader(ctx)
	}

	key := summaryKey(month, year)
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var cached MonthlySummary
		if err := json.Unmarshal(payload, &cached); err == nil {
			return cached, nil
		}
		// Unreadable payloads are dropped and recomputed.
		_ = c.client.Del(ctx, key).Err()
	}
	// A Redis failure other than a miss degrades to recomputing.

	summary, err := loader(ctx)
	if err != nil {
		return MonthlySummary{}, err
	}
	if raw, err := json.Marshal(summary); err == nil {
		// Best effort; a failed write only costs the next caller a recompute.
		_ = c.client.Set(ctx, key, raw, c.ttl).Err()
	}
	return summary, nil
}

// Invalidate drops the cached summary for a period after a write.
func (c *Cache) Invalidate(ctx context.Context, month, year int) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Del(ctx, summaryKey(month, year)).Err()
}
