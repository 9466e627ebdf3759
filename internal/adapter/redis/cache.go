// Package redis caches the latest HealthScore per lake in Redis.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/couchcryptid/lake-health-service/internal/domain"
	goredis "github.com/redis/go-redis/v9"
)

const keyPrefix = "lake_health:score:"

// ScoreCache implements engine.ScoreCache on a go-redis client.
type ScoreCache struct {
	client goredis.Cmdable
}

// NewScoreCache wraps an existing client.
func NewScoreCache(client goredis.Cmdable) *ScoreCache {
	return &ScoreCache{client: client}
}

// NewClient builds a client from connection settings.
func NewClient(addr, password string, db int) *goredis.Client {
	return goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

func key(lakeID string) string {
	return keyPrefix + lakeID
}

// Get returns the cached score. A missing key is (zero, false, nil).
func (c *ScoreCache) Get(ctx context.Context, lakeID string) (domain.HealthScore, bool, error) {
	data, err := c.client.Get(ctx, key(lakeID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return domain.HealthScore{}, false, nil
	}
	if err != nil {
		return domain.HealthScore{}, false, fmt.Errorf("get cached score: %w", err)
	}

	var hs domain.HealthScore
	if err := json.Unmarshal(data, &hs); err != nil {
		return domain.HealthScore{}, false, fmt.Errorf("unmarshal cached score: %w", err)
	}
	return hs, true, nil
}

// Set stores the score under its lake id with the given expiry.
func (c *ScoreCache) Set(ctx context.Context, hs domain.HealthScore, ttl time.Duration) error {
	data, err := json.Marshal(hs)
	if err != nil {
		return fmt.Errorf("marshal score: %w", err)
	}
	if err := c.client.Set(ctx, key(hs.LakeID), data, ttl).Err(); err != nil {
		return fmt.Errorf("set cached score: %w", err)
	}
	return nil
}

// Invalidate drops the cached scores of the given lakes.
func (c *ScoreCache) Invalidate(ctx context.Context, lakeIDs ...string) error {
	if len(lakeIDs) == 0 {
		return nil
	}
	keys := make([]string, len(lakeIDs))
	for i, id := range lakeIDs {
		keys[i] = key(id)
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("invalidate cached scores: %w", err)
	}
	return nil
}

// Ping checks connectivity.
func (c *ScoreCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
