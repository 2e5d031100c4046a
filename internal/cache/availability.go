// Package cache provides an optional Redis read cache for availability
// queries. It is never a correctness authority: every ledger mutation
// deletes the variant's entry and reads fall back to the database.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

type AvailabilityCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewAvailabilityCache(rdb *redis.Client, ttl time.Duration) *AvailabilityCache {
	return &AvailabilityCache{rdb: rdb, ttl: ttl}
}

func (c *AvailabilityCache) Get(ctx context.Context, tenantID, variantID string) (int, bool, error) {
	val, err := c.rdb.Get(ctx, c.key(tenantID, variantID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("cache get: %w", err)
	}
	available, err := strconv.Atoi(val)
	if err != nil {
		// Unparseable entry: treat as a miss rather than poisoning reads.
		return 0, false, nil
	}
	return available, true, nil
}

func (c *AvailabilityCache) Set(ctx context.Context, tenantID, variantID string, available int) error {
	if err := c.rdb.Set(ctx, c.key(tenantID, variantID), strconv.Itoa(available), c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

func (c *AvailabilityCache) Invalidate(ctx context.Context, tenantID, variantID string) error {
	if err := c.rdb.Del(ctx, c.key(tenantID, variantID)).Err(); err != nil {
		return fmt.Errorf("cache invalidate: %w", err)
	}
	return nil
}

func (c *AvailabilityCache) key(tenantID, variantID string) string {
	return "availability:" + tenantID + ":" + variantID
}
