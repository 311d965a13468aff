package availstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/curatel/telecare-scheduling/internal/availability"
	"github.com/curatel/telecare-scheduling/pkg/logging"
)

const defaultCacheTTL = 2 * time.Minute

// CachedStore is a read-through Redis cache over another Store. Every write
// or clear bumps the provider's version; earlier fetch entries become
// unreachable and age out via TTL, so a post-write re-fetch always hits the
// inner store.
type CachedStore struct {
	inner  Store
	redis  *redis.Client
	ttl    time.Duration
	logger *logging.Logger
}

// NewCachedStore wraps inner with a Redis read-through cache.
func NewCachedStore(inner Store, redisClient *redis.Client, ttl time.Duration, logger *logging.Logger) *CachedStore {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &CachedStore{
		inner:  inner,
		redis:  redisClient,
		ttl:    ttl,
		logger: logger.Component("availstore.cache"),
	}
}

func versionKey(providerID string) string {
	return "avail:ver:" + providerID
}

func (c *CachedStore) rangeKey(ctx context.Context, providerID, startDate, endDate string) string {
	version, err := c.redis.Get(ctx, versionKey(providerID)).Int64()
	if err != nil && err != redis.Nil {
		// Treat Redis trouble as a cache miss, not a failure.
		version = -1
	}
	return fmt.Sprintf("avail:%s:%d:%s:%s", providerID, version, startDate, endDate)
}

// FetchAvailability implements Store with a read-through cache.
func (c *CachedStore) FetchAvailability(ctx context.Context, providerID, startDate, endDate string) ([]availability.DaySlots, error) {
	key := c.rangeKey(ctx, providerID, startDate, endDate)

	if data, err := c.redis.Get(ctx, key).Bytes(); err == nil {
		var days []availability.DaySlots
		if jsonErr := json.Unmarshal(data, &days); jsonErr == nil {
			return days, nil
		}
		// Corrupt entry: fall through to the inner store.
	}

	days, err := c.inner.FetchAvailability(ctx, providerID, startDate, endDate)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(days); err == nil {
		if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.logger.Warn("cache store failed", "provider_id", providerID, "error", err)
		}
	}
	return days, nil
}

// WriteAvailability implements Store and invalidates the provider's cache.
func (c *CachedStore) WriteAvailability(ctx context.Context, providerID string, days []DayWrite) error {
	if err := c.inner.WriteAvailability(ctx, providerID, days); err != nil {
		return err
	}
	c.invalidate(ctx, providerID)
	return nil
}

// BulkWriteAvailability implements Store and invalidates the provider's cache.
func (c *CachedStore) BulkWriteAvailability(ctx context.Context, providerID string, req BulkWrite) error {
	if err := c.inner.BulkWriteAvailability(ctx, providerID, req); err != nil {
		return err
	}
	c.invalidate(ctx, providerID)
	return nil
}

// ClearAvailability implements Store and invalidates the provider's cache.
func (c *CachedStore) ClearAvailability(ctx context.Context, providerID string, dates []string) error {
	if err := c.inner.ClearAvailability(ctx, providerID, dates); err != nil {
		return err
	}
	c.invalidate(ctx, providerID)
	return nil
}

// BookSlot forwards to the inner store when it supports bookings and
// invalidates the provider's cache, since a booking changes derived state.
func (c *CachedStore) BookSlot(ctx context.Context, providerID, date, clock string, durationMinutes int) error {
	booker, ok := c.inner.(Booker)
	if !ok {
		return fmt.Errorf("availstore: inner store does not support bookings")
	}
	if err := booker.BookSlot(ctx, providerID, date, clock, durationMinutes); err != nil {
		return err
	}
	c.invalidate(ctx, providerID)
	return nil
}

func (c *CachedStore) invalidate(ctx context.Context, providerID string) {
	if err := c.redis.Incr(ctx, versionKey(providerID)).Err(); err != nil {
		c.logger.Warn("cache invalidation failed", "provider_id", providerID, "error", err)
	}
}
