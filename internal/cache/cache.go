// Package cache provides an optional Redis-backed read cache for quota
// projections. A nil *QuotaCache is valid and disables caching, so the
// service runs unchanged when Redis is not configured.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/firmsite/seminar-enrollment/config"
	"github.com/firmsite/seminar-enrollment/internal/model"
)

// TTL is short on purpose: the projection is advisory (the submit
// transaction re-checks capacity under its lock), so brief staleness is
// acceptable but should not linger.
const quotaTTL = 5 * time.Second

const quotaPrefix = "quota:"

// QuotaCache caches QuotaInfo per (event, slot) tuple.
type QuotaCache struct {
	rdb    *goredis.Client
	logger *zap.Logger
}

// New connects to Redis and pings it. Returns an error the caller may choose
// to degrade on; the rest of the system works with a nil cache.
func New(cfg config.RedisConfig, logger *zap.Logger) (*QuotaCache, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	logger.Info("connected to redis", zap.String("addr", cfg.Addr))
	return &QuotaCache{rdb: rdb, logger: logger}, nil
}

func quotaKey(eventID, date, timeRange string) string {
	return quotaPrefix + eventID + ":" + date + ":" + timeRange
}

// Get returns the cached projection or (nil, false) on miss or any error.
// Cache errors are logged, never surfaced: the DB is the source of truth.
func (c *QuotaCache) Get(ctx context.Context, eventID, date, timeRange string) (*model.QuotaInfo, bool) {
	if c == nil {
		return nil, false
	}
	raw, err := c.rdb.Get(ctx, quotaKey(eventID, date, timeRange)).Bytes()
	if err != nil {
		if err != goredis.Nil {
			c.logger.Warn("quota cache get failed", zap.Error(err))
		}
		return nil, false
	}
	var info model.QuotaInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return nil, false
	}
	return &info, true
}

// Set stores the projection with a short TTL.
func (c *QuotaCache) Set(ctx context.Context, eventID, date, timeRange string, info *model.QuotaInfo) {
	if c == nil {
		return
	}
	raw, err := json.Marshal(info)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, quotaKey(eventID, date, timeRange), raw, quotaTTL).Err(); err != nil {
		c.logger.Warn("quota cache set failed", zap.Error(err))
	}
}

// Invalidate drops every cached projection for the event. Called after any
// write that changes occupancy (submit, cancel, status change).
func (c *QuotaCache) Invalidate(ctx context.Context, eventID string) {
	if c == nil {
		return
	}
	iter := c.rdb.Scan(ctx, 0, quotaPrefix+eventID+":*", 100).Iterator()
	for iter.Next(ctx) {
		if err := c.rdb.Del(ctx, iter.Val()).Err(); err != nil {
			c.logger.Warn("quota cache invalidate failed", zap.Error(err))
			return
		}
	}
	if err := iter.Err(); err != nil {
		c.logger.Warn("quota cache scan failed", zap.Error(err))
	}
}

// Close releases the underlying Redis connection.
func (c *QuotaCache) Close() error {
	if c == nil {
		return nil
	}
	return c.rdb.Close()
}
