package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const statsCacheKey = "catalog:stats"

// StatsCache caches the expensive catalog stats aggregation in redis. It is
// optional: a nil StatsCache is safe to call and caches nothing.
type StatsCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *logrus.Entry
}

// NewStatsCache creates a stats cache. An empty redis URL returns nil.
func NewStatsCache(redisURL string, ttl time.Duration, logger *logrus.Logger) (*StatsCache, error) {
	if redisURL == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	return &StatsCache{
		rdb:    redis.NewClient(opts),
		ttl:    ttl,
		logger: logger.WithField("component", "stats_cache"),
	}, nil
}

// Get loads cached stats into dest, reporting whether a value was present
func (c *StatsCache) Get(ctx context.Context, dest interface{}) bool {
	if c == nil {
		return false
	}
	payload, err := c.rdb.Get(ctx, statsCacheKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.WithError(err).Warn("Stats cache read failed")
		}
		return false
	}
	if err := json.Unmarshal(payload, dest); err != nil {
		c.logger.WithError(err).Warn("Stats cache payload corrupt")
		return false
	}
	return true
}

// Set stores fresh stats
func (c *StatsCache) Set(ctx context.Context, value interface{}) {
	if c == nil {
		return
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, statsCacheKey, payload, c.ttl).Err(); err != nil {
		c.logger.WithError(err).Warn("Stats cache write failed")
	}
}

// Invalidate drops the cached stats after a mutating operation
func (c *StatsCache) Invalidate(ctx context.Context) {
	if c == nil {
		return
	}
	if err := c.rdb.Del(ctx, statsCacheKey).Err(); err != nil {
		c.logger.WithError(err).Warn("Stats cache invalidation failed")
	}
}

// Close releases the redis connection
func (c *StatsCache) Close() {
	if c != nil {
		c.rdb.Close()
	}
}
