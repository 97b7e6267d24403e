package cache

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const redisKeyPrefix = "gateway:response:"

// RedisCache stores response entries in Redis with native TTL expiry, for
// deployments where multiple gateway instances share a cache. Storage
// failures degrade to a miss on Get and a no-op on Put.
type RedisCache struct {
	client *redis.Client
	logger *zap.Logger
	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewRedisCache creates a new Redis-backed response cache
func NewRedisCache(client *redis.Client, logger *zap.Logger) *RedisCache {
	return &RedisCache{
		client: client,
		logger: logger,
	}
}

// Get retrieves a live entry for a fingerprint
func (c *RedisCache) Get(ctx context.Context, fingerprint string) (*Entry, bool) {
	data, err := c.client.Get(ctx, redisKeyPrefix+fingerprint).Bytes()
	if err == redis.Nil {
		c.misses.Add(1)
		return nil, false
	}
	if err != nil {
		c.logger.Warn("cache read failed, treating as miss",
			zap.String("fingerprint", fingerprint),
			zap.Error(err))
		c.misses.Add(1)
		return nil, false
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		c.logger.Warn("cache entry corrupt, treating as miss",
			zap.String("fingerprint", fingerprint),
			zap.Error(err))
		c.misses.Add(1)
		return nil, false
	}

	// Redis TTL handles expiry, but guard against clock skew between writers
	if entry.Expired(time.Now()) {
		c.misses.Add(1)
		return nil, false
	}

	c.hits.Add(1)
	return &entry, true
}

// Put stores an entry with the given TTL
func (c *RedisCache) Put(ctx context.Context, entry *Entry, ttl time.Duration) {
	if entry == nil || ttl <= 0 {
		return
	}

	now := time.Now()
	stored := *entry
	stored.CreatedAt = now
	stored.ExpiresAt = now.Add(ttl)

	data, err := json.Marshal(&stored)
	if err != nil {
		c.logger.Warn("failed to marshal cache entry", zap.Error(err))
		return
	}

	if err := c.client.Set(ctx, redisKeyPrefix+stored.Fingerprint, data, ttl).Err(); err != nil {
		c.logger.Warn("cache write failed, skipping",
			zap.String("fingerprint", stored.Fingerprint),
			zap.Error(err))
	}
}

// Stats returns hit/miss counters for this instance
func (c *RedisCache) Stats() Stats {
	hits := c.hits.Load()
	misses := c.misses.Load()

	s := Stats{Hits: hits, Misses: misses}
	if total := hits + misses; total > 0 {
		s.HitRate = float64(hits) / float64(total)
	}
	return s
}
