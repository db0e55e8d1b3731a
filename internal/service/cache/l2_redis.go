package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/your-org/b2c-validator/internal/config"
	"github.com/your-org/b2c-validator/internal/domain"
	"github.com/your-org/b2c-validator/pkg/logger"
)

// L2RedisCache is a Redis-backed distributed claims cache.
type L2RedisCache struct {
	client    redis.UniversalClient
	keyPrefix string
	ttl       time.Duration
	enabled   bool

	// Metrics
	hits   int64
	misses int64
}

// NewL2RedisCache creates the distributed cache.
func NewL2RedisCache(cfg config.L2CacheConfig) (*L2RedisCache, error) {
	if !cfg.Enabled {
		return &L2RedisCache{enabled: false}, nil
	}

	var client redis.UniversalClient

	// Cluster client when multiple addresses are configured
	if len(cfg.Redis.Addresses) > 1 {
		client = redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:        cfg.Redis.Addresses,
			Password:     cfg.Redis.Password,
			PoolSize:     cfg.Redis.PoolSize,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
	} else {
		addr := "localhost:6379"
		if len(cfg.Redis.Addresses) > 0 {
			addr = cfg.Redis.Addresses[0]
		}
		client = redis.NewClient(&redis.Options{
			Addr:         addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
	}

	return &L2RedisCache{
		client:    client,
		keyPrefix: cfg.KeyPrefix,
		ttl:       cfg.TTL,
		enabled:   true,
	}, nil
}

// Start verifies the Redis connection. A failure disables L2 rather than
// failing startup: the service degrades to L1-only caching.
func (c *L2RedisCache) Start(ctx context.Context) error {
	if !c.enabled {
		return nil
	}

	if err := c.client.Ping(ctx).Err(); err != nil {
		logger.Warn("L2 Redis cache connection failed", logger.Err(err))
		c.enabled = false
		return err
	}

	logger.Info("L2 Redis cache connected", logger.String("prefix", c.keyPrefix))
	return nil
}

// Stop closes the Redis connection.
func (c *L2RedisCache) Stop() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// Get retrieves cached claims from Redis.
func (c *L2RedisCache) Get(ctx context.Context, key string) (domain.ClaimSet, bool) {
	if !c.enabled {
		return nil, false
	}

	fullKey := c.keyPrefix + key

	data, err := c.client.Get(ctx, fullKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.Debug("L2 cache get error", logger.String("key", key), logger.Err(err))
		}
		c.misses++
		return nil, false
	}

	var claims domain.ClaimSet
	if err := json.Unmarshal(data, &claims); err != nil {
		logger.Debug("L2 cache unmarshal error", logger.String("key", key), logger.Err(err))
		c.misses++
		return nil, false
	}

	c.hits++
	return claims, true
}

// Set stores claims in Redis.
func (c *L2RedisCache) Set(ctx context.Context, key string, claims domain.ClaimSet, ttl time.Duration) {
	if !c.enabled {
		return
	}

	if ttl == 0 {
		ttl = c.ttl
	}

	fullKey := c.keyPrefix + key

	data, err := json.Marshal(claims)
	if err != nil {
		logger.Debug("L2 cache marshal error", logger.String("key", key), logger.Err(err))
		return
	}

	if err := c.client.Set(ctx, fullKey, data, ttl).Err(); err != nil {
		logger.Debug("L2 cache set error", logger.String("key", key), logger.Err(err))
	}
}

// Delete removes a key from Redis.
func (c *L2RedisCache) Delete(ctx context.Context, key string) {
	if !c.enabled {
		return
	}

	fullKey := c.keyPrefix + key
	c.client.Del(ctx, fullKey)
}

// Clear removes all keys with the configured prefix.
func (c *L2RedisCache) Clear(ctx context.Context) {
	if !c.enabled {
		return
	}

	var cursor uint64
	for {
		var keys []string
		var err error
		keys, cursor, err = c.client.Scan(ctx, cursor, c.keyPrefix+"*", 100).Result()
		if err != nil {
			logger.Warn("L2 cache clear scan error", logger.Err(err))
			return
		}

		if len(keys) > 0 {
			c.client.Del(ctx, keys...)
		}

		if cursor == 0 {
			break
		}
	}
}

// Stats returns cache statistics.
func (c *L2RedisCache) Stats() CacheStats {
	return CacheStats{
		Hits:    c.hits,
		Misses:  c.misses,
		HitRate: c.hitRate(),
	}
}

func (c *L2RedisCache) hitRate() float64 {
	total := c.hits + c.misses
	if total == 0 {
		return 0
	}
	return float64(c.hits) / float64(total)
}

// Healthy checks if Redis is reachable.
func (c *L2RedisCache) Healthy(ctx context.Context) bool {
	if !c.enabled || c.client == nil {
		return true // Not enabled, considered healthy
	}
	return c.client.Ping(ctx).Err() == nil
}

// Enabled returns whether the L2 cache is enabled.
func (c *L2RedisCache) Enabled() bool {
	return c.enabled
}
