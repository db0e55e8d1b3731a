// Package cache provides multi-level caching of validated token claims,
// keyed by a SHA-256 digest of the raw token.
package cache

import (
	"container/list"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/your-org/b2c-validator/internal/config"
	"github.com/your-org/b2c-validator/internal/domain"
	"github.com/your-org/b2c-validator/pkg/logger"
)

// TokenKey derives the cache key for a raw token. The raw token never
// appears in cache keys or logs.
func TokenKey(tenant, token string) string {
	sum := sha256.Sum256([]byte(token))
	return tenant + ":" + hex.EncodeToString(sum[:])
}

// L1Cache is an in-memory LRU cache of validated claims with TTL support.
type L1Cache struct {
	mu       sync.RWMutex
	capacity int
	ttl      time.Duration
	items    map[string]*list.Element
	order    *list.List // LRU order
	enabled  bool

	// Metrics
	hits   int64
	misses int64
}

// cacheEntry is a single cache entry.
type cacheEntry struct {
	key       string
	claims    domain.ClaimSet
	expiresAt time.Time
}

// NewL1Cache creates the in-memory claims cache.
func NewL1Cache(cfg config.L1CacheConfig) *L1Cache {
	return &L1Cache{
		capacity: cfg.MaxSize,
		ttl:      cfg.TTL,
		items:    make(map[string]*list.Element),
		order:    list.New(),
		enabled:  cfg.Enabled,
	}
}

// Get retrieves cached claims.
func (c *L1Cache) Get(ctx context.Context, key string) (domain.ClaimSet, bool) {
	if !c.enabled {
		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		c.misses++
		return nil, false
	}

	entry := elem.Value.(*cacheEntry)

	if time.Now().After(entry.expiresAt) {
		c.removeElement(elem)
		c.misses++
		return nil, false
	}

	c.order.MoveToFront(elem)
	c.hits++
	return entry.claims, true
}

// Set stores claims. A zero ttl falls back to the configured default.
func (c *L1Cache) Set(ctx context.Context, key string, claims domain.ClaimSet, ttl time.Duration) {
	if !c.enabled {
		return
	}

	if ttl == 0 {
		ttl = c.ttl
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.order.MoveToFront(elem)
		entry := elem.Value.(*cacheEntry)
		entry.claims = claims
		entry.expiresAt = time.Now().Add(ttl)
		return
	}

	if c.order.Len() >= c.capacity {
		c.evictOldest()
	}

	entry := &cacheEntry{
		key:       key,
		claims:    claims,
		expiresAt: time.Now().Add(ttl),
	}
	elem := c.order.PushFront(entry)
	c.items[key] = elem
}

// Delete removes a key.
func (c *L1Cache) Delete(ctx context.Context, key string) {
	if !c.enabled {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.removeElement(elem)
	}
}

// Clear removes all entries.
func (c *L1Cache) Clear(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*list.Element)
	c.order.Init()
}

// Stats returns cache statistics.
func (c *L1Cache) Stats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return CacheStats{
		Size:     c.order.Len(),
		Capacity: c.capacity,
		Hits:     c.hits,
		Misses:   c.misses,
		HitRate:  c.hitRate(),
	}
}

// evictOldest removes the least recently used entry.
func (c *L1Cache) evictOldest() {
	elem := c.order.Back()
	if elem != nil {
		c.removeElement(elem)
	}
}

func (c *L1Cache) removeElement(elem *list.Element) {
	c.order.Remove(elem)
	entry := elem.Value.(*cacheEntry)
	delete(c.items, entry.key)
}

func (c *L1Cache) hitRate() float64 {
	total := c.hits + c.misses
	if total == 0 {
		return 0
	}
	return float64(c.hits) / float64(total)
}

// StartCleanup starts a background goroutine that drops expired entries.
func (c *L1Cache) StartCleanup(ctx context.Context, interval time.Duration) {
	if !c.enabled {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.cleanupExpired()
			}
		}
	}()

	logger.Debug("L1 cache cleanup started", logger.Duration("interval", interval))
}

func (c *L1Cache) cleanupExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	var toRemove []*list.Element

	for elem := c.order.Back(); elem != nil; elem = elem.Prev() {
		entry := elem.Value.(*cacheEntry)
		if now.After(entry.expiresAt) {
			toRemove = append(toRemove, elem)
		}
	}

	for _, elem := range toRemove {
		c.removeElement(elem)
	}

	if len(toRemove) > 0 {
		logger.Debug("L1 cache cleanup completed", logger.Int("removed", len(toRemove)))
	}
}

// CacheStats holds cache statistics.
type CacheStats struct {
	Size     int     `json:"size"`
	Capacity int     `json:"capacity"`
	Hits     int64   `json:"hits"`
	Misses   int64   `json:"misses"`
	HitRate  float64 `json:"hit_rate"`
}
