package cache

import (
	"context"
	"time"

	"github.com/your-org/b2c-validator/internal/config"
	"github.com/your-org/b2c-validator/internal/domain"
	"github.com/your-org/b2c-validator/pkg/logger"
)

// Service layers an in-memory L1 over an optional Redis L2. Only claims of
// tokens that passed validation are ever stored.
type Service struct {
	l1      *L1Cache
	l2      *L2RedisCache
	cfg     config.CacheConfig
	enabled bool
}

// NewService creates the cache service.
func NewService(cfg config.CacheConfig) *Service {
	var l1 *L1Cache
	if cfg.L1.Enabled {
		l1 = NewL1Cache(cfg.L1)
	}

	var l2 *L2RedisCache
	if cfg.L2.Enabled {
		var err error
		l2, err = NewL2RedisCache(cfg.L2)
		if err != nil {
			logger.Warn("failed to create L2 cache", logger.Err(err))
		}
	}

	return &Service{
		l1:      l1,
		l2:      l2,
		cfg:     cfg,
		enabled: cfg.L1.Enabled || cfg.L2.Enabled,
	}
}

// Start initializes the cache backends.
func (s *Service) Start(ctx context.Context) error {
	if s.l1 != nil {
		s.l1.StartCleanup(ctx, time.Minute)
	}

	if s.l2 != nil {
		if err := s.l2.Start(ctx); err != nil {
			logger.Warn("L2 cache start failed, continuing without it", logger.Err(err))
		}
	}

	logger.Info("claims cache started",
		logger.Bool("l1_enabled", s.cfg.L1.Enabled),
		logger.Bool("l2_enabled", s.l2 != nil && s.l2.Enabled()),
	)

	return nil
}

// Stop shuts down the cache backends.
func (s *Service) Stop() error {
	if s.l2 != nil {
		return s.l2.Stop()
	}
	return nil
}

// Get retrieves cached claims, checking L1 first, then L2.
func (s *Service) Get(ctx context.Context, key string) (domain.ClaimSet, bool) {
	if !s.enabled {
		return nil, false
	}

	if s.l1 != nil {
		if claims, found := s.l1.Get(ctx, key); found {
			return claims, true
		}
	}

	if s.l2 != nil && s.l2.Enabled() {
		if claims, found := s.l2.Get(ctx, key); found {
			// Backfill L1
			if s.l1 != nil {
				s.l1.Set(ctx, key, claims, 0)
			}
			return claims, true
		}
	}

	return nil, false
}

// Set stores validated claims in all cache levels. ttl must already be
// bounded by the token's exp; entries never outlive the token.
func (s *Service) Set(ctx context.Context, key string, claims domain.ClaimSet, ttl time.Duration) {
	if !s.enabled || ttl <= 0 {
		return
	}

	if s.l1 != nil {
		s.l1.Set(ctx, key, claims, ttl)
	}

	if s.l2 != nil && s.l2.Enabled() {
		s.l2.Set(ctx, key, claims, ttl)
	}
}

// Delete removes a key from all cache levels.
func (s *Service) Delete(ctx context.Context, key string) {
	if s.l1 != nil {
		s.l1.Delete(ctx, key)
	}
	if s.l2 != nil && s.l2.Enabled() {
		s.l2.Delete(ctx, key)
	}
}

// Clear removes all entries from all cache levels.
func (s *Service) Clear(ctx context.Context) {
	if s.l1 != nil {
		s.l1.Clear(ctx)
	}
	if s.l2 != nil && s.l2.Enabled() {
		s.l2.Clear(ctx)
	}
}

// Stats returns per-level cache statistics.
func (s *Service) Stats() map[string]CacheStats {
	stats := make(map[string]CacheStats)

	if s.l1 != nil {
		stats["l1"] = s.l1.Stats()
	}

	if s.l2 != nil && s.l2.Enabled() {
		stats["l2"] = s.l2.Stats()
	}

	return stats
}

// Enabled returns true if caching is enabled.
func (s *Service) Enabled() bool {
	return s.enabled
}

// Healthy checks if cache backends are reachable.
func (s *Service) Healthy(ctx context.Context) bool {
	if s.l2 != nil && s.l2.Enabled() {
		return s.l2.Healthy(ctx)
	}
	return true
}
