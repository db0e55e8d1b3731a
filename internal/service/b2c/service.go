package b2c

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/your-org/b2c-validator/internal/config"
	"github.com/your-org/b2c-validator/internal/domain"
	"github.com/your-org/b2c-validator/internal/service/cache"
	"github.com/your-org/b2c-validator/internal/service/metrics"
	"github.com/your-org/b2c-validator/internal/service/rules"
	"github.com/your-org/b2c-validator/pkg/errors"
	"github.com/your-org/b2c-validator/pkg/logger"
)

// Service validates tokens across all configured tenants. It owns one
// engine per tenant, the claims cache, and the rule evaluator, and it
// implements the refresh-once retry protocol on top of the engines.
type Service struct {
	engines map[string]*Engine
	tenants map[string]config.TenantConfig
	cache   *cache.Service
	rules   *rules.Evaluator
	metrics *metrics.Metrics

	keysCfg  config.KeyRefreshConfig
	cacheTTL time.Duration
	now      func() time.Time

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewService builds an engine for every configured tenant. Discovery or
// key fetch failure for any tenant aborts startup.
func NewService(ctx context.Context, cfg *config.Config, opts ...EngineOption) (*Service, error) {
	evaluator, err := rules.NewEvaluator()
	if err != nil {
		return nil, errors.Wrap(errors.ErrInternal, err.Error())
	}

	engines := make(map[string]*Engine, len(cfg.Tenants))
	tenants := make(map[string]config.TenantConfig, len(cfg.Tenants))

	for _, tc := range cfg.Tenants {
		if err := evaluator.PrecompileExpressions(tc.Rules); err != nil {
			return nil, errors.Wrap(errors.ErrRuleInvalid, err.Error())
		}

		engine, err := NewEngine(ctx, tc, cfg.Keys, cfg.Validation, opts...)
		if err != nil {
			return nil, err
		}
		engines[tc.Name] = engine
		tenants[tc.Name] = tc
	}

	s := &Service{
		engines:  engines,
		tenants:  tenants,
		cache:    cache.NewService(cfg.Cache),
		rules:    evaluator,
		metrics:  metrics.DefaultMetrics,
		keysCfg:  cfg.Keys,
		cacheTTL: cfg.Cache.L1.TTL,
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}

	return s, nil
}

// Start initializes the cache and, when configured, the background key
// refresh loop.
func (s *Service) Start(ctx context.Context) error {
	if err := s.cache.Start(ctx); err != nil {
		return err
	}

	if s.keysCfg.BackgroundInterval > 0 {
		s.wg.Add(1)
		go s.backgroundRefresh(s.keysCfg.BackgroundInterval)
	}

	logger.Info("token validation service started",
		logger.Int("tenants", len(s.engines)),
	)
	return nil
}

// Stop shuts the service down.
func (s *Service) Stop() error {
	s.stopOnce.Do(func() { close(s.stopCh) })
	s.wg.Wait()
	return s.cache.Stop()
}

func (s *Service) backgroundRefresh(interval time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), s.keysCfg.FetchTimeout)
			for name := range s.engines {
				s.refreshTenant(ctx, name)
			}
			cancel()
		}
	}
}

// Validate checks a raw token for the named tenant. Tenant lookup failure
// is an error; every token outcome, including rejection, is a Result.
func (s *Service) Validate(ctx context.Context, tenantName, token string) (domain.Result, error) {
	engine, ok := s.engines[tenantName]
	if !ok {
		return domain.Result{}, errors.Wrap(errors.ErrTenantNotFound, tenantName)
	}

	start := s.now()
	result := s.validate(ctx, engine, tenantName, token)
	s.metrics.ObserveValidationDuration(tenantName, s.now().Sub(start).Seconds())
	s.metrics.RecordValidation(tenantName, result.Status.String(), string(result.Reason))

	return result, nil
}

func (s *Service) validate(ctx context.Context, engine *Engine, tenantName, token string) domain.Result {
	key := cache.TokenKey(tenantName, token)

	if claims, found := s.cache.Get(ctx, key); found {
		s.metrics.RecordCacheHit("service")
		result := domain.Valid(claims)
		result.Cached = true
		return result
	}
	if s.cache.Enabled() {
		s.metrics.RecordCacheMiss("service")
	}

	result := engine.ValidateAccessToken(token)

	// Unknown kid: refresh the key snapshot and retry exactly once. A
	// second miss means the issuer does not know the key either.
	if result.Status == domain.StatusNeedKeyRefresh {
		s.refreshTenant(ctx, tenantName)

		result = engine.ValidateAccessToken(token)
		if result.Status == domain.StatusNeedKeyRefresh {
			return domain.Invalid(domain.ReasonUnknownKeyID)
		}
	}

	if !result.IsValid() {
		return result
	}

	if failed := s.applyRules(tenantName, engine.Policy(), result.Claims); failed != "" {
		logger.Debug("claim rule rejected token",
			logger.String("tenant", tenantName),
			logger.String("rule", failed),
		)
		return domain.Invalid(domain.ReasonClaimsRejected)
	}

	s.cacheResult(ctx, key, result.Claims)
	return result
}

// applyRules evaluates the tenant's claim assertions. An evaluation error
// counts as a rejection: a rule that cannot be evaluated must not admit
// the token.
func (s *Service) applyRules(tenantName, policy string, claims domain.ClaimSet) string {
	tc := s.tenants[tenantName]
	if len(tc.Rules) == 0 {
		return ""
	}

	failed, err := s.rules.EvaluateAll(tc.Rules, tenantName, policy, claims)
	if err != nil {
		logger.Warn("claim rule evaluation failed",
			logger.String("tenant", tenantName),
			logger.String("rule", failed),
			logger.Err(err),
		)
		s.metrics.RecordRuleEvaluation(tenantName, false)
		return failed
	}

	s.metrics.RecordRuleEvaluation(tenantName, failed == "")
	return failed
}

// cacheResult stores validated claims with a TTL bounded by the token's
// exp, so a cache entry never outlives the token it came from.
func (s *Service) cacheResult(ctx context.Context, key string, claims domain.ClaimSet) {
	if !s.cache.Enabled() {
		return
	}

	exp, ok := claims.Time("exp")
	if !ok {
		return
	}

	ttl := exp.Sub(s.now())
	if s.cacheTTL > 0 && ttl > s.cacheTTL {
		ttl = s.cacheTTL
	}
	s.cache.Set(ctx, key, claims, ttl)
}

// refreshTenant refreshes one tenant's keys and records the outcome.
// Throttled refreshes are successful no-ops.
func (s *Service) refreshTenant(ctx context.Context, tenantName string) {
	engine, ok := s.engines[tenantName]
	if !ok {
		return
	}

	err := engine.RefreshValidationKeys(ctx)
	switch {
	case err == nil:
		s.metrics.RecordKeyRefresh(tenantName, metrics.RefreshSuccess)
		s.metrics.SetKeySetSize(tenantName, float64(len(engine.KeyIDs())))
	case errors.Is(err, errors.ErrRefreshThrottled):
		s.metrics.RecordKeyRefresh(tenantName, metrics.RefreshThrottled)
	default:
		s.metrics.RecordKeyRefresh(tenantName, metrics.RefreshFailure)
	}
}

// RefreshKeys refreshes signing keys for one tenant, or all tenants when
// tenantName is empty. A throttled refresh is not an error.
func (s *Service) RefreshKeys(ctx context.Context, tenantName string) error {
	if tenantName != "" {
		engine, ok := s.engines[tenantName]
		if !ok {
			return errors.Wrap(errors.ErrTenantNotFound, tenantName)
		}
		err := engine.RefreshValidationKeys(ctx)
		if errors.Is(err, errors.ErrRefreshThrottled) {
			s.metrics.RecordKeyRefresh(tenantName, metrics.RefreshThrottled)
			return nil
		}
		if err != nil {
			s.metrics.RecordKeyRefresh(tenantName, metrics.RefreshFailure)
			return err
		}
		s.metrics.RecordKeyRefresh(tenantName, metrics.RefreshSuccess)
		return nil
	}

	for name := range s.engines {
		s.refreshTenant(ctx, name)
	}
	return nil
}

// InvalidateCache drops all cached claims.
func (s *Service) InvalidateCache(ctx context.Context) {
	s.cache.Clear(ctx)
	logger.Info("claims cache invalidated")
}

// ExtractToken extracts a bearer token from an Authorization header value.
func (s *Service) ExtractToken(authHeader string) (string, error) {
	if authHeader == "" {
		return "", errors.ErrTokenMissing
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 {
		return "", errors.ErrTokenMalformed
	}

	if !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.ErrTokenMalformed
	}

	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.ErrTokenMissing
	}

	return token, nil
}

// Engine returns the engine serving tenantName, if any.
func (s *Service) Engine(tenantName string) (*Engine, bool) {
	engine, ok := s.engines[tenantName]
	return engine, ok
}

// TenantNames returns the configured tenant lookup names.
func (s *Service) TenantNames() []string {
	names := make([]string, 0, len(s.engines))
	for name := range s.engines {
		names = append(names, name)
	}
	return names
}

// CacheStats exposes claims cache statistics.
func (s *Service) CacheStats() map[string]cache.CacheStats {
	return s.cache.Stats()
}

// Healthy reports whether the service's backends are reachable.
func (s *Service) Healthy(ctx context.Context) bool {
	return s.cache.Healthy(ctx)
}
