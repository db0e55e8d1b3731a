package b2c

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/your-org/b2c-validator/internal/config"
	"github.com/your-org/b2c-validator/internal/domain"
	"github.com/your-org/b2c-validator/pkg/errors"
	"github.com/your-org/b2c-validator/pkg/logger"
	"github.com/your-org/b2c-validator/pkg/resilience/circuitbreaker"
)

// refreshKey is the singleflight key; one flight per engine.
const refreshKey = "refresh"

// Engine validates tokens for a single tenant+policy pair. It holds the
// current key snapshot behind an atomic pointer so validation never blocks
// on a refresh in flight.
type Engine struct {
	name     string
	tenant   string
	policy   string
	meta     *IssuerMetadata
	verifier *Verifier
	fetcher  *Fetcher

	keys atomic.Pointer[KeySet]

	flight       singleflight.Group
	refreshMu    sync.Mutex
	lastRefresh  time.Time
	minInterval  time.Duration
	fetchTimeout time.Duration
	now          func() time.Time
}

// EngineOption customizes engine construction.
type EngineOption func(*engineOptions)

type engineOptions struct {
	client  *http.Client
	breaker *circuitbreaker.Manager
	now     func() time.Time
}

// WithHTTPClient sets the client for discovery and JWKS calls.
func WithHTTPClient(client *http.Client) EngineOption {
	return func(o *engineOptions) { o.client = client }
}

// WithBreaker wires outbound calls through the circuit breaker manager.
func WithBreaker(breaker *circuitbreaker.Manager) EngineOption {
	return func(o *engineOptions) { o.breaker = breaker }
}

// WithEngineClock overrides the time source (tests).
func WithEngineClock(now func() time.Time) EngineOption {
	return func(o *engineOptions) { o.now = now }
}

// NewEngine resolves the tenant's issuer metadata and fetches the initial
// key snapshot. Either failure aborts construction: an engine never exists
// without a usable key set.
func NewEngine(ctx context.Context, tenant config.TenantConfig, keys config.KeyRefreshConfig,
	validation config.ValidationConfig, opts ...EngineOption) (*Engine, error) {

	o := engineOptions{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	discoveryURL := tenant.DiscoveryURL
	if discoveryURL == "" {
		discoveryURL = DiscoveryURL(tenant.Tenant, tenant.Policy)
	}

	resolver := NewResolver(o.client, o.breaker)

	resolveCtx, cancel := context.WithTimeout(ctx, keys.FetchTimeout)
	defer cancel()

	meta, err := resolver.Resolve(resolveCtx, discoveryURL)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		name:         tenant.Name,
		tenant:       tenant.Tenant,
		policy:       tenant.Policy,
		meta:         meta,
		fetcher:      NewFetcher(o.client, o.breaker),
		minInterval:  keys.MinRefreshInterval,
		fetchTimeout: keys.FetchTimeout,
		now:          o.now,
	}
	e.fetcher.now = o.now
	e.verifier = NewVerifier(meta.Issuer, tenant.Policy, tenant.Audiences,
		WithLeeway(validation.ClockSkew), WithClock(o.now))

	fetchCtx, cancel := context.WithTimeout(ctx, keys.FetchTimeout)
	defer cancel()

	set, err := e.fetcher.Fetch(fetchCtx, meta.JWKSURI)
	if err != nil {
		return nil, err
	}
	e.keys.Store(set)
	e.lastRefresh = o.now()

	logger.Info("validation engine ready",
		logger.String("tenant", tenant.Name),
		logger.String("issuer", meta.Issuer),
		logger.Int("keys", set.Len()),
	)

	return e, nil
}

// Name returns the tenant lookup name the engine serves.
func (e *Engine) Name() string { return e.name }

// Issuer returns the issuer the engine validates against.
func (e *Engine) Issuer() string { return e.meta.Issuer }

// Policy returns the user-flow policy.
func (e *Engine) Policy() string { return e.policy }

// KeyIDs returns the kids in the current snapshot.
func (e *Engine) KeyIDs() []string { return e.keys.Load().KeyIDs() }

// KeysFetchedAt returns when the current snapshot was fetched.
func (e *Engine) KeysFetchedAt() time.Time { return e.keys.Load().FetchedAt() }

// ValidateAccessToken checks a raw token against the current key snapshot.
// It never blocks and never does I/O. A StatusNeedKeyRefresh result means
// the caller should call RefreshValidationKeys and retry exactly once.
func (e *Engine) ValidateAccessToken(token string) domain.Result {
	return e.verifier.Verify(token, e.keys.Load())
}

// RefreshValidationKeys fetches a fresh JWKS and swaps the snapshot.
// Concurrent calls coalesce into a single fetch. A call inside the
// min-refresh window returns ErrRefreshThrottled, which callers treat as
// a successful no-op, so a flood of tokens with an unknown kid cannot
// hammer the issuer.
func (e *Engine) RefreshValidationKeys(ctx context.Context) error {
	ch := e.flight.DoChan(refreshKey, func() (any, error) {
		return nil, e.refresh(context.WithoutCancel(ctx))
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return errors.Wrap(errors.ErrTimeout, ctx.Err().Error())
	}
}

func (e *Engine) refresh(ctx context.Context) error {
	e.refreshMu.Lock()
	if e.minInterval > 0 && e.now().Sub(e.lastRefresh) < e.minInterval {
		e.refreshMu.Unlock()
		logger.Debug("key refresh throttled",
			logger.String("tenant", e.name),
			logger.Duration("min_interval", e.minInterval),
		)
		return errors.ErrRefreshThrottled
	}
	e.refreshMu.Unlock()

	fetchCtx, cancel := context.WithTimeout(ctx, e.fetchTimeout)
	defer cancel()

	set, err := e.fetcher.Fetch(fetchCtx, e.meta.JWKSURI)
	if err != nil {
		logger.Warn("key refresh failed, keeping previous snapshot",
			logger.String("tenant", e.name),
			logger.Err(err),
		)
		return err
	}

	e.keys.Store(set)

	e.refreshMu.Lock()
	e.lastRefresh = e.now()
	e.refreshMu.Unlock()

	logger.Info("signing keys refreshed",
		logger.String("tenant", e.name),
		logger.Int("keys", set.Len()),
	)
	return nil
}
