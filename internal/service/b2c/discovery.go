// Package b2c validates access tokens issued by Azure AD B2C tenant
// user-flow policies.
package b2c

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/your-org/b2c-validator/pkg/errors"
	"github.com/your-org/b2c-validator/pkg/resilience/circuitbreaker"
)

// breaker names used for outbound calls.
const (
	breakerDiscovery = "discovery"
	breakerJWKS      = "jwks"
)

// IssuerMetadata is the subset of the OIDC discovery document the validator
// needs.
type IssuerMetadata struct {
	Issuer  string `json:"issuer"`
	JWKSURI string `json:"jwks_uri"`
}

// DiscoveryURL builds the well-known OpenID configuration URL for a B2C
// tenant and user-flow policy.
func DiscoveryURL(tenant, policy string) string {
	return fmt.Sprintf(
		"https://%s.b2clogin.com/%s.onmicrosoft.com/%s/v2.0/.well-known/openid-configuration",
		tenant, tenant, policy,
	)
}

// Resolver fetches issuer metadata from the discovery endpoint. It performs
// a single fetch per call: retries are the caller's decision.
type Resolver struct {
	client  *http.Client
	breaker *circuitbreaker.Manager
}

// NewResolver creates a resolver. breaker may be nil to disable circuit
// breaking (tests).
func NewResolver(client *http.Client, breaker *circuitbreaker.Manager) *Resolver {
	if client == nil {
		client = http.DefaultClient
	}
	return &Resolver{client: client, breaker: breaker}
}

// Resolve fetches and parses the discovery document at url.
func (r *Resolver) Resolve(ctx context.Context, url string) (*IssuerMetadata, error) {
	fetch := func() (*IssuerMetadata, error) {
		return r.fetch(ctx, url)
	}

	if r.breaker != nil {
		return circuitbreaker.ExecuteTyped(r.breaker, ctx, breakerDiscovery, fetch)
	}
	return fetch()
}

func (r *Resolver) fetch(ctx context.Context, url string) (*IssuerMetadata, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(errors.ErrDiscoveryFailed, err.Error())
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(errors.ErrDiscoveryFailed, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Wrap(errors.ErrDiscoveryFailed, fmt.Sprintf("HTTP %d from %s", resp.StatusCode, url))
	}

	var meta IssuerMetadata
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return nil, errors.Wrap(errors.ErrDiscoveryParseError, err.Error())
	}

	if meta.Issuer == "" || meta.JWKSURI == "" {
		return nil, errors.Wrap(errors.ErrDiscoveryIncomplete, fmt.Sprintf("issuer=%q jwks_uri=%q", meta.Issuer, meta.JWKSURI))
	}

	return &meta, nil
}
