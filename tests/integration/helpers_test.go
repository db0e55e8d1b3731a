// Package integration contains integration tests that drive the full HTTP
// stack against a fake B2C identity provider.
package integration

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/your-org/b2c-validator/internal/config"
)

// testKeyPair holds an RSA key pair for signing test tokens.
type testKeyPair struct {
	privateKey *rsa.PrivateKey
	keyID      string
}

func newTestKeyPair(t *testing.T, kid string) *testKeyPair {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return &testKeyPair{privateKey: key, keyID: kid}
}

// jwks returns the JWKS JSON document for this key pair.
func (kp *testKeyPair) jwks() []byte {
	pub := &kp.privateKey.PublicKey
	doc := map[string]any{
		"keys": []map[string]any{
			{
				"kty": "RSA",
				"use": "sig",
				"alg": "RS256",
				"kid": kp.keyID,
				"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
			},
		},
	}
	data, _ := json.Marshal(doc)
	return data
}

// signToken creates a signed JWT with the given claims.
func (kp *testKeyPair) signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = kp.keyID
	signed, err := token.SignedString(kp.privateKey)
	require.NoError(t, err)
	return signed
}

// fakeB2C serves OpenID discovery and JWKS documents like a B2C tenant.
// Setting jwksStatus to a non-zero HTTP status makes the JWKS endpoint fail.
type fakeB2C struct {
	server     *httptest.Server
	keys       *testKeyPair
	issuer     string
	jwksStatus int
}

func newFakeB2C(t *testing.T, keys *testKeyPair) *fakeB2C {
	t.Helper()

	idp := &fakeB2C{keys: keys}

	mux := http.NewServeMux()
	mux.HandleFunc("/v2.0/.well-known/openid-configuration", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"issuer":   idp.issuer,
			"jwks_uri": idp.server.URL + "/discovery/v2.0/keys",
		})
	})
	mux.HandleFunc("/discovery/v2.0/keys", func(w http.ResponseWriter, r *http.Request) {
		if idp.jwksStatus != 0 {
			w.WriteHeader(idp.jwksStatus)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(idp.keys.jwks())
	})

	idp.server = httptest.NewServer(mux)
	idp.issuer = idp.server.URL + "/v2.0/"
	t.Cleanup(idp.server.Close)

	return idp
}

// claims returns standard B2C claims for a token issued by this fake IdP.
func (idp *fakeB2C) claims(policy string) jwt.MapClaims {
	now := time.Now()
	return jwt.MapClaims{
		"iss": idp.issuer,
		"sub": "user-1",
		"aud": "app-1",
		"exp": now.Add(time.Hour).Unix(),
		"nbf": now.Add(-time.Minute).Unix(),
		"iat": now.Add(-time.Minute).Unix(),
		"tfp": policy,
		"ver": "1.0",
	}
}

// testConfig builds a single-tenant config pointing at the fake IdP.
func testConfig(idp *fakeB2C, mutate func(*config.Config)) *config.Config {
	cfg := &config.Config{
		Server: config.ServerConfig{
			HTTP: config.HTTPServerConfig{
				Enabled:        true,
				Addr:           ":0",
				ReadTimeout:    5 * time.Second,
				WriteTimeout:   5 * time.Second,
				IdleTimeout:    30 * time.Second,
				MaxHeaderBytes: 1 << 20,
			},
		},
		Endpoints: config.EndpointsConfig{
			TokenValidate:   "/v1/token/validate",
			KeysRefresh:     "/admin/keys/refresh",
			CacheInvalidate: "/admin/cache/invalidate",
			Health:          "/health",
			Ready:           "/ready",
			Live:            "/live",
			Metrics:         "/metrics",
		},
		Tenants: []config.TenantConfig{
			{
				Name:         "contoso",
				Tenant:       "contoso",
				Policy:       "b2c_1_signin",
				Audiences:    []string{"app-1"},
				DiscoveryURL: idp.server.URL + "/v2.0/.well-known/openid-configuration",
			},
		},
		Keys: config.KeyRefreshConfig{
			FetchTimeout: 5 * time.Second,
		},
		Cache: config.CacheConfig{
			L1: config.L1CacheConfig{
				Enabled: true,
				MaxSize: 100,
				TTL:     time.Minute,
			},
		},
	}

	if mutate != nil {
		mutate(cfg)
	}
	return cfg
}
