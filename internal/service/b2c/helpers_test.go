package b2c

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

// newRSAKey generates a test signing key.
func newRSAKey(t testing.TB) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return key
}

// jwksDocument builds a JWKS JSON document from kid/public-key pairs.
func jwksDocument(t testing.TB, keys map[string]*rsa.PublicKey) []byte {
	t.Helper()

	type jwkEntry struct {
		Kty string `json:"kty"`
		Use string `json:"use"`
		Kid string `json:"kid"`
		N   string `json:"n"`
		E   string `json:"e"`
	}

	doc := struct {
		Keys []jwkEntry `json:"keys"`
	}{}

	for kid, pub := range keys {
		doc.Keys = append(doc.Keys, jwkEntry{
			Kty: "RSA",
			Use: "sig",
			Kid: kid,
			N:   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
			E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
		})
	}

	raw, err := json.Marshal(doc)
	require.NoError(t, err)
	return raw
}

// rsaPublics builds the kid-to-public-key map for a single signing key.
func rsaPublics(key *rsa.PrivateKey, kid string) map[string]*rsa.PublicKey {
	return map[string]*rsa.PublicKey{kid: &key.PublicKey}
}

// signToken mints a token signed with key, with kid in the header.
func signToken(t testing.TB, key *rsa.PrivateKey, kid string, claims jwt.MapClaims) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = kid

	signed, err := token.SignedString(key)
	require.NoError(t, err)
	return signed
}

// standardClaims returns a claim set that passes validation against idp.
func standardClaims(issuer, policy string) jwt.MapClaims {
	return jwt.MapClaims{
		"iss": issuer,
		"sub": "user-1",
		"aud": "app-1",
		"tfp": policy,
		"exp": time.Now().Add(time.Hour).Unix(),
		"nbf": time.Now().Add(-time.Minute).Unix(),
		"iat": time.Now().Add(-time.Minute).Unix(),
	}
}

// fakeIdP is a stand-in identity provider serving a discovery document and
// a mutable JWKS, with call counters.
type fakeIdP struct {
	server *httptest.Server

	mu   sync.Mutex
	jwks []byte

	issuer         string
	discoveryCalls atomic.Int64
	jwksCalls      atomic.Int64
	jwksDelay      time.Duration
	jwksStatus     atomic.Int64
}

// newFakeIdP starts the fake provider with the given initial keys.
func newFakeIdP(t *testing.T, keys map[string]*rsa.PublicKey) *fakeIdP {
	t.Helper()

	idp := &fakeIdP{}
	idp.jwks = jwksDocument(t, keys)
	idp.jwksStatus.Store(http.StatusOK)

	mux := http.NewServeMux()
	mux.HandleFunc("/v2.0/.well-known/openid-configuration", func(w http.ResponseWriter, r *http.Request) {
		idp.discoveryCalls.Add(1)
		json.NewEncoder(w).Encode(map[string]string{
			"issuer":   idp.issuer,
			"jwks_uri": idp.server.URL + "/discovery/v2.0/keys",
		})
	})
	mux.HandleFunc("/discovery/v2.0/keys", func(w http.ResponseWriter, r *http.Request) {
		idp.jwksCalls.Add(1)
		if idp.jwksDelay > 0 {
			time.Sleep(idp.jwksDelay)
		}
		if status := int(idp.jwksStatus.Load()); status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		idp.mu.Lock()
		defer idp.mu.Unlock()
		w.Write(idp.jwks)
	})

	idp.server = httptest.NewServer(mux)
	idp.issuer = idp.server.URL + "/v2.0/"
	t.Cleanup(idp.server.Close)

	return idp
}

// discoveryURL returns the provider's well-known endpoint.
func (idp *fakeIdP) discoveryURL() string {
	return idp.server.URL + "/v2.0/.well-known/openid-configuration"
}

// setKeys replaces the published JWKS (key rotation).
func (idp *fakeIdP) setKeys(t *testing.T, keys map[string]*rsa.PublicKey) {
	t.Helper()
	doc := jwksDocument(t, keys)
	idp.mu.Lock()
	idp.jwks = doc
	idp.mu.Unlock()
}
