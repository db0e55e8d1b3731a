package b2c

import (
	"context"
	"crypto/rsa"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"

	"github.com/your-org/b2c-validator/pkg/errors"
	"github.com/your-org/b2c-validator/pkg/resilience/circuitbreaker"
)

// SigningKey is one RSA public key from the issuer's JWKS.
type SigningKey struct {
	KeyID  string
	Public *rsa.PublicKey
}

// KeySet is an immutable snapshot of the issuer's signing keys. It is never
// mutated after construction: refreshes build a new KeySet and swap the
// pointer.
type KeySet struct {
	keys      map[string]SigningKey
	fetchedAt time.Time
}

// Lookup returns the key for kid.
func (ks *KeySet) Lookup(kid string) (SigningKey, bool) {
	key, ok := ks.keys[kid]
	return key, ok
}

// KeyIDs returns the kids in the snapshot, sorted.
func (ks *KeySet) KeyIDs() []string {
	ids := make([]string, 0, len(ks.keys))
	for kid := range ks.keys {
		ids = append(ids, kid)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of keys.
func (ks *KeySet) Len() int {
	return len(ks.keys)
}

// FetchedAt returns when the snapshot was fetched.
func (ks *KeySet) FetchedAt() time.Time {
	return ks.fetchedAt
}

// ParseKeySet builds a KeySet from a raw JWKS document. Keys without a kid
// and non-RSA keys are skipped; a duplicate kid is an error.
func ParseKeySet(raw []byte, fetchedAt time.Time) (*KeySet, error) {
	set, err := jwk.Parse(raw)
	if err != nil {
		return nil, errors.Wrap(errors.ErrKeySetParse, err.Error())
	}

	keys := make(map[string]SigningKey, set.Len())
	for i := 0; i < set.Len(); i++ {
		key, _ := set.Key(i)

		if key.KeyType() != jwa.RSA {
			continue
		}
		kid := key.KeyID()
		if kid == "" {
			continue
		}
		if _, exists := keys[kid]; exists {
			return nil, errors.Wrap(errors.ErrKeyInvalid, fmt.Sprintf("duplicate kid %q", kid))
		}

		var pub rsa.PublicKey
		if err := key.Raw(&pub); err != nil {
			return nil, errors.Wrap(errors.ErrKeyInvalid, fmt.Sprintf("kid %q: %v", kid, err))
		}

		keys[kid] = SigningKey{KeyID: kid, Public: &pub}
	}

	if len(keys) == 0 {
		return nil, errors.Wrap(errors.ErrKeyInvalid, "JWKS contains no usable RSA keys")
	}

	return &KeySet{keys: keys, fetchedAt: fetchedAt}, nil
}

// Fetcher downloads JWKS documents.
type Fetcher struct {
	client  *http.Client
	breaker *circuitbreaker.Manager
	now     func() time.Time
}

// NewFetcher creates a fetcher. breaker may be nil to disable circuit
// breaking (tests).
func NewFetcher(client *http.Client, breaker *circuitbreaker.Manager) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &Fetcher{client: client, breaker: breaker, now: time.Now}
}

// Fetch downloads and parses the JWKS at jwksURI into a fresh KeySet.
func (f *Fetcher) Fetch(ctx context.Context, jwksURI string) (*KeySet, error) {
	fetch := func() (*KeySet, error) {
		return f.fetch(ctx, jwksURI)
	}

	if f.breaker != nil {
		return circuitbreaker.ExecuteTyped(f.breaker, ctx, breakerJWKS, fetch)
	}
	return fetch()
}

func (f *Fetcher) fetch(ctx context.Context, jwksURI string) (*KeySet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, jwksURI, nil)
	if err != nil {
		return nil, errors.Wrap(errors.ErrKeyFetchFailed, err.Error())
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(errors.ErrKeyFetchFailed, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Wrap(errors.ErrKeyFetchFailed, fmt.Sprintf("HTTP %d from %s", resp.StatusCode, jwksURI))
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(errors.ErrKeyFetchFailed, err.Error())
	}

	return ParseKeySet(raw, f.now())
}
