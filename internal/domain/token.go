package domain

import "time"

// TokenInfo is the flattened view of a validated access token that the HTTP
// layer returns to callers.
type TokenInfo struct {
	// Raw is the original token string
	Raw string `json:"-"`

	// Valid indicates if the token passed validation
	Valid bool `json:"valid"`

	// Standard claims
	Subject   string    `json:"sub"`
	Issuer    string    `json:"iss"`
	Audience  []string  `json:"aud"`
	ExpiresAt time.Time `json:"exp"`
	IssuedAt  time.Time `json:"iat"`
	NotBefore time.Time `json:"nbf,omitempty"`

	// Policy is the B2C user flow that issued the token (tfp or acr claim).
	Policy string `json:"policy,omitempty"`

	// ExtraClaims holds claims not explicitly mapped.
	ExtraClaims map[string]any `json:"extra_claims,omitempty"`
}

// FromClaims builds a TokenInfo from a validated claim set.
func FromClaims(claims ClaimSet) *TokenInfo {
	info := &TokenInfo{
		Valid:    true,
		Subject:  claims.Subject(),
		Issuer:   claims.Issuer(),
		Audience: claims.Audiences(),
		Policy:   claims.Policy(),
	}
	if exp, ok := claims.Time("exp"); ok {
		info.ExpiresAt = exp
	}
	if iat, ok := claims.Time("iat"); ok {
		info.IssuedAt = iat
	}
	if nbf, ok := claims.Time("nbf"); ok {
		info.NotBefore = nbf
	}

	known := map[string]struct{}{
		"sub": {}, "iss": {}, "aud": {}, "exp": {}, "iat": {}, "nbf": {},
		"tfp": {}, "acr": {},
	}
	for k, v := range claims {
		if _, ok := known[k]; ok {
			continue
		}
		if info.ExtraClaims == nil {
			info.ExtraClaims = make(map[string]any)
		}
		info.ExtraClaims[k] = v
	}

	return info
}

// IsExpired checks if the token has expired.
func (t *TokenInfo) IsExpired() bool {
	return time.Now().After(t.ExpiresAt)
}

// TTL returns the remaining time until token expiration.
func (t *TokenInfo) TTL() time.Duration {
	return time.Until(t.ExpiresAt)
}

// GetExtraClaim retrieves an extra claim by key.
func (t *TokenInfo) GetExtraClaim(key string) (any, bool) {
	if t.ExtraClaims == nil {
		return nil, false
	}
	v, ok := t.ExtraClaims[key]
	return v, ok
}
