package b2c

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/your-org/b2c-validator/internal/domain"
)

// rsaMethods are the accepted signature algorithms. B2C signs with the RSA
// family only.
var rsaMethods = map[string]*jwt.SigningMethodRSA{
	"RS256": jwt.SigningMethodRS256,
	"RS384": jwt.SigningMethodRS384,
	"RS512": jwt.SigningMethodRS512,
}

// Verifier checks a raw token against a key snapshot and the expected
// issuer, policy and audiences. It holds no mutable state and is safe for
// concurrent use.
type Verifier struct {
	issuer    string
	policy    string
	audiences []string
	leeway    time.Duration
	now       func() time.Time
}

// VerifierOption customizes a Verifier.
type VerifierOption func(*Verifier)

// WithLeeway sets the clock skew applied to exp and nbf checks.
func WithLeeway(leeway time.Duration) VerifierOption {
	return func(v *Verifier) { v.leeway = leeway }
}

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) VerifierOption {
	return func(v *Verifier) { v.now = now }
}

// NewVerifier creates a verifier for one issuer+policy. audiences may be
// empty, in which case the aud claim is not checked.
func NewVerifier(issuer, policy string, audiences []string, opts ...VerifierOption) *Verifier {
	v := &Verifier{
		issuer:    issuer,
		policy:    policy,
		audiences: audiences,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// tokenHeader is the decoded JOSE header.
type tokenHeader struct {
	Alg string `json:"alg"`
	Kid string `json:"kid"`
	Typ string `json:"typ"`
}

// Verify runs the full validation pipeline against the given snapshot.
// Claim-check failures come back as data in the Result, never as errors.
// A kid that is not in the snapshot yields StatusNeedKeyRefresh so the
// caller can refresh and retry.
func (v *Verifier) Verify(token string, keys *KeySet) domain.Result {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return domain.Invalid(domain.ReasonMalformedToken)
	}
	// RawURLEncoding happily decodes "", so empty segments must be
	// rejected here, not left to the decoder
	if parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return domain.Invalid(domain.ReasonMalformedToken)
	}

	headerRaw, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return domain.Invalid(domain.ReasonMalformedToken)
	}

	var header tokenHeader
	if err := json.Unmarshal(headerRaw, &header); err != nil {
		return domain.Invalid(domain.ReasonMalformedToken)
	}

	method, ok := rsaMethods[header.Alg]
	if !ok {
		return domain.Invalid(domain.ReasonUnsupportedAlgorithm)
	}

	if header.Kid == "" {
		return domain.Invalid(domain.ReasonMalformedToken)
	}

	key, ok := keys.Lookup(header.Kid)
	if !ok {
		return domain.NeedKeyRefresh()
	}

	sig, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		return domain.Invalid(domain.ReasonMalformedToken)
	}

	// Signature covers header.payload exactly as transmitted
	if err := method.Verify(parts[0]+"."+parts[1], sig, key.Public); err != nil {
		return domain.Invalid(domain.ReasonSignatureInvalid)
	}

	payloadRaw, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return domain.Invalid(domain.ReasonMalformedToken)
	}

	var claims domain.ClaimSet
	if err := json.Unmarshal(payloadRaw, &claims); err != nil {
		return domain.Invalid(domain.ReasonMalformedToken)
	}

	return v.checkClaims(claims)
}

// checkClaims applies the ordered claim checks. The first failure wins.
func (v *Verifier) checkClaims(claims domain.ClaimSet) domain.Result {
	now := v.now()

	// exp is required and must be strictly in the future
	exp, ok := claims.Time("exp")
	if !ok || !exp.Add(v.leeway).After(now) {
		return domain.Invalid(domain.ReasonClaimExpired)
	}

	// nbf is optional; when present it must not be in the future
	if _, present := claims["nbf"]; present {
		nbf, ok := claims.Time("nbf")
		if !ok {
			return domain.Invalid(domain.ReasonMalformedToken)
		}
		if nbf.Add(-v.leeway).After(now) {
			return domain.Invalid(domain.ReasonClaimNotYetValid)
		}
	}

	if claims.Issuer() != v.issuer {
		return domain.Invalid(domain.ReasonIssuerMismatch)
	}

	// B2C emits the user flow as tfp (older tokens: acr); compared
	// case-insensitively because the portal shows mixed-case names
	if !strings.EqualFold(claims.Policy(), v.policy) {
		return domain.Invalid(domain.ReasonPolicyMismatch)
	}

	if len(v.audiences) > 0 && !audIntersects(claims.Audiences(), v.audiences) {
		return domain.Invalid(domain.ReasonAudienceMismatch)
	}

	return domain.Valid(claims)
}

// audIntersects reports whether any token audience is in the allowed set.
func audIntersects(tokenAud, allowed []string) bool {
	for _, a := range tokenAud {
		for _, b := range allowed {
			if a == b {
				return true
			}
		}
	}
	return false
}
