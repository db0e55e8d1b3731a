package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Result Tests
// =============================================================================

func TestValid(t *testing.T) {
	claims := ClaimSet{"sub": "user-1"}
	result := Valid(claims)

	assert.Equal(t, StatusValid, result.Status)
	assert.True(t, result.IsValid())
	assert.Equal(t, ReasonNone, result.Reason)
	assert.Equal(t, "user-1", result.Claims.Subject())
}

func TestNeedKeyRefresh(t *testing.T) {
	result := NeedKeyRefresh()

	assert.Equal(t, StatusNeedKeyRefresh, result.Status)
	assert.False(t, result.IsValid())
	assert.Nil(t, result.Claims)
}

func TestInvalid(t *testing.T) {
	tests := []struct {
		name   string
		reason Reason
	}{
		{"malformed", ReasonMalformedToken},
		{"bad signature", ReasonSignatureInvalid},
		{"expired", ReasonClaimExpired},
		{"not yet valid", ReasonClaimNotYetValid},
		{"issuer", ReasonIssuerMismatch},
		{"policy", ReasonPolicyMismatch},
		{"audience", ReasonAudienceMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Invalid(tt.reason)
			assert.Equal(t, StatusInvalid, result.Status)
			assert.False(t, result.IsValid())
			assert.Equal(t, tt.reason, result.Reason)
		})
	}
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "valid", StatusValid.String())
	assert.Equal(t, "need_key_refresh", StatusNeedKeyRefresh.String())
	assert.Equal(t, "invalid", StatusInvalid.String())
	assert.Equal(t, "unknown", Status(99).String())
}

// =============================================================================
// ClaimSet Tests
// =============================================================================

func TestClaimSet_String(t *testing.T) {
	claims := ClaimSet{
		"sub": "user-1",
		"n":   float64(42),
	}

	assert.Equal(t, "user-1", claims.String("sub"))
	assert.Equal(t, "", claims.String("n"))
	assert.Equal(t, "", claims.String("missing"))
}

func TestClaimSet_Time(t *testing.T) {
	now := time.Now().Truncate(time.Second)
	claims := ClaimSet{
		"exp": float64(now.Unix()),
		"iat": now.Unix(),
		"bad": "not-a-number",
	}

	exp, ok := claims.Time("exp")
	require.True(t, ok)
	assert.True(t, exp.Equal(now))

	iat, ok := claims.Time("iat")
	require.True(t, ok)
	assert.True(t, iat.Equal(now))

	_, ok = claims.Time("bad")
	assert.False(t, ok)

	_, ok = claims.Time("missing")
	assert.False(t, ok)
}

func TestClaimSet_Audiences(t *testing.T) {
	tests := []struct {
		name     string
		claims   ClaimSet
		expected []string
	}{
		{
			name:     "single string",
			claims:   ClaimSet{"aud": "api://backend"},
			expected: []string{"api://backend"},
		},
		{
			name:     "array",
			claims:   ClaimSet{"aud": []any{"app-1", "app-2"}},
			expected: []string{"app-1", "app-2"},
		},
		{
			name:     "empty string",
			claims:   ClaimSet{"aud": ""},
			expected: nil,
		},
		{
			name:     "absent",
			claims:   ClaimSet{},
			expected: nil,
		},
		{
			name:     "array with non-strings skipped",
			claims:   ClaimSet{"aud": []any{"app-1", 42}},
			expected: []string{"app-1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.claims.Audiences())
		})
	}
}

func TestClaimSet_Policy(t *testing.T) {
	assert.Equal(t, "b2c_1_signin", ClaimSet{"tfp": "b2c_1_signin"}.Policy())
	assert.Equal(t, "b2c_1_signup", ClaimSet{"acr": "b2c_1_signup"}.Policy())
	// tfp wins when both are present
	assert.Equal(t, "b2c_1_signin", ClaimSet{"tfp": "b2c_1_signin", "acr": "b2c_1_signup"}.Policy())
	assert.Equal(t, "", ClaimSet{}.Policy())
}

func TestClaimSet_Decode(t *testing.T) {
	claims := ClaimSet{
		"sub":    "user-1",
		"emails": []any{"a@example.com"},
		"age":    float64(30),
	}

	var out struct {
		Subject string   `json:"sub"`
		Emails  []string `json:"emails"`
		Age     int      `json:"age"`
	}

	require.NoError(t, claims.Decode(&out))
	assert.Equal(t, "user-1", out.Subject)
	assert.Equal(t, []string{"a@example.com"}, out.Emails)
	assert.Equal(t, 30, out.Age)
}

func TestClaimSet_Decode_TypeMismatch(t *testing.T) {
	claims := ClaimSet{"sub": "user-1"}

	var out struct {
		Subject int `json:"sub"`
	}

	assert.Error(t, claims.Decode(&out))
}

// =============================================================================
// TokenInfo Tests
// =============================================================================

func TestFromClaims(t *testing.T) {
	now := time.Now().Truncate(time.Second)
	claims := ClaimSet{
		"sub":    "user-1",
		"iss":    "https://contoso.b2clogin.com/tid/v2.0/",
		"aud":    "app-1",
		"exp":    float64(now.Add(time.Hour).Unix()),
		"iat":    float64(now.Unix()),
		"nbf":    float64(now.Unix()),
		"tfp":    "b2c_1_signin",
		"emails": []any{"a@example.com"},
	}

	info := FromClaims(claims)

	assert.True(t, info.Valid)
	assert.Equal(t, "user-1", info.Subject)
	assert.Equal(t, "https://contoso.b2clogin.com/tid/v2.0/", info.Issuer)
	assert.Equal(t, []string{"app-1"}, info.Audience)
	assert.Equal(t, "b2c_1_signin", info.Policy)
	assert.True(t, info.ExpiresAt.Equal(now.Add(time.Hour)))
	assert.True(t, info.IssuedAt.Equal(now))
	assert.True(t, info.NotBefore.Equal(now))

	// Mapped claims must not leak into ExtraClaims
	_, ok := info.GetExtraClaim("sub")
	assert.False(t, ok)

	emails, ok := info.GetExtraClaim("emails")
	require.True(t, ok)
	assert.Equal(t, []any{"a@example.com"}, emails)
}

func TestTokenInfo_IsExpired(t *testing.T) {
	tests := []struct {
		name      string
		expiresAt time.Time
		expected  bool
	}{
		{
			name:      "expired",
			expiresAt: time.Now().Add(-1 * time.Hour),
			expected:  true,
		},
		{
			name:      "not expired",
			expiresAt: time.Now().Add(1 * time.Hour),
			expected:  false,
		},
		{
			name:      "just expired",
			expiresAt: time.Now().Add(-1 * time.Millisecond),
			expected:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token := &TokenInfo{ExpiresAt: tt.expiresAt}
			assert.Equal(t, tt.expected, token.IsExpired())
		})
	}
}

func TestTokenInfo_TTL(t *testing.T) {
	futureTime := time.Now().Add(1 * time.Hour)
	token := &TokenInfo{ExpiresAt: futureTime}

	ttl := token.TTL()

	// TTL should be approximately 1 hour (allowing for test execution time)
	assert.True(t, ttl > 59*time.Minute)
	assert.True(t, ttl <= 1*time.Hour)
}

func TestTokenInfo_TTL_Expired(t *testing.T) {
	pastTime := time.Now().Add(-1 * time.Hour)
	token := &TokenInfo{ExpiresAt: pastTime}

	ttl := token.TTL()

	// TTL should be negative for expired tokens
	assert.True(t, ttl < 0)
}

func TestTokenInfo_GetExtraClaim_NilMap(t *testing.T) {
	token := &TokenInfo{}

	val, ok := token.GetExtraClaim("any")
	assert.False(t, ok)
	assert.Nil(t, val)
}

// =============================================================================
// Benchmarks
// =============================================================================

func BenchmarkFromClaims(b *testing.B) {
	claims := ClaimSet{
		"sub": "user-1",
		"iss": "https://contoso.b2clogin.com/tid/v2.0/",
		"aud": "app-1",
		"exp": float64(time.Now().Add(time.Hour).Unix()),
		"tfp": "b2c_1_signin",
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		FromClaims(claims)
	}
}

func BenchmarkClaimSet_Audiences(b *testing.B) {
	claims := ClaimSet{"aud": []any{"app-1", "app-2", "app-3"}}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		claims.Audiences()
	}
}
