package http

import (
	"time"

	"github.com/your-org/b2c-validator/internal/domain"
	"github.com/your-org/b2c-validator/internal/service/cache"
)

// ValidateRequest is the POST body for token validation. The token may
// alternatively come from the Authorization header, and the tenant from the
// "tenant" query parameter.
type ValidateRequest struct {
	Tenant string `json:"tenant,omitempty"`
	Token  string `json:"token,omitempty"`
}

// TokenInfoResponse is the result of a token validation.
type TokenInfoResponse struct {
	Valid       bool           `json:"valid"`
	Subject     string         `json:"sub,omitempty"`
	Issuer      string         `json:"iss,omitempty"`
	Audience    []string       `json:"aud,omitempty"`
	Policy      string         `json:"policy,omitempty"`
	ExpiresAt   *time.Time     `json:"exp,omitempty"`
	IssuedAt    *time.Time     `json:"iat,omitempty"`
	ExtraClaims map[string]any `json:"extra_claims,omitempty"`
	Cached      bool           `json:"cached,omitempty"`
	Error       string         `json:"error,omitempty"`
	ErrorCode   string         `json:"error_code,omitempty"`
}

// ErrorResponse is the generic error envelope.
type ErrorResponse struct {
	Error     string         `json:"error"`
	Code      string         `json:"code"`
	Details   map[string]any `json:"details,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
}

// HealthResponse is a health check response.
type HealthResponse struct {
	Status    string                 `json:"status"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
	Version   string                 `json:"version,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// CheckResult is a single health check result.
type CheckResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// KeysRefreshRequest asks for a signing key refresh. An empty tenant
// refreshes all tenants.
type KeysRefreshRequest struct {
	Tenant string `json:"tenant,omitempty"`
}

// KeysRefreshResponse reports a key refresh outcome.
type KeysRefreshResponse struct {
	Success bool     `json:"success"`
	Tenant  string   `json:"tenant,omitempty"`
	KeyIDs  []string `json:"key_ids,omitempty"`
	Message string   `json:"message,omitempty"`
}

// CacheInvalidateResponse reports a cache invalidation outcome.
type CacheInvalidateResponse struct {
	Success bool                        `json:"success"`
	Message string                      `json:"message,omitempty"`
	Stats   map[string]cache.CacheStats `json:"stats,omitempty"`
}

// LogLevelResponse reports the current log level.
type LogLevelResponse struct {
	Level string `json:"level"`
}

// LogLevelRequest changes the log level.
type LogLevelRequest struct {
	Level string `json:"level"`
}

// FromResult builds the validation response from a domain Result.
func FromResult(result domain.Result) *TokenInfoResponse {
	if !result.IsValid() {
		return &TokenInfoResponse{
			Valid:     false,
			Error:     string(result.Reason),
			ErrorCode: errorCodeForReason(result.Reason),
		}
	}

	info := domain.FromClaims(result.Claims)
	resp := &TokenInfoResponse{
		Valid:       true,
		Subject:     info.Subject,
		Issuer:      info.Issuer,
		Audience:    info.Audience,
		Policy:      info.Policy,
		ExtraClaims: info.ExtraClaims,
		Cached:      result.Cached,
	}

	if !info.ExpiresAt.IsZero() {
		resp.ExpiresAt = &info.ExpiresAt
	}
	if !info.IssuedAt.IsZero() {
		resp.IssuedAt = &info.IssuedAt
	}

	return resp
}
