package errors

import (
	"errors"
	"fmt"
)

// Standard error types for the token validation service.
var (
	// Token errors
	ErrTokenMissing     = errors.New("token is missing")
	ErrTokenInvalid     = errors.New("token is invalid")
	ErrTokenMalformed   = errors.New("token is malformed")
	ErrSignatureInvalid = errors.New("token signature is invalid")

	// Discovery errors
	ErrDiscoveryFailed     = errors.New("OIDC discovery failed")
	ErrDiscoveryParseError = errors.New("failed to parse discovery document")
	ErrDiscoveryIncomplete = errors.New("discovery document is missing required fields")

	// Key set errors
	ErrKeyFetchFailed   = errors.New("failed to fetch signing keys")
	ErrKeySetParse      = errors.New("failed to parse JWKS document")
	ErrKeyInvalid       = errors.New("invalid key in JWKS")
	ErrRefreshThrottled = errors.New("key refresh throttled")

	// Tenant errors
	ErrTenantNotFound = errors.New("tenant is not configured")
	ErrRuleRejected   = errors.New("claim assertion rule rejected token")
	ErrRuleInvalid    = errors.New("claim assertion rule is invalid")

	// Configuration errors
	ErrConfigInvalid    = errors.New("invalid configuration")
	ErrConfigNotFound   = errors.New("configuration not found")
	ErrConfigLoadFailed = errors.New("failed to load configuration")

	// Service errors
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("operation timeout")
	ErrInternal           = errors.New("internal error")
)

// ValidationError represents a structured validation error.
type ValidationError struct {
	// Code is the error code
	Code string `json:"code"`

	// Message is the error message
	Message string `json:"message"`

	// Details contains additional error details
	Details map[string]any `json:"details,omitempty"`

	// Cause is the underlying error
	Cause error `json:"-"`
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *ValidationError) Unwrap() error {
	return e.Cause
}

// WithDetail adds a detail to the error.
func (e *ValidationError) WithDetail(key string, value any) *ValidationError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// NewValidationError creates a new ValidationError.
func NewValidationError(code, message string, cause error) *ValidationError {
	return &ValidationError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Error codes
const (
	CodeTokenInvalid   = "INVALID_TOKEN"
	CodeTokenExpired   = "TOKEN_EXPIRED"
	CodeTokenMissing   = "TOKEN_MISSING"
	CodeUnknownKeyID   = "UNKNOWN_KEY_ID"
	CodeClaimsRejected = "CLAIMS_REJECTED"
	CodeTenantUnknown  = "TENANT_UNKNOWN"
	CodeDiscoveryError = "DISCOVERY_ERROR"
	CodeKeyFetchError  = "KEY_FETCH_ERROR"
	CodeInternalError  = "INTERNAL_ERROR"
	CodeConfigError    = "CONFIG_ERROR"
	CodeUnavailable    = "SERVICE_UNAVAILABLE"
)

// Is reports whether err matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
