// Package http exposes the validation API: token validation, admin key
// refresh and cache invalidation, health probes and metrics.
package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/b2c-validator/internal/domain"
	"github.com/your-org/b2c-validator/internal/service/b2c"
	"github.com/your-org/b2c-validator/internal/service/cache"
	"github.com/your-org/b2c-validator/pkg/errors"
	"github.com/your-org/b2c-validator/pkg/logger"
)

// Validator is the service surface the handlers need.
type Validator interface {
	Validate(ctx context.Context, tenant, token string) (domain.Result, error)
	ExtractToken(authHeader string) (string, error)
	RefreshKeys(ctx context.Context, tenant string) error
	InvalidateCache(ctx context.Context)
	Engine(tenant string) (*b2c.Engine, bool)
	TenantNames() []string
	CacheStats() map[string]cache.CacheStats
	Healthy(ctx context.Context) bool
}

// Handler contains the HTTP handlers for the validation service.
type Handler struct {
	validator Validator
	version   string
}

// NewHandler creates the HTTP handler set.
func NewHandler(validator Validator, version string) *Handler {
	return &Handler{
		validator: validator,
		version:   version,
	}
}

// ValidateToken handles token validation requests. The tenant comes from
// the "tenant" query parameter or the request body; the token from the
// Authorization header or the body.
func (h *Handler) ValidateToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := getRequestID(r)
	start := time.Now()

	tenant := r.URL.Query().Get("tenant")

	var token string
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		extracted, err := h.validator.ExtractToken(authHeader)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, errors.CodeTokenMissing, "malformed Authorization header", requestID)
			return
		}
		token = extracted
	}

	if r.Method == http.MethodPost && (token == "" || tenant == "") {
		var req ValidateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
			if token == "" {
				token = req.Token
			}
			if tenant == "" {
				tenant = req.Tenant
			}
		}
	}

	if tenant == "" {
		h.writeError(w, http.StatusBadRequest, errors.CodeTenantUnknown, "tenant is required", requestID)
		return
	}
	if token == "" {
		h.writeError(w, http.StatusBadRequest, errors.CodeTokenMissing, "token is required", requestID)
		return
	}

	result, err := h.validator.Validate(ctx, tenant, token)
	if err != nil {
		if errors.Is(err, errors.ErrTenantNotFound) {
			h.writeError(w, http.StatusNotFound, errors.CodeTenantUnknown, "unknown tenant", requestID)
			return
		}
		logger.Error("token validation failed",
			logger.String("request_id", requestID),
			logger.String("tenant", tenant),
			logger.Err(err),
		)
		h.writeError(w, http.StatusInternalServerError, errors.CodeInternalError, "validation failed", requestID)
		return
	}

	logger.Debug("token validated",
		logger.String("request_id", requestID),
		logger.String("tenant", tenant),
		logger.Token("token", token),
		logger.String("status", result.Status.String()),
		logger.String("reason", string(result.Reason)),
		logger.Duration("duration", time.Since(start)),
	)

	// Rejections are data: the request itself succeeded
	h.writeJSON(w, http.StatusOK, FromResult(result))
}

// Health handles health check requests.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	checks := make(map[string]CheckResult)

	if h.validator.Healthy(ctx) {
		checks["cache"] = CheckResult{Status: "healthy"}
	} else {
		checks["cache"] = CheckResult{Status: "unhealthy", Message: "cache backend unreachable"}
	}
	checks["tenants"] = CheckResult{Status: "healthy"}
	if len(h.validator.TenantNames()) == 0 {
		checks["tenants"] = CheckResult{Status: "unhealthy", Message: "no tenants configured"}
	}

	status := "healthy"
	for _, check := range checks {
		if check.Status != "healthy" {
			status = "unhealthy"
			break
		}
	}

	resp := &HealthResponse{
		Status:    status,
		Checks:    checks,
		Version:   h.version,
		Timestamp: time.Now(),
	}

	statusCode := http.StatusOK
	if status != "healthy" {
		statusCode = http.StatusServiceUnavailable
	}

	h.writeJSON(w, statusCode, resp)
}

// Ready handles readiness check requests.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if !h.validator.Healthy(r.Context()) {
		h.writeError(w, http.StatusServiceUnavailable, errors.CodeUnavailable, "service not ready", "")
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// Live handles liveness check requests.
func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// errorCodeForReason maps a rejection reason to the API error code.
func errorCodeForReason(reason domain.Reason) string {
	switch reason {
	case domain.ReasonClaimExpired:
		return errors.CodeTokenExpired
	case domain.ReasonUnknownKeyID:
		return errors.CodeUnknownKeyID
	case domain.ReasonClaimsRejected:
		return errors.CodeClaimsRejected
	default:
		return errors.CodeTokenInvalid
	}
}

// Helper methods

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to encode response", logger.Err(err))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, code, message, requestID string) {
	resp := &ErrorResponse{
		Error:     message,
		Code:      code,
		RequestID: requestID,
	}
	h.writeJSON(w, status, resp)
}

func getRequestID(r *http.Request) string {
	// Check for existing request ID
	if id := r.Header.Get("X-Request-ID"); id != "" {
		return id
	}
	if id := r.Header.Get("X-Correlation-ID"); id != "" {
		return id
	}
	// Generate new UUID
	return uuid.New().String()
}
