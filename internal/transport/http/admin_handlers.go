package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/your-org/b2c-validator/pkg/errors"
	"github.com/your-org/b2c-validator/pkg/logger"
	"github.com/your-org/b2c-validator/pkg/security"
)

// requireAPIKey guards admin endpoints with a constant-time key compare.
// An empty configured key disables the endpoints entirely.
func requireAPIKey(apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if apiKey == "" {
				http.NotFound(w, r)
				return
			}

			provided := r.Header.Get("X-API-Key")
			if provided == "" {
				if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "ApiKey ") {
					provided = strings.TrimPrefix(auth, "ApiKey ")
				}
			}

			if !security.SecureCompare(provided, apiKey) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				json.NewEncoder(w).Encode(&ErrorResponse{
					Error: "invalid API key",
					Code:  errors.CodeTokenInvalid,
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// KeysRefresh handles forced signing key refresh requests.
// POST /admin/keys/refresh - refreshes one tenant or all tenants
func (h *Handler) KeysRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := getRequestID(r)

	var req KeysRefreshRequest
	if r.Body != nil {
		// Body is optional; absent means all tenants
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	logger.Info("key refresh requested",
		logger.String("request_id", requestID),
		logger.String("tenant", req.Tenant),
	)

	if err := h.validator.RefreshKeys(ctx, req.Tenant); err != nil {
		if errors.Is(err, errors.ErrTenantNotFound) {
			h.writeError(w, http.StatusNotFound, errors.CodeTenantUnknown, "unknown tenant", requestID)
			return
		}
		h.writeError(w, http.StatusBadGateway, errors.CodeKeyFetchError, err.Error(), requestID)
		return
	}

	resp := &KeysRefreshResponse{
		Success: true,
		Tenant:  req.Tenant,
		Message: "signing keys refreshed",
	}
	if req.Tenant != "" {
		if engine, ok := h.validator.Engine(req.Tenant); ok {
			resp.KeyIDs = engine.KeyIDs()
		}
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// CacheInvalidate handles cache invalidation requests.
// POST /admin/cache/invalidate - clears L1 and L2 claims caches
func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := getRequestID(r)

	logger.Info("cache invalidation requested",
		logger.String("request_id", requestID),
	)

	h.validator.InvalidateCache(ctx)

	resp := &CacheInvalidateResponse{
		Success: true,
		Message: "claims cache cleared (L1 and L2)",
		Stats:   h.validator.CacheStats(),
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// LogLevelGet handles GET /admin/loglevel.
func (h *Handler) LogLevelGet(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, &LogLevelResponse{Level: logger.GetLevel()})
}

// LogLevelSet handles PUT /admin/loglevel.
func (h *Handler) LogLevelSet(w http.ResponseWriter, r *http.Request) {
	requestID := getRequestID(r)

	level := r.URL.Query().Get("level")
	if level == "" {
		var req LogLevelRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
			level = req.Level
		}
	}

	switch strings.ToLower(level) {
	case "debug", "info", "warn", "warning", "error":
		if err := logger.SetLevel(level); err != nil {
			h.writeError(w, http.StatusInternalServerError, errors.CodeInternalError, err.Error(), requestID)
			return
		}
		logger.Info("log level changed", logger.String("level", level))
	default:
		h.writeError(w, http.StatusBadRequest, errors.CodeConfigError, "valid levels: debug, info, warn, error", requestID)
		return
	}

	h.writeJSON(w, http.StatusOK, &LogLevelResponse{Level: logger.GetLevel()})
}
