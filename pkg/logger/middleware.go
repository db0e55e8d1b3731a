package logger

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
)

// CorrelationIDMiddleware resolves the request's correlation ID, attaches a
// logger carrying it to the request context, and echoes it back in the
// response headers so validation outcomes can be traced across services.
// Precedence: X-Correlation-ID, then X-Request-ID, then chi's request ID.
func CorrelationIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		correlationID := r.Header.Get(CorrelationIDHeader)
		if correlationID == "" {
			correlationID = r.Header.Get("X-Request-ID")
		}
		if correlationID == "" {
			correlationID = middleware.GetReqID(r.Context())
		}
		if correlationID == "" {
			correlationID = "unknown"
		}

		ctx := WithCorrelationIDLogger(r.Context(), correlationID)
		w.Header().Set(CorrelationIDHeader, correlationID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
