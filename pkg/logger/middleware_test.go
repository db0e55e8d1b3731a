package logger

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCorrelationIDMiddleware_EchoesProvidedID(t *testing.T) {
	var got string
	handler := CorrelationIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = CorrelationIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(CorrelationIDHeader, "corr-123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "corr-123", got)
	assert.Equal(t, "corr-123", rec.Header().Get(CorrelationIDHeader))
}

func TestCorrelationIDMiddleware_FallsBackToRequestID(t *testing.T) {
	var got string
	handler := CorrelationIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = CorrelationIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-456")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "req-456", got)
	assert.Equal(t, "req-456", rec.Header().Get(CorrelationIDHeader))
}

func TestCorrelationIDMiddleware_UsesChiRequestID(t *testing.T) {
	var got string
	inner := CorrelationIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = CorrelationIDFromContext(r.Context())
	}))
	handler := middleware.RequestID(inner)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.NotEmpty(t, got)
	assert.NotEqual(t, "unknown", got)
	assert.Equal(t, got, rec.Header().Get(CorrelationIDHeader))
}

func TestCorrelationIDMiddleware_ContextLogger(t *testing.T) {
	handler := CorrelationIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotNil(t, WithContext(r.Context()))
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(CorrelationIDHeader, "corr-789")
	handler.ServeHTTP(httptest.NewRecorder(), req)
}
