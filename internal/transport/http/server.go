package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/your-org/b2c-validator/internal/config"
	"github.com/your-org/b2c-validator/internal/service/metrics"
	"github.com/your-org/b2c-validator/pkg/logger"
	"github.com/your-org/b2c-validator/pkg/resilience/ratelimit"
)

// Server is the HTTP front of the validation service.
type Server struct {
	httpServer  *http.Server
	handler     *Handler
	rateLimiter *ratelimit.Limiter
	cfg         config.HTTPServerConfig
	endpoints   config.EndpointsConfig
	adminAPIKey string
}

// ServerOption is a functional option for configuring the Server.
type ServerOption func(*Server)

// WithRateLimiter sets the rate limiter for the server.
func WithRateLimiter(limiter *ratelimit.Limiter) ServerOption {
	return func(s *Server) {
		s.rateLimiter = limiter
	}
}

// NewServer creates the HTTP server around the validation service.
func NewServer(cfg *config.Config, validator Validator, version string, opts ...ServerOption) (*Server, error) {
	handler := NewHandler(validator, version)

	server := &Server{
		handler:     handler,
		cfg:         cfg.Server.HTTP,
		endpoints:   cfg.Endpoints,
		adminAPIKey: cfg.Admin.APIKey,
	}

	for _, opt := range opts {
		opt(server)
	}

	router := chi.NewRouter()

	// Middleware stack (order matters)
	router.Use(middleware.RequestID)
	router.Use(logger.CorrelationIDMiddleware)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)

	// Rate limiter middleware (early in the chain to reject requests fast)
	if server.rateLimiter != nil {
		router.Use(server.rateLimiter.Middleware())
		logger.Info("rate limiter middleware enabled")
	}

	router.Use(metrics.Middleware(metrics.DefaultMetrics))
	router.Use(requestLogger)
	router.Use(middleware.Timeout(cfg.Server.HTTP.WriteTimeout))

	server.registerRoutes(router, handler)

	httpServer := &http.Server{
		Addr:           cfg.Server.HTTP.Addr,
		Handler:        router,
		ReadTimeout:    cfg.Server.HTTP.ReadTimeout,
		WriteTimeout:   cfg.Server.HTTP.WriteTimeout,
		IdleTimeout:    cfg.Server.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.Server.HTTP.MaxHeaderBytes,
	}

	server.httpServer = httpServer

	return server, nil
}

// registerRoutes registers all HTTP routes with configurable endpoints.
func (s *Server) registerRoutes(r chi.Router, h *Handler) {
	ep := s.endpoints

	// Validation endpoint
	if ep.TokenValidate != "" {
		r.Get(ep.TokenValidate, h.ValidateToken)
		r.Post(ep.TokenValidate, h.ValidateToken)
	}

	// Health endpoints
	if ep.Health != "" {
		r.Get(ep.Health, h.Health)
		// Also support common variants
		r.Get(ep.Health+"z", h.Health)
	}
	if ep.Ready != "" {
		r.Get(ep.Ready, h.Ready)
		r.Get(ep.Ready+"z", h.Ready)
	}
	if ep.Live != "" {
		r.Get(ep.Live, h.Live)
		r.Get(ep.Live+"z", h.Live)
	}

	// Metrics endpoint
	if ep.Metrics != "" {
		r.Handle(ep.Metrics, promhttp.Handler())
	}

	// Admin endpoints, protected by API key
	r.Group(func(r chi.Router) {
		r.Use(requireAPIKey(s.adminAPIKey))

		if ep.KeysRefresh != "" {
			r.Post(ep.KeysRefresh, h.KeysRefresh)
		}
		if ep.CacheInvalidate != "" {
			r.Post(ep.CacheInvalidate, h.CacheInvalidate)
		}
		r.Get("/admin/loglevel", h.LogLevelGet)
		r.Put("/admin/loglevel", h.LogLevelSet)
	})
}

// Handler returns the fully assembled handler, middleware included.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	logger.Info("starting HTTP server",
		logger.String("addr", s.cfg.Addr),
	)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// requestLogger is a middleware that logs HTTP requests.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Wrap response writer to capture status code
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		logger.Info("http request",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.Int("status", ww.Status()),
			logger.Int("bytes", ww.BytesWritten()),
			logger.Duration("duration", time.Since(start)),
			logger.String("remote_addr", r.RemoteAddr),
			logger.String("request_id", middleware.GetReqID(r.Context())),
			logger.String("correlation_id", logger.CorrelationIDFromContext(r.Context())),
		)
	})
}
