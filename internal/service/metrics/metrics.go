package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the token validation service.
type Metrics struct {
	// Validation metrics
	ValidationsTotal   *prometheus.CounterVec
	ValidationDuration *prometheus.HistogramVec

	// Key refresh metrics
	KeyRefreshesTotal *prometheus.CounterVec
	KeySetSize        *prometheus.GaugeVec

	// Rule metrics
	RuleEvaluationsTotal   *prometheus.CounterVec
	RuleEvaluationDuration *prometheus.HistogramVec

	// Cache metrics
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec
	CacheSize        *prometheus.GaugeVec

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics *Metrics

func init() {
	DefaultMetrics = NewMetrics()
}

// NewMetrics creates and registers all metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		// Validation metrics
		ValidationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "b2c",
				Name:      "validations_total",
				Help:      "Total number of token validations",
			},
			[]string{"tenant", "status", "reason"},
		),
		ValidationDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "b2c",
				Name:      "validation_duration_seconds",
				Help:      "Token validation duration in seconds",
				Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
			},
			[]string{"tenant"},
		),

		// Key refresh metrics
		KeyRefreshesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "b2c",
				Subsystem: "keys",
				Name:      "refreshes_total",
				Help:      "Total number of signing key refreshes",
			},
			[]string{"tenant", "result"},
		),
		KeySetSize: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "b2c",
				Subsystem: "keys",
				Name:      "set_size",
				Help:      "Number of signing keys in the current snapshot",
			},
			[]string{"tenant"},
		),

		// Rule metrics
		RuleEvaluationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "b2c",
				Subsystem: "rules",
				Name:      "evaluations_total",
				Help:      "Total number of claim rule evaluations",
			},
			[]string{"tenant", "result"},
		),
		RuleEvaluationDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "b2c",
				Subsystem: "rules",
				Name:      "evaluation_duration_seconds",
				Help:      "Claim rule evaluation duration in seconds",
				Buckets:   []float64{.00001, .00005, .0001, .0005, .001, .005, .01},
			},
			[]string{"tenant"},
		),

		// Cache metrics
		CacheHitsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "b2c",
				Subsystem: "cache",
				Name:      "hits_total",
				Help:      "Total number of claims cache hits",
			},
			[]string{"level"},
		),
		CacheMissesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "b2c",
				Subsystem: "cache",
				Name:      "misses_total",
				Help:      "Total number of claims cache misses",
			},
			[]string{"level"},
		),
		CacheSize: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "b2c",
				Subsystem: "cache",
				Name:      "size",
				Help:      "Current number of items in cache",
			},
			[]string{"level"},
		),

		// HTTP metrics
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "b2c",
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "b2c",
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}
}

// Key refresh result label values.
const (
	RefreshSuccess   = "success"
	RefreshFailure   = "failure"
	RefreshThrottled = "throttled"
)

// RecordValidation records a token validation outcome.
func (m *Metrics) RecordValidation(tenant, status, reason string) {
	m.ValidationsTotal.WithLabelValues(tenant, status, reason).Inc()
}

// ObserveValidationDuration records how long a validation took.
func (m *Metrics) ObserveValidationDuration(tenant string, seconds float64) {
	m.ValidationDuration.WithLabelValues(tenant).Observe(seconds)
}

// RecordKeyRefresh records a key refresh outcome.
func (m *Metrics) RecordKeyRefresh(tenant, result string) {
	m.KeyRefreshesTotal.WithLabelValues(tenant, result).Inc()
}

// SetKeySetSize updates the key snapshot size gauge.
func (m *Metrics) SetKeySetSize(tenant string, size float64) {
	m.KeySetSize.WithLabelValues(tenant).Set(size)
}

// RecordRuleEvaluation records a claim rule evaluation outcome.
func (m *Metrics) RecordRuleEvaluation(tenant string, passed bool) {
	result := "rejected"
	if passed {
		result = "passed"
	}
	m.RuleEvaluationsTotal.WithLabelValues(tenant, result).Inc()
}

// RecordCacheHit records a cache hit.
func (m *Metrics) RecordCacheHit(level string) {
	m.CacheHitsTotal.WithLabelValues(level).Inc()
}

// RecordCacheMiss records a cache miss.
func (m *Metrics) RecordCacheMiss(level string) {
	m.CacheMissesTotal.WithLabelValues(level).Inc()
}

// SetCacheSize updates the cache size gauge.
func (m *Metrics) SetCacheSize(level string, size float64) {
	m.CacheSize.WithLabelValues(level).Set(size)
}
