package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/your-org/b2c-validator/pkg/logger"
)

// Config holds all application configuration.
type Config struct {
	Server        ServerConfig               `mapstructure:"server"`
	Endpoints     EndpointsConfig            `mapstructure:"endpoints"`
	Tenants       []TenantConfig             `mapstructure:"tenants"`
	Keys          KeyRefreshConfig           `mapstructure:"keys"`
	Validation    ValidationConfig           `mapstructure:"validation"`
	Cache         CacheConfig                `mapstructure:"cache"`
	Resilience    ResilienceConfig           `mapstructure:"resilience"`
	Admin         AdminConfig                `mapstructure:"admin"`
	Logging       logger.Config              `mapstructure:"logging"`
	SensitiveData logger.SensitiveDataConfig `mapstructure:"sensitive_data"`
	Health        HealthConfig               `mapstructure:"health"`
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	HTTP HTTPServerConfig `mapstructure:"http"`
}

// HTTPServerConfig holds HTTP server settings.
type HTTPServerConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	Addr           string        `mapstructure:"addr"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	MaxHeaderBytes int           `mapstructure:"max_header_bytes"`
}

// EndpointsConfig holds configurable endpoint paths.
type EndpointsConfig struct {
	// API endpoints
	TokenValidate string `mapstructure:"token_validate"`

	// Admin endpoints
	KeysRefresh     string `mapstructure:"keys_refresh"`
	CacheInvalidate string `mapstructure:"cache_invalidate"`

	// Health endpoints
	Health string `mapstructure:"health"`
	Ready  string `mapstructure:"ready"`
	Live   string `mapstructure:"live"`

	// Metrics endpoint
	Metrics string `mapstructure:"metrics"`
}

// TenantConfig describes one Azure AD B2C tenant + user-flow policy whose
// tokens this service validates.
type TenantConfig struct {
	// Name is the lookup key used by API callers. Defaults to Tenant when
	// only one policy is configured for the tenant.
	Name string `mapstructure:"name"`

	// Tenant is the B2C tenant short name, e.g. "contoso" for
	// contoso.onmicrosoft.com / contoso.b2clogin.com.
	Tenant string `mapstructure:"tenant"`

	// Policy is the user-flow (sign-in policy) name, e.g. "b2c_1_signin".
	Policy string `mapstructure:"policy"`

	// Audiences restricts accepted tokens to these application IDs.
	// Empty means the audience claim is not checked.
	Audiences []string `mapstructure:"audiences"`

	// Rules are optional CEL claim assertions evaluated after a token
	// passes signature and standard-claim checks.
	Rules []string `mapstructure:"rules"`

	// DiscoveryURL overrides the derived well-known URL (custom domains).
	DiscoveryURL string `mapstructure:"discovery_url"`
}

// KeyRefreshConfig holds signing-key fetch and refresh settings.
type KeyRefreshConfig struct {
	// FetchTimeout bounds a single discovery or JWKS HTTP round trip.
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"`

	// MinRefreshInterval throttles on-demand refreshes. A refresh requested
	// within the window is a successful no-op.
	MinRefreshInterval time.Duration `mapstructure:"min_refresh_interval"`

	// BackgroundInterval enables periodic refresh when > 0.
	BackgroundInterval time.Duration `mapstructure:"background_interval"`
}

// ValidationConfig holds token validation settings.
type ValidationConfig struct {
	// ClockSkew is the leeway applied to exp and nbf checks.
	ClockSkew time.Duration `mapstructure:"clock_skew"`
}

// AdminConfig holds admin endpoint protection settings.
type AdminConfig struct {
	// APIKey protects the admin endpoints. Empty disables them.
	APIKey string `mapstructure:"api_key"`
}

// CacheConfig holds claims caching configuration.
type CacheConfig struct {
	L1 L1CacheConfig `mapstructure:"l1"`
	L2 L2CacheConfig `mapstructure:"l2"`
}

// L1CacheConfig holds in-memory cache configuration.
type L1CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	MaxSize int           `mapstructure:"max_size"`
	TTL     time.Duration `mapstructure:"ttl"`
}

// L2CacheConfig holds distributed cache configuration.
type L2CacheConfig struct {
	Enabled   bool             `mapstructure:"enabled"`
	Backend   string           `mapstructure:"backend"` // redis
	Redis     RedisCacheConfig `mapstructure:"redis"`
	TTL       time.Duration    `mapstructure:"ttl"`
	KeyPrefix string           `mapstructure:"key_prefix"`
}

// RedisCacheConfig holds Redis configuration.
type RedisCacheConfig struct {
	Addresses    []string      `mapstructure:"addresses"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// ResilienceConfig holds resilience configuration.
type ResilienceConfig struct {
	RateLimit      RateLimitConfig      `mapstructure:"rate_limit"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
}

// RateLimitConfig holds HTTP rate limiting configuration.
type RateLimitConfig struct {
	// Enabled enables rate limiting
	Enabled bool `mapstructure:"enabled"`

	// Rate is in 'requests-period' format, e.g. '100-S' for 100 req/s
	Rate string `mapstructure:"rate"`

	// Store is the counter backend: memory or redis
	Store string `mapstructure:"store"`

	// Redis configuration (if store = redis)
	Redis RedisStoreConfig `mapstructure:"redis"`

	// TrustForwardedFor trusts X-Forwarded-For for the client IP
	TrustForwardedFor bool `mapstructure:"trust_forwarded_for"`

	// ExcludePaths excludes path prefixes from rate limiting
	ExcludePaths []string `mapstructure:"exclude_paths"`

	// ByEndpoint enables per-endpoint rates
	ByEndpoint bool `mapstructure:"by_endpoint"`

	// EndpointRates defines per-endpoint rate limits by path prefix
	EndpointRates map[string]string `mapstructure:"endpoint_rates"`

	// Headers configures rate limit response headers
	Headers RateLimitHeadersConfig `mapstructure:"headers"`
}

// RedisStoreConfig holds Redis settings for the rate limit store.
type RedisStoreConfig struct {
	Address   string `mapstructure:"address"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// RateLimitHeadersConfig holds rate limit headers configuration.
type RateLimitHeadersConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	LimitHeader     string `mapstructure:"limit_header"`
	RemainingHeader string `mapstructure:"remaining_header"`
	ResetHeader     string `mapstructure:"reset_header"`
}

// CircuitBreakerConfig holds circuit breaker configuration.
type CircuitBreakerConfig struct {
	Enabled  bool                              `mapstructure:"enabled"`
	Default  CircuitBreakerSettings            `mapstructure:"default"`
	Services map[string]CircuitBreakerSettings `mapstructure:"services"`
}

// CircuitBreakerSettings holds settings for a single circuit breaker.
type CircuitBreakerSettings struct {
	// MaxRequests is the maximum number of requests in half-open state
	MaxRequests uint32 `mapstructure:"max_requests"`

	// Interval is the cyclic period for clearing counts in closed state
	Interval time.Duration `mapstructure:"interval"`

	// Timeout is the period of open state before switching to half-open
	Timeout time.Duration `mapstructure:"timeout"`

	// FailureThreshold is the number of consecutive failures to open circuit
	FailureThreshold uint32 `mapstructure:"failure_threshold"`

	// OnStateChange enables logging on state changes
	OnStateChange bool `mapstructure:"on_state_change"`
}

// HealthConfig holds health check configuration.
type HealthConfig struct {
	CheckInterval time.Duration `mapstructure:"check_interval"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

// Load loads configuration from file and environment.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Read config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/b2c-validator")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found, use defaults
	}

	// Read environment variables
	v.SetEnvPrefix("B2C")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyTenantDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// applyTenantDefaults fills derived tenant fields.
func applyTenantDefaults(cfg *Config) {
	for i := range cfg.Tenants {
		t := &cfg.Tenants[i]
		if t.Name == "" {
			t.Name = t.Tenant
		}
	}
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.http.enabled", true)
	v.SetDefault("server.http.addr", ":8080")
	v.SetDefault("server.http.read_timeout", "10s")
	v.SetDefault("server.http.write_timeout", "10s")
	v.SetDefault("server.http.idle_timeout", "120s")
	v.SetDefault("server.http.max_header_bytes", 1<<20) // 1MB

	// Endpoints defaults (configurable paths)
	v.SetDefault("endpoints.token_validate", "/v1/token/validate")
	v.SetDefault("endpoints.keys_refresh", "/admin/keys/refresh")
	v.SetDefault("endpoints.cache_invalidate", "/admin/cache/invalidate")
	v.SetDefault("endpoints.health", "/health")
	v.SetDefault("endpoints.ready", "/ready")
	v.SetDefault("endpoints.live", "/live")
	v.SetDefault("endpoints.metrics", "/metrics")

	// Key refresh defaults
	v.SetDefault("keys.fetch_timeout", "10s")
	v.SetDefault("keys.min_refresh_interval", "5m")
	v.SetDefault("keys.background_interval", "0")

	// Validation defaults
	v.SetDefault("validation.clock_skew", "0s")

	// Cache defaults
	v.SetDefault("cache.l1.enabled", true)
	v.SetDefault("cache.l1.max_size", 10000)
	v.SetDefault("cache.l1.ttl", "60s")
	v.SetDefault("cache.l2.enabled", false)
	v.SetDefault("cache.l2.backend", "redis")
	v.SetDefault("cache.l2.ttl", "300s")
	v.SetDefault("cache.l2.key_prefix", "b2c:")
	v.SetDefault("cache.l2.redis.pool_size", 10)
	v.SetDefault("cache.l2.redis.read_timeout", "3s")
	v.SetDefault("cache.l2.redis.write_timeout", "3s")

	// Resilience defaults
	v.SetDefault("resilience.rate_limit.enabled", true)
	v.SetDefault("resilience.rate_limit.rate", "100-S")
	v.SetDefault("resilience.rate_limit.store", "memory")
	v.SetDefault("resilience.rate_limit.trust_forwarded_for", true)
	v.SetDefault("resilience.rate_limit.exclude_paths", []string{"/health", "/ready", "/live", "/metrics"})
	v.SetDefault("resilience.rate_limit.headers.enabled", true)
	v.SetDefault("resilience.rate_limit.headers.limit_header", "X-RateLimit-Limit")
	v.SetDefault("resilience.rate_limit.headers.remaining_header", "X-RateLimit-Remaining")
	v.SetDefault("resilience.rate_limit.headers.reset_header", "X-RateLimit-Reset")
	v.SetDefault("resilience.rate_limit.redis.db", 1)
	v.SetDefault("resilience.rate_limit.redis.key_prefix", "b2c:ratelimit:")

	v.SetDefault("resilience.circuit_breaker.enabled", true)
	v.SetDefault("resilience.circuit_breaker.default.max_requests", 3)
	v.SetDefault("resilience.circuit_breaker.default.interval", "60s")
	v.SetDefault("resilience.circuit_breaker.default.timeout", "30s")
	v.SetDefault("resilience.circuit_breaker.default.failure_threshold", 5)
	v.SetDefault("resilience.circuit_breaker.default.on_state_change", true)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.add_caller", true)

	// Sensitive data defaults
	v.SetDefault("sensitive_data.enabled", true)
	v.SetDefault("sensitive_data.mask_value", "***MASKED***")
	v.SetDefault("sensitive_data.fields", []string{
		"password", "secret", "token", "api_key", "apikey",
		"authorization", "client_secret", "access_token", "refresh_token",
		"id_token", "bearer",
	})
	v.SetDefault("sensitive_data.headers", []string{
		"Authorization", "X-API-Key", "Cookie", "Set-Cookie",
		"Proxy-Authorization", "WWW-Authenticate",
	})
	v.SetDefault("sensitive_data.mask_jwt", true)
	v.SetDefault("sensitive_data.partial_mask.enabled", false)
	v.SetDefault("sensitive_data.partial_mask.show_first", 4)
	v.SetDefault("sensitive_data.partial_mask.show_last", 4)
	v.SetDefault("sensitive_data.partial_mask.min_length", 12)

	// Health defaults
	v.SetDefault("health.check_interval", "10s")
	v.SetDefault("health.timeout", "5s")
}
