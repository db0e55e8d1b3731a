package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const minimalConfig = `
tenants:
  - tenant: contoso
    policy: b2c_1_signin
`

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, minimalConfig)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.True(t, cfg.Server.HTTP.Enabled)
	assert.Equal(t, ":8080", cfg.Server.HTTP.Addr)
	assert.Equal(t, 10*time.Second, cfg.Server.HTTP.ReadTimeout)

	assert.Equal(t, "/v1/token/validate", cfg.Endpoints.TokenValidate)
	assert.Equal(t, "/admin/keys/refresh", cfg.Endpoints.KeysRefresh)
	assert.Equal(t, "/metrics", cfg.Endpoints.Metrics)

	assert.Equal(t, 10*time.Second, cfg.Keys.FetchTimeout)
	assert.Equal(t, 5*time.Minute, cfg.Keys.MinRefreshInterval)
	assert.Equal(t, time.Duration(0), cfg.Keys.BackgroundInterval)

	assert.Equal(t, time.Duration(0), cfg.Validation.ClockSkew)

	assert.True(t, cfg.Cache.L1.Enabled)
	assert.Equal(t, 10000, cfg.Cache.L1.MaxSize)
	assert.False(t, cfg.Cache.L2.Enabled)
	assert.Equal(t, "b2c:", cfg.Cache.L2.KeyPrefix)

	assert.True(t, cfg.Resilience.RateLimit.Enabled)
	assert.Equal(t, "100-S", cfg.Resilience.RateLimit.Rate)
	assert.True(t, cfg.Resilience.CircuitBreaker.Enabled)
	assert.Equal(t, uint32(5), cfg.Resilience.CircuitBreaker.Default.FailureThreshold)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.True(t, cfg.SensitiveData.MaskJWT)
}

func TestLoad_TenantNameDefaultsToTenant(t *testing.T) {
	path := writeConfig(t, minimalConfig)

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Len(t, cfg.Tenants, 1)
	assert.Equal(t, "contoso", cfg.Tenants[0].Name)
	assert.Equal(t, "contoso", cfg.Tenants[0].Tenant)
	assert.Equal(t, "b2c_1_signin", cfg.Tenants[0].Policy)
}

func TestLoad_FullTenant(t *testing.T) {
	path := writeConfig(t, `
tenants:
  - name: contoso-signin
    tenant: contoso
    policy: b2c_1_signin
    audiences:
      - 11111111-1111-1111-1111-111111111111
    rules:
      - "has(claims.emails) && size(claims.emails) > 0"
  - name: contoso-signup
    tenant: contoso
    policy: b2c_1_signup
keys:
  fetch_timeout: 5s
  min_refresh_interval: 1m
validation:
  clock_skew: 30s
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Len(t, cfg.Tenants, 2)
	assert.Equal(t, "contoso-signin", cfg.Tenants[0].Name)
	assert.Equal(t, []string{"11111111-1111-1111-1111-111111111111"}, cfg.Tenants[0].Audiences)
	assert.Len(t, cfg.Tenants[0].Rules, 1)
	assert.Equal(t, 5*time.Second, cfg.Keys.FetchTimeout)
	assert.Equal(t, time.Minute, cfg.Keys.MinRefreshInterval)
	assert.Equal(t, 30*time.Second, cfg.Validation.ClockSkew)
}

func TestLoad_EnvOverride(t *testing.T) {
	path := writeConfig(t, minimalConfig)

	t.Setenv("B2C_SERVER_HTTP_ADDR", ":9999")
	t.Setenv("B2C_LOGGING_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.Server.HTTP.Addr)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	assert.Error(t, err)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "tenants: [unclosed")

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_ValidationFailure(t *testing.T) {
	path := writeConfig(t, `
tenants:
  - tenant: ""
    policy: b2c_1_signin
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tenant short name is required")
}
