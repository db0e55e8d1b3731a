package config

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// ValidationError contains detailed information about a validation error.
type ValidationError struct {
	Field   string
	Message string
	Details []string
}

func (e ValidationError) Error() string {
	if len(e.Details) > 0 {
		return fmt.Sprintf("%s: %s\n    - %s", e.Field, e.Message, strings.Join(e.Details, "\n    - "))
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	var sb strings.Builder
	sb.WriteString("configuration validation failed:\n")
	for _, err := range e {
		sb.WriteString("  ")
		sb.WriteString(err.Error())
		sb.WriteString("\n")
	}
	return sb.String()
}

// tenantNameRe matches valid B2C tenant short names (DNS label).
var tenantNameRe = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?$`)

// Validate performs semantic validation of the loaded configuration.
func Validate(cfg *Config) error {
	var errs ValidationErrors

	errs = append(errs, validateTenants(cfg.Tenants)...)
	errs = append(errs, validateKeys(cfg.Keys)...)

	if cfg.Resilience.RateLimit.Enabled && cfg.Resilience.RateLimit.Rate == "" {
		errs = append(errs, ValidationError{
			Field:   "resilience.rate_limit.rate",
			Message: "rate is required when rate limiting is enabled",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateTenants(tenants []TenantConfig) ValidationErrors {
	var errs ValidationErrors

	if len(tenants) == 0 {
		errs = append(errs, ValidationError{
			Field:   "tenants",
			Message: "at least one tenant must be configured",
		})
		return errs
	}

	names := make(map[string][]string)
	for i, t := range tenants {
		field := fmt.Sprintf("tenants[%d]", i)

		if t.Tenant == "" {
			errs = append(errs, ValidationError{
				Field:   field + ".tenant",
				Message: "tenant short name is required",
			})
		} else if !tenantNameRe.MatchString(t.Tenant) {
			errs = append(errs, ValidationError{
				Field:   field + ".tenant",
				Message: fmt.Sprintf("%q is not a valid tenant short name", t.Tenant),
			})
		}

		if t.Policy == "" {
			errs = append(errs, ValidationError{
				Field:   field + ".policy",
				Message: "policy (user flow) name is required",
			})
		}

		if t.DiscoveryURL != "" && !strings.HasPrefix(t.DiscoveryURL, "https://") {
			errs = append(errs, ValidationError{
				Field:   field + ".discovery_url",
				Message: "discovery_url must use https",
			})
		}

		name := t.Name
		if name == "" {
			name = t.Tenant
		}
		names[name] = append(names[name], field)
	}

	// Tenant lookup names must be unique
	for name, fields := range names {
		if len(fields) > 1 {
			sort.Strings(fields)
			errs = append(errs, ValidationError{
				Field:   "tenants",
				Message: fmt.Sprintf("name %q is used by multiple tenants", name),
				Details: fields,
			})
		}
	}

	return errs
}

func validateKeys(keys KeyRefreshConfig) ValidationErrors {
	var errs ValidationErrors

	if keys.FetchTimeout <= 0 {
		errs = append(errs, ValidationError{
			Field:   "keys.fetch_timeout",
			Message: "fetch_timeout must be positive",
		})
	}
	if keys.MinRefreshInterval < 0 {
		errs = append(errs, ValidationError{
			Field:   "keys.min_refresh_interval",
			Message: "min_refresh_interval cannot be negative",
		})
	}
	if keys.BackgroundInterval < 0 {
		errs = append(errs, ValidationError{
			Field:   "keys.background_interval",
			Message: "background_interval cannot be negative",
		})
	}

	return errs
}
