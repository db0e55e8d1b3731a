package help

import (
	"fmt"
	"strings"
)

// AppInfo contains application metadata.
type AppInfo struct {
	Name        string
	Description string
	Version     string
	BuildTime   string
	GitCommit   string
	DocsURL     string
}

// Generator generates help text for the application.
type Generator struct {
	appInfo      AppInfo
	envVarPrefix string
	envVars      []EnvVar
}

// NewGenerator creates a new help generator.
func NewGenerator(appInfo AppInfo, envVarPrefix string) *Generator {
	return &Generator{
		appInfo:      appInfo,
		envVarPrefix: envVarPrefix,
	}
}

// SetEnvVars sets the environment variables extracted from config.
func (g *Generator) SetEnvVars(vars []EnvVar) {
	g.envVars = vars
}

// ExtractEnvVars extracts environment variables from a config struct.
func (g *Generator) ExtractEnvVars(cfg interface{}) {
	extractor := NewEnvVarExtractor(g.envVarPrefix)
	g.envVars = extractor.Extract(cfg)
}

// PrintVersion prints version information.
func (g *Generator) PrintVersion() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s %s\n", g.appInfo.Name, g.appInfo.Version))
	sb.WriteString(fmt.Sprintf("  Build time: %s\n", g.appInfo.BuildTime))
	sb.WriteString(fmt.Sprintf("  Git commit: %s\n", g.appInfo.GitCommit))
	return sb.String()
}

// PrintUsage prints basic usage information.
func (g *Generator) PrintUsage() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Usage: %s [OPTIONS]\n\n", g.appInfo.Name))
	sb.WriteString(fmt.Sprintf("%s\n\n", g.appInfo.Description))
	sb.WriteString("Options:\n")
	sb.WriteString("  See below for available flags.\n\n")
	sb.WriteString("Use --help for detailed configuration documentation\n")
	return sb.String()
}

// PrintEnvVars prints only the environment variables documentation.
func (g *Generator) PrintEnvVars() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("\n%s - Environment Variables\n", strings.ToUpper(g.appInfo.Name)))
	sb.WriteString(strings.Repeat("=", 80) + "\n\n")

	sb.WriteString(fmt.Sprintf("Prefix: %s\n", g.envVarPrefix))
	sb.WriteString(fmt.Sprintf("Total variables: %d\n\n", len(g.envVars)))

	sb.WriteString("Pattern: " + g.envVarPrefix + "_<SECTION>_<SUBSECTION>_<KEY>\n\n")

	sb.WriteString("Notes:\n")
	sb.WriteString("  - All keys are converted to UPPER_SNAKE_CASE\n")
	sb.WriteString("  - Nested keys use underscore as separator\n")
	sb.WriteString("  - Array indices use numeric suffix (0, 1, 2...)\n")
	sb.WriteString("  - Boolean values: true, false, 1, 0\n")
	sb.WriteString("  - Duration values: 10s, 5m, 1h, 100ms\n\n")

	sb.WriteString(strings.Repeat("-", 80) + "\n")

	// Grouped env vars
	if len(g.envVars) > 0 {
		sb.WriteString(FormatEnvVarsGrouped(g.envVars))
	}

	return sb.String()
}

// PrintExtendedHelp prints detailed help with all configuration options.
func (g *Generator) PrintExtendedHelp() string {
	var sb strings.Builder

	// Header
	sb.WriteString(g.header())
	sb.WriteString("\n")

	// Description section
	sb.WriteString("DESCRIPTION\n")
	sb.WriteString(fmt.Sprintf("    %s\n\n", g.appInfo.Description))

	// Usage section
	sb.WriteString("USAGE\n")
	sb.WriteString(fmt.Sprintf("    %s [OPTIONS]\n\n", g.appInfo.Name))

	// Options section
	sb.WriteString("OPTIONS\n")
	sb.WriteString(g.optionsSection())
	sb.WriteString("\n")

	// Separator
	sb.WriteString(g.separator())

	// Configuration methods section
	sb.WriteString("CONFIGURATION METHODS\n\n")
	sb.WriteString(g.configMethodsSection())
	sb.WriteString("\n")

	// Separator
	sb.WriteString(g.separator())

	// Environment variables section (brief)
	sb.WriteString("ENVIRONMENT VARIABLES\n\n")
	sb.WriteString("    Pattern: " + g.envVarPrefix + "_<SECTION>_<SUBSECTION>_<KEY>\n\n")
	sb.WriteString("    Notes:\n")
	sb.WriteString("    - All keys are converted to UPPER_SNAKE_CASE\n")
	sb.WriteString("    - Nested keys use underscore as separator\n")
	sb.WriteString("    - Array indices use numeric suffix (0, 1, 2...)\n")
	sb.WriteString("    - Boolean values: true, false, 1, 0\n")
	sb.WriteString("    - Duration values: 10s, 5m, 1h, 100ms\n\n")
	sb.WriteString(fmt.Sprintf("    Use --help-env to see all %d environment variables with descriptions.\n\n", len(g.envVars)))

	// Separator
	sb.WriteString(g.separator())

	// Secrets management section
	sb.WriteString("SECRETS MANAGEMENT\n\n")
	sb.WriteString(g.secretsSection())
	sb.WriteString("\n")

	// Separator
	sb.WriteString(g.separator())

	// Validation flow section
	sb.WriteString("VALIDATION FLOW\n\n")
	sb.WriteString(g.validationFlowSection())
	sb.WriteString("\n")

	// Separator
	sb.WriteString(g.separator())

	// Claim rules section
	sb.WriteString("CLAIM RULES\n\n")
	sb.WriteString(g.claimRulesSection())
	sb.WriteString("\n")

	// Separator
	sb.WriteString(g.separator())

	// JSON Schema generation section
	sb.WriteString("JSON SCHEMA GENERATION\n\n")
	sb.WriteString(g.schemaGenerationSection())
	sb.WriteString("\n")

	// Separator
	sb.WriteString(g.separator())

	// Examples section
	sb.WriteString("EXAMPLES\n\n")
	sb.WriteString(g.examplesSection())
	sb.WriteString("\n")

	// Separator
	sb.WriteString(g.separator())

	// Files and signals section
	sb.WriteString("FILES\n\n")
	sb.WriteString(g.filesSection())
	sb.WriteString("\n")

	sb.WriteString("SIGNALS\n\n")
	sb.WriteString("    SIGTERM, SIGINT           Graceful shutdown (30s timeout)\n\n")

	sb.WriteString("HEALTH ENDPOINTS\n\n")
	sb.WriteString("    GET /health               Overall health status\n")
	sb.WriteString("    GET /ready                Readiness probe\n")
	sb.WriteString("    GET /live                 Liveness probe\n")
	sb.WriteString("    GET /metrics              Prometheus metrics\n\n")

	// Separator
	sb.WriteString(g.separator())

	// Version section
	sb.WriteString("VERSION\n")
	sb.WriteString(fmt.Sprintf("    %s (%s)\n", g.appInfo.Version, g.appInfo.GitCommit))
	sb.WriteString(fmt.Sprintf("    Built: %s\n\n", g.appInfo.BuildTime))

	sb.WriteString("DOCUMENTATION\n")
	sb.WriteString(fmt.Sprintf("    %s\n\n", g.appInfo.DocsURL))

	return sb.String()
}

// header generates the header box.
func (g *Generator) header() string {
	width := 80
	title := strings.ToUpper(g.appInfo.Name)
	subtitle := g.appInfo.Description

	// Truncate if needed
	if len(subtitle) > width-4 {
		subtitle = subtitle[:width-7] + "..."
	}

	var sb strings.Builder
	sb.WriteString("\n")

	// Top border
	sb.WriteString("+" + strings.Repeat("-", width-2) + "+\n")

	// Title centered
	titlePadding := (width - 2 - len(title)) / 2
	sb.WriteString("|" + strings.Repeat(" ", titlePadding) + title + strings.Repeat(" ", width-2-titlePadding-len(title)) + "|\n")

	// Subtitle centered
	subtitlePadding := (width - 2 - len(subtitle)) / 2
	sb.WriteString("|" + strings.Repeat(" ", subtitlePadding) + subtitle + strings.Repeat(" ", width-2-subtitlePadding-len(subtitle)) + "|\n")

	// Bottom border
	sb.WriteString("+" + strings.Repeat("-", width-2) + "+\n")

	return sb.String()
}

// separator generates a section separator line.
func (g *Generator) separator() string {
	return strings.Repeat("-", 80) + "\n\n"
}

// optionsSection generates the options section.
func (g *Generator) optionsSection() string {
	return `    --config <path>       Path to YAML configuration file
    --version             Show version information
    --watch-config        Reload configuration on file change
    --help, -h            Show this help message
    --help-env            Show all environment variables with descriptions
`
}

// configMethodsSection generates the configuration methods section.
func (g *Generator) configMethodsSection() string {
	return fmt.Sprintf(`    Configuration can be provided through multiple sources (in order of priority):

    1. COMMAND LINE FLAGS
       Highest priority. Override all other configuration.

       Example:
         %s --config /etc/b2c-validator/config.yaml

    2. ENVIRONMENT VARIABLES
       Middle priority. Override config file values.

       Pattern: %s_<SECTION>_<SUBSECTION>_<KEY>

       Examples:
         %s_SERVER_HTTP_ADDR=:8080
         %s_SERVER_HTTP_READ_TIMEOUT=30s
         %s_KEYS_FETCH_TIMEOUT=10s
         %s_VALIDATION_CLOCK_SKEW=2m
         %s_CACHE_L1_ENABLED=true
         %s_LOGGING_LEVEL=debug

    3. CONFIGURATION FILE (YAML)
       Lowest priority. Base configuration.

       Default paths searched:
         ./config.yaml
         ./configs/config.yaml
         /etc/b2c-validator/config.yaml
`, g.appInfo.Name, g.envVarPrefix, g.envVarPrefix, g.envVarPrefix, g.envVarPrefix, g.envVarPrefix, g.envVarPrefix, g.envVarPrefix)
}

// validationFlowSection generates the validation flow section.
func (g *Generator) validationFlowSection() string {
	return `    1. RESOLVE (startup)
       Each configured tenant's OpenID discovery document is fetched and
       its JWKS signing keys are downloaded. Startup fails if any tenant
       cannot be resolved.

       Endpoint: GET https://<tenant>.b2clogin.com/<tenant>.onmicrosoft.com/
                     <policy>/v2.0/.well-known/openid-configuration

    2. VALIDATE (per request)
       The access token is checked against the tenant's keys and claims:
       signature, expiry, not-before, issuer, policy (tfp/acr), audience,
       then the tenant's claim rules.

       Endpoint: GET/POST /v1/token/validate?tenant=<name>

    3. REFRESH (on unknown key or on demand)
       A token signed by an unknown key triggers one JWKS re-fetch before
       the token is rejected. Refreshes are throttled by
       keys.min_refresh_interval and coalesced across callers.

       Endpoint: POST /admin/keys/refresh
`
}

// claimRulesSection generates the claim rules section.
func (g *Generator) claimRulesSection() string {
	return `    Each tenant may define CEL expressions evaluated against the claims
    of a token that already passed signature and standard-claim checks.
    All rules must evaluate to true; a rule that errors rejects the token.

    Config: tenants[].rules

    Example:
      tenants:
        - tenant: contoso
          policy: b2c_1_signin
          rules:
            - 'claims.ver == "1.0"'
            - '"admin" in claims.roles'

    The expression environment exposes the token claims as the "claims"
    map. Standard CEL functions and macros are available.
`
}

// schemaGenerationSection generates the JSON schema generation section.
func (g *Generator) schemaGenerationSection() string {
	return `    Generate JSON schemas for IDE autocomplete and validation with the
    schemagen tool:

    # Generate config schema
    schemagen -type config > config.schema.json

    # Write to a specific file
    schemagen -type config -output /etc/b2c-validator/config.schema.json

    Use in YAML files (VS Code, JetBrains):
    # yaml-language-server: $schema=./config.schema.json
`
}

// examplesSection generates the examples section.
func (g *Generator) examplesSection() string {
	return fmt.Sprintf(`    # Start with config file
    %s --config /etc/b2c-validator/config.yaml

    # Reload config on change (log level applies live)
    %s --config config.yaml --watch-config

    # Override with environment variables
    %s_SERVER_HTTP_ADDR=:9090 \
    %s_LOGGING_LEVEL=debug \
    %s --config config.yaml

    # Validate a token
    curl -H "Authorization: Bearer $TOKEN" \
         "http://localhost:8080/v1/token/validate?tenant=contoso"

    # Docker with environment variables
    docker run -e %s_SERVER_HTTP_ADDR=:8080 \
               -e %s_ADMIN_API_KEY=$ADMIN_KEY \
               %s:latest
`, g.appInfo.Name, g.appInfo.Name, g.envVarPrefix, g.envVarPrefix, g.appInfo.Name,
		g.envVarPrefix, g.envVarPrefix, g.appInfo.Name)
}

// filesSection generates the files section.
func (g *Generator) filesSection() string {
	return `    /etc/b2c-validator/config.yaml    Default configuration file
    ./configs/config.yaml             Local configuration file
    ./config.yaml                     Local configuration file
`
}

// secretsSection generates the secrets management section.
func (g *Generator) secretsSection() string {
	return fmt.Sprintf(`    NEVER store secrets in configuration files! Use environment variables instead.

    SENSITIVE ENVIRONMENT VARIABLES:

    Admin API:
      %s_ADMIN_API_KEY                     API key protecting admin endpoints

    Redis (L2 Cache):
      %s_CACHE_L2_REDIS_PASSWORD           Redis password for L2 cache

    Redis (Rate Limiting):
      %s_RESILIENCE_RATE_LIMIT_REDIS_PASSWORD  Redis password for rate limiting

    SECURITY BEST PRACTICES:

    1. Use Kubernetes secrets mounted as env vars:
       env:
         - name: %s_ADMIN_API_KEY
           valueFrom:
             secretKeyRef:
               name: b2c-validator-secrets
               key: admin-api-key

    2. Use Docker secrets or an external secret manager

    3. Rotate secrets regularly and monitor for unauthorized access
`, g.envVarPrefix, g.envVarPrefix, g.envVarPrefix, g.envVarPrefix)
}
