// Package schema provides JSON Schema generation for configuration files.
package schema

import (
	"encoding/json"
	"reflect"
	"strings"
	"time"

	"github.com/invopop/jsonschema"

	"github.com/your-org/b2c-validator/internal/config"
)

// SchemaType represents the type of schema to generate.
type SchemaType string

const (
	SchemaTypeConfig SchemaType = "config"
	SchemaTypeTenant SchemaType = "tenant"
)

// Generator generates JSON schemas for b2c-validator configuration files.
type Generator struct {
	reflector *jsonschema.Reflector
}

// NewGenerator creates a new schema generator.
func NewGenerator() *Generator {
	r := &jsonschema.Reflector{
		ExpandedStruct: false,
		// Only mark fields as required if they have explicit jsonschema:"required" tag
		// This makes all fields optional by default (they have defaults in setDefaults)
		RequiredFromJSONSchemaTags: true,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			// Handle time.Duration
			if t == reflect.TypeOf(time.Duration(0)) {
				return &jsonschema.Schema{
					Type:        "string",
					Pattern:     `^([0-9]+(\.[0-9]+)?(ns|us|µs|ms|s|m|h))+$`,
					Description: "Duration string (e.g., '30s', '5m', '1h')",
					Examples:    []interface{}{"10s", "5m", "1h", "30s"},
				}
			}
			return nil
		},
	}

	return &Generator{reflector: r}
}

// Generate generates a JSON schema for the specified type.
func (g *Generator) Generate(schemaType SchemaType) ([]byte, error) {
	var schema *jsonschema.Schema

	switch schemaType {
	case SchemaTypeTenant:
		schema = g.generateTenantSchema()
	default:
		schema = g.generateConfigSchema()
	}

	// Marshal with indentation
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, err
	}

	// Post-process to fix naming
	output := g.postProcessJSON(string(data))

	return []byte(output), nil
}

// generateConfigSchema generates schema for config.yaml.
func (g *Generator) generateConfigSchema() *jsonschema.Schema {
	schema := g.reflector.Reflect(&config.Config{})
	g.processSchema(schema)

	schema.Title = "B2C Validator Configuration"
	schema.Description = "Configuration schema for the token validation service.\n\n" +
		"Every setting can also be provided via environment variables with the\n" +
		"B2C_ prefix, e.g. B2C_SERVER_HTTP_ADDR or B2C_LOGGING_LEVEL."
	schema.ID = "https://github.com/your-org/b2c-validator/schemas/config.schema.json"

	schema.Examples = []interface{}{
		map[string]interface{}{
			"server": map[string]interface{}{
				"http": map[string]interface{}{"addr": ":8080"},
			},
			"tenants": []interface{}{
				map[string]interface{}{
					"tenant":    "contoso",
					"policy":    "b2c_1_signin",
					"audiences": []string{"00000000-0000-0000-0000-000000000000"},
					"rules":     []string{`claims.ver == "1.0"`},
				},
			},
			"keys": map[string]interface{}{
				"fetch_timeout":        "10s",
				"min_refresh_interval": "5m",
			},
			"validation": map[string]interface{}{
				"clock_skew": "2m",
			},
		},
	}

	return schema
}

// generateTenantSchema generates schema for a single tenant entry.
func (g *Generator) generateTenantSchema() *jsonschema.Schema {
	schema := g.reflector.Reflect(&config.TenantConfig{})
	g.processSchema(schema)

	schema.Title = "B2C Validator Tenant"
	schema.Description = "Schema for one Azure AD B2C tenant + user-flow policy entry.\n\n" +
		"Tokens are accepted only when issued by this tenant's policy and,\n" +
		"when audiences are configured, addressed to one of them."
	schema.ID = "https://github.com/your-org/b2c-validator/schemas/tenant.schema.json"

	schema.Examples = []interface{}{
		map[string]interface{}{
			"name":      "contoso-signin",
			"tenant":    "contoso",
			"policy":    "b2c_1_signin",
			"audiences": []string{"00000000-0000-0000-0000-000000000000"},
			"rules":     []string{`"admin" in claims.roles`},
		},
	}

	return schema
}

// processSchema recursively processes schema definitions.
func (g *Generator) processSchema(schema *jsonschema.Schema) {
	if schema == nil {
		return
	}

	if schema.Definitions != nil {
		for _, def := range schema.Definitions {
			g.processSchemaProperties(def)
		}
	}

	g.processSchemaProperties(schema)
}

func (g *Generator) processSchemaProperties(schema *jsonschema.Schema) {
	if schema == nil || schema.Properties == nil {
		return
	}

	newProps := jsonschema.NewProperties()
	for pair := schema.Properties.Oldest(); pair != nil; pair = pair.Next() {
		key := pair.Key
		value := pair.Value

		snakeKey := toSnakeCase(key)
		newProps.Set(snakeKey, value)

		if value != nil {
			g.processSchemaProperties(value)
		}
	}
	schema.Properties = newProps

	if len(schema.Required) > 0 {
		newRequired := make([]string, len(schema.Required))
		for i, req := range schema.Required {
			newRequired[i] = toSnakeCase(req)
		}
		schema.Required = newRequired
	}
}

// postProcessJSON fixes PascalCase references in the JSON.
func (g *Generator) postProcessJSON(jsonStr string) string {
	result := jsonStr

	for _, name := range configTypeNames() {
		snake := toSnakeCase(name)
		result = strings.ReplaceAll(result, `"#/$defs/`+name+`"`, `"#/$defs/`+snake+`"`)
		result = strings.ReplaceAll(result, `"`+name+`":`, `"`+snake+`":`)
	}

	// Handle external package types
	result = strings.ReplaceAll(result,
		`"#/$defs/github.com/your-org/b2c-validator/pkg/logger.Config"`,
		`"#/$defs/logger_config"`)
	result = strings.ReplaceAll(result,
		`"github.com/your-org/b2c-validator/pkg/logger.Config":`,
		`"logger_config":`)
	result = strings.ReplaceAll(result,
		`"#/$defs/github.com/your-org/b2c-validator/pkg/logger.SensitiveDataConfig"`,
		`"#/$defs/sensitive_data_config"`)
	result = strings.ReplaceAll(result,
		`"github.com/your-org/b2c-validator/pkg/logger.SensitiveDataConfig":`,
		`"sensitive_data_config":`)

	return result
}

func configTypeNames() []string {
	return []string{
		"Config", "ServerConfig", "HTTPServerConfig", "EndpointsConfig",
		"TenantConfig", "KeyRefreshConfig", "ValidationConfig", "AdminConfig",
		"CacheConfig", "L1CacheConfig", "L2CacheConfig", "RedisCacheConfig",
		"ResilienceConfig", "RateLimitConfig", "RedisStoreConfig",
		"RateLimitHeadersConfig", "CircuitBreakerConfig",
		"CircuitBreakerSettings", "HealthConfig", "SensitiveDataConfig",
		"PartialMaskConfig",
	}
}

// toSnakeCase converts PascalCase/camelCase to snake_case.
// Handles special cases like IDs and URLs correctly.
func toSnakeCase(s string) string {
	// Special cases mapping
	special := map[string]string{
		"HTTPServerConfig": "http_server_config",
		"HTTPServer":       "http_server",
		"DiscoveryURL":     "discovery_url",
		"APIKey":           "api_key",
		"JWKS":             "jwks",
		"TTL":              "ttl",
		"URL":              "url",
		"ID":               "id",
		"DB":               "db",
		"DSN":              "dsn",
	}

	// Check for special cases first
	if val, ok := special[s]; ok {
		return val
	}

	// Standard conversion
	var result strings.Builder
	for i, r := range s {
		if i > 0 && r >= 'A' && r <= 'Z' {
			prev := rune(s[i-1])
			// Add underscore before uppercase if previous was lowercase
			// or if this starts a new word (uppercase followed by lowercase)
			if prev >= 'a' && prev <= 'z' {
				result.WriteByte('_')
			} else if i+1 < len(s) {
				next := rune(s[i+1])
				if next >= 'a' && next <= 'z' && prev >= 'A' && prev <= 'Z' {
					result.WriteByte('_')
				}
			}
		}
		if r >= 'A' && r <= 'Z' {
			result.WriteRune(r + 32) // toLower
		} else {
			result.WriteRune(r)
		}
	}

	return result.String()
}

// GetAvailableSchemas returns list of available schema types.
func GetAvailableSchemas() []SchemaType {
	return []SchemaType{
		SchemaTypeConfig,
		SchemaTypeTenant,
	}
}

// ParseSchemaType parses a string to SchemaType.
func ParseSchemaType(s string) (SchemaType, bool) {
	switch strings.ToLower(s) {
	case "config":
		return SchemaTypeConfig, true
	case "tenant":
		return SchemaTypeTenant, true
	default:
		return "", false
	}
}
