package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the complete application configuration
type Config struct {
	Server        ServerConfig
	Entra         EntraConfig
	Observability ObservabilityConfig
	Environment   string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// EntraConfig holds Microsoft Entra ID authentication configuration.
// TenantID and ClientID are required; every URL the validator needs is
// derived deterministically from them.
type EntraConfig struct {
	TenantID string
	ClientID string

	// AcceptedAudiences overrides the set of audience values the validator
	// accepts. When empty, exactly the derived api://<client-id> form is
	// accepted. Entra issues either the bare client ID or the URI form
	// depending on how the scope was requested, so deployments that see both
	// list both here. The set is never widened implicitly.
	AcceptedAudiences []string

	JWKSTimeout  time.Duration
	JWKSCacheTTL time.Duration
	ClockSkew    time.Duration
}

// ObservabilityConfig holds logging configuration
type ObservabilityConfig struct {
	LogLevel  string
	LogFormat string // json or text
}

// New creates a new Config instance by loading environment variables
func New() (*Config, error) {
	// Load .env file if it exists (backend/.env when run from project root, .env when run from backend/)
	_ = godotenv.Load("backend/.env")
	_ = godotenv.Load(".env")

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getPort(),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Entra: EntraConfig{
			TenantID:          getEnv("ENTRA_TENANT_ID", os.Getenv("AZURE_TENANT_ID")),
			ClientID:          getEnv("ENTRA_CLIENT_ID", os.Getenv("AZURE_CLIENT_ID")),
			AcceptedAudiences: getEnvAsList("ENTRA_ACCEPTED_AUDIENCES"),
			JWKSTimeout:       getEnvAsDuration("ENTRA_JWKS_TIMEOUT", 10*time.Second),
			JWKSCacheTTL:      getEnvAsDuration("ENTRA_JWKS_CACHE_TTL", 1*time.Hour),
			ClockSkew:         getEnvAsDuration("ENTRA_CLOCK_SKEW", 2*time.Minute),
		},
		Observability: ObservabilityConfig{
			LogLevel:  getEnv("LOG_LEVEL", "info"),
			LogFormat: getEnv("LOG_FORMAT", "json"),
		},
	}

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if all required configuration fields are set
func (c *Config) Validate() error {
	if c.Entra.TenantID == "" {
		return fmt.Errorf("entra tenant ID is required: set ENTRA_TENANT_ID or AZURE_TENANT_ID")
	}
	if c.Entra.ClientID == "" {
		return fmt.Errorf("entra client ID is required: set ENTRA_CLIENT_ID or AZURE_CLIENT_ID")
	}
	if c.Observability.LogLevel == "" {
		return fmt.Errorf("log level is required")
	}
	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

// IssuerV1 returns the legacy (v1.0) token issuer for the tenant
func (c *EntraConfig) IssuerV1() string {
	return fmt.Sprintf("https://sts.windows.net/%s/", c.TenantID)
}

// IssuerV2 returns the current (v2.0) token issuer for the tenant
func (c *EntraConfig) IssuerV2() string {
	return fmt.Sprintf("https://login.microsoftonline.com/%s/v2.0", c.TenantID)
}

// JWKSURL returns the key-discovery endpoint for the tenant
func (c *EntraConfig) JWKSURL() string {
	return fmt.Sprintf("https://login.microsoftonline.com/%s/discovery/v2.0/keys", c.TenantID)
}

// Audiences returns the accepted audience set. Defaults to the single
// api://<client-id> form when no override is configured.
func (c *EntraConfig) Audiences() []string {
	if len(c.AcceptedAudiences) > 0 {
		return c.AcceptedAudiences
	}
	return []string{fmt.Sprintf("api://%s", c.ClientID)}
}

// Address returns the HTTP server address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Helper functions

// getPort returns the server port from PORT or SERVER_PORT env vars (default: 8080)
func getPort() int {
	if value := os.Getenv("PORT"); value != "" {
		if p, err := strconv.Atoi(value); err == nil {
			return p
		}
	}
	if value := os.Getenv("SERVER_PORT"); value != "" {
		if p, err := strconv.Atoi(value); err == nil {
			return p
		}
	}
	return 8080
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return nil
	}
	var values []string
	for _, v := range strings.Split(valueStr, ",") {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	return values
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
