package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/tenantgate/tenantgate/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Tenancy       TenancyConfig
	Auth          AuthConfig
	Store         StoreConfig
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// ExternalBaseURL is the externally visible origin, used to derive SAML
	// ACS and metadata URLs when a tenant config does not pin them.
	ExternalBaseURL string
}

// TenancyConfig holds tenant resolution configuration
type TenancyConfig struct {
	// BaseDomain is the apex domain tenants hang off of; a request for
	// {label}.{BaseDomain} resolves to tenant {label}, and a request for the
	// base domain itself resolves to the super-admin scope.
	BaseDomain string
}

// AuthConfig holds session and credential configuration
type AuthConfig struct {
	// TokenSecret signs issued bearer tokens (HS256).
	TokenSecret string
	// TokenTTL bounds the lifetime of issued bearer tokens.
	TokenTTL time.Duration
	// IdPTimeout bounds outbound calls to third-party identity providers.
	IdPTimeout time.Duration
}

// StoreConfig holds persistence configuration
type StoreConfig struct {
	// PostgresURL selects the SQL store when set; the in-memory store is
	// used otherwise (development only).
	PostgresURL string
}

// ObservabilityConfig holds logging settings
type ObservabilityConfig struct {
	LogLevel observability.LogLevel
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("TENANTGATE_HOST", "0.0.0.0"),
			Port:            getEnv("TENANTGATE_PORT", "8080"),
			ReadTimeout:     getEnvDuration("TENANTGATE_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("TENANTGATE_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getEnvDuration("TENANTGATE_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("TENANTGATE_SHUTDOWN_TIMEOUT", 30*time.Second),
			ExternalBaseURL: getEnv("TENANTGATE_EXTERNAL_BASE_URL", "http://localhost:8080"),
		},
		Tenancy: TenancyConfig{
			BaseDomain: getEnv("TENANTGATE_BASE_DOMAIN", "localhost"),
		},
		Auth: AuthConfig{
			TokenSecret: getEnv("TENANTGATE_TOKEN_SECRET", ""),
			TokenTTL:    getEnvDuration("TENANTGATE_TOKEN_TTL", 24*time.Hour),
			IdPTimeout:  getEnvDuration("TENANTGATE_IDP_TIMEOUT", 8*time.Second),
		},
		Store: StoreConfig{
			PostgresURL: getEnv("TENANTGATE_POSTGRES_URL", ""),
		},
		Observability: ObservabilityConfig{
			LogLevel: parseLogLevel(getEnv("TENANTGATE_LOG_LEVEL", "info")),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Tenancy.BaseDomain == "" {
		return fmt.Errorf("base domain is required")
	}
	if c.Auth.TokenSecret == "" {
		return fmt.Errorf("token secret is required")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("token TTL must be positive")
	}
	if c.Auth.IdPTimeout <= 0 {
		return fmt.Errorf("IdP timeout must be positive")
	}
	return nil
}

// parseLogLevel parses a log level string
func parseLogLevel(level string) observability.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return observability.DebugLevel
	case "info":
		return observability.InfoLevel
	case "warn", "warning":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
