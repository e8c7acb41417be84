package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/coachdesk/coachdesk/pkg/observability"
	"github.com/coachdesk/coachdesk/pkg/usage"
)

// Config holds all application configuration.
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	Auth          AuthConfig
	Observability ObservabilityConfig

	// PlanOverridesPath optionally points at a YAML file adjusting
	// plan limits and fair-use ceilings at boot.
	PlanOverridesPath string
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes).
	HealthPort string

	// AllowedOrigins for CORS. Empty disables CORS handling.
	AllowedOrigins []string
}

// DatabaseConfig holds Postgres connection settings.
type DatabaseConfig struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
	ConnLifetime time.Duration
}

// RedisConfig holds Redis settings for distributed rate limiting.
// An empty URL disables Redis and falls back to in-process limits.
type RedisConfig struct {
	URL      string
	Password string
	DB       int
}

// AuthConfig holds authentication settings.
type AuthConfig struct {
	// RoleCacheTTL bounds how stale a cached role decision may be
	// after a role change on another instance.
	RoleCacheTTL time.Duration
}

// ObservabilityConfig holds observability settings.
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel
	MetricsEnabled bool

	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("COACHDESK_HOST", "0.0.0.0"),
			Port:            getEnv("COACHDESK_PORT", "8080"),
			ReadTimeout:     getEnvDuration("COACHDESK_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("COACHDESK_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getEnvDuration("COACHDESK_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("COACHDESK_SHUTDOWN_TIMEOUT", 30*time.Second),
			HealthPort:      getEnv("COACHDESK_HEALTH_PORT", "9090"),
			AllowedOrigins:  splitNonEmpty(getEnv("COACHDESK_ALLOWED_ORIGINS", "")),
		},
		Database: DatabaseConfig{
			URL:          getEnv("COACHDESK_POSTGRES_URL", ""),
			MaxOpenConns: getEnvInt("COACHDESK_POSTGRES_MAX_CONNS", 25),
			MaxIdleConns: getEnvInt("COACHDESK_POSTGRES_IDLE_CONNS", 5),
			ConnLifetime: getEnvDuration("COACHDESK_POSTGRES_CONN_LIFETIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			URL:      getEnv("COACHDESK_REDIS_URL", ""),
			Password: getEnv("COACHDESK_REDIS_PASSWORD", ""),
			DB:       getEnvInt("COACHDESK_REDIS_DB", 0),
		},
		Auth: AuthConfig{
			RoleCacheTTL: getEnvDuration("COACHDESK_ROLE_CACHE_TTL", time.Minute),
		},
		Observability: ObservabilityConfig{
			LogLevel:           parseLogLevel(getEnv("COACHDESK_LOG_LEVEL", "info")),
			MetricsEnabled:     getEnvBool("COACHDESK_METRICS_ENABLED", true),
			OTelEnabled:        getEnvBool("COACHDESK_OTEL_ENABLED", false),
			OTelEndpoint:       getEnv("COACHDESK_OTEL_ENDPOINT", "localhost:4317"),
			OTelServiceName:    getEnv("COACHDESK_OTEL_SERVICE_NAME", "coachdesk"),
			OTelServiceVersion: getEnv("COACHDESK_OTEL_SERVICE_VERSION", "1.0.0"),
			OTelInsecure:       getEnvBool("COACHDESK_OTEL_INSECURE", true),
		},
		PlanOverridesPath: getEnv("COACHDESK_PLAN_OVERRIDES", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	if c.Database.URL == "" {
		return fmt.Errorf("postgres URL is required")
	}

	if c.Auth.RoleCacheTTL < 0 {
		return fmt.Errorf("role cache TTL must not be negative")
	}

	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// LoadPlanOverrides reads the YAML plan-override file and applies it
// to the in-memory plan tables. A missing path is a no-op.
func (c *Config) LoadPlanOverrides() error {
	if c.PlanOverridesPath == "" {
		return nil
	}

	data, err := os.ReadFile(c.PlanOverridesPath)
	if err != nil {
		return fmt.Errorf("failed to read plan overrides: %w", err)
	}

	var overrides usage.Overrides
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return fmt.Errorf("failed to parse plan overrides: %w", err)
	}

	usage.ApplyOverrides(overrides)
	return nil
}

// parseLogLevel parses a log level string.
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

func splitNonEmpty(value string) []string {
	if value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// getEnv returns an environment variable value or a default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
