package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/latitudexlabs/keycloak-events/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Gateway  GatewayConfig
	OIDC     OIDCConfig
	Forward  ForwardConfig
	Features FeatureConfig

	LogLevel observability.LogLevel
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string
}

// DatabaseConfig holds PostgreSQL settings
type DatabaseConfig struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
}

// RedisConfig holds Redis settings for call-limit accounting. An empty
// Addr disables the limiter.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// GatewayConfig holds payment gateway credentials
type GatewayConfig struct {
	KeyID     string
	KeySecret string
	BaseURL   string
	Timeout   time.Duration
}

// OIDCConfig holds token issuer settings
type OIDCConfig struct {
	IssuerURL string
}

// ForwardConfig holds the upstream organization-management service
// settings. An empty BaseURL disables the API-key endpoints.
type ForwardConfig struct {
	BaseURL string
	Timeout time.Duration
}

// FeatureConfig holds feature toggles
type FeatureConfig struct {
	// OrgProvisioningEnabled gates per-user organization creation on
	// user-added events.
	OrgProvisioningEnabled bool

	// SweepSchedule is a cron expression for the pending-subscription
	// sweep. Empty disables it.
	SweepSchedule string
}

// Load reads configuration from a .env file (when present) and the
// environment, then validates it.
func Load() (*Config, error) {
	// Missing .env is the normal production case.
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("ORGBILLING_HOST", "0.0.0.0"),
			Port:            getEnv("ORGBILLING_PORT", "8080"),
			ReadTimeout:     getEnvDuration("ORGBILLING_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("ORGBILLING_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getEnvDuration("ORGBILLING_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("ORGBILLING_SHUTDOWN_TIMEOUT", 30*time.Second),
			HealthPort:      getEnv("ORGBILLING_HEALTH_PORT", "9090"),
		},
		Database: DatabaseConfig{
			URL:          getEnv("DATABASE_URL", ""),
			MaxOpenConns: getEnvInt("DATABASE_MAX_OPEN_CONNS", 20),
			MaxIdleConns: getEnvInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Gateway: GatewayConfig{
			KeyID:     getEnv("RAZORPAY_KEY_ID", ""),
			KeySecret: getEnv("RAZORPAY_KEY_SECRET", ""),
			BaseURL:   getEnv("RAZORPAY_BASE_URL", "https://api.razorpay.com/v1"),
			Timeout:   getEnvDuration("RAZORPAY_TIMEOUT", 30*time.Second),
		},
		OIDC: OIDCConfig{
			IssuerURL: getEnv("OIDC_ISSUER_URL", ""),
		},
		Forward: ForwardConfig{
			BaseURL: getEnv("ORG_MGMT_BASEURL", ""),
			Timeout: getEnvDuration("ORG_MGMT_TIMEOUT", 30*time.Second),
		},
		Features: FeatureConfig{
			OrgProvisioningEnabled: getEnvBool("ORG_PROVISIONING_ENABLED", true),
			SweepSchedule:          getEnv("SUBSCRIPTION_SWEEP_SCHEDULE", ""),
		},
		LogLevel: observability.ParseLogLevel(getEnv("ORGBILLING_LOG_LEVEL", "info")),
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
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.Gateway.KeyID == "" || c.Gateway.KeySecret == "" {
		return fmt.Errorf("RAZORPAY_KEY_ID and RAZORPAY_KEY_SECRET are required")
	}
	if c.OIDC.IssuerURL == "" {
		return fmt.Errorf("OIDC_ISSUER_URL is required")
	}
	return nil
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
