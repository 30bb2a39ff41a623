package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/latitudexlabs/keycloak-events/pkg/observability"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/orgbilling?sslmode=disable")
	t.Setenv("RAZORPAY_KEY_ID", "rzp_test_key")
	t.Setenv("RAZORPAY_KEY_SECRET", "rzp_test_secret")
	t.Setenv("OIDC_ISSUER_URL", "https://auth.example.com/realms/master")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "9090", cfg.Server.HealthPort)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "https://api.razorpay.com/v1", cfg.Gateway.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.Gateway.Timeout)
	assert.Equal(t, observability.InfoLevel, cfg.LogLevel)
	assert.True(t, cfg.Features.OrgProvisioningEnabled)
	assert.Empty(t, cfg.Features.SweepSchedule)
	assert.Empty(t, cfg.Redis.Addr)
}

func TestLoadOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ORGBILLING_PORT", "9000")
	t.Setenv("ORGBILLING_LOG_LEVEL", "debug")
	t.Setenv("RAZORPAY_TIMEOUT", "5s")
	t.Setenv("ORG_PROVISIONING_ENABLED", "false")
	t.Setenv("SUBSCRIPTION_SWEEP_SCHEDULE", "0 * * * *")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("DATABASE_MAX_OPEN_CONNS", "50")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, observability.DebugLevel, cfg.LogLevel)
	assert.Equal(t, 5*time.Second, cfg.Gateway.Timeout)
	assert.False(t, cfg.Features.OrgProvisioningEnabled)
	assert.Equal(t, "0 * * * *", cfg.Features.SweepSchedule)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 50, cfg.Database.MaxOpenConns)
}

func TestValidateMissingRequired(t *testing.T) {
	tests := []struct {
		name  string
		unset string
	}{
		{"missing database url", "DATABASE_URL"},
		{"missing gateway key", "RAZORPAY_KEY_ID"},
		{"missing gateway secret", "RAZORPAY_KEY_SECRET"},
		{"missing issuer", "OIDC_ISSUER_URL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(tt.unset, "")

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestValidatePortClash(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ORGBILLING_PORT", "8080")
	t.Setenv("ORGBILLING_HEALTH_PORT", "8080")

	_, err := Load()
	assert.Error(t, err)
}
