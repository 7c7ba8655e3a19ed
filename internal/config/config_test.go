package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("APP_ENV", "development")
	t.Setenv("APP_URL", "http://localhost:8080")
	t.Setenv("JWT_SECRET", "test-secret")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg := Load()
	require.NotNil(t, cfg)

	assert.Equal(t, "StudyOlle", cfg.AppName)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, 14*24*time.Hour, cfg.SessionExpiry)
	assert.Equal(t, 10, cfg.BcryptCost)
	assert.Equal(t, time.Hour, cfg.ConfirmEmailResendInterval)
	assert.True(t, cfg.MetricsEnabled)
	assert.False(t, cfg.StorageEnabled())
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.IsProduction())
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("PORT", "9090")
	t.Setenv("BCRYPT_COST", "12")
	t.Setenv("CONFIRM_EMAIL_RESEND_INTERVAL", "10m")
	t.Setenv("METRICS_ENABLED", "false")
	t.Setenv("S3_BUCKET", "avatars")

	cfg := Load()

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 12, cfg.BcryptCost)
	assert.Equal(t, 10*time.Minute, cfg.ConfirmEmailResendInterval)
	assert.False(t, cfg.MetricsEnabled)
	assert.True(t, cfg.StorageEnabled())
}

func TestEnvHelpers_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("TEST_INT", "many")
	t.Setenv("TEST_BOOL", "maybe")
	t.Setenv("TEST_DURATION", "soon")

	assert.Equal(t, 3, envInt("TEST_INT", 3))
	assert.True(t, envBool("TEST_BOOL", true))
	assert.Equal(t, time.Minute, envDuration("TEST_DURATION", time.Minute))
	assert.Equal(t, "fallback", envString("TEST_UNSET_STRING", "fallback"))
}

func TestSanitized_DropsSecrets(t *testing.T) {
	cfg := &Config{
		AppName:      "StudyOlle",
		JWTSecret:    "secret",
		ResendAPIKey: "re_123",
		S3SecretKey:  "s3-secret",
		S3Bucket:     "avatars",
		DBConnection: "postgres://user:pass@db/app",
	}

	public := cfg.Sanitized()

	assert.Equal(t, "StudyOlle", public.AppName)
	assert.Equal(t, "avatars", public.S3Bucket)
	assert.Empty(t, public.JWTSecret)
	assert.Empty(t, public.ResendAPIKey)
	assert.Empty(t, public.S3SecretKey)
	assert.Empty(t, public.DBConnection)
}
