package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setEnv(t *testing.T, vars map[string]string) {
	t.Helper()
	for k, v := range vars {
		t.Setenv(k, v)
	}
}

func TestLoad_Defaults(t *testing.T) {
	// Act
	cfg, err := Load()

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "surveypulse", cfg.App.Name)
	assert.Equal(t, "development", cfg.App.Environment)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "surveypulse", cfg.Mongo.Database)
	assert.Equal(t, 10*time.Second, cfg.Postback.Timeout)
	assert.Equal(t, 4, cfg.Postback.MaxConcurrency)
	assert.True(t, cfg.Postback.AsyncDispatch)
	assert.Equal(t, "default", cfg.Evaluation.DefaultCriteriaSetName)
	assert.True(t, cfg.Evaluation.MergeEnabled)
}

func TestLoad_Overrides(t *testing.T) {
	setEnv(t, map[string]string{
		"SURVEYPULSE_SERVER_PORT":                 "9090",
		"SURVEYPULSE_SERVER_CORS_ALLOWED_ORIGINS": "https://a.example,https://b.example",
		"SURVEYPULSE_POSTBACK_TIMEOUT":            "15s",
		"SURVEYPULSE_POSTBACK_MAX_CONCURRENCY":    "8",
		"SURVEYPULSE_REDIS_ADDR":                  "redis://cache:6380",
		"SURVEYPULSE_EVALUATION_MERGE_ENABLED":    "false",
	})

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 15*time.Second, cfg.Postback.Timeout)
	assert.Equal(t, 8, cfg.Postback.MaxConcurrency)
	assert.Equal(t, "cache:6380", cfg.Redis.Address())
	assert.False(t, cfg.Evaluation.MergeEnabled)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		env    map[string]string
		errMsg string
	}{
		{"bad port", map[string]string{"SURVEYPULSE_SERVER_PORT": "99999"}, "server port must be between"},
		{"bad environment", map[string]string{"SURVEYPULSE_APP_ENV": "qa"}, "validation error"},
		{"bad public url", map[string]string{"SURVEYPULSE_SERVER_PUBLIC_BASE_URL": "ftp://x"}, "invalid public base URL"},
		{"bad mongo uri", map[string]string{"SURVEYPULSE_MONGO_URI": "postgres://db"}, "invalid mongo URI"},
		{"bad redis addr", map[string]string{"SURVEYPULSE_REDIS_ADDR": "cache"}, "redis address must be host:port"},
		{"zero concurrency", map[string]string{"SURVEYPULSE_POSTBACK_MAX_CONCURRENCY": "0"}, "validation error"},
		{"dispatch shorter than call", map[string]string{"SURVEYPULSE_POSTBACK_DISPATCH_TIMEOUT": "1s"}, "must not be shorter"},
		{"production default secret", map[string]string{"SURVEYPULSE_APP_ENV": "production"}, "jwt secret must be a non-default value"},
		{"production default password", map[string]string{
			"SURVEYPULSE_APP_ENV":         "production",
			"SURVEYPULSE_AUTH_JWT_SECRET": "0123456789abcdef0123456789abcdef",
		}, "default host password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setEnv(t, tt.env)

			_, err := Load()

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestValidatePort(t *testing.T) {
	t.Parallel()

	assert.NoError(t, validatePort("1", "x"))
	assert.NoError(t, validatePort("65535", "x"))
	assert.Error(t, validatePort("", "x"))
	assert.Error(t, validatePort("abc", "x"))
	assert.Error(t, validatePort("0", "x"))
}
