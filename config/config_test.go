package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           "8081",
			AllowedOrigins: []string{"*"},
		},
		RateLimit: RateLimitConfig{
			MaxSubmissions: 5,
			Window:         time.Hour,
			Store:          RateLimitStoreMemory,
		},
	}
}

// chdirTemp keeps a developer's .env out of Load tests
func chdirTemp(t *testing.T) {
	t.Helper()
	originalDir, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(originalDir) })
}

func TestConfig_IsDevelopment(t *testing.T) {
	tests := []struct {
		name     string
		config   *Config
		expected bool
	}{
		{
			name:     "development environment",
			config:   &Config{Server: ServerConfig{AppEnv: "development"}},
			expected: true,
		},
		{
			name:     "debug gin mode",
			config:   &Config{Server: ServerConfig{GinMode: "debug"}},
			expected: true,
		},
		{
			name:     "release mode",
			config:   &Config{Server: ServerConfig{GinMode: "release", AppEnv: "production"}},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.config.IsDevelopment())
		})
	}
}

func TestConfig_IsProduction(t *testing.T) {
	assert.True(t, (&Config{Server: ServerConfig{AppEnv: "production"}}).IsProduction())
	assert.False(t, (&Config{Server: ServerConfig{AppEnv: "staging"}}).IsProduction())
}

func TestConfig_AllowsAllOrigins(t *testing.T) {
	assert.True(t, validConfig().AllowsAllOrigins())

	cfg := validConfig()
	cfg.Server.AllowedOrigins = []string{"https://example.com"}
	assert.False(t, cfg.AllowsAllOrigins())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(c *Config)
		errorMsg string
	}{
		{
			name:   "valid memory store config",
			mutate: func(c *Config) {},
		},
		{
			name: "valid redis store config",
			mutate: func(c *Config) {
				c.RateLimit.Store = RateLimitStoreRedis
				c.Redis.URL = "redis://localhost:6379/0"
			},
		},
		{
			name: "missing secrets are allowed",
			mutate: func(c *Config) {
				c.Turnstile.SecretKey = ""
				c.Resend.APIKey = ""
			},
		},
		{
			name:     "missing port",
			mutate:   func(c *Config) { c.Server.Port = "" },
			errorMsg: "PORT is required",
		},
		{
			name:     "no origins",
			mutate:   func(c *Config) { c.Server.AllowedOrigins = nil },
			errorMsg: "ALLOWED_CORS_ORIGINS is required",
		},
		{
			name:     "zero limit",
			mutate:   func(c *Config) { c.RateLimit.MaxSubmissions = 0 },
			errorMsg: "CONTACT_RATE_LIMIT_MAX must be positive",
		},
		{
			name:     "zero window",
			mutate:   func(c *Config) { c.RateLimit.Window = 0 },
			errorMsg: "CONTACT_RATE_LIMIT_WINDOW must be positive",
		},
		{
			name:     "redis without url",
			mutate:   func(c *Config) { c.RateLimit.Store = RateLimitStoreRedis },
			errorMsg: "REDIS_URL is required",
		},
		{
			name:     "unknown store",
			mutate:   func(c *Config) { c.RateLimit.Store = "memcached" },
			errorMsg: "unsupported RATE_LIMIT_STORE",
		},
		{
			name:     "profiling without endpoint",
			mutate:   func(c *Config) { c.Profiling.Enabled = true },
			errorMsg: "O11Y_PROFILING_ENDPOINT is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.errorMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoad_WithDefaults(t *testing.T) {
	chdirTemp(t)
	for _, key := range []string{
		"PORT", "GIN_MODE", "APP_ENV", "ALLOWED_CORS_ORIGINS", "LOG_LEVEL",
		"CONTACT_FROM", "CONTACT_SUBJECT", "CONTACT_RATE_LIMIT_MAX",
		"CONTACT_RATE_LIMIT_WINDOW", "RATE_LIMIT_STORE", "DIRECTORY_CACHE_TTL",
		"TURNSTILE_SECRET_KEY", "RESEND_API_KEY", "O11Y_PROFILING_ENABLED",
	} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8081", cfg.Server.Port)
	assert.Equal(t, "release", cfg.Server.GinMode)
	assert.Equal(t, "production", cfg.Server.AppEnv)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "Contact Form <onboarding@resend.dev>", cfg.Contact.From)
	assert.Equal(t, "PERSONAL WEBSITE CONTACT", cfg.Contact.Subject)
	assert.Equal(t, 5, cfg.RateLimit.MaxSubmissions)
	assert.Equal(t, time.Hour, cfg.RateLimit.Window)
	assert.Equal(t, RateLimitStoreMemory, cfg.RateLimit.Store)
	assert.Equal(t, 600, cfg.Directory.CacheTTLSeconds)
	assert.Empty(t, cfg.Turnstile.SecretKey)
	assert.Empty(t, cfg.Resend.APIKey)
}

func TestLoad_WithEnvironmentVariables(t *testing.T) {
	chdirTemp(t)
	t.Setenv("PORT", "9000")
	t.Setenv("GIN_MODE", "debug")
	t.Setenv("APP_ENV", "development")
	t.Setenv("ALLOWED_CORS_ORIGINS", "https://example.com, https://www.example.com")
	t.Setenv("TURNSTILE_SECRET_KEY", " turnstile-secret ")
	t.Setenv("RESEND_API_KEY", "re_123")
	t.Setenv("CONTACT_TO", "owner@example.com")
	t.Setenv("CONTACT_RATE_LIMIT_MAX", "10")
	t.Setenv("CONTACT_RATE_LIMIT_WINDOW", "30m")
	t.Setenv("RATE_LIMIT_STORE", "Redis")
	t.Setenv("REDIS_URL", "redis://cache:6379/1")
	t.Setenv("EVENTS_SHEET_ID", "events-sheet")
	t.Setenv("VCS_SHEET_ID", "vcs-sheet")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, []string{"https://example.com", "https://www.example.com"}, cfg.Server.AllowedOrigins)
	assert.False(t, cfg.AllowsAllOrigins())
	assert.Equal(t, "turnstile-secret", cfg.Turnstile.SecretKey)
	assert.Equal(t, "re_123", cfg.Resend.APIKey)
	assert.Equal(t, "owner@example.com", cfg.Contact.To)
	assert.Equal(t, 10, cfg.RateLimit.MaxSubmissions)
	assert.Equal(t, 30*time.Minute, cfg.RateLimit.Window)
	assert.Equal(t, RateLimitStoreRedis, cfg.RateLimit.Store)
	assert.Equal(t, "redis://cache:6379/1", cfg.Redis.URL)
	assert.Equal(t, "events-sheet", cfg.Directory.EventsSheetID)
	assert.Equal(t, "vcs-sheet", cfg.Directory.VCsSheetID)
}

func TestLoad_ValidationFailure(t *testing.T) {
	chdirTemp(t)
	t.Setenv("RATE_LIMIT_STORE", "redis")
	t.Setenv("REDIS_URL", "")

	cfg, err := Load()

	assert.Error(t, err)
	assert.Nil(t, cfg)
}
