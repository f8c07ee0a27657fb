package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
//
//nolint:govet // Field alignment optimization would reduce readability
type Config struct {
	Server        ServerConfig
	Turnstile     TurnstileConfig
	Resend        ResendConfig
	Contact       ContactConfig
	RateLimit     RateLimitConfig
	Redis         RedisConfig
	Directory     DirectoryConfig
	Logging       LoggingConfig
	Observability ObservabilityConfig
	Profiling     ProfilingConfig
}

type ServerConfig struct {
	Port           string
	GinMode        string
	AppEnv         string
	AllowedOrigins []string
}

type TurnstileConfig struct {
	SecretKey string
	VerifyURL string
}

type ResendConfig struct {
	APIKey string
	APIURL string
}

type ContactConfig struct {
	From    string
	To      string
	Subject string
}

type RateLimitConfig struct {
	MaxSubmissions int
	Window         time.Duration
	Store          string // memory | redis
}

type RedisConfig struct {
	URL string
}

type DirectoryConfig struct {
	SheetsBaseURL   string
	EventsSheetID   string
	VCsSheetID      string
	CacheTTLSeconds int
}

type LoggingConfig struct {
	Level string
	Dir   string
}

type ObservabilityConfig struct {
	AlloyEndpoint     string
	ServiceName       string
	ServiceNamespace  string
	ServiceVersion    string
	ServiceInstanceID string
}

type ProfilingConfig struct {
	Enabled               bool
	Endpoint              string
	AppName               string
	SampleTypes           string
	UploadIntervalSeconds int
}

const (
	RateLimitStoreMemory = "memory"
	RateLimitStoreRedis  = "redis"
)

// Load reads configuration from environment variables
func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("PORT", "8081")
	v.SetDefault("GIN_MODE", "release")
	v.SetDefault("APP_ENV", "production")
	v.SetDefault("ALLOWED_CORS_ORIGINS", "*")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_DIR", "")
	v.SetDefault("TURNSTILE_VERIFY_URL", "https://challenges.cloudflare.com/turnstile/v0/siteverify")
	v.SetDefault("RESEND_API_URL", "https://api.resend.com/emails")
	v.SetDefault("CONTACT_FROM", "Contact Form <onboarding@resend.dev>")
	v.SetDefault("CONTACT_TO", "j.miseikis@gmail.com")
	v.SetDefault("CONTACT_SUBJECT", "PERSONAL WEBSITE CONTACT")
	v.SetDefault("CONTACT_RATE_LIMIT_MAX", 5)
	v.SetDefault("CONTACT_RATE_LIMIT_WINDOW", "1h")
	v.SetDefault("RATE_LIMIT_STORE", RateLimitStoreMemory)
	v.SetDefault("SHEETS_BASE_URL", "https://docs.google.com")
	v.SetDefault("DIRECTORY_CACHE_TTL", 600) // 10 minutes in seconds
	v.SetDefault("O11Y_EXPORTER_ENDPOINT", "")
	v.SetDefault("O11Y_BE_SERVICE_NAME", "site-api")
	v.SetDefault("O11Y_SERVICE_NAMESPACE", "site")
	v.SetDefault("O11Y_BE_SERVICE_VERSION", "1.0.0")
	v.SetDefault("O11Y_PROFILING_ENABLED", false)
	v.SetDefault("O11Y_PROFILING_APP_NAME", "site-api")
	v.SetDefault("O11Y_PROFILING_SAMPLE_TYPES", "cpu,alloc_space,alloc_objects,goroutines")
	v.SetDefault("O11Y_PROFILING_UPLOAD_INTERVAL_SECONDS", 15)

	// Automatically read environment variables
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read from .env file if it exists
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("..")
	_ = v.ReadInConfig() //nolint:errcheck // Ignore error if .env file doesn't exist

	cfg := &Config{
		Server: ServerConfig{
			Port:           v.GetString("PORT"),
			GinMode:        v.GetString("GIN_MODE"),
			AppEnv:         v.GetString("APP_ENV"),
			AllowedOrigins: splitList(v.GetString("ALLOWED_CORS_ORIGINS")),
		},
		Turnstile: TurnstileConfig{
			SecretKey: strings.TrimSpace(v.GetString("TURNSTILE_SECRET_KEY")),
			VerifyURL: v.GetString("TURNSTILE_VERIFY_URL"),
		},
		Resend: ResendConfig{
			APIKey: strings.TrimSpace(v.GetString("RESEND_API_KEY")),
			APIURL: v.GetString("RESEND_API_URL"),
		},
		Contact: ContactConfig{
			From:    v.GetString("CONTACT_FROM"),
			To:      v.GetString("CONTACT_TO"),
			Subject: v.GetString("CONTACT_SUBJECT"),
		},
		RateLimit: RateLimitConfig{
			MaxSubmissions: v.GetInt("CONTACT_RATE_LIMIT_MAX"),
			Window:         v.GetDuration("CONTACT_RATE_LIMIT_WINDOW"),
			Store:          strings.ToLower(strings.TrimSpace(v.GetString("RATE_LIMIT_STORE"))),
		},
		Redis: RedisConfig{
			URL: v.GetString("REDIS_URL"),
		},
		Directory: DirectoryConfig{
			SheetsBaseURL:   v.GetString("SHEETS_BASE_URL"),
			EventsSheetID:   v.GetString("EVENTS_SHEET_ID"),
			VCsSheetID:      v.GetString("VCS_SHEET_ID"),
			CacheTTLSeconds: v.GetInt("DIRECTORY_CACHE_TTL"),
		},
		Logging: LoggingConfig{
			Level: v.GetString("LOG_LEVEL"),
			Dir:   v.GetString("LOG_DIR"),
		},
		Observability: ObservabilityConfig{
			AlloyEndpoint:     v.GetString("O11Y_EXPORTER_ENDPOINT"),
			ServiceName:       v.GetString("O11Y_BE_SERVICE_NAME"),
			ServiceNamespace:  v.GetString("O11Y_SERVICE_NAMESPACE"),
			ServiceVersion:    v.GetString("O11Y_BE_SERVICE_VERSION"),
			ServiceInstanceID: v.GetString("SERVICE_INSTANCE_ID"),
		},
		Profiling: ProfilingConfig{
			Enabled:               v.GetBool("O11Y_PROFILING_ENABLED"),
			Endpoint:              v.GetString("O11Y_PROFILING_ENDPOINT"),
			AppName:               v.GetString("O11Y_PROFILING_APP_NAME"),
			SampleTypes:           v.GetString("O11Y_PROFILING_SAMPLE_TYPES"),
			UploadIntervalSeconds: v.GetInt("O11Y_PROFILING_UPLOAD_INTERVAL_SECONDS"),
		},
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration values are set.
// Missing Turnstile and Resend credentials are not errors: the contact
// endpoint fails closed at request time instead.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	if len(c.Server.AllowedOrigins) == 0 {
		return fmt.Errorf("ALLOWED_CORS_ORIGINS is required")
	}

	if c.RateLimit.MaxSubmissions <= 0 {
		return fmt.Errorf("CONTACT_RATE_LIMIT_MAX must be positive")
	}
	if c.RateLimit.Window <= 0 {
		return fmt.Errorf("CONTACT_RATE_LIMIT_WINDOW must be positive")
	}

	switch c.RateLimit.Store {
	case RateLimitStoreMemory:
	case RateLimitStoreRedis:
		if c.Redis.URL == "" {
			return fmt.Errorf("REDIS_URL is required when RATE_LIMIT_STORE=redis")
		}
	default:
		return fmt.Errorf("unsupported RATE_LIMIT_STORE value: %q", c.RateLimit.Store)
	}

	if c.Profiling.Enabled && c.Profiling.Endpoint == "" {
		return fmt.Errorf("O11Y_PROFILING_ENDPOINT is required when profiling is enabled")
	}

	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Server.AppEnv == "development" || c.Server.GinMode == "debug"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Server.AppEnv == "production"
}

// AllowsAllOrigins reports whether CORS should answer with a wildcard origin
func (c *Config) AllowsAllOrigins() bool {
	for _, origin := range c.Server.AllowedOrigins {
		if origin == "*" {
			return true
		}
	}
	return false
}

func splitList(value string) []string {
	items := []string{}
	for _, item := range strings.Split(value, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			items = append(items, item)
		}
	}
	return items
}
