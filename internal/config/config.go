// Package config loads the surveypulse runtime configuration from the
// environment (SURVEYPULSE_ prefix) and validates it.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
)

const (
	// EnvironmentProduction is the production environment identifier
	EnvironmentProduction = "production"

	envPrefix = "SURVEYPULSE"

	defaultJWTSecret    = "super-secret-key-change-in-production"
	defaultHostPassword = "password123"
)

// Config holds the complete application configuration.
type Config struct {
	App        AppConfig        `envconfig:"APP"`
	Server     ServerConfig     `envconfig:"SERVER"`
	Mongo      MongoConfig      `envconfig:"MONGO"`
	Redis      RedisConfig      `envconfig:"REDIS"`
	Auth       AuthConfig       `envconfig:"AUTH"`
	Postback   PostbackConfig   `envconfig:"POSTBACK"`
	Evaluation EvaluationConfig `envconfig:"EVALUATION"`
}

// AppConfig contains core application settings.
type AppConfig struct {
	Name            string        `envconfig:"NAME" default:"surveypulse"`
	Version         string        `envconfig:"VERSION" default:"dev"`
	Environment     string        `envconfig:"ENV" default:"development" validate:"oneof=development staging production"`
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
	LogFormat       string        `envconfig:"LOG_FORMAT" default:"text" validate:"oneof=json text"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8080"`
	// PublicBaseURL is used to build the inbound postback URLs handed to partners.
	PublicBaseURL  string   `envconfig:"PUBLIC_BASE_URL" default:"http://localhost:8080"`
	AllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
	AllowedMethods string   `envconfig:"CORS_ALLOWED_METHODS" default:"GET, POST, PUT, DELETE, OPTIONS"`
	AllowedHeaders string   `envconfig:"CORS_ALLOWED_HEADERS" default:"Content-Type, Authorization"`
}

// AuthConfig holds the admin (host) credentials and token secret.
type AuthConfig struct {
	HostUsername string        `envconfig:"HOST_USERNAME" default:"admin"`
	HostPassword string        `envconfig:"HOST_PASSWORD" default:"password123"`
	JWTSecret    string        `envconfig:"JWT_SECRET" default:"super-secret-key-change-in-production"`
	TokenTTL     time.Duration `envconfig:"TOKEN_TTL" default:"24h"`
}

// EvaluationConfig controls criteria-set resolution.
type EvaluationConfig struct {
	DefaultCriteriaSetName string        `envconfig:"DEFAULT_CRITERIA_SET" default:"default"`
	CacheCapacity          int           `envconfig:"CACHE_CAPACITY" default:"1000" validate:"min=1"`
	CacheTTL               time.Duration `envconfig:"CACHE_TTL" default:"1m"`
	// MergeEnabled seeds the redirect kill switch until an admin overrides it.
	MergeEnabled bool `envconfig:"MERGE_ENABLED" default:"true"`
}

// Load reads configuration from environment variables with the SURVEYPULSE prefix.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := envconfig.Process(envPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate performs struct-tag validation followed by the hand-written checks.
func (c *Config) Validate() error {
	validate := validator.New()

	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("validation error: %w", err)
	}

	if err := validatePort(c.Server.Port, "server"); err != nil {
		return err
	}

	if _, err := parseAndValidateURL(c.Server.PublicBaseURL, []string{"http", "https"}); err != nil {
		return fmt.Errorf("invalid public base URL: %w", err)
	}

	if err := c.Mongo.Validate(); err != nil {
		return err
	}

	if err := c.Redis.Validate(); err != nil {
		return err
	}

	if err := c.Postback.Validate(); err != nil {
		return err
	}

	if c.App.Environment == EnvironmentProduction {
		if len(c.Auth.JWTSecret) < 32 || c.Auth.JWTSecret == defaultJWTSecret {
			return fmt.Errorf("jwt secret must be a non-default value of at least 32 characters in production")
		}
		if c.Auth.HostPassword == defaultHostPassword {
			return fmt.Errorf("default host password is not allowed in production")
		}
	}

	return nil
}

// LogConfig logs the current configuration (without sensitive data).
func (c *Config) LogConfig(log *slog.Logger) {
	log.Info("configuration loaded",
		slog.String("app_name", c.App.Name),
		slog.String("version", c.App.Version),
		slog.String("environment", c.App.Environment),
		slog.String("log_level", c.App.LogLevel),
		slog.String("log_format", c.App.LogFormat),
		slog.String("port", c.Server.Port),
		slog.String("public_base_url", c.Server.PublicBaseURL),
		slog.String("mongo_database", c.Mongo.Database),
		slog.String("redis_addr", c.Redis.Address()),
		slog.Duration("postback_timeout", c.Postback.Timeout),
		slog.Int("postback_max_concurrency", c.Postback.MaxConcurrency),
		slog.Bool("postback_async", c.Postback.AsyncDispatch),
		slog.String("default_criteria_set", c.Evaluation.DefaultCriteriaSetName),
	)
}

// validatePort checks if port is valid (1-65535)
func validatePort(port, context string) error {
	if port == "" {
		return fmt.Errorf("%s port cannot be empty", context)
	}
	portNum, err := strconv.Atoi(port)
	if err != nil {
		return fmt.Errorf("%s port must be a number: %w", context, err)
	}
	if portNum < 1 || portNum > 65535 {
		return fmt.Errorf("%s port must be between 1 and 65535, got %d", context, portNum)
	}
	return nil
}

// validateNoWhitespace checks if a value is not empty and contains no whitespace
func validateNoWhitespace(value, fieldName string) error {
	if value == "" {
		return fmt.Errorf("%s cannot be empty", fieldName)
	}
	if strings.TrimSpace(value) != value {
		return fmt.Errorf("%s cannot contain whitespace", fieldName)
	}
	return nil
}

// parseAndValidateURL is a helper for parsing URLs with scheme validation
func parseAndValidateURL(rawURL string, allowedSchemes []string) (*url.URL, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}

	if !slices.Contains(allowedSchemes, parsed.Scheme) {
		return nil, fmt.Errorf("invalid scheme '%s', must be one of: %v", parsed.Scheme, allowedSchemes)
	}

	if parsed.Host == "" {
		return nil, fmt.Errorf("host is required in URL")
	}

	return parsed, nil
}
