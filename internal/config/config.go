// Package config provides configuration loading and validation for the API server.
// It uses koanf to merge environment variables with optional file overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds all configuration values for the API server.
type Config struct {
	// Server settings
	Port int    `koanf:"port"`
	Env  string `koanf:"env"`

	// Database
	DatabaseURL string `koanf:"database_url"`

	// Redis (following-set cache). Optional: empty disables caching.
	RedisURL string `koanf:"redis_url"`

	// JWT Authentication
	JWTSecret string `koanf:"jwt_secret"`

	// Change stream (websocket). Optional: empty disables live updates.
	ChangeStreamURL string `koanf:"change_stream_url"`

	// Feed settings
	PageSize         int `koanf:"page_size"`
	SearchLimit      int `koanf:"search_limit"`
	DebounceWindowMS int `koanf:"debounce_window_ms"`

	// Rate limiting (requests per second per viewer)
	RateLimitRPS   float64 `koanf:"rate_limit_rps"`
	RateLimitBurst int     `koanf:"rate_limit_burst"`

	// Tracing
	TracingEnabled bool   `koanf:"tracing_enabled"`
	OTLPEndpoint   string `koanf:"otlp_endpoint"`
}

// Configuration validation errors.
var (
	ErrMissingDatabaseURL = errors.New("DATABASE_URL is required")
	ErrMissingJWTSecret   = errors.New("JWT_SECRET is required")
	ErrInvalidPort        = errors.New("PORT must be a valid integer")
	ErrInvalidPageSize    = errors.New("PAGE_SIZE must be between 1 and 100")
	ErrInvalidRateLimit   = errors.New("RATE_LIMIT_RPS must be positive")
)

// Default values for non-secret configuration.
const (
	DefaultPort             = 8080
	DefaultEnv              = "development"
	DefaultPageSize         = 20
	DefaultSearchLimit      = 25
	DefaultDebounceWindowMS = 300
	DefaultRateLimitRPS     = 10.0
	DefaultRateLimitBurst   = 20
)

// Load reads configuration from environment variables and an optional config file.
// Environment variables take precedence over file values.
// Returns the loaded config and a slice of validation errors (empty if valid).
// If a config file path is provided and the file cannot be loaded, an error is returned.
func Load(configFilePath string) (*Config, []error) {
	k := koanf.New(".")
	var loadErrs []error

	// Load from YAML file first if provided (lower precedence)
	if configFilePath != "" {
		if err := k.Load(file.Provider(configFilePath), yaml.Parser()); err != nil {
			return nil, []error{fmt.Errorf("failed to load config file %s: %w", configFilePath, err)}
		}
	}

	// Try CREEL_PORT first, then PORT for platform compatibility
	port, portErr := getEnvIntOrDefaultMulti([]string{"CREEL_PORT", "PORT"}, k.Int("port"), DefaultPort)
	if portErr != nil {
		loadErrs = append(loadErrs, portErr)
	}

	pageSize, pageSizeErr := getEnvIntOrDefault("PAGE_SIZE", k.Int("page_size"), DefaultPageSize)
	if pageSizeErr != nil {
		loadErrs = append(loadErrs, pageSizeErr)
	}

	searchLimit, searchLimitErr := getEnvIntOrDefault("SEARCH_LIMIT", k.Int("search_limit"), DefaultSearchLimit)
	if searchLimitErr != nil {
		loadErrs = append(loadErrs, searchLimitErr)
	}

	debounceMS, debounceErr := getEnvIntOrDefault("DEBOUNCE_WINDOW_MS", k.Int("debounce_window_ms"), DefaultDebounceWindowMS)
	if debounceErr != nil {
		loadErrs = append(loadErrs, debounceErr)
	}

	rateRPS, rateErr := getEnvFloatOrDefault("RATE_LIMIT_RPS", k.Float64("rate_limit_rps"), DefaultRateLimitRPS)
	if rateErr != nil {
		loadErrs = append(loadErrs, rateErr)
	}

	rateBurst, burstErr := getEnvIntOrDefault("RATE_LIMIT_BURST", k.Int("rate_limit_burst"), DefaultRateLimitBurst)
	if burstErr != nil {
		loadErrs = append(loadErrs, burstErr)
	}

	tracingEnabled := k.Bool("tracing_enabled")
	if val := os.Getenv("TRACING_ENABLED"); val != "" {
		// Env var takes precedence over file config
		switch strings.ToLower(val) {
		case "true", "1", "yes", "on":
			tracingEnabled = true
		case "false", "0", "no", "off":
			tracingEnabled = false
		}
	}

	// Build config struct, with env vars taking precedence over file values
	cfg := &Config{
		Port:             port,
		Env:              getEnvOrDefaultMulti([]string{"CREEL_ENV", "ENV", "GO_ENV"}, k.String("env"), DefaultEnv),
		DatabaseURL:      getEnvOrKoanf("DATABASE_URL", k, "database_url"),
		RedisURL:         getEnvOrKoanf("REDIS_URL", k, "redis_url"),
		JWTSecret:        getEnvOrKoanf("JWT_SECRET", k, "jwt_secret"),
		ChangeStreamURL:  getEnvOrKoanf("CHANGE_STREAM_URL", k, "change_stream_url"),
		PageSize:         pageSize,
		SearchLimit:      searchLimit,
		DebounceWindowMS: debounceMS,
		RateLimitRPS:     rateRPS,
		RateLimitBurst:   rateBurst,
		TracingEnabled:   tracingEnabled,
		OTLPEndpoint:     getEnvOrKoanf("OTLP_ENDPOINT", k, "otlp_endpoint"),
	}

	// Validate and collect errors
	errs := cfg.Validate()
	errs = append(loadErrs, errs...)

	return cfg, errs
}

// getEnvOrKoanf returns the environment variable value if set, otherwise the koanf value.
func getEnvOrKoanf(envKey string, k *koanf.Koanf, koanfKey string) string {
	if val := os.Getenv(envKey); val != "" {
		return val
	}
	return k.String(koanfKey)
}

// getEnvOrDefaultMulti tries multiple environment variable keys in order.
// Returns the first non-empty value found, otherwise the koanf value, or default.
func getEnvOrDefaultMulti(envKeys []string, koanfVal string, defaultVal string) string {
	for _, key := range envKeys {
		if val := os.Getenv(key); val != "" {
			return val
		}
	}
	if koanfVal != "" {
		return koanfVal
	}
	return defaultVal
}

// getEnvIntOrDefault returns the environment variable as int if set, otherwise the koanf value, or default.
// Returns an error if the environment variable is set but cannot be parsed as an integer.
func getEnvIntOrDefault(envKey string, koanfVal int, defaultVal int) (int, error) {
	if val := os.Getenv(envKey); val != "" {
		i, err := strconv.Atoi(val)
		if err != nil {
			return 0, fmt.Errorf("%s must be a valid integer: %w", envKey, err)
		}
		return i, nil
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

// getEnvIntOrDefaultMulti tries multiple environment variable keys in order.
// Returns the first valid integer value found, otherwise the koanf value, or default.
// Returns an error if any environment variable is set but cannot be parsed as an integer.
func getEnvIntOrDefaultMulti(envKeys []string, koanfVal int, defaultVal int) (int, error) {
	for _, key := range envKeys {
		if val := os.Getenv(key); val != "" {
			i, err := strconv.Atoi(val)
			if err != nil {
				return 0, fmt.Errorf("%s must be a valid integer: %w", key, ErrInvalidPort)
			}
			return i, nil
		}
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

// getEnvFloatOrDefault returns the environment variable as float64 if set, otherwise the koanf value, or default.
// Returns an error if the environment variable is set but cannot be parsed as a float.
func getEnvFloatOrDefault(envKey string, koanfVal float64, defaultVal float64) (float64, error) {
	if val := os.Getenv(envKey); val != "" {
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return 0, fmt.Errorf("%s must be a valid float: %w", envKey, err)
		}
		return f, nil
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

// Validate checks that all required configuration values are present.
// Returns a slice of validation errors (empty if valid).
func (c *Config) Validate() []error {
	var errs []error

	if c.DatabaseURL == "" {
		errs = append(errs, ErrMissingDatabaseURL)
	}
	if c.JWTSecret == "" {
		errs = append(errs, ErrMissingJWTSecret)
	}
	if c.PageSize < 1 || c.PageSize > 100 {
		errs = append(errs, ErrInvalidPageSize)
	}
	if c.RateLimitRPS <= 0 {
		errs = append(errs, ErrInvalidRateLimit)
	}

	return errs
}

// DebounceWindow returns the debounce window as a duration.
func (c *Config) DebounceWindow() time.Duration {
	return time.Duration(c.DebounceWindowMS) * time.Millisecond
}

// IsProduction reports whether the server runs in a production environment.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// LogSummary returns a summary of the configuration suitable for logging.
// All secrets are masked to prevent accidental exposure.
func (c *Config) LogSummary() map[string]string {
	return map[string]string{
		"port":               fmt.Sprintf("%d", c.Port),
		"env":                c.Env,
		"database_url":       maskDatabaseURL(c.DatabaseURL),
		"redis_url":          maskDatabaseURL(c.RedisURL),
		"jwt_secret":         maskSecret(c.JWTSecret),
		"change_stream_url":  c.ChangeStreamURL,
		"page_size":          fmt.Sprintf("%d", c.PageSize),
		"search_limit":       fmt.Sprintf("%d", c.SearchLimit),
		"debounce_window_ms": fmt.Sprintf("%d", c.DebounceWindowMS),
		"rate_limit_rps":     fmt.Sprintf("%g", c.RateLimitRPS),
		"rate_limit_burst":   fmt.Sprintf("%d", c.RateLimitBurst),
		"tracing_enabled":    fmt.Sprintf("%t", c.TracingEnabled),
		"otlp_endpoint":      c.OTLPEndpoint,
	}
}

// maskSecret masks a secret value, showing only the first 4 characters followed by ****
// If the secret is shorter than 8 characters, it's fully masked.
func maskSecret(s string) string {
	if s == "" {
		return "<not set>"
	}
	if len(s) < 8 {
		return "****"
	}
	return s[:4] + "****"
}

// maskDatabaseURL masks the password in a connection URL.
func maskDatabaseURL(s string) string {
	if s == "" {
		return "<not set>"
	}

	schemeEnd := strings.Index(s, "://")
	if schemeEnd == -1 {
		return maskSecret(s)
	}

	rest := s[schemeEnd+3:]
	atIndex := strings.Index(rest, "@")
	if atIndex == -1 {
		return s // No credentials in URL
	}

	colonIndex := strings.Index(rest[:atIndex], ":")
	if colonIndex == -1 {
		return s // No password (only username)
	}

	scheme := s[:schemeEnd+3]
	user := rest[:colonIndex]
	hostAndPath := rest[atIndex:]

	return scheme + user + ":****" + hostAndPath
}
