// Package config loads and validates the service configuration from the
// environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Environment is the deployment environment.
type Environment string

const (
	EnvDevelopment Environment = "dev"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "prod"
	EnvTest        Environment = "test"
)

// ParseEnvironment maps an ENV value, including long aliases, to an Environment.
func ParseEnvironment(s string) (Environment, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "dev", "development":
		return EnvDevelopment, nil
	case "staging":
		return EnvStaging, nil
	case "prod", "production":
		return EnvProduction, nil
	case "test":
		return EnvTest, nil
	}
	return EnvDevelopment, fmt.Errorf("ENV must be one of: [dev staging prod test], got: %s", s)
}

func (e Environment) String() string {
	return string(e)
}

// UnmarshalText lets env.Parse decode ENV through ParseEnvironment.
func (e *Environment) UnmarshalText(text []byte) error {
	parsed, err := ParseEnvironment(string(text))
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}

// MemoryCache is the CACHE_DB_PATH value selecting in-memory snapshot storage.
const MemoryCache = "memory"

// Config holds all application configuration
type Config struct {
	Port              string        `env:"PORT" envDefault:"8000"`
	Address           string        `env:"ADDRESS" envDefault:"127.0.0.1"`
	Env               Environment   `env:"ENV" envDefault:"dev"`
	LogLevel          string        `env:"LOG_LEVEL" envDefault:"info"`
	LogDir            string        `env:"LOG_DIR" envDefault:"logs"`
	LogRetentionWeeks int           `env:"LOG_RETENTION_WEEKS" envDefault:"4"`       // Number of weeks to keep log files
	MaxLogFileSize    int64         `env:"MAX_LOG_FILE_SIZE" envDefault:"104857600"` // 100MB default
	MaxRequestBody    int64         `env:"MAX_REQUEST_BODY" envDefault:"1048576"`    // 1MB default
	DrugsFeedURL      string        `env:"DRUGS_FEED_URL"`
	ClassificationURL string        `env:"CLASSIFICATION_FEED_URL"`
	CacheDBPath       string        `env:"CACHE_DB_PATH" envDefault:"files/cache.db"` // "memory" keeps snapshots in memory
	CacheQuotaBytes   int64         `env:"CACHE_QUOTA_BYTES" envDefault:"268435456"`  // 256MB default, 0 disables
	FetchTimeout      time.Duration `env:"FETCH_TIMEOUT" envDefault:"5m"`
	RefreshCron       string        `env:"REFRESH_CRON" envDefault:"0 * * * *"`
	DataSource        string        `env:"DATA_SOURCE" envDefault:"rpl"`
}

// Load reads .env when present, then parses and validates the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env file: %w", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// validateConfig runs every field check in declaration order and reports the
// first failure prefixed with the variable name.
func validateConfig(cfg *Config) error {
	// Feeds are mandatory in production only; elsewhere a missing feed
	// surfaces as a dataset error.
	feedsRequired := cfg.Env == EnvProduction

	checks := []struct {
		name string
		err  error
	}{
		{"PORT", validatePort(cfg.Port)},
		{"ADDRESS", validateAddress(cfg.Address)},
		{"ENV", validateEnv(cfg.Env)},
		{"LOG_LEVEL", validateLogLevel(cfg.LogLevel)},
		{"MAX_REQUEST_BODY", validateSizeLimit(cfg.MaxRequestBody, "MAX_REQUEST_BODY")},
		{"LOG_RETENTION_WEEKS", validateLogRetentionWeeks(cfg.LogRetentionWeeks)},
		{"MAX_LOG_FILE_SIZE", validateMaxLogFileSize(cfg.MaxLogFileSize)},
		{"DRUGS_FEED_URL", validateFeedURL(cfg.DrugsFeedURL, feedsRequired)},
		{"CLASSIFICATION_FEED_URL", validateFeedURL(cfg.ClassificationURL, feedsRequired)},
		{"CACHE_QUOTA_BYTES", validateQuota(cfg.CacheQuotaBytes)},
		{"FETCH_TIMEOUT", validateFetchTimeout(cfg.FetchTimeout)},
		{"REFRESH_CRON", validateCron(cfg.RefreshCron)},
	}

	for _, c := range checks {
		if c.err != nil {
			return fmt.Errorf("invalid %s: %w", c.name, c.err)
		}
	}
	return nil
}

// validatePort accepts unprivileged TCP ports only.
func validatePort(port string) error {
	if port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	n, err := strconv.Atoi(port)
	switch {
	case err != nil:
		return fmt.Errorf("PORT must be a valid number: %w", err)
	case n < 1 || n > 65535:
		return fmt.Errorf("PORT must be between 1 and 65535")
	case n < 1024:
		return fmt.Errorf("PORT %d is privileged (less than 1024), use ports 1024-65535", n)
	}
	return nil
}

// validateAddress allows localhost and non-public IPs.
func validateAddress(address string) error {
	if address == "" {
		return fmt.Errorf("ADDRESS cannot be empty")
	}

	if address == "localhost" {
		return nil
	}

	ip := net.ParseIP(address)
	if ip == nil {
		return fmt.Errorf("ADDRESS must be a valid IP address or 'localhost', got: %s", address)
	}

	if !ip.IsLoopback() && !ip.IsPrivate() && !ip.IsUnspecified() {
		return fmt.Errorf("ADDRESS %s is a public IP, consider using private network ranges for security", address)
	}

	return nil
}

func validateEnv(e Environment) error {
	switch e {
	case EnvDevelopment, EnvStaging, EnvProduction, EnvTest:
		return nil
	case "":
		return fmt.Errorf("ENV cannot be empty")
	}
	return fmt.Errorf("ENV must be one of: [dev staging prod test], got: %s", e)
}

var validLogLevels = []string{"debug", "info", "warn", "error"}

func validateLogLevel(logLevel string) error {
	if logLevel == "" {
		return fmt.Errorf("LOG_LEVEL cannot be empty")
	}
	if !slices.Contains(validLogLevels, strings.ToLower(logLevel)) {
		return fmt.Errorf("LOG_LEVEL must be one of: %v, got: %s", validLogLevels, logLevel)
	}
	return nil
}

// validateSizeLimit validates size limit configuration values
func validateSizeLimit(size int64, configName string) error {
	if size <= 0 {
		return fmt.Errorf("%s must be positive, got: %d", configName, size)
	}

	if size > 100*1024*1024 { // 100MB
		return fmt.Errorf("%s is too large (max 100MB), got: %d bytes", configName, size)
	}

	return nil
}

// validateLogRetentionWeeks caps retention at one year.
func validateLogRetentionWeeks(weeks int) error {
	if weeks <= 0 {
		return fmt.Errorf("LOG_RETENTION_WEEKS must be positive, got: %d", weeks)
	}

	if weeks > 52 { // 1 year maximum
		return fmt.Errorf("LOG_RETENTION_WEEKS is too large (max 52 weeks), got: %d", weeks)
	}

	return nil
}

func validateMaxLogFileSize(size int64) error {
	if size < 1024*1024 {
		return fmt.Errorf("MAX_LOG_FILE_SIZE is too small (min 1MB), got: %d bytes", size)
	}

	if size > 1024*1024*1024 {
		return fmt.Errorf("MAX_LOG_FILE_SIZE is too large (max 1GB), got: %d bytes", size)
	}

	return nil
}

// validateFeedURL checks that a feed URL is an absolute http(s) or file URL
func validateFeedURL(raw string, required bool) error {
	if raw == "" {
		if required {
			return fmt.Errorf("feed URL is required in production")
		}
		return nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("feed URL is not valid: %w", err)
	}

	switch {
	case u.Scheme == "file" && u.Path != "":
	case (u.Scheme == "http" || u.Scheme == "https") && u.Host != "":
	default:
		return fmt.Errorf("feed URL must be an absolute http(s) or file URL, got: %s", raw)
	}

	return nil
}

func validateQuota(quota int64) error {
	if quota < 0 {
		return fmt.Errorf("CACHE_QUOTA_BYTES must not be negative, got: %d", quota)
	}
	return nil
}

// validateFetchTimeout keeps the fetch hardening timeout within sane bounds
func validateFetchTimeout(d time.Duration) error {
	if d < time.Second {
		return fmt.Errorf("FETCH_TIMEOUT must be at least 1s, got: %s", d)
	}

	if d > time.Hour {
		return fmt.Errorf("FETCH_TIMEOUT is too large (max 1h), got: %s", d)
	}

	return nil
}

// validateCron checks the field count of a standard five-field cron expression
func validateCron(expr string) error {
	if len(strings.Fields(expr)) != 5 {
		return fmt.Errorf("cron expression must have 5 fields, got: %q", expr)
	}
	return nil
}
