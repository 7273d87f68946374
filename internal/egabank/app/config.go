package app

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

type Config struct {
	APIURL string `yaml:"api_url"` // Base URL of the bank API, /api included (default: http://localhost:8080/api)

	DatabaseFile string `yaml:"database_file"` // SQLite file holding the sealed credentials (default: ./egabank.db)
	KeyFile      string `yaml:"key_file"`      // Key material for sealing, created on first use (default: ./egabank.key)
	Passphrase   string `yaml:"-"`             // Optional: derive the sealing key from this instead of KeyFile
	Ephemeral    bool   `yaml:"ephemeral"`     // Keep credentials in memory only

	ProactiveRefresh bool          `yaml:"proactive_refresh"` // Refresh a token about to expire before sending (default: false)
	HTTPTimeout      time.Duration `yaml:"http_timeout"`      // Per-call timeout, replay included (default: 30s)
	DashboardTimeout time.Duration `yaml:"dashboard_timeout"` // Per-call timeout of the dashboard fan-out (default: 10s)
	RateLimitRPS     int           `yaml:"rate_limit_rps"`    // Client-side pacing, 0 disables (default: 20)
	RateLimitBurst   int           `yaml:"rate_limit_burst"`  // (default: 10)

	HousekeepingInterval time.Duration `yaml:"housekeeping_interval"` // Cache resync period in the shell (default: 5m)

	Env       string `yaml:"env"`        // Environment (dev, prod) (default: prod)
	LogLevel  string `yaml:"log_level"`  // Log level (debug, info, warn, error) (default: warn)
	LogFormat string `yaml:"log_format"` // Log format (json, text); empty picks text on a terminal
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		APIURL:               "http://localhost:8080/api",
		DatabaseFile:         "egabank.db",
		KeyFile:              "egabank.key",
		HTTPTimeout:          30 * time.Second,
		DashboardTimeout:     10 * time.Second,
		RateLimitRPS:         20,
		RateLimitBurst:       10,
		HousekeepingInterval: 5 * time.Minute,
		Env:                  "prod",
		LogLevel:             "warn",
	}
}

// LoadConfig builds the configuration from defaults, then the YAML file
// named by EGABANK_CONFIG, then environment variables. A .env file in the
// working directory is read first and never overrides the real
// environment.
func LoadConfig() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg, err := LoadYAMLConfig(os.Getenv("EGABANK_CONFIG"), DefaultConfig())
	if err != nil {
		return Config{}, err
	}

	cfg.APIURL = getEnvOrDefault("EGABANK_API_URL", cfg.APIURL)
	cfg.DatabaseFile = getEnvOrDefault("EGABANK_DATABASE_FILE", cfg.DatabaseFile)
	cfg.KeyFile = getEnvOrDefault("EGABANK_KEY_FILE", cfg.KeyFile)
	cfg.Passphrase = getEnvOrDefault("EGABANK_PASSPHRASE", cfg.Passphrase)
	cfg.Ephemeral = getEnvBoolOrDefault("EGABANK_EPHEMERAL", cfg.Ephemeral)
	cfg.ProactiveRefresh = getEnvBoolOrDefault("EGABANK_PROACTIVE_REFRESH", cfg.ProactiveRefresh)
	cfg.HTTPTimeout = getEnvDurationOrDefault("EGABANK_HTTP_TIMEOUT", cfg.HTTPTimeout)
	cfg.DashboardTimeout = getEnvDurationOrDefault("EGABANK_DASHBOARD_TIMEOUT", cfg.DashboardTimeout)
	cfg.RateLimitRPS = getEnvIntOrDefault("EGABANK_RATE_LIMIT_RPS", cfg.RateLimitRPS)
	cfg.RateLimitBurst = getEnvIntOrDefault("EGABANK_RATE_LIMIT_BURST", cfg.RateLimitBurst)
	cfg.HousekeepingInterval = getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", cfg.HousekeepingInterval)
	cfg.Env = getEnvOrDefault("ENV", cfg.Env)
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnvOrDefault("LOG_FORMAT", cfg.LogFormat)

	return cfg, nil
}

// LoadYAMLConfig overlays the file at path on defaults. An empty path or a
// missing file yields defaults unchanged.
func LoadYAMLConfig(path string, defaults Config) (Config, error) {
	cfg := defaults
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// BindFlags registers the global flags on fs. Flags the user sets win over
// every other source.
func (cfg *Config) BindFlags(fs *pflag.FlagSet) {
	fs.StringVar(&cfg.APIURL, "api-url", cfg.APIURL, "base URL of the bank API")
	fs.StringVar(&cfg.DatabaseFile, "db", cfg.DatabaseFile, "credential database file")
	fs.StringVar(&cfg.KeyFile, "key-file", cfg.KeyFile, "sealing key file")
	fs.BoolVar(&cfg.Ephemeral, "ephemeral", cfg.Ephemeral, "keep credentials in memory only")
	fs.BoolVar(&cfg.ProactiveRefresh, "proactive-refresh", cfg.ProactiveRefresh, "refresh tokens before they expire")
	fs.DurationVar(&cfg.HTTPTimeout, "timeout", cfg.HTTPTimeout, "per-call timeout")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "json or text")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}

	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Bare integers are seconds
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}

	return defaultValue
}
