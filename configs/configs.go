package configs

import (
	"fmt"
	"net/url"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

const envPrefix = "SETTINGS_CLIENT_"

type Config struct {
	// -- Settings endpoint --

	// Base URL of the web UI API, the settings collection lives at
	// {ApiBaseURL}/settings/.
	ApiBaseURL string `env:"API_BASE_URL,notEmpty"`
	// Bearer token used by the CLI. Library callers pass tokens explicitly.
	Token string `env:"TOKEN"`

	// -- HTTP client --

	// Per request timeout, 0 disables it.
	ClientRequestTimeout time.Duration `env:"CLIENT_REQUEST_TIMEOUT" envDefault:"0"`
	// Maximum outgoing requests per second, 0 means unlimited.
	ClientMaxRequestRate int `env:"CLIENT_MAX_REQUEST_RATE" envDefault:"0"`

	// -- Bootstrap --

	BootstrapMaxAttempts int           `env:"BOOTSTRAP_MAX_ATTEMPTS" envDefault:"1"`
	BootstrapMinBackoff  time.Duration `env:"BOOTSTRAP_MIN_BACKOFF" envDefault:"100ms"`
	BootstrapMaxBackoff  time.Duration `env:"BOOTSTRAP_MAX_BACKOFF" envDefault:"10s"`

	// -- Snapshot cache --

	// What to do with the cached snapshot after a successful update:
	// none, invalidate or refresh.
	CachePolicy string `env:"CACHE_POLICY" envDefault:"refresh"`
	// Where snapshots are stored: local, shared (SQL database) or redis.
	CacheStoreType string `env:"CACHE_STORE_TYPE" envDefault:"shared"`
	CacheRedisURL  string `env:"CACHE_REDIS_URL"`

	// -- Database --

	DatabaseDSN  string `env:"DATABASE_DSN" envDefault:"settings.db"`
	DatabaseType string `env:"DATABASE_TYPE" envDefault:"sqlite"`

	// -- Logging --

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

type Options struct {
	EnvFilePath string
}

// Parse parses environment variables into a valid Config.
func Parse() (*Config, error) {
	return ParseConfig(&Options{})
}

// ParseConfig parses environment variables and flags to a valid Config.
// Values from an optional env file never override variables already set.
func ParseConfig(opt *Options) (*Config, error) {
	if opt != nil && opt.EnvFilePath != "" {
		if err := godotenv.Load(opt.EnvFilePath); err != nil {
			return nil, fmt.Errorf("error while loading env file %q: %w", opt.EnvFilePath, err)
		}
	}

	cfg := Config{}

	if err := env.Parse(&cfg, env.Options{Prefix: envPrefix}); err != nil {
		return nil, err
	}

	if _, err := url.ParseRequestURI(cfg.ApiBaseURL); err != nil {
		return nil, fmt.Errorf("invalid api base url %q: %w", cfg.ApiBaseURL, err)
	}

	if cfg.BootstrapMaxAttempts < 1 {
		cfg.BootstrapMaxAttempts = 1
	}

	return &cfg, nil
}

// ConfigureLogger sets the level and format of the global logrus logger.
func ConfigureLogger(logLevel string) {
	log.SetFormatter(&log.JSONFormatter{})

	lvl, err := log.ParseLevel(logLevel)
	if err != nil {
		log.Warnf("invalid log level %q, using %q", logLevel, log.InfoLevel)
		lvl = log.InfoLevel
	}

	log.SetLevel(lvl)
}
