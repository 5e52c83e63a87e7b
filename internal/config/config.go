// Package config loads the service configuration from a YAML file with a
// small set of environment overrides for container deployments.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// PostgresConfig describes the connection to the API token store. Host may be
// a full postgres:// DSN, in which case the remaining fields are ignored.
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

// Config is the full service configuration. It is constructed once at startup
// and passed explicitly into each component; nothing reads it as ambient
// global state.
type Config struct {
	Server struct {
		Host               string `yaml:"host"`
		Port               string `yaml:"port"`
		RequestTimeoutSecs int    `yaml:"request_timeout_secs"`
		MaxUploadBytes     int    `yaml:"max_upload_bytes"`
	} `yaml:"server"`

	Gotenberg struct {
		URL         string `yaml:"url"`
		TimeoutSecs int    `yaml:"timeout_secs"`
		HealthPath  string `yaml:"health_path"`
	} `yaml:"gotenberg"`

	Convert struct {
		DefaultFontSize int `yaml:"default_font_size"`
		Concurrency     int `yaml:"concurrency"`
		MemoryCeilingMB int `yaml:"memory_ceiling_mb"`
	} `yaml:"convert"`

	Cache struct {
		Enabled   bool          `yaml:"enabled"`
		RedisHost string        `yaml:"redis_host"`
		RedisDB   int           `yaml:"redis_db"`
		TTL       time.Duration `yaml:"ttl"`
	} `yaml:"cache"`

	RateLimiter struct {
		UserLimit int           `yaml:"user_limit"`
		Interval  time.Duration `yaml:"interval"`
		RedisHost string        `yaml:"redis_host"`
		RedisDB   int           `yaml:"redis_db"`
	} `yaml:"rate_limiter"`

	Auth struct {
		Postgres       PostgresConfig `yaml:"postgres"`
		ReloadInterval time.Duration  `yaml:"reload_interval"`
	} `yaml:"auth"`

	CORS struct {
		AllowOrigins string `yaml:"allow_origins"`
	} `yaml:"cors"`

	Logger struct {
		File       string `yaml:"file"`
		Level      string `yaml:"level"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
		Compress   bool   `yaml:"compress"`
	} `yaml:"logger"`
}

func defaults() Config {
	var cfg Config
	cfg.Server.Host = "0.0.0.0"
	cfg.Server.Port = ":3000"
	cfg.Server.RequestTimeoutSecs = 120
	cfg.Server.MaxUploadBytes = 10 * 1024 * 1024
	cfg.Gotenberg.URL = "http://localhost:3001"
	cfg.Gotenberg.TimeoutSecs = 30
	cfg.Gotenberg.HealthPath = "/health"
	cfg.Convert.DefaultFontSize = 9
	cfg.Convert.Concurrency = 4
	cfg.Convert.MemoryCeilingMB = 1024
	cfg.Cache.TTL = 24 * time.Hour
	cfg.RateLimiter.Interval = time.Minute
	cfg.Auth.ReloadInterval = time.Minute
	cfg.Logger.Level = "info"
	return cfg
}

// Load reads the config file named by CONFIG_PATH (default "config.yaml").
// A missing file yields pure defaults; a present but invalid file panics,
// since the service cannot run meaningfully on a half-read config.
func Load() Config {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}
	return LoadFrom(path)
}

// LoadFrom reads and validates the config at path, then applies environment
// overrides.
func LoadFrom(path string) Config {
	cfg := defaults()

	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			panic(fmt.Sprintf("config: cannot parse %s: %v", path, err))
		}
	}

	applyEnvOverrides(&cfg)

	if cfg.Gotenberg.URL == "" {
		panic("config: gotenberg.url is required")
	}
	if cfg.Gotenberg.TimeoutSecs <= 0 {
		panic("config: gotenberg.timeout_secs must be positive")
	}
	if cfg.Convert.Concurrency <= 0 {
		panic("config: convert.concurrency must be positive")
	}
	if cfg.Server.MaxUploadBytes <= 0 {
		panic("config: server.max_upload_bytes must be positive")
	}
	if cfg.RateLimiter.UserLimit < 0 {
		panic("config: rate_limiter.user_limit must not be negative")
	}
	if cfg.Convert.DefaultFontSize < 6 || cfg.Convert.DefaultFontSize > 72 {
		panic("config: convert.default_font_size must be within [6,72]")
	}
	return cfg
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if v[0] != ':' {
			v = ":" + v
		}
		cfg.Server.Port = v
	}
	if v := os.Getenv("GOTENBERG_URL"); v != "" {
		cfg.Gotenberg.URL = v
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		cfg.Cache.RedisHost = v
		cfg.RateLimiter.RedisHost = v
	}
	if v := os.Getenv("MAX_UPLOAD_BYTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Server.MaxUploadBytes = n
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logger.Level = v
	}
}
