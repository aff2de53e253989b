package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/claude/coachwizard/internal/session"
	"gopkg.in/yaml.v3"
)

// Store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
	DriverMemory   = "memory"
)

type Config struct {
	Backend   BackendConfig   `yaml:"backend"`
	Store     StoreConfig     `yaml:"store"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Server    ServerConfig    `yaml:"server"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
	Log       LogConfig       `yaml:"log"`
}

type BackendConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// StoreConfig selects where the in-progress session is kept.
type StoreConfig struct {
	Driver    string `yaml:"driver"`
	Dir       string `yaml:"dir"`
	Namespace string `yaml:"namespace"`
	KeyPrefix string `yaml:"key_prefix"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type ServerConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	CookieName     string        `yaml:"cookie_name"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	IdleTimeout    time.Duration `yaml:"idle_timeout"`
}

type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Hostname string `yaml:"hostname"`
	StateDir string `yaml:"state_dir"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// DSN returns a PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.PathEscape(d.User), url.PathEscape(d.Password), d.Host, d.Port, d.Name, sslmode)
}

// SlogLevel maps the configured level name to a slog.Level.
func (l LogConfig) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// Addr is the host:port the gateway listens on.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Default returns the configuration used when no file is given: a local
// backend and a SQLite store under the user's home directory.
func Default() *Config {
	dir := ".coachwizard"
	if home, err := os.UserHomeDir(); err == nil {
		dir = filepath.Join(home, ".coachwizard")
	}
	return &Config{
		Backend: BackendConfig{
			BaseURL: "http://localhost:5000",
			Timeout: 30 * time.Second,
		},
		Store: StoreConfig{
			Driver:    DriverSQLite,
			Dir:       dir,
			Namespace: session.DefaultNamespace,
			KeyPrefix: "coachwizard",
		},
		Database: DatabaseConfig{Port: 5432},
		Redis:    RedisConfig{Addr: "localhost:6379"},
		Server: ServerConfig{
			Host:       "127.0.0.1",
			Port:       8080,
			CookieName:  "coachwizard_sid",
			IdleTimeout: 30 * time.Minute,
		},
		Tailscale: TailscaleConfig{Hostname: "coachwizard"},
		Log:       LogConfig{Level: "info"},
	}
}

// Load reads config from a YAML file layered over Default, then applies
// environment variable overrides. An empty path skips the file.
// Env vars use the prefix COACHWIZARD_ and underscore-separated paths:
//
//	COACHWIZARD_BACKEND_URL, COACHWIZARD_BACKEND_TIMEOUT,
//	COACHWIZARD_STORE_DRIVER, COACHWIZARD_STORE_DIR, COACHWIZARD_STORE_NAMESPACE,
//	COACHWIZARD_DB_HOST, COACHWIZARD_DB_PORT, COACHWIZARD_DB_NAME,
//	COACHWIZARD_DB_USER, COACHWIZARD_DB_PASSWORD, COACHWIZARD_DB_SSLMODE,
//	COACHWIZARD_REDIS_ADDR, COACHWIZARD_REDIS_PASSWORD, COACHWIZARD_REDIS_DB,
//	COACHWIZARD_SERVER_HOST, COACHWIZARD_SERVER_PORT,
//	COACHWIZARD_SERVER_ALLOWED_ORIGINS (comma-separated),
//	COACHWIZARD_TS_ENABLED, COACHWIZARD_TS_HOSTNAME, COACHWIZARD_LOG_LEVEL
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	str := func(name string, dst *string) {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}
	num := func(name string, dst *int) {
		if v := os.Getenv(name); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}

	str("COACHWIZARD_BACKEND_URL", &cfg.Backend.BaseURL)
	if v := os.Getenv("COACHWIZARD_BACKEND_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Backend.Timeout = d
		}
	}
	str("COACHWIZARD_STORE_DRIVER", &cfg.Store.Driver)
	str("COACHWIZARD_STORE_DIR", &cfg.Store.Dir)
	str("COACHWIZARD_STORE_NAMESPACE", &cfg.Store.Namespace)
	str("COACHWIZARD_DB_HOST", &cfg.Database.Host)
	num("COACHWIZARD_DB_PORT", &cfg.Database.Port)
	str("COACHWIZARD_DB_NAME", &cfg.Database.Name)
	str("COACHWIZARD_DB_USER", &cfg.Database.User)
	str("COACHWIZARD_DB_PASSWORD", &cfg.Database.Password)
	str("COACHWIZARD_DB_SSLMODE", &cfg.Database.SSLMode)
	str("COACHWIZARD_REDIS_ADDR", &cfg.Redis.Addr)
	str("COACHWIZARD_REDIS_PASSWORD", &cfg.Redis.Password)
	num("COACHWIZARD_REDIS_DB", &cfg.Redis.DB)
	str("COACHWIZARD_SERVER_HOST", &cfg.Server.Host)
	num("COACHWIZARD_SERVER_PORT", &cfg.Server.Port)
	if v := os.Getenv("COACHWIZARD_SERVER_ALLOWED_ORIGINS"); v != "" {
		cfg.Server.AllowedOrigins = nil
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.Server.AllowedOrigins = append(cfg.Server.AllowedOrigins, o)
			}
		}
	}
	if v := os.Getenv("COACHWIZARD_TS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Tailscale.Enabled = b
		}
	}
	str("COACHWIZARD_TS_HOSTNAME", &cfg.Tailscale.Hostname)
	str("COACHWIZARD_LOG_LEVEL", &cfg.Log.Level)
}

func (c *Config) validate() error {
	u, err := url.Parse(c.Backend.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("backend.base_url must be an absolute URL, got %q", c.Backend.BaseURL)
	}
	if c.Backend.Timeout < 0 {
		return fmt.Errorf("backend.timeout must not be negative")
	}

	switch c.Store.Driver {
	case DriverSQLite:
		if c.Store.Dir == "" {
			return fmt.Errorf("store.dir is required for the sqlite driver")
		}
	case DriverPostgres:
		if c.Database.Host == "" {
			return fmt.Errorf("database.host is required for the postgres driver")
		}
		if c.Database.Port == 0 {
			return fmt.Errorf("database.port is required for the postgres driver")
		}
		if c.Database.Name == "" {
			return fmt.Errorf("database.name is required for the postgres driver")
		}
		if c.Database.User == "" {
			return fmt.Errorf("database.user is required for the postgres driver")
		}
	case DriverRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("redis.addr is required for the redis driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("store.driver must be one of sqlite, postgres, redis, memory; got %q", c.Store.Driver)
	}
	if strings.TrimSpace(c.Store.Namespace) == "" {
		return fmt.Errorf("store.namespace is required")
	}

	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port is required")
	}
	if c.Server.CookieName == "" {
		return fmt.Errorf("server.cookie_name is required")
	}
	if c.Server.IdleTimeout <= 0 {
		return fmt.Errorf("server.idle_timeout must be positive")
	}
	for _, o := range c.Server.AllowedOrigins {
		u, err := url.Parse(o)
		if err != nil || u.Scheme == "" || u.Host == "" || u.Path != "" {
			return fmt.Errorf("server.allowed_origins: %q is not an origin", o)
		}
	}
	if c.Tailscale.Enabled && c.Tailscale.Hostname == "" {
		return fmt.Errorf("tailscale.hostname is required when tailscale is enabled")
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}
