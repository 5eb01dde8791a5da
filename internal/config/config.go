package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/meltforce/gainslog/internal/storage"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Cache     CacheConfig     `yaml:"cache"`
	Channel   ChannelConfig   `yaml:"channel"`
	Settings  SettingsConfig  `yaml:"settings"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
	Auth      AuthConfig      `yaml:"auth"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig selects the structured store backend. SQLite uses Path;
// Postgres uses the connection fields.
type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Path     string `yaml:"path"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

// CacheConfig describes the asset cache. An empty Origin disables the
// background controller.
type CacheConfig struct {
	Path     string   `yaml:"path"`
	Prefix   string   `yaml:"prefix"`
	Version  int      `yaml:"version"`
	Origin   string   `yaml:"origin"`
	Manifest []string `yaml:"manifest"`
}

type ChannelConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

type SettingsConfig struct {
	Path string `yaml:"path"`
}

type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Hostname string `yaml:"hostname"`
	StateDir string `yaml:"state_dir"`
}

type AuthConfig struct {
	APIKey string `yaml:"api_key"`
}

// DSN returns a PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     "/" + d.Name,
		RawQuery: "sslmode=" + sslmode,
	}
	return u.String()
}

// Store returns the storage configuration for the selected driver.
func (d DatabaseConfig) Store() storage.Config {
	if d.Driver == storage.DriverPostgres {
		return storage.Config{Driver: d.Driver, DSN: d.DSN()}
	}
	return storage.Config{Driver: storage.DriverSQLite, Path: d.Path}
}

// Load reads config from a YAML file, then applies environment variable overrides.
// Env vars use the prefix GAINSLOG_ and underscore-separated paths:
//
//	GAINSLOG_SERVER_HOST, GAINSLOG_SERVER_PORT,
//	GAINSLOG_DB_DRIVER, GAINSLOG_DB_PATH,
//	GAINSLOG_DB_HOST, GAINSLOG_DB_PORT, GAINSLOG_DB_NAME,
//	GAINSLOG_DB_USER, GAINSLOG_DB_PASSWORD, GAINSLOG_DB_SSLMODE,
//	GAINSLOG_CACHE_PATH, GAINSLOG_CACHE_VERSION, GAINSLOG_CACHE_ORIGIN,
//	GAINSLOG_CHANNEL_TIMEOUT, GAINSLOG_SETTINGS_PATH,
//	GAINSLOG_TAILSCALE_ENABLED, GAINSLOG_TAILSCALE_HOSTNAME,
//	GAINSLOG_AUTH_API_KEY
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}

	str("GAINSLOG_SERVER_HOST", &cfg.Server.Host)
	num("GAINSLOG_SERVER_PORT", &cfg.Server.Port)
	str("GAINSLOG_DB_DRIVER", &cfg.Database.Driver)
	str("GAINSLOG_DB_PATH", &cfg.Database.Path)
	str("GAINSLOG_DB_HOST", &cfg.Database.Host)
	num("GAINSLOG_DB_PORT", &cfg.Database.Port)
	str("GAINSLOG_DB_NAME", &cfg.Database.Name)
	str("GAINSLOG_DB_USER", &cfg.Database.User)
	str("GAINSLOG_DB_PASSWORD", &cfg.Database.Password)
	str("GAINSLOG_DB_SSLMODE", &cfg.Database.SSLMode)
	str("GAINSLOG_CACHE_PATH", &cfg.Cache.Path)
	num("GAINSLOG_CACHE_VERSION", &cfg.Cache.Version)
	str("GAINSLOG_CACHE_ORIGIN", &cfg.Cache.Origin)
	if v := os.Getenv("GAINSLOG_CHANNEL_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Channel.Timeout = d
		}
	}
	str("GAINSLOG_SETTINGS_PATH", &cfg.Settings.Path)
	if v := os.Getenv("GAINSLOG_TAILSCALE_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Tailscale.Enabled = b
		}
	}
	str("GAINSLOG_TAILSCALE_HOSTNAME", &cfg.Tailscale.Hostname)
	str("GAINSLOG_AUTH_API_KEY", &cfg.Auth.APIKey)
}

func applyDefaults(cfg *Config) {
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.Driver == "sqlite" && cfg.Database.Path == "" {
		cfg.Database.Path = "data/gainslog.db"
	}
	if cfg.Cache.Path == "" {
		cfg.Cache.Path = "data/assets.db"
	}
	if cfg.Cache.Prefix == "" {
		cfg.Cache.Prefix = "gainslog"
	}
	if cfg.Cache.Version == 0 {
		cfg.Cache.Version = 1
	}
	if len(cfg.Cache.Manifest) == 0 {
		cfg.Cache.Manifest = []string{"/", "/index.html", "/style.css", "/app.js", "/manifest.json"}
	}
	if cfg.Channel.Timeout == 0 {
		cfg.Channel.Timeout = 5 * time.Second
	}
	if cfg.Settings.Path == "" {
		cfg.Settings.Path = "data/settings.yaml"
	}
	if cfg.Tailscale.Hostname == "" {
		cfg.Tailscale.Hostname = "gainslog"
	}
}

func (c *Config) validate() error {
	if c.Server.Port == 0 && !c.Tailscale.Enabled {
		return fmt.Errorf("server.port is required")
	}
	switch c.Database.Driver {
	case "sqlite":
	case "postgres":
		if c.Database.Host == "" {
			return fmt.Errorf("database.host is required")
		}
		if c.Database.Port == 0 {
			return fmt.Errorf("database.port is required")
		}
		if c.Database.Name == "" {
			return fmt.Errorf("database.name is required")
		}
		if c.Database.User == "" {
			return fmt.Errorf("database.user is required")
		}
	default:
		return fmt.Errorf("database.driver must be sqlite or postgres, got %q", c.Database.Driver)
	}
	if c.Cache.Version < 1 {
		return fmt.Errorf("cache.version must be at least 1")
	}
	if c.Cache.Origin != "" {
		u, err := url.Parse(c.Cache.Origin)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("cache.origin must be an absolute http(s) URL")
		}
	}
	for _, p := range c.Cache.Manifest {
		if !strings.HasPrefix(p, "/") {
			return fmt.Errorf("cache.manifest entry %q must start with /", p)
		}
	}
	if c.Channel.Timeout < 0 {
		return fmt.Errorf("channel.timeout must not be negative")
	}
	return nil
}
