package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	PlaceholderURL     = "YOUR_JOT_URL"
	PlaceholderAnonKey = "YOUR_JOT_ANON_KEY"
)

type Config struct {
	HTTPAddr string `yaml:"http_addr"`

	DBDriver string `yaml:"db_driver"`
	DSN      string `yaml:"dsn"`

	MaxOpenConns int `yaml:"max_open_conns"`
	MaxIdleConns int `yaml:"max_idle_conns"`

	JWTSecret  string        `yaml:"jwt_secret"`
	AccessTTL  time.Duration `yaml:"access_ttl"`
	RefreshTTL time.Duration `yaml:"refresh_ttl"`

	// URL and AnonKey are what the page and the backend client use to
	// reach the service. Unset values keep the literal placeholders.
	URL     string `yaml:"url"`
	AnonKey string `yaml:"anon_key"`

	PageTTL time.Duration `yaml:"page_ttl"`
	WebDir  string        `yaml:"web_dir"`
	DistDir string        `yaml:"dist_dir"`
}

func defaults() Config {
	return Config{
		HTTPAddr:     ":3002",
		DBDriver:     "mysql",
		MaxOpenConns: 20,
		MaxIdleConns: 10,
		AccessTTL:    24 * time.Hour,
		RefreshTTL:   7 * 24 * time.Hour,
		URL:          PlaceholderURL,
		AnonKey:      PlaceholderAnonKey,
		PageTTL:      30 * time.Minute,
		DistDir:      "dist",
	}
}

// Load reads .env (when present), then the optional YAML file at path, then
// the process environment. Later sources win.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug(".env file not found, using environment variables")
	}

	cfg := defaults()

	if path == "" {
		path = os.Getenv("JOT_CONFIG")
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.HTTPAddr = getEnv("JOT_HTTP_ADDR", cfg.HTTPAddr)
	cfg.DBDriver = getEnv("JOT_DB_DRIVER", cfg.DBDriver)
	cfg.DSN = getEnv("DSN", cfg.DSN)
	cfg.MaxOpenConns = getEnvInt("DB_MAX_OPEN", cfg.MaxOpenConns)
	cfg.MaxIdleConns = getEnvInt("DB_MAX_IDLE", cfg.MaxIdleConns)
	cfg.JWTSecret = getEnv("JWT_SECRET", cfg.JWTSecret)
	cfg.AccessTTL = getEnvDuration("JWT_ACCESS_TTL", cfg.AccessTTL)
	cfg.RefreshTTL = getEnvDuration("JWT_REFRESH_TTL", cfg.RefreshTTL)
	cfg.URL = getEnv("JOT_URL", cfg.URL)
	cfg.AnonKey = getEnv("JOT_ANON_KEY", cfg.AnonKey)
	cfg.PageTTL = getEnvDuration("JOT_PAGE_TTL", cfg.PageTTL)
	cfg.WebDir = getEnv("JOT_WEB_DIR", cfg.WebDir)
	cfg.DistDir = getEnv("JOT_DIST_DIR", cfg.DistDir)

	return &cfg, nil
}

// Validate checks what the server needs to start. The build command only
// needs URL and AnonKey, which always have a value.
func (c *Config) Validate() error {
	switch c.DBDriver {
	case "mysql", "pgx":
		if c.DSN == "" {
			return fmt.Errorf("DSN is required")
		}
	case "memory":
	default:
		return fmt.Errorf("unsupported JOT_DB_DRIVER %q", c.DBDriver)
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	for name, d := range map[string]time.Duration{
		"access_ttl":  c.AccessTTL,
		"refresh_ttl": c.RefreshTTL,
		"page_ttl":    c.PageTTL,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, d)
		}
	}
	return nil
}

// ServiceURL is the URL the server's own pages use to reach the API. A
// placeholder URL means the API is served by this same process.
func (c *Config) ServiceURL() string {
	if c.URL != "" && c.URL != PlaceholderURL {
		return c.URL
	}
	addr := c.HTTPAddr
	if len(addr) > 0 && addr[0] == ':' {
		addr = "localhost" + addr
	}
	return "http://" + addr
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
