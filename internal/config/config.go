// Package config loads service settings from a YAML file with environment
// overrides. A .env file, when present, is loaded into the environment first.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		// dev | staging | prod
		Env      string `yaml:"env"`
		LogLevel string `yaml:"log_level"`
		Version  string `yaml:"version"`
	} `yaml:"app"`

	Server struct {
		Addr               string   `yaml:"addr"`
		GRPCAddr           string   `yaml:"grpc_addr"`
		CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
		MaxBodyBytes       int64    `yaml:"max_body_bytes"`
		ShutdownTimeout    string   `yaml:"shutdown_timeout"`
	} `yaml:"server"`

	Storage struct {
		// postgres | memory
		Driver   string `yaml:"driver"`
		DSN      string `yaml:"dsn"`
		Postgres struct {
			MaxOpenConns    int    `yaml:"max_open_conns"`
			MaxIdleConns    int    `yaml:"max_idle_conns"`
			ConnMaxLifetime string `yaml:"conn_max_lifetime"`
			ConnMaxIdleTime string `yaml:"conn_max_idle_time"`
		} `yaml:"postgres"`
	} `yaml:"storage"`

	Auth struct {
		// Secret signs access tokens. Required.
		Secret     string `yaml:"secret"`
		Issuer     string `yaml:"issuer"`
		BcryptCost int    `yaml:"bcrypt_cost"`
	} `yaml:"auth"`

	Rate struct {
		Burst     int     `yaml:"burst"`
		PerSecond float64 `yaml:"per_second"`
		Login     struct {
			Burst     int     `yaml:"burst"`
			PerSecond float64 `yaml:"per_second"`
		} `yaml:"login"`
	} `yaml:"rate"`

	Migrations struct {
		Dir      string `yaml:"dir"`
		SeedsDir string `yaml:"seeds_dir"`
	} `yaml:"migrations"`
}

// LoadEnvFile loads KEY=VALUE pairs from path into the process environment.
// A missing file is not an error; variables already set are kept.
func LoadEnvFile(path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: load %s: %w", path, err)
	}
	return nil
}

// Load reads path (optional), fills defaults and applies environment overrides.
func Load(path string) (*Config, error) {
	var c Config
	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	c.applyEnvOverrides()
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.App.Env == "" {
		c.App.Env = "prod"
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.GRPCAddr == "" {
		c.Server.GRPCAddr = ":9090"
	}
	if c.Server.MaxBodyBytes <= 0 {
		c.Server.MaxBodyBytes = 1 << 20
	}
	if c.Server.ShutdownTimeout == "" {
		c.Server.ShutdownTimeout = "10s"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "postgres"
	}
	if c.Auth.Issuer == "" {
		c.Auth.Issuer = "smartlotto"
	}
	if c.Rate.Burst == 0 {
		c.Rate.Burst = 60
	}
	if c.Rate.PerSecond == 0 {
		c.Rate.PerSecond = 20
	}
	if c.Rate.Login.Burst == 0 {
		c.Rate.Login.Burst = 10
	}
	if c.Rate.Login.PerSecond == 0 {
		c.Rate.Login.PerSecond = 1.0 / 6
	}
	if c.Migrations.Dir == "" {
		c.Migrations.Dir = "ops/migrations/sql"
	}
	if c.Migrations.SeedsDir == "" {
		c.Migrations.SeedsDir = "ops/migrations/seeds"
	}
}

func (c *Config) applyEnvOverrides() {
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = strings.ToLower(v)
	}
	if v, ok := getEnvStr("LOG_LEVEL"); ok {
		c.App.LogLevel = v
	}
	if v, ok := getEnvStr("APP_VERSION"); ok {
		c.App.Version = v
	}

	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := getEnvStr("GRPC_ADDR"); ok {
		c.Server.GRPCAddr = v
	}
	if v, ok := getEnvCSV("SERVER_CORS_ALLOWED_ORIGINS"); ok {
		c.Server.CORSAllowedOrigins = v
	}
	if v, ok := getEnvInt("SERVER_MAX_BODY_BYTES"); ok {
		c.Server.MaxBodyBytes = int64(v)
	}

	if v, ok := getEnvStr("STORAGE_DRIVER"); ok {
		c.Storage.Driver = strings.ToLower(v)
	}
	if v, ok := getEnvStr("DATABASE_URL"); ok {
		c.Storage.DSN = v
	}
	if v, ok := getEnvStr("STORAGE_DSN"); ok {
		c.Storage.DSN = v
	}
	if v, ok := getEnvInt("POSTGRES_MAX_OPEN_CONNS"); ok {
		c.Storage.Postgres.MaxOpenConns = v
	}
	if v, ok := getEnvInt("POSTGRES_MAX_IDLE_CONNS"); ok {
		c.Storage.Postgres.MaxIdleConns = v
	}
	if v, ok := getEnvStr("POSTGRES_CONN_MAX_LIFETIME"); ok {
		c.Storage.Postgres.ConnMaxLifetime = v
	}

	if v, ok := getEnvStr("AUTH_SECRET"); ok {
		c.Auth.Secret = v
	}
	if v, ok := getEnvStr("AUTH_ISSUER"); ok {
		c.Auth.Issuer = v
	}
	if v, ok := getEnvInt("AUTH_BCRYPT_COST"); ok {
		c.Auth.BcryptCost = v
	}

	if v, ok := getEnvInt("RATE_BURST"); ok {
		c.Rate.Burst = v
	}
	if v, ok := getEnvFloat("RATE_PER_SECOND"); ok {
		c.Rate.PerSecond = v
	}
	if v, ok := getEnvInt("RATE_LOGIN_BURST"); ok {
		c.Rate.Login.Burst = v
	}
	if v, ok := getEnvFloat("RATE_LOGIN_PER_SECOND"); ok {
		c.Rate.Login.PerSecond = v
	}

	if v, ok := getEnvStr("MIGRATIONS_DIR"); ok {
		c.Migrations.Dir = v
	}
	if v, ok := getEnvStr("SEEDS_DIR"); ok {
		c.Migrations.SeedsDir = v
	}
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Auth.Secret) == "" {
		return errors.New("config: auth.secret (AUTH_SECRET) is required")
	}
	switch c.Storage.Driver {
	case "postgres":
		if strings.TrimSpace(c.Storage.DSN) == "" {
			return errors.New("config: storage.dsn (STORAGE_DSN) is required for postgres")
		}
	case "memory":
	default:
		return fmt.Errorf("config: unknown storage driver %q", c.Storage.Driver)
	}
	for _, d := range []struct{ key, val string }{
		{"server.shutdown_timeout", c.Server.ShutdownTimeout},
		{"storage.postgres.conn_max_lifetime", c.Storage.Postgres.ConnMaxLifetime},
		{"storage.postgres.conn_max_idle_time", c.Storage.Postgres.ConnMaxIdleTime},
	} {
		if d.val == "" {
			continue
		}
		if _, err := time.ParseDuration(d.val); err != nil {
			return fmt.Errorf("config: %s: %w", d.key, err)
		}
	}
	return nil
}

// Duration parses s, returning def when s is empty or malformed.
func Duration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return d
}

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}

func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}

func getEnvFloat(key string) (float64, bool) {
	if s, ok := getEnvStr(key); ok {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

func getEnvCSV(key string) ([]string, bool) {
	if s, ok := getEnvStr(key); ok {
		parts := strings.Split(s, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out, true
	}
	return nil, false
}
