// Package config loads server configuration from an optional YAML file and
// environment variables. Environment variables win over file values, and
// file values win over defaults.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// FileEnv names the environment variable holding the YAML config path.
const FileEnv = "TRASHMOB_CONFIG"

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

const minSecretLength = 16

// DatabaseConfig selects and tunes the storage backend.
type DatabaseConfig struct {
	Driver          string
	Path            string // sqlite only
	URL             string // postgres only
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type AuthConfig struct {
	// JWTSecret signs and verifies HS256 tokens. Empty disables the
	// authenticated API (development only).
	JWTSecret string
	Issuer    string
}

type DeletionConfig struct {
	// AnonymousUserID replaces a deleted user's id on retained rows.
	AnonymousUserID uuid.UUID
	// Timeout bounds one deletion request end to end.
	Timeout time.Duration
}

type Config struct {
	Port        int
	Environment string
	LogLevel    slog.Level
	Database    DatabaseConfig
	Auth        AuthConfig
	Deletion    DeletionConfig
}

// IsDevelopment reports whether the server runs with development defaults.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// fileConfig mirrors the YAML layout. Values stay strings until validation
// so that file and environment input share one parsing path.
type fileConfig struct {
	Port     string `yaml:"port"`
	Env      string `yaml:"env"`
	LogLevel string `yaml:"log_level"`
	Database struct {
		Driver          string `yaml:"driver"`
		Path            string `yaml:"path"`
		URL             string `yaml:"url"`
		MaxOpenConns    string `yaml:"max_open_conns"`
		MaxIdleConns    string `yaml:"max_idle_conns"`
		ConnMaxLifetime string `yaml:"conn_max_lifetime"`
	} `yaml:"database"`
	Auth struct {
		JWTSecret string `yaml:"jwt_secret"`
		Issuer    string `yaml:"jwt_issuer"`
	} `yaml:"auth"`
	Deletion struct {
		AnonymousUserID string `yaml:"anonymous_user_id"`
		Timeout         string `yaml:"timeout"`
	} `yaml:"deletion"`
}

func defaults() fileConfig {
	var f fileConfig
	f.Port = "8080"
	f.Env = "development"
	f.LogLevel = "info"
	f.Database.Driver = DriverSQLite
	f.Database.Path = "data/trashmob.db"
	f.Database.MaxOpenConns = "25"
	f.Database.MaxIdleConns = "5"
	f.Database.ConnMaxLifetime = "300"
	f.Auth.Issuer = "trashmob"
	f.Deletion.AnonymousUserID = uuid.Nil.String()
	f.Deletion.Timeout = "2m"
	return f
}

// Load reads configuration from the file named by TRASHMOB_CONFIG (if any)
// and the environment. It fails fast with every problem it finds.
func Load() (*Config, error) {
	raw := defaults()

	if path := os.Getenv(FileEnv); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	}

	overrideFromEnv(&raw)
	return raw.validate()
}

func overrideFromEnv(f *fileConfig) {
	for key, dst := range map[string]*string{
		"PORT":                 &f.Port,
		"ENV":                  &f.Env,
		"LOG_LEVEL":            &f.LogLevel,
		"DB_DRIVER":            &f.Database.Driver,
		"DB_PATH":              &f.Database.Path,
		"DATABASE_URL":         &f.Database.URL,
		"DB_MAX_OPEN_CONNS":    &f.Database.MaxOpenConns,
		"DB_MAX_IDLE_CONNS":    &f.Database.MaxIdleConns,
		"DB_CONN_MAX_LIFETIME": &f.Database.ConnMaxLifetime,
		"JWT_SECRET":           &f.Auth.JWTSecret,
		"JWT_ISSUER":           &f.Auth.Issuer,
		"ANONYMOUS_USER_ID":    &f.Deletion.AnonymousUserID,
		"DELETION_TIMEOUT":     &f.Deletion.Timeout,
	} {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
}

func (f fileConfig) validate() (*Config, error) {
	var errs []error
	cfg := &Config{
		Environment: f.Env,
		Database: DatabaseConfig{
			Driver: strings.ToLower(f.Database.Driver),
			Path:   f.Database.Path,
			URL:    f.Database.URL,
		},
		Auth: AuthConfig{
			JWTSecret: f.Auth.JWTSecret,
			Issuer:    f.Auth.Issuer,
		},
	}

	switch cfg.Environment {
	case "development", "staging", "production":
	default:
		errs = append(errs, fmt.Errorf("invalid ENV value %q: must be development, staging, or production", cfg.Environment))
	}

	cfg.Port = positiveInt("PORT", f.Port, &errs)
	cfg.Database.MaxOpenConns = positiveInt("DB_MAX_OPEN_CONNS", f.Database.MaxOpenConns, &errs)
	cfg.Database.MaxIdleConns = positiveInt("DB_MAX_IDLE_CONNS", f.Database.MaxIdleConns, &errs)
	cfg.Database.ConnMaxLifetime = time.Duration(positiveInt("DB_CONN_MAX_LIFETIME", f.Database.ConnMaxLifetime, &errs)) * time.Second

	if err := cfg.LogLevel.UnmarshalText([]byte(f.LogLevel)); err != nil {
		errs = append(errs, fmt.Errorf("invalid LOG_LEVEL %q: %w", f.LogLevel, err))
	}

	switch cfg.Database.Driver {
	case DriverSQLite:
		if cfg.Database.Path == "" {
			errs = append(errs, errors.New("DB_PATH must not be empty for the sqlite driver"))
		}
	case DriverPostgres:
		if cfg.Database.URL == "" {
			errs = append(errs, errors.New("missing required environment variable DATABASE_URL for the postgres driver"))
		} else if err := validateDatabaseURL(cfg.Database.URL); err != nil {
			errs = append(errs, fmt.Errorf("invalid DATABASE_URL: %w", err))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid DB_DRIVER %q: must be sqlite or postgres", f.Database.Driver))
	}

	switch {
	case cfg.Auth.JWTSecret == "" && cfg.Environment != "development":
		errs = append(errs, errors.New("missing required environment variable JWT_SECRET"))
	case cfg.Auth.JWTSecret != "" && len(cfg.Auth.JWTSecret) < minSecretLength:
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d characters", minSecretLength))
	}

	anon, err := uuid.Parse(f.Deletion.AnonymousUserID)
	if err != nil {
		errs = append(errs, fmt.Errorf("invalid ANONYMOUS_USER_ID %q: %w", f.Deletion.AnonymousUserID, err))
	}
	cfg.Deletion.AnonymousUserID = anon

	timeout, err := time.ParseDuration(f.Deletion.Timeout)
	switch {
	case err != nil:
		errs = append(errs, fmt.Errorf("invalid DELETION_TIMEOUT %q: %w", f.Deletion.Timeout, err))
	case timeout <= 0:
		errs = append(errs, fmt.Errorf("DELETION_TIMEOUT must be positive, got %s", timeout))
	}
	cfg.Deletion.Timeout = timeout

	if len(errs) > 0 {
		return nil, fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return cfg, nil
}

func positiveInt(key, val string, errs *[]error) int {
	n, err := strconv.Atoi(strings.TrimSpace(val))
	if err != nil || n <= 0 {
		*errs = append(*errs, fmt.Errorf("invalid %s %q: must be a positive integer", key, val))
		return 0
	}
	return n
}

// validateDatabaseURL ensures the database URL is a valid PostgreSQL connection string.
func validateDatabaseURL(dbURL string) error {
	parsed, err := url.Parse(dbURL)
	if err != nil {
		return fmt.Errorf("malformed URL: %w", err)
	}
	if parsed.Scheme != "postgres" && parsed.Scheme != "postgresql" {
		return fmt.Errorf("URL must use postgres or postgresql scheme, got %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return errors.New("URL must include a host")
	}
	return nil
}
