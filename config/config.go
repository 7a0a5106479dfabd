// Package config reads the service configuration from the environment,
// optionally seeded from .env files.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "production"
)

// Config is everything cmd/server needs to start. The env tags name the
// variable each field comes from and label validation errors.
type Config struct {
	App           AppConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	HTTP          HTTPConfig
	Observability ObservabilityConfig
	Roster        RosterConfig
}

type AppConfig struct {
	Name            string        `env:"APP_NAME" validate:"required"`
	Environment     Environment   `env:"APP_ENV" validate:"oneof=development staging production"`
	Debug           bool          `env:"APP_DEBUG"`
	Version         string        `env:"APP_VERSION"`
	ShutdownTimeout time.Duration `env:"APP_SHUTDOWN_TIMEOUT" validate:"gt=0"`
}

// DatabaseConfig configures PostgreSQL. An empty URL keeps the roster in
// memory only.
type DatabaseConfig struct {
	URL             string        `env:"DATABASE_URL"`
	MaxConns        int           `env:"DB_MAX_CONNS" validate:"min=1"`
	MinConns        int           `env:"DB_MIN_CONNS" validate:"min=0,ltefield=MaxConns"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME"`
	ConnMaxIdleTime time.Duration `env:"DB_CONN_MAX_IDLE_TIME"`
	ConnectTimeout  time.Duration `env:"DB_CONNECT_TIMEOUT" validate:"gt=0"`
	AutoMigrate     bool          `env:"DB_AUTO_MIGRATE"`
}

// RedisConfig configures the snapshot cache and the cross-instance event
// channel. URL wins over Host and Port.
type RedisConfig struct {
	URL          string        `env:"REDIS_URL"`
	Host         string        `env:"REDIS_HOST"`
	Port         int           `env:"REDIS_PORT" validate:"min=1,max=65535"`
	Password     string        `env:"REDIS_PASSWORD"`
	DB           int           `env:"REDIS_DB" validate:"min=0"`
	PoolSize     int           `env:"REDIS_POOL_SIZE" validate:"min=1"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" validate:"min=0"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT"`

	SnapshotTTL   time.Duration `env:"REDIS_SNAPSHOT_TTL" validate:"gt=0"`
	EventsEnabled bool          `env:"REDIS_EVENTS_ENABLED"`
	EventsChannel string        `env:"REDIS_EVENTS_CHANNEL" validate:"required_if=EventsEnabled true"`

	Disabled bool `env:"REDIS_DISABLED"`
}

// Enabled reports whether a Redis server is configured and not disabled.
func (c RedisConfig) Enabled() bool {
	return !c.Disabled && (c.URL != "" || c.Host != "")
}

type HTTPConfig struct {
	Host           string        `env:"HTTP_HOST"`
	Port           int           `env:"HTTP_PORT" validate:"min=1,max=65535"`
	ReadTimeout    time.Duration `env:"HTTP_READ_TIMEOUT"`
	WriteTimeout   time.Duration `env:"HTTP_WRITE_TIMEOUT"`
	IdleTimeout    time.Duration `env:"HTTP_IDLE_TIMEOUT"`
	AllowedOrigins []string      `env:"HTTP_ALLOWED_ORIGINS"` // "*" allows any
	MaxBodyBytes   int64         `env:"HTTP_MAX_BODY_BYTES" validate:"gt=0"`
}

// Addr returns the listen address.
func (c HTTPConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

type ObservabilityConfig struct {
	LogLevel       string `env:"LOG_LEVEL" validate:"oneof=debug info warn error"`
	LogCaller      bool   `env:"LOG_CALLER"`
	MetricsEnabled bool   `env:"METRICS_ENABLED"`
}

type RosterConfig struct {
	// JSON file ({"students":[{"name","national_id"}]}) that resets the
	// roster on startup when nothing is stored yet.
	SeedFile string `env:"ROSTER_SEED_FILE"`

	Autosave     bool `env:"ROSTER_AUTOSAVE"`
	AsyncEvents  bool `env:"ROSTER_ASYNC_EVENTS"`
	EventWorkers int  `env:"ROSTER_EVENT_WORKERS" validate:"min=1"`

	// "@every 1m", "@hourly" or a five-field cron expression. Empty
	// disables the background flush.
	FlushSchedule string        `env:"ROSTER_FLUSH_SCHEDULE"`
	FlushTimeout  time.Duration `env:"ROSTER_FLUSH_TIMEOUT" validate:"gt=0"`
}

// Load reads ./.env if it exists, then the environment.
func Load() (*Config, error) {
	return LoadFiles(".env")
}

// LoadFiles reads the given .env files, skipping missing ones, then the
// environment. Variables already set in the environment are never
// overridden by a file.
func LoadFiles(files ...string) (*Config, error) {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	var e env
	appEnv := Environment(e.str("APP_ENV", string(EnvDevelopment)))
	cfg := &Config{
		App: AppConfig{
			Name:            e.str("APP_NAME", "taskmaster"),
			Environment:     appEnv,
			Debug:           e.boolean("APP_DEBUG", appEnv == EnvDevelopment),
			Version:         e.str("APP_VERSION", "0.1.0"),
			ShutdownTimeout: e.duration("APP_SHUTDOWN_TIMEOUT", 15*time.Second),
		},
		Database: DatabaseConfig{
			URL:             e.str("DATABASE_URL", databaseURLFromParts(&e)),
			MaxConns:        e.integer("DB_MAX_CONNS", 4),
			MinConns:        e.integer("DB_MIN_CONNS", 1),
			ConnMaxLifetime: e.duration("DB_CONN_MAX_LIFETIME", time.Hour),
			ConnMaxIdleTime: e.duration("DB_CONN_MAX_IDLE_TIME", 30*time.Minute),
			ConnectTimeout:  e.duration("DB_CONNECT_TIMEOUT", 10*time.Second),
			AutoMigrate:     e.boolean("DB_AUTO_MIGRATE", true),
		},
		Redis: RedisConfig{
			URL:           e.str("REDIS_URL", ""),
			Host:          e.str("REDIS_HOST", ""),
			Port:          e.integer("REDIS_PORT", 6379),
			Password:      e.str("REDIS_PASSWORD", ""),
			DB:            e.integer("REDIS_DB", 0),
			PoolSize:      e.integer("REDIS_POOL_SIZE", 10),
			MinIdleConns:  e.integer("REDIS_MIN_IDLE_CONNS", 1),
			DialTimeout:   e.duration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:   e.duration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout:  e.duration("REDIS_WRITE_TIMEOUT", 3*time.Second),
			SnapshotTTL:   e.duration("REDIS_SNAPSHOT_TTL", 10*time.Minute),
			EventsEnabled: e.boolean("REDIS_EVENTS_ENABLED", false),
			EventsChannel: e.str("REDIS_EVENTS_CHANNEL", "taskmaster:events"),
			Disabled:      e.boolean("REDIS_DISABLED", false),
		},
		HTTP: HTTPConfig{
			Host:           e.str("HTTP_HOST", "0.0.0.0"),
			Port:           e.integer("HTTP_PORT", 8080),
			ReadTimeout:    e.duration("HTTP_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:   e.duration("HTTP_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:    e.duration("HTTP_IDLE_TIMEOUT", time.Minute),
			AllowedOrigins: e.list("HTTP_ALLOWED_ORIGINS", []string{"*"}),
			MaxBodyBytes:   int64(e.integer("HTTP_MAX_BODY_BYTES", 1<<20)),
		},
		Observability: ObservabilityConfig{
			LogLevel:       strings.ToLower(e.str("LOG_LEVEL", "info")),
			LogCaller:      e.boolean("LOG_CALLER", false),
			MetricsEnabled: e.boolean("METRICS_ENABLED", true),
		},
		Roster: RosterConfig{
			SeedFile:      e.str("ROSTER_SEED_FILE", ""),
			Autosave:      e.boolean("ROSTER_AUTOSAVE", true),
			AsyncEvents:   e.boolean("ROSTER_ASYNC_EVENTS", true),
			EventWorkers:  e.integer("ROSTER_EVENT_WORKERS", 4),
			FlushSchedule: e.str("ROSTER_FLUSH_SCHEDULE", ""),
			FlushTimeout:  e.duration("ROSTER_FLUSH_TIMEOUT", 30*time.Second),
		},
	}

	if err := errors.Join(append(e.errs, cfg.Validate())...); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// databaseURLFromParts builds a URL from DB_HOST and friends, or returns ""
// when host or user is missing.
func databaseURLFromParts(e *env) string {
	host, user := e.str("DB_HOST", ""), e.str("DB_USER", "")
	if host == "" || user == "" {
		return ""
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(user, e.str("DB_PASSWORD", "")),
		Host:     net.JoinHostPort(host, e.str("DB_PORT", "5432")),
		Path:     "/" + e.str("DB_NAME", "taskmaster"),
		RawQuery: "sslmode=" + url.QueryEscape(e.str("DB_SSLMODE", "disable")),
	}
	return u.String()
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("env"); name != "" {
			return name
		}
		return f.Name
	})
	return v
}

// Validate checks field ranges, then the rules that span sections.
func (c *Config) Validate() error {
	var errs []error

	var verrs validator.ValidationErrors
	if err := validate.Struct(c); errors.As(err, &verrs) {
		for _, fe := range verrs {
			errs = append(errs, fieldError(fe))
		}
	} else if err != nil {
		errs = append(errs, err)
	}

	if c.App.Environment == EnvProduction && c.Database.URL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required in production"))
	}
	if c.Redis.EventsEnabled && !c.Redis.Enabled() {
		errs = append(errs, errors.New("REDIS_EVENTS_ENABLED needs REDIS_URL or REDIS_HOST"))
	}
	return errors.Join(errs...)
}

func fieldError(fe validator.FieldError) error {
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%s is required", fe.Field())
	case "oneof":
		return fmt.Errorf("%s %q is not one of %s", fe.Field(), fe.Value(), strings.ReplaceAll(fe.Param(), " ", ", "))
	case "ltefield":
		return fmt.Errorf("%s must not exceed %s", fe.Field(), "DB_MAX_CONNS")
	}
	if fe.Param() == "" {
		return fmt.Errorf("%s fails %s", fe.Field(), fe.Tag())
	}
	return fmt.Errorf("%s must be %s %s", fe.Field(), ruleText[fe.Tag()], fe.Param())
}

var ruleText = map[string]string{
	"min": "at least",
	"max": "at most",
	"gt":  "greater than",
	"gte": "at least",
}

func (c *Config) IsDevelopment() bool { return c.App.Environment == EnvDevelopment }
func (c *Config) IsProduction() bool  { return c.App.Environment == EnvProduction }

// env reads typed variables. A value that is set but does not parse is
// recorded in errs and the default is used.
type env struct {
	errs []error
}

func (e *env) str(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func parsed[T any](e *env, key string, def T, parse func(string) (T, error)) T {
	raw := e.str(key, "")
	if raw == "" {
		return def
	}
	v, err := parse(raw)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s=%q: %w", key, raw, err))
		return def
	}
	return v
}

func (e *env) integer(key string, def int) int {
	return parsed(e, key, def, strconv.Atoi)
}

func (e *env) boolean(key string, def bool) bool {
	return parsed(e, key, def, strconv.ParseBool)
}

func (e *env) duration(key string, def time.Duration) time.Duration {
	return parsed(e, key, def, time.ParseDuration)
}

// list splits a comma-separated value, dropping blank items.
func (e *env) list(key string, def []string) []string {
	return parsed(e, key, def, func(raw string) ([]string, error) {
		var out []string
		for _, item := range strings.Split(raw, ",") {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
		return out, nil
	})
}
