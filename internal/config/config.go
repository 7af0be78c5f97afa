package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Backend string

const (
	BackendFile     Backend = "file"
	BackendMemory   Backend = "memory"
	BackendRedis    Backend = "redis"
	BackendPostgres Backend = "postgres"
	BackendSQLite   Backend = "sqlite"
)

type Config struct {
	Port     string
	LogLevel string

	Backend     Backend
	DataFile    string
	RedisAddr   string
	RedisKey    string
	DatabaseURL string
	SQLitePath  string

	BreakerMaxFailures uint32
	BreakerOpenTimeout time.Duration

	MetricsEnabled    bool
	MetricsToken      string
	ReviewLimitPerMin int
}

// Load reads an optional .env file and then the process environment.
// Variables already set in the environment win over .env entries.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv(os.Getenv)
}

func FromEnv(getenv func(string) string) (Config, error) {
	e := env{get: getenv}

	cfg := Config{
		Port:     e.str("PORT", "3000"),
		LogLevel: e.str("LOG_LEVEL", "info"),

		Backend:     Backend(strings.ToLower(e.str("STORE_BACKEND", string(BackendFile)))),
		DataFile:    e.str("DATA_FILE", "data/products.json"),
		RedisAddr:   e.str("REDIS_ADDR", "localhost:6379"),
		RedisKey:    e.str("REDIS_KEY", "catalog:products"),
		DatabaseURL: e.str("DATABASE_URL", ""),
		SQLitePath:  e.str("SQLITE_PATH", "data/catalog.db"),

		BreakerMaxFailures: uint32(e.int("BREAKER_MAX_FAILURES", 5)),
		BreakerOpenTimeout: e.duration("BREAKER_OPEN_TIMEOUT", 30*time.Second),

		MetricsEnabled:    e.bool("METRICS_ENABLED", true),
		MetricsToken:      e.str("METRICS_TOKEN", ""),
		ReviewLimitPerMin: e.int("REVIEW_LIMIT_PER_MIN", 30),
	}

	if e.err != nil {
		return Config{}, e.err
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	switch c.Backend {
	case BackendFile, BackendMemory, BackendRedis, BackendSQLite:
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.Backend)
	}
	return nil
}

type env struct {
	get func(string) string
	err error
}

func (e *env) str(k, def string) string {
	if v := strings.TrimSpace(e.get(k)); v != "" {
		return v
	}
	return def
}

func (e *env) int(k string, def int) int {
	v := strings.TrimSpace(e.get(k))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		e.fail(k, v)
		return def
	}
	return n
}

func (e *env) bool(k string, def bool) bool {
	v := strings.TrimSpace(e.get(k))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.fail(k, v)
		return def
	}
	return b
}

func (e *env) duration(k string, def time.Duration) time.Duration {
	v := strings.TrimSpace(e.get(k))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.fail(k, v)
		return def
	}
	return d
}

func (e *env) fail(k, v string) {
	if e.err == nil {
		e.err = fmt.Errorf("invalid %s=%q", k, v)
	}
}
