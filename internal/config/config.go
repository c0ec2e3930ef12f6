// Package config loads process configuration from the environment.
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

// Storage backends.
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Config is the full process configuration.
type Config struct {
	Env      string
	LogLevel string
	Port     string

	Storage            string
	DatabaseURL        string
	DBMaxConns         int32
	DBMinConns         int32
	TxStatementTimeout time.Duration

	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	ProductCacheTTL time.Duration

	JWTSecret string
	JWTIssuer string

	CodePrefix string

	// MaxImportSize caps uploaded count sheets in bytes.
	MaxImportSize int64
}

// Load reads an optional .env file and then the environment.
// Variables already set in the environment win over .env values.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from environment variables only.
func FromEnv() (Config, error) {
	var errs []error
	intVar := func(key string, def int) int {
		v, err := getEnvInt(key, def)
		if err != nil {
			errs = append(errs, err)
		}
		return v
	}
	durVar := func(key string, def time.Duration) time.Duration {
		v, err := getEnvDuration(key, def)
		if err != nil {
			errs = append(errs, err)
		}
		return v
	}

	cfg := Config{
		Env:                getEnv("APP_ENV", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		Port:               getEnv("APP_PORT", "8080"),
		Storage:            strings.ToLower(getEnv("STORAGE", StoragePostgres)),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		DBMaxConns:         int32(intVar("DB_MAX_CONNS", 20)),
		DBMinConns:         int32(intVar("DB_MIN_CONNS", 2)),
		TxStatementTimeout: durVar("TX_STATEMENT_TIMEOUT", 30*time.Second),
		RedisAddr:          os.Getenv("REDIS_ADDR"),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		RedisDB:            intVar("REDIS_DB", 0),
		ProductCacheTTL:    durVar("PRODUCT_CACHE_TTL", 10*time.Minute),
		JWTSecret:          strings.TrimSpace(os.Getenv("JWT_SECRET")),
		JWTIssuer:          getEnv("JWT_ISSUER", "backoffice"),
		CodePrefix:         getEnv("CODE_PREFIX", "SO"),
		MaxImportSize:      int64(intVar("MAX_IMPORT_SIZE", 10<<20)),
	}
	if len(errs) > 0 {
		return Config{}, errors.Join(errs...)
	}
	return cfg, nil
}

// IsDevelopment reports whether the process runs in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Address is the HTTP listen address.
func (c Config) Address() string {
	return ":" + c.Port
}

// Validate checks combinations Load cannot check field by field.
func (c Config) Validate() error {
	var errs []error

	switch c.Storage {
	case StoragePostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required when STORAGE=postgres"))
		}
	case StorageMemory:
	default:
		errs = append(errs, fmt.Errorf("STORAGE must be %q or %q, got %q", StoragePostgres, StorageMemory, c.Storage))
	}

	if c.JWTSecret == "" && !c.IsDevelopment() {
		errs = append(errs, errors.New("JWT_SECRET is required outside development"))
	}
	if c.DBMinConns > c.DBMaxConns {
		errs = append(errs, fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns))
	}
	if strings.TrimSpace(c.CodePrefix) == "" {
		errs = append(errs, errors.New("CODE_PREFIX must not be empty"))
	}
	if c.MaxImportSize <= 0 {
		errs = append(errs, fmt.Errorf("MAX_IMPORT_SIZE must be positive, got %d", c.MaxImportSize))
	}

	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not an integer", key, value)
	}
	return n, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not a duration", key, value)
	}
	return d, nil
}
