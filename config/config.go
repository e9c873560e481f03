package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Store backends.
const (
	BackendMemory    = "memory"
	BackendSQLite    = "sqlite"
	BackendFirestore = "firestore"
)

type Config struct {
	Addr             string
	Environment      string
	StoreBackend     string
	SQLitePath       string
	FirestoreProject string
	FlushInterval    time.Duration
	LogLevel         string
	LogFormat        string // text or json

	// YAML files read at startup, "" for none.
	SchemaFile      string
	CollectionsFile string
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	flush, err := time.ParseDuration(getEnv("FLUSH_INTERVAL", "2s"))
	if err != nil {
		return nil, fmt.Errorf("FLUSH_INTERVAL: %w", err)
	}
	return &Config{
		Addr:             getEnv("ADDR", ":8080"),
		Environment:      getEnv("ENVIRONMENT", "dev"),
		StoreBackend:     getEnv("STORE_BACKEND", BackendMemory),
		SQLitePath:       getEnv("SQLITE_PATH", "cms.db"),
		FirestoreProject: getEnv("FIRESTORE_PROJECT", ""),
		FlushInterval:    flush,
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogFormat:        getEnv("LOG_FORMAT", "text"),
		SchemaFile:       getEnv("SCHEMA_FILE", ""),
		CollectionsFile:  getEnv("COLLECTIONS_FILE", ""),
	}, nil
}

func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Addr, validation.Required),
		validation.Field(&c.StoreBackend,
			validation.Required,
			validation.In(BackendMemory, BackendSQLite, BackendFirestore),
		),
		validation.Field(&c.SQLitePath,
			validation.When(c.StoreBackend == BackendSQLite, validation.Required),
		),
		validation.Field(&c.FirestoreProject,
			validation.When(c.StoreBackend == BackendFirestore, validation.Required),
		),
		validation.Field(&c.FlushInterval, validation.Min(time.Millisecond)),
		validation.Field(&c.LogLevel, validation.In("debug", "info", "warn", "error")),
		validation.Field(&c.LogFormat, validation.In("text", "json")),
	)
}

// Level returns the slog level named by LogLevel.
func (c *Config) Level() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
