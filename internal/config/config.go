package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorageMemory   = "memory"
	StorageFile     = "file"
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
)

type Config struct {
	HTTP                  HTTPConfig
	API                   APIConfig
	Storage               StorageConfig
	DatabaseURL           string
	AuditLogFile          string
	LogLevel              string
	DiscardStaleResponses bool
}

type HTTPConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type APIConfig struct {
	BaseURL string
	// RequestTimeout of zero disables the per-request timeout.
	RequestTimeout time.Duration
}

type StorageConfig struct {
	Driver    string
	Path      string
	Namespace string
}

// Load reads the environment after merging the optional .env file named by
// ENV_FILE (default ".env"). Variables already set win over the file.
func Load() (Config, error) {
	if err := loadDotEnv(os.Getenv("ENV_FILE")); err != nil {
		return Config{}, err
	}

	driver := strings.ToLower(getEnv("STORAGE_DRIVER", StorageFile))
	cfg := Config{
		HTTP: HTTPConfig{
			Addr:            getEnv("HTTP_ADDR", ":3000"),
			ReadTimeout:     time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SEC", 10)) * time.Second,
			WriteTimeout:    time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SEC", 30)) * time.Second,
			ShutdownTimeout: time.Duration(getEnvInt("HTTP_SHUTDOWN_TIMEOUT_SEC", 20)) * time.Second,
		},
		API: APIConfig{
			BaseURL:        strings.TrimRight(getEnv("API_BASE_URL", "http://localhost:8080/api"), "/"),
			RequestTimeout: time.Duration(getEnvInt("API_REQUEST_TIMEOUT_SEC", 0)) * time.Second,
		},
		Storage: StorageConfig{
			Driver:    driver,
			Path:      getEnv("STORAGE_PATH", defaultStoragePath(driver)),
			Namespace: getEnv("STORAGE_NAMESPACE", "default"),
		},
		DatabaseURL:           getEnv("DATABASE_URL", ""),
		AuditLogFile:          getEnv("AUDIT_LOG_FILE", "./data/activity.log"),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		DiscardStaleResponses: getEnvBool("DISCARD_STALE_RESPONSES", false),
	}

	if cfg.HTTP.Addr == "" {
		return Config{}, fmt.Errorf("HTTP_ADDR must not be empty")
	}
	if cfg.HTTP.ShutdownTimeout <= 0 {
		return Config{}, fmt.Errorf("HTTP_SHUTDOWN_TIMEOUT_SEC must be > 0")
	}
	u, err := url.Parse(cfg.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return Config{}, fmt.Errorf("API_BASE_URL must be an absolute http(s) url")
	}
	if cfg.API.RequestTimeout < 0 {
		return Config{}, fmt.Errorf("API_REQUEST_TIMEOUT_SEC must be >= 0")
	}
	switch cfg.Storage.Driver {
	case StorageMemory, StorageFile, StorageSQLite:
	case StoragePostgres:
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL must not be empty when STORAGE_DRIVER=postgres")
		}
	default:
		return Config{}, fmt.Errorf("STORAGE_DRIVER must be one of memory, file, sqlite, postgres")
	}
	if cfg.Storage.Namespace == "" {
		return Config{}, fmt.Errorf("STORAGE_NAMESPACE must not be empty")
	}
	if cfg.AuditLogFile == "" {
		return Config{}, fmt.Errorf("AUDIT_LOG_FILE must not be empty")
	}

	return cfg, nil
}

func defaultStoragePath(driver string) string {
	switch driver {
	case StorageSQLite:
		return "./data/local_storage.db"
	case StorageFile:
		return "./data/local_storage.json"
	}
	return ""
}

// loadDotEnv merges path into the environment. A missing default .env is not
// an error; a missing explicitly named file is.
func loadDotEnv(path string) error {
	explicit := path != ""
	if !explicit {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

func getEnv(key, fallback string) string {
	val, ok := os.LookupEnv(key)
	if !ok || val == "" {
		return fallback
	}
	return val
}

func getEnvInt(key string, fallback int) int {
	val, ok := os.LookupEnv(key)
	if !ok || val == "" {
		return fallback
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	val, ok := os.LookupEnv(key)
	if !ok || val == "" {
		return fallback
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return b
}
