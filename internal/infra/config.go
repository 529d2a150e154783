package infra

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string
	DBMaxConns  int

	StoragePath    string
	StorageBaseURL string
	GeoIPDBPath    string

	EbayAPIBaseURL     string
	EbayAccessToken    string
	ClassifierBaseURL  string
	ClassifierAPIKey   string
	ListerBaseURL      string
	ListerAPIKey       string
	PublishParallelism int

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	OutboundTimeout  time.Duration
	WorkerPollEvery  time.Duration
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:      getEnv("APP_ENV", "development"),
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		DBMaxConns:  getEnvInt("DB_MAX_CONNS", 10),

		StoragePath:    getEnv("STORAGE_PATH", "./storage"),
		StorageBaseURL: getEnv("STORAGE_BASE_URL", "http://localhost:8080/uploads"),
		GeoIPDBPath:    os.Getenv("GEOIP_DB_PATH"),

		EbayAPIBaseURL:     getEnv("EBAY_API_BASE_URL", "https://api.sandbox.ebay.com"),
		EbayAccessToken:    os.Getenv("EBAY_ACCESS_TOKEN"),
		ClassifierBaseURL:  os.Getenv("CLASSIFIER_BASE_URL"),
		ClassifierAPIKey:   os.Getenv("CLASSIFIER_API_KEY"),
		ListerBaseURL:      os.Getenv("LISTER_BASE_URL"),
		ListerAPIKey:       os.Getenv("LISTER_API_KEY"),
		PublishParallelism: getEnvInt("PUBLISH_PARALLELISM", 4),

		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		OutboundTimeout:  time.Second * time.Duration(getEnvInt("OUTBOUND_TIMEOUT_SECONDS", 30)),
		WorkerPollEvery:  time.Second * time.Duration(getEnvInt("WORKER_POLL_SECONDS", 2)),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.PublishParallelism <= 0 {
		cfg.PublishParallelism = 1
	}
	if cfg.DBMaxConns <= 0 {
		cfg.DBMaxConns = 10
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
