package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Cache    CacheConfig
	Hydrator HydratorConfig
	Sync     SyncConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
}

type DatabaseConfig struct {
	Connection string
}

type CacheConfig struct {
	MaxSizeMB       int
	MaxItems        int
	LRUThreshold    float64
	CleanupInterval time.Duration
}

type HydratorConfig struct {
	CacheTTL    time.Duration
	RetryWindow time.Duration
}

type SyncConfig struct {
	// Content blobs get a longer window than the small widget documents.
	ContentConnectTimeout time.Duration
	WidgetConnectTimeout  time.Duration
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/pinboard.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Cache: CacheConfig{
			MaxSizeMB:       getEnvAsInt("MAX_CONTENT_CACHE_MB", 100),
			MaxItems:        getEnvAsInt("MAX_CONTENT_CACHE_ITEMS", 1000),
			LRUThreshold:    getEnvAsFloat("LRU_THRESHOLD", 0.8),
			CleanupInterval: time.Duration(getEnvAsInt("CACHE_CLEANUP_INTERVAL_SECONDS", 300)) * time.Second,
		},
		Hydrator: HydratorConfig{
			CacheTTL:    time.Duration(getEnvAsInt("HYDRATION_CACHE_TTL_MS", 5000)) * time.Millisecond,
			RetryWindow: time.Duration(getEnvAsInt("CONTENT_RETRY_WINDOW_SECONDS", 30)) * time.Second,
		},
		Sync: SyncConfig{
			ContentConnectTimeout: time.Duration(getEnvAsInt("SYNC_CONTENT_TIMEOUT_SECONDS", 10)) * time.Second,
			WidgetConnectTimeout:  time.Duration(getEnvAsInt("SYNC_WIDGET_TIMEOUT_SECONDS", 5)) * time.Second,
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}
