package config

import (
	"os"
	"strings"
	"time"
)

type AppConfig struct {
	// Server
	HTTPAddr       string
	GinMode        string
	AllowedOrigins []string

	// Storage
	StorageDriver  string // memory, redis, postgres
	RedisAddrs     []string
	RedisPass      string
	RedisCluster   bool
	DatabaseURL    string
	StorageTable   string
	SessionIdleTTL time.Duration

	// Portal
	AccessTablePath string
	PortalStaticDir string
	CookieSecure    bool
}

// Load loads environment variables into AppConfig.
func Load() AppConfig {
	return AppConfig{
		HTTPAddr:       getEnv("HTTP_ADDR", ":8000"),
		GinMode:        getEnv("GIN_MODE", ""),
		AllowedOrigins: getEnvSlice("ALLOWED_ORIGINS", []string{"http://localhost:4200"}),

		StorageDriver:  strings.ToLower(getEnv("STORAGE_DRIVER", "memory")),
		RedisAddrs:     getEnvSlice("REDIS_ADDR", []string{"localhost:6379"}),
		RedisPass:      getEnv("REDIS_PASS", ""),
		RedisCluster:   strings.ToLower(getEnv("REDIS_CLUSTER", "false")) == "true",
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		StorageTable:   getEnv("STORAGE_TABLE", "portal_storage"),
		SessionIdleTTL: getEnvDuration("SESSION_IDLE_TTL", 24*time.Hour),

		AccessTablePath: getEnv("ACCESS_TABLE_PATH", ""),
		PortalStaticDir: getEnv("PORTAL_STATIC_DIR", ""),
		CookieSecure:    strings.ToLower(getEnv("COOKIE_SECURE", "true")) == "true",
	}
}

// --- Helper functions ---

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
