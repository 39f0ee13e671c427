package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// JWT
	JWTSecret        string
	JWTAccessExpiry  time.Duration
	JWTRefreshExpiry time.Duration

	// Store webhooks
	RevenueCatWebhookAuth string

	// Server
	Port         string
	CORSOrigins  string
	CatalogPath  string
	LogRetention time.Duration

	// Device client
	APIBaseURL          string
	StateDBPath         string
	DailyScanLimit      int
	FreeSavedItemsLimit int
	PlanRetryBase       time.Duration
	PlanMaxRetries      int
	HTTPTimeout         time.Duration
}

// NoPlanRetries in PlanMaxRetries disables plan retries. Zero means the default.
const NoPlanRetries = -1

func Load() *Config {
	return &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "safescan"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		JWTSecret:        getEnv("JWT_SECRET", ""),
		JWTAccessExpiry:  parseDuration(getEnv("JWT_ACCESS_EXPIRY", "15m"), 15*time.Minute),
		JWTRefreshExpiry: parseDuration(getEnv("JWT_REFRESH_EXPIRY", "168h"), 168*time.Hour),

		RevenueCatWebhookAuth: getEnv("REVENUECAT_WEBHOOK_AUTH", ""),

		Port:         getEnv("PORT", "8080"),
		CORSOrigins:  getEnv("CORS_ORIGINS", "*"),
		CatalogPath:  getEnv("CATALOG_PATH", "catalog.yaml"),
		LogRetention: parseDuration(getEnv("LOG_RETENTION", "720h"), 720*time.Hour),

		APIBaseURL:          getEnv("API_BASE_URL", "http://localhost:8080/api"),
		StateDBPath:         getEnv("STATE_DB_PATH", "safescan.db"),
		DailyScanLimit:      parseInt(getEnv("DAILY_SCAN_LIMIT", "30"), 30),
		FreeSavedItemsLimit: parseInt(getEnv("FREE_SAVED_ITEMS_LIMIT", "20"), 20),
		PlanRetryBase:       parseDuration(getEnv("PLAN_RETRY_BASE", "1s"), time.Second),
		PlanMaxRetries:      parseInt(getEnv("PLAN_MAX_RETRIES", "3"), 3),
		HTTPTimeout:         parseDuration(getEnv("HTTP_TIMEOUT", "15s"), 15*time.Second),
	}
}

func (c *Config) DSN() string {
	return "host=" + c.DBHost +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" port=" + c.DBPort +
		" sslmode=" + c.DBSSLMode +
		" TimeZone=UTC"
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return fallback
	}
	return d
}

func parseInt(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
