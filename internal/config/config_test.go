package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DAILY_SCAN_LIMIT", "")
	t.Setenv("FREE_SAVED_ITEMS_LIMIT", "")
	t.Setenv("PLAN_RETRY_BASE", "")
	t.Setenv("PLAN_MAX_RETRIES", "")

	cfg := Load()

	assert.Equal(t, 30, cfg.DailyScanLimit)
	assert.Equal(t, 20, cfg.FreeSavedItemsLimit)
	assert.Equal(t, time.Second, cfg.PlanRetryBase)
	assert.Equal(t, 3, cfg.PlanMaxRetries)
	assert.Equal(t, 15*time.Minute, cfg.JWTAccessExpiry)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DAILY_SCAN_LIMIT", "5")
	t.Setenv("PLAN_RETRY_BASE", "250ms")
	t.Setenv("API_BASE_URL", "https://api.example.com/api")

	cfg := Load()

	assert.Equal(t, 5, cfg.DailyScanLimit)
	assert.Equal(t, 250*time.Millisecond, cfg.PlanRetryBase)
	assert.Equal(t, "https://api.example.com/api", cfg.APIBaseURL)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("DAILY_SCAN_LIMIT", "lots")
	t.Setenv("PLAN_MAX_RETRIES", "-2")
	t.Setenv("JWT_ACCESS_EXPIRY", "soon")

	cfg := Load()

	assert.Equal(t, 30, cfg.DailyScanLimit)
	assert.Equal(t, 3, cfg.PlanMaxRetries)
	assert.Equal(t, 15*time.Minute, cfg.JWTAccessExpiry)
}

func TestDSN(t *testing.T) {
	cfg := &Config{DBHost: "db", DBUser: "u", DBPassword: "p", DBName: "n", DBPort: "5432", DBSSLMode: "disable"}
	assert.Equal(t, "host=db user=u password=p dbname=n port=5432 sslmode=disable TimeZone=UTC", cfg.DSN())
}
