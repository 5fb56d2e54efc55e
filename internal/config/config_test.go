package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Address())
	assert.Equal(t, "https://universalis.app/api/v2", cfg.PriceAPI.Endpoint)
	assert.Equal(t, 15*time.Second, cfg.PriceAPI.Timeout)
	assert.Equal(t, 10, cfg.PriceAPI.BatchSize)
	assert.Equal(t, "sqlite", cfg.Storage.Type)
	assert.Empty(t, cfg.Auth.Keys())
	assert.False(t, cfg.UsesRedis())

	st := cfg.Scheduler.Settings()
	assert.Equal(t, 30, st.IntervalMinutes)
	assert.True(t, st.SchedulerEnabled)
	assert.True(t, st.IgnoreTax)
	assert.True(t, st.SameQualityOnly)
	assert.Equal(t, 5, st.SpamLimit)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("SCHEDULER_INTERVAL_MINUTES", "45")
	t.Setenv("SCHEDULER_SPAM_LIMIT", "2")
	t.Setenv("REGION_DEFAULT", "Light")
	t.Setenv("STORAGE_TYPE", "postgres")
	t.Setenv("STORAGE_DB_HOST", "db")
	t.Setenv("API_KEYS", "alpha, ,beta")
	t.Setenv("NOTIFY_REDIS_CHANNEL", "alerts")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 45, cfg.Scheduler.IntervalMinutes)
	assert.Equal(t, 2, cfg.Scheduler.SpamLimit)
	assert.Equal(t, "Light", cfg.Region.Default)
	assert.Equal(t, "postgres://postgres:@db:5432/pricenotifier?sslmode=disable", cfg.Storage.PostgresDSN())
	assert.Equal(t, []string{"alpha", "beta"}, cfg.Auth.Keys())
	assert.True(t, cfg.UsesRedis())
}

func TestLoad_RejectsOutOfBounds(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{"interval too short", "SCHEDULER_INTERVAL_MINUTES", "4"},
		{"interval too long", "SCHEDULER_INTERVAL_MINUTES", "121"},
		{"negative spam limit", "SCHEDULER_SPAM_LIMIT", "-1"},
		{"batch size zero", "PRICE_API_BATCH_SIZE", "0"},
		{"unknown storage", "STORAGE_TYPE", "mongodb"},
		{"bad webhook", "NOTIFY_WEBHOOK_URL", "not a url"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.ErrorContains(t, err, "invalid config")
		})
	}
}

func TestLoad_ParseError(t *testing.T) {
	t.Setenv("PRICE_API_TIMEOUT", "soon")
	_, err := Load()
	assert.ErrorContains(t, err, "failed to load config")
}

func TestStorageConfig_DBPort(t *testing.T) {
	tests := []struct {
		name     string
		storage  string
		port     string
		expected int
	}{
		{"postgres default", "postgres", "", 5432},
		{"mysql default", "mysql", "", 3306},
		{"mysql explicit", "mysql", "3307", 3307},
		{"postgres explicit", "postgres", "6543", 6543},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("STORAGE_TYPE", tt.storage)
			if tt.port != "" {
				t.Setenv("STORAGE_DB_PORT", tt.port)
			}
			cfg, err := Load()
			require.NoError(t, err)
			assert.Equal(t, tt.expected, cfg.Storage.DBPort())
		})
	}
}

func TestLoad_RegionTTL(t *testing.T) {
	t.Setenv("REGION_TTL", "90s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, cfg.Region.TTL)
}
