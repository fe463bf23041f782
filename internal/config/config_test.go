package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("DB_DSN", "postgres://localhost/lessons")
	for _, key := range []string{"ENV", "LOG_LEVEL", "HTTP_ADDR", "TIMEZONE", "STORE", "LOCK_BACKEND", "NATS_URL", "TELEGRAM_TOKEN", "STAFF_TOKEN",
		"DEFAULT_LESSON_MINUTES", "DEFAULT_MAX_GYMNASTS", "MAX_RANGE_DAYS", "RATE_LIMIT_PER_MINUTE", "MIGRATE_ON_START"} {
		t.Setenv(key, "")
	}

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, StorePostgres, cfg.Store)
	assert.Equal(t, LockNone, cfg.LockBackend)
	assert.Equal(t, 30, cfg.DefaultLessonMinutes)
	assert.Equal(t, 1, cfg.DefaultMaxGymnasts)
	assert.Equal(t, 62, cfg.MaxRangeDays)
	assert.Equal(t, 120, cfg.RateLimitPerMinute)
	assert.True(t, cfg.MigrateOnStart)
	assert.False(t, cfg.BotEnabled())
	assert.Empty(t, cfg.StaffToken)
	assert.Equal(t, "UTC", cfg.Location.String())
}

func TestFromEnv_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "missing dsn", env: map[string]string{"DB_DSN": "", "STORE": "postgres"}},
		{name: "bad store", env: map[string]string{"STORE": "mongo"}},
		{name: "bad lock", env: map[string]string{"STORE": "memory", "LOCK_BACKEND": "etcd"}},
		{name: "non numeric duration", env: map[string]string{"STORE": "memory", "DEFAULT_LESSON_MINUTES": "half"}},
		{name: "zero capacity", env: map[string]string{"STORE": "memory", "DEFAULT_MAX_GYMNASTS": "0"}},
		{name: "bad bool", env: map[string]string{"STORE": "memory", "MIGRATE_ON_START": "maybe"}},
		{name: "bad timezone", env: map[string]string{"STORE": "memory", "TIMEZONE": "Mars/Olympus"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DB_DSN", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}

func TestFromEnv_MemoryStoreWithoutDSN(t *testing.T) {
	t.Setenv("DB_DSN", "")
	t.Setenv("STORE", "Memory")
	t.Setenv("LOCK_BACKEND", "redis")
	t.Setenv("TIMEZONE", "Europe/Moscow")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "0")
	t.Setenv("TELEGRAM_TOKEN", "123:abc")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, StoreMemory, cfg.Store)
	assert.Equal(t, LockRedis, cfg.LockBackend)
	assert.Equal(t, 0, cfg.RateLimitPerMinute)
	assert.True(t, cfg.BotEnabled())
	assert.Equal(t, "Europe/Moscow", cfg.Location.String())
}
