package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xaenox/gpt-vault/internal/storage"
)

func TestLoadConfig_DefaultsWithoutFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, storage.DriverSQLite, cfg.Storage.Driver)
	assert.Equal(t, "gpt-vault.db", cfg.Storage.SQLitePath)
	assert.Equal(t, 2*time.Second, cfg.Chat.TypingDelay)
	assert.Equal(t, time.Second, cfg.Identity.LoginDelay)
	assert.Equal(t, 10, cfg.Identity.HashCost)
	assert.Equal(t, "gpt-user", cfg.Console.SessionKey)
	assert.False(t, cfg.Log.Development)
}

func TestLoadConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
telegram:
  token: "file-token"
storage:
  driver: redis
  redis:
    addr: "cache:6379"
    db: 2
chat:
  typing_delay: 500ms
log:
  development: true
`), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "file-token", cfg.Telegram.Token)
	assert.Equal(t, storage.DriverRedis, cfg.Storage.Driver)
	assert.Equal(t, "cache:6379", cfg.Storage.Redis.Addr)
	assert.Equal(t, 2, cfg.Storage.Redis.DB)
	assert.Equal(t, 500*time.Millisecond, cfg.Chat.TypingDelay)
	assert.True(t, cfg.Log.Development)

	opts := cfg.StorageOptions()
	assert.Equal(t, storage.DriverRedis, opts.Driver)
	assert.Equal(t, "cache:6379", opts.Redis.Addr)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("TELEGRAM_TOKEN", "env-token")
	t.Setenv("DATABASE_URL", "postgres://bob:pw@db.internal:6543/vault?sslmode=require")
	t.Setenv("CHAT_TYPING_DELAY", "3s")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "env-token", cfg.Telegram.Token)
	assert.Equal(t, 3*time.Second, cfg.Chat.TypingDelay)
	assert.Equal(t, storage.DriverPostgres, cfg.Storage.Driver)
	assert.Equal(t, DatabaseConfig{
		Host:     "db.internal",
		Port:     6543,
		User:     "bob",
		Password: "pw",
		DBName:   "vault",
		SSLMode:  "require",
	}, cfg.Storage.Postgres)
}

func TestLoadConfig_RedisURL(t *testing.T) {
	t.Setenv("REDIS_URL", "redis://:hunter2@localhost:6380/3")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, storage.DriverRedis, cfg.Storage.Driver)
	assert.Equal(t, RedisConfig{Addr: "localhost:6380", Password: "hunter2", DB: 3}, cfg.Storage.Redis)
}

func TestParseRedisURL_BadDB(t *testing.T) {
	_, err := parseRedisURL("redis://localhost:6379/zero")
	assert.Error(t, err)
}
