package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
log:
  level: debug
  pretty: false
telegram:
  token: file-token
  username: lotto_bot
  admin_ids: [10, 20]
http:
  port: "9000"
  gateway: false
nats:
  url: nats://nats:4222
redis:
  addr: redis:6379
  ttl: 90s
`

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	t.Setenv("TELEGRAM_TOKEN", "env-token")
	t.Setenv("TELEGRAM_ADMIN_IDS", "1, 2,x")
	t.Setenv("DB_DRIVER", "memory")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.False(t, cfg.Log.Pretty)
	assert.Equal(t, "env-token", cfg.Telegram.Token)
	assert.Equal(t, "lotto_bot", cfg.Telegram.Username)
	assert.Equal(t, []int64{1, 2}, cfg.Telegram.AdminIDs)
	assert.Equal(t, 16, cfg.Telegram.Concurrency)
	assert.Equal(t, "9000", cfg.HTTP.Port)
	assert.False(t, cfg.HTTP.Gateway)
	assert.Equal(t, "nats://nats:4222", cfg.NATS.URL)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, 90*time.Second, cfg.Redis.TTL)
	assert.Equal(t, "memory", cfg.Database.Driver)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "8080", cfg.HTTP.Port)
	assert.True(t, cfg.HTTP.Gateway)
	assert.Equal(t, 5*time.Minute, cfg.Redis.TTL)
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log: [unclosed"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}
