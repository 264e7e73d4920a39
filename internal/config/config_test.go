package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_ENV", "does-not-exist")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "release", cfg.Mode)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "redis", cfg.Storage)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, int64(32768), cfg.ReadLimit)
	assert.Equal(t, 54*time.Second, cfg.PingPeriod)
	assert.Equal(t, 20, cfg.MsgRateLimit)
	assert.Equal(t, 10*time.Second, cfg.MsgRateWindow)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "config"), 0o755))
	yaml := "mode: debug\nport: 7070\nstorage: memory\nmsg_rate_limit: 5\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config", "config.custom.yaml"), []byte(yaml), 0o644))
	oldWD, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(oldWD) })
	t.Setenv("CONFIG_ENV", "custom")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Mode)
	assert.Equal(t, 7070, cfg.Port)
	assert.Equal(t, "memory", cfg.Storage)
	assert.Equal(t, 5, cfg.MsgRateLimit)
	// untouched keys keep their defaults
	assert.Equal(t, 54*time.Second, cfg.PingPeriod)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("CONFIG_ENV", "does-not-exist")
	t.Setenv("PORT", "9090")
	t.Setenv("REDIS_ADDR", "redis.internal:6379")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "redis.internal:6379", cfg.RedisAddr)
}
