package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notteru/internal/config"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("loads values from yaml", func(t *testing.T) {
		path := writeConfigFile(t, `
telegram:
  bot_token: "123456:ABC"
  admin_id: 42
  channel_id: -100123
store:
  path: /tmp/test.db
`)
		cfg, err := config.Load(path)
		require.NoError(t, err)
		assert.Equal(t, "123456:ABC", cfg.Telegram.BotToken)
		assert.Equal(t, int64(42), cfg.Telegram.AdminID)
		assert.Equal(t, int64(-100123), cfg.Telegram.ChannelID)
		assert.Equal(t, "/tmp/test.db", cfg.Store.Path)
		assert.Equal(t, ":8080", cfg.Server.ListenAddr)
	})

	t.Run("environment overrides file", func(t *testing.T) {
		path := writeConfigFile(t, `
telegram:
  bot_token: "file-token"
  admin_id: 42
  channel_id: 1
`)
		t.Setenv("BOT_TOKEN", "env-token")
		t.Setenv("ADMIN_ID", "99")

		cfg, err := config.Load(path)
		require.NoError(t, err)
		assert.Equal(t, "env-token", cfg.Telegram.BotToken)
		assert.Equal(t, int64(99), cfg.Telegram.AdminID)
	})

	t.Run("missing bot token is fatal", func(t *testing.T) {
		path := writeConfigFile(t, `
telegram:
  admin_id: 42
  channel_id: 1
`)
		_, err := config.Load(path)
		require.Error(t, err)
	})

	t.Run("missing admin id is fatal", func(t *testing.T) {
		path := writeConfigFile(t, `
telegram:
  bot_token: "123456:ABC"
  channel_id: 1
`)
		_, err := config.Load(path)
		require.Error(t, err)
	})

	t.Run("malformed admin id env is an error", func(t *testing.T) {
		path := writeConfigFile(t, `
telegram:
  bot_token: "123456:ABC"
  admin_id: 42
  channel_id: 1
`)
		t.Setenv("ADMIN_ID", "not-a-number")
		_, err := config.Load(path)
		require.Error(t, err)
	})

	t.Run("env alone is sufficient", func(t *testing.T) {
		t.Setenv("BOT_TOKEN", "123456:ABC")
		t.Setenv("ADMIN_ID", "42")
		t.Setenv("CHANNEL_ID", "-100123")
		t.Setenv("NOTTERU_DB_PATH", "/tmp/env.db")

		cfg, err := config.Load("")
		require.NoError(t, err)
		assert.Equal(t, "/tmp/env.db", cfg.Store.Path)
		assert.Equal(t, int64(-100123), cfg.Telegram.ChannelID)
	})
}
