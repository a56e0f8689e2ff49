package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("DATA_DIR", "/var/lib/relay")
	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("HTTP_ADDR", ":8080")
	t.Setenv("DB_PATH", "")
	t.Setenv("BADGER_DIR", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://api.telegram.org", cfg.APIBaseURL)
	assert.Equal(t, 30*time.Second, cfg.PollTimeout)
	assert.Equal(t, BackendSQLite, cfg.Backend)
	assert.Equal(t, filepath.Join("/var/lib/relay", "development.db"), cfg.DBPath)
	assert.Equal(t, filepath.Join("/var/lib/relay", "development.badger"), cfg.BadgerDir)
	assert.True(t, cfg.HTTPEnabled())
	assert.ErrorIs(t, cfg.Validate(), ErrMissingToken)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("STORE_BACKEND", "badger")
	t.Setenv("POLL_TIMEOUT", "5s")
	t.Setenv("DATA_DIR", "/tmp/relay")
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("BADGER_DIR", "")
	t.Setenv("HTTP_ADDR", "off")

	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 5*time.Second, cfg.PollTimeout)
	assert.Equal(t, filepath.Join("/tmp/relay", "production.badger"), cfg.BadgerDir)
	assert.False(t, cfg.HTTPEnabled())
}

func TestApplyArgs(t *testing.T) {
	cfg := &Config{Backend: BackendSQLite, BotToken: "from-env"}
	require.NoError(t, cfg.ApplyArgs([]string{"from-arg"}))
	assert.Equal(t, "from-arg", cfg.BotToken)

	require.NoError(t, cfg.ApplyArgs([]string{"-token", "from-flag", "-db", "/tmp/x.db"}))
	assert.Equal(t, "from-flag", cfg.BotToken)
	assert.Equal(t, "/tmp/x.db", cfg.DBPath)

	require.NoError(t, cfg.ApplyArgs(nil))
	assert.Equal(t, "from-flag", cfg.BotToken, "no args keeps the current token")
}

func TestValidate(t *testing.T) {
	cfg := &Config{BotToken: "t", Backend: "mongo"}
	assert.Error(t, cfg.Validate())

	cfg = &Config{BotToken: "t", Backend: BackendPostgres, PollTimeout: -time.Second}
	assert.Error(t, cfg.Validate())
}

func TestMaskedToken(t *testing.T) {
	assert.Equal(t, "***", (&Config{BotToken: "abc"}).MaskedToken())
	assert.Equal(t, "***456789", (&Config{BotToken: "123:secret456789"}).MaskedToken())
}
