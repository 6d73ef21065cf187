package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")

	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.AppPort)
	assert.Equal(t, "123:abc", cfg.BotToken)
	assert.Equal(t, 24*time.Hour, cfg.InitDataExpiresIn)
	assert.Equal(t, 7*24*time.Hour, cfg.SessionMaxAge)
	assert.Equal(t, AuthAdvisory, cfg.ChatAuthPolicy)
	assert.Equal(t, []string{"https://web.telegram.org", "https://telegram.org"}, cfg.FrameAncestors)
	assert.False(t, cfg.IsProduction())
}

func TestParseOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "Production")
	t.Setenv("CHAT_AUTH_POLICY", "required")
	t.Setenv("INIT_DATA_EXPIRES_IN", "1h")
	t.Setenv("FRAME_ANCESTORS", "https://a.example,https://b.example")

	cfg, err := Parse()
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, AuthRequired, cfg.ChatAuthPolicy)
	assert.Equal(t, time.Hour, cfg.InitDataExpiresIn)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.FrameAncestors)
}

func TestParseRejectsUnknownPolicy(t *testing.T) {
	t.Setenv("CHAT_AUTH_POLICY", "sometimes")

	_, err := Parse()
	assert.Error(t, err)
}
