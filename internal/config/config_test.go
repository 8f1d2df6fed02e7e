package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "ALLOWED_ORIGINS", "ARK_API_KEY", "Model", "AI_HISTORY_LIMIT",
		"PRACTICE_TURN_LIMIT", "PRACTICE_REVEAL_DELAY", "PRACTICE_SUMMARY_DELAY",
		"PRACTICE_CHARACTER", "LOG_LEVEL", "LOG_FORMAT", "AI_COACH_LLM_ENABLED",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 5, cfg.Practice.TurnLimit)
	assert.Equal(t, 800*time.Millisecond, cfg.Practice.RevealDelay)
	assert.Equal(t, time.Second, cfg.Practice.SummaryDelay)
	assert.Equal(t, "mio", cfg.Practice.CharacterID)
	assert.Equal(t, 10, cfg.AI.HistoryLimit)
	assert.True(t, cfg.AI.CoachLLMEnabled)
	assert.False(t, cfg.AI.Enabled())
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Log.JSON)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "127.0.0.1:9000")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test, http://b.test ,")
	t.Setenv("PRACTICE_TURN_LIMIT", "3")
	t.Setenv("PRACTICE_REVEAL_DELAY", "250")
	t.Setenv("PRACTICE_SUMMARY_DELAY", "1.5s")
	t.Setenv("LOG_FORMAT", "JSON")
	t.Setenv("ARK_API_KEY", "key")
	t.Setenv("Model", "doubao")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 3, cfg.Practice.TurnLimit)
	assert.Equal(t, 250*time.Millisecond, cfg.Practice.RevealDelay)
	assert.Equal(t, 1500*time.Millisecond, cfg.Practice.SummaryDelay)
	assert.True(t, cfg.Log.JSON)
	assert.True(t, cfg.AI.Enabled())
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := map[string][2]string{
		"port with space":  {"PORT", "80 80"},
		"turn limit":       {"PRACTICE_TURN_LIMIT", "five"},
		"zero turn limit":  {"PRACTICE_TURN_LIMIT", "0"},
		"reveal delay":     {"PRACTICE_REVEAL_DELAY", "soon"},
		"coach flag":       {"AI_COACH_LLM_ENABLED", "maybe"},
		"temperature":      {"ARK_TEMPERATURE", "hot"},
		"negative summary": {"PRACTICE_SUMMARY_DELAY", "-1s"},
		"zero history":     {"AI_HISTORY_LIMIT", "0"},
	}
	for name, kv := range tests {
		t.Run(name, func(t *testing.T) {
			t.Setenv(kv[0], kv[1])
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
