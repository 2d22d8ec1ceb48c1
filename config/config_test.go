package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromFileMissingUsesDefaults(t *testing.T) {
	cfg, err := FromFile(filepath.Join(t.TempDir(), "settings.json"))
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, 5, cfg.ContextTurns)
	assert.Equal(t, "openai", cfg.AssistantProvider)
}

func TestFromFileParsesSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"addr": ":9000",
		"assistant_provider": "gemini",
		"context_turns": 10,
		"redis_addr": "localhost:6379"
	}`), 0o600))

	cfg, err := FromFile(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Addr)
	assert.Equal(t, "gemini", cfg.AssistantProvider)
	assert.Equal(t, 10, cfg.ContextTurns)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"addr": ":9000"}`), 0o600))

	t.Setenv("ADDR", ":7777")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("CONTEXT_TURNS", "3")

	cfg, err := FromFile(path)
	require.NoError(t, err)
	assert.Equal(t, ":7777", cfg.Addr)
	assert.Equal(t, "sk-test", cfg.OpenAIAPIKey)
	assert.Equal(t, 3, cfg.ContextTurns)
}

func TestFromFileRejectsMalformedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte(`{broken`), 0o600))

	_, err := FromFile(path)
	assert.Error(t, err)
}
