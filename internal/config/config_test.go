package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ASSISTANT_CONFIG", "")
	t.Setenv("ASSISTANT_STORAGE_BACKEND", "")
	t.Setenv("ASSISTANT_COMPLETION_BACKEND", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ModeLocal, cfg.Mode)
	assert.Equal(t, "memory", cfg.StorageBackend)
	assert.Equal(t, "mock", cfg.CompletionBackend)
	assert.Equal(t, DefaultGreeting, cfg.Greeting)
	assert.Equal(t, 256, cfg.WriteQueueSize)
}

func TestLoadFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "assistant.toml")
	content := `
port = "9000"
storage_backend = "sqlite"
sqlite_path = "/tmp/chat.db"
history_limit = 4
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("ASSISTANT_CONFIG", path)
	t.Setenv("ASSISTANT_PORT", "")
	t.Setenv("PORT", "")
	t.Setenv("ASSISTANT_HISTORY_LIMIT", "8")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "sqlite", cfg.StorageBackend)
	assert.Equal(t, "/tmp/chat.db", cfg.SQLitePath)
	assert.Equal(t, 8, cfg.HistoryLimit, "env overrides the file")
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.StorageBackend = "firestore"
	cfg.CompletionBackend = "openrouter"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ASSISTANT_GCP_PROJECT")
	assert.Contains(t, err.Error(), "OPENROUTER_API_KEY")

	cfg.GCPProjectID = "proj"
	cfg.OpenRouterAPIKey = "key"
	assert.NoError(t, cfg.Validate())
}

func TestLoadFileMissing(t *testing.T) {
	err := LoadFile(Default(), filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestApplyEnvPresentation(t *testing.T) {
	t.Setenv("ASSISTANT_VOICE_OUTPUT", "true")
	t.Setenv("ASSISTANT_CODE_STYLE", "monokai")
	t.Setenv("ASSISTANT_USE_MOCK_LLM", "1")

	cfg := Default()
	cfg.CompletionBackend = "openrouter"
	cfg.ApplyEnv()

	assert.True(t, cfg.VoiceOutput)
	assert.Equal(t, "monokai", cfg.CodeStyle)
	assert.Equal(t, "mock", cfg.CompletionBackend)
}
