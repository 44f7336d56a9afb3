package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(old) })
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "labeleval.db", cfg.Store.DSN)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "parallel", cfg.Orchestrator.Mode)
	assert.Equal(t, 2*time.Second, cfg.Orchestrator.SequentialDelay())
	assert.Equal(t, 5*time.Minute, cfg.Prompt.CacheTTL())

	assert.Equal(t, "gemini-2.0-flash-exp", cfg.Gemini.Model)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAI.Model)
	for name, pc := range map[string]ProviderConfig{
		"gemini":      cfg.Gemini,
		"groq":        cfg.Groq,
		"claude":      cfg.Claude,
		"openai":      cfg.OpenAI,
		"cloudvision": cfg.CloudVision,
	} {
		assert.Equal(t, 0.1, pc.Temperature, name)
		assert.Equal(t, 8192, pc.MaxTokens, name)
		assert.Equal(t, 120, pc.TimeoutSecs, name)
	}
}

func TestLoad_FromFile(t *testing.T) {
	dir := chdirTemp(t)

	content := `
store:
  driver: postgres
  dsn: postgres://localhost/labeleval
claude:
  api_key: sk-test
  model: custom-model
  timeout_secs: 30
server:
  port: 9090
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/labeleval", cfg.Store.DSN)
	assert.Equal(t, "sk-test", cfg.Claude.APIKey)
	assert.Equal(t, "custom-model", cfg.Claude.Model)
	assert.Equal(t, 9090, cfg.Server.Port)
	// Unset keys keep their defaults.
	assert.Equal(t, 8192, cfg.Claude.MaxTokens)
}

func TestLoad_EnvOverride(t *testing.T) {
	chdirTemp(t)
	t.Setenv("LABELEVAL_GEMINI_API_KEY", "env-key")
	t.Setenv("LABELEVAL_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "env-key", cfg.Gemini.APIKey)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestProviderConfig_Settings(t *testing.T) {
	pc := ProviderConfig{
		APIKey:      "key",
		Model:       "m",
		Temperature: 0.2,
		MaxTokens:   1024,
		TimeoutSecs: 45,
	}

	s := pc.Settings()
	assert.Equal(t, "key", s.APIKey)
	assert.Equal(t, "m", s.Model)
	assert.Equal(t, 0.2, s.Temperature)
	assert.Equal(t, 1024, s.MaxTokens)
	assert.Equal(t, 45*time.Second, s.Timeout)
}

func TestInitLogger_BadLevel(t *testing.T) {
	assert.Error(t, InitLogger(LogConfig{Level: "nope", Format: "json"}))
}

func TestInitLogger_Console(t *testing.T) {
	assert.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
}
