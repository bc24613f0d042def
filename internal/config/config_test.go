package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// useTempConfig points the package at a throwaway config file
func useTempConfig(t *testing.T) {
	t.Helper()
	origDir, origFile, origCurrent := configDir, configFile, current
	configDir = t.TempDir()
	configFile = filepath.Join(configDir, "config.json")
	current = nil
	t.Cleanup(func() {
		configDir, configFile, current = origDir, origFile, origCurrent
	})
}

func TestLoadDefaults(t *testing.T) {
	useTempConfig(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "data.csv", cfg.DataFile)
	assert.Equal(t, ":5000", cfg.HTTPAddr)
	assert.Empty(t, cfg.GeminiKey)
}

func TestSetGetDelete(t *testing.T) {
	useTempConfig(t)

	require.NoError(t, Set("gemini", "AIzaSyTest1234567890"))
	require.NoError(t, Set("anthropic_model", "claude-3-5-haiku-latest"))

	// Reload from disk
	current = nil
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "AIzaSyTest1234567890", cfg.GeminiKey)
	assert.Equal(t, "claude-3-5-haiku-latest", cfg.AnthropicModel)

	require.NoError(t, Delete("gemini"))
	current = nil
	cfg, err = Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.GeminiKey)
}

func TestSetUnknownKey(t *testing.T) {
	useTempConfig(t)
	assert.Error(t, Set("bogus", "value"))
	assert.Error(t, Delete("bogus"))
}

func TestGetGeminiKeyEnvFallback(t *testing.T) {
	useTempConfig(t)
	t.Setenv("GEMINI_API_KEY", "env-key")

	assert.Equal(t, "env-key", GetGeminiKey())

	require.NoError(t, Set("gemini", "config-key"))
	assert.Equal(t, "config-key", GetGeminiKey(), "config takes precedence over env")
}

func TestListKeysMasked(t *testing.T) {
	useTempConfig(t)
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("ANTHROPIC_API_KEY", "")

	require.NoError(t, Set("gemini", "AIzaSyVeryLongSecretKey"))

	keys := ListKeys()
	masked := keys["gemini_api_key"]
	assert.NotContains(t, masked, "VeryLongSecret")
	assert.Contains(t, masked, "...")
}

func TestMaskKeyShort(t *testing.T) {
	assert.Equal(t, "****", maskKey("tiny"))
}
