package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("PORT", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8080", cfg.Server.Addr)
	assert.Empty(t, cfg.Server.AllowedOrigins)
	assert.Equal(t, ProviderGemini, cfg.AI.Provider)
	assert.Equal(t, "gemma-3-1b-it", cfg.AI.Model)
	assert.Equal(t, "file", cfg.Storage.Driver)
	assert.False(t, cfg.AI.HasCredential())
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("PORT", "127.0.0.1:9000")
	t.Setenv("GEMINI_API_KEY", "secret")
	t.Setenv("GEMINI_VISION_MODEL", "gemini-2.0-flash")
	t.Setenv("STORAGE_DRIVER", "sqlite")
	t.Setenv("STORAGE_PATH", "/tmp/zorey.db")
	t.Setenv("ARK_TEMPERATURE", "0.3")
	t.Setenv("ALLOWED_ORIGINS", "http://localhost:5173,https://zorey.example")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.True(t, cfg.AI.HasCredential())
	assert.Equal(t, "gemini-2.0-flash", cfg.AI.VisionModel)
	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	require.NotNil(t, cfg.AI.Temperature)
	assert.InDelta(t, 0.3, *cfg.AI.Temperature, 0.0001)
	assert.Equal(t, []string{"http://localhost:5173", "https://zorey.example"}, cfg.Server.AllowedOrigins)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("AI_PROVIDER", "openai")
	t.Setenv("STORAGE_DRIVER", "redis")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AI_PROVIDER")
	assert.Contains(t, err.Error(), "STORAGE_DRIVER")
}

func TestListenAddr(t *testing.T) {
	addr, err := listenAddr("3000")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:3000", addr)

	addr, err = listenAddr("0.0.0.0:3000")
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:3000", addr)

	_, err = listenAddr("80 80")
	assert.Error(t, err)
}

func TestArkCredential(t *testing.T) {
	cfg := AIConfig{Provider: ProviderArk, ArkModel: "ep-1", ArkAccessKey: "ak"}
	assert.False(t, cfg.HasCredential())

	cfg.ArkSecretKey = "sk"
	assert.True(t, cfg.HasCredential())
}
