package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("ALLOWED_ORIGINS", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.Server.Port)
	assert.Equal(t, []string{"http://localhost:5173", "http://localhost:3000"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "setu_care", cfg.Database.Database)
	assert.Equal(t, 400*time.Millisecond, cfg.Intake.PromptDelay)
	assert.True(t, cfg.Intake.AutoListen)
	assert.Equal(t, int64(10*1024*1024), cfg.Uploads.MaxBytes)
	assert.False(t, cfg.OpenAI.Configured())
	assert.False(t, cfg.WhatsApp.Enabled())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "8081")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("INTAKE_PROMPT_DELAY", "1s")
	t.Setenv("INTAKE_AUTO_LISTEN", "false")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.Server.Port)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, time.Second, cfg.Intake.PromptDelay)
	assert.False(t, cfg.Intake.AutoListen)
	assert.True(t, cfg.OpenAI.Configured())
}

func TestOpenAIConfig_PlaceholderKeyIsUnset(t *testing.T) {
	cfg := OpenAIConfig{APIKey: "your-openai-api-key-here"}
	assert.False(t, cfg.Configured())
}

func TestLoad_RejectsInvalidPort(t *testing.T) {
	t.Setenv("SERVER_PORT", "70000")

	_, err := Load()
	assert.Error(t, err)
}
