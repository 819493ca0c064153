package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFromEnv(t *testing.T) {
	t.Run("GeminiDefaults", func(t *testing.T) {
		t.Setenv("LLM_PROVIDER", "")
		t.Setenv("GEMINI_API_KEY", "gemini_key")

		cfg, err := NewFromEnv()
		require.NoError(t, err)
		assert.Equal(t, ProviderGemini, cfg.Provider)
		assert.Equal(t, "gemini_key", cfg.GeminiAPIKey)
		assert.Equal(t, "gemini-1.5-flash", cfg.GeminiModel)
		assert.Equal(t, 45*time.Second, cfg.LLMTimeout)
		assert.Equal(t, "data/diet-planner.db", cfg.DatabasePath)
		assert.Equal(t, ":8080", cfg.ListenAddr)
	})

	t.Run("MissingGeminiAPIKey", func(t *testing.T) {
		t.Setenv("LLM_PROVIDER", ProviderGemini)
		t.Setenv("GEMINI_API_KEY", "")

		_, err := NewFromEnv()
		require.Error(t, err)
		assert.EqualError(t, err, "GEMINI_API_KEY environment variable not set")
	})

	t.Run("OpenAIProvider", func(t *testing.T) {
		t.Setenv("LLM_PROVIDER", ProviderOpenAI)
		t.Setenv("OPENAI_API_KEY", "openai_key")
		t.Setenv("OPENAI_BASE_URL", "http://llm.test/v1")
		t.Setenv("OPENAI_MODEL", "test-model")

		cfg, err := NewFromEnv()
		require.NoError(t, err)
		assert.Equal(t, "openai_key", cfg.OpenAIAPIKey)
		assert.Equal(t, "http://llm.test/v1", cfg.OpenAIBaseURL)
		assert.Equal(t, "test-model", cfg.OpenAIModel)
	})

	t.Run("MissingOpenAIAPIKey", func(t *testing.T) {
		t.Setenv("LLM_PROVIDER", ProviderOpenAI)
		t.Setenv("OPENAI_API_KEY", "")

		_, err := NewFromEnv()
		require.Error(t, err)
		assert.EqualError(t, err, "OPENAI_API_KEY environment variable not set")
	})

	t.Run("UnknownProvider", func(t *testing.T) {
		t.Setenv("LLM_PROVIDER", "oracle")

		_, err := NewFromEnv()
		assert.Error(t, err)
	})

	t.Run("TimeoutOverride", func(t *testing.T) {
		t.Setenv("LLM_PROVIDER", ProviderGemini)
		t.Setenv("GEMINI_API_KEY", "gemini_key")
		t.Setenv("LLM_TIMEOUT_SECONDS", "10")

		cfg, err := NewFromEnv()
		require.NoError(t, err)
		assert.Equal(t, 10*time.Second, cfg.LLMTimeout)
	})

	t.Run("InvalidTimeout", func(t *testing.T) {
		t.Setenv("LLM_PROVIDER", ProviderGemini)
		t.Setenv("GEMINI_API_KEY", "gemini_key")
		t.Setenv("LLM_TIMEOUT_SECONDS", "soon")

		_, err := NewFromEnv()
		assert.Error(t, err)
	})
}
