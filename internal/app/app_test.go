package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/efebarandurmaz/archsift/internal/apperr"
	"github.com/efebarandurmaz/archsift/internal/config"
)

func TestBuild_DeterministicOnly(t *testing.T) {
	cfg := config.Default()
	cfg.LLM.Provider = "none"

	st, err := Build(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.Nil(t, st.Provider)
	assert.NotNil(t, st.Analyzer)
	assert.NotNil(t, st.Evaluator)
}

func TestBuild_WithInlineKey(t *testing.T) {
	cfg := config.Default()
	cfg.LLM.Provider = "groq"
	cfg.LLM.APIKey = "gsk-test"

	st, err := Build(context.Background(), cfg, nil)
	require.NoError(t, err)
	require.NotNil(t, st.Provider)
	assert.Equal(t, "groq", st.Provider.Name())
}

func TestBuild_MissingKey(t *testing.T) {
	t.Setenv("ARCHSIFT_LLM_API_KEY", "")
	t.Setenv("LLM_API_KEY", "")
	t.Setenv("ARCHSIFT_ANTHROPIC_API_KEY", "")
	t.Setenv("ANTHROPIC_API_KEY", "")

	cfg := config.Default()
	cfg.LLM.Provider = "anthropic"

	_, err := Build(context.Background(), cfg, nil)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.Configuration))
}

func TestBuild_UnknownProvider(t *testing.T) {
	cfg := config.Default()
	cfg.LLM.Provider = "mystery"
	cfg.LLM.APIKey = "k"

	_, err := Build(context.Background(), cfg, nil)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.Configuration))
}

func TestProviderNames(t *testing.T) {
	names := ProviderNames()
	assert.Contains(t, names, "openai")
	assert.Contains(t, names, "anthropic")
	assert.Contains(t, names, "ollama")
}
