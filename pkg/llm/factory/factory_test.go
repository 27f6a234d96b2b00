package factory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-assistant-studio-be/pkg/llm/mock"
	"ai-assistant-studio-be/pkg/llm/ollama"
)

func TestNewLLMProvider(t *testing.T) {
	p, err := NewLLMProvider(context.Background(), Config{})
	require.NoError(t, err)
	assert.IsType(t, &mock.MockProvider{}, p)

	p, err = NewLLMProvider(context.Background(), Config{Provider: "ollama", Model: "llama3"})
	require.NoError(t, err)
	require.IsType(t, &ollama.OllamaProvider{}, p)
	assert.Equal(t, "http://localhost:11434", p.(*ollama.OllamaProvider).BaseURL)

	_, err = NewLLMProvider(context.Background(), Config{Provider: "gemini"})
	assert.Error(t, err, "missing key")

	_, err = NewLLMProvider(context.Background(), Config{Provider: "bard"})
	assert.ErrorContains(t, err, "unsupported")
}
