package factory

import (
	"ai-assistant-studio-be/pkg/llm"
	"ai-assistant-studio-be/pkg/llm/gemini"
	"ai-assistant-studio-be/pkg/llm/mock"
	"ai-assistant-studio-be/pkg/llm/ollama"
	"ai-assistant-studio-be/pkg/llm/openai"
	"context"
	"fmt"
	"time"
)

type Config struct {
	Provider      string
	Model         string
	OllamaBaseURL string
	GeminiAPIKey  string
	OpenAIAPIKey  string
	OpenAIBaseURL string
}

func NewLLMProvider(ctx context.Context, cfg Config) (llm.LLMProvider, error) {
	switch cfg.Provider {
	case "", "mock":
		return mock.NewMockProvider(time.Second, 2*time.Second), nil
	case "ollama":
		baseURL := cfg.OllamaBaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434" // Default
		}
		return ollama.NewOllamaProvider(baseURL, cfg.Model), nil
	case "gemini":
		return gemini.NewGeminiProvider(ctx, cfg.GeminiAPIKey, cfg.Model)
	case "openai":
		return openai.NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.Model, cfg.OpenAIBaseURL)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}
