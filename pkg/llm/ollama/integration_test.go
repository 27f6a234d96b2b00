package ollama

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"ai-assistant-studio-be/pkg/llm"

	"github.com/stretchr/testify/require"
)

// Runs against a local Ollama server: OLLAMA_INTEGRATION=1 go test ./pkg/llm/ollama
func TestIntegrationChatWithPersona(t *testing.T) {
	if os.Getenv("OLLAMA_INTEGRATION") == "" {
		t.Skip("set OLLAMA_INTEGRATION=1 to run against a local Ollama server")
	}
	baseURL := os.Getenv("OLLAMA_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	model := os.Getenv("OLLAMA_MODEL")
	if model == "" {
		model = "gemma:2b"
	}

	// first request may load the model
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	p := NewOllamaProvider(baseURL, model)
	reply, err := p.Chat(ctx,
		[]llm.Message{{Role: llm.RoleUser, Content: "Di hola en una sola palabra."}},
		llm.WithSystemInstruction(`Eres "Asistente de Pruebas". Responde en Español con tono Casual.`),
	)
	require.NoError(t, err)
	require.NotEmpty(t, strings.TrimSpace(reply))
	t.Logf("reply: %s", reply)
}
