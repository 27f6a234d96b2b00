package mock

import (
	"context"
	"math/rand/v2"
	"time"

	"ai-assistant-studio-be/pkg/llm"
)

// Responses are the canned replies of the offline assistant.
var Responses = []string{
	"Entendido, ¿en qué más puedo ayudarte?",
	"Esa es una excelente pregunta. Déjame explicarte...",
	"Claro, con gusto te ayudo con eso.",
	"¿Podrías darme más detalles sobre tu consulta?",
	"Perfecto, he registrado esa información.",
}

// MockProvider picks a canned reply after a random delay in [minDelay,
// maxDelay), simulating model latency.
type MockProvider struct {
	minDelay, maxDelay time.Duration
	pick               func(n int) int
}

var _ llm.LLMProvider = &MockProvider{}

func NewMockProvider(minDelay, maxDelay time.Duration) *MockProvider {
	return &MockProvider{minDelay: minDelay, maxDelay: maxDelay, pick: rand.IntN}
}

func (m *MockProvider) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	delay := m.minDelay
	if m.maxDelay > m.minDelay {
		delay += time.Duration(rand.Int64N(int64(m.maxDelay - m.minDelay)))
	}
	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return Responses[m.pick(len(Responses))], nil
}

func (m *MockProvider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return m.Chat(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}}, opts...)
}
