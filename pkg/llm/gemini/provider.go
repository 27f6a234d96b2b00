package gemini

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"ai-assistant-studio-be/pkg/llm"
)

// GeminiProvider talks to the Gemini API. It is the only provider that sends
// voice notes as inline audio.
type GeminiProvider struct {
	client    *genai.Client
	modelName string
}

var _ llm.LLMProvider = &GeminiProvider{}

func NewGeminiProvider(ctx context.Context, apiKey, modelName string) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: api key is required")
	}
	if modelName == "" {
		modelName = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	return &GeminiProvider{client: client, modelName: modelName}, nil
}

func (g *GeminiProvider) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	options := llm.Apply(opts...)

	contents := make([]*genai.Content, 0, len(history))
	for _, m := range history {
		contents = append(contents, toContent(m))
	}

	temp := float32(options.Temperature)
	cfg := &genai.GenerateContentConfig{Temperature: &temp}
	if options.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(options.MaxTokens)
	}
	if options.SystemInstruction != "" {
		cfg.SystemInstruction = genai.NewContentFromText(options.SystemInstruction, genai.RoleUser)
	}

	model := g.modelName
	if options.Model != "" {
		model = options.Model
	}

	res, err := g.client.Models.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}
	text := res.Text()
	if text == "" {
		return "", fmt.Errorf("gemini returned empty text")
	}
	return text, nil
}

func (g *GeminiProvider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return g.Chat(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}}, opts...)
}

func toContent(m llm.Message) *genai.Content {
	role := genai.Role(genai.RoleUser)
	if m.Role == llm.RoleAssistant {
		role = genai.RoleModel
	}
	if m.Audio == nil || len(m.Audio.Data) == 0 {
		return genai.NewContentFromText(m.Content, role)
	}
	parts := []*genai.Part{genai.NewPartFromBytes(m.Audio.Data, m.Audio.MimeType)}
	if m.Content != "" {
		parts = append(parts, genai.NewPartFromText(m.Content))
	}
	return genai.NewContentFromParts(parts, role)
}
