package contract

import (
	"context"

	"ai-assistant-studio-be/internal/entity"
)

// ChatMessageRepository keeps one append-only log per assistant.
type ChatMessageRepository interface {
	Append(ctx context.Context, message *entity.ChatMessage) error
	// ListByAssistant returns the log in append order.
	ListByAssistant(ctx context.Context, assistantId string) ([]entity.ChatMessage, error)
	DeleteByAssistant(ctx context.Context, assistantId string) error
}
