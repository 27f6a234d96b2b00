package contract

import (
	"context"

	"ai-assistant-studio-be/internal/entity"
)

// AssistantRepository is the source of truth for assistants. Implementations
// return entity.ErrAssistantNotFound for unknown ids and may fail with
// entity.ErrTransient.
type AssistantRepository interface {
	List(ctx context.Context) ([]entity.Assistant, error)
	FindById(ctx context.Context, id string) (*entity.Assistant, error)
	// Create assigns the id and returns the stored assistant.
	Create(ctx context.Context, assistant entity.Assistant) (*entity.Assistant, error)
	Update(ctx context.Context, assistant entity.Assistant) (*entity.Assistant, error)
	Delete(ctx context.Context, id string) error
	SaveRules(ctx context.Context, id, rules string) error
}
