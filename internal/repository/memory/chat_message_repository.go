package memory

import (
	"context"
	"sync"

	"ai-assistant-studio-be/internal/entity"
	"ai-assistant-studio-be/internal/repository/contract"

	"github.com/patrickmn/go-cache"
)

// ChatMessageRepository keeps each assistant's log under its id. Logs never
// expire; they are dropped only by DeleteByAssistant.
type ChatMessageRepository struct {
	mu    sync.Mutex
	cache *cache.Cache
}

var _ contract.ChatMessageRepository = (*ChatMessageRepository)(nil)

func NewChatMessageRepository() *ChatMessageRepository {
	return &ChatMessageRepository{
		cache: cache.New(cache.NoExpiration, 0),
	}
}

func (r *ChatMessageRepository) log(assistantId string) []entity.ChatMessage {
	if x, found := r.cache.Get(assistantId); found {
		return x.([]entity.ChatMessage)
	}
	return nil
}

func (r *ChatMessageRepository) Append(ctx context.Context, message *entity.ChatMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current := r.log(message.AssistantId)
	next := make([]entity.ChatMessage, len(current), len(current)+1)
	copy(next, current)
	r.cache.Set(message.AssistantId, append(next, *message), cache.NoExpiration)
	return nil
}

func (r *ChatMessageRepository) ListByAssistant(ctx context.Context, assistantId string) ([]entity.ChatMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	current := r.log(assistantId)
	out := make([]entity.ChatMessage, len(current))
	copy(out, current)
	return out, nil
}

func (r *ChatMessageRepository) DeleteByAssistant(ctx context.Context, assistantId string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache.Delete(assistantId)
	return nil
}
