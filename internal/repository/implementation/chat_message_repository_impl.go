package implementation

import (
	"context"

	"ai-assistant-studio-be/internal/entity"
	"ai-assistant-studio-be/internal/mapper"
	"ai-assistant-studio-be/internal/model"
	"ai-assistant-studio-be/internal/repository/contract"

	"gorm.io/gorm"
)

type ChatMessageRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ChatMapper
}

func NewChatMessageRepository(db *gorm.DB) contract.ChatMessageRepository {
	return &ChatMessageRepositoryImpl{
		db:     db,
		mapper: mapper.NewChatMapper(),
	}
}

func (r *ChatMessageRepositoryImpl) Append(ctx context.Context, message *entity.ChatMessage) error {
	m := r.mapper.ChatMessageToModel(message)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*message = *r.mapper.ChatMessageToEntity(m)
	return nil
}

func (r *ChatMessageRepositoryImpl) ListByAssistant(ctx context.Context, assistantId string) ([]entity.ChatMessage, error) {
	var models []*model.ChatMessage
	err := r.db.WithContext(ctx).
		Where("assistant_id = ?", assistantId).
		Order("created_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	out := make([]entity.ChatMessage, len(models))
	for i, m := range models {
		out[i] = *r.mapper.ChatMessageToEntity(m)
	}
	return out, nil
}

func (r *ChatMessageRepositoryImpl) DeleteByAssistant(ctx context.Context, assistantId string) error {
	return r.db.WithContext(ctx).Where("assistant_id = ?", assistantId).Delete(&model.ChatMessage{}).Error
}

// AutoMigrate creates the tables backing the gorm repositories.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&model.Assistant{}, &model.ChatMessage{})
}
