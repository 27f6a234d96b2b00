package implementation

import (
	"context"
	"errors"
	"strings"

	"ai-assistant-studio-be/internal/entity"
	"ai-assistant-studio-be/internal/mapper"
	"ai-assistant-studio-be/internal/model"
	"ai-assistant-studio-be/internal/repository/contract"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AssistantRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.AssistantMapper
}

func NewAssistantRepository(db *gorm.DB) contract.AssistantRepository {
	return &AssistantRepositoryImpl{
		db:     db,
		mapper: mapper.NewAssistantMapper(),
	}
}

func (r *AssistantRepositoryImpl) List(ctx context.Context) ([]entity.Assistant, error) {
	var models []*model.Assistant
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]entity.Assistant, len(models))
	for i, m := range models {
		out[i] = *r.mapper.ToEntity(m)
	}
	return out, nil
}

func (r *AssistantRepositoryImpl) FindById(ctx context.Context, id string) (*entity.Assistant, error) {
	var m model.Assistant
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, entity.ErrAssistantNotFound
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *AssistantRepositoryImpl) Create(ctx context.Context, assistant entity.Assistant) (*entity.Assistant, error) {
	assistant.Id = strings.ReplaceAll(uuid.NewString(), "-", "")
	m := r.mapper.ToModel(&assistant)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntity(m), nil
}

func (r *AssistantRepositoryImpl) Update(ctx context.Context, assistant entity.Assistant) (*entity.Assistant, error) {
	m := r.mapper.ToModel(&assistant)
	res := r.db.WithContext(ctx).Model(&model.Assistant{}).
		Where("id = ?", assistant.Id).
		Select("name", "language", "tone", "response_length", "audio_enabled", "rules").
		Updates(m)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, entity.ErrAssistantNotFound
	}
	return &assistant, nil
}

func (r *AssistantRepositoryImpl) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Assistant{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return entity.ErrAssistantNotFound
	}
	return nil
}

func (r *AssistantRepositoryImpl) SaveRules(ctx context.Context, id, rules string) error {
	res := r.db.WithContext(ctx).Model(&model.Assistant{}).Where("id = ?", id).Update("rules", rules)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return entity.ErrAssistantNotFound
	}
	return nil
}
