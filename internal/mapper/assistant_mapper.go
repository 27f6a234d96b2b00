package mapper

import (
	"ai-assistant-studio-be/internal/dto"
	"ai-assistant-studio-be/internal/entity"
	"ai-assistant-studio-be/internal/model"

	"gorm.io/datatypes"
)

type AssistantMapper struct{}

func NewAssistantMapper() *AssistantMapper {
	return &AssistantMapper{}
}

func (m *AssistantMapper) ToEntity(a *model.Assistant) *entity.Assistant {
	if a == nil {
		return nil
	}
	return &entity.Assistant{
		Id:             a.Id,
		Name:           a.Name,
		Language:       entity.Language(a.Language),
		Tone:           entity.Tone(a.Tone),
		ResponseLength: a.ResponseLength.Data(),
		AudioEnabled:   a.AudioEnabled,
		Rules:          a.Rules,
	}
}

func (m *AssistantMapper) ToModel(a *entity.Assistant) *model.Assistant {
	if a == nil {
		return nil
	}
	return &model.Assistant{
		Id:             a.Id,
		Name:           a.Name,
		Language:       string(a.Language),
		Tone:           string(a.Tone),
		ResponseLength: datatypes.NewJSONType(a.ResponseLength),
		AudioEnabled:   a.AudioEnabled,
		Rules:          a.Rules,
	}
}

func (m *AssistantMapper) ToResponse(a entity.Assistant) dto.AssistantResponse {
	return dto.AssistantResponse{
		Id:       a.Id,
		Name:     a.Name,
		Language: a.Language,
		Tone:     a.Tone,
		ResponseLength: dto.ResponseLengthDTO{
			Short:  a.ResponseLength.Short,
			Medium: a.ResponseLength.Medium,
			Long:   a.ResponseLength.Long,
		},
		AudioEnabled: a.AudioEnabled,
		Rules:        a.Rules,
	}
}

func (m *AssistantMapper) ToResponses(in []entity.Assistant) []dto.AssistantResponse {
	out := make([]dto.AssistantResponse, len(in))
	for i, a := range in {
		out[i] = m.ToResponse(a)
	}
	return out
}

func (m *AssistantMapper) FromCreate(req *dto.CreateAssistantRequest) entity.Assistant {
	return entity.Assistant{
		Name:     req.Name,
		Language: req.Language,
		Tone:     req.Tone,
		ResponseLength: entity.ResponseLength{
			Short:  req.ResponseLength.Short,
			Medium: req.ResponseLength.Medium,
			Long:   req.ResponseLength.Long,
		},
		AudioEnabled: req.AudioEnabled,
		Rules:        req.Rules,
	}
}

func (m *AssistantMapper) FromUpdate(req *dto.UpdateAssistantRequest) entity.Assistant {
	return entity.Assistant{
		Id:       req.Id,
		Name:     req.Name,
		Language: req.Language,
		Tone:     req.Tone,
		ResponseLength: entity.ResponseLength{
			Short:  req.ResponseLength.Short,
			Medium: req.ResponseLength.Medium,
			Long:   req.ResponseLength.Long,
		},
		AudioEnabled: req.AudioEnabled,
		Rules:        req.Rules,
	}
}
