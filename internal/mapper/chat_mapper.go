package mapper

import (
	"ai-assistant-studio-be/internal/dto"
	"ai-assistant-studio-be/internal/entity"
	"ai-assistant-studio-be/internal/model"
)

type ChatMapper struct{}

func NewChatMapper() *ChatMapper {
	return &ChatMapper{}
}

func (m *ChatMapper) ChatMessageToEntity(msg *model.ChatMessage) *entity.ChatMessage {
	if msg == nil {
		return nil
	}
	return &entity.ChatMessage{
		Id:          msg.Id,
		AssistantId: msg.AssistantId,
		Sender:      entity.Sender(msg.Sender),
		Text:        msg.Text,
		AudioURL:    msg.AudioURL,
		CreatedAt:   msg.CreatedAt,
	}
}

func (m *ChatMapper) ChatMessageToModel(msg *entity.ChatMessage) *model.ChatMessage {
	if msg == nil {
		return nil
	}
	return &model.ChatMessage{
		Id:          msg.Id,
		AssistantId: msg.AssistantId,
		Sender:      string(msg.Sender),
		Text:        msg.Text,
		AudioURL:    msg.AudioURL,
		CreatedAt:   msg.CreatedAt,
	}
}

func (m *ChatMapper) ToResponse(msg *entity.ChatMessage) *dto.ChatMessageResponse {
	if msg == nil {
		return nil
	}
	return &dto.ChatMessageResponse{
		Id:          msg.Id,
		AssistantId: msg.AssistantId,
		Sender:      string(msg.Sender),
		Text:        msg.Text,
		AudioURL:    msg.AudioURL,
		CreatedAt:   msg.CreatedAt,
	}
}

func (m *ChatMapper) ToResponses(in []entity.ChatMessage) []*dto.ChatMessageResponse {
	out := make([]*dto.ChatMessageResponse, len(in))
	for i := range in {
		out[i] = m.ToResponse(&in[i])
	}
	return out
}
