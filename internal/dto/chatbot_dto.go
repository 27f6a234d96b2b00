package dto

import (
	"time"

	"github.com/google/uuid"
)

type SendMessageRequest struct {
	Text string `json:"text" validate:"required,max=4000"`
}

type ChatMessageResponse struct {
	Id          uuid.UUID `json:"id"`
	AssistantId string    `json:"assistant_id"`
	Sender      string    `json:"sender"`
	Text        string    `json:"text"`
	AudioURL    string    `json:"audio_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// SendMessageResponse returns the stored user message. The reply arrives
// later over the dashboard socket once generation finishes.
type SendMessageResponse struct {
	Sent         *ChatMessageResponse `json:"sent"`
	ReplyPending bool                 `json:"reply_pending"`
}

// GenerateReplyJob is the payload of a queued reply generation.
type GenerateReplyJob struct {
	AssistantId string    `json:"assistant_id"`
	MessageId   uuid.UUID `json:"message_id"`
	Text        string    `json:"text,omitempty"`
	AudioId     string    `json:"audio_id,omitempty"`
}
