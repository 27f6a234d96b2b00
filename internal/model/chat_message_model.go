package model

import (
	"time"

	"github.com/google/uuid"
)

// ChatMessage rows are append-only; a log is only ever cleared as a whole.
type ChatMessage struct {
	Id          uuid.UUID `gorm:"type:uuid;primaryKey"`
	AssistantId string    `gorm:"type:varchar(32);not null;index:idx_chat_messages_assistant_created"`
	Sender      string    `gorm:"type:varchar(16);not null"`
	Text        string    `gorm:"type:text;not null"`
	AudioURL    string    `gorm:"type:text"`
	CreatedAt   time.Time `gorm:"not null;index:idx_chat_messages_assistant_created"`
}

func (ChatMessage) TableName() string {
	return "chat_messages"
}
