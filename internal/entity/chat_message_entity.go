package entity

import (
	"time"

	"github.com/google/uuid"
)

type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// ChatMessage is immutable once appended to an assistant's log.
type ChatMessage struct {
	Id          uuid.UUID
	AssistantId string
	Sender      Sender
	Text        string
	AudioURL    string
	CreatedAt   time.Time
}
