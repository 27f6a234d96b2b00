package events

import (
	"context"
	"time"
)

// Event types published on the bus. The subject is "studio.<type>".
const (
	TypeAssistantCreated          = "assistant.created"
	TypeAssistantUpdated          = "assistant.updated"
	TypeAssistantDeleted          = "assistant.deleted"
	TypeAssistantDeleteRolledBack = "assistant.delete_rolled_back"
	TypeVoiceNoteRecorded         = "voice.recorded"
	TypeVoiceNoteDiscarded        = "voice.discarded"
	TypeChatReplyGenerated        = "chat.reply_generated"
)

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "assistant.deleted").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

type BaseEvent struct {
	Type       string                 `json:"type"`
	Data       map[string]interface{} `json:"data"`
	OccurredAt time.Time              `json:"occurred_at"`
}

func New(eventType string, data map[string]interface{}) BaseEvent {
	return BaseEvent{Type: eventType, Data: data, OccurredAt: time.Now().UTC()}
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// Publisher sends events to whatever bus is configured.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// NopPublisher drops every event. Used when no bus is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

// Recorder keeps published events in memory, for tests.
type Recorder struct {
	ch chan Event
}

func NewRecorder(size int) *Recorder {
	return &Recorder{ch: make(chan Event, size)}
}

func (r *Recorder) Publish(_ context.Context, event Event) error {
	select {
	case r.ch <- event:
	default:
	}
	return nil
}

// Events returns the channel events are recorded on.
func (r *Recorder) Events() <-chan Event { return r.ch }
