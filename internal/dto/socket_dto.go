package dto

import "encoding/json"

// SocketMessage is the JSON frame used on every websocket in both directions.
type SocketMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Dashboard socket events.
const (
	EventAssistantsChanged = "assistants_changed"
	EventChatMessage       = "chat_message"
	EventTypingStarted     = "typing_started"
	EventTypingStopped     = "typing_stopped"
)

// Voice socket, client to server.
const (
	VoiceDevices      = "devices"
	VoicePermission   = "permission"
	VoiceListDevices  = "list_devices"
	VoiceSelectDevice = "select_device"
	VoiceStart        = "start"
	VoiceStop         = "stop"
)

// Voice socket, server to client.
const (
	VoiceSessionStarted  = "session_started"
	VoicePermissionError = "permission_error"
	VoiceDeviceError     = "device_error"
	VoiceVolume          = "volume"
	VoiceSilenceDetected = "silence_detected"
	VoiceNote            = "voice_note"
	VoiceError           = "error"
)

type AssistantsChangedEvent struct {
	Assistants []AssistantResponse `json:"assistants"`
}

type TypingEvent struct {
	AssistantId string `json:"assistant_id"`
	Text        string `json:"text,omitempty"`
}

type VoiceDevicesPayload struct {
	Devices []VoiceDeviceDTO `json:"devices"`
}

type VoiceDeviceDTO struct {
	Id    string `json:"id"`
	Label string `json:"label"`
}

type VoicePermissionPayload struct {
	Granted bool `json:"granted"`
}

type VoiceSelectDevicePayload struct {
	DeviceId string `json:"device_id"`
}

type VoiceStartPayload struct {
	SampleRate int `json:"sample_rate"`
}

type VoiceSessionStartedPayload struct {
	SessionId string `json:"session_id"`
	DeviceId  string `json:"device_id"`
	MimeType  string `json:"mime_type"`
}

type VoiceErrorPayload struct {
	Message string `json:"message"`
}

type VoiceNotePayload struct {
	Message    *ChatMessageResponse `json:"message"`
	ArtifactId string               `json:"artifact_id"`
	MimeType   string               `json:"mime_type"`
	Size       int                  `json:"size"`
	URL        string               `json:"url"`
	Base64     string               `json:"base64"`
}
