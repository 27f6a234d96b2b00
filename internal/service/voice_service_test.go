package service

import (
	"testing"

	"ai-assistant-studio-be/internal/pkg/logger"
	"ai-assistant-studio-be/pkg/events"
	"ai-assistant-studio-be/pkg/voice"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newVoiceFixture(t *testing.T) (*chatFixture, IVoiceService) {
	f := newChatFixture(t, &fakeLLM{reply: "ok"})
	svc := NewVoiceService(voice.DefaultConfig(), voice.NewMemoryArtifactStore("/api/audio/v1", 0), nil, f.chat, f.events, logger.NewNopLogger())
	return f, svc
}

func TestVoiceService_CompleteRecorded(t *testing.T) {
	f, svc := newVoiceFixture(t)

	payload, err := svc.Complete(bg, "1", voice.Outcome{
		Status: voice.OutcomeRecorded,
		Peak:   0.4,
		Artifact: &voice.Artifact{
			ID:       "a1",
			MimeType: "audio/wav",
			Base64:   "UklGRg==",
			URL:      "/api/audio/v1/a1",
			Size:     4,
		},
	})
	require.NoError(t, err)
	require.NotNil(t, payload)
	assert.Equal(t, "a1", payload.ArtifactId)
	assert.Equal(t, "UklGRg==", payload.Base64)
	assert.Equal(t, VoiceNoteText, payload.Message.Text)
	assert.Equal(t, "/api/audio/v1/a1", payload.Message.AudioURL)

	assert.Contains(t, f.eventTypes(), events.TypeVoiceNoteRecorded)
}

func TestVoiceService_CompleteDiscarded(t *testing.T) {
	f, svc := newVoiceFixture(t)

	payload, err := svc.Complete(bg, "1", voice.Outcome{
		Status: voice.OutcomeDiscarded,
		Reason: voice.ErrSilenceDiscarded,
		Peak:   0.004,
	})
	assert.Nil(t, payload)
	assert.ErrorIs(t, err, voice.ErrSilenceDiscarded)

	history, herr := f.chat.History(bg, "1")
	require.NoError(t, herr)
	assert.Empty(t, history)
	assert.Contains(t, f.eventTypes(), events.TypeVoiceNoteDiscarded)
}

func TestVoiceService_CompleteNone(t *testing.T) {
	_, svc := newVoiceFixture(t)

	payload, err := svc.Complete(bg, "1", voice.Outcome{Status: voice.OutcomeNone})
	assert.NoError(t, err)
	assert.Nil(t, payload)
}

func TestVoiceService_NewEngineUsesConfig(t *testing.T) {
	_, svc := newVoiceFixture(t)

	engine := svc.NewEngine(nil)
	assert.Equal(t, 0.01, engine.Config().SilenceThreshold)
	assert.Equal(t, 0.02, engine.Config().DetectionThreshold)
}
