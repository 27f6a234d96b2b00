package service

import (
	"context"
	"errors"

	"ai-assistant-studio-be/internal/dto"
	"ai-assistant-studio-be/internal/pkg/logger"
	"ai-assistant-studio-be/pkg/events"
	"ai-assistant-studio-be/pkg/voice"
	"ai-assistant-studio-be/pkg/voice/analyser"
	"ai-assistant-studio-be/pkg/voice/recorder"
)

type IVoiceService interface {
	// NewEngine builds a capture engine over a client's microphone.
	NewEngine(platform voice.Platform) *voice.Engine
	// Complete turns a stopped session into a voice note in the assistant's
	// chat. Discarded sessions return the discard reason; OutcomeNone returns
	// nil, nil.
	Complete(ctx context.Context, assistantId string, outcome voice.Outcome) (*dto.VoiceNotePayload, error)
}

type voiceService struct {
	cfg       voice.Config
	artifacts voice.ArtifactStore
	observer  voice.Observer
	chatbot   IChatbotService
	events    events.Publisher
	logger    logger.ILogger
}

func NewVoiceService(
	cfg voice.Config,
	artifacts voice.ArtifactStore,
	observer voice.Observer,
	chatbot IChatbotService,
	publisher events.Publisher,
	log logger.ILogger,
) IVoiceService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &voiceService{
		cfg:       cfg,
		artifacts: artifacts,
		observer:  observer,
		chatbot:   chatbot,
		events:    publisher,
		logger:    log,
	}
}

func (s *voiceService) NewEngine(platform voice.Platform) *voice.Engine {
	opts := []voice.Option{
		voice.WithAnalyserFactory(func(stream voice.Stream, fftSize int, smoothing float64) (voice.Analyser, error) {
			return analyser.New(stream, fftSize, smoothing)
		}),
		voice.WithRecorderFactory(func(stream voice.Stream, mimeType string) (voice.Recorder, error) {
			return recorder.New(stream, mimeType)
		}),
		voice.WithTypeSupport(recorder.IsTypeSupported),
		voice.WithArtifactStore(s.artifacts),
		voice.WithLogger(s.logger),
	}
	if s.observer != nil {
		opts = append(opts, voice.WithObserver(s.observer))
	}
	return voice.NewEngine(platform, s.cfg, opts...)
}

func (s *voiceService) Complete(ctx context.Context, assistantId string, outcome voice.Outcome) (*dto.VoiceNotePayload, error) {
	switch outcome.Status {
	case voice.OutcomeDiscarded:
		reason := outcome.Reason
		if reason == nil {
			reason = voice.ErrSilenceDiscarded
		}
		s.publish(ctx, events.TypeVoiceNoteDiscarded, map[string]interface{}{
			"assistant_id": assistantId,
			"reason":       reason.Error(),
			"peak":         outcome.Peak,
		})
		return nil, reason

	case voice.OutcomeRecorded:
		artifact := outcome.Artifact
		if artifact == nil {
			return nil, errors.New("voice: recorded outcome without artifact")
		}
		msg, err := s.chatbot.SendVoiceNote(ctx, assistantId, artifact)
		if err != nil {
			return nil, err
		}
		s.publish(ctx, events.TypeVoiceNoteRecorded, map[string]interface{}{
			"assistant_id": assistantId,
			"artifact_id":  artifact.ID,
			"mime_type":    artifact.MimeType,
			"size":         artifact.Size,
		})
		return &dto.VoiceNotePayload{
			Message:    msg,
			ArtifactId: artifact.ID,
			MimeType:   artifact.MimeType,
			Size:       artifact.Size,
			URL:        artifact.URL,
			Base64:     artifact.Base64,
		}, nil

	default:
		return nil, nil
	}
}

func (s *voiceService) publish(ctx context.Context, eventType string, data map[string]interface{}) {
	if err := s.events.Publish(context.WithoutCancel(ctx), events.New(eventType, data)); err != nil {
		s.logger.Warn("VOICE", "Failed to publish event", map[string]interface{}{
			"type":  eventType,
			"error": err.Error(),
		})
	}
}
