package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"ai-assistant-studio-be/internal/dto"
	"ai-assistant-studio-be/internal/entity"
	"ai-assistant-studio-be/internal/mapper"
	"ai-assistant-studio-be/internal/pkg/logger"
	"ai-assistant-studio-be/internal/repository/contract"
	"ai-assistant-studio-be/pkg/events"
	"ai-assistant-studio-be/pkg/llm"
	"ai-assistant-studio-be/pkg/llm/mock"
	"ai-assistant-studio-be/pkg/voice"

	"github.com/google/uuid"
)

const (
	// ReplyJobTopic is the watermill topic of queued reply generations.
	ReplyJobTopic = "GENERATE_CHAT_REPLY"

	VoiceNoteText = "🎤 Nota de voz enviada"

	TypingText  = "Escribiendo..."
	TypingAudio = "Analizando tu mensaje de voz..."

	audioPrompt = "Procesa este audio."
	emptyReply  = "Entendido."

	replyTimeout = 60 * time.Second
)

// Reply sources reported to the ReplyObserver.
const (
	ReplySourceLLM      = "llm"
	ReplySourceFallback = "fallback"
)

// AudioSource resolves a stored voice note by artifact id.
type AudioSource interface {
	Get(id string) (mimeType string, data []byte, ok bool)
}

type ReplyObserver interface {
	ObserveReply(source string)
}

type IChatbotService interface {
	History(ctx context.Context, assistantId string) ([]*dto.ChatMessageResponse, error)
	SendText(ctx context.Context, assistantId string, req *dto.SendMessageRequest) (*dto.SendMessageResponse, error)
	SendVoiceNote(ctx context.Context, assistantId string, artifact *voice.Artifact) (*dto.ChatMessageResponse, error)
	Clear(ctx context.Context, assistantId string) error
	// GenerateReply answers a queued message and appends the reply.
	GenerateReply(ctx context.Context, job dto.GenerateReplyJob) (*dto.ChatMessageResponse, error)
}

type ChatbotDeps struct {
	Assistants IAssistantService
	Messages   contract.ChatMessageRepository
	LLM        llm.LLMProvider
	Jobs       IPublisherService
	Audio      AudioSource
	Events     events.Publisher
	Notifier   DashboardNotifier
	Replies    ReplyObserver
	Logger     logger.ILogger
}

type chatbotService struct {
	assistants IAssistantService
	messages   contract.ChatMessageRepository
	llm        llm.LLMProvider
	jobs       IPublisherService
	audio      AudioSource
	events     events.Publisher
	notifier   DashboardNotifier
	replies    ReplyObserver
	logger     logger.ILogger
	mapper     *mapper.ChatMapper

	// fallback picks a canned reply
	fallback func() string
	now      func() time.Time
}

func NewChatbotService(deps ChatbotDeps) IChatbotService {
	s := &chatbotService{
		assistants: deps.Assistants,
		messages:   deps.Messages,
		llm:        deps.LLM,
		jobs:       deps.Jobs,
		audio:      deps.Audio,
		events:     deps.Events,
		notifier:   deps.Notifier,
		replies:    deps.Replies,
		logger:     deps.Logger,
		mapper:     mapper.NewChatMapper(),
		fallback: func() string {
			return mock.Responses[rand.IntN(len(mock.Responses))]
		},
		now: time.Now,
	}
	if s.events == nil {
		s.events = events.NopPublisher{}
	}
	if s.notifier == nil {
		s.notifier = nopNotifier{}
	}
	return s
}

// PersonaPrompt is the system instruction describing the assistant.
func PersonaPrompt(a *entity.Assistant) string {
	prompt := fmt.Sprintf(
		"Eres \"%s\". Responde en %s con tono %s. Si es audio, confirma que has escuchado bien.",
		a.Name, a.Language, a.Tone,
	)
	if rules := strings.TrimSpace(a.Rules); rules != "" {
		prompt += "\n\n" + rules
	}
	return prompt
}

func (s *chatbotService) History(ctx context.Context, assistantId string) ([]*dto.ChatMessageResponse, error) {
	if _, err := s.assistants.Find(ctx, assistantId); err != nil {
		return nil, err
	}
	log, err := s.messages.ListByAssistant(ctx, assistantId)
	if err != nil {
		return nil, err
	}
	return s.mapper.ToResponses(log), nil
}

func (s *chatbotService) SendText(ctx context.Context, assistantId string, req *dto.SendMessageRequest) (*dto.SendMessageResponse, error) {
	if _, err := s.assistants.Find(ctx, assistantId); err != nil {
		return nil, err
	}

	msg, err := s.append(ctx, assistantId, entity.SenderUser, req.Text, "")
	if err != nil {
		return nil, err
	}

	s.enqueue(ctx, dto.GenerateReplyJob{
		AssistantId: assistantId,
		MessageId:   msg.Id,
		Text:        req.Text,
	}, TypingText)

	return &dto.SendMessageResponse{Sent: msg, ReplyPending: true}, nil
}

func (s *chatbotService) SendVoiceNote(ctx context.Context, assistantId string, artifact *voice.Artifact) (*dto.ChatMessageResponse, error) {
	if artifact == nil {
		return nil, voice.ErrNoAudioCaptured
	}
	if _, err := s.assistants.Find(ctx, assistantId); err != nil {
		return nil, err
	}

	msg, err := s.append(ctx, assistantId, entity.SenderUser, VoiceNoteText, artifact.URL)
	if err != nil {
		return nil, err
	}

	s.enqueue(ctx, dto.GenerateReplyJob{
		AssistantId: assistantId,
		MessageId:   msg.Id,
		AudioId:     artifact.ID,
	}, TypingAudio)

	return msg, nil
}

func (s *chatbotService) Clear(ctx context.Context, assistantId string) error {
	if err := s.messages.DeleteByAssistant(ctx, assistantId); err != nil {
		return err
	}
	s.logger.Info("CHAT", "Chat history cleared", map[string]interface{}{"assistant_id": assistantId})
	return nil
}

func (s *chatbotService) append(ctx context.Context, assistantId string, sender entity.Sender, text, audioURL string) (*dto.ChatMessageResponse, error) {
	msg := &entity.ChatMessage{
		Id:          uuid.New(),
		AssistantId: assistantId,
		Sender:      sender,
		Text:        text,
		AudioURL:    audioURL,
		CreatedAt:   s.now(),
	}
	if err := s.messages.Append(ctx, msg); err != nil {
		return nil, fmt.Errorf("append chat message: %w", err)
	}
	res := s.mapper.ToResponse(msg)
	s.notifier.Broadcast(dto.EventChatMessage, res)
	return res, nil
}

// enqueue queues the reply job and announces the typing indicator. When the
// queue refuses the job the reply is generated in the background instead.
func (s *chatbotService) enqueue(ctx context.Context, job dto.GenerateReplyJob, typing string) {
	s.notifier.Broadcast(dto.EventTypingStarted, dto.TypingEvent{AssistantId: job.AssistantId, Text: typing})

	payload, err := json.Marshal(job)
	if err == nil {
		err = s.jobs.Publish(ctx, payload)
	}
	if err == nil {
		return
	}

	s.logger.Warn("CHAT", "Failed to queue reply job, generating inline", map[string]interface{}{
		"assistant_id": job.AssistantId,
		"error":        err.Error(),
	})
	go func() {
		_, _ = s.GenerateReply(context.WithoutCancel(ctx), job)
	}()
}

func (s *chatbotService) GenerateReply(ctx context.Context, job dto.GenerateReplyJob) (*dto.ChatMessageResponse, error) {
	defer s.notifier.Broadcast(dto.EventTypingStopped, dto.TypingEvent{AssistantId: job.AssistantId})

	assistant, err := s.assistants.Find(ctx, job.AssistantId)
	if err != nil {
		if errors.Is(err, entity.ErrAssistantNotFound) {
			s.logger.Info("CHAT", "Assistant gone before reply, dropping", map[string]interface{}{
				"assistant_id": job.AssistantId,
				"message_id":   job.MessageId,
			})
			return nil, err
		}
		assistant = nil
	}

	text, source := s.reply(ctx, assistant, job)
	if s.replies != nil {
		s.replies.ObserveReply(source)
	}

	res, err := s.append(ctx, job.AssistantId, entity.SenderAssistant, text, "")
	if err != nil {
		s.logger.Error("CHAT", "Failed to store reply", map[string]interface{}{
			"assistant_id": job.AssistantId,
			"error":        err.Error(),
		})
		return nil, err
	}

	if perr := s.events.Publish(ctx, events.New(events.TypeChatReplyGenerated, map[string]interface{}{
		"assistant_id": job.AssistantId,
		"message_id":   res.Id.String(),
		"reply_to":     job.MessageId.String(),
		"source":       source,
		"audio":        job.AudioId != "",
	})); perr != nil {
		s.logger.Warn("CHAT", "Failed to publish reply event", map[string]interface{}{"error": perr.Error()})
	}
	return res, nil
}

// reply asks the model and falls back to a canned sentence on any failure,
// so a reply is always produced.
func (s *chatbotService) reply(ctx context.Context, assistant *entity.Assistant, job dto.GenerateReplyJob) (string, string) {
	if assistant == nil || s.llm == nil {
		return s.fallback(), ReplySourceFallback
	}

	msg := llm.Message{Role: llm.RoleUser, Content: job.Text}
	if job.AudioId != "" {
		mimeType, data, ok := s.audio.Get(job.AudioId)
		if !ok {
			s.logger.Warn("CHAT", "Voice note expired before reply", map[string]interface{}{"audio_id": job.AudioId})
			return s.fallback(), ReplySourceFallback
		}
		msg.Audio = &llm.Audio{MimeType: mimeType, Data: data}
		if msg.Content == "" {
			msg.Content = audioPrompt
		}
	}

	ctx, cancel := context.WithTimeout(ctx, replyTimeout)
	defer cancel()

	text, err := s.llm.Chat(ctx, []llm.Message{msg}, llm.WithSystemInstruction(PersonaPrompt(assistant)))
	if err != nil {
		s.logger.Warn("CHAT", "Reply generation failed, using canned reply", map[string]interface{}{
			"assistant_id": assistant.Id,
			"error":        err.Error(),
		})
		return s.fallback(), ReplySourceFallback
	}
	if strings.TrimSpace(text) == "" {
		return emptyReply, ReplySourceLLM
	}
	return text, ReplySourceLLM
}
