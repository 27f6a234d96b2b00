package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"ai-assistant-studio-be/internal/dto"
	"ai-assistant-studio-be/internal/entity"
	"ai-assistant-studio-be/internal/pkg/logger"
	"ai-assistant-studio-be/internal/repository/memory"
	"ai-assistant-studio-be/pkg/events"
	"ai-assistant-studio-be/pkg/llm"
	"ai-assistant-studio-be/pkg/llm/mock"
	"ai-assistant-studio-be/pkg/voice"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLLM struct {
	reply string
	err   error

	mu      sync.Mutex
	history []llm.Message
	options *llm.Options
}

func (p *fakeLLM) Chat(_ context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.history = history
	p.options = llm.Apply(opts...)
	return p.reply, p.err
}

func (p *fakeLLM) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return p.Chat(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}}, opts...)
}

type fakeJobs struct {
	mu   sync.Mutex
	jobs []dto.GenerateReplyJob
	err  error
}

func (j *fakeJobs) Publish(_ context.Context, payload []byte) error {
	if j.err != nil {
		return j.err
	}
	var job dto.GenerateReplyJob
	if err := json.Unmarshal(payload, &job); err != nil {
		return err
	}
	j.mu.Lock()
	j.jobs = append(j.jobs, job)
	j.mu.Unlock()
	return nil
}

type fakeAudio map[string][]byte

func (a fakeAudio) Get(id string) (string, []byte, bool) {
	data, ok := a[id]
	return "audio/ogg;codecs=opus", data, ok
}

type fakeReplies struct {
	mu      sync.Mutex
	sources []string
}

func (r *fakeReplies) ObserveReply(source string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources = append(r.sources, source)
}

type chatFixture struct {
	*assistantFixture
	llm      *fakeLLM
	jobs     *fakeJobs
	replies  *fakeReplies
	messages *memory.ChatMessageRepository
	chat     IChatbotService
}

func newChatFixture(t *testing.T, provider *fakeLLM) *chatFixture {
	t.Helper()
	f := &chatFixture{
		assistantFixture: newAssistantFixture(t),
		llm:              provider,
		jobs:             &fakeJobs{},
		replies:          &fakeReplies{},
		messages:         memory.NewChatMessageRepository(),
	}
	f.chat = NewChatbotService(ChatbotDeps{
		Assistants: f.service,
		Messages:   f.messages,
		LLM:        provider,
		Jobs:       f.jobs,
		Audio:      fakeAudio{"a1": []byte("OggS")},
		Events:     f.events,
		Notifier:   f.notifier,
		Replies:    f.replies,
		Logger:     logger.NewNopLogger(),
	})
	return f
}

func TestPersonaPrompt(t *testing.T) {
	a := memory.DefaultAssistants()[0]

	prompt := PersonaPrompt(&a)

	assert.Contains(t, prompt, `Eres "Asistente de Ventas". Responde en Español con tono Profesional.`)
	assert.Contains(t, prompt, "Si es audio, confirma que has escuchado bien.")
	assert.Contains(t, prompt, a.Rules)

	a.Rules = "  "
	assert.NotContains(t, PersonaPrompt(&a), "\n")
}

func TestChatbotService_SendTextQueuesReply(t *testing.T) {
	f := newChatFixture(t, &fakeLLM{reply: "¡Hola!"})

	res, err := f.chat.SendText(bg, "1", &dto.SendMessageRequest{Text: "hola"})
	require.NoError(t, err)
	assert.True(t, res.ReplyPending)
	assert.Equal(t, "user", res.Sent.Sender)
	assert.Equal(t, "hola", res.Sent.Text)

	require.Len(t, f.jobs.jobs, 1)
	job := f.jobs.jobs[0]
	assert.Equal(t, res.Sent.Id, job.MessageId)
	assert.Equal(t, "hola", job.Text)

	typing := f.notifier.ofType(dto.EventTypingStarted)
	require.Len(t, typing, 1)
	assert.Equal(t, TypingText, typing[0].(dto.TypingEvent).Text)
}

func TestChatbotService_SendTextUnknownAssistant(t *testing.T) {
	f := newChatFixture(t, &fakeLLM{})

	_, err := f.chat.SendText(bg, "missing", &dto.SendMessageRequest{Text: "hola"})
	assert.ErrorIs(t, err, entity.ErrAssistantNotFound)
	assert.Empty(t, f.jobs.jobs)
}

func TestChatbotService_GenerateReplyUsesPersona(t *testing.T) {
	f := newChatFixture(t, &fakeLLM{reply: "Claro que sí."})
	sent, err := f.chat.SendText(bg, "1", &dto.SendMessageRequest{Text: "¿Precios?"})
	require.NoError(t, err)

	reply, err := f.chat.GenerateReply(bg, f.jobs.jobs[0])
	require.NoError(t, err)
	assert.Equal(t, "assistant", reply.Sender)
	assert.Equal(t, "Claro que sí.", reply.Text)

	assert.Contains(t, f.llm.options.SystemInstruction, `Eres "Asistente de Ventas"`)
	require.Len(t, f.llm.history, 1)
	assert.Equal(t, "¿Precios?", f.llm.history[0].Content)
	assert.Nil(t, f.llm.history[0].Audio)

	history, err := f.chat.History(bg, "1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, sent.Sent.Id, history[0].Id)
	assert.Equal(t, reply.Id, history[1].Id)

	assert.Equal(t, []string{ReplySourceLLM}, f.replies.sources)
	assert.Len(t, f.notifier.ofType(dto.EventTypingStopped), 1)
	assert.Contains(t, f.eventTypes(), events.TypeChatReplyGenerated)
}

func TestChatbotService_FailureFallsBackToCanned(t *testing.T) {
	f := newChatFixture(t, &fakeLLM{err: errors.New("quota exceeded")})
	_, err := f.chat.SendText(bg, "2", &dto.SendMessageRequest{Text: "help"})
	require.NoError(t, err)

	reply, err := f.chat.GenerateReply(bg, f.jobs.jobs[0])
	require.NoError(t, err)
	assert.Contains(t, mock.Responses, reply.Text)
	assert.Equal(t, []string{ReplySourceFallback}, f.replies.sources)
}

func TestChatbotService_EmptyModelReply(t *testing.T) {
	f := newChatFixture(t, &fakeLLM{reply: "  "})
	_, err := f.chat.SendText(bg, "1", &dto.SendMessageRequest{Text: "hola"})
	require.NoError(t, err)

	reply, err := f.chat.GenerateReply(bg, f.jobs.jobs[0])
	require.NoError(t, err)
	assert.Equal(t, "Entendido.", reply.Text)
}

func TestChatbotService_VoiceNoteAttachesAudio(t *testing.T) {
	f := newChatFixture(t, &fakeLLM{reply: "Te escuché bien."})

	msg, err := f.chat.SendVoiceNote(bg, "1", &voice.Artifact{
		ID:       "a1",
		MimeType: "audio/ogg;codecs=opus",
		URL:      "/api/audio/v1/a1",
	})
	require.NoError(t, err)
	assert.Equal(t, VoiceNoteText, msg.Text)
	assert.Equal(t, "/api/audio/v1/a1", msg.AudioURL)

	typing := f.notifier.ofType(dto.EventTypingStarted)
	require.Len(t, typing, 1)
	assert.Equal(t, TypingAudio, typing[0].(dto.TypingEvent).Text)

	require.Len(t, f.jobs.jobs, 1)
	_, err = f.chat.GenerateReply(bg, f.jobs.jobs[0])
	require.NoError(t, err)

	require.Len(t, f.llm.history, 1)
	require.NotNil(t, f.llm.history[0].Audio)
	assert.Equal(t, []byte("OggS"), f.llm.history[0].Audio.Data)
	assert.Equal(t, "Procesa este audio.", f.llm.history[0].Content)
}

func TestChatbotService_ExpiredAudioFallsBack(t *testing.T) {
	f := newChatFixture(t, &fakeLLM{reply: "no debería usarse"})

	_, err := f.chat.SendVoiceNote(bg, "1", &voice.Artifact{ID: "gone", URL: "/api/audio/v1/gone"})
	require.NoError(t, err)

	reply, err := f.chat.GenerateReply(bg, f.jobs.jobs[0])
	require.NoError(t, err)
	assert.Contains(t, mock.Responses, reply.Text)
}

func TestChatbotService_QueueFailureGeneratesInline(t *testing.T) {
	f := newChatFixture(t, &fakeLLM{reply: "inline"})
	f.jobs.err = errors.New("closed")

	_, err := f.chat.SendText(bg, "1", &dto.SendMessageRequest{Text: "hola"})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		history, err := f.chat.History(bg, "1")
		return err == nil && len(history) == 2 && history[1].Text == "inline"
	}, time.Second, 5*time.Millisecond)
}

func TestChatbotService_ClearEmptiesLog(t *testing.T) {
	f := newChatFixture(t, &fakeLLM{reply: "ok"})
	_, err := f.chat.SendText(bg, "1", &dto.SendMessageRequest{Text: "hola"})
	require.NoError(t, err)

	require.NoError(t, f.chat.Clear(bg, "1"))

	history, err := f.chat.History(bg, "1")
	require.NoError(t, err)
	assert.Empty(t, history)
}
