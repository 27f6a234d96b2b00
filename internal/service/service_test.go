package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"ai-assistant-studio-be/internal/dto"
	"ai-assistant-studio-be/internal/entity"
	"ai-assistant-studio-be/internal/pkg/logger"
	"ai-assistant-studio-be/internal/repository/memory"
	"ai-assistant-studio-be/pkg/events"
	"ai-assistant-studio-be/pkg/mutation"
	"ai-assistant-studio-be/pkg/querycache"
)

type broadcast struct {
	Type string
	Data any
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []broadcast
}

func (n *fakeNotifier) Broadcast(eventType string, data any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, broadcast{Type: eventType, Data: data})
}

func (n *fakeNotifier) ofType(eventType string) []any {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []any
	for _, b := range n.sent {
		if b.Type == eventType {
			out = append(out, b.Data)
		}
	}
	return out
}

type assistantFixture struct {
	repo     *memory.AssistantRepository
	list     *querycache.Cache[[]entity.Assistant]
	detail   *querycache.Cache[entity.Assistant]
	events   *events.Recorder
	notifier *fakeNotifier
	service  IAssistantService

	mu    sync.Mutex
	calls map[string]int
}

func newAssistantFixture(t *testing.T, opts ...memory.AssistantOption) *assistantFixture {
	t.Helper()
	f := &assistantFixture{
		list:     querycache.New[[]entity.Assistant](),
		detail:   querycache.New[entity.Assistant](),
		events:   events.NewRecorder(32),
		notifier: &fakeNotifier{},
		calls:    make(map[string]int),
	}
	base := []memory.AssistantOption{
		memory.WithLatency(0, 0),
		memory.WithDeleteFailureRate(0),
		memory.WithObserver(func(op string, _ error, _ time.Duration) {
			f.mu.Lock()
			f.calls[op]++
			f.mu.Unlock()
		}),
	}
	f.repo = memory.NewAssistantRepository(memory.DefaultAssistants(), append(base, opts...)...)
	f.service = NewAssistantService(
		f.repo,
		f.list,
		f.detail,
		mutation.NewCoordinator[[]entity.Assistant](mutation.Hooks{}),
		f.events,
		f.notifier,
		logger.NewNopLogger(),
	)
	t.Cleanup(func() {
		f.list.Close()
		f.detail.Close()
	})
	return f
}

func (f *assistantFixture) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *assistantFixture) eventTypes() []string {
	var out []string
	for {
		select {
		case e := <-f.events.Events():
			out = append(out, e.EventType())
		default:
			return out
		}
	}
}

func assistantIds(changed any) []string {
	ev := changed.(dto.AssistantsChangedEvent)
	ids := make([]string, len(ev.Assistants))
	for i, a := range ev.Assistants {
		ids[i] = a.Id
	}
	return ids
}

var bg = context.Background()
