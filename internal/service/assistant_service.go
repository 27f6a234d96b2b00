package service

import (
	"context"
	"errors"

	"ai-assistant-studio-be/internal/dto"
	"ai-assistant-studio-be/internal/entity"
	"ai-assistant-studio-be/internal/mapper"
	"ai-assistant-studio-be/internal/pkg/logger"
	"ai-assistant-studio-be/internal/repository/contract"
	"ai-assistant-studio-be/pkg/events"
	"ai-assistant-studio-be/pkg/mutation"
	"ai-assistant-studio-be/pkg/querycache"
)

// AssistantsKey is the cache and mutation key of the assistant collection.
const AssistantsKey = "assistants"

func assistantKey(id string) string {
	return "assistant:" + id
}

// DashboardNotifier pushes an event to every connected dashboard.
type DashboardNotifier interface {
	Broadcast(eventType string, data any)
}

type nopNotifier struct{}

func (nopNotifier) Broadcast(string, any) {}

type IAssistantService interface {
	List(ctx context.Context) ([]dto.AssistantResponse, error)
	GetById(ctx context.Context, id string) (*dto.AssistantResponse, error)
	// Find returns the domain assistant, served from the detail cache.
	Find(ctx context.Context, id string) (*entity.Assistant, error)
	Create(ctx context.Context, req *dto.CreateAssistantRequest) (*dto.AssistantResponse, error)
	Update(ctx context.Context, req *dto.UpdateAssistantRequest) (*dto.AssistantResponse, error)
	Delete(ctx context.Context, id string) error
	SaveRules(ctx context.Context, id string, req *dto.SaveRulesRequest) error
}

type assistantService struct {
	repo        contract.AssistantRepository
	list        *querycache.Cache[[]entity.Assistant]
	detail      *querycache.Cache[entity.Assistant]
	coordinator *mutation.Coordinator[[]entity.Assistant]
	events      events.Publisher
	notifier    DashboardNotifier
	mapper      *mapper.AssistantMapper
	logger      logger.ILogger
}

func NewAssistantService(
	repo contract.AssistantRepository,
	list *querycache.Cache[[]entity.Assistant],
	detail *querycache.Cache[entity.Assistant],
	coordinator *mutation.Coordinator[[]entity.Assistant],
	publisher events.Publisher,
	notifier DashboardNotifier,
	log logger.ILogger,
) IAssistantService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if notifier == nil {
		notifier = nopNotifier{}
	}
	s := &assistantService{
		repo:        repo,
		list:        list,
		detail:      detail,
		coordinator: coordinator,
		events:      publisher,
		notifier:    notifier,
		mapper:      mapper.NewAssistantMapper(),
		logger:      log,
	}
	// every write to the collection, optimistic or authoritative, reaches
	// the dashboards
	list.Subscribe(func(key string, value []entity.Assistant) {
		if key != AssistantsKey {
			return
		}
		s.notifier.Broadcast(dto.EventAssistantsChanged, dto.AssistantsChangedEvent{
			Assistants: s.mapper.ToResponses(value),
		})
	})
	return s
}

func (s *assistantService) fetchList(ctx context.Context) ([]entity.Assistant, error) {
	return s.repo.List(ctx)
}

func (s *assistantService) fetchOne(id string) querycache.Fetcher[entity.Assistant] {
	return func(ctx context.Context) (entity.Assistant, error) {
		a, err := s.repo.FindById(ctx, id)
		if err != nil {
			return entity.Assistant{}, err
		}
		return *a, nil
	}
}

func (s *assistantService) resyncList(ctx context.Context) error {
	_, err := s.list.Refresh(ctx, AssistantsKey, s.fetchList)
	return err
}

func (s *assistantService) List(ctx context.Context) ([]dto.AssistantResponse, error) {
	list, err := s.list.Fetch(ctx, AssistantsKey, s.fetchList)
	if err != nil {
		return nil, err
	}
	return s.mapper.ToResponses(list), nil
}

func (s *assistantService) Find(ctx context.Context, id string) (*entity.Assistant, error) {
	a, err := s.detail.Fetch(ctx, assistantKey(id), s.fetchOne(id))
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *assistantService) GetById(ctx context.Context, id string) (*dto.AssistantResponse, error) {
	a, err := s.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	res := s.mapper.ToResponse(*a)
	return &res, nil
}

func (s *assistantService) Create(ctx context.Context, req *dto.CreateAssistantRequest) (*dto.AssistantResponse, error) {
	created, err := s.repo.Create(ctx, s.mapper.FromCreate(req))
	if err != nil {
		return nil, err
	}

	s.detail.Set(assistantKey(created.Id), *created)
	if err := s.resyncList(context.WithoutCancel(ctx)); err != nil {
		s.list.Invalidate(AssistantsKey)
		s.logger.Warn("ASSISTANT", "Failed to refresh assistants after create", map[string]interface{}{
			"assistant_id": created.Id,
			"error":        err.Error(),
		})
	}

	s.publish(ctx, events.TypeAssistantCreated, map[string]interface{}{
		"assistant_id": created.Id,
		"name":         created.Name,
	})
	s.logger.Info("ASSISTANT", "Assistant created", map[string]interface{}{"assistant_id": created.Id})

	res := s.mapper.ToResponse(*created)
	return &res, nil
}

func (s *assistantService) Update(ctx context.Context, req *dto.UpdateAssistantRequest) (*dto.AssistantResponse, error) {
	next := s.mapper.FromUpdate(req)
	var updated *entity.Assistant

	err := s.write(ctx, next.Id, func(a entity.Assistant) entity.Assistant {
		return next
	}, func(ctx context.Context) error {
		var err error
		updated, err = s.repo.Update(ctx, next)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.TypeAssistantUpdated, map[string]interface{}{
		"assistant_id": updated.Id,
		"field":        "all",
	})
	res := s.mapper.ToResponse(*updated)
	return &res, nil
}

func (s *assistantService) SaveRules(ctx context.Context, id string, req *dto.SaveRulesRequest) error {
	err := s.write(ctx, id, func(a entity.Assistant) entity.Assistant {
		a.Rules = req.Rules
		return a
	}, func(ctx context.Context) error {
		return s.repo.SaveRules(ctx, id, req.Rules)
	})
	if err != nil {
		return err
	}

	s.publish(ctx, events.TypeAssistantUpdated, map[string]interface{}{
		"assistant_id": id,
		"field":        "rules",
	})
	return nil
}

// write runs an optimistic edit of one assistant: the cached collection and
// detail show the edited value until the store answers, and both are
// reloaded afterwards whatever the answer was.
func (s *assistantService) write(
	ctx context.Context,
	id string,
	edit func(entity.Assistant) entity.Assistant,
	remote func(ctx context.Context) error,
) error {
	detailKey := assistantKey(id)
	var (
		previous  entity.Assistant
		hadDetail bool
	)

	return s.coordinator.Execute(ctx, AssistantsKey, mutation.Behaviors[[]entity.Assistant]{
		Prepare: func(ctx context.Context) error {
			if err := s.list.Cancel(ctx, AssistantsKey); err != nil {
				return err
			}
			previous, hadDetail = s.detail.Get(detailKey)
			return nil
		},
		Snapshot: func() []entity.Assistant {
			list, _ := s.list.Get(AssistantsKey)
			return list
		},
		Apply: func(snapshot []entity.Assistant) {
			if hadDetail {
				s.detail.Set(detailKey, edit(previous))
			}
			if snapshot == nil {
				return
			}
			for _, a := range snapshot {
				if a.Id == id {
					s.list.Set(AssistantsKey, mutation.Replace(snapshot, func(a entity.Assistant) bool {
						return a.Id == id
					}, edit(a)))
					return
				}
			}
		},
		Remote: remote,
		Rollback: func(snapshot []entity.Assistant) {
			if snapshot != nil {
				s.list.Set(AssistantsKey, snapshot)
			}
			if hadDetail {
				s.detail.Set(detailKey, previous)
			}
		},
		Resync: func(ctx context.Context) error {
			s.detail.Invalidate(detailKey)
			return s.resyncList(ctx)
		},
		OnError: func(err error) {
			s.logger.Warn("ASSISTANT", "Assistant write rolled back", map[string]interface{}{
				"assistant_id": id,
				"error":        err.Error(),
			})
		},
	})
}

// Delete removes the assistant from the cached collection at once and asks
// the store to delete it. When the store refuses, the collection is restored
// and the refusal is returned.
func (s *assistantService) Delete(ctx context.Context, id string) error {
	detailKey := assistantKey(id)

	return s.coordinator.Execute(ctx, AssistantsKey, mutation.Behaviors[[]entity.Assistant]{
		Prepare: func(ctx context.Context) error {
			return s.list.Cancel(ctx, AssistantsKey)
		},
		Snapshot: func() []entity.Assistant {
			list, _ := s.list.Get(AssistantsKey)
			return list
		},
		Apply: func(snapshot []entity.Assistant) {
			if snapshot == nil {
				return
			}
			s.list.Set(AssistantsKey, mutation.Without(snapshot, func(a entity.Assistant) bool {
				return a.Id == id
			}))
		},
		Remote: func(ctx context.Context) error {
			return s.repo.Delete(ctx, id)
		},
		Rollback: func(snapshot []entity.Assistant) {
			if snapshot != nil {
				s.list.Set(AssistantsKey, snapshot)
			}
		},
		Resync: func(ctx context.Context) error {
			return s.resyncList(ctx)
		},
		OnSuccess: func() {
			s.detail.Remove(detailKey)
			s.publish(ctx, events.TypeAssistantDeleted, map[string]interface{}{"assistant_id": id})
			s.logger.Info("ASSISTANT", "Assistant deleted", map[string]interface{}{"assistant_id": id})
		},
		OnError: func(err error) {
			if errors.Is(err, entity.ErrAssistantNotFound) {
				s.detail.Remove(detailKey)
				return
			}
			s.publish(ctx, events.TypeAssistantDeleteRolledBack, map[string]interface{}{
				"assistant_id": id,
				"error":        err.Error(),
			})
			s.logger.Warn("ASSISTANT", "Assistant delete rolled back", map[string]interface{}{
				"assistant_id": id,
				"error":        err.Error(),
			})
		},
	})
}

func (s *assistantService) publish(ctx context.Context, eventType string, data map[string]interface{}) {
	if err := s.events.Publish(context.WithoutCancel(ctx), events.New(eventType, data)); err != nil {
		s.logger.Warn("ASSISTANT", "Failed to publish event", map[string]interface{}{
			"type":  eventType,
			"error": err.Error(),
		})
	}
}
