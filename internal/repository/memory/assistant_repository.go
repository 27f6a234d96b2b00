package memory

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"strconv"
	"sync"
	"time"

	"ai-assistant-studio-be/internal/entity"
	"ai-assistant-studio-be/internal/repository/contract"

	"gopkg.in/yaml.v3"
)

// DefaultAssistants is the seed used when no seed file is configured.
func DefaultAssistants() []entity.Assistant {
	return []entity.Assistant{
		{
			Id:             "1",
			Name:           "Asistente de Ventas",
			Language:       entity.LanguageSpanish,
			Tone:           entity.ToneProfessional,
			ResponseLength: entity.ResponseLength{Short: 30, Medium: 50, Long: 20},
			AudioEnabled:   true,
			Rules:          "Eres un asistente especializado en ventas. Siempre sé cordial y enfócate en identificar necesidades del cliente antes de ofrecer productos.",
		},
		{
			Id:             "2",
			Name:           "Soporte Técnico",
			Language:       entity.LanguageEnglish,
			Tone:           entity.ToneFriendly,
			ResponseLength: entity.ResponseLength{Short: 20, Medium: 30, Long: 50},
			AudioEnabled:   false,
			Rules:          "Ayudas a resolver problemas técnicos de manera clara y paso a paso. Siempre confirma que el usuario haya entendido antes de continuar.",
		},
	}
}

type seedFile struct {
	Assistants []entity.Assistant `yaml:"assistants"`
}

// LoadSeedFile reads assistants from a YAML file with a top-level
// "assistants" list.
func LoadSeedFile(path string) ([]entity.Assistant, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var seed seedFile
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return nil, fmt.Errorf("parse seed file %s: %w", path, err)
	}
	for i, a := range seed.Assistants {
		if a.Id == "" {
			return nil, fmt.Errorf("seed file %s: assistant %d has no id", path, i)
		}
	}
	return seed.Assistants, nil
}

type AssistantOption func(*AssistantRepository)

// WithLatency sets the simulated latency range. Zero disables it.
func WithLatency(min, max time.Duration) AssistantOption {
	return func(r *AssistantRepository) {
		r.latencyMin, r.latencyMax = min, max
	}
}

// WithDeleteFailureRate sets the probability in [0, 1] that Delete fails with
// entity.ErrTransient.
func WithDeleteFailureRate(rate float64) AssistantOption {
	return func(r *AssistantRepository) { r.failureRate = rate }
}

// WithRandom replaces the random source, returning values in [0, 1).
func WithRandom(f func() float64) AssistantOption {
	return func(r *AssistantRepository) { r.random = f }
}

// WithObserver is called after every operation with its outcome.
func WithObserver(f func(op string, err error, elapsed time.Duration)) AssistantOption {
	return func(r *AssistantRepository) { r.observe = f }
}

// AssistantRepository simulates a remote assistant store: every call sleeps
// for a random latency and Delete fails transiently at a configured rate.
type AssistantRepository struct {
	latencyMin, latencyMax time.Duration
	failureRate            float64
	random                 func() float64
	observe                func(op string, err error, elapsed time.Duration)

	mu         sync.RWMutex
	assistants []entity.Assistant
}

var _ contract.AssistantRepository = (*AssistantRepository)(nil)

func NewAssistantRepository(seed []entity.Assistant, opts ...AssistantOption) *AssistantRepository {
	r := &AssistantRepository{
		latencyMin:  200 * time.Millisecond,
		latencyMax:  600 * time.Millisecond,
		failureRate: 0.1,
		random:      rand.Float64,
		assistants:  entity.CloneAssistants(seed),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *AssistantRepository) wait(ctx context.Context) error {
	d := r.latencyMin
	if r.latencyMax > r.latencyMin {
		d += time.Duration(r.random() * float64(r.latencyMax-r.latencyMin))
	}
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *AssistantRepository) track(op string, started time.Time, err error) {
	if r.observe != nil {
		r.observe(op, err, time.Since(started))
	}
}

func (r *AssistantRepository) indexOf(id string) int {
	for i, a := range r.assistants {
		if a.Id == id {
			return i
		}
	}
	return -1
}

func (r *AssistantRepository) List(ctx context.Context) (out []entity.Assistant, err error) {
	defer func(started time.Time) { r.track("list", started, err) }(time.Now())
	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return entity.CloneAssistants(r.assistants), nil
}

func (r *AssistantRepository) FindById(ctx context.Context, id string) (out *entity.Assistant, err error) {
	defer func(started time.Time) { r.track("find", started, err) }(time.Now())
	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	i := r.indexOf(id)
	if i < 0 {
		return nil, entity.ErrAssistantNotFound
	}
	a := r.assistants[i]
	return &a, nil
}

func (r *AssistantRepository) Create(ctx context.Context, assistant entity.Assistant) (out *entity.Assistant, err error) {
	defer func(started time.Time) { r.track("create", started, err) }(time.Now())
	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	assistant.Id = r.newId()
	r.assistants = append(r.assistants, assistant)
	return &assistant, nil
}

// newId returns a short base36 id unique within the store. Called with r.mu
// held.
func (r *AssistantRepository) newId() string {
	for {
		id := strconv.FormatUint(uint64(r.random()*(1<<46)), 36)
		if id != "" && r.indexOf(id) < 0 {
			return id
		}
	}
}

func (r *AssistantRepository) Update(ctx context.Context, assistant entity.Assistant) (out *entity.Assistant, err error) {
	defer func(started time.Time) { r.track("update", started, err) }(time.Now())
	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexOf(assistant.Id)
	if i < 0 {
		return nil, entity.ErrAssistantNotFound
	}
	r.assistants[i] = assistant
	return &assistant, nil
}

func (r *AssistantRepository) Delete(ctx context.Context, id string) (err error) {
	defer func(started time.Time) { r.track("delete", started, err) }(time.Now())
	if err := r.wait(ctx); err != nil {
		return err
	}
	if r.random() < r.failureRate {
		return entity.ErrTransient
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexOf(id)
	if i < 0 {
		return entity.ErrAssistantNotFound
	}
	next := make([]entity.Assistant, 0, len(r.assistants)-1)
	next = append(next, r.assistants[:i]...)
	r.assistants = append(next, r.assistants[i+1:]...)
	return nil
}

func (r *AssistantRepository) SaveRules(ctx context.Context, id, rules string) (err error) {
	defer func(started time.Time) { r.track("save_rules", started, err) }(time.Now())
	if err := r.wait(ctx); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexOf(id)
	if i < 0 {
		return entity.ErrAssistantNotFound
	}
	r.assistants[i].Rules = rules
	return nil
}
