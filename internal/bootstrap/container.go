package bootstrap

import (
	"context"
	"log"
	"time"

	"ai-assistant-studio-be/internal/config"
	"ai-assistant-studio-be/internal/controller"
	"ai-assistant-studio-be/internal/entity"
	"ai-assistant-studio-be/internal/handler"
	"ai-assistant-studio-be/internal/pkg/logger"
	"ai-assistant-studio-be/internal/repository/contract"
	"ai-assistant-studio-be/internal/repository/implementation"
	"ai-assistant-studio-be/internal/repository/memory"
	"ai-assistant-studio-be/internal/service"
	"ai-assistant-studio-be/internal/websocket"
	"ai-assistant-studio-be/pkg/events"
	"ai-assistant-studio-be/pkg/llm"
	"ai-assistant-studio-be/pkg/llm/factory"
	"ai-assistant-studio-be/pkg/llm/mock"
	"ai-assistant-studio-be/pkg/metrics"
	"ai-assistant-studio-be/pkg/mutation"
	pktNats "ai-assistant-studio-be/pkg/nats"
	"ai-assistant-studio-be/pkg/querycache"
	"ai-assistant-studio-be/pkg/voice"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// AudioURLPrefix is where stored voice notes are served.
const AudioURLPrefix = "/api/audio/v1"

type Container struct {
	// Controllers
	AssistantController controller.IAssistantController
	ChatbotController   controller.IChatbotController
	AudioController     controller.IAudioController
	LogController       controller.ILogController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService

	// WebSockets
	SocketHandler *handler.SocketHandler
	WebSocketHub  *websocket.Hub

	Metrics  *metrics.Metrics
	Registry *prometheus.Registry
	Logger   logger.ILogger

	closers []func()
}

// Close releases the connections opened by NewContainer.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	_ = c.Logger.Sync()
}

// NewContainer wires every component. db may be nil unless the store driver
// is postgres. Background loops stop when ctx is cancelled.
func NewContainer(ctx context.Context, db *gorm.DB, cfg *config.Config) *Container {
	c := &Container{}

	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	voiceLogger := logger.NewIsolatedLogger(cfg.App.VoiceLogFilePath)
	c.Logger = sysLogger

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics(registry)
	c.Metrics, c.Registry = m, registry

	// 2. Event Bus
	var publisher events.Publisher = events.NopPublisher{}
	if cfg.App.NatsURL != "" {
		natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL, sysLogger)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		} else {
			publisher = natsPub
			c.closers = append(c.closers, natsPub.Close)
		}
		if natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL, sysLogger); err != nil {
			log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
		} else {
			startEventAudit(ctx, natsSub, sysLogger)
			c.closers = append(c.closers, natsSub.Close)
		}
	}

	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 64},
		watermillLogger,
	)
	c.closers = append(c.closers, func() { _ = pubSub.Close() })

	// Redis
	var rdb *redis.Client
	if cfg.App.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.App.RedisURL)
		if err != nil {
			log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
			opt = &redis.Options{Addr: cfg.App.RedisURL}
		}
		rdb = redis.NewClient(opt)
		if _, err := rdb.Ping(ctx).Result(); err != nil {
			log.Printf("[WARN] Failed to connect to Redis: %v", err)
		}
		c.closers = append(c.closers, func() { _ = rdb.Close() })
	}

	// WebSocket Hub
	wsHub := websocket.NewHub(rdb, sysLogger)
	go wsHub.Run(ctx)
	c.WebSocketHub = wsHub

	// 3. Repositories
	assistantRepo, messageRepo := newRepositories(db, cfg, m)

	// 4. Services
	llmProvider := newLLMProvider(ctx, cfg)

	listCache := querycache.New[[]entity.Assistant]()
	detailCache := querycache.New[entity.Assistant]()
	c.closers = append(c.closers, listCache.Close, detailCache.Close)

	coordinator := mutation.NewCoordinator[[]entity.Assistant](withLogging(m.MutationHooks(), sysLogger))

	assistantService := service.NewAssistantService(
		assistantRepo,
		listCache,
		detailCache,
		coordinator,
		publisher,
		wsHub,
		sysLogger,
	)

	artifacts := voice.NewMemoryArtifactStore(AudioURLPrefix, cfg.Voice.ArtifactTTL)

	replyJobs := service.NewPublisherService(cfg.App.ReplyTopic, pubSub)
	chatbotService := service.NewChatbotService(service.ChatbotDeps{
		Assistants: assistantService,
		Messages:   messageRepo,
		LLM:        llmProvider,
		Jobs:       replyJobs,
		Audio:      artifacts,
		Events:     publisher,
		Notifier:   wsHub,
		Replies:    m,
		Logger:     sysLogger,
	})
	c.ConsumerService = service.NewConsumerService(pubSub, cfg.App.ReplyTopic, chatbotService, sysLogger)

	voiceCfg := voice.DefaultConfig()
	voiceCfg.SilenceThreshold = cfg.Voice.SilenceThreshold
	voiceCfg.DetectionThreshold = cfg.Voice.DetectionThreshold
	voiceCfg.FFTSize = cfg.Voice.FFTSize
	voiceCfg.Smoothing = cfg.Voice.Smoothing
	voiceCfg.FrameInterval = cfg.Voice.FrameInterval
	voiceService := service.NewVoiceService(voiceCfg, artifacts, m.VoiceObserver(), chatbotService, publisher, voiceLogger)

	// 5. Handlers & Controllers
	c.SocketHandler = handler.NewSocketHandler(wsHub, assistantService, voiceService, publisher, sysLogger, voiceLogger)
	c.AssistantController = controller.NewAssistantController(assistantService)
	c.ChatbotController = controller.NewChatbotController(chatbotService)
	c.AudioController = controller.NewAudioController(artifacts)
	c.LogController = controller.NewLogController(sysLogger)

	return c
}

func newRepositories(db *gorm.DB, cfg *config.Config, m *metrics.Metrics) (contract.AssistantRepository, contract.ChatMessageRepository) {
	if cfg.Store.Driver == "postgres" {
		if db == nil {
			log.Fatalf("[FATAL] STORE_DRIVER=postgres requires DB_CONNECTION_STRING")
		}
		if err := implementation.AutoMigrate(db); err != nil {
			log.Fatalf("[FATAL] Failed to migrate assistant tables: %v", err)
		}
		log.Printf("[INFO] Using Assistant Store: POSTGRES")
		return implementation.NewAssistantRepository(db), implementation.NewChatMessageRepository(db)
	}

	seed := memory.DefaultAssistants()
	if cfg.Store.SeedFile != "" {
		loaded, err := memory.LoadSeedFile(cfg.Store.SeedFile)
		if err != nil {
			log.Fatalf("[FATAL] Failed to load assistant seed file: %v", err)
		}
		seed = loaded
	}
	log.Printf("[INFO] Using Assistant Store: MEMORY (%d assistants, latency %s-%s, delete failure rate %.2f)",
		len(seed), cfg.Store.LatencyMin, cfg.Store.LatencyMax, cfg.Store.DeleteFailureRate)

	repo := memory.NewAssistantRepository(seed,
		memory.WithLatency(cfg.Store.LatencyMin, cfg.Store.LatencyMax),
		memory.WithDeleteFailureRate(cfg.Store.DeleteFailureRate),
		memory.WithObserver(m.ObserveStore),
	)
	return repo, memory.NewChatMessageRepository()
}

// newLLMProvider falls back to the canned provider when the configured one
// cannot start, so chat keeps answering.
func newLLMProvider(ctx context.Context, cfg *config.Config) llm.LLMProvider {
	provider, err := factory.NewLLMProvider(ctx, factory.Config{
		Provider:      cfg.Ai.LLMProvider,
		Model:         cfg.Ai.LLMModel,
		OllamaBaseURL: cfg.Ai.OllamaBaseURL,
		GeminiAPIKey:  cfg.Keys.GoogleGemini,
		OpenAIAPIKey:  cfg.Keys.OpenAI,
		OpenAIBaseURL: cfg.Ai.OpenAIBaseURL,
	})
	if err != nil {
		log.Printf("[WARN] Failed to initialize LLM Provider %q: %v. Using canned replies", cfg.Ai.LLMProvider, err)
		return mock.NewMockProvider(time.Second, 2*time.Second)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)
	return provider
}

// withLogging chains log lines onto the metric hooks.
func withLogging(h mutation.Hooks, log logger.ILogger) mutation.Hooks {
	rollback, resync := h.OnRollback, h.OnResyncError
	h.OnRollback = func(key string, err error) {
		rollback(key, err)
		log.Warn("MUTATION", "Optimistic update rolled back", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
	}
	h.OnResyncError = func(key string, err error) {
		resync(key, err)
		log.Error("MUTATION", "Resync after mutation failed", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
	}
	return h
}

// startEventAudit logs every domain event seen on the bus.
func startEventAudit(ctx context.Context, sub *pktNats.Subscriber, log logger.ILogger) {
	err := sub.Subscribe(ctx, pktNats.SubjectPrefix+">", "studio-audit", func(_ context.Context, event events.Event) error {
		log.Info("EVENTS", event.EventType(), map[string]interface{}{
			"occurred_at": event.Timestamp(),
			"payload":     event.Payload(),
		})
		return nil
	})
	if err != nil {
		log.Warn("EVENTS", "Event audit disabled", map[string]interface{}{"error": err.Error()})
	}
}
