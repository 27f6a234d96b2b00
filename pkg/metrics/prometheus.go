package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"ai-assistant-studio-be/pkg/mutation"
	"ai-assistant-studio-be/pkg/voice"
)

// Metrics contains all Prometheus metrics for the studio backend
type Metrics struct {
	// Voice capture metrics
	ActiveSessions  prometheus.Gauge
	SessionsStarted prometheus.Counter
	SessionOutcomes *prometheus.CounterVec
	SessionDuration prometheus.Histogram
	FramesPublished prometheus.Counter
	DeviceErrors    prometheus.Counter
	ArtifactSize    prometheus.Histogram

	// Optimistic mutation metrics
	Mutations        *prometheus.CounterVec
	MutationDuration *prometheus.HistogramVec
	Rollbacks        *prometheus.CounterVec
	ResyncFailures   *prometheus.CounterVec

	// Assistant store metrics
	StoreRequests *prometheus.CounterVec
	StoreLatency  *prometheus.HistogramVec

	// Chat metrics
	Replies *prometheus.CounterVec

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates the metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ActiveSessions: f.NewGauge(prometheus.GaugeOpts{
			Name: "studio_voice_active_sessions",
			Help: "Current number of recording sessions",
		}),
		SessionsStarted: f.NewCounter(prometheus.CounterOpts{
			Name: "studio_voice_sessions_started_total",
			Help: "Total number of recording sessions started",
		}),
		SessionOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "studio_voice_session_outcomes_total",
			Help: "Stopped sessions by outcome",
		}, []string{"outcome"}),
		SessionDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "studio_voice_session_duration_seconds",
			Help:    "Duration of recording sessions",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 8), // 0.5s to ~1 minute
		}),
		FramesPublished: f.NewCounter(prometheus.CounterOpts{
			Name: "studio_voice_frames_published_total",
			Help: "Total number of volume frames published",
		}),
		DeviceErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "studio_voice_device_errors_total",
			Help: "Failures to acquire an input device",
		}),
		ArtifactSize: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "studio_voice_artifact_size_bytes",
			Help:    "Size of assembled voice notes",
			Buckets: prometheus.ExponentialBuckets(1024, 2, 12), // 1KB to ~4MB
		}),

		Mutations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "studio_mutations_total",
			Help: "Optimistic mutations by key and result",
		}, []string{"key", "result"}),
		MutationDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "studio_mutation_duration_seconds",
			Help:    "Time from optimistic apply to settlement",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 8),
		}, []string{"key"}),
		Rollbacks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "studio_mutation_rollbacks_total",
			Help: "Optimistic mutations rolled back",
		}, []string{"key"}),
		ResyncFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "studio_mutation_resync_failures_total",
			Help: "Post-settlement resyncs that failed",
		}, []string{"key"}),

		StoreRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "studio_store_requests_total",
			Help: "Assistant store calls by operation and result",
		}, []string{"op", "result"}),
		StoreLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "studio_store_latency_seconds",
			Help:    "Assistant store call latency",
			Buckets: prometheus.LinearBuckets(0.1, 0.1, 8),
		}, []string{"op"}),

		Replies: f.NewCounterVec(prometheus.CounterOpts{
			Name: "studio_chat_replies_total",
			Help: "Assistant replies by source",
		}, []string{"source"}),

		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "studio_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "studio_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// ObserveStore records one assistant store call.
func (m *Metrics) ObserveStore(op string, err error, elapsed time.Duration) {
	m.StoreRequests.WithLabelValues(op, result(err)).Inc()
	m.StoreLatency.WithLabelValues(op).Observe(elapsed.Seconds())
}

// ObserveReply counts a chat reply by where its text came from.
func (m *Metrics) ObserveReply(source string) {
	m.Replies.WithLabelValues(source).Inc()
}

// MutationHooks feeds the coordinator's lifecycle into the mutation metrics.
func (m *Metrics) MutationHooks() mutation.Hooks {
	return mutation.Hooks{
		OnSettled: func(key string, err error, elapsed time.Duration) {
			m.Mutations.WithLabelValues(key, result(err)).Inc()
			m.MutationDuration.WithLabelValues(key).Observe(elapsed.Seconds())
		},
		OnRollback: func(key string, err error) {
			m.Rollbacks.WithLabelValues(key).Inc()
		},
		OnResyncError: func(key string, err error) {
			m.ResyncFailures.WithLabelValues(key).Inc()
		},
	}
}

// VoiceObserver returns a voice.Observer backed by the voice metrics.
func (m *Metrics) VoiceObserver() voice.Observer {
	return voiceObserver{m}
}

type voiceObserver struct{ m *Metrics }

func (o voiceObserver) SessionStarted(deviceID, mimeType string) {
	o.m.SessionsStarted.Inc()
	o.m.ActiveSessions.Inc()
}

func (o voiceObserver) SessionStopped(outcome voice.Outcome, elapsed time.Duration) {
	o.m.ActiveSessions.Dec()
	o.m.SessionOutcomes.WithLabelValues(outcome.Status.String()).Inc()
	o.m.SessionDuration.Observe(elapsed.Seconds())
	if outcome.Artifact != nil {
		o.m.ArtifactSize.Observe(float64(outcome.Artifact.Size))
	}
}

func (o voiceObserver) FramePublished(voice.VolumeFrame) { o.m.FramesPublished.Inc() }

func (o voiceObserver) DeviceError(error) { o.m.DeviceErrors.Inc() }

// Middleware counts requests by matched route so path parameters do not
// explode label cardinality.
func (m *Metrics) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		started := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}
		route := c.Route().Path
		m.HTTPRequests.WithLabelValues(c.Method(), route, strconv.Itoa(status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(c.Method(), route).Observe(time.Since(started).Seconds())
		return err
	}
}
