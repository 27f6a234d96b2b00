package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Store     StoreConfig
	Voice     VoiceConfig
	Keys      APIKeys
	Ai        AIConfig
	Telemetry TelemetryConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	Environment        string
	LogFilePath        string
	VoiceLogFilePath   string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	ReplyTopic         string
}

type DatabaseConfig struct {
	Connection string
}

// StoreConfig drives the assistant store. The latency window and the delete
// failure rate only apply to the in-memory mock.
type StoreConfig struct {
	Driver            string // "memory" or "postgres"
	SeedFile          string
	LatencyMin        time.Duration
	LatencyMax        time.Duration
	DeleteFailureRate float64
}

type VoiceConfig struct {
	SilenceThreshold   float64
	DetectionThreshold float64
	FFTSize            int
	Smoothing          float64
	FrameInterval      time.Duration
	ArtifactTTL        time.Duration
}

type APIKeys struct {
	GoogleGemini string
	OpenAI       string
}

type AIConfig struct {
	LLMProvider   string // "mock", "gemini", "openai", "ollama"
	LLMModel      string // empty selects the provider's default model
	OllamaBaseURL string
	OpenAIBaseURL string
}

type TelemetryConfig struct {
	OtelEnabled  bool
	OtelEndpoint string
	ServiceName  string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			VoiceLogFilePath:   getEnv("VOICE_LOG_FILE_PATH", "logs/voice.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", ""),
			RedisURL:           getEnv("REDIS_URL", ""),
			ReplyTopic:         getEnv("CHAT_REPLY_TOPIC_NAME", "GENERATE_CHAT_REPLY"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Store: StoreConfig{
			Driver:            getEnv("STORE_DRIVER", "memory"),
			SeedFile:          getEnv("STORE_SEED_FILE", ""),
			LatencyMin:        getEnvAsDuration("STORE_LATENCY_MIN", 200*time.Millisecond),
			LatencyMax:        getEnvAsDuration("STORE_LATENCY_MAX", 600*time.Millisecond),
			DeleteFailureRate: getEnvAsFloat("STORE_DELETE_FAILURE_RATE", 0.1),
		},
		Voice: VoiceConfig{
			SilenceThreshold:   getEnvAsFloat("VOICE_SILENCE_THRESHOLD", 0.01),
			DetectionThreshold: getEnvAsFloat("VOICE_DETECTION_THRESHOLD", 0.02),
			FFTSize:            getEnvAsInt("VOICE_FFT_SIZE", 64),
			Smoothing:          getEnvAsFloat("VOICE_SMOOTHING", 0.4),
			FrameInterval:      getEnvAsDuration("VOICE_FRAME_INTERVAL", 16*time.Millisecond),
			ArtifactTTL:        getEnvAsDuration("VOICE_ARTIFACT_TTL", time.Hour),
		},
		Keys: APIKeys{
			GoogleGemini: getEnv("GOOGLE_GEMINI_API_KEY", ""),
			OpenAI:       getEnv("OPENAI_API_KEY", ""),
		},
		Ai: AIConfig{
			LLMProvider:   getEnv("LLM_PROVIDER", "mock"),
			LLMModel:      getEnv("LLM_MODEL", ""),
			OllamaBaseURL: getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OpenAIBaseURL: getEnv("OPENAI_BASE_URL", ""),
		},
		Telemetry: TelemetryConfig{
			OtelEnabled:  getEnvAsBool("OTEL_ENABLED", false),
			OtelEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
			ServiceName:  getEnv("OTEL_SERVICE_NAME", "ai-assistant-studio-backend"),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

// getEnvAsDuration accepts Go duration strings ("250ms", "1h").
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}
