package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, 200*time.Millisecond, cfg.Store.LatencyMin)
	assert.Equal(t, 600*time.Millisecond, cfg.Store.LatencyMax)
	assert.InDelta(t, 0.1, cfg.Store.DeleteFailureRate, 1e-9)
	assert.InDelta(t, 0.01, cfg.Voice.SilenceThreshold, 1e-9)
	assert.InDelta(t, 0.02, cfg.Voice.DetectionThreshold, 1e-9)
	assert.Equal(t, 64, cfg.Voice.FFTSize)
	assert.InDelta(t, 0.4, cfg.Voice.Smoothing, 1e-9)
	assert.Equal(t, "mock", cfg.Ai.LLMProvider)
	assert.False(t, cfg.Telemetry.OtelEnabled)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STORE_DELETE_FAILURE_RATE", "0")
	t.Setenv("STORE_LATENCY_MAX", "1s")
	t.Setenv("VOICE_SILENCE_THRESHOLD", "0.05")
	t.Setenv("VOICE_FFT_SIZE", "128")
	t.Setenv("OTEL_ENABLED", "true")

	cfg := Load()

	assert.Equal(t, 0.0, cfg.Store.DeleteFailureRate)
	assert.Equal(t, time.Second, cfg.Store.LatencyMax)
	assert.InDelta(t, 0.05, cfg.Voice.SilenceThreshold, 1e-9)
	assert.Equal(t, 128, cfg.Voice.FFTSize)
	assert.True(t, cfg.Telemetry.OtelEnabled)
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("VOICE_FRAME_INTERVAL", "sixteen")
	t.Setenv("VOICE_SMOOTHING", "abc")

	cfg := Load()

	assert.Equal(t, 16*time.Millisecond, cfg.Voice.FrameInterval)
	assert.InDelta(t, 0.4, cfg.Voice.Smoothing, 1e-9)
}
