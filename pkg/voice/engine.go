// Package voice captures microphone input for voice notes. An Engine owns at
// most one Session at a time; a Session samples the stream into volume frames
// while a recorder encodes it, and assembles the encoded chunks into an
// Artifact when it stops.
package voice

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"ai-assistant-studio-be/internal/pkg/logger"
)

type Option func(*Engine)

func WithAnalyserFactory(f AnalyserFactory) Option {
	return func(e *Engine) { e.newAnalyser = f }
}

func WithRecorderFactory(f RecorderFactory) Option {
	return func(e *Engine) { e.newRecorder = f }
}

// WithTypeSupport overrides the container check used to pick a mime type.
func WithTypeSupport(f func(mimeType string) bool) Option {
	return func(e *Engine) { e.isTypeSupported = f }
}

func WithArtifactStore(s ArtifactStore) Option {
	return func(e *Engine) { e.artifacts = s }
}

func WithTicker(f TickerFactory) Option {
	return func(e *Engine) { e.newTicker = f }
}

func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observer = o }
}

func WithLogger(l logger.ILogger) Option {
	return func(e *Engine) { e.logger = l }
}

// Status is a point-in-time view of the engine for UI state.
type Status struct {
	Recording       bool   `json:"recording"`
	PermissionError bool   `json:"permission_error"`
	SelectedDevice  string `json:"selected_device"`
}

type Engine struct {
	cfg             Config
	platform        Platform
	newAnalyser     AnalyserFactory
	newRecorder     RecorderFactory
	isTypeSupported func(string) bool
	artifacts       ArtifactStore
	newTicker       TickerFactory
	observer        Observer
	logger          logger.ILogger

	// generation is the liveness token of the sampling loop. It moves on
	// every start and every stop, and a loop only publishes while the value
	// it was started with is current.
	generation atomic.Uint64

	mu              sync.Mutex
	selectedDevice  string
	active          *Session
	starting        bool
	permissionError bool
}

// NewEngine builds an engine over platform. Analyser, recorder and artifact
// store factories must be provided through options unless the caller only
// lists devices.
func NewEngine(platform Platform, cfg Config, opts ...Option) *Engine {
	e := &Engine{
		cfg:       cfg.withDefaults(),
		platform:  platform,
		newTicker: NewTimeTicker,
		observer:  nopObserver{},
		logger:    logger.NewNopLogger(),
		isTypeSupported: func(string) bool {
			return false
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Config() Config { return e.cfg }

// ListInputDevices asks for permission first so device labels are populated.
// A denied permission is remembered for Status and returned wrapped.
func (e *Engine) ListInputDevices(ctx context.Context) ([]Device, error) {
	if err := e.platform.RequestPermission(ctx); err != nil {
		if errors.Is(err, ErrPermissionDenied) {
			e.mu.Lock()
			e.permissionError = true
			e.mu.Unlock()
		}
		e.logger.Warn("VOICE", "Permission request failed", map[string]interface{}{
			"error": err.Error(),
		})
		return nil, fmt.Errorf("list input devices: %w", err)
	}

	devices, err := e.platform.EnumerateDevices(ctx)
	if err != nil {
		return nil, fmt.Errorf("list input devices: %w", err)
	}
	return devices, nil
}

// SelectDevice records the device for the next StartSession. A session that
// is already recording keeps its device.
func (e *Engine) SelectDevice(deviceID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.selectedDevice = deviceID
}

func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Status{
		Recording:       e.active != nil,
		PermissionError: e.permissionError,
		SelectedDevice:  e.selectedDevice,
	}
}

// Active returns the recording session, or nil.
func (e *Engine) Active() *Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active
}

// StartSession acquires the selected device, wires the analyser and recorder
// and starts the sampling loop. onFrame receives every published frame on the
// loop goroutine; it must not call back into the session.
func (e *Engine) StartSession(ctx context.Context, onFrame func(VolumeFrame)) (*Session, error) {
	e.mu.Lock()
	if e.active != nil || e.starting {
		e.mu.Unlock()
		return nil, ErrSessionActive
	}
	e.starting = true
	e.permissionError = false
	deviceID := e.selectedDevice
	e.mu.Unlock()

	session, err := e.open(ctx, deviceID, onFrame)

	e.mu.Lock()
	e.starting = false
	if err != nil {
		if errors.Is(err, ErrPermissionDenied) {
			e.permissionError = true
		}
		e.mu.Unlock()
		e.observer.DeviceError(err)
		e.logger.Error("VOICE", "Failed to start capture session", map[string]interface{}{
			"device_id": deviceID,
			"error":     err,
		})
		return nil, err
	}
	e.active = session
	token := e.generation.Add(1)
	e.mu.Unlock()

	session.run(token)

	e.observer.SessionStarted(deviceID, session.MimeType())
	e.logger.Info("VOICE", "Capture session started", map[string]interface{}{
		"session_id": session.ID(),
		"device_id":  deviceID,
		"mime_type":  session.MimeType(),
	})
	return session, nil
}

func (e *Engine) open(ctx context.Context, deviceID string, onFrame func(VolumeFrame)) (*Session, error) {
	if e.newAnalyser == nil || e.newRecorder == nil || e.artifacts == nil {
		return nil, errors.New("voice: engine is not configured for capture")
	}

	stream, err := e.platform.OpenStream(ctx, deviceID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDeviceAcquisition, err)
	}

	analyser, err := e.newAnalyser(stream, e.cfg.FFTSize, e.cfg.Smoothing)
	if err != nil {
		_ = stream.Stop()
		return nil, fmt.Errorf("%w: analyser: %w", ErrDeviceAcquisition, err)
	}

	recorder, err := e.pickRecorder(stream)
	if err != nil {
		_ = analyser.Close()
		_ = stream.Stop()
		return nil, err
	}

	session := newSession(e, deviceID, stream, analyser, recorder, onFrame)
	if err := recorder.Start(session.appendChunk); err != nil {
		_ = analyser.Close()
		_ = stream.Stop()
		return nil, fmt.Errorf("%w: recorder: %w", ErrDeviceAcquisition, err)
	}
	return session, nil
}

// pickRecorder walks the preferred containers and keeps the first one the
// stream can actually be recorded in.
func (e *Engine) pickRecorder(stream Stream) (Recorder, error) {
	var lastErr error
	for _, mime := range e.cfg.PreferredMimeTypes {
		if !e.isTypeSupported(mime) {
			continue
		}
		rec, err := e.newRecorder(stream, mime)
		if err == nil {
			return rec, nil
		}
		lastErr = err
		e.logger.Debug("VOICE", "Recorder unavailable, trying next container", map[string]interface{}{
			"mime_type": mime,
			"error":     err.Error(),
		})
	}
	if lastErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoSupportedContainer, lastErr)
	}
	return nil, ErrNoSupportedContainer
}

// Teardown cancels the active session without producing an artifact and
// releases its resources. No frame is published once Teardown returns.
func (e *Engine) Teardown() {
	if s := e.Active(); s != nil {
		s.cancel()
	}
}

func (e *Engine) live(token uint64) bool {
	return e.generation.Load() == token
}

// halt invalidates the running loop token.
func (e *Engine) halt() {
	e.generation.Add(1)
}

func (e *Engine) release(s *Session) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.active == s {
		e.active = nil
	}
}
