package voice

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

type sessionState int

const (
	stateRecording sessionState = iota
	stateStopping
	stateStopped
)

// Session is one recording. Frames are published on the loop goroutine while
// the session records; Stop assembles the artifact.
type Session struct {
	id        string
	deviceID  string
	engine    *Engine
	stream    Stream
	analyser  Analyser
	recorder  Recorder
	onFrame   func(VolumeFrame)
	startedAt time.Time

	quit     chan struct{}
	loopDone chan struct{}

	mu            sync.Mutex
	state         sessionState
	chunks        [][]byte
	peak          float64
	voiceDetected bool
	tick          uint64
	bins          []byte
}

func newSession(e *Engine, deviceID string, stream Stream, analyser Analyser, recorder Recorder, onFrame func(VolumeFrame)) *Session {
	return &Session{
		id:        uuid.NewString(),
		deviceID:  deviceID,
		engine:    e,
		stream:    stream,
		analyser:  analyser,
		recorder:  recorder,
		onFrame:   onFrame,
		startedAt: time.Now(),
		quit:      make(chan struct{}),
		loopDone:  make(chan struct{}),
		bins:      make([]byte, analyser.FrequencyBinCount()),
	}
}

func (s *Session) ID() string       { return s.id }
func (s *Session) DeviceID() string { return s.deviceID }
func (s *Session) MimeType() string { return s.recorder.MimeType() }

// VoiceDetected is sticky: once a frame crossed the detection threshold it
// stays true for the rest of the session.
func (s *Session) VoiceDetected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.voiceDetected
}

func (s *Session) Peak() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peak
}

func (s *Session) Recording() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == stateRecording
}

func (s *Session) run(token uint64) {
	ticker := s.engine.newTicker(s.engine.cfg.FrameInterval)
	go func() {
		defer close(s.loopDone)
		defer ticker.Stop()
		for {
			select {
			case <-s.quit:
				return
			case <-ticker.C():
				if !s.engine.live(token) {
					return
				}
				s.sample(token)
			}
		}
	}()
}

func (s *Session) sample(token uint64) {
	s.mu.Lock()
	if s.state != stateRecording {
		s.mu.Unlock()
		return
	}
	s.analyser.ByteFrequencyData(s.bins)
	levels, mean := levelsFromBins(s.bins)
	if mean > s.peak {
		s.peak = mean
	}
	if mean > s.engine.cfg.DetectionThreshold {
		s.voiceDetected = true
	}
	s.tick++
	frame := VolumeFrame{
		Tick:          s.tick,
		Levels:        levels,
		Mean:          mean,
		VoiceDetected: s.voiceDetected,
	}
	s.mu.Unlock()

	if !s.engine.live(token) {
		return
	}
	if s.onFrame != nil {
		s.onFrame(frame)
	}
	s.engine.observer.FramePublished(frame)
}

// appendChunk is the recorder's data callback. Chunks arriving after the
// session stopped are dropped.
func (s *Session) appendChunk(chunk []byte) {
	if len(chunk) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == stateStopped {
		return
	}
	s.chunks = append(s.chunks, chunk)
}

// Stop finalises the recording. The first call returns a Recorded or
// Discarded outcome; later calls return OutcomeNone. A recording whose peak
// mean stayed under the silence threshold is discarded with
// ErrSilenceDiscarded.
func (s *Session) Stop() (Outcome, error) {
	if !s.beginStop() {
		return Outcome{Status: OutcomeNone}, nil
	}

	recErr := s.recorder.Stop()
	s.shutdown()

	s.mu.Lock()
	s.state = stateStopped
	chunks := s.chunks
	s.chunks = nil
	peak := s.peak
	s.mu.Unlock()

	s.engine.release(s)

	outcome, err := s.assemble(chunks, peak)
	if err == nil && recErr != nil {
		err = fmt.Errorf("voice: recorder stop: %w", recErr)
	}

	elapsed := time.Since(s.startedAt)
	s.engine.observer.SessionStopped(outcome, elapsed)
	s.engine.logger.Info("VOICE", "Capture session stopped", map[string]interface{}{
		"session_id": s.id,
		"outcome":    outcome.Status.String(),
		"peak":       peak,
		"chunks":     len(chunks),
		"elapsed_ms": elapsed.Milliseconds(),
	})
	return outcome, err
}

func (s *Session) assemble(chunks [][]byte, peak float64) (Outcome, error) {
	if len(chunks) == 0 {
		return Outcome{Status: OutcomeDiscarded, Reason: ErrNoAudioCaptured, Peak: peak}, nil
	}
	if peak < s.engine.cfg.SilenceThreshold {
		s.engine.logger.Warn("VOICE", "Recording discarded as silence", map[string]interface{}{
			"session_id": s.id,
			"peak":       peak,
			"threshold":  s.engine.cfg.SilenceThreshold,
		})
		return Outcome{Status: OutcomeDiscarded, Reason: ErrSilenceDiscarded, Peak: peak}, nil
	}

	data := bytes.Join(chunks, nil)
	mime := s.recorder.MimeType()
	id, url, err := s.engine.artifacts.Put(mime, data)
	if err != nil {
		return Outcome{Status: OutcomeDiscarded, Peak: peak}, fmt.Errorf("voice: store artifact: %w", err)
	}

	return Outcome{
		Status: OutcomeRecorded,
		Peak:   peak,
		Artifact: &Artifact{
			ID:       id,
			MimeType: mime,
			Data:     data,
			Base64:   base64.StdEncoding.EncodeToString(data),
			URL:      url,
			Size:     len(data),
		},
	}, nil
}

// cancel stops the session and throws the recording away.
func (s *Session) cancel() {
	if !s.beginStop() {
		return
	}
	_ = s.recorder.Stop()
	s.shutdown()

	s.mu.Lock()
	s.state = stateStopped
	s.chunks = nil
	s.mu.Unlock()

	s.engine.release(s)
	s.engine.logger.Info("VOICE", "Capture session torn down", map[string]interface{}{
		"session_id": s.id,
	})
}

func (s *Session) beginStop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != stateRecording {
		return false
	}
	s.state = stateStopping
	return true
}

// shutdown halts the loop, waits for it to exit and releases the analysis
// graph and the stream. Frames are only published on the loop goroutine, so
// none can be published once shutdown returns.
func (s *Session) shutdown() {
	s.engine.halt()
	close(s.quit)
	<-s.loopDone

	if err := s.analyser.Close(); err != nil {
		s.engine.logger.Warn("VOICE", "Failed to close analyser", map[string]interface{}{"error": err.Error()})
	}
	if err := s.stream.Stop(); err != nil {
		s.engine.logger.Warn("VOICE", "Failed to stop stream", map[string]interface{}{"error": err.Error()})
	}
}
