// Package recorder encodes a PCM stream into a media container and hands the
// encoded bytes out as ordered chunks.
package recorder

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Source is a PCM stream the recorder can tap.
type Source interface {
	SampleRate() int
	Subscribe(fn func(samples []float32)) (unsubscribe func())
}

// encoder turns samples into container bytes. emit may be called from any of
// its methods and receives chunks in order.
type encoder interface {
	Begin(emit func([]byte)) error
	Write(samples []float32) error
	Finish() error
}

type encoderFactory func(sampleRate int) (encoder, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]encoderFactory{}
)

func register(mimeType string, f encoderFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[normalise(mimeType)] = f
}

func normalise(mimeType string) string {
	return strings.ReplaceAll(strings.ToLower(mimeType), " ", "")
}

// IsTypeSupported reports whether mimeType can be recorded in this build.
func IsTypeSupported(mimeType string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[normalise(mimeType)]
	return ok
}

func SupportedTypes() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

var (
	ErrUnsupportedType = errors.New("recorder: unsupported mime type")
	ErrAlreadyStarted  = errors.New("recorder: already started")
	ErrNotStarted      = errors.New("recorder: not started")
)

type MediaRecorder struct {
	src      Source
	mimeType string
	enc      encoder

	mu          sync.Mutex
	started     bool
	stopped     bool
	onData      func([]byte)
	unsubscribe func()
	err         error
}

func New(src Source, mimeType string) (*MediaRecorder, error) {
	registryMu.RLock()
	f, ok := registry[normalise(mimeType)]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, mimeType)
	}

	enc, err := f(src.SampleRate())
	if err != nil {
		return nil, fmt.Errorf("recorder %s: %w", mimeType, err)
	}
	return &MediaRecorder{src: src, mimeType: mimeType, enc: enc}, nil
}

func (r *MediaRecorder) MimeType() string { return r.mimeType }

func (r *MediaRecorder) Start(onData func([]byte)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return ErrAlreadyStarted
	}
	r.started = true
	r.onData = onData

	if err := r.enc.Begin(r.emit); err != nil {
		return err
	}
	r.unsubscribe = r.src.Subscribe(r.write)
	return nil
}

// emit runs with r.mu held.
func (r *MediaRecorder) emit(chunk []byte) {
	if len(chunk) == 0 || r.onData == nil {
		return
	}
	r.onData(chunk)
}

func (r *MediaRecorder) write(samples []float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped || r.err != nil {
		return
	}
	r.err = r.enc.Write(samples)
}

// Stop detaches from the source and flushes the container trailer. The first
// encoding error seen while recording is returned here.
func (r *MediaRecorder) Stop() error {
	r.mu.Lock()
	if !r.started {
		r.mu.Unlock()
		return ErrNotStarted
	}
	if r.stopped {
		r.mu.Unlock()
		return nil
	}
	r.stopped = true
	unsubscribe := r.unsubscribe
	r.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enc.Finish(); err != nil {
		return err
	}
	return r.err
}
