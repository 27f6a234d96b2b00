package voice

import (
	"context"
	"time"
)

// Device is an audio input as reported by the platform.
type Device struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Platform is the engine's only hardware boundary: permission prompt, device
// enumeration and stream capture.
type Platform interface {
	RequestPermission(ctx context.Context) error
	EnumerateDevices(ctx context.Context) ([]Device, error)
	// OpenStream opens the given device, or the system default when deviceID
	// is empty.
	OpenStream(ctx context.Context, deviceID string) (Stream, error)
}

// Stream is an open capture stream.
type Stream interface {
	SampleRate() int
	// Subscribe delivers mono PCM samples in [-1, 1] in capture order and
	// returns a func that detaches fn.
	Subscribe(fn func(samples []float32)) (unsubscribe func())
	// Stop releases the hardware tracks. Safe to call more than once.
	Stop() error
}

// Analyser exposes the frequency-domain view of a stream.
type Analyser interface {
	FrequencyBinCount() int
	// ByteFrequencyData fills dst with magnitudes scaled to 0..255, one per
	// bin, up to len(dst).
	ByteFrequencyData(dst []byte)
	Close() error
}

// Recorder encodes a stream into a media container.
type Recorder interface {
	MimeType() string
	// Start begins encoding; onData receives container chunks in order.
	Start(onData func(chunk []byte)) error
	// Stop flushes the remaining chunks through onData before it returns.
	Stop() error
}

type AnalyserFactory func(stream Stream, fftSize int, smoothing float64) (Analyser, error)

type RecorderFactory func(stream Stream, mimeType string) (Recorder, error)

// ArtifactStore keeps assembled recordings addressable by a playback URL.
type ArtifactStore interface {
	Put(mimeType string, data []byte) (id, url string, err error)
}

// Ticker drives the sampling loop. time.Ticker satisfies it through
// NewTimeTicker.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type TickerFactory func(interval time.Duration) Ticker

type timeTicker struct{ t *time.Ticker }

func (t timeTicker) C() <-chan time.Time { return t.t.C }
func (t timeTicker) Stop()               { t.t.Stop() }

func NewTimeTicker(interval time.Duration) Ticker {
	return timeTicker{t: time.NewTicker(interval)}
}

// Observer receives lifecycle notifications, typically for metrics.
type Observer interface {
	SessionStarted(deviceID, mimeType string)
	SessionStopped(outcome Outcome, elapsed time.Duration)
	FramePublished(frame VolumeFrame)
	DeviceError(err error)
}

type nopObserver struct{}

func (nopObserver) SessionStarted(string, string)         {}
func (nopObserver) SessionStopped(Outcome, time.Duration) {}
func (nopObserver) FramePublished(VolumeFrame)            {}
func (nopObserver) DeviceError(error)                     {}
