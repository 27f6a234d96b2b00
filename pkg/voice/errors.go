package voice

import "errors"

var (
	// ErrPermissionDenied is returned when microphone access was refused.
	// Recoverable: the next StartSession retries.
	ErrPermissionDenied = errors.New("voice: microphone permission denied")
	// ErrDeviceAcquisition wraps any failure to open a capture stream.
	ErrDeviceAcquisition = errors.New("voice: could not acquire input device")
	ErrDeviceNotFound    = errors.New("voice: input device not found")
	ErrSessionActive     = errors.New("voice: a capture session is already active")
	// ErrNoSupportedContainer means no preferred mime type could be recorded.
	ErrNoSupportedContainer = errors.New("voice: no supported recording container")

	// ErrSilenceDiscarded is the reason attached to a discarded outcome when
	// the peak volume stayed under the silence threshold.
	ErrSilenceDiscarded = errors.New("voice: silence detected, check your microphone")
	// ErrNoAudioCaptured is the reason attached to a discarded outcome when
	// the recorder produced no data at all.
	ErrNoAudioCaptured = errors.New("voice: no audio captured")
)
