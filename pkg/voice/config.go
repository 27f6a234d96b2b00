package voice

import "time"

const (
	MimeWebMOpus = "audio/webm;codecs=opus"
	MimeWebM     = "audio/webm"
	MimeOggOpus  = "audio/ogg;codecs=opus"
	MimeWAV      = "audio/wav"
)

type Config struct {
	FFTSize   int
	Smoothing float64
	// SilenceThreshold is the peak mean below which a finished recording is
	// discarded. Zero keeps every recording.
	SilenceThreshold float64
	// DetectionThreshold is the mean above which a frame counts as voice.
	DetectionThreshold float64
	FrameInterval      time.Duration
	// PreferredMimeTypes are tried in order; the first one that is supported
	// and can be opened on the stream wins.
	PreferredMimeTypes []string
}

func DefaultConfig() Config {
	return Config{
		FFTSize:            64,
		Smoothing:          0.4,
		SilenceThreshold:   0.01,
		DetectionThreshold: 0.02,
		FrameInterval:      16 * time.Millisecond,
		PreferredMimeTypes: []string{MimeWebMOpus, MimeOggOpus, MimeWebM, MimeWAV},
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.FFTSize <= 0 {
		c.FFTSize = d.FFTSize
	}
	if c.Smoothing < 0 || c.Smoothing > 1 {
		c.Smoothing = d.Smoothing
	}
	if c.SilenceThreshold < 0 {
		c.SilenceThreshold = d.SilenceThreshold
	}
	if c.DetectionThreshold < 0 {
		c.DetectionThreshold = d.DetectionThreshold
	}
	if c.FrameInterval <= 0 {
		c.FrameInterval = d.FrameInterval
	}
	if len(c.PreferredMimeTypes) == 0 {
		c.PreferredMimeTypes = d.PreferredMimeTypes
	}
	return c
}
