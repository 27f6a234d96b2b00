// Package relay implements voice.Platform for a microphone that lives on a
// remote client. The client announces its devices and permission state, the
// platform asks it to open or close a stream, and captured PCM16LE frames are
// pushed back in.
package relay

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/google/uuid"

	"ai-assistant-studio-be/pkg/voice"
)

// Control messages sent to the client.
const (
	MsgRequestPermission = "request_permission"
	MsgOpenStream        = "open_stream"
	MsgCloseStream       = "close_stream"
)

const DefaultSampleRate = 48000

var ErrClosed = errors.New("relay: platform closed")

// Sender delivers a control message to the client.
type Sender func(msgType string, data any) error

type permission int

const (
	permissionUnknown permission = iota
	permissionGranted
	permissionDenied
)

type OpenStreamRequest struct {
	StreamID   string `json:"stream_id"`
	DeviceID   string `json:"device_id"`
	SampleRate int    `json:"sample_rate"`
}

type CloseStreamRequest struct {
	StreamID string `json:"stream_id"`
}

type Platform struct {
	send Sender

	mu         sync.Mutex
	devices    []voice.Device
	permission permission
	// changed is closed and replaced whenever the permission state moves.
	changed    chan struct{}
	sampleRate int
	active     *Stream
	closed     bool
}

func New(send Sender) *Platform {
	return &Platform{
		send:       send,
		changed:    make(chan struct{}),
		sampleRate: DefaultSampleRate,
	}
}

// AnnounceDevices replaces the device list reported by the client.
func (p *Platform) AnnounceDevices(devices []voice.Device) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.devices = append([]voice.Device(nil), devices...)
}

// SetPermission records the client's answer to the microphone prompt.
func (p *Platform) SetPermission(granted bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if granted {
		p.permission = permissionGranted
	} else {
		p.permission = permissionDenied
	}
	close(p.changed)
	p.changed = make(chan struct{})
}

// SetSampleRate sets the rate of streams opened from now on.
func (p *Platform) SetSampleRate(rate int) {
	if rate <= 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sampleRate = rate
}

// RequestPermission returns at once when the client already granted access,
// and otherwise prompts it and waits for SetPermission or ctx. An earlier
// denial is forgotten so every new attempt asks the client again.
func (p *Platform) RequestPermission(ctx context.Context) error {
	p.mu.Lock()
	if p.permission == permissionDenied {
		p.permission = permissionUnknown
	}
	p.mu.Unlock()

	for {
		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			return ErrClosed
		}
		state, changed := p.permission, p.changed
		p.mu.Unlock()

		switch state {
		case permissionGranted:
			return nil
		case permissionDenied:
			return voice.ErrPermissionDenied
		}

		if err := p.send(MsgRequestPermission, nil); err != nil {
			return fmt.Errorf("relay: request permission: %w", err)
		}
		select {
		case <-changed:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (p *Platform) EnumerateDevices(ctx context.Context) ([]voice.Device, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrClosed
	}
	return append([]voice.Device(nil), p.devices...), nil
}

func (p *Platform) OpenStream(ctx context.Context, deviceID string) (voice.Stream, error) {
	if err := p.RequestPermission(ctx); err != nil {
		return nil, err
	}

	p.mu.Lock()
	if deviceID != "" && !p.hasDevice(deviceID) {
		p.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", voice.ErrDeviceNotFound, deviceID)
	}
	if p.active != nil {
		p.active.detach()
	}
	s := &Stream{
		id:         uuid.NewString(),
		platform:   p,
		sampleRate: p.sampleRate,
		subs:       make(map[int]func([]float32)),
	}
	p.active = s
	p.mu.Unlock()

	if err := p.send(MsgOpenStream, OpenStreamRequest{
		StreamID:   s.id,
		DeviceID:   deviceID,
		SampleRate: s.sampleRate,
	}); err != nil {
		p.clearActive(s)
		return nil, fmt.Errorf("relay: open stream: %w", err)
	}
	return s, nil
}

func (p *Platform) hasDevice(id string) bool {
	for _, d := range p.devices {
		if d.ID == id {
			return true
		}
	}
	return false
}

func (p *Platform) clearActive(s *Stream) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.active == s {
		p.active = nil
	}
}

// Push decodes a PCM16LE mono frame and delivers it to the open stream.
// Frames that arrive while no stream is open are dropped.
func (p *Platform) Push(frame []byte) error {
	if len(frame)%2 != 0 {
		return fmt.Errorf("relay: odd PCM16 frame length %d", len(frame))
	}
	p.mu.Lock()
	s := p.active
	p.mu.Unlock()
	if s == nil {
		return nil
	}
	s.deliver(DecodePCM16LE(frame))
	return nil
}

// Close detaches the open stream and fails further requests.
func (p *Platform) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	if p.active != nil {
		p.active.detach()
		p.active = nil
	}
	close(p.changed)
	p.changed = make(chan struct{})
}

func DecodePCM16LE(frame []byte) []float32 {
	out := make([]float32, len(frame)/2)
	for i := range out {
		v := int16(binary.LittleEndian.Uint16(frame[i*2:]))
		out[i] = float32(v) / math.MaxInt16
	}
	return out
}

type Stream struct {
	id         string
	platform   *Platform
	sampleRate int

	mu      sync.Mutex
	subs    map[int]func([]float32)
	nextSub int
	stopped bool
}

func (s *Stream) ID() string { return s.id }

func (s *Stream) SampleRate() int { return s.sampleRate }

func (s *Stream) Subscribe(fn func([]float32)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

func (s *Stream) deliver(samples []float32) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	subs := make([]func([]float32), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(samples)
	}
}

// detach marks the stream stopped without telling the client.
func (s *Stream) detach() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}
	s.stopped = true
	return true
}

// Stop asks the client to release its tracks. Only the first call sends.
func (s *Stream) Stop() error {
	if !s.detach() {
		return nil
	}
	s.platform.clearActive(s)
	return s.platform.send(MsgCloseStream, CloseStreamRequest{StreamID: s.id})
}
