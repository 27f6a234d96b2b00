//go:build cgo

package recorder

import (
	"fmt"
	"math/rand/v2"

	opuscodec "github.com/jj11hh/opus"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4/pkg/media/oggwriter"
)

const (
	MimeOggOpus = "audio/ogg;codecs=opus"

	opusFrameDuration = 20 // ms
	opusClockRate     = 48000
	opusPayloadType   = 111
	maxOpusPacket     = 1275
)

func init() {
	register(MimeOggOpus, newOggOpusEncoder)
}

// oggOpusEncoder packs 20 ms Opus frames into Ogg pages. Every page written
// by the ogg writer becomes one chunk, header pages included.
type oggOpusEncoder struct {
	sampleRate int
	frameSize  int
	enc        *opuscodec.Encoder
	ogg        *oggwriter.OggWriter
	pending    []float32
	packet     []byte

	seq  uint16
	ts   uint32
	ssrc uint32
}

type chunkWriter struct{ emit func([]byte) }

func (w chunkWriter) Write(p []byte) (int, error) {
	w.emit(append([]byte(nil), p...))
	return len(p), nil
}

func newOggOpusEncoder(sampleRate int) (encoder, error) {
	switch sampleRate {
	case 8000, 12000, 16000, 24000, 48000:
	default:
		return nil, fmt.Errorf("opus does not support %d Hz input", sampleRate)
	}
	enc, err := opuscodec.NewEncoder(sampleRate, 1, opuscodec.AppVoIP)
	if err != nil {
		return nil, fmt.Errorf("create opus encoder: %w", err)
	}
	return &oggOpusEncoder{
		sampleRate: sampleRate,
		frameSize:  sampleRate * opusFrameDuration / 1000,
		enc:        enc,
		packet:     make([]byte, maxOpusPacket),
		ssrc:       rand.Uint32(),
	}, nil
}

func (e *oggOpusEncoder) Begin(emit func([]byte)) error {
	ogg, err := oggwriter.NewWith(chunkWriter{emit: emit}, uint32(e.sampleRate), 1)
	if err != nil {
		return fmt.Errorf("create ogg writer: %w", err)
	}
	e.ogg = ogg
	return nil
}

func (e *oggOpusEncoder) Write(samples []float32) error {
	e.pending = append(e.pending, samples...)
	for len(e.pending) >= e.frameSize {
		if err := e.encodeFrame(e.pending[:e.frameSize]); err != nil {
			return err
		}
		e.pending = e.pending[e.frameSize:]
	}
	return nil
}

// Finish pads the last partial frame with silence.
func (e *oggOpusEncoder) Finish() error {
	if len(e.pending) > 0 {
		frame := make([]float32, e.frameSize)
		copy(frame, e.pending)
		e.pending = nil
		if err := e.encodeFrame(frame); err != nil {
			return err
		}
	}
	return e.ogg.Close()
}

func (e *oggOpusEncoder) encodeFrame(frame []float32) error {
	n, err := e.enc.EncodeFloat32(frame, e.packet)
	if err != nil {
		return fmt.Errorf("opus encode: %w", err)
	}
	pkt := &rtp.Packet{
		Header: rtp.Header{
			Version:        2,
			PayloadType:    opusPayloadType,
			SequenceNumber: e.seq,
			Timestamp:      e.ts,
			SSRC:           e.ssrc,
		},
		Payload: append([]byte(nil), e.packet[:n]...),
	}
	e.seq++
	// RTP timestamps for Opus always run at 48 kHz
	e.ts += opusClockRate * opusFrameDuration / 1000
	return e.ogg.WriteRTP(pkt)
}
