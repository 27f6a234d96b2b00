package recorder

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

const MimeWAV = "audio/wav"

func init() {
	register(MimeWAV, newWAVEncoder)
}

// WAVHeader is the canonical 44-byte RIFF header for mono PCM16.
type WAVHeader struct {
	ChunkID       [4]byte
	ChunkSize     uint32
	Format        [4]byte
	Subchunk1ID   [4]byte
	Subchunk1Size uint32
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	Subchunk2ID   [4]byte
	Subchunk2Size uint32
}

// wavEncoder buffers the whole take; the RIFF sizes are only known at the
// end, so the file is emitted as a single chunk on Finish.
type wavEncoder struct {
	sampleRate int
	samples    []int16
	emit       func([]byte)
}

func newWAVEncoder(sampleRate int) (encoder, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}
	return &wavEncoder{sampleRate: sampleRate}, nil
}

func (e *wavEncoder) Begin(emit func([]byte)) error {
	e.emit = emit
	return nil
}

func (e *wavEncoder) Write(samples []float32) error {
	for _, s := range samples {
		e.samples = append(e.samples, FloatToPCM16(s))
	}
	return nil
}

func (e *wavEncoder) Finish() error {
	if len(e.samples) == 0 {
		return nil
	}
	data, err := EncodeWAV(e.samples, e.sampleRate)
	if err != nil {
		return err
	}
	e.samples = nil
	e.emit(data)
	return nil
}

// EncodeWAV encodes mono PCM16 samples into a WAV file.
func EncodeWAV(samples []int16, sampleRate int) ([]byte, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("cannot encode empty audio samples")
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}

	const numChannels, bitsPerSample = uint16(1), uint16(16)
	dataSize := uint32(len(samples) * 2)

	header := WAVHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     36 + dataSize,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   1,
		NumChannels:   numChannels,
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate) * uint32(numChannels) * uint32(bitsPerSample) / 8,
		BlockAlign:    numChannels * bitsPerSample / 8,
		BitsPerSample: bitsPerSample,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: dataSize,
	}

	buf := bytes.NewBuffer(make([]byte, 0, 44+len(samples)*2))
	if err := binary.Write(buf, binary.LittleEndian, header); err != nil {
		return nil, fmt.Errorf("failed to write WAV header: %w", err)
	}
	if err := binary.Write(buf, binary.LittleEndian, samples); err != nil {
		return nil, fmt.Errorf("failed to write audio data: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeWAV returns the samples and sample rate of a mono PCM16 WAV file.
func DecodeWAV(data []byte) ([]int16, int, error) {
	if len(data) < 44 {
		return nil, 0, fmt.Errorf("WAV data too short: need at least 44 bytes, got %d", len(data))
	}
	var header WAVHeader
	if err := binary.Read(bytes.NewReader(data[:44]), binary.LittleEndian, &header); err != nil {
		return nil, 0, fmt.Errorf("failed to read WAV header: %w", err)
	}
	if string(header.ChunkID[:]) != "RIFF" || string(header.Format[:]) != "WAVE" {
		return nil, 0, fmt.Errorf("not a WAV file")
	}
	if header.AudioFormat != 1 || header.BitsPerSample != 16 {
		return nil, 0, fmt.Errorf("unsupported WAV format %d/%d bits", header.AudioFormat, header.BitsPerSample)
	}
	payload := data[44:]
	if int(header.Subchunk2Size) < len(payload) {
		payload = payload[:header.Subchunk2Size]
	}
	samples := make([]int16, len(payload)/2)
	if err := binary.Read(bytes.NewReader(payload[:len(samples)*2]), binary.LittleEndian, samples); err != nil {
		return nil, 0, fmt.Errorf("failed to read audio data: %w", err)
	}
	return samples, int(header.SampleRate), nil
}

// FloatToPCM16 clamps s to [-1, 1] and scales it to int16.
func FloatToPCM16(s float32) int16 {
	v := math.Max(-1, math.Min(1, float64(s)))
	return int16(math.Round(v * math.MaxInt16))
}
