//go:build cgo

package recorder

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOggOpusRecorderEmitsPages(t *testing.T) {
	src := &source{rate: 48000}
	r, err := New(src, MimeOggOpus)
	require.NoError(t, err)

	var chunks [][]byte
	require.NoError(t, r.Start(func(c []byte) { chunks = append(chunks, c) }))
	require.NotEmpty(t, chunks, "header pages are written on start")

	tone := make([]float32, 48000/10)
	for i := range tone {
		tone[i] = float32(0.3 * math.Sin(2*math.Pi*440*float64(i)/48000))
	}
	src.push(tone)
	require.NoError(t, r.Stop())

	all := bytes.Join(chunks, nil)
	assert.Equal(t, "OggS", string(all[:4]))
	assert.True(t, bytes.Contains(all, []byte("OpusHead")))
	assert.Greater(t, len(chunks), 2)
}

func TestOggOpusRejectsUnsupportedRate(t *testing.T) {
	_, err := New(&source{rate: 44100}, MimeOggOpus)
	assert.Error(t, err)
}
