// Package analyser computes a smoothed byte spectrum over the most recent
// window of a PCM stream, scaled the way browser analyser nodes scale it.
package analyser

import (
	"fmt"
	"math"
	"math/cmplx"
	"sync"

	"gonum.org/v1/gonum/dsp/fourier"
)

const (
	MinDecibels = -100.0
	MaxDecibels = -30.0

	minFFTSize = 32
	maxFFTSize = 32768
)

// Source is a PCM stream the analyser can tap.
type Source interface {
	Subscribe(fn func(samples []float32)) (unsubscribe func())
}

type Analyser struct {
	fftSize   int
	smoothing float64
	window    []float64
	fft       *fourier.FFT

	mu       sync.Mutex
	ring     []float64
	pos      int
	input    []float64
	coeffs   []complex128
	smoothed []float64

	unsubscribe func()
}

// New taps src. fftSize must be a power of two in [32, 32768] and smoothing
// in [0, 1].
func New(src Source, fftSize int, smoothing float64) (*Analyser, error) {
	if fftSize < minFFTSize || fftSize > maxFFTSize || fftSize&(fftSize-1) != 0 {
		return nil, fmt.Errorf("analyser: fft size %d must be a power of two in [%d, %d]", fftSize, minFFTSize, maxFFTSize)
	}
	if smoothing < 0 || smoothing > 1 {
		return nil, fmt.Errorf("analyser: smoothing %v out of range [0, 1]", smoothing)
	}

	a := &Analyser{
		fftSize:   fftSize,
		smoothing: smoothing,
		window:    blackman(fftSize),
		fft:       fourier.NewFFT(fftSize),
		ring:      make([]float64, fftSize),
		input:     make([]float64, fftSize),
		coeffs:    make([]complex128, fftSize/2+1),
		smoothed:  make([]float64, fftSize/2),
	}
	if src != nil {
		a.unsubscribe = src.Subscribe(a.Write)
	}
	return a, nil
}

func (a *Analyser) FrequencyBinCount() int { return a.fftSize / 2 }

// Write appends samples to the analysis window, keeping the last fftSize.
func (a *Analyser) Write(samples []float32) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, s := range samples {
		a.ring[a.pos] = float64(s)
		a.pos = (a.pos + 1) % a.fftSize
	}
}

// ByteFrequencyData windows the current buffer, transforms it, blends the
// magnitudes with the previous call and writes them to dst in bytes mapped
// linearly from [MinDecibels, MaxDecibels].
func (a *Analyser) ByteFrequencyData(dst []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()

	// oldest sample first
	for i := 0; i < a.fftSize; i++ {
		a.input[i] = a.ring[(a.pos+i)%a.fftSize] * a.window[i]
	}
	a.fft.Coefficients(a.coeffs, a.input)

	scale := 1 / float64(a.fftSize)
	n := len(a.smoothed)
	for k := 0; k < n; k++ {
		mag := cmplx.Abs(a.coeffs[k]) * scale
		a.smoothed[k] = a.smoothing*a.smoothed[k] + (1-a.smoothing)*mag
		if k < len(dst) {
			dst[k] = toByte(a.smoothed[k])
		}
	}
}

func (a *Analyser) Close() error {
	a.mu.Lock()
	unsubscribe := a.unsubscribe
	a.unsubscribe = nil
	a.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
	return nil
}

func toByte(mag float64) byte {
	if mag <= 0 {
		return 0
	}
	db := 20 * math.Log10(mag)
	v := 255 * (db - MinDecibels) / (MaxDecibels - MinDecibels)
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return byte(v)
	}
}

func blackman(n int) []float64 {
	const a0, a1, a2 = 0.42, 0.5, 0.08
	w := make([]float64, n)
	for i := range w {
		x := 2 * math.Pi * float64(i) / float64(n)
		w[i] = a0 - a1*math.Cos(x) + a2*math.Cos(2*x)
	}
	return w
}
