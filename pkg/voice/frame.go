package voice

// Bands is the fixed width of a VolumeFrame.
const Bands = 8

// bandStride skips every other bin so the eight bands cover the lower half of
// a 64-point spectrum.
const bandStride = 2

// VolumeFrame is one sampled view of the lower spectrum. Frames are
// ephemeral: they are handed to the observer and dropped.
type VolumeFrame struct {
	Tick          uint64         `json:"tick"`
	Levels        [Bands]float64 `json:"levels"`
	Mean          float64        `json:"mean"`
	VoiceDetected bool           `json:"voice_detected"`
}

// levelsFromBins reads bins 0, 2, 4, ... normalised to [0, 1]. Bins missing
// from a short spectrum count as silence.
func levelsFromBins(bins []byte) (levels [Bands]float64, mean float64) {
	var sum float64
	for i := 0; i < Bands; i++ {
		idx := i * bandStride
		if idx >= len(bins) {
			continue
		}
		levels[i] = float64(bins[idx]) / 255
		sum += levels[i]
	}
	return levels, sum / Bands
}
