package mix

import (
	"math"
	"testing"

	"github.com/versemix/mixdown/internal/audio"
)

// stemOptions controls the synthetic stems used across the mix tests.
type stemOptions struct {
	Channels int
	Seconds  float64
	Rate     int
	ToneHz   float64
	ToneAmp  float64
	NoiseAmp float64
	Seed     uint32
}

func defaultStemOptions() stemOptions {
	return stemOptions{
		Channels: 2,
		Seconds:  2.0,
		Rate:     44100,
		ToneHz:   440,
		ToneAmp:  0.4,
		NoiseAmp: 0.1,
		Seed:     1,
	}
}

// makeStem synthesises a deterministic stem: a tone under light noise,
// enough spectral content for a non-degraded profile.
func makeStem(t *testing.T, opts stemOptions) *audio.Buffer {
	t.Helper()
	frames := int(opts.Seconds * float64(opts.Rate))
	data := make([][]float64, opts.Channels)
	state := opts.Seed
	for ch := range data {
		data[ch] = make([]float64, frames)
		for i := range data[ch] {
			state = state*1664525 + 1013904223
			noise := float64(state)/float64(math.MaxUint32)*2 - 1
			tone := math.Sin(2 * math.Pi * opts.ToneHz * float64(i) / float64(opts.Rate))
			data[ch][i] = opts.ToneAmp*tone + opts.NoiseAmp*noise
		}
	}
	buf, err := audio.FromSamples(data, opts.Rate)
	if err != nil {
		t.Fatalf("FromSamples: %v", err)
	}
	return buf
}

func makeVocalStem(t *testing.T, seconds float64) *audio.Buffer {
	t.Helper()
	opts := defaultStemOptions()
	opts.Seconds = seconds
	opts.ToneHz = 330
	opts.Seed = 7
	return makeStem(t, opts)
}

func makeMusicStem(t *testing.T, seconds float64) *audio.Buffer {
	t.Helper()
	opts := defaultStemOptions()
	opts.Seconds = seconds
	opts.ToneHz = 110
	opts.Seed = 13
	return makeStem(t, opts)
}
