package stereo

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/versemix/mixdown/internal/audio"
)

// ReverbSpec configures the synthetic-impulse convolution reverb.
type ReverbSpec struct {
	RoomSize   float64 `json:"room_size"`    // [0,1]; scales decay length
	Damping    float64 `json:"damping"`      // [0,1]; high-frequency absorption
	WetLevel   float64 `json:"wet_level"`    // [0,1]; 0 disables
	PreDelayMs float64 `json:"pre_delay_ms"` // gap before first reflection
}

// Impulse geometry: a room size of 0 gives a tight 100ms tail, 1 gives
// a 1.5s hall. Decay reaches -60dB at the end of the tail.
const (
	reverbMinTailSec  = 0.1
	reverbTailSpanSec = 1.4
	reverbDecayT60    = 6.91 // ln(10^3): -60dB point
)

// AddReverb convolves each channel with a synthetic exponential-decay
// noise impulse and mixes the result behind the dry signal. The impulse
// is deterministic, so identical input and spec produce identical output.
// Peak-normalised only when the wet mix clips.
func AddReverb(buf *audio.Buffer, spec ReverbSpec) (*audio.Buffer, error) {
	if buf.IsEmpty() {
		return nil, audio.ErrEmptyBuffer
	}
	wet := clampUnit(spec.WetLevel)
	if wet == 0 {
		return buf.Clone(), nil
	}

	impulse := synthesiseImpulse(spec, buf.SampleRate)

	out := buf.Clone()
	for chIdx, ch := range buf.Data {
		tail := fftConvolve(ch, impulse)
		dst := out.Data[chIdx]
		for i := range dst {
			dst[i] = ch[i]*(1-wet) + tail[i]*wet
		}
	}
	return out.PeakNormalised(1.0), nil
}

// synthesiseImpulse builds the room impulse: pre-delay silence, then
// exponentially decaying noise, low-passed according to damping, scaled
// to unit energy so convolution preserves overall level.
func synthesiseImpulse(spec ReverbSpec, sampleRate int) []float64 {
	room := clampUnit(spec.RoomSize)
	damping := clampUnit(spec.Damping)

	tailSec := reverbMinTailSec + room*reverbTailSpanSec
	preDelay := int(math.Max(0, spec.PreDelayMs) / 1000.0 * float64(sampleRate))
	tailLen := int(tailSec * float64(sampleRate))
	if tailLen < 1 {
		tailLen = 1
	}

	impulse := make([]float64, preDelay+tailLen)
	decay := reverbDecayT60 / float64(tailLen)

	rng := newNoiseSource(0x5eed)
	for i := 0; i < tailLen; i++ {
		impulse[preDelay+i] = rng.next() * math.Exp(-decay*float64(i))
	}

	// Damping as a one-pole low-pass over the impulse itself: higher
	// damping absorbs more high-frequency reflection energy.
	if damping > 0 {
		prev := 0.0
		for i := preDelay; i < len(impulse); i++ {
			prev = damping*prev + (1-damping)*impulse[i]
			impulse[i] = prev
		}
	}

	var energy float64
	for _, s := range impulse {
		energy += s * s
	}
	if energy > 0 {
		scale := 1 / math.Sqrt(energy)
		for i := range impulse {
			impulse[i] *= scale
		}
	}
	return impulse
}

// fftConvolve convolves signal with kernel and returns the first
// len(signal) samples of the result.
func fftConvolve(signal, kernel []float64) []float64 {
	outLen := len(signal)
	convLen := len(signal) + len(kernel) - 1
	size := nextPow2(convLen)

	fft := fourier.NewFFT(size)

	a := make([]float64, size)
	copy(a, signal)
	b := make([]float64, size)
	copy(b, kernel)

	ca := fft.Coefficients(nil, a)
	cb := fft.Coefficients(nil, b)
	for i := range ca {
		ca[i] *= cb[i]
	}

	res := fft.Sequence(nil, ca)
	scale := 1 / float64(size)
	out := make([]float64, outLen)
	for i := range out {
		out[i] = res[i] * scale
	}
	return out
}

func nextPow2(n int) int {
	size := 1
	for size < n {
		size <<= 1
	}
	return size
}

func clampUnit(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// noiseSource is a deterministic LCG noise generator in [-1, 1].
// Keeps reverb output reproducible without seeding math/rand.
type noiseSource struct {
	state uint32
}

func newNoiseSource(seed uint32) *noiseSource {
	return &noiseSource{state: seed}
}

func (n *noiseSource) next() float64 {
	n.state = n.state*1664525 + 1013904223
	return float64(n.state)/float64(math.MaxUint32)*2 - 1
}
