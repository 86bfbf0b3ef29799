package stereo

import "github.com/versemix/mixdown/internal/audio"

// DelaySpec configures the echo effect.
type DelaySpec struct {
	DelayMs  float64 `json:"delay_ms"`
	Feedback float64 `json:"feedback"`  // [0,1); per-tap decay
	WetLevel float64 `json:"wet_level"` // [0,1]; 0 disables
	PingPong bool    `json:"ping_pong"` // alternate taps between channels
}

// maxDelayTaps bounds the feedback tap train. Three geometrically
// decaying taps cover everything audible for feedback below ~0.7.
const maxDelayTaps = 3

// AddDelay mixes delayed copies of the signal behind the dry path.
// Ping-pong mode bounces successive taps between the two channels;
// standard mode keeps each tap in its source channel. Peak-normalised
// only when the wet mix clips.
func AddDelay(buf *audio.Buffer, spec DelaySpec) (*audio.Buffer, error) {
	if buf.IsEmpty() {
		return nil, audio.ErrEmptyBuffer
	}
	wet := clampUnit(spec.WetLevel)
	if wet == 0 || spec.DelayMs <= 0 {
		return buf.Clone(), nil
	}

	src := buf
	if spec.PingPong {
		st, err := buf.EnsureStereo()
		if err != nil {
			return nil, err
		}
		src = st
	} else {
		src = buf.Clone()
	}

	delaySamples := int(spec.DelayMs / 1000.0 * float64(src.SampleRate))
	if delaySamples < 1 {
		delaySamples = 1
	}
	feedback := clampUnit(spec.Feedback)

	frames := src.NumFrames()
	channels := src.NumChannels()
	wetSig := make([][]float64, channels)
	for ch := range wetSig {
		wetSig[ch] = make([]float64, frames)
	}

	gain := 1.0
	for tap := 1; tap <= maxDelayTaps; tap++ {
		offset := delaySamples * tap
		if offset >= frames {
			break
		}
		for ch := 0; ch < channels; ch++ {
			srcCh := ch
			if spec.PingPong && tap%2 == 1 {
				// Odd taps echo from the opposite channel.
				srcCh = (ch + 1) % channels
			}
			in := src.Data[srcCh]
			dst := wetSig[ch]
			for i := offset; i < frames; i++ {
				dst[i] += in[i-offset] * gain
			}
		}
		gain *= feedback
		if gain == 0 {
			break
		}
	}

	out := src.Clone()
	for ch := range out.Data {
		dry := src.Data[ch]
		dst := out.Data[ch]
		for i := range dst {
			dst[i] = dry[i]*(1-wet) + wetSig[ch][i]*wet
		}
	}
	return out.PeakNormalised(1.0), nil
}
