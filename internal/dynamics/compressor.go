package dynamics

import (
	"math"

	"github.com/versemix/mixdown/internal/audio"
)

// CompressionSpec configures broadband compression.
type CompressionSpec struct {
	ThresholdDB float64 `json:"threshold_db"` // dBFS; compression starts above
	Ratio       float64 `json:"ratio"`
	AttackMs    float64 `json:"attack_ms"`
	ReleaseMs   float64 `json:"release_ms"`
}

// IsZero reports an unset spec (no compression requested).
func (s CompressionSpec) IsZero() bool {
	return s.Ratio == 0
}

// Compress applies feed-forward compression with a peak envelope
// follower, linked across channels so the stereo image does not shift.
// Returns a new buffer; no makeup gain is applied.
func Compress(buf *audio.Buffer, spec CompressionSpec) *audio.Buffer {
	if buf.IsEmpty() || spec.IsZero() || spec.Ratio <= 1 {
		return buf.Clone()
	}

	out := buf.Clone()
	attackCoef := onePoleCoef(spec.AttackMs, buf.SampleRate)
	releaseCoef := onePoleCoef(spec.ReleaseMs, buf.SampleRate)
	threshold := audio.DBToLinear(spec.ThresholdDB)

	frames := out.NumFrames()
	envelope := 0.0
	for i := 0; i < frames; i++ {
		// Linked detection: loudest channel drives the envelope.
		level := 0.0
		for _, ch := range out.Data {
			if a := math.Abs(ch[i]); a > level {
				level = a
			}
		}

		if level > envelope {
			envelope = attackCoef*envelope + (1-attackCoef)*level
		} else {
			envelope = releaseCoef*envelope + (1-releaseCoef)*level
		}

		gain := 1.0
		if envelope > threshold {
			excess := envelope - threshold
			gain = (threshold + excess/spec.Ratio) / envelope
		}
		for _, ch := range out.Data {
			ch[i] *= gain
		}
	}
	return out
}

// limiterReleaseMs controls how quickly the limiter recovers after a
// peak. Attack is instantaneous: peaks must never pass the ceiling.
const limiterReleaseMs = 50.0

// Limit applies a hard peak ceiling with instantaneous attack and a
// smooth release. Output samples never exceed the ceiling in magnitude.
func Limit(buf *audio.Buffer, ceiling float64) *audio.Buffer {
	if buf.IsEmpty() || ceiling <= 0 {
		return buf.Clone()
	}

	out := buf.Clone()
	releaseCoef := onePoleCoef(limiterReleaseMs, buf.SampleRate)

	frames := out.NumFrames()
	gain := 1.0
	for i := 0; i < frames; i++ {
		level := 0.0
		for _, ch := range out.Data {
			if a := math.Abs(ch[i]); a > level {
				level = a
			}
		}

		required := 1.0
		if level*gain > ceiling && level > 0 {
			required = ceiling / level
		}
		if required < gain {
			gain = required // clamp instantly on overshoot
		} else {
			gain = releaseCoef*gain + (1-releaseCoef)*1.0
			if level*gain > ceiling && level > 0 {
				gain = ceiling / level
			}
		}

		for _, ch := range out.Data {
			ch[i] *= gain
		}
	}
	return out
}
