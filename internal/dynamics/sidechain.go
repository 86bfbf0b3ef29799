// Package dynamics provides level-dependent gain processing: the
// sidechain ducker that carves space for vocals, and the compressor and
// limiter used by the mastering stage.
package dynamics

import (
	"math"

	"github.com/versemix/mixdown/internal/audio"
)

// SidechainSpec configures ducking of a target signal by a trigger.
type SidechainSpec struct {
	Threshold float64 `json:"threshold"`  // linear amplitude; ducking starts above
	Ratio     float64 `json:"ratio"`      // e.g. 4.0 for 4:1
	AttackMs  float64 `json:"attack_ms"`  // gain-reduction onset
	ReleaseMs float64 `json:"release_ms"` // gain-recovery time
}

// envelopeFrameMs is the RMS analysis frame for the trigger envelope.
const envelopeFrameMs = 10.0

// Duck reduces the target's level wherever the trigger's RMS envelope
// exceeds the spec threshold. Sample rates are aligned to the target's
// rate and the shorter signal wins on length. The gain curve never rises
// above unity and the output is intentionally not normalised: ducking
// only ever removes level.
func Duck(trigger, target *audio.Buffer, spec SidechainSpec) (*audio.Buffer, error) {
	if trigger.IsEmpty() || target.IsEmpty() {
		return nil, audio.ErrEmptyBuffer
	}
	if spec.Ratio < 1 {
		spec.Ratio = 1
	}

	trig := trigger
	if trig.SampleRate != target.SampleRate {
		trig = trig.Resampled(target.SampleRate)
	}

	frames := target.NumFrames()
	if trig.NumFrames() < frames {
		frames = trig.NumFrames()
	}

	envelope := rmsEnvelope(trig.Mono().Data[0][:frames], target.SampleRate)
	gains := duckingGains(envelope, spec)
	smoothGains(gains, spec, target.SampleRate)

	out := target.Slice(0, frames)
	for _, ch := range out.Data {
		for i := range ch {
			ch[i] *= gains[i]
		}
	}
	return out, nil
}

// rmsEnvelope computes frame RMS over ~10ms windows and linearly
// upsamples back to one value per sample.
func rmsEnvelope(samples []float64, sampleRate int) []float64 {
	frameLen := int(float64(sampleRate) * envelopeFrameMs / 1000.0)
	if frameLen < 1 {
		frameLen = 1
	}

	numFrames := (len(samples) + frameLen - 1) / frameLen
	frameRMS := make([]float64, numFrames)
	for f := 0; f < numFrames; f++ {
		start := f * frameLen
		end := start + frameLen
		if end > len(samples) {
			end = len(samples)
		}
		var sum float64
		for _, s := range samples[start:end] {
			sum += s * s
		}
		frameRMS[f] = math.Sqrt(sum / float64(end-start))
	}

	env := make([]float64, len(samples))
	for i := range env {
		pos := float64(i) / float64(frameLen)
		f := int(pos)
		if f >= numFrames-1 {
			env[i] = frameRMS[numFrames-1]
			continue
		}
		frac := pos - float64(f)
		env[i] = frameRMS[f]*(1-frac) + frameRMS[f+1]*frac
	}
	return env
}

// duckingGains computes the raw (unsmoothed) gain curve.
// Above threshold: gain = (threshold + excess/ratio) / level, which maps
// the excess onto the compression slope. At or below threshold: unity.
func duckingGains(envelope []float64, spec SidechainSpec) []float64 {
	gains := make([]float64, len(envelope))
	for i, level := range envelope {
		if level <= spec.Threshold || level == 0 {
			gains[i] = 1
			continue
		}
		excess := level - spec.Threshold
		g := (spec.Threshold + excess/spec.Ratio) / level
		if g > 1 {
			g = 1
		}
		gains[i] = g
	}
	return gains
}

// smoothGains applies an asymmetric one-pole filter in place: the fast
// attack constant when gain is falling, the slow release constant when
// it is recovering. This keeps duck onsets tight and recoveries smooth.
func smoothGains(gains []float64, spec SidechainSpec, sampleRate int) {
	attackCoef := onePoleCoef(spec.AttackMs, sampleRate)
	releaseCoef := onePoleCoef(spec.ReleaseMs, sampleRate)

	prev := 1.0
	for i, g := range gains {
		coef := releaseCoef
		if g < prev {
			coef = attackCoef
		}
		prev = coef*prev + (1-coef)*g
		gains[i] = prev
	}
}

// onePoleCoef converts a time constant in milliseconds to a one-pole
// smoothing coefficient at the given rate.
func onePoleCoef(ms float64, sampleRate int) float64 {
	if ms <= 0 {
		return 0
	}
	return math.Exp(-1.0 / (ms / 1000.0 * float64(sampleRate)))
}
