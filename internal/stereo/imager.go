// Package stereo implements mid/side width processing and the spatial
// effects (reverb, delay) that give a mix depth. Vocals and music get
// independent treatments so vocal intelligibility survives the widening
// applied to the instrumental.
package stereo

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/versemix/mixdown/internal/audio"
)

// WidthSpec configures stereo width enhancement.
type WidthSpec struct {
	Factor float64 `json:"factor"` // 1.0 = unchanged, <1 narrows, >1 widens
}

// Mono detection thresholds.
const (
	monoCorrelation = 0.99 // |correlation| above this
	monoSideRatio   = 0.01 // side/mid RMS below this
)

// WidthMeasurement describes the stereo image of a buffer.
type WidthMeasurement struct {
	Correlation  float64 `json:"correlation"`    // L/R Pearson correlation
	SideMidRatio float64 `json:"side_mid_ratio"` // side RMS over mid RMS
	WidthScore   float64 `json:"width_score"`    // [0,1], 0 = mono
	IsMono       bool    `json:"is_mono"`
}

// MeasureWidth analyses the stereo image. Mono input is treated as an
// identical L/R pair, which measures as fully mono.
func MeasureWidth(buf *audio.Buffer) (WidthMeasurement, error) {
	st, err := buf.EnsureStereo()
	if err != nil {
		return WidthMeasurement{}, err
	}
	left, right := st.Data[0], st.Data[1]

	frames := len(left)
	var midSq, sideSq float64
	for i := 0; i < frames; i++ {
		mid := (left[i] + right[i]) / 2
		side := (left[i] - right[i]) / 2
		midSq += mid * mid
		sideSq += side * side
	}
	midRMS := math.Sqrt(midSq / float64(frames))
	sideRMS := math.Sqrt(sideSq / float64(frames))

	sideRatio := 0.0
	if midRMS > 0 {
		sideRatio = sideRMS / midRMS
	}

	corr := stat.Correlation(left, right, nil)
	if math.IsNaN(corr) {
		// Constant channels have no defined correlation; identical
		// channels are fully correlated, anything else is treated as
		// uncorrelated.
		if sideRMS < 1e-12 {
			corr = 1
		} else {
			corr = 0
		}
	}

	score := (1 - math.Abs(corr)) * (1 + sideRatio) / 2
	score = math.Max(0, math.Min(1, score))

	return WidthMeasurement{
		Correlation:  corr,
		SideMidRatio: sideRatio,
		WidthScore:   score,
		IsMono:       math.Abs(corr) > monoCorrelation && sideRatio < monoSideRatio,
	}, nil
}

// EnhanceWidth scales the side signal by the spec factor and
// reconstructs L/R. A factor of 1.0 is an exact identity. The result is
// peak-normalised only when widening pushed samples past full scale.
func EnhanceWidth(buf *audio.Buffer, spec WidthSpec) (*audio.Buffer, error) {
	st, err := buf.EnsureStereo()
	if err != nil {
		return nil, err
	}
	factor := spec.Factor
	if factor < 0 {
		factor = 0
	}

	left, right := st.Data[0], st.Data[1]
	for i := range left {
		mid := (left[i] + right[i]) / 2
		side := (left[i] - right[i]) / 2 * factor
		left[i] = mid + side
		right[i] = mid - side
	}
	return st.PeakNormalised(1.0), nil
}

// ImagingSpec bundles the spatial treatment for one mix role.
type ImagingSpec struct {
	Width  WidthSpec  `json:"width"`
	Reverb ReverbSpec `json:"reverb"`
	Delay  DelaySpec  `json:"delay"`
}

// ProcessPair applies width, reverb and delay independently per role.
// Presets keep vocals narrower and drier than the instrumental; this
// function just applies whatever the two specs ask for.
func ProcessPair(vocals, music *audio.Buffer, vocalSpec, musicSpec ImagingSpec) (*audio.Buffer, *audio.Buffer, error) {
	v, err := Process(vocals, vocalSpec)
	if err != nil {
		return nil, nil, err
	}
	m, err := Process(music, musicSpec)
	if err != nil {
		return nil, nil, err
	}
	return v, m, nil
}

// Process applies one role's spatial treatment. Disabled effects (zero
// wet level, unit width) are skipped; a fully disabled spec returns a
// plain copy.
func Process(buf *audio.Buffer, spec ImagingSpec) (*audio.Buffer, error) {
	out := buf
	if spec.Width.Factor > 0 && spec.Width.Factor != 1.0 {
		widened, err := EnhanceWidth(out, spec.Width)
		if err != nil {
			return nil, err
		}
		out = widened
	}
	if spec.Reverb.WetLevel > 0 {
		wet, err := AddReverb(out, spec.Reverb)
		if err != nil {
			return nil, err
		}
		out = wet
	}
	if spec.Delay.WetLevel > 0 {
		delayed, err := AddDelay(out, spec.Delay)
		if err != nil {
			return nil, err
		}
		out = delayed
	}
	if out == buf {
		out = buf.Clone()
	}
	return out, nil
}
