package eq

import (
	"math"

	"github.com/versemix/mixdown/internal/analysis"
	"github.com/versemix/mixdown/internal/audio"
	"github.com/versemix/mixdown/internal/tuning"
)

// FilterSpec describes one parametric peaking filter.
type FilterSpec struct {
	Frequency float64 `json:"frequency"` // Hz
	GainDB    float64 `json:"gain_db"`   // positive boosts, negative cuts
	Q         float64 `json:"q"`         // resonance; higher is narrower
}

// defaultQ is used for filters generated from band-level corrections,
// where the target is a broad region rather than a precise frequency.
const defaultQ = 1.0

// Designer composes filter settings from a genre preset, adaptive
// band corrections and optional reference matching, in that order.
type Designer struct {
	tun tuning.EQTunables
}

// NewDesigner builds a Designer from the engine tunables.
func NewDesigner(t *tuning.Tunables) *Designer {
	return &Designer{tun: t.EQ}
}

// Settings returns the filter list for a buffer with the given spectral
// profile. preset filters come first unchanged, then adaptive
// corrections derived from the profile's band balance, then
// reference-matching boosts when a reference profile is supplied.
// A degraded (all-zero) profile contributes no corrections.
func (d *Designer) Settings(profile analysis.FrequencyProfile, ref *analysis.FrequencyProfile, preset []FilterSpec) []FilterSpec {
	specs := make([]FilterSpec, 0, len(preset)+int(analysis.NumBands))
	specs = append(specs, preset...)

	if !profile.Degraded && !profile.IsZero() {
		specs = append(specs, d.adaptiveCorrections(profile)...)
		if ref != nil && !ref.IsZero() {
			specs = append(specs, d.referenceMatch(profile, *ref)...)
		}
	}
	return specs
}

// adaptiveCorrections boosts starved bands and cuts over-energetic ones.
func (d *Designer) adaptiveCorrections(profile analysis.FrequencyProfile) []FilterSpec {
	var specs []FilterSpec
	for band := analysis.Band(0); band < analysis.NumBands; band++ {
		share := profile.BandEnergy[band]
		switch {
		case share < d.tun.WeakBandPct:
			specs = append(specs, FilterSpec{
				Frequency: band.CenterFreq(),
				GainDB:    d.tun.WeakBoostDB,
				Q:         defaultQ,
			})
		case share > d.tun.StrongBandPct:
			specs = append(specs, FilterSpec{
				Frequency: band.CenterFreq(),
				GainDB:    d.tun.StrongCutDB,
				Q:         defaultQ,
			})
		}
	}
	return specs
}

// referenceMatch boosts bands where the reference carries materially
// more energy than the current profile. Gain is proportional to the
// gap (RefMatchDBPerPoint dB per percentage point) and capped.
func (d *Designer) referenceMatch(profile, ref analysis.FrequencyProfile) []FilterSpec {
	var specs []FilterSpec
	for band := analysis.Band(0); band < analysis.NumBands; band++ {
		gap := ref.BandEnergy[band] - profile.BandEnergy[band]
		if gap <= d.tun.RefMatchMinGapPct {
			continue
		}
		gain := math.Min(gap*d.tun.RefMatchDBPerPoint, d.tun.MaxMatchGainDB)
		specs = append(specs, FilterSpec{
			Frequency: band.CenterFreq(),
			GainDB:    gain,
			Q:         defaultQ,
		})
	}
	return specs
}

// Apply runs each filter over the buffer zero-phase, cumulatively in
// order, and returns a new buffer. The zero-phase pass applies the
// magnitude response twice, so each filter is designed at half its
// spec gain. An empty spec list clones the input.
func Apply(buf *audio.Buffer, specs []FilterSpec) *audio.Buffer {
	out := buf.Clone()
	for _, spec := range specs {
		q := spec.Q
		if q <= 0 {
			q = defaultQ
		}
		f := peakingBiquad(float64(out.SampleRate), spec.Frequency, q, spec.GainDB/2)
		for _, ch := range out.Data {
			f.processZeroPhase(ch)
		}
	}
	return out
}
