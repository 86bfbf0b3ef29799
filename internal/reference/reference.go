// Package reference analyses a reference track into the mixing
// characteristics worth imitating, and turns them into concrete
// recommendations for the current mix.
package reference

import (
	"sync"

	"github.com/versemix/mixdown/internal/analysis"
	"github.com/versemix/mixdown/internal/audio"
	"github.com/versemix/mixdown/internal/eq"
	"github.com/versemix/mixdown/internal/genre"
	"github.com/versemix/mixdown/internal/stereo"
)

// RecommendationType labels what kind of adjustment is suggested.
type RecommendationType string

// Recommendation kinds.
const (
	RecEQBoost     RecommendationType = "eq_boost"
	RecWiden       RecommendationType = "widen"
	RecCompression RecommendationType = "compression"
)

// Target names the stem a recommendation applies to.
type Target string

// Recommendation targets.
const (
	TargetVocals Target = "vocals"
	TargetMusic  Target = "music"
	TargetAll    Target = "all"
)

// Recommendation is one concrete, human-readable mixing suggestion
// derived from the reference. Numeric fields are populated per type.
type Recommendation struct {
	Type        RecommendationType `json:"type"`
	Target      Target             `json:"target"`
	Frequency   float64            `json:"frequency,omitempty"`    // Hz, EQ types
	GainDB      float64            `json:"gain_db,omitempty"`      // EQ types
	WidthFactor float64            `json:"width_factor,omitempty"` // widen type
	Threshold   float64            `json:"threshold,omitempty"`    // compression, dBFS
	Ratio       float64            `json:"ratio,omitempty"`        // compression
	Reason      string             `json:"reason"`
}

// Analysis is the cached result of analysing one reference buffer.
type Analysis struct {
	Profile         analysis.FrequencyProfile       `json:"profile"`
	Width           stereo.WidthMeasurement         `json:"width"`
	DynamicRange    float64                         `json:"dynamic_range"`  // [0,1]
	AvgLoudnessDB   float64                         `json:"avg_loudness_db"`
	EQProfile       [analysis.NumBands]float64      `json:"eq_profile"` // band percentages
	Recommendations []Recommendation                `json:"recommendations"`
}

// Analyzer extracts reference characteristics, caching by reference ID
// so repeated mixes against the same reference pay for analysis once.
type Analyzer struct {
	freq *analysis.Analyzer

	mu    sync.RWMutex
	cache map[string]*Analysis
}

// NewAnalyzer builds a reference analyzer around the shared
// FrequencyAnalyzer.
func NewAnalyzer(freq *analysis.Analyzer) *Analyzer {
	return &Analyzer{
		freq:  freq,
		cache: make(map[string]*Analysis),
	}
}

// Analyze produces (or returns the cached) analysis for a reference
// buffer identified by id.
func (a *Analyzer) Analyze(id string, buf *audio.Buffer) (*Analysis, error) {
	if buf.IsEmpty() {
		return nil, audio.ErrEmptyBuffer
	}

	a.mu.RLock()
	if cached, ok := a.cache[id]; ok {
		a.mu.RUnlock()
		return cached, nil
	}
	a.mu.RUnlock()

	profile := a.freq.Analyze(buf)
	width, err := stereo.MeasureWidth(buf)
	if err != nil {
		return nil, err
	}
	feats := genre.EstimateFeatures(buf)

	result := &Analysis{
		Profile:       profile,
		Width:         width,
		DynamicRange:  feats.DynamicRange,
		AvgLoudnessDB: audio.LinearToDB(buf.RMS()),
		EQProfile:     profile.BandEnergy,
	}
	result.Recommendations = deriveRecommendations(result)

	a.mu.Lock()
	a.cache[id] = result
	a.mu.Unlock()
	return result, nil
}

// MatchToReference is the reference-matching specialisation of the
// dynamic EQ: it reuses Settings with the reference's profile, no
// separate algorithm.
func MatchToReference(designer *eq.Designer, current analysis.FrequencyProfile, ref *Analysis) []eq.FilterSpec {
	return designer.Settings(current, &ref.Profile, nil)
}

// Recommendation rule thresholds.
const (
	bassHeavyPct    = 30.0 // bass share above: the reference is bass-forward
	midThinPct      = 15.0 // mid share below: vocals need presence
	presenceThinPct = 10.0 // high-mid share below: mix lacks presence
	wideImageScore  = 0.7  // width above: widen the instrumental
	flatDynamics    = 0.2  // dynamic range below: glue compression
)

// deriveRecommendations applies the deterministic reference rules.
func deriveRecommendations(ref *Analysis) []Recommendation {
	var recs []Recommendation

	if ref.Profile.BandEnergy[analysis.BandBass] > bassHeavyPct {
		recs = append(recs, Recommendation{
			Type: RecEQBoost, Target: TargetMusic,
			Frequency: 80, GainDB: 2,
			Reason: "reference is bass-forward; lift the instrumental low end",
		})
	}
	if ref.Profile.BandEnergy[analysis.BandMid] < midThinPct {
		recs = append(recs, Recommendation{
			Type: RecEQBoost, Target: TargetVocals,
			Frequency: 1000, GainDB: 2,
			Reason: "reference leaves the midrange open; bring vocals forward",
		})
	}
	if ref.Profile.BandEnergy[analysis.BandHighMid] < presenceThinPct {
		recs = append(recs, Recommendation{
			Type: RecEQBoost, Target: TargetVocals,
			Frequency: 3500, GainDB: 1.5,
			Reason: "reference has little presence energy; add vocal presence",
		})
	}
	if ref.Width.WidthScore > wideImageScore {
		recs = append(recs, Recommendation{
			Type: RecWiden, Target: TargetMusic,
			WidthFactor: 1.5,
			Reason:      "reference has a wide stereo image; widen the instrumental",
		})
	}
	if ref.DynamicRange < flatDynamics && !ref.Profile.Degraded {
		recs = append(recs, Recommendation{
			Type: RecCompression, Target: TargetAll,
			Threshold: -18, Ratio: 2,
			Reason: "reference is densely compressed; apply broad glue compression",
		})
	}
	return recs
}
