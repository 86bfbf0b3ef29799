// Package tuning holds the hand-tuned engine constants as versioned
// configuration data: genre scoring rules, adaptive EQ thresholds and
// optimizer deltas. Defaults are embedded; a JSON file can override any
// field without a rebuild.
package tuning

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/versemix/mixdown/internal/analysis"
)

// Version identifies the default tunables revision. Bumped whenever a
// default constant changes so stored configurations can record what
// they were produced with.
const Version = 3

// RangeRule awards Score when a measured value falls inside [Min, Max].
type RangeRule struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Score float64 `json:"score"`
}

// Matches reports whether v falls inside the rule's range.
func (r *RangeRule) Matches(v float64) bool {
	return r != nil && v >= r.Min && v <= r.Max
}

// BandRule awards Score when a band's energy share falls inside [Min, Max].
type BandRule struct {
	Band  analysis.Band `json:"band"`
	Min   float64       `json:"min"` // % share
	Max   float64       `json:"max"` // % share
	Score float64       `json:"score"`
}

// GenreRule is the full scoring rule set for one genre. Each matching
// sub-rule contributes its bounded partial score; the genre total is
// capped at 1.0 before normalisation.
type GenreRule struct {
	Tempo        *RangeRule `json:"tempo,omitempty"`         // BPM
	Centroid     *RangeRule `json:"centroid,omitempty"`      // Hz
	Rhythm       *RangeRule `json:"rhythm,omitempty"`        // regularity, [0,1]
	DynamicRange *RangeRule `json:"dynamic_range,omitempty"` // [0,1]
	Bands        []BandRule `json:"bands,omitempty"`
}

// EQTunables controls the adaptive corrections in DynamicEQ.
type EQTunables struct {
	WeakBandPct        float64 `json:"weak_band_pct"`         // below: band gets a small boost
	WeakBoostDB        float64 `json:"weak_boost_db"`         // boost applied to weak bands
	StrongBandPct      float64 `json:"strong_band_pct"`       // above: band gets a small cut
	StrongCutDB        float64 `json:"strong_cut_db"`         // cut applied to over-energetic bands
	RefMatchMinGapPct  float64 `json:"ref_match_min_gap_pct"` // gaps below this are ignored
	RefMatchDBPerPoint float64 `json:"ref_match_db_per_point"`
	MaxMatchGainDB     float64 `json:"max_match_gain_db"` // per-filter cap on reference boosts
}

// OptimizerTunables gates and scales feedback-driven optimization.
type OptimizerTunables struct {
	MinFeedbackCount  int     `json:"min_feedback_count"` // optimization fires at or above
	MaxAvgOverall     float64 `json:"max_avg_overall"`    // optimization fires strictly below
	SubscaleThreshold float64 `json:"subscale_threshold"` // per-subscale trigger
	ClarityBoostDB    float64 `json:"clarity_boost_db"`   // mid boost per optimization
	ClarityCapDB      float64 `json:"clarity_cap_db"`     // total mid boost ceiling
	WidthDelta        float64 `json:"width_delta"`
	WidthCap          float64 `json:"width_cap"`
	ReverbWetDelta    float64 `json:"reverb_wet_delta"` // negative: dries the mix
	ReverbWetFloor    float64 `json:"reverb_wet_floor"`
}

// Tunables is the complete versioned constant set.
type Tunables struct {
	Version   int                  `json:"version"`
	Genres    map[string]GenreRule `json:"genres"`
	EQ        EQTunables           `json:"eq"`
	Optimizer OptimizerTunables    `json:"optimizer"`
}

// Defaults returns the embedded tunables revision.
func Defaults() *Tunables {
	return &Tunables{
		Version: Version,
		Genres:  defaultGenreRules(),
		EQ: EQTunables{
			WeakBandPct:        15.0,
			WeakBoostDB:        1.5,
			StrongBandPct:      35.0,
			StrongCutDB:        -2.0,
			RefMatchMinGapPct:  5.0,
			RefMatchDBPerPoint: 0.1,
			MaxMatchGainDB:     4.0,
		},
		Optimizer: OptimizerTunables{
			MinFeedbackCount:  5,
			MaxAvgOverall:     3.5,
			SubscaleThreshold: 3.5,
			ClarityBoostDB:    1.5,
			ClarityCapDB:      3.0,
			WidthDelta:        0.2,
			WidthCap:          2.0,
			ReverbWetDelta:    -0.1,
			ReverbWetFloor:    0.1,
		},
	}
}

// Load reads a JSON override file on top of the defaults. Fields absent
// from the file keep their default values.
func Load(path string) (*Tunables, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tunables file: %w", err)
	}
	if err := json.Unmarshal(raw, t); err != nil {
		return nil, fmt.Errorf("failed to parse tunables file %s: %w", path, err)
	}
	return t, nil
}

// defaultGenreRules encodes the deterministic per-genre threshold rules.
// Scores are hand-tuned; the distribution normalisation downstream makes
// only their relative magnitudes meaningful.
func defaultGenreRules() map[string]GenreRule {
	return map[string]GenreRule{
		"pop": {
			Tempo:    &RangeRule{Min: 100, Max: 130, Score: 0.3},
			Centroid: &RangeRule{Min: 1500, Max: 3000, Score: 0.3},
			Rhythm:   &RangeRule{Min: 0.7, Max: 1.0, Score: 0.2},
			Bands: []BandRule{
				{Band: analysis.BandMid, Min: 20, Max: 40, Score: 0.2},
			},
		},
		"rock": {
			Tempo:        &RangeRule{Min: 110, Max: 160, Score: 0.25},
			Centroid:     &RangeRule{Min: 2000, Max: 4000, Score: 0.15},
			DynamicRange: &RangeRule{Min: 0.3, Max: 0.7, Score: 0.15},
			Bands: []BandRule{
				{Band: analysis.BandBass, Min: 15, Max: 35, Score: 0.2},
				{Band: analysis.BandHighMid, Min: 15, Max: 35, Score: 0.25},
			},
		},
		"hiphop": {
			Tempo:    &RangeRule{Min: 70, Max: 105, Score: 0.3},
			Centroid: &RangeRule{Min: 800, Max: 2200, Score: 0.1},
			Rhythm:   &RangeRule{Min: 0.75, Max: 1.0, Score: 0.25},
			Bands: []BandRule{
				{Band: analysis.BandSubBass, Min: 10, Max: 40, Score: 0.2},
				{Band: analysis.BandBass, Min: 20, Max: 45, Score: 0.15},
			},
		},
		"electronic": {
			Tempo:  &RangeRule{Min: 118, Max: 150, Score: 0.3},
			Rhythm: &RangeRule{Min: 0.8, Max: 1.0, Score: 0.25},
			Bands: []BandRule{
				{Band: analysis.BandSubBass, Min: 8, Max: 30, Score: 0.25},
				{Band: analysis.BandTreble, Min: 10, Max: 30, Score: 0.2},
			},
		},
		"jazz": {
			Tempo:        &RangeRule{Min: 60, Max: 140, Score: 0.1},
			Centroid:     &RangeRule{Min: 1000, Max: 2500, Score: 0.15},
			Rhythm:       &RangeRule{Min: 0, Max: 0.6, Score: 0.25},
			DynamicRange: &RangeRule{Min: 0.5, Max: 1.0, Score: 0.3},
			Bands: []BandRule{
				{Band: analysis.BandLowMid, Min: 15, Max: 35, Score: 0.2},
			},
		},
		"classical": {
			Centroid:     &RangeRule{Min: 500, Max: 2000, Score: 0.2},
			Rhythm:       &RangeRule{Min: 0, Max: 0.5, Score: 0.25},
			DynamicRange: &RangeRule{Min: 0.6, Max: 1.0, Score: 0.35},
			Bands: []BandRule{
				{Band: analysis.BandTreble, Min: 0, Max: 10, Score: 0.2},
			},
		},
		"country": {
			Tempo:    &RangeRule{Min: 80, Max: 130, Score: 0.2},
			Centroid: &RangeRule{Min: 1500, Max: 3500, Score: 0.25},
			Rhythm:   &RangeRule{Min: 0.6, Max: 0.85, Score: 0.15},
			Bands: []BandRule{
				{Band: analysis.BandMid, Min: 20, Max: 40, Score: 0.25},
			},
		},
		"rnb": {
			Tempo:    &RangeRule{Min: 60, Max: 100, Score: 0.3},
			Centroid: &RangeRule{Min: 800, Max: 2000, Score: 0.2},
			Rhythm:   &RangeRule{Min: 0.65, Max: 0.9, Score: 0.15},
			Bands: []BandRule{
				{Band: analysis.BandBass, Min: 20, Max: 40, Score: 0.25},
			},
		},
		"metal": {
			Tempo:        &RangeRule{Min: 140, Max: 200, Score: 0.3},
			Centroid:     &RangeRule{Min: 2500, Max: 5000, Score: 0.1},
			DynamicRange: &RangeRule{Min: 0, Max: 0.3, Score: 0.15},
			Bands: []BandRule{
				{Band: analysis.BandHighMid, Min: 20, Max: 45, Score: 0.25},
				{Band: analysis.BandTreble, Min: 15, Max: 35, Score: 0.2},
			},
		},
		"ambient": {
			Tempo:        &RangeRule{Min: 0, Max: 80, Score: 0.25},
			Centroid:     &RangeRule{Min: 200, Max: 1500, Score: 0.2},
			Rhythm:       &RangeRule{Min: 0, Max: 0.4, Score: 0.3},
			DynamicRange: &RangeRule{Min: 0.4, Max: 1.0, Score: 0.15},
		},
	}
}
