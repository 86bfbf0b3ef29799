// Package genre classifies buffers into a fixed genre set with
// deterministic threshold rules and provides the per-genre mixing
// presets. No learned models: every score is traceable to a rule in the
// engine tunables.
package genre

import (
	"math"
	"sort"

	"github.com/versemix/mixdown/internal/analysis"
	"github.com/versemix/mixdown/internal/audio"
	"github.com/versemix/mixdown/internal/tuning"
)

// Genre is one of the fixed closed set of labels.
type Genre string

// The supported genres. Unknown inputs normalise to Pop.
const (
	Pop        Genre = "pop"
	Rock       Genre = "rock"
	HipHop     Genre = "hiphop"
	Electronic Genre = "electronic"
	Jazz       Genre = "jazz"
	Classical  Genre = "classical"
	Country    Genre = "country"
	RnB        Genre = "rnb"
	Metal      Genre = "metal"
	Ambient    Genre = "ambient"
)

// All lists every supported genre in canonical order.
var All = []Genre{Pop, Rock, HipHop, Electronic, Jazz, Classical, Country, RnB, Metal, Ambient}

// Normalise maps arbitrary input to a supported genre, defaulting to Pop.
func Normalise(s string) Genre {
	g := Genre(s)
	for _, known := range All {
		if g == known {
			return g
		}
	}
	return Pop
}

// Classification is the scored result of genre analysis.
type Classification struct {
	Genre        Genre             `json:"genre"`
	Confidence   float64           `json:"confidence"`   // [0,1]; the winner's share
	Distribution map[Genre]float64 `json:"distribution"` // sums to 1
}

// Features are the rhythm and dynamics measurements feeding the rules,
// exported so tests and reports can inspect them.
type Features struct {
	TempoBPM         float64 `json:"tempo_bpm"`
	RhythmRegularity float64 `json:"rhythm_regularity"` // [0,1]
	DynamicRange     float64 `json:"dynamic_range"`     // [0,1]
}

// Classifier scores buffers against the tunables' genre rules.
type Classifier struct {
	rules map[string]tuning.GenreRule
}

// NewClassifier builds a Classifier from the engine tunables.
func NewClassifier(t *tuning.Tunables) *Classifier {
	return &Classifier{rules: t.Genres}
}

// Classify combines tempo, rhythm regularity, dynamic range and the
// spectral profile into a per-genre score distribution. A degraded or
// silent input classifies as pop at full confidence, the documented
// conservative default.
func (c *Classifier) Classify(buf *audio.Buffer, profile analysis.FrequencyProfile) Classification {
	if buf.IsEmpty() || profile.IsZero() {
		return popDefault()
	}

	feats := EstimateFeatures(buf)
	scores := make(map[Genre]float64, len(All))
	total := 0.0
	for _, g := range All {
		rule, ok := c.rules[string(g)]
		if !ok {
			continue
		}
		s := scoreGenre(rule, feats, profile)
		scores[g] = s
		total += s
	}

	if total == 0 {
		return popDefault()
	}

	dist := make(map[Genre]float64, len(scores))
	for g, s := range scores {
		dist[g] = s / total
	}

	// Winner: highest share, canonical order breaking ties.
	best := Pop
	bestShare := -1.0
	for _, g := range All {
		if dist[g] > bestShare {
			best = g
			bestShare = dist[g]
		}
	}

	return Classification{Genre: best, Confidence: bestShare, Distribution: dist}
}

func popDefault() Classification {
	dist := make(map[Genre]float64, len(All))
	for _, g := range All {
		dist[g] = 0
	}
	dist[Pop] = 1
	return Classification{Genre: Pop, Confidence: 1, Distribution: dist}
}

// scoreGenre sums the partial scores of every matching rule, capped at 1.
func scoreGenre(rule tuning.GenreRule, feats Features, profile analysis.FrequencyProfile) float64 {
	score := 0.0
	if rule.Tempo.Matches(feats.TempoBPM) {
		score += rule.Tempo.Score
	}
	if rule.Centroid.Matches(profile.Centroid) {
		score += rule.Centroid.Score
	}
	if rule.Rhythm.Matches(feats.RhythmRegularity) {
		score += rule.Rhythm.Score
	}
	if rule.DynamicRange.Matches(feats.DynamicRange) {
		score += rule.DynamicRange.Score
	}
	for _, br := range rule.Bands {
		if br.Band >= 0 && br.Band < analysis.NumBands {
			share := profile.BandEnergy[br.Band]
			if share >= br.Min && share <= br.Max {
				score += br.Score
			}
		}
	}
	if score > 1 {
		score = 1
	}
	return score
}

// Onset/tempo estimation geometry.
const (
	onsetFrameMs = 10.0  // energy frame for the onset envelope
	tempoMinBPM  = 60.0  // search range bounds
	tempoMaxBPM  = 200.0
	drFrameMs    = 100.0 // frame for the dynamic-range envelope
)

// EstimateFeatures measures tempo, rhythm regularity and dynamic range
// from the time-domain signal. Deterministic, no external state.
func EstimateFeatures(buf *audio.Buffer) Features {
	mono := buf.Mono().Data[0]
	sampleRate := buf.SampleRate

	onset := onsetEnvelope(mono, sampleRate)
	tempo, regularity := tempoFromOnsets(onset, sampleRate)

	return Features{
		TempoBPM:         tempo,
		RhythmRegularity: regularity,
		DynamicRange:     dynamicRange(mono, sampleRate),
	}
}

// onsetEnvelope returns the half-wave rectified frame-energy difference:
// a crude but deterministic onset strength signal.
func onsetEnvelope(samples []float64, sampleRate int) []float64 {
	frameLen := int(float64(sampleRate) * onsetFrameMs / 1000.0)
	if frameLen < 1 {
		frameLen = 1
	}
	numFrames := len(samples) / frameLen
	if numFrames < 2 {
		return nil
	}

	energy := make([]float64, numFrames)
	for f := 0; f < numFrames; f++ {
		var sum float64
		for _, s := range samples[f*frameLen : (f+1)*frameLen] {
			sum += s * s
		}
		energy[f] = sum
	}

	onsets := make([]float64, numFrames)
	for f := 1; f < numFrames; f++ {
		if d := energy[f] - energy[f-1]; d > 0 {
			onsets[f] = d
		}
	}
	return onsets
}

// tempoFromOnsets autocorrelates the onset envelope over the beat-period
// lag range. The best lag gives tempo; its normalised correlation value
// is the rhythm regularity.
func tempoFromOnsets(onsets []float64, sampleRate int) (bpm, regularity float64) {
	if len(onsets) == 0 {
		return 0, 0
	}
	frameSec := onsetFrameMs / 1000.0

	var zeroLag float64
	for _, o := range onsets {
		zeroLag += o * o
	}
	if zeroLag == 0 {
		return 0, 0
	}

	minLag := int(60.0 / tempoMaxBPM / frameSec)
	maxLag := int(60.0 / tempoMinBPM / frameSec)
	if maxLag >= len(onsets) {
		maxLag = len(onsets) - 1
	}
	if minLag < 1 {
		minLag = 1
	}
	if minLag > maxLag {
		return 0, 0
	}

	bestLag := 0
	bestCorr := 0.0
	for lag := minLag; lag <= maxLag; lag++ {
		var corr float64
		for i := lag; i < len(onsets); i++ {
			corr += onsets[i] * onsets[i-lag]
		}
		if corr > bestCorr {
			bestCorr = corr
			bestLag = lag
		}
	}
	if bestLag == 0 {
		return 0, 0
	}

	bpm = 60.0 / (float64(bestLag) * frameSec)
	regularity = math.Min(1, bestCorr/zeroLag)
	return bpm, regularity
}

// dynamicRange measures level variation over 100ms RMS frames as the
// normalised spread between the loud and quiet deciles. 0 means flat,
// 1 means the quiet sections are silent relative to the loud ones.
func dynamicRange(samples []float64, sampleRate int) float64 {
	frameLen := int(float64(sampleRate) * drFrameMs / 1000.0)
	if frameLen < 1 {
		frameLen = 1
	}
	numFrames := len(samples) / frameLen
	if numFrames < 2 {
		return 0
	}

	rms := make([]float64, 0, numFrames)
	for f := 0; f < numFrames; f++ {
		var sum float64
		for _, s := range samples[f*frameLen : (f+1)*frameLen] {
			sum += s * s
		}
		rms = append(rms, math.Sqrt(sum/float64(frameLen)))
	}
	sort.Float64s(rms)

	loud := rms[int(float64(len(rms))*0.9)]
	quiet := rms[int(float64(len(rms))*0.1)]
	if loud == 0 {
		return 0
	}
	dr := (loud - quiet) / loud
	return math.Max(0, math.Min(1, dr))
}
