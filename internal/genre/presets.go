package genre

import (
	"github.com/versemix/mixdown/internal/dynamics"
	"github.com/versemix/mixdown/internal/eq"
	"github.com/versemix/mixdown/internal/stereo"
)

// Role distinguishes the two mix stems a preset targets.
type Role string

// Mix roles.
const (
	RoleVocals Role = "vocals"
	RoleMusic  Role = "music"
)

// Preset is the complete spec bundle for one genre and role. All six
// spec groups are always present, zero-valued where a genre doesn't use
// an effect.
type Preset struct {
	EQ          []eq.FilterSpec          `json:"eq"`
	Compression dynamics.CompressionSpec `json:"compression"`
	Width       stereo.WidthSpec         `json:"width"`
	Reverb      stereo.ReverbSpec        `json:"reverb"`
	Delay       stereo.DelaySpec         `json:"delay"`
	Sidechain   dynamics.SidechainSpec   `json:"sidechain"`
}

// Imaging returns the preset's spatial bundle.
func (p Preset) Imaging() stereo.ImagingSpec {
	return stereo.ImagingSpec{Width: p.Width, Reverb: p.Reverb, Delay: p.Delay}
}

// ForGenre returns the static preset for a genre and role. Unknown
// genres fall back to pop. The returned value is a copy: callers may
// mutate it freely and repeated calls always return identical specs.
func ForGenre(g Genre, role Role) Preset {
	byRole, ok := presetTable[g]
	if !ok {
		byRole = presetTable[Pop]
	}
	p := byRole[role]

	// Deep-copy the one reference field so the table stays immutable.
	eqCopy := make([]eq.FilterSpec, len(p.EQ))
	copy(eqCopy, p.EQ)
	p.EQ = eqCopy
	return p
}

// Default sidechain treatments. Vocal-led genres duck harder and
// recover faster than atmospheric ones.
var (
	duckStandard = dynamics.SidechainSpec{Threshold: 0.02, Ratio: 4, AttackMs: 5, ReleaseMs: 120}
	duckHeavy    = dynamics.SidechainSpec{Threshold: 0.015, Ratio: 6, AttackMs: 3, ReleaseMs: 100}
	duckGentle   = dynamics.SidechainSpec{Threshold: 0.03, Ratio: 2.5, AttackMs: 10, ReleaseMs: 200}
)

// presetTable is versionable data, not computation: per-genre, per-role
// spec bundles hand-tuned for the house mixing style.
var presetTable = map[Genre]map[Role]Preset{
	Pop: {
		RoleVocals: {
			EQ: []eq.FilterSpec{
				{Frequency: 100, GainDB: -2, Q: 0.9},  // rumble out of the vocal
				{Frequency: 3000, GainDB: 2.5, Q: 1.2}, // presence
				{Frequency: 10000, GainDB: 1.5, Q: 0.8},
			},
			Compression: dynamics.CompressionSpec{ThresholdDB: -18, Ratio: 3, AttackMs: 10, ReleaseMs: 120},
			Width:       stereo.WidthSpec{Factor: 0.95},
			Reverb:      stereo.ReverbSpec{RoomSize: 0.3, Damping: 0.5, WetLevel: 0.15, PreDelayMs: 20},
			Delay:       stereo.DelaySpec{DelayMs: 250, Feedback: 0.25, WetLevel: 0.1},
			Sidechain:   duckStandard,
		},
		RoleMusic: {
			EQ: []eq.FilterSpec{
				{Frequency: 80, GainDB: 1.5, Q: 0.9},
				{Frequency: 2500, GainDB: -2, Q: 1.0}, // carve vocal space
			},
			Compression: dynamics.CompressionSpec{ThresholdDB: -16, Ratio: 2.5, AttackMs: 20, ReleaseMs: 150},
			Width:       stereo.WidthSpec{Factor: 1.3},
			Reverb:      stereo.ReverbSpec{RoomSize: 0.5, Damping: 0.4, WetLevel: 0.2, PreDelayMs: 10},
			Delay:       stereo.DelaySpec{DelayMs: 375, Feedback: 0.3, WetLevel: 0.12, PingPong: true},
			Sidechain:   duckStandard,
		},
	},
	Rock: {
		RoleVocals: {
			EQ: []eq.FilterSpec{
				{Frequency: 120, GainDB: -1.5, Q: 0.9},
				{Frequency: 2000, GainDB: 2, Q: 1.0},
				{Frequency: 5000, GainDB: 1.5, Q: 1.2},
			},
			Compression: dynamics.CompressionSpec{ThresholdDB: -16, Ratio: 4, AttackMs: 5, ReleaseMs: 100},
			Width:       stereo.WidthSpec{Factor: 1.0},
			Reverb:      stereo.ReverbSpec{RoomSize: 0.4, Damping: 0.6, WetLevel: 0.12, PreDelayMs: 15},
			Delay:       stereo.DelaySpec{DelayMs: 200, Feedback: 0.2, WetLevel: 0.08},
			Sidechain:   duckStandard,
		},
		RoleMusic: {
			EQ: []eq.FilterSpec{
				{Frequency: 100, GainDB: 2, Q: 0.8},
				{Frequency: 3500, GainDB: 1.5, Q: 1.0},
			},
			Compression: dynamics.CompressionSpec{ThresholdDB: -14, Ratio: 3, AttackMs: 15, ReleaseMs: 120},
			Width:       stereo.WidthSpec{Factor: 1.4},
			Reverb:      stereo.ReverbSpec{RoomSize: 0.45, Damping: 0.5, WetLevel: 0.15, PreDelayMs: 10},
			Delay:       stereo.DelaySpec{DelayMs: 0, Feedback: 0, WetLevel: 0},
			Sidechain:   duckStandard,
		},
	},
	HipHop: {
		RoleVocals: {
			EQ: []eq.FilterSpec{
				{Frequency: 150, GainDB: -2, Q: 0.9},
				{Frequency: 1500, GainDB: 2, Q: 1.0},
				{Frequency: 8000, GainDB: 2, Q: 0.9},
			},
			Compression: dynamics.CompressionSpec{ThresholdDB: -15, Ratio: 5, AttackMs: 3, ReleaseMs: 80},
			Width:       stereo.WidthSpec{Factor: 0.9},
			Reverb:      stereo.ReverbSpec{RoomSize: 0.2, Damping: 0.6, WetLevel: 0.08, PreDelayMs: 10},
			Delay:       stereo.DelaySpec{DelayMs: 166, Feedback: 0.2, WetLevel: 0.08},
			Sidechain:   duckHeavy,
		},
		RoleMusic: {
			EQ: []eq.FilterSpec{
				{Frequency: 50, GainDB: 2.5, Q: 0.8}, // sub weight
				{Frequency: 2000, GainDB: -2.5, Q: 1.0},
			},
			Compression: dynamics.CompressionSpec{ThresholdDB: -12, Ratio: 3, AttackMs: 10, ReleaseMs: 100},
			Width:       stereo.WidthSpec{Factor: 1.2},
			Reverb:      stereo.ReverbSpec{RoomSize: 0.3, Damping: 0.5, WetLevel: 0.1, PreDelayMs: 5},
			Delay:       stereo.DelaySpec{DelayMs: 333, Feedback: 0.35, WetLevel: 0.1, PingPong: true},
			Sidechain:   duckHeavy,
		},
	},
	Electronic: {
		RoleVocals: {
			EQ: []eq.FilterSpec{
				{Frequency: 200, GainDB: -1.5, Q: 0.9},
				{Frequency: 3000, GainDB: 2, Q: 1.1},
				{Frequency: 12000, GainDB: 2, Q: 0.8},
			},
			Compression: dynamics.CompressionSpec{ThresholdDB: -16, Ratio: 4, AttackMs: 5, ReleaseMs: 100},
			Width:       stereo.WidthSpec{Factor: 1.1},
			Reverb:      stereo.ReverbSpec{RoomSize: 0.5, Damping: 0.3, WetLevel: 0.2, PreDelayMs: 30},
			Delay:       stereo.DelaySpec{DelayMs: 250, Feedback: 0.4, WetLevel: 0.15, PingPong: true},
			Sidechain:   duckHeavy,
		},
		RoleMusic: {
			EQ: []eq.FilterSpec{
				{Frequency: 60, GainDB: 2, Q: 0.8},
				{Frequency: 10000, GainDB: 1.5, Q: 0.8},
			},
			Compression: dynamics.CompressionSpec{ThresholdDB: -12, Ratio: 4, AttackMs: 5, ReleaseMs: 80},
			Width:       stereo.WidthSpec{Factor: 1.5},
			Reverb:      stereo.ReverbSpec{RoomSize: 0.6, Damping: 0.3, WetLevel: 0.25, PreDelayMs: 20},
			Delay:       stereo.DelaySpec{DelayMs: 375, Feedback: 0.45, WetLevel: 0.18, PingPong: true},
			Sidechain:   duckHeavy,
		},
	},
	Jazz: {
		RoleVocals: {
			EQ: []eq.FilterSpec{
				{Frequency: 150, GainDB: 1, Q: 0.8}, // warmth
				{Frequency: 2500, GainDB: 1.5, Q: 1.0},
			},
			Compression: dynamics.CompressionSpec{ThresholdDB: -20, Ratio: 2, AttackMs: 20, ReleaseMs: 200},
			Width:       stereo.WidthSpec{Factor: 1.0},
			Reverb:      stereo.ReverbSpec{RoomSize: 0.5, Damping: 0.5, WetLevel: 0.18, PreDelayMs: 25},
			Delay:       stereo.DelaySpec{DelayMs: 0, Feedback: 0, WetLevel: 0},
			Sidechain:   duckGentle,
		},
		RoleMusic: {
			EQ: []eq.FilterSpec{
				{Frequency: 300, GainDB: 1, Q: 0.9},
			},
			Compression: dynamics.CompressionSpec{ThresholdDB: -20, Ratio: 1.8, AttackMs: 25, ReleaseMs: 250},
			Width:       stereo.WidthSpec{Factor: 1.2},
			Reverb:      stereo.ReverbSpec{RoomSize: 0.6, Damping: 0.5, WetLevel: 0.22, PreDelayMs: 20},
			Delay:       stereo.DelaySpec{DelayMs: 0, Feedback: 0, WetLevel: 0},
			Sidechain:   duckGentle,
		},
	},
	Classical: {
		RoleVocals: {
			EQ: []eq.FilterSpec{
				{Frequency: 250, GainDB: 0.5, Q: 0.8},
				{Frequency: 3000, GainDB: 1, Q: 1.0},
			},
			Compression: dynamics.CompressionSpec{}, // dynamics preserved
			Width:       stereo.WidthSpec{Factor: 1.0},
			Reverb:      stereo.ReverbSpec{RoomSize: 0.8, Damping: 0.4, WetLevel: 0.25, PreDelayMs: 40},
			Delay:       stereo.DelaySpec{DelayMs: 0, Feedback: 0, WetLevel: 0},
			Sidechain:   duckGentle,
		},
		RoleMusic: {
			EQ:          nil, // orchestral balance left untouched
			Compression: dynamics.CompressionSpec{},
			Width:       stereo.WidthSpec{Factor: 1.1},
			Reverb:      stereo.ReverbSpec{RoomSize: 0.9, Damping: 0.4, WetLevel: 0.3, PreDelayMs: 35},
			Delay:       stereo.DelaySpec{DelayMs: 0, Feedback: 0, WetLevel: 0},
			Sidechain:   duckGentle,
		},
	},
	Country: {
		RoleVocals: {
			EQ: []eq.FilterSpec{
				{Frequency: 120, GainDB: -1, Q: 0.9},
				{Frequency: 2500, GainDB: 2, Q: 1.0},
				{Frequency: 8000, GainDB: 1, Q: 0.9},
			},
			Compression: dynamics.CompressionSpec{ThresholdDB: -18, Ratio: 3, AttackMs: 10, ReleaseMs: 150},
			Width:       stereo.WidthSpec{Factor: 0.95},
			Reverb:      stereo.ReverbSpec{RoomSize: 0.35, Damping: 0.5, WetLevel: 0.14, PreDelayMs: 20},
			Delay:       stereo.DelaySpec{DelayMs: 300, Feedback: 0.2, WetLevel: 0.08},
			Sidechain:   duckStandard,
		},
		RoleMusic: {
			EQ: []eq.FilterSpec{
				{Frequency: 100, GainDB: 1, Q: 0.9},
				{Frequency: 3000, GainDB: -1.5, Q: 1.0},
			},
			Compression: dynamics.CompressionSpec{ThresholdDB: -16, Ratio: 2.5, AttackMs: 15, ReleaseMs: 180},
			Width:       stereo.WidthSpec{Factor: 1.25},
			Reverb:      stereo.ReverbSpec{RoomSize: 0.4, Damping: 0.5, WetLevel: 0.16, PreDelayMs: 15},
			Delay:       stereo.DelaySpec{DelayMs: 0, Feedback: 0, WetLevel: 0},
			Sidechain:   duckStandard,
		},
	},
	RnB: {
		RoleVocals: {
			EQ: []eq.FilterSpec{
				{Frequency: 180, GainDB: 1, Q: 0.8}, // body
				{Frequency: 3500, GainDB: 2, Q: 1.1},
				{Frequency: 10000, GainDB: 2, Q: 0.8},
			},
			Compression: dynamics.CompressionSpec{ThresholdDB: -17, Ratio: 3.5, AttackMs: 8, ReleaseMs: 120},
			Width:       stereo.WidthSpec{Factor: 1.0},
			Reverb:      stereo.ReverbSpec{RoomSize: 0.4, Damping: 0.4, WetLevel: 0.18, PreDelayMs: 25},
			Delay:       stereo.DelaySpec{DelayMs: 250, Feedback: 0.3, WetLevel: 0.1, PingPong: true},
			Sidechain:   duckStandard,
		},
		RoleMusic: {
			EQ: []eq.FilterSpec{
				{Frequency: 70, GainDB: 2, Q: 0.8},
				{Frequency: 2500, GainDB: -2, Q: 1.0},
			},
			Compression: dynamics.CompressionSpec{ThresholdDB: -14, Ratio: 2.5, AttackMs: 15, ReleaseMs: 150},
			Width:       stereo.WidthSpec{Factor: 1.3},
			Reverb:      stereo.ReverbSpec{RoomSize: 0.5, Damping: 0.4, WetLevel: 0.2, PreDelayMs: 15},
			Delay:       stereo.DelaySpec{DelayMs: 0, Feedback: 0, WetLevel: 0},
			Sidechain:   duckStandard,
		},
	},
	Metal: {
		RoleVocals: {
			EQ: []eq.FilterSpec{
				{Frequency: 150, GainDB: -2, Q: 0.9},
				{Frequency: 2000, GainDB: 2.5, Q: 1.0},
				{Frequency: 6000, GainDB: 2, Q: 1.2},
			},
			Compression: dynamics.CompressionSpec{ThresholdDB: -14, Ratio: 5, AttackMs: 3, ReleaseMs: 80},
			Width:       stereo.WidthSpec{Factor: 1.0},
			Reverb:      stereo.ReverbSpec{RoomSize: 0.3, Damping: 0.7, WetLevel: 0.1, PreDelayMs: 10},
			Delay:       stereo.DelaySpec{DelayMs: 150, Feedback: 0.15, WetLevel: 0.06},
			Sidechain:   duckHeavy,
		},
		RoleMusic: {
			EQ: []eq.FilterSpec{
				{Frequency: 80, GainDB: 1.5, Q: 0.9},
				{Frequency: 4000, GainDB: 2, Q: 1.0},
			},
			Compression: dynamics.CompressionSpec{ThresholdDB: -10, Ratio: 4, AttackMs: 5, ReleaseMs: 80},
			Width:       stereo.WidthSpec{Factor: 1.35},
			Reverb:      stereo.ReverbSpec{RoomSize: 0.3, Damping: 0.6, WetLevel: 0.08, PreDelayMs: 5},
			Delay:       stereo.DelaySpec{DelayMs: 0, Feedback: 0, WetLevel: 0},
			Sidechain:   duckHeavy,
		},
	},
	Ambient: {
		RoleVocals: {
			EQ: []eq.FilterSpec{
				{Frequency: 300, GainDB: 1, Q: 0.8},
				{Frequency: 5000, GainDB: 1, Q: 0.9},
			},
			Compression: dynamics.CompressionSpec{ThresholdDB: -22, Ratio: 2, AttackMs: 30, ReleaseMs: 300},
			Width:       stereo.WidthSpec{Factor: 1.2},
			Reverb:      stereo.ReverbSpec{RoomSize: 0.8, Damping: 0.3, WetLevel: 0.35, PreDelayMs: 50},
			Delay:       stereo.DelaySpec{DelayMs: 500, Feedback: 0.5, WetLevel: 0.2, PingPong: true},
			Sidechain:   duckGentle,
		},
		RoleMusic: {
			EQ: []eq.FilterSpec{
				{Frequency: 100, GainDB: 1, Q: 0.8},
			},
			Compression: dynamics.CompressionSpec{ThresholdDB: -24, Ratio: 1.5, AttackMs: 50, ReleaseMs: 400},
			Width:       stereo.WidthSpec{Factor: 1.6},
			Reverb:      stereo.ReverbSpec{RoomSize: 0.95, Damping: 0.3, WetLevel: 0.4, PreDelayMs: 60},
			Delay:       stereo.DelaySpec{DelayMs: 750, Feedback: 0.5, WetLevel: 0.25, PingPong: true},
			Sidechain:   duckGentle,
		},
	},
}
