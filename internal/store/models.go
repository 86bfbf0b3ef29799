// Package store persists mixing configurations, reference analyses and
// feedback through gorm with a cache-aside layer in front of the
// database reads.
package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/versemix/mixdown/internal/mix"
	"github.com/versemix/mixdown/internal/reference"
)

// Provenance records where a configuration came from.
type Provenance string

// Provenance values.
const (
	ProvenanceManual         Provenance = "manual"          // saved by hand
	ProvenanceGenrePreset    Provenance = "genre_preset"    // genre preset table
	ProvenanceReferenceMatch Provenance = "reference_match" // derived by matching a reference track
	ProvenanceLearned        Provenance = "learned"         // learned from aggregate usage
	ProvenanceOptimized      Provenance = "optimized"       // derived by the feedback optimizer
)

// Visibility controls who may load a configuration.
type Visibility string

// Visibility values.
const (
	VisibilityPrivate Visibility = "private"
	VisibilityPublic  Visibility = "public"
)

// MixingConfiguration is the persisted form of a mix.Config. The six
// effect spec groups live in one JSON blob so a row always carries all
// of them, zero-valued when unused.
type MixingConfiguration struct {
	ID         string     `gorm:"type:uuid;primaryKey" json:"id"`
	Name       string     `gorm:"type:varchar(255);not null" json:"name"`
	Genre      string     `gorm:"type:varchar(50);index" json:"genre"`
	Owner      string     `gorm:"type:varchar(255);index" json:"owner"`
	Visibility Visibility `gorm:"type:varchar(20);default:private" json:"visibility"`
	Provenance Provenance `gorm:"type:varchar(20);default:manual" json:"provenance"`
	ParentID   string     `gorm:"type:uuid" json:"parent_id,omitempty"`

	// Specs is the JSON-serialised mix.Config.
	Specs string `gorm:"type:text;not null" json:"-"`

	UsageCount int        `gorm:"default:0" json:"usage_count"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`

	// Rolling feedback averages, updated by the feedback loop.
	FeedbackCount   int     `gorm:"default:0" json:"feedback_count"`
	AvgOverall      float64 `gorm:"default:0" json:"avg_overall"`
	AvgVocalClarity float64 `gorm:"default:0" json:"avg_vocal_clarity"`
	AvgBalance      float64 `gorm:"default:0" json:"avg_balance"`
	AvgStereoWidth  float64 `gorm:"default:0" json:"avg_stereo_width"`
	AvgEQ           float64 `gorm:"column:avg_eq;default:0" json:"avg_eq"`
	AvgReverb       float64 `gorm:"default:0" json:"avg_reverb"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate assigns a UUID when the caller did not.
func (c *MixingConfiguration) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// Config deserialises the stored spec blob.
func (c *MixingConfiguration) Config() (mix.Config, error) {
	var cfg mix.Config
	if err := json.Unmarshal([]byte(c.Specs), &cfg); err != nil {
		return mix.Config{}, fmt.Errorf("configuration %s: decode specs: %w", c.ID, err)
	}
	return cfg, nil
}

// SetConfig serialises a mix.Config into the spec blob.
func (c *MixingConfiguration) SetConfig(cfg mix.Config) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("configuration %s: encode specs: %w", c.ID, err)
	}
	c.Specs = string(raw)
	c.Genre = string(cfg.Genre)
	return nil
}

// ReferenceTrack stores a reference analysis keyed by content ID so
// repeat mixes against the same reference skip the DSP entirely.
type ReferenceTrack struct {
	ID       string `gorm:"type:uuid;primaryKey" json:"id"`
	Name     string `gorm:"type:varchar(255)" json:"name"`
	Owner    string `gorm:"type:varchar(255);index" json:"owner"`
	Analysis string `gorm:"type:text;not null" json:"-"` // JSON reference.Analysis

	CreatedAt time.Time `json:"created_at"`
}

// BeforeCreate assigns a UUID when the caller did not.
func (r *ReferenceTrack) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// Decode deserialises the stored analysis.
func (r *ReferenceTrack) Decode() (*reference.Analysis, error) {
	var a reference.Analysis
	if err := json.Unmarshal([]byte(r.Analysis), &a); err != nil {
		return nil, fmt.Errorf("reference %s: decode analysis: %w", r.ID, err)
	}
	return &a, nil
}

// Encode serialises an analysis into the row.
func (r *ReferenceTrack) Encode(a *reference.Analysis) error {
	raw, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("reference %s: encode analysis: %w", r.ID, err)
	}
	r.Analysis = string(raw)
	return nil
}

// FeedbackRecord is one immutable user rating of a mix produced with a
// configuration. Ratings are 1..5 across the six subscales.
type FeedbackRecord struct {
	ID       string `gorm:"type:uuid;primaryKey" json:"id"`
	ConfigID string `gorm:"type:uuid;index;not null" json:"config_id"`
	SongID   string `gorm:"type:uuid;index" json:"song_id,omitempty"`
	Owner    string `gorm:"type:varchar(255)" json:"owner"`

	Overall      int `gorm:"not null" json:"overall"`
	VocalClarity int `json:"vocal_clarity"`
	Balance      int `json:"balance"`
	StereoWidth  int `json:"stereo_width"`
	EQ           int `gorm:"column:eq" json:"eq"`
	Reverb       int `json:"reverb"`

	// AutoScores holds optional automated quality measurements captured
	// when the mix was produced, as a JSON map of metric name to value.
	AutoScores string `gorm:"type:text" json:"auto_scores,omitempty"`

	Comment string `gorm:"type:text" json:"comment,omitempty"`
	Tags    string `gorm:"type:text" json:"tags,omitempty"` // JSON []string

	CreatedAt time.Time `json:"created_at"`
}

// SetAutoScores serialises the automated quality measurements.
func (f *FeedbackRecord) SetAutoScores(scores map[string]float64) {
	raw, err := json.Marshal(scores)
	if err != nil {
		f.AutoScores = "{}"
		return
	}
	f.AutoScores = string(raw)
}

// AutoScoreMap deserialises the automated quality measurements.
func (f *FeedbackRecord) AutoScoreMap() map[string]float64 {
	var scores map[string]float64
	if err := json.Unmarshal([]byte(f.AutoScores), &scores); err != nil {
		return nil
	}
	return scores
}

// SetTags serialises the free-form tags.
func (f *FeedbackRecord) SetTags(tags []string) {
	raw, err := json.Marshal(tags)
	if err != nil {
		f.Tags = "[]"
		return
	}
	f.Tags = string(raw)
}

// TagList deserialises the free-form tags.
func (f *FeedbackRecord) TagList() []string {
	var tags []string
	if err := json.Unmarshal([]byte(f.Tags), &tags); err != nil {
		return nil
	}
	return tags
}

// BeforeCreate assigns a UUID when the caller did not.
func (f *FeedbackRecord) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	return nil
}

// OptimizationEvent links an optimizer-derived configuration to its
// parent and records which adjustments fired.
type OptimizationEvent struct {
	ID       string `gorm:"type:uuid;primaryKey" json:"id"`
	ParentID string `gorm:"type:uuid;index;not null" json:"parent_id"`
	ChildID  string `gorm:"type:uuid;index;not null" json:"child_id"`
	Reasons  string `gorm:"type:text" json:"reasons"` // JSON []string

	CreatedAt time.Time `json:"created_at"`
}

// BeforeCreate assigns a UUID when the caller did not.
func (e *OptimizationEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}

// SetReasons serialises the fired adjustment reasons.
func (e *OptimizationEvent) SetReasons(reasons []string) {
	raw, err := json.Marshal(reasons)
	if err != nil {
		e.Reasons = "[]"
		return
	}
	e.Reasons = string(raw)
}

// ReasonList deserialises the fired adjustment reasons.
func (e *OptimizationEvent) ReasonList() []string {
	var reasons []string
	if err := json.Unmarshal([]byte(e.Reasons), &reasons); err != nil {
		return nil
	}
	return reasons
}

// QualityMetricHistory snapshots mix quality measurements over time so
// regressions across tunables versions stay visible.
type QualityMetricHistory struct {
	ID       string `gorm:"type:uuid;primaryKey" json:"id"`
	ConfigID string `gorm:"type:uuid;index" json:"config_id"`

	LoudnessDB   float64 `json:"loudness_db"`
	PeakLevel    float64 `json:"peak_level"`
	WidthScore   float64 `json:"width_score"`
	DynamicRange float64 `json:"dynamic_range"`

	TunablesVersion int       `json:"tunables_version"`
	CreatedAt       time.Time `json:"created_at"`
}

// BeforeCreate assigns a UUID when the caller did not.
func (q *QualityMetricHistory) BeforeCreate(tx *gorm.DB) error {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	return nil
}
