package feedback

import (
	"errors"
	"testing"

	"github.com/versemix/mixdown/internal/eq"
	"github.com/versemix/mixdown/internal/genre"
	"github.com/versemix/mixdown/internal/mix"
	"github.com/versemix/mixdown/internal/store"
	"github.com/versemix/mixdown/internal/tuning"
)

func clarityFilterAt(gain float64) eq.FilterSpec {
	return eq.FilterSpec{Frequency: clarityBoostFreq, GainDB: gain, Q: 1.0}
}

func newTestLoop(t *testing.T) (*Loop, *store.Store) {
	t.Helper()
	s, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return NewLoop(s, tuning.Defaults()), s
}

func saveConfig(t *testing.T, s *store.Store, g genre.Genre) *store.MixingConfiguration {
	t.Helper()
	row := &store.MixingConfiguration{
		Name:       "test config",
		Owner:      "alice",
		Visibility: store.VisibilityPrivate,
		Provenance: store.ProvenanceManual,
	}
	if err := row.SetConfig(mix.ConfigFromPresets(g)); err != nil {
		t.Fatalf("SetConfig: %v", err)
	}
	if err := s.SaveConfiguration(row); err != nil {
		t.Fatalf("SaveConfiguration: %v", err)
	}
	return row
}

// rate records one rating with all six subscales set to the same value.
func rate(t *testing.T, l *Loop, configID string, value int) {
	t.Helper()
	err := l.Record(&store.FeedbackRecord{
		ConfigID:     configID,
		Owner:        "alice",
		Overall:      value,
		VocalClarity: value,
		Balance:      value,
		StereoWidth:  value,
		EQ:           value,
		Reverb:       value,
	})
	if err != nil {
		t.Fatalf("Record(%d): %v", value, err)
	}
}

func TestRecordValidatesRatings(t *testing.T) {
	l, s := newTestLoop(t)
	cfg := saveConfig(t, s, genre.Pop)

	tests := []struct {
		name string
		fb   store.FeedbackRecord
	}{
		{"overall too low", store.FeedbackRecord{ConfigID: cfg.ID, Overall: 0, VocalClarity: 3, Balance: 3, StereoWidth: 3, EQ: 3, Reverb: 3}},
		{"overall too high", store.FeedbackRecord{ConfigID: cfg.ID, Overall: 6, VocalClarity: 3, Balance: 3, StereoWidth: 3, EQ: 3, Reverb: 3}},
		{"subscale too low", store.FeedbackRecord{ConfigID: cfg.ID, Overall: 3, VocalClarity: 0, Balance: 3, StereoWidth: 3, EQ: 3, Reverb: 3}},
		{"balance too high", store.FeedbackRecord{ConfigID: cfg.ID, Overall: 3, VocalClarity: 3, Balance: 6, StereoWidth: 3, EQ: 3, Reverb: 3}},
		{"eq too low", store.FeedbackRecord{ConfigID: cfg.ID, Overall: 3, VocalClarity: 3, Balance: 3, StereoWidth: 3, EQ: 0, Reverb: 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fb := tt.fb
			if err := l.Record(&fb); !errors.Is(err, ErrInvalidRating) {
				t.Fatalf("got %v, want ErrInvalidRating", err)
			}
		})
	}
}

func TestRecordUnknownConfiguration(t *testing.T) {
	l, _ := newTestLoop(t)
	err := l.Record(&store.FeedbackRecord{
		ConfigID: "no-such-id",
		Overall:  3, VocalClarity: 3, Balance: 3, StereoWidth: 3, EQ: 3, Reverb: 3,
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestRecordRollsAverages(t *testing.T) {
	l, s := newTestLoop(t)
	cfg := saveConfig(t, s, genre.Pop)

	for _, v := range []int{2, 4, 3} {
		rate(t, l, cfg.ID, v)
	}

	got, err := s.GetConfiguration(cfg.ID)
	if err != nil {
		t.Fatalf("GetConfiguration: %v", err)
	}
	if got.FeedbackCount != 3 {
		t.Fatalf("feedback count = %d, want 3", got.FeedbackCount)
	}
	if got.AvgOverall != 3.0 {
		t.Fatalf("avg overall = %f, want 3.0", got.AvgOverall)
	}
	// All six subscales roll independently; the helper rates them all
	// with the same value, so every average lands on 3.0.
	if got.AvgBalance != 3.0 || got.AvgEQ != 3.0 {
		t.Fatalf("avg balance = %f, avg eq = %f, want 3.0", got.AvgBalance, got.AvgEQ)
	}
}

func TestRecordPersistsExtendedFields(t *testing.T) {
	l, s := newTestLoop(t)
	cfg := saveConfig(t, s, genre.Pop)

	fb := &store.FeedbackRecord{
		ConfigID:     cfg.ID,
		SongID:       "song-42",
		Owner:        "alice",
		Overall:      4,
		VocalClarity: 4,
		Balance:      3,
		StereoWidth:  5,
		EQ:           4,
		Reverb:       3,
		Comment:      "vocal sits well",
	}
	fb.SetTags([]string{"airy", "wide"})
	fb.SetAutoScores(map[string]float64{"loudness_db": -13.8, "width_score": 0.42})
	if err := l.Record(fb); err != nil {
		t.Fatalf("Record: %v", err)
	}

	var row store.FeedbackRecord
	if err := s.DB().First(&row, "config_id = ?", cfg.ID).Error; err != nil {
		t.Fatalf("load record: %v", err)
	}
	if row.SongID != "song-42" {
		t.Fatalf("song id = %q, want song-42", row.SongID)
	}
	if row.Balance != 3 || row.EQ != 4 {
		t.Fatalf("balance/eq = %d/%d, want 3/4", row.Balance, row.EQ)
	}
	tags := row.TagList()
	if len(tags) != 2 || tags[0] != "airy" {
		t.Fatalf("tags = %v, want [airy wide]", tags)
	}
	scores := row.AutoScoreMap()
	if scores["width_score"] != 0.42 {
		t.Fatalf("auto scores = %v, want width_score 0.42", scores)
	}
}

func TestMaybeOptimizeBelowCountIsNoOp(t *testing.T) {
	l, s := newTestLoop(t)
	cfg := saveConfig(t, s, genre.Pop)

	for i := 0; i < 4; i++ {
		rate(t, l, cfg.ID, 2)
	}
	opt, err := l.MaybeOptimize(cfg.ID)
	if err != nil {
		t.Fatalf("MaybeOptimize: %v", err)
	}
	if opt != nil {
		t.Fatal("optimization fired below the minimum feedback count")
	}
}

func TestMaybeOptimizeGoodRatingsIsNoOp(t *testing.T) {
	l, s := newTestLoop(t)
	cfg := saveConfig(t, s, genre.Pop)

	for i := 0; i < 6; i++ {
		rate(t, l, cfg.ID, 5)
	}
	opt, err := l.MaybeOptimize(cfg.ID)
	if err != nil {
		t.Fatalf("MaybeOptimize: %v", err)
	}
	if opt != nil {
		t.Fatal("well-rated configuration should not be optimized")
	}
}

func TestMaybeOptimizeDerivesChild(t *testing.T) {
	l, s := newTestLoop(t)
	parent := saveConfig(t, s, genre.Pop)
	parentCfg, err := parent.Config()
	if err != nil {
		t.Fatalf("Config: %v", err)
	}

	for _, v := range []int{2, 2, 3, 3, 2} {
		rate(t, l, parent.ID, v)
	}

	opt, err := l.MaybeOptimize(parent.ID)
	if err != nil {
		t.Fatalf("MaybeOptimize: %v", err)
	}
	if opt == nil {
		t.Fatal("expected an optimization for a poorly rated configuration")
	}

	child := opt.Child
	if child.Provenance != store.ProvenanceOptimized {
		t.Fatalf("provenance = %s, want optimized", child.Provenance)
	}
	if child.ParentID != parent.ID {
		t.Fatal("child should reference its parent")
	}
	if child.ID == parent.ID {
		t.Fatal("child must be a new configuration")
	}
	if len(opt.Reasons) == 0 {
		t.Fatal("optimization should name its adjustments")
	}

	childCfg, err := child.Config()
	if err != nil {
		t.Fatalf("child Config: %v", err)
	}
	tun := tuning.Defaults().Optimizer

	// All three subscales were rated low, so all three adjustments fire.
	if childCfg.Width.Factor <= parentCfg.Width.Factor {
		t.Fatal("stereo width should be increased")
	}
	if childCfg.Width.Factor > tun.WidthCap {
		t.Fatalf("width %f exceeds cap %f", childCfg.Width.Factor, tun.WidthCap)
	}
	if childCfg.Reverb.WetLevel >= parentCfg.Reverb.WetLevel {
		t.Fatal("reverb wet level should be reduced")
	}
	if childCfg.Reverb.WetLevel < tun.ReverbWetFloor {
		t.Fatalf("reverb wet %f under floor %f", childCfg.Reverb.WetLevel, tun.ReverbWetFloor)
	}
	var clarity bool
	for _, f := range childCfg.VocalEQ {
		if f.Frequency == clarityBoostFreq && f.GainDB > 0 {
			clarity = true
		}
	}
	if !clarity {
		t.Fatal("vocal clarity boost missing from the child EQ")
	}

	// The derivation is recorded but the parent stays in place:
	// optimized children are never auto-promoted.
	var events []store.OptimizationEvent
	if err := s.DB().Find(&events, "parent_id = ?", parent.ID).Error; err != nil {
		t.Fatalf("load events: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d optimization events, want 1", len(events))
	}
	if events[0].ChildID != child.ID {
		t.Fatal("event should link to the child")
	}
	reloaded, err := s.GetConfiguration(parent.ID)
	if err != nil {
		t.Fatalf("reload parent: %v", err)
	}
	if reloaded.Provenance != store.ProvenanceManual {
		t.Fatal("parent provenance must not change")
	}
}

// A low overall average with healthy subscales still derives a child:
// the gate promises exactly one optimized configuration.
func TestMaybeOptimizeOverallOnlyDerivesChild(t *testing.T) {
	l, s := newTestLoop(t)
	parent := saveConfig(t, s, genre.Pop)

	for i := 0; i < 5; i++ {
		err := l.Record(&store.FeedbackRecord{
			ConfigID: parent.ID,
			Owner:    "alice",
			Overall:  2, VocalClarity: 5, Balance: 5, StereoWidth: 5, EQ: 5, Reverb: 5,
		})
		if err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	opt, err := l.MaybeOptimize(parent.ID)
	if err != nil {
		t.Fatalf("MaybeOptimize: %v", err)
	}
	if opt == nil {
		t.Fatal("gate passed, expected a derived child")
	}
	if len(opt.Reasons) != 1 || opt.Reasons[0] != "overall" {
		t.Fatalf("reasons = %v, want [overall]", opt.Reasons)
	}
	childCfg, err := opt.Child.Config()
	if err != nil {
		t.Fatalf("child Config: %v", err)
	}
	var clarity bool
	for _, f := range childCfg.VocalEQ {
		if f.Frequency == clarityBoostFreq && f.GainDB > 0 {
			clarity = true
		}
	}
	if !clarity {
		t.Fatal("fallback derivation should carry the clarity adjustment")
	}
}

func TestMaybeOptimizeClarityCap(t *testing.T) {
	l, s := newTestLoop(t)

	// Parent already carries a strong filter at the clarity frequency.
	row := &store.MixingConfiguration{Name: "capped", Owner: "alice"}
	cfg := mix.ConfigFromPresets(genre.Pop)
	cfg.VocalEQ = append(cfg.VocalEQ, clarityFilterAt(2.5))
	if err := row.SetConfig(cfg); err != nil {
		t.Fatalf("SetConfig: %v", err)
	}
	if err := s.SaveConfiguration(row); err != nil {
		t.Fatalf("SaveConfiguration: %v", err)
	}

	for i := 0; i < 5; i++ {
		rate(t, l, row.ID, 2)
	}
	opt, err := l.MaybeOptimize(row.ID)
	if err != nil {
		t.Fatalf("MaybeOptimize: %v", err)
	}
	if opt == nil {
		t.Fatal("expected an optimization")
	}
	childCfg, err := opt.Child.Config()
	if err != nil {
		t.Fatalf("Config: %v", err)
	}
	tun := tuning.Defaults().Optimizer
	for _, f := range childCfg.VocalEQ {
		if f.Frequency == clarityBoostFreq && f.GainDB > tun.ClarityCapDB {
			t.Fatalf("clarity gain %f exceeds cap %f", f.GainDB, tun.ClarityCapDB)
		}
	}
}
