package store

import (
	"errors"
	"testing"

	"github.com/versemix/mixdown/internal/analysis"
	"github.com/versemix/mixdown/internal/genre"
	"github.com/versemix/mixdown/internal/mix"
	"github.com/versemix/mixdown/internal/reference"
	"github.com/versemix/mixdown/internal/tuning"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s
}

func newTestConfiguration(t *testing.T, name, owner string, g genre.Genre) *MixingConfiguration {
	t.Helper()
	row := &MixingConfiguration{
		Name:       name,
		Owner:      owner,
		Visibility: VisibilityPrivate,
		Provenance: ProvenanceManual,
	}
	if err := row.SetConfig(mix.ConfigFromPresets(g)); err != nil {
		t.Fatalf("SetConfig: %v", err)
	}
	return row
}

func TestSaveAndGetConfiguration(t *testing.T) {
	s := openTestStore(t)
	row := newTestConfiguration(t, "warm pop", "alice", genre.Pop)

	if err := s.SaveConfiguration(row); err != nil {
		t.Fatalf("SaveConfiguration: %v", err)
	}
	if row.ID == "" {
		t.Fatal("save should assign an id")
	}

	got, err := s.GetConfiguration(row.ID)
	if err != nil {
		t.Fatalf("GetConfiguration: %v", err)
	}
	if got.Name != "warm pop" || got.Genre != string(genre.Pop) {
		t.Fatalf("loaded %q/%q, want warm pop/pop", got.Name, got.Genre)
	}

	cfg, err := got.Config()
	if err != nil {
		t.Fatalf("Config: %v", err)
	}
	want := mix.ConfigFromPresets(genre.Pop)
	if cfg.Sidechain != want.Sidechain {
		t.Fatal("sidechain spec lost in the round trip")
	}
	if len(cfg.VocalEQ) != len(want.VocalEQ) {
		t.Fatal("vocal EQ lost in the round trip")
	}
	if cfg.Width != want.Width || cfg.Reverb != want.Reverb || cfg.Delay != want.Delay {
		t.Fatal("spatial specs lost in the round trip")
	}
}

func TestProvenanceValues(t *testing.T) {
	tests := []struct {
		p    Provenance
		want string
	}{
		{ProvenanceManual, "manual"},
		{ProvenanceGenrePreset, "genre_preset"},
		{ProvenanceReferenceMatch, "reference_match"},
		{ProvenanceLearned, "learned"},
		{ProvenanceOptimized, "optimized"},
	}
	for _, tt := range tests {
		if string(tt.p) != tt.want {
			t.Errorf("provenance %q, want %q", tt.p, tt.want)
		}
	}

	s := openTestStore(t)
	row := newTestConfiguration(t, "matched", "alice", genre.Pop)
	row.Provenance = ProvenanceReferenceMatch
	if err := s.SaveConfiguration(row); err != nil {
		t.Fatalf("SaveConfiguration: %v", err)
	}
	got, err := s.GetConfiguration(row.ID)
	if err != nil {
		t.Fatalf("GetConfiguration: %v", err)
	}
	if got.Provenance != ProvenanceReferenceMatch {
		t.Fatalf("provenance = %s, want reference_match", got.Provenance)
	}
}

func TestGetConfigurationCacheSurvivesDelete(t *testing.T) {
	s := openTestStore(t)
	row := newTestConfiguration(t, "cached", "alice", genre.Rock)
	if err := s.SaveConfiguration(row); err != nil {
		t.Fatalf("SaveConfiguration: %v", err)
	}

	// Prime the cache, remove the row behind the store's back, and read
	// again: the cached value is still served.
	if _, err := s.GetConfiguration(row.ID); err != nil {
		t.Fatalf("GetConfiguration: %v", err)
	}
	if err := s.DB().Delete(&MixingConfiguration{}, "id = ?", row.ID).Error; err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetConfiguration(row.ID); err != nil {
		t.Fatalf("cache should still serve the configuration: %v", err)
	}
}

func TestGetConfigurationNotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.GetConfiguration("no-such-id")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestGetByGenreVisibilityAndOrder(t *testing.T) {
	s := openTestStore(t)

	mine := newTestConfiguration(t, "mine", "alice", genre.Pop)
	popular := newTestConfiguration(t, "popular", "bob", genre.Pop)
	popular.Visibility = VisibilityPublic
	popular.UsageCount = 10
	hidden := newTestConfiguration(t, "hidden", "bob", genre.Pop)
	otherGenre := newTestConfiguration(t, "other", "alice", genre.Jazz)

	for _, row := range []*MixingConfiguration{mine, popular, hidden, otherGenre} {
		if err := s.SaveConfiguration(row); err != nil {
			t.Fatalf("SaveConfiguration(%s): %v", row.Name, err)
		}
	}

	got, err := s.GetByGenre(string(genre.Pop), "alice")
	if err != nil {
		t.Fatalf("GetByGenre: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d configurations, want 2 (own private + public)", len(got))
	}
	// Most used first.
	if got[0].Name != "popular" || got[1].Name != "mine" {
		t.Fatalf("order = [%s, %s], want [popular, mine]", got[0].Name, got[1].Name)
	}
	for _, c := range got {
		if c.Name == "hidden" {
			t.Fatal("foreign private configuration leaked")
		}
	}
}

func TestIncrementUsage(t *testing.T) {
	s := openTestStore(t)
	row := newTestConfiguration(t, "counted", "alice", genre.Pop)
	if err := s.SaveConfiguration(row); err != nil {
		t.Fatalf("SaveConfiguration: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := s.IncrementUsage(row.ID); err != nil {
			t.Fatalf("IncrementUsage: %v", err)
		}
	}

	got, err := s.GetConfiguration(row.ID)
	if err != nil {
		t.Fatalf("GetConfiguration: %v", err)
	}
	if got.UsageCount != 3 {
		t.Fatalf("usage count = %d, want 3", got.UsageCount)
	}
	if got.LastUsedAt == nil {
		t.Fatal("last used timestamp not set")
	}

	if err := s.IncrementUsage("no-such-id"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestReferenceRoundTrip(t *testing.T) {
	s := openTestStore(t)
	a := &reference.Analysis{
		Profile: analysis.FrequencyProfile{
			Centroid:   1234,
			BandEnergy: [analysis.NumBands]float64{10, 30, 15, 25, 10, 10},
		},
		DynamicRange:  0.4,
		AvgLoudnessDB: -16,
	}

	if err := s.SaveReference("ref-1", "night drive", "alice", a); err != nil {
		t.Fatalf("SaveReference: %v", err)
	}
	got, err := s.GetReference("ref-1")
	if err != nil {
		t.Fatalf("GetReference: %v", err)
	}
	if got.Profile.Centroid != 1234 || got.DynamicRange != 0.4 {
		t.Fatal("analysis lost in the round trip")
	}

	if _, err := s.GetReference("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestQualityMetricHistory(t *testing.T) {
	s := openTestStore(t)
	row := newTestConfiguration(t, "tracked", "alice", genre.Pop)
	if err := s.SaveConfiguration(row); err != nil {
		t.Fatalf("SaveConfiguration: %v", err)
	}

	for _, loudness := range []float64{-15.2, -14.1} {
		m := &QualityMetricHistory{
			ConfigID:        row.ID,
			LoudnessDB:      loudness,
			PeakLevel:       0.98,
			WidthScore:      0.4,
			DynamicRange:    0.5,
			TunablesVersion: tuning.Version,
		}
		if err := s.RecordMetrics(m); err != nil {
			t.Fatalf("RecordMetrics: %v", err)
		}
	}

	got, err := s.MetricsFor(row.ID)
	if err != nil {
		t.Fatalf("MetricsFor: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d snapshots, want 2", len(got))
	}
	if got[0].TunablesVersion != tuning.Version {
		t.Fatalf("tunables version = %d, want %d", got[0].TunablesVersion, tuning.Version)
	}
}

func TestOptimizationEventReasons(t *testing.T) {
	e := &OptimizationEvent{}
	e.SetReasons([]string{"vocal clarity", "stereo width"})
	got := e.ReasonList()
	if len(got) != 2 || got[0] != "vocal clarity" || got[1] != "stereo width" {
		t.Fatalf("reasons round trip failed: %v", got)
	}
}
