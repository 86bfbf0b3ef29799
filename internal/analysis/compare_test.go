package analysis

import (
	"strings"
	"testing"
)

func profileWithBands(shares [NumBands]float64) FrequencyProfile {
	return FrequencyProfile{Centroid: 1000, BandEnergy: shares}
}

func TestCompareFlagsSharedBands(t *testing.T) {
	tests := []struct {
		name          string
		a, b          [NumBands]float64
		wantConflicts int
		wantSeverity  Severity
	}{
		{
			name:          "no overlap",
			a:             [NumBands]float64{0, 80, 10, 10, 0, 0},
			b:             [NumBands]float64{0, 5, 10, 75, 5, 5},
			wantConflicts: 0,
		},
		{
			name:          "moderate overlap in mids",
			a:             [NumBands]float64{0, 50, 10, 20, 10, 10},
			b:             [NumBands]float64{0, 10, 10, 20, 40, 20},
			wantConflicts: 1,
			wantSeverity:  SeverityModerate,
		},
		{
			name:          "high severity both over 25",
			a:             [NumBands]float64{0, 40, 10, 30, 10, 10},
			b:             [NumBands]float64{0, 10, 10, 40, 20, 20},
			wantConflicts: 1,
			wantSeverity:  SeverityHigh,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compare(profileWithBands(tt.a), profileWithBands(tt.b))
			if len(got) != tt.wantConflicts {
				t.Fatalf("got %d conflicts, want %d", len(got), tt.wantConflicts)
			}
			if tt.wantConflicts > 0 && got[0].Severity != tt.wantSeverity {
				t.Fatalf("severity = %s, want %s", got[0].Severity, tt.wantSeverity)
			}
		})
	}
}

func TestCompareRecommendationCutsWeakerSource(t *testing.T) {
	a := profileWithBands([NumBands]float64{0, 0, 0, 30, 35, 35})
	b := profileWithBands([NumBands]float64{0, 0, 0, 20, 40, 40})
	got := Compare(a, b)
	if len(got) == 0 {
		t.Fatal("expected a mid-band conflict")
	}
	c := got[0]
	if c.Band != BandMid {
		t.Fatalf("band = %s, want mid", c.Band)
	}
	// B has the smaller share in mid, so B takes the cut and A is
	// offered the boost.
	if !strings.Contains(c.Recommendation, "cut") || !strings.Contains(c.Recommendation, "source b") {
		t.Fatalf("recommendation %q should cut source b", c.Recommendation)
	}
	if !strings.Contains(c.Recommendation, "boost") || !strings.Contains(c.Recommendation, "source a") {
		t.Fatalf("recommendation %q should offer the boost to source a", c.Recommendation)
	}
	if !strings.Contains(c.Recommendation, "1000Hz") {
		t.Fatalf("recommendation %q should name the band centre", c.Recommendation)
	}
}
