package analysis

import "fmt"

// Conflict thresholds: two sources sharing more than conflictShare of
// their energy in one band compete for the same spectral space.
const (
	conflictShare     = 15.0 // % - both above this flags a conflict
	conflictHighShare = 25.0 // % - both above this raises severity
)

// Severity grades a band conflict.
type Severity string

// Conflict severities.
const (
	SeverityModerate Severity = "moderate"
	SeverityHigh     Severity = "high"
)

// BandConflict reports two profiles competing in one band, with a
// deterministic resolution suggestion.
type BandConflict struct {
	Band           Band     `json:"band"`
	Severity       Severity `json:"severity"`
	ShareA         float64  `json:"share_a"` // % energy of profile A in the band
	ShareB         float64  `json:"share_b"` // % energy of profile B in the band
	Recommendation string   `json:"recommendation"`
}

// Compare flags bands where both profiles carry substantial energy.
// The recommendation cuts the band in the source with the smaller share
// and offers the matching boost to the band's owner, keeping the
// resolution deterministic.
func Compare(a, b FrequencyProfile) []BandConflict {
	var conflicts []BandConflict
	for band := Band(0); band < NumBands; band++ {
		sa := a.BandEnergy[band]
		sb := b.BandEnergy[band]
		if sa <= conflictShare || sb <= conflictShare {
			continue
		}

		severity := SeverityModerate
		if sa > conflictHighShare && sb > conflictHighShare {
			severity = SeverityHigh
		}

		weaker, stronger := "a", "b"
		if sb < sa {
			weaker, stronger = "b", "a"
		}
		rec := fmt.Sprintf("cut %s around %.0fHz in source %s to open space, or boost it in source %s to let that source lead the band",
			band, band.CenterFreq(), weaker, stronger)

		conflicts = append(conflicts, BandConflict{
			Band:           band,
			Severity:       severity,
			ShareA:         sa,
			ShareB:         sb,
			Recommendation: rec,
		})
	}
	return conflicts
}
