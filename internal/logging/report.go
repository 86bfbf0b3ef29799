// Package logging generates mix reports and mixing tips for finished songs.

package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/versemix/mixdown/internal/analysis"
	"github.com/versemix/mixdown/internal/genre"
	"github.com/versemix/mixdown/internal/mix"
	"github.com/versemix/mixdown/internal/stereo"
)

// ============================================================================
// Interpretation helpers
// ============================================================================
// These translate spectral and spatial measurements into short
// human-readable descriptions for the report tables.

// interpretCentroid describes spectral "brightness" of full-mix material.
// Centroid is the centre of gravity of the spectrum.
func interpretCentroid(hz float64) string {
	switch {
	case hz <= 0:
		return ""
	case hz < 800:
		return "very dark, bass-dominated"
	case hz < 1500:
		return "warm, low-mid weighted"
	case hz < 3000:
		return "balanced, typical full mix"
	case hz < 5000:
		return "bright, forward"
	default:
		return "very bright, potentially harsh"
	}
}

// interpretRolloff describes effective bandwidth via the 85% energy point.
func interpretRolloff(hz float64) string {
	switch {
	case hz <= 0:
		return ""
	case hz < 3000:
		return "dark, heavily filtered"
	case hz < 6000:
		return "warm, controlled highs"
	case hz < 10000:
		return "balanced brightness"
	default:
		return "airy, extended highs"
	}
}

// interpretWidthScore describes the stereo image from the width score.
func interpretWidthScore(m stereo.WidthMeasurement) string {
	if m.IsMono {
		return "mono, no stereo information"
	}
	switch {
	case m.WidthScore < 0.2:
		return "narrow, centre-heavy"
	case m.WidthScore < 0.5:
		return "moderate width"
	case m.WidthScore < 0.75:
		return "wide, spacious"
	default:
		return "very wide, check mono compatibility"
	}
}

// interpretBandBalance flags extreme band shares in the mix column.
func interpretBandBalance(share float64) string {
	switch {
	case share > 40:
		return "dominant"
	case share > 25:
		return "strong"
	case share < 3:
		return "recessed"
	default:
		return ""
	}
}

// writeSection writes a section header with a dashed underline matching
// the title length.
func writeSection(f *os.File, title string) {
	fmt.Fprintln(f, title)
	fmt.Fprintln(f, strings.Repeat("-", len(title)))
}

// ReportData carries everything needed to generate a mix report.
type ReportData struct {
	VocalPath  string
	MusicPath  string
	OutputPath string

	StartTime time.Time
	EndTime   time.Time

	SampleRate   int
	Channels     int
	DurationSecs float64

	Result         *mix.Result
	MixProfile     analysis.FrequencyProfile
	Master         *mix.MasterResult
	Classification *genre.Classification
	Width          *stereo.WidthMeasurement
	Conflicts      []analysis.BandConflict
	Tips           []MixingTip
}

// GenerateReport writes a detailed mix report alongside the output
// file, named <output>.log.
//
// Report structure:
//  1. Header: file info and timestamp
//  2. Genre Classification
//  3. Mix Pipeline: applied and degraded stages
//  4. Band Balance: vocals / music / mix shares
//  5. Spectral Character: centroid, rolloff, bandwidth
//  6. Frequency Conflicts
//  7. Loudness & Mastering
//  8. Stereo Image
//  9. Mixing Tips
func GenerateReport(data ReportData) error {
	logPath := strings.TrimSuffix(data.OutputPath, filepath.Ext(data.OutputPath)) + ".log"

	f, err := os.Create(logPath)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}
	defer f.Close()

	writeReportHeader(f, data)
	writeClassification(f, data.Classification)
	writePipeline(f, data.Result)
	writeBandBalance(f, data)
	writeSpectralCharacter(f, data)
	writeConflicts(f, data.Conflicts)
	writeMastering(f, data.Master)
	writeStereoImage(f, data.Width)
	writeTips(f, data.Tips)

	return nil
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) % 60
	if minutes < 60 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	hours := minutes / 60
	minutes = minutes % 60
	return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
}

// channelName returns a human-readable channel layout name.
func channelName(channels int) string {
	switch channels {
	case 1:
		return "mono"
	case 2:
		return "stereo"
	default:
		return fmt.Sprintf("%d channels", channels)
	}
}

func writeReportHeader(f *os.File, data ReportData) {
	fmt.Fprintln(f, "Mixdown Mix Report")
	fmt.Fprintln(f, "==================")
	fmt.Fprintf(f, "Vocals:    %s\n", filepath.Base(data.VocalPath))
	fmt.Fprintf(f, "Music:     %s\n", filepath.Base(data.MusicPath))
	fmt.Fprintf(f, "Output:    %s (%d Hz %s)\n",
		filepath.Base(data.OutputPath), data.SampleRate, channelName(data.Channels))
	fmt.Fprintf(f, "Mixed:     %s\n", data.EndTime.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(f, "Duration:  %s\n", formatDuration(time.Duration(data.DurationSecs*float64(time.Second))))

	elapsed := data.EndTime.Sub(data.StartTime)
	fmt.Fprintf(f, "Mix time:  %s", formatDuration(elapsed))
	if data.DurationSecs > 0 && elapsed > 0 {
		rtf := data.DurationSecs * float64(time.Second) / float64(elapsed)
		fmt.Fprintf(f, " (%.0fx real-time)", rtf)
	}
	fmt.Fprintln(f, "")
	fmt.Fprintln(f, "")
}

func writeClassification(f *os.File, c *genre.Classification) {
	if c == nil {
		return
	}
	writeSection(f, "Genre Classification")
	fmt.Fprintf(f, "Genre:      %s (confidence %.0f%%)\n", c.Genre, c.Confidence*100)

	// Top three shares, descending.
	type entry struct {
		g     genre.Genre
		share float64
	}
	var entries []entry
	for _, g := range genre.All {
		if c.Distribution[g] > 0 {
			entries = append(entries, entry{g, c.Distribution[g]})
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].share > entries[j].share
	})
	if len(entries) > 3 {
		entries = entries[:3]
	}
	var parts []string
	for _, e := range entries {
		parts = append(parts, fmt.Sprintf("%s %.0f%%", e.g, e.share*100))
	}
	if len(parts) > 0 {
		fmt.Fprintf(f, "Top scores: %s\n", strings.Join(parts, ", "))
	}
	fmt.Fprintln(f, "")
}

func writePipeline(f *os.File, result *mix.Result) {
	if result == nil {
		return
	}
	writeSection(f, "Mix Pipeline")

	degraded := make(map[mix.StageID]bool, len(result.DegradedStages))
	for _, id := range result.DegradedStages {
		degraded[id] = true
	}
	for i, id := range mix.Stages() {
		status := "applied"
		if degraded[id] {
			status = "SKIPPED"
		}
		fmt.Fprintf(f, "%2d. %-10s %s\n", i+1, id, status)
	}
	fmt.Fprintln(f, "")
}

func writeBandBalance(f *os.File, data ReportData) {
	if data.Result == nil {
		return
	}
	writeSection(f, "Band Balance")

	if data.Result.VocalProfile.IsZero() && data.Result.MusicProfile.IsZero() {
		fmt.Fprintln(f, "No spectral data: stems too short or silent")
		fmt.Fprintln(f, "")
		return
	}

	table := NewStemTable()
	for b := analysis.Band(0); b < analysis.NumBands; b++ {
		mixShare := data.MixProfile.BandEnergy[b]
		table.AddMetricRow(
			b.String(),
			[]float64{
				data.Result.VocalProfile.BandEnergy[b],
				data.Result.MusicProfile.BandEnergy[b],
				mixShare,
			},
			1, "%", interpretBandBalance(mixShare))
	}
	fmt.Fprint(f, table.String())
	fmt.Fprintln(f, "")
}

func writeSpectralCharacter(f *os.File, data ReportData) {
	if data.Result == nil {
		return
	}
	writeSection(f, "Spectral Character")

	vp, mp, xp := data.Result.VocalProfile, data.Result.MusicProfile, data.MixProfile

	table := NewStemTable()
	table.AddRow("Centroid",
		[]string{formatMetricHz(vp.Centroid), formatMetricHz(mp.Centroid), formatMetricHz(xp.Centroid)},
		"Hz", interpretCentroid(xp.Centroid))
	table.AddRow("Rolloff (85%)",
		[]string{formatMetricHz(vp.Rolloff), formatMetricHz(mp.Rolloff), formatMetricHz(xp.Rolloff)},
		"Hz", interpretRolloff(xp.Rolloff))
	table.AddRow("Bandwidth",
		[]string{formatMetricHz(vp.Bandwidth), formatMetricHz(mp.Bandwidth), formatMetricHz(xp.Bandwidth)},
		"Hz", "")
	table.AddMetricRow("Zero Crossing Rate",
		[]float64{vp.ZeroCrossingRate, mp.ZeroCrossingRate, xp.ZeroCrossingRate},
		4, "", "")
	fmt.Fprint(f, table.String())
	fmt.Fprintln(f, "")
}

func writeConflicts(f *os.File, conflicts []analysis.BandConflict) {
	writeSection(f, "Frequency Conflicts")
	if len(conflicts) == 0 {
		fmt.Fprintln(f, "None detected: stems occupy complementary ranges")
		fmt.Fprintln(f, "")
		return
	}
	for _, c := range conflicts {
		fmt.Fprintf(f, "%-10s %-8s vocals %.1f%% vs music %.1f%%\n",
			c.Band, c.Severity, c.ShareA, c.ShareB)
		if c.Recommendation != "" {
			fmt.Fprintf(f, "           %s\n", c.Recommendation)
		}
	}
	fmt.Fprintln(f, "")
}

func writeMastering(f *os.File, m *mix.MasterResult) {
	if m == nil {
		return
	}
	writeSection(f, "Loudness & Mastering")

	table := NewMasterTable()
	table.AddRow("Estimated Loudness",
		[]string{formatMetricDB(m.InputLoudnessDB, 1), formatMetricDB(m.OutputLoudnessDB, 1)},
		"dB", "")
	fmt.Fprint(f, table.String())
	fmt.Fprintf(f, "Target:  %.1f dB\n", m.TargetLoudnessDB)
	fmt.Fprintf(f, "Applied: %s dB gain\n", formatMetricSigned(m.AppliedGainDB, 1))
	fmt.Fprintln(f, "")
}

func writeStereoImage(f *os.File, w *stereo.WidthMeasurement) {
	if w == nil {
		return
	}
	writeSection(f, "Stereo Image")
	fmt.Fprintf(f, "Width score:       %.2f (%s)\n", w.WidthScore, interpretWidthScore(*w))
	fmt.Fprintf(f, "L/R correlation:   %.2f\n", w.Correlation)
	fmt.Fprintf(f, "Side/mid ratio:    %.3f\n", w.SideMidRatio)
	fmt.Fprintln(f, "")
}

func writeTips(f *os.File, tips []MixingTip) {
	if len(tips) == 0 {
		return
	}
	writeSection(f, "Mixing Tips")
	for i, tip := range tips {
		fmt.Fprintf(f, "%d. %s\n", i+1, wrapText(tip.Message, 72, "   "))
	}
	fmt.Fprintln(f, "")
}
