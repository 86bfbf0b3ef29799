package logging

import (
	"fmt"
	"sort"
	"strings"

	"github.com/versemix/mixdown/internal/analysis"
	"github.com/versemix/mixdown/internal/mix"
	"github.com/versemix/mixdown/internal/reference"
	"github.com/versemix/mixdown/internal/stereo"
)

// MixingTip represents a single piece of actionable mixing advice
// derived from the mix measurements.
type MixingTip struct {
	Priority int    // Higher = more important (1-10)
	Message  string // Human-readable advice (1-2 sentences)
	RuleID   string // Identifier for testing/logging (e.g., "muddy_low_end")
}

// MaxMixingTips is the maximum number of tips to return.
const MaxMixingTips = 5

// TipContext gathers the measurements the tip rules inspect. Any field
// may be nil or zero; rules that lack their inputs simply don't fire.
type TipContext struct {
	Result     *mix.Result
	MixProfile analysis.FrequencyProfile
	Width      *stereo.WidthMeasurement
	Conflicts  []analysis.BandConflict
	Reference  *reference.Analysis
	Master     *mix.MasterResult
}

// GenerateMixingTips analyses the mix and returns prioritised
// improvement suggestions.
func GenerateMixingTips(ctx TipContext) []MixingTip {
	var tips []MixingTip
	firedRules := make(map[string]bool)

	rules := []func(TipContext) *MixingTip{
		tipDegradedStages,
		tipBandConflict,
		tipMuddyLowEnd,
		tipHarshHighs,
		tipThinMix,
		tipMonoMusic,
		tipNarrowImage,
		tipQuietStems,
	}

	for _, rule := range rules {
		if tip := rule(ctx); tip != nil {
			tips = append(tips, *tip)
			firedRules[tip.RuleID] = true
		}
	}
	tips = append(tips, referenceTips(ctx.Reference)...)

	tips = applyExclusions(tips, firedRules)

	sort.SliceStable(tips, func(i, j int) bool {
		return tips[i].Priority > tips[j].Priority
	})
	if len(tips) > MaxMixingTips {
		tips = tips[:MaxMixingTips]
	}
	return tips
}

// applyExclusions removes tips that are redundant when a more specific
// tip has already fired. A mono instrumental already explains a narrow
// image; a bass-band conflict already explains muddiness.
func applyExclusions(tips []MixingTip, fired map[string]bool) []MixingTip {
	var result []MixingTip
	for _, tip := range tips {
		switch tip.RuleID {
		case "narrow_image":
			if fired["mono_music"] {
				continue
			}
		case "muddy_low_end":
			if fired["band_conflict"] {
				continue
			}
		}
		result = append(result, tip)
	}
	return result
}

// wrapText wraps text at word boundaries to fit within maxWidth
// columns. Continuation lines are prefixed with indent.
func wrapText(text string, maxWidth int, indent string) string {
	words := strings.Fields(text)
	var lines []string
	currentLine := ""

	for _, word := range words {
		if currentLine == "" {
			currentLine = word
		} else if len(currentLine)+1+len(word) <= maxWidth {
			currentLine += " " + word
		} else {
			lines = append(lines, currentLine)
			currentLine = word
		}
	}
	if currentLine != "" {
		lines = append(lines, currentLine)
	}
	return strings.Join(lines, "\n"+indent)
}

// tipDegradedStages fires when any pipeline stage was skipped, since
// the output then lacks part of the intended treatment.
func tipDegradedStages(ctx TipContext) *MixingTip {
	if ctx.Result == nil || !ctx.Result.Degraded() {
		return nil
	}
	names := make([]string, len(ctx.Result.DegradedStages))
	for i, id := range ctx.Result.DegradedStages {
		names[i] = string(id)
	}
	return &MixingTip{
		Priority: 10,
		RuleID:   "degraded_stages",
		Message: fmt.Sprintf("Some processing stages were skipped (%s) - the mix is usable but re-running with longer stems or a higher deadline should improve it.",
			strings.Join(names, ", ")),
	}
}

// tipBandConflict fires on the most severe stem frequency collision.
func tipBandConflict(ctx TipContext) *MixingTip {
	var worst *analysis.BandConflict
	for i := range ctx.Conflicts {
		c := &ctx.Conflicts[i]
		if c.Severity != analysis.SeverityHigh {
			continue
		}
		if worst == nil || c.ShareA+c.ShareB > worst.ShareA+worst.ShareB {
			worst = c
		}
	}
	if worst == nil {
		return nil
	}
	return &MixingTip{
		Priority: 8,
		RuleID:   "band_conflict",
		Message: fmt.Sprintf("Vocals and music are fighting in the %s band (%.0f%% vs %.0f%%). %s",
			worst.Band, worst.ShareA, worst.ShareB, worst.Recommendation),
	}
}

// tipMuddyLowEnd fires when bass and low-mids dominate the mix.
// Threshold: combined sub-bass/bass/low-mid share above 55%.
func tipMuddyLowEnd(ctx TipContext) *MixingTip {
	if ctx.MixProfile.IsZero() {
		return nil
	}
	low := ctx.MixProfile.BandEnergy[analysis.BandSubBass] +
		ctx.MixProfile.BandEnergy[analysis.BandBass] +
		ctx.MixProfile.BandEnergy[analysis.BandLowMid]
	if low <= 55 {
		return nil
	}
	return &MixingTip{
		Priority: 7,
		RuleID:   "muddy_low_end",
		Message:  fmt.Sprintf("The mix carries %.0f%% of its energy below 500 Hz and sounds muddy - try a gentle cut around 250-350 Hz on the music.", low),
	}
}

// tipHarshHighs fires on a very bright mix. Centroid above 5 kHz on
// full-mix material usually reads as harsh.
func tipHarshHighs(ctx TipContext) *MixingTip {
	if ctx.MixProfile.Centroid <= 5000 {
		return nil
	}
	return &MixingTip{
		Priority: 6,
		RuleID:   "harsh_highs",
		Message:  fmt.Sprintf("The mix is very bright (centroid %.0f Hz) - consider reducing the treble boost or softening the high-mid presence.", ctx.MixProfile.Centroid),
	}
}

// tipThinMix fires when the low end is nearly absent.
func tipThinMix(ctx TipContext) *MixingTip {
	if ctx.MixProfile.IsZero() {
		return nil
	}
	low := ctx.MixProfile.BandEnergy[analysis.BandSubBass] +
		ctx.MixProfile.BandEnergy[analysis.BandBass]
	if low >= 8 {
		return nil
	}
	return &MixingTip{
		Priority: 6,
		RuleID:   "thin_mix",
		Message:  fmt.Sprintf("The mix has very little low end (%.0f%% below 250 Hz) - a bass boost around 80-100 Hz on the music would add weight.", low),
	}
}

// tipMonoMusic fires when the output carries no stereo information.
func tipMonoMusic(ctx TipContext) *MixingTip {
	if ctx.Width == nil || !ctx.Width.IsMono {
		return nil
	}
	return &MixingTip{
		Priority: 7,
		RuleID:   "mono_music",
		Message:  "The mix is effectively mono - use a stereo music stem or enable width enhancement to open up the image.",
	}
}

// tipNarrowImage fires on a present but very narrow stereo image.
func tipNarrowImage(ctx TipContext) *MixingTip {
	if ctx.Width == nil || ctx.Width.IsMono || ctx.Width.WidthScore >= 0.15 {
		return nil
	}
	return &MixingTip{
		Priority: 5,
		RuleID:   "narrow_image",
		Message:  fmt.Sprintf("The stereo image is narrow (width score %.2f) - raising the width factor towards 1.3-1.5 on the music would add space.", ctx.Width.WidthScore),
	}
}

// tipQuietStems fires when mastering needed a very large gain lift,
// which amplifies any noise in the stems along with the signal.
func tipQuietStems(ctx TipContext) *MixingTip {
	if ctx.Master == nil || ctx.Master.AppliedGainDB <= 12 {
		return nil
	}
	return &MixingTip{
		Priority: 5,
		RuleID:   "quiet_stems",
		Message:  fmt.Sprintf("Mastering had to raise the mix by %.0f dB - record or bounce the stems hotter to keep noise down.", ctx.Master.AppliedGainDB),
	}
}

// referenceTips converts reference-track recommendations into tips.
func referenceTips(ref *reference.Analysis) []MixingTip {
	if ref == nil {
		return nil
	}
	var tips []MixingTip
	for _, rec := range ref.Recommendations {
		tips = append(tips, MixingTip{
			Priority: 4,
			RuleID:   "reference_" + string(rec.Type),
			Message:  referenceTipMessage(rec),
		})
	}
	return tips
}

func referenceTipMessage(rec reference.Recommendation) string {
	switch rec.Type {
	case reference.RecEQBoost:
		return fmt.Sprintf("To match your reference, boost the %s around %.0f Hz by %.1f dB (%s).",
			rec.Target, rec.Frequency, rec.GainDB, rec.Reason)
	case reference.RecWiden:
		return fmt.Sprintf("To match your reference, widen the %s to a factor of %.1f (%s).",
			rec.Target, rec.WidthFactor, rec.Reason)
	case reference.RecCompression:
		return fmt.Sprintf("To match your reference, compress the %s at %.0f dB threshold, %.1f:1 ratio (%s).",
			rec.Target, rec.Threshold, rec.Ratio, rec.Reason)
	default:
		return rec.Reason
	}
}
