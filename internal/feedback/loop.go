// Package feedback records user ratings against mixing configurations
// and derives improved configurations once a configuration has gathered
// enough evidence that it underperforms.
package feedback

import (
	"errors"
	"fmt"
	"math"

	"gorm.io/gorm"

	"github.com/versemix/mixdown/internal/eq"
	"github.com/versemix/mixdown/internal/mix"
	"github.com/versemix/mixdown/internal/store"
	"github.com/versemix/mixdown/internal/tuning"
)

// Rating bounds.
const (
	MinRating = 1
	MaxRating = 5
)

// clarityBoostFreq is where the vocal-clarity adjustment lands.
const clarityBoostFreq = 1000.0

// ErrInvalidRating rejects ratings outside 1..5.
var ErrInvalidRating = errors.New("feedback: rating out of range")

// Loop ties the store to the optimizer tunables.
type Loop struct {
	store *store.Store
	tun   tuning.OptimizerTunables
}

// NewLoop builds the feedback loop.
func NewLoop(s *store.Store, t *tuning.Tunables) *Loop {
	return &Loop{store: s, tun: t.Optimizer}
}

// Record validates and inserts one immutable rating, then folds it into
// the configuration's rolling averages in a single SQL update so
// concurrent raters never lose increments.
func (l *Loop) Record(fb *store.FeedbackRecord) error {
	subscales := []int{fb.Overall, fb.VocalClarity, fb.Balance, fb.StereoWidth, fb.EQ, fb.Reverb}
	for _, r := range subscales {
		if r < MinRating || r > MaxRating {
			return fmt.Errorf("%w: %d", ErrInvalidRating, r)
		}
	}
	if _, err := l.store.GetConfiguration(fb.ConfigID); err != nil {
		return err
	}

	err := l.store.DB().Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(fb).Error; err != nil {
			return fmt.Errorf("feedback: insert: %w", err)
		}
		// avg' = (avg*n + rating) / (n+1), all server-side.
		res := tx.Model(&store.MixingConfiguration{}).
			Where("id = ?", fb.ConfigID).
			Updates(map[string]any{
				"avg_overall":       rollExpr("avg_overall", fb.Overall),
				"avg_vocal_clarity": rollExpr("avg_vocal_clarity", fb.VocalClarity),
				"avg_balance":       rollExpr("avg_balance", fb.Balance),
				"avg_stereo_width":  rollExpr("avg_stereo_width", fb.StereoWidth),
				"avg_eq":            rollExpr("avg_eq", fb.EQ),
				"avg_reverb":        rollExpr("avg_reverb", fb.Reverb),
				"feedback_count":    gorm.Expr("feedback_count + 1"),
			})
		if res.Error != nil {
			return fmt.Errorf("feedback: update averages: %w", res.Error)
		}
		return nil
	})
	if err != nil {
		return err
	}
	l.store.InvalidateConfiguration(fb.ConfigID)
	return nil
}

func rollExpr(column string, rating int) any {
	return gorm.Expr(
		"("+column+" * feedback_count + ?) / (feedback_count + 1)",
		float64(rating),
	)
}

// Optimization describes a derived configuration.
type Optimization struct {
	Child   *store.MixingConfiguration
	Reasons []string
}

// MaybeOptimize derives exactly one improved child configuration once
// the gate passes: at least the minimum feedback count AND an average
// overall rating below the threshold. Below the gate it is a no-op
// (nil, nil). The child is never auto-promoted; callers choose when to
// use it.
func (l *Loop) MaybeOptimize(configID string) (*Optimization, error) {
	parent, err := l.store.GetConfiguration(configID)
	if err != nil {
		return nil, err
	}
	if parent.FeedbackCount < l.tun.MinFeedbackCount {
		return nil, nil
	}
	if parent.AvgOverall >= l.tun.MaxAvgOverall {
		return nil, nil
	}

	cfg, err := parent.Config()
	if err != nil {
		return nil, err
	}

	var reasons []string
	if parent.AvgVocalClarity > 0 && parent.AvgVocalClarity < l.tun.SubscaleThreshold {
		boostVocalClarity(&cfg, l.tun)
		reasons = append(reasons, "vocal_clarity")
	}
	if parent.AvgStereoWidth > 0 && parent.AvgStereoWidth < l.tun.SubscaleThreshold {
		cfg.Width.Factor = math.Min(cfg.Width.Factor+l.tun.WidthDelta, l.tun.WidthCap)
		reasons = append(reasons, "stereo_width")
	}
	if parent.AvgReverb > 0 && parent.AvgReverb < l.tun.SubscaleThreshold {
		cfg.Reverb.WetLevel = math.Max(cfg.Reverb.WetLevel+l.tun.ReverbWetDelta, l.tun.ReverbWetFloor)
		reasons = append(reasons, "reverb")
	}
	if len(reasons) == 0 {
		// The overall average is low but no single subscale points at a
		// cause. Vocal presence is the broadest lever, so the clarity
		// adjustment carries the derivation.
		boostVocalClarity(&cfg, l.tun)
		reasons = append(reasons, "overall")
	}

	child := &store.MixingConfiguration{
		Name:       parent.Name + " (optimized)",
		Owner:      parent.Owner,
		Visibility: parent.Visibility,
		Provenance: store.ProvenanceOptimized,
		ParentID:   parent.ID,
	}
	if err := child.SetConfig(cfg); err != nil {
		return nil, err
	}

	err = l.store.DB().Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(child).Error; err != nil {
			return fmt.Errorf("feedback: create child: %w", err)
		}
		event := &store.OptimizationEvent{ParentID: parent.ID, ChildID: child.ID}
		event.SetReasons(reasons)
		if err := tx.Create(event).Error; err != nil {
			return fmt.Errorf("feedback: record event: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &Optimization{Child: child, Reasons: reasons}, nil
}

// boostVocalClarity lifts the mid presence of the vocal EQ. An existing
// filter at the clarity frequency is raised under the cap; otherwise a
// new one is appended.
func boostVocalClarity(cfg *mix.Config, tun tuning.OptimizerTunables) {
	for i := range cfg.VocalEQ {
		if cfg.VocalEQ[i].Frequency == clarityBoostFreq {
			cfg.VocalEQ[i].GainDB = math.Min(
				cfg.VocalEQ[i].GainDB+tun.ClarityBoostDB,
				tun.ClarityCapDB,
			)
			return
		}
	}
	cfg.VocalEQ = append(cfg.VocalEQ, eq.FilterSpec{
		Frequency: clarityBoostFreq,
		GainDB:    math.Min(tun.ClarityBoostDB, tun.ClarityCapDB),
		Q:         1.0,
	})
}
