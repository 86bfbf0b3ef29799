// Package mix orchestrates the full song pipeline: adaptive EQ,
// sidechain ducking, stereo imaging, overlay, mastering and export.
//
// Every DSP stage is fail-open: a stage that errors is skipped, its
// input buffer forwarded unchanged, and the degradation recorded on the
// result. The pipeline always returns a usable mix.
package mix

import (
	"context"
	"fmt"
	"sync"

	"github.com/versemix/mixdown/internal/analysis"
	"github.com/versemix/mixdown/internal/audio"
	"github.com/versemix/mixdown/internal/dynamics"
	"github.com/versemix/mixdown/internal/eq"
	"github.com/versemix/mixdown/internal/genre"
	"github.com/versemix/mixdown/internal/reference"
	"github.com/versemix/mixdown/internal/stereo"
	"github.com/versemix/mixdown/internal/tuning"
)

// StageID identifies a stage in the assembly pipeline.
type StageID string

// Assembly stages, in execution order.
const (
	StageEQ        StageID = "eq"        // adaptive EQ on both stems (parallel)
	StageSidechain StageID = "sidechain" // duck music under vocals
	StageImaging   StageID = "imaging"   // width/reverb/delay per role
	StageTrim      StageID = "trim"      // per-stem volume trim
	StageAlign     StageID = "align"     // loop/truncate music to vocals length
	StageOverlay   StageID = "overlay"   // additive combine
)

// assembleStageOrder is the fixed pipeline. Order rationale:
// - EQ first so the ducker reacts to the corrected vocal
// - sidechain before imaging so reverb tails are not pumped
// - trim before align so loop seams carry the final stem levels
// - overlay last, always
var assembleStageOrder = []StageID{
	StageEQ,
	StageSidechain,
	StageImaging,
	StageTrim,
	StageAlign,
	StageOverlay,
}

// Stages returns the pipeline order, for reports and progress display.
func Stages() []StageID {
	out := make([]StageID, len(assembleStageOrder))
	copy(out, assembleStageOrder)
	return out
}

// stageFunc transforms the mix state or reports a failure. On failure
// the orchestrator keeps the prior buffers and moves on.
type stageFunc func(e *Engine, st *mixState) error

// stageRegistry maps each stage to its implementation.
var stageRegistry = map[StageID]stageFunc{
	StageEQ:        (*Engine).stageEQ,
	StageSidechain: (*Engine).stageSidechain,
	StageImaging:   (*Engine).stageImaging,
	StageTrim:      (*Engine).stageTrim,
	StageAlign:     (*Engine).stageAlign,
	StageOverlay:   (*Engine).stageOverlay,
}

// Config carries everything one assemble call needs: the six spec
// groups, stem trims and the optional reference analysis. All six spec
// groups are always present, zero-valued when unused.
type Config struct {
	Genre genre.Genre `json:"genre"`

	VocalEQ     []eq.FilterSpec          `json:"vocal_eq"`
	MusicEQ     []eq.FilterSpec          `json:"music_eq"`
	Compression dynamics.CompressionSpec `json:"compression"`
	Width       stereo.WidthSpec         `json:"width"`
	Reverb      stereo.ReverbSpec        `json:"reverb"`
	Delay       stereo.DelaySpec         `json:"delay"`
	Sidechain   dynamics.SidechainSpec   `json:"sidechain"`

	VocalGainDB float64 `json:"vocal_gain_db"`
	MusicGainDB float64 `json:"music_gain_db"`
	CrossfadeMs float64 `json:"crossfade_ms"` // loop-seam and section crossfade

	Reference *reference.Analysis `json:"-"`

	// Progress callbacks for interactive front ends. Optional; invoked
	// synchronously around each stage.
	OnStageStart func(StageID)        `json:"-"`
	OnStageDone  func(StageID, error) `json:"-"`
}

// ConfigFromPresets builds the default configuration for a genre from
// the static preset table.
func ConfigFromPresets(g genre.Genre) Config {
	vocal := genre.ForGenre(g, genre.RoleVocals)
	music := genre.ForGenre(g, genre.RoleMusic)
	return Config{
		Genre:       g,
		VocalEQ:     vocal.EQ,
		MusicEQ:     music.EQ,
		Compression: music.Compression,
		Width:       music.Width,
		Reverb:      music.Reverb,
		Delay:       music.Delay,
		Sidechain:   music.Sidechain,
		MusicGainDB: -1.5, // leave room for the vocal by default
		CrossfadeMs: 80,
	}
}

// Result is the outcome of an assemble call.
type Result struct {
	Buffer *audio.Buffer

	// DegradedStages lists stages that failed and were skipped, or were
	// abandoned because the caller's deadline expired. Empty means the
	// full pipeline ran.
	DegradedStages []StageID

	VocalProfile analysis.FrequencyProfile
	MusicProfile analysis.FrequencyProfile
}

// Degraded reports whether any stage was skipped.
func (r *Result) Degraded() bool {
	return len(r.DegradedStages) > 0
}

// Engine owns the stateless DSP components. One Engine serves
// concurrent assemble calls; there is no shared mutable state.
type Engine struct {
	analyzer *analysis.Analyzer
	designer *eq.Designer
}

// NewEngine constructs the engine from the tunables.
func NewEngine(t *tuning.Tunables) *Engine {
	return &Engine{
		analyzer: analysis.NewAnalyzer(),
		designer: eq.NewDesigner(t),
	}
}

// Analyzer exposes the shared frequency analyzer for callers that need
// standalone analysis (reference handling, reports).
func (e *Engine) Analyzer() *analysis.Analyzer { return e.analyzer }

// Designer exposes the EQ designer for reference matching.
func (e *Engine) Designer() *eq.Designer { return e.designer }

// mixState is the value folded through the stage list.
type mixState struct {
	cfg    *Config
	vocals *audio.Buffer
	music  *audio.Buffer
	out    *audio.Buffer

	vocalProfile analysis.FrequencyProfile
	musicProfile analysis.FrequencyProfile
}

// Assemble runs the pipeline over a vocal and a music stem. The output
// length always equals the vocals length; music is looped or truncated
// to cover it. Unresolvable input problems (empty buffers) fail the
// call; stage failures degrade instead, and a context deadline returns
// the best mix so far rather than nothing.
func (e *Engine) Assemble(ctx context.Context, vocals, music *audio.Buffer, cfg Config) (*Result, error) {
	if vocals.IsEmpty() {
		return nil, fmt.Errorf("vocals: %w", audio.ErrEmptyBuffer)
	}
	if music.IsEmpty() {
		return nil, fmt.Errorf("music: %w", audio.ErrEmptyBuffer)
	}

	v, err := vocals.EnsureStereo()
	if err != nil {
		return nil, fmt.Errorf("vocals: %w", err)
	}
	m, err := music.EnsureStereo()
	if err != nil {
		return nil, fmt.Errorf("music: %w", err)
	}
	if m.SampleRate != v.SampleRate {
		m = m.Resampled(v.SampleRate)
	}

	st := &mixState{cfg: &cfg, vocals: v, music: m}
	result := &Result{}

	for i, id := range assembleStageOrder {
		if ctx.Err() != nil {
			// Deadline: abandon the remaining stages, report them as
			// degraded, and return whatever has been built so far.
			result.DegradedStages = append(result.DegradedStages, assembleStageOrder[i:]...)
			break
		}
		if cfg.OnStageStart != nil {
			cfg.OnStageStart(id)
		}
		err := stageRegistry[id](e, st)
		if err != nil {
			result.DegradedStages = append(result.DegradedStages, id)
		}
		if cfg.OnStageDone != nil {
			cfg.OnStageDone(id, err)
		}
	}

	result.Buffer = st.out
	if result.Buffer == nil {
		// Overlay never ran (deadline or failure): fall back to the
		// current vocal stem so the caller still gets audio.
		result.Buffer = st.vocals
	}
	result.VocalProfile = st.vocalProfile
	result.MusicProfile = st.musicProfile
	return result, nil
}

// stageEQ analyses and equalises both stems in parallel (fan-out),
// joining before the sidechain. Each stem composes genre preset +
// adaptive corrections + reference matching.
func (e *Engine) stageEQ(st *mixState) error {
	var refProfile *analysis.FrequencyProfile
	if st.cfg.Reference != nil {
		refProfile = &st.cfg.Reference.Profile
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		st.vocalProfile = e.analyzer.Analyze(st.vocals)
		specs := e.designer.Settings(st.vocalProfile, refProfile, st.cfg.VocalEQ)
		st.vocals = eq.Apply(st.vocals, specs)
	}()
	go func() {
		defer wg.Done()
		st.musicProfile = e.analyzer.Analyze(st.music)
		specs := e.designer.Settings(st.musicProfile, refProfile, st.cfg.MusicEQ)
		st.music = eq.Apply(st.music, specs)
	}()
	wg.Wait()
	return nil
}

// stageSidechain ducks the music under the vocal. The ducker trims the
// music to the shorter stem; the align stage restores full coverage.
func (e *Engine) stageSidechain(st *mixState) error {
	if st.cfg.Sidechain.Ratio <= 1 {
		return nil
	}
	ducked, err := dynamics.Duck(st.vocals, st.music, st.cfg.Sidechain)
	if err != nil {
		return fmt.Errorf("sidechain: %w", err)
	}
	st.music = ducked
	return nil
}

// stageImaging applies the spatial treatment, narrower and drier on the
// vocal so it stays intelligible in front of the widened instrumental.
func (e *Engine) stageImaging(st *mixState) error {
	musicSpec := stereo.ImagingSpec{
		Width:  st.cfg.Width,
		Reverb: st.cfg.Reverb,
		Delay:  st.cfg.Delay,
	}
	v, m, err := stereo.ProcessPair(st.vocals, st.music, vocalImaging(musicSpec), musicSpec)
	if err != nil {
		return fmt.Errorf("imaging: %w", err)
	}
	st.vocals = v
	st.music = m
	return nil
}

// Vocal imaging derivation: the vocal keeps most of its natural image
// and roughly half the music's wet levels.
const (
	vocalWidthPull = 0.25 // fraction of the widening applied to vocals
	vocalReverbWet = 0.6  // of the music reverb wet level
	vocalDelayWet  = 0.5  // of the music delay wet level
)

func vocalImaging(music stereo.ImagingSpec) stereo.ImagingSpec {
	spec := music
	if spec.Width.Factor > 1 {
		spec.Width.Factor = 1 + (spec.Width.Factor-1)*vocalWidthPull
	}
	spec.Reverb.WetLevel *= vocalReverbWet
	spec.Delay.WetLevel *= vocalDelayWet
	spec.Delay.PingPong = false
	return spec
}

// stageTrim applies the per-stem volume trims.
func (e *Engine) stageTrim(st *mixState) error {
	if st.cfg.VocalGainDB != 0 {
		st.vocals = st.vocals.ApplyGain(audio.DBToLinear(st.cfg.VocalGainDB))
	}
	if st.cfg.MusicGainDB != 0 {
		st.music = st.music.ApplyGain(audio.DBToLinear(st.cfg.MusicGainDB))
	}
	return nil
}

// stageAlign loops or truncates the music to exactly the vocals length,
// crossfading loop seams symmetrically when a crossfade is configured.
func (e *Engine) stageAlign(st *mixState) error {
	target := st.vocals.NumFrames()
	st.music = loopToLength(st.music, target, st.cfg.CrossfadeMs)
	return nil
}

// stageOverlay sums the stems. Clipping from the sum is pulled back to
// full scale; loudness targeting belongs to Master, not here.
func (e *Engine) stageOverlay(st *mixState) error {
	frames := st.vocals.NumFrames()
	out, err := audio.New(st.vocals.NumChannels(), frames, st.vocals.SampleRate)
	if err != nil {
		return err
	}
	for ch := range out.Data {
		vc := st.vocals.Data[ch]
		mc := st.music.Data[ch%st.music.NumChannels()]
		dst := out.Data[ch]
		for i := 0; i < frames; i++ {
			s := vc[i]
			if i < len(mc) {
				s += mc[i]
			}
			dst[i] = s
		}
	}
	st.out = out.PeakNormalised(1.0)
	return nil
}

// loopToLength tiles or truncates a buffer to exactly target frames.
// When looping with a crossfade, each repeat overlaps the previous tail
// with symmetric linear ramps so the seam doesn't click.
func loopToLength(buf *audio.Buffer, target int, crossfadeMs float64) *audio.Buffer {
	frames := buf.NumFrames()
	if frames == target {
		return buf.Clone()
	}
	if frames > target {
		return buf.Slice(0, target)
	}

	xfade := int(crossfadeMs / 1000.0 * float64(buf.SampleRate))
	if xfade >= frames/2 {
		xfade = frames / 2
	}

	out, _ := audio.New(buf.NumChannels(), target, buf.SampleRate)
	for ch := range out.Data {
		src := buf.Data[ch]
		dst := out.Data[ch]

		pos := 0
		for pos < target {
			start := 0
			writeAt := pos
			if pos > 0 && xfade > 0 {
				// Overlap the seam: ramp the incoming copy in over the
				// outgoing tail.
				writeAt = pos - xfade
			}
			for i := start; i < frames && writeAt+i < target; i++ {
				s := src[i]
				if pos > 0 && xfade > 0 && i < xfade {
					ramp := float64(i) / float64(xfade)
					dst[writeAt+i] = dst[writeAt+i]*(1-ramp) + s*ramp
				} else {
					dst[writeAt+i] = s
				}
			}
			if pos == 0 {
				pos = frames
			} else {
				pos = writeAt + frames
			}
		}
	}
	return out
}
