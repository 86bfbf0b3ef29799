package mix

import (
	"context"
	"fmt"

	"github.com/versemix/mixdown/internal/analysis"
	"github.com/versemix/mixdown/internal/audio"
	"github.com/versemix/mixdown/internal/eq"
	"github.com/versemix/mixdown/internal/stereo"
)

// Section is one span of a structured song (intro, verse, chorus,
// bridge, outro). Vocals are optional; a section without vocals is an
// instrumental passage cut to Seconds.
type Section struct {
	Name    string
	Vocals  *audio.Buffer // nil for instrumental sections
	Music   *audio.Buffer
	Seconds float64 // instrumental section length; 0 keeps the music's own length
}

// Structured-mix constants.
const (
	// sectionMusicDuckDB attenuates the instrumental under vocal
	// sections on top of the sidechain, keeping the voice in front
	// across section boundaries.
	sectionMusicDuckDB = -2.0

	// sectionCrossfadeMs joins adjacent sections when the config does
	// not set its own crossfade.
	sectionCrossfadeMs = 250.0
)

// StructuredResult is the outcome of a structured mix.
type StructuredResult struct {
	Buffer *audio.Buffer

	// SectionNames records the rendered sections in order.
	SectionNames []string

	// DegradedStages aggregates stage degradations across all vocal
	// sections.
	DegradedStages []StageID
}

// CreateStructured renders each section and joins them with symmetric
// crossfades. Vocal sections run the full assemble pipeline with the
// instrumental pulled down a little further; instrumental sections get
// the music treatment (EQ and imaging) without the vocal stages.
func (e *Engine) CreateStructured(ctx context.Context, sections []Section, cfg Config) (*StructuredResult, error) {
	if len(sections) == 0 {
		return nil, fmt.Errorf("sections: %w", audio.ErrEmptyBuffer)
	}

	xfadeMs := cfg.CrossfadeMs
	if xfadeMs <= 0 {
		xfadeMs = sectionCrossfadeMs
	}

	result := &StructuredResult{}
	var rendered []*audio.Buffer
	for _, sec := range sections {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		buf, degraded, err := e.renderSection(ctx, sec, cfg)
		if err != nil {
			return nil, fmt.Errorf("section %q: %w", sec.Name, err)
		}
		rendered = append(rendered, buf)
		result.SectionNames = append(result.SectionNames, sec.Name)
		result.DegradedStages = append(result.DegradedStages, degraded...)
	}

	out := rendered[0]
	for _, next := range rendered[1:] {
		out = crossfadeJoin(out, next, xfadeMs)
	}
	result.Buffer = out
	return result, nil
}

func (e *Engine) renderSection(ctx context.Context, sec Section, cfg Config) (*audio.Buffer, []StageID, error) {
	if sec.Vocals != nil && !sec.Vocals.IsEmpty() {
		vocalCfg := cfg
		vocalCfg.MusicGainDB += sectionMusicDuckDB
		res, err := e.Assemble(ctx, sec.Vocals, sec.Music, vocalCfg)
		if err != nil {
			return nil, nil, err
		}
		return res.Buffer, res.DegradedStages, nil
	}

	if sec.Music.IsEmpty() {
		return nil, nil, audio.ErrEmptyBuffer
	}
	music, err := sec.Music.EnsureStereo()
	if err != nil {
		return nil, nil, err
	}
	if sec.Seconds > 0 {
		target := int(sec.Seconds * float64(music.SampleRate))
		music = loopToLength(music, target, cfg.CrossfadeMs)
	}

	profile := e.analyzer.Analyze(music)
	var refProfile *analysis.FrequencyProfile
	if cfg.Reference != nil {
		refProfile = &cfg.Reference.Profile
	}
	specs := e.designer.Settings(profile, refProfile, cfg.MusicEQ)
	music = eq.Apply(music, specs)

	imaging := stereo.ImagingSpec{Width: cfg.Width, Reverb: cfg.Reverb, Delay: cfg.Delay}
	music, err = stereo.Process(music, imaging)
	if err != nil {
		return nil, nil, err
	}
	if cfg.MusicGainDB != 0 {
		music = music.ApplyGain(audio.DBToLinear(cfg.MusicGainDB))
	}
	return music, nil, nil
}

// crossfadeJoin concatenates two buffers with a symmetric linear
// crossfade: the tail of a fades out while the head of b fades in over
// the same span, so total length is len(a)+len(b)-xfade.
func crossfadeJoin(a, b *audio.Buffer, crossfadeMs float64) *audio.Buffer {
	if b.SampleRate != a.SampleRate {
		b = b.Resampled(a.SampleRate)
	}

	xfade := int(crossfadeMs / 1000.0 * float64(a.SampleRate))
	if xfade > a.NumFrames() {
		xfade = a.NumFrames()
	}
	if xfade > b.NumFrames() {
		xfade = b.NumFrames()
	}

	aFrames := a.NumFrames()
	bFrames := b.NumFrames()
	total := aFrames + bFrames - xfade
	channels := a.NumChannels()

	out, _ := audio.New(channels, total, a.SampleRate)
	for ch := 0; ch < channels; ch++ {
		dst := out.Data[ch]
		src := a.Data[ch]
		copy(dst, src[:aFrames-xfade])

		bch := b.Data[ch%b.NumChannels()]
		for i := 0; i < xfade; i++ {
			ramp := float64(i) / float64(xfade)
			dst[aFrames-xfade+i] = src[aFrames-xfade+i]*(1-ramp) + bch[i]*ramp
		}
		copy(dst[aFrames:], bch[xfade:])
	}
	return out
}
