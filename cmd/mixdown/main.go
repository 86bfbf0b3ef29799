package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/alecthomas/kong"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/versemix/mixdown/internal/analysis"
	"github.com/versemix/mixdown/internal/audio"
	"github.com/versemix/mixdown/internal/cli"
	"github.com/versemix/mixdown/internal/feedback"
	"github.com/versemix/mixdown/internal/genre"
	"github.com/versemix/mixdown/internal/logging"
	"github.com/versemix/mixdown/internal/mix"
	"github.com/versemix/mixdown/internal/reference"
	"github.com/versemix/mixdown/internal/stereo"
	"github.com/versemix/mixdown/internal/store"
	"github.com/versemix/mixdown/internal/tuning"
	"github.com/versemix/mixdown/internal/ui"
)

var version = "0.1.0"

// CLI defines the command-line interface
type CLI struct {
	Version  bool   `short:"v" help:"Show version information"`
	Tunables string `short:"t" type:"path" help:"Path to a tunables JSON override file (optional)"`
	DB       string `type:"path" default:"mixdown.db" help:"Path to the configuration database"`

	Mix      MixCmd      `cmd:"" help:"Mix a vocal stem with a music stem"`
	Analyze  AnalyzeCmd  `cmd:"" help:"Analyze a track's spectrum, genre and stereo image"`
	Master   MasterCmd   `cmd:"" help:"Master a finished mix to a loudness target"`
	Preview  PreviewCmd  `cmd:"" help:"Cut a faded preview from a mix"`
	Configs  ConfigsCmd  `cmd:"" help:"List saved mixing configurations for a genre"`
	Feedback FeedbackCmd `cmd:"" help:"Rate a mix and trigger configuration optimization"`
}

// appEnv carries the shared components into command Run methods.
type appEnv struct {
	cli    *CLI
	tun    *tuning.Tunables
	engine *mix.Engine
}

func (a *appEnv) openStore() (*store.Store, error) {
	return store.Open(a.cli.DB)
}

func main() {
	cliArgs := &CLI{}
	ctx := kong.Parse(cliArgs,
		kong.Name("mixdown"),
		kong.Description("Adaptive song mixing and mastering engine"),
		kong.UsageOnError(),
		kong.Vars{"version": version},
		kong.Help(cli.StyledHelpPrinter(kong.HelpOptions{Compact: true})),
	)

	if cliArgs.Version {
		cli.PrintVersion(version)
		os.Exit(0)
	}

	tun := tuning.Defaults()
	if cliArgs.Tunables != "" {
		var err error
		if tun, err = tuning.Load(cliArgs.Tunables); err != nil {
			cli.PrintError(fmt.Sprintf("tunables: %v", err))
			os.Exit(1)
		}
	}

	env := &appEnv{
		cli:    cliArgs,
		tun:    tun,
		engine: mix.NewEngine(tun),
	}

	if err := ctx.Run(env); err != nil {
		cli.PrintError(err.Error())
		os.Exit(1)
	}
}

// MixCmd mixes one vocal stem with one music stem.
type MixCmd struct {
	Vocals string `arg:"" type:"existingfile" help:"Vocal stem (WAV)"`
	Music  string `arg:"" type:"existingfile" help:"Music stem (WAV)"`

	Output     string  `short:"o" default:"mix.wav" help:"Output file path"`
	Genre      string  `short:"g" help:"Genre preset (pop, rock, hiphop, ...; classified from the music when omitted)"`
	Reference  string  `short:"r" type:"existingfile" help:"Reference track to match (WAV)"`
	ConfigID   string  `help:"Mix with a saved configuration instead of genre presets"`
	SaveConfig string  `help:"Save the effective configuration under this name"`
	Target     float64 `default:"-14" help:"Mastering loudness target in dB"`
	Timeout    int     `default:"0" help:"Processing deadline in seconds (0 = none)"`
	Plain      bool    `help:"Disable the interactive progress display"`
	Logs       bool    `help:"Write a detailed mix report next to the output"`
}

// Run executes the full mix pipeline: load, configure, assemble,
// master, export, report.
func (c *MixCmd) Run(env *appEnv) error {
	startTime := time.Now()

	vocals, err := audio.ReadWAV(c.Vocals)
	if err != nil {
		return fmt.Errorf("vocals: %w", err)
	}
	music, err := audio.ReadWAV(c.Music)
	if err != nil {
		return fmt.Errorf("music: %w", err)
	}

	// Resolve the genre: flag wins, then classification of the music.
	classifier := genre.NewClassifier(env.tun)
	var classification genre.Classification
	if c.Genre != "" {
		classification = genre.Classification{Genre: genre.Normalise(c.Genre), Confidence: 1}
	} else {
		classification = classifier.Classify(music, env.engine.Analyzer().Analyze(music))
	}

	// Resolve the configuration: saved config wins, then genre presets.
	cfg := mix.ConfigFromPresets(classification.Genre)
	var st *store.Store
	if c.ConfigID != "" || c.SaveConfig != "" {
		if st, err = env.openStore(); err != nil {
			return err
		}
	}
	if c.ConfigID != "" {
		row, err := st.GetConfiguration(c.ConfigID)
		if err != nil {
			return err
		}
		if cfg, err = row.Config(); err != nil {
			return err
		}
		if err := st.IncrementUsage(c.ConfigID); err != nil {
			return err
		}
	}

	// Reference matching.
	var ref *reference.Analysis
	if c.Reference != "" {
		refBuf, err := audio.ReadWAV(c.Reference)
		if err != nil {
			return fmt.Errorf("reference: %w", err)
		}
		refAnalyzer := reference.NewAnalyzer(env.engine.Analyzer())
		if ref, err = refAnalyzer.Analyze(c.Reference, refBuf); err != nil {
			return fmt.Errorf("reference: %w", err)
		}
		cfg.Reference = ref
	}

	ctx := context.Background()
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(c.Timeout)*time.Second)
		defer cancel()
	}

	// step hooks let the UI track the post-assemble steps too.
	run := func(cfg mix.Config, start, done func(string)) (*mix.Result, *mix.MasterResult, error) {
		result, err := env.engine.Assemble(ctx, vocals, music, cfg)
		if err != nil {
			return nil, nil, err
		}
		start("master")
		mastered, err := env.engine.Master(result.Buffer, c.Target, classification.Genre)
		if err != nil {
			return nil, nil, err
		}
		done("master")
		start("export")
		if err := mix.Export(mastered.Buffer, c.Output); err != nil {
			return nil, nil, err
		}
		done("export")
		return result, mastered, nil
	}

	var result *mix.Result
	var mastered *mix.MasterResult
	noop := func(string) {}
	if c.Plain {
		if result, mastered, err = run(cfg, noop, noop); err != nil {
			return err
		}
	} else {
		if result, mastered, err = c.runWithUI(cfg, run); err != nil {
			return err
		}
	}

	if c.SaveConfig != "" {
		prov := store.ProvenanceManual
		if cfg.Reference != nil {
			prov = store.ProvenanceReferenceMatch
		}
		row := &store.MixingConfiguration{
			Name:       c.SaveConfig,
			Provenance: prov,
			Visibility: store.VisibilityPrivate,
		}
		if err := row.SetConfig(cfg); err != nil {
			return err
		}
		if err := st.SaveConfiguration(row); err != nil {
			return err
		}
		cli.PrintKeyValue("Saved configuration", row.ID)
	}

	if c.Logs {
		if err := c.writeReport(env, startTime, result, mastered, &classification, ref); err != nil {
			cli.PrintError(fmt.Sprintf("report: %v", err))
		}
	}

	if c.Plain {
		cli.PrintKeyValue("Output", c.Output)
		cli.PrintKeyValue("Genre", string(classification.Genre))
		cli.PrintKeyValue("Loudness", fmt.Sprintf("%.1f dB", mastered.OutputLoudnessDB))
		if result.Degraded() {
			cli.PrintError(fmt.Sprintf("%d stage(s) skipped", len(result.DegradedStages)))
		}
	}
	return nil
}

// runWithUI drives the bubbletea progress display around the mix run.
func (c *MixCmd) runWithUI(cfg mix.Config,
	run func(mix.Config, func(string), func(string)) (*mix.Result, *mix.MasterResult, error)) (*mix.Result, *mix.MasterResult, error) {

	steps := make([]string, 0, len(mix.Stages())+2)
	for _, id := range mix.Stages() {
		steps = append(steps, string(id))
	}
	steps = append(steps, "master", "export")

	model := ui.NewModel(c.Vocals, c.Music, steps)
	p := tea.NewProgram(model, tea.WithAltScreen())

	cfg.OnStageStart = func(id mix.StageID) {
		p.Send(ui.StepStartMsg{Step: string(id)})
	}
	cfg.OnStageDone = func(id mix.StageID, err error) {
		p.Send(ui.StepDoneMsg{Step: string(id), Skipped: err != nil})
	}
	start := func(step string) { p.Send(ui.StepStartMsg{Step: step}) }
	done := func(step string) { p.Send(ui.StepDoneMsg{Step: step}) }

	var result *mix.Result
	var mastered *mix.MasterResult
	go func() {
		var err error
		result, mastered, err = run(cfg, start, done)
		msg := ui.MixCompleteMsg{OutputPath: c.Output, Error: err}
		if err == nil {
			msg.Genre = string(cfg.Genre)
			msg.LoudnessDB = mastered.OutputLoudnessDB
			msg.DurationS = mastered.Buffer.Duration()
		}
		p.Send(msg)
	}()

	final, err := p.Run()
	if err != nil {
		return nil, nil, fmt.Errorf("ui: %w", err)
	}
	if m, ok := final.(ui.Model); ok && m.Err != nil {
		return nil, nil, m.Err
	}
	if result == nil || mastered == nil {
		return nil, nil, fmt.Errorf("mix aborted")
	}
	fmt.Print(final.View())
	return result, mastered, nil
}

func (c *MixCmd) writeReport(env *appEnv, startTime time.Time,
	result *mix.Result, mastered *mix.MasterResult,
	classification *genre.Classification, ref *reference.Analysis) error {

	mixProfile := env.engine.Analyzer().Analyze(mastered.Buffer)
	width, err := stereo.MeasureWidth(mastered.Buffer)
	if err != nil {
		return err
	}
	conflicts := analysis.Compare(result.VocalProfile, result.MusicProfile)

	tips := logging.GenerateMixingTips(logging.TipContext{
		Result:     result,
		MixProfile: mixProfile,
		Width:      &width,
		Conflicts:  conflicts,
		Reference:  ref,
		Master:     mastered,
	})

	return logging.GenerateReport(logging.ReportData{
		VocalPath:      c.Vocals,
		MusicPath:      c.Music,
		OutputPath:     c.Output,
		StartTime:      startTime,
		EndTime:        time.Now(),
		SampleRate:     mastered.Buffer.SampleRate,
		Channels:       mastered.Buffer.NumChannels(),
		DurationSecs:   mastered.Buffer.Duration(),
		Result:         result,
		MixProfile:     mixProfile,
		Master:         mastered,
		Classification: classification,
		Width:          &width,
		Conflicts:      conflicts,
		Tips:           tips,
	})
}

// AnalyzeCmd prints the spectral, genre and stereo measurements of one
// track.
type AnalyzeCmd struct {
	File string `arg:"" type:"existingfile" help:"Audio file to analyze (WAV)"`
}

func (c *AnalyzeCmd) Run(env *appEnv) error {
	buf, err := audio.ReadWAV(c.File)
	if err != nil {
		return err
	}

	profile := env.engine.Analyzer().Analyze(buf)
	classification := genre.NewClassifier(env.tun).Classify(buf, profile)
	feats := genre.EstimateFeatures(buf)
	width, err := stereo.MeasureWidth(buf)
	if err != nil {
		return err
	}

	fmt.Println(cli.TitleStyle.Render("Analysis: " + c.File))
	cli.PrintKeyValue("Duration", fmt.Sprintf("%.1fs @ %d Hz", buf.Duration(), buf.SampleRate))
	cli.PrintKeyValue("Genre", fmt.Sprintf("%s (%.0f%%)", classification.Genre, classification.Confidence*100))
	cli.PrintKeyValue("Tempo", fmt.Sprintf("%.0f BPM (regularity %.2f)", feats.TempoBPM, feats.RhythmRegularity))
	cli.PrintKeyValue("Dynamic range", fmt.Sprintf("%.2f", feats.DynamicRange))
	cli.PrintKeyValue("Centroid", fmt.Sprintf("%.0f Hz", profile.Centroid))
	cli.PrintKeyValue("Rolloff", fmt.Sprintf("%.0f Hz", profile.Rolloff))
	cli.PrintKeyValue("Width", fmt.Sprintf("%.2f (mono: %v)", width.WidthScore, width.IsMono))
	cli.PrintKeyValue("Loudness", fmt.Sprintf("%.1f dB", mix.EstimateLoudnessDB(buf)))

	fmt.Println()
	for b := analysis.Band(0); b < analysis.NumBands; b++ {
		cli.PrintKeyValue(b.String(), fmt.Sprintf("%5.1f %%", profile.BandEnergy[b]))
	}
	return nil
}

// MasterCmd masters a finished mix.
type MasterCmd struct {
	File   string  `arg:"" type:"existingfile" help:"Mix to master (WAV)"`
	Output string  `short:"o" default:"mastered.wav" help:"Output file path"`
	Target float64 `default:"-14" help:"Loudness target in dB"`
	Genre  string  `short:"g" help:"Apply this genre's master treatment (optional)"`
}

func (c *MasterCmd) Run(env *appEnv) error {
	buf, err := audio.ReadWAV(c.File)
	if err != nil {
		return err
	}
	g := genre.Genre("")
	if c.Genre != "" {
		g = genre.Normalise(c.Genre)
	}
	result, err := env.engine.Master(buf, c.Target, g)
	if err != nil {
		return err
	}
	if err := mix.Export(result.Buffer, c.Output); err != nil {
		return err
	}
	cli.PrintKeyValue("Output", c.Output)
	cli.PrintKeyValue("Loudness", fmt.Sprintf("%.1f dB (target %.1f, gain %+.1f)",
		result.OutputLoudnessDB, result.TargetLoudnessDB, result.AppliedGainDB))
	return nil
}

// PreviewCmd cuts a faded preview from a mix.
type PreviewCmd struct {
	File    string  `arg:"" type:"existingfile" help:"Mix to preview (WAV)"`
	Output  string  `short:"o" default:"preview.wav" help:"Output file path"`
	Seconds float64 `short:"s" default:"30" help:"Preview length in seconds"`
}

func (c *PreviewCmd) Run(env *appEnv) error {
	buf, err := audio.ReadWAV(c.File)
	if err != nil {
		return err
	}
	preview, err := mix.CreatePreview(buf, c.Seconds)
	if err != nil {
		return err
	}
	if err := mix.Export(preview, c.Output); err != nil {
		return err
	}
	cli.PrintKeyValue("Output", fmt.Sprintf("%s (%.1fs)", c.Output, preview.Duration()))
	return nil
}

// ConfigsCmd lists saved configurations for a genre.
type ConfigsCmd struct {
	Genre string `arg:"" help:"Genre to list configurations for"`
	Owner string `help:"Include this owner's private configurations"`
}

func (c *ConfigsCmd) Run(env *appEnv) error {
	st, err := env.openStore()
	if err != nil {
		return err
	}
	configs, err := st.GetByGenre(string(genre.Normalise(c.Genre)), c.Owner)
	if err != nil {
		return err
	}
	if len(configs) == 0 {
		fmt.Println("No saved configurations.")
		return nil
	}
	for _, cfg := range configs {
		rating := "unrated"
		if cfg.FeedbackCount > 0 {
			rating = fmt.Sprintf("%.1f/5 (%d)", cfg.AvgOverall, cfg.FeedbackCount)
		}
		fmt.Printf("%s  %-24s %-10s used %d  %s\n",
			cfg.ID, cfg.Name, cfg.Provenance, cfg.UsageCount, rating)
	}
	return nil
}

// FeedbackCmd records a rating for a configuration and runs the
// optimizer.
type FeedbackCmd struct {
	ConfigID     string   `arg:"" help:"Configuration to rate"`
	Overall      int      `required:"" help:"Overall rating 1-5"`
	VocalClarity int      `default:"3" help:"Vocal clarity rating 1-5"`
	Balance      int      `default:"3" help:"Vocal/music balance rating 1-5"`
	StereoWidth  int      `default:"3" help:"Stereo width rating 1-5"`
	EQ           int      `default:"3" help:"Tonal balance rating 1-5"`
	Reverb       int      `default:"3" help:"Reverb rating 1-5"`
	Song         string   `help:"Song the mix belongs to (optional)"`
	Tag          []string `help:"Free-form tags (repeatable)"`
	Comment      string   `help:"Optional comment"`
}

func (c *FeedbackCmd) Run(env *appEnv) error {
	st, err := env.openStore()
	if err != nil {
		return err
	}
	loop := feedback.NewLoop(st, env.tun)

	fb := &store.FeedbackRecord{
		ConfigID:     c.ConfigID,
		SongID:       c.Song,
		Overall:      c.Overall,
		VocalClarity: c.VocalClarity,
		Balance:      c.Balance,
		StereoWidth:  c.StereoWidth,
		EQ:           c.EQ,
		Reverb:       c.Reverb,
		Comment:      c.Comment,
	}
	if len(c.Tag) > 0 {
		fb.SetTags(c.Tag)
	}
	if err := loop.Record(fb); err != nil {
		return err
	}
	fmt.Println("Feedback recorded.")

	opt, err := loop.MaybeOptimize(c.ConfigID)
	if err != nil {
		return err
	}
	if opt == nil {
		return nil
	}
	cli.PrintKeyValue("Optimized configuration", opt.Child.ID)
	for _, reason := range opt.Reasons {
		fmt.Printf("  adjusted: %s\n", reason)
	}
	return nil
}
