package mix

import (
	"context"
	"testing"

	"github.com/versemix/mixdown/internal/audio"
	"github.com/versemix/mixdown/internal/genre"
	"github.com/versemix/mixdown/internal/stereo"
	"github.com/versemix/mixdown/internal/tuning"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	return NewEngine(tuning.Defaults())
}

func TestAssembleOutputMatchesVocalLength(t *testing.T) {
	e := newTestEngine(t)
	tests := []struct {
		name         string
		vocalSeconds float64
		musicSeconds float64
	}{
		{"music shorter than vocals", 3.0, 2.0},
		{"music longer than vocals", 2.0, 3.0},
		{"equal lengths", 2.0, 2.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vocals := makeVocalStem(t, tt.vocalSeconds)
			music := makeMusicStem(t, tt.musicSeconds)
			cfg := ConfigFromPresets(genre.Pop)

			res, err := e.Assemble(context.Background(), vocals, music, cfg)
			if err != nil {
				t.Fatalf("Assemble: %v", err)
			}
			if res.Degraded() {
				t.Fatalf("unexpected degraded stages: %v", res.DegradedStages)
			}
			if res.Buffer.NumFrames() != vocals.NumFrames() {
				t.Fatalf("frames = %d, want vocal length %d", res.Buffer.NumFrames(), vocals.NumFrames())
			}
			if res.Buffer.NumChannels() != 2 {
				t.Fatalf("channels = %d, want 2", res.Buffer.NumChannels())
			}
			if res.Buffer.Peak() > 1.0+1e-9 {
				t.Fatalf("peak %f exceeds full scale", res.Buffer.Peak())
			}
		})
	}
}

func TestAssembleEmptyInputsFail(t *testing.T) {
	e := newTestEngine(t)
	stem := makeVocalStem(t, 1.0)
	empty, _ := audio.New(1, 0, 44100)
	cfg := ConfigFromPresets(genre.Pop)

	if _, err := e.Assemble(context.Background(), empty, stem, cfg); err == nil {
		t.Fatal("empty vocals should fail")
	}
	if _, err := e.Assemble(context.Background(), stem, empty, cfg); err == nil {
		t.Fatal("empty music should fail")
	}
}

func TestAssemblePopulatesProfiles(t *testing.T) {
	e := newTestEngine(t)
	res, err := e.Assemble(context.Background(),
		makeVocalStem(t, 2.0), makeMusicStem(t, 2.0), ConfigFromPresets(genre.Rock))
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if res.VocalProfile.IsZero() || res.MusicProfile.IsZero() {
		t.Fatal("stem profiles should be populated after EQ analysis")
	}
}

func TestAssembleResamplesMusicToVocalRate(t *testing.T) {
	e := newTestEngine(t)
	vocals := makeVocalStem(t, 2.0) // 44100
	musicOpts := defaultStemOptions()
	musicOpts.Seconds = 2.0
	musicOpts.Rate = 22050
	musicOpts.ToneHz = 110
	music := makeStem(t, musicOpts)

	res, err := e.Assemble(context.Background(), vocals, music, ConfigFromPresets(genre.Pop))
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if res.Buffer.SampleRate != 44100 {
		t.Fatalf("rate = %d, want vocal rate 44100", res.Buffer.SampleRate)
	}
	if res.Buffer.NumFrames() != vocals.NumFrames() {
		t.Fatalf("frames = %d, want %d", res.Buffer.NumFrames(), vocals.NumFrames())
	}
}

func TestAssembleExpiredDeadlineReturnsBestEffort(t *testing.T) {
	e := newTestEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := e.Assemble(ctx, makeVocalStem(t, 1.0), makeMusicStem(t, 1.0), ConfigFromPresets(genre.Pop))
	if err != nil {
		t.Fatalf("Assemble should degrade, not fail: %v", err)
	}
	if !res.Degraded() {
		t.Fatal("cancelled context should mark stages degraded")
	}
	if len(res.DegradedStages) != len(Stages()) {
		t.Fatalf("degraded %d stages, want all %d", len(res.DegradedStages), len(Stages()))
	}
	if res.Buffer == nil || res.Buffer.IsEmpty() {
		t.Fatal("best-effort result should still carry audio")
	}
}

func TestAssembleMidPipelineDeadline(t *testing.T) {
	e := newTestEngine(t)
	ctx, cancel := context.WithCancel(context.Background())

	cfg := ConfigFromPresets(genre.Pop)
	// Cancel after the second stage completes; the rest must be
	// abandoned and reported.
	stagesRun := 0
	cfg.OnStageDone = func(id StageID, err error) {
		stagesRun++
		if stagesRun == 2 {
			cancel()
		}
	}

	res, err := e.Assemble(ctx, makeVocalStem(t, 2.0), makeMusicStem(t, 2.0), cfg)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if stagesRun != 2 {
		t.Fatalf("ran %d stages, want 2", stagesRun)
	}
	wantDegraded := len(Stages()) - 2
	if len(res.DegradedStages) != wantDegraded {
		t.Fatalf("degraded %d stages, want %d", len(res.DegradedStages), wantDegraded)
	}
	if res.Buffer == nil || res.Buffer.IsEmpty() {
		t.Fatal("partial pipeline should still return audio")
	}
}

func TestAssembleStageCallbacks(t *testing.T) {
	e := newTestEngine(t)
	cfg := ConfigFromPresets(genre.Pop)

	var started, done []StageID
	cfg.OnStageStart = func(id StageID) { started = append(started, id) }
	cfg.OnStageDone = func(id StageID, err error) {
		if err != nil {
			t.Errorf("stage %s reported error: %v", id, err)
		}
		done = append(done, id)
	}

	if _, err := e.Assemble(context.Background(),
		makeVocalStem(t, 1.0), makeMusicStem(t, 1.0), cfg); err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	want := Stages()
	if len(started) != len(want) || len(done) != len(want) {
		t.Fatalf("callbacks: %d starts, %d dones, want %d each", len(started), len(done), len(want))
	}
	for i, id := range want {
		if started[i] != id || done[i] != id {
			t.Fatalf("callback order diverges at %d: start=%s done=%s want=%s", i, started[i], done[i], id)
		}
	}
}

func TestConfigFromPresetsCarriesAllGroups(t *testing.T) {
	for _, g := range genre.All {
		cfg := ConfigFromPresets(g)
		if cfg.Genre != g {
			t.Errorf("%s: genre not set", g)
		}
		if cfg.Width.Factor <= 0 {
			t.Errorf("%s: width factor missing", g)
		}
		if cfg.Sidechain.Ratio <= 1 {
			t.Errorf("%s: sidechain ratio missing", g)
		}
		if cfg.CrossfadeMs <= 0 {
			t.Errorf("%s: crossfade missing", g)
		}
	}
}

func TestStagesReturnsCopy(t *testing.T) {
	a := Stages()
	a[0] = StageID("tampered")
	b := Stages()
	if b[0] == StageID("tampered") {
		t.Fatal("Stages must return an independent copy")
	}
}

func TestLoopToLength(t *testing.T) {
	rate := 44100
	src := makeMusicStem(t, 1.0)

	tests := []struct {
		name   string
		target int
	}{
		{"truncate", rate / 2},
		{"exact", rate},
		{"loop once", rate + rate/2},
		{"loop several times", 4 * rate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := loopToLength(src, tt.target, 80)
			if out.NumFrames() != tt.target {
				t.Fatalf("frames = %d, want %d", out.NumFrames(), tt.target)
			}
		})
	}
}

func TestLoopToLengthSeamContinuity(t *testing.T) {
	rate := 44100
	src := makeMusicStem(t, 1.0)
	out := loopToLength(src, 3*rate, 80)

	// No sample-to-sample jump at a loop seam should exceed the largest
	// jump in the source material by much; a hard seam without the
	// crossfade would show a discontinuity on the order of the peak level.
	maxSrcJump := 0.0
	for i := 1; i < src.NumFrames(); i++ {
		if d := src.Data[0][i] - src.Data[0][i-1]; d > maxSrcJump {
			maxSrcJump = d
		} else if -d > maxSrcJump {
			maxSrcJump = -d
		}
	}
	for i := 1; i < out.NumFrames(); i++ {
		d := out.Data[0][i] - out.Data[0][i-1]
		if d < 0 {
			d = -d
		}
		if d > maxSrcJump*1.5 {
			t.Fatalf("seam discontinuity %f at frame %d (source max jump %f)", d, i, maxSrcJump)
		}
	}
}

func TestVocalImagingDerivation(t *testing.T) {
	music := ConfigFromPresets(genre.Electronic)
	spec := vocalImaging(stereo.ImagingSpec{
		Width:  music.Width,
		Reverb: music.Reverb,
		Delay:  music.Delay,
	})

	if spec.Width.Factor >= music.Width.Factor {
		t.Fatalf("vocal width %f should sit below music width %f", spec.Width.Factor, music.Width.Factor)
	}
	if spec.Width.Factor < 1 {
		t.Fatalf("vocal width %f should not narrow below natural", spec.Width.Factor)
	}
	if spec.Reverb.WetLevel >= music.Reverb.WetLevel {
		t.Fatal("vocal reverb should be drier than the music's")
	}
	if spec.Delay.PingPong {
		t.Fatal("vocal delay must not ping-pong")
	}
}
