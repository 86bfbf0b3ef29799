package mix

import (
	"context"
	"testing"

	"github.com/versemix/mixdown/internal/audio"
	"github.com/versemix/mixdown/internal/genre"
)

func TestCreateStructuredJoinsSections(t *testing.T) {
	e := newTestEngine(t)
	cfg := ConfigFromPresets(genre.Pop)
	cfg.CrossfadeMs = 250

	music := makeMusicStem(t, 2.0)
	sections := []Section{
		{Name: "intro", Music: music, Seconds: 1.0},
		{Name: "verse", Vocals: makeVocalStem(t, 2.0), Music: music},
		{Name: "outro", Music: music, Seconds: 1.0},
	}

	res, err := e.CreateStructured(context.Background(), sections, cfg)
	if err != nil {
		t.Fatalf("CreateStructured: %v", err)
	}

	if len(res.SectionNames) != 3 {
		t.Fatalf("rendered %d sections, want 3", len(res.SectionNames))
	}
	for i, want := range []string{"intro", "verse", "outro"} {
		if res.SectionNames[i] != want {
			t.Fatalf("section %d = %q, want %q", i, res.SectionNames[i], want)
		}
	}

	// Crossfaded join: 1s + 2s + 1s minus two 250ms overlaps.
	rate := music.SampleRate
	xfade := rate / 4
	want := 4*rate - 2*xfade
	if res.Buffer.NumFrames() != want {
		t.Fatalf("frames = %d, want %d", res.Buffer.NumFrames(), want)
	}
	if len(res.DegradedStages) != 0 {
		t.Fatalf("unexpected degradations: %v", res.DegradedStages)
	}
}

func TestCreateStructuredInstrumentalOnly(t *testing.T) {
	e := newTestEngine(t)
	cfg := ConfigFromPresets(genre.Ambient)

	res, err := e.CreateStructured(context.Background(), []Section{
		{Name: "drone", Music: makeMusicStem(t, 2.0), Seconds: 3.0},
	}, cfg)
	if err != nil {
		t.Fatalf("CreateStructured: %v", err)
	}
	// A single looped instrumental section keeps its requested length.
	want := 3 * 44100
	if res.Buffer.NumFrames() != want {
		t.Fatalf("frames = %d, want %d", res.Buffer.NumFrames(), want)
	}
}

func TestCreateStructuredErrors(t *testing.T) {
	e := newTestEngine(t)
	cfg := ConfigFromPresets(genre.Pop)

	if _, err := e.CreateStructured(context.Background(), nil, cfg); err == nil {
		t.Fatal("no sections should fail")
	}

	empty, _ := audio.New(1, 0, 44100)
	_, err := e.CreateStructured(context.Background(), []Section{
		{Name: "broken", Music: empty},
	}, cfg)
	if err == nil {
		t.Fatal("empty section music should fail")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := e.CreateStructured(ctx, []Section{
		{Name: "x", Music: makeMusicStem(t, 1.0)},
	}, cfg); err == nil {
		t.Fatal("cancelled context should fail structured rendering")
	}
}

func TestCrossfadeJoin(t *testing.T) {
	rate := 44100
	a := makeMusicStem(t, 1.0)
	b := makeVocalStem(t, 1.0)

	out := crossfadeJoin(a, b, 250)
	xfade := rate / 4
	if want := 2*rate - xfade; out.NumFrames() != want {
		t.Fatalf("frames = %d, want %d", out.NumFrames(), want)
	}

	// Before the fade the output is pure a; after it, pure b.
	if out.Data[0][0] != a.Data[0][0] {
		t.Fatal("head should carry buffer a")
	}
	if got := out.Data[0][out.NumFrames()-1]; got != b.Data[0][b.NumFrames()-1] {
		t.Fatalf("tail = %f, want buffer b's final sample %f", got, b.Data[0][b.NumFrames()-1])
	}
}

func TestCrossfadeJoinResamplesSecondBuffer(t *testing.T) {
	a := makeMusicStem(t, 1.0) // 44100

	opts := defaultStemOptions()
	opts.Rate = 22050
	opts.Seconds = 1.0
	b := makeStem(t, opts)

	out := crossfadeJoin(a, b, 100)
	if out.SampleRate != 44100 {
		t.Fatalf("rate = %d, want 44100", out.SampleRate)
	}
	xfade := 4410
	want := a.NumFrames() + 44100 - xfade
	if diff := out.NumFrames() - want; diff < -2 || diff > 2 {
		t.Fatalf("frames = %d, want ~%d", out.NumFrames(), want)
	}
}
