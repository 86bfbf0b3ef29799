package stereo

import (
	"math"
	"testing"

	"github.com/versemix/mixdown/internal/audio"
)

// makeStereoNoise builds a deterministic stereo noise buffer. correlated
// duplicates the left channel into the right; otherwise the channels are
// independent noise.
func makeStereoNoise(t *testing.T, seconds float64, rate int, correlated bool) *audio.Buffer {
	t.Helper()
	frames := int(seconds * float64(rate))
	left := make([]float64, frames)
	right := make([]float64, frames)
	state := uint32(99)
	next := func() float64 {
		state = state*1664525 + 1013904223
		return float64(state)/float64(math.MaxUint32)*2 - 1
	}
	for i := 0; i < frames; i++ {
		left[i] = 0.5 * next()
		if correlated {
			right[i] = left[i]
		} else {
			right[i] = 0.5 * next()
		}
	}
	buf, err := audio.FromSamples([][]float64{left, right}, rate)
	if err != nil {
		t.Fatalf("FromSamples: %v", err)
	}
	return buf
}

func TestMeasureWidthIdenticalChannelsIsMono(t *testing.T) {
	buf := makeStereoNoise(t, 0.5, 44100, true)
	m, err := MeasureWidth(buf)
	if err != nil {
		t.Fatalf("MeasureWidth: %v", err)
	}
	if !m.IsMono {
		t.Fatal("identical channels should measure as mono")
	}
	if m.WidthScore > 0.01 {
		t.Fatalf("width score = %f, want ~0", m.WidthScore)
	}
	if m.SideMidRatio > 1e-9 {
		t.Fatalf("side/mid ratio = %f, want 0", m.SideMidRatio)
	}
}

func TestMeasureWidthDecorrelatedChannels(t *testing.T) {
	buf := makeStereoNoise(t, 0.5, 44100, false)
	m, err := MeasureWidth(buf)
	if err != nil {
		t.Fatalf("MeasureWidth: %v", err)
	}
	if m.IsMono {
		t.Fatal("independent channels should not measure as mono")
	}
	if m.WidthScore < 0.3 {
		t.Fatalf("width score = %f, want substantial", m.WidthScore)
	}
}

func TestMeasureWidthMonoInput(t *testing.T) {
	mono, _ := audio.FromSamples([][]float64{{0.1, -0.2, 0.3, -0.4}}, 44100)
	m, err := MeasureWidth(mono)
	if err != nil {
		t.Fatalf("MeasureWidth: %v", err)
	}
	if !m.IsMono {
		t.Fatal("single-channel input should measure as mono")
	}
}

func TestEnhanceWidthUnitFactorIsIdentity(t *testing.T) {
	buf := makeStereoNoise(t, 0.2, 44100, false)
	out, err := EnhanceWidth(buf, WidthSpec{Factor: 1.0})
	if err != nil {
		t.Fatalf("EnhanceWidth: %v", err)
	}
	for ch := range buf.Data {
		for i := range buf.Data[ch] {
			if math.Abs(out.Data[ch][i]-buf.Data[ch][i]) > 1e-12 {
				t.Fatalf("ch %d sample %d changed at factor 1.0", ch, i)
			}
		}
	}
}

func TestEnhanceWidthChangesSideLevel(t *testing.T) {
	buf := makeStereoNoise(t, 0.5, 44100, false)
	base, _ := MeasureWidth(buf)

	wide, err := EnhanceWidth(buf, WidthSpec{Factor: 1.5})
	if err != nil {
		t.Fatalf("EnhanceWidth: %v", err)
	}
	wider, _ := MeasureWidth(wide)
	if wider.SideMidRatio <= base.SideMidRatio {
		t.Fatalf("side ratio %f should grow past %f", wider.SideMidRatio, base.SideMidRatio)
	}

	narrow, err := EnhanceWidth(buf, WidthSpec{Factor: 0.5})
	if err != nil {
		t.Fatalf("EnhanceWidth: %v", err)
	}
	narrower, _ := MeasureWidth(narrow)
	if narrower.SideMidRatio >= base.SideMidRatio {
		t.Fatalf("side ratio %f should shrink below %f", narrower.SideMidRatio, base.SideMidRatio)
	}
}

func TestWidthScoreMonotonicInFactor(t *testing.T) {
	buf := makeStereoNoise(t, 0.5, 44100, false)

	prev := -1.0
	for _, factor := range []float64{0, 0.25, 0.5, 1.0, 1.5, 2.0} {
		out, err := EnhanceWidth(buf, WidthSpec{Factor: factor})
		if err != nil {
			t.Fatalf("EnhanceWidth(%g): %v", factor, err)
		}
		m, err := MeasureWidth(out)
		if err != nil {
			t.Fatalf("MeasureWidth(%g): %v", factor, err)
		}
		if m.WidthScore < prev {
			t.Fatalf("width score %f at factor %g fell below %f", m.WidthScore, factor, prev)
		}
		prev = m.WidthScore
	}
}

func TestEnhanceWidthZeroFactorCollapsesToMono(t *testing.T) {
	buf := makeStereoNoise(t, 0.2, 44100, false)
	out, err := EnhanceWidth(buf, WidthSpec{Factor: 0})
	if err != nil {
		t.Fatalf("EnhanceWidth: %v", err)
	}
	m, _ := MeasureWidth(out)
	if !m.IsMono {
		t.Fatal("zero width factor should collapse the image to mono")
	}
}

func TestProcessDisabledSpecClones(t *testing.T) {
	buf := makeStereoNoise(t, 0.2, 44100, false)
	out, err := Process(buf, ImagingSpec{Width: WidthSpec{Factor: 1.0}})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	for ch := range buf.Data {
		for i := range buf.Data[ch] {
			if out.Data[ch][i] != buf.Data[ch][i] {
				t.Fatalf("disabled spec altered ch %d sample %d", ch, i)
			}
		}
	}
	out.Data[0][0] = 42
	if buf.Data[0][0] == 42 {
		t.Fatal("Process aliases its input when disabled")
	}
}

func TestProcessPairIndependentTreatments(t *testing.T) {
	vocals := makeStereoNoise(t, 0.5, 44100, true)
	music := makeStereoNoise(t, 0.5, 44100, false)

	v, m, err := ProcessPair(vocals, music,
		ImagingSpec{Width: WidthSpec{Factor: 0.9}},
		ImagingSpec{Width: WidthSpec{Factor: 1.5}})
	if err != nil {
		t.Fatalf("ProcessPair: %v", err)
	}
	if v.NumFrames() != vocals.NumFrames() || m.NumFrames() != music.NumFrames() {
		t.Fatal("width processing should preserve length")
	}

	vm, _ := MeasureWidth(v)
	mm, _ := MeasureWidth(m)
	if !vm.IsMono {
		t.Fatal("narrowed mono-correlated vocals should stay mono")
	}
	base, _ := MeasureWidth(music)
	if mm.SideMidRatio <= base.SideMidRatio {
		t.Fatal("music should come out wider than it went in")
	}
}
