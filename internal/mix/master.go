package mix

import (
	"math"

	"github.com/versemix/mixdown/internal/audio"
	"github.com/versemix/mixdown/internal/dynamics"
	"github.com/versemix/mixdown/internal/eq"
	"github.com/versemix/mixdown/internal/genre"
)

// Mastering constants.
const (
	// loudnessProxyOffsetDB converts plain RMS level into the loudness
	// estimate. Full mixes carry their energy where the K-weighting
	// curve is near flat, so a fixed offset tracks programme loudness
	// closely enough for gain staging.
	loudnessProxyOffsetDB = 0.691

	// masterCeiling leaves a little true-peak headroom below full scale.
	masterCeiling = 0.985

	// masterGenreEQScale softens the genre preset when reapplied on the
	// master bus; the stems already carried the full treatment.
	masterGenreEQScale = 0.5

	// DefaultTargetLUFS is the streaming-friendly loudness target.
	DefaultTargetLUFS = -14.0

	previewFadeSec = 1.0
)

// EstimateLoudnessDB approximates integrated loudness (LUFS) from the
// RMS level of the whole buffer.
func EstimateLoudnessDB(buf *audio.Buffer) float64 {
	return audio.LinearToDB(buf.RMS()) - loudnessProxyOffsetDB
}

// MasterResult reports what mastering did.
type MasterResult struct {
	Buffer *audio.Buffer

	InputLoudnessDB  float64 `json:"input_loudness_db"`
	OutputLoudnessDB float64 `json:"output_loudness_db"`
	TargetLoudnessDB float64 `json:"target_loudness_db"`
	AppliedGainDB    float64 `json:"applied_gain_db"`
}

// Master normalises a mix to the target loudness and limits the result
// under the output ceiling. A non-empty genre adds the genre's master
// treatment (softened preset EQ plus glue compression) before the
// loudness stage. Silent input passes through unchanged.
func (e *Engine) Master(buf *audio.Buffer, targetLUFS float64, g genre.Genre) (*MasterResult, error) {
	if buf.IsEmpty() {
		return nil, audio.ErrEmptyBuffer
	}
	if targetLUFS == 0 {
		targetLUFS = DefaultTargetLUFS
	}

	out := buf.Clone()
	if g != "" {
		preset := genre.ForGenre(g, genre.RoleMusic)
		out = eq.Apply(out, scaleFilterGains(preset.EQ, masterGenreEQScale))
		if !preset.Compression.IsZero() {
			out = dynamics.Compress(out, preset.Compression)
		}
	}

	result := &MasterResult{
		InputLoudnessDB:  EstimateLoudnessDB(buf),
		TargetLoudnessDB: targetLUFS,
	}

	current := EstimateLoudnessDB(out)
	if !math.IsInf(current, -1) && current > audio.SilenceFloorDB {
		result.AppliedGainDB = targetLUFS - current
		out = out.ApplyGain(audio.DBToLinear(result.AppliedGainDB))
	}

	out = dynamics.Limit(out, masterCeiling)
	result.Buffer = out
	result.OutputLoudnessDB = EstimateLoudnessDB(out)
	return result, nil
}

func scaleFilterGains(specs []eq.FilterSpec, scale float64) []eq.FilterSpec {
	scaled := make([]eq.FilterSpec, len(specs))
	for i, s := range specs {
		s.GainDB *= scale
		scaled[i] = s
	}
	return scaled
}

// CreatePreview truncates a mix to the requested length with a fade-out
// so the cut doesn't click. Buffers already short enough come back as a
// faded copy of the whole mix.
func CreatePreview(buf *audio.Buffer, seconds float64) (*audio.Buffer, error) {
	if buf.IsEmpty() {
		return nil, audio.ErrEmptyBuffer
	}
	if seconds <= 0 {
		return nil, audio.ErrBufferTooShort
	}

	frames := int(seconds * float64(buf.SampleRate))
	if frames > buf.NumFrames() {
		frames = buf.NumFrames()
	}
	out := buf.Slice(0, frames)

	fade := int(previewFadeSec * float64(out.SampleRate))
	if fade > frames {
		fade = frames
	}
	for ch := range out.Data {
		data := out.Data[ch]
		for i := 0; i < fade; i++ {
			pos := frames - fade + i
			data[pos] *= 1 - float64(i)/float64(fade)
		}
	}
	return out, nil
}

// Export writes a mix to disk as 16-bit PCM WAV.
func Export(buf *audio.Buffer, path string) error {
	return audio.WriteWAV(path, buf)
}
