// Package audio provides the in-memory sample buffer type shared by every
// processing stage, plus WAV file I/O via go-audio.
package audio

import (
	"errors"
	"fmt"
	"math"
)

// Buffer holds interleaved-free PCM audio: one sample slice per channel,
// all channels the same length, nominal amplitude range [-1, 1].
// Samples outside that range indicate clipping and are preserved as-is;
// stages that can clip normalise before returning.
//
// A Buffer is owned by whichever stage is transforming it. Stages never
// mutate their input across a stage boundary; each returns a new Buffer.
type Buffer struct {
	Data       [][]float64
	SampleRate int
}

// Errors returned by buffer constructors and stage inputs.
var (
	ErrEmptyBuffer      = errors.New("audio: empty buffer")
	ErrBufferTooShort   = errors.New("audio: buffer too short")
	ErrUnevenChannels   = errors.New("audio: channels differ in length")
	ErrInvalidChannels  = errors.New("audio: invalid channel count")
	ErrInvalidRate      = errors.New("audio: invalid sample rate")
	ErrLayoutMismatch   = errors.New("audio: incompatible channel layout")
	ErrUnsupportedDepth = errors.New("audio: unsupported bit depth")
)

// New allocates a silent buffer with the given shape.
func New(channels, frames, sampleRate int) (*Buffer, error) {
	if channels < 1 {
		return nil, ErrInvalidChannels
	}
	if sampleRate <= 0 {
		return nil, ErrInvalidRate
	}
	if frames < 0 {
		frames = 0
	}
	data := make([][]float64, channels)
	for ch := range data {
		data[ch] = make([]float64, frames)
	}
	return &Buffer{Data: data, SampleRate: sampleRate}, nil
}

// FromSamples wraps existing per-channel sample slices in a Buffer,
// validating the equal-length invariant. The slices are not copied.
func FromSamples(data [][]float64, sampleRate int) (*Buffer, error) {
	if len(data) == 0 {
		return nil, ErrInvalidChannels
	}
	if sampleRate <= 0 {
		return nil, ErrInvalidRate
	}
	frames := len(data[0])
	for ch := 1; ch < len(data); ch++ {
		if len(data[ch]) != frames {
			return nil, fmt.Errorf("%w: channel 0 has %d frames, channel %d has %d",
				ErrUnevenChannels, frames, ch, len(data[ch]))
		}
	}
	return &Buffer{Data: data, SampleRate: sampleRate}, nil
}

// NumChannels returns the channel count.
func (b *Buffer) NumChannels() int {
	return len(b.Data)
}

// NumFrames returns the per-channel sample count.
func (b *Buffer) NumFrames() int {
	if len(b.Data) == 0 {
		return 0
	}
	return len(b.Data[0])
}

// Duration returns the buffer length in seconds.
func (b *Buffer) Duration() float64 {
	if b.SampleRate <= 0 {
		return 0
	}
	return float64(b.NumFrames()) / float64(b.SampleRate)
}

// IsEmpty reports whether the buffer holds no frames.
func (b *Buffer) IsEmpty() bool {
	return b == nil || b.NumFrames() == 0
}

// Clone returns a deep copy. Stages that transform in place clone first.
func (b *Buffer) Clone() *Buffer {
	data := make([][]float64, len(b.Data))
	for ch := range b.Data {
		data[ch] = make([]float64, len(b.Data[ch]))
		copy(data[ch], b.Data[ch])
	}
	return &Buffer{Data: data, SampleRate: b.SampleRate}
}

// Peak returns the largest absolute sample value across all channels.
func (b *Buffer) Peak() float64 {
	peak := 0.0
	for _, ch := range b.Data {
		for _, s := range ch {
			if a := math.Abs(s); a > peak {
				peak = a
			}
		}
	}
	return peak
}

// RMS returns the root-mean-square level across all channels.
// Returns 0 for an empty buffer.
func (b *Buffer) RMS() float64 {
	var sum float64
	var n int
	for _, ch := range b.Data {
		for _, s := range ch {
			sum += s * s
		}
		n += len(ch)
	}
	if n == 0 {
		return 0
	}
	return math.Sqrt(sum / float64(n))
}

// Mono returns a single-channel downmix (average of channels).
// A mono input is cloned unchanged.
func (b *Buffer) Mono() *Buffer {
	if b.NumChannels() == 1 {
		return b.Clone()
	}
	frames := b.NumFrames()
	out := make([]float64, frames)
	scale := 1.0 / float64(b.NumChannels())
	for _, ch := range b.Data {
		for i, s := range ch {
			out[i] += s * scale
		}
	}
	return &Buffer{Data: [][]float64{out}, SampleRate: b.SampleRate}
}

// EnsureStereo returns a two-channel view of the buffer. Mono input is
// duplicated to both channels (the resolvable layout case); buffers with
// more than two channels are rejected rather than guessed at.
func (b *Buffer) EnsureStereo() (*Buffer, error) {
	switch b.NumChannels() {
	case 1:
		left := make([]float64, len(b.Data[0]))
		right := make([]float64, len(b.Data[0]))
		copy(left, b.Data[0])
		copy(right, b.Data[0])
		return &Buffer{Data: [][]float64{left, right}, SampleRate: b.SampleRate}, nil
	case 2:
		return b.Clone(), nil
	default:
		return nil, fmt.Errorf("%w: %d channels", ErrLayoutMismatch, b.NumChannels())
	}
}

// Slice returns a copy of frames [start, end) across all channels.
// Bounds are clamped to the buffer length.
func (b *Buffer) Slice(start, end int) *Buffer {
	frames := b.NumFrames()
	if start < 0 {
		start = 0
	}
	if end > frames {
		end = frames
	}
	if end < start {
		end = start
	}
	data := make([][]float64, len(b.Data))
	for ch := range b.Data {
		data[ch] = make([]float64, end-start)
		copy(data[ch], b.Data[ch][start:end])
	}
	return &Buffer{Data: data, SampleRate: b.SampleRate}
}

// Resampled returns the buffer converted to the target rate using linear
// interpolation. Length-preserving enough for envelope alignment; not a
// mastering-grade resampler.
func (b *Buffer) Resampled(rate int) *Buffer {
	if rate == b.SampleRate || b.NumFrames() == 0 {
		out := b.Clone()
		out.SampleRate = rate
		return out
	}
	ratio := float64(b.SampleRate) / float64(rate)
	frames := int(float64(b.NumFrames()) / ratio)
	data := make([][]float64, len(b.Data))
	for ch := range b.Data {
		src := b.Data[ch]
		dst := make([]float64, frames)
		for i := range dst {
			pos := float64(i) * ratio
			idx := int(pos)
			if idx >= len(src)-1 {
				dst[i] = src[len(src)-1]
				continue
			}
			frac := pos - float64(idx)
			dst[i] = src[idx]*(1-frac) + src[idx+1]*frac
		}
		data[ch] = dst
	}
	return &Buffer{Data: data, SampleRate: rate}
}

// PeakNormalised returns the buffer scaled so its peak sits at ceiling,
// but only when the current peak exceeds the ceiling. Quiet buffers are
// returned unchanged (no gain is ever added).
func (b *Buffer) PeakNormalised(ceiling float64) *Buffer {
	peak := b.Peak()
	if peak <= ceiling || peak == 0 {
		return b.Clone()
	}
	out := b.Clone()
	gain := ceiling / peak
	for _, ch := range out.Data {
		for i := range ch {
			ch[i] *= gain
		}
	}
	return out
}

// ApplyGain returns the buffer scaled by a linear gain factor.
func (b *Buffer) ApplyGain(gain float64) *Buffer {
	out := b.Clone()
	for _, ch := range out.Data {
		for i := range ch {
			ch[i] *= gain
		}
	}
	return out
}

// SilenceFloorDB is the level treated as silence in dB conversions.
const SilenceFloorDB = -120.0

// DBToLinear converts a decibel value to a linear amplitude factor.
func DBToLinear(db float64) float64 {
	return math.Pow(10, db/20.0)
}

// LinearToDB converts a linear amplitude to decibels.
// Returns the silence floor rather than -Inf for zero input.
func LinearToDB(lin float64) float64 {
	if lin <= 0 {
		return SilenceFloorDB
	}
	db := 20.0 * math.Log10(lin)
	if db < SilenceFloorDB {
		return SilenceFloorDB
	}
	return db
}
