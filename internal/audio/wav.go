package audio

import (
	"fmt"
	"math"
	"os"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ReadWAV decodes a PCM WAV file into a Buffer. Samples are converted to
// float64 in [-1, 1] from whatever integer depth the file carries.
func ReadWAV(path string) (*Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open wav file: %w", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	pcm, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to decode wav file %s: %w", path, err)
	}
	if pcm == nil || len(pcm.Data) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyBuffer, path)
	}

	channels := pcm.Format.NumChannels
	if channels < 1 {
		return nil, fmt.Errorf("%w: %d channels in %s", ErrInvalidChannels, channels, path)
	}

	bitDepth := int(dec.BitDepth)
	if bitDepth == 0 {
		bitDepth = pcm.SourceBitDepth
	}
	scale := float64(int64(1) << (bitDepth - 1))

	frames := len(pcm.Data) / channels
	data := make([][]float64, channels)
	for ch := range data {
		data[ch] = make([]float64, frames)
	}
	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			data[ch][i] = float64(pcm.Data[i*channels+ch]) / scale
		}
	}

	return &Buffer{Data: data, SampleRate: pcm.Format.SampleRate}, nil
}

// WriteWAV encodes a Buffer as 16-bit PCM WAV. Samples are clamped to
// [-1, 1] at the conversion boundary; upstream stages are expected to
// have peak-limited already.
func WriteWAV(path string, buf *Buffer) error {
	if buf.IsEmpty() {
		return ErrEmptyBuffer
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create wav file: %w", err)
	}
	defer f.Close()

	const bitDepth = 16
	channels := buf.NumChannels()
	frames := buf.NumFrames()

	intBuf := &gaudio.IntBuffer{
		Format: &gaudio.Format{
			NumChannels: channels,
			SampleRate:  buf.SampleRate,
		},
		SourceBitDepth: bitDepth,
		Data:           make([]int, frames*channels),
	}

	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			s := buf.Data[ch][i]
			if s > 1.0 {
				s = 1.0
			} else if s < -1.0 {
				s = -1.0
			}
			intBuf.Data[i*channels+ch] = int(math.Round(s * (math.MaxInt16)))
		}
	}

	enc := wav.NewEncoder(f, buf.SampleRate, bitDepth, channels, 1)
	if err := enc.Write(intBuf); err != nil {
		enc.Close()
		return fmt.Errorf("failed to write wav data: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to finalise wav file: %w", err)
	}
	return nil
}
